// Package notify fans semantic alarm events out to registered subscriber
// plugins. The dispatcher runs on the panel session's goroutine, so
// subscribers must hand work off to their own delivery loop instead of
// blocking the call.
package notify

import (
	"github.com/mjahr/smartalarmserver/internal/metrics"
	"github.com/mjahr/smartalarmserver/internal/state"
)

// Notifier is the capability interface a subscriber plugin implements.
type Notifier interface {
	KeypadUpdate(partition int, status state.PartitionStatus)
	PartitionStatus(partition int, previousArmed, armed bool, status string)
	ArmedAway(user string)
	ArmedHome(user string)
	DisarmedAway(user string)
	DisarmedHome(user string)
	AlarmTriggered(zone int, zoneName string)
	AlarmCleared(zone int, zoneName string)
}

// Dispatcher is the fan-out point: each event is delivered to every
// registered subscriber synchronously, in registration order.
type Dispatcher struct {
	notifiers []Notifier
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{}
}

// Register appends a subscriber. Registration happens during startup,
// before the session starts delivering events.
func (d *Dispatcher) Register(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

func (d *Dispatcher) KeypadUpdate(partition int, status state.PartitionStatus) {
	metrics.Notifications.WithLabelValues("keypad_update").Inc()
	for _, n := range d.notifiers {
		n.KeypadUpdate(partition, status)
	}
}

func (d *Dispatcher) PartitionStatus(partition int, previousArmed, armed bool, status string) {
	metrics.Notifications.WithLabelValues("partition_status").Inc()
	for _, n := range d.notifiers {
		n.PartitionStatus(partition, previousArmed, armed, status)
	}
}

func (d *Dispatcher) ArmedAway(user string) {
	metrics.Notifications.WithLabelValues("armed_away").Inc()
	for _, n := range d.notifiers {
		n.ArmedAway(user)
	}
}

func (d *Dispatcher) ArmedHome(user string) {
	metrics.Notifications.WithLabelValues("armed_home").Inc()
	for _, n := range d.notifiers {
		n.ArmedHome(user)
	}
}

func (d *Dispatcher) DisarmedAway(user string) {
	metrics.Notifications.WithLabelValues("disarmed_away").Inc()
	for _, n := range d.notifiers {
		n.DisarmedAway(user)
	}
}

func (d *Dispatcher) DisarmedHome(user string) {
	metrics.Notifications.WithLabelValues("disarmed_home").Inc()
	for _, n := range d.notifiers {
		n.DisarmedHome(user)
	}
}

func (d *Dispatcher) AlarmTriggered(zone int, zoneName string) {
	metrics.Notifications.WithLabelValues("alarm_triggered").Inc()
	for _, n := range d.notifiers {
		n.AlarmTriggered(zone, zoneName)
	}
}

func (d *Dispatcher) AlarmCleared(zone int, zoneName string) {
	metrics.Notifications.WithLabelValues("alarm_cleared").Inc()
	for _, n := range d.notifiers {
		n.AlarmCleared(zone, zoneName)
	}
}
