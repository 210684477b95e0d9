// Package state holds the in-memory alarm model: one entry per partition
// plus bounded event histories. The panel session is the only writer; every
// other reader takes a Snapshot.
package state

import (
	"sync"
	"time"

	"github.com/mjahr/smartalarmserver/internal/tpi"
)

const Version = "1.0"

// PartitionStatus is the serializable flag set for one partition.
type PartitionStatus struct {
	Ready               bool   `json:"ready"`
	Armed               bool   `json:"armed"`
	ArmedAway           bool   `json:"armed_away"`
	ArmedStay           bool   `json:"armed_stay"`
	ArmedZeroEntryDelay bool   `json:"armed_zero_entry_delay"`
	ArmedBypass         bool   `json:"armed_bypass"`
	EntryDelay          bool   `json:"entry_delay"`
	ExitDelay           bool   `json:"exit_delay"`
	Chime               bool   `json:"chime"`
	Alarm               bool   `json:"alarm"`
	AlarmInMemory       bool   `json:"alarm_in_memory"`
	AlarmFireZone       bool   `json:"alarm_fire_zone"`
	Fire                bool   `json:"fire"`
	Trouble             bool   `json:"trouble"`
	ACPresent           bool   `json:"ac_present"`
	Alpha               string `json:"alpha"`
	Beep                string `json:"beep"`
}

// Event is one entry in a partition's or the global event history.
type Event struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Partition is the serializable state of one partition.
type Partition struct {
	Name       string          `json:"name,omitempty"`
	Status     PartitionStatus `json:"status"`
	LastEvents []Event         `json:"lastevents"`

	// set once a %02 broadcast has covered this partition; until then the
	// armed flag is derived from keypad icon flags instead
	statusObserved bool
}

// Snapshot is a deep, independent copy of the whole model, safe to
// serialize without holding any lock.
type Snapshot struct {
	Version    string            `json:"version"`
	Partitions map[int]Partition `json:"partition"`
	LastEvents []Event           `json:"lastevents"`
}

type Store struct {
	mu             sync.Mutex
	maxEvents      int
	maxAllEvents   int
	partitionNames map[int]string
	partitions     map[int]*Partition
	allEvents      []Event
}

func New(maxEvents, maxAllEvents int, partitionNames map[int]string) *Store {
	return &Store{
		maxEvents:      maxEvents,
		maxAllEvents:   maxAllEvents,
		partitionNames: partitionNames,
		partitions:     make(map[int]*Partition),
	}
}

// partition lazily initializes a partition's entry on first reference.
// Callers must hold s.mu.
func (s *Store) partition(number int) *Partition {
	p, ok := s.partitions[number]
	if !ok {
		p = &Partition{Name: s.partitionNames[number]}
		s.partitions[number] = p
	}
	return p
}

// ApplyKeypadUpdate replaces a partition's flag set with the decoded keypad
// broadcast. While no partition status broadcast has been seen for the
// partition, armed is derived from the icon flags; entry/exit delay cannot
// be told apart here, so those flags are left to ApplyPartitionStatus.
func (s *Store) ApplyKeypadUpdate(u tpi.KeypadUpdate) PartitionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partition(u.Partition)
	st := &p.Status
	st.Ready = u.Flags.Ready
	st.ArmedAway = u.Flags.ArmedAway
	st.ArmedStay = u.Flags.ArmedStay
	st.ArmedZeroEntryDelay = u.Flags.ArmedZeroEntryDelay
	st.ArmedBypass = u.Flags.Bypass
	st.Chime = u.Flags.Chime
	st.Alarm = u.Flags.Alarm
	st.AlarmInMemory = u.Flags.AlarmInMemory
	st.AlarmFireZone = u.Flags.AlarmFireZone
	st.Fire = u.Flags.Fire
	st.Trouble = u.Flags.SystemTrouble
	st.ACPresent = u.Flags.ACPresent
	st.Alpha = u.Alpha
	st.Beep = u.Beep

	if !p.statusObserved {
		st.Armed = u.Flags.Armed()
	}

	return *st
}

// ApplyPartitionStatus applies one partition's slice of a %02 broadcast and
// returns the previous and new armed flags. EXIT_ENTRY_DELAY means exit
// delay when the partition was disarmed and entry delay when it was armed.
func (s *Store) ApplyPartitionStatus(e tpi.PartitionStatusEvent) (previous, armed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.partition(e.Partition)
	previous = p.Status.Armed
	armed = e.Status.Armed()

	p.Status.ExitDelay = e.Status == tpi.StatusExitEntryDelay && !previous
	p.Status.EntryDelay = e.Status == tpi.StatusExitEntryDelay && previous
	p.Status.Armed = armed
	p.statusObserved = true

	return previous, armed
}

// AddEvent prepends an event to the partition's history and the global
// history, trimming both to their capacities. Most recent first.
func (s *Store) AddEvent(partition int, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event := Event{Time: time.Now(), Message: message}

	p := s.partition(partition)
	p.LastEvents = prepend(p.LastEvents, event, s.maxEvents)
	s.allEvents = prepend(s.allEvents, event, s.maxAllEvents)
}

func prepend(events []Event, event Event, capacity int) []Event {
	events = append([]Event{event}, events...)
	if len(events) > capacity {
		events = events[:capacity]
	}
	return events
}

// PartitionStatus returns a copy of one partition's flag set.
func (s *Store) PartitionStatus(partition int) PartitionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.partition(partition).Status
}

// Snapshot returns a deep copy of the whole model.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Version:    Version,
		Partitions: make(map[int]Partition, len(s.partitions)),
		LastEvents: append([]Event(nil), s.allEvents...),
	}
	for number, p := range s.partitions {
		copied := *p
		copied.LastEvents = append([]Event(nil), p.LastEvents...)
		snap.Partitions[number] = copied
	}
	return snap
}
