package notify

import (
	"encoding/json"
	"fmt"
	"strconv"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/mjahr/smartalarmserver/internal/config"
	"github.com/mjahr/smartalarmserver/internal/log"
	"github.com/mjahr/smartalarmserver/internal/state"
	"github.com/mjahr/smartalarmserver/internal/util"
)

const (
	offlinePayload = "offline"
	onlinePayload  = "online"
)

// Commander is the slice of the panel session the MQTT plugin drives when a
// command arrives on the command topic.
type Commander interface {
	Arm(code string) error
	ArmStay(code string) error
	Disarm(code string) error
}

// MQTTNotifier publishes panel state and semantic events to an MQTT broker
// and maps messages on the command topic to panel keypresses. paho's client
// queues publishes internally, so the dispatcher's synchronous calls return
// without waiting on the broker.
type MQTTNotifier struct {
	cfg            *config.MQTTConfig
	log            *log.Logger
	panel          Commander
	client         mqtt.Client
	partitionNames map[int]string
}

func NewMQTT(cfg *config.MQTTConfig, panel Commander, partitionNames map[int]string, logger *log.Logger) *MQTTNotifier {
	return &MQTTNotifier{
		cfg:            cfg,
		log:            logger,
		panel:          panel,
		partitionNames: partitionNames,
	}
}

func (m *MQTTNotifier) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", m.cfg.Host, m.cfg.Port))
	opts.SetClientID(m.cfg.ClientID)
	opts.SetUsername(m.cfg.Username)
	opts.SetPassword(m.cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onDisconnect)

	opts.SetWill(m.statusTopic(), offlinePayload, byte(m.cfg.QOS), m.cfg.Retain)

	m.client = mqtt.NewClient(opts)

	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	m.log.Info("Connected to MQTT broker: %s:%d", m.cfg.Host, m.cfg.Port)
	return nil
}

func (m *MQTTNotifier) onConnect(client mqtt.Client) {
	m.log.Info("MQTT connection established")
	m.publish(m.statusTopic(), onlinePayload, true)

	topic := m.commandTopic()
	token := m.client.Subscribe(topic, byte(m.cfg.QOS), m.handleCommand)
	if token.Wait() && token.Error() != nil {
		m.log.Error("Failed to subscribe to topic %s: %v", topic, token.Error())
	} else {
		m.log.Debug("Subscribed to topic: %s", topic)
	}
}

func (m *MQTTNotifier) onDisconnect(client mqtt.Client, err error) {
	m.log.Error("MQTT connection lost: %v", err)
}

func (m *MQTTNotifier) handleCommand(client mqtt.Client, msg mqtt.Message) {
	command := string(msg.Payload())
	m.log.Debug("Received MQTT command: %s", command)

	var err error
	switch command {
	case "arm":
		err = m.panel.Arm("")
	case "stayarm":
		err = m.panel.ArmStay("")
	case "disarm":
		err = m.panel.Disarm("")
	default:
		m.log.Warning("Unknown MQTT command: %s", command)
		return
	}
	if err != nil {
		m.log.Error("Failed to send %s command to panel: %v", command, err)
	}
}

func (m *MQTTNotifier) statusTopic() string {
	return fmt.Sprintf("%s/status", m.cfg.Prefix)
}

func (m *MQTTNotifier) commandTopic() string {
	return fmt.Sprintf("%s/command", m.cfg.Prefix)
}

func (m *MQTTNotifier) partitionTopic(partition int) string {
	if name, ok := m.partitionNames[partition]; ok {
		return fmt.Sprintf("%s/partition/%s", m.cfg.Prefix, util.Slugify(name))
	}
	return fmt.Sprintf("%s/partition/%s", m.cfg.Prefix, strconv.Itoa(partition))
}

func (m *MQTTNotifier) eventTopic() string {
	return fmt.Sprintf("%s/event", m.cfg.Prefix)
}

func (m *MQTTNotifier) KeypadUpdate(partition int, status state.PartitionStatus) {
	m.publish(m.partitionTopic(partition), status, true)
}

func (m *MQTTNotifier) PartitionStatus(partition int, previousArmed, armed bool, status string) {
	m.publish(m.eventTopic(), map[string]interface{}{
		"type":      "partition_status",
		"partition": partition,
		"status":    status,
		"armed":     armed,
	}, false)
}

func (m *MQTTNotifier) ArmedAway(user string) {
	m.publishPanelEvent("ARMED_AWAY", user)
}

func (m *MQTTNotifier) ArmedHome(user string) {
	m.publishPanelEvent("ARMED_HOME", user)
}

func (m *MQTTNotifier) DisarmedAway(user string) {
	m.publishPanelEvent("DISARMED_AWAY", user)
}

func (m *MQTTNotifier) DisarmedHome(user string) {
	m.publishPanelEvent("DISARMED_HOME", user)
}

func (m *MQTTNotifier) publishPanelEvent(status, user string) {
	m.publish(m.eventTopic(), map[string]string{
		"type":   "panel",
		"status": status,
		"user":   user,
	}, false)
}

func (m *MQTTNotifier) AlarmTriggered(zone int, zoneName string) {
	m.publishAlarmEvent("IN_ALARM", zone, zoneName)
}

func (m *MQTTNotifier) AlarmCleared(zone int, zoneName string) {
	m.publishAlarmEvent("ALARM_IN_MEMORY", zone, zoneName)
}

func (m *MQTTNotifier) publishAlarmEvent(status string, zone int, zoneName string) {
	m.publish(m.eventTopic(), map[string]interface{}{
		"type":     "alarm",
		"status":   status,
		"zone":     zone,
		"zonename": zoneName,
	}, false)
}

func (m *MQTTNotifier) publish(topic string, message interface{}, retain bool) {
	var payload []byte
	switch msg := message.(type) {
	case string:
		payload = []byte(msg)
	default:
		var err error
		payload, err = json.Marshal(message)
		if err != nil {
			m.log.Error("Failed to marshal message for topic %s: %v", topic, err)
			return
		}
	}

	token := m.client.Publish(topic, byte(m.cfg.QOS), retain || m.cfg.Retain, payload)
	go func() {
		if token.Wait() && token.Error() != nil {
			m.log.Error("Failed to publish message to topic %s: %v", topic, token.Error())
		}
	}()
}

func (m *MQTTNotifier) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.publish(m.statusTopic(), offlinePayload, true)
		m.client.Disconnect(250)
	}
}
