package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Envisalink EnvisalinkConfig `yaml:"envisalink"`
	Server     ServerConfig     `yaml:"server"`
	Webhook    WebhookConfig    `yaml:"webhook"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	Partitions []NameConfig     `yaml:"partitions"`
	Zones      []NameConfig     `yaml:"zones"`
	Users      []NameConfig     `yaml:"users"`
	Log        string           `yaml:"log"`
}

type EnvisalinkConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Password   string `yaml:"password"`
	AlarmCode  string `yaml:"alarm_code"`
	RetryDelay int    `yaml:"retry_delay"`
}

type ServerConfig struct {
	Port         int   `yaml:"port"`
	MaxEvents    int   `yaml:"max_events"`
	MaxAllEvents int   `yaml:"max_all_events"`
	EventTimeAgo *bool `yaml:"eventtimeago"`
}

type WebhookConfig struct {
	URLBase              string `yaml:"url_base"`
	AppID                string `yaml:"app_id"`
	AccessToken          string `yaml:"access_token"`
	Timeout              int    `yaml:"timeout"`
	QueueSize            int    `yaml:"queue_size"`
	RepeatUpdateInterval int    `yaml:"repeat_update_interval"`
}

type MQTTConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
	QOS      int    `yaml:"qos"`
	Retain   bool   `yaml:"retain"`
}

// NameConfig maps a 1-indexed partition, zone or user number to a display
// name. The tables are sparse: only configured numbers appear.
type NameConfig struct {
	Number int    `yaml:"number"`
	Name   string `yaml:"name"`
}

func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Set default values
	if config.Envisalink.Host == "" {
		config.Envisalink.Host = "envisalink"
	}
	if config.Envisalink.Port == 0 {
		config.Envisalink.Port = 4025
	}
	if config.Envisalink.Password == "" {
		config.Envisalink.Password = "user"
	}
	if config.Envisalink.AlarmCode == "" {
		config.Envisalink.AlarmCode = "1111"
	}
	if config.Envisalink.RetryDelay == 0 {
		config.Envisalink.RetryDelay = 10
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8111
	}
	if config.Server.MaxEvents == 0 {
		config.Server.MaxEvents = 10
	}
	if config.Server.MaxAllEvents == 0 {
		config.Server.MaxAllEvents = 100
	}
	if config.Server.EventTimeAgo == nil {
		eventTimeAgo := true
		config.Server.EventTimeAgo = &eventTimeAgo
	}
	if config.Webhook.Timeout == 0 {
		config.Webhook.Timeout = 10
	}
	if config.Webhook.QueueSize == 0 {
		config.Webhook.QueueSize = 100
	}
	if config.Webhook.RepeatUpdateInterval == 0 {
		config.Webhook.RepeatUpdateInterval = 55
	}
	if config.MQTT.Port == 0 {
		config.MQTT.Port = 1883
	}
	if config.MQTT.ClientID == "" {
		config.MQTT.ClientID = "smartalarmserver"
	}
	if config.MQTT.Prefix == "" {
		config.MQTT.Prefix = "smartalarmserver"
	}
	if config.Log == "" {
		config.Log = "info"
	}

	return &config, nil
}

// NameTable converts a sparse name list into a lookup map.
func NameTable(names []NameConfig) map[int]string {
	table := make(map[int]string, len(names))
	for _, n := range names {
		if n.Number > 0 && n.Name != "" {
			table[n.Number] = n.Name
		}
	}
	return table
}
