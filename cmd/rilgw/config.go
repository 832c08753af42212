package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds the gateway configuration.
type Config struct {
	// BindAddress is the address the HTTP server listens on.
	BindAddress string `yaml:"bind_address"`
	// SerialPort is the path to the modem's serial port.
	SerialPort string `yaml:"serial_port"`
	// BaudRate is the serial baud rate.
	BaudRate int `yaml:"baud_rate"`
	// LogLevel sets the logging level ("debug", "info", "warn", "error").
	LogLevel string `yaml:"log_level"`
	// Echo keeps device command echo enabled.
	Echo bool `yaml:"echo"`

	// MqttBroker enables the MQTT bridge when non-empty, e.g.
	// "tcp://localhost:1883".
	MqttBroker string `yaml:"mqtt_broker"`
	// MqttClientID identifies this gateway to the broker.
	MqttClientID string `yaml:"mqtt_client_id"`
	// MqttSendTopic carries inbound send requests ({to,message} JSON).
	MqttSendTopic string `yaml:"mqtt_send_topic"`
	// MqttEventTopic carries outbound device events.
	MqttEventTopic string `yaml:"mqtt_event_topic"`
	// MqttUsername and MqttPassword are optional broker credentials.
	MqttUsername string `yaml:"mqtt_username"`
	MqttPassword string `yaml:"mqtt_password"`
}

// ConfigOption is a function that modifies a Config.
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order.
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	return config, nil
}

// WithDefaults applies default configuration values.
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BindAddress = "0.0.0.0:8080"
		c.SerialPort = "/dev/ttyUSB0"
		c.BaudRate = 115200
		c.LogLevel = "info"
		c.MqttClientID = "rilgw-1"
		c.MqttSendTopic = "rilgw/send"
		c.MqttEventTopic = "rilgw/events"
		return nil
	}
}

// WithFile loads configuration from a YAML file. A missing file is
// not an error; explicitly configured paths that fail to parse are.
func WithFile(path string) ConfigOption {
	return func(c *Config) error {
		if path == "" {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parse config file %s: %w", path, err)
		}
		return nil
	}
}

// WithEnv loads configuration from environment variables.
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if addr := os.Getenv("BIND_ADDRESS"); addr != "" {
			c.BindAddress = addr
		}
		if port := os.Getenv("SERIAL_PORT"); port != "" {
			c.SerialPort = port
		}
		if baud := os.Getenv("BAUD_RATE"); baud != "" {
			if b, err := strconv.Atoi(baud); err == nil {
				c.BaudRate = b
			}
		}
		if level := os.Getenv("LOG_LEVEL"); level != "" {
			c.LogLevel = level
		}
		if os.Getenv("ECHO") == "1" {
			c.Echo = true
		}
		if broker := os.Getenv("MQTT_BROKER"); broker != "" {
			c.MqttBroker = broker
		}
		if id := os.Getenv("MQTT_CLIENT_ID"); id != "" {
			c.MqttClientID = id
		}
		if topic := os.Getenv("MQTT_SEND_TOPIC"); topic != "" {
			c.MqttSendTopic = topic
		}
		if topic := os.Getenv("MQTT_EVENT_TOPIC"); topic != "" {
			c.MqttEventTopic = topic
		}
		if user := os.Getenv("MQTT_USERNAME"); user != "" {
			c.MqttUsername = user
		}
		if pass := os.Getenv("MQTT_PASSWORD"); pass != "" {
			c.MqttPassword = pass
		}
		return nil
	}
}

// WithFlags loads configuration from command-line flags.
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "bind-address":
				c.BindAddress = f.Value.String()
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, err := strconv.Atoi(f.Value.String()); err == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "mqtt-broker":
				c.MqttBroker = f.Value.String()
			}
		})
		return nil
	}
}
