package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hamsadev/ril"
	"github.com/hamsadev/ril/sms"
)

// Bridge connects the gateway to an MQTT broker: send requests arrive
// on the send topic as {to,message} JSON, device events go out on the
// event topic.
type Bridge struct {
	logger *slog.Logger
	sms    *sms.Client
	cfg    *Config
	cli    mqtt.Client
}

// StartBridge connects to the configured broker. Connection problems
// are logged and retried in the background; the gateway works without
// the broker.
func StartBridge(cfg *Config, logger *slog.Logger, smsClient *sms.Client) *Bridge {
	b := &Bridge{logger: logger, sms: smsClient, cfg: cfg}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MqttBroker)
	opts.SetClientID(cfg.MqttClientID)
	if cfg.MqttUsername != "" {
		opts.SetUsername(cfg.MqttUsername)
		opts.SetPassword(cfg.MqttPassword)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		logger.Info("mqtt connected, subscribing", "topic", cfg.MqttSendTopic)
		if token := c.Subscribe(cfg.MqttSendTopic, 0, b.handleSend); token.Wait() && token.Error() != nil {
			logger.Error("mqtt subscribe failed", "error", token.Error())
		}
	})

	b.cli = mqtt.NewClient(opts)
	if t := b.cli.Connect(); t.Wait() && t.Error() != nil {
		logger.Error("mqtt connect failed", "error", t.Error())
	}
	return b
}

func (b *Bridge) handleSend(_ mqtt.Client, m mqtt.Message) {
	var req struct {
		To      string `json:"to"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(m.Payload(), &req); err != nil {
		b.logger.Warn("mqtt bad payload", "error", err)
		return
	}
	if req.To == "" || req.Message == "" {
		b.logger.Warn("mqtt send request missing to/message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	ref, err := b.sms.Send(ctx, req.To, req.Message)
	if err != nil {
		b.logger.Error("mqtt-triggered send failed", "error", err, "to", req.To)
		return
	}
	b.logger.Info("mqtt-triggered SMS sent", "to", req.To, "reference", ref)
}

// PublishEvent forwards one device report to the event topic.
func (b *Bridge) PublishEvent(u ril.URC) {
	payload, err := json.Marshal(map[string]any{
		"type": int(u.Type),
		"line": u.Line,
	})
	if err != nil {
		return
	}
	b.cli.Publish(b.cfg.MqttEventTopic, 0, false, payload)
}

// PublishMessage forwards a received text message to the event topic.
func (b *Bridge) PublishMessage(msg sms.Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.cli.Publish(b.cfg.MqttEventTopic, 0, false, payload)
}

// Close disconnects from the broker.
func (b *Bridge) Close() {
	b.cli.Disconnect(250)
}
