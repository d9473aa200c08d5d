// Package notify implements the Notifier and EventSink external
// collaborators over MQTT: hazard/error escalation is published to an
// operator-configured alert topic, and work-log events are published so a
// dashboard can subscribe instead of polling.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

// Notifier escalates an operational message at a given severity to an
// external channel. Implementations must be safe for concurrent use.
type Notifier interface {
	Notify(ctx context.Context, level string, message string) error
}

// EventSink announces that something happened -- its payload is a type tag,
// not a full message -- so subscribers know to go fetch fresh state (e.g.
// the work log) rather than carrying the content itself.
type EventSink interface {
	Emit(ctx context.Context, eventType string) error
}

// alertPayload is what is published to the MQTT alert topic.
type alertPayload struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// MQTTClient is the minimal subset of paho's client this package depends on,
// so tests can substitute a fake without a real broker.
type MQTTClient interface {
	Publish(topic string, qos byte, retained bool, payload any) mqtt.Token
}

// MQTTNotifier publishes alerts and events over MQTT.
type MQTTNotifier struct {
	client      MQTTClient
	alertTopic  string
	statusTopic string
}

// NewMQTTNotifier builds a Notifier/EventSink pair backed by an already
// connected paho client.
func NewMQTTNotifier(client MQTTClient, alertTopic, statusTopic string) *MQTTNotifier {
	return &MQTTNotifier{client: client, alertTopic: alertTopic, statusTopic: statusTopic}
}

// NewClient constructs (but does not connect) a paho MQTT client for broker,
// identified by clientID.
func NewClient(broker, clientID string) mqtt.Client {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectTimeout(5 * time.Second)
	return mqtt.NewClient(opts)
}

func (n *MQTTNotifier) Notify(ctx context.Context, level string, message string) error {
	payload, err := json.Marshal(alertPayload{Level: level, Message: message, Timestamp: time.Now()})
	if err != nil {
		return fmt.Errorf("marshaling alert payload: %w", err)
	}

	token := n.client.Publish(n.alertTopic, 1, false, payload)
	return waitToken(ctx, token)
}

func (n *MQTTNotifier) Emit(ctx context.Context, eventType string) error {
	token := n.client.Publish(n.statusTopic+"/event", 0, false, []byte(eventType))
	return waitToken(ctx, token)
}

func waitToken(ctx context.Context, token mqtt.Token) error {
	done := make(chan struct{})
	go func() {
		token.Wait()
		close(done)
	}()
	select {
	case <-done:
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogNotifier is the fallback used whenever MQTT is disabled (dummy mode,
// tests, or an operator who has not configured a broker): it just logs.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, level string, message string) error {
	evt := log.Info()
	if level == "error" {
		evt = log.Error()
	} else if level == "warn" {
		evt = log.Warn()
	}
	evt.Str("channel", "notifier").Msg(message)
	return nil
}

func (LogNotifier) Emit(_ context.Context, eventType string) error {
	log.Debug().Str("event", eventType).Msg("event emitted")
	return nil
}
