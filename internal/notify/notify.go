// Package notify hands notifications to delivery: each one is persisted and then
// published over MQTT for the email, SMS and push transports to pick up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-pm/internal/db"
	"github.com/ukydev/maintenance-pm/internal/models"
)

// Publisher is the subset of mqtt.Client used to fan notifications out.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// ConnectMQTT connects to broker and waits for the session to come up.
func ConnectMQTT(broker, clientID string, timeout time.Duration) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(timeout)
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("mqtt connect to %s timed out", broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect to %s: %w", broker, err)
	}
	return client, nil
}

// Dispatcher persists notifications and publishes them when a publisher is configured.
type Dispatcher struct {
	store       db.NotificationCollection
	publisher   Publisher
	topicPrefix string
	qos         byte
	timeout     time.Duration
	logger      logrus.FieldLogger
}

// NewDispatcher creates a dispatcher. publisher may be nil, in which case
// notifications are only stored.
func NewDispatcher(store db.NotificationCollection, publisher Publisher, topicPrefix string, logger logrus.FieldLogger) *Dispatcher {
	return &Dispatcher{
		store:       store,
		publisher:   publisher,
		topicPrefix: topicPrefix,
		qos:         1,
		timeout:     5 * time.Second,
		logger:      logger,
	}
}

// Topic returns the MQTT topic a notification is published on.
func (d *Dispatcher) Topic(n models.Notification) string {
	return fmt.Sprintf("%s/%s/%s", d.topicPrefix, n.WarehouseID, n.UserID)
}

// Notify stores n and enqueues it for delivery. Publish failures are logged, not returned:
// the stored record is authoritative and transports can catch up from it.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) (*models.Notification, error) {
	if len(n.Channels) == 0 {
		n.Channels = []models.Channel{models.ChannelEmail}
	}
	stored, err := d.store.CreateNotification(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("create notification for %s: %w", n.UserID, err)
	}
	if d.publisher == nil {
		return stored, nil
	}

	log := d.logger.WithFields(logrus.Fields{
		"notification_id": stored.ID,
		"user_id":         stored.UserID,
		"type":            stored.Type,
	})
	payload, err := json.Marshal(stored)
	if err != nil {
		log.WithError(err).Error("Failed to marshal notification")
		return stored, nil
	}
	token := d.publisher.Publish(d.Topic(*stored), d.qos, false, payload)
	if !token.WaitTimeout(d.timeout) {
		log.Warn("Timed out publishing notification")
		return stored, nil
	}
	if err := token.Error(); err != nil {
		log.WithError(err).Warn("Failed to publish notification")
		return stored, nil
	}
	log.Debug("Published notification")
	return stored, nil
}
