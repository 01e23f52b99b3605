package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

// ErrNotConnected is returned while the broker connection is down.
var ErrNotConnected = errors.New("mqtt client not connected")

// MessagePublisher is the part of the MQTT client the publisher needs.
type MessagePublisher interface {
	Publish(topic string, qos byte, retained bool, payload []byte) error
	QoS() byte
	IsConnected() bool
}

// MQTTPublisher sends each harvested Thing as a retained message.
//
// Untranslated records go to {prefix}/{iot_id}, translated ones to
// {prefix}/{lang}/{iot_id}, so a subscriber to the bare prefix only sees
// source-language data.
type MQTTPublisher struct {
	client MessagePublisher
	prefix string
	logger *zap.Logger
}

// NewMQTTPublisher creates a publisher below prefix.
func NewMQTTPublisher(client MessagePublisher, prefix string, logger *zap.Logger) *MQTTPublisher {
	return &MQTTPublisher{
		client: client,
		prefix: prefix,
		logger: logger,
	}
}

// Name identifies the sink in logs.
func (p *MQTTPublisher) Name() string {
	return "mqtt:" + p.prefix
}

// Topic returns the topic rec is published to.
func (p *MQTTPublisher) Topic(rec *models.HarvestRecord) string {
	id := strconv.FormatInt(rec.Thing.ID, 10)
	if rec.Translated {
		return p.prefix + "/" + rec.Lang + "/" + id
	}
	return p.prefix + "/" + id
}

// Publish sends the record envelope as JSON.
func (p *MQTTPublisher) Publish(ctx context.Context, rec *models.HarvestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !p.client.IsConnected() {
		return ErrNotConnected
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode thing %d: %w", rec.Thing.ID, err)
	}

	topic := p.Topic(rec)
	if err := p.client.Publish(topic, p.client.QoS(), true, payload); err != nil {
		return err
	}

	p.logger.Debug("Published thing to MQTT",
		zap.String("topic", topic),
		zap.Int("bytes", len(payload)),
	)
	return nil
}
