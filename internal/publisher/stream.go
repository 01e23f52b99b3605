package publisher

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	rediscommon "github.com/semantic-meta-enrichment/frost-harvester/common/redis"
	"github.com/semantic-meta-enrichment/frost-harvester/internal/models"
)

// StreamPublisher appends every harvested Thing to a Redis stream.
// The entry holds the wire JSON under "data" plus run metadata fields.
type StreamPublisher struct {
	client rediscommon.StreamAdder
	stream string
	maxLen int64
	logger *zap.Logger
}

// NewStreamPublisher creates a publisher for stream. maxLen <= 0 leaves the
// stream uncapped.
func NewStreamPublisher(client rediscommon.StreamAdder, stream string, maxLen int64, logger *zap.Logger) *StreamPublisher {
	return &StreamPublisher{
		client: client,
		stream: stream,
		maxLen: maxLen,
		logger: logger,
	}
}

// Name identifies the sink in logs.
func (p *StreamPublisher) Name() string {
	return "redis-stream:" + p.stream
}

// Publish writes rec to the stream.
func (p *StreamPublisher) Publish(ctx context.Context, rec *models.HarvestRecord) error {
	extra := map[string]interface{}{
		"run_id":     rec.RunID,
		"source":     rec.Source,
		"lang":       rec.Lang,
		"translated": rec.Translated,
		"iot_id":     rec.Thing.ID,
	}
	id, err := rediscommon.PublishJSONToStream(ctx, p.client, p.stream, p.maxLen, rec.Thing, extra)
	if err != nil {
		return fmt.Errorf("failed to publish thing %d to stream %s: %w", rec.Thing.ID, p.stream, err)
	}

	p.logger.Debug("Published thing to stream",
		zap.String("stream", p.stream),
		zap.String("entry_id", id),
		zap.Int64("iot_id", rec.Thing.ID),
		zap.String("lang", rec.Lang),
	)
	return nil
}
