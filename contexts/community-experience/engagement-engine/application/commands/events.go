package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	application "engagement/contexts/community-experience/engagement-engine/application"
	"engagement/contexts/community-experience/engagement-engine/ports"
)

// changePublisher emits best-effort change events. Publishing never fails
// the mutation that produced the change.
type changePublisher struct {
	publisher ports.EventPublisher
	idGen     ports.IDGenerator
	logger    *slog.Logger
}

func (p changePublisher) publish(
	ctx context.Context,
	topic string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data any,
) {
	if p.publisher == nil {
		return
	}
	logger := application.ResolveLogger(p.logger)
	eventID := fmt.Sprintf("%s:%s:%d", topic, partitionKey, occurredAt.UnixNano())
	if p.idGen != nil {
		if id, err := p.idGen.NewID(ctx); err == nil {
			eventID = id
		}
	}
	envelope, err := newEngagementEnvelope(eventID, topic, partitionKeyPath, partitionKey, occurredAt, data)
	if err != nil {
		logger.Warn("engagement change event encode failed",
			"event", "engagement_change_encode_failed",
			"module", application.ModuleName,
			"layer", "application",
			"topic", topic,
			"error", err.Error(),
		)
		return
	}
	if err := p.publisher.Publish(ctx, topic, envelope); err != nil {
		logger.Warn("engagement change event publish failed",
			"event", "engagement_change_publish_failed",
			"module", application.ModuleName,
			"layer", "application",
			"topic", topic,
			"event_id", eventID,
			"error", err.Error(),
		)
	}
}

func newEngagementEnvelope(
	eventID string,
	eventType string,
	partitionKeyPath string,
	partitionKey string,
	occurredAt time.Time,
	data any,
) (ports.EventEnvelope, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return ports.EventEnvelope{}, err
	}
	return ports.EventEnvelope{
		EventID:          eventID,
		EventType:        eventType,
		OccurredAt:       occurredAt.UTC(),
		SourceService:    "engagement-engine",
		TraceID:          eventID,
		SchemaVersion:    1,
		PartitionKeyPath: partitionKeyPath,
		PartitionKey:     partitionKey,
		Data:             payload,
	}, nil
}

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}
