package services

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-todo/internal/logger"
	"github.com/sbilibin2017/gw-todo/internal/models"
	"github.com/segmentio/kafka-go"
)

//go:generate mockgen -source=events.go -destination=mock_events.go -package=services

// KafkaWriter defines a Kafka writer abstraction.
type KafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error // Writes messages to Kafka
}

// newEvent builds an event stamped with a fresh id and the current time.
func newEvent(eventType string, userID, todoID int64, at time.Time) models.Event {
	return models.Event{
		EventID:   uuid.NewString(),
		Type:      eventType,
		UserID:    userID,
		TodoID:    todoID,
		Timestamp: at.Unix(),
	}
}

// publishEvent hands a domain event to the Kafka writer keyed by user id so
// that one user's events stay ordered. Failures are logged and never reach the
// caller.
func publishEvent(ctx context.Context, w KafkaWriter, event models.Event) {
	if w == nil {
		logger.FromContext(ctx).Debugw("Kafka writer not configured, skipping publishing", "event_id", event.EventID, "type", event.Type)
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.FromContext(ctx).Errorw("Failed to marshal event for Kafka", "event_id", event.EventID, "error", err)
		return
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.UserID, 10)),
		Value: data,
	}

	if err := w.WriteMessages(ctx, msg); err != nil {
		logger.FromContext(ctx).Errorw("Failed to publish event to Kafka", "event_id", event.EventID, "type", event.Type, "error", err)
	} else {
		logger.FromContext(ctx).Infow("Event queued for Kafka", "event_id", event.EventID, "type", event.Type)
	}
}
