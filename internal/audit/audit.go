package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
)

// Event describes one auditable action taken against an entity.
type Event struct {
	ActorID    *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	Payload    any
}

// Recorder persists audit events. Recording happens after the business
// transaction commits and must never fail the caller.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

type recorder struct {
	conn *gorm.DB
	logg *logger.Logger
}

// NewRecorder builds a Recorder writing system_logs rows on the provided connection.
func NewRecorder(conn *gorm.DB, logg *logger.Logger) (Recorder, error) {
	if conn == nil {
		return nil, fmt.Errorf("db connection required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &recorder{conn: conn, logg: logg}, nil
}

func (r *recorder) Record(ctx context.Context, event Event) {
	var payload json.RawMessage
	if event.Payload != nil {
		raw, err := json.Marshal(event.Payload)
		if err != nil {
			r.logg.Error(ctx, "audit payload marshal failed", err)
		} else {
			payload = raw
		}
	}

	row := models.SystemLog{
		ID:         uuid.New(),
		UserID:     event.ActorID,
		Action:     event.Action,
		EntityType: event.EntityType,
		EntityID:   event.EntityID,
		Payload:    payload,
	}
	if err := r.conn.WithContext(ctx).Create(&row).Error; err != nil {
		r.logg.Error(ctx, "audit write failed", err)
	}
}

type noopRecorder struct{}

// NewNoop returns a Recorder that drops every event.
func NewNoop() Recorder {
	return noopRecorder{}
}

func (noopRecorder) Record(context.Context, Event) {}
