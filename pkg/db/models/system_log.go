package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SystemLog is the generic audit trail written after commit. Write
// failures are logged and swallowed, never surfaced to callers.
type SystemLog struct {
	ID         uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	UserID     *uuid.UUID      `gorm:"column:user_id;type:uuid"`
	Action     string          `gorm:"column:action;not null"`
	EntityType string          `gorm:"column:entity_type;not null"`
	EntityID   *uuid.UUID      `gorm:"column:entity_id;type:uuid"`
	Payload    json.RawMessage `gorm:"column:payload;type:jsonb"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
}
