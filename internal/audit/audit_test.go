package audit

import (
	"bytes"
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stockflowhq/stockflow-backend/pkg/db/models"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:audit_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&models.SystemLog{}); err != nil {
		t.Fatalf("migrate system logs: %v", err)
	}
	return conn
}

func TestRecordWritesSystemLog(t *testing.T) {
	conn := newTestDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})

	rec, err := NewRecorder(conn, logg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	actor := uuid.New()
	entity := uuid.New()
	rec.Record(context.Background(), Event{
		ActorID:    &actor,
		Action:     "order.created",
		EntityType: "order",
		EntityID:   &entity,
		Payload:    map[string]any{"total": "20.00"},
	})

	var rows []models.SystemLog
	if err := conn.Find(&rows).Error; err != nil {
		t.Fatalf("load rows: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(rows))
	}
	if rows[0].Action != "order.created" || rows[0].EntityType != "order" {
		t.Fatalf("unexpected row %+v", rows[0])
	}
	if rows[0].UserID == nil || *rows[0].UserID != actor {
		t.Fatalf("actor not preserved")
	}
	if len(rows[0].Payload) == 0 {
		t.Fatalf("payload not stored")
	}
}

func TestRecordSwallowsWriteFailure(t *testing.T) {
	conn := newTestDB(t)
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: buf})

	rec, err := NewRecorder(conn, logg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}

	if err := conn.Migrator().DropTable(&models.SystemLog{}); err != nil {
		t.Fatalf("drop table: %v", err)
	}

	rec.Record(context.Background(), Event{Action: "noop", EntityType: "order"})

	if !bytes.Contains(buf.Bytes(), []byte("audit write failed")) {
		t.Fatalf("expected failure to be logged, got %s", buf.String())
	}
}
