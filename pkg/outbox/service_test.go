package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/shopfront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/shopfront-backend/pkg/db/models"
	"github.com/angelmondragon/shopfront-backend/pkg/enums"
)

func TestEmitStoresEnvelopeInTransaction(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	svc := NewService(repo, nil)
	orderID := uuid.New()

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		return svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Data:          OrderCreatedEvent{OrderID: orderID, TotalPrice: 50000, ItemCount: 2},
		})
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	var rows []models.OutboxEvent
	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var fetchErr error
		rows, fetchErr = repo.FetchUnpublishedForPublish(tx, 10, 3)
		return fetchErr
	})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 pending event, got %d", len(rows))
	}
	env, err := DecodeEnvelope(rows[0].Payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Version != currentVersion || env.EventID == "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestEmitRollsBackWithCaller(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   uuid.New(),
		}); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatalf("expected abort error")
	}

	var count int64
	if err := client.DB().Model(&models.OutboxEvent{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected rollback to discard event, got %d", count)
	}
}

func TestEmitRejectsUnknownTypes(t *testing.T) {
	client := dbtest.Open(t)
	svc := NewService(NewRepository(client.DB()), nil)
	err := svc.Emit(context.Background(), client.DB(), DomainEvent{EventType: "nope", AggregateType: enums.AggregateOrder})
	if err == nil {
		t.Fatalf("expected unknown event type to fail")
	}
	if err := svc.Emit(context.Background(), nil, DomainEvent{}); err == nil {
		t.Fatalf("expected missing transaction to fail")
	}
}

func TestMarkFailedAndTerminalExcludeRows(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	event := models.OutboxEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePayment,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
	}
	if err := repo.Insert(client.DB(), event); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var rows []models.OutboxEvent
	fetch := func() {
		t.Helper()
		err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
			var fetchErr error
			rows, fetchErr = repo.FetchUnpublishedForPublish(tx, 10, 2)
			return fetchErr
		})
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
	}

	fetch()
	if len(rows) != 1 {
		t.Fatalf("expected pending row")
	}
	id := rows[0].ID
	if err := repo.MarkFailedTx(client.DB(), id, errors.New("timeout")); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	fetch()
	if len(rows) != 1 || rows[0].AttemptCount != 1 {
		t.Fatalf("expected one retryable row with attempt 1, got %+v", rows)
	}
	if err := repo.MarkTerminalTx(client.DB(), id, errors.New("gave up"), 2); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}
	fetch()
	if len(rows) != 0 {
		t.Fatalf("terminal rows must not be fetched again")
	}
}
