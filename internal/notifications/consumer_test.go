package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/harvestlink-backend/pkg/db/dbtest"
	"github.com/angelmondragon/harvestlink-backend/pkg/db/models"
	"github.com/angelmondragon/harvestlink-backend/pkg/enums"
	"github.com/angelmondragon/harvestlink-backend/pkg/logger"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/harvestlink-backend/pkg/outbox/payloads"
)

type memoryStore struct {
	keys map[string]bool
}

func (m *memoryStore) Get(context.Context, string) (string, error) { return "", nil }

func (m *memoryStore) SetNX(_ context.Context, key string, _ any, _ time.Duration) (bool, error) {
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "hl:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.keys, k)
	}
	return nil
}

type failingWriter struct{ calls int }

func (f *failingWriter) Create(context.Context, *models.Notification) (bool, error) {
	f.calls++
	return false, errors.New("db down")
}

type noopReceiver struct{}

func (noopReceiver) Receive(context.Context, func(context.Context, *pubsub.Message)) error {
	return nil
}

func newTestConsumer(t *testing.T, writer notificationWriter, store *memoryStore) *Consumer {
	t.Helper()
	guard, err := idempotency.NewGuard(store, time.Hour)
	require.NoError(t, err)
	c, err := NewConsumer(writer, noopReceiver{}, guard, logger.Nop())
	require.NoError(t, err)
	return c
}

func notificationMessage(t *testing.T, eventID uuid.UUID, payload payloads.NotificationRequestedEvent) *pubsub.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	env, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	require.NoError(t, err)
	return &pubsub.Message{
		ID:         "msg-" + eventID.String(),
		Data:       env,
		Attributes: map[string]string{"event_type": string(enums.EventNotificationRequested)},
	}
}

func TestConsumerStoresNotificationOnce(t *testing.T) {
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	store := &memoryStore{keys: map[string]bool{}}
	c := newTestConsumer(t, repo, store)

	userID := uuid.New()
	eventID := uuid.New()
	msg := notificationMessage(t, eventID, payloads.NotificationRequestedEvent{
		UserID:  userID,
		Role:    enums.UserRoleSeller,
		Type:    enums.NotificationTypePaymentReceived,
		Title:   "Payment received",
		Message: "Payment of 20.00 received",
		Data:    map[string]any{"amount": "20.00"},
	})

	require.True(t, c.process(context.Background(), msg).ack)
	require.True(t, c.process(context.Background(), msg).ack)

	var rows []models.Notification
	require.NoError(t, conn.Where("user_id = ?", userID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, enums.NotificationTypePaymentReceived, rows[0].Type)
	require.Equal(t, "20.00", rows[0].Data["amount"])
	require.NotNil(t, rows[0].EventID)
	require.Equal(t, eventID, *rows[0].EventID)
}

func TestConsumerReleasesClaimOnStoreFailure(t *testing.T) {
	store := &memoryStore{keys: map[string]bool{}}
	writer := &failingWriter{}
	c := newTestConsumer(t, writer, store)

	msg := notificationMessage(t, uuid.New(), payloads.NotificationRequestedEvent{
		UserID: uuid.New(),
		Role:   enums.UserRoleBuyer,
		Type:   enums.NotificationTypePaymentFailed,
		Title:  "Payment failed",
	})
	require.True(t, c.process(context.Background(), msg).nack)
	require.Empty(t, store.keys, "claim should be released for redelivery")
	require.True(t, c.process(context.Background(), msg).nack)
	require.Equal(t, 2, writer.calls)
}

func TestConsumerAcksUnrelatedAndMalformed(t *testing.T) {
	store := &memoryStore{keys: map[string]bool{}}
	writer := &failingWriter{}
	c := newTestConsumer(t, writer, store)

	other := &pubsub.Message{ID: "1", Attributes: map[string]string{"event_type": string(enums.EventOrderPaid)}}
	require.True(t, c.process(context.Background(), other).ack)

	garbage := &pubsub.Message{ID: "2", Data: []byte("{"), Attributes: map[string]string{"event_type": string(enums.EventNotificationRequested)}}
	require.True(t, c.process(context.Background(), garbage).ack)

	noRecipient := notificationMessage(t, uuid.New(), payloads.NotificationRequestedEvent{Type: enums.NotificationTypeNewReview, Role: enums.UserRoleSeller})
	require.True(t, c.process(context.Background(), noRecipient).ack)
	require.Zero(t, writer.calls)
}
