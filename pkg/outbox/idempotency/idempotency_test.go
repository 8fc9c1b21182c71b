package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeStore struct {
	claimed     map[string]bool
	setNXError  error
	lastKey     string
	lastTTL     time.Duration
	lastDeleted string
}

func newFakeStore() *fakeStore {
	return &fakeStore{claimed: map[string]bool{}}
}

func (f *fakeStore) Get(context.Context, string) (string, error) {
	return "", nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, _ any, ttl time.Duration) (bool, error) {
	f.lastKey = key
	f.lastTTL = ttl
	if f.setNXError != nil {
		return false, f.setNXError
	}
	if f.claimed[key] {
		return false, nil
	}
	f.claimed[key] = true
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "hl:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.claimed, key)
		f.lastDeleted = key
	}
	return nil
}

func TestSeen_ClaimsOnce(t *testing.T) {
	store := newFakeStore()
	guard, err := NewGuard(store, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	eventID := uuid.New()
	seen, err := guard.Seen(context.Background(), ConsumerNotificationWorker, eventID)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if seen {
		t.Fatal("expected first delivery to be unseen")
	}
	expectedKey := "hl:idempotency:evt:processed:notification-worker:" + eventID.String()
	if store.lastKey != expectedKey {
		t.Fatalf("unexpected key: %q", store.lastKey)
	}
	if store.lastTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl: %v", store.lastTTL)
	}

	seen, err = guard.Seen(context.Background(), ConsumerNotificationWorker, eventID)
	if err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if !seen {
		t.Fatal("expected redelivery to be reported as seen")
	}
}

func TestSeen_StoreError(t *testing.T) {
	store := newFakeStore()
	store.setNXError = errors.New("boom")
	guard, _ := NewGuard(store, time.Hour)

	if _, err := guard.Seen(context.Background(), ConsumerNotificationWorker, uuid.New()); err == nil {
		t.Fatal("expected error")
	}
}

func TestSeen_RejectsEmptyInputs(t *testing.T) {
	guard, _ := NewGuard(newFakeStore(), time.Hour)
	if _, err := guard.Seen(context.Background(), "", uuid.New()); err == nil {
		t.Fatal("expected missing consumer error")
	}
	if _, err := guard.Seen(context.Background(), ConsumerNotificationWorker, uuid.Nil); err == nil {
		t.Fatal("expected missing event id error")
	}
}

func TestRelease_AllowsRetry(t *testing.T) {
	store := newFakeStore()
	guard, _ := NewGuard(store, time.Hour)

	eventID := uuid.New()
	if _, err := guard.Seen(context.Background(), ConsumerNotificationWorker, eventID); err != nil {
		t.Fatalf("Seen: %v", err)
	}
	if err := guard.Release(context.Background(), ConsumerNotificationWorker, eventID); err != nil {
		t.Fatalf("Release: %v", err)
	}
	expected := "hl:idempotency:evt:processed:notification-worker:" + eventID.String()
	if store.lastDeleted != expected {
		t.Fatalf("unexpected deleted key %q", store.lastDeleted)
	}
	seen, _ := guard.Seen(context.Background(), ConsumerNotificationWorker, eventID)
	if seen {
		t.Fatal("expected released event to be claimable again")
	}
}

func TestNewGuard_Validation(t *testing.T) {
	if _, err := NewGuard(nil, time.Hour); err == nil {
		t.Fatal("expected nil store error")
	}
	if _, err := NewGuard(newFakeStore(), -time.Second); err == nil {
		t.Fatal("expected negative ttl error")
	}
}
