package cron

import (
	"context"
	"testing"
	"time"
)

type memoryLocker struct {
	owners map[string]string
	ttls   map[string]time.Duration
}

func (m *memoryLocker) AcquireLock(_ context.Context, name, token string, ttl time.Duration) (bool, error) {
	if _, ok := m.owners[name]; ok {
		return false, nil
	}
	m.owners[name] = token
	m.ttls[name] = ttl
	return true, nil
}

func (m *memoryLocker) ReleaseLock(_ context.Context, name, token string) error {
	if m.owners[name] == token {
		delete(m.owners, name)
	}
	return nil
}

func TestRedisLockExcludesSecondHolder(t *testing.T) {
	locker := &memoryLocker{owners: map[string]string{}, ttls: map[string]time.Duration{}}
	first, err := NewRedisLock(locker, "cron", 0)
	if err != nil {
		t.Fatalf("new lock: %v", err)
	}
	second, _ := NewRedisLock(locker, "cron", time.Minute)
	ctx := context.Background()

	if ok, err := first.Acquire(ctx); err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if locker.ttls["cron"] != defaultLockTTL {
		t.Fatalf("expected default ttl, got %s", locker.ttls["cron"])
	}
	if ok, _ := second.Acquire(ctx); ok {
		t.Fatal("second holder must not acquire")
	}
	if err := second.Release(ctx); err != nil {
		t.Fatalf("release without ownership: %v", err)
	}
	if _, held := locker.owners["cron"]; !held {
		t.Fatal("non-owner release dropped the lock")
	}
	if err := first.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := second.Acquire(ctx); !ok {
		t.Fatal("expected lock free after owner release")
	}
}

func TestNewRedisLockValidates(t *testing.T) {
	if _, err := NewRedisLock(nil, "cron", time.Minute); err == nil {
		t.Fatal("expected nil locker error")
	}
	if _, err := NewRedisLock(&memoryLocker{}, "", time.Minute); err == nil {
		t.Fatal("expected empty name error")
	}
}
