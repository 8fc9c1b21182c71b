package db

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestRetryStale(t *testing.T) {
	calls := 0
	err := RetryStale(context.Background(), 3, func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("save order: %w", ErrStaleVersion)
		}
		return nil
	})
	if err != nil || calls != 3 {
		t.Fatalf("expected success on third attempt, calls=%d err=%v", calls, err)
	}

	calls = 0
	err = RetryStale(context.Background(), 3, func() error {
		calls++
		return ErrStaleVersion
	})
	if !errors.Is(err, ErrStaleVersion) || calls != 3 {
		t.Fatalf("expected stale error after 3 calls, calls=%d err=%v", calls, err)
	}

	calls = 0
	boom := errors.New("boom")
	if err := RetryStale(context.Background(), 3, func() error { calls++; return boom }); err != boom || calls != 1 {
		t.Fatalf("expected non-stale error to stop immediately, calls=%d err=%v", calls, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := RetryStale(ctx, 3, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
}
