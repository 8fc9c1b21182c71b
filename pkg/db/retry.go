package db

import (
	"context"
	"errors"
)

// ErrStaleVersion is returned by versioned updates that matched no row
// because another writer bumped the version first.
var ErrStaleVersion = errors.New("stale row version")

// RetryStale runs fn up to attempts times while it fails with
// ErrStaleVersion. Any other error, or success, returns immediately. The last
// stale error is returned once attempts are exhausted.
func RetryStale(ctx context.Context, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = fn()
		if !errors.Is(err, ErrStaleVersion) {
			return err
		}
	}
	return err
}
