package util

import (
	"context"
	"time"
)

// Retry runs fn up to attempts times, sleeping base, 2*base, 4*base ...
// between failures. It retries only while retryable(err) holds; a
// non-retryable error is returned immediately. Context cancellation stops
// the loop between attempts, never mid-call.
func Retry(ctx context.Context, attempts int, base time.Duration, retryable func(error) bool, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	delay := base
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if retryable != nil && !retryable(err) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
