package stage

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"drillcut/internal/services"
)

func TestRetryStopsOnSuccess(t *testing.T) {
	calls := 0
	retries, err := Retry(context.Background(), 3, 0, func() error {
		calls++
		if calls < 2 {
			return services.Wrap(services.ErrExtraction, Split, "extract", "1_word", errors.New("exit 1"))
		}
		return nil
	})
	if err != nil || retries != 1 || calls != 2 {
		t.Fatalf("unexpected result: retries=%d calls=%d err=%v", retries, calls, err)
	}
}

func TestRetryGivesUpOnPermanentErrors(t *testing.T) {
	calls := 0
	_, err := Retry(context.Background(), 3, 0, func() error {
		calls++
		return fmt.Errorf("bad input: %w", services.ErrDecode)
	})
	if calls != 1 || !errors.Is(err, services.ErrDecode) {
		t.Fatalf("expected single attempt, got calls=%d err=%v", calls, err)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	calls := 0
	retries, err := Retry(context.Background(), 2, 0, func() error {
		calls++
		return services.Wrap(services.ErrExtraction, Trim, "truncate", "1_word", nil)
	})
	if calls != 2 || retries != 1 || err == nil {
		t.Fatalf("unexpected result: retries=%d calls=%d err=%v", retries, calls, err)
	}
}

func TestRetryHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Retry(ctx, 5, 0, func() error {
		calls++
		cancel()
		return services.Wrap(services.ErrExtraction, Split, "extract", "x", nil)
	})
	if calls != 1 || err == nil {
		t.Fatalf("expected to stop after cancellation, calls=%d err=%v", calls, err)
	}
}
