package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"drillcut/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExtraction, "split", "copy", "failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExtraction) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"split", "copy", "failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapWithoutDetail(t *testing.T) {
	err := services.Wrap(services.ErrDecode, "", "", "", nil)
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestKindMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"format", services.Wrap(services.ErrFormat, "split", "parse index", "abc.mp3", nil), services.KindFormat},
		{"decode", services.Wrap(services.ErrDecode, "trim", "decode", "", errors.New("eof")), services.KindDecode},
		{"extraction", services.Wrap(services.ErrExtraction, "split", "copy", "", nil), services.KindExtraction},
		{"timeout marker", services.Wrap(services.ErrTimeout, "trim", "", "", nil), services.KindTimeout},
		{"deadline inside decode", services.Wrap(services.ErrDecode, "split", "decode", "", context.DeadlineExceeded), services.KindTimeout},
		{"plain", errors.New("disk full"), services.KindInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.Kind(tc.err); got != tc.want {
				t.Fatalf("Kind(%v) = %q, want %q", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrExtraction, "split", "copy", "", errors.New("exit status 1"))) {
		t.Fatal("expected extraction failure to be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrDecode, "split", "decode", "", nil)) {
		t.Fatal("decode failures are not retryable")
	}
	wrappedDeadline := fmt.Errorf("%w: %w", services.ErrExtraction, context.DeadlineExceeded)
	if services.Retryable(wrappedDeadline) {
		t.Fatal("expired deadlines must not be retried")
	}
	if services.Retryable(nil) {
		t.Fatal("nil error is not retryable")
	}
}
