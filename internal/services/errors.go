package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrFormat marks a source whose name does not carry a recording index.
	ErrFormat = errors.New("format error")
	// ErrDecode marks an unreadable, empty, or corrupt audio asset.
	ErrDecode = errors.New("decode error")
	// ErrExtraction marks a failed lossless copy of a segment or clip.
	ErrExtraction = errors.New("extraction failure")
	// ErrTimeout marks a unit that exceeded its time budget.
	ErrTimeout       = errors.New("timeout")
	ErrConfiguration = errors.New("configuration error")
)

// Failure kinds persisted in the run ledger.
const (
	KindFormat     = "format"
	KindDecode     = "decode"
	KindExtraction = "extraction"
	KindTimeout    = "timeout"
	KindInternal   = "internal"
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExtraction
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind maps a unit error to the failure kind stored with its outcome.
// Deadline expiry is reported as a timeout regardless of the marker it
// surfaced through.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrFormat):
		return KindFormat
	case errors.Is(err, ErrDecode):
		return KindDecode
	case errors.Is(err, ErrExtraction):
		return KindExtraction
	default:
		return KindInternal
	}
}

// Retryable reports whether err wraps a possibly transient external call.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return errors.Is(err, ErrExtraction)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
