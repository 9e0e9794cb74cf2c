package utils

import (
	"context"
	"strings"
	"time"
)

// Ellipsis marks shortened text.
const Ellipsis = "..."

// WaitFor pauses a retry loop for d. It returns early with the context error
// when ctx is done first; a non-positive d returns immediately.
func WaitFor(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Clip returns at most limit runes of s.
func Clip(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// Truncate shortens s to limit runes, appending an ellipsis when it was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if len([]rune(s)) <= limit {
		return s
	}
	return Clip(s, limit) + Ellipsis
}

// TruncateForLog shortens the provided string to the specified limit, appending an ellipsis when truncated.
func TruncateForLog(s string, limit int) string {
	return Truncate(strings.TrimSpace(s), limit)
}
