package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
)

// Exponential backoff: start at 200ms, double each retry, cap at 5s.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Fetch reads the whole source, retrying up to attempts times with
// exponential backoff. Only the read is retried.
func Fetch(ctx context.Context, src Source, attempts int, logger *slog.Logger) ([]byte, error) {
	if attempts < 1 {
		attempts = 1
	}

	backoff := initialBackoff
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		data, err := readAll(ctx, src)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}

		logger.Warn("source read failed",
			"source", src.String(),
			"attempt", attempt,
			"attempts", attempts,
			"error", err,
		)
		if attempt == attempts || !sharedretry.SleepWithContext(ctx, backoff) {
			break
		}
		backoff = sharedretry.NextBackoff(backoff, maxBackoff)
	}
	return nil, fmt.Errorf("read source %s: %w", src.String(), lastErr)
}

func readAll(ctx context.Context, src Source) ([]byte, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return buf.Bytes(), nil
}
