package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nikogura/resume-analyzer/pkg/procerr"
)

// DefaultPublishAttempts is how many times an event is sent before giving up.
const DefaultPublishAttempts = 3

// Retrying sends through another Transport, retrying failures with a linear backoff.
type Retrying struct {
	next     Transport
	attempts int
	delay    time.Duration
	logger   *slog.Logger
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewRetrying wraps next. The wait before retry n is n*delay.
func NewRetrying(next Transport, attempts int, delay time.Duration, logger *slog.Logger) (r *Retrying) {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	r = &Retrying{
		next:     next,
		attempts: attempts,
		delay:    delay,
		logger:   logger,
		sleep:    sleepContext,
	}
	return r
}

// Send delivers event, returning a sns_publish_error once every attempt has failed.
func (r *Retrying) Send(ctx context.Context, event Event) (err error) {
	var lastErr error
	for attempt := 1; attempt <= r.attempts; attempt++ {
		lastErr = r.next.Send(ctx, event)
		if lastErr == nil {
			return err
		}

		r.logger.Warn("publish attempt failed",
			"event_type", event.EventType,
			"file_key", event.FileKey,
			"attempt", attempt,
			"error", lastErr.Error(),
		)

		if attempt == r.attempts {
			break
		}
		if sleepErr := r.sleep(ctx, r.delay*time.Duration(attempt)); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	r.logger.Error("publish failed after retries", "event_type", event.EventType, "file_key", event.FileKey, "attempts", r.attempts)

	err = procerr.Wrap(procerr.KindPublish, lastErr,
		fmt.Sprintf("Failed to publish %s for %s", event.EventType, event.FileKey),
		map[string]string{
			"event_type": event.EventType,
			"file_key":   event.FileKey,
			"attempts":   strconv.Itoa(r.attempts),
		})
	return err
}

func sleepContext(ctx context.Context, d time.Duration) (err error) {
	if d <= 0 {
		err = ctx.Err()
		return err
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
	}
	return err
}
