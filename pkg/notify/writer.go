package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/pkg/errors"
)

// WriterPublisher writes each event as one JSON line.
type WriterPublisher struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewWriterPublisher creates a publisher writing to w.
func NewWriterPublisher(w io.Writer) (p *WriterPublisher) {
	p = &WriterPublisher{
		enc: json.NewEncoder(w),
	}
	return p
}

// Send writes event.
func (p *WriterPublisher) Send(_ context.Context, event Event) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.enc.Encode(event)
	if err != nil {
		err = errors.Wrap(err, "failed to write event")
		return err
	}
	return err
}

// LogPublisher logs events. It is used when no topic is configured.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher logging to logger.
func NewLogPublisher(logger *slog.Logger) (p *LogPublisher) {
	if logger == nil {
		logger = slog.Default()
	}
	p = &LogPublisher{logger: logger}
	return p
}

// Send logs a summary of event.
func (p *LogPublisher) Send(_ context.Context, event Event) (err error) {
	attrs := []any{
		"event_type", event.EventType,
		"file_key", event.FileKey,
		"bucket", event.Bucket,
		"status", event.Status,
		"processing_id", event.ProcessingID,
	}
	if event.Results != nil {
		attrs = append(attrs,
			"overall_score", event.Results.OverallScore,
			"analysis_source", event.Results.Metadata.Source,
		)
	}
	if event.ErrorType != "" {
		attrs = append(attrs, "error_type", event.ErrorType, "error_message", event.ErrorMessage)
	}

	p.logger.Info("result event", attrs...)
	return err
}
