package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/nikogura/resume-analyzer/pkg/scorer"
)

// Event types carried in the event_type field and message attribute.
const (
	EventStarted   = "processing_started"
	EventCompleted = "processing_completed"
	EventError     = "processing_error"
	EventDuplicate = "duplicate_detected"
)

// Event statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusError      = "error"
	StatusDuplicate  = "duplicate"
)

// Event is one message sent to the result sink.
type Event struct {
	EventType    string                 `json:"event_type"`
	FileKey      string                 `json:"file_key"`
	Bucket       string                 `json:"bucket"`
	Timestamp    time.Time              `json:"timestamp"`
	Status       string                 `json:"status"`
	ProcessingID string                 `json:"processing_id"`
	FileSize     int64                  `json:"file_size,omitempty"`
	FileType     string                 `json:"file_type,omitempty"`
	Results      *scorer.AnalysisResult `json:"results,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	ErrorType    string                 `json:"error_type,omitempty"`
	ErrorContext map[string]string      `json:"error_context,omitempty"`
	Fingerprint  string                 `json:"fingerprint,omitempty"`
	Processing   map[string]interface{} `json:"processing_metadata,omitempty"`
}

// Subject identifies the file an event is about.
type Subject struct {
	Bucket       string
	Key          string
	Size         int64
	FileType     string
	ProcessingID string
}

// Transport delivers a single event.
type Transport interface {
	Send(ctx context.Context, event Event) error
}

// Publisher reports the lifecycle of one file to downstream consumers.
type Publisher interface {
	Started(ctx context.Context, subject Subject) error
	Completed(ctx context.Context, subject Subject, result scorer.AnalysisResult, processing map[string]interface{}) error
	Error(ctx context.Context, subject Subject, failure procerr.Descriptor) error
	Duplicate(ctx context.Context, subject Subject, fingerprint string) error
}

// Notifier builds lifecycle events and hands them to a Transport.
type Notifier struct {
	transport Transport
	logger    *slog.Logger
	now       func() time.Time
}

// NewNotifier creates a Notifier. Wrap transport in Retrying for retries.
func NewNotifier(transport Transport, logger *slog.Logger) (n *Notifier) {
	if logger == nil {
		logger = slog.Default()
	}
	n = &Notifier{
		transport: transport,
		logger:    logger,
		now:       time.Now,
	}
	return n
}

func (n *Notifier) event(eventType, status string, subject Subject) (e Event) {
	e = Event{
		EventType:    eventType,
		FileKey:      subject.Key,
		Bucket:       subject.Bucket,
		Timestamp:    n.now().UTC(),
		Status:       status,
		ProcessingID: subject.ProcessingID,
	}
	return e
}

// Started announces that processing began.
func (n *Notifier) Started(ctx context.Context, subject Subject) (err error) {
	e := n.event(EventStarted, StatusProcessing, subject)
	e.FileSize = subject.Size
	e.FileType = subject.FileType

	err = n.transport.Send(ctx, e)
	if err != nil {
		n.logger.Error("failed to publish processing started", "file_key", subject.Key, "error", err.Error())
	}
	return err
}

// Completed publishes the analysis. A failure here fails the record.
func (n *Notifier) Completed(ctx context.Context, subject Subject, result scorer.AnalysisResult, processing map[string]interface{}) (err error) {
	e := n.event(EventCompleted, StatusCompleted, subject)
	e.Results = &result
	e.Processing = processing

	err = n.transport.Send(ctx, e)
	if err != nil {
		n.logger.Error("failed to publish processing completed", "file_key", subject.Key, "error", err.Error())
		return err
	}

	n.logger.Info("published completion results", "file_key", subject.Key)
	return err
}

// Error publishes a processing failure.
func (n *Notifier) Error(ctx context.Context, subject Subject, failure procerr.Descriptor) (err error) {
	e := n.event(EventError, StatusError, subject)
	e.ErrorMessage = failure.Message
	e.ErrorType = string(failure.Kind)
	if e.ErrorType == "" {
		e.ErrorType = "unknown"
	}
	e.ErrorContext = failure.Context

	err = n.transport.Send(ctx, e)
	if err != nil {
		n.logger.Error("failed to publish processing error", "file_key", subject.Key, "error", err.Error())
		return err
	}

	n.logger.Info("published error notification", "file_key", subject.Key)
	return err
}

// Duplicate reports a file whose content was already processed.
func (n *Notifier) Duplicate(ctx context.Context, subject Subject, fingerprint string) (err error) {
	e := n.event(EventDuplicate, StatusDuplicate, subject)
	e.Fingerprint = fingerprint

	err = n.transport.Send(ctx, e)
	if err != nil {
		n.logger.Error("failed to publish duplicate detection", "file_key", subject.Key, "error", err.Error())
		return err
	}

	n.logger.Info("published duplicate notification", "file_key", subject.Key)
	return err
}
