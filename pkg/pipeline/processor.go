// Package pipeline runs uploaded resumes through validation, extraction, analysis and publishing.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/nikogura/resume-analyzer/pkg/dedup"
	"github.com/nikogura/resume-analyzer/pkg/extractor"
	"github.com/nikogura/resume-analyzer/pkg/notify"
	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/nikogura/resume-analyzer/pkg/scorer"
	"github.com/nikogura/resume-analyzer/pkg/storage"
	"github.com/nikogura/resume-analyzer/pkg/validation"
)

// Record statuses.
const (
	StatusDone    = "done"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Skip reasons.
const (
	ReasonAlreadyProcessed = "already_processed"
	ReasonNotObjectCreated = "not_object_created"
)

// Analyzer scores extracted text. *analysis.Chain satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, text, fileKey string) (scorer.AnalysisResult, error)
}

// Deps are the collaborators a Processor calls.
type Deps struct {
	Fetcher   storage.Fetcher
	Analyzer  Analyzer
	Store     dedup.Store
	Publisher notify.Publisher
}

// RecordResult is the outcome for one record.
type RecordResult struct {
	FileKey          string                 `json:"file_key"`
	Bucket           string                 `json:"bucket"`
	Status           string                 `json:"status"`
	Reason           string                 `json:"reason,omitempty"`
	ProcessingID     string                 `json:"processing_id"`
	Size             int64                  `json:"size"`
	FileType         string                 `json:"file_type,omitempty"`
	TextLength       int                    `json:"text_length,omitempty"`
	ExtractionMethod string                 `json:"extraction_method,omitempty"`
	OverallScore     *int                   `json:"overall_score,omitempty"`
	AnalysisSource   string                 `json:"analysis_source,omitempty"`
	Error            *procerr.Descriptor    `json:"error,omitempty"`
	Analysis         *scorer.AnalysisResult `json:"analysis,omitempty"`
}

// BatchResponse summarizes a batch. StatusCode is 200 when nothing failed, 207 when some
// records failed and 500 when all did.
type BatchResponse struct {
	StatusCode   int            `json:"statusCode"`
	Message      string         `json:"message"`
	TotalRecords int            `json:"total_records"`
	Processed    int            `json:"processed"`
	Failed       int            `json:"failed"`
	Results      []RecordResult `json:"results"`
}

// Processor handles records one at a time.
type Processor struct {
	cfg       config.Config
	validator *validation.Validator
	extractor *extractor.Extractor
	deps      Deps
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessor creates a Processor. A nil Store never reports duplicates.
func NewProcessor(cfg config.Config, deps Deps, logger *slog.Logger) (p *Processor) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Store == nil {
		deps.Store = dedup.None{}
	}
	if deps.Publisher == nil {
		deps.Publisher = notify.NewNotifier(notify.NewLogPublisher(logger), logger)
	}
	p = &Processor{
		cfg:       cfg,
		validator: validation.New(cfg.Processing),
		extractor: extractor.New(cfg.Processing.MaxFileSize, logger),
		deps:      deps,
		logger:    logger,
		now:       time.Now,
	}
	return p
}

// ProcessS3Event converts and processes every record of an S3 notification.
func (p *Processor) ProcessS3Event(ctx context.Context, event events.S3Event) (resp BatchResponse) {
	p.logger.Info("processing S3 event", "records", len(event.Records))

	results := make([]RecordResult, 0, len(event.Records))
	for _, raw := range event.Records {
		rec, err := RecordFromS3(raw)
		if err != nil {
			p.logger.Error("invalid S3 record", "event_name", raw.EventName, "error", err.Error())
			d := procerr.Describe(procerr.Wrap(procerr.KindProcessing, err, "Invalid S3 record", map[string]string{
				"event_name": raw.EventName,
			}))
			results = append(results, RecordResult{
				FileKey: raw.S3.Object.Key,
				Bucket:  raw.S3.Bucket.Name,
				Status:  StatusFailed,
				Error:   &d,
			})
			continue
		}
		results = append(results, p.ProcessRecord(ctx, rec))
	}

	resp = Summarize(results)
	p.logger.Info("S3 event processing completed", "status_code", resp.StatusCode, "processed", resp.Processed, "failed", resp.Failed)
	return resp
}

// ProcessBatch processes recs in order. One failure never stops the rest.
func (p *Processor) ProcessBatch(ctx context.Context, recs []Record) (resp BatchResponse) {
	results := make([]RecordResult, 0, len(recs))
	for _, rec := range recs {
		results = append(results, p.ProcessRecord(ctx, rec))
	}
	resp = Summarize(results)
	return resp
}

// Summarize builds the batch response from per-record results.
func Summarize(results []RecordResult) (resp BatchResponse) {
	resp.Results = results
	resp.TotalRecords = len(results)
	for _, r := range results {
		if r.Status == StatusFailed {
			resp.Failed++
		} else {
			resp.Processed++
		}
	}

	switch {
	case resp.Failed == 0:
		resp.StatusCode = http.StatusOK
	case resp.Processed > 0:
		resp.StatusCode = http.StatusMultiStatus
	default:
		resp.StatusCode = http.StatusInternalServerError
	}

	resp.Message = fmt.Sprintf("Processed %d files successfully, %d errors", resp.Processed, resp.Failed)
	return resp
}

// ProcessRecord runs one record through the pipeline.
func (p *Processor) ProcessRecord(ctx context.Context, rec Record) (result RecordResult) {
	start := p.now()
	id := ProcessingID(rec.Key)
	logger := p.logger.With("processing_id", id, "file_key", rec.Key)

	result = RecordResult{
		FileKey:      rec.Key,
		Bucket:       rec.Bucket,
		ProcessingID: id,
		Size:         rec.Size,
	}

	logMetrics(logger, rec, "started", start, start)

	if !rec.IsObjectCreated() {
		logger.Info("ignoring non-creation event", "event_name", rec.EventName)
		result.Status = StatusSkipped
		result.Reason = ReasonNotObjectCreated
		return result
	}

	v := p.validator.Validate(rec.Key, rec.Size)
	if !v.Valid {
		logger.Warn("file validation failed", "reason", v.Reason)
		result.fail(procerr.New(procerr.KindFileValidation, "File validation failed: "+v.Reason, map[string]string{
			"file_key": rec.Key,
			"reason":   v.Reason,
		}))
		return result
	}
	result.FileType = v.FileType

	subject := notify.Subject{
		Bucket:       rec.Bucket,
		Key:          rec.Key,
		Size:         rec.Size,
		FileType:     v.FileType,
		ProcessingID: id,
	}

	// Started is informational. A failure to send it does not stop processing.
	_ = p.deps.Publisher.Started(ctx, subject)

	err := p.run(ctx, rec, subject, logger, start, &result)
	if err != nil {
		logger.Error("pipeline processing failed", "error", err.Error())
		logMetrics(logger, rec, "pipeline_failed", start, p.now(), "error_type", string(procerr.KindOf(err)))
		result.fail(err)
		_ = p.deps.Publisher.Error(ctx, subject, *result.Error)
	}

	return result
}

func (p *Processor) run(ctx context.Context, rec Record, subject notify.Subject, logger *slog.Logger, start time.Time, result *RecordResult) (err error) {
	// A panic in any stage fails this record only.
	defer func() {
		if r := recover(); r != nil {
			err = procerr.New(procerr.KindProcessing, fmt.Sprintf("Unexpected failure processing file: %v", r), map[string]string{
				"file_key": rec.Key,
			})
		}
	}()

	content, err := p.fetch(ctx, rec)
	if err != nil {
		return err
	}

	err = validation.CheckSignature(content, subject.FileType)
	if err != nil {
		err = procerr.Wrap(procerr.KindFileValidation, err, "File content does not match its extension", map[string]string{
			"file_key":  rec.Key,
			"file_type": subject.FileType,
		})
		return err
	}

	fingerprint := dedup.Fingerprint(content)
	seen, seenErr := p.deps.Store.Seen(ctx, rec.Key, fingerprint)
	if seenErr != nil {
		logger.Warn("could not check processing status, assuming not processed", "error", seenErr.Error())
	}
	if seen {
		logger.Info("file already processed, skipping", "fingerprint", fingerprint)
		logMetrics(logger, rec, "skipped", start, p.now(), "reason", ReasonAlreadyProcessed)
		_ = p.deps.Publisher.Duplicate(ctx, subject, fingerprint)
		result.Status = StatusSkipped
		result.Reason = ReasonAlreadyProcessed
		return err
	}

	extraction, err := p.extractor.Extract(content, subject.FileType)
	if err != nil {
		return err
	}
	result.TextLength = extraction.TextLength
	result.ExtractionMethod = extraction.ExtractionMethod

	logMetrics(logger, rec, "text_extracted", start, p.now(),
		"file_type", subject.FileType,
		"text_length", extraction.TextLength,
		"extraction_method", extraction.ExtractionMethod,
		"extraction_time", extraction.ExtractionDurationSeconds,
	)

	analysis, err := p.deps.Analyzer.Analyze(ctx, extraction.ExtractedText, rec.Key)
	if err != nil {
		return err
	}

	logMetrics(logger, rec, "ai_analysis_completed", start, p.now(),
		"overall_score", analysis.OverallScore,
		"ats_compatibility", analysis.ATSCompatibility,
		"content_quality", analysis.ContentQuality,
		"analysis_source", analysis.Metadata.Source,
		"model_used", analysis.Metadata.ModelUsed,
		"analysis_duration", analysis.Metadata.DurationSeconds,
	)

	meta := p.processingMetadata(rec, subject, fingerprint, extraction, analysis, start)
	err = p.deps.Publisher.Completed(ctx, subject, analysis, meta)
	if err != nil {
		if procerr.KindOf(err) != procerr.KindPublish {
			err = procerr.Wrap(procerr.KindPublish, err, "Failed to publish completion results", map[string]string{"file_key": rec.Key})
		}
		return err
	}

	if markErr := p.deps.Store.Mark(ctx, rec.Key, fingerprint); markErr != nil {
		logger.Warn("failed to record processed fingerprint", "error", markErr.Error())
	}

	score := analysis.OverallScore
	result.Status = StatusDone
	result.OverallScore = &score
	result.AnalysisSource = analysis.Metadata.Source
	result.Analysis = &analysis

	logMetrics(logger, rec, "pipeline_completed", start, p.now(),
		"file_type", subject.FileType,
		"overall_score", analysis.OverallScore,
		"processing_complete", true,
	)

	return err
}

// fetch downloads the object within the per-file processing timeout.
func (p *Processor) fetch(ctx context.Context, rec Record) (content []byte, err error) {
	if timeout := p.cfg.ProcessingTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	content, err = p.deps.Fetcher.Fetch(ctx, rec.Bucket, rec.Key)
	return content, err
}

func (p *Processor) processingMetadata(rec Record, subject notify.Subject, fingerprint string, extraction extractor.Result, analysis scorer.AnalysisResult, start time.Time) (meta map[string]interface{}) {
	now := p.now()
	meta = map[string]interface{}{
		"processing_id":        subject.ProcessingID,
		"fingerprint":          fingerprint,
		"file_key":             rec.Key,
		"file_type":            subject.FileType,
		"file_size":            rec.Size,
		"file_size_formatted":  FormatFileSize(rec.Size),
		"etag":                 rec.ETag,
		"duration_seconds":     now.Sub(start).Seconds(),
		"processing_completed": now.UTC().Format(time.RFC3339),
		"warnings_count":       len(extraction.Warnings),
		"analysis_source":      analysis.Metadata.Source,
		"extraction":           extraction.Metadata(),
	}
	if !rec.EventTime.IsZero() {
		meta["event_time"] = rec.EventTime.UTC().Format(time.RFC3339)
	}
	return meta
}

func (r *RecordResult) fail(err error) {
	d := procerr.Describe(err)
	ctx := make(map[string]string, len(d.Context)+2)
	for k, v := range d.Context {
		ctx[k] = v
	}
	d.Context = ctx
	if _, ok := d.Context["processing_id"]; !ok {
		d.Context["processing_id"] = r.ProcessingID
	}
	if _, ok := d.Context["file_size"]; !ok {
		d.Context["file_size"] = strconv.FormatInt(r.Size, 10)
	}
	r.Status = StatusFailed
	r.Error = &d
}
