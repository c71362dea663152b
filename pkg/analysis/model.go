package analysis

import (
	"context"
	"log/slog"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/nikogura/resume-analyzer/pkg/llm"
	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/nikogura/resume-analyzer/pkg/scorer"
	"github.com/pkg/errors"
)

const (
	// MaxAnalysisChars is the longest text sent to the model.
	MaxAnalysisChars = 15000
	// AnalysisTruncationMarker is appended to text cut at MaxAnalysisChars.
	AnalysisTruncationMarker = "...[truncated for analysis]"
)

// ErrModelUnavailable means the model could not be reached or every attempt failed.
var ErrModelUnavailable = errors.New("model unavailable")

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// ModelOptions controls requests made by the model tier.
type ModelOptions struct {
	MaxTokens   int
	Temperature float64
	// MaxRetries is the total number of attempts.
	MaxRetries int
	// RequestTimeout bounds each attempt. Zero means no per-attempt bound.
	RequestTimeout time.Duration
	// BackoffBase is multiplied by 2^attempt between attempts.
	BackoffBase time.Duration
}

// ModelOptionsFrom reads the model tier options out of cfg.
func ModelOptionsFrom(cfg config.Config) (opts ModelOptions) {
	opts = ModelOptions{
		MaxTokens:      cfg.Model.MaxTokens,
		Temperature:    cfg.Model.Temperature,
		MaxRetries:     cfg.Model.MaxRetries,
		RequestTimeout: cfg.RequestTimeout(),
		BackoffBase:    cfg.RetryDelay(),
	}
	return opts
}

// ModelTier asks a language model to score the resume.
type ModelTier struct {
	completer llm.Completer
	rubric    scorer.Rubric
	opts      ModelOptions
	logger    *slog.Logger
	sleep     Sleeper
}

// NewModelTier creates the model tier. A nil completer makes every Produce call fail
// recoverably, so the chain moves straight on to the rule-based tier.
func NewModelTier(completer llm.Completer, rubric scorer.Rubric, opts ModelOptions, logger *slog.Logger) (tier *ModelTier) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	tier = &ModelTier{
		completer: completer,
		rubric:    rubric,
		opts:      opts,
		logger:    logger,
		sleep:     sleepContext,
	}
	return tier
}

// Name returns the tier name.
func (t *ModelTier) Name() (name string) {
	name = scorer.SourceModel
	return name
}

// Produce sends the resume to the model. A reply that cannot be parsed yields the fixed
// fallback analysis rather than an error.
func (t *ModelTier) Produce(ctx context.Context, text, fileKey string) (result scorer.AnalysisResult, err error) {
	if t.completer == nil {
		err = Recoverable(t.Name(), errors.Wrap(ErrModelUnavailable, "no model client configured"))
		return result, err
	}

	analyzed := TruncateForAnalysis(text)
	if analyzed != text {
		t.logger.Warn("text exceeds analysis limit, truncating",
			"file_key", fileKey,
			"text_length", utf8.RuneCountInString(text),
			"limit", MaxAnalysisChars,
		)
	}
	textLength := utf8.RuneCountInString(analyzed)

	var reply string
	reply, err = t.complete(ctx, BuildPrompt(t.rubric, analyzed), fileKey)
	if err != nil {
		err = Recoverable(t.Name(), err)
		return result, err
	}

	var parseErr error
	result, parseErr = ParseResponse(reply, t.rubric)
	if parseErr != nil {
		t.logger.Warn("using fallback analysis, model response could not be parsed",
			"file_key", fileKey,
			"error", parseErr.Error(),
			"response_prefix", prefix(reply, 500),
		)
		result = Fallback(fileKey, textLength)
		return result, err
	}

	result.Metadata.ModelUsed = t.completer.Model()
	result.Metadata.FileKey = fileKey
	result.Metadata.TextLengthAnalyzed = textLength

	return result, err
}

// complete calls the model up to MaxRetries times, sleeping BackoffBase*2^attempt between
// attempts and never after the last one.
func (t *ModelTier) complete(ctx context.Context, prompt, fileKey string) (reply string, err error) {
	req := llm.CompletionRequest{
		System:       SystemPrompt,
		Prompt:       prompt,
		MaxTokens:    t.opts.MaxTokens,
		Temperature:  t.opts.Temperature,
		JSONResponse: true,
	}

	var lastErr error
	attempts := t.opts.MaxRetries
	for attempt := 0; attempt < attempts; attempt++ {
		reply, lastErr = t.attempt(ctx, req)
		if lastErr == nil {
			return reply, err
		}

		t.logger.Warn("model attempt failed",
			"file_key", fileKey,
			"attempt", attempt+1,
			"max_attempts", attempts,
			"error", lastErr.Error(),
		)

		if attempt == attempts-1 {
			break
		}

		wait := t.opts.BackoffBase * time.Duration(1<<uint(attempt))
		t.logger.Info("retrying model call", "file_key", fileKey, "wait", wait.String())
		if sleepErr := t.sleep(ctx, wait); sleepErr != nil {
			lastErr = sleepErr
			break
		}
	}

	t.logger.Error("all model attempts failed", "file_key", fileKey)

	err = procerr.Wrap(procerr.KindAnalysis, errors.Wrap(ErrModelUnavailable, lastErr.Error()),
		"model API failed after "+strconv.Itoa(attempts)+" attempts",
		map[string]string{
			"file_key": fileKey,
			"model":    t.completer.Model(),
		})
	return reply, err
}

func (t *ModelTier) attempt(ctx context.Context, req llm.CompletionRequest) (reply string, err error) {
	if t.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.opts.RequestTimeout)
		defer cancel()
	}

	reply, err = t.completer.Complete(ctx, req)
	return reply, err
}

// TruncateForAnalysis cuts text to MaxAnalysisChars runes and appends the marker.
func TruncateForAnalysis(text string) (truncated string) {
	truncated = text
	if utf8.RuneCountInString(text) <= MaxAnalysisChars {
		return truncated
	}
	truncated = string([]rune(text)[:MaxAnalysisChars]) + AnalysisTruncationMarker
	return truncated
}

func sleepContext(ctx context.Context, d time.Duration) (err error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-timer.C:
	}
	return err
}

// prefix returns the first n runes of s, marking a cut with "...".
func prefix(s string, n int) (p string) {
	p = s
	if utf8.RuneCountInString(s) > n {
		p = string([]rune(s)[:n]) + "..."
	}
	return p
}
