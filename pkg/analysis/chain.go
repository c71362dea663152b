package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nikogura/resume-analyzer/pkg/config"
	"github.com/nikogura/resume-analyzer/pkg/llm"
	"github.com/nikogura/resume-analyzer/pkg/procerr"
	"github.com/nikogura/resume-analyzer/pkg/scorer"
	"github.com/pkg/errors"
)

// Tier is one rung of the analysis ladder.
type Tier interface {
	Name() string
	Produce(ctx context.Context, text, fileKey string) (result scorer.AnalysisResult, err error)
}

// RecoverableError marks a tier failure after which the chain moves to the next tier.
type RecoverableError struct {
	Tier string
	Err  error
}

func (e *RecoverableError) Error() (msg string) {
	msg = fmt.Sprintf("%s tier failed: %v", e.Tier, e.Err)
	return msg
}

// Unwrap returns the underlying failure.
func (e *RecoverableError) Unwrap() (err error) {
	err = e.Err
	return err
}

// Recoverable wraps err so the chain falls through to the next tier.
func Recoverable(tier string, err error) (wrapped error) {
	wrapped = &RecoverableError{Tier: tier, Err: err}
	return wrapped
}

// IsRecoverable reports whether err was marked recoverable by a tier.
func IsRecoverable(err error) (ok bool) {
	var re *RecoverableError
	ok = errors.As(err, &re)
	return ok
}

// Chain tries tiers in order until one produces a result.
type Chain struct {
	tiers  []Tier
	logger *slog.Logger
	now    func() time.Time
}

// NewChain creates a chain over tiers, tried first to last.
func NewChain(logger *slog.Logger, tiers ...Tier) (chain *Chain) {
	if logger == nil {
		logger = slog.Default()
	}
	chain = &Chain{
		tiers:  tiers,
		logger: logger,
		now:    time.Now,
	}
	return chain
}

// Analyze runs the ladder. The winning result is stamped with the completion time and the
// duration of the whole ladder. A non-recoverable tier error stops the ladder.
func (c *Chain) Analyze(ctx context.Context, text, fileKey string) (result scorer.AnalysisResult, err error) {
	start := c.now()

	var failures []string
	for _, tier := range c.tiers {
		result, err = tier.Produce(ctx, text, fileKey)
		if err == nil {
			end := c.now()
			result.Metadata.Timestamp = end.UTC()
			result.Metadata.DurationSeconds = end.Sub(start).Seconds()
			if result.Metadata.FileKey == "" {
				result.Metadata.FileKey = fileKey
			}
			c.logger.Info("analysis complete",
				"file_key", fileKey,
				"tier", tier.Name(),
				"analysis_source", result.Metadata.Source,
				"overall_score", result.OverallScore,
			)
			return result, err
		}

		if !IsRecoverable(err) {
			err = procerr.Wrap(procerr.KindAnalysis, err, "analysis failed", map[string]string{
				"file_key": fileKey,
				"tier":     tier.Name(),
			})
			return result, err
		}

		c.logger.Warn("analysis tier failed, falling back",
			"file_key", fileKey,
			"tier", tier.Name(),
			"error", err.Error(),
		)
		failures = append(failures, tier.Name())
	}

	err = procerr.New(procerr.KindAnalysis, "all analysis tiers failed", map[string]string{
		"file_key":     fileKey,
		"tiers_failed": strings.Join(failures, ","),
	})
	return result, err
}

// NewDefaultChain builds the standard ladder: model, then rule-based, then placeholder.
// The rubric and keyword tables are built once here and shared by the tiers.
func NewDefaultChain(cfg config.Config, completer llm.Completer, logger *slog.Logger) (chain *Chain) {
	rubric := scorer.DefaultRubric()
	chain = NewChain(logger,
		NewModelTier(completer, rubric, ModelOptionsFrom(cfg), logger),
		NewRuleTier(scorer.NewScorer(rubric, scorer.DefaultKeywords())),
		PlaceholderTier{},
	)
	return chain
}
