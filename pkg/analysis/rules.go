package analysis

import (
	"context"

	"github.com/nikogura/resume-analyzer/pkg/scorer"
	"github.com/pkg/errors"
)

// RuleTier runs the deterministic scorer. A panic inside scoring becomes a recoverable error.
type RuleTier struct {
	scorer *scorer.Scorer
}

// NewRuleTier wraps s.
func NewRuleTier(s *scorer.Scorer) (tier *RuleTier) {
	tier = &RuleTier{scorer: s}
	return tier
}

// Name returns the tier name.
func (t *RuleTier) Name() (name string) {
	name = scorer.SourceRuleBased
	return name
}

// Produce scores text with the rule-based analyzer.
func (t *RuleTier) Produce(_ context.Context, text, fileKey string) (result scorer.AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = scorer.AnalysisResult{}
			err = Recoverable(t.Name(), errors.Errorf("rule-based analysis panicked: %v", r))
		}
	}()

	if t.scorer == nil {
		err = Recoverable(t.Name(), errors.New("no scorer configured"))
		return result, err
	}

	result = t.scorer.Analyze(text, fileKey)

	return result, err
}
