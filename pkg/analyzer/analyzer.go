package analyzer

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/sambabib/scorecheck/pkg/annotate"
	"github.com/sambabib/scorecheck/pkg/config"
	"github.com/sambabib/scorecheck/pkg/score"
)

// ReportItem is the outcome for one manifest entry: a recommendation when Err
// is nil, otherwise the typed failure that was reported instead.
type ReportItem struct {
	Line           int               `json:"line"`                      // manifest line number
	Name           string            `json:"name"`                      // package name
	Specifier      string            `json:"specifier,omitempty"`       // version clause as written
	PinnedVersion  string            `json:"pinned_version,omitempty"`  // exact "==" pin, if any
	Maturity       string            `json:"maturity,omitempty"`        // e.g. Mature, Developing, Unknown
	HealthRisk     string            `json:"health_risk,omitempty"`     // e.g. Healthy, High Risk, Unknown
	Rule           string            `json:"rule,omitempty"`            // recommendation rule that matched
	Recommendation string            `json:"recommendation,omitempty"`  // advice text
	Severity       annotate.Severity `json:"severity"`                  // notice or error
	Message        string            `json:"message"`                   // annotation text
	Error          string            `json:"error,omitempty"`           // Err as text, for JSON reports
	Err            error             `json:"-"`
}

// OK reports whether the package got a recommendation.
func (r ReportItem) OK() bool {
	return r.Err == nil
}

// Output is the step output value: the recommendation, or the failure message.
func (r ReportItem) Output() string {
	if r.OK() {
		return r.Recommendation
	}
	return r.Message
}

// ScoreFetcher is the part of score.Client the analyzers use.
type ScoreFetcher interface {
	Fetch(ctx context.Context, ecosystem, name string) (*score.Response, error)
}

// Analyzer defines the interface for manifest analyzers
type Analyzer interface {
	// Analyze reads the manifest at path and reports one item per package line
	Analyze(ctx context.Context, path string) ([]ReportItem, error)
}

// ForEcosystem returns the analyzer for cfg.Ecosystem. Unsupported ecosystems
// fail here, before the manifest is opened or any request is made.
func ForEcosystem(cfg *config.Config, scores ScoreFetcher, emitter annotate.Emitter) (Analyzer, error) {
	segment, err := cfg.APIEcosystem()
	if err != nil {
		return nil, err
	}
	switch cfg.Ecosystem {
	case "pip":
		return NewPipAnalyzer(cfg, scores, emitter, segment), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnsupportedEcosystem, cfg.Ecosystem)
	}
}

// Summary folds every per-package failure into one error, or nil when all
// packages got a recommendation.
func Summary(items []ReportItem) error {
	var result *multierror.Error
	for _, item := range items {
		if item.Err != nil {
			result = multierror.Append(result, fmt.Errorf("%s (line %d): %w", item.Name, item.Line, item.Err))
		}
	}
	return result.ErrorOrNil()
}
