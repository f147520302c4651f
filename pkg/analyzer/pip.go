package analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/sambabib/scorecheck/pkg/annotate"
	"github.com/sambabib/scorecheck/pkg/config"
	"github.com/sambabib/scorecheck/pkg/logger"
	"github.com/sambabib/scorecheck/pkg/manifest"
	"github.com/sambabib/scorecheck/pkg/recommend"
	"github.com/sambabib/scorecheck/pkg/score"
)

// PipAnalyzer scores every package of a requirements.txt file
type PipAnalyzer struct {
	Config    *config.Config
	Scores    ScoreFetcher
	Emitter   annotate.Emitter
	Ecosystem string // scoring API path segment, "pypi"
}

// NewPipAnalyzer creates a new PipAnalyzer.
func NewPipAnalyzer(cfg *config.Config, scores ScoreFetcher, emitter annotate.Emitter, ecosystem string) *PipAnalyzer {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &PipAnalyzer{
		Config:    cfg,
		Scores:    scores,
		Emitter:   emitter,
		Ecosystem: ecosystem,
	}
}

// Analyze reads the requirements file and annotates each package in order.
// Only a manifest that cannot be read is returned as an error; everything
// that goes wrong for a single package ends up on its ReportItem.
func (a *PipAnalyzer) Analyze(ctx context.Context, requirementsPath string) ([]ReportItem, error) {
	text, err := manifest.Read(requirementsPath)
	if err != nil {
		return nil, err
	}

	reports := []ReportItem{}
	for c := range manifest.Candidates(text) {
		if a.Config.IsPackageIgnored(c.Name) {
			logger.WithPackage(c.Name).Infof("Pip: skipping ignored package on line %d", c.Line)
			continue
		}

		report := a.check(ctx, c)
		if err := a.Emitter.Emit(a.record(requirementsPath, report)); err != nil {
			logger.WithPackage(c.Name).Errorf("Pip: failed to emit annotation: %v", err)
			if report.OK() {
				report.Severity = annotate.Error
				report.Message = fmt.Sprintf("Error reporting package %s: %v", report.Name, err)
			}
			report.Err = errors.Join(report.Err, fmt.Errorf("emitting annotation: %w", err))
			report.Error = report.Err.Error()
		}
		reports = append(reports, report)
	}

	return reports, nil
}

func (a *PipAnalyzer) check(ctx context.Context, c manifest.Candidate) ReportItem {
	log := logger.WithPackage(c.Name)
	report := ReportItem{
		Line:          c.Line,
		Name:          c.Name,
		Specifier:     c.Specifier,
		PinnedVersion: c.PinnedVersion(),
	}

	if err := manifest.ValidateName(c.Name); err != nil {
		log.Warnf("Pip: line %d: %v", c.Line, err)
		return report.fail(err, fmt.Sprintf("Invalid package name %q on line %d.", c.Name, c.Line))
	}

	log.Debugf("Pip: looking up score for line %d", c.Line)
	resp, err := a.Scores.Fetch(ctx, a.Ecosystem, c.Name)
	if err == nil && !resp.Found() {
		err = fmt.Errorf("%w: %s", score.ErrPackageNotFound, c.Name)
	}
	if err != nil {
		if errors.Is(err, score.ErrPackageNotFound) {
			log.Debugf("Pip: no score available")
			return report.fail(err, fmt.Sprintf("Package %s not found.", c.Name))
		}
		log.Errorf("Pip: lookup failed: %v", err)
		return report.fail(err, fmt.Sprintf("Error looking up package %s: %v", c.Name, err))
	}

	report.Maturity = resp.Maturity()
	report.HealthRisk = resp.HealthRisk()
	rule := recommend.Match(report.Maturity, report.HealthRisk)
	report.Rule = rule.Name
	report.Recommendation = rule.Text
	report.Severity = annotate.Notice
	report.Message = fmt.Sprintf("Package %s found. (Maturity: %s, Health: %s). %s",
		c.Name, report.Maturity, report.HealthRisk, rule.Text)
	log.Debugf("Pip: maturity=%s health=%s rule=%s", report.Maturity, report.HealthRisk, rule.Name)
	return report
}

func (r ReportItem) fail(err error, message string) ReportItem {
	r.Err = err
	r.Error = err.Error()
	r.Severity = annotate.Error
	r.Message = message
	return r
}

// record maps a report to its annotation. Rejected names get no step output
// since they are not usable as output keys.
func (a *PipAnalyzer) record(file string, r ReportItem) annotate.Record {
	record := annotate.Record{
		Severity: r.Severity,
		File:     file,
		Message:  r.Message,
	}
	if !errors.Is(r.Err, manifest.ErrInvalidPackageName) {
		record.Package = r.Name
		record.Output = r.Output()
	}
	return record
}
