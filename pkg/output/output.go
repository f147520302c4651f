// Package output renders the results of a run as text, JSON or SARIF.
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/sambabib/scorecheck/pkg/analyzer"
)

// Run describes the run a report belongs to.
type Run struct {
	ManifestPath string
	ToolVersion  string
	Started      time.Time
	Finished     time.Time
}

// Write renders reports in the given format ("text", "json" or "sarif").
func Write(w io.Writer, format string, reports []analyzer.ReportItem, run Run) error {
	var (
		data []byte
		err  error
	)
	switch format {
	case "text":
		return WriteTextReport(w, reports)
	case "json":
		data, err = GenerateJSONReport(reports)
	case "sarif":
		data, err = GenerateSarifReport(reports, run.ManifestPath, run.ToolVersion, run.Started, run.Finished)
	default:
		return fmt.Errorf("unsupported report format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to render %s report: %w", format, err)
	}
	if _, err := w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write %s report: %w", format, err)
	}
	return nil
}
