package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sambabib/scorecheck/pkg/analyzer"
	"github.com/sambabib/scorecheck/pkg/annotate"
	"github.com/sambabib/scorecheck/pkg/manifest"
	"github.com/sambabib/scorecheck/pkg/score"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReports() []analyzer.ReportItem {
	return []analyzer.ReportItem{
		{
			Line:           1,
			Name:           "requests",
			Specifier:      "==2.31.0",
			PinnedVersion:  "2.31.0",
			Maturity:       "Mature",
			HealthRisk:     "Healthy",
			Rule:           "mature-healthy",
			Recommendation: "This package is mature and likely to enhance stability with minimal risks.",
			Severity:       annotate.Notice,
			Message:        "Package requests found.",
		},
		{
			Line:     4,
			Name:     "flask",
			Severity: annotate.Error,
			Message:  "Package flask not found.",
			Err:      score.ErrPackageNotFound,
			Error:    score.ErrPackageNotFound.Error(),
		},
		{
			Line:     5,
			Name:     "bad;name",
			Severity: annotate.Error,
			Message:  `Invalid package name "bad;name" on line 5.`,
			Err:      manifest.ErrInvalidPackageName,
		},
		{
			Line:     6,
			Name:     "crashy",
			Severity: annotate.Error,
			Message:  "Error looking up package crashy: request failed with status code 500",
			Err:      &score.RequestFailedError{StatusCode: 500},
		},
	}
}

func TestGenerateJSONReport(t *testing.T) {
	data, err := GenerateJSONReport(sampleReports())
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 4)
	assert.Equal(t, "requests", decoded[0]["name"])
	assert.Equal(t, "2.31.0", decoded[0]["pinned_version"])
	assert.Equal(t, "notice", decoded[0]["severity"])
	assert.NotContains(t, decoded[0], "error")
	assert.Equal(t, "package not found", decoded[1]["error"])
}

func TestGenerateJSONReport_Empty(t *testing.T) {
	data, err := GenerateJSONReport(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestWriteTextReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTextReport(&buf, sampleReports()))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "LINE"))
	assert.Contains(t, lines[2], "requests")
	assert.Contains(t, lines[2], "Mature")
	assert.Contains(t, lines[3], "Package flask not found.")
	assert.Contains(t, lines[3], " - ")
}

func TestWriteTextReport_TruncatesLongMessages(t *testing.T) {
	var buf bytes.Buffer
	long := strings.Repeat("x", 200)
	require.NoError(t, WriteTextReport(&buf, []analyzer.ReportItem{{Name: "a", Message: long, Err: errors.New("e")}}))
	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), long)
}

func TestGenerateSarifReport(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	data, err := GenerateSarifReport(sampleReports(), "requirements.txt", "1.2.3", started, started.Add(2*time.Second))
	require.NoError(t, err)

	var report SarifReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, "2.1.0", report.Version)
	require.Len(t, report.Runs, 1)
	run := report.Runs[0]
	assert.Equal(t, "1.2.3", run.Tool.Driver.Version)
	assert.Len(t, run.Tool.Driver.Rules, 4)
	assert.Equal(t, "2026-01-02T03:04:05Z", run.Invocations[0].StartTimeUtc)
	assert.Equal(t, "2026-01-02T03:04:07Z", run.Invocations[0].EndTimeUtc)

	require.Len(t, run.Results, 4)
	expected := []struct {
		rule  string
		level string
		line  int
	}{
		{RulePackageFound, "note", 1},
		{RulePackageNotFound, "error", 4},
		{RuleInvalidPackageName, "error", 5},
		{RuleLookupFailed, "error", 6},
	}
	for i, want := range expected {
		got := run.Results[i]
		assert.Equal(t, want.rule, got.RuleID)
		assert.Equal(t, want.level, got.Level)
		require.NotNil(t, got.Locations[0].PhysicalLocation.Region)
		assert.Equal(t, want.line, got.Locations[0].PhysicalLocation.Region.StartLine)
		assert.Equal(t, "requirements.txt", got.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	}
	assert.Equal(t, "Mature", run.Results[0].Properties["maturity"])
	assert.Contains(t, run.Results[0].Message.Text, "minimal risks")
}

func TestWrite(t *testing.T) {
	run := Run{ManifestPath: "requirements.txt", ToolVersion: "dev", Started: time.Now(), Finished: time.Now()}
	for _, format := range []string{"text", "json", "sarif"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Write(&buf, format, sampleReports(), run))
			assert.Contains(t, buf.String(), "requests")
		})
	}

	assert.Error(t, Write(&bytes.Buffer{}, "xml", nil, run))
}
