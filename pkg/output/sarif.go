package output

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/sambabib/scorecheck/pkg/analyzer"
	"github.com/sambabib/scorecheck/pkg/manifest"
	"github.com/sambabib/scorecheck/pkg/score"
)

// SARIF format specification: https://docs.oasis-open.org/sarif/sarif/v2.1.0/sarif-v2.1.0.html

// SarifReport represents the top-level SARIF report structure
type SarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []SarifRun `json:"runs"`
}

// SarifRun represents a single run of the analysis tool
type SarifRun struct {
	Tool        SarifTool         `json:"tool"`
	Results     []SarifResult     `json:"results"`
	Invocations []SarifInvocation `json:"invocations"`
}

// SarifTool represents the tool that performed the analysis
type SarifTool struct {
	Driver SarifDriver `json:"driver"`
}

// SarifDriver represents the driver of the tool
type SarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []SarifRule `json:"rules"`
}

// SarifRule represents a rule that was evaluated during the analysis
type SarifRule struct {
	ID               string            `json:"id"`
	ShortDescription SarifMessage      `json:"shortDescription"`
	FullDescription  SarifMessage      `json:"fullDescription"`
	Help             SarifMessage      `json:"help"`
	Properties       map[string]string `json:"properties,omitempty"`
}

// SarifResult represents a result of the analysis
type SarifResult struct {
	RuleID     string            `json:"ruleId"`
	Level      string            `json:"level"`
	Message    SarifMessage      `json:"message"`
	Locations  []SarifLocation   `json:"locations"`
	Properties map[string]string `json:"properties,omitempty"`
}

// SarifMessage represents a message in the SARIF report
type SarifMessage struct {
	Text string `json:"text"`
}

// SarifLocation represents a location in the code
type SarifLocation struct {
	PhysicalLocation SarifPhysicalLocation `json:"physicalLocation"`
}

// SarifPhysicalLocation represents a physical location in the code
type SarifPhysicalLocation struct {
	ArtifactLocation SarifArtifactLocation `json:"artifactLocation"`
	Region           *SarifRegion          `json:"region,omitempty"`
}

// SarifArtifactLocation represents the location of an artifact
type SarifArtifactLocation struct {
	URI string `json:"uri"`
}

// SarifRegion represents a region in the code
type SarifRegion struct {
	StartLine int `json:"startLine,omitempty"`
}

// SarifInvocation represents an invocation of the tool
type SarifInvocation struct {
	ExecutionSuccessful bool   `json:"executionSuccessful"`
	StartTimeUtc        string `json:"startTimeUtc"`
	EndTimeUtc          string `json:"endTimeUtc"`
}

// Rule IDs used in SARIF results.
const (
	RulePackageFound       = "package-found"
	RulePackageNotFound    = "package-not-found"
	RuleLookupFailed       = "lookup-failed"
	RuleInvalidPackageName = "invalid-package-name"
)

var sarifRules = []SarifRule{
	{
		ID:               RulePackageFound,
		ShortDescription: SarifMessage{Text: "Package health score"},
		FullDescription:  SarifMessage{Text: "The scoring service rated the maturity and health risk of this dependency."},
		Help:             SarifMessage{Text: "Review the recommendation derived from the maturity and health ratings."},
	},
	{
		ID:               RulePackageNotFound,
		ShortDescription: SarifMessage{Text: "Package not scored"},
		FullDescription:  SarifMessage{Text: "The scoring service has no data for this dependency."},
		Help:             SarifMessage{Text: "Check the package name for typos or consider whether the dependency is trustworthy."},
	},
	{
		ID:               RuleLookupFailed,
		ShortDescription: SarifMessage{Text: "Score lookup failed"},
		FullDescription:  SarifMessage{Text: "The scoring service could not be reached or returned an unexpected status."},
		Help:             SarifMessage{Text: "Re-run the check; the failure is not related to the dependency itself."},
	},
	{
		ID:               RuleInvalidPackageName,
		ShortDescription: SarifMessage{Text: "Invalid package name"},
		FullDescription:  SarifMessage{Text: "The requirement line does not contain a valid package name."},
		Help:             SarifMessage{Text: "Package names may only contain letters, digits, '.', '_' and '-'."},
	},
}

// GenerateSarifReport converts analyzer report items to SARIF format
func GenerateSarifReport(reports []analyzer.ReportItem, manifestPath, toolVersion string, started, finished time.Time) ([]byte, error) {
	results := make([]SarifResult, 0, len(reports))
	for _, report := range reports {
		ruleID, level := classify(report)

		text := report.Message
		if report.OK() {
			text = report.Name + ": " + report.Recommendation +
				" (maturity " + report.Maturity + ", health " + report.HealthRisk + ")"
		}

		location := SarifPhysicalLocation{
			ArtifactLocation: SarifArtifactLocation{URI: manifestPath},
		}
		if report.Line > 0 {
			location.Region = &SarifRegion{StartLine: report.Line}
		}

		result := SarifResult{
			RuleID:    ruleID,
			Level:     level,
			Message:   SarifMessage{Text: text},
			Locations: []SarifLocation{{PhysicalLocation: location}},
		}
		if report.OK() {
			result.Properties = map[string]string{
				"maturity":   report.Maturity,
				"healthRisk": report.HealthRisk,
				"rule":       report.Rule,
			}
		}
		results = append(results, result)
	}

	sarifReport := SarifReport{
		Schema:  "https://schemastore.azurewebsites.net/schemas/json/sarif-2.1.0-rtm.5.json",
		Version: "2.1.0",
		Runs: []SarifRun{
			{
				Tool: SarifTool{
					Driver: SarifDriver{
						Name:           "scorecheck",
						Version:        toolVersion,
						InformationURI: "https://github.com/sambabib/scorecheck",
						Rules:          sarifRules,
					},
				},
				Results: results,
				Invocations: []SarifInvocation{
					{
						ExecutionSuccessful: true,
						StartTimeUtc:        started.UTC().Format(time.RFC3339),
						EndTimeUtc:          finished.UTC().Format(time.RFC3339),
					},
				},
			},
		},
	}

	return json.MarshalIndent(sarifReport, "", "  ")
}

func classify(report analyzer.ReportItem) (ruleID, level string) {
	switch {
	case report.OK():
		return RulePackageFound, "note"
	case errors.Is(report.Err, manifest.ErrInvalidPackageName):
		return RuleInvalidPackageName, "error"
	case errors.Is(report.Err, score.ErrPackageNotFound):
		return RulePackageNotFound, "error"
	default:
		return RuleLookupFailed, "error"
	}
}
