package output

import (
	"encoding/json"

	"github.com/sambabib/scorecheck/pkg/analyzer"
)

// GenerateJSONReport converts analyzer report items to JSON format
func GenerateJSONReport(reports []analyzer.ReportItem) ([]byte, error) {
	if reports == nil {
		reports = []analyzer.ReportItem{}
	}
	return json.MarshalIndent(reports, "", "  ")
}
