package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/sambabib/scorecheck/pkg/analyzer"
)

// WriteTextReport writes the report items as a table
func WriteTextReport(w io.Writer, reports []analyzer.ReportItem) error {
	const messageLimit = 80 // Max characters for the message column

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintln(tw, "LINE\tNAME\tMATURITY\tHEALTH\tSEVERITY\tMESSAGE")
	fmt.Fprintln(tw, "----\t----\t--------\t------\t--------\t-------")

	for _, r := range reports {
		message := r.Recommendation
		if !r.OK() {
			message = r.Message
		}
		if len(message) > messageLimit {
			message = message[:messageLimit-3] + "..."
		}
		message = strings.ReplaceAll(message, "\t", " ")

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Line,
			r.Name,
			dash(r.Maturity),
			dash(r.HealthRisk),
			r.Severity,
			message,
		)
	}

	return tw.Flush()
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
