package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sambabib/scorecheck/pkg/analyzer"
	"github.com/sambabib/scorecheck/pkg/annotate"
	"github.com/sambabib/scorecheck/pkg/config"
	"github.com/sambabib/scorecheck/pkg/logger"
	"github.com/sambabib/scorecheck/pkg/manifest"
	"github.com/sambabib/scorecheck/pkg/output"
	"github.com/sambabib/scorecheck/pkg/score"
	"github.com/spf13/cobra"
)

// annotateCmd represents the annotate subcommand
var annotateCmd = &cobra.Command{
	Use:   "annotate",
	Short: "Annotate the requirements file with package health recommendations",
	Long: `Look up every package of the requirements file in the scoring service and
print a ::notice or ::error workflow command for each one. Outputs named after
each package are appended to $GITHUB_OUTPUT.`,
	Example: `  # In a workflow step
  scorecheck annotate

  # Another manifest, with a SARIF report for code scanning
  scorecheck annotate -r requirements/prod.txt --report-format sarif --report-file scorecheck.sarif`,
	SilenceUsage: true,
	RunE:         runAnnotate,
}

func init() {
	rootCmd.AddCommand(annotateCmd)
	defaults := config.DefaultConfig()
	annotateCmd.Flags().StringP(config.KeyFile, "r", defaults.File, "Path to the requirements file")
	annotateCmd.Flags().StringP(config.KeyEcosystem, "e", defaults.Ecosystem, "Package ecosystem (only pip is supported)")
	annotateCmd.Flags().String(config.KeyAPIURL, defaults.APIURL, "Base URL of the scoring API")
	annotateCmd.Flags().StringP(config.KeyReportFormat, "f", "", "Also write a report: text, json or sarif")
	annotateCmd.Flags().String(config.KeyReportFile, "", "Report destination (stderr if empty)")
	annotateCmd.Flags().Bool(config.KeyFailOnError, false, "Exit non-zero when any package could not be scored")
}

func runAnnotate(cmd *cobra.Command, _ []string) error {
	v := config.NewViper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	logger.SetVerbose(v.GetBool("verbose"))

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(v)

	emitter := annotate.NewGitHubEmitter(cmd.OutOrStdout(), os.Getenv("GITHUB_OUTPUT"))
	if err := cfg.Validate(); err != nil {
		_ = emitter.Fatal(err.Error())
		return err
	}

	a, err := analyzer.ForEcosystem(cfg, score.NewClient(cfg.APIURL), emitter)
	if err != nil {
		_ = emitter.Fatal(err.Error())
		return err
	}

	logger.Debugf("Checking %s against %s", cfg.File, cfg.APIURL)
	started := time.Now()
	reports, err := a.Analyze(cmd.Context(), cfg.File)
	if err != nil {
		if errors.Is(err, manifest.ErrManifestNotFound) {
			_ = emitter.Fatal(fmt.Sprintf("%s not found!", cfg.File))
		} else {
			_ = emitter.Fatal(err.Error())
		}
		return err
	}
	finished := time.Now()

	if cfg.Report.Format != "" {
		if err := writeReport(cmd.ErrOrStderr(), cfg, reports, output.Run{
			ManifestPath: cfg.File,
			ToolVersion:  Version,
			Started:      started,
			Finished:     finished,
		}); err != nil {
			return err
		}
	}

	summary := analyzer.Summary(reports)
	failed := 0
	for _, r := range reports {
		if !r.OK() {
			failed++
		}
	}
	logger.Infof("Checked %d packages from %s, %d could not be scored", len(reports), cfg.File, failed)

	if summary != nil && cfg.FailOnError {
		return summary
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadConfig(configFile)
	}
	return config.FindAndLoadConfig(".")
}

func writeReport(stderr io.Writer, cfg *config.Config, reports []analyzer.ReportItem, run output.Run) error {
	if cfg.Report.File == "" {
		return output.Write(stderr, cfg.Report.Format, reports, run)
	}

	f, err := os.Create(cfg.Report.File)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	if err := output.Write(f, cfg.Report.Format, reports, run); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	logger.Infof("Wrote %s report to %s", cfg.Report.Format, cfg.Report.File)
	return nil
}
