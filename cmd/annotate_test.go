package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sambabib/scorecheck/pkg/config"
	"github.com/sambabib/scorecheck/pkg/manifest"
	"github.com/sambabib/scorecheck/pkg/output"
	"github.com/sambabib/scorecheck/pkg/recommend"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetFlags puts every flag back to its default; cobra keeps flag state between Execute calls.
func resetFlags(t *testing.T) {
	t.Helper()
	reset := func(fs *pflag.FlagSet) {
		fs.VisitAll(func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		})
	}
	reset(annotateCmd.Flags())
	reset(rootCmd.PersistentFlags())
	verbose = false
	configFile = ""
}

// scoreServer mocks the scoring API: requests is Mature/Healthy, everything else is a 404.
func scoreServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path == "/api/package/pypi/requests" {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"source":{"maturity":{"value":"Mature"},"health_risk":{"value":"Healthy"}}}`))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

// workspace creates a directory with a requirements.txt and makes it the working directory.
func workspace(t *testing.T, requirements string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte(requirements), 0644))
	t.Chdir(dir)
	t.Setenv("GITHUB_OUTPUT", filepath.Join(dir, "github_output"))
	return dir
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	resetFlags(t)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAnnotate_RequirementsScenario(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	dir := workspace(t, "requests==2.31.0\n# comment\n-e .\nflask\n")

	stdout, _, err := execute(t, "annotate", "--api-url", server.URL)
	require.NoError(t, err)

	advice := recommend.For(recommend.Mature, recommend.Healthy)
	assert.Equal(t,
		"::notice file=requirements.txt::Package requests found. (Maturity: Mature, Health: Healthy). "+advice+"\n"+
			"::error file=requirements.txt::Package flask not found.\n",
		stdout)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits), "comment and option lines make no calls")

	outputs, err := os.ReadFile(filepath.Join(dir, "github_output"))
	require.NoError(t, err)
	assert.Contains(t, string(outputs), "requests<<ghadelimiter_")
	assert.Contains(t, string(outputs), "\n"+advice+"\n")
	assert.Contains(t, string(outputs), "flask<<ghadelimiter_")
	assert.Contains(t, string(outputs), "\nPackage flask not found.\n")
}

func TestAnnotate_UnsupportedEcosystem(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	workspace(t, "requests\n")

	stdout, _, err := execute(t, "annotate", "--api-url", server.URL, "--ecosystem", "npm")
	assert.ErrorIs(t, err, config.ErrUnsupportedEcosystem)
	assert.True(t, strings.HasPrefix(stdout, "::error::unsupported ecosystem"), stdout)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestAnnotate_UnsupportedEcosystemFromActionInput(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	workspace(t, "requests\n")
	t.Setenv("INPUT_ECOSYSTEM", "npm")

	_, _, err := execute(t, "annotate", "--api-url", server.URL)
	assert.ErrorIs(t, err, config.ErrUnsupportedEcosystem)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestAnnotate_MissingManifest(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	t.Chdir(t.TempDir())
	t.Setenv("GITHUB_OUTPUT", "")

	stdout, _, err := execute(t, "annotate", "--api-url", server.URL)
	assert.ErrorIs(t, err, manifest.ErrManifestNotFound)
	assert.Equal(t, "::error::requirements.txt not found!\n", stdout)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestAnnotate_InvalidNameIsReportedAndRunContinues(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	workspace(t, "bad;name\nrequests\n")

	stdout, _, err := execute(t, "annotate", "--api-url", server.URL)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `::error file=requirements.txt::Invalid package name "bad;name" on line 1.`, lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "::notice file=requirements.txt::Package requests found."))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAnnotate_FailOnError(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	workspace(t, "requests\nflask\n")

	_, _, err := execute(t, "annotate", "--api-url", server.URL, "--fail-on-error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flask (line 2)")
}

func TestAnnotate_SarifReportFile(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	dir := workspace(t, "requests\nflask\n")

	_, _, err := execute(t, "annotate", "--api-url", server.URL, "--report-format", "sarif", "--report-file", "scorecheck.sarif")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "scorecheck.sarif"))
	require.NoError(t, err)
	var report output.SarifReport
	require.NoError(t, json.Unmarshal(data, &report))
	require.Len(t, report.Runs, 1)
	require.Len(t, report.Runs[0].Results, 2)
	assert.Equal(t, output.RulePackageFound, report.Runs[0].Results[0].RuleID)
	assert.Equal(t, output.RulePackageNotFound, report.Runs[0].Results[1].RuleID)
}

func TestAnnotate_TextReportOnStderr(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	workspace(t, "requests\n")

	stdout, stderr, err := execute(t, "annotate", "--api-url", server.URL, "-f", "text")
	require.NoError(t, err)
	assert.NotContains(t, stdout, "MATURITY", "stdout only carries workflow commands")
	assert.Contains(t, stderr, "MATURITY")
	assert.Contains(t, stderr, "requests")
}

func TestAnnotate_ConfigFile(t *testing.T) {
	var hits int32
	server := scoreServer(t, &hits)
	dir := workspace(t, "requests\ninternal-lib\n")
	cfgPath := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("apiUrl: "+server.URL+"\nignorePackages: [internal-lib]\n"), 0644))

	stdout, _, err := execute(t, "annotate", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestAnnotate_InvalidReportFormat(t *testing.T) {
	workspace(t, "requests\n")
	_, _, err := execute(t, "annotate", "--report-format", "xml")
	assert.ErrorContains(t, err, "unsupported report format")
}
