// Package annotate writes GitHub Actions workflow commands: annotations on the
// manifest and one step output per package.
package annotate

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// Severity of an annotation.
type Severity string

const (
	Notice  Severity = "notice"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// Record is one annotation plus the output value stored under the package name.
type Record struct {
	Severity Severity `json:"severity"`
	File     string   `json:"file,omitempty"`
	Package  string   `json:"package,omitempty"`
	Message  string   `json:"message"`
	Output   string   `json:"output,omitempty"`
}

// Emitter is the reporting sink.
type Emitter interface {
	Emit(r Record) error
}

// GitHubEmitter prints workflow commands to Out and appends outputs to the
// file named by GITHUB_OUTPUT. Without an output file it falls back to the
// deprecated ::set-output command.
type GitHubEmitter struct {
	Out        io.Writer
	OutputFile string

	// NewDelimiter returns the heredoc delimiter for multiline-safe outputs.
	NewDelimiter func() string
}

// NewGitHubEmitter creates an emitter writing commands to out.
func NewGitHubEmitter(out io.Writer, outputFile string) *GitHubEmitter {
	return &GitHubEmitter{
		Out:          out,
		OutputFile:   outputFile,
		NewDelimiter: func() string { return "ghadelimiter_" + uuid.NewString() },
	}
}

// FromEnvironment creates an emitter on stdout using $GITHUB_OUTPUT.
func FromEnvironment() *GitHubEmitter {
	return NewGitHubEmitter(os.Stdout, os.Getenv("GITHUB_OUTPUT"))
}

// Emit prints the annotation and records the package output.
func (e *GitHubEmitter) Emit(r Record) error {
	var props [][2]string
	if r.File != "" {
		props = append(props, [2]string{"file", r.File})
	}
	if _, err := fmt.Fprintln(e.Out, Command(string(r.Severity), props, r.Message)); err != nil {
		return fmt.Errorf("writing annotation: %w", err)
	}
	if r.Package == "" {
		return nil
	}
	return e.SetOutput(r.Package, r.Output)
}

// Fatal prints a run-level error that is not attached to a file.
func (e *GitHubEmitter) Fatal(message string) error {
	_, err := fmt.Fprintln(e.Out, Command(string(Error), nil, message))
	return err
}

// SetOutput records a step output.
func (e *GitHubEmitter) SetOutput(name, value string) error {
	if e.OutputFile == "" {
		_, err := fmt.Fprintln(e.Out, Command("set-output", [][2]string{{"name", name}}, value))
		return err
	}

	newDelimiter := e.NewDelimiter
	if newDelimiter == nil {
		newDelimiter = func() string { return "ghadelimiter_" + uuid.NewString() }
	}
	delimiter := newDelimiter()
	if strings.Contains(name, delimiter) || strings.Contains(value, delimiter) {
		return fmt.Errorf("output %s contains the delimiter %s", name, delimiter)
	}

	f, err := os.OpenFile(e.OutputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening output file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s<<%s\n%s\n%s\n", name, delimiter, value, delimiter); err != nil {
		return fmt.Errorf("writing output %s: %w", name, err)
	}
	return nil
}

// Command formats "::name key=value,...::message" with workflow command escaping.
func Command(name string, props [][2]string, message string) string {
	var b strings.Builder
	b.WriteString("::")
	b.WriteString(name)
	for i, p := range props {
		if i == 0 {
			b.WriteByte(' ')
		} else {
			b.WriteByte(',')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(escapeProperty(p[1]))
	}
	b.WriteString("::")
	b.WriteString(escapeData(message))
	return b.String()
}

var (
	dataEscaper     = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	propertyEscaper = strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
)

func escapeData(s string) string {
	return dataEscaper.Replace(s)
}

func escapeProperty(s string) string {
	return propertyEscaper.Replace(s)
}

// Recorder keeps every record in memory.
type Recorder struct {
	Records []Record
}

// Emit appends r.
func (m *Recorder) Emit(r Record) error {
	m.Records = append(m.Records, r)
	return nil
}
