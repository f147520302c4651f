// Package manifest reads pip requirements files and turns their lines into
// package names that are safe to put in a request path.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/sambabib/scorecheck/pkg/logger"
)

var (
	// ErrManifestNotFound is returned when the manifest path does not exist.
	ErrManifestNotFound = errors.New("manifest not found")
	// ErrManifestUnreadable is returned for any other failure reading the manifest.
	ErrManifestUnreadable = errors.New("manifest unreadable")
	// ErrInvalidPackageName is returned by ValidateName.
	ErrInvalidPackageName = errors.New("invalid package name")
)

// constraintOperators start a version clause: requests>=2.0, flask~=2.3, six!=1.0
const constraintOperators = "<>=~!"

var namePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// Candidate is a manifest line reduced to a package name and its version clause.
type Candidate struct {
	Line      int    // 1-based line number in the manifest
	Raw       string // line content as read, without the line break
	Name      string // name with version clause and comment removed
	Specifier string // version clause, e.g. "==2.31.0"; empty when unpinned
}

// PinnedVersion returns the exact version for an "==" pin, or "" when the
// specifier is a range, a wildcard, or not a valid version.
func (c Candidate) PinnedVersion() string {
	spec := strings.TrimSpace(c.Specifier)
	if !strings.HasPrefix(spec, "==") || strings.HasPrefix(spec, "===") {
		return ""
	}
	pinned := strings.TrimSpace(strings.TrimPrefix(spec, "=="))
	if pinned == "" || strings.ContainsAny(pinned, ",*;") {
		return ""
	}
	v, err := semver.NewVersion(pinned)
	if err != nil {
		logger.Debugf("manifest: %q is not a comparable version: %v", pinned, err)
		return ""
	}
	return v.Original()
}

// Read returns the manifest contents.
func Read(path string) (string, error) {
	logger.Debugf("manifest: reading %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrManifestNotFound, path)
		}
		return "", fmt.Errorf("%w: %s: %w", ErrManifestUnreadable, path, err)
	}
	return string(data), nil
}

// Candidates yields one Candidate per line that names a package. Blank lines,
// comment lines and option lines ("-e .", "-r base.txt", "--index-url ...")
// yield nothing.
func Candidates(text string) iter.Seq[Candidate] {
	return func(yield func(Candidate) bool) {
		lineNum := 0
		for raw := range strings.Lines(text) {
			lineNum++
			raw = strings.TrimRight(raw, "\r\n")
			c, ok := ParseLine(raw)
			if !ok {
				logger.Debugf("manifest: skipping line %d: %q", lineNum, raw)
				continue
			}
			c.Line = lineNum
			if !yield(c) {
				return
			}
		}
	}
}

// ParseLine reduces a single requirements line to a Candidate. The boolean is
// false for lines that carry no package.
func ParseLine(line string) (Candidate, bool) {
	content, _, _ := strings.Cut(line, "#")
	content = strings.TrimSpace(content)
	if content == "" || strings.HasPrefix(content, "-") {
		return Candidate{}, false
	}

	name, specifier := content, ""
	if i := strings.IndexAny(content, constraintOperators); i >= 0 {
		name, specifier = content[:i], content[i:]
	}
	return Candidate{
		Raw:       line,
		Name:      strings.TrimSpace(name),
		Specifier: strings.TrimSpace(specifier),
	}, true
}

// ValidateName accepts names made only of letters, digits, '.', '_' and '-'.
func ValidateName(name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidPackageName, name)
	}
	return nil
}
