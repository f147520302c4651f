package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	verboseMode bool
	log         = logrus.New()
)

func init() {
	// stdout is reserved for workflow commands, so every log line goes to stderr.
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp:       true,
		DisableLevelTruncation: true,
	})
	log.SetLevel(logrus.InfoLevel)
}

// SetVerbose enables or disables verbose logging.
func SetVerbose(verbose bool) {
	verboseMode = verbose
	if verbose {
		log.SetLevel(logrus.DebugLevel)
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	return verboseMode
}

// SetOutput redirects log output, mostly for tests.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Logger exposes the underlying logrus logger so tests can attach hooks.
func Logger() *logrus.Logger {
	return log
}

// WithPackage returns an entry tagged with the package being processed.
func WithPackage(name string) *logrus.Entry {
	return log.WithField("package", name)
}

// Debugf logs a formatted debug message if verbose mode is enabled.
func Debugf(format string, v ...interface{}) {
	log.Debugf(format, v...)
}

// Infof logs a formatted informational message.
func Infof(format string, v ...interface{}) {
	log.Infof(format, v...)
}

// Warnf logs a formatted warning.
func Warnf(format string, v ...interface{}) {
	log.Warnf(format, v...)
}

// Errorf logs a formatted error message.
func Errorf(format string, v ...interface{}) {
	log.Errorf(format, v...)
}
