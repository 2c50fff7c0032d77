package tui

import (
	"os"

	"go.uber.org/zap"

	"github.com/goliatone/go-pickupform/pkg/visibility"
)

// Theme captures optional prefixes applied to printed messages.
type Theme struct {
	InfoPrefix    string
	ErrorPrefix   string
	WarningPrefix string
}

// DefaultTheme is used when no theme is configured.
var DefaultTheme = Theme{
	InfoPrefix:    "ℹ ",
	ErrorPrefix:   "✖ ",
	WarningPrefix: "⚠ ",
}

// StatFunc reports the size of an attachment path.
type StatFunc func(path string) (int64, error)

// Option configures the Runner.
type Option func(*Runner)

// WithPromptDriver overrides the prompt driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Runner) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithTheme applies message prefixes.
func WithTheme(theme Theme) Option {
	return func(r *Runner) {
		r.theme = theme
	}
}

// WithStat overrides how attachment sizes are read.
func WithStat(stat StatFunc) Option {
	return func(r *Runner) {
		if stat != nil {
			r.stat = stat
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithEvaluator sets the condition evaluator used to mark fields required.
// Use the same evaluator as the submit validator.
func WithEvaluator(eval visibility.Evaluator) Option {
	return func(r *Runner) {
		if eval != nil {
			r.eval = eval
		}
	}
}

// WithMaxAttempts bounds how many times the runner re-prompts after a
// failed submit before giving up.
func WithMaxAttempts(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxAttempts = n
		}
	}
}

func osStat(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}
