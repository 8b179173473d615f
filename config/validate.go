package config

import (
	"fmt"
	"io"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/yaklabco/themepipe/pkg/fsutils"
)

const maxPort = 65535

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("config warning: %s: %s", w.Field, w.Message)
}

// ValidationResults holds the results of configuration validation.
type ValidationResults struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// HasErrors returns true if there are validation errors.
func (r ValidationResults) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are validation warnings.
func (r ValidationResults) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// ErrorMessage returns a combined error message for all validation errors.
func (r ValidationResults) ErrorMessage() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// WriteWarnings writes all warnings to the given writer.
func (r ValidationResults) WriteWarnings(w io.Writer) {
	for _, warn := range r.Warnings {
		_, _ = fmt.Fprintln(w, warn.String())
	}
}

func (r *ValidationResults) errorf(field, format string, args ...any) {
	r.Errors = append(r.Errors, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResults) warnf(field, format string, args ...any) {
	r.Warnings = append(r.Warnings, ValidationWarning{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Validate checks the configuration for errors and warnings. Missing
// required keys and out-of-range values are errors; inputs that do not
// exist yet are warnings.
func (c *Config) Validate() ValidationResults {
	var result ValidationResults

	if len(c.Compatibility) == 0 {
		result.errorf("compatibility", "required, must list at least one browser target")
	}
	if c.Port < 1 || c.Port > maxPort {
		result.errorf("port", "required, must be between 1 and %d (got %d)", maxPort, c.Port)
	}
	if !c.sassSet {
		result.errorf("paths.sass", "required (use an empty list for no include paths)")
	}
	if len(c.Paths.JavaScript) == 0 {
		result.errorf("paths.javascript", "required, must list at least one file")
	}
	if c.Lint.IndentSize < 0 {
		result.errorf("lint.indent_size", "must not be negative (got %d)", c.Lint.IndentSize)
	}
	if c.Watch.Debounce < 0 {
		result.errorf("watch.debounce", "must not be negative (got %s)", c.Watch.Debounce)
	}
	if c.Hugo.Binary == "" {
		result.errorf("hugo.binary", "must not be empty")
	}

	if c.Hugo.MinVersion != "" {
		if _, err := semver.NewVersion(c.Hugo.MinVersion); err != nil {
			result.warnf("hugo.min_version", "ignoring unparseable version %q: %v", c.Hugo.MinVersion, err)
		}
	}
	if c.Paths.Raw != "" && !fsutils.Exists(c.Paths.Raw) {
		result.warnf("paths.raw", "directory %s does not exist", c.Paths.Raw)
	}
	for _, js := range c.Paths.JavaScript {
		if !strings.ContainsAny(js, "*?[{") && !fsutils.Exists(js) {
			result.warnf("paths.javascript", "file %s does not exist", js)
		}
	}

	return result
}
