package config

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config key (e.g., "analysis.epsilon")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d validation errors:\n", len(e))
	for i, err := range e {
		fmt.Fprintf(&sb, "  %d. %s\n", i+1, err.Error())
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// ValidOutputFormats returns the list of valid report formats
func ValidOutputFormats() []string {
	return []string{"text", "json"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateAnalysis()...)
	errors = append(errors, c.validateProbability()...)
	errors = append(errors, c.validateOutput()...)

	if !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Server.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "server.addr",
			Value:   c.Server.Addr,
			Message: "must not be empty",
		})
	}

	if c.State.Dir == "" {
		errors = append(errors, ValidationError{
			Field:   "state.dir",
			Value:   c.State.Dir,
			Message: "must not be empty",
		})
	}

	return errors
}

func (c *Config) validateAnalysis() []ValidationError {
	var errors []ValidationError

	// Anything coarser than 1e-3 would merge visibly different schedules.
	const maxEpsilon = 1e-3
	if eps := c.Analysis.Epsilon; math.IsNaN(eps) || eps <= 0 || eps > maxEpsilon {
		errors = append(errors, ValidationError{
			Field:   "analysis.epsilon",
			Value:   eps,
			Message: fmt.Sprintf("must be in (0, %g]", maxEpsilon),
		})
	}

	if c.Analysis.MaxCriticalPaths < 0 {
		errors = append(errors, ValidationError{
			Field:   "analysis.max_critical_paths",
			Value:   c.Analysis.MaxCriticalPaths,
			Message: "must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateProbability() []ValidationError {
	var errors []ValidationError

	if d := c.Probability.DefaultDeadline; math.IsNaN(d) || math.IsInf(d, 0) || d < 0 {
		errors = append(errors, ValidationError{
			Field:   "probability.default_deadline",
			Value:   d,
			Message: "must be a finite, non-negative number",
		})
	}

	if p := c.Probability.Confidence; math.IsNaN(p) || p <= 0 || p >= 1 {
		errors = append(errors, ValidationError{
			Field:   "probability.confidence",
			Value:   p,
			Message: "must be strictly between 0 and 1",
		})
	}

	return errors
}

func (c *Config) validateOutput() []ValidationError {
	if slices.Contains(ValidOutputFormats(), c.Output.Format) {
		return nil
	}
	return []ValidationError{{
		Field:   "output.format",
		Value:   c.Output.Format,
		Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidOutputFormats(), ", ")),
	}}
}
