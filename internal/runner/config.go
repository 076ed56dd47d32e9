package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/giantswarm/load-testing/internal/testcase"
)

// DefaultGracefulStop is how long in-flight iterations may run past the
// configured duration.
const DefaultGracefulStop = 30 * time.Second

// Config controls how a suite is executed.
type Config struct {
	// Concurrency is the number of virtual users.
	Concurrency int
	// Duration is how long virtual users keep starting iterations.
	Duration time.Duration
	// Pacing is the delay each virtual user waits after an iteration.
	Pacing time.Duration
	// Iterations caps the total number of iterations. Zero means unlimited.
	Iterations int
	// MaxRPS caps the request rate across all virtual users. Zero means unlimited.
	MaxRPS float64
	// Selector names the test case selection strategy.
	Selector string
	// GracefulStop bounds in-flight iterations after Duration elapses.
	GracefulStop time.Duration
}

// ConfigError lists every invalid field of a Config.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return "invalid run configuration: " + strings.Join(e.Problems, "; ")
}

// ConfigFromOptions builds a Config from the defaults declared by a suite.
func ConfigFromOptions(o testcase.Options) Config {
	return Config{
		Concurrency:  o.Concurrency,
		Duration:     o.Duration,
		Pacing:       o.PacingOrDefault(),
		Iterations:   o.Iterations,
		MaxRPS:       o.MaxRPS,
		Selector:     o.Selector,
		GracefulStop: DefaultGracefulStop,
	}
}

// Validate returns a *ConfigError if any field is out of range.
func (c Config) Validate() error {
	var problems []string
	if c.Concurrency <= 0 {
		problems = append(problems, fmt.Sprintf("concurrency must be positive, got %d", c.Concurrency))
	}
	if c.Duration <= 0 {
		problems = append(problems, fmt.Sprintf("duration must be positive, got %s", c.Duration))
	}
	if c.Pacing < 0 {
		problems = append(problems, fmt.Sprintf("pacing must not be negative, got %s", c.Pacing))
	}
	if c.Iterations < 0 {
		problems = append(problems, fmt.Sprintf("iterations must not be negative, got %d", c.Iterations))
	}
	if c.MaxRPS < 0 {
		problems = append(problems, fmt.Sprintf("max RPS must not be negative, got %g", c.MaxRPS))
	}
	if c.GracefulStop < 0 {
		problems = append(problems, fmt.Sprintf("graceful stop must not be negative, got %s", c.GracefulStop))
	}
	if len(problems) > 0 {
		return &ConfigError{Problems: problems}
	}
	return nil
}
