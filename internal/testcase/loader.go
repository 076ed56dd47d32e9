package testcase

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed all:testdata
var embeddedSuites embed.FS

const (
	defaultConcurrency = 10
	defaultDuration    = 30 * time.Second
	defaultPacing      = time.Second
	defaultSelector    = "uniform"
)

// ServiceRef points a test case at a Kubernetes Service instead of a fixed base URL.
type ServiceRef struct {
	Namespace string `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Name      string `yaml:"name" json:"name"`
	Port      int    `yaml:"port,omitempty" json:"port,omitempty"`
	Scheme    string `yaml:"scheme,omitempty" json:"scheme,omitempty"`
}

func (s ServiceRef) String() string {
	if s.Namespace == "" {
		return s.Name
	}
	return s.Namespace + "/" + s.Name
}

// ServiceResolver turns a service reference into a base URL.
type ServiceResolver interface {
	ResolveBaseURL(ctx context.Context, ref ServiceRef) (string, error)
}

// Options are the run defaults declared by a suite.
type Options struct {
	Concurrency int               `yaml:"concurrency" json:"concurrency"`
	Duration    time.Duration     `yaml:"duration" json:"duration"`
	Pacing      *time.Duration    `yaml:"pacing" json:"pacing"`
	Iterations  int               `yaml:"iterations,omitempty" json:"iterations,omitempty"`
	MaxRPS      float64           `yaml:"max_rps,omitempty" json:"max_rps,omitempty"`
	Selector    string            `yaml:"selector" json:"selector"`
	Thresholds  map[string]string `yaml:"thresholds,omitempty" json:"thresholds,omitempty"`
}

// PacingOrDefault returns the configured pacing delay.
func (o Options) PacingOrDefault() time.Duration {
	if o.Pacing == nil {
		return defaultPacing
	}
	return *o.Pacing
}

// Suite is a loaded and validated suite.
type Suite struct {
	Name         string
	Description  string
	Version      string
	Options      Options
	Registry     *Registry
	CommonChecks []CheckSpec
}

type suiteFile struct {
	Name         string      `yaml:"name"`
	Description  string      `yaml:"description"`
	Version      string      `yaml:"version"`
	Options      Options     `yaml:"options"`
	CommonChecks []checkFile `yaml:"common_checks"`
	TestCases    []caseFile  `yaml:"test_cases"`
}

type caseFile struct {
	Name        string            `yaml:"name"`
	Method      string            `yaml:"method"`
	BaseURL     string            `yaml:"base_url"`
	Service     *ServiceRef       `yaml:"service"`
	Path        string            `yaml:"path"`
	Description string            `yaml:"description"`
	Weight      *int              `yaml:"weight"`
	Thresholds  map[string]string `yaml:"thresholds"`
	Checks      []checkFile       `yaml:"checks"`
}

type checkFile struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Threshold   string `yaml:"threshold"`
	Rule        Rule   `yaml:"rule"`
}

type loadConfig struct {
	targetURL string
	resolver  ServiceResolver
}

// LoadOption customises suite loading.
type LoadOption func(*loadConfig)

// WithTargetURL replaces the base URL of every test case that does not
// reference a service.
func WithTargetURL(url string) LoadOption {
	return func(c *loadConfig) {
		c.targetURL = url
	}
}

// WithServiceResolver resolves service references to base URLs.
func WithServiceResolver(r ServiceResolver) LoadOption {
	return func(c *loadConfig) {
		c.resolver = r
	}
}

// Load loads a suite by name, searching first in the external directory
// (if provided), then in the embedded suites.
func Load(ctx context.Context, name string, externalDir string, opts ...LoadOption) (*Suite, error) {
	cfg := &loadConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if externalDir != "" {
		dir := filepath.Join(externalDir, name)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return loadFromFS(ctx, os.DirFS(dir), name, cfg)
		}
	}

	// embed.FS always uses forward slashes.
	subFS, err := fs.Sub(embeddedSuites, path.Join("testdata", name))
	if err != nil {
		return nil, fmt.Errorf("test suite %q not found: %w", name, err)
	}
	return loadFromFS(ctx, subFS, name, cfg)
}

// List returns the names of all available suites.
func List(externalDir string) ([]string, error) {
	seen := make(map[string]bool)
	var names []string

	entries, err := fs.ReadDir(embeddedSuites, "testdata")
	if err == nil {
		for _, e := range entries {
			if e.IsDir() {
				seen[e.Name()] = true
				names = append(names, e.Name())
			}
		}
	}

	if externalDir != "" {
		entries, err := os.ReadDir(externalDir)
		if err == nil {
			for _, e := range entries {
				if e.IsDir() && !seen[e.Name()] {
					names = append(names, e.Name())
				}
			}
		}
	}

	return names, nil
}

func loadFromFS(ctx context.Context, fsys fs.FS, name string, cfg *loadConfig) (*Suite, error) {
	data, err := fs.ReadFile(fsys, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read config.yaml for suite %q: %w", name, err)
	}

	var file suiteFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config.yaml for suite %q: %w", name, err)
	}
	if file.Name == "" {
		file.Name = name
	}
	applyDefaults(&file.Options)

	suite, err := build(ctx, &file, cfg)
	if err != nil {
		return nil, fmt.Errorf("suite %q: %w", name, err)
	}
	return suite, nil
}

func applyDefaults(o *Options) {
	if o.Concurrency == 0 {
		o.Concurrency = defaultConcurrency
	}
	if o.Duration == 0 {
		o.Duration = defaultDuration
	}
	if o.Pacing == nil {
		p := defaultPacing
		o.Pacing = &p
	}
	if o.Selector == "" {
		o.Selector = defaultSelector
	}
}

func build(ctx context.Context, file *suiteFile, cfg *loadConfig) (*Suite, error) {
	cerr := &ConfigError{}

	common := buildChecks(cerr, "common checks", file.CommonChecks)

	cases := make([]TestCase, 0, len(file.TestCases))
	for _, cf := range file.TestCases {
		baseURL, err := resolveBaseURL(ctx, cf, cfg)
		if err != nil {
			cerr.add("test case %q: %v", cf.Name, err)
		}

		weight := 1
		if cf.Weight != nil {
			weight = *cf.Weight
		}

		var basic map[BasicMetric]string
		if len(cf.Thresholds) > 0 {
			basic = make(map[BasicMetric]string, len(cf.Thresholds))
			for k, v := range cf.Thresholds {
				basic[BasicMetric(k)] = v
			}
		}

		cases = append(cases, TestCase{
			Name:            cf.Name,
			Method:          cf.Method,
			BaseURL:         baseURL,
			Path:            cf.Path,
			Description:     cf.Description,
			Weight:          weight,
			BasicThresholds: basic,
			Checks:          buildChecks(cerr, fmt.Sprintf("test case %q", cf.Name), cf.Checks),
		})
	}

	// Rule problems are reported first, then structural ones.
	if err := cerr.orNil(); err != nil {
		return nil, err
	}

	reg, err := NewRegistry(cases)
	if err != nil {
		return nil, err
	}
	if err := ValidateCommonChecks(common); err != nil {
		return nil, err
	}

	return &Suite{
		Name:         file.Name,
		Description:  file.Description,
		Version:      file.Version,
		Options:      file.Options,
		Registry:     reg,
		CommonChecks: common,
	}, nil
}

func buildChecks(cerr *ConfigError, owner string, files []checkFile) []CheckSpec {
	checks := make([]CheckSpec, 0, len(files))
	for _, f := range files {
		pred, err := f.Rule.Predicate()
		if err != nil {
			cerr.add("%s: check %q: %v", owner, f.Name, err)
		}
		checks = append(checks, CheckSpec{
			Name:        f.Name,
			Description: f.Description,
			Predicate:   pred,
			Threshold:   f.Threshold,
		})
	}
	return checks
}

func resolveBaseURL(ctx context.Context, cf caseFile, cfg *loadConfig) (string, error) {
	if cf.Service == nil {
		if cfg.targetURL != "" {
			return cfg.targetURL, nil
		}
		return cf.BaseURL, nil
	}
	if cfg.resolver == nil {
		return "", fmt.Errorf("references service %s but no service resolver is configured", cf.Service)
	}
	u, err := cfg.resolver.ResolveBaseURL(ctx, *cf.Service)
	if err != nil {
		return "", fmt.Errorf("failed to resolve service %s: %w", cf.Service, err)
	}
	return u, nil
}
