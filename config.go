package unconsole

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const DefaultConfigFile = ".unconsole.yaml"

// Config holds the settings shared by the CLI and the YAML config file.
type Config struct {
	Root                 string   `yaml:"root"`
	Extensions           []string `yaml:"extensions"`
	Exclude              []string `yaml:"exclude"`
	ExtraMethods         []string `yaml:"extra_methods,omitempty"`
	DisableSupplementary bool     `yaml:"disable_supplementary,omitempty"`
	FailFast             bool     `yaml:"fail_fast"`
	Jobs                 int      `yaml:"jobs"`
	History              bool     `yaml:"history"`

	// Runtime-only switches set from flags.
	DryRun       bool   `yaml:"-"`
	Watch        bool   `yaml:"-"`
	Filter       bool   `yaml:"-"`
	Markdown     bool   `yaml:"-"`
	Undo         bool   `yaml:"-"`
	Redo         bool   `yaml:"-"`
	RequireClean bool   `yaml:"-"`
	Nvim         bool   `yaml:"-"`
	NoAnimation  bool   `yaml:"-"`
	MetricsFile  string `yaml:"-"`
	StateDir     string `yaml:"-"`
}

func DefaultConfig() *Config {
	return &Config{
		Root:       "src",
		Extensions: append([]string(nil), DefaultExtensions...),
		Exclude:    append([]string(nil), DefaultExclude...),
		Jobs:       1,
		History:    true,
	}
}

// LoadConfig reads path over the defaults. When path is empty the default config file
// in the working directory is used if present.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	explicit := path != ""
	if !explicit {
		path = DefaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate normalises extensions and rejects settings that would break the rule
// invariants.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Root) == "" {
		return errors.New("root must not be empty")
	}
	if c.Jobs < 0 {
		return fmt.Errorf("jobs must be >= 0, got %d", c.Jobs)
	}
	if c.Undo && c.Redo {
		return errors.New("--undo and --redo are mutually exclusive")
	}
	if c.Markdown && !c.Filter {
		return errors.New("--markdown requires --filter")
	}
	normalizeExtensions(c.Extensions)
	for _, m := range c.ExtraMethods {
		if _, ok := protectedMethods[strings.TrimSpace(m)]; ok {
			return fmt.Errorf("extra_methods: console.%s: %w", m, ErrProtectedMethod)
		}
	}
	return nil
}

func (c *Config) Options() Options {
	return Options{
		Extensions: c.Extensions,
		Exclude:    c.Exclude,
		FailFast:   c.FailFast,
		Jobs:       c.Jobs,
		DryRun:     c.DryRun,
	}
}

func (c *Config) Rules() (RuleSet, error) {
	return NewRuleSet(c.ExtraMethods, !c.DisableSupplementary)
}

func normalizeExtensions(exts []string) {
	for i, ext := range exts {
		ext = strings.TrimSpace(ext)
		if len(ext) > 0 && ext[0] != '.' {
			ext = "." + ext
		}
		exts[i] = ext
	}
}
