// Package config loads gh-issue-slot settings from a TOML or YAML file and
// the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Sternrassler/gh-issue-slot/pkg/search"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// DefaultRepository is searched when no repository is configured.
const DefaultRepository = "PointCloudLibrary/pcl"

// Config is the complete configuration.
type Config struct {
	GitHub   GitHub            `toml:"github" yaml:"github"`
	Redis    Redis             `toml:"redis" yaml:"redis"`
	Log      Log               `toml:"log" yaml:"log"`
	Server   Server            `toml:"server" yaml:"server"`
	Commands map[string]Preset `toml:"commands" yaml:"commands"`
}

// GitHub configures API access.
type GitHub struct {
	BaseURL    string `toml:"base_url" yaml:"base_url"`
	Token      string `toml:"token" yaml:"token"`
	UserAgent  string `toml:"user_agent" yaml:"user_agent"`
	Repository string `toml:"repository" yaml:"repository"`

	// RequestTimeoutSeconds bounds every request.
	RequestTimeoutSeconds int `toml:"request_timeout_seconds" yaml:"request_timeout_seconds"`
}

// RequestTimeout returns the request timeout as a duration.
func (g GitHub) RequestTimeout() time.Duration {
	return time.Duration(g.RequestTimeoutSeconds) * time.Second
}

// Redis configures the optional revalidation cache. An empty URL disables it.
type Redis struct {
	URL              string `toml:"url" yaml:"url"`
	RetentionSeconds int    `toml:"retention_seconds" yaml:"retention_seconds"`
}

// Retention returns how long entries are kept for revalidation.
func (r Redis) Retention() time.Duration {
	return time.Duration(r.RetentionSeconds) * time.Second
}

// Log configures logging.
type Log struct {
	Level  string `toml:"level" yaml:"level"`
	Pretty bool   `toml:"pretty" yaml:"pretty"`
}

// Server configures the HTTP sink.
type Server struct {
	Port string `toml:"port" yaml:"port"`
}

// Preset holds the search settings of one command.
type Preset struct {
	// Repository overrides GitHub.Repository for this command.
	Repository     string   `toml:"repository" yaml:"repository"`
	Closed         bool     `toml:"closed" yaml:"closed"`
	IncludeLabels  []string `toml:"include_labels" yaml:"include_labels"`
	ExcludeLabels  []string `toml:"exclude_labels" yaml:"exclude_labels"`
	Sort           string   `toml:"sort" yaml:"sort"`
	AscendingOrder bool     `toml:"ascending_order" yaml:"ascending_order"`
}

// Query builds the search query of the preset.
func (p Preset) Query(repository string, kind search.Kind) search.Query {
	if p.Repository != "" {
		repository = p.Repository
	}
	state := search.StateOpen
	if p.Closed {
		state = search.StateClosed
	}

	return search.Query{
		Repository:    repository,
		State:         state,
		Kind:          kind,
		IncludeLabels: append([]string(nil), p.IncludeLabels...),
		ExcludeLabels: append([]string(nil), p.ExcludeLabels...),
		Sort:          p.Sort,
		Ascending:     p.AscendingOrder,
	}
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		GitHub: GitHub{
			BaseURL:               "https://api.github.com",
			UserAgent:             "gh-issue-slot/0.1.0",
			Repository:            DefaultRepository,
			RequestTimeoutSeconds: 30,
		},
		Redis: Redis{
			RetentionSeconds: int((24 * time.Hour).Seconds()),
		},
		Log: Log{
			Level: "info",
		},
		Server: Server{
			Port: "8080",
		},
		Commands: defaultPresets(),
	}
}

func defaultPresets() map[string]Preset {
	return map[string]Preset{
		"rand": {
			ExcludeLabels: []string{"status: stale"},
			Sort:          search.SortCreated,
		},
		"fq": {
			IncludeLabels:  []string{"needs: feedback"},
			Sort:           search.SortUpdated,
			AscendingOrder: true,
		},
		"rq": {
			IncludeLabels:  []string{"needs: code review"},
			Sort:           search.SortUpdated,
			AscendingOrder: true,
		},
	}
}

// Preset returns the preset of a command.
func (c *Config) Preset(command string) (Preset, error) {
	p, ok := c.Commands[command]
	if !ok {
		return Preset{}, fmt.Errorf("no preset for command %q", command)
	}
	return p, nil
}

// Query builds the search query of a command.
func (c *Config) Query(command string, kind search.Kind) (search.Query, error) {
	p, err := c.Preset(command)
	if err != nil {
		return search.Query{}, err
	}
	return p.Query(c.GitHub.Repository, kind), nil
}

// Load reads path over the defaults and applies environment overrides. An
// empty path loads the defaults only. Presets in the file replace the
// built-in preset of the same name.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	builtin := c.Commands
	c.Commands = nil

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(c); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return fmt.Errorf("parse %s: %s", path, strict.String())
			}
			return fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config format %q (use .toml, .yaml or .yml)", ext)
	}

	if c.Commands == nil {
		c.Commands = make(map[string]Preset, len(builtin))
	}
	for name, preset := range builtin {
		if _, ok := c.Commands[name]; !ok {
			c.Commands[name] = preset
		}
	}
	return nil
}

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GITHUB_TOKEN"); v != "" {
		c.GitHub.Token = v
	}
	if v := getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := getenv("PORT"); v != "" {
		c.Server.Port = v
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.GitHub.BaseURL == "" {
		return fmt.Errorf("github.base_url is required")
	}
	if c.GitHub.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("github.request_timeout_seconds must be > 0 (got %d)", c.GitHub.RequestTimeoutSeconds)
	}
	if c.Redis.RetentionSeconds < 0 {
		return fmt.Errorf("redis.retention_seconds must be >= 0 (got %d)", c.Redis.RetentionSeconds)
	}

	names := make([]string, 0, len(c.Commands))
	for name := range c.Commands {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		q := c.Commands[name].Query(c.GitHub.Repository, search.KindIssue)
		if err := q.Validate(); err != nil {
			return fmt.Errorf("commands.%s: %w", name, err)
		}
	}
	return nil
}
