// Package config loads harness settings from defaults, an optional YAML
// file, and the environment, in that order of precedence (lowest first).
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvAppURL        = "APP_URL"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvRoundDuration = "ROUND_DURATION"
	EnvWorkspace     = "CLICKCHECK_WORKSPACE"
	EnvBrowserCLI    = "CLICKCHECK_BROWSER_CLI"
	EnvPsql          = "CLICKCHECK_PSQL"
	EnvChromeURL     = "CLICKCHECK_CHROME_URL"
)

// Browser driver and data-store backend names.
const (
	DriverCLI = "cli"
	DriverRod = "rod"
	DBPsql    = "psql"
	DBSQL     = "sql"
)

// Matcher chain names that may be overridden under "matchers".
var MatcherKeys = []string{"create", "name", "submit", "code", "join", "ready"}

// Config is the full harness configuration.
type Config struct {
	AppURL        string `yaml:"app_url"        json:"app_url"        jsonschema:"description=Base URL of the game server"`
	DatabaseURL   string `yaml:"database_url"   json:"database_url"   jsonschema:"description=PostgreSQL connection URL"`
	RoundDuration int    `yaml:"round_duration" json:"round_duration" jsonschema:"minimum=1,description=Round length in seconds"`

	Driver     string `yaml:"driver"      json:"driver"      jsonschema:"enum=cli,enum=rod"`
	DB         string `yaml:"db"          json:"db"          jsonschema:"enum=psql,enum=sql"`
	Workspace  string `yaml:"workspace"   json:"workspace"   jsonschema:"description=Directory snapshot artifact links resolve against"`
	BrowserCLI string `yaml:"browser_cli" json:"browser_cli"`
	Psql       string `yaml:"psql"        json:"psql"`
	ChromeURL  string `yaml:"chrome_url,omitempty" json:"chrome_url,omitempty" jsonschema:"description=DevTools URL of a running Chrome for the rod driver"`

	ScreenshotDir string `yaml:"screenshot_dir" json:"screenshot_dir"`
	RunDir        string `yaml:"run_dir"        json:"run_dir"        jsonschema:"description=Where trace.jsonl and run.yaml are written"`

	Actors      []Actor             `yaml:"actors"             json:"actors"             jsonschema:"minItems=2,maxItems=2"`
	Waits       Waits               `yaml:"waits"              json:"waits"`
	Interaction Interaction         `yaml:"interaction"        json:"interaction"`
	Matchers    map[string][]string `yaml:"matchers,omitempty" json:"matchers,omitempty" jsonschema:"description=Per-chain expr-lang predicates over desc (lower-cased) and raw"`
}

// Actor is one simulated player.
type Actor struct {
	Label string `yaml:"label" json:"label" jsonschema:"minLength=1,pattern=^[A-Za-z0-9_-]+$"`
	Name  string `yaml:"name"  json:"name"  jsonschema:"minLength=1"`
}

// Waits holds fixed settle delays and persistence budgets, in milliseconds.
type Waits struct {
	NavigationMS int `yaml:"navigation_ms"  json:"navigation_ms"  jsonschema:"minimum=0"`
	ClickMS      int `yaml:"click_ms"       json:"click_ms"       jsonschema:"minimum=0"`
	FillMS       int `yaml:"fill_ms"        json:"fill_ms"        jsonschema:"minimum=0"`
	ReadyMS      int `yaml:"ready_ms"       json:"ready_ms"       jsonschema:"minimum=0"`
	CountdownMS  int `yaml:"countdown_ms"   json:"countdown_ms"   jsonschema:"minimum=0"`
	SceneMS      int `yaml:"scene_ms"       json:"scene_ms"       jsonschema:"minimum=0"`
	FlushMS      int `yaml:"flush_ms"       json:"flush_ms"       jsonschema:"minimum=0"`
	IntervalMS   int `yaml:"interval_ms"    json:"interval_ms"    jsonschema:"minimum=0"`
}

// Interaction controls target clicking.
type Interaction struct {
	Attempts         int    `yaml:"attempts"           json:"attempts"           jsonschema:"minimum=1"`
	ClicksPerAttempt int    `yaml:"clicks_per_attempt" json:"clicks_per_attempt" jsonschema:"minimum=1"`
	Selector         string `yaml:"selector"           json:"selector"           jsonschema:"minLength=1"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		AppURL:        "http://localhost:8080",
		DatabaseURL:   "postgres://clicktrainer:clicktrainer@db:5432/clicktrainer?sslmode=disable",
		RoundDuration: 5,
		Driver:        DriverCLI,
		DB:            DBPsql,
		Workspace:     "/workspace",
		BrowserCLI:    "playwright-cli",
		Psql:          "psql",
		ScreenshotDir: "screenshots",
		RunDir:        ".clickcheck/runs",
		Actors: []Actor{
			{Label: "p1", Name: "Alice"},
			{Label: "p2", Name: "Bob"},
		},
		Waits: Waits{
			NavigationMS: 1000,
			ClickMS:      1000,
			FillMS:       500,
			ReadyMS:      500,
			CountdownMS:  5000,
			SceneMS:      2000,
			FlushMS:      5000,
			IntervalMS:   1000,
		},
		Interaction: Interaction{
			Attempts:         3,
			ClicksPerAttempt: 2,
			Selector:         "circle[data-points]",
		},
	}
}

// Duration converts a millisecond setting.
func Duration(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// RoundBudget is how long to wait for the round to end and be persisted.
func (c *Config) RoundBudget() time.Duration {
	return time.Duration(c.RoundDuration)*time.Second + Duration(c.Waits.FlushMS)
}

// Decode overlays YAML from r onto c, rejecting unknown fields.
func (c *Config) Decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// LoadFile reads defaults overlaid with the YAML file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	c := Default()
	if err := c.Decode(f); err != nil {
		return nil, err
	}
	return c, nil
}

// ApplyEnv overrides settings from the environment. lookup is usually
// os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAppURL); ok && v != "" {
		c.AppURL = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		c.DatabaseURL = v
	}
	if v, ok := lookup(EnvRoundDuration); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvRoundDuration, err)
		}
		c.RoundDuration = n
	}
	if v, ok := lookup(EnvWorkspace); ok && v != "" {
		c.Workspace = v
	}
	if v, ok := lookup(EnvBrowserCLI); ok && v != "" {
		c.BrowserCLI = v
	}
	if v, ok := lookup(EnvPsql); ok && v != "" {
		c.Psql = v
	}
	if v, ok := lookup(EnvChromeURL); ok && v != "" {
		c.ChromeURL = v
	}
	return nil
}

// Load builds the effective configuration: defaults, then path (if not
// empty), then the process environment.
func Load(path string) (*Config, error) {
	c := Default()
	if path != "" {
		var err error
		if c, err = LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := c.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return c, nil
}
