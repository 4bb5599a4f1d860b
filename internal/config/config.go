// Package config reads the optional .ast-search.hcl file. Values set there
// fill in any flag the user did not pass on the command line.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"slices"

	"github.com/hashicorp/hcl/v2/hclsimple"

	"github.com/shiplet/ast-search/api"
	"github.com/shiplet/ast-search/internal/ingest"
)

// DefaultFile is looked up in the working directory when --config is not
// given.
const DefaultFile = ".ast-search.hcl"

// Config holds settings shared by the commands.
type Config struct {
	Expression string
	Multiple   bool
	Workers    int
	Strict     bool
	LogLevel   string
	LogJSON    bool
	Database   string
	Extensions []string
	Exclude    []string
}

// file mirrors Config with pointers so unset attributes keep their defaults.
type file struct {
	Expression *string   `hcl:"expression,optional"`
	Multiple   *bool     `hcl:"multiple,optional"`
	Workers    *int      `hcl:"workers,optional"`
	Strict     *bool     `hcl:"strict,optional"`
	LogLevel   *string   `hcl:"log_level,optional"`
	LogJSON    *bool     `hcl:"log_json,optional"`
	Database   *string   `hcl:"database,optional"`
	Extensions *[]string `hcl:"extensions,optional"`
	Exclude    *[]string `hcl:"exclude,optional"`
}

func Default() Config {
	return Config{
		Expression: string(api.ThisExpression),
		Workers:    runtime.NumCPU(),
		LogLevel:   "warn",
		Extensions: slices.Clone(ingest.DefaultExtensions),
		Exclude:    []string{"node_modules", ".git"},
	}
}

// Load reads path on top of Default. A missing file is reported with an
// error matching os.ErrNotExist.
func Load(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, err
	}
	var f file
	if err := hclsimple.DecodeFile(path, nil, &f); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return f.merge()
}

// Decode parses HCL source; filename is used in diagnostics and must end in
// .hcl.
func Decode(filename string, src []byte) (Config, error) {
	var f file
	if err := hclsimple.Decode(filename, src, nil, &f); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", filename, err)
	}
	return f.merge()
}

// Discover loads path, or DefaultFile when path is empty. Only the implicit
// default may be absent.
func Discover(path string) (Config, error) {
	if path != "" {
		return Load(path)
	}
	cfg, err := Load(DefaultFile)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func (f file) merge() (Config, error) {
	c := Default()
	set(&c.Expression, f.Expression)
	set(&c.Multiple, f.Multiple)
	set(&c.Workers, f.Workers)
	set(&c.Strict, f.Strict)
	set(&c.LogLevel, f.LogLevel)
	set(&c.LogJSON, f.LogJSON)
	set(&c.Database, f.Database)
	set(&c.Extensions, f.Extensions)
	set(&c.Exclude, f.Exclude)
	return c, c.Validate()
}

func set[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}

// Validate checks values the HCL schema cannot express.
func (c Config) Validate() error {
	if !api.ExpressionKind(c.Expression).Valid() {
		return fmt.Errorf("config: %w %q", api.ErrUnknownExpression, c.Expression)
	}
	if c.Workers < 0 {
		return fmt.Errorf("config: workers must not be negative, got %d", c.Workers)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("config: log_level: %w", err)
	}
	return l, nil
}
