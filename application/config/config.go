// Package config loads and validates the runtime configuration file.
package config

import (
	"bytes"
	stdErrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gal-dev/galrt/domain/errors"
	"github.com/gal-dev/galrt/log"
)

// Defaults applied by Parse to fields the file leaves empty.
const (
	DefaultLogLevel = "info"
	DefaultLanguage = "en"
)

// Config is the runtime configuration file.
type Config struct {
	// Ident names the installation. Settings and records are stored under it.
	Ident string `yaml:"ident" validate:"required,excludesall=/\\" jsonschema:"description=Installation identifier"`

	// Game selects the records directory of the loaded game.
	Game string `yaml:"game,omitempty" validate:"omitempty,excludesall=/\\"`

	// PluginDir holds the *.wasm plugin modules.
	PluginDir string `yaml:"plugin_dir" validate:"required" jsonschema:"description=Directory holding .wasm plugin modules"`

	// Plugins restricts loading to the named plugins, in order. Empty loads
	// every module in PluginDir.
	Plugins []string `yaml:"plugins,omitempty" validate:"dive,required"`

	// Resources are YAML resource layer files. Earlier files win.
	Resources []string `yaml:"resources,omitempty" validate:"dive,required"`

	LogLevel string `yaml:"log_level,omitempty" validate:"omitempty,oneof=trace debug info warn error" jsonschema:"enum=trace,enum=debug,enum=info,enum=warn,enum=error,default=info"`

	// Language is a BCP-47 tag.
	Language string `yaml:"language,omitempty" validate:"omitempty,bcp47_language_tag" jsonschema:"default=en"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their YAML key.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Load reads and validates the file at path. Relative PluginDir and
// Resources paths are resolved against the directory of the file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := Parse(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	cfg.resolve(filepath.Dir(path))
	return cfg, nil
}

// Parse decodes a YAML document, applies defaults and validates the
// result. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil && !stdErrors.Is(err, io.EOF) {
		return Config{}, &errors.ConfigError{Err: err}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the field constraints and returns a ConfigError naming
// the first offending field.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		field := ""
		var verrs validator.ValidationErrors
		if stdErrors.As(err, &verrs) && len(verrs) > 0 {
			field = verrs[0].Field()
		}
		return &errors.ConfigError{Field: field, Err: err}
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c Config) SlogLevel() slog.Level {
	l, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return l
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.Language == "" {
		c.Language = DefaultLanguage
	}
}

func (c *Config) resolve(base string) {
	c.PluginDir = join(base, c.PluginDir)
	for i, r := range c.Resources {
		c.Resources[i] = join(base, r)
	}
}

func join(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
