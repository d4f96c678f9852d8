// Package genconfig loads header generator configuration from TOML or
// YAML files.
package genconfig

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/headers"
)

// Config is a generator configuration file.
type Config struct {
	Output Output `toml:"output" yaml:"output"`
	Header Header `toml:"header" yaml:"header"`

	// Dir is the directory containing the file (set at load time).
	Dir string `toml:"-" yaml:"-"`
}

// Output selects what is generated and where.
type Output struct {
	Dir   string   `toml:"dir" yaml:"dir"`
	Name  string   `toml:"name" yaml:"name"`
	Langs []string `toml:"langs" yaml:"langs"`
}

// Header configures the generated text.
type Header struct {
	LayoutAsserts *bool  `toml:"layout-asserts" yaml:"layout-asserts"`
	Guard         string `toml:"guard" yaml:"guard"`
	Banner        string `toml:"banner" yaml:"banner"`
	Library       string `toml:"library" yaml:"library"`
	Namespace     string `toml:"namespace" yaml:"namespace"`
}

// Langs lists the supported target languages.
var Langs = []string{"c", "csharp"}

// Default returns the configuration used without a file.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads a .toml, .yaml or .yml file, applies defaults and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindIO).
			Path(path).
			Cause(err).
			Detail("cannot read config").
			Build()
	}

	var c *Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		c, err = ParseTOML(data)
	case ".yaml", ".yml":
		c, err = ParseYAML(data)
	default:
		return nil, errors.New(errors.PhaseConfig, errors.KindUnsupported).
			Path(path).
			Detail("unknown config format %q", ext).
			Build()
	}
	if err != nil {
		return nil, err
	}

	c.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindIO, err, "resolve config directory")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParseTOML decodes a TOML configuration. Unknown keys are rejected.
func ParseTOML(data []byte) (*Config, error) {
	var c Config
	md, err := toml.Decode(string(data), &c)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse TOML")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
			Detail("unknown keys: %s", strings.Join(keys, ", ")).
			Build()
	}
	c.applyDefaults()
	return &c, nil
}

// ParseYAML decodes a YAML configuration. Unknown fields are rejected.
func ParseYAML(data []byte) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "parse YAML")
	}
	c.applyDefaults()
	return &c, nil
}

func (c *Config) applyDefaults() {
	def := headers.DefaultOptions()
	if len(c.Output.Langs) == 0 {
		c.Output.Langs = []string{"c"}
	}
	if c.Output.Name == "" {
		c.Output.Name = def.Library
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "."
	}
	if c.Header.Library == "" {
		c.Header.Library = def.Library
	}
	if c.Header.Namespace == "" {
		c.Header.Namespace = def.Namespace
	}
	if c.Header.Banner == "" {
		c.Header.Banner = def.Banner
	}
	if c.Header.LayoutAsserts == nil {
		asserts := def.LayoutAsserts
		c.Header.LayoutAsserts = &asserts
	}
}

// Validate checks the configuration after defaults are applied.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Output.Langs))
	for _, lang := range c.Output.Langs {
		if !supported(lang) {
			return errors.New(errors.PhaseConfig, errors.KindUnsupported).
				Path("output", "langs").
				Value(lang).
				Detail("unknown language %q (supported: %s)", lang, strings.Join(Langs, ", ")).
				Build()
		}
		if seen[lang] {
			return errors.New(errors.PhaseConfig, errors.KindDuplicate).
				Path("output", "langs").
				Value(lang).
				Detail("language %q listed twice", lang).
				Build()
		}
		seen[lang] = true
	}
	if strings.ContainsAny(c.Output.Name, `/\`) {
		return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Path("output", "name").
			Detail("output name must be a file name, got %q", c.Output.Name).
			Build()
	}
	return nil
}

func supported(lang string) bool {
	for _, l := range Langs {
		if l == lang {
			return true
		}
	}
	return false
}

// Options returns the generation options the configuration describes.
func (c *Config) Options() headers.Options {
	opts := headers.Options{
		Guard:     c.Header.Guard,
		Banner:    c.Header.Banner,
		Library:   c.Header.Library,
		Namespace: c.Header.Namespace,
	}
	if c.Header.LayoutAsserts != nil {
		opts.LayoutAsserts = *c.Header.LayoutAsserts
	}
	return opts
}

// OutputPath returns the file a backend with extension ext writes to.
// Relative output directories are resolved against Dir.
func (c *Config) OutputPath(ext string) string {
	dir := c.Output.Dir
	if !filepath.IsAbs(dir) && c.Dir != "" {
		dir = filepath.Join(c.Dir, dir)
	}
	return filepath.Join(dir, c.Output.Name+"."+ext)
}
