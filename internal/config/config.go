// Package config loads the TOML configuration shared by the cty commands.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is read when no -config flag is given.
const DefaultPath = "config.toml"

// Config holds all application configuration.
type Config struct {
	Source  SourceConfig  `toml:"source"`
	Server  ServerConfig  `toml:"server"`
	Display DisplayConfig `toml:"display"`
}

// SourceConfig says where cty.dat comes from. Path wins over URL when both are set.
type SourceConfig struct {
	URL     string   `toml:"url"`
	Path    string   `toml:"path"`
	Timeout Duration `toml:"timeout"`
}

// ServerConfig holds settings for ctyserve.
type ServerConfig struct {
	Addr     string `toml:"addr"`
	LogLevel string `toml:"log_level"`
}

// DisplayConfig holds settings for ctylookup output.
type DisplayConfig struct {
	ShowWAE bool `toml:"show_wae"`
}

// Duration is a time.Duration written as a string ("30s") in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Source: SourceConfig{
			URL:     "https://www.country-files.com/cty/cty.dat",
			Timeout: Duration{30 * time.Second},
		},
		Server: ServerConfig{
			Addr:     ":8080",
			LogLevel: "INFO",
		},
	}
}

// Load reads path on top of the defaults. A missing file is not an error
// when path is DefaultPath.
func Load(path string) (Config, error) {
	conf := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
		return conf, nil
	}
	if err != nil {
		return conf, err
	}

	if err := Parse(data, &conf); err != nil {
		return conf, fmt.Errorf("%s: %w", path, err)
	}
	return conf, nil
}

// Parse decodes TOML data into conf, leaving unset keys untouched.
func Parse(data []byte, conf *Config) error {
	md, err := toml.Decode(string(data), conf)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key %q", undecoded[0].String())
	}
	if conf.Source.URL == "" && conf.Source.Path == "" {
		return errors.New("source: one of url or path is required")
	}
	if conf.Source.Timeout.Duration < 0 {
		return errors.New("source: timeout must not be negative")
	}
	return nil
}
