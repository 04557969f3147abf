//go:build linux || darwin

package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joeycumines/goja-uv/bridge"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the CLI configuration, read from YAML or TOML.
type Config struct {
	LogLevel       string `yaml:"log_level" toml:"log_level"`
	LogFormat      string `yaml:"log_format" toml:"log_format"`
	ReadBufferSize int    `yaml:"read_buffer_size" toml:"read_buffer_size"`
	ListenBacklog  int    `yaml:"listen_backlog" toml:"listen_backlog"`
	NoDelay        bool   `yaml:"no_delay" toml:"no_delay"`
	Metrics        bool   `yaml:"metrics" toml:"metrics"`
}

// configFiles are searched for, in order, under the XDG config dirs.
var configFiles = []string{
	"gojauv/config.yaml",
	"gojauv/config.yml",
	"gojauv/config.toml",
}

func defaultConfig() Config {
	return Config{
		LogLevel:       "info",
		LogFormat:      formatAuto,
		ReadBufferSize: bridge.DefaultReadBufferSize,
		ListenBacklog:  bridge.DefaultBacklog,
	}
}

// findConfig returns the first config file found under the XDG config dirs.
func findConfig() (string, bool) {
	for _, name := range configFiles {
		if path, err := xdg.SearchConfigFile(name); err == nil {
			return path, true
		}
	}
	return "", false
}

// loadConfig reads the config at path, or the default location if path is
// empty. Unset keys keep their defaults. The result is not validated.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		var ok bool
		if path, ok = findConfig(); !ok {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err = dec.Decode(&cfg); errors.Is(err, io.EOF) {
			err = nil
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err = dec.Decode(&cfg)
	default:
		err = fmt.Errorf("unsupported format %q", ext)
	}
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) validate() error {
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case formatAuto, formatJSON, formatConsole:
	default:
		return fmt.Errorf("invalid log format %q", c.LogFormat)
	}
	if c.ReadBufferSize <= 0 {
		return fmt.Errorf("invalid read buffer size %d", c.ReadBufferSize)
	}
	if c.ListenBacklog <= 0 {
		return fmt.Errorf("invalid listen backlog %d", c.ListenBacklog)
	}
	return nil
}
