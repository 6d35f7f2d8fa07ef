// Package config loads uartfs settings from a TOML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/go-homedir"
)

// DefaultFile is where the configuration file is read from when no other
// file is given.
const DefaultFile = "~/.uartfileserver"

// Config holds settings which may also be given on the command line. Empty
// fields are unset.
type Config struct {
	// Port is the serial device or socket address to serve on.
	Port string `toml:"port"`

	// Path is the directory to serve.
	Path string `toml:"path"`

	// MetricsAddr is the address to expose metrics on.
	MetricsAddr string `toml:"metrics_addr"`

	// BaudRate of the serial device.
	BaudRate int `toml:"baud_rate"`
}

// Load reads the configuration file at path. A missing file isn't an error
// and results in an empty Config.
func Load(path string) (Config, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return Config{}, fmt.Errorf("invalid configuration path %s: %w", path, err)
	}

	var c Config
	if _, err := toml.DecodeFile(expanded, &c); errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	} else if err != nil {
		return Config{}, fmt.Errorf("invalid configuration file %s: %w", expanded, err)
	}

	if c.BaudRate < 0 {
		return Config{}, fmt.Errorf("invalid configuration file %s: baud_rate must be positive", expanded)
	}
	return c, nil
}

// Merge returns c with every set field of override applied on top of it.
func (c Config) Merge(override Config) Config {
	if override.Port != "" {
		c.Port = override.Port
	}
	if override.Path != "" {
		c.Path = override.Path
	}
	if override.MetricsAddr != "" {
		c.MetricsAddr = override.MetricsAddr
	}
	if override.BaudRate != 0 {
		c.BaudRate = override.BaudRate
	}
	return c
}
