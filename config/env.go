package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the configuration file.
const (
	EnvDataFile  = "TOLMAP_DATA_FILE"
	EnvPort      = "TOLMAP_PORT"
	EnvLogLevel  = "TOLMAP_LOG_LEVEL"
	EnvLogFormat = "TOLMAP_LOG_FORMAT"
)

// LoadEnv loads envFile into the process environment (a missing file is not an
// error) and then applies the TOLMAP_* overrides.
func (c *Config) LoadEnv(envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}
	c.ApplyEnv()
	return nil
}

// ApplyEnv overrides fields from TOLMAP_* variables that are set and non-empty.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDataFile); v != "" {
		c.Global.DataFile = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		c.Server.Port = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Global.LogLevel = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Global.LogFormat = v
	}
}
