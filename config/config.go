package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultPort     = "8050"
	DefaultTitle    = "TOL Sales Potential and Market Share Insights for South"
	DefaultLogLevel = "info"
	// DefaultLogFormat is human readable; "json" switches to structured output.
	DefaultLogFormat = "console"
)

type GlobalConfig struct {
	DataFile  string `toml:"dataFile"`
	LogLevel  string `toml:"logLevel"`
	LogFormat string `toml:"logFormat"`
}

type ServerConfig struct {
	Port         string        `toml:"port"`
	Title        string        `toml:"title"`
	ReadTimeout  time.Duration `toml:"readTimeout"`
	WriteTimeout time.Duration `toml:"writeTimeout"`
}

// MapConfig controls the bubble map rendering.
type MapConfig struct {
	Zoom              float64 `toml:"zoom"`
	DefaultCenterLat  float64 `toml:"defaultCenterLat"`
	DefaultCenterLon  float64 `toml:"defaultCenterLon"`
	MinMarkerSize     float64 `toml:"minMarkerSize"`
	MaxMarkerSize     float64 `toml:"maxMarkerSize"`
	ColorLow          string  `toml:"colorLow"`
	ColorHigh         string  `toml:"colorHigh"`
	ParallelThreshold int     `toml:"parallelThreshold"`
	Workers           int     `toml:"workers"`
}

type SliderConfig struct {
	NetAddStep      float64 `toml:"netAddStep"`
	PotentialStep   float64 `toml:"potentialStep"`
	MarketShareStep float64 `toml:"marketShareStep"`
}

type Config struct {
	Global  *GlobalConfig `toml:"global"`
	Server  *ServerConfig `toml:"server"`
	Map     *MapConfig    `toml:"map"`
	Sliders *SliderConfig `toml:"sliders"`
}

// Default returns a configuration with every value set.
func Default() *Config {
	return &Config{
		Global: &GlobalConfig{
			LogLevel:  DefaultLogLevel,
			LogFormat: DefaultLogFormat,
		},
		Server: &ServerConfig{
			Port:         DefaultPort,
			Title:        DefaultTitle,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Map: &MapConfig{
			Zoom:              9,
			DefaultCenterLat:  7.0,
			DefaultCenterLon:  100.47,
			MinMarkerSize:     6,
			MaxMarkerSize:     40,
			ColorLow:          "red",
			ColorHigh:         "green",
			ParallelThreshold: 50000,
		},
		Sliders: &SliderConfig{
			NetAddStep:      2,
			PotentialStep:   1,
			MarketShareStep: 1,
		},
	}
}

// LoadConfig reads a TOML file on top of Default. Keys that are absent keep
// their default value.
func LoadConfig(configPath string) (*Config, error) {
	configData, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(string(configData))
}

// Parse decodes TOML content on top of Default.
func Parse(content string) (*Config, error) {
	var rawConfig map[string]any
	if _, err := toml.Decode(content, &rawConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config := Default()
	for key, value := range rawConfig {
		section, ok := value.(map[string]any)
		if !ok {
			continue
		}
		var err error
		switch key {
		case "global":
			parseGlobalConfig(section, config.Global)
		case "server":
			err = parseServerConfig(section, config.Server)
		case "map":
			err = parseMapConfig(section, config.Map)
		case "sliders":
			err = parseSliderConfig(section, config.Sliders)
		}
		if err != nil {
			return nil, fmt.Errorf("parsing [%s]: %w", key, err)
		}
	}

	return config, nil
}

func parseGlobalConfig(m map[string]any, config *GlobalConfig) {
	if v, ok := m["dataFile"].(string); ok {
		config.DataFile = v
	}
	if v, ok := m["logLevel"].(string); ok {
		config.LogLevel = v
	}
	if v, ok := m["logFormat"].(string); ok {
		config.LogFormat = v
	}
}

func parseServerConfig(m map[string]any, config *ServerConfig) error {
	switch v := m["port"].(type) {
	case string:
		config.Port = v
	case int64:
		config.Port = strconv.FormatInt(v, 10)
	}
	if v, ok := m["title"].(string); ok {
		config.Title = v
	}
	for key, dst := range map[string]*time.Duration{
		"readTimeout":  &config.ReadTimeout,
		"writeTimeout": &config.WriteTimeout,
	} {
		if v, ok := m[key].(string); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", key, v, err)
			}
			*dst = d
		}
	}
	return nil
}

func parseMapConfig(m map[string]any, config *MapConfig) error {
	for key, dst := range map[string]*float64{
		"zoom":             &config.Zoom,
		"defaultCenterLat": &config.DefaultCenterLat,
		"defaultCenterLon": &config.DefaultCenterLon,
		"minMarkerSize":    &config.MinMarkerSize,
		"maxMarkerSize":    &config.MaxMarkerSize,
	} {
		if err := setFloat(m, key, dst); err != nil {
			return err
		}
	}
	if v, ok := m["colorLow"].(string); ok {
		config.ColorLow = v
	}
	if v, ok := m["colorHigh"].(string); ok {
		config.ColorHigh = v
	}
	if v, ok := m["parallelThreshold"].(int64); ok {
		config.ParallelThreshold = int(v)
	}
	if v, ok := m["workers"].(int64); ok {
		config.Workers = int(v)
	}
	return nil
}

func parseSliderConfig(m map[string]any, config *SliderConfig) error {
	for key, dst := range map[string]*float64{
		"netAddStep":      &config.NetAddStep,
		"potentialStep":   &config.PotentialStep,
		"marketShareStep": &config.MarketShareStep,
	} {
		if err := setFloat(m, key, dst); err != nil {
			return err
		}
	}
	return nil
}

// setFloat accepts both TOML integers and floats.
func setFloat(m map[string]any, key string, dst *float64) error {
	raw, ok := m[key]
	if !ok {
		return nil
	}
	switch v := raw.(type) {
	case float64:
		*dst = v
	case int64:
		*dst = float64(v)
	default:
		return fmt.Errorf("%s must be a number, got %T", key, raw)
	}
	return nil
}

// Validate checks every section. It does not touch the data file; loading it
// reports its own errors.
func (c *Config) Validate() error {
	if c.Global == nil || c.Server == nil || c.Map == nil || c.Sliders == nil {
		return fmt.Errorf("configuration is incomplete")
	}

	switch c.Global.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logLevel must be one of debug, info, warn, error: got %q", c.Global.LogLevel)
	}
	switch c.Global.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("logFormat must be console or json: got %q", c.Global.LogFormat)
	}

	if err := c.ValidateServer(); err != nil {
		return err
	}
	if err := c.ValidateMap(); err != nil {
		return err
	}

	if c.Sliders.NetAddStep <= 0 || c.Sliders.PotentialStep <= 0 || c.Sliders.MarketShareStep <= 0 {
		return fmt.Errorf("slider steps must be positive")
	}
	return nil
}

func (c *Config) ValidateServer() error {
	if c.Server == nil {
		return fmt.Errorf("server configuration section is required")
	}
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535: got %q", c.Server.Port)
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return fmt.Errorf("server timeouts must not be negative")
	}
	return nil
}

func (c *Config) ValidateMap() error {
	if c.Map == nil {
		return fmt.Errorf("map configuration section is required")
	}
	m := c.Map
	if m.Zoom < 1 || m.Zoom > 20 {
		return fmt.Errorf("zoom must be between 1 and 20: got %v", m.Zoom)
	}
	if m.DefaultCenterLat < -90 || m.DefaultCenterLat > 90 {
		return fmt.Errorf("defaultCenterLat must be between -90 and 90: got %v", m.DefaultCenterLat)
	}
	if m.DefaultCenterLon < -180 || m.DefaultCenterLon > 180 {
		return fmt.Errorf("defaultCenterLon must be between -180 and 180: got %v", m.DefaultCenterLon)
	}
	if m.MinMarkerSize <= 0 || m.MaxMarkerSize < m.MinMarkerSize {
		return fmt.Errorf("marker sizes must satisfy 0 < minMarkerSize <= maxMarkerSize: got %v, %v", m.MinMarkerSize, m.MaxMarkerSize)
	}
	if m.ColorLow == "" || m.ColorHigh == "" {
		return fmt.Errorf("colorLow and colorHigh are required")
	}
	if m.ParallelThreshold < 0 || m.Workers < 0 {
		return fmt.Errorf("parallelThreshold and workers must not be negative")
	}
	return nil
}
