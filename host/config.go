package host

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/tailored-agentic-units/scenebridge/bridge"
	"github.com/tailored-agentic-units/scenebridge/hostrpc"
	"github.com/tailored-agentic-units/scenebridge/luabind"
	"github.com/tailored-agentic-units/scenebridge/scene"
)

// EnvPrefix prefixes every environment variable LoadConfig reads.
const EnvPrefix = "SCENEBRIDGE_"

// Config holds initialization parameters for every host subsystem.
type Config struct {
	Bridge     bridge.Config          `json:"bridge" envPrefix:"BRIDGE_"`
	Interactor scene.InteractorConfig `json:"interactor" envPrefix:"INTERACTOR_"`
	Server     hostrpc.Config         `json:"server" envPrefix:"SERVER_"`
	Script     ScriptConfig           `json:"script" envPrefix:"SCRIPT_"`
	Telemetry  TelemetryConfig        `json:"telemetry" envPrefix:"OTEL_"`
	LogLevel   string                 `json:"log_level,omitempty" env:"LOG_LEVEL"`
}

// ScriptConfig selects the Lua script run at startup.
type ScriptConfig struct {
	// Script file; empty runs nothing.
	Path      string   `json:"path,omitempty" env:"PATH"`
	Libraries []string `json:"libraries,omitempty" env:"LIBRARIES"`
}

// Runtime returns the luabind configuration for the script.
func (c ScriptConfig) Runtime() luabind.Config {
	return luabind.Config{Libraries: c.Libraries}
}

// TelemetryConfig configures OTLP trace export. Export is off while
// Endpoint is empty.
type TelemetryConfig struct {
	Endpoint    string `json:"endpoint,omitempty" env:"ENDPOINT"`
	ServiceName string `json:"service_name,omitempty" env:"SERVICE_NAME"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Bridge:     bridge.DefaultConfig(),
		Interactor: scene.DefaultInteractorConfig(),
		Server:     hostrpc.DefaultConfig(),
		Telemetry:  TelemetryConfig{ServiceName: "scenebridge"},
		LogLevel:   "info",
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Bridge.Merge(&source.Bridge)
	c.Interactor.Merge(&source.Interactor)
	c.Server.Merge(&source.Server)

	if source.Script.Path != "" {
		c.Script.Path = source.Script.Path
	}
	if source.Script.Libraries != nil {
		c.Script.Libraries = source.Script.Libraries
	}
	if source.Telemetry.Endpoint != "" {
		c.Telemetry.Endpoint = source.Telemetry.Endpoint
	}
	if source.Telemetry.ServiceName != "" {
		c.Telemetry.ServiceName = source.Telemetry.ServiceName
	}
	if source.LogLevel != "" {
		c.LogLevel = source.LogLevel
	}
}

// SlogLevel parses LogLevel, falling back to info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(c.LogLevel))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// LoadConfig merges defaults, the JSON file at filename (skipped when
// filename is empty) and SCENEBRIDGE_* environment variables, in that
// order.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		var loaded Config
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		cfg.Merge(&loaded)
	}

	var fromEnv Config
	if err := env.ParseWithOptions(&fromEnv, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.Merge(&fromEnv)

	return &cfg, nil
}
