// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable Load reads the config path
// from.
const EnvVar = "CAPTURETRACK_CONFIG"

// Config is the capturetrack configuration.
type Config struct {
	// Recording configures the recording session and track writer.
	Recording RecordingConfig `yaml:"recording" json:"recording"`

	// Playback configures the replayer.
	Playback PlaybackConfig `yaml:"playback" json:"playback"`

	// Logging configures the slog handler.
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// RecordingConfig configures recording sessions.
type RecordingConfig struct {
	// OutputDir is where recordings are written when the output path is
	// relative.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// TargetFrameRate caps the recorded frame rate. Frames arriving
	// within the same 1/rate interval are dropped.
	// Default: 30
	TargetFrameRate float64 `yaml:"target_frame_rate" json:"target_frame_rate"`

	// Encoders lists the snapshot kinds to record.
	// Default: every kind
	Encoders []string `yaml:"encoders" json:"encoders"`

	// Compression is the metadata record compression: none, lz4,
	// zstd, or auto.
	// Default: auto
	Compression string `yaml:"compression" json:"compression"`

	// ModelName, ScreenWidth and ScreenHeight are stamped into the
	// file header.
	ModelName    string `yaml:"model_name" json:"model_name"`
	ScreenWidth  int    `yaml:"screen_width" json:"screen_width"`
	ScreenHeight int    `yaml:"screen_height" json:"screen_height"`

	// InitialBufferSize is the starting capacity of the session's
	// snapshot scratch buffer. It grows as needed.
	// Default: 64 KiB
	InitialBufferSize int `yaml:"initial_buffer_size" json:"initial_buffer_size"`
}

// PlaybackConfig configures replay.
type PlaybackConfig struct {
	// FrameRate is how often the replayer advances during the replay
	// command.
	// Default: 30
	FrameRate float64 `yaml:"frame_rate" json:"frame_rate"`

	// VerifyDigests checks each record's digest when a file is opened.
	// Default: true
	VerifyDigests bool `yaml:"verify_digests" json:"verify_digests"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	// Level is debug, info, warn, or error.
	// Default: info
	Level string `yaml:"level" json:"level"`

	// Format is text, json, or auto (text on a terminal, json
	// otherwise).
	// Default: auto
	Format string `yaml:"format" json:"format"`
}

// Compression values accepted by RecordingConfig.Compression.
var Compressions = []string{"none", "lz4", "zstd", "auto"}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json", "auto"}
)

// Default returns the default configuration.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Recording: RecordingConfig{
			OutputDir:         filepath.Join(homeDir, ".cache", "capturetrack"),
			TargetFrameRate:   30,
			Encoders:          []string{"planes", "meshes", "geospatial", "streetscape", "point_clouds"},
			Compression:       "auto",
			InitialBufferSize: 64 << 10,
		},
		Playback: PlaybackConfig{
			FrameRate:     30,
			VerifyDigests: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

// Load loads configuration from the file named by CAPTURETRACK_CONFIG.
// There is no fallback: if the variable is unset, Load fails.
func Load() (*Config, error) {
	path := os.Getenv(EnvVar)
	if path == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your config file, or use --config flag", EnvVar)
	}
	return LoadFile(path)
}

// LoadFile loads configuration from path over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		if err := yaml.Unmarshal(data, c); err != nil {
			return fmt.Errorf("parsing %s: %w", path, err)
		}
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	c.Recording.OutputDir = expandVars(c.Recording.OutputDir, map[string]string{
		"HOME": os.Getenv("HOME"),
	})
}

// OutputPath resolves a recording path against OutputDir.
func (c *Config) OutputPath(name string) string {
	name = expandVars(name, map[string]string{
		"HOME":                os.Getenv("HOME"),
		"CAPTURETRACK_OUTPUT": c.Recording.OutputDir,
	})
	if filepath.IsAbs(name) || c.Recording.OutputDir == "" {
		return name
	}
	return filepath.Join(c.Recording.OutputDir, name)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, looking in
// vars first and then the environment.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors. knownEncoders is the
// set of snapshot kind names this build supports.
func (c *Config) Validate(knownEncoders []string) error {
	var errs []error

	if !finiteRate(c.Recording.TargetFrameRate) {
		errs = append(errs, fmt.Errorf("recording.target_frame_rate must be positive and finite, got %v", c.Recording.TargetFrameRate))
	}
	if len(c.Recording.Encoders) == 0 {
		errs = append(errs, errors.New("recording.encoders must name at least one encoder"))
	}
	seen := make(map[string]bool, len(c.Recording.Encoders))
	for _, name := range c.Recording.Encoders {
		if !slices.Contains(knownEncoders, name) {
			errs = append(errs, fmt.Errorf("recording.encoders: unknown encoder %q (known: %v)", name, knownEncoders))
		}
		if seen[name] {
			errs = append(errs, fmt.Errorf("recording.encoders: %q listed twice", name))
		}
		seen[name] = true
	}
	if !slices.Contains(Compressions, c.Recording.Compression) {
		errs = append(errs, fmt.Errorf("recording.compression must be one of: %v", Compressions))
	}
	if c.Recording.ScreenWidth < 0 || c.Recording.ScreenHeight < 0 {
		errs = append(errs, fmt.Errorf("recording screen size must not be negative"))
	}
	if c.Recording.InitialBufferSize < 0 {
		errs = append(errs, fmt.Errorf("recording.initial_buffer_size must not be negative"))
	}
	if !finiteRate(c.Playback.FrameRate) {
		errs = append(errs, fmt.Errorf("playback.frame_rate must be positive and finite, got %v", c.Playback.FrameRate))
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of: %v", logLevels))
	}
	if !slices.Contains(logFormats, c.Logging.Format) {
		errs = append(errs, fmt.Errorf("logging.format must be one of: %v", logFormats))
	}

	return errors.Join(errs...)
}

// SlogLevel returns the configured level for slog handlers. Unknown
// values map to info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch l.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func finiteRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0)
}
