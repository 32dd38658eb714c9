package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Detection DetectionConfig `mapstructure:"detection"`
}

type LoggerConfig struct {
	Level       string   `mapstructure:"level"`
	Format      string   `mapstructure:"format"`
	OutputPaths []string `mapstructure:"output_paths"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	ExporterType string  `mapstructure:"exporter_type"`
	Endpoint     string  `mapstructure:"endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// DetectionConfig tunes how endpoints are turned into probe plans
type DetectionConfig struct {
	// MinRiskScore is the lowest BOLA risk score a parameter needs to be probed
	MinRiskScore int `mapstructure:"min_risk_score"`
	// SummaryLimit caps the parameters listed per endpoint summary
	SummaryLimit   int  `mapstructure:"summary_limit"`
	Workers        int  `mapstructure:"workers"`
	EnableMutation bool `mapstructure:"enable_mutation"`
	EnableSoftFail bool `mapstructure:"enable_soft_fail"`
}

var validLevels = map[string]bool{
	"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true,
}

// Validate checks values that viper cannot range-check on its own
func (c *Config) Validate() error {
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level %q", c.Logger.Level)
	}

	switch c.Logger.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log format %q: must be json or console", c.Logger.Format)
	}

	if c.Telemetry.Enabled {
		if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
			return fmt.Errorf("telemetry sample rate %.2f out of range [0,1]", c.Telemetry.SampleRate)
		}
		if c.Telemetry.ExporterType != "otlp" {
			return fmt.Errorf("unsupported telemetry exporter %q", c.Telemetry.ExporterType)
		}
	}

	if c.Detection.MinRiskScore < 0 || c.Detection.MinRiskScore > 100 {
		return fmt.Errorf("min risk score %d out of range [0,100]", c.Detection.MinRiskScore)
	}
	if c.Detection.SummaryLimit < 0 {
		return fmt.Errorf("summary limit must not be negative, got %d", c.Detection.SummaryLimit)
	}
	if c.Detection.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Detection.Workers)
	}

	return nil
}

// DefaultConfig mirrors the viper defaults registered in cmd/root.go
func DefaultConfig() *Config {
	return &Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Telemetry: TelemetryConfig{
			Enabled:      false,
			ServiceName:  "doppel",
			ExporterType: "otlp",
			Endpoint:     "localhost:4318",
			SampleRate:   1.0,
		},
		Detection: DetectionConfig{
			MinRiskScore:   50,
			SummaryLimit:   5,
			Workers:        4,
			EnableMutation: true,
			EnableSoftFail: true,
		},
	}
}
