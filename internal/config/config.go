// Package config reads application configuration from the environment.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Data     DataConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings. An empty URL disables
// persistence; analyses still run, summaries are just not stored.
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DataConfig holds data ingestion settings
type DataConfig struct {
	// PlateFile is the default workbook or CSV read when the caller names
	// no source file.
	PlateFile string

	// PlateLayout optionally maps wells to strain labels; empty means the
	// source file carries its own labels.
	PlateLayout string

	// BlankStrain marks wells to subtract as media blanks; empty disables
	// blank correction.
	BlankStrain string

	// MaxHours trims observations after this time; 0 keeps everything.
	MaxHours float64
}

// AnalysisConfig holds model-fitting and derived-statistics settings
type AnalysisConfig struct {
	Alpha            float64
	BootstrapSamples int
	ConfidenceLevel  float64
	BenchmarkMargin  float64
	OutlierKSigma    float64
	OutlierMaxFrac   float64
	Seed             uint64
	Unweighted       bool

	// ReferenceStrain is the competitor used for relative-fitness
	// simulations; empty means the first strain on the plate.
	ReferenceStrain string
}

// Load reads configuration from a .env file (if present) and the
// environment, then validates it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("[Config] no .env file loaded: %v", err)
	}

	config := &Config{
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "debug"),
		},
		Data: DataConfig{
			PlateFile:   getEnvOrDefault("PLATE_FILE", ""),
			PlateLayout: getEnvOrDefault("PLATE_LAYOUT", ""),
			BlankStrain: getEnvOrDefault("BLANK_STRAIN", ""),
			MaxHours:    getEnvFloatOrDefault("MAX_HOURS", 0),
		},
		Analysis: AnalysisConfig{
			Alpha:            getEnvFloatOrDefault("LRT_ALPHA", 0.05),
			BootstrapSamples: getEnvIntOrDefault("BOOTSTRAP_SAMPLES", 1000),
			ConfidenceLevel:  getEnvFloatOrDefault("CONFIDENCE_LEVEL", 0.95),
			BenchmarkMargin:  getEnvFloatOrDefault("BENCHMARK_MARGIN", 6),
			OutlierKSigma:    getEnvFloatOrDefault("OUTLIER_KSIGMA", 2),
			OutlierMaxFrac:   getEnvFloatOrDefault("OUTLIER_MAX_FRACTION", 0.10),
			Seed:             uint64(getEnvIntOrDefault("ANALYSIS_SEED", 42)),
			Unweighted:       getEnvBoolOrDefault("UNWEIGHTED", false),
			ReferenceStrain:  getEnvOrDefault("REFERENCE_STRAIN", ""),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

func validateConfig(config *Config) error {
	a := config.Analysis
	if a.Alpha <= 0 || a.Alpha >= 1 {
		return fmt.Errorf("LRT_ALPHA must be in (0, 1), got %g", a.Alpha)
	}
	if a.ConfidenceLevel <= 0 || a.ConfidenceLevel >= 1 {
		return fmt.Errorf("CONFIDENCE_LEVEL must be in (0, 1), got %g", a.ConfidenceLevel)
	}
	if a.BootstrapSamples < 1 {
		return fmt.Errorf("BOOTSTRAP_SAMPLES must be positive, got %d", a.BootstrapSamples)
	}
	if a.OutlierMaxFrac <= 0 || a.OutlierMaxFrac > 1 {
		return fmt.Errorf("OUTLIER_MAX_FRACTION must be in (0, 1], got %g", a.OutlierMaxFrac)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
