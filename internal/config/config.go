package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application. It is built once at
// process start and handed to each component.
type Config struct {
	// File paths
	DBPath      string
	SourcesPath string

	// Feed sources, one collector each
	Sources []Source

	// Completion endpoint
	Completion Completion

	// Classifier settings
	BatchSize     int
	RequestDelay  time.Duration
	FallbackScore float64
	NeutralScore  float64

	// Collector settings
	SummaryMaxLen int

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string

	// Scheduler settings
	Schedule string

	// Log settings
	LogLevel zerolog.Level
}

// Completion configures the chat-completion endpoint used by the classifier.
type Completion struct {
	URL         string
	Model       string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// DefaultConfig returns an initial configuration with hardcoded defaults,
// overridden by any PHARMAWATCH_* environment variables that are set.
// A missing completion credential leaves APIKey empty.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:      GetEnvString("PHARMAWATCH_DB_PATH", DefaultDBPath),
		SourcesPath: GetEnvString("PHARMAWATCH_SOURCES_FILE", DefaultSourcesPath),
		Sources:     DefaultSources(),
		Completion: Completion{
			URL:         GetEnvString("PHARMAWATCH_COMPLETION_URL", DefaultCompletionURL),
			Model:       GetEnvString("PHARMAWATCH_COMPLETION_MODEL", DefaultCompletionModel),
			APIKey:      GetEnvString(APIKeyEnv, ""),
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
			Timeout:     DefaultRequestTimeout,
		},
		BatchSize:     GetEnvInt("PHARMAWATCH_BATCH_SIZE", DefaultBatchSize),
		RequestDelay:  GetEnvDuration("PHARMAWATCH_REQUEST_DELAY", DefaultRequestDelay),
		FallbackScore: DefaultFallbackScore,
		NeutralScore:  DefaultNeutralScore,
		SummaryMaxLen: DefaultSummaryMaxLen,
		ServerHost:    GetEnvString("PHARMAWATCH_HOST", DefaultServerHost),
		ServerPort:    GetEnvInt("PHARMAWATCH_PORT", DefaultServerPort),
		APIKey:        GetEnvString("PHARMAWATCH_API_KEY", ""),
		Schedule:      GetEnvString("PHARMAWATCH_SCHEDULE", DefaultSchedule),
		LogLevel:      GetEnvLogLevel("PHARMAWATCH_LOG_LEVEL", logLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// Source returns the configured source with the given tag.
func (c *Config) Source(tag string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Tag == tag {
			return s, true
		}
	}
	return Source{}, false
}
