package config

import "time"

// Constants defining default values for application configuration
const (
	DefaultDBPath      = "./fda_news.db"
	DefaultSourcesPath = "" // Empty string means use the built-in sources

	DefaultCompletionURL   = "https://api.perplexity.ai/chat/completions"
	DefaultCompletionModel = "sonar-pro"
	DefaultTemperature     = 0.2
	DefaultMaxTokens       = 200
	DefaultRequestTimeout  = 30 * time.Second

	DefaultBatchSize     = 100
	DefaultRequestDelay  = 3 * time.Second
	DefaultSummaryMaxLen = 500

	// Score written for items with no identifiable company. Deliberately not
	// the neutral midpoint used when a reply omits the Impact field.
	DefaultFallbackScore = 3.0
	DefaultNeutralScore  = 5.0

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultSchedule = "@every 30m"

	DefaultLogLevel = "info"

	APIKeyEnv = "PERPLEXITY_API_KEY"
)
