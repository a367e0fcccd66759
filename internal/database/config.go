package database

import "time"

const (
	// The pipeline is strictly sequential; one connection avoids SQLITE_BUSY
	// between pooled connections of the same process.
	defaultMaxIdleConns    = 1
	defaultMaxOpenConns    = 1
	defaultConnMaxLifetime = time.Hour
)

// Config holds database configuration settings
type Config struct {
	// Required settings
	DBPath string

	// Optional settings (will use defaults if not set)
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	CacheSizeKB     int
	BusyTimeoutMS   int
	ReadOnly        bool
}

// NewConfig creates a new database configuration with default values
func NewConfig(dbPath string) *Config {
	return &Config{
		DBPath:          dbPath,
		MaxIdleConns:    0, // Will be set to default if not specified
		MaxOpenConns:    0, // Will be set to default if not specified
		ConnMaxLifetime: defaultConnMaxLifetime,
		CacheSizeKB:     -16000, // 16MB
		BusyTimeoutMS:   5000,
	}
}
