package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"pharmawatch/internal/database/migrations"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// DB represents the database connection
type DB struct {
	*sqlx.DB
}

// NewDB opens the news store, applies pending migrations in read-write mode
// and verifies the connection.
func NewDB(cfg *Config) (*DB, error) {
	dir := filepath.Dir(cfg.DBPath)
	if dir != "." && !cfg.ReadOnly {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory for database: %w", err)
		}
	}

	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = defaultMaxIdleConns
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}

	dsn := fmt.Sprintf("file:%s?_journal=WAL&_synchronous=NORMAL&_busy_timeout=%d",
		cfg.DBPath, cfg.BusyTimeoutMS)

	if cfg.ReadOnly {
		dsn += "&mode=ro"
		log.Debug().Str("path", cfg.DBPath).Msg("Opening database in read-only mode")
	} else {
		log.Debug().Str("path", cfg.DBPath).Msg("Opening database in read-write mode")
	}

	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	var pragmas []string
	if cfg.ReadOnly {
		pragmas = []string{
			fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
			"PRAGMA temp_store = MEMORY;",
			"PRAGMA query_only = ON;",
		}
	} else {
		pragmas = []string{
			fmt.Sprintf("PRAGMA cache_size = %d;", cfg.CacheSizeKB),
			"PRAGMA temp_store = MEMORY;",
		}
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn().Err(err).Str("pragma", pragma).Str("mode", modeStr(cfg.ReadOnly)).Msg("Failed to set PRAGMA")
		}
	}

	if !cfg.ReadOnly {
		migrationFiles, err := migrations.Load(migrations.Files)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to load migrations: %w", err)
		}

		if err := migrations.Run(db.DB, migrationFiles); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping db (%s): %w", modeStr(cfg.ReadOnly), err)
	}

	log.Debug().Str("mode", modeStr(cfg.ReadOnly)).Msg("Database connection successful")
	return &DB{db}, nil
}

// Helper for logging
func modeStr(readOnly bool) string {
	if readOnly {
		return "read-only"
	}
	return "read-write"
}

// HasColumn reports whether table has a column with the given name.
func (db *DB) HasColumn(ctx context.Context, table, column string) (bool, error) {
	if !identifierRe.MatchString(table) {
		return false, fmt.Errorf("invalid table name %q", table)
	}

	var names []string
	if err := db.SelectContext(ctx, &names, "SELECT name FROM pragma_table_info(?)", table); err != nil {
		return false, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	if len(names) == 0 {
		return false, fmt.Errorf("table %s does not exist", table)
	}

	for _, name := range names {
		if name == column {
			return true, nil
		}
	}
	return false, nil
}

// AddColumnIfMissing adds a nullable column unless it already exists. It
// returns true when the column was added, so a second call is a no-op.
func (db *DB) AddColumnIfMissing(ctx context.Context, table, column, decl string) (bool, error) {
	if !identifierRe.MatchString(column) {
		return false, fmt.Errorf("invalid column name %q", column)
	}

	exists, err := db.HasColumn(ctx, table, column)
	if err != nil {
		return false, err
	}
	if exists {
		log.Debug().Str("table", table).Str("column", column).Msg("Column already present, nothing to patch")
		return false, nil
	}

	stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return false, fmt.Errorf("failed to add column %s.%s: %w", table, column, err)
	}

	log.Info().Str("table", table).Str("column", column).Msg("Added column")
	return true, nil
}
