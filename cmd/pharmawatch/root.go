package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pharmawatch/internal/config"
	"pharmawatch/internal/database"
	"pharmawatch/internal/storage"
)

// NewRootCmd creates the root command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	var logLevelStr string

	rootCmd := &cobra.Command{
		Use:   "pharmawatch",
		Short: "Collect pharma and biotech news and tag it with the company it moves",
		Long: `pharmawatch pulls regulatory, trade-press and wire-service RSS feeds into a
local SQLite store, then asks a chat-completion model which listed company each
item is about and how strongly it should move the share price.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if level, err := zerolog.ParseLevel(logLevelStr); err == nil {
				cfg.LogLevel = level
			} else {
				return fmt.Errorf("invalid log level %q: %w", logLevelStr, err)
			}
			zerolog.SetGlobalLevel(cfg.LogLevel)

			log.Logger = log.With().Str("run_id", uuid.NewString()).Logger()

			if cfg.SourcesPath != "" {
				sources, err := config.LoadSources(cfg.SourcesPath)
				if err != nil {
					return err
				}
				cfg.Sources = sources
				log.Debug().Str("path", cfg.SourcesPath).Int("sources", len(sources)).Msg("Loaded sources file")
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath,
		"Path to the SQLite database file (env: PHARMAWATCH_DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&logLevelStr, "log-level", cfg.LogLevel.String(),
		"Log level: debug, info, warn, error (env: PHARMAWATCH_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&cfg.SourcesPath, "sources", cfg.SourcesPath,
		"YAML file listing feed sources, built-in sources when empty (env: PHARMAWATCH_SOURCES_FILE)")

	rootCmd.AddCommand(
		newCollectCmd(cfg),
		newClassifyCmd(cfg),
		newResetCmd(cfg),
		newPatchSchemaCmd(cfg),
		newFixDatesCmd(cfg),
		newReportCmd(cfg),
		newServeCmd(cfg),
		newScheduleCmd(cfg),
	)

	return rootCmd
}

// openStore opens the database, applying migrations unless readOnly is set.
func openStore(cfg *config.Config, readOnly bool) (*database.DB, *storage.NewsStore, error) {
	dbCfg := database.NewConfig(cfg.DBPath)
	dbCfg.ReadOnly = readOnly

	db, err := database.NewDB(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database %s: %w", cfg.DBPath, err)
	}
	return db, storage.NewNewsStore(db), nil
}
