package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"pharmawatch/internal/collector"
	"pharmawatch/internal/config"
	"pharmawatch/internal/maintenance"
	"pharmawatch/internal/report"
	"pharmawatch/internal/scheduler"
	"pharmawatch/internal/server"
)

func newCollectCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "collect [source...]",
		Short: "Fetch feeds and store new items as pending",
		Long: `Fetch every configured feed, or only the named source tags, and insert
entries whose link and guid are not yet stored. A feed that cannot be fetched
is reported and skipped.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			collectors, err := buildCollectors(cfg, store, args)
			if err != nil {
				return fmt.Errorf("%w (configured: %s)", err, joinTags(cfg.Sources))
			}

			printCollectStats(cmd.OutOrStdout(), collector.CollectAll(cmd.Context(), collectors))
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.SummaryMaxLen, "summary-max-len", cfg.SummaryMaxLen,
		"Maximum stored summary length in characters")
	return cmd
}

func newClassifyCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify one batch of pending items",
		Long: fmt.Sprintf(`Probe the completion endpoint, then send up to --batch-size pending items
for classification in id order. Requires %s.`, config.APIKeyEnv),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			report, err := newClassifier(cfg, store).Run(cmd.Context())
			if err != nil {
				return err
			}
			printClassifyReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.BatchSize, "batch-size", cfg.BatchSize,
		"Maximum number of pending items per run (env: PHARMAWATCH_BATCH_SIZE)")
	cmd.Flags().DurationVar(&cfg.RequestDelay, "delay", cfg.RequestDelay,
		"Pause between completion requests (env: PHARMAWATCH_REQUEST_DELAY)")
	cmd.Flags().StringVar(&cfg.Completion.Model, "model", cfg.Completion.Model,
		"Completion model (env: PHARMAWATCH_COMPLETION_MODEL)")
	return cmd
}

func newResetCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Mark every stored item as pending again",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			pending, err := maintenance.Reset(cmd.Context(), store)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset complete: %d news ready for analysis\n", pending)
			return nil
		},
	}
}

func newPatchSchemaCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "patch-schema",
		Short: "Add columns missing from stores created by older versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := maintenance.PatchSchema(cmd.Context(), db)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(result.AddedColumns) == 0 && result.Backfilled == 0 {
				fmt.Fprintln(out, "Schema already up to date")
				return nil
			}
			for _, c := range result.AddedColumns {
				fmt.Fprintf(out, "Added column %s\n", c)
			}
			if result.Backfilled > 0 {
				fmt.Fprintf(out, "Copied %d localized summaries from the legacy column\n", result.Backfilled)
			}
			return nil
		},
	}
}

func newFixDatesCmd(cfg *config.Config) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "fix-dates",
		Short: "Rewrite stored publish dates into the canonical UTC form",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			result, err := maintenance.FixDates(cmd.Context(), store, dryRun)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, c := range result.Changes {
				fmt.Fprintf(out, "%d: %s -> %s\n", c.ID, c.From, c.To)
			}
			for _, u := range result.Unparsable {
				fmt.Fprintf(out, "%d: cannot parse %q, left unchanged\n", u.ID, u.PubDate)
			}
			verb := "fixed"
			if dryRun {
				verb = "would fix"
			}
			fmt.Fprintf(out, "%s %d of %d dates (%d already canonical, %d unparsable)\n",
				verb, len(result.Changes), result.Scanned, result.Canonical, len(result.Unparsable))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show changes without writing them")
	return cmd
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	var opts report.Options
	var analyzedStr string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print store statistics and matching items",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			analyzed, err := report.ParseAnalyzed(analyzedStr)
			if err != nil {
				return err
			}
			opts.Analyzed = analyzed

			db, store, err := openStore(cfg, true)
			if err != nil {
				return err
			}
			defer db.Close()

			r, err := report.Build(cmd.Context(), store, opts, time.Now())
			if err != nil {
				return err
			}
			return report.Render(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().IntVar(&opts.Days, "days", 0, "Only items published in the last N days, 0 for all")
	cmd.Flags().StringVar(&analyzedStr, "analyzed", "any", "Filter by classification state: any, yes or no")
	cmd.Flags().BoolVar(&opts.WithTicker, "with-ticker", false, "Only items attributed to a company")
	cmd.Flags().StringVar(&opts.Title, "title", "", "Only items whose title contains this text")
	cmd.Flags().IntVar(&opts.Limit, "limit", 30, "Maximum number of items to list")
	return cmd
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the store over a read-only JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore(cfg, true)
			if err != nil {
				return err
			}
			defer db.Close()

			handler := server.NewRouter(store, db, log.Logger, cfg.APIKey)
			return server.RunServer(cmd.Context(), handler, cfg.ListenAddr(), log.Logger)
		},
	}
	cmd.Flags().StringVar(&cfg.ServerHost, "host", cfg.ServerHost, "Host to bind the server to (env: PHARMAWATCH_HOST)")
	cmd.Flags().IntVar(&cfg.ServerPort, "port", cfg.ServerPort, "Port to listen on (env: PHARMAWATCH_PORT)")
	cmd.Flags().StringVar(&cfg.APIKey, "api-key", cfg.APIKey, "Require this X-API-Key header, open when empty (env: PHARMAWATCH_API_KEY)")
	return cmd
}

func newScheduleCmd(cfg *config.Config) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Collect and classify on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, store, err := openStore(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			s, err := scheduler.New(cfg.Schedule, func(ctx context.Context) error {
				return runPipeline(ctx, cfg, store, out)
			})
			if err != nil {
				return err
			}

			if runNow {
				if err := runPipeline(cmd.Context(), cfg, store, out); err != nil {
					return err
				}
			}
			return s.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&cfg.Schedule, "schedule", cfg.Schedule, "Cron spec for pipeline passes (env: PHARMAWATCH_SCHEDULE)")
	cmd.Flags().BoolVar(&runNow, "now", false, "Run one pass immediately before waiting for the schedule")
	return cmd
}
