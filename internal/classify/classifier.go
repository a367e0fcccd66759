// Package classify drains pending news rows through a chat-completion
// endpoint and writes the extracted company, type and impact back.
package classify

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"pharmawatch/internal/config"
	"pharmawatch/internal/models"
)

// Completer is the completion endpoint the classifier needs.
type Completer interface {
	Probe(ctx context.Context) error
	Complete(ctx context.Context, prompt string) (string, error)
}

// Store is the part of the row store the classifier reads and writes.
type Store interface {
	FetchPending(ctx context.Context, limit int) ([]models.NewsItem, error)
	ApplyClassification(ctx context.Context, id int64, c models.Classification) error
	MarkFallback(ctx context.Context, id int64, score float64) error
}

// Options tunes one classifier run.
type Options struct {
	BatchSize     int
	Delay         time.Duration
	FallbackScore float64
	NeutralScore  float64
}

// OptionsFromConfig copies the classifier settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BatchSize:     cfg.BatchSize,
		Delay:         cfg.RequestDelay,
		FallbackScore: cfg.FallbackScore,
		NeutralScore:  cfg.NeutralScore,
	}
}

// Kind says how a row was resolved.
type Kind int

const (
	KindClassified Kind = iota
	KindNoCompany
	KindUnparsable
	KindRequestFailed
)

func (k Kind) String() string {
	switch k {
	case KindClassified:
		return "classified"
	case KindNoCompany:
		return "no_company"
	case KindUnparsable:
		return "unparsable"
	case KindRequestFailed:
		return "request_failed"
	}
	return "unknown"
}

// Outcome records what happened to one row.
type Outcome struct {
	NewsID int64
	Kind   Kind
	Ticker string
	Type   string
	Score  float64
	Err    error // transport error for KindRequestFailed
}

// Report summarizes a run.
type Report struct {
	// Aborted is set when the preflight probe failed; nothing was written.
	Aborted  bool
	AbortErr error

	// Interrupted is set when the context ended before the batch finished.
	Interrupted bool

	Pending  int
	Outcomes []Outcome
}

// Identified counts rows that were attributed to a company.
func (r Report) Identified() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Kind == KindClassified {
			n++
		}
	}
	return n
}

// Fallbacks counts rows marked analyzed with the fallback score.
func (r Report) Fallbacks() int {
	return len(r.Outcomes) - r.Identified()
}

// Classifier runs one batch at a time.
type Classifier struct {
	client Completer
	store  Store
	opts   Options
	sleep  func(ctx context.Context, d time.Duration) error
}

// New creates a classifier. Zero-valued options take the package defaults.
func New(client Completer, store Store, opts Options) *Classifier {
	if opts.BatchSize <= 0 {
		opts.BatchSize = config.DefaultBatchSize
	}
	if opts.Delay < 0 {
		opts.Delay = 0
	}
	if opts.FallbackScore == 0 {
		opts.FallbackScore = config.DefaultFallbackScore
	}
	if opts.NeutralScore == 0 {
		opts.NeutralScore = config.DefaultNeutralScore
	}
	return &Classifier{
		client: client,
		store:  store,
		opts:   opts,
		sleep:  sleepContext,
	}
}

// Run probes the endpoint, then classifies up to BatchSize pending rows in
// id order. A failed probe aborts the run without touching the store and is
// not an error. Store write failures end the run and are returned.
func (c *Classifier) Run(ctx context.Context) (Report, error) {
	var report Report

	log.Info().Msg("Probing completion endpoint")
	if err := c.client.Probe(ctx); err != nil {
		log.Error().Err(err).Msg("Completion endpoint probe failed, skipping classification")
		report.Aborted = true
		report.AbortErr = err
		return report, nil
	}

	pending, err := c.store.FetchPending(ctx, c.opts.BatchSize)
	if err != nil {
		return report, fmt.Errorf("failed to fetch pending news: %w", err)
	}
	report.Pending = len(pending)

	if len(pending) == 0 {
		log.Info().Msg("No pending news")
		return report, nil
	}
	log.Info().Int("pending", len(pending)).Msg("Classifying pending news")

	for i, item := range pending {
		if i > 0 {
			if err := c.sleep(ctx, c.opts.Delay); err != nil {
				report.Interrupted = true
				break
			}
		}
		if ctx.Err() != nil {
			report.Interrupted = true
			break
		}

		outcome, err := c.classifyOne(ctx, item)
		if err != nil {
			return report, err
		}
		if outcome == nil {
			report.Interrupted = true
			break
		}
		report.Outcomes = append(report.Outcomes, *outcome)
	}

	if report.Interrupted {
		log.Warn().
			Int("processed", len(report.Outcomes)).
			Int("pending", report.Pending).
			Msg("Classification interrupted")
	}

	log.Info().
		Int("identified", report.Identified()).
		Int("fallbacks", report.Fallbacks()).
		Int("processed", len(report.Outcomes)).
		Msg("Classification finished")

	return report, nil
}

// classifyOne resolves a single row. It returns a nil outcome when the
// context ended mid-request, leaving the row pending.
func (c *Classifier) classifyOne(ctx context.Context, item models.NewsItem) (*Outcome, error) {
	logger := log.With().Int64("news_id", item.ID).Str("title", shorten(item.Title, 70)).Logger()

	outcome := Outcome{NewsID: item.ID}

	reply, err := c.client.Complete(ctx, Prompt(item.Title, item.Summary))
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		logger.Warn().Err(err).Msg("Completion request failed, using fallback score")
		outcome.Kind = KindRequestFailed
		outcome.Err = err
	} else {
		logger.Debug().Str("reply", reply).Msg("Completion reply")

		switch r := ParseReply(reply).(type) {
		case Classified:
			outcome.Kind = KindClassified
			outcome.Ticker = r.Ticker
			outcome.Type = r.Type
			outcome.Score = r.Score(c.opts.NeutralScore)

			err := c.store.ApplyClassification(ctx, item.ID, models.Classification{
				Ticker:           r.Ticker,
				NewsType:         r.Type,
				ImpactScore:      outcome.Score,
				SummaryLocalized: r.Summary,
			})
			if err != nil {
				return nil, err
			}

			logger.Info().
				Str("ticker", r.Ticker).
				Str("type", r.Type).
				Float64("impact", outcome.Score).
				Msg("Company identified")
			return &outcome, nil
		case NoCompany:
			outcome.Kind = KindNoCompany
			logger.Info().Msg("No company in news")
		case Unparsable:
			outcome.Kind = KindUnparsable
			logger.Warn().Msg("Reply had no ticker line, using fallback score")
		}
	}

	outcome.Score = c.opts.FallbackScore
	if err := c.store.MarkFallback(ctx, item.ID, outcome.Score); err != nil {
		return nil, err
	}
	return &outcome, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func shorten(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
