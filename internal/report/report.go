// Package report builds read-only diagnostic views of the news store.
package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmawatch/internal/models"
	"pharmawatch/internal/storage"
)

// AnalyzedFilter selects rows by classification state.
type AnalyzedFilter int

const (
	AnalyzedAny AnalyzedFilter = iota
	AnalyzedYes
	AnalyzedNo
)

func (a AnalyzedFilter) String() string {
	switch a {
	case AnalyzedYes:
		return "yes"
	case AnalyzedNo:
		return "no"
	}
	return "any"
}

// ParseAnalyzed accepts any, yes/true/1 and no/false/0. Empty means any.
func ParseAnalyzed(s string) (AnalyzedFilter, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "all":
		return AnalyzedAny, nil
	case "yes", "true", "1":
		return AnalyzedYes, nil
	case "no", "false", "0":
		return AnalyzedNo, nil
	}
	return AnalyzedAny, fmt.Errorf("invalid analyzed filter %q (want any, yes or no)", s)
}

// Options are the user-facing report parameters.
type Options struct {
	Days       int // only rows published in the last Days days; 0 for all
	Analyzed   AnalyzedFilter
	WithTicker bool
	Title      string
	Limit      int
}

// Filter converts the options into a store filter relative to now.
func (o Options) Filter(now time.Time) storage.Filter {
	f := storage.Filter{
		WithTicker:    o.WithTicker,
		TitleContains: strings.TrimSpace(o.Title),
		Limit:         o.Limit,
	}
	if o.Days > 0 {
		since := now.AddDate(0, 0, -o.Days)
		f.Since = &since
	}
	switch o.Analyzed {
	case AnalyzedYes:
		v := true
		f.Analyzed = &v
	case AnalyzedNo:
		v := false
		f.Analyzed = &v
	}
	return f
}

// Store is the read side of the row store.
type Store interface {
	Query(ctx context.Context, f storage.Filter) ([]models.NewsItem, error)
	Stats(ctx context.Context) (storage.Stats, error)
}

// Report is a store summary plus the rows matching the options.
type Report struct {
	Options     Options
	GeneratedAt time.Time
	Stats       storage.Stats
	Items       []models.NewsItem
}

// Build runs the report queries.
func Build(ctx context.Context, store Store, opts Options, now time.Time) (*Report, error) {
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}

	items, err := store.Query(ctx, opts.Filter(now))
	if err != nil {
		return nil, err
	}

	return &Report{
		Options:     opts,
		GeneratedAt: now.UTC(),
		Stats:       stats,
		Items:       items,
	}, nil
}
