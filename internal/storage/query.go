package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pharmawatch/internal/models"
	"pharmawatch/internal/pubdate"
)

const (
	DefaultQueryLimit = 30
	MaxQueryLimit     = 1000
)

// IgnoredTickers are words the model sometimes returns as a ticker. Rows
// carrying them are hidden whenever a filter asks for identified companies.
var IgnoredTickers = []string{"THE", "NEWS", "FDA", "FOR", "AND", "WITH", "THIS", "THAT"}

// Filter selects rows for reporting. Zero values mean "no constraint".
type Filter struct {
	Since         *time.Time // pub_date >= Since
	Until         *time.Time // pub_date < Until
	Analyzed      *bool
	WithTicker    bool
	TitleContains string
	Limit         int

	// Keyset position: return rows strictly after (AfterPubDate, AfterID)
	// in newest-first order.
	AfterPubDate *string
	AfterID      *int64
}

// Query returns rows matching f, newest pub_date first.
func (s *NewsStore) Query(ctx context.Context, f Filter) ([]models.NewsItem, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}

	where, args := f.clauses()
	query := "SELECT " + newsColumns + " FROM news"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY pub_date DESC, id DESC LIMIT ?"
	args = append(args, limit)

	var items []models.NewsItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query news: %w", err)
	}
	return items, nil
}

func (f Filter) clauses() ([]string, []any) {
	var where []string
	var args []any

	if f.Since != nil {
		where = append(where, "pub_date >= ?")
		args = append(args, pubdate.Format(*f.Since))
	}
	if f.Until != nil {
		where = append(where, "pub_date < ?")
		args = append(args, pubdate.Format(*f.Until))
	}
	if f.Analyzed != nil {
		where = append(where, "analyzed = ?")
		args = append(args, *f.Analyzed)
	}
	if f.WithTicker {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(IgnoredTickers)), ", ")
		where = append(where, "ticker IS NOT NULL AND ticker != '' AND ticker NOT IN ("+placeholders+")")
		for _, t := range IgnoredTickers {
			args = append(args, t)
		}
	}
	if f.TitleContains != "" {
		where = append(where, "title LIKE ?")
		args = append(args, "%"+f.TitleContains+"%")
	}
	if f.AfterPubDate != nil && f.AfterID != nil {
		where = append(where, "(pub_date < ? OR (pub_date = ? AND id < ?))")
		args = append(args, *f.AfterPubDate, *f.AfterPubDate, *f.AfterID)
	}

	return where, args
}

// Stats summarizes the store.
type Stats struct {
	Total      int64  `db:"total" json:"total"`
	Analyzed   int64  `db:"analyzed" json:"analyzed"`
	Pending    int64  `db:"pending" json:"pending"`
	WithTicker int64  `db:"with_ticker" json:"with_ticker"`
	MinPubDate string `db:"min_pub_date" json:"min_pub_date"`
	MaxPubDate string `db:"max_pub_date" json:"max_pub_date"`
}

// Stats returns row counts and the pub_date range.
func (s *NewsStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.GetContext(ctx, &st, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN analyzed = 1 THEN 1 ELSE 0 END), 0) AS analyzed,
			COALESCE(SUM(CASE WHEN analyzed = 0 THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN analyzed = 1 AND ticker IS NOT NULL AND ticker != '' THEN 1 ELSE 0 END), 0) AS with_ticker,
			COALESCE(MIN(pub_date), '') AS min_pub_date,
			COALESCE(MAX(pub_date), '') AS max_pub_date
		FROM news`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to compute news stats: %w", err)
	}
	return st, nil
}
