// Package storage is the row store for news items: append-only inserts from
// the collectors, a pending queue drained by the classifier, and read-only
// queries for reporting.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"pharmawatch/internal/database"
	"pharmawatch/internal/models"
)

// ErrNewsItemNotFound is returned when an update targets an id that does not
// exist. Callers treat it as a programming error.
var ErrNewsItemNotFound = errors.New("news item not found")

// NewsStore wraps the news table.
type NewsStore struct {
	db *database.DB
}

// NewNewsStore creates a store over an open database.
func NewNewsStore(db *database.DB) *NewsStore {
	return &NewsStore{db: db}
}

// InsertIfNew inserts item as a pending row. It returns false, without error,
// when another row already holds the same link or guid.
func (s *NewsStore) InsertIfNew(ctx context.Context, item *models.NewsItem) (bool, error) {
	if item.Link == "" {
		return false, fmt.Errorf("news item has empty link")
	}
	if item.GUID == "" {
		item.GUID = item.Link
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO news (guid, title, summary, link, pub_date, source, analyzed, created_at)
		VALUES (:guid, :title, :summary, :link, :pub_date, :source, 0, :created_at)
		ON CONFLICT DO NOTHING`, item)
	if err != nil {
		return false, fmt.Errorf("failed to insert news item %s: %w", item.Link, err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected for %s: %w", item.Link, err)
	}
	if rowsAffected == 0 {
		log.Debug().
			Str("link", item.Link).
			Str("guid", item.GUID).
			Str("source", item.Source).
			Msg("Duplicate news item")
		return false, nil
	}

	if id, err := res.LastInsertId(); err == nil {
		item.ID = id
	}
	item.Analyzed = false
	return true, nil
}

// FetchPending returns up to limit unanalyzed rows, oldest insert first.
func (s *NewsStore) FetchPending(ctx context.Context, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	var items []models.NewsItem
	err := s.db.SelectContext(ctx, &items, `
		SELECT `+newsColumns+` FROM news
		WHERE analyzed = 0
		ORDER BY id ASC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pending news: %w", err)
	}
	return items, nil
}

// ApplyClassification stores the classifier's result and marks the row analyzed.
func (s *NewsStore) ApplyClassification(ctx context.Context, id int64, c models.Classification) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE news
		SET ticker = ?, news_type = ?, impact_score = ?, summary_localized = ?, analyzed = 1
		WHERE id = ?`,
		c.Ticker, c.NewsType, c.ImpactScore, c.SummaryLocalized, id)
	if err != nil {
		return fmt.Errorf("failed to apply classification to news %d: %w", id, err)
	}
	return requireRow(res, id)
}

// MarkFallback marks a row analyzed with no identifiable company.
func (s *NewsStore) MarkFallback(ctx context.Context, id int64, score float64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE news
		SET ticker = NULL, news_type = NULL, impact_score = ?, analyzed = 1
		WHERE id = ?`,
		score, id)
	if err != nil {
		return fmt.Errorf("failed to mark news %d as fallback: %w", id, err)
	}
	return requireRow(res, id)
}

// ResetAllPending sets analyzed back to false on every row so the next
// classifier run reprocesses everything. It returns the number of rows touched.
func (s *NewsStore) ResetAllPending(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "UPDATE news SET analyzed = 0")
	if err != nil {
		return 0, fmt.Errorf("failed to reset analyzed flags: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected after reset: %w", err)
	}
	return n, nil
}

// Get returns a single row by id.
func (s *NewsStore) Get(ctx context.Context, id int64) (*models.NewsItem, error) {
	var item models.NewsItem
	err := s.db.GetContext(ctx, &item, "SELECT "+newsColumns+" FROM news WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("news %d: %w", id, ErrNewsItemNotFound)
		}
		return nil, fmt.Errorf("failed to get news %d: %w", id, err)
	}
	return &item, nil
}

// Count returns the total number of rows.
func (s *NewsStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM news"); err != nil {
		return 0, fmt.Errorf("failed to count news: %w", err)
	}
	return n, nil
}

// CountPending returns the number of rows still waiting for the classifier.
func (s *NewsStore) CountPending(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM news WHERE analyzed = 0"); err != nil {
		return 0, fmt.Errorf("failed to count pending news: %w", err)
	}
	return n, nil
}

// PubDate is the id and stored pub_date of a row.
type PubDate struct {
	ID      int64  `db:"id"`
	PubDate string `db:"pub_date"`
}

// PubDates returns the stored pub_date of every row in id order.
func (s *NewsStore) PubDates(ctx context.Context) ([]PubDate, error) {
	var dates []PubDate
	err := s.db.SelectContext(ctx, &dates, "SELECT id, COALESCE(pub_date, '') AS pub_date FROM news ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to list pub dates: %w", err)
	}
	return dates, nil
}

// UpdatePubDate rewrites the pub_date of one row.
func (s *NewsStore) UpdatePubDate(ctx context.Context, id int64, value string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE news SET pub_date = ? WHERE id = ?", value, id)
	if err != nil {
		return fmt.Errorf("failed to update pub_date of news %d: %w", id, err)
	}
	return requireRow(res, id)
}

// Columns are listed explicitly so that legacy stores carrying extra columns
// still scan into NewsItem.
const newsColumns = `id, COALESCE(guid, '') AS guid, COALESCE(title, '') AS title,
	COALESCE(summary, '') AS summary, COALESCE(link, '') AS link,
	COALESCE(pub_date, '') AS pub_date, COALESCE(source, '') AS source,
	ticker, news_type, impact_score, summary_localized,
	COALESCE(analyzed, 0) AS analyzed, created_at`

func requireRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for news %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("news %d: %w", id, ErrNewsItemNotFound)
	}
	return nil
}
