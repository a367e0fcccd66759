// Package api serves the read-only news endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"

	"pharmawatch/internal/models"
	"pharmawatch/internal/report"
	"pharmawatch/internal/server/pagination"
	"pharmawatch/internal/storage"
)

const iso8601Format = time.RFC3339

// NewsReader is the read side of the row store.
type NewsReader interface {
	Query(ctx context.Context, f storage.Filter) ([]models.NewsItem, error)
	Get(ctx context.Context, id int64) (*models.NewsItem, error)
	Stats(ctx context.Context) (storage.Stats, error)
}

// Response structure for the news listing endpoint
type Response struct {
	Items      []models.NewsItem `json:"items"`
	NextCursor *string           `json:"next_cursor,omitempty"`
}

// NewsHandler holds dependencies for the news endpoints.
type NewsHandler struct {
	store NewsReader
	now   func() time.Time
}

// NewNewsHandler creates a new handler instance.
func NewNewsHandler(store NewsReader) *NewsHandler {
	return &NewsHandler{
		store: store,
		now:   time.Now,
	}
}

// ListNews handles GET /v1/news. It accepts the report filters as query
// parameters (days, since, analyzed, with_ticker, title, limit) plus an
// opaque cursor for the next page.
func (h *NewsHandler) ListNews(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)
	log.Debug().Msg("Processing news list request")

	query := r.URL.Query()

	limit := storage.DefaultQueryLimit
	if limitStr := query.Get("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 || parsedLimit > storage.MaxQueryLimit {
			log.Warn().Err(err).Str("limit", limitStr).Msg("Invalid 'limit' parameter value")
			http.Error(w, fmt.Sprintf("Invalid 'limit' parameter: must be between 1 and %d", storage.MaxQueryLimit), http.StatusBadRequest)
			return
		}
		limit = parsedLimit
	}

	opts := report.Options{Title: query.Get("title")}

	if daysStr := query.Get("days"); daysStr != "" {
		days, err := strconv.Atoi(daysStr)
		if err != nil || days < 0 {
			log.Warn().Err(err).Str("days", daysStr).Msg("Invalid 'days' parameter value")
			http.Error(w, "Invalid 'days' parameter: must be a non-negative integer", http.StatusBadRequest)
			return
		}
		opts.Days = days
	}

	analyzed, err := report.ParseAnalyzed(query.Get("analyzed"))
	if err != nil {
		log.Warn().Err(err).Msg("Invalid 'analyzed' parameter value")
		http.Error(w, "Invalid 'analyzed' parameter: use any, yes or no", http.StatusBadRequest)
		return
	}
	opts.Analyzed = analyzed

	if tickerStr := query.Get("with_ticker"); tickerStr != "" {
		withTicker, err := strconv.ParseBool(tickerStr)
		if err != nil {
			log.Warn().Err(err).Str("with_ticker", tickerStr).Msg("Invalid 'with_ticker' parameter value")
			http.Error(w, "Invalid 'with_ticker' parameter: must be a boolean", http.StatusBadRequest)
			return
		}
		opts.WithTicker = withTicker
	}

	filter := opts.Filter(h.now())
	filter.Limit = limit + 1 // Fetch one extra

	if sinceStr := query.Get("since"); sinceStr != "" {
		parsedSince, err := time.Parse(iso8601Format, sinceStr)
		if err != nil {
			log.Warn().Err(err).Str("since", sinceStr).Msg("Invalid 'since' parameter format")
			http.Error(w, "Invalid 'since' parameter: use RFC3339 format (e.g., 2025-03-28T15:00:00Z)", http.StatusBadRequest)
			return
		}
		utcSince := parsedSince.UTC()
		filter.Since = &utcSince
	}

	if cursorStr := query.Get("cursor"); cursorStr != "" {
		pubDate, id, err := pagination.DecodeCursor(cursorStr)
		if err != nil {
			log.Warn().Err(err).Str("cursor", cursorStr).Msg("Invalid 'cursor' parameter")
			http.Error(w, "Invalid 'cursor' parameter", http.StatusBadRequest)
			return
		}
		filter.AfterPubDate = &pubDate
		filter.AfterID = &id
	}

	items, err := h.store.Query(r.Context(), filter)
	if err != nil {
		log.Error().Err(err).Msg("Error fetching news from store")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	response := Response{Items: items}
	if len(items) > limit {
		response.Items = items[:limit]
		last := response.Items[len(response.Items)-1]
		cursor := pagination.EncodeCursor(last.PubDate, last.ID)
		response.NextCursor = &cursor
	}
	if response.Items == nil {
		response.Items = []models.NewsItem{}
	}

	writeJSON(w, r, response)
}

// GetNews handles GET /v1/news/{id}.
func (h *NewsHandler) GetNews(w http.ResponseWriter, r *http.Request) {
	log := hlog.FromRequest(r)

	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		log.Warn().Str("id", idStr).Msg("Invalid news id")
		http.Error(w, "Invalid news id", http.StatusBadRequest)
		return
	}

	item, err := h.store.Get(r.Context(), id)
	if errors.Is(err, storage.ErrNewsItemNotFound) {
		http.Error(w, http.StatusText(http.StatusNotFound), http.StatusNotFound)
		return
	}
	if err != nil {
		log.Error().Err(err).Int64("news_id", id).Msg("Error fetching news item")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, r, item)
}

// GetStats handles GET /v1/stats.
func (h *NewsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error computing stats")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, stats)
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	log := hlog.FromRequest(r)

	jsonBytes, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("Error marshaling JSON response")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(jsonBytes); err != nil {
		log.Error().Err(err).Msg("Error writing JSON response body to client")
		return
	}
	log.Debug().Int("bytes_written", len(jsonBytes)).Msg("Response completed")
}
