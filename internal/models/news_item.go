package models

import "time"

// Source tags written by the collectors.
const (
	SourceFDA    = "fda"
	SourceFierce = "fierce"
	SourceGlobe  = "globe"
)

// NewsItem represents a row in the 'news' table
type NewsItem struct {
	ID      int64  `db:"id" json:"id"`
	GUID    string `db:"guid" json:"guid"`
	Title   string `db:"title" json:"title"`
	Summary string `db:"summary" json:"summary"`
	Link    string `db:"link" json:"link"`
	PubDate string `db:"pub_date" json:"pub_date"` // Normalized "2006-01-02 15:04:05", UTC
	Source  string `db:"source" json:"source"`

	// Classification fields, NULL until the classifier has seen the row
	Ticker           *string  `db:"ticker" json:"ticker,omitempty"`
	NewsType         *string  `db:"news_type" json:"news_type,omitempty"`
	ImpactScore      *float64 `db:"impact_score" json:"impact_score,omitempty"`
	SummaryLocalized *string  `db:"summary_localized" json:"summary_localized,omitempty"`

	Analyzed  bool      `db:"analyzed" json:"analyzed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewNewsItem creates a pending NewsItem for the given source.
func NewNewsItem(source string) *NewsItem {
	return &NewsItem{
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
}

// HasTicker reports whether the classifier attached a company ticker.
func (n *NewsItem) HasTicker() bool {
	return n.Ticker != nil && *n.Ticker != ""
}

// Classification is what the classifier writes back for an identified company.
type Classification struct {
	Ticker           string
	NewsType         string
	ImpactScore      float64
	SummaryLocalized string
}
