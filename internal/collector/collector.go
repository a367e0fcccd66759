// Package collector turns RSS/Atom feeds into pending news rows.
package collector

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pharmawatch/internal/config"
	"pharmawatch/internal/models"
	"pharmawatch/internal/pubdate"
)

// FeedParser fetches and parses a feed. *gofeed.Parser satisfies it.
type FeedParser interface {
	ParseURLWithContext(feedURL string, ctx context.Context) (*gofeed.Feed, error)
}

// Inserter is the part of the row store a collector writes to.
type Inserter interface {
	InsertIfNew(ctx context.Context, item *models.NewsItem) (bool, error)
}

// Outcome is what happened to a single feed entry.
type Outcome int

const (
	OutcomeInserted  Outcome = iota
	OutcomeDuplicate         // link or guid already stored
	OutcomeFiltered          // no allow-list keyword matched
	OutcomeInvalid           // entry has no link
	OutcomeFailed            // store rejected the insert for another reason
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeDuplicate:
		return "duplicate"
	case OutcomeFiltered:
		return "filtered"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Stats tallies one collector run.
type Stats struct {
	Source     string
	Found      int
	Inserted   int
	Duplicates int
	Filtered   int
	Invalid    int
	Failed     int
	FetchErr   error
}

// Skipped counts entries that were seen but not stored.
func (s Stats) Skipped() int {
	return s.Duplicates + s.Filtered + s.Invalid
}

func (s *Stats) record(o Outcome) {
	switch o {
	case OutcomeInserted:
		s.Inserted++
	case OutcomeDuplicate:
		s.Duplicates++
	case OutcomeFiltered:
		s.Filtered++
	case OutcomeInvalid:
		s.Invalid++
	case OutcomeFailed:
		s.Failed++
	}
}

// Collector pulls one feed into the store.
type Collector struct {
	source        config.Source
	parser        FeedParser
	store         Inserter
	summaryMaxLen int
	keywords      []string
	now           func() time.Time
}

// New creates a collector for source. A nil parser uses gofeed's default.
func New(source config.Source, parser FeedParser, store Inserter, summaryMaxLen int) *Collector {
	if parser == nil {
		parser = gofeed.NewParser()
	}
	if summaryMaxLen <= 0 {
		summaryMaxLen = config.DefaultSummaryMaxLen
	}

	keywords := make([]string, 0, len(source.Keywords))
	for _, k := range source.Keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			keywords = append(keywords, k)
		}
	}

	return &Collector{
		source:        source,
		parser:        parser,
		store:         store,
		summaryMaxLen: summaryMaxLen,
		keywords:      keywords,
		now:           time.Now,
	}
}

// Source returns the collector's source definition.
func (c *Collector) Source() config.Source {
	return c.source
}

// Collect fetches the feed once and inserts every new entry, in feed order.
// Fetch failures and empty feeds are logged and reported in Stats; they never
// abort the caller.
func (c *Collector) Collect(ctx context.Context) Stats {
	stats := Stats{Source: c.source.Tag}
	logger := log.With().Str("source", c.source.Tag).Logger()

	logger.Info().Str("url", c.source.URL).Msg("Fetching feed")

	feed, err := c.parser.ParseURLWithContext(c.source.URL, ctx)
	if err != nil {
		stats.FetchErr = err
		logger.Error().Err(err).Str("url", c.source.URL).Msg("Failed to fetch feed")
		return stats
	}
	if feed == nil || len(feed.Items) == 0 {
		logger.Warn().Str("url", c.source.URL).Msg("Feed returned no entries")
		return stats
	}

	stats.Found = len(feed.Items)
	logger.Info().Int("entries", stats.Found).Msg("Feed fetched")

	for _, entry := range feed.Items {
		if ctx.Err() != nil {
			logger.Warn().Err(ctx.Err()).Msg("Collection interrupted")
			break
		}
		stats.record(c.collectEntry(ctx, logger, entry))
	}

	logger.Info().
		Int("found", stats.Found).
		Int("inserted", stats.Inserted).
		Int("duplicates", stats.Duplicates).
		Int("filtered", stats.Filtered).
		Int("invalid", stats.Invalid).
		Int("failed", stats.Failed).
		Msg("Collection finished")

	return stats
}

func (c *Collector) collectEntry(ctx context.Context, logger zerolog.Logger, entry *gofeed.Item) Outcome {
	if entry == nil {
		return OutcomeInvalid
	}

	link := strings.TrimSpace(entry.Link)
	if link == "" {
		logger.Warn().Str("title", entry.Title).Msg("Skipping entry without link")
		return OutcomeInvalid
	}

	title := strings.TrimSpace(entry.Title)
	summary := entry.Description
	if summary == "" {
		summary = entry.Content
	}
	summary = truncate(plainText(summary), c.summaryMaxLen)

	if !c.matchesKeywords(title + " " + summary) {
		logger.Debug().Str("link", link).Msg("Entry matched no keyword")
		return OutcomeFiltered
	}

	guid := strings.TrimSpace(entry.GUID)
	if guid == "" {
		guid = link
	}

	pubDate, parsed := pubdate.Normalize(entry.Published, c.now())
	if !parsed {
		logger.Warn().Str("published", entry.Published).Str("link", link).Msg("Unparsable publish date, using current time")
	}

	item := models.NewNewsItem(c.source.Tag)
	item.GUID = guid
	item.Title = title
	item.Summary = summary
	item.Link = link
	item.PubDate = pubDate

	inserted, err := c.store.InsertIfNew(ctx, item)
	if err != nil {
		logger.Error().Err(err).Str("link", link).Msg("Failed to store entry")
		return OutcomeFailed
	}
	if !inserted {
		return OutcomeDuplicate
	}

	logger.Info().
		Int64("news_id", item.ID).
		Str("pub_date", pubDate).
		Str("title", truncate(title, 70)).
		Msg("Stored news item")
	return OutcomeInserted
}

func (c *Collector) matchesKeywords(text string) bool {
	if len(c.keywords) == 0 {
		return true
	}
	text = strings.ToLower(text)
	for _, k := range c.keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

// CollectAll runs each collector in turn. One source failing does not stop
// the others.
func CollectAll(ctx context.Context, collectors []*Collector) []Stats {
	results := make([]Stats, 0, len(collectors))
	for _, c := range collectors {
		if ctx.Err() != nil {
			break
		}
		results = append(results, c.Collect(ctx))
	}
	return results
}
