package maintenance

import (
	"context"

	"github.com/rs/zerolog/log"

	"pharmawatch/internal/pubdate"
	"pharmawatch/internal/storage"
)

// DateStore is the part of the row store FixDates needs.
type DateStore interface {
	PubDates(ctx context.Context) ([]storage.PubDate, error)
	UpdatePubDate(ctx context.Context, id int64, value string) error
}

// DateChange is one rewritten pub_date.
type DateChange struct {
	ID   int64
	From string
	To   string
}

// FixResult reports what FixDates did.
type FixResult struct {
	Scanned    int
	Canonical  int
	Unparsable []storage.PubDate
	Changes    []DateChange
}

// FixDates rewrites every stored pub_date that is not already in canonical
// form but can be parsed. Canonical values are never touched, and values
// that cannot be parsed are left as they are and reported. With dryRun set
// nothing is written.
func FixDates(ctx context.Context, store DateStore, dryRun bool) (FixResult, error) {
	var result FixResult

	dates, err := store.PubDates(ctx)
	if err != nil {
		return result, err
	}
	result.Scanned = len(dates)

	for _, d := range dates {
		if pubdate.IsCanonical(d.PubDate) {
			result.Canonical++
			continue
		}

		t, err := pubdate.Parse(d.PubDate)
		if err != nil {
			log.Warn().Int64("news_id", d.ID).Str("pub_date", d.PubDate).Msg("Cannot parse stored date, leaving it")
			result.Unparsable = append(result.Unparsable, d)
			continue
		}

		change := DateChange{ID: d.ID, From: d.PubDate, To: pubdate.Format(t)}
		if !dryRun {
			if err := store.UpdatePubDate(ctx, d.ID, change.To); err != nil {
				return result, err
			}
		}
		result.Changes = append(result.Changes, change)
		log.Info().Int64("news_id", d.ID).Str("from", change.From).Str("to", change.To).Bool("dry_run", dryRun).Msg("Normalized date")
	}

	return result, nil
}
