// Package maintenance holds one-off repair operations on an existing store.
package maintenance

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"pharmawatch/internal/database"
)

// legacySummaryColumn is where older stores kept the localized summary.
const legacySummaryColumn = "summary_ko"

// patchColumns are added to stores created before they existed.
var patchColumns = []struct {
	name string
	decl string
}{
	{"source", "TEXT DEFAULT 'fda'"},
	{"summary_localized", "TEXT"},
}

// PatchResult reports what PatchSchema changed.
type PatchResult struct {
	AddedColumns []string
	Backfilled   int64
}

// PatchSchema adds any missing columns to the news table and copies values
// out of the legacy summary column when one is present. Running it again is
// a no-op.
func PatchSchema(ctx context.Context, db *database.DB) (PatchResult, error) {
	var result PatchResult

	for _, col := range patchColumns {
		added, err := db.AddColumnIfMissing(ctx, "news", col.name, col.decl)
		if err != nil {
			return result, err
		}
		if added {
			result.AddedColumns = append(result.AddedColumns, col.name)
		}
	}

	hasLegacy, err := db.HasColumn(ctx, "news", legacySummaryColumn)
	if err != nil {
		return result, err
	}
	if !hasLegacy {
		return result, nil
	}

	res, err := db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE news SET summary_localized = %[1]s
		WHERE summary_localized IS NULL AND %[1]s IS NOT NULL AND %[1]s != ''`,
		legacySummaryColumn))
	if err != nil {
		return result, fmt.Errorf("failed to backfill summary_localized: %w", err)
	}
	if result.Backfilled, err = res.RowsAffected(); err != nil {
		return result, fmt.Errorf("failed to get rows affected after backfill: %w", err)
	}

	log.Info().Int64("rows", result.Backfilled).Str("from", legacySummaryColumn).Msg("Backfilled localized summaries")
	return result, nil
}
