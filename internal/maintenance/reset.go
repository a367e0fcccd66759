package maintenance

import (
	"context"

	"github.com/rs/zerolog/log"
)

// ResetStore is the part of the row store Reset needs.
type ResetStore interface {
	ResetAllPending(ctx context.Context) (int64, error)
	CountPending(ctx context.Context) (int64, error)
}

// Reset marks every row pending again and returns the pending count.
func Reset(ctx context.Context, store ResetStore) (int64, error) {
	touched, err := store.ResetAllPending(ctx)
	if err != nil {
		return 0, err
	}

	pending, err := store.CountPending(ctx)
	if err != nil {
		return 0, err
	}

	log.Info().Int64("touched", touched).Int64("pending", pending).Msg("Reset analyzed flags")
	return pending, nil
}
