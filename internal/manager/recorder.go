package manager

import (
	"context"

	"predictd/pkg/types"
)

// Recorder persists one entry per prediction call. The journal implements it.
type Recorder interface {
	Record(ctx context.Context, e types.JournalEntry) error
}
