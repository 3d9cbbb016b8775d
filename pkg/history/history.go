package history

import (
	"context"
	"errors"
	"strings"

	"github.com/xhad/vision-sync/internal/types"
)

// ErrDisabled is returned when no history database is configured.
var ErrDisabled = errors.New("history is not configured")

// MemoryURL selects the in-process store, which loses its records on restart.
const MemoryURL = "memory://"

// New opens the history store named by databaseURL.
func New(ctx context.Context, databaseURL string) (types.HistoryStore, error) {
	switch {
	case databaseURL == "":
		return nil, ErrDisabled
	case strings.HasPrefix(databaseURL, MemoryURL):
		return NewMemoryStore(), nil
	default:
		return NewPostgresStore(ctx, PostgresConfig{ConnString: databaseURL})
	}
}
