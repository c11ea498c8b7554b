package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mgiraldo/eventscope/internal/event"
	"github.com/mgiraldo/eventscope/internal/storage"
)

// Archive persists events to the SQLite store. Like the file sink, a write
// failure is durable-sink fatal rather than silently dropped.
type Archive struct {
	store *storage.Store
}

// NewArchive builds an archive sink over an open store.
func NewArchive(store *storage.Store) *Archive {
	return &Archive{store: store}
}

func (a *Archive) Name() string {
	return "archive"
}

func (a *Archive) Deliver(ctx context.Context, ev event.LogEvent) error {
	topics, err := json.Marshal(ev.Topics)
	if err != nil {
		return fmt.Errorf("%w: archive: %v", ErrWriteFailed, err)
	}
	if err := a.store.InsertEvent(ctx, ev, string(topics)); err != nil {
		return fmt.Errorf("%w: archive: %v", ErrWriteFailed, err)
	}
	return nil
}

func (a *Archive) Close() error {
	return a.store.Close()
}
