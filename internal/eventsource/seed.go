package eventsource

import (
	"context"
	"fmt"

	"github.com/partyevents/partyevents/internal/models"
)

// Writer is a persistent event store that can be filled from a Source.
type Writer interface {
	CountEvents(ctx context.Context) (int, error)
	Create(ctx context.Context, ev models.Event) (models.Event, error)
	Join(ctx context.Context, eventID, userID string) error
}

// Seed copies the events of src into w when w holds no events yet. Each
// seeded event gets as many accepted participants as src reports for it.
// It returns the number of events written.
func Seed(ctx context.Context, w Writer, src Source) (int, error) {
	existing, err := w.CountEvents(ctx)
	if err != nil {
		return 0, err
	}
	if existing > 0 {
		return 0, nil
	}

	ds, err := src.Snapshot(ctx)
	if err != nil {
		return 0, err
	}

	for i, ev := range ds.Events {
		created, err := w.Create(ctx, ev)
		if err != nil {
			return i, fmt.Errorf("failed to seed event %q: %w", ev.Title, err)
		}
		for n, count := 0, ds.Counts.Count(ev); n < count; n++ {
			if err := w.Join(ctx, created.ID, seedUserID(n)); err != nil {
				return i, err
			}
		}
	}
	return len(ds.Events), nil
}

func seedUserID(n int) string {
	return fmt.Sprintf("seed-%04d", n+1)
}
