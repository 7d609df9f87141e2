package eventsource

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyevents/partyevents/internal/models"
)

const seed = `
events:
  - id: pool
    title: Pool Party
    description: Bring a towel
    location:
      city: Nice
    date: 2026-07-14T20:00:00Z
    created_at: 2026-06-01T10:00:00Z
    category: FESTIVAL
    max_participants: 40
    participants: 12
  - title: Jazz Night
    location:
      city: Paris
    date: 2026-06-01T21:00:00Z
    category: CONCERT
    max_participants: 80
    is_private: true
    requires_approval: true
`

func TestParse(t *testing.T) {
	loadedAt := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	ds, err := Parse([]byte(seed), loadedAt)
	require.NoError(t, err)
	require.Len(t, ds.Events, 2)

	pool := ds.Events[0]
	assert.Equal(t, "pool", pool.ID)
	assert.Equal(t, "Nice", pool.Location.City)
	assert.Equal(t, models.CategoryFestival, pool.Category)
	assert.True(t, pool.Date.Equal(time.Date(2026, 7, 14, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, 12, ds.Counts.Count(pool))

	jazz := ds.Events[1]
	assert.NotEmpty(t, jazz.ID, "missing ids are generated")
	assert.True(t, jazz.CreatedAt.Equal(loadedAt))
	assert.True(t, jazz.IsPrivate)
	assert.True(t, jazz.RequiresApproval)
	assert.Equal(t, 0, ds.Counts.Count(jazz))
}

func TestParseRejectsNegativeCounts(t *testing.T) {
	_, err := Parse([]byte("events:\n  - id: x\n    participants: -1\n"), time.Now())
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o600))

	src := NewFileSource(path)
	ds, err := src.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, ds.Events, 2)
	assert.Contains(t, src.Name(), "events.yaml")

	_, err = NewFileSource(filepath.Join(t.TempDir(), "missing.yaml")).Snapshot(context.Background())
	assert.Error(t, err)
}

func TestStaticHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Static{}.Snapshot(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBundledSeedParses(t *testing.T) {
	ds, err := NewFileSource(filepath.Join("..", "..", "data", "events.yaml")).Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, ds.Events, 5)
	for _, ev := range ds.Events {
		assert.NotEmpty(t, ev.ID)
		assert.True(t, ev.Category.IsKnown(), "unknown category %q", ev.Category)
		assert.LessOrEqual(t, ds.Counts.Count(ev), ev.MaxParticipants)
	}
}
