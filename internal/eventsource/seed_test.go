package eventsource

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyevents/partyevents/internal/models"
)

type fakeWriter struct {
	existing int
	created  []models.Event
	joined   map[string][]string
	failOn   string
}

func (w *fakeWriter) CountEvents(ctx context.Context) (int, error) {
	return w.existing + len(w.created), nil
}

func (w *fakeWriter) Create(ctx context.Context, ev models.Event) (models.Event, error) {
	if ev.Title == w.failOn {
		return models.Event{}, errors.New("insert failed")
	}
	w.created = append(w.created, ev)
	return ev, nil
}

func (w *fakeWriter) Join(ctx context.Context, eventID, userID string) error {
	if w.joined == nil {
		w.joined = map[string][]string{}
	}
	w.joined[eventID] = append(w.joined[eventID], userID)
	return nil
}

func seedDataset() Dataset {
	return Dataset{
		Events: []models.Event{
			{ID: "a", Title: "Apéro"},
			{ID: "b", Title: "Techno"},
		},
		Counts: models.ParticipantCounts{"a": 3},
	}
}

func TestSeedFillsEmptyWriter(t *testing.T) {
	w := &fakeWriter{}

	n, err := Seed(context.Background(), w, Static{Dataset: seedDataset()})

	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.Len(t, w.created, 2)
	assert.Equal(t, []string{"seed-0001", "seed-0002", "seed-0003"}, w.joined["a"])
	assert.Empty(t, w.joined["b"])
}

func TestSeedSkipsPopulatedWriter(t *testing.T) {
	w := &fakeWriter{existing: 1}

	n, err := Seed(context.Background(), w, Static{Dataset: seedDataset()})

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, w.created)
}

func TestSeedRunsOnce(t *testing.T) {
	w := &fakeWriter{}
	src := Static{Dataset: seedDataset()}

	_, err := Seed(context.Background(), w, src)
	require.NoError(t, err)
	n, err := Seed(context.Background(), w, src)

	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, w.created, 2)
}

func TestSeedReportsCreateFailure(t *testing.T) {
	w := &fakeWriter{failOn: "Techno"}

	n, err := Seed(context.Background(), w, Static{Dataset: seedDataset()})

	require.Error(t, err)
	assert.Equal(t, 1, n)
}
