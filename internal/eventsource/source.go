package eventsource

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/partyevents/partyevents/internal/models"
)

// Dataset is one consistent view of the external data: the full event
// collection and the live participant count of each event.
type Dataset struct {
	Events []models.Event
	Counts models.ParticipantCounts
}

// Source supplies datasets to the feed.
type Source interface {
	// Name identifies the source in logs.
	Name() string

	// Snapshot returns the current events and participant counts.
	Snapshot(ctx context.Context) (Dataset, error)
}

// seedFile is the on-disk layout read by FileSource.
type seedFile struct {
	Events []seedEvent `yaml:"events"`
}

type seedEvent struct {
	models.Event `yaml:",inline"`
	Participants int `yaml:"participants"`
}

// FileSource reads events from a YAML seed file on every snapshot.
type FileSource struct {
	path string
	now  func() time.Time
}

// NewFileSource creates a source backed by the YAML file at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path, now: time.Now}
}

func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Snapshot parses the seed file. Events without an id get a random one and
// events without a creation time get the load time.
func (s *FileSource) Snapshot(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		return Dataset{}, fmt.Errorf("failed to read event seed: %w", err)
	}

	return Parse(raw, s.now())
}

// Parse decodes a YAML seed document.
func Parse(raw []byte, loadedAt time.Time) (Dataset, error) {
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return Dataset{}, fmt.Errorf("failed to parse event seed: %w", err)
	}

	ds := Dataset{
		Events: make([]models.Event, 0, len(seed.Events)),
		Counts: make(models.ParticipantCounts, len(seed.Events)),
	}
	for _, se := range seed.Events {
		ev := se.Event
		if ev.ID == "" {
			ev.ID = uuid.New().String()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = loadedAt
		}
		if se.Participants < 0 {
			return Dataset{}, fmt.Errorf("event %s: negative participant count %d", ev.ID, se.Participants)
		}
		ds.Events = append(ds.Events, ev)
		ds.Counts[ev.ID] = se.Participants
	}
	return ds, nil
}

// Static serves a fixed dataset. It is used when no backing store is
// configured and in tests.
type Static struct {
	Dataset Dataset
}

func (s Static) Name() string {
	return "static"
}

func (s Static) Snapshot(ctx context.Context) (Dataset, error) {
	if err := ctx.Err(); err != nil {
		return Dataset{}, err
	}
	return s.Dataset, nil
}
