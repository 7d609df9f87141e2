package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/partyevents/partyevents/internal/models"
)

var now = time.Date(2026, 6, 20, 18, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func allQuery() models.Query {
	q := models.DefaultQuery()
	q.Segment = models.SegmentAll
	return q
}

func titles(events []models.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Title
	}
	return out
}

func scenarioEvents() []models.Event {
	return []models.Event{
		{ID: "pool", Title: "Pool Party", Location: models.Location{City: "Nice"}, Date: now.Add(24 * time.Hour), MaxParticipants: 50},
		{ID: "jazz", Title: "Jazz Night", Location: models.Location{City: "Paris"}, Date: now.Add(-24 * time.Hour), MaxParticipants: 50},
	}
}

func TestUpcomingSegmentScenario(t *testing.T) {
	e := New(WithClock(fixedClock))
	q := models.DefaultQuery()
	q.Segment = models.SegmentUpcoming

	got := e.Apply(scenarioEvents(), nil, q)

	assert.Equal(t, []string{"Pool Party"}, titles(got))
}

func TestSearchIsCaseInsensitive(t *testing.T) {
	e := New(WithClock(fixedClock))

	for _, segment := range []models.Segment{models.SegmentAll, models.SegmentPast} {
		q := models.DefaultQuery()
		q.Segment = segment
		q.SearchTerm = "jazz"

		got := e.Apply(scenarioEvents(), nil, q)
		assert.Equal(t, []string{"Jazz Night"}, titles(got), "segment %s", segment)
	}
}

func TestSearchMatchesDescriptionAndCity(t *testing.T) {
	events := []models.Event{
		{ID: "a", Title: "Sunset", Description: "Rooftop DJ set", Location: models.Location{City: "Lyon"}},
		{ID: "b", Title: "Brunch", Location: models.Location{City: "Marseille"}},
		{ID: "c", Title: "Karaoke", Location: models.Location{City: "Paris"}},
	}
	e := New(WithClock(fixedClock))

	q := allQuery()
	q.SearchTerm = "DJ"
	assert.Equal(t, []string{"Sunset"}, titles(e.Apply(events, nil, q)))

	q.SearchTerm = "MARS"
	assert.Equal(t, []string{"Brunch"}, titles(e.Apply(events, nil, q)))
}

func TestCategoryFilterKeepsRelativeOrder(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "c1", Category: models.CategoryConcert, Date: now},
		{ID: "2", Title: "f1", Category: models.CategoryFestival, Date: now},
		{ID: "3", Title: "b1", Category: models.CategoryBar, Date: now},
	}
	q := allQuery()
	q.Categories = []models.Category{models.CategoryConcert, models.CategoryBar}

	got := New(WithClock(fixedClock)).Apply(events, nil, q)

	assert.Equal(t, []string{"c1", "b1"}, titles(got))
}

func TestCityFilter(t *testing.T) {
	q := allQuery()
	q.Cities = []string{"Paris"}

	got := New(WithClock(fixedClock)).Apply(scenarioEvents(), nil, q)

	assert.Equal(t, []string{"Jazz Night"}, titles(got))
}

func TestOnlyAvailableIsStrict(t *testing.T) {
	events := []models.Event{{ID: "full", Title: "Full", MaxParticipants: 10, Date: now}}
	q := allQuery()
	q.OnlyAvailable = true

	e := New(WithClock(fixedClock))
	assert.Empty(t, e.Apply(events, models.ParticipantCounts{"full": 10}, q))
	assert.Len(t, e.Apply(events, models.ParticipantCounts{"full": 9}, q), 1)
}

func TestParticipantBounds(t *testing.T) {
	events := []models.Event{
		{ID: "a", Title: "small", MaxParticipants: 100},
		{ID: "b", Title: "medium", MaxParticipants: 100},
		{ID: "c", Title: "large", MaxParticipants: 100},
		{ID: "d", Title: "unknown", MaxParticipants: 100},
	}
	counts := models.ParticipantCounts{"a": 2, "b": 10, "c": 40}
	lo, hi := 2, 10

	tests := []struct {
		name     string
		min, max *int
		expected []string
	}{
		{"min only", &lo, nil, []string{"small", "medium", "large"}},
		{"max only", nil, &hi, []string{"small", "medium", "unknown"}},
		{"both inclusive", &lo, &hi, []string{"small", "medium"}},
		{"contradictory bounds yield nothing", &hi, &lo, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := allQuery()
			q.MinParticipants = tt.min
			q.MaxParticipants = tt.max
			assert.Equal(t, tt.expected, titles(New().Apply(events, counts, q)))
		})
	}
}

func TestVisibilityAndAccessTypeStack(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "open public", IsPrivate: false, RequiresApproval: false},
		{ID: "2", Title: "open private", IsPrivate: true, RequiresApproval: false},
		{ID: "3", Title: "invite public", IsPrivate: false, RequiresApproval: true},
		{ID: "4", Title: "invite private", IsPrivate: true, RequiresApproval: true},
	}

	tests := []struct {
		name           string
		includePrivate bool
		access         models.AccessType
		expected       []string
	}{
		{"everything", true, models.AccessTypeAll, []string{"open public", "open private", "invite public", "invite private"}},
		{"invitation ignores visibility", true, models.AccessTypeInvitation, []string{"invite public", "invite private"}},
		{"public access", true, models.AccessTypePublic, []string{"open public", "open private"}},
		{"hide private", false, models.AccessTypeAll, []string{"open public", "invite public"}},
		{"hide private and invitation", false, models.AccessTypeInvitation, []string{"invite public"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := allQuery()
			q.IncludePrivate = tt.includePrivate
			q.AccessType = tt.access
			assert.Equal(t, tt.expected, titles(New().Apply(events, nil, q)))
		})
	}
}

func TestSegmentAndDateBoundsCompose(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "last week", Date: now.Add(-7 * 24 * time.Hour)},
		{ID: "2", Title: "now", Date: now},
		{ID: "3", Title: "tomorrow", Date: now.Add(24 * time.Hour)},
		{ID: "4", Title: "next month", Date: now.Add(30 * 24 * time.Hour)},
	}
	to := now.Add(2 * 24 * time.Hour)
	e := New(WithClock(fixedClock))

	q := models.DefaultQuery()
	assert.Equal(t, []string{"now", "tomorrow", "next month"}, titles(e.Apply(events, nil, q)), "upcoming includes start == now")

	q.DateTo = &to
	assert.Equal(t, []string{"now", "tomorrow"}, titles(e.Apply(events, nil, q)))

	q = models.DefaultQuery()
	q.Segment = models.SegmentPast
	assert.Equal(t, []string{"last week"}, titles(e.Apply(events, nil, q)))

	from := now.Add(24 * time.Hour)
	q = allQuery()
	q.DateFrom = &from
	assert.Equal(t, []string{"tomorrow", "next month"}, titles(e.Apply(events, nil, q)), "date bounds are inclusive")
}

func TestClockSampledOncePerRun(t *testing.T) {
	calls := 0
	clock := func() time.Time {
		calls++
		return now.Add(time.Duration(calls) * time.Hour)
	}
	events := make([]models.Event, 10)
	for i := range events {
		events[i] = models.Event{ID: string(rune('a' + i)), Title: "e", Date: now.Add(90 * time.Minute)}
	}

	got := New(WithClock(clock)).Apply(events, nil, models.DefaultQuery())

	assert.Equal(t, 1, calls)
	assert.Len(t, got, 10)
}

func TestSortByDate(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "b", Date: now.Add(2 * time.Hour)},
		{ID: "2", Title: "a", Date: now.Add(1 * time.Hour)},
		{ID: "3", Title: "c", Date: now.Add(3 * time.Hour)},
	}
	e := New(WithClock(fixedClock))

	q := allQuery()
	asc := e.Apply(events, nil, q)
	assert.Equal(t, []string{"a", "b", "c"}, titles(asc))

	q.SortOrder = models.SortOrderDesc
	desc := e.Apply(events, nil, q)
	assert.Equal(t, []string{"c", "b", "a"}, titles(desc))
}

func TestSortByPopularityDefaultsMissingToZero(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "ten"},
		{Title: "no id"},
		{ID: "2", Title: "three"},
		{ID: "3", Title: "unknown"},
	}
	counts := models.ParticipantCounts{"1": 10, "2": 3}
	q := allQuery()
	q.SortBy = models.SortByPopularity
	q.SortOrder = models.SortOrderDesc

	got := New().Apply(events, counts, q)

	assert.Equal(t, []string{"ten", "three", "no id", "unknown"}, titles(got), "ties keep input order")
}

func TestSortByCreatedAt(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "newest", CreatedAt: now},
		{ID: "2", Title: "oldest", CreatedAt: now.Add(-48 * time.Hour)},
		{ID: "3", Title: "middle", CreatedAt: now.Add(-24 * time.Hour)},
	}
	q := allQuery()
	q.SortBy = models.SortByCreatedAt

	assert.Equal(t, []string{"oldest", "middle", "newest"}, titles(New().Apply(events, nil, q)))
}

func TestSortByTitleUsesCollation(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "Zebra"},
		{ID: "2", Title: "Éclipse"},
		{ID: "3", Title: "apéro"},
	}
	q := allQuery()
	q.SortBy = models.SortByTitle

	got := New(WithLocale("fr")).Apply(events, nil, q)

	assert.Equal(t, []string{"apéro", "Éclipse", "Zebra"}, titles(got))
}

func TestSortIsStable(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "first", Date: now},
		{ID: "2", Title: "second", Date: now},
		{ID: "3", Title: "third", Date: now},
	}
	q := allQuery()

	assert.Equal(t, []string{"first", "second", "third"}, titles(New().Apply(events, nil, q)))

	q.SortOrder = models.SortOrderDesc
	assert.Equal(t, []string{"first", "second", "third"}, titles(New().Apply(events, nil, q)))
}

func TestApplyIsDeterministicAndDoesNotMutateInput(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "b", Date: now.Add(2 * time.Hour), Category: models.CategoryBar},
		{ID: "2", Title: "a", Date: now.Add(1 * time.Hour), Category: models.CategoryClub},
		{ID: "3", Title: "c", Date: now.Add(3 * time.Hour), Category: models.CategoryBar},
	}
	original := append([]models.Event(nil), events...)
	counts := models.ParticipantCounts{"1": 4}
	q := allQuery()
	q.Categories = []models.Category{models.CategoryBar, models.CategoryClub}

	e := New(WithClock(fixedClock))
	first := e.Apply(events, counts, q)
	second := e.Apply(events, counts, q)

	assert.Equal(t, first, second)
	assert.Equal(t, original, events)
	assert.Equal(t, models.ParticipantCounts{"1": 4}, counts)
}

func TestApplyConcurrently(t *testing.T) {
	events := []models.Event{{ID: "1", Title: "b"}, {ID: "2", Title: "a"}}
	q := allQuery()
	q.SortBy = models.SortByTitle
	e := New()

	done := make(chan []string, 8)
	for i := 0; i < 8; i++ {
		go func() { done <- titles(e.Apply(events, nil, q)) }()
	}
	for i := 0; i < 8; i++ {
		require.Equal(t, []string{"a", "b"}, <-done)
	}
}

func TestDefaultQueryIsAllPass(t *testing.T) {
	events := []models.Event{
		{ID: "1", Title: "x", Date: now.Add(time.Hour), IsPrivate: true, RequiresApproval: true},
		{ID: "2", Title: "y", Date: now.Add(2 * time.Hour)},
	}

	got := New(WithClock(fixedClock)).Apply(events, nil, models.DefaultQuery())

	assert.Equal(t, []string{"x", "y"}, titles(got))
}

func TestWithLocaleFallsBack(t *testing.T) {
	e := New(WithLocale("not a locale!"))
	assert.Equal(t, DefaultLocale, e.Locale().String())
}
