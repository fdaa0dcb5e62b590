package timeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/models"
)

type fakeTimelineStore struct {
	interactions []models.Interaction
	existing     map[string]bool // interaction IDs already projected
	inserted     []models.ContactTimelineEvent
}

func (f *fakeTimelineStore) ListLinkedInteractions(_ context.Context, _ string) ([]models.Interaction, error) {
	return f.interactions, nil
}

func (f *fakeTimelineStore) InsertTimelineEvent(_ context.Context, ev *models.ContactTimelineEvent) (bool, error) {
	if f.existing[ev.InteractionID] {
		return false, nil
	}
	f.inserted = append(f.inserted, *ev)
	return true, nil
}

func strPtr(s string) *string { return &s }

func interactionAt(id string, at time.Time, subject string) models.Interaction {
	in := models.Interaction{
		ID:         id,
		UserID:     "u1",
		Type:       "email",
		OccurredAt: at,
	}
	if subject != "" {
		in.Subject = strPtr(subject)
	}
	return in
}

func TestProjectCreatesEvents(t *testing.T) {
	now := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeTimelineStore{
		interactions: []models.Interaction{
			interactionAt("i1", now, "Kickoff"),
			interactionAt("i2", now.Add(time.Hour), "Follow-up"),
		},
	}
	w := NewWriter(store)

	created, err := w.Project(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.Equal(t, 2, created)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "c1", store.inserted[0].ContactID)
	assert.Equal(t, "i1", store.inserted[0].InteractionID)
	assert.Equal(t, "email: Kickoff", store.inserted[0].Summary)
	assert.Equal(t, now, store.inserted[0].OccurredAt)
}

func TestProjectSkipsExisting(t *testing.T) {
	now := time.Now()
	store := &fakeTimelineStore{
		interactions: []models.Interaction{
			interactionAt("i1", now, "Kickoff"),
			interactionAt("i2", now, "Follow-up"),
		},
		existing: map[string]bool{"i1": true},
	}
	w := NewWriter(store)

	created, err := w.Project(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.Equal(t, 1, created)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "i2", store.inserted[0].InteractionID)
}

func TestProjectNoInteractions(t *testing.T) {
	w := NewWriter(&fakeTimelineStore{})

	created, err := w.Project(context.Background(), "u1", "c1")

	require.NoError(t, err)
	assert.Equal(t, 0, created)
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name        string
		interaction models.Interaction
		want        string
	}{
		{
			name:        "subject preferred",
			interaction: models.Interaction{Type: "email", Subject: strPtr("Kickoff"), BodyText: strPtr("Long body")},
			want:        "email: Kickoff",
		},
		{
			name:        "body fallback",
			interaction: models.Interaction{Type: "meeting", BodyText: strPtr("Discussed hiring")},
			want:        "meeting: Discussed hiring",
		},
		{
			name:        "type only",
			interaction: models.Interaction{Type: "meeting"},
			want:        "meeting",
		},
		{
			name:        "empty subject falls through to body",
			interaction: models.Interaction{Type: "email", Subject: strPtr(""), BodyText: strPtr("Body text")},
			want:        "email: Body text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Summarize(&tt.interaction))
		})
	}
}

func TestSummarizeTruncates(t *testing.T) {
	long := strings.Repeat("x", 300)
	got := Summarize(&models.Interaction{Type: "email", Subject: strPtr(long)})

	assert.Len(t, []rune(got), 140)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestSummarizeTruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("é", 300)
	got := Summarize(&models.Interaction{Type: "email", Subject: strPtr(long)})

	runes := []rune(got)
	assert.Len(t, runes, 140)
	assert.Equal(t, "email: ", string(runes[:7]))
	for _, r := range runes[7:137] {
		assert.Equal(t, 'é', r)
	}
}
