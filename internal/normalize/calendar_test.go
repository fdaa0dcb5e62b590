package normalize

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/jobs"
	"cadence/internal/models"
)

func calendarEvent(t *testing.T, payload interface{}) *models.RawEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.RawEvent{
		ID:         "ev2",
		UserID:     "u1",
		Provider:   ProviderCalendar,
		SourceID:   "cal-456",
		Payload:    raw,
		OccurredAt: time.Date(2026, 3, 5, 8, 0, 0, 0, time.UTC),
	}
}

func TestCalendarNormalizeBasic(t *testing.T) {
	n := NewCalendarNormalizer()
	ev := calendarEvent(t, map[string]interface{}{
		"event_id":    "cal-456",
		"title":       "Renewal sync",
		"description": "Walk through contract terms",
		"location":    "Room 4",
		"start":       "2026-03-05T10:00:00Z",
		"organizer": map[string]interface{}{
			"email":        "Jane.Smith@Example.com",
			"display_name": "Jane Smith",
		},
		"attendees": []map[string]interface{}{
			{"email": "me@corp.example", "self": true},
			{"email": "bob@example.com", "display_name": "Bob Lee"},
		},
	})

	out, err := n.Normalize(ev)
	require.NoError(t, err)

	require.Len(t, out.Interactions, 1)
	in := out.Interactions[0]
	assert.Equal(t, "meeting", in.Type)
	assert.Equal(t, ProviderCalendar, in.Source)
	assert.Equal(t, "cal-456", in.SourceID)
	require.NotNil(t, in.Subject)
	assert.Equal(t, "Renewal sync", *in.Subject)
	require.NotNil(t, in.BodyText)
	assert.Contains(t, *in.BodyText, "contract terms")
	assert.Contains(t, *in.BodyText, "Location: Room 4")

	// Organizer is the counterpart, lowercased
	require.NotNil(t, in.CounterpartVal)
	assert.Equal(t, "jane.smith@example.com", *in.CounterpartVal)

	// The start time wins over the raw event's occurrence time
	assert.Equal(t, time.Date(2026, 3, 5, 10, 0, 0, 0, time.UTC), in.OccurredAt)

	// Self attendee is never an identity candidate
	require.Len(t, out.Identities, 2)
	values := []string{out.Identities[0].Value, out.Identities[1].Value}
	assert.Contains(t, values, "jane.smith@example.com")
	assert.Contains(t, values, "bob@example.com")
	assert.NotContains(t, values, "me@corp.example")

	assert.Equal(t, []jobs.Kind{jobs.KindResolve, jobs.KindEmbed}, out.FollowUps)
}

func TestCalendarNormalizeCounterpartFallsBackToAttendee(t *testing.T) {
	n := NewCalendarNormalizer()
	ev := calendarEvent(t, map[string]interface{}{
		"title": "1:1",
		"attendees": []map[string]interface{}{
			{"email": "me@corp.example", "self": true},
			{"email": "bob@example.com"},
		},
	})

	out, err := n.Normalize(ev)
	require.NoError(t, err)

	require.NotNil(t, out.Interactions[0].CounterpartVal)
	assert.Equal(t, "bob@example.com", *out.Interactions[0].CounterpartVal)
}

func TestCalendarNormalizeSelfOnlyMeetingHasNoCounterpart(t *testing.T) {
	n := NewCalendarNormalizer()
	ev := calendarEvent(t, map[string]interface{}{
		"title": "Focus block",
		"attendees": []map[string]interface{}{
			{"email": "me@corp.example", "self": true},
		},
	})

	out, err := n.Normalize(ev)
	require.NoError(t, err)

	assert.Nil(t, out.Interactions[0].CounterpartVal)
	assert.Empty(t, out.Identities)
	assert.Equal(t, []jobs.Kind{jobs.KindEmbed}, out.FollowUps)
}

func TestCalendarNormalizeEmptyPayloadRejected(t *testing.T) {
	n := NewCalendarNormalizer()
	ev := calendarEvent(t, map[string]interface{}{})

	out, err := n.Normalize(ev)
	assert.Nil(t, out)
	assert.Error(t, err)
}

func TestRegistryRouting(t *testing.T) {
	registry := NewRegistry(NewMailNormalizer(), NewCalendarNormalizer())

	mail, err := registry.For(ProviderMail)
	require.NoError(t, err)
	assert.Equal(t, ProviderMail, mail.Provider())

	calendar, err := registry.For(ProviderCalendar)
	require.NoError(t, err)
	assert.Equal(t, ProviderCalendar, calendar.Provider())

	_, err = registry.For("sms")
	assert.Error(t, err)
}
