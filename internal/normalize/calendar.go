package normalize

import (
	"encoding/json"
	"fmt"
	"strings"

	"cadence/internal/jobs"
	"cadence/internal/models"
)

// ProviderCalendar is the provider tag for calendar events
const ProviderCalendar = "calendar"

// calendarPayload is the tolerated shape of a raw calendar event
type calendarPayload struct {
	EventID     string             `json:"event_id"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Location    string             `json:"location"`
	Start       string             `json:"start"`
	End         string             `json:"end"`
	Organizer   *calendarAttendee  `json:"organizer"`
	Attendees   []calendarAttendee `json:"attendees"`
}

type calendarAttendee struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Self        bool   `json:"self"`
}

// CalendarNormalizer converts raw calendar events into interactions
type CalendarNormalizer struct{}

// NewCalendarNormalizer creates a calendar normalizer
func NewCalendarNormalizer() *CalendarNormalizer {
	return &CalendarNormalizer{}
}

// Provider returns the provider tag handled by this normalizer
func (n *CalendarNormalizer) Provider() string {
	return ProviderCalendar
}

// Normalize produces one meeting interaction per raw calendar event. The
// counterpart is the organizer when present, otherwise the first attendee
// that is not the user themselves. Every attendee becomes an identity
// candidate.
func (n *CalendarNormalizer) Normalize(ev *models.RawEvent) (*Output, error) {
	var payload calendarPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed calendar payload: %w", err)
	}

	if payload.Title == "" && payload.Description == "" && len(payload.Attendees) == 0 {
		return nil, fmt.Errorf("calendar payload has no title, description, or attendees")
	}

	occurredAt := ev.OccurredAt
	if payload.Start != "" {
		if parsed, ok := parseEventTime(payload.Start); ok {
			occurredAt = parsed
		}
	}

	var bodyParts []string
	if payload.Description != "" {
		bodyParts = append(bodyParts, payload.Description)
	}
	if payload.Location != "" {
		bodyParts = append(bodyParts, "Location: "+payload.Location)
	}
	for _, a := range payload.Attendees {
		if a.Email != "" {
			bodyParts = append(bodyParts, "Attendee: "+attendeeLabel(a))
		}
	}
	bodyText := strings.Join(bodyParts, "\n")

	meta := map[string]interface{}{}
	if payload.EventID != "" {
		meta["event_id"] = payload.EventID
	}
	if payload.Start != "" {
		meta["start"] = payload.Start
	}
	if payload.End != "" {
		meta["end"] = payload.End
	}
	if payload.Location != "" {
		meta["location"] = payload.Location
	}
	metaJSON, _ := json.Marshal(meta)

	interaction := models.Interaction{
		UserID:     ev.UserID,
		Type:       "meeting",
		SourceMeta: metaJSON,
		Source:     ProviderCalendar,
		SourceID:   ev.SourceID,
		OccurredAt: occurredAt,
	}
	if payload.Title != "" {
		title := payload.Title
		interaction.Subject = &title
	}
	if bodyText != "" {
		interaction.BodyText = &bodyText
	}

	var identities []models.IdentityCandidate
	addIdentity := func(a calendarAttendee) {
		if a.Email == "" || a.Self {
			return
		}
		identities = append(identities, models.IdentityCandidate{
			Kind:        "email",
			Value:       strings.ToLower(strings.TrimSpace(a.Email)),
			DisplayName: a.DisplayName,
			Provider:    ProviderCalendar,
		})
	}

	var counterpart *calendarAttendee
	if payload.Organizer != nil && payload.Organizer.Email != "" && !payload.Organizer.Self {
		counterpart = payload.Organizer
	}
	if payload.Organizer != nil {
		addIdentity(*payload.Organizer)
	}
	for i := range payload.Attendees {
		addIdentity(payload.Attendees[i])
		if counterpart == nil && payload.Attendees[i].Email != "" && !payload.Attendees[i].Self {
			counterpart = &payload.Attendees[i]
		}
	}

	if counterpart != nil {
		kind := "email"
		value := strings.ToLower(strings.TrimSpace(counterpart.Email))
		interaction.CounterpartKind = &kind
		interaction.CounterpartVal = &value
	}

	followUps := []jobs.Kind{}
	if len(identities) > 0 {
		followUps = append(followUps, jobs.KindResolve)
	}
	if bodyText != "" || payload.Title != "" {
		followUps = append(followUps, jobs.KindEmbed)
	}

	return &Output{
		Interactions: []models.Interaction{interaction},
		Identities:   identities,
		FollowUps:    followUps,
	}, nil
}

func attendeeLabel(a calendarAttendee) string {
	if a.DisplayName != "" {
		return fmt.Sprintf("%s <%s>", a.DisplayName, a.Email)
	}
	return a.Email
}
