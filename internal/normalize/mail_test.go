package normalize

import (
	"encoding/base64"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/jobs"
	"cadence/internal/models"
)

func mailEvent(t *testing.T, payload interface{}) *models.RawEvent {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &models.RawEvent{
		ID:         "ev1",
		UserID:     "u1",
		Provider:   ProviderMail,
		SourceID:   "msg-123",
		Payload:    raw,
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestMailNormalizeBasic(t *testing.T) {
	n := NewMailNormalizer()
	ev := mailEvent(t, map[string]interface{}{
		"message_id": "msg-123",
		"subject":    "Renewal discussion",
		"from":       "Jane Smith <jane.smith@example.com>",
		"to":         []string{"me@corp.example"},
		"cc":         []string{"Bob Lee <bob@example.com>"},
		"body":       "Hi, let's talk about the renewal next week.",
	})

	out, err := n.Normalize(ev)
	require.NoError(t, err)

	require.Len(t, out.Interactions, 1)
	in := out.Interactions[0]
	assert.Equal(t, "message", in.Type)
	assert.Equal(t, ProviderMail, in.Source)
	assert.Equal(t, "msg-123", in.SourceID)
	assert.Equal(t, "u1", in.UserID)
	require.NotNil(t, in.Subject)
	assert.Equal(t, "Renewal discussion", *in.Subject)
	require.NotNil(t, in.BodyText)
	assert.Contains(t, *in.BodyText, "renewal")
	require.NotNil(t, in.CounterpartVal)
	assert.Equal(t, "jane.smith@example.com", *in.CounterpartVal)

	require.Len(t, out.Identities, 3)
	assert.Equal(t, "jane.smith@example.com", out.Identities[0].Value)
	assert.Equal(t, "Jane Smith", out.Identities[0].DisplayName)
	assert.Equal(t, []jobs.Kind{jobs.KindResolve, jobs.KindEmbed}, out.FollowUps)
}

func TestMailNormalizeIdempotentKeys(t *testing.T) {
	n := NewMailNormalizer()
	ev := mailEvent(t, map[string]interface{}{
		"from": "jane@example.com",
		"body": "hello",
	})

	first, err := n.Normalize(ev)
	require.NoError(t, err)
	second, err := n.Normalize(ev)
	require.NoError(t, err)

	assert.Equal(t, first.Interactions[0].Source, second.Interactions[0].Source)
	assert.Equal(t, first.Interactions[0].SourceID, second.Interactions[0].SourceID)
	assert.Equal(t, first.Interactions[0].UserID, second.Interactions[0].UserID)
}

func TestMailNormalizeNestedBase64Body(t *testing.T) {
	n := NewMailNormalizer()
	encoded := base64.StdEncoding.EncodeToString([]byte("Plain text content here."))
	ev := mailEvent(t, map[string]interface{}{
		"from": "jane@example.com",
		"body": map[string]interface{}{
			"mime_type": "multipart/alternative",
			"parts": []map[string]interface{}{
				{
					"mime_type": "text/plain",
					"encoding":  "base64",
					"data":      encoded,
				},
				{
					"mime_type": "text/html",
					"data":      "<p>HTML <b>content</b></p>",
				},
			},
		},
	})

	out, err := n.Normalize(ev)
	require.NoError(t, err)

	require.NotNil(t, out.Interactions[0].BodyText)
	assert.Equal(t, "Plain text content here.", *out.Interactions[0].BodyText)
}

func TestMailNormalizeHTMLFallback(t *testing.T) {
	n := NewMailNormalizer()
	ev := mailEvent(t, map[string]interface{}{
		"from": "jane@example.com",
		"body": map[string]interface{}{
			"mime_type": "text/html",
			"data":      "<html><style>p{color:red}</style><p>Visible text</p></html>",
		},
	})

	out, err := n.Normalize(ev)
	require.NoError(t, err)

	require.NotNil(t, out.Interactions[0].BodyText)
	assert.Contains(t, *out.Interactions[0].BodyText, "Visible text")
	assert.NotContains(t, *out.Interactions[0].BodyText, "color:red")
	assert.NotContains(t, *out.Interactions[0].BodyText, "<p>")
}

func TestMailNormalizeDateHeaderWins(t *testing.T) {
	n := NewMailNormalizer()
	ev := mailEvent(t, map[string]interface{}{
		"from": "jane@example.com",
		"date": "Mon, 02 Mar 2026 15:04:05 +0000",
		"body": "hello",
	})

	out, err := n.Normalize(ev)
	require.NoError(t, err)

	assert.Equal(t, 2026, out.Interactions[0].OccurredAt.Year())
	assert.Equal(t, time.March, out.Interactions[0].OccurredAt.Month())
	assert.Equal(t, 2, out.Interactions[0].OccurredAt.Day())
}

func TestMailNormalizeMissingFrom(t *testing.T) {
	n := NewMailNormalizer()
	ev := mailEvent(t, map[string]interface{}{
		"subject": "no sender",
	})

	out, err := n.Normalize(ev)
	assert.Nil(t, out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "from")
}

func TestMailNormalizeMalformedPayload(t *testing.T) {
	n := NewMailNormalizer()
	ev := &models.RawEvent{
		ID:       "ev1",
		UserID:   "u1",
		Provider: ProviderMail,
		SourceID: "msg-1",
		Payload:  json.RawMessage(`not json`),
	}

	out, err := n.Normalize(ev)
	assert.Nil(t, out)
	assert.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		expectedAddr string
		expectedName string
	}{
		{"full form", "Jane Smith <Jane.Smith@Example.com>", "jane.smith@example.com", "Jane Smith"},
		{"bare address", "jane@example.com", "jane@example.com", ""},
		{"bare uppercase", "JANE@EXAMPLE.COM", "jane@example.com", ""},
		{"not an address", "hello world", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, name := parseAddress(tt.raw)
			assert.Equal(t, tt.expectedAddr, addr)
			assert.Equal(t, tt.expectedName, name)
		})
	}
}
