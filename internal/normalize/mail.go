package normalize

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"cadence/internal/jobs"
	"cadence/internal/models"
)

// ProviderMail is the provider tag for mail events
const ProviderMail = "mail"

// mailPayload is the tolerated shape of a raw mail event. Providers differ
// in how much of this they fill in; only from and either body or subject are
// required to produce an interaction.
type mailPayload struct {
	MessageID string          `json:"message_id"`
	Subject   string          `json:"subject"`
	From      string          `json:"from"`
	To        []string        `json:"to"`
	Cc        []string        `json:"cc"`
	Date      string          `json:"date"`
	Body      json.RawMessage `json:"body"`
}

// mailBodyPart mirrors the nested body structure mail providers return:
// a mime type, optionally encoded data, and child parts for multipart
// messages.
type mailBodyPart struct {
	MimeType string         `json:"mime_type"`
	Encoding string         `json:"encoding"`
	Data     string         `json:"data"`
	Parts    []mailBodyPart `json:"parts"`
}

// MailNormalizer converts raw mail events into interactions
type MailNormalizer struct{}

// NewMailNormalizer creates a mail normalizer
func NewMailNormalizer() *MailNormalizer {
	return &MailNormalizer{}
}

// Provider returns the provider tag handled by this normalizer
func (n *MailNormalizer) Provider() string {
	return ProviderMail
}

// Normalize produces one message interaction per raw mail event, with the
// sender as the counterpart identity and every address in the payload
// emitted as an identity candidate.
func (n *MailNormalizer) Normalize(ev *models.RawEvent) (*Output, error) {
	var payload mailPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		return nil, fmt.Errorf("malformed mail payload: %w", err)
	}

	if payload.From == "" {
		return nil, fmt.Errorf("mail payload missing from address")
	}

	fromAddr, fromName := parseAddress(payload.From)
	if fromAddr == "" {
		return nil, fmt.Errorf("unparseable from address %q", payload.From)
	}

	bodyText := extractMailBody(payload.Body)

	occurredAt := ev.OccurredAt
	if payload.Date != "" {
		if parsed, err := mail.ParseDate(payload.Date); err == nil {
			occurredAt = parsed
		}
	}

	meta := map[string]interface{}{
		"from": payload.From,
		"to":   payload.To,
	}
	if payload.MessageID != "" {
		meta["message_id"] = payload.MessageID
	}
	metaJSON, _ := json.Marshal(meta)

	counterpartKind := "email"
	counterpartVal := fromAddr

	interaction := models.Interaction{
		UserID:          ev.UserID,
		Type:            "message",
		SourceMeta:      metaJSON,
		Source:          ProviderMail,
		SourceID:        ev.SourceID,
		CounterpartKind: &counterpartKind,
		CounterpartVal:  &counterpartVal,
		OccurredAt:      occurredAt,
	}
	if payload.Subject != "" {
		subject := payload.Subject
		interaction.Subject = &subject
	}
	if bodyText != "" {
		interaction.BodyText = &bodyText
	}

	identities := []models.IdentityCandidate{{
		Kind:        "email",
		Value:       fromAddr,
		DisplayName: fromName,
		Provider:    ProviderMail,
	}}
	for _, raw := range append(payload.To, payload.Cc...) {
		addr, name := parseAddress(raw)
		if addr == "" {
			continue
		}
		identities = append(identities, models.IdentityCandidate{
			Kind:        "email",
			Value:       addr,
			DisplayName: name,
			Provider:    ProviderMail,
		})
	}

	followUps := []jobs.Kind{jobs.KindResolve}
	if bodyText != "" || payload.Subject != "" {
		followUps = append(followUps, jobs.KindEmbed)
	}

	return &Output{
		Interactions: []models.Interaction{interaction},
		Identities:   identities,
		FollowUps:    followUps,
	}, nil
}

// extractMailBody reconstructs plain text from the body field, which may be
// a bare string or a nested, possibly encoded part structure
func extractMailBody(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	// Simple providers send the body as a plain string
	var plain string
	if err := json.Unmarshal(raw, &plain); err == nil {
		return strings.TrimSpace(plain)
	}

	var part mailBodyPart
	if err := json.Unmarshal(raw, &part); err != nil {
		return ""
	}
	return strings.TrimSpace(extractPartText(part))
}

// extractPartText walks a part tree, preferring text/plain over text/html
func extractPartText(part mailBodyPart) string {
	if len(part.Parts) > 0 {
		var textParts []string
		var htmlParts []string

		for _, child := range part.Parts {
			content := extractPartText(child)
			if content == "" {
				continue
			}
			if strings.HasPrefix(child.MimeType, "text/html") {
				htmlParts = append(htmlParts, content)
			} else {
				textParts = append(textParts, content)
			}
		}

		if len(textParts) > 0 {
			return strings.Join(textParts, "\n\n")
		}
		return strings.Join(htmlParts, "\n\n")
	}

	content := decodePartData(part.Data, part.Encoding)
	if strings.HasPrefix(part.MimeType, "text/html") {
		return cleanHTML(content)
	}
	return content
}

// decodePartData handles the transfer encodings mail providers use
func decodePartData(data, encoding string) string {
	switch strings.ToLower(encoding) {
	case "base64":
		if decoded, err := base64.StdEncoding.DecodeString(data); err == nil {
			return string(decoded)
		}
		if decoded, err := base64.URLEncoding.DecodeString(data); err == nil {
			return string(decoded)
		}
		return ""
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(data)))
		if err != nil {
			return ""
		}
		return string(decoded)
	default:
		return data
	}
}

// parseAddress extracts the address and display name from an RFC 5322
// address string, tolerating bare addresses
func parseAddress(raw string) (addr, name string) {
	parsed, err := mail.ParseAddress(raw)
	if err != nil {
		trimmed := strings.TrimSpace(strings.ToLower(raw))
		if strings.Contains(trimmed, "@") {
			return trimmed, ""
		}
		return "", ""
	}
	return strings.ToLower(parsed.Address), parsed.Name
}

// parseEventTime parses the timestamp formats calendar providers use
func parseEventTime(value string) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}
