// Package insights derives AI-assisted summaries and scores for contacts
// and interactions, deduplicated by a deterministic fingerprint.
package insights

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"cadence/internal/jobs"
	"cadence/internal/models"
)

// Insight kinds supported by the generator
const (
	KindContactSummary     = "contact_summary"
	KindInteractionSummary = "interaction_summary"
)

// Subject types an insight can attach to
const (
	SubjectContact     = "contact"
	SubjectInteraction = "interaction"
)

// capabilityName keys the quota counters for the generation capability
const capabilityName = "insight_generation"

// contextInteractionLimit bounds how much recent activity feeds one
// contact-level prompt
const contextInteractionLimit = 20

// ChatClient is the slice of the OpenAI client the generator needs
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, messages []openai.ChatCompletionMessage, maxTokens int, temperature float32) (*openai.ChatCompletionResponse, error)
	GetGPTModel() string
}

// InsightStore is the persistence surface the generator needs
type InsightStore interface {
	GetInteraction(ctx context.Context, id string) (*models.Interaction, error)
	GetContact(ctx context.Context, id string) (*models.Contact, error)
	ListLinkedInteractions(ctx context.Context, contactID string) ([]models.Interaction, error)
	InsertInsight(ctx context.Context, insight *models.Insight) (bool, error)
}

// Generator produces insights for pipeline subjects
type Generator struct {
	client ChatClient
	store  InsightStore
	quota  *QuotaGuard
}

func NewGenerator(client ChatClient, store InsightStore, quota *QuotaGuard) *Generator {
	return &Generator{client: client, store: store, quota: quota}
}

// Fingerprint computes the deterministic hash that makes insight generation
// idempotent. Two attempts with identical defining fields collide on the
// unique constraint and the second is treated as already-done.
func Fingerprint(kind, subjectType, subjectID, model, title string) string {
	h := sha256.Sum256([]byte(kind + "|" + subjectType + "|" + subjectID + "|" + model + "|" + title))
	return hex.EncodeToString(h[:])
}

// Generate derives one insight for the subject. The quota guard is consulted
// before the external call; exhaustion surfaces as a retryable error. A
// fingerprint collision on insert means another worker already stored this
// insight and is not an error.
func (g *Generator) Generate(ctx context.Context, userID, kind, subjectType, subjectID string) (*models.Insight, bool, error) {
	prompt, err := g.buildPrompt(ctx, userID, kind, subjectType, subjectID)
	if err != nil {
		return nil, false, err
	}
	if prompt == "" {
		fmt.Printf("[INSIGHT] No activity for %s %s, skipping\n", subjectType, subjectID)
		return nil, false, nil
	}

	if err := g.quota.Allow(capabilityName); err != nil {
		return nil, false, err
	}

	messages := []openai.ChatCompletionMessage{
		{
			Role: openai.ChatMessageRoleSystem,
			Content: "You are an assistant that summarizes relationship activity for a personal CRM. " +
				"Respond with a short title on the first line, then a blank line, then 2-4 sentences of summary. " +
				"Be factual and specific; do not invent details.",
		},
		{
			Role:    openai.ChatMessageRoleUser,
			Content: prompt,
		},
	}

	resp, err := g.client.CreateChatCompletion(ctx, messages, 400, 0.3)
	if err != nil {
		return nil, false, jobs.Transient(fmt.Errorf("insight generation failed: %w", err))
	}
	if len(resp.Choices) == 0 {
		return nil, false, jobs.Transient(fmt.Errorf("insight generation returned no choices"))
	}

	title, body := splitTitleBody(resp.Choices[0].Message.Content)
	model := g.client.GetGPTModel()

	insight := &models.Insight{
		UserID:      userID,
		Kind:        kind,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Model:       model,
		Title:       title,
		Fingerprint: Fingerprint(kind, subjectType, subjectID, model, title),
		Body:        body,
	}

	inserted, err := g.store.InsertInsight(ctx, insight)
	if err != nil {
		return nil, false, fmt.Errorf("failed to store insight: %w", err)
	}
	if !inserted {
		fmt.Printf("[INSIGHT] Duplicate fingerprint for %s %s, already done\n", subjectType, subjectID)
		return insight, false, nil
	}

	fmt.Printf("[INSIGHT] Stored %s for %s %s: %s\n", kind, subjectType, subjectID, title)
	return insight, true, nil
}

func (g *Generator) buildPrompt(ctx context.Context, userID, kind, subjectType, subjectID string) (string, error) {
	switch subjectType {
	case SubjectInteraction:
		interaction, err := g.store.GetInteraction(ctx, subjectID)
		if err != nil {
			return "", fmt.Errorf("failed to load interaction %s: %w", subjectID, err)
		}
		if interaction.UserID != userID {
			return "", jobs.Invalid("", "insight", nil, fmt.Errorf("interaction %s does not belong to user", subjectID))
		}
		return interactionPrompt(interaction), nil

	case SubjectContact:
		contact, err := g.store.GetContact(ctx, subjectID)
		if err != nil {
			return "", fmt.Errorf("failed to load contact %s: %w", subjectID, err)
		}
		interactions, err := g.store.ListLinkedInteractions(ctx, subjectID)
		if err != nil {
			return "", fmt.Errorf("failed to load interactions for contact %s: %w", subjectID, err)
		}
		if len(interactions) == 0 {
			return "", nil
		}
		if len(interactions) > contextInteractionLimit {
			interactions = interactions[len(interactions)-contextInteractionLimit:]
		}
		return contactPrompt(contact, interactions), nil

	default:
		return "", jobs.Invalid("", "insight", nil, fmt.Errorf("unknown subject type %q", subjectType))
	}
}

func interactionPrompt(in *models.Interaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize this %s from %s:\n\n", in.Type, in.OccurredAt.Format(time.RFC1123))
	if in.Subject != nil && *in.Subject != "" {
		fmt.Fprintf(&b, "Subject: %s\n", *in.Subject)
	}
	if in.BodyText != nil && *in.BodyText != "" {
		body := *in.BodyText
		if len(body) > 4000 {
			body = body[:4000]
		}
		fmt.Fprintf(&b, "\n%s\n", body)
	}
	return b.String()
}

func contactPrompt(contact *models.Contact, interactions []models.Interaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summarize the recent relationship activity with %s (%d interactions):\n\n",
		contact.DisplayName, len(interactions))
	for _, in := range interactions {
		line := fmt.Sprintf("- [%s] %s", in.OccurredAt.Format("2006-01-02"), in.Type)
		if in.Subject != nil && *in.Subject != "" {
			line += ": " + *in.Subject
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// splitTitleBody separates the first non-empty line as title from the rest
func splitTitleBody(content string) (string, string) {
	content = strings.TrimSpace(content)
	lines := strings.SplitN(content, "\n", 2)
	title := strings.TrimSpace(strings.Trim(lines[0], "#* "))
	body := ""
	if len(lines) > 1 {
		body = strings.TrimSpace(lines[1])
	}
	if title == "" {
		title = "Activity summary"
	}
	if body == "" {
		body = title
	}
	return title, body
}
