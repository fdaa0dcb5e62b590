package insights

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadence/internal/cache"
	"cadence/internal/jobs"
	"cadence/internal/models"
)

type fakeChatClient struct {
	response string
	err      error
	calls    int
}

func (f *fakeChatClient) CreateChatCompletion(_ context.Context, _ []openai.ChatCompletionMessage, _ int, _ float32) (*openai.ChatCompletionResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.response}},
		},
	}, nil
}

func (f *fakeChatClient) GetGPTModel() string { return "gpt-4o-mini" }

type fakeInsightStore struct {
	interaction *models.Interaction
	contact     *models.Contact
	linked      []models.Interaction
	stored      []models.Insight
	duplicate   bool
}

func (f *fakeInsightStore) GetInteraction(_ context.Context, id string) (*models.Interaction, error) {
	if f.interaction == nil || f.interaction.ID != id {
		return nil, errors.New("interaction not found")
	}
	return f.interaction, nil
}

func (f *fakeInsightStore) GetContact(_ context.Context, id string) (*models.Contact, error) {
	if f.contact == nil || f.contact.ID != id {
		return nil, errors.New("contact not found")
	}
	return f.contact, nil
}

func (f *fakeInsightStore) ListLinkedInteractions(_ context.Context, _ string) ([]models.Interaction, error) {
	return f.linked, nil
}

func (f *fakeInsightStore) InsertInsight(_ context.Context, insight *models.Insight) (bool, error) {
	if f.duplicate {
		return false, nil
	}
	f.stored = append(f.stored, *insight)
	return true, nil
}

func strPtr(s string) *string { return &s }

func testInteraction() *models.Interaction {
	return &models.Interaction{
		ID:         "i1",
		UserID:     "u1",
		Type:       "email",
		Subject:    strPtr("Quarterly catch-up"),
		BodyText:   strPtr("Let's find a time next week to review the roadmap."),
		OccurredAt: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
}

func openQuota() *QuotaGuard {
	return NewQuotaGuard(cache.New(), 0, 0)
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(KindInteractionSummary, SubjectInteraction, "i1", "gpt-4o-mini", "Roadmap review")
	b := Fingerprint(KindInteractionSummary, SubjectInteraction, "i1", "gpt-4o-mini", "Roadmap review")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// Any defining field changing changes the fingerprint
	assert.NotEqual(t, a, Fingerprint(KindContactSummary, SubjectInteraction, "i1", "gpt-4o-mini", "Roadmap review"))
	assert.NotEqual(t, a, Fingerprint(KindInteractionSummary, SubjectInteraction, "i2", "gpt-4o-mini", "Roadmap review"))
	assert.NotEqual(t, a, Fingerprint(KindInteractionSummary, SubjectInteraction, "i1", "gpt-4", "Roadmap review"))
}

func TestGenerateInteractionSummary(t *testing.T) {
	store := &fakeInsightStore{interaction: testInteraction()}
	client := &fakeChatClient{response: "Roadmap review\n\nDiscussed scheduling a roadmap review for next week."}
	g := NewGenerator(client, store, openQuota())

	insight, created, err := g.Generate(context.Background(), "u1", KindInteractionSummary, SubjectInteraction, "i1")

	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, insight)
	assert.Equal(t, "Roadmap review", insight.Title)
	assert.Equal(t, "Discussed scheduling a roadmap review for next week.", insight.Body)
	assert.Equal(t, Fingerprint(KindInteractionSummary, SubjectInteraction, "i1", "gpt-4o-mini", "Roadmap review"), insight.Fingerprint)
	require.Len(t, store.stored, 1)
}

func TestGenerateDuplicateFingerprint(t *testing.T) {
	store := &fakeInsightStore{interaction: testInteraction(), duplicate: true}
	client := &fakeChatClient{response: "Roadmap review\n\nBody."}
	g := NewGenerator(client, store, openQuota())

	insight, created, err := g.Generate(context.Background(), "u1", KindInteractionSummary, SubjectInteraction, "i1")

	require.NoError(t, err)
	assert.False(t, created)
	assert.NotNil(t, insight)
}

func TestGenerateQuotaExhausted(t *testing.T) {
	store := &fakeInsightStore{interaction: testInteraction()}
	client := &fakeChatClient{response: "Title\n\nBody."}
	g := NewGenerator(client, store, NewQuotaGuard(cache.New(), 1, 0))

	_, created, err := g.Generate(context.Background(), "u1", KindInteractionSummary, SubjectInteraction, "i1")
	require.NoError(t, err)
	assert.True(t, created)

	_, _, err = g.Generate(context.Background(), "u1", KindInteractionSummary, SubjectInteraction, "i1")
	require.Error(t, err)
	assert.True(t, jobs.IsQuotaExhausted(err))
	assert.Equal(t, 1, client.calls)
}

func TestGenerateChatFailureIsTransient(t *testing.T) {
	store := &fakeInsightStore{interaction: testInteraction()}
	client := &fakeChatClient{err: errors.New("upstream timeout")}
	g := NewGenerator(client, store, openQuota())

	_, _, err := g.Generate(context.Background(), "u1", KindInteractionSummary, SubjectInteraction, "i1")
	require.Error(t, err)
	_, isValidation := jobs.IsValidation(err)
	assert.False(t, isValidation)
	assert.False(t, jobs.IsQuotaExhausted(err))
	assert.Empty(t, store.stored)
}

func TestGenerateUserMismatchIsValidation(t *testing.T) {
	store := &fakeInsightStore{interaction: testInteraction()}
	client := &fakeChatClient{response: "Title\n\nBody."}
	g := NewGenerator(client, store, openQuota())

	_, _, err := g.Generate(context.Background(), "someone-else", KindInteractionSummary, SubjectInteraction, "i1")
	require.Error(t, err)
	_, isValidation := jobs.IsValidation(err)
	assert.True(t, isValidation)
	assert.Equal(t, 0, client.calls)
}

func TestGenerateUnknownSubjectType(t *testing.T) {
	g := NewGenerator(&fakeChatClient{}, &fakeInsightStore{}, openQuota())

	_, _, err := g.Generate(context.Background(), "u1", KindInteractionSummary, "meeting-room", "x")
	require.Error(t, err)
	_, isValidation := jobs.IsValidation(err)
	assert.True(t, isValidation)
}

func TestGenerateContactWithNoActivitySkips(t *testing.T) {
	store := &fakeInsightStore{contact: &models.Contact{ID: "c1", UserID: "u1", DisplayName: "Jane Smith"}}
	client := &fakeChatClient{response: "Title\n\nBody."}
	g := NewGenerator(client, store, openQuota())

	insight, created, err := g.Generate(context.Background(), "u1", KindContactSummary, SubjectContact, "c1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Nil(t, insight)
	assert.Equal(t, 0, client.calls)
}

func TestGenerateContactSummary(t *testing.T) {
	in := testInteraction()
	store := &fakeInsightStore{
		contact: &models.Contact{ID: "c1", UserID: "u1", DisplayName: "Jane Smith"},
		linked:  []models.Interaction{*in},
	}
	client := &fakeChatClient{response: "Steady cadence\n\nOne recent email about the roadmap."}
	g := NewGenerator(client, store, openQuota())

	insight, created, err := g.Generate(context.Background(), "u1", KindContactSummary, SubjectContact, "c1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, SubjectContact, insight.SubjectType)
	assert.Equal(t, "c1", insight.SubjectID)
}

func TestSplitTitleBody(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantTitle string
		wantBody  string
	}{
		{
			name:      "title and body",
			content:   "Roadmap review\n\nDiscussed timing.",
			wantTitle: "Roadmap review",
			wantBody:  "Discussed timing.",
		},
		{
			name:      "markdown heading stripped",
			content:   "## Roadmap review\nDiscussed timing.",
			wantTitle: "Roadmap review",
			wantBody:  "Discussed timing.",
		},
		{
			name:      "single line doubles as body",
			content:   "Roadmap review",
			wantTitle: "Roadmap review",
			wantBody:  "Roadmap review",
		},
		{
			name:      "empty content gets default title",
			content:   "",
			wantTitle: "Activity summary",
			wantBody:  "Activity summary",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, body := splitTitleBody(tt.content)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantBody, body)
		})
	}
}
