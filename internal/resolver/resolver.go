// Package resolver links extracted identities to known contacts. Exact
// identity matches are the only guaranteed-correct path; the fuzzy matcher
// is pluggable and an identity scoring below the confidence threshold is
// left unresolved rather than guessed.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cadence/internal/models"
	"cadence/internal/utils"
)

// IdentityStore abstracts the persistence the resolver needs
type IdentityStore interface {
	FindIdentity(ctx context.Context, userID, kind, value string) (*models.ContactIdentity, error)
	InsertIdentity(ctx context.Context, identity *models.ContactIdentity) error
	ListContacts(ctx context.Context, userID string) ([]models.Contact, error)
	LinkInteractions(ctx context.Context, userID, kind, value, contactID string) (int64, error)
}

// Scorer computes a match confidence between an unresolved identity and a
// known contact. Implementations are interchangeable; the resolution rules
// around them do not change.
type Scorer interface {
	Score(candidate models.IdentityCandidate, contact models.Contact) float64
}

// Resolver matches identity candidates against known contacts
type Resolver struct {
	store     IdentityStore
	scorer    Scorer
	threshold float64
}

// Summary reports what one resolution pass did
type Summary struct {
	Linked             int      `json:"linked"`
	Unresolved         int      `json:"unresolved"`
	InteractionsLinked int64    `json:"interactions_linked"`
	LinkedContactIDs   []string `json:"linked_contact_ids,omitempty"`
}

// New creates a resolver. A nil scorer disables fuzzy matching entirely,
// leaving exact identity lookup as the only path.
func New(store IdentityStore, scorer Scorer, threshold float64) *Resolver {
	if threshold <= 0 || threshold > 1 {
		threshold = 0.85
	}
	return &Resolver{store: store, scorer: scorer, threshold: threshold}
}

// Resolve processes a batch of identity candidates for one user. For each
// candidate: exact (kind, value) match first; otherwise the fuzzy scorer.
// On a match, the identity is recorded for the originating provider and all
// of the user's interactions carrying that counterpart are bulk-linked.
// Candidates below the threshold never create identity rows.
func (r *Resolver) Resolve(ctx context.Context, userID string, candidates []models.IdentityCandidate) (*Summary, error) {
	summary := &Summary{}
	linkedContacts := make(map[string]struct{})

	for _, candidate := range candidates {
		contactID, err := r.resolveOne(ctx, userID, candidate)
		if err != nil {
			return nil, err
		}
		if contactID == "" {
			summary.Unresolved++
			continue
		}

		// Record this provider's sighting of the identity so future lookups
		// are exact. Insert-or-skip keeps replay safe.
		identity := &models.ContactIdentity{
			UserID:    userID,
			ContactID: contactID,
			Kind:      candidate.Kind,
			Value:     candidate.Value,
			Provider:  candidate.Provider,
		}
		if err := r.store.InsertIdentity(ctx, identity); err != nil {
			return nil, err
		}

		linked, err := r.store.LinkInteractions(ctx, userID, candidate.Kind, candidate.Value, contactID)
		if err != nil {
			return nil, err
		}

		summary.Linked++
		summary.InteractionsLinked += linked
		if _, seen := linkedContacts[contactID]; !seen {
			linkedContacts[contactID] = struct{}{}
			summary.LinkedContactIDs = append(summary.LinkedContactIDs, contactID)
		}
	}

	return summary, nil
}

// resolveOne returns the contact ID for a candidate, or "" when unresolved
func (r *Resolver) resolveOne(ctx context.Context, userID string, candidate models.IdentityCandidate) (string, error) {
	// Tier 1: exact identity match, deterministic
	existing, err := r.store.FindIdentity(ctx, userID, candidate.Kind, candidate.Value)
	if err != nil {
		return "", fmt.Errorf("exact identity lookup failed: %w", err)
	}
	if existing != nil {
		return existing.ContactID, nil
	}

	// Tier 2: fuzzy match with confidence score
	if r.scorer == nil {
		return "", nil
	}

	contacts, err := r.store.ListContacts(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("contact scan failed: %w", err)
	}

	bestScore := 0.0
	bestContact := ""
	for _, contact := range contacts {
		score := r.scorer.Score(candidate, contact)
		if score > bestScore {
			bestScore = score
			bestContact = contact.ID
		}
	}

	if bestScore < r.threshold {
		return "", nil
	}
	return bestContact, nil
}

// NameScorer is the default fuzzy matcher: Jaccard overlap of display-name
// tokens, blended with a prefix similarity between the contact's name and
// the identity value's local part.
type NameScorer struct {
	titler cases.Caser
}

// NewNameScorer creates the default scorer
func NewNameScorer() *NameScorer {
	return &NameScorer{titler: cases.Title(language.English)}
}

// Score returns a confidence in [0, 1]
func (s *NameScorer) Score(candidate models.IdentityCandidate, contact models.Contact) float64 {
	if contact.DisplayName == "" {
		return 0
	}

	contactTokens := utils.BuildTokenSet(contact.DisplayName)

	nameScore := 0.0
	if candidate.DisplayName != "" {
		// Normalize casing before tokenizing so "SOFIA MARTINEZ" and
		// "Sofia Martinez" score identically.
		normalized := s.titler.String(strings.ToLower(candidate.DisplayName))
		nameScore = utils.TokenOverlap(utils.BuildTokenSet(normalized), contactTokens)
	}

	localScore := localPartSimilarity(candidate.Value, contactTokens)

	// The display name dominates; the value local part can only add a
	// modest boost, never carry a match on its own.
	return 0.8*nameScore + 0.2*localScore
}

// localPartSimilarity checks whether the local part of an email-like value
// contains any of the contact's name tokens
func localPartSimilarity(value string, contactTokens map[string]struct{}) float64 {
	local := value
	if at := strings.Index(value, "@"); at > 0 {
		local = value[:at]
	}
	local = strings.ToLower(local)

	matched := 0
	for token := range contactTokens {
		if strings.Contains(local, token) {
			matched++
		}
	}
	if len(contactTokens) == 0 {
		return 0
	}
	return float64(matched) / float64(len(contactTokens))
}
