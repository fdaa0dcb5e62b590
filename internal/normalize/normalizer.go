// Package normalize converts raw provider events into canonical interactions
// and identity candidates. One normalizer per provider, all implementing the
// same contract.
package normalize

import (
	"fmt"

	"cadence/internal/jobs"
	"cadence/internal/models"
)

// Output is what a normalizer produces from one raw event: zero or more
// canonical interactions, the identities found in the payload, and the
// follow-up stages the event needs.
type Output struct {
	Interactions []models.Interaction
	Identities   []models.IdentityCandidate
	FollowUps    []jobs.Kind
}

// Normalizer converts one provider's raw events into canonical form.
// Implementations must tolerate missing optional fields and must produce
// interactions keyed so that re-normalizing the same event is an upsert.
type Normalizer interface {
	Provider() string
	Normalize(ev *models.RawEvent) (*Output, error)
}

// Registry maps provider names to their normalizers
type Registry struct {
	normalizers map[string]Normalizer
}

// NewRegistry builds a registry from the given normalizers
func NewRegistry(normalizers ...Normalizer) *Registry {
	r := &Registry{normalizers: make(map[string]Normalizer)}
	for _, n := range normalizers {
		r.normalizers[n.Provider()] = n
	}
	return r
}

// For returns the normalizer for a provider
func (r *Registry) For(provider string) (Normalizer, error) {
	n, ok := r.normalizers[provider]
	if !ok {
		return nil, fmt.Errorf("no normalizer registered for provider %q", provider)
	}
	return n, nil
}
