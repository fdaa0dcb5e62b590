// Package providers defines the sync adapter surface: clients that fetch
// new items from external providers for ingestion as raw events.
package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// Candidate is one item fetched from a provider, ready to become a raw
// event. The payload is opaque to the pipeline until normalization.
type Candidate struct {
	SourceID   string          `json:"source_id"`
	Payload    json.RawMessage `json:"payload"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Client fetches items for one provider. Implementations own provider auth
// and pagination; the pipeline only sees candidates newer than the watermark.
type Client interface {
	Provider() string
	FetchSince(ctx context.Context, userID string, watermark time.Time) ([]Candidate, error)
}

// Registry routes sync jobs to the client for their provider
type Registry struct {
	clients map[string]Client
}

func NewRegistry(clients ...Client) *Registry {
	r := &Registry{clients: make(map[string]Client)}
	for _, c := range clients {
		r.clients[c.Provider()] = c
	}
	return r
}

// For returns the client for a provider
func (r *Registry) For(provider string) (Client, error) {
	c, ok := r.clients[provider]
	if !ok {
		return nil, fmt.Errorf("no sync client registered for provider %q", provider)
	}
	return c, nil
}

// Providers lists the registered provider names, sorted
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
