// Package pipeline binds the job kinds to their stage handlers: provider
// sync, normalization, contact resolution, embedding, insight generation,
// and timeline projection.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"cadence/internal/embeddings"
	"cadence/internal/insights"
	"cadence/internal/jobs"
	"cadence/internal/models"
	"cadence/internal/normalize"
	"cadence/internal/providers"
	"cadence/internal/resolver"
	"cadence/internal/store"
	"cadence/internal/timeline"
)

// Pipeline owns the stage handlers and their shared collaborators
type Pipeline struct {
	store       *store.Store
	providers   *providers.Registry
	normalizers *normalize.Registry
	resolver    *resolver.Resolver
	embedder    *embeddings.Generator
	insights    *insights.Generator
	timeline    *timeline.Writer
	logger      zerolog.Logger
}

func New(
	st *store.Store,
	providerRegistry *providers.Registry,
	normalizerRegistry *normalize.Registry,
	res *resolver.Resolver,
	embedder *embeddings.Generator,
	insightGen *insights.Generator,
	timelineWriter *timeline.Writer,
	logger zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		store:       st,
		providers:   providerRegistry,
		normalizers: normalizerRegistry,
		resolver:    res,
		embedder:    embedder,
		insights:    insightGen,
		timeline:    timelineWriter,
		logger:      logger,
	}
}

// Register binds every stage handler to its job kind
func (p *Pipeline) Register(runner *jobs.Runner) {
	runner.Register(jobs.KindProviderSync, p.HandleSync)
	runner.Register(jobs.KindNormalize, p.HandleNormalize)
	runner.Register(jobs.KindResolve, p.HandleResolve)
	runner.Register(jobs.KindEmbed, p.HandleEmbed)
	runner.Register(jobs.KindInsight, p.HandleInsight)
	runner.Register(jobs.KindTimeline, p.HandleTimeline)
}

// HandleSync fetches new provider items since the watermark, appends them as
// raw events, and chains one normalize job per newly stored event. A failure
// on one item never aborts the rest of the batch.
func (p *Pipeline) HandleSync(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	var payload jobs.SyncPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Invalid("", "sync", job.Payload, fmt.Errorf("bad sync payload: %w", err))
	}

	client, err := p.providers.For(payload.Provider)
	if err != nil {
		return nil, jobs.Invalid(payload.Provider, "sync", job.Payload, err)
	}

	watermark, err := p.store.LatestRawEventTime(ctx, job.UserID, payload.Provider)
	if err != nil {
		return nil, err
	}

	candidates, err := client.FetchSince(ctx, job.UserID, watermark)
	if err != nil {
		return nil, err
	}

	p.logger.Info().Str("provider", payload.Provider).Str("user_id", job.UserID).
		Int("candidates", len(candidates)).Time("watermark", watermark).Msg("Provider sync fetched")

	result := &jobs.Result{}
	stored := 0
	for _, candidate := range candidates {
		if candidate.OccurredAt.IsZero() {
			result.ItemFailures = append(result.ItemFailures, jobs.ItemFailure{
				Provider: payload.Provider,
				Stage:    "sync",
				ItemID:   candidate.SourceID,
				Payload:  candidate.Payload,
				Err:      "candidate has no occurrence timestamp",
			})
			continue
		}

		ev := &models.RawEvent{
			ID:         uuid.NewString(),
			UserID:     job.UserID,
			Provider:   payload.Provider,
			SourceID:   candidate.SourceID,
			Payload:    candidate.Payload,
			OccurredAt: candidate.OccurredAt,
			BatchID:    job.BatchID,
		}
		if ev.SourceID == "" {
			ev.SourceID = ev.ID
		}

		inserted, err := p.store.InsertRawEvent(ctx, ev)
		if err != nil {
			result.ItemFailures = append(result.ItemFailures, jobs.ItemFailure{
				Provider: payload.Provider,
				Stage:    "sync",
				ItemID:   candidate.SourceID,
				Payload:  candidate.Payload,
				Err:      err.Error(),
			})
			continue
		}
		if !inserted {
			// Already ingested on a previous sync; nothing to chain.
			continue
		}
		stored++

		req, err := jobs.NewRequest(jobs.KindNormalize,
			jobs.NormalizePayload{RawEventID: ev.ID}, job.UserID, job.BatchID)
		if err != nil {
			return nil, err
		}
		result.FollowUps = append(result.FollowUps, req)
	}

	fmt.Printf("[SYNC] Provider %s: %d fetched, %d new, %d failed\n",
		payload.Provider, len(candidates), stored, len(result.ItemFailures))
	return result, nil
}

// HandleNormalize converts one raw event into canonical interactions and
// identity candidates, then chains the stages the normalizer asked for.
func (p *Pipeline) HandleNormalize(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	var payload jobs.NormalizePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Invalid("", "normalize", job.Payload, fmt.Errorf("bad normalize payload: %w", err))
	}

	ev, err := p.store.GetRawEvent(ctx, payload.RawEventID)
	if err != nil {
		return nil, jobs.Invalid("", "normalize", job.Payload, err)
	}

	normalizer, err := p.normalizers.For(ev.Provider)
	if err != nil {
		return nil, jobs.Invalid(ev.Provider, "normalize", ev.Payload, err)
	}

	out, err := normalizer.Normalize(ev)
	if err != nil {
		// Normalizers only fail on payloads they cannot recognize; retrying
		// an immutable raw event cannot help.
		return nil, jobs.Invalid(ev.Provider, "normalize", ev.Payload, err)
	}

	interactionIDs := make([]string, 0, len(out.Interactions))
	for i := range out.Interactions {
		id, err := p.store.UpsertInteraction(ctx, &out.Interactions[i])
		if err != nil {
			return nil, err
		}
		interactionIDs = append(interactionIDs, id)
	}

	result := &jobs.Result{}
	for _, kind := range out.FollowUps {
		var req jobs.Request
		var err error

		switch kind {
		case jobs.KindResolve:
			if len(out.Identities) == 0 {
				continue
			}
			refs := make([]jobs.IdentityRef, len(out.Identities))
			for i, identity := range out.Identities {
				refs[i] = jobs.IdentityRef{
					Kind:        identity.Kind,
					Value:       identity.Value,
					DisplayName: identity.DisplayName,
					Provider:    identity.Provider,
				}
			}
			req, err = jobs.NewRequest(jobs.KindResolve,
				jobs.ResolvePayload{Identities: refs}, job.UserID, job.BatchID)

		case jobs.KindEmbed:
			if len(interactionIDs) == 0 {
				continue
			}
			req, err = jobs.NewRequest(jobs.KindEmbed,
				jobs.EmbedPayload{InteractionIDs: interactionIDs}, job.UserID, job.BatchID)

		default:
			p.logger.Warn().Str("kind", string(kind)).Str("provider", ev.Provider).
				Msg("Normalizer requested unsupported follow-up kind")
			continue
		}
		if err != nil {
			return nil, err
		}
		result.FollowUps = append(result.FollowUps, req)
	}

	fmt.Printf("[NORMALIZE] Event %s (%s): %d interactions, %d identities\n",
		ev.ID, ev.Provider, len(out.Interactions), len(out.Identities))
	return result, nil
}

// HandleResolve links extracted identities to contacts and chains a timeline
// projection for every contact that gained interactions.
func (p *Pipeline) HandleResolve(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	var payload jobs.ResolvePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Invalid("", "resolve", job.Payload, fmt.Errorf("bad resolve payload: %w", err))
	}

	candidates := make([]models.IdentityCandidate, len(payload.Identities))
	for i, ref := range payload.Identities {
		candidates[i] = models.IdentityCandidate{
			Kind:        ref.Kind,
			Value:       ref.Value,
			DisplayName: ref.DisplayName,
			Provider:    ref.Provider,
		}
	}

	summary, err := p.resolver.Resolve(ctx, job.UserID, candidates)
	if err != nil {
		return nil, err
	}

	result := &jobs.Result{}
	for _, contactID := range summary.LinkedContactIDs {
		req, err := jobs.NewRequest(jobs.KindTimeline,
			jobs.TimelinePayload{ContactID: contactID}, job.UserID, job.BatchID)
		if err != nil {
			return nil, err
		}
		result.FollowUps = append(result.FollowUps, req)
	}

	fmt.Printf("[RESOLVE] %d linked, %d unresolved, %d interactions updated\n",
		summary.Linked, summary.Unresolved, summary.InteractionsLinked)
	return result, nil
}

// HandleEmbed generates vectors for the interactions' text and chains one
// insight job per interaction that produced new chunks.
func (p *Pipeline) HandleEmbed(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	var payload jobs.EmbedPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Invalid("", "embed", job.Payload, fmt.Errorf("bad embed payload: %w", err))
	}
	if len(payload.InteractionIDs) == 0 {
		return &jobs.Result{}, nil
	}

	interactions, err := p.store.ListInteractionsByIDs(ctx, payload.InteractionIDs)
	if err != nil {
		return nil, err
	}

	stats, itemErrors, err := p.embedder.EmbedInteractions(ctx, interactions)
	if err != nil {
		// Partial progress is already stored under content-hash keys; a retry
		// resumes where this attempt stopped.
		return nil, jobs.Transient(err)
	}

	result := &jobs.Result{}
	for _, itemErr := range itemErrors {
		result.ItemFailures = append(result.ItemFailures, jobs.ItemFailure{
			Stage:  "embed",
			ItemID: itemErr.InteractionID,
			Err:    itemErr.Err.Error(),
		})
	}

	if stats.ChunksStored > 0 {
		for i := range interactions {
			req, err := jobs.NewRequest(jobs.KindInsight, jobs.InsightPayload{
				Kind:        insights.KindInteractionSummary,
				SubjectType: insights.SubjectInteraction,
				SubjectID:   interactions[i].ID,
			}, job.UserID, job.BatchID)
			if err != nil {
				return nil, err
			}
			result.FollowUps = append(result.FollowUps, req)
		}
	}

	return result, nil
}

// HandleInsight derives an insight for the subject and chains a timeline
// projection for the affected contact.
func (p *Pipeline) HandleInsight(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	var payload jobs.InsightPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Invalid("", "insight", job.Payload, fmt.Errorf("bad insight payload: %w", err))
	}

	_, _, err := p.insights.Generate(ctx, job.UserID, payload.Kind, payload.SubjectType, payload.SubjectID)
	if err != nil {
		return nil, err
	}

	contactID := ""
	switch payload.SubjectType {
	case insights.SubjectContact:
		contactID = payload.SubjectID
	case insights.SubjectInteraction:
		interaction, err := p.store.GetInteraction(ctx, payload.SubjectID)
		if err != nil {
			return nil, err
		}
		if interaction.ContactID != nil {
			contactID = *interaction.ContactID
		}
	}

	result := &jobs.Result{}
	if contactID != "" {
		req, err := jobs.NewRequest(jobs.KindTimeline,
			jobs.TimelinePayload{ContactID: contactID}, job.UserID, job.BatchID)
		if err != nil {
			return nil, err
		}
		result.FollowUps = append(result.FollowUps, req)
	}
	return result, nil
}

// HandleTimeline projects a contact's linked interactions onto its timeline
func (p *Pipeline) HandleTimeline(ctx context.Context, job *jobs.Job) (*jobs.Result, error) {
	var payload jobs.TimelinePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, jobs.Invalid("", "timeline", job.Payload, fmt.Errorf("bad timeline payload: %w", err))
	}
	if payload.ContactID == "" {
		return nil, jobs.Invalid("", "timeline", job.Payload, fmt.Errorf("timeline payload has no contact_id"))
	}

	if _, err := p.timeline.Project(ctx, job.UserID, payload.ContactID); err != nil {
		return nil, err
	}
	return &jobs.Result{}, nil
}
