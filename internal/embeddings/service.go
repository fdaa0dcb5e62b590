// Package embeddings chunks interaction text, deduplicates chunks by
// content hash, and stores fixed-dimension vectors obtained from the
// external embedding capability.
package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cadence/internal/models"
	"cadence/internal/store"
)

// ErrBudgetExceeded is returned when the per-job deadline expires between
// chunk batches. Work already stored is safe: every write is keyed by
// content hash, so the retry re-skips it.
var ErrBudgetExceeded = errors.New("embedding budget exceeded, partial progress stored")

// interCallSpacing throttles consecutive calls to the embedding capability
const interCallSpacing = 200 * time.Millisecond

// EmbeddingClient is the external embedding capability
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore abstracts chunk persistence
type ChunkStore interface {
	ExistingChunkHashes(ctx context.Context, userID, ownerType, ownerID string) (map[string]struct{}, error)
	InsertChunk(ctx context.Context, chunk *models.EmbeddingChunk) (bool, error)
}

// VectorMirror receives stored chunks for approximate-nearest-neighbor
// search. Optional; a nil mirror is skipped.
type VectorMirror interface {
	UpsertChunks(ctx context.Context, chunks []MirroredChunk) error
}

// MirroredChunk is what the mirror needs to index one chunk
type MirroredChunk struct {
	UserID     string
	OwnerType  string
	OwnerID    string
	ChunkIndex int
	Hash       string
	Text       string
	Vector     []float32
}

// Generator runs the embedding stage
type Generator struct {
	client      EmbeddingClient
	store       ChunkStore
	mirror      VectorMirror
	chunkSize   int
	overlap     int
	batchSize   int
	concurrency int
}

// Stats summarizes one embedding pass
type Stats struct {
	Interactions  int `json:"interactions"`
	ChunksTotal   int `json:"chunks_total"`
	ChunksSkipped int `json:"chunks_skipped"`
	ChunksStored  int `json:"chunks_stored"`
}

// ItemError records a failure on one interaction without failing the batch
type ItemError struct {
	InteractionID string
	Err           error
}

// NewGenerator creates an embedding generator
func NewGenerator(client EmbeddingClient, chunkStore ChunkStore, mirror VectorMirror, chunkSize, overlap, batchSize, concurrency int) *Generator {
	if batchSize <= 0 {
		batchSize = 50
	}
	if concurrency <= 0 {
		concurrency = 2
	}
	return &Generator{
		client:      client,
		store:       chunkStore,
		mirror:      mirror,
		chunkSize:   chunkSize,
		overlap:     overlap,
		batchSize:   batchSize,
		concurrency: concurrency,
	}
}

// EmbedInteractions chunks each interaction's text, skips chunks already
// stored for that owner, and embeds and stores the remainder. A failure on
// one interaction does not abort the others; per-item errors are collected.
// The ctx deadline is checked between batches only: the call returns
// ErrBudgetExceeded with partial progress stored rather than being cut off
// mid-write.
func (g *Generator) EmbedInteractions(ctx context.Context, interactions []models.Interaction) (*Stats, []ItemError, error) {
	stats := &Stats{Interactions: len(interactions)}
	var itemErrors []ItemError

	fmt.Printf("[EMBED] Processing %d interactions\n", len(interactions))

	// Collect the chunks that actually need embedding
	type pendingChunk struct {
		owner models.Interaction
		chunk Chunk
	}
	var pending []pendingChunk

	for _, interaction := range interactions {
		text := buildInteractionText(interaction)
		if text == "" {
			continue
		}

		chunks := SplitText(text, g.chunkSize, g.overlap)
		stats.ChunksTotal += len(chunks)

		existing, err := g.store.ExistingChunkHashes(ctx, interaction.UserID, "interaction", interaction.ID)
		if err != nil {
			itemErrors = append(itemErrors, ItemError{InteractionID: interaction.ID, Err: err})
			continue
		}

		for _, chunk := range chunks {
			key := fmt.Sprintf("%s:%d", chunk.Hash, chunk.Index)
			if _, ok := existing[key]; ok {
				stats.ChunksSkipped++
				continue
			}
			pending = append(pending, pendingChunk{owner: interaction, chunk: chunk})
		}
	}

	if len(pending) == 0 {
		fmt.Printf("[EMBED] Nothing to embed (%d chunks already stored)\n", stats.ChunksSkipped)
		return stats, itemErrors, nil
	}

	fmt.Printf("[EMBED] Embedding %d chunks in batches of %d\n", len(pending), g.batchSize)

	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(g.concurrency)

	budgetExceeded := false
	for i := 0; i < len(pending); i += g.batchSize {
		// Deadline check between chunk batches; no preemptive cancellation
		if deadline, ok := ctx.Deadline(); ok && time.Now().After(deadline) {
			budgetExceeded = true
			break
		}

		end := i + g.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[i:end]

		group.Go(func() error {
			texts := make([]string, len(batch))
			for j, p := range batch {
				texts[j] = p.chunk.Text
			}

			vectors, err := g.client.CreateEmbeddings(groupCtx, texts)
			if err != nil {
				return fmt.Errorf("embedding call failed: %w", err)
			}
			if len(vectors) != len(batch) {
				return fmt.Errorf("embedding capability returned %d vectors for %d chunks", len(vectors), len(batch))
			}

			var mirrored []MirroredChunk
			for j, p := range batch {
				row := &models.EmbeddingChunk{
					UserID:      p.owner.UserID,
					OwnerType:   "interaction",
					OwnerID:     p.owner.ID,
					ContentHash: p.chunk.Hash,
					ChunkIndex:  p.chunk.Index,
					Text:        p.chunk.Text,
					Embedding:   store.FormatVector(vectors[j]),
				}

				inserted, err := g.store.InsertChunk(groupCtx, row)
				if err != nil {
					mu.Lock()
					itemErrors = append(itemErrors, ItemError{InteractionID: p.owner.ID, Err: err})
					mu.Unlock()
					continue
				}

				mu.Lock()
				if inserted {
					stats.ChunksStored++
				} else {
					stats.ChunksSkipped++
				}
				mu.Unlock()

				if inserted {
					mirrored = append(mirrored, MirroredChunk{
						UserID:     p.owner.UserID,
						OwnerType:  "interaction",
						OwnerID:    p.owner.ID,
						ChunkIndex: p.chunk.Index,
						Hash:       p.chunk.Hash,
						Text:       p.chunk.Text,
						Vector:     vectors[j],
					})
				}
			}

			if g.mirror != nil && len(mirrored) > 0 {
				if err := g.mirror.UpsertChunks(groupCtx, mirrored); err != nil {
					// The mirror is a search accelerator, not the source of
					// truth; a failed mirror write is logged, not fatal.
					fmt.Printf("[EMBED] Warning: vector mirror upsert failed: %v\n", err)
				}
			}
			return nil
		})

		time.Sleep(interCallSpacing)
	}

	if err := group.Wait(); err != nil {
		return stats, itemErrors, err
	}

	if budgetExceeded {
		fmt.Printf("[EMBED] Budget exceeded after %d stored chunks, reporting for retry\n", stats.ChunksStored)
		return stats, itemErrors, ErrBudgetExceeded
	}

	fmt.Printf("[EMBED] Done: %d stored, %d skipped\n", stats.ChunksStored, stats.ChunksSkipped)
	return stats, itemErrors, nil
}

// buildInteractionText creates the text representation embedded for an
// interaction
func buildInteractionText(in models.Interaction) string {
	var parts []string
	if in.Subject != nil && *in.Subject != "" {
		parts = append(parts, "Subject: "+*in.Subject)
	}
	if in.BodyText != nil && *in.BodyText != "" {
		parts = append(parts, strings.TrimSpace(*in.BodyText))
	}
	return strings.Join(parts, "\n")
}
