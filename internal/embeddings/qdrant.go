package embeddings

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	idsopenai "cadence/internal/openai"
)

// QdrantMirror mirrors stored chunks into a Qdrant collection for fast
// approximate-nearest-neighbor search. Postgres remains the source of truth
// and carries the dedup constraints; the mirror is rebuildable from it.
type QdrantMirror struct {
	client     *qdrant.Client
	collection string
}

// NewQdrantMirror connects to Qdrant and ensures the collection exists
func NewQdrantMirror(ctx context.Context, host string, port int, collection string) (*QdrantMirror, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}

	mirror := &QdrantMirror{client: client, collection: collection}
	if err := mirror.ensureCollection(ctx); err != nil {
		return nil, err
	}

	fmt.Printf("[QDRANT] Mirror ready (collection: %s)\n", collection)
	return mirror, nil
}

func (m *QdrantMirror) ensureCollection(ctx context.Context) error {
	exists, err := m.client.CollectionExists(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check Qdrant collection: %w", err)
	}
	if exists {
		return nil
	}

	err = m.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(idsopenai.EmbeddingDimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create Qdrant collection: %w", err)
	}
	return nil
}

// UpsertChunks indexes chunks in the mirror. Point IDs are derived from the
// chunk key, so re-mirroring the same chunk overwrites rather than
// duplicates.
func (m *QdrantMirror) UpsertChunks(ctx context.Context, chunks []MirroredChunk) error {
	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		key := fmt.Sprintf("%s/%s/%s/%s/%d",
			chunk.UserID, chunk.OwnerType, chunk.OwnerID, chunk.Hash, chunk.ChunkIndex)
		pointID := uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()

		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID),
			Vectors: qdrant.NewVectors(chunk.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"user_id":     chunk.UserID,
				"owner_type":  chunk.OwnerType,
				"owner_id":    chunk.OwnerID,
				"chunk_index": int64(chunk.ChunkIndex),
				"text":        chunk.Text,
			}),
		})
	}

	_, err := m.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: m.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert Qdrant points: %w", err)
	}
	return nil
}

// Search returns the closest mirrored chunks for a query vector, filtered
// to one user
func (m *QdrantMirror) Search(ctx context.Context, userID string, vector []float32, limit int) ([]*qdrant.ScoredPoint, error) {
	results, err := m.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: m.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch("user_id", userID),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Qdrant query failed: %w", err)
	}
	return results, nil
}
