package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"cadence/internal/models"
)

// FormatVector converts a float32 slice to pgvector string format.
// Example output: "[0.1,0.2,0.3]"
func FormatVector(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// ExistingChunkHashes returns the set of (content_hash, chunk_index) pairs
// already stored for an owner, keyed "hash:index". Used to skip chunks whose
// content is already embedded.
func (s *Store) ExistingChunkHashes(ctx context.Context, userID, ownerType, ownerID string) (map[string]struct{}, error) {
	query := `
		SELECT content_hash, chunk_index FROM interaction_embeddings
		WHERE user_id = $1 AND owner_type = $2 AND owner_id = $3
	`

	rows, err := s.db.QueryContext(ctx, query, userID, ownerType, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch existing chunk hashes: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			fmt.Printf("Warning: Error closing rows: %v\n", err)
		}
	}()

	existing := make(map[string]struct{})
	for rows.Next() {
		var hash string
		var index int
		if err := rows.Scan(&hash, &index); err != nil {
			return nil, fmt.Errorf("failed to scan chunk hash: %w", err)
		}
		existing[fmt.Sprintf("%s:%d", hash, index)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate chunk hashes: %w", err)
	}

	return existing, nil
}

// InsertChunk stores one embedded chunk. Insert-or-skip on the full chunk
// key, so embedding the same content twice yields exactly one row.
// Returns false when the chunk already existed.
func (s *Store) InsertChunk(ctx context.Context, chunk *models.EmbeddingChunk) (bool, error) {
	query := `
		INSERT INTO interaction_embeddings
			(user_id, owner_type, owner_id, content_hash, chunk_index, chunk_text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		ON CONFLICT (user_id, owner_type, owner_id, content_hash, chunk_index) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		chunk.UserID, chunk.OwnerType, chunk.OwnerID,
		chunk.ContentHash, chunk.ChunkIndex, chunk.Text, chunk.Embedding)
	if err != nil {
		return false, fmt.Errorf("failed to insert embedding chunk: %w", err)
	}

	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

// ChunkSearchResult is one semantic search hit over stored chunks
type ChunkSearchResult struct {
	OwnerType  string  `db:"owner_type" json:"owner_type"`
	OwnerID    string  `db:"owner_id" json:"owner_id"`
	ChunkIndex int     `db:"chunk_index" json:"chunk_index"`
	Text       string  `db:"chunk_text" json:"text"`
	Similarity float64 `db:"similarity" json:"similarity"`
}

// SearchSimilarChunks finds stored chunks closest to the query vector using
// pgvector cosine distance
func (s *Store) SearchSimilarChunks(ctx context.Context, userID string, queryVector []float32, limit int) ([]ChunkSearchResult, error) {
	query := `
		SELECT owner_type, owner_id, chunk_index, chunk_text,
		       1 - (embedding <=> $2::vector) AS similarity
		FROM interaction_embeddings
		WHERE user_id = $1
		ORDER BY embedding <=> $2::vector
		LIMIT $3
	`

	var results []ChunkSearchResult
	err := s.db.SelectContext(ctx, &results, query, userID, FormatVector(queryVector), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	return results, nil
}
