package embeddings

import (
	"crypto/sha256"
	"encoding/hex"
	"unicode"
)

// Chunk is one bounded, word-boundary-respecting slice of text, the unit of
// embedding. Chunking is deterministic: the same text, size, and overlap
// always yield identical boundaries and hashes.
type Chunk struct {
	Index int
	Start int
	Text  string
	Hash  string
}

// HashChunk computes the content hash used for chunk deduplication
func HashChunk(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// SplitText splits text into overlapping chunks of roughly size characters
// with the given overlap, breaking only at word boundaries, never mid-word.
// A chunk boundary backs off to the nearest preceding boundary; the next
// chunk starts overlap characters before the previous end, advanced to a
// boundary when needed.
func SplitText(text string, size, overlap int) []Chunk {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 || overlap >= size {
		overlap = size / 8
	}

	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var chunks []Chunk
	start := 0
	index := 0

	for start < n {
		end := start + size
		if end >= n {
			end = n
		} else {
			adjusted := end
			for adjusted > start && !isWordBoundary(runes, adjusted) {
				adjusted--
			}
			if adjusted > start {
				end = adjusted
			}
			// No boundary inside the window: hard cut, nothing better exists
		}

		chunkText := string(runes[start:end])
		chunks = append(chunks, Chunk{
			Index: index,
			Start: start,
			Text:  chunkText,
			Hash:  HashChunk(chunkText),
		})
		index++

		if end >= n {
			break
		}

		next := end - overlap
		for next < end && !isWordBoundary(runes, next) {
			next++
		}
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// isWordBoundary reports whether position i sits between words: at either
// end of the text, or adjacent to whitespace
func isWordBoundary(runes []rune, i int) bool {
	if i <= 0 || i >= len(runes) {
		return true
	}
	return unicode.IsSpace(runes[i-1]) || unicode.IsSpace(runes[i])
}
