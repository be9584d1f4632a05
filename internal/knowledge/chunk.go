// Package knowledge manages the retrieval chunk store the WhatsApp agent
// searches: text ingestion, embeddings and category housekeeping.
package knowledge

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	DefaultChunkSize = 800
	MinChunkSize     = 400
	MaxChunkSize     = 1500
)

// ClampChunkSize returns the requested block size bounded to
// [MinChunkSize, MaxChunkSize], or DefaultChunkSize when none was given.
func ClampChunkSize(requested *float64) int {
	if requested == nil || math.IsNaN(*requested) {
		return DefaultChunkSize
	}
	size := int(math.Ceil(*requested))
	switch {
	case size < MinChunkSize:
		return MinChunkSize
	case size > MaxChunkSize:
		return MaxChunkSize
	}
	return size
}

// ChunkText splits text on whitespace and greedily accumulates words until a
// block reaches size characters. Words are never split, so a block may run
// past size by up to one word.
func ChunkText(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	words := strings.Fields(text)
	var chunks []string

	current := make([]string, 0, 64)
	length := 0
	for _, word := range words {
		if len(current) > 0 {
			length++
		}
		current = append(current, word)
		length += utf8.RuneCountInString(word)
		if length >= size {
			chunks = append(chunks, strings.Join(current, " "))
			current = current[:0]
			length = 0
		}
	}
	if len(current) > 0 {
		chunks = append(chunks, strings.Join(current, " "))
	}
	return chunks
}
