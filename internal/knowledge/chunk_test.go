package knowledge

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func floatPtr(f float64) *float64 { return &f }

func TestClampChunkSize(t *testing.T) {
	assert.Equal(t, DefaultChunkSize, ClampChunkSize(nil))
	assert.Equal(t, MinChunkSize, ClampChunkSize(floatPtr(10)))
	assert.Equal(t, MaxChunkSize, ClampChunkSize(floatPtr(99999)))
	assert.Equal(t, 600, ClampChunkSize(floatPtr(600)))
}

func TestChunkText_BlocksReachSizeWithoutSplittingWords(t *testing.T) {
	word := "consulta"
	text := strings.Repeat(word+" ", 300)

	chunks := ChunkText(text, 400)

	assert.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		n := utf8.RuneCountInString(c)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, n, 400)
			assert.Less(t, n, 400+len(word)+1)
		}
		for _, w := range strings.Fields(c) {
			assert.Equal(t, word, w)
		}
	}
	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
}

func TestChunkText_CollapsesWhitespaceAndKeepsTail(t *testing.T) {
	chunks := ChunkText("  Horário\tde  atendimento:\n segunda a sexta  ", 800)
	assert.Equal(t, []string{"Horário de atendimento: segunda a sexta"}, chunks)
}

func TestChunkText_EmptyText(t *testing.T) {
	assert.Empty(t, ChunkText(" \n\t ", 800))
}

func TestChunkText_CountsCharactersNotBytes(t *testing.T) {
	// 5 runes but 10 bytes per word.
	word := "ãéíõú"
	chunks := ChunkText(strings.Repeat(word+" ", 100), 400)
	assert.GreaterOrEqual(t, utf8.RuneCountInString(chunks[0]), 400)
	assert.Less(t, utf8.RuneCountInString(chunks[0]), 407)
}
