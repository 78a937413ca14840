package splitter

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidation(t *testing.T) {
	_, err := New(0, 0)
	require.Error(t, err)

	_, err = New(-5, 0)
	require.Error(t, err)

	_, err = New(10, 10)
	require.Error(t, err)

	_, err = New(10, -1)
	require.Error(t, err)

	s, err := New(10, 9)
	require.NoError(t, err)
	assert.Equal(t, 10, s.ChunkSize())
	assert.Equal(t, 9, s.Overlap())
}

func TestSplitSizeBound(t *testing.T) {
	text := "The quick brown fox jumps over the lazy dog.\n\n" +
		"Pack my box with five dozen liquor jugs. How vexingly quick daft zebras jump!\n" +
		"Sphinx of black quartz, judge my vow. " +
		strings.Repeat("waltz bad nymph for quick jigs vex ", 20)

	for _, size := range []int{10, 25, 50, 120} {
		s, err := New(size, size/5)
		require.NoError(t, err)
		for _, chunk := range s.Split(text) {
			assert.LessOrEqual(t, utf8.RuneCountInString(chunk), size)
			assert.NotEmpty(t, strings.TrimSpace(chunk))
		}
	}
}

func TestSplitDeterminism(t *testing.T) {
	text := strings.Repeat("one two three four five. six seven eight nine ten.\n\n", 10)
	s, err := New(40, 8)
	require.NoError(t, err)

	first := s.Split(text)
	second := s.Split(text)
	require.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestSplitPrefersParagraphBreaks(t *testing.T) {
	p1 := strings.Repeat("a", 30)
	p2 := strings.Repeat("b", 30)
	s, err := New(40, 0)
	require.NoError(t, err)

	chunks := s.Split(p1 + "\n\n" + p2)
	require.Equal(t, []string{p1, p2}, chunks)
}

func TestSplitMergesSmallParagraphs(t *testing.T) {
	s, err := New(40, 0)
	require.NoError(t, err)

	chunks := s.Split("first\n\nsecond")
	require.Equal(t, []string{"first\n\nsecond"}, chunks)
}

func TestSplitSentenceBoundaries(t *testing.T) {
	text := "One red fox. Two blue cats. Three green dogs."
	s, err := New(20, 0)
	require.NoError(t, err)

	chunks := s.Split(text)
	require.Equal(t, []string{"One red fox.", "Two blue cats.", "Three green dogs."}, chunks)
}

func TestSplitOverlapCarriesContext(t *testing.T) {
	words := make([]string, 40)
	for i := range words {
		words[i] = string(rune('a'+i%26)) + "word"
	}
	text := strings.Join(words, " ")

	const overlap = 5
	s, err := New(20, overlap)
	require.NoError(t, err)

	chunks := s.Split(text)
	require.Greater(t, len(chunks), 1)
	for i := 1; i < len(chunks); i++ {
		tail := tailRunes(chunks[i-1], overlap)
		assert.True(t, strings.HasPrefix(chunks[i], strings.TrimSpace(tail)),
			"chunk %d %q does not carry tail %q of chunk %d", i, chunks[i], tail, i-1)
	}
}

func TestSplitLongWordFallsBackToRunes(t *testing.T) {
	word := "abcdefghijklmnopqrstuvwxy"
	s, err := New(10, 2)
	require.NoError(t, err)

	chunks := s.Split(word)
	require.NotEmpty(t, chunks)
	assert.Equal(t, "abcdefghij", chunks[0])
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
		if i > 0 {
			tail := tailRunes(chunks[i-1], 2)
			assert.True(t, strings.HasPrefix(chunk, tail))
		}
	}
	// Every rune of the input survives, in order.
	assert.Equal(t, word, dedupeOverlap(chunks, 2))
}

func TestSplitEmptyInput(t *testing.T) {
	s, err := New(50, 10)
	require.NoError(t, err)

	assert.Empty(t, s.Split(""))
	assert.Empty(t, s.Split("   \n\n \t "))
}

func TestSplitCountsRunesNotBytes(t *testing.T) {
	text := strings.Repeat("é", 30) // 2 bytes per rune
	s, err := New(10, 0)
	require.NoError(t, err)

	chunks := s.Split(text)
	require.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 10)
	}
}

// dedupeOverlap reassembles rune-level chunks by stripping the carried
// overlap prefix from every chunk after the first.
func dedupeOverlap(chunks []string, overlap int) string {
	var b strings.Builder
	for i, c := range chunks {
		if i == 0 {
			b.WriteString(c)
			continue
		}
		runes := []rune(c)
		b.WriteString(string(runes[overlap:]))
	}
	return b.String()
}
