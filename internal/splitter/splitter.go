package splitter

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// Splitter cuts text into overlapping chunks bounded by a maximum size,
// preferring to cut at the most structurally significant boundary available:
// paragraph breaks, then line breaks, then sentence ends, then spaces, and
// finally between arbitrary runes. Sizes and overlap are measured in runes.
type Splitter struct {
	chunkSize int
	overlap   int
}

// New validates the parameters and returns a Splitter. chunkSize must be
// positive and overlap must satisfy 0 <= overlap < chunkSize.
func New(chunkSize, overlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("splitter: chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("splitter: overlap must be in [0, %d), got %d", chunkSize, overlap)
	}
	return &Splitter{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the maximum chunk length in runes.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the number of trailing runes carried into the next chunk.
func (s *Splitter) Overlap() int { return s.overlap }

// Split returns the ordered chunk sequence for text. Chunks are trimmed of
// surrounding whitespace and empty chunks are dropped. The output is fully
// determined by (text, chunkSize, overlap).
func (s *Splitter) Split(text string) []string {
	return s.split(text, 0)
}

// Separator priority levels. Level len(joiners)-1 splits between runes and
// therefore always yields fragments that fit.
var joiners = []string{"\n\n", "\n", " ", " ", ""}

var sentenceEnd = regexp.MustCompile(`([.!?])\s+`)

func (s *Splitter) split(text string, level int) []string {
	frags := fragments(text, level)
	joiner := joiners[level]

	var chunks []string
	var pending []string
	flush := func() {
		if len(pending) > 0 {
			chunks = append(chunks, s.merge(pending, joiner)...)
			pending = nil
		}
	}
	for _, f := range frags {
		if utf8.RuneCountInString(f) <= s.chunkSize {
			pending = append(pending, f)
			continue
		}
		// The fragment alone is too large: emit what has accumulated, then
		// cut the fragment at the next separator level.
		flush()
		chunks = append(chunks, s.split(f, level+1)...)
	}
	flush()
	return chunks
}

func fragments(text string, level int) []string {
	switch level {
	case 0:
		return strings.Split(text, "\n\n")
	case 1:
		return strings.Split(text, "\n")
	case 2:
		return splitSentences(text)
	case 3:
		return strings.Split(text, " ")
	default:
		return strings.Split(text, "")
	}
}

// splitSentences cuts after sentence-ending punctuation, consuming the
// whitespace run that follows it.
func splitSentences(text string) []string {
	locs := sentenceEnd.FindAllStringSubmatchIndex(text, -1)
	out := make([]string, 0, len(locs)+1)
	start := 0
	for _, loc := range locs {
		out = append(out, text[start:loc[3]])
		start = loc[1]
	}
	return append(out, text[start:])
}

// merge greedily packs fragments (each already within the size bound) into
// chunks, rejoining adjacent fragments with the separator they were split
// on. When a chunk closes, the next one starts with the closed chunk's
// trailing overlap runes.
func (s *Splitter) merge(frags []string, joiner string) []string {
	var chunks []string
	cur := ""
	for _, f := range frags {
		if f == "" {
			continue
		}
		if cur == "" {
			cur = f
			continue
		}
		if runeLen(cur)+runeLen(joiner)+runeLen(f) <= s.chunkSize {
			cur += joiner + f
			continue
		}
		closed := strings.TrimSpace(cur)
		if closed != "" {
			chunks = append(chunks, closed)
		}
		tail := tailRunes(closed, s.overlap)
		for tail != "" && runeLen(tail)+runeLen(joiner)+runeLen(f) > s.chunkSize {
			_, size := utf8.DecodeRuneInString(tail)
			tail = tail[size:]
		}
		if tail == "" {
			cur = f
		} else {
			cur = tail + joiner + f
		}
	}
	if closed := strings.TrimSpace(cur); closed != "" {
		chunks = append(chunks, closed)
	}
	return chunks
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= n {
		return s
	}
	skip := total - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}
