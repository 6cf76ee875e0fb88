package indexing

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ForceSplitText splits text into fixed windows of maxChars code points.
// The last window may be shorter.
func ForceSplitText(text string, maxChars int) []string {
	if maxChars <= 0 || text == "" {
		return []string{}
	}

	runes := []rune(text)
	parts := make([]string, 0, (len(runes)+maxChars-1)/maxChars)
	for start := 0; start < len(runes); start += maxChars {
		end := min(start+maxChars, len(runes))
		parts = append(parts, string(runes[start:end]))
	}

	return parts
}

// ChunkText splits text into sentence-aware chunks of about targetSize code
// points, carrying up to overlap code points of trailing sentences into the
// next chunk.
//
// A sentence is never split, so a chunk holding one longer sentence, or the
// carried-over sentences plus the next one, may exceed targetSize. Text made
// only of whitespace has no sentences and falls back to ForceSplitText.
func ChunkText(text string, targetSize, overlap int) ([]string, error) {
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: target size must be greater than 0, got %d", ErrInvalidConfig, targetSize)
	}

	overlap = clampOverlap(overlap, targetSize)

	if text == "" {
		return []string{}, nil
	}

	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		if utf8.RuneCountInString(text) <= targetSize {
			return []string{text}, nil
		}
		return ForceSplitText(text, targetSize), nil
	}

	return assembleChunks(sentences, targetSize, overlap), nil
}

// clampOverlap keeps overlap in [0, targetSize-1] so a chunk can always make progress
func clampOverlap(overlap, targetSize int) int {
	if overlap < 0 {
		return 0
	}
	return min(overlap, targetSize-1)
}

// assembleChunks greedily packs sentences into chunks.
// Closing a chunk and trimming the overlap window are separate steps; the window
// length is kept current on every sentence, never recomputed after the loop.
func assembleChunks(sentences []string, targetSize, overlap int) []string {
	var chunks []string
	var current strings.Builder
	currentLen := 0
	window := newOverlapWindow(overlap)

	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)

		separatorLen := 0
		if current.Len() > 0 {
			separatorLen = 1
		}

		// Close the current chunk if this sentence would push it past the target
		if current.Len() > 0 && currentLen+separatorLen+sentenceLen > targetSize {
			chunks = append(chunks, strings.TrimSpace(current.String()))

			// Reseed from the whole window; the window itself carries over untouched
			seed, seedLen := window.seed()
			current.Reset()
			current.WriteString(seed)
			currentLen = seedLen
		}

		if current.Len() > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(sentence)
		currentLen += sentenceLen

		window.push(sentence, sentenceLen)
	}

	if final := strings.TrimSpace(current.String()); final != "" {
		chunks = append(chunks, final)
	}

	return chunks
}

// windowEntry is a sentence held in the overlap window
type windowEntry struct {
	text string
	size int // code points
}

// overlapWindow holds the most recent sentences, oldest first.
// Front eviction reslices, so it costs O(1).
type overlapWindow struct {
	entries []windowEntry
	length  int // code points, one separator counted per sentence
	limit   int
}

func newOverlapWindow(limit int) *overlapWindow {
	return &overlapWindow{limit: limit}
}

// push appends a sentence and evicts from the front while the window is over
// its limit, always keeping the newest sentence
func (w *overlapWindow) push(sentence string, size int) {
	w.entries = append(w.entries, windowEntry{text: sentence, size: size})
	w.length += size + 1

	for w.length > w.limit && len(w.entries) > 1 {
		w.length -= w.entries[0].size + 1
		w.entries = w.entries[1:]
	}
}

// seed joins every window sentence with single spaces and returns its length
func (w *overlapWindow) seed() (string, int) {
	if len(w.entries) == 0 {
		return "", 0
	}

	parts := make([]string, 0, len(w.entries))
	for _, entry := range w.entries {
		parts = append(parts, entry.text)
	}
	return strings.Join(parts, " "), w.length - 1
}
