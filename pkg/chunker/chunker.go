// Package chunker splits normalized document text into ordered,
// overlapping chunks suitable for embedding, preserving sentence and
// paragraph boundaries where possible.
package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one ordered segment of a page's content.
type Chunk struct {
	Number      int
	Content     string
	StartOffset int
	EndOffset   int
	ContentHash string
	TokenCount  int
}

// Options configures one Split call.
type Options struct {
	MaxChunkSize int // characters
	Overlap      int // characters
}

var sentenceBoundary = regexp.MustCompile(`[.!?][\s]+`)
var paragraphBoundary = regexp.MustCompile(`\n\s*\n`)
var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize collapses runs of whitespace to a single space and trims the
// result, matching Page.content_hash's "canonical whitespace-normalized
// content" invariant.
func Normalize(text string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// ContentHash returns the sha256 hex digest of normalized text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

// Split segments text into chunks each at most opts.MaxChunkSize
// characters, with opts.Overlap characters of trailing context carried
// into the next chunk. Splitting prefers sentence boundaries, falling
// back to paragraph, then whitespace, then a hard character cut when a
// single sentence exceeds MaxChunkSize.
func Split(text string, opts Options) []Chunk {
	if opts.MaxChunkSize <= 0 {
		opts.MaxChunkSize = 600
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.MaxChunkSize {
		opts.Overlap = 0
	}

	normalized := Normalize(text)
	if normalized == "" {
		return nil
	}

	var chunks []Chunk
	pos := 0
	number := 0
	runes := []rune(normalized)
	total := len(runes)

	for pos < total {
		end := pos + opts.MaxChunkSize
		if end >= total {
			end = total
		} else {
			end = boundaryBefore(runes, pos, end)
		}
		if end <= pos {
			end = pos + opts.MaxChunkSize
			if end > total {
				end = total
			}
		}

		segment := strings.TrimSpace(string(runes[pos:end]))
		if segment != "" {
			chunks = append(chunks, Chunk{
				Number:      number,
				Content:     segment,
				StartOffset: pos,
				EndOffset:   end,
				ContentHash: ContentHash(segment),
				TokenCount:  approximateTokenCount(segment),
			})
			number++
		}

		if end >= total {
			break
		}
		next := end - opts.Overlap
		if next <= pos {
			next = end
		}
		pos = next
	}

	return chunks
}

// boundaryBefore finds the best split point in runes[start:hardLimit],
// preferring (in order) a sentence boundary, a paragraph boundary, or a
// whitespace run, each searched for backward from hardLimit. Falls back
// to hardLimit itself (a hard character cut) when none is found.
func boundaryBefore(runes []rune, start, hardLimit int) int {
	window := string(runes[start:hardLimit])

	if loc := lastMatchEnd(sentenceBoundary, window); loc > 0 {
		return start + utf8.RuneCountInString(window[:loc])
	}
	if loc := lastMatchEnd(paragraphBoundary, window); loc > 0 {
		return start + utf8.RuneCountInString(window[:loc])
	}
	for i := hardLimit - 1; i >= start; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return hardLimit
}

func lastMatchEnd(re *regexp.Regexp, s string) int {
	matches := re.FindAllStringIndex(s, -1)
	if len(matches) == 0 {
		return 0
	}
	return matches[len(matches)-1][1]
}

// approximateTokenCount estimates token count without a BPE tokenizer:
// roughly 4 characters per token for English prose, floored by a
// whitespace word count so short, punctuation-heavy chunks aren't
// underestimated.
func approximateTokenCount(s string) int {
	byChars := len(s) / 4
	words := len(strings.Fields(s))
	if words > byChars {
		return words
	}
	return byChars
}
