package ingest

import "strings"

// splitSentences breaks text on sentence terminators (including the Bengali
// danda) and paragraph breaks. Words are never split.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '.', '!', '?', '।':
			// Terminator followed by whitespace or end of text closes
			// the sentence; "3.14" stays intact.
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' || runes[i+1] == '\t' {
				flush()
			}
		case '\n':
			if i+1 < len(runes) && runes[i+1] == '\n' {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// ChunkText splits text into word-bounded chunks, preferring sentence and
// paragraph boundaries. Chunks target at most maxWords; chunks below
// minWords are merged forward, and an oversized run is force-split at the
// next sentence boundary once it passes 1.5x the maximum.
func ChunkText(text string, minWords, maxWords int) []string {
	sentences := splitSentences(text)
	var chunks []string
	current := ""

	wordCount := func(s string) int { return len(strings.Fields(s)) }

	for _, sentence := range sentences {
		potential := sentence
		if current != "" {
			potential = current + " " + sentence
		}
		words := wordCount(potential)

		if words <= maxWords {
			current = potential
			continue
		}
		if wordCount(current) >= minWords {
			chunks = append(chunks, strings.TrimSpace(current))
			current = sentence
			continue
		}
		current = potential
		if words > maxWords*3/2 {
			chunks = append(chunks, strings.TrimSpace(current))
			current = ""
		}
	}

	if current != "" && wordCount(current) >= minWords {
		chunks = append(chunks, strings.TrimSpace(current))
	} else if current != "" && len(chunks) > 0 {
		chunks[len(chunks)-1] += " " + current
	} else if current != "" {
		// A document smaller than one minimum chunk still yields one chunk.
		chunks = append(chunks, strings.TrimSpace(current))
	}
	return chunks
}
