package ingest

import (
	"fmt"
	"strings"
	"testing"
)

func TestSplitSentences(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "english terminators",
			in:   "Force causes motion. Does it? Yes!",
			want: []string{"Force causes motion.", "Does it?", "Yes!"},
		},
		{
			name: "bengali danda",
			in:   "বল প্রয়োগ করা হয়। বস্তুটি সরে যায়।",
			want: []string{"বল প্রয়োগ করা হয়।", "বস্তুটি সরে যায়।"},
		},
		{
			name: "decimal stays intact",
			in:   "The value of pi is 3.14 approximately. Next sentence.",
			want: []string{"The value of pi is 3.14 approximately.", "Next sentence."},
		},
		{
			name: "paragraph break without terminator",
			in:   "Chapter heading\n\nBody text here.",
			want: []string{"Chapter heading", "Body text here."},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := splitSentences(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("got %d sentences %q, want %d", len(got), got, len(tc.want))
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Errorf("sentence %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

// sentenceText builds a document of n sentences with wordsPer words each.
func sentenceText(n, wordsPer int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		for w := 0; w < wordsPer-1; w++ {
			fmt.Fprintf(&b, "word%d ", w)
		}
		fmt.Fprintf(&b, "end%d. ", i)
	}
	return b.String()
}

func TestChunkTextBounds(t *testing.T) {
	const minWords, maxWords = 300, 800
	text := sentenceText(200, 25) // 5000 words total

	chunks := ChunkText(text, minWords, maxWords)
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, c := range chunks {
		words := len(strings.Fields(c))
		if words > maxWords*3/2 {
			t.Errorf("chunk %d has %d words, exceeds hard ceiling", i, words)
		}
		if words < minWords {
			t.Errorf("chunk %d has %d words, below minimum", i, words)
		}
	}
}

func TestChunkTextNeverSplitsWords(t *testing.T) {
	text := sentenceText(120, 30)
	original := strings.Fields(text)

	chunks := ChunkText(text, 300, 800)
	var reassembled []string
	for _, c := range chunks {
		reassembled = append(reassembled, strings.Fields(c)...)
	}
	if len(reassembled) != len(original) {
		t.Fatalf("word count changed: %d -> %d", len(original), len(reassembled))
	}
	for i := range original {
		if original[i] != reassembled[i] {
			t.Fatalf("word %d = %q, want %q", i, reassembled[i], original[i])
		}
	}
}

func TestChunkTextTinyDocumentYieldsOneChunk(t *testing.T) {
	chunks := ChunkText("A single short sentence.", 300, 800)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if chunks[0] != "A single short sentence." {
		t.Fatalf("chunk = %q", chunks[0])
	}
}

func TestChunkTextTrailingRemainderMergedIntoLast(t *testing.T) {
	// Four 200-word sentences fill one chunk; the fifth starts a new run
	// that ends below the minimum and must fold into the previous chunk.
	text := sentenceText(5, 200)
	chunks := ChunkText(text, 300, 800)
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(chunks))
	}
	if !strings.Contains(chunks[0], "end4.") {
		t.Fatal("trailing remainder was dropped")
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	if got := ChunkText("", 300, 800); len(got) != 0 {
		t.Fatalf("got %d chunks for empty input", len(got))
	}
	if got := ChunkText("   \n\n  ", 300, 800); len(got) != 0 {
		t.Fatalf("got %d chunks for whitespace input", len(got))
	}
}
