package generate

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mahfuz-oronno/pathshala/internal/retrieval"
	"github.com/mahfuz-oronno/pathshala/internal/store"
)

const quizJSON = `Here is your quiz:
` + "```json" + `
{
    "mcqs": [
        {
            "question": "What is the unit of acceleration?",
            "options": ["A) m/s", "B) m/s^2", "C) m^2/s", "D) s/m"],
            "correct_answer": "B",
            "explanation": "Acceleration is change of velocity per second.",
            "source_chunk_ids": ["9-physics-motion-001"]
        }
    ],
    "short_questions": [
        {
            "question": "Define uniform motion.",
            "sample_answer": "Equal distances in equal intervals of time."
        }
    ]
}
` + "```"

func TestGenerateQuiz(t *testing.T) {
	retriever := &stubRetriever{results: []store.ChunkSearchResult{
		chunkResult(0, "Motion and rest.", 0.9),
		chunkResult(1, "Acceleration is measured in m/s^2.", 0.8),
	}}
	llm := &stubLLM{responses: []string{quizJSON}}
	l := testLayer(llm, retriever, &stubLister{}, false)

	quiz, err := l.GenerateQuiz(context.Background(), physicsScope, 1, 1)
	if err != nil {
		t.Fatalf("GenerateQuiz: %v", err)
	}
	if quiz.ID == "" {
		t.Fatal("quiz id missing")
	}
	if len(quiz.MCQs) != 1 || len(quiz.ShortQuestions) != 1 {
		t.Fatalf("got %d mcqs and %d short questions", len(quiz.MCQs), len(quiz.ShortQuestions))
	}

	mcq := quiz.MCQs[0]
	if mcq.Options[1] != "B) m/s²" {
		t.Fatalf("option not math-formatted: %q", mcq.Options[1])
	}
	if len(mcq.SourceChunks) != 1 || mcq.SourceChunks[0] != "9-physics-motion-001" {
		t.Fatalf("mcq source chunks = %v", mcq.SourceChunks)
	}

	// The model omitted citations on the short question, so it falls back
	// to the whole retrieved set.
	short := quiz.ShortQuestions[0]
	if len(short.SourceChunks) != 2 {
		t.Fatalf("short question source chunks = %v", short.SourceChunks)
	}

	// Retrieval queries by the chapter's readable name.
	if retriever.lastQuery != "motion" {
		t.Fatalf("retrieval query = %q", retriever.lastQuery)
	}
}

func TestGenerateQuizValidatesCounts(t *testing.T) {
	l := testLayer(&stubLLM{}, &stubRetriever{}, &stubLister{}, false)

	if _, err := l.GenerateQuiz(context.Background(), physicsScope, 0, 0); err == nil {
		t.Fatal("expected error for zero questions")
	}
	if _, err := l.GenerateQuiz(context.Background(), physicsScope, -1, 2); err == nil {
		t.Fatal("expected error for negative count")
	}
}

func TestGenerateQuizNoContent(t *testing.T) {
	l := testLayer(&stubLLM{}, &stubRetriever{}, &stubLister{}, false)

	_, err := l.GenerateQuiz(context.Background(), physicsScope, 3, 1)
	var nce *NoContentError
	if !errors.As(err, &nce) {
		t.Fatalf("error = %v, want NoContentError", err)
	}
}

func TestGenerateQuizInvalidJSON(t *testing.T) {
	retriever := &stubRetriever{results: []store.ChunkSearchResult{chunkResult(0, "content", 0.9)}}
	llm := &stubLLM{responses: []string{"Sorry, I cannot produce a quiz."}}
	l := testLayer(llm, retriever, &stubLister{}, false)

	_, err := l.GenerateQuiz(context.Background(), physicsScope, 2, 0)
	if err == nil || !strings.Contains(err.Error(), "valid JSON") {
		t.Fatalf("error = %v, want JSON parse failure", err)
	}
}

func TestGenerateQuizUsesChapterSpacesInQuery(t *testing.T) {
	retriever := &stubRetriever{results: []store.ChunkSearchResult{chunkResult(0, "content", 0.9)}}
	llm := &stubLLM{responses: []string{`{"mcqs": [], "short_questions": [{"question": "Q", "sample_answer": "A"}]}`}}
	l := testLayer(llm, retriever, &stubLister{}, false)

	scope := retrieval.Scope{ClassLevel: 9, Subject: "physics", ChapterID: "force_and_pressure"}
	if _, err := l.GenerateQuiz(context.Background(), scope, 0, 1); err != nil {
		t.Fatal(err)
	}
	if retriever.lastQuery != "force and pressure" {
		t.Fatalf("retrieval query = %q", retriever.lastQuery)
	}
}
