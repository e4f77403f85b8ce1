package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mahfuz-oronno/pathshala/internal/retrieval"
	"github.com/mahfuz-oronno/pathshala/internal/textnorm"
)

// quizRetrievalLimit bounds how much chapter content is handed to the model
// when drafting questions.
const quizRetrievalLimit = 15

// MCQQuestion is a four-option multiple choice question.
type MCQQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	SourceChunks  []string `json:"source_chunk_ids"`
}

// ShortQuestion is a free-form question with a sample answer.
type ShortQuestion struct {
	Question     string   `json:"question"`
	SampleAnswer string   `json:"sample_answer"`
	SourceChunks []string `json:"source_chunk_ids"`
}

// Quiz is a generated chapter quiz.
type Quiz struct {
	ID             string            `json:"id"`
	MCQs           []MCQQuestion     `json:"mcqs"`
	ShortQuestions []ShortQuestion   `json:"short_questions"`
	Language       textnorm.Language `json:"language"`
	SourceChunks   []SourceChunk     `json:"source_chunks"`
}

// GenerateQuiz drafts mcqCount multiple choice and shortCount short answer
// questions from the chapter's content. Every question cites the chunk ids
// it was derived from.
func (l *Layer) GenerateQuiz(ctx context.Context, scope retrieval.Scope, mcqCount, shortCount int) (Quiz, error) {
	if mcqCount < 0 || shortCount < 0 {
		return Quiz{}, fmt.Errorf("question counts must not be negative")
	}
	if mcqCount+shortCount == 0 {
		return Quiz{}, fmt.Errorf("at least one question is required")
	}
	if scope.ChapterID == "" {
		return Quiz{}, fmt.Errorf("chapter required for quiz")
	}

	query := strings.ReplaceAll(scope.ChapterID, "_", " ")
	results, err := l.retriever.Search(ctx, query, scope, quizRetrievalLimit)
	if err != nil {
		return Quiz{}, err
	}
	if len(results) == 0 {
		return Quiz{}, &NoContentError{Scope: scope}
	}

	user := fmt.Sprintf(quizUserPrompt, scope.ClassLevel, scope.Subject, scope.ChapterID, contextBlock(results), mcqCount, shortCount)
	raw, err := l.llm.Completion(ctx, quizSystemPrompt, user)
	if err != nil {
		return Quiz{}, fmt.Errorf("generating quiz: %w", err)
	}

	var parsed struct {
		MCQs           []MCQQuestion   `json:"mcqs"`
		ShortQuestions []ShortQuestion `json:"short_questions"`
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &parsed); err != nil {
		return Quiz{}, fmt.Errorf("quiz response was not valid JSON: %w", err)
	}

	allIDs := make([]string, len(results))
	for i, r := range results {
		allIDs[i] = r.ChunkID()
	}
	var sample string
	for i := range parsed.MCQs {
		q := &parsed.MCQs[i]
		q.Question = textnorm.FormatMath(q.Question)
		q.Explanation = textnorm.FormatMath(q.Explanation)
		for j := range q.Options {
			q.Options[j] = textnorm.FormatMath(q.Options[j])
		}
		// A question the model failed to attribute falls back to the
		// whole retrieved set.
		if len(q.SourceChunks) == 0 {
			q.SourceChunks = allIDs
		}
		sample += q.Question + " "
	}
	for i := range parsed.ShortQuestions {
		q := &parsed.ShortQuestions[i]
		q.Question = textnorm.FormatMath(q.Question)
		q.SampleAnswer = textnorm.FormatMath(q.SampleAnswer)
		if len(q.SourceChunks) == 0 {
			q.SourceChunks = allIDs
		}
		sample += q.Question + " "
	}

	return Quiz{
		ID:             uuid.NewString(),
		MCQs:           parsed.MCQs,
		ShortQuestions: parsed.ShortQuestions,
		Language:       textnorm.DetectLanguage(sample),
		SourceChunks:   sourceChunks(results),
	}, nil
}

// extractJSON strips markdown fences and surrounding prose, keeping the
// outermost object.
func extractJSON(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
