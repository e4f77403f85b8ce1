package generate

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mahfuz-oronno/pathshala/config"
	"github.com/mahfuz-oronno/pathshala/internal/retrieval"
	"github.com/mahfuz-oronno/pathshala/internal/store"
	"github.com/mahfuz-oronno/pathshala/internal/textnorm"
)

// Retriever returns the chunks most relevant to a query within a scope.
type Retriever interface {
	Search(ctx context.Context, query string, scope retrieval.Scope, topK int) ([]store.ChunkSearchResult, error)
}

// ChunkLister pages through a chapter's chunks in index order.
type ChunkLister interface {
	ChapterChunks(ctx context.Context, id store.DocumentIdentity, offset, limit int) ([]store.ChunkSearchResult, error)
}

// Completer produces a completion for a system/user prompt pair.
type Completer interface {
	Completion(ctx context.Context, system, user string) (string, error)
}

// NoContentError reports that nothing is ingested for the requested scope.
// A user-visible "nothing found" state, not a system fault.
type NoContentError struct {
	Scope retrieval.Scope
}

func (e *NoContentError) Error() string {
	return fmt.Sprintf("no ingested content for %s", e.Scope)
}

// SourceChunk identifies a retrieved chunk an output was grounded on.
type SourceChunk struct {
	ChunkID string  `json:"chunk_id"`
	Score   float64 `json:"score"`
	Preview string  `json:"preview"`
}

// Answer is the response to a student question.
type Answer struct {
	Answer               string            `json:"answer"`
	Language             textnorm.Language `json:"language"`
	Confidence           float64           `json:"confidence"`
	SourceChunks         []SourceChunk     `json:"source_chunks"`
	FromGeneralKnowledge bool              `json:"from_general_knowledge"`
}

// Summary is a whole-chapter summary.
type Summary struct {
	Summary       string            `json:"summary"`
	Language      textnorm.Language `json:"language"`
	ChunksCovered int               `json:"chunks_covered"`
}

// Layer turns retrieved chapter content into answers, summaries and quizzes.
type Layer struct {
	llm       Completer
	retriever Retriever
	chunks    ChunkLister
	cfg       config.RAGConfig
	logger    *log.Logger
}

func NewLayer(llm Completer, retriever Retriever, chunks ChunkLister, cfg config.RAGConfig) *Layer {
	return &Layer{
		llm:       llm,
		retriever: retriever,
		chunks:    chunks,
		cfg:       cfg,
		logger:    log.New(log.Writer(), "[GENERATE] ", log.LstdFlags),
	}
}

// AnswerQuestion retrieves relevant chunks for the question and generates a
// grounded answer. Confidence is the mean similarity of the retrieved chunks.
// With nothing retrieved it returns NoContentError, unless the general
// knowledge fallback is enabled.
func (l *Layer) AnswerQuestion(ctx context.Context, question string, scope retrieval.Scope) (Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return Answer{}, fmt.Errorf("question must not be empty")
	}

	results, err := l.retriever.Search(ctx, question, scope, l.cfg.DefaultTopK)
	if err != nil {
		return Answer{}, err
	}
	if len(results) == 0 {
		if !l.cfg.GeneralFallback {
			return Answer{}, &NoContentError{Scope: scope}
		}
		l.logger.Printf("no indexed content for %s, answering from general knowledge", scope)
		return l.generalAnswer(ctx, question, scope)
	}

	system := fmt.Sprintf(tutorSystemPrompt, scope.ClassLevel, scope.Subject, contextBlock(results), scope.ClassLevel)
	raw, err := l.llm.Completion(ctx, system, question)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	answer := textnorm.FormatMath(raw)
	return Answer{
		Answer:       answer,
		Language:     textnorm.DetectLanguage(answer),
		Confidence:   meanScore(results),
		SourceChunks: sourceChunks(results),
	}, nil
}

func (l *Layer) generalAnswer(ctx context.Context, question string, scope retrieval.Scope) (Answer, error) {
	system := fmt.Sprintf(generalSystemPrompt, scope.ClassLevel, scope.Subject)
	raw, err := l.llm.Completion(ctx, system, question)
	if err != nil {
		return Answer{}, fmt.Errorf("generating answer: %w", err)
	}
	answer := textnorm.FormatMath(raw)
	return Answer{
		Answer:               answer,
		Language:             textnorm.DetectLanguage(answer),
		FromGeneralKnowledge: true,
	}, nil
}

// SummarizeChapter summarizes a whole chapter. Chapters larger than one
// batch are folded in iteratively so every chunk contributes, not just the
// top retrieval matches.
func (l *Layer) SummarizeChapter(ctx context.Context, scope retrieval.Scope) (Summary, error) {
	if scope.ChapterID == "" {
		return Summary{}, fmt.Errorf("chapter required for summary")
	}
	id := store.DocumentIdentity{ClassLevel: scope.ClassLevel, Subject: scope.Subject, ChapterID: scope.ChapterID}

	var (
		summary string
		covered int
	)
	for offset := 0; ; offset += l.cfg.SummaryBatchSize {
		batch, err := l.chunks.ChapterChunks(ctx, id, offset, l.cfg.SummaryBatchSize)
		if err != nil {
			return Summary{}, fmt.Errorf("loading chapter chunks: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		covered += len(batch)

		var user string
		if summary == "" {
			user = fmt.Sprintf(summaryInitialPrompt, scope.ClassLevel, scope.Subject, scope.ChapterID, contextBlock(batch))
		} else {
			user = fmt.Sprintf(summaryExtendPrompt, summary, contextBlock(batch))
		}
		summary, err = l.llm.Completion(ctx, summarySystemPrompt, user)
		if err != nil {
			return Summary{}, fmt.Errorf("generating summary: %w", err)
		}
		if len(batch) < l.cfg.SummaryBatchSize {
			break
		}
	}
	if covered == 0 {
		return Summary{}, &NoContentError{Scope: scope}
	}
	summary = textnorm.FormatMath(summary)
	return Summary{
		Summary:       summary,
		Language:      textnorm.DetectLanguage(summary),
		ChunksCovered: covered,
	}, nil
}

// SearchContent is a retrieval pass-through for preview listings, without
// any generation step.
func (l *Layer) SearchContent(ctx context.Context, query string, scope retrieval.Scope, topK int) ([]store.ChunkSearchResult, error) {
	return l.retriever.Search(ctx, query, scope, topK)
}

func contextBlock(results []store.ChunkSearchResult) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("[%s]\n%s", r.ChunkID(), r.Text)
	}
	return strings.Join(parts, "\n\n")
}

func meanScore(results []store.ChunkSearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

func sourceChunks(results []store.ChunkSearchResult) []SourceChunk {
	out := make([]SourceChunk, len(results))
	for i, r := range results {
		out[i] = SourceChunk{
			ChunkID: r.ChunkID(),
			Score:   r.Score,
			Preview: preview(r.Text),
		}
	}
	return out
}

// preview keeps the first few words of a chunk for citation display.
func preview(text string) string {
	const maxWords = 24
	fields := strings.Fields(text)
	if len(fields) <= maxWords {
		return strings.Join(fields, " ")
	}
	return strings.Join(fields[:maxWords], " ") + "…"
}
