package retrieval

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/mahfuz-oronno/pathshala/config"
	"github.com/mahfuz-oronno/pathshala/internal/store"
)

// Embedder turns a query into a semantic vector.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Searcher is the vector-index surface the engine reads from.
type Searcher interface {
	SearchChunks(ctx context.Context, vector []float32, classLevel int, subject, chapterID string, topK int) ([]store.ChunkSearchResult, error)
}

// Scope narrows a search to a class level and subject, and optionally to a
// single chapter.
type Scope struct {
	ClassLevel int
	Subject    string
	ChapterID  string
}

func (s Scope) String() string {
	if s.ChapterID == "" {
		return fmt.Sprintf("class %d %s", s.ClassLevel, s.Subject)
	}
	return fmt.Sprintf("class %d %s chapter %s", s.ClassLevel, s.Subject, s.ChapterID)
}

// Engine answers semantic search queries over indexed chapter chunks.
type Engine struct {
	embedder Embedder
	index    Searcher
	cfg      config.RAGConfig
	logger   *log.Logger
}

func NewEngine(embedder Embedder, index Searcher, cfg config.RAGConfig) *Engine {
	return &Engine{
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   log.New(log.Writer(), "[RETRIEVAL] ", log.LstdFlags),
	}
}

// Search embeds the query and returns the topK closest chunks in the scope,
// best match first. topK below one falls back to the configured default and
// values past the maximum are clamped, never rejected. An empty result for a
// scope with nothing indexed is not an error.
func (e *Engine) Search(ctx context.Context, query string, scope Scope, topK int) ([]store.ChunkSearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if !e.cfg.SupportsClassLevel(scope.ClassLevel) {
		return nil, fmt.Errorf("unsupported class level %d", scope.ClassLevel)
	}
	if strings.TrimSpace(scope.Subject) == "" {
		return nil, fmt.Errorf("subject required")
	}
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}
	if topK > e.cfg.TopKMax {
		e.logger.Printf("clamping topK %d to %d", topK, e.cfg.TopKMax)
		topK = e.cfg.TopKMax
	}

	vector, err := e.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	results, err := e.index.SearchChunks(ctx, vector, scope.ClassLevel, scope.Subject, scope.ChapterID, topK)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", scope, err)
	}
	return results, nil
}

// embedQuery allows one immediate retry; interactive queries cannot afford
// the backoff schedule the ingest path uses.
func (e *Engine) embedQuery(ctx context.Context, query string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		vectors, err := e.embedder.CreateEmbedding(ctx, []string{query})
		if err == nil {
			if len(vectors) != 1 {
				return nil, fmt.Errorf("expected 1 query vector, got %d", len(vectors))
			}
			return vectors[0], nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("embedding query: %w", lastErr)
}
