package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/mahfuz-oronno/pathshala/config"
	"github.com/mahfuz-oronno/pathshala/internal/cache"
	"github.com/mahfuz-oronno/pathshala/internal/store"
)

// Embedder turns text spans into semantic vectors.
type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

// Indexer is the vector-index surface the pipeline writes to.
type Indexer interface {
	GetDocument(ctx context.Context, id store.DocumentIdentity) (store.ChapterDocument, bool, error)
	ReplaceDocument(ctx context.Context, doc store.ChapterDocument, chunks []store.ChunkRecord) error
}

// TextCache shares extracted chapter text across clients so a failed
// indexing attempt can be retried without re-extraction.
type TextCache interface {
	Get(ctx context.Context, classLevel int, subject, chapterID string) (cache.CloudTextEntry, bool, error)
	Put(ctx context.Context, entry cache.CloudTextEntry) error
}

// Pipeline ingests chapter PDFs into the vector index.
type Pipeline struct {
	embedder  Embedder
	index     Indexer
	textCache TextCache
	cfg       config.RAGConfig
	backoff   time.Duration
	logger    *log.Logger
}

// NewPipeline wires the ingestion pipeline. textCache may be nil when the
// cloud tier is disabled.
func NewPipeline(embedder Embedder, index Indexer, textCache TextCache, cfg config.RAGConfig) *Pipeline {
	return &Pipeline{
		embedder:  embedder,
		index:     index,
		textCache: textCache,
		cfg:       cfg,
		backoff:   500 * time.Millisecond,
		logger:    log.New(log.Writer(), "[INGEST] ", log.LstdFlags),
	}
}

// Ingest extracts, chunks, embeds and indexes one chapter PDF. Re-uploading
// identical content is a no-op returning the existing document. Indexing is
// all-or-nothing per document.
func (p *Pipeline) Ingest(ctx context.Context, r io.ReaderAt, size int64, id store.DocumentIdentity) (store.ChapterDocument, error) {
	text, pages, err := ExtractText(r, size)
	if err != nil {
		return store.ChapterDocument{}, err
	}
	p.logger.Printf("extracted %d pages for %s", len(pages), id)
	return p.IngestText(ctx, text, id)
}

// ReindexFromCache rebuilds the vector index for a chapter from the cloud
// text cache, skipping extraction entirely.
func (p *Pipeline) ReindexFromCache(ctx context.Context, id store.DocumentIdentity) (store.ChapterDocument, error) {
	if p.textCache == nil {
		return store.ChapterDocument{}, fmt.Errorf("cloud text cache not configured")
	}
	entry, found, err := p.textCache.Get(ctx, id.ClassLevel, id.Subject, id.ChapterID)
	if err != nil {
		return store.ChapterDocument{}, err
	}
	if !found {
		return store.ChapterDocument{}, fmt.Errorf("no cached text for %s", id)
	}
	return p.IngestText(ctx, entry.Text, id)
}

// IngestText chunks, embeds and indexes already-extracted chapter text.
func (p *Pipeline) IngestText(ctx context.Context, text string, id store.DocumentIdentity) (store.ChapterDocument, error) {
	if !p.cfg.SupportsClassLevel(id.ClassLevel) {
		return store.ChapterDocument{}, fmt.Errorf("unsupported class level %d", id.ClassLevel)
	}
	if strings.TrimSpace(id.ChapterID) == "" {
		return store.ChapterDocument{}, fmt.Errorf("chapter id required")
	}

	hash := contentHash(text)
	existing, found, err := p.index.GetDocument(ctx, id)
	if err != nil {
		return store.ChapterDocument{}, &IndexingError{Op: "lookup", Err: err}
	}
	if found && existing.SourceContentHash == hash {
		p.logger.Printf("unchanged content for %s, skipping re-index", id)
		return existing, nil
	}

	texts := ChunkText(text, p.cfg.MinChunkWords, p.cfg.MaxChunkWords)
	if len(texts) == 0 {
		return store.ChapterDocument{}, &ExtractionError{Reason: "document produced no chunks"}
	}

	// The extracted text is cached before embedding so a failed indexing
	// attempt can be retried without re-extraction.
	if p.textCache != nil {
		entry := cache.CloudTextEntry{
			ClassLevel:  id.ClassLevel,
			Subject:     id.Subject,
			ChapterID:   id.ChapterID,
			Text:        text,
			ContentHash: hash,
			ChunkCount:  len(texts),
		}
		if err := p.textCache.Put(ctx, entry); err != nil {
			p.logger.Printf("cloud text cache write failed for %s: %v", id, err)
		}
	}

	vectors, err := p.embedAll(ctx, texts)
	if err != nil {
		return store.ChapterDocument{}, err
	}

	chunks := make([]store.ChunkRecord, len(texts))
	for i, t := range texts {
		chunks[i] = store.ChunkRecord{
			Identity:    id,
			ChunkIndex:  i,
			Text:        t,
			WordCount:   len(strings.Fields(t)),
			ContentHash: contentHash(t),
			Embedding:   vectors[i],
		}
	}

	doc := store.ChapterDocument{
		Identity:          id,
		SourceContentHash: hash,
		ChunkCount:        len(chunks),
		LastIndexedAt:     time.Now(),
	}
	if err := p.withRetry(ctx, "upsert", func() error {
		return p.index.ReplaceDocument(ctx, doc, chunks)
	}); err != nil {
		return store.ChapterDocument{}, err
	}
	p.logger.Printf("indexed %d chunks for %s", len(chunks), id)
	return doc, nil
}

// embedAll embeds chunk texts in bounded batches.
func (p *Pipeline) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	batchSize := p.cfg.EmbeddingBatchSize
	for start := 0; start < len(texts); start += batchSize {
		end := start + batchSize
		if end > len(texts) {
			end = len(texts)
		}
		var batch [][]float32
		if err := p.withRetry(ctx, "embed", func() error {
			var err error
			batch, err = p.embedder.CreateEmbedding(ctx, texts[start:end])
			return err
		}); err != nil {
			return nil, err
		}
		if len(batch) != end-start {
			return nil, &IndexingError{Op: "embed", Err: fmt.Errorf("expected %d vectors, got %d", end-start, len(batch))}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// withRetry retries the network class of errors with bounded exponential
// backoff; anything else surfaces immediately.
func (p *Pipeline) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	tries := p.cfg.IndexRetries + 1
	for attempt := 0; attempt < tries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return &IndexingError{Op: op, Err: lastErr}
		}
		if attempt < tries-1 {
			select {
			case <-time.After(p.backoff * time.Duration(1<<attempt)):
			case <-ctx.Done():
				return &IndexingError{Op: op, Err: ctx.Err()}
			}
		}
	}
	return &IndexingError{Op: op, Err: lastErr}
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
