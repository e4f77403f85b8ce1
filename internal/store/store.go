package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

// DefaultEmbeddingDimensions indicates the expected length of semantic vectors stored in pgvector columns.
const DefaultEmbeddingDimensions = 1536

// Store wraps the Postgres connection holding the chapter vector index.
type Store struct {
	DB *sql.DB
}

// DocumentIdentity identifies one indexed chapter document.
type DocumentIdentity struct {
	ClassLevel int
	Subject    string
	ChapterID  string
}

func (id DocumentIdentity) String() string {
	return fmt.Sprintf("class %d %s/%s", id.ClassLevel, id.Subject, id.ChapterID)
}

// ChapterDocument is the indexed state of one chapter. At most one indexed
// version exists per identity.
type ChapterDocument struct {
	Identity          DocumentIdentity
	SourceContentHash string
	ChunkCount        int
	LastIndexedAt     time.Time
}

// ChunkRecord is one retrievable span of chapter text with its embedding.
type ChunkRecord struct {
	Identity    DocumentIdentity
	ChunkIndex  int
	Text        string
	WordCount   int
	ContentHash string
	Embedding   []float32
}

// ChunkSearchResult is a similarity hit against the vector index.
type ChunkSearchResult struct {
	Identity   DocumentIdentity
	ChunkIndex int
	Text       string
	WordCount  int
	Score      float64
}

// ChunkID returns the stable identifier reported to callers for citations.
func (r ChunkSearchResult) ChunkID() string {
	return fmt.Sprintf("%d-%s-%s-%03d", r.Identity.ClassLevel, strings.ToLower(r.Identity.Subject), r.Identity.ChapterID, r.ChunkIndex)
}

// NewWithDSN opens the Postgres connection and verifies it.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// GetDocument loads the indexed document for an identity, if present.
func (s *Store) GetDocument(ctx context.Context, id DocumentIdentity) (ChapterDocument, bool, error) {
	row := s.DB.QueryRowContext(ctx, `
SELECT source_content_hash, chunk_count, last_indexed_at
FROM chapter_documents
WHERE class_level=$1 AND subject=$2 AND chapter_id=$3
`, id.ClassLevel, id.Subject, id.ChapterID)
	doc := ChapterDocument{Identity: id}
	switch err := row.Scan(&doc.SourceContentHash, &doc.ChunkCount, &doc.LastIndexedAt); err {
	case nil:
		return doc, true, nil
	case sql.ErrNoRows:
		return ChapterDocument{}, false, nil
	default:
		return ChapterDocument{}, false, err
	}
}

// ReplaceDocument atomically swaps the indexed version of a chapter: the
// document row is upserted, all prior chunks are deleted and the new chunk
// set inserted in one transaction, so retrieval never observes a mixed
// document.
func (s *Store) ReplaceDocument(ctx context.Context, doc ChapterDocument, chunks []ChunkRecord) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	id := doc.Identity
	if _, err = tx.ExecContext(ctx, `
INSERT INTO chapter_documents (class_level, subject, chapter_id, source_content_hash, chunk_count, last_indexed_at)
VALUES ($1,$2,$3,$4,$5,NOW())
ON CONFLICT (class_level, subject, chapter_id) DO UPDATE SET
  source_content_hash = EXCLUDED.source_content_hash,
  chunk_count = EXCLUDED.chunk_count,
  last_indexed_at = NOW();
`, id.ClassLevel, id.Subject, id.ChapterID, doc.SourceContentHash, len(chunks)); err != nil {
		return fmt.Errorf("upsert chapter document: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `
DELETE FROM chapter_chunks WHERE class_level=$1 AND subject=$2 AND chapter_id=$3
`, id.ClassLevel, id.Subject, id.ChapterID); err != nil {
		return fmt.Errorf("delete superseded chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO chapter_chunks (class_level, subject, chapter_id, chunk_index, text, word_count, content_hash, embedding, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8::vector,NOW())
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, rec := range chunks {
		if len(rec.Embedding) == 0 {
			return fmt.Errorf("embedding vector required for chunk %d", rec.ChunkIndex)
		}
		vectorLiteral, verr := encodeVectorLiteral(rec.Embedding)
		if verr != nil {
			return verr
		}
		if _, err = stmt.ExecContext(ctx, id.ClassLevel, id.Subject, id.ChapterID,
			rec.ChunkIndex, rec.Text, rec.WordCount, rec.ContentHash, vectorLiteral); err != nil {
			return fmt.Errorf("insert chunk %d: %w", rec.ChunkIndex, err)
		}
	}
	return nil
}

// DeleteDocument removes a chapter document and all of its chunks.
func (s *Store) DeleteDocument(ctx context.Context, id DocumentIdentity) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	if _, err = tx.ExecContext(ctx, `DELETE FROM chapter_chunks WHERE class_level=$1 AND subject=$2 AND chapter_id=$3`,
		id.ClassLevel, id.Subject, id.ChapterID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `DELETE FROM chapter_documents WHERE class_level=$1 AND subject=$2 AND chapter_id=$3`,
		id.ClassLevel, id.Subject, id.ChapterID)
	return err
}

// SearchChunks returns the closest chunks for the supplied vector restricted
// to a class/subject scope, optionally to one chapter. Results are ordered by
// descending similarity; ties break on ascending chunk index for determinism.
// An empty result is not an error.
func (s *Store) SearchChunks(ctx context.Context, vector []float32, classLevel int, subject, chapterID string, topK int) ([]ChunkSearchResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("vector must not be empty")
	}
	if topK <= 0 {
		return nil, fmt.Errorf("topK must be positive")
	}
	vecLiteral, err := encodeVectorLiteral(vector)
	if err != nil {
		return nil, err
	}
	rows, err := s.DB.QueryContext(ctx, `
SELECT class_level, subject, chapter_id, chunk_index, text, word_count, embedding <=> $1::vector AS distance
FROM chapter_chunks
WHERE class_level = $2 AND subject = $3 AND ($4 = '' OR chapter_id = $4)
ORDER BY embedding <=> $1::vector, chunk_index
LIMIT $5
`, vecLiteral, classLevel, subject, chapterID, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []ChunkSearchResult
	for rows.Next() {
		var (
			res      ChunkSearchResult
			distance float64
		)
		if err := rows.Scan(&res.Identity.ClassLevel, &res.Identity.Subject, &res.Identity.ChapterID,
			&res.ChunkIndex, &res.Text, &res.WordCount, &distance); err != nil {
			return nil, err
		}
		res.Score = 1 - distance
		results = append(results, res)
	}
	return results, rows.Err()
}

// ChapterChunks pages through a chapter's chunks in index order, for
// operations that must cover the whole chapter rather than the top matches.
func (s *Store) ChapterChunks(ctx context.Context, id DocumentIdentity, offset, limit int) ([]ChunkSearchResult, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT class_level, subject, chapter_id, chunk_index, text, word_count
FROM chapter_chunks
WHERE class_level=$1 AND subject=$2 AND chapter_id=$3
ORDER BY chunk_index
OFFSET $4 LIMIT $5
`, id.ClassLevel, id.Subject, id.ChapterID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var results []ChunkSearchResult
	for rows.Next() {
		var res ChunkSearchResult
		if err := rows.Scan(&res.Identity.ClassLevel, &res.Identity.Subject, &res.Identity.ChapterID,
			&res.ChunkIndex, &res.Text, &res.WordCount); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func encodeVectorLiteral(vec []float32) (string, error) {
	if len(vec) == 0 {
		return "", fmt.Errorf("vector must not be empty")
	}
	var builder strings.Builder
	builder.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			builder.WriteByte(',')
		}
		builder.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	builder.WriteByte(']')
	return builder.String(), nil
}
