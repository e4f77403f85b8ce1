package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const chapterTextKeyPrefix = "chaptertext:"

// CloudTextEntry is the extracted, cleaned chapter text shared by all
// clients. Written once per content hash; lives until re-ingestion
// invalidates it.
type CloudTextEntry struct {
	ClassLevel  int       `json:"class_level"`
	Subject     string    `json:"subject"`
	ChapterID   string    `json:"chapter_id"`
	Text        string    `json:"text"`
	ContentHash string    `json:"content_hash"`
	ChunkCount  int       `json:"chunk_count"`
	CachedAt    time.Time `json:"cached_at"`
}

// CloudTextCache is the cloud tier of the chapter cache, backed by Redis.
type CloudTextCache struct {
	client *redis.Client
}

// Conn opens and verifies a Redis connection.
func Conn(ctx context.Context, host, port, pass string, db int, timeout time.Duration) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        fmt.Sprintf("%s:%s", host, port),
		DialTimeout: timeout,
		Password:    pass,
		DB:          db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed (%s:%s): %w", host, port, err)
	}
	return client, nil
}

// NewCloudTextCache wraps an established Redis client.
func NewCloudTextCache(client *redis.Client) *CloudTextCache {
	return &CloudTextCache{client: client}
}

func chapterTextKey(classLevel int, subject, chapterID string) string {
	return fmt.Sprintf("%s%d:%s:%s", chapterTextKeyPrefix, classLevel, subject, chapterID)
}

// Get loads the cached chapter text, reporting whether it was present.
func (c *CloudTextCache) Get(ctx context.Context, classLevel int, subject, chapterID string) (CloudTextEntry, bool, error) {
	val, err := c.client.Get(ctx, chapterTextKey(classLevel, subject, chapterID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return CloudTextEntry{}, false, nil
		}
		return CloudTextEntry{}, false, err
	}
	var entry CloudTextEntry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return CloudTextEntry{}, false, err
	}
	return entry, true, nil
}

// Put stores the extracted text for a chapter. A put with the hash already
// cached is a no-op, keeping the entry write-once per content hash.
func (c *CloudTextCache) Put(ctx context.Context, entry CloudTextEntry) error {
	existing, found, err := c.Get(ctx, entry.ClassLevel, entry.Subject, entry.ChapterID)
	if err != nil {
		return err
	}
	if found && existing.ContentHash == entry.ContentHash {
		return nil
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now()
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, chapterTextKey(entry.ClassLevel, entry.Subject, entry.ChapterID), data, 0).Err()
}

// Invalidate drops the cached text for one scoped chapter.
func (c *CloudTextCache) Invalidate(ctx context.Context, classLevel int, subject, chapterID string) error {
	return c.client.Del(ctx, chapterTextKey(classLevel, subject, chapterID)).Err()
}

// InvalidateChapter drops the cached text of a chapter across all subjects.
// Used when local eviction is configured to cascade to the cloud tier.
func (c *CloudTextCache) InvalidateChapter(ctx context.Context, classLevel int, chapterID string) error {
	pattern := fmt.Sprintf("%s%d:*:%s", chapterTextKeyPrefix, classLevel, chapterID)
	keys, err := c.client.Keys(ctx, pattern).Result()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
