package cache

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a downloaded chapter stays fresh on device.
const DefaultTTL = 7 * 24 * time.Hour

// Key identifies one locally cached chapter file.
type Key struct {
	ClassLevel int
	ChapterID  string
}

func (k Key) String() string {
	return fmt.Sprintf("class_%d_%s", k.ClassLevel, k.ChapterID)
}

// Entry describes one cached chapter file. Entries are derived from the
// filesystem on every scan; there is no separate index to drift.
type Entry struct {
	Key       Key
	Path      string
	CachedAt  time.Time
	SizeBytes int64
}

// IsStale reports whether the entry has outlived the TTL. An entry exactly
// at the TTL is still fresh.
func (e Entry) IsStale(ttl time.Duration, now time.Time) bool {
	return now.Sub(e.CachedAt) > ttl
}

// Stats aggregates the current entry set. Always recomputed on demand.
type Stats struct {
	TotalFiles int         `json:"total_files"`
	TotalBytes int64       `json:"total_bytes"`
	PerClass   map[int]int `json:"per_class"`
	StaleCount int         `json:"stale_count"`
}

// Downloader fetches a chapter's source document from upstream storage.
type Downloader interface {
	FetchChapter(ctx context.Context, classLevel int, chapterID string) (io.ReadCloser, error)
}

// CacheIOError marks a local storage failure. Callers treat it as a miss
// and re-fetch rather than surfacing it.
type CacheIOError struct {
	Op  string
	Err error
}

func (e *CacheIOError) Error() string { return fmt.Sprintf("cache %s: %v", e.Op, e.Err) }
func (e *CacheIOError) Unwrap() error { return e.Err }

// Invalidator drops derived cloud-tier entries for a chapter. Wired in only
// when local clears are configured to also invalidate the cloud text cache.
type Invalidator interface {
	InvalidateChapter(ctx context.Context, classLevel int, chapterID string) error
}

// Manager owns the on-device chapter file cache: staleness, eviction, stats
// and offline batch preload.
type Manager struct {
	dir            string
	ttl            time.Duration
	preloadWorkers int
	downloadWait   time.Duration
	downloader     Downloader
	invalidator    Invalidator
	logger         *log.Logger

	group singleflight.Group
	now   func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithTTL overrides the staleness TTL.
func WithTTL(ttl time.Duration) Option {
	return func(m *Manager) { m.ttl = ttl }
}

// WithPreloadWorkers bounds preload parallelism.
func WithPreloadWorkers(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.preloadWorkers = n
		}
	}
}

// WithDownloadTimeout bounds each chapter download.
func WithDownloadTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.downloadWait = d
		}
	}
}

// WithInvalidator links local eviction to cloud text invalidation.
func WithInvalidator(inv Invalidator) Option {
	return func(m *Manager) { m.invalidator = inv }
}

// withClock is used by tests to control staleness evaluation.
func withClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates the cache manager rooted at dir.
func NewManager(dir string, downloader Downloader, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &CacheIOError{Op: "mkdir", Err: err}
	}
	m := &Manager{
		dir:            dir,
		ttl:            DefaultTTL,
		preloadWorkers: 4,
		downloadWait:   2 * time.Minute,
		downloader:     downloader,
		logger:         log.New(log.Writer(), "[CACHE] ", log.LstdFlags),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

var chapterFileRe = regexp.MustCompile(`^class_(\d+)_(.+)\.pdf$`)

func (m *Manager) pathFor(key Key) string {
	return filepath.Join(m.dir, fmt.Sprintf("class_%d_%s.pdf", key.ClassLevel, key.ChapterID))
}

// GetCachedChapters scans local storage and derives the entry set from the
// persisted files. The filesystem is authoritative.
func (m *Manager) GetCachedChapters() (map[Key]Entry, error) {
	dirents, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, &CacheIOError{Op: "scan", Err: err}
	}
	entries := make(map[Key]Entry)
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		sub := chapterFileRe.FindStringSubmatch(de.Name())
		if sub == nil {
			continue
		}
		classLevel, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		key := Key{ClassLevel: classLevel, ChapterID: sub[2]}
		entries[key] = Entry{
			Key:       key,
			Path:      filepath.Join(m.dir, de.Name()),
			CachedAt:  info.ModTime(),
			SizeBytes: info.Size(),
		}
	}
	return entries, nil
}

// GetCacheStats aggregates over the current entry set.
func (m *Manager) GetCacheStats() (Stats, error) {
	entries, err := m.GetCachedChapters()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{PerClass: make(map[int]int)}
	now := m.now()
	for _, e := range entries {
		stats.TotalFiles++
		stats.TotalBytes += e.SizeBytes
		stats.PerClass[e.Key.ClassLevel]++
		if e.IsStale(m.ttl, now) {
			stats.StaleCount++
		}
	}
	return stats, nil
}

// ClearStale removes every entry older than the TTL. Entries at or under
// the TTL are untouched.
func (m *Manager) ClearStale(ctx context.Context) (int, error) {
	entries, err := m.GetCachedChapters()
	if err != nil {
		return 0, err
	}
	now := m.now()
	removed := 0
	for _, e := range entries {
		if !e.IsStale(m.ttl, now) {
			continue
		}
		if err := m.remove(ctx, e); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

// ClearAll removes every cached chapter file.
func (m *Manager) ClearAll(ctx context.Context) (int, error) {
	return m.clearWhere(ctx, func(Entry) bool { return true })
}

// ClearForClass removes every cached chapter of one class level.
func (m *Manager) ClearForClass(ctx context.Context, classLevel int) (int, error) {
	return m.clearWhere(ctx, func(e Entry) bool { return e.Key.ClassLevel == classLevel })
}

func (m *Manager) clearWhere(ctx context.Context, match func(Entry) bool) (int, error) {
	entries, err := m.GetCachedChapters()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !match(e) {
			continue
		}
		if err := m.remove(ctx, e); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func (m *Manager) remove(ctx context.Context, e Entry) error {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		return &CacheIOError{Op: "remove", Err: err}
	}
	if m.invalidator != nil {
		if err := m.invalidator.InvalidateChapter(ctx, e.Key.ClassLevel, e.Key.ChapterID); err != nil {
			m.logger.Printf("cloud invalidation failed for %s: %v", e.Key, err)
		}
	}
	return nil
}

// GetChapter returns the local path of a chapter's source file, downloading
// it if absent. Concurrent requests for the same key share one in-flight
// download. A download started for an abandoned caller still completes and
// populates the cache, so the fetch runs detached from the caller's ctx.
func (m *Manager) GetChapter(ctx context.Context, classLevel int, chapterID string) (string, error) {
	key := Key{ClassLevel: classLevel, ChapterID: chapterID}
	path := m.pathFor(key)
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	ch := m.group.DoChan(key.String(), func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.downloadWait)
		defer cancel()
		if err := m.download(fetchCtx, key, path); err != nil {
			return nil, err
		}
		return path, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		// The shared download keeps running for future callers.
		return "", ctx.Err()
	}
}

func (m *Manager) download(ctx context.Context, key Key, path string) error {
	body, err := m.downloader.FetchChapter(ctx, key.ClassLevel, key.ChapterID)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", key, err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp(m.dir, "download-*")
	if err != nil {
		return &CacheIOError{Op: "create", Err: err}
	}
	defer os.Remove(tmp.Name())
	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return &CacheIOError{Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &CacheIOError{Op: "close", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &CacheIOError{Op: "rename", Err: err}
	}
	m.logger.Printf("cached %s", key)
	return nil
}

// PreloadChapters downloads the given chapters with bounded parallelism and
// reports a per-chapter outcome. One failed chapter never aborts the rest,
// and the call itself never fails: callers retry just the false entries.
func (m *Manager) PreloadChapters(ctx context.Context, classLevel int, chapterIDs []string) map[string]bool {
	results := make(map[string]bool, len(chapterIDs))
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, m.preloadWorkers)

	for _, chapterID := range chapterIDs {
		wg.Add(1)
		go func(chapterID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			_, err := m.GetChapter(ctx, classLevel, chapterID)
			if err != nil {
				m.logger.Printf("preload class %d %s failed: %v", classLevel, chapterID, err)
			}
			mu.Lock()
			results[chapterID] = err == nil
			mu.Unlock()
		}(chapterID)
	}
	wg.Wait()
	return results
}
