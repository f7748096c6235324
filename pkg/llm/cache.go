package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/biodb-tools/biodb-engine/pkg/config"
)

// ResponseCache is a file-backed cache of assistant responses, keyed by the
// schema fingerprint and prompt so a cached answer is only reused while the
// database structure is unchanged. Entries past the age bound are ignored on
// read; the cache directory is trimmed oldest-first when it outgrows the
// size bound.
type ResponseCache struct {
	dir    string
	maxAge time.Duration
	maxLen int64
	logger *zap.Logger
}

type cacheEntry struct {
	Key       string    `json:"key"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	Response  string    `json:"response"`
}

// NewResponseCache creates the cache, making the directory if needed.
func NewResponseCache(cfg config.CacheConfig, logger *zap.Logger) (*ResponseCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &ResponseCache{
		dir:    cfg.Dir,
		maxAge: time.Duration(cfg.MaxAgeSecs) * time.Second,
		maxLen: int64(cfg.MaxSizeMB) << 20,
		logger: logger.Named("response-cache"),
	}, nil
}

// Key derives the cache key for a prompt against a schema snapshot.
func (c *ResponseCache) Key(schemaFingerprint, model, prompt string) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n%s\n%s", schemaFingerprint, model, prompt)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached response for key, or "" and false. A stale or
// unreadable entry counts as a miss; unreadable files are removed.
func (c *ResponseCache) Get(key string) (string, bool) {
	path := c.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("dropping corrupt cache entry", zap.String("path", path))
		os.Remove(path)
		return "", false
	}
	if c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge {
		return "", false
	}
	return entry.Response, true
}

// Put stores a response under key and trims the cache to its size bound.
func (c *ResponseCache) Put(key, model, response string) error {
	entry := cacheEntry{
		Key:       key,
		Model:     model,
		CreatedAt: time.Now().UTC(),
		Response:  response,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}
	if err := os.WriteFile(c.entryPath(key), data, 0o644); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	c.trim()
	return nil
}

func (c *ResponseCache) entryPath(key string) string {
	return filepath.Join(c.dir, key+".json")
}

// trim deletes the oldest entries until the directory fits the size bound.
func (c *ResponseCache) trim() {
	if c.maxLen <= 0 {
		return
	}
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return
	}
	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var total int64
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{filepath.Join(c.dir, e.Name()), info.Size(), info.ModTime()})
		total += info.Size()
	}
	if total <= c.maxLen {
		return
	}
	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	for _, f := range files {
		if total <= c.maxLen {
			break
		}
		if err := os.Remove(f.path); err == nil {
			total -= f.size
			c.logger.Debug("evicted cache entry", zap.String("path", f.path))
		}
	}
}
