package omdb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Response is the raw OMDb payload for one lookup, kept opaque except for
// the fields the pipeline reads ("Response", "Director", "Error").
type Response map[string]any

// Found reports whether OMDb resolved the lookup. OMDb signals success
// with the literal string "True" in the Response field.
func (r Response) Found() bool {
	v, _ := r["Response"].(string)
	return v == "True"
}

// Director returns the director field, or "" when it is absent, empty or
// OMDb's own "N/A" placeholder.
func (r Response) Director() string {
	v, _ := r["Director"].(string)
	v = strings.TrimSpace(v)
	if v == "N/A" {
		return ""
	}
	return v
}

// Key builds the cache key for a title/year pair:
// "<lowercased title>::<year>", with "unknown" standing in for a missing
// year. Keys are stable across runs; changing this format invalidates
// existing cache files.
func Key(title string, year *int) string {
	y := "unknown"
	if year != nil {
		y = strconv.Itoa(*year)
	}
	return strings.ToLower(title) + "::" + y
}

// Cache is a durable map from lookup key to raw OMDb response, backed by
// an indented JSON file so it stays human-inspectable. Every Put rewrites
// the file before returning; a crash mid-run loses at most the in-flight
// request. Not safe for concurrent writers.
type Cache struct {
	path    string
	entries map[string]Response
	logger  *zap.Logger
}

// OpenCache loads the cache file at path. A missing file starts an empty
// cache. A file that fails to parse also starts an empty cache - the
// contents are reconstructible from OMDb, so resetting beats making a
// stray partial write permanently fatal - and the reset is logged.
func OpenCache(path string, logger *zap.Logger) (*Cache, error) {
	c := &Cache{
		path:    path,
		entries: make(map[string]Response),
		logger:  logger.Named("omdb_cache"),
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &c.entries); err != nil {
		c.logger.Warn("Cache file is not valid JSON, resetting to empty",
			zap.String("path", path),
			zap.Error(err))
		c.entries = make(map[string]Response)
	}

	c.logger.Info("Loaded enrichment cache",
		zap.String("path", path),
		zap.Int("entries", len(c.entries)))
	return c, nil
}

// Get returns the cached response for key, if any.
func (c *Cache) Get(key string) (Response, bool) {
	resp, ok := c.entries[key]
	return resp, ok
}

// Put stores a response and flushes the whole cache to disk before
// returning. The file is written to a temp sibling and renamed so readers
// never observe a half-written cache.
func (c *Cache) Put(key string, resp Response) error {
	c.entries[key] = resp

	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), filepath.Base(c.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp cache file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// Len returns the number of cached lookups.
func (c *Cache) Len() int {
	return len(c.entries)
}
