// Package assets caches the catalog's external sample images on local disk.
package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	fetchTimeout  = 10 * time.Second
	maxSampleSize = 2 * 1024 * 1024
)

var (
	ErrInvalidKey   = errors.New("invalid sample key")
	ErrSampleTooBig = errors.New("sample image is too large")
)

var keyPattern = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Sample is a cached image file
type Sample struct {
	Data        []byte
	ContentType string
}

// SampleCache downloads sample images once and serves them from dir afterwards
type SampleCache struct {
	dir    string
	client *http.Client
	group  singleflight.Group
}

// NewSampleCache creates a cache rooted at dir
func NewSampleCache(dir string) *SampleCache {
	return &SampleCache{
		dir:    dir,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Get returns the sample for key, fetching sourceURL when it is not cached yet
func (c *SampleCache) Get(ctx context.Context, key, sourceURL string) (*Sample, error) {
	if !keyPattern.MatchString(key) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	filename := key + extensionFor(sourceURL)
	fullPath := filepath.Join(c.dir, filename)

	if data, err := os.ReadFile(fullPath); err == nil {
		return &Sample{Data: data, ContentType: contentTypeFor(filename)}, nil
	}

	v, err, _ := c.group.Do(filename, func() (interface{}, error) {
		if err := c.fetch(ctx, sourceURL, fullPath); err != nil {
			return nil, err
		}
		return os.ReadFile(fullPath)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sample %s: %w", key, err)
	}

	return &Sample{Data: v.([]byte), ContentType: contentTypeFor(filename)}, nil
}

// Warm fetches every sample that is missing from the cache. Failures are logged and skipped.
func (c *SampleCache) Warm(ctx context.Context, samples map[string]string) int {
	fetched := 0
	for key, sourceURL := range samples {
		if _, err := c.Get(ctx, key, sourceURL); err != nil {
			log.Printf("Warning: could not cache sample %s: %v", key, err)
			continue
		}
		fetched++
	}
	return fetched
}

// CleanupOrphaned removes cached files whose key is not in keep
func (c *SampleCache) CleanupOrphaned(keep map[string]bool) error {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read sample directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasSuffix(entry.Name(), ".tmp") {
			continue
		}
		key := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		if keep[key] {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, entry.Name())); err != nil {
			return fmt.Errorf("failed to remove %s: %w", entry.Name(), err)
		}
		log.Printf("Removed orphaned sample %s", entry.Name())
	}
	return nil
}

func (c *SampleCache) fetch(ctx context.Context, sourceURL, outputPath string) error {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	// Wikimedia rejects requests without a descriptive user agent
	req.Header.Set("User-Agent", "gridquiz/1.0 (multiplication practice)")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSampleSize+1))
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > maxSampleSize {
		return ErrSampleTooBig
	}

	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create sample directory: %w", err)
	}

	tmp := outputPath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write sample file: %w", err)
	}
	return os.Rename(tmp, outputPath)
}

func extensionFor(sourceURL string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(sourceURL, "?", 2)[0]))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg":
		return ext
	}
	return ".img"
}

func contentTypeFor(filename string) string {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
