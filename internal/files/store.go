// Package files keeps the user's uploaded documents with a short-lived
// cache over the backend listing. List views hit the cache; uploads and
// deletions invalidate it so the next read reflects the change.
package files

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mystuffai/mystuff/internal/client"
	"github.com/mystuffai/mystuff/internal/log"
)

// CacheTTL is how long a fetched listing stays fresh. Within this window
// repeated fetches are served locally without a backend call.
const CacheTTL = 30 * time.Second

const listKey = "files"

// API is the slice of the backend client the store needs.
type API interface {
	Files(ctx context.Context) (*client.FileListResponse, error)
	File(ctx context.Context, id string) (*client.FileRecord, error)
	DeleteFile(ctx context.Context, id string) (*client.FileDeleteResponse, error)
	UploadFile(ctx context.Context, filename string, r io.Reader) (*client.FileRecord, error)
}

// Store caches the document listing. It is safe for concurrent use;
// the underlying cache handles its own locking.
type Store struct {
	api    API
	cache  *cache.Cache
	logger log.Logger
}

// NewStore builds a file store over api.
func NewStore(api API, logger log.Logger) *Store {
	// Expired entries are few (a single listing), so purge lazily
	c := cache.New(CacheTTL, 5*time.Minute)
	return &Store{api: api, cache: c, logger: logger}
}

// Fetch returns the document listing. A non-empty cached listing younger
// than CacheTTL is served without a backend call unless force is set;
// empty listings always go to the backend.
func (s *Store) Fetch(ctx context.Context, force bool) ([]client.FileRecord, error) {
	if !force {
		if cached, ok := s.cache.Get(listKey); ok {
			records := cached.([]client.FileRecord)
			return cloneRecords(records), nil
		}
	}

	resp, err := s.api.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("files: listing documents: %w", err)
	}

	// An empty listing is never cached: the first upload may land from
	// another session within the TTL and must show up on the next fetch.
	if len(resp.Files) > 0 {
		s.cache.Set(listKey, resp.Files, cache.DefaultExpiration)
	} else {
		s.cache.Delete(listKey)
	}
	s.logger.Debug("file listing refreshed", "count", len(resp.Files))
	return cloneRecords(resp.Files), nil
}

// Get returns a single file record with a fresh download link. Always a
// backend call: download URLs are pre-signed and expire server-side.
func (s *Store) Get(ctx context.Context, id string) (*client.FileRecord, error) {
	rec, err := s.api.File(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("files: fetching document %s: %w", id, err)
	}
	return rec, nil
}

// Upload sends a document to the backend and invalidates the cached
// listing so the new file appears on the next fetch.
func (s *Store) Upload(ctx context.Context, filename string, r io.Reader) (*client.FileRecord, error) {
	rec, err := s.api.UploadFile(ctx, filename, r)
	if err != nil {
		return nil, fmt.Errorf("files: uploading %s: %w", filename, err)
	}
	s.cache.Delete(listKey)
	s.logger.Info("document uploaded", "id", rec.ID, "name", rec.OriginalName)
	return rec, nil
}

// Delete removes a document. The cached listing is invalidated only on
// success; a failed delete leaves the listing intact so the entry stays
// visible.
func (s *Store) Delete(ctx context.Context, id string) error {
	resp, err := s.api.DeleteFile(ctx, id)
	if err != nil {
		return fmt.Errorf("files: deleting document %s: %w", id, err)
	}
	s.cache.Delete(listKey)
	s.logger.Info("document deleted", "id", resp.FileID, "name", resp.Filename)
	return nil
}

// Invalidate drops the cached listing, forcing the next Fetch to hit
// the backend.
func (s *Store) Invalidate() {
	s.cache.Delete(listKey)
}

// Reset clears all cached data. Part of the logout cascade.
func (s *Store) Reset() {
	s.cache.Flush()
}

func cloneRecords(records []client.FileRecord) []client.FileRecord {
	out := make([]client.FileRecord, len(records))
	copy(out, records)
	return out
}
