package files

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/mystuffai/mystuff/internal/client"
	"github.com/mystuffai/mystuff/internal/log"
)

type fakeAPI struct {
	filesFn  func(ctx context.Context) (*client.FileListResponse, error)
	fileFn   func(ctx context.Context, id string) (*client.FileRecord, error)
	deleteFn func(ctx context.Context, id string) (*client.FileDeleteResponse, error)
	uploadFn func(ctx context.Context, filename string, r io.Reader) (*client.FileRecord, error)

	listCalls int
}

func (f *fakeAPI) Files(ctx context.Context) (*client.FileListResponse, error) {
	f.listCalls++
	return f.filesFn(ctx)
}

func (f *fakeAPI) File(ctx context.Context, id string) (*client.FileRecord, error) {
	return f.fileFn(ctx, id)
}

func (f *fakeAPI) DeleteFile(ctx context.Context, id string) (*client.FileDeleteResponse, error) {
	return f.deleteFn(ctx, id)
}

func (f *fakeAPI) UploadFile(ctx context.Context, filename string, r io.Reader) (*client.FileRecord, error) {
	return f.uploadFn(ctx, filename, r)
}

func listing(ids ...string) *client.FileListResponse {
	resp := &client.FileListResponse{Total: len(ids)}
	for _, id := range ids {
		resp.Files = append(resp.Files, client.FileRecord{ID: id, OriginalName: id + ".pdf"})
	}
	return resp
}

func TestFetchServesFromCache(t *testing.T) {
	api := &fakeAPI{
		filesFn: func(ctx context.Context) (*client.FileListResponse, error) {
			return listing("f1", "f2"), nil
		},
	}
	s := NewStore(api, log.NewNop())

	first, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	second, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("second Fetch() error = %v", err)
	}

	if api.listCalls != 1 {
		t.Errorf("backend list calls = %d, want 1 (second fetch cached)", api.listCalls)
	}
	if len(first) != 2 || len(second) != 2 {
		t.Errorf("listing lengths = %d, %d; want 2, 2", len(first), len(second))
	}
}

// TestFetchEmptyListingNotCached verifies an empty listing is refetched
// every time: a first upload from another session must appear as soon as
// the user lists again, not after the TTL expires.
func TestFetchEmptyListingNotCached(t *testing.T) {
	api := &fakeAPI{
		filesFn: func(ctx context.Context) (*client.FileListResponse, error) {
			return listing(), nil
		},
	}
	s := NewStore(api, log.NewNop())

	for range 2 {
		records, err := s.Fetch(context.Background(), false)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if len(records) != 0 {
			t.Errorf("listing length = %d, want 0", len(records))
		}
	}
	if api.listCalls != 2 {
		t.Errorf("backend list calls = %d, want 2 (empty listing must not cache)", api.listCalls)
	}

	// Once the listing is non-empty it caches as usual
	api.filesFn = func(ctx context.Context) (*client.FileListResponse, error) {
		return listing("f1"), nil
	}
	for range 2 {
		if _, err := s.Fetch(context.Background(), false); err != nil {
			t.Fatal(err)
		}
	}
	if api.listCalls != 3 {
		t.Errorf("backend list calls = %d, want 3 (non-empty listing caches)", api.listCalls)
	}
}

func TestFetchForceBypassesCache(t *testing.T) {
	api := &fakeAPI{
		filesFn: func(ctx context.Context) (*client.FileListResponse, error) {
			return listing("f1"), nil
		},
	}
	s := NewStore(api, log.NewNop())

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Fetch(context.Background(), true); err != nil {
		t.Fatal(err)
	}

	if api.listCalls != 2 {
		t.Errorf("backend list calls = %d, want 2 with force", api.listCalls)
	}
}

func TestFetchErrorNotCached(t *testing.T) {
	fail := true
	api := &fakeAPI{
		filesFn: func(ctx context.Context) (*client.FileListResponse, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return listing("f1"), nil
		},
	}
	s := NewStore(api, log.NewNop())

	if _, err := s.Fetch(context.Background(), false); err == nil {
		t.Fatal("Fetch() expected error")
	}

	fail = false
	records, err := s.Fetch(context.Background(), false)
	if err != nil {
		t.Fatalf("Fetch() after recovery error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("listing length = %d, want 1", len(records))
	}
	if api.listCalls != 2 {
		t.Errorf("backend list calls = %d, want 2 (failure must not cache)", api.listCalls)
	}
}

func TestUploadInvalidatesCache(t *testing.T) {
	api := &fakeAPI{
		filesFn: func(ctx context.Context) (*client.FileListResponse, error) {
			return listing("f1"), nil
		},
		uploadFn: func(ctx context.Context, filename string, r io.Reader) (*client.FileRecord, error) {
			return &client.FileRecord{ID: "f2", OriginalName: filename}, nil
		},
	}
	s := NewStore(api, log.NewNop())

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	rec, err := s.Upload(context.Background(), "new.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if rec.ID != "f2" {
		t.Errorf("uploaded record id = %q, want f2", rec.ID)
	}

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if api.listCalls != 2 {
		t.Errorf("backend list calls = %d, want 2 (upload invalidates)", api.listCalls)
	}
}

func TestDeleteInvalidatesOnSuccessOnly(t *testing.T) {
	api := &fakeAPI{
		filesFn: func(ctx context.Context) (*client.FileListResponse, error) {
			return listing("f1", "f2"), nil
		},
	}
	s := NewStore(api, log.NewNop())

	t.Run("failure keeps cache", func(t *testing.T) {
		api.deleteFn = func(ctx context.Context, id string) (*client.FileDeleteResponse, error) {
			return nil, &client.APIError{StatusCode: 404, Detail: "File not found"}
		}
		if _, err := s.Fetch(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		if err := s.Delete(context.Background(), "f9"); err == nil {
			t.Fatal("Delete() expected error")
		}
		if _, err := s.Fetch(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		if api.listCalls != 1 {
			t.Errorf("backend list calls = %d, want 1 (failed delete keeps cache)", api.listCalls)
		}
	})

	t.Run("success invalidates", func(t *testing.T) {
		api.deleteFn = func(ctx context.Context, id string) (*client.FileDeleteResponse, error) {
			return &client.FileDeleteResponse{FileID: id, Filename: id + ".pdf"}, nil
		}
		if err := s.Delete(context.Background(), "f1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := s.Fetch(context.Background(), false); err != nil {
			t.Fatal(err)
		}
		if api.listCalls != 2 {
			t.Errorf("backend list calls = %d, want 2 (delete invalidates)", api.listCalls)
		}
	})
}

func TestGetAlwaysHitsBackend(t *testing.T) {
	calls := 0
	api := &fakeAPI{
		fileFn: func(ctx context.Context, id string) (*client.FileRecord, error) {
			calls++
			return &client.FileRecord{ID: id, DownloadURL: "https://signed.example/f1"}, nil
		},
	}
	s := NewStore(api, log.NewNop())

	for range 2 {
		rec, err := s.Get(context.Background(), "f1")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if rec.DownloadURL == "" {
			t.Error("expected a download URL")
		}
	}
	if calls != 2 {
		t.Errorf("backend calls = %d, want one per Get (signed URLs expire)", calls)
	}
}

func TestReset(t *testing.T) {
	api := &fakeAPI{
		filesFn: func(ctx context.Context) (*client.FileListResponse, error) {
			return listing("f1"), nil
		},
	}
	s := NewStore(api, log.NewNop())

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	s.Reset()

	if _, err := s.Fetch(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if api.listCalls != 2 {
		t.Errorf("backend list calls = %d, want 2 after Reset", api.listCalls)
	}
}
