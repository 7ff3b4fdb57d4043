package state

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	st, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if st.LastConversationID != "" {
		t.Errorf("LastConversationID = %q, want empty", st.LastConversationID)
	}
	if st.SidebarWidth != DefaultSidebarWidth {
		t.Errorf("SidebarWidth = %d, want default %d", st.SidebarWidth, DefaultSidebarWidth)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	want := State{LastConversationID: "c1", SidebarWidth: 40}
	if err := s.Save(want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != want {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, stateFileName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	st, err := s.Load()
	if err == nil {
		t.Fatal("Load() expected error for malformed file")
	}
	if st.SidebarWidth != DefaultSidebarWidth {
		t.Errorf("malformed load should still return defaults, got %+v", st)
	}
}

func TestClearIsIdempotent(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(State{LastConversationID: "c1"}); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if err := s.Clear(); err != nil {
		t.Errorf("second Clear() error = %v, want nil", err)
	}

	st, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.LastConversationID != "" {
		t.Error("cleared state should load as defaults")
	}
}
