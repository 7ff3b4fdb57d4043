package cmd

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mystuffai/mystuff/internal/config"
	"github.com/mystuffai/mystuff/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		BaseURL:        "http://localhost:8000",
		TimeoutSeconds: config.DefaultTimeoutSeconds,
		RateLimit:      config.DefaultRateLimit,
		HistoryWindow:  config.DefaultHistoryWindow,
		DataDir:        t.TempDir(),
	}
}

func TestNewRootCmd_CommandTree(t *testing.T) {
	root := NewRootCmd(testConfig(t), log.NewNop())

	want := []string{"chat", "login", "register", "logout", "whoami", "conversations", "files", "ping", "version"}
	for _, name := range want {
		found := false
		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command missing subcommand %q", name)
		}
	}
}

func TestConversationsCmd_Subcommands(t *testing.T) {
	cmd := NewConversationsCmd(testConfig(t), log.NewNop())

	for _, name := range []string{"list", "rename", "delete"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("conversations missing subcommand %q", name)
		}
	}
}

func TestFilesCmd_Subcommands(t *testing.T) {
	cmd := NewFilesCmd(testConfig(t), log.NewNop())

	for _, name := range []string{"list", "get", "upload", "delete"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("files missing subcommand %q", name)
		}
	}
}

func TestPingCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"status":"healthy","version":"1.2.0"}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.BaseURL = srv.URL

	cmd := NewPingCmd(cfg, log.NewNop())
	if err := cmd.Execute(); err != nil {
		t.Errorf("ping error = %v", err)
	}

	srv.Close()
	if err := cmd.Execute(); err == nil {
		t.Error("ping against a closed backend expected error")
	}
}

func TestRunVersion(t *testing.T) {
	if err := runVersion(testConfig(t)); err != nil {
		t.Errorf("runVersion() error = %v", err)
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
	}
	for _, tt := range tests {
		if got := formatSize(tt.in); got != tt.want {
			t.Errorf("formatSize(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
