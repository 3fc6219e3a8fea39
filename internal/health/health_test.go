package health

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/serialgrab/serialgrab/internal/config"
)

func newTestService(t *testing.T, dir string, found bool) *Service {
	t.Helper()
	cfg := config.Default()
	cfg.Downloads.Dir = dir
	s := NewService(cfg, Integrations{TMDB: true})
	s.lookPath = func(string) (string, error) {
		if !found {
			return "", errors.New("executable file not found in $PATH")
		}
		return "/usr/bin/yt-dlp", nil
	}
	return s
}

func statuses(r Report) map[string]Status {
	out := make(map[string]Status, len(r.Checks))
	for _, c := range r.Checks {
		out[c.Name] = c.Status
	}
	return out
}

func TestCheck_Healthy(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "downloads")
	r := newTestService(t, dir, true).Check()

	if !r.Healthy {
		t.Fatalf("report unhealthy: %+v", r)
	}
	got := statuses(r)
	if got["downloads"] != StatusOK || got["yt-dlp"] != StatusOK || got["tmdb"] != StatusOK {
		t.Errorf("statuses = %v", got)
	}
	if got["sonarr"] != StatusWarning {
		t.Errorf("unconfigured sonarr = %q, want warning", got["sonarr"])
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("downloads dir not created: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("probe file left behind: %v", entries)
	}
}

func TestCheck_MissingBinary(t *testing.T) {
	r := newTestService(t, t.TempDir(), false).Check()
	if r.Healthy {
		t.Error("missing yt-dlp should be unhealthy")
	}
	if statuses(r)["yt-dlp"] != StatusError {
		t.Errorf("yt-dlp status = %q", statuses(r)["yt-dlp"])
	}
}

func TestCheckFolderAccessible_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	if err := NewFilesystemChecker().CheckFolderAccessible(file); err == nil {
		t.Error("a file is not a folder")
	}
}
