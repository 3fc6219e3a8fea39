package ytdlp_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/config"
	"github.com/serialgrab/serialgrab/internal/ytdlp"
)

type stubExecutor struct {
	out   string
	err   error
	calls int
	args  [][]string
}

func (s *stubExecutor) Run(_ context.Context, _ string, args []string) ([]byte, error) {
	s.calls++
	s.args = append(s.args, append([]string(nil), args...))
	return []byte(s.out), s.err
}

func newClient(t *testing.T, exec ytdlp.Executor) *ytdlp.Client {
	t.Helper()
	cfg := config.Default().Extractor
	cfg.YtdlpTimeout = time.Second
	c, err := ytdlp.New(cfg, zerolog.Nop(), ytdlp.WithExecutor(exec))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func TestNewRequiresBinary(t *testing.T) {
	cfg := config.Default().Extractor
	cfg.YtdlpBinary = "  "
	if _, err := ytdlp.New(cfg, zerolog.Nop()); !errors.Is(err, ytdlp.ErrNoBinary) {
		t.Fatalf("expected ErrNoBinary, got %v", err)
	}
}

func TestResolveBucketsFormats(t *testing.T) {
	exec := &stubExecutor{out: `{"formats":[
		{"height":360,"url":"https://cdn/360.m3u8"},
		{"height":null,"url":"https://cdn/audio"},
		{"height":720,"url":"https://cdn/720.m3u8"},
		{"height":1080,"url":""},
		{"height":1080,"url":"https://cdn/1080.m3u8"},
		{"height":2160,"url":"https://cdn/2160.m3u8"}
	]}`}
	c := newClient(t, exec)

	streams, err := c.Resolve(context.Background(), "https://player/e/1")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}

	want := []ytdlp.Stream{
		{Quality: "480p", URL: "https://cdn/360.m3u8"},
		{Quality: "720p", URL: "https://cdn/720.m3u8"},
		{Quality: "1080p", URL: "https://cdn/1080.m3u8"},
	}
	if len(streams) != len(want) {
		t.Fatalf("expected %d streams, got %d: %+v", len(want), len(streams), streams)
	}
	for i := range want {
		if streams[i] != want[i] {
			t.Errorf("stream %d = %+v, want %+v", i, streams[i], want[i])
		}
	}

	args := exec.args[0]
	if args[0] != "-J" || args[len(args)-1] != "https://player/e/1" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestResolveBoundaryHeights(t *testing.T) {
	exec := &stubExecutor{out: `{"formats":[{"height":480,"url":"a"},{"height":481,"url":"b"},{"height":721,"url":"c"}]}`}
	streams, err := newClient(t, exec).Resolve(context.Background(), "u")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	got := []string{streams[0].Quality, streams[1].Quality, streams[2].Quality}
	if strings.Join(got, ",") != "480p,720p,1080p" {
		t.Fatalf("unexpected qualities %v", got)
	}
}

func TestResolveExecutorError(t *testing.T) {
	c := newClient(t, &stubExecutor{err: errors.New("exit status 1")})
	if _, err := c.Resolve(context.Background(), "u"); err == nil {
		t.Fatal("expected error from executor")
	}
}

func TestResolveInvalidJSON(t *testing.T) {
	c := newClient(t, &stubExecutor{out: "ERROR: unsupported URL"})
	if _, err := c.Resolve(context.Background(), "u"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestDownloadCreatesDirectoryAndPassesOutput(t *testing.T) {
	exec := &stubExecutor{}
	c := newClient(t, exec)
	out := filepath.Join(t.TempDir(), "Show", "Show_S01_E01.mp4")

	if err := c.Download(context.Background(), "https://cdn/1.m3u8", out); err != nil {
		t.Fatalf("Download returned error: %v", err)
	}
	want := []string{"-q", "-o", out, "https://cdn/1.m3u8"}
	if strings.Join(exec.args[0], " ") != strings.Join(want, " ") {
		t.Fatalf("args = %v, want %v", exec.args[0], want)
	}
}
