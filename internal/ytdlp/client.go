// Package ytdlp wraps the yt-dlp binary for stream resolution and downloads.
package ytdlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/config"
)

// ErrNoBinary is returned when no yt-dlp binary is configured.
var ErrNoBinary = errors.New("yt-dlp binary required")

// Stream is one direct media URL tagged with a quality label.
type Stream struct {
	Quality string `json:"quality"`
	URL     string `json:"url"`
}

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client runs yt-dlp.
type Client struct {
	binary  string
	timeout time.Duration
	buckets []config.QualityBucket
	exec    Executor
	logger  zerolog.Logger
}

// New constructs a yt-dlp client from extractor settings.
func New(cfg config.ExtractorConfig, logger zerolog.Logger, opts ...Option) (*Client, error) {
	binary := strings.TrimSpace(cfg.YtdlpBinary)
	if binary == "" {
		return nil, ErrNoBinary
	}
	c := &Client{
		binary:  binary,
		timeout: cfg.YtdlpTimeout,
		buckets: append([]config.QualityBucket(nil), cfg.QualityBuckets...),
		exec:    commandExecutor{},
		logger:  logger.With().Str("component", "ytdlp").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

type info struct {
	Formats []format `json:"formats"`
}

type format struct {
	Height *int   `json:"height"`
	URL    string `json:"url"`
}

// Resolve turns a player page URL into quality-tagged direct stream URLs.
// Formats whose height falls outside every bucket are dropped.
func (c *Client) Resolve(ctx context.Context, url string) ([]Stream, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	out, err := c.exec.Run(ctx, c.binary, []string{
		"-J", "--no-warnings", "--no-playlist",
		"--socket-timeout", "8", "--retries", "1", "--fragment-retries", "0",
		url,
	})
	if err != nil {
		return nil, fmt.Errorf("yt-dlp resolve %s: %w", url, err)
	}

	var parsed info
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("decode yt-dlp output: %w", err)
	}

	streams := make([]Stream, 0, len(parsed.Formats))
	for _, f := range parsed.Formats {
		if f.Height == nil || f.URL == "" {
			continue
		}
		label, ok := c.quality(*f.Height)
		if !ok {
			continue
		}
		streams = append(streams, Stream{Quality: label, URL: f.URL})
	}
	c.logger.Debug().Str("url", url).Int("formats", len(parsed.Formats)).Int("streams", len(streams)).Msg("Resolved streams")
	return streams, nil
}

// Download saves url to outputPath, creating parent directories.
func (c *Client) Download(ctx context.Context, url, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	c.logger.Info().Str("file", outputPath).Msg("Starting download")
	if _, err := c.exec.Run(ctx, c.binary, []string{"-q", "-o", outputPath, url}); err != nil {
		return fmt.Errorf("yt-dlp download %s: %w", url, err)
	}
	c.logger.Info().Str("file", outputPath).Msg("Finished download")
	return nil
}

func (c *Client) quality(height int) (string, bool) {
	for _, b := range c.buckets {
		if height >= b.MinHeight && height <= b.MaxHeight {
			return b.Label, true
		}
	}
	return "", false
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
