// Package arr talks to the Sonarr and Radarr v3 APIs.
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/config"
)

// ErrNotConfigured is returned when an instance has no URL or API key.
var ErrNotConfigured = errors.New("arr instance not configured")

// ukrainian is the language attached to manual imports.
var ukrainian = Language{ID: 1, Name: "ukrainian"}

// Language is an *arr language reference.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// StatusError carries a non-2xx response.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.Status, e.Body)
}

type client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	logger  zerolog.Logger
}

func newClient(cfg config.ArrInstanceConfig, logger zerolog.Logger) client {
	return client{
		http:    &http.Client{Timeout: 60 * time.Second},
		baseURL: strings.TrimRight(cfg.URL, "/"),
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

func (c client) configured() bool {
	return c.baseURL != "" && c.apiKey != ""
}

// do sends body as JSON when non-nil and decodes the response into out when non-nil.
func (c client) do(ctx context.Context, method, path string, body, out any) error {
	if !c.configured() {
		return ErrNotConfigured
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/api/v3/"+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
