// Package extractor turns embed-page player data into grouped playable links.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/config"
	"github.com/serialgrab/serialgrab/internal/ytdlp"
)

// playlistSource is the backend whose links point at an intermediate page
// carrying the real playlist URL.
const playlistSource = "spilberg"

const defaultMaxWorkers = 32

var playlistPattern = regexp.MustCompile(`https?://[^\s"'<>]+\.m3u8?`)

var (
	// ErrNoPlaylist is returned when an intermediate page carries no playlist URL.
	ErrNoPlaylist = errors.New("no playlist url on page")
	// ErrEpisodeOutOfRange is returned when the player's current episode is not in its list.
	ErrEpisodeOutOfRange = errors.New("current episode out of range")
)

// TranslatorLink is one quality-tagged direct URL.
type TranslatorLink = ytdlp.Stream

// Translator is a dub or subtitle variant with its resolved links.
type Translator struct {
	Name  string           `json:"name"`
	Links []TranslatorLink `json:"links"`
}

// SourceGroup collects the translators offered by one player backend.
type SourceGroup struct {
	Source      string       `json:"source_name"`
	Translators []Translator `json:"sources"`
}

// StreamResolver turns a player URL into direct stream URLs.
type StreamResolver interface {
	Resolve(ctx context.Context, url string) ([]TranslatorLink, error)
}

// PageFetcher returns the raw body of a page.
type PageFetcher interface {
	Page(ctx context.Context, url string) (string, error)
}

// Extractor fans out link resolution across the sources of an episode.
type Extractor struct {
	resolver   StreamResolver
	pages      PageFetcher
	denylist   []string
	maxWorkers int
	logger     zerolog.Logger
}

// New creates an extractor. The denylist is copied and lowercased.
func New(resolver StreamResolver, pages PageFetcher, cfg config.ExtractorConfig, logger zerolog.Logger) *Extractor {
	deny := make([]string, 0, len(cfg.ExcludedSources))
	for _, s := range cfg.ExcludedSources {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			deny = append(deny, s)
		}
	}
	workers := cfg.MaxWorkers
	if workers <= 0 {
		workers = defaultMaxWorkers
	}
	return &Extractor{
		resolver:   resolver,
		pages:      pages,
		denylist:   deny,
		maxWorkers: workers,
		logger:     logger.With().Str("component", "extractor").Logger(),
	}
}

// task is one (source, translator link) pair.
type task struct {
	source string
	name   string
	link   string
}

// outcome is written by exactly one worker.
type outcome struct {
	links []TranslatorLink
	err   error
}

// Extract resolves every non-excluded link of the current episode and groups
// the successes by source. Failed links are logged and left out.
func (e *Extractor) Extract(ctx context.Context, data *catalog.SerialData) ([]SourceGroup, error) {
	if data == nil || len(data.Episodes) == 0 {
		return []SourceGroup{}, nil
	}
	tasks, err := e.plan(data)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return []SourceGroup{}, nil
	}

	start := time.Now()
	results := make([]outcome, len(tasks))
	p := pool.New().WithMaxGoroutines(min(e.maxWorkers, 4*len(tasks)))
	for i, t := range tasks {
		p.Go(func() {
			links, err := e.extractLink(ctx, t)
			results[i] = outcome{links: links, err: err}
		})
	}
	p.Wait()

	groups := group(tasks, results, e.logger)
	e.logger.Info().
		Int("links", len(tasks)).
		Int("sources", len(groups)).
		Dur("elapsed", time.Since(start)).
		Msg("Extracted links")
	return groups, nil
}

// plan lists the tasks for data, dropping denylisted sources.
func (e *Extractor) plan(data *catalog.SerialData) ([]task, error) {
	var tasks []task
	if data.IsMovie() {
		for _, ep := range data.Episodes {
			if e.denied(ep.Title, true) {
				continue
			}
			source := strings.TrimSpace(strings.ReplaceAll(ep.Title, "Серія ", ""))
			for _, v := range ep.Versions {
				tasks = append(tasks, task{source: source, name: v.Name, link: v.Link})
			}
		}
		return tasks, nil
	}

	sources, ok := data.EpisodeSources(data.Episode)
	if !ok {
		return nil, fmt.Errorf("episode %d of %d: %w", data.Episode, len(data.Episodes), ErrEpisodeOutOfRange)
	}
	ep := data.Episodes[data.Episode-1]
	for _, id := range ep.SourceIDs() {
		if e.denied(id, false) {
			continue
		}
		for _, l := range sources[id] {
			tasks = append(tasks, task{source: id, name: l.Name, link: l.Link})
		}
	}
	return tasks, nil
}

// denied matches source ids exactly and movie titles by substring.
func (e *Extractor) denied(name string, substring bool) bool {
	name = strings.ToLower(name)
	for _, d := range e.denylist {
		if name == d || (substring && strings.Contains(name, d)) {
			return true
		}
	}
	return false
}

func (e *Extractor) extractLink(ctx context.Context, t task) ([]TranslatorLink, error) {
	link := t.link
	if t.source == playlistSource {
		body, err := e.pages.Page(ctx, link)
		if err != nil {
			return nil, err
		}
		m := playlistPattern.FindString(body)
		if m == "" {
			return nil, ErrNoPlaylist
		}
		link = m
	}
	return e.resolver.Resolve(ctx, link)
}

// group folds outcomes into source groups in discovery order.
func group(tasks []task, results []outcome, logger zerolog.Logger) []SourceGroup {
	index := make(map[string]int)
	groups := []SourceGroup{}
	for i, t := range tasks {
		r := results[i]
		if r.err != nil {
			logger.Warn().Err(r.err).Str("source", t.source).Str("link", t.link).Msg("Link extraction failed")
			continue
		}
		gi, ok := index[t.source]
		if !ok {
			gi = len(groups)
			index[t.source] = gi
			groups = append(groups, SourceGroup{Source: t.source})
		}
		links := r.links
		if links == nil {
			links = []TranslatorLink{}
		}
		groups[gi].Translators = append(groups[gi].Translators, Translator{Name: t.name, Links: links})
	}
	return groups
}
