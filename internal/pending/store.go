// Package pending stores titles added in Sonarr or Radarr that are waiting to be grabbed.
package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Source is the *arr application that reported a title.
type Source string

const (
	SourceSonarr Source = "SONARR"
	SourceRadarr Source = "RADARR"
)

// ErrNoIdentifier is returned when a delete names no id at all.
var ErrNoIdentifier = errors.New("no identifier provided")

// Media is one pending title.
type Media struct {
	ID               int64     `json:"id"`
	InternalID       int       `json:"internalId"`
	Source           Source    `json:"sourceType"`
	Title            string    `json:"title"`
	LocalTitle       string    `json:"localTitle,omitempty"`
	TMDBID           int       `json:"tmdbId,omitempty"`
	IMDBID           string    `json:"imdbId,omitempty"`
	TVDBID           int       `json:"tvdbId,omitempty"`
	CreatedOn        time.Time `json:"createdOn"`
	MonitoredSeasons []int     `json:"monitoredSeasons"`
}

// Titles returns the non-empty search titles, localized first.
func (m Media) Titles() []string {
	var out []string
	for _, t := range []string{m.LocalTitle, m.Title} {
		if t = strings.TrimSpace(t); t != "" && (len(out) == 0 || out[0] != t) {
			out = append(out, t)
		}
	}
	return out
}

// Store persists pending media.
type Store struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// NewStore creates a store over a migrated database.
func NewStore(db *sql.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "pending").Logger(),
		now:    time.Now,
	}
}

// Add inserts m and its monitored seasons. It reports false when the title
// is already pending.
func (s *Store) Add(ctx context.Context, m Media) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		INSERT INTO media_data (internal_id, source_type, title, local_title, tmdb_id, imdb_id, tvdb_id, created_on)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING`,
		m.InternalID, string(m.Source), m.Title, m.LocalTitle,
		nullInt(m.TMDBID), nullString(m.IMDBID), nullInt(m.TVDBID), s.now().Unix())
	if err != nil {
		return false, fmt.Errorf("insert media: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		s.logger.Info().Str("title", m.Title).Msg("Already pending, skipping insert")
		return false, nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("media id: %w", err)
	}

	for _, season := range m.MonitoredSeasons {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO monitored_seasons (media_id, season_number) VALUES (?, ?)`, id, season); err != nil {
			return false, fmt.Errorf("insert season %d: %w", season, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info().
		Str("title", m.Title).
		Int("tmdb", m.TMDBID).
		Str("imdb", m.IMDBID).
		Int("tvdb", m.TVDBID).
		Ints("seasons", m.MonitoredSeasons).
		Msg("Added pending media")
	return true, nil
}

// DeleteByIDs removes the title of m's source matching the first set id
// among tmdb, imdb, tvdb and internal id.
func (s *Store) DeleteByIDs(ctx context.Context, m Media) (int64, error) {
	var (
		query string
		args  []any
	)
	switch {
	case m.TMDBID != 0:
		query, args = `DELETE FROM media_data WHERE tmdb_id = ? AND source_type = ?`, []any{m.TMDBID, string(m.Source)}
	case m.IMDBID != "":
		query, args = `DELETE FROM media_data WHERE imdb_id = ? AND source_type = ?`, []any{m.IMDBID, string(m.Source)}
	case m.TVDBID != 0:
		query, args = `DELETE FROM media_data WHERE tvdb_id = ? AND source_type = ?`, []any{m.TVDBID, string(m.Source)}
	case m.InternalID != 0:
		query, args = `DELETE FROM media_data WHERE internal_id = ? AND source_type = ?`, []any{m.InternalID, string(m.Source)}
	default:
		s.logger.Warn().Str("title", m.Title).Msg("No valid id provided for delete")
		return 0, ErrNoIdentifier
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Info().
		Str("title", m.Title).
		Int("tmdb", m.TMDBID).
		Str("imdb", m.IMDBID).
		Int("tvdb", m.TVDBID).
		Int64("deleted", n).
		Msg("Deleted pending media")
	return n, nil
}

// List returns every pending title, oldest first.
func (s *Store) List(ctx context.Context) ([]Media, error) {
	return s.list(ctx, `WHERE 1 = 1`)
}

// ListOlderThan returns titles added at least age ago, oldest first.
func (s *Store) ListOlderThan(ctx context.Context, age time.Duration) ([]Media, error) {
	return s.list(ctx, `WHERE created_on <= ?`, s.now().Add(-age).Unix())
}

func (s *Store) list(ctx context.Context, where string, args ...any) ([]Media, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, internal_id, source_type, title, local_title, tmdb_id, imdb_id, tvdb_id, created_on
		FROM media_data `+where+` ORDER BY created_on, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()

	items := []Media{}
	index := map[int64]int{}
	for rows.Next() {
		var (
			m          Media
			source     string
			tmdb, tvdb sql.NullInt64
			imdb       sql.NullString
			created    int64
		)
		if err := rows.Scan(&m.ID, &m.InternalID, &source, &m.Title, &m.LocalTitle, &tmdb, &imdb, &tvdb, &created); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		m.Source = Source(source)
		m.TMDBID = int(tmdb.Int64)
		m.IMDBID = imdb.String
		m.TVDBID = int(tvdb.Int64)
		m.CreatedOn = time.Unix(created, 0).UTC()
		m.MonitoredSeasons = []int{}
		index[m.ID] = len(items)
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return items, nil
	}

	seasons, err := s.db.QueryContext(ctx, `SELECT media_id, season_number FROM monitored_seasons ORDER BY media_id, season_number`)
	if err != nil {
		return nil, fmt.Errorf("list seasons: %w", err)
	}
	defer seasons.Close()
	for seasons.Next() {
		var id int64
		var n int
		if err := seasons.Scan(&id, &n); err != nil {
			return nil, fmt.Errorf("scan season: %w", err)
		}
		if i, ok := index[id]; ok {
			items[i].MonitoredSeasons = append(items[i].MonitoredSeasons, n)
		}
	}
	return items, seasons.Err()
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
