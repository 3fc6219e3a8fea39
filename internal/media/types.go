package media

import (
	"github.com/serialgrab/serialgrab/internal/reconcile"
)

// SearchItem is one row of a catalog browse search.
type SearchItem struct {
	Title  string `json:"title"`
	Path   string `json:"path"`
	Img    string `json:"img"`
	Year   int    `json:"year"`
	Rating string `json:"rating"`
}

// EpisodeLink is the direct URL chosen for one catalog episode.
type EpisodeLink struct {
	Number int
	URL    string
}

// Kind distinguishes movie and series descriptors.
type Kind string

const (
	KindMovie  Kind = "movie"
	KindSeries Kind = "series"
)

// Media describes a catalog title enriched with provider metadata.
// Movies carry EmbedURL; series carry reconciled Seasons.
type Media struct {
	Kind        Kind               `json:"kind"`
	TMDBID      int                `json:"tmdbId,omitempty"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Cast        []string           `json:"cast"`
	Year        string             `json:"year,omitempty"`
	Rating      float64            `json:"rating"`
	PosterURL   string             `json:"posterPath,omitempty"`
	BackdropURL string             `json:"backdropPath,omitempty"`
	EmbedURL    string             `json:"embedUrl,omitempty"`
	Strategy    reconcile.Strategy `json:"strategy,omitempty"`
	Seasons     []reconcile.Season `json:"seasons,omitempty"`
	Warnings    []string           `json:"warnings,omitempty"`
}
