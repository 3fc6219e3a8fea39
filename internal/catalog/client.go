package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// Client reads the catalog site.
type Client struct {
	fetcher Fetcher
	host    string
	decoder Decoder
	logger  zerolog.Logger
}

// NewClient creates a catalog client. A nil decoder selects DefaultDecoder.
func NewClient(fetcher Fetcher, host string, decoder Decoder, logger zerolog.Logger) *Client {
	if decoder == nil {
		decoder = DefaultDecoder()
	}
	return &Client{
		fetcher: fetcher,
		host:    host,
		decoder: decoder,
		logger:  logger.With().Str("component", "catalog").Logger(),
	}
}

// URL makes a site-relative path absolute.
func (c *Client) URL(path string) string { return joinHost(c.host, path) }

// FirstResult runs the legacy search and returns the first result row, if any.
func (c *Client) FirstResult(ctx context.Context, title string, season int, kind MediaKind) (*SearchItem, error) {
	doc, err := c.fetcher.Fetch(ctx, LegacySearchURL(c.host, title, season, kind))
	if err != nil {
		return nil, err
	}
	items := ParseSearchResults(doc)
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

// SearchAll returns every result row for title. An empty title yields no rows.
func (c *Client) SearchAll(ctx context.Context, title string, kind MediaKind) ([]SearchItem, error) {
	if title == "" {
		return nil, nil
	}
	u := SearchURL(c.host, title, kind)
	doc, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	items := ParseSearchResults(doc)
	c.logger.Debug().Str("url", u).Int("results", len(items)).Msg("Catalog search")
	return items, nil
}

// Listing runs a browse search and returns display rows.
func (c *Client) Listing(ctx context.Context, name string) ([]Listing, error) {
	u := LegacySearchURL(c.host, name, 0, "")
	doc, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	items := ParseSearchListing(doc, c.host)
	c.logger.Info().Str("url", u).Int("results", len(items)).Msg("Catalog listing")
	return items, nil
}

// Record fetches and parses a detail page.
func (c *Client) Record(ctx context.Context, pageURL string) (*Record, error) {
	u := c.URL(pageURL)
	doc, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	rec, err := ParseRecord(doc, c.decoder)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.URL = u
		}
		return nil, err
	}
	if rec.URL == "" {
		rec.URL = u
	}
	return rec, nil
}

// EpisodeEmbeds fetches a season page and returns its episode embeds.
func (c *Client) EpisodeEmbeds(ctx context.Context, seasonURL string) (EpisodeEmbeds, error) {
	doc, err := c.fetcher.Fetch(ctx, c.URL(seasonURL))
	if err != nil {
		return nil, err
	}
	return ParseEpisodeSelector(doc, c.host), nil
}

// MovieEmbed fetches a movie page and returns its player URL.
func (c *Client) MovieEmbed(ctx context.Context, pageURL string) (string, bool, error) {
	doc, err := c.fetcher.Fetch(ctx, c.URL(pageURL))
	if err != nil {
		return "", false, err
	}
	u, ok := ParseMovieEmbed(doc, c.host)
	return u, ok, nil
}

// SerialData fetches an embed page and decodes its player configuration.
func (c *Client) SerialData(ctx context.Context, embedURL string) (*SerialData, error) {
	u := c.URL(embedURL)
	doc, err := c.fetcher.Fetch(ctx, u)
	if err != nil {
		return nil, err
	}
	data, err := ParseSerialData(doc, c.decoder)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.URL = u
		}
		return nil, err
	}
	return data, nil
}

// Page fetches an arbitrary page body as text.
func (c *Client) Page(ctx context.Context, pageURL string) (string, error) {
	doc, err := c.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return "", err
	}
	html, err := doc.Html()
	if err != nil {
		return "", &ParseError{URL: pageURL, Stage: "html", Err: err}
	}
	return html, nil
}
