package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/config"
	"github.com/serialgrab/serialgrab/internal/extractor"
	"github.com/serialgrab/serialgrab/internal/matching"
	"github.com/serialgrab/serialgrab/internal/media"
	"github.com/serialgrab/serialgrab/internal/metadata"
	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
	"github.com/serialgrab/serialgrab/internal/reconcile"
	"github.com/serialgrab/serialgrab/internal/resolver"
	"github.com/serialgrab/serialgrab/internal/ytdlp"
)

// lookupStack is everything the produced lookup interface needs. It holds
// no database so one-shot commands can build it cheaply.
type lookupStack struct {
	catalog  *catalog.Client
	metadata *metadata.Service
	ytdlp    *ytdlp.Client
	media    *media.Service
}

func newLookupStack(cfg *config.Config, logger zerolog.Logger) (*lookupStack, error) {
	fetcher := catalog.NewHTTPFetcher(cfg.Catalog.Timeout, logger,
		catalog.WithUserAgent(cfg.Catalog.UserAgent),
		catalog.WithRateLimit(cfg.Catalog.RequestsPerSecond),
	)
	cat := catalog.NewClient(fetcher, cfg.Catalog.Host, catalog.DefaultDecoder(), logger)

	md := metadata.NewService(tmdb.NewClient(cfg.Metadata.TMDB, logger), cfg.Metadata.TMDB.CacheTTL, logger)
	if !md.IsConfigured() {
		logger.Warn().Msg("TMDB API key not configured, media details fall back to catalog data")
	}

	yt, err := ytdlp.New(cfg.Extractor, logger)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp: %w", err)
	}

	res := resolver.New(cat, matching.NewScorer(matching.WeightsFromConfig(cfg.Matching)), cfg.Matching.Threshold, logger)
	ex := extractor.New(yt, cat, cfg.Extractor, logger)
	svc := media.NewService(cat, res, md, reconcile.New(md, logger), ex, logger)

	return &lookupStack{catalog: cat, metadata: md, ytdlp: yt, media: svc}, nil
}
