package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/serialgrab/serialgrab/internal/metadata/tmdb"
)

// stubOverviewLimit is the rune length kept from the series overview in stubbed seasons.
const stubOverviewLimit = 200

// Reconciler builds a season map for a series.
type Reconciler struct {
	source SeasonSource
	logger zerolog.Logger
}

// New creates a reconciler.
func New(source SeasonSource, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		source: source,
		logger: logger.With().Str("component", "reconcile").Logger(),
	}
}

// Reconcile aligns catalog seasons with the provider.
//
// Branch precedence: a provider without seasons yields synthetic seasons; a
// single provider season against several catalog seasons is split; fewer
// provider seasons than catalog seasons are extended with stubs; otherwise
// each catalog season is looked up by number and stubbed when missing.
// Every produced season carries exactly the catalog's episode count.
func (r *Reconciler) Reconcile(ctx context.Context, series Series, seasons []CatalogSeason) (*Result, error) {
	ordered := orderSeasons(seasons)
	res := &Result{}
	if len(ordered) == 0 {
		res.Strategy = StrategyDirect
		return res, nil
	}

	// A series without a provider match has no provider seasons.
	count := 0
	if series.ID > 0 {
		var err error
		count, err = r.source.SeasonCount(ctx, series.ID)
		switch {
		case err == nil:
		case errors.Is(err, tmdb.ErrNotFound):
			count = 0
		default:
			return nil, fmt.Errorf("season count for series %d: %w", series.ID, err)
		}
	}
	res.ProviderSeasons = count

	f := &fetcher{ctx: ctx, source: r.source, seriesID: series.ID, cache: map[int]*tmdb.NormalizedSeasonResult{}, logger: r.logger}

	var (
		produced []Season
		buildErr error
	)
	switch {
	case count == 0:
		res.Strategy = StrategySynthetic
		produced = r.synthetic(series, ordered)

	case count == 1 && len(ordered) > 1:
		available, ferr := f.available(count)
		if ferr != nil {
			return nil, ferr
		}
		if len(available) == 0 {
			res.Strategy = StrategyDirect
			produced, buildErr = r.direct(f, series, ordered)
			break
		}
		res.Strategy = StrategySplit
		produced, res.Warnings = r.split(available[0], ordered)

	case count < len(ordered):
		available, ferr := f.available(count)
		if ferr != nil {
			return nil, ferr
		}
		if len(available) == 0 {
			res.Strategy = StrategyDirect
			produced, buildErr = r.direct(f, series, ordered)
			break
		}
		res.Strategy = StrategyExtend
		produced = r.extend(available, series, ordered)

	default:
		res.Strategy = StrategyDirect
		produced, buildErr = r.direct(f, series, ordered)
	}
	if buildErr != nil {
		return nil, buildErr
	}

	for i := range produced {
		produced[i] = fit(produced[i], ordered[i], produced[i].Origin == OriginSynthetic)
	}
	res.Seasons = produced

	r.logger.Debug().
		Int("series", series.ID).
		Str("strategy", string(res.Strategy)).
		Int("provider_seasons", count).
		Int("catalog_seasons", len(ordered)).
		Msg("Reconciled seasons")
	for _, w := range res.Warnings {
		r.logger.Warn().Int("series", series.ID).Msg(w)
	}
	return res, nil
}

// synthetic builds placeholder seasons for a series the provider lacks.
func (r *Reconciler) synthetic(series Series, ordered []CatalogSeason) []Season {
	out := make([]Season, 0, len(ordered))
	for _, cs := range ordered {
		out = append(out, Season{
			ID:        fmt.Sprintf("synthetic_%d_%d", series.ID, cs.Number),
			Number:    cs.Number,
			URL:       cs.URL,
			Name:      "Season " + strconv.Itoa(cs.Number),
			Overview:  series.Overview,
			PosterURL: series.PosterURL,
			AirDate:   series.FirstAirDate,
			Origin:    OriginSynthetic,
		})
	}
	return out
}

// split cuts one merged provider season into chunks sized by the catalog seasons.
func (r *Reconciler) split(merged *tmdb.NormalizedSeasonResult, ordered []CatalogSeason) ([]Season, []string) {
	var warnings []string
	expected := 0
	for _, cs := range ordered {
		expected += cs.EpisodeCount()
	}
	if len(merged.Episodes) != expected {
		warnings = append(warnings, fmt.Sprintf(
			"provider season %d has %d episodes, catalog seasons have %d; splitting on catalog boundaries",
			merged.SeasonNumber, len(merged.Episodes), expected))
	}

	out := make([]Season, 0, len(ordered))
	offset := 0
	for _, cs := range ordered {
		n := cs.EpisodeCount()
		lo := min(offset, len(merged.Episodes))
		hi := min(offset+n, len(merged.Episodes))
		season := fromProvider(merged, cs)
		season.Origin = OriginSplit
		season.Episodes = episodesFromProvider(merged.Episodes[lo:hi])
		out = append(out, season)
		offset += n
	}
	return out, warnings
}

// extend reuses provider seasons by number and stubs the rest.
func (r *Reconciler) extend(available []*tmdb.NormalizedSeasonResult, series Series, ordered []CatalogSeason) []Season {
	byNumber := make(map[int]*tmdb.NormalizedSeasonResult, len(available))
	for _, s := range available {
		byNumber[s.SeasonNumber] = s
	}

	out := make([]Season, 0, len(ordered))
	for _, cs := range ordered {
		if ps, ok := byNumber[cs.Number]; ok {
			season := fromProvider(ps, cs)
			season.Episodes = episodesFromProvider(ps.Episodes)
			out = append(out, season)
			continue
		}
		out = append(out, stubSeason(series, cs))
	}
	return out
}

// direct looks up each catalog season by number, stubbing missing ones.
func (r *Reconciler) direct(f *fetcher, series Series, ordered []CatalogSeason) ([]Season, error) {
	out := make([]Season, 0, len(ordered))
	for _, cs := range ordered {
		ps, err := f.season(cs.Number)
		if err != nil {
			return nil, err
		}
		if ps == nil {
			r.logger.Info().Int("series", series.ID).Int("season", cs.Number).Msg("Created stubbed season")
			out = append(out, stubSeason(series, cs))
			continue
		}
		season := fromProvider(ps, cs)
		season.Episodes = episodesFromProvider(ps.Episodes)
		out = append(out, season)
	}
	return out, nil
}

func fromProvider(ps *tmdb.NormalizedSeasonResult, cs CatalogSeason) Season {
	return Season{
		ID:          ps.ID,
		Number:      cs.Number,
		URL:         cs.URL,
		Name:        ps.Name,
		Overview:    ps.Overview,
		PosterURL:   ps.PosterURL,
		AirDate:     ps.AirDate,
		VoteAverage: ps.VoteAverage,
		Origin:      OriginProvider,
	}
}

func stubSeason(series Series, cs CatalogSeason) Season {
	return Season{
		ID:        fmt.Sprintf("stub_%d_%d", series.ID, cs.Number),
		Number:    cs.Number,
		URL:       cs.URL,
		Name:      "Season " + strconv.Itoa(cs.Number),
		Overview:  truncateOverview(series.Overview),
		PosterURL: series.PosterURL,
		AirDate:   series.FirstAirDate,
		Origin:    OriginStub,
	}
}

func truncateOverview(s string) string {
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) > stubOverviewLimit {
		s = string([]rune(s)[:stubOverviewLimit])
	}
	return s + "..."
}

func episodesFromProvider(eps []tmdb.NormalizedEpisodeResult) []Episode {
	out := make([]Episode, 0, len(eps))
	for _, ep := range eps {
		out = append(out, Episode{
			ID:          ep.ID,
			Number:      ep.EpisodeNumber,
			Name:        ep.Title,
			Overview:    ep.Overview,
			AirDate:     ep.AirDate,
			StillURL:    ep.StillURL,
			VoteAverage: ep.VoteAverage,
			VoteCount:   ep.VoteCount,
		})
	}
	return out
}

// fit trims or pads a season to the catalog's episode list. Episodes are
// renumbered to the catalog's episode numbers and given their embed URLs.
func fit(s Season, cs CatalogSeason, synthetic bool) Season {
	numbers := cs.Embeds.Numbers()

	prefix := "stub_ep"
	if synthetic {
		prefix = "synthetic_ep"
	}

	episodes := make([]Episode, len(numbers))
	for i, n := range numbers {
		var ep Episode
		if i < len(s.Episodes) {
			ep = s.Episodes[i]
		} else {
			ep = Episode{
				ID:   fmt.Sprintf("%s_%d_%d", prefix, cs.Number, i+1),
				Name: "Episode " + strconv.Itoa(i+1),
			}
		}
		ep.Number = n
		ep.EmbedURL = cs.Embeds[n]
		episodes[i] = ep
	}
	s.Episodes = episodes
	return s
}

// orderSeasons sorts by season number and drops duplicate numbers, keeping the first.
func orderSeasons(seasons []CatalogSeason) []CatalogSeason {
	seen := make(map[int]struct{}, len(seasons))
	out := make([]CatalogSeason, 0, len(seasons))
	for _, s := range seasons {
		if _, dup := seen[s.Number]; dup {
			continue
		}
		seen[s.Number] = struct{}{}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out
}

// fetcher memoizes provider season lookups for one reconciliation.
type fetcher struct {
	ctx      context.Context
	source   SeasonSource
	seriesID int
	cache    map[int]*tmdb.NormalizedSeasonResult
	logger   zerolog.Logger
}

// season returns nil without error when the provider lacks the season.
func (f *fetcher) season(n int) (*tmdb.NormalizedSeasonResult, error) {
	if s, ok := f.cache[n]; ok {
		return s, nil
	}
	s, err := f.source.GetSeasonDetails(f.ctx, f.seriesID, n)
	if err != nil {
		if f.ctx.Err() != nil {
			return nil, f.ctx.Err()
		}
		if !errors.Is(err, tmdb.ErrNotFound) {
			f.logger.Warn().Err(err).Int("series", f.seriesID).Int("season", n).Msg("Season lookup failed")
		}
		s = nil
	}
	f.cache[n] = s
	return s, nil
}

// available returns the provider seasons 1..count that exist, in order.
func (f *fetcher) available(count int) ([]*tmdb.NormalizedSeasonResult, error) {
	var out []*tmdb.NormalizedSeasonResult
	for n := 1; n <= count; n++ {
		s, err := f.season(n)
		if err != nil {
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}
