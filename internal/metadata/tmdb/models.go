package tmdb

// SearchMoviesResponse is the response from TMDB movie search.
type SearchMoviesResponse struct {
	Page         int           `json:"page"`
	Results      []MovieResult `json:"results"`
	TotalResults int           `json:"total_results"`
}

// MovieResult is a movie from TMDB search results.
type MovieResult struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"original_title"`
	Overview      string  `json:"overview"`
	ReleaseDate   string  `json:"release_date"`
	PosterPath    *string `json:"poster_path"`
	BackdropPath  *string `json:"backdrop_path"`
	VoteAverage   float64 `json:"vote_average"`
}

// MovieDetails is the detailed movie info from TMDB.
type MovieDetails struct {
	MovieResult
	ImdbID  string `json:"imdb_id"`
	Runtime int    `json:"runtime"`
}

// SearchTVResponse is the response from TMDB TV search.
type SearchTVResponse struct {
	Page         int        `json:"page"`
	Results      []TVResult `json:"results"`
	TotalResults int        `json:"total_results"`
}

// TVResult is a TV series from TMDB search results.
type TVResult struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	OriginalName string  `json:"original_name"`
	Overview     string  `json:"overview"`
	FirstAirDate string  `json:"first_air_date"`
	PosterPath   *string `json:"poster_path"`
	BackdropPath *string `json:"backdrop_path"`
	VoteAverage  float64 `json:"vote_average"`
}

// TVDetails is the detailed TV series info from TMDB.
type TVDetails struct {
	TVResult
	NumberOfSeasons  int          `json:"number_of_seasons"`
	NumberOfEpisodes int          `json:"number_of_episodes"`
	Seasons          []Season     `json:"seasons"`
	ExternalIDs      *ExternalIDs `json:"external_ids,omitempty"`
}

// Season is a season summary embedded in TV details.
type Season struct {
	ID           int     `json:"id"`
	Name         string  `json:"name"`
	Overview     string  `json:"overview"`
	AirDate      string  `json:"air_date"`
	EpisodeCount int     `json:"episode_count"`
	PosterPath   *string `json:"poster_path"`
	SeasonNumber int     `json:"season_number"`
}

// ExternalIDs contains external IDs from TMDB.
type ExternalIDs struct {
	ImdbID string `json:"imdb_id"`
	TvdbID int    `json:"tvdb_id"`
}

// SeasonDetails is the /tv/{id}/season/{number} payload.
type SeasonDetails struct {
	ID           int              `json:"id"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	AirDate      string           `json:"air_date"`
	PosterPath   *string          `json:"poster_path"`
	SeasonNumber int              `json:"season_number"`
	VoteAverage  float64          `json:"vote_average"`
	Episodes     []EpisodeDetails `json:"episodes"`
}

// EpisodeDetails is the episode info from TMDB season details.
type EpisodeDetails struct {
	ID            int     `json:"id"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	EpisodeNumber int     `json:"episode_number"`
	SeasonNumber  int     `json:"season_number"`
	StillPath     *string `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
}

// ErrorResponse is an error from the TMDB API.
type ErrorResponse struct {
	StatusCode    int    `json:"status_code"`
	StatusMessage string `json:"status_message"`
}

// Kind selects the TMDB media namespace.
type Kind string

const (
	KindMovie Kind = "movie"
	KindTV    Kind = "tv"
)

// NormalizedMovieResult is the normalized movie returned by the client.
type NormalizedMovieResult struct {
	ID            int     `json:"id"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"originalTitle,omitempty"`
	Year          int     `json:"year"`
	ReleaseDate   string  `json:"releaseDate,omitempty"`
	Overview      string  `json:"overview"`
	PosterURL     string  `json:"posterUrl,omitempty"`
	BackdropURL   string  `json:"backdropUrl,omitempty"`
	ImdbID        string  `json:"imdbId,omitempty"`
	VoteAverage   float64 `json:"voteAverage"`
}

// NormalizedSeriesResult is the normalized series returned by the client.
type NormalizedSeriesResult struct {
	ID              int     `json:"id"`
	Title           string  `json:"title"`
	OriginalTitle   string  `json:"originalTitle,omitempty"`
	Year            int     `json:"year"`
	FirstAirDate    string  `json:"firstAirDate,omitempty"`
	Overview        string  `json:"overview"`
	PosterURL       string  `json:"posterUrl,omitempty"`
	BackdropURL     string  `json:"backdropUrl,omitempty"`
	ImdbID          string  `json:"imdbId,omitempty"`
	TvdbID          int     `json:"tvdbId,omitempty"`
	VoteAverage     float64 `json:"voteAverage"`
	NumberOfSeasons int     `json:"numberOfSeasons"`
}

// NormalizedSeasonResult is a season with its episodes.
type NormalizedSeasonResult struct {
	ID           string                    `json:"id"`
	SeasonNumber int                       `json:"seasonNumber"`
	Name         string                    `json:"name"`
	Overview     string                    `json:"overview"`
	PosterURL    string                    `json:"posterUrl,omitempty"`
	AirDate      string                    `json:"airDate,omitempty"`
	VoteAverage  float64                   `json:"voteAverage"`
	Episodes     []NormalizedEpisodeResult `json:"episodes"`
}

// NormalizedEpisodeResult is one episode of a season.
type NormalizedEpisodeResult struct {
	ID            string  `json:"id"`
	EpisodeNumber int     `json:"episodeNumber"`
	SeasonNumber  int     `json:"seasonNumber"`
	Title         string  `json:"title"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"airDate,omitempty"`
	StillURL      string  `json:"stillUrl,omitempty"`
	VoteAverage   float64 `json:"voteAverage"`
	VoteCount     int     `json:"voteCount"`
}

// SearchResult is the first hit of a name search, for either kind.
type SearchResult struct {
	ID            int     `json:"id"`
	Kind          Kind    `json:"kind"`
	Title         string  `json:"title"`
	OriginalTitle string  `json:"originalTitle,omitempty"`
	Year          int     `json:"year"`
	Overview      string  `json:"overview"`
	PosterURL     string  `json:"posterUrl,omitempty"`
	BackdropURL   string  `json:"backdropUrl,omitempty"`
	VoteAverage   float64 `json:"voteAverage"`
}
