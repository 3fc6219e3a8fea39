package matching

import (
	"math"
	"math/rand"
	"testing"

	"github.com/serialgrab/serialgrab/internal/catalog"
)

func intPtr(v int) *int { return &v }

func TestTitleSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"exact", "Дім", "Дім", 1, 1},
		{"case and space", "  ДІМ ", "дім", 1, 1},
		{"containment", "Дім", "Дім 2", 0.9, 0.9},
		{"reverse containment", "Friends: The Reunion", "friends", 0.9, 0.9},
		{"unrelated", "Дім", "Lost", 0, 0},
		{"empty", "", "Дім", 0, 0},
		{"partial", "Breaking Bad", "Breaking Dad", 0.8, 0.95},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TitleSimilarity(tt.a, tt.b)
			if got < tt.min-1e-9 || got > tt.max+1e-9 {
				t.Errorf("TitleSimilarity(%q, %q) = %v, want [%v, %v]", tt.a, tt.b, got, tt.min, tt.max)
			}
		})
	}
}

func TestTitleSimilarity_NFC(t *testing.T) {
	// "й" precomposed vs. "и" + combining breve.
	if got := TitleSimilarity("\u041c\u0456\u0439", "\u041c\u0456\u0438\u0306"); got != 1 {
		t.Errorf("decomposed title similarity = %v, want 1", got)
	}
}

func TestYearScore(t *testing.T) {
	tests := []struct {
		want, got int
		score     float64
	}{
		{2020, 2020, 1},
		{2020, 2021, 0.8},
		{2020, 2019, 0.8},
		{2020, 2022, 0.5},
		{2020, 2017, 0},
		{2020, 0, 0},
	}
	for _, tt := range tests {
		if got := YearScore(tt.want, tt.got); got != tt.score {
			t.Errorf("YearScore(%d, %d) = %v, want %v", tt.want, tt.got, got, tt.score)
		}
	}
}

func TestYearScore_MonotonicInDistance(t *testing.T) {
	prev := math.Inf(1)
	for d := 0; d <= 6; d++ {
		got := YearScore(2000, 2000+d)
		if got > prev {
			t.Fatalf("YearScore increased at distance %d: %v > %v", d, got, prev)
		}
		if d > 2 && got != 0 {
			t.Errorf("YearScore at distance %d = %v, want 0", d, got)
		}
		prev = got
	}
}

func TestScore_DimScenario(t *testing.T) {
	q := SearchQuery{
		Title:         "Дім",
		Year:          intPtr(2020),
		Kind:          catalog.MediaSeries,
		Season:        intPtr(1),
		TotalEpisodes: intPtr(8),
	}
	candidates := []catalog.SearchItem{
		{Title: "Дім", URL: "/dim", Year: 2020, Season: intPtr(1), EpisodeCount: intPtr(8)},
		{Title: "Дім 2", URL: "/dim-2", Year: 2021, Season: intPtr(2), EpisodeCount: intPtr(10)},
	}

	s := NewScorer(DefaultWeights())
	if got := s.Score(q, candidates[0]); got != 1 {
		t.Errorf("Score(first) = %v, want 1", got)
	}

	m, ok := s.FindBestMatch(q, candidates, DefaultThreshold)
	if !ok {
		t.Fatal("FindBestMatch() found nothing")
	}
	if m.Item.URL != "/dim" || m.Score != 1 {
		t.Errorf("FindBestMatch() = %+v, want /dim with score 1", m)
	}
}

func TestScore_OriginalTitleSharesTitleSlot(t *testing.T) {
	s := NewScorer(DefaultWeights())
	c := catalog.SearchItem{Title: "Home", Year: 2020}

	withOriginal := s.Score(SearchQuery{Title: "Дім", OriginalTitle: "Home"}, c)
	if withOriginal != 1 {
		t.Errorf("original title exact match = %v, want 1", withOriginal)
	}

	localOnly := s.Score(SearchQuery{Title: "Home", OriginalTitle: "Дім"}, c)
	if localOnly != withOriginal {
		t.Errorf("slot is not symmetric: %v vs %v", localOnly, withOriginal)
	}
}

func TestScore_DegeneratesToTitleSimilarity(t *testing.T) {
	s := NewScorer(DefaultWeights())
	c := catalog.SearchItem{Title: "Breaking Dad", Year: 2008}
	q := SearchQuery{Title: "Breaking Bad"}
	if got, want := s.Score(q, c), TitleSimilarity(q.Title, c.Title); math.Abs(got-want) > 1e-12 {
		t.Errorf("Score() = %v, want plain title similarity %v", got, want)
	}
}

func TestScore_ZeroWeightsFallBackToTitle(t *testing.T) {
	s := NewScorer(Weights{})
	got := s.Score(SearchQuery{Title: "Дім", Year: intPtr(2020)}, catalog.SearchItem{Title: "Дім"})
	if got != 1 {
		t.Errorf("Score() = %v, want 1", got)
	}
}

func TestScore_AlwaysWithinUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	titles := []string{"Дім", "Дім 2", "Home", "", "Lost", "Втрачені", "lost in space"}
	opt := func(n int) *int {
		if rng.Intn(3) == 0 {
			return nil
		}
		return intPtr(rng.Intn(n))
	}
	s := NewScorer(DefaultWeights())

	for i := 0; i < 2000; i++ {
		q := SearchQuery{
			Title:         titles[rng.Intn(len(titles))],
			OriginalTitle: titles[rng.Intn(len(titles))],
			Year:          opt(2030),
			Season:        opt(5),
			TotalEpisodes: opt(20),
		}
		c := catalog.SearchItem{
			Title:        titles[rng.Intn(len(titles))],
			Year:         rng.Intn(2030),
			Season:       opt(5),
			EpisodeCount: opt(20),
		}
		got := s.Score(q, c)
		if got < 0 || got > 1 || math.IsNaN(got) {
			t.Fatalf("Score(%+v, %+v) = %v, outside [0,1]", q, c, got)
		}
	}
}

func TestFindBestMatch(t *testing.T) {
	s := NewScorer(DefaultWeights())
	q := SearchQuery{Title: "Дім"}

	if _, ok := s.FindBestMatch(q, nil, DefaultThreshold); ok {
		t.Error("empty candidate list should not match")
	}

	below := []catalog.SearchItem{{Title: "Lost"}, {Title: "Friends"}}
	if _, ok := s.FindBestMatch(q, below, DefaultThreshold); ok {
		t.Error("all-below-threshold list should not match")
	}

	ties := []catalog.SearchItem{{Title: "Дім", URL: "/a"}, {Title: "Дім", URL: "/b"}}
	m, ok := s.FindBestMatch(q, ties, DefaultThreshold)
	if !ok || m.Item.URL != "/a" {
		t.Errorf("tie should keep first candidate, got %+v", m)
	}

	exact := s.Score(q, catalog.SearchItem{Title: "Дім"})
	if _, ok := s.FindBestMatch(q, ties, exact+0.01); ok {
		t.Error("threshold above best score should not match")
	}
	if _, ok := s.FindBestMatch(q, ties, exact); !ok {
		t.Error("score equal to threshold should match")
	}
}
