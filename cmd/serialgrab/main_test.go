package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/extractor"
	"github.com/serialgrab/serialgrab/internal/media"
)

func TestConfigShow_MasksSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "catalog:\n  host: https://catalog.test\nmetadata:\n  tmdb:\n    api_key: secret-key\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--config", path, "config", "show"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	got := out.String()
	if !strings.Contains(got, "https://catalog.test") {
		t.Errorf("output lacks catalog host:\n%s", got)
	}
	if strings.Contains(got, "secret-key") {
		t.Errorf("output leaks the TMDB key:\n%s", got)
	}
}

func TestResolveFlags_Query(t *testing.T) {
	q := resolveFlags{kind: " TV ", season: 2, episode: 3}.query("Дім")

	if q.Title != "Дім" || q.Kind != catalog.MediaSeries {
		t.Errorf("query = %+v", q)
	}
	if q.Season == nil || *q.Season != 2 || q.Episode == nil || *q.Episode != 3 {
		t.Errorf("season/episode = %v/%v", q.Season, q.Episode)
	}
	if q.Year != nil || q.TotalEpisodes != nil {
		t.Error("zero flags should stay absent")
	}
}

func TestStreamRows(t *testing.T) {
	rows := streamRows([]extractor.SourceGroup{{
		Source: "ashdi",
		Translators: []extractor.Translator{
			{Name: "Dub", Links: []extractor.TranslatorLink{{Quality: "480p", URL: "a"}, {Quality: "1080p", URL: "b"}}},
			{Name: "Sub", Links: []extractor.TranslatorLink{}},
		},
	}})

	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	if rows[1][2] != "1080p" || rows[2][1] != "Sub" || rows[2][2] != "-" {
		t.Errorf("rows = %v", rows)
	}
}

func TestRenderTable(t *testing.T) {
	got := renderTable(
		[]string{"Title", "Year", "Rating", "Path"},
		searchRows([]media.SearchItem{{Title: "Дім", Year: 2020, Rating: "7.9", Path: "/dim"}, {Title: "Дім 2"}}),
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	)

	for _, want := range []string{"Дім", "2020", "/dim", "-"} {
		if !strings.Contains(got, want) {
			t.Errorf("table lacks %q:\n%s", want, got)
		}
	}
	if renderTable(nil, nil, nil) != "" {
		t.Error("no headers should render nothing")
	}
}
