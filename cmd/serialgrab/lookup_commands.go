package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/serialgrab/serialgrab/internal/catalog"
	"github.com/serialgrab/serialgrab/internal/extractor"
	"github.com/serialgrab/serialgrab/internal/matching"
	"github.com/serialgrab/serialgrab/internal/media"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "search <name>",
		Short: "List catalog titles matching a name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.newLogger(cfg, true, cmd.ErrOrStderr())
			defer log.Close()

			stack, err := newLookupStack(cfg, log.Logger)
			if err != nil {
				return err
			}
			items, err := stack.media.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, items)
			}
			if len(items) == 0 {
				fmt.Fprintln(out, "No titles found")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Year", "Rating", "Path"},
				searchRows(items),
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func searchRows(items []media.SearchItem) [][]string {
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.Title, itoa(it.Year), it.Rating, it.Path})
	}
	return rows
}

// resolveFlags are the command-line form of a stream request.
type resolveFlags struct {
	originalTitle string
	kind          string
	year          int
	season        int
	episode       int
	totalEpisodes int
}

func (f resolveFlags) query(title string) matching.SearchQuery {
	q := matching.SearchQuery{
		Title:         title,
		OriginalTitle: strings.TrimSpace(f.originalTitle),
		Kind:          catalog.MediaKind(f.kind),
	}
	// Unknown kinds pass through for Validate to reject.
	if kind, ok := catalog.ParseMediaKind(f.kind); ok {
		q.Kind = kind
	}
	// Zero flags stay absent.
	if f.year > 0 {
		q.Year = &f.year
	}
	if f.season > 0 {
		q.Season = &f.season
	}
	if f.episode > 0 {
		q.Episode = &f.episode
	}
	if f.totalEpisodes > 0 {
		q.TotalEpisodes = &f.totalEpisodes
	}
	return q
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var flags resolveFlags
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "resolve <title>",
		Short: "Resolve a title to direct stream links",
		Example: `  serialgrab resolve "Дім" --kind series --season 2 --episode 3
  serialgrab resolve "Дюна" --original-title Dune --kind movie --year 2021`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log := ctx.newLogger(cfg, true, cmd.ErrOrStderr())
			defer log.Close()

			stack, err := newLookupStack(cfg, log.Logger)
			if err != nil {
				return err
			}
			groups, err := stack.media.ResolveFilmStreams(cmd.Context(), flags.query(strings.Join(args, " ")))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, groups)
			}
			if len(groups) == 0 {
				fmt.Fprintln(out, "No streams found")
				return nil
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Source", "Translator", "Quality", "URL"},
				streamRows(groups),
				nil,
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.originalTitle, "original-title", "", "Original (untranslated) title")
	cmd.Flags().StringVar(&flags.kind, "kind", string(catalog.MediaMovie), "Media kind: movie or series")
	cmd.Flags().IntVar(&flags.year, "year", 0, "Release year")
	cmd.Flags().IntVar(&flags.season, "season", 0, "Season number (series)")
	cmd.Flags().IntVar(&flags.episode, "episode", 0, "Episode number (series)")
	cmd.Flags().IntVar(&flags.totalEpisodes, "total-episodes", 0, "Episodes the season must have")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func streamRows(groups []extractor.SourceGroup) [][]string {
	var rows [][]string
	for _, g := range groups {
		for _, tr := range g.Translators {
			if len(tr.Links) == 0 {
				rows = append(rows, []string{g.Source, tr.Name, "-", ""})
				continue
			}
			for _, l := range tr.Links {
				rows = append(rows, []string{g.Source, tr.Name, l.Quality, l.URL})
			}
		}
	}
	return rows
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// itoa renders optional numbers in tables.
func itoa(v int) string {
	if v <= 0 {
		return "-"
	}
	return strconv.Itoa(v)
}
