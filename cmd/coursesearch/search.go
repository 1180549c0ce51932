package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/rhuss/coursesearch/pkg/api"
	"github.com/rhuss/coursesearch/pkg/config"
	"github.com/rhuss/coursesearch/pkg/preview"
)

type searchOptions struct {
	courseID int64
	json     bool
}

func newSearchCmd(c *cli) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search --course ID TERM...",
		Short: "Search one course and print the results",
		Long: `Search the activities and content of one course and print the results.

Examples:
  coursesearch search --course 2 midterm
  coursesearch search --course 2 "cell membrane" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), c.cfg, opts, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64Var(&opts.courseID, "course", 0, "course id to search (required)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("course")
	return cmd
}

func runSearch(ctx context.Context, cfg *config.Config, opts *searchOptions, term string, out io.Writer) error {
	store, err := openStore(ctx, cfg.Storage, false)
	if err != nil {
		return err
	}
	defer store.Close()

	if cfg.Storage.SeedFile != "" {
		if _, err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		if _, err := seedOnce(ctx, store, cfg.Storage.SeedFile); err != nil {
			return err
		}
	}

	agg, err := newAggregator(store, cfg)
	if err != nil {
		return err
	}

	resp, err := agg.Search(ctx, &api.SearchRequest{CourseID: opts.courseID, Query: term})
	if err != nil {
		return err
	}

	views := preview.Views(resp.Results, cfg.Server.BaseURL)
	if opts.json {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	}
	return printResults(out, resp, views)
}

// printResults writes the result heading and table.
func printResults(out io.Writer, resp *api.SearchResponse, views []api.ResultView) error {
	fmt.Fprintf(out, "Search results for: %s (%s)\n", resp.Query, resp.Course.FullName)

	switch resp.State {
	case api.SearchStateEmptyQuery:
		fmt.Fprintln(out, "No search term given")
		return nil
	case api.SearchStateNoResults:
		fmt.Fprintf(out, "No results found for %q\n", resp.Query)
		return nil
	}
	fmt.Fprintf(out, "%d results found\n\n", resp.Count)

	table := tablewriter.NewTable(out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header([]string{"#", "Title", "Type", "Link", "Preview"})

	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			v.Title,
			v.Type,
			v.Href,
			preview.Text(v.Content, preview.TitleLength),
		}
	}
	if err := table.Bulk(rows); err != nil {
		return fmt.Errorf("rendering results: %w", err)
	}
	return table.Render()
}
