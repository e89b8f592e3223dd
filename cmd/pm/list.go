package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/author"
	"github.com/matsen/pubmanager/internal/export"
	"github.com/matsen/pubmanager/internal/publication"
)

var (
	listAll    bool
	listAuthor string
)

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include drafts and other unpublished publications")
	listCmd.Flags().StringVar(&listAuthor, "author", "", `Only publications with a matching author ("Yu", "Tim Yu", "Yu, T")`)
	rootCmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List publications",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

// ListItem is one publication in list output.
type ListItem struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	BibTeXKey string   `json:"bibtex_key"`
	Year      string   `json:"year"`
	DOI       string   `json:"doi,omitempty"`
	Authors   []string `json:"authors"`
}

func runList(cmd *cobra.Command, args []string) error {
	a := openApp()
	defer a.Close()

	statuses := []string{publication.PostPublish}
	if listAll {
		statuses = publication.LiveStatuses
	}
	posts, err := a.db.ListPosts(publication.Kind, statuses...)
	if err != nil {
		exitWithError(ExitError, "listing publications: %v", err)
	}

	var query *author.Query
	if listAuthor != "" {
		q := author.ParseQuery(listAuthor)
		query = &q
	}

	items := []ListItem{}
	for _, p := range posts {
		rec, err := export.LoadRecord(a.db, a.registry, p.ID)
		if err != nil {
			exitWithError(ExitError, "loading publication %d: %v", p.ID, err)
		}
		if query != nil && !query.MatchesAny(rec.Authors) {
			continue
		}
		items = append(items, ListItem{
			ID:        p.ID,
			Title:     rec.Title,
			BibTeXKey: rec.BibTeXKey,
			Year:      rec.Year(),
			DOI:       rec.DOI,
			Authors:   rec.Authors,
		})
	}

	if !humanOutput {
		return outputJSON(items)
	}
	for _, it := range items {
		fmt.Printf("%5d  %-16s %4s  %s\n", it.ID, it.BibTeXKey, it.Year, truncateString(it.Title, ListTitleMaxLen))
	}
	fmt.Printf("\n%d publications\n", len(items))
	return nil
}
