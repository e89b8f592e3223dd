package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/export"
	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/relation"
	"github.com/matsen/pubmanager/internal/storage"
)

func init() {
	rootCmd.AddCommand(getCmd)
}

var getCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single publication by ID",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

// PublicationDetail is the get response.
type PublicationDetail struct {
	ID     int64              `json:"id"`
	Status string             `json:"status"`
	Record publication.Record `json:"record"`
	Links  []relation.Link    `json:"links"`
}

func runGet(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])
	a := openApp()
	defer a.Close()

	rec, err := export.LoadRecord(a.db, a.registry, id)
	if errors.Is(err, storage.ErrNotFound) {
		exitWithError(ExitDataError, "publication not found: %d", id)
	}
	if err != nil {
		exitWithError(ExitError, "loading publication: %v", err)
	}
	post, _ := a.db.GetPost(id)
	links, err := a.rel.Links(id)
	if err != nil {
		exitWithError(ExitError, "loading links: %v", err)
	}
	if links == nil {
		links = []relation.Link{}
	}

	if !humanOutput {
		return outputJSON(PublicationDetail{ID: id, Status: post.Status, Record: *rec, Links: links})
	}

	fmt.Printf("%s\n", rec.Title)
	fmt.Printf("  #%d  %s  %s\n", id, rec.BibTeXKey, post.Status)
	fmt.Printf("  %s\n", strings.Join(rec.Authors, ", "))
	if venue := firstNonEmpty(rec.Journal, rec.Booktitle); venue != "" {
		fmt.Printf("  %s (%s)\n", venue, rec.Year())
	} else if rec.Year() != "" {
		fmt.Printf("  (%s)\n", rec.Year())
	}
	if rec.DOI != "" {
		fmt.Printf("  doi: %s\n", rec.DOI)
	}
	for _, l := range links {
		fmt.Printf("  linked: %s -> team member #%d\n", l.AuthorName, l.TeamMemberID)
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
