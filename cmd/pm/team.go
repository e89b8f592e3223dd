package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/publication"
	"github.com/matsen/pubmanager/internal/relation"
	"github.com/matsen/pubmanager/internal/storage"
)

var teamDraft bool

func init() {
	teamAddCmd.Flags().BoolVar(&teamDraft, "draft", false, "Create the profile unpublished")
	teamCmd.AddCommand(teamAddCmd)
	teamCmd.AddCommand(teamListCmd)
	teamCmd.AddCommand(teamPublicationsCmd)
	rootCmd.AddCommand(teamCmd)
}

var teamCmd = &cobra.Command{
	Use:   "team",
	Short: "Manage team member profiles",
}

var teamAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a team member profile",
	Long: `Add a team member profile. Auto-linking matches author names against
the exact profile title, so use the name as it appears in publications.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		status := publication.PostPublish
		if teamDraft {
			status = publication.PostDraft
		}
		id, err := a.db.CreatePost(storage.Post{Kind: a.cfg.TeamKind, Title: args[0], Status: status})
		if err != nil {
			exitWithError(ExitError, "creating team member: %v", err)
		}
		if humanOutput {
			fmt.Printf("Added team member #%d %s\n", id, args[0])
			return nil
		}
		return outputJSON(StatusResponse{Status: "created", ID: id})
	},
}

// TeamMember is one profile in team list output.
type TeamMember struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Status  string `json:"status"`
	Authors int    `json:"linked_authors"`
}

var teamListCmd = &cobra.Command{
	Use:   "list",
	Short: "List team member profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		posts, err := a.db.ListPosts(a.cfg.TeamKind)
		if err != nil {
			exitWithError(ExitError, "listing team members: %v", err)
		}
		members := []TeamMember{}
		for _, p := range posts {
			linked, err := a.registry.LinkedAuthorsOf(p.ID)
			if err != nil {
				exitWithError(ExitError, "%v", err)
			}
			members = append(members, TeamMember{ID: p.ID, Name: p.Title, Slug: p.Slug, Status: p.Status, Authors: len(linked)})
		}

		if !humanOutput {
			return outputJSON(members)
		}
		for _, m := range members {
			fmt.Printf("%5d  %-30s %-8s %d linked\n", m.ID, m.Name, m.Status, m.Authors)
		}
		return nil
	},
}

var teamPublicationsCmd = &cobra.Command{
	Use:   "publications <member-id>",
	Short: "List the publications linked to a team member",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := parseID(args[0])
		a := openApp()
		defer a.Close()

		pubs, err := a.rel.PublicationsOf(id)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if pubs == nil {
			pubs = []relation.Summary{}
		}
		if !humanOutput {
			return outputJSON(pubs)
		}
		for _, p := range pubs {
			fmt.Printf("%5d  %4s  %s (as %s)\n", p.PublicationID, p.Year, truncateString(p.Title, ListTitleMaxLen), p.AuthorName)
		}
		return nil
	},
}
