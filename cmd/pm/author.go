package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/author"
	"github.com/matsen/pubmanager/internal/registry"
)

var authorMatch string

func init() {
	authorListCmd.Flags().StringVar(&authorMatch, "match", "", `Only authors matching a name query ("Doe", "J Doe")`)
	authorCmd.AddCommand(authorListCmd)
	authorCmd.AddCommand(authorLinkCmd)
	authorCmd.AddCommand(authorUnlinkCmd)
	authorCmd.AddCommand(authorHTMLCmd)
	rootCmd.AddCommand(authorCmd)
}

var authorCmd = &cobra.Command{
	Use:   "author",
	Short: "Manage the author registry",
}

var authorListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registry authors with their publication counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		all, err := a.registry.ListAuthors()
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		authors := []registry.Summary{}
		q := author.ParseQuery(authorMatch)
		for _, s := range all {
			if authorMatch == "" || q.Matches(s.Name) {
				authors = append(authors, s)
			}
		}

		if !humanOutput {
			return outputJSON(authors)
		}
		for _, s := range authors {
			link := ""
			if s.TeamMemberID != 0 {
				link = fmt.Sprintf("-> #%d", s.TeamMemberID)
			}
			fmt.Printf("%5d  %-30s %3d  %s\n", s.ID, s.Name, s.PublicationCount, link)
		}
		return nil
	},
}

var authorLinkCmd = &cobra.Command{
	Use:   "link <author-id> <member-id>",
	Short: "Link an author to a team member profile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		termID, memberID := parseID(args[0]), parseID(args[1])
		a := openApp()
		defer a.Close()

		err := a.registry.SetTeamMemberLink(termID, memberID)
		if errors.Is(err, registry.ErrTermNotFound) || errors.Is(err, registry.ErrNotTeamMember) {
			exitWithError(ExitDataError, "%v", err)
		}
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		resyncAuthor(a, termID)

		if humanOutput {
			fmt.Printf("Linked author #%d to team member #%d\n", termID, memberID)
			return nil
		}
		return outputJSON(StatusResponse{Status: "linked", ID: termID})
	},
}

var authorUnlinkCmd = &cobra.Command{
	Use:   "unlink <author-id>",
	Short: "Remove an author's team member link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		termID := parseID(args[0])
		a := openApp()
		defer a.Close()

		if err := a.registry.ClearTeamMemberLink(termID); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		resyncAuthor(a, termID)

		if humanOutput {
			fmt.Printf("Unlinked author #%d\n", termID)
			return nil
		}
		return outputJSON(StatusResponse{Status: "unlinked", ID: termID})
	},
}

var authorHTMLCmd = &cobra.Command{
	Use:   "html <publication-id>",
	Short: "Render a publication's authors as HTML with team member links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := parseID(args[0])
		a := openApp()
		defer a.Close()

		html, err := a.registry.RenderAuthorsHTML(id)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(html)
			return nil
		}
		return outputJSON(map[string]string{"html": html})
	},
}

// resyncAuthor refreshes the derived links of every publication by the
// author after its link changed.
func resyncAuthor(a *app, termID int64) {
	pubs, err := a.db.TermObjects(termID)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	for _, pubID := range pubs {
		if _, err := a.rel.Sync(pubID); err != nil {
			exitWithError(ExitError, "syncing publication %d: %v", pubID, err)
		}
	}
}
