package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/publication"
)

var deleteTrash bool

func init() {
	deleteCmd.Flags().BoolVar(&deleteTrash, "trash", false, "Move to trash instead of deleting permanently")
	rootCmd.AddCommand(deleteCmd)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a publication and its team member links",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

// DeleteResponse reports a deletion.
type DeleteResponse struct {
	Status         string `json:"status"`
	ID             int64  `json:"id"`
	RemovedEntries int64  `json:"removed_entries"`
}

func runDelete(cmd *cobra.Command, args []string) error {
	id := parseID(args[0])
	a := openApp()
	defer a.Close()

	post, err := a.db.GetPost(id)
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}
	if post == nil || post.Kind != publication.Kind {
		exitWithError(ExitDataError, "publication not found: %d", id)
	}

	status := "deleted"
	if deleteTrash {
		post.Status = publication.PostTrash
		err = a.db.UpdatePost(*post)
		status = "trashed"
	} else {
		err = a.db.DeletePost(id)
	}
	if err != nil {
		exitWithError(ExitError, "deleting publication: %v", err)
	}

	removed, err := a.rel.OnPublicationDeleted(id)
	if err != nil {
		exitWithError(ExitError, "removing team member links: %v", err)
	}

	if humanOutput {
		fmt.Printf("%s publication #%d (%d team member entries removed)\n", status, id, removed)
		return nil
	}
	return outputJSON(DeleteResponse{Status: status, ID: id, RemovedEntries: removed})
}
