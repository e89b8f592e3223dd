package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/config"
	"github.com/matsen/pubmanager/internal/storage"
)

func init() {
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new publications repository",
	Long: `Initialize a new publications repository in the current directory.

Creates:
  .pubmanager/
  ├── config.json     # Default config
  └── pubmanager.db   # Entity store`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	root := getRepoRoot()
	if config.IsRepository(root) {
		exitWithError(ExitError, "directory already contains a publications repository")
	}

	if _, err := config.Init(root); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	db, err := storage.OpenDB(config.DBPath(root))
	if err != nil {
		exitWithError(ExitError, "creating database: %v", err)
	}
	db.Close()

	if humanOutput {
		fmt.Printf("Initialized publications repository in %s\n", root)
	} else {
		outputJSON(StatusResponse{Status: "initialized", Path: root})
	}
	return nil
}
