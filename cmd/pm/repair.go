package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/publication"
)

func init() {
	repairCmd.AddCommand(repairBulkCmd)
	repairCmd.AddCommand(repairCleanupCmd)
	repairCmd.AddCommand(repairStatsCmd)
	repairCmd.AddCommand(repairMigrateCmd)
	rootCmd.AddCommand(repairCmd)
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Reconcile authors, team members and publication links",
	Long: `Reconcile authors, team members and publication links.

Every subcommand is safe to run repeatedly.

  bulk     migrate legacy authors, auto-link by exact name, rebuild links
  cleanup  remove team member entries pointing at missing publications
  stats    report links, duplicates and orphans
  migrate  only migrate legacy comma-separated author strings`,
}

var repairBulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Process every published publication",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		result, err := a.repair.BulkProcess(ctx)
		if err != nil {
			exitWithError(ExitError, "bulk processing: %v", err)
		}
		if !humanOutput {
			return outputJSON(result)
		}
		for _, r := range result.Results {
			fmt.Printf("%5d  %d -> %d links (+%d)  %s\n", r.ID, r.LinksBefore, r.LinksAfter, r.NewLinks, truncateString(r.Title, ListTitleMaxLen))
		}
		for _, e := range result.Errors {
			fmt.Printf("error: %s\n", e)
		}
		fmt.Printf("\nProcessed %d of %d, %d with team member links\n", result.Processed, result.Total, result.Linked)
		return nil
	},
}

var repairCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove orphaned team member entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		result, err := a.repair.CleanupOrphans()
		if err != nil {
			exitWithError(ExitError, "cleanup: %v", err)
		}
		if !humanOutput {
			return outputJSON(result)
		}
		for _, o := range result.Orphans {
			fmt.Printf("  member #%d %s=%s (%s)\n", o.MemberID, o.Key, o.Value, o.Reason)
		}
		fmt.Printf("Removed %d orphaned entries\n", result.Removed)
		return nil
	},
}

var repairStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show link statistics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		s, err := a.repair.Stats()
		if err != nil {
			exitWithError(ExitError, "stats: %v", err)
		}
		if !humanOutput {
			return outputJSON(s)
		}
		fmt.Printf("Publications:         %d (%d with links, %d without)\n", s.Publications, s.WithLinks, s.WithoutLinks)
		fmt.Printf("Connections:          %d recorded, %d valid\n", s.TotalConnections, s.ValidConnections)
		fmt.Printf("Authors:              %d (%d linked)\n", s.Authors, s.LinkedAuthors)
		fmt.Printf("Duplicate entries:    %d (run: pm repair bulk)\n", s.Duplicates)
		fmt.Printf("Orphaned entries:     %d (run: pm repair cleanup)\n", s.Orphaned)
		fmt.Printf("Legacy unmigrated:    %d (run: pm repair migrate)\n", s.LegacyUnmigrated)
		fmt.Printf("Legacy author lists:  %d (no migration available)\n", s.LegacyAuthorList)
		for _, m := range s.Members {
			fmt.Printf("  #%-5d %-28s %d entries, %d unique valid, %d duplicates, %d orphaned\n",
				m.ID, m.Name, m.PublicationEntries, m.Publications, m.Duplicates, m.Orphaned+m.AuthorOrphaned)
		}
		return nil
	},
}

// MigrateResponse reports a legacy migration pass.
type MigrateResponse struct {
	Checked  int     `json:"checked"`
	Migrated []int64 `json:"migrated"`
}

var repairMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Migrate legacy comma-separated author strings into the registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		posts, err := a.db.ListPosts(publication.Kind, publication.LiveStatuses...)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		resp := MigrateResponse{Checked: len(posts), Migrated: []int64{}}
		for _, p := range posts {
			ok, err := a.repair.MigrateLegacyAuthors(p.ID)
			if err != nil {
				exitWithError(ExitError, "migrating publication %d: %v", p.ID, err)
			}
			if ok {
				resp.Migrated = append(resp.Migrated, p.ID)
				if _, err := a.rel.Sync(p.ID); err != nil {
					exitWithError(ExitError, "syncing publication %d: %v", p.ID, err)
				}
			}
		}
		if humanOutput {
			fmt.Printf("Migrated %d of %d publications\n", len(resp.Migrated), resp.Checked)
			return nil
		}
		return outputJSON(resp)
	},
}
