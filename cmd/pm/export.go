package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/export"
	"github.com/matsen/pubmanager/internal/publication"
)

var (
	exportAppend string
	exportIDs    []int64
)

func init() {
	exportBibTeXCmd.Flags().StringVar(&exportAppend, "append", "", "Append entries not already in this .bib file (matched by DOI, then key)")
	exportBibTeXCmd.Flags().Int64SliceVar(&exportIDs, "id", nil, "Export only these publication IDs")
	exportCmd.AddCommand(exportBibTeXCmd)
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export publications",
}

var exportBibTeXCmd = &cobra.Command{
	Use:   "bibtex",
	Short: "Export published publications as BibTeX",
	Long: `Export published publications as BibTeX.

BibTeX is always written as plain text. With --append, only entries not
already in the file are added and a JSON summary is printed.

Examples:
  pm export bibtex > pubs.bib
  pm export bibtex --id 12 --id 15
  pm export bibtex --append ~/refs.bib`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a := openApp()
		defer a.Close()

		var recs []publication.Record
		if len(exportIDs) > 0 {
			for _, id := range exportIDs {
				rec, err := export.LoadRecord(a.db, a.registry, id)
				if err != nil {
					exitWithError(ExitDataError, "%v", err)
				}
				recs = append(recs, *rec)
			}
		} else {
			var err error
			recs, err = export.LoadRecords(a.db, a.registry, publication.PostPublish)
			if err != nil {
				exitWithError(ExitError, "loading publications: %v", err)
			}
		}

		if exportAppend == "" {
			fmt.Print(export.ToBibTeXList(recs))
			return nil
		}

		n, err := export.AppendNew(exportAppend, recs)
		if err != nil {
			exitWithError(ExitError, "appending to %s: %v", exportAppend, err)
		}
		if humanOutput {
			fmt.Printf("Appended %d of %d entries to %s\n", n, len(recs), exportAppend)
			return nil
		}
		return outputJSON(map[string]int{"appended": n, "total": len(recs)})
	},
}
