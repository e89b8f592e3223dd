package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/importer"
	"github.com/matsen/pubmanager/internal/pdf"
)

func init() {
	importCmd.AddCommand(importDOICmd)
	importCmd.AddCommand(importPDFCmd)
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import publications from Crossref",
}

var importDOICmd = &cobra.Command{
	Use:   "doi <doi>... | -",
	Short: "Import publications by DOI",
	Long: `Import publications by DOI from Crossref.

DOIs may be bare or given as doi.org URLs. Use "-" to read whitespace
separated DOIs from stdin. A DOI already present (ignoring case and URL
prefix) updates the existing publication instead of creating a new one.

Examples:
  pm import doi 10.1000/xyz
  pm import doi https://doi.org/10.1/a 10.1/b
  cat dois.txt | pm import doi -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := strings.Join(args, " ")
		if len(args) == 1 && args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitWithError(ExitError, "reading stdin: %v", err)
			}
			input = string(data)
		}
		return runImportBatch(input)
	},
}

var importPDFCmd = &cobra.Command{
	Use:   "pdf <file>... | -",
	Short: "Import publications by the DOI found in PDF files",
	Long: `Import publications by the DOI found in the first pages of PDF files.

Use "-" to read a single PDF from stdin.

Examples:
  pm import pdf paper.pdf other.pdf
  curl -s https://example.org/paper.pdf | pm import pdf -`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && args[0] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitWithError(ExitError, "reading stdin: %v", err)
			}
			doi, err := pdf.ExtractDOIReader(bytes.NewReader(data), int64(len(data)))
			if err != nil {
				exitWithError(ExitDataError, "reading PDF from stdin: %v", err)
			}
			if doi == "" {
				exitWithError(ExitDataError, "no DOI found in PDF from stdin")
			}
			return runImportBatch(doi)
		}

		var dois []string
		for _, path := range args {
			doi, err := pdf.ExtractDOI(path)
			if err != nil {
				exitWithError(ExitDataError, "reading %s: %v", path, err)
			}
			if doi == "" {
				exitWithError(ExitDataError, "no DOI found in %s", path)
			}
			dois = append(dois, doi)
		}
		return runImportBatch(strings.Join(dois, " "))
	},
}

func runImportBatch(input string) error {
	a := openApp()
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	result, err := a.pipeline().ImportDOIs(ctx, input)
	if errors.Is(err, importer.ErrNoDOIs) {
		exitWithError(ExitDataError, "Please enter at least one DOI")
	}
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput {
		for _, im := range result.Imported {
			fmt.Printf("%-8s %-30s #%d %s\n", im.Action, im.DOI, im.PostID, truncateString(im.Title, ImportTitleMaxLen))
		}
		for _, f := range result.Failed {
			fmt.Printf("%-8s %-30s %s\n", "failed", f.DOI, f.Error)
		}
		fmt.Printf("\n%d of %d imported\n", len(result.Imported), result.Total)
	} else {
		outputJSON(result)
	}

	if !result.Success {
		os.Exit(ExitImportError)
	}
	return nil
}
