// Package main provides the pm CLI entry point.
package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	humanOutput bool
	logLevel    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		exitWithError(ExitError, "%v", err)
	}
}

var rootCmd = &cobra.Command{
	Use:   "pm",
	Short: "Publications manager for research groups",
	Long: `pm manages a group's publications: it imports records from Crossref by
DOI, keeps an author registry whose entries can be linked to team member
profiles, and repairs the derived links between the two.

All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is not an error.
		_ = godotenv.Load()
		setupLogger(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.Version = Version
}

func setupLogger(name string) {
	var level slog.Level
	switch strings.ToUpper(name) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "ERROR":
		level = slog.LevelError
	default:
		level = slog.LevelWarn
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// getRepoRoot returns the directory to search for a repository from.
// PM_ROOT wins over the working directory.
func getRepoRoot() string {
	if root := os.Getenv("PM_ROOT"); root != "" {
		return root
	}
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	return cwd
}

// findRepo locates the repository, falling back to the global default_repo.
func findRepo() string {
	repoRoot, err := config.FindRepository(getRepoRoot())
	if err == nil {
		return repoRoot
	}
	if def := config.DefaultRepo(); def != "" && config.IsRepository(def) {
		return def
	}
	exitWithError(ExitConfigError, "%v", err)
	return ""
}
