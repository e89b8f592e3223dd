package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matsen/pubmanager/internal/config"
)

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Get or set repository configuration",
	Long: `Get or set repository configuration.

Keys:
  team_kind                 Entity kind of team member profiles (default team_member)
  site_url                  Base URL for team member permalinks
  crossref_mailto           Contact address sent to Crossref
  crossref_rate             Crossref requests per second (default 50)
  crossref_timeout_seconds  Crossref request timeout (default 30)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		if humanOutput {
			for _, k := range config.Keys {
				v, _ := cfg.Get(k)
				fmt.Printf("%-26s %s\n", k+":", v)
			}
			return nil
		}
		return outputJSON(cfg)
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _ := loadConfig()
		v, err := cfg.Get(args[0])
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			fmt.Println(v)
			return nil
		}
		return outputJSON(map[string]string{args[0]: v})
	},
}

// UpdateResponse is the response for config set.
type UpdateResponse struct {
	Status string `json:"status"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, root := loadConfig()
		if err := cfg.Set(args[0], args[1]); err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		if err := cfg.Save(root); err != nil {
			exitWithError(ExitError, "%v", err)
		}
		v, _ := cfg.Get(args[0])
		if humanOutput {
			fmt.Printf("Set %s = %s\n", args[0], v)
			return nil
		}
		return outputJSON(UpdateResponse{Status: "updated", Key: args[0], Value: v})
	},
}

func loadConfig() (*config.Config, string) {
	root := findRepo()
	cfg, err := config.Load(root)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg, root
}
