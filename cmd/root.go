package cmd

import (
	"github.com/spf13/cobra"

	"github.com/abhisek/multiq/internal/config"
	"github.com/abhisek/multiq/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "multiq",
	Short: "Conversational multiplication trainer",
	Long:  "Multiq — a terminal trainer for mastering the multiplication tables, with timed quizzes, weak-spot drills, and solve-for-x practice.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runApp(cmd)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides MULTIQ_DB env var)")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(broadcastCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves configuration, letting the --db flag win over
// the config file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		if err := store.EnsureDir(p); err != nil {
			return nil, err
		}
		cfg.DBPath = p
		cfg.Log.Path = p + ".log"
	}
	return cfg, nil
}
