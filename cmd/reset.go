package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all learner data",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !resetYes {
			fmt.Printf("This deletes %s. Re-run with --yes to confirm.\n", cfg.DBPath)
			return nil
		}
		if err := os.Remove(cfg.DBPath); err != nil {
			if os.IsNotExist(err) {
				fmt.Println("Nothing to reset.")
				return nil
			}
			return err
		}
		// WAL sidecars, best effort.
		os.Remove(cfg.DBPath + "-wal")
		os.Remove(cfg.DBPath + "-shm")
		fmt.Println("Learner data deleted.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "Skip the confirmation prompt")
}
