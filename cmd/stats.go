package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/multiq/internal/store"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		ctx := cmd.Context()
		u, err := st.Users().Get(ctx, cfg.UserID)
		if err != nil {
			return err
		}
		if u == nil || u.TotalQuestions == 0 {
			fmt.Println("No statistics yet. Run `multiq play` first.")
			return nil
		}

		fmt.Printf("%s\n\n", u.DisplayName())
		fmt.Printf("Questions answered: %d\n", u.TotalQuestions)
		fmt.Printf("Correct:            %d\n", u.CorrectAnswers)
		fmt.Printf("Wrong:              %d\n", u.WrongAnswers)
		fmt.Printf("Accuracy:           %.1f%%\n", u.Accuracy())
		fmt.Printf("Current streak:     %d\n", u.CurrentStreak)
		fmt.Printf("Best streak:        %d\n", u.BestStreak)

		spots, err := st.WeakSpots().TopN(ctx, cfg.UserID, 5)
		if err != nil {
			return err
		}
		if len(spots) > 0 {
			fmt.Println("\nWeak spots:")
			for _, s := range spots {
				fmt.Printf("  %d × %d — missed %d times\n", s.A, s.B, s.Count)
			}
		}
		return nil
	},
}
