package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/multiq/internal/broadcast"
	"github.com/abhisek/multiq/internal/store"
	"github.com/abhisek/multiq/internal/transport"
)

var broadcastAudience string

// broadcastCmd fans an announcement out to a filtered audience. With
// a single local learner this mostly serves multi-profile databases;
// delivery goes to stdout since nobody else has a live session.
var broadcastCmd = &cobra.Command{
	Use:   "broadcast [message]",
	Short: "Send an announcement to an audience of users",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		audience, err := broadcast.ParseAudience(broadcastAudience)
		if err != nil {
			return err
		}

		st, err := store.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()

		sender := transport.SenderFunc(func(_ context.Context, m transport.Message) error {
			fmt.Printf("-> user %d: %s\n", m.UserID, m.Text)
			return nil
		})
		b := broadcast.New(st.Users(), sender, nil, nil)

		res, err := b.Send(cmd.Context(), audience, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Sent: %d, failed: %d\n", res.Sent, res.Failed)
		return nil
	},
}

func init() {
	broadcastCmd.Flags().StringVar(&broadcastAudience, "audience", "all",
		"Audience filter: all, whitelist, non_whitelist, or active_N (days)")
}
