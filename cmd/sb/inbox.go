package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/notify"
)

func newInboxCmd() *cobra.Command {
	var (
		configPath string
		userID     uint
		ack        uint
	)

	cmd := &cobra.Command{
		Use:   "inbox",
		Short: "Show a user's unread notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if ack != 0 {
				if err := notify.Acknowledge(gormDB, ack); err != nil {
					return err
				}
				fmt.Fprintf(out, "Acknowledged notification %d\n", ack)
				return nil
			}

			inbox, err := notify.Inbox(gormDB, userID)
			if err != nil {
				return err
			}
			if len(inbox) == 0 {
				fmt.Fprintln(out, "Inbox is empty.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSUBJECT\tBODY\tAT")
			for _, n := range inbox {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", n.ID, n.Subject, n.Body, n.CreatedAt.Format(time.DateTime))
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&userID, "user", 0, "user id")
	cmd.Flags().UintVar(&ack, "ack", 0, "acknowledge the notification with this id")
	return cmd
}
