package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/directory"
)

func newAgentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Agent availability commands",
	}

	cmd.AddCommand(newAgentListCmd())
	cmd.AddCommand(newAgentToggleCmd())
	return cmd
}

func newAgentListCmd() *cobra.Command {
	var (
		configPath string
		status     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agents by score",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, gormDB, err := connectFromConfig(configPath)
			if err != nil {
				return err
			}
			agents, err := directory.ListAgents(gormDB, status)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(agents) == 0 {
				fmt.Fprintln(out, "No agents found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tSTATUS\tSCORE")
			for _, a := range agents {
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2f\n", a.UserID, a.User.Email, a.Status, a.Score)
			}
			return w.Flush()
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&status, "status", "", "filter by status (FREE, BUSY, OFF)")
	return cmd
}

func newAgentToggleCmd() *cobra.Command {
	var (
		configPath string
		agentID    uint
	)

	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Toggle an agent between FREE and OFF",
		Long:  "Switches a FREE agent OFF, or an OFF agent on duty. Coming on duty picks up the oldest queued request. BUSY agents cannot toggle.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			agent, err := a.tickets.ChangeAgentAvailability(context.Background(), agentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Agent %d is now %s\n", agent.UserID, agent.Status)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&agentID, "id", 0, "agent user id (required)")
	cmd.MarkFlagRequired("id")
	return cmd
}
