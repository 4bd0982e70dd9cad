package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/ticket"
)

func newRequestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "request",
		Short: "Request lifecycle commands",
	}

	cmd.AddCommand(newRequestCreateCmd())
	cmd.AddCommand(newRequestConfirmCmd())
	cmd.AddCommand(newRequestFinishCmd())
	cmd.AddCommand(newRequestDeleteCmd())
	cmd.AddCommand(newRequestRateCmd())
	cmd.AddCommand(newRequestListCmd())
	return cmd
}

func newRequestCreateCmd() *cobra.Command {
	var (
		configPath string
		customerID uint
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Open a request for a customer",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			req, msg, err := a.tickets.Create(context.Background(), customerID)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created request %d (%s)\n", req.ID, req.Status)
			fmt.Fprintln(out, msg)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&customerID, "customer", 0, "customer user id (required)")
	cmd.MarkFlagRequired("customer")
	return cmd
}

// newAgentActionCmd builds confirm and finish, which an agent runs against a
// customer's email.
func newAgentActionCmd(use, short, done string, op func(*ticket.Service, context.Context, string, uint) (*models.Request, error)) *cobra.Command {
	var (
		configPath string
		agentID    uint
		email      string
	)

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			req, err := op(a.tickets, context.Background(), email, agentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (request %d)\n", done, req.ID)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&agentID, "agent", 0, "acting agent user id (required)")
	cmd.Flags().StringVar(&email, "email", "", "customer email (required)")
	cmd.MarkFlagRequired("agent")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newRequestConfirmCmd() *cobra.Command {
	return newAgentActionCmd("confirm", "Confirm an assigned request", "Request is confirmed!", (*ticket.Service).Confirm)
}

func newRequestFinishCmd() *cobra.Command {
	return newAgentActionCmd("finish", "Finish a confirmed request", "Request is finished!", (*ticket.Service).Finish)
}

func newRequestDeleteCmd() *cobra.Command {
	var (
		configPath string
		customerID uint
		email      string
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Withdraw a customer's queued request",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			if err := a.tickets.Delete(context.Background(), email, customerID); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Request is deleted.")
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&customerID, "customer", 0, "customer user id (required)")
	cmd.Flags().StringVar(&email, "email", "", "customer email (required)")
	cmd.MarkFlagRequired("customer")
	cmd.MarkFlagRequired("email")
	return cmd
}

func newRequestRateCmd() *cobra.Command {
	var (
		configPath string
		opts       ticket.FeedbackOpts
	)

	cmd := &cobra.Command{
		Use:   "rate",
		Short: "Score a processed request",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			if _, err := a.tickets.SetFeedback(context.Background(), opts); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Feedback score is set to the request.")
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().UintVar(&opts.CustomerID, "customer", 0, "customer user id (required)")
	cmd.Flags().StringVar(&opts.CustomerEmail, "email", "", "customer email (required)")
	cmd.Flags().UintVar(&opts.RequestID, "request", 0, "request id (required)")
	cmd.Flags().Float64Var(&opts.Score, "score", 0, "score between 0 and 5 (required)")
	cmd.MarkFlagRequired("customer")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("request")
	cmd.MarkFlagRequired("score")
	return cmd
}

func newRequestListCmd() *cobra.Command {
	var (
		configPath string
		email      string
		actingID   uint
		dashboard  bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests",
		Long: `Lists every request, or with --email the history visible to --as.

With --dashboard, lists the agent's ASSIGNED and CONFIRMED requests instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()

			var reqs []models.Request
			switch {
			case email == "":
				reqs, err = a.tickets.ListAll(ctx)
			case dashboard:
				reqs, err = a.tickets.AgentDashboard(ctx, email, actingID)
			default:
				reqs, err = a.tickets.History(ctx, email, actingID)
			}
			if err != nil {
				return err
			}
			printRequests(cmd.OutOrStdout(), reqs)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	cmd.Flags().StringVar(&email, "email", "", "whose requests to list")
	cmd.Flags().UintVar(&actingID, "as", 0, "acting user id (required with --email)")
	cmd.Flags().BoolVar(&dashboard, "dashboard", false, "show the agent's active requests")
	return cmd
}

func printRequests(out io.Writer, reqs []models.Request) {
	if len(reqs) == 0 {
		fmt.Fprintln(out, "No requests found.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCUSTOMER\tAGENT\tSCORE\tCREATED")
	for _, r := range reqs {
		agent := "-"
		if r.AgentID != nil {
			agent = fmt.Sprintf("%d", *r.AgentID)
		}
		score := "-"
		if r.IsScored {
			score = fmt.Sprintf("%.1f", r.Score)
		}
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n", r.ID, r.Status, r.CustomerID, agent, score, r.CreatedAt.Format(time.DateTime))
	}
	w.Flush()
}
