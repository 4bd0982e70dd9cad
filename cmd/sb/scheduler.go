package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zulandar/switchboard/internal/lock"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/notify/discord"
	"github.com/zulandar/switchboard/internal/notify/slack"
	"github.com/zulandar/switchboard/internal/scheduler"
)

func newSchedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Stale assignment reclaim commands",
	}

	cmd.AddCommand(newSchedulerRunCmd())
	cmd.AddCommand(newSchedulerTickCmd())
	return cmd
}

func newSchedulerRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the reclaim scheduler in the foreground",
		Long:  "Sweeps for stale ASSIGNED requests on the configured interval or cron schedule until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signalContext(cmd)
			defer stop()

			s, closeFn, err := buildScheduler(ctx, a)
			if err != nil {
				return err
			}
			defer closeFn()
			fmt.Fprintf(cmd.OutOrStdout(), "Scheduler running (stale after %s)\n", a.cfg.Scheduler.StaleAfter)
			return s.Run(ctx)
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func newSchedulerTickCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "tick",
		Short: "Run a single reclaim sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(configPath)
			if err != nil {
				return err
			}
			ctx := context.Background()
			s, closeFn, err := buildScheduler(ctx, a)
			if err != nil {
				return err
			}
			defer closeFn()

			res, err := s.Tick(ctx)
			if err != nil {
				return err
			}
			printTick(cmd.OutOrStdout(), res)
			return nil
		},
	}

	addConfigFlag(cmd, &configPath)
	return cmd
}

func printTick(out io.Writer, res scheduler.TickResult) {
	if res.Contended {
		fmt.Fprintln(out, "Another scheduler holds the lock; nothing to do.")
		return
	}
	fmt.Fprintf(out, "Scanned %d assigned request(s), %d stale\n", res.Scanned, res.Stale)
	fmt.Fprintf(out, "Reassigned: %v\n", res.Reassigned)
	fmt.Fprintf(out, "Requeued:   %v\n", res.Requeued)
	for _, f := range res.Failures {
		fmt.Fprintf(out, "Failed:     request %d: %v\n", f.RequestID, f.Err)
	}
}

// buildScheduler wires the scheduler's optional collaborators from config:
// a Redis lock when redis.url is set and chat alerts for each enabled target.
// The returned func releases the Redis connection.
func buildScheduler(ctx context.Context, a *app) (*scheduler.Scheduler, func(), error) {
	closeFn := func() {}

	var locker lock.Locker = lock.Noop{}
	if a.cfg.Redis.URL != "" {
		client, err := lock.Dial(ctx, a.cfg.Redis.URL)
		if err != nil {
			return nil, closeFn, err
		}
		closeFn = func() { client.Close() }
		rl, err := lock.NewRedis(lock.RedisOpts{Client: client, Key: a.cfg.Redis.LockKey, TTL: a.cfg.Redis.LockTTL})
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		locker = rl
	}

	var targets notify.Multi
	if a.cfg.Notify.Slack.Enabled() {
		b, err := slack.New(slack.Opts{BotToken: a.cfg.Notify.Slack.BotToken, ChannelID: a.cfg.Notify.Slack.ChannelID})
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		targets = append(targets, b)
	}
	if a.cfg.Notify.Discord.Enabled() {
		b, err := discord.New(discord.Opts{BotToken: a.cfg.Notify.Discord.BotToken, ChannelID: a.cfg.Notify.Discord.ChannelID})
		if err != nil {
			closeFn()
			return nil, func() {}, err
		}
		targets = append(targets, b)
	}
	var broadcaster notify.Broadcaster
	if len(targets) > 0 {
		broadcaster = targets
	}

	s, err := scheduler.New(scheduler.Opts{
		Tickets:     a.tickets,
		Interval:    a.cfg.Scheduler.Interval,
		Cron:        a.cfg.Scheduler.Cron,
		StaleAfter:  a.cfg.Scheduler.StaleAfter,
		Penalty:     a.cfg.Scheduler.Penalty,
		Locker:      locker,
		Broadcaster: broadcaster,
		Logger:      a.log,
		Metrics:     a.metrics,
	})
	if err != nil {
		closeFn()
		return nil, func() {}, err
	}
	return s, closeFn, nil
}
