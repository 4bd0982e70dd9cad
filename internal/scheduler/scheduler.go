// Package scheduler runs the periodic sweep that reclaims stale assignments:
// requests left ASSIGNED without confirmation for longer than the staleness
// threshold are handed to another agent or returned to the queue.
//
// The sweep is a scan over stored state rather than per-request timers, so a
// restarted process picks up exactly where the previous one left off. Tick
// frequency and staleness threshold are independent settings.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/clock"
	"github.com/zulandar/switchboard/internal/lock"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/ticket"
)

// Defaults used when Opts leaves a duration unset.
const (
	DefaultInterval   = 30 * time.Minute
	DefaultStaleAfter = 30 * time.Minute
)

// cronParser accepts standard 5-field expressions and @descriptors.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Tickets is the slice of the lifecycle engine the scheduler drives.
type Tickets interface {
	ListAssigned(ctx context.Context) ([]models.Request, error)
	Reclaim(ctx context.Context, requestID uint, staleAfter time.Duration, penalty float64) (ticket.ReclaimOutcome, error)
}

// Opts configures a Scheduler.
type Opts struct {
	Tickets     Tickets
	Clock       clock.Clock        // defaults to the wall clock
	Interval    time.Duration      // time between ticks; ignored when Cron is set
	Cron        string             // optional cron expression for tick times
	StaleAfter  time.Duration      // how long a request may stay ASSIGNED
	Penalty     float64            // score deducted from an unresponsive agent
	Locker      lock.Locker        // defaults to lock.Noop
	Broadcaster notify.Broadcaster // optional
	Logger      logrus.FieldLogger // defaults to logrus.StandardLogger()
	Metrics     *metrics.Metrics   // optional
}

// Scheduler reclaims stale assignments on a timer.
type Scheduler struct {
	tickets     Tickets
	clock       clock.Clock
	interval    time.Duration
	schedule    cron.Schedule
	staleAfter  time.Duration
	penalty     float64
	locker      lock.Locker
	broadcaster notify.Broadcaster
	log         logrus.FieldLogger
	metrics     *metrics.Metrics
}

// Failure records a request the tick could not process.
type Failure struct {
	RequestID uint
	Err       error
}

// TickResult summarizes one sweep.
type TickResult struct {
	ID         string
	Contended  bool // another instance held the lock; nothing was scanned
	Scanned    int
	Stale      int
	Reassigned []uint
	Requeued   []uint
	Skipped    int
	Failures   []Failure
}

// Changed reports whether the tick modified any request.
func (r TickResult) Changed() bool {
	return len(r.Reassigned) > 0 || len(r.Requeued) > 0
}

// New creates a Scheduler.
func New(opts Opts) (*Scheduler, error) {
	if opts.Tickets == nil {
		return nil, fmt.Errorf("scheduler: tickets is required")
	}
	if opts.Interval < 0 || opts.StaleAfter < 0 || opts.Penalty < 0 {
		return nil, fmt.Errorf("scheduler: interval, stale threshold and penalty must not be negative")
	}

	s := &Scheduler{
		tickets:     opts.Tickets,
		clock:       opts.Clock,
		interval:    opts.Interval,
		staleAfter:  opts.StaleAfter,
		penalty:     opts.Penalty,
		locker:      opts.Locker,
		broadcaster: opts.Broadcaster,
		log:         opts.Logger,
		metrics:     opts.Metrics,
	}
	if opts.Cron != "" {
		sched, err := cronParser.Parse(opts.Cron)
		if err != nil {
			return nil, fmt.Errorf("scheduler: parse cron %q: %w", opts.Cron, err)
		}
		s.schedule = sched
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.interval == 0 {
		s.interval = DefaultInterval
	}
	if s.staleAfter == 0 {
		s.staleAfter = DefaultStaleAfter
	}
	if s.locker == nil {
		s.locker = lock.Noop{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s, nil
}

// Run ticks once immediately and then on every interval (or cron fire) until
// ctx is cancelled. Tick errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.WithFields(logrus.Fields{
		"interval":    s.interval.String(),
		"cron":        s.schedule != nil,
		"stale_after": s.staleAfter.String(),
		"penalty":     s.penalty,
	}).Info("scheduler starting")

	for {
		if _, err := s.Tick(ctx); err != nil {
			s.log.WithError(err).Error("scheduler tick failed")
		}

		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return nil
		case <-s.clock.After(s.nextWait()):
		}
	}
}

// nextWait returns how long to sleep before the next tick.
func (s *Scheduler) nextWait() time.Duration {
	if s.schedule == nil {
		return s.interval
	}
	now := s.clock.Now()
	d := s.schedule.Next(now).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Tick runs one sweep. Requests are processed independently: a failure on
// one is recorded in the result and the sweep moves on. Tick returns an error
// only when the sweep could not start.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	res := TickResult{ID: uuid.NewString()}
	log := s.log.WithField("tick", res.ID)
	start := time.Now()
	defer func() { s.metrics.ObserveTick(time.Since(start)) }()

	ok, err := s.locker.TryLock(ctx)
	if err != nil {
		return res, fmt.Errorf("scheduler: acquire lock: %w", err)
	}
	if !ok {
		res.Contended = true
		s.metrics.LockSkipped()
		log.Info("scheduler lock held elsewhere, skipping tick")
		return res, nil
	}
	defer func() {
		if err := s.locker.Unlock(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warn("scheduler lock release failed")
		}
	}()

	assigned, err := s.tickets.ListAssigned(ctx)
	if err != nil {
		return res, fmt.Errorf("scheduler: list assigned: %w", err)
	}

	now := s.clock.Now()
	for _, req := range assigned {
		res.Scanned++
		if req.AssignedAt == nil || now.Sub(*req.AssignedAt) < s.staleAfter {
			continue
		}
		res.Stale++

		out, err := s.tickets.Reclaim(ctx, req.ID, s.staleAfter, s.penalty)
		if err != nil {
			res.Failures = append(res.Failures, Failure{RequestID: req.ID, Err: err})
			s.metrics.TickFailed()
			log.WithError(err).WithField("request_id", req.ID).Error("reclaim failed")
			continue
		}
		switch out.Action {
		case ticket.ReclaimReassigned:
			res.Reassigned = append(res.Reassigned, req.ID)
		case ticket.ReclaimRequeued:
			res.Requeued = append(res.Requeued, req.ID)
		default:
			res.Skipped++
		}
	}

	log.WithFields(logrus.Fields{
		"scanned":    res.Scanned,
		"stale":      res.Stale,
		"reassigned": len(res.Reassigned),
		"requeued":   len(res.Requeued),
		"failed":     len(res.Failures),
	}).Info("scheduler tick complete")

	if res.Changed() || len(res.Failures) > 0 {
		s.broadcast(ctx, log, res)
	}
	return res, nil
}

func (s *Scheduler) broadcast(ctx context.Context, log logrus.FieldLogger, res TickResult) {
	if s.broadcaster == nil {
		return
	}
	alert := notify.Alert{
		Title:    fmt.Sprintf("Reclaimed %d stale assignment(s)", len(res.Reassigned)+len(res.Requeued)),
		Body:     fmt.Sprintf("Agents who did not confirm within %s were set OFF and penalized %.2f.", s.staleAfter, s.penalty),
		Severity: notify.SeverityWarning,
		Fields: []notify.Field{
			{Name: "Reassigned", Value: strconv.Itoa(len(res.Reassigned)), Short: true},
			{Name: "Requeued", Value: strconv.Itoa(len(res.Requeued)), Short: true},
			{Name: "Tick", Value: res.ID},
		},
	}
	if len(res.Failures) > 0 {
		alert.Severity = notify.SeverityError
		alert.Fields = append(alert.Fields, notify.Field{
			Name: "Failed", Value: strconv.Itoa(len(res.Failures)), Short: true,
		})
	}
	if err := s.broadcaster.Broadcast(ctx, alert); err != nil {
		log.WithError(err).Warn("scheduler alert broadcast failed")
	}
}
