// Package ticket is the request lifecycle engine. It owns every transition of
// Request.Status and Agent.Status: creation with immediate assignment,
// confirmation, completion with refill-before-free, deletion, feedback
// scoring, agent availability toggling and the stale-assignment reclaim used
// by the scheduler.
//
// Every operation runs as a single database transaction. Agents are claimed
// with a conditional FREE->BUSY update so that concurrent callers racing for
// the same agent serialize on the row: the first committer wins and the loser
// re-reads the pool.
package ticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/clock"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"github.com/zulandar/switchboard/internal/policy"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Customer-facing status messages stored on Request.Message.
const (
	MsgQueued     = "Request is created. Please, wait until it is assigned to a free agent."
	MsgAssigned   = "Request is assigned to the agent. Please, wait until agent confirms the request."
	MsgConfirmed  = "Your request is confirmed by the agent. You will be contacted soon."
	MsgProcessed  = "Your request has been successfully processed."
	MsgReassigned = "As waiting time for your agent is expired, we assigned you to new agent. Please, wait until your request is confirmed by the agent."
	MsgRequeued   = "Waiting time for your agent is expired. We reassign your request to new agent as soon as an agent will be available."
)

// Scoring bounds for customer feedback.
const (
	MinScore = 0.0
	MaxScore = 5.0
)

// Operation names used in logs and metrics.
const (
	OpCreate       = "create"
	OpConfirm      = "confirm"
	OpFinish       = "finish"
	OpDelete       = "delete"
	OpFeedback     = "feedback"
	OpAvailability = "availability"
	OpReclaim      = "reclaim"
)

// Opts configures a Service.
type Opts struct {
	DB       *gorm.DB
	Clock    clock.Clock        // defaults to the wall clock
	Policy   policy.Policy      // defaults to policy.HighestScore
	Notifier notify.Notifier    // defaults to notify.InboxNotifier
	Logger   logrus.FieldLogger // defaults to logrus.StandardLogger()
	Metrics  *metrics.Metrics   // optional
}

// Service implements the request lifecycle.
type Service struct {
	db       *gorm.DB
	clock    clock.Clock
	policy   policy.Policy
	notifier notify.Notifier
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

// New creates a Service.
func New(opts Opts) (*Service, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("ticket: db is required")
	}
	s := &Service{
		db:       opts.DB,
		clock:    opts.Clock,
		policy:   opts.Policy,
		notifier: opts.Notifier,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.policy == nil {
		s.policy = policy.HighestScore{}
	}
	if s.notifier == nil {
		s.notifier = notify.InboxNotifier{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s, nil
}

// Clock returns the service's time source.
func (s *Service) Clock() clock.Clock { return s.clock }

// claimAgent selects an agent from the FREE pool and marks it BUSY. An agent
// lost to a concurrent claim is excluded and the pool re-read, so the loop
// ends once the claim succeeds or the policy finds nobody left. It returns
// nil only when no FREE agent remains.
func (s *Service) claimAgent(tx *gorm.DB, exclude ...uint) (*models.Agent, error) {
	skip := append([]uint(nil), exclude...)
	for attempt := 1; ; attempt++ {
		pool, err := directory.FreePool(tx)
		if err != nil {
			return nil, err
		}
		pick := s.policy.Select(policy.Exclude(pool, skip...))
		if pick == nil {
			return nil, nil
		}
		ok, err := directory.SetAgentStatus(tx, pick.UserID, models.AgentFree, models.AgentBusy)
		if err != nil {
			return nil, err
		}
		if ok {
			picked := *pick
			picked.Status = models.AgentBusy
			return &picked, nil
		}
		s.log.WithFields(logrus.Fields{"agent_id": pick.UserID, "attempt": attempt}).
			Debug("agent claimed concurrently, re-reading pool")
		skip = append(skip, pick.UserID)
	}
}

// oldestQueued locks and returns the oldest unassigned request, or nil.
func oldestQueued(tx *gorm.DB) (*models.Request, error) {
	var req models.Request
	result := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Where("status = ? AND agent_id IS NULL", models.RequestRequested).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&req)
	if result.Error != nil {
		return nil, fmt.Errorf("ticket: find queued request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &req, nil
}

// refill hands the oldest queued request to agentID, which must already be
// BUSY or about to become so. When the queue is empty the agent becomes FREE.
// It returns the request that was assigned, if any.
//
// Setting FREE waits on any transaction holding a FreePool lock, and such a
// transaction may have just queued a request after finding no FREE agent. The
// queue is read again after the update to pick that request up.
func (s *Service) refill(tx *gorm.DB, agentID uint) (*models.Request, error) {
	next, err := oldestQueued(tx)
	if err != nil {
		return nil, err
	}
	if next == nil {
		if _, err := directory.SetAgentStatus(tx, agentID, "", models.AgentFree); err != nil {
			return nil, err
		}
		if next, err = oldestQueued(tx); err != nil || next == nil {
			return nil, err
		}
	}

	if _, err := directory.SetAgentStatus(tx, agentID, "", models.AgentBusy); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if err := tx.Model(&models.Request{}).Where("id = ?", next.ID).Updates(map[string]interface{}{
		"status":      models.RequestAssigned,
		"agent_id":    agentID,
		"assigned_at": now,
		"message":     MsgAssigned,
	}).Error; err != nil {
		return nil, fmt.Errorf("ticket: assign request %d: %w", next.ID, err)
	}
	next.Status = models.RequestAssigned
	next.AgentID = &agentID
	next.AssignedAt = &now
	next.Message = MsgAssigned

	if err := s.notifyAssigned(tx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// notifyAssigned tells both parties about a new assignment.
func (s *Service) notifyAssigned(tx *gorm.DB, req *models.Request) error {
	if err := s.notifier.Notify(tx, req.CustomerID, &req.ID, notify.SubjectAssigned, req.Message); err != nil {
		return fmt.Errorf("ticket: notify customer %d: %w", req.CustomerID, err)
	}
	body := fmt.Sprintf("Request %d has been assigned to you. Please confirm it.", req.ID)
	if err := s.notifier.Notify(tx, *req.AgentID, &req.ID, notify.SubjectNewRequest, body); err != nil {
		return fmt.Errorf("ticket: notify agent %d: %w", *req.AgentID, err)
	}
	return nil
}

// lockRequest reads a request by ID with FOR UPDATE.
func lockRequest(tx *gorm.DB, id uint) (*models.Request, error) {
	var req models.Request
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrRequestNotFound, "Request doesn't exist!")
		}
		return nil, fmt.Errorf("ticket: lock request %d: %w", id, err)
	}
	return &req, nil
}

// lockCustomerRequest locks the customer's request in the given status, or
// returns nil when there is none.
func lockCustomerRequest(tx *gorm.DB, customerID uint, status string) (*models.Request, error) {
	var req models.Request
	result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("customer_id = ? AND status = ?", customerID, status).
		Order("id ASC").
		Limit(1).
		Find(&req)
	if result.Error != nil {
		return nil, fmt.Errorf("ticket: find %s request for customer %d: %w", status, customerID, result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &req, nil
}

// requireRole returns ErrWrongRole with msg unless u has role.
func requireRole(u *models.User, role, msg string) error {
	if u.Role != role {
		return apperr.New(apperr.ErrWrongRole, "%s", msg)
	}
	return nil
}

func (s *Service) opLog(ctx context.Context, op string) logrus.FieldLogger {
	l := s.log.WithField("op", op)
	if id, ok := ctx.Value(requestIDKey{}).(string); ok && id != "" {
		l = l.WithField("trace_id", id)
	}
	return l
}

type requestIDKey struct{}

// WithTraceID returns a context that tags lifecycle log lines with id.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}
