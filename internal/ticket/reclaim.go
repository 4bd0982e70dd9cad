package ticket

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"gorm.io/gorm"
)

// Reclaim actions.
const (
	ReclaimSkipped    = metrics.OutcomeSkipped
	ReclaimReassigned = metrics.OutcomeReassigned
	ReclaimRequeued   = metrics.OutcomeRequeued
)

// ReclaimOutcome describes what Reclaim did to one request.
type ReclaimOutcome struct {
	Action    string
	RequestID uint
	FromAgent uint
	ToAgent   *uint
}

// Reclaim handles one ASSIGNED request whose agent has not confirmed within
// staleAfter. The agent is penalized (OFF, score minus penalty) and the
// request is handed to the next FREE agent or returned to the queue.
//
// The request is re-read under lock, so a request that was confirmed, or
// reclaimed by an earlier pass, since the caller listed it is skipped.
func (s *Service) Reclaim(ctx context.Context, requestID uint, staleAfter time.Duration, penalty float64) (ReclaimOutcome, error) {
	out := ReclaimOutcome{Action: ReclaimSkipped, RequestID: requestID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := lockRequest(tx, requestID)
		if err != nil {
			return err
		}
		now := s.clock.Now()
		if req.Status != models.RequestAssigned || req.AgentID == nil || req.AssignedAt == nil {
			return nil
		}
		if now.Sub(*req.AssignedAt) < staleAfter {
			return nil
		}

		from := *req.AgentID
		out.FromAgent = from
		if _, err := directory.LockAgent(tx, from); err != nil {
			return err
		}
		if err := tx.Model(&models.Agent{}).Where("user_id = ?", from).Updates(map[string]interface{}{
			"status": models.AgentOff,
			"score":  gorm.Expr("score - ?", penalty),
		}).Error; err != nil {
			return fmt.Errorf("ticket: penalize agent %d: %w", from, err)
		}
		body := fmt.Sprintf("Request %d was not confirmed in time and has been taken from you. You are now OFF.", req.ID)
		if err := s.notifier.Notify(tx, from, &req.ID, notify.SubjectUnassigned, body); err != nil {
			return fmt.Errorf("ticket: notify agent %d: %w", from, err)
		}

		next, err := s.claimAgent(tx, from)
		if err != nil {
			return err
		}

		if next != nil {
			if err := tx.Model(&models.Request{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
				"agent_id":    next.UserID,
				"assigned_at": now,
				"message":     MsgReassigned,
			}).Error; err != nil {
				return fmt.Errorf("ticket: reassign request %d: %w", req.ID, err)
			}
			req.AgentID = &next.UserID
			req.AssignedAt = &now
			req.Message = MsgReassigned
			if err := s.notifier.Notify(tx, req.CustomerID, &req.ID, notify.SubjectReassigned, req.Message); err != nil {
				return fmt.Errorf("ticket: notify customer %d: %w", req.CustomerID, err)
			}
			agentBody := fmt.Sprintf("Request %d has been assigned to you. Please confirm it.", req.ID)
			if err := s.notifier.Notify(tx, next.UserID, &req.ID, notify.SubjectNewRequest, agentBody); err != nil {
				return fmt.Errorf("ticket: notify agent %d: %w", next.UserID, err)
			}
			out.Action = ReclaimReassigned
			out.ToAgent = &next.UserID
			return nil
		}

		if err := tx.Model(&models.Request{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
			"status":      models.RequestRequested,
			"agent_id":    nil,
			"assigned_at": nil,
			"message":     MsgRequeued,
		}).Error; err != nil {
			return fmt.Errorf("ticket: requeue request %d: %w", req.ID, err)
		}
		if err := s.notifier.Notify(tx, req.CustomerID, &req.ID, notify.SubjectRequeued, MsgRequeued); err != nil {
			return fmt.Errorf("ticket: notify customer %d: %w", req.CustomerID, err)
		}
		out.Action = ReclaimRequeued
		return nil
	})
	if err != nil {
		out.Action = ReclaimSkipped
		out.ToAgent = nil
		return out, err
	}

	if out.Action == ReclaimSkipped {
		return out, nil
	}
	s.metrics.Reclaimed(out.Action)
	s.metrics.Penalized()
	s.metrics.Transition(OpReclaim)

	fields := logrus.Fields{"request_id": requestID, "from_agent": out.FromAgent, "penalty": penalty}
	if out.ToAgent != nil {
		fields["agent_id"] = *out.ToAgent
	}
	s.opLog(ctx, OpReclaim).WithFields(fields).Warn("stale assignment " + out.Action)
	return out, nil
}
