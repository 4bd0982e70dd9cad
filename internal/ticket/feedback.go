package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// FeedbackOpts identifies the rating customer, the request and the score.
type FeedbackOpts struct {
	CustomerID    uint    `json:"customerId"`
	CustomerEmail string  `json:"customerEmail"`
	RequestID     uint    `json:"requestId"`
	Score         float64 `json:"score"`
}

// SetFeedback records a customer's score on their own PROCESSED request and
// recomputes the handling agent's score as the mean over every scored
// PROCESSED request it has handled. Re-rating a request replaces the old
// score.
func (s *Service) SetFeedback(ctx context.Context, opts FeedbackOpts) (*models.Request, error) {
	if math.IsNaN(opts.Score) || math.IsInf(opts.Score, 0) || opts.Score < MinScore || opts.Score > MaxScore {
		return nil, apperr.New(apperr.ErrInvalidScore, "Feedback score must be between %g and %g.", MinScore, MaxScore)
	}

	var req *models.Request
	var agentScore float64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := directory.GetUser(tx, opts.CustomerID)
		if err != nil {
			return err
		}
		if err := requireRole(customer, models.RoleCustomer, "Failed! Only customers can set request!"); err != nil {
			return err
		}
		if customer.Email != opts.CustomerEmail {
			return apperr.New(apperr.ErrNotOwner, "Failed! You can't set feedback for other customer's requests!")
		}

		req, err = lockRequest(tx, opts.RequestID)
		if err != nil {
			return err
		}
		if req.CustomerID != opts.CustomerID {
			return apperr.New(apperr.ErrNotOwner, "Failed! Request doesn't belong to you!")
		}
		if req.Status != models.RequestProcessed {
			return apperr.New(apperr.ErrNotProcessed, "You can set feedback score only to PROCESSED requests.")
		}
		if req.AgentID == nil {
			return fmt.Errorf("ticket: processed request %d has no agent", req.ID)
		}

		if err := tx.Model(&models.Request{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
			"score":     opts.Score,
			"is_scored": true,
		}).Error; err != nil {
			return fmt.Errorf("ticket: score request %d: %w", req.ID, err)
		}
		req.Score = opts.Score
		req.IsScored = true

		if _, err := directory.LockAgent(tx, *req.AgentID); err != nil {
			return err
		}
		agentScore, err = recomputeScore(tx, *req.AgentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(OpFeedback)
	s.opLog(ctx, OpFeedback).WithFields(logrus.Fields{
		"request_id":  req.ID,
		"customer_id": opts.CustomerID,
		"agent_id":    *req.AgentID,
		"score":       opts.Score,
		"agent_score": agentScore,
	}).Info("feedback recorded")
	return req, nil
}

// recomputeScore sets the agent's score to the mean feedback over all of its
// scored PROCESSED requests, computed fresh from the store.
func recomputeScore(tx *gorm.DB, agentID uint) (float64, error) {
	var avg sql.NullFloat64
	if err := tx.Model(&models.Request{}).
		Select("AVG(score)").
		Where("agent_id = ? AND status = ? AND is_scored = ?", agentID, models.RequestProcessed, true).
		Scan(&avg).Error; err != nil {
		return 0, fmt.Errorf("ticket: average score for agent %d: %w", agentID, err)
	}
	if !avg.Valid {
		return 0, fmt.Errorf("ticket: agent %d has no scored requests", agentID)
	}
	if err := tx.Model(&models.Agent{}).Where("user_id = ?", agentID).
		Update("score", avg.Float64).Error; err != nil {
		return 0, fmt.Errorf("ticket: update agent %d score: %w", agentID, err)
	}
	return avg.Float64, nil
}
