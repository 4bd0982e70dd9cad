package ticket

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/metrics"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Create opens a request for a customer. If a FREE agent is available the
// request is ASSIGNED to the policy's pick and the agent becomes BUSY;
// otherwise it is queued as REQUESTED. The returned string is the
// customer-facing status message.
func (s *Service) Create(ctx context.Context, customerID uint) (*models.Request, string, error) {
	var req models.Request

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The customer row lock serializes concurrent creates for one customer.
		customer, err := directory.LockUser(tx, customerID)
		if err != nil {
			return err
		}
		if err := requireRole(customer, models.RoleCustomer, "Failed! Only customers can create request!"); err != nil {
			return err
		}

		var open int64
		if err := tx.Model(&models.Request{}).
			Where("customer_id = ? AND status <> ?", customerID, models.RequestProcessed).
			Count(&open).Error; err != nil {
			return fmt.Errorf("ticket: count open requests: %w", err)
		}
		if open > 0 {
			return apperr.New(apperr.ErrAlreadyHasOpenRequest,
				"Failed to create request. You already have one request on the board!")
		}

		agent, err := s.claimAgent(tx)
		if err != nil {
			return err
		}

		now := s.clock.Now()
		req = models.Request{
			CustomerID: customerID,
			Status:     models.RequestRequested,
			Score:      0,
			IsScored:   false,
			Message:    MsgQueued,
			CreatedAt:  now,
		}
		if agent != nil {
			req.AgentID = &agent.UserID
			req.Status = models.RequestAssigned
			req.AssignedAt = &now
			req.Message = MsgAssigned
		}
		if err := tx.Omit(clause.Associations).Create(&req).Error; err != nil {
			return fmt.Errorf("ticket: create request: %w", err)
		}

		if agent != nil {
			return s.notifyAssigned(tx, &req)
		}
		if err := s.notifier.Notify(tx, customerID, &req.ID, notify.SubjectCreated, req.Message); err != nil {
			return fmt.Errorf("ticket: notify customer %d: %w", customerID, err)
		}
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	outcome := metrics.OutcomeQueued
	if req.AgentID != nil {
		outcome = metrics.OutcomeAssigned
	}
	s.metrics.RequestCreated(outcome)
	s.metrics.Transition(OpCreate)

	fields := logrus.Fields{"request_id": req.ID, "customer_id": customerID, "status": req.Status}
	if req.AgentID != nil {
		fields["agent_id"] = *req.AgentID
	}
	s.opLog(ctx, OpCreate).WithFields(fields).Info("request created")

	return &req, req.Message, nil
}
