package ticket

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/notify"
	"gorm.io/gorm"
)

// Confirm moves the customer's ASSIGNED request to CONFIRMED. Only the agent
// the request is assigned to may confirm it.
func (s *Service) Confirm(ctx context.Context, customerEmail string, agentID uint) (*models.Request, error) {
	var req *models.Request

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agent, err := directory.GetUser(tx, agentID)
		if err != nil {
			return err
		}
		if err := requireRole(agent, models.RoleAgent, "Only agents can confirm request!"); err != nil {
			return err
		}
		customer, err := directory.GetUserByEmail(tx, customerEmail)
		if err != nil {
			return err
		}

		req, err = lockCustomerRequest(tx, customer.ID, models.RequestAssigned)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.New(apperr.ErrNotAssigned,
				"Assigned request mapped with this customer email: %s doesn't exist.", customerEmail)
		}
		if req.AgentID == nil || *req.AgentID != agentID {
			return apperr.New(apperr.ErrNotOwner, "You can't confirm requests of other agents!")
		}

		now := s.clock.Now()
		if err := tx.Model(&models.Request{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
			"status":       models.RequestConfirmed,
			"confirmed_at": now,
			"message":      MsgConfirmed,
		}).Error; err != nil {
			return fmt.Errorf("ticket: confirm request %d: %w", req.ID, err)
		}
		req.Status = models.RequestConfirmed
		req.ConfirmedAt = &now
		req.Message = MsgConfirmed

		if err := s.notifier.Notify(tx, req.CustomerID, &req.ID, notify.SubjectConfirmed, req.Message); err != nil {
			return fmt.Errorf("ticket: notify customer %d: %w", req.CustomerID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(OpConfirm)
	s.opLog(ctx, OpConfirm).WithFields(logrus.Fields{
		"request_id": req.ID, "agent_id": agentID, "customer_id": req.CustomerID,
	}).Info("request confirmed")
	return req, nil
}

// Finish moves the customer's CONFIRMED request to PROCESSED and immediately
// refills the agent with the oldest queued request. The agent only becomes
// FREE when the queue is empty.
func (s *Service) Finish(ctx context.Context, customerEmail string, agentID uint) (*models.Request, error) {
	var req, next *models.Request

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agent, err := directory.GetUser(tx, agentID)
		if err != nil {
			return err
		}
		if err := requireRole(agent, models.RoleAgent, "Only agents can finish request!"); err != nil {
			return err
		}
		customer, err := directory.GetUserByEmail(tx, customerEmail)
		if err != nil {
			return err
		}

		req, err = lockCustomerRequest(tx, customer.ID, models.RequestConfirmed)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.New(apperr.ErrNotConfirmed,
				"Confirmed request mapped with this customer email: %s doesn't exist.", customerEmail)
		}
		if req.AgentID == nil || *req.AgentID != agentID {
			return apperr.New(apperr.ErrNotOwner, "You can't finish requests of other agents!")
		}
		if _, err := directory.LockAgent(tx, agentID); err != nil {
			return err
		}

		now := s.clock.Now()
		if err := tx.Model(&models.Request{}).Where("id = ?", req.ID).Updates(map[string]interface{}{
			"status":      models.RequestProcessed,
			"finished_at": now,
			"message":     MsgProcessed,
		}).Error; err != nil {
			return fmt.Errorf("ticket: finish request %d: %w", req.ID, err)
		}
		req.Status = models.RequestProcessed
		req.FinishedAt = &now
		req.Message = MsgProcessed

		if err := s.notifier.Notify(tx, req.CustomerID, &req.ID, notify.SubjectProcessed, req.Message); err != nil {
			return fmt.Errorf("ticket: notify customer %d: %w", req.CustomerID, err)
		}

		next, err = s.refill(tx, agentID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(OpFinish)
	fields := logrus.Fields{"request_id": req.ID, "agent_id": agentID, "customer_id": req.CustomerID}
	if next != nil {
		fields["next_request_id"] = next.ID
	}
	s.opLog(ctx, OpFinish).WithFields(fields).Info("request finished")
	return req, nil
}

// Delete removes the customer's queued request. Only REQUESTED requests can
// be deleted; the customer email must match the acting customer.
func (s *Service) Delete(ctx context.Context, customerEmail string, customerID uint) error {
	var deleted uint

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := directory.LockUser(tx, customerID)
		if err != nil {
			return err
		}
		if err := requireRole(customer, models.RoleCustomer, "Failed! Only customers can delete request!"); err != nil {
			return err
		}
		if customer.Email != customerEmail {
			return apperr.New(apperr.ErrNotOwner, "Failed! You can't delete other customer's requests!")
		}

		req, err := lockCustomerRequest(tx, customerID, models.RequestRequested)
		if err != nil {
			return err
		}
		if req == nil {
			return apperr.New(apperr.ErrNotDeletable, "Request doesn't exist!")
		}
		if err := tx.Delete(&models.Request{}, req.ID).Error; err != nil {
			return fmt.Errorf("ticket: delete request %d: %w", req.ID, err)
		}
		deleted = req.ID

		if err := s.notifier.Notify(tx, customerID, nil, notify.SubjectDeleted, "Request is deleted."); err != nil {
			return fmt.Errorf("ticket: notify customer %d: %w", customerID, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.Transition(OpDelete)
	s.opLog(ctx, OpDelete).WithFields(logrus.Fields{
		"request_id": deleted, "customer_id": customerID,
	}).Info("request deleted")
	return nil
}
