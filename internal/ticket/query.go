package ticket

import (
	"context"
	"errors"
	"fmt"

	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// Get returns a request with its customer and agent loaded.
func (s *Service) Get(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	if err := s.preloaded(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.ErrRequestNotFound, "Request doesn't exist!")
		}
		return nil, fmt.Errorf("ticket: get request %d: %w", id, err)
	}
	return &req, nil
}

// ListAll returns every request, oldest first.
func (s *Service) ListAll(ctx context.Context) ([]models.Request, error) {
	var reqs []models.Request
	if err := s.preloaded(ctx).Order("created_at ASC, id ASC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("ticket: list requests: %w", err)
	}
	return reqs, nil
}

// ListAssigned returns ASSIGNED requests, longest-waiting first.
func (s *Service) ListAssigned(ctx context.Context) ([]models.Request, error) {
	var reqs []models.Request
	if err := s.db.WithContext(ctx).
		Where("status = ?", models.RequestAssigned).
		Order("assigned_at ASC, id ASC").
		Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("ticket: list assigned requests: %w", err)
	}
	return reqs, nil
}

// History returns the request history of the user with the given email.
// Customers see all of their requests, agents see the requests they
// processed. Users may read their own history; admins may read anyone's.
func (s *Service) History(ctx context.Context, email string, actingID uint) ([]models.Request, error) {
	db := s.db.WithContext(ctx)
	target, err := directory.GetUserByEmail(db, email)
	if err != nil {
		return nil, err
	}
	acting, err := directory.GetUser(db, actingID)
	if err != nil {
		return nil, err
	}
	if acting.Email != email && acting.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "You are not allowed to access others data.")
	}

	q := s.preloaded(ctx)
	switch target.Role {
	case models.RoleAgent:
		q = q.Where("agent_id = ? AND status = ?", target.ID, models.RequestProcessed)
	case models.RoleCustomer:
		q = q.Where("customer_id = ?", target.ID)
	default:
		return nil, apperr.New(apperr.Forbidden, "Admins don't have requests!")
	}

	var reqs []models.Request
	if err := q.Order("created_at ASC, id ASC").Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("ticket: history for %s: %w", email, err)
	}
	return reqs, nil
}

// AgentDashboard returns the agent's ASSIGNED and CONFIRMED requests. Only the
// agent itself or an admin may read it.
func (s *Service) AgentDashboard(ctx context.Context, email string, actingID uint) ([]models.Request, error) {
	db := s.db.WithContext(ctx)
	acting, err := directory.GetUser(db, actingID)
	if err != nil {
		return nil, err
	}
	if acting.Email != email && acting.Role != models.RoleAdmin {
		return nil, apperr.New(apperr.Forbidden, "You can't access the agent's dashboard!")
	}
	target, err := directory.GetUserByEmail(db, email)
	if err != nil {
		return nil, err
	}
	if err := requireRole(target, models.RoleAgent, "Only agents have a dashboard!"); err != nil {
		return nil, err
	}

	var reqs []models.Request
	if err := s.preloaded(ctx).
		Where("agent_id = ? AND status IN ?", target.ID,
			[]string{models.RequestAssigned, models.RequestConfirmed}).
		Order("assigned_at ASC, id ASC").
		Find(&reqs).Error; err != nil {
		return nil, fmt.Errorf("ticket: dashboard for %s: %w", email, err)
	}
	return reqs, nil
}

func (s *Service) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Customer").Preload("Agent.User")
}
