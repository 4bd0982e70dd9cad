package ticket

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/gorm"
)

// ChangeAgentAvailability toggles an agent between FREE and OFF. Going on
// duty first pulls the oldest queued request, so the agent may come back BUSY
// instead of FREE. BUSY agents cannot toggle.
func (s *Service) ChangeAgentAvailability(ctx context.Context, agentID uint) (*models.Agent, error) {
	var from string
	var assigned *models.Request

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		agent, err := directory.LockAgent(tx, agentID)
		if err != nil {
			return err
		}
		from = agent.Status

		switch agent.Status {
		case models.AgentBusy:
			return apperr.New(apperr.ErrInvalidStateTransition,
				"You are in BUSY status. You can't now change your status manually.")
		case models.AgentFree:
			_, err := directory.SetAgentStatus(tx, agentID, models.AgentFree, models.AgentOff)
			return err
		default:
			assigned, err = s.refill(tx, agentID)
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	agent, err := directory.GetAgent(s.db.WithContext(ctx), agentID)
	if err != nil {
		return nil, err
	}

	s.metrics.Transition(OpAvailability)
	fields := logrus.Fields{"agent_id": agentID, "from": from, "to": agent.Status}
	if assigned != nil {
		fields["request_id"] = assigned.ID
	}
	s.opLog(ctx, OpAvailability).WithFields(fields).Info("agent availability changed")
	return agent, nil
}
