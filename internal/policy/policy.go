// Package policy chooses which available agent receives a request.
package policy

import "github.com/zulandar/switchboard/internal/models"

// Policy picks one agent from a pool of FREE agents. A nil result means no
// agent is available; that is an expected outcome, not an error.
type Policy interface {
	Select(pool []models.Agent) *models.Agent
}

// HighestScore selects the agent with the highest score. Ties go to the lowest
// agent ID so selection is reproducible.
type HighestScore struct{}

// Select implements Policy.
func (HighestScore) Select(pool []models.Agent) *models.Agent {
	var best *models.Agent
	for i := range pool {
		a := &pool[i]
		if best == nil || a.Score > best.Score || (a.Score == best.Score && a.UserID < best.UserID) {
			best = a
		}
	}
	return best
}

// Func adapts a plain function to Policy.
type Func func(pool []models.Agent) *models.Agent

// Select implements Policy.
func (f Func) Select(pool []models.Agent) *models.Agent { return f(pool) }

// Exclude returns pool without the agents whose IDs are listed.
func Exclude(pool []models.Agent, ids ...uint) []models.Agent {
	if len(ids) == 0 {
		return pool
	}
	out := make([]models.Agent, 0, len(pool))
	for _, a := range pool {
		skip := false
		for _, id := range ids {
			if a.UserID == id {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, a)
		}
	}
	return out
}
