package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/switchboard/internal/models"
)

func agent(id uint, score float64) models.Agent {
	return models.Agent{UserID: id, Status: models.AgentFree, Score: score}
}

func TestHighestScore_EmptyPool(t *testing.T) {
	assert.Nil(t, HighestScore{}.Select(nil))
	assert.Nil(t, HighestScore{}.Select([]models.Agent{}))
}

func TestHighestScore_PicksTopScore(t *testing.T) {
	pool := []models.Agent{agent(1, 3.0), agent(2, 4.5), agent(3, 1.0)}
	got := HighestScore{}.Select(pool)
	require.NotNil(t, got)
	assert.Equal(t, uint(2), got.UserID)
}

func TestHighestScore_TieBreaksOnLowestID(t *testing.T) {
	tests := []struct {
		name string
		pool []models.Agent
		want uint
	}{
		{"ascending ids", []models.Agent{agent(4, 5), agent(7, 5)}, 4},
		{"descending ids", []models.Agent{agent(7, 5), agent(4, 5)}, 4},
		{"tie below top", []models.Agent{agent(2, 1), agent(9, 3), agent(1, 1)}, 9},
		{"negative scores", []models.Agent{agent(5, -0.5), agent(3, -0.5)}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HighestScore{}.Select(tt.pool)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.UserID)
		})
	}
}

func TestHighestScore_ReturnsPoolElement(t *testing.T) {
	pool := []models.Agent{agent(1, 2)}
	got := HighestScore{}.Select(pool)
	require.NotNil(t, got)
	got.Score = 9
	assert.Equal(t, 9.0, pool[0].Score, "Select should point into the pool")
}

func TestFunc(t *testing.T) {
	var p Policy = Func(func(pool []models.Agent) *models.Agent {
		if len(pool) == 0 {
			return nil
		}
		return &pool[len(pool)-1]
	})
	got := p.Select([]models.Agent{agent(1, 9), agent(2, 0)})
	require.NotNil(t, got)
	assert.Equal(t, uint(2), got.UserID)
}

func TestExclude(t *testing.T) {
	pool := []models.Agent{agent(1, 0), agent(2, 0), agent(3, 0)}
	got := Exclude(pool, 2)
	require.Len(t, got, 2)
	assert.Equal(t, uint(1), got[0].UserID)
	assert.Equal(t, uint(3), got[1].UserID)
	assert.Len(t, Exclude(pool), 3)
}
