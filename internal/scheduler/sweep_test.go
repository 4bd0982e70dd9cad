package scheduler

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/switchboard/internal/clock"
	"github.com/zulandar/switchboard/internal/db"
	"github.com/zulandar/switchboard/internal/directory"
	"github.com/zulandar/switchboard/internal/models"
	"github.com/zulandar/switchboard/internal/ticket"
	"gorm.io/gorm"
)

type sweepEnv struct {
	db    *gorm.DB
	clk   *clock.FakeClock
	svc   *ticket.Service
	sched *Scheduler
}

func newSweepEnv(t *testing.T) *sweepEnv {
	t.Helper()
	gdb, err := db.ConnectSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(gdb))

	logger, _ := logtest.NewNullLogger()
	clk := clock.Fake(t0)
	svc, err := ticket.New(ticket.Opts{DB: gdb, Clock: clk, Logger: logger})
	require.NoError(t, err)
	sched, err := New(Opts{
		Tickets:    svc,
		Clock:      clk,
		Interval:   30 * time.Minute,
		StaleAfter: 30 * time.Minute,
		Penalty:    0.5,
		Logger:     logger,
	})
	require.NoError(t, err)
	return &sweepEnv{db: gdb, clk: clk, svc: svc, sched: sched}
}

func (e *sweepEnv) agent(t *testing.T, email, status string, score float64) uint {
	t.Helper()
	a, err := directory.RegisterAgent(e.db, directory.RegisterOpts{Email: email})
	require.NoError(t, err)
	require.NoError(t, e.db.Model(&models.Agent{}).Where("user_id = ?", a.UserID).
		Updates(map[string]interface{}{"status": status, "score": score}).Error)
	return a.UserID
}

func (e *sweepEnv) createFor(t *testing.T, email string) *models.Request {
	t.Helper()
	c, err := directory.RegisterCustomer(e.db, directory.RegisterOpts{Email: email})
	require.NoError(t, err)
	req, _, err := e.svc.Create(context.Background(), c.ID)
	require.NoError(t, err)
	return req
}

func (e *sweepEnv) snapshot(t *testing.T) ([]models.Request, []models.Agent) {
	t.Helper()
	var reqs []models.Request
	require.NoError(t, e.db.Order("id").Find(&reqs).Error)
	var agents []models.Agent
	require.NoError(t, e.db.Order("user_id").Find(&agents).Error)
	for i := range agents {
		agents[i].UpdatedAt = time.Time{}
	}
	return reqs, agents
}

func TestSweep_StaleRequestMovesToOtherFreeAgent(t *testing.T) {
	e := newSweepEnv(t)
	a := e.agent(t, "a@example.com", models.AgentFree, 5.0)
	req := e.createFor(t, "carol@example.com")
	require.Equal(t, a, *req.AgentID)
	b := e.agent(t, "b@example.com", models.AgentFree, 3.0)

	e.clk.Advance(31 * time.Minute)
	res, err := e.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{req.ID}, res.Reassigned)

	agentA, err := directory.GetAgent(e.db, a)
	require.NoError(t, err)
	assert.Equal(t, models.AgentOff, agentA.Status)
	assert.InDelta(t, 4.5, agentA.Score, 1e-9)

	agentB, err := directory.GetAgent(e.db, b)
	require.NoError(t, err)
	assert.Equal(t, models.AgentBusy, agentB.Status)

	got, err := e.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAssigned, got.Status)
	assert.Equal(t, b, *got.AgentID)
	assert.True(t, got.AssignedAt.Equal(t0.Add(31*time.Minute)))
}

func TestSweep_StaleRequestRequeuedWithoutFreeAgent(t *testing.T) {
	e := newSweepEnv(t)
	a := e.agent(t, "a@example.com", models.AgentFree, 5.0)
	req := e.createFor(t, "carol@example.com")

	e.clk.Advance(31 * time.Minute)
	res, err := e.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{req.ID}, res.Requeued)

	agentA, err := directory.GetAgent(e.db, a)
	require.NoError(t, err)
	assert.Equal(t, models.AgentOff, agentA.Status)
	assert.InDelta(t, 4.5, agentA.Score, 1e-9)

	got, err := e.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRequested, got.Status)
	assert.Nil(t, got.AgentID)
	assert.Nil(t, got.AssignedAt)
	assert.Equal(t, ticket.MsgRequeued, got.Message)
}

func TestSweep_SecondTickIsNoop(t *testing.T) {
	e := newSweepEnv(t)
	e.agent(t, "a@example.com", models.AgentFree, 5.0)
	e.agent(t, "b@example.com", models.AgentFree, 4.0)
	e.agent(t, "c@example.com", models.AgentFree, 3.0)
	stale := e.createFor(t, "c1@example.com")
	e.clk.Advance(20 * time.Minute)
	fresh := e.createFor(t, "c2@example.com")
	e.clk.Advance(11 * time.Minute)

	res, err := e.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{stale.ID}, res.Reassigned)
	assert.Equal(t, 2, res.Scanned)

	reqsBefore, agentsBefore := e.snapshot(t)
	res, err = e.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Changed())
	assert.Zero(t, res.Stale)
	reqsAfter, agentsAfter := e.snapshot(t)
	assert.Equal(t, reqsBefore, reqsAfter)
	assert.Equal(t, agentsBefore, agentsAfter)

	got, err := e.svc.Get(context.Background(), fresh.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestAssigned, got.Status, "fresh request is untouched")
}

func TestSweep_ConfirmedRequestIsNeverReclaimed(t *testing.T) {
	e := newSweepEnv(t)
	a := e.agent(t, "a@example.com", models.AgentFree, 5.0)
	req := e.createFor(t, "carol@example.com")
	_, err := e.svc.Confirm(context.Background(), "carol@example.com", a)
	require.NoError(t, err)

	e.clk.Advance(2 * time.Hour)
	res, err := e.sched.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Scanned)

	got, err := e.svc.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestConfirmed, got.Status)
}
