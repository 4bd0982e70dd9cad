package directory

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zulandar/switchboard/internal/apperr"
	"github.com/zulandar/switchboard/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Agent{}, &models.Request{}))
	return db
}

func TestValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		{"carol@example.com", true},
		{"a@b", true},
		{"no-at-sign", false},
		{"@example.com", false},
		{"carol@", false},
		{"carol@exa mple.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidEmail(tt.email))
		})
	}
}

func TestRegisterCustomer(t *testing.T) {
	db := testDB(t)
	u, err := RegisterCustomer(db, RegisterOpts{Email: "carol@example.com", FirstName: "Carol"})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, models.RoleCustomer, u.Role)

	var agents int64
	db.Model(&models.Agent{}).Count(&agents)
	assert.Zero(t, agents, "customers get no agent row")
}

func TestRegisterAgent_StartsOffWithZeroScore(t *testing.T) {
	db := testDB(t)
	a, err := RegisterAgent(db, RegisterOpts{Email: "dave@example.com"})
	require.NoError(t, err)
	assert.Equal(t, models.AgentOff, a.Status)
	assert.Equal(t, 0.0, a.Score)
	assert.Equal(t, "dave@example.com", a.User.Email)
	assert.Equal(t, models.RoleAgent, a.User.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	db := testDB(t)
	_, err := RegisterCustomer(db, RegisterOpts{Email: "carol@example.com"})
	require.NoError(t, err)

	_, err = RegisterAgent(db, RegisterOpts{Email: "carol@example.com"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrEmailTaken))
	assert.True(t, errors.Is(err, apperr.Conflict))
}

func TestRegister_InvalidEmail(t *testing.T) {
	db := testDB(t)
	_, err := RegisterCustomer(db, RegisterOpts{Email: "nope"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidEmail))
}

func TestRegister_UnknownRole(t *testing.T) {
	db := testDB(t)
	_, err := Register(db, "janitor", RegisterOpts{Email: "x@y.z"})
	require.Error(t, err)
	assert.Nil(t, apperr.As(err), "unknown role is a programming error, not a domain error")
}

func TestGetUser_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := GetUser(db, 42)
	assert.True(t, errors.Is(err, apperr.ErrUserNotFound))
	assert.EqualError(t, err, "User with id: 42 doesn't exist.")

	_, err = GetUserByEmail(db, "ghost@example.com")
	assert.True(t, errors.Is(err, apperr.NotFound))

	_, err = GetAgent(db, 42)
	assert.True(t, errors.Is(err, apperr.ErrAgentNotFound))
}

func TestGetAgent_CustomerIsNotAnAgent(t *testing.T) {
	db := testDB(t)
	u, err := RegisterCustomer(db, RegisterOpts{Email: "carol@example.com"})
	require.NoError(t, err)
	_, err = GetAgent(db, u.ID)
	assert.True(t, errors.Is(err, apperr.ErrAgentNotFound))
}

func TestFreePool_Order(t *testing.T) {
	db := testDB(t)
	ids := make([]uint, 0, 4)
	for i, score := range []float64{2, 5, 5, 1} {
		a, err := RegisterAgent(db, RegisterOpts{Email: string(rune('a'+i)) + "@example.com"})
		require.NoError(t, err)
		db.Model(&models.Agent{}).Where("user_id = ?", a.UserID).
			Updates(map[string]interface{}{"status": models.AgentFree, "score": score})
		ids = append(ids, a.UserID)
	}
	// One agent is busy and must not appear.
	db.Model(&models.Agent{}).Where("user_id = ?", ids[3]).Update("status", models.AgentBusy)

	pool, err := FreePool(db)
	require.NoError(t, err)
	require.Len(t, pool, 3)
	assert.Equal(t, []uint{ids[1], ids[2], ids[0]}, []uint{pool[0].UserID, pool[1].UserID, pool[2].UserID})
}

func TestFreePool_LocksRowsOnMySQL(t *testing.T) {
	gdb, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "switchboard:secret@tcp(127.0.0.1:3306)/switchboard",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DryRun: true, DisableAutomaticPing: true})
	require.NoError(t, err)

	var stmts []string
	require.NoError(t, gdb.Callback().Query().After("gorm:query").Register("capture_sql", func(d *gorm.DB) {
		stmts = append(stmts, d.Statement.SQL.String())
	}))

	_, err = FreePool(gdb)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	assert.Contains(t, stmts[0], "FOR UPDATE")
	assert.Contains(t, stmts[0], "ORDER BY score DESC, user_id ASC")
}

func TestSetAgentStatus_Conditional(t *testing.T) {
	db := testDB(t)
	a, err := RegisterAgent(db, RegisterOpts{Email: "dave@example.com"})
	require.NoError(t, err)

	changed, err := SetAgentStatus(db, a.UserID, models.AgentFree, models.AgentBusy)
	require.NoError(t, err)
	assert.False(t, changed, "agent is OFF, conditional FREE->BUSY must not apply")

	changed, err = SetAgentStatus(db, a.UserID, "", models.AgentFree)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = SetAgentStatus(db, a.UserID, models.AgentFree, models.AgentBusy)
	require.NoError(t, err)
	assert.True(t, changed)

	got, err := GetAgent(db, a.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.AgentBusy, got.Status)
}

func TestListUsersAndAgents(t *testing.T) {
	db := testDB(t)
	_, err := RegisterCustomer(db, RegisterOpts{Email: "carol@example.com"})
	require.NoError(t, err)
	_, err = RegisterAgent(db, RegisterOpts{Email: "dave@example.com"})
	require.NoError(t, err)

	all, err := ListUsers(db, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	customers, err := ListUsers(db, models.RoleCustomer)
	require.NoError(t, err)
	require.Len(t, customers, 1)
	assert.Equal(t, "carol@example.com", customers[0].Email)

	off, err := ListAgents(db, models.AgentOff)
	require.NoError(t, err)
	require.Len(t, off, 1)
	assert.Equal(t, "dave@example.com", off[0].User.Email)

	free, err := ListAgents(db, models.AgentFree)
	require.NoError(t, err)
	assert.Empty(t, free)
}

func TestLockUserAndAgent(t *testing.T) {
	db := testDB(t)
	a, err := RegisterAgent(db, RegisterOpts{Email: "dave@example.com"})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		u, err := LockUser(tx, a.UserID)
		if err != nil {
			return err
		}
		assert.Equal(t, "dave@example.com", u.Email)
		locked, err := LockAgent(tx, a.UserID)
		if err != nil {
			return err
		}
		assert.Equal(t, models.AgentOff, locked.Status)
		return nil
	})
	require.NoError(t, err)
}
