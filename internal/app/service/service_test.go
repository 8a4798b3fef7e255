package service

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"server-reward-engine/config"
	"server-reward-engine/internal/app/group"
	"server-reward-engine/internal/app/reward"
	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/db"
	"server-reward-engine/internal/pkg/metrics"
)

func setup(t *testing.T) (*gorm.DB, *reward.Engine) {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb, reward.New(gdb, reward.Options{Metrics: metrics.Reward()})
}

func TestRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, e := setup(t)
	r := NewRouter(e)

	ctx := context.Background()
	cu, err := e.Register(ctx, reward.RegisterRequest{Phone: "100"})
	require.NoError(t, err)
	_, err = e.Accumulate(ctx, cu.ID, decimal.NewFromInt(1500), nil)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "reward_slots_created_total")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, fmt.Sprintf("/customers/%d", cu.ID), nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouterRecoversPanic(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, e := setup(t)
	r := NewRouter(e)
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"code":500,"msg":"server error"}`, w.Body.String())
}

func TestJobs(t *testing.T) {
	defer group.Flush()
	gdb, e := setup(t)
	ctx := context.Background()
	a, err := e.Register(ctx, reward.RegisterRequest{Phone: "100"})
	require.NoError(t, err)
	b, err := e.Register(ctx, reward.RegisterRequest{Phone: "200", ReferralCode: a.ReferralCode})
	require.NoError(t, err)
	_, err = e.Accumulate(ctx, b.ID, decimal.NewFromInt(1000), nil)
	require.NoError(t, err)

	SnapshotJob(e)
	snap, err := dao.RewardSnapshot.GetLastRecord(gdb)
	require.NoError(t, err)
	assert.True(t, snap.TotalRewards.Equal(decimal.NewFromInt(50)))

	SweepJob(e, 10)

	RelationJob(gdb)
	assert.Equal(t, []uint64{a.ID}, group.Roots())
	assert.Equal(t, []uint64{b.ID}, group.GetDownLineUsers(a.ID))
}

func TestRewardTickerRejectsBadSchedule(t *testing.T) {
	gdb, e := setup(t)
	old := config.Reward
	defer func() { config.Reward = old }()

	config.Reward.SnapshotSchedule = "not a schedule"
	assert.Error(t, RewardTicker(gdb, e))
}
