package dao

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"server-reward-engine/config"
	"server-reward-engine/internal/db"
	"server-reward-engine/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		MaxOpenConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return gdb
}

func newCustomer(t *testing.T, gdb *gorm.DB, phone string, referredBy *uint64) model.Customer {
	t.Helper()
	c := model.Customer{Phone: phone, ReferralCode: "RC" + phone, ReferredBy: referredBy}
	require.NoError(t, Customer.Create(gdb, &c))
	return c
}

func TestSequenceNext(t *testing.T) {
	gdb := setupTestDB(t)

	cur, err := Sequence.Current(gdb, GlobalSlotSequence)
	require.NoError(t, err)
	assert.Zero(t, cur)

	for want := int64(1); want <= 3; want++ {
		n, err := Sequence.Next(gdb, GlobalSlotSequence)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}
	cur, err = Sequence.Current(gdb, GlobalSlotSequence)
	require.NoError(t, err)
	assert.Equal(t, int64(3), cur)

	// numbers handed out inside a rolled back transaction are given back
	err = gdb.Transaction(func(tx *gorm.DB) error {
		n, err := Sequence.Next(tx, GlobalSlotSequence)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		return fmt.Errorf("rollback")
	})
	require.Error(t, err)
	n, err := Sequence.Next(gdb, GlobalSlotSequence)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	other, err := Sequence.Next(gdb, "other")
	require.NoError(t, err)
	assert.Equal(t, int64(1), other)
}

func TestCustomerSaveVersion(t *testing.T) {
	gdb := setupTestDB(t)
	c := newCustomer(t, gdb, "100", nil)

	stale := c
	c.TotalRewards = decimal.NewFromInt(800)
	require.NoError(t, Customer.Save(gdb, &c))
	assert.Equal(t, int64(1), c.Version)

	stale.Balance = decimal.NewFromInt(1)
	assert.ErrorIs(t, Customer.Save(gdb, &stale), ErrStaleVersion)

	got, err := Customer.GetForUpdate(gdb, c.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalRewards.Equal(decimal.NewFromInt(800)))
	assert.True(t, got.Balance.IsZero())
}

func TestCustomerQueries(t *testing.T) {
	gdb := setupTestDB(t)
	country := uint64(50)
	a := newCustomer(t, gdb, "100", nil)
	b := newCustomer(t, gdb, "200", &a.ID)
	c := newCustomer(t, gdb, "300", &a.ID)
	require.NoError(t, gdb.Model(&model.Customer{}).Where("id = ?", c.ID).Updates(map[string]interface{}{
		"country_id":          country,
		"global_reward_slots": 3,
		"accumulated_points":  decimal.NewFromInt(20),
		"total_rewards":       decimal.RequireFromString("12.5"),
	}).Error)

	refs, err := Customer.ListByReferrer(gdb, a.ID)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, b.ID, refs[0].ID)

	top, err := Customer.TopBySlots(gdb, 1, nil)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, c.ID, top[0].ID)

	inCountry, err := Customer.ListByCountry(gdb, &country, 0, 10)
	require.NoError(t, err)
	require.Len(t, inCountry, 1)

	page, err := Customer.ListByCountry(gdb, nil, a.ID, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, b.ID, page[0].ID)

	edges, err := Customer.ListReferralEdges(gdb)
	require.NoError(t, err)
	require.Len(t, edges, 3)
	assert.Nil(t, edges[0].ReferredBy)
	require.NotNil(t, edges[2].ReferredBy)
	assert.Equal(t, a.ID, *edges[2].ReferredBy)

	totals, err := Customer.Totals(gdb, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), totals.Customers)
	assert.Equal(t, int64(1), totals.ActiveCustomers)
	assert.Equal(t, int64(3), totals.Slots)
	assert.True(t, totals.TotalRewards.Equal(decimal.RequireFromString("12.5")))

	totals, err = Customer.Totals(gdb, new(uint64))
	require.NoError(t, err)
	assert.Zero(t, totals.Customers)
	assert.True(t, totals.TotalRewards.IsZero())
}

func TestRewardSlotListPending(t *testing.T) {
	gdb := setupTestDB(t)
	owner := newCustomer(t, gdb, "100", nil)
	for _, s := range []model.RewardSlot{
		{CustomerID: owner.ID, GlobalNumber: 5, CompletedTiers: 0},
		{CustomerID: owner.ID, GlobalNumber: 6, CompletedTiers: 1},
		{CustomerID: owner.ID, GlobalNumber: 7, CompletedTiers: 0},
		{CustomerID: owner.ID, GlobalNumber: 481, CompletedTiers: 3},
		{CustomerID: owner.ID, GlobalNumber: 482, CompletedTiers: 4},
	} {
		s := s
		require.NoError(t, RewardSlot.Create(gdb, &s))
	}

	pending, err := RewardSlot.ListPending(gdb, []int64{6, 30, 120, 480}, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, int64(7), pending[0].GlobalNumber)
	assert.Equal(t, int64(481), pending[1].GlobalNumber)

	n, err := RewardSlot.CountReachedTier(gdb, 3, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sum, err := RewardSlot.SumCompletedTiers(gdb, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(8), sum)
}

func TestPointTransactionQuery(t *testing.T) {
	gdb := setupTestDB(t)
	c := newCustomer(t, gdb, "100", nil)
	merchant := uint64(9)
	for _, tr := range []model.PointTransaction{
		{CustomerID: &c.ID, Type: model.TxPurchase, Points: decimal.NewFromInt(10)},
		{CustomerID: &c.ID, MerchantID: &merchant, Type: model.TxPurchase, Points: decimal.NewFromInt(20)},
		{MerchantID: &merchant, Type: model.TxRewardPayout, Points: decimal.NewFromInt(3)},
	} {
		tr := tr
		require.NoError(t, PointTransaction.Append(gdb, &tr))
	}

	ts, err := PointTransaction.Query(gdb, TxFilter{CustomerID: &c.ID})
	require.NoError(t, err)
	require.Len(t, ts, 2)
	assert.True(t, ts[0].Points.Equal(decimal.NewFromInt(20)))

	ts, err = PointTransaction.Query(gdb, TxFilter{MerchantID: &merchant, Type: model.TxRewardPayout})
	require.NoError(t, err)
	assert.Len(t, ts, 1)

	ts, err = PointTransaction.Query(gdb, TxFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, ts, 1)

	n, err := PointTransaction.CountByType(gdb, model.TxPurchase)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
