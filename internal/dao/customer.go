package dao

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"server-reward-engine/internal/model"
)

// ErrStaleVersion is returned when a customer row changed since it was read.
var ErrStaleVersion = errors.New("customer version is stale")

type customer struct {
}

var Customer = new(customer)

func (*customer) Create(tx *gorm.DB, c *model.Customer) error {
	return tx.Create(c).Error
}

func (*customer) Get(tx *gorm.DB, id uint64) (c model.Customer, err error) {
	err = tx.Where("id = ?", id).Take(&c).Error
	return
}

// GetForUpdate reads the row with a write lock held until the transaction ends.
func (*customer) GetForUpdate(tx *gorm.DB, id uint64) (c model.Customer, err error) {
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&c).Error
	return
}

func (*customer) GetByReferralCode(tx *gorm.DB, code string) (c model.Customer, err error) {
	err = tx.Where("referral_code = ?", code).Take(&c).Error
	return
}

// Save writes every ledger field if the version still matches, then bumps it.
func (*customer) Save(tx *gorm.DB, c *model.Customer) error {
	res := tx.Model(&model.Customer{}).
		Where("id = ? AND version = ?", c.ID, c.Version).
		Updates(map[string]interface{}{
			"accumulated_points":  c.AccumulatedPoints,
			"global_reward_slots": c.GlobalRewardSlots,
			"local_reward_slots":  c.LocalRewardSlots,
			"total_rewards":       c.TotalRewards,
			"balance":             c.Balance,
			"referral_count":      c.ReferralCount,
			"daily_login_count":   c.DailyLoginCount,
			"total_login_count":   c.TotalLoginCount,
			"last_login_date":     c.LastLoginDate,
			"version":             c.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleVersion
	}
	c.Version++
	return nil
}

func (*customer) ListByReferrer(tx *gorm.DB, referrerID uint64) (cs []model.Customer, err error) {
	err = tx.Where("referred_by = ?", referrerID).Order("id").Find(&cs).Error
	return
}

// ListByCountry pages customers in id order, every country when countryID is nil.
func (*customer) ListByCountry(tx *gorm.DB, countryID *uint64, afterID uint64, limit int) (cs []model.Customer, err error) {
	q := tx.Where("id > ?", afterID).Order("id").Limit(limit)
	if countryID != nil {
		q = q.Where("country_id = ?", *countryID)
	}
	err = q.Find(&cs).Error
	return
}

func (*customer) TopBySlots(tx *gorm.DB, limit int, countryID *uint64) (cs []model.Customer, err error) {
	q := tx.Order("global_reward_slots desc").Order("id").Limit(limit)
	if countryID != nil {
		q = q.Where("country_id = ?", *countryID)
	}
	err = q.Find(&cs).Error
	return
}

func (*customer) TopByReferrals(tx *gorm.DB, limit int, countryID *uint64) (cs []model.Customer, err error) {
	q := tx.Order("referral_count desc").Order("id").Limit(limit)
	if countryID != nil {
		q = q.Where("country_id = ?", *countryID)
	}
	err = q.Find(&cs).Error
	return
}

// ReferralEdge is one customer with its referrer.
type ReferralEdge struct {
	ID           uint64
	ReferredBy   *uint64
	TotalRewards decimal.Decimal
}

func (*customer) ListReferralEdges(tx *gorm.DB) (edges []ReferralEdge, err error) {
	err = tx.Model(&model.Customer{}).Select("id, referred_by, total_rewards").Order("id").Scan(&edges).Error
	return
}

// CustomerTotals aggregates ledger columns.
type CustomerTotals struct {
	Customers       int64
	ActiveCustomers int64
	Slots           int64
	ActivePoints    decimal.Decimal
	TotalRewards    decimal.Decimal
	TotalBalance    decimal.Decimal
}

func (*customer) Totals(tx *gorm.DB, countryID *uint64) (t CustomerTotals, err error) {
	scope := func() *gorm.DB {
		q := tx.Model(&model.Customer{})
		if countryID != nil {
			q = q.Where("country_id = ?", *countryID)
		}
		return q
	}

	if err = scope().Count(&t.Customers).Error; err != nil {
		return t, errors.Wrap(err, "count customers")
	}
	if err = scope().Where("accumulated_points > 0").Count(&t.ActiveCustomers).Error; err != nil {
		return t, errors.Wrap(err, "count active customers")
	}

	var sums struct {
		Slots        int64
		ActivePoints decimal.NullDecimal
		TotalRewards decimal.NullDecimal
		TotalBalance decimal.NullDecimal
	}
	err = scope().Select("COALESCE(SUM(global_reward_slots), 0) AS slots, " +
		"SUM(accumulated_points) AS active_points, SUM(total_rewards) AS total_rewards, " +
		"SUM(balance) AS total_balance").Scan(&sums).Error
	if err != nil {
		return t, errors.Wrap(err, "sum customers")
	}
	t.Slots = sums.Slots
	t.ActivePoints = sums.ActivePoints.Decimal
	t.TotalRewards = sums.TotalRewards.Decimal
	t.TotalBalance = sums.TotalBalance.Decimal
	return t, nil
}
