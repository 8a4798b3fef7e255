package reward

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"server-reward-engine/internal/app/group"
	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/model"
)

const maxListLimit = 100

type Stats struct {
	TotalCustomers   int64                    `json:"total_customers"`
	ActiveCustomers  int64                    `json:"active_customers"`
	TotalRewardSlots int64                    `json:"total_reward_slots"`
	ActivePoints     decimal.Decimal          `json:"active_points"`
	CompletedPayouts int64                    `json:"completed_payouts"`
	TotalRewards     decimal.Decimal          `json:"total_rewards"`
	TotalBalance     decimal.Decimal          `json:"total_balance"`
	LastGlobalNumber int64                    `json:"last_global_number"`
	RecentActivities []model.PointTransaction `json:"recent_activities"`
}

// TierDistribution counts slots that completed at least each tier.
type TierDistribution struct {
	Total int64 `json:"total"`
	Tier1 int64 `json:"tier1"`
	Tier2 int64 `json:"tier2"`
	Tier3 int64 `json:"tier3"`
	Tier4 int64 `json:"tier4"`
}

// Team summarizes a customer's downline from the in-memory referral tree. Rewards are
// the values read when the tree was built at UpdatedAt.
type Team struct {
	CustomerID  uint64          `json:"customer_id"`
	ReferredBy  *uint64         `json:"referred_by"`
	Downline    int             `json:"downline"`
	TeamRewards decimal.Decimal `json:"team_rewards"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type CustomerDetail struct {
	model.Customer
	Slots []model.RewardSlot `json:"slots"`
}

func (e *Engine) Stats(ctx context.Context, countryID *uint64) (*Stats, error) {
	tx := e.db.WithContext(ctx)
	totals, err := dao.Customer.Totals(tx, countryID)
	if err != nil {
		return nil, err
	}
	s := &Stats{
		TotalCustomers:   totals.Customers,
		ActiveCustomers:  totals.ActiveCustomers,
		TotalRewardSlots: totals.Slots,
		ActivePoints:     totals.ActivePoints,
		TotalRewards:     totals.TotalRewards,
		TotalBalance:     totals.TotalBalance,
	}

	if s.CompletedPayouts, err = dao.RewardSlot.SumCompletedTiers(tx, countryID); err != nil {
		return nil, errors.Wrap(err, "sum completed tiers")
	}
	if s.LastGlobalNumber, err = dao.Sequence.Current(tx, dao.GlobalSlotSequence); err != nil {
		return nil, errors.Wrap(err, "read global number")
	}
	s.RecentActivities, err = dao.PointTransaction.Query(tx, dao.TxFilter{
		CountryID: countryID,
		Limit:     e.opts.RecentActivityLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "query recent activities")
	}
	return s, nil
}

func (e *Engine) Distribution(ctx context.Context, countryID *uint64) (*TierDistribution, error) {
	tx := e.db.WithContext(ctx)
	var (
		d   TierDistribution
		err error
	)
	if d.Total, err = dao.RewardSlot.Count(tx, countryID); err != nil {
		return nil, errors.Wrap(err, "count slots")
	}
	for _, t := range []struct {
		level int
		n     *int64
	}{{1, &d.Tier1}, {2, &d.Tier2}, {3, &d.Tier3}, {4, &d.Tier4}} {
		if *t.n, err = dao.RewardSlot.CountReachedTier(tx, t.level, countryID); err != nil {
			return nil, errors.Wrapf(err, "count tier %d", t.level)
		}
	}
	return &d, nil
}

func (e *Engine) Customer(ctx context.Context, customerID uint64) (*CustomerDetail, error) {
	tx := e.db.WithContext(ctx)
	cu, err := dao.Customer.Get(tx, customerID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, customerNotFound(customerID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get customer")
	}
	slots, err := dao.RewardSlot.ListByCustomer(tx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "list slots")
	}
	return &CustomerDetail{Customer: cu, Slots: slots}, nil
}

// Referrals lists the customers directly referred by customerID.
func (e *Engine) Referrals(ctx context.Context, customerID uint64) ([]model.Customer, error) {
	tx := e.db.WithContext(ctx)
	if _, err := dao.Customer.Get(tx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerNotFound(customerID)
		}
		return nil, errors.Wrap(err, "get customer")
	}
	cs, err := dao.Customer.ListByReferrer(tx, customerID)
	return cs, errors.Wrap(err, "list referrals")
}

// Customers pages the customer list in id order, optionally for one country.
func (e *Engine) Customers(ctx context.Context, countryID *uint64, afterID uint64, limit int) ([]model.Customer, error) {
	cs, err := dao.Customer.ListByCountry(e.db.WithContext(ctx), countryID, afterID, clampLimit(limit))
	return cs, errors.Wrap(err, "list customers")
}

// Team reads the customer's downline from the referral tree, rebuilding the tree
// when it was never built or does not know the customer yet.
func (e *Engine) Team(ctx context.Context, customerID uint64) (*Team, error) {
	tx := e.db.WithContext(ctx)
	if _, err := dao.Customer.Get(tx, customerID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerNotFound(customerID)
		}
		return nil, errors.Wrap(err, "get customer")
	}
	if group.UpdatedAt().IsZero() || !group.Contains(customerID) {
		if err := group.GetLatestGroupRela(tx); err != nil {
			return nil, errors.WithMessage(err, "rebuild referral tree")
		}
	}

	downline, err := group.GetAllDownLineUsers(customerID, map[uint64]bool{customerID: true})
	if err != nil {
		return nil, errors.WithMessage(err, "walk downline")
	}
	rewards, err := group.TeamRewards(customerID)
	if err != nil {
		return nil, errors.WithMessage(err, "team rewards")
	}
	t := &Team{
		CustomerID:  customerID,
		Downline:    len(downline),
		TeamRewards: rewards,
		UpdatedAt:   group.UpdatedAt(),
	}
	if f, ok := group.GetFather(customerID); ok {
		t.ReferredBy = &f
	}
	return t, nil
}

func (e *Engine) TopCustomersBySlots(ctx context.Context, limit int, countryID *uint64) ([]model.Customer, error) {
	cs, err := dao.Customer.TopBySlots(e.db.WithContext(ctx), clampLimit(limit), countryID)
	return cs, errors.Wrap(err, "top customers by slots")
}

func (e *Engine) TopCustomersByReferrals(ctx context.Context, limit int, countryID *uint64) ([]model.Customer, error) {
	cs, err := dao.Customer.TopByReferrals(e.db.WithContext(ctx), clampLimit(limit), countryID)
	return cs, errors.Wrap(err, "top customers by referrals")
}

func (e *Engine) Transactions(ctx context.Context, f dao.TxFilter) ([]model.PointTransaction, error) {
	f.Limit = clampLimit(f.Limit)
	ts, err := dao.PointTransaction.Query(e.db.WithContext(ctx), f)
	return ts, errors.Wrap(err, "query transactions")
}

func (e *Engine) VatRecords(ctx context.Context, customerID *uint64, limit int) ([]model.VatServiceCharge, error) {
	vs, err := dao.VatServiceCharge.List(e.db.WithContext(ctx), customerID, clampLimit(limit))
	return vs, errors.Wrap(err, "list vat records")
}

// Snapshot stores the current system wide statistics.
func (e *Engine) Snapshot(ctx context.Context) (*model.RewardSnapshot, error) {
	s, err := e.Stats(ctx, nil)
	if err != nil {
		return nil, err
	}
	snap := &model.RewardSnapshot{
		TotalRewardSlots: s.TotalRewardSlots,
		ActivePoints:     s.ActivePoints,
		ActiveCustomers:  s.ActiveCustomers,
		CompletedPayouts: s.CompletedPayouts,
		TotalRewards:     s.TotalRewards,
		TotalBalance:     s.TotalBalance,
		CreatedAt:        e.opts.Now(),
	}
	if err = dao.RewardSnapshot.Create(e.db.WithContext(ctx), snap); err != nil {
		return nil, errors.Wrap(err, "create snapshot")
	}
	return snap, nil
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
