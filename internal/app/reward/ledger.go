package reward

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/model"
	"server-reward-engine/internal/pkg/util"
)

var (
	// SlotThreshold is the number of accumulated points converted into one reward slot.
	SlotThreshold = decimal.NewFromInt(1500)

	MerchantCashbackRate = decimal.RequireFromString("0.15")

	// MaxAmount is the largest value a decimal(15,2) ledger column holds.
	MaxAmount = decimal.RequireFromString("9999999999999.99")
)

const (
	LoginRewardMin = 100
	LoginRewardMax = 200
)

type AccumulateResult struct {
	NewAccumulated decimal.Decimal    `json:"new_accumulated"`
	SlotsGenerated int                `json:"slots_generated"`
	Slots          []model.RewardSlot `json:"slots"` // every slot created by the cascade, infinity grants included
}

type LoginResult struct {
	Reward int `json:"reward"`
	AccumulateResult
}

type DistributeResult struct {
	Cashback decimal.Decimal `json:"cashback"`
	AccumulateResult
}

type RegisterRequest struct {
	Name         string
	Phone        string
	CountryID    *uint64
	ReferralCode string
}

// Register creates a zeroed ledger, linking it to the owner of ReferralCode when given.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*model.Customer, error) {
	if req.Phone == "" {
		return nil, errors.New("phone is required")
	}
	var cu model.Customer
	_, err := e.transaction(ctx, "register", func(c *cascade) error {
		var n int64
		if err := c.tx.Model(&model.Customer{}).Where("phone = ?", req.Phone).Count(&n).Error; err != nil {
			return errors.Wrap(err, "check phone")
		}
		if n > 0 {
			return &DuplicatePhoneError{Phone: req.Phone}
		}

		cu = model.Customer{
			Name:              req.Name,
			Phone:             req.Phone,
			CountryID:         req.CountryID,
			ReferralCode:      "RC" + util.RandString(8),
			AccumulatedPoints: decimal.Zero,
			TotalRewards:      decimal.Zero,
			Balance:           decimal.Zero,
		}

		if req.ReferralCode != "" {
			ref, err := dao.Customer.GetByReferralCode(c.tx, req.ReferralCode)
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "referral code", Key: req.ReferralCode}
			}
			if err != nil {
				return errors.Wrap(err, "get referrer")
			}
			// the referrer is the locked ledger of this cascade
			if err = c.load(ref.ID, false); err != nil {
				return err
			}
			cu.ReferredBy = &ref.ID
		}

		if err := dao.Customer.Create(c.tx, &cu); err != nil {
			return errors.Wrap(err, "create customer")
		}

		if c.customer != nil {
			c.customer.ReferralCount++
			c.customerDirty = true
			return c.appendTx(&model.PointTransaction{
				CustomerID:  uint64Ptr(c.customer.ID),
				Type:        model.TxReferral,
				Points:      decimal.Zero,
				Description: fmt.Sprintf("Referred customer %d", cu.ID),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &cu, nil
}

// Accumulate applies a purchase point event to the customer's ledger.
func (e *Engine) Accumulate(ctx context.Context, customerID uint64, points decimal.Decimal, merchantID *uint64) (*AccumulateResult, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	var res *AccumulateResult
	_, err := e.transaction(ctx, "accumulate", func(c *cascade) error {
		if err := c.load(customerID, true); err != nil {
			return err
		}
		var err error
		res, err = c.accumulate(points, merchantID, model.TxPurchase,
			fmt.Sprintf("Earned %s points from purchase", points.String()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DailyLogin grants a random 100..200 point reward once per calendar day.
func (e *Engine) DailyLogin(ctx context.Context, customerID uint64) (*LoginResult, error) {
	var res LoginResult
	_, err := e.transaction(ctx, "daily_login", func(c *cascade) error {
		if err := c.load(customerID, true); err != nil {
			return err
		}
		now := e.opts.Now()
		cu := c.customer
		if cu.LastLoginDate != nil && util.SameDay(*cu.LastLoginDate, now, e.opts.Location) {
			return &AlreadyClaimedError{CustomerID: cu.ID, LastLogin: *cu.LastLoginDate}
		}

		res.Reward = e.randBetween(LoginRewardMin, LoginRewardMax)
		cu.DailyLoginCount++
		cu.TotalLoginCount++
		cu.LastLoginDate = &now
		c.customerDirty = true

		acc, err := c.accumulate(decimal.NewFromInt(int64(res.Reward)), nil, model.TxDailyLogin,
			fmt.Sprintf("Daily login reward: %d points", res.Reward))
		if err != nil {
			return err
		}
		res.AccumulateResult = *acc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// DistributeMerchantPoints credits points a merchant hands out and books the merchant's instant cashback.
func (e *Engine) DistributeMerchantPoints(ctx context.Context, merchantID, customerID uint64, points decimal.Decimal) (*DistributeResult, error) {
	if err := validatePoints(points); err != nil {
		return nil, err
	}
	var res DistributeResult
	_, err := e.transaction(ctx, "merchant_distribute", func(c *cascade) error {
		if err := c.load(customerID, true); err != nil {
			return err
		}
		acc, err := c.accumulate(points, &merchantID, model.TxPurchase,
			fmt.Sprintf("Merchant %d distributed %s points", merchantID, points.String()))
		if err != nil {
			return err
		}
		res.AccumulateResult = *acc

		res.Cashback = points.Mul(MerchantCashbackRate).Round(2)
		if res.Cashback.IsZero() {
			return nil
		}
		return c.appendTx(&model.PointTransaction{
			MerchantID:  &merchantID,
			Type:        model.TxRewardPayout,
			Points:      res.Cashback,
			Description: fmt.Sprintf("Merchant instant cashback: 15%% of %s points", points.String()),
		})
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// accumulate logs the raw delta, converts every full 1500 points into a slot in one step,
// runs the slot cascade and pays the affiliate commission.
func (c *cascade) accumulate(points decimal.Decimal, merchantID *uint64, typ, desc string) (*AccumulateResult, error) {
	cu := c.customer
	err := c.appendTx(&model.PointTransaction{
		CustomerID:  uint64Ptr(cu.ID),
		MerchantID:  merchantID,
		Type:        typ,
		Points:      points,
		Description: desc,
	})
	if err != nil {
		return nil, err
	}
	c.points[typ] = c.points[typ].Add(points)

	total := cu.AccumulatedPoints.Add(points)
	slots := total.Div(SlotThreshold).Floor()
	if slots.GreaterThan(decimal.NewFromInt(int64(c.e.opts.MaxSlotsPerEvent))) {
		return nil, &InvalidAmountError{
			Amount: points,
			Reason: fmt.Sprintf("converts into %s slots, at most %d per event", slots.String(), c.e.opts.MaxSlotsPerEvent),
		}
	}
	n := int(slots.IntPart())
	cu.AccumulatedPoints = total.Sub(slots.Mul(SlotThreshold))
	cu.LocalRewardSlots += n
	c.customerDirty = true
	c.localSlots += n

	for i := 0; i < n; i++ {
		c.enqueue(0)
	}
	if err = c.run(); err != nil {
		return nil, err
	}

	if err = c.affiliate(points); err != nil {
		return nil, err
	}

	res := &AccumulateResult{
		NewAccumulated: cu.AccumulatedPoints,
		SlotsGenerated: n,
		Slots:          make([]model.RewardSlot, 0, len(c.created)),
	}
	for _, s := range c.created {
		res.Slots = append(res.Slots, *s)
	}
	return res, nil
}

func validatePoints(points decimal.Decimal) error {
	if points.IsNegative() {
		return &InvalidAmountError{Amount: points, Reason: "points must not be negative"}
	}
	if !points.Equal(points.Round(2)) {
		return &InvalidAmountError{Amount: points, Reason: "at most two decimal places"}
	}
	if points.GreaterThan(MaxAmount) {
		return &InvalidAmountError{Amount: points, Reason: "exceeds " + MaxAmount.String()}
	}
	return nil
}
