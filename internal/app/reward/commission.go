package reward

import (
	"fmt"

	"github.com/shopspring/decimal"

	"server-reward-engine/internal/model"
)

var AffiliateRate = decimal.RequireFromString("0.05")

// RippleRewards is the flat bonus paid to the direct referrer per completed tier.
var RippleRewards = map[int]decimal.Decimal{
	1: decimal.Zero,
	2: decimal.NewFromInt(50),
	3: decimal.NewFromInt(100),
	4: decimal.NewFromInt(150),
}

const (
	commissionAffiliate = "affiliate"
	commissionRipple    = "ripple"
)

// affiliate credits floor(points * 5%) to the direct referrer of the cascade's customer.
func (c *cascade) affiliate(points decimal.Decimal) error {
	if c.customer.ReferredBy == nil {
		return nil
	}
	amount := points.Mul(AffiliateRate).Floor()
	if !amount.IsPositive() {
		return nil
	}
	ref := c.referrerFor(commissionAffiliate)
	if ref == nil {
		return nil
	}

	c.credit(ref, amount)
	c.commissions = append(c.commissions, commissionAffiliate)
	return c.appendTx(&model.PointTransaction{
		CustomerID:  uint64Ptr(ref.ID),
		Type:        model.TxAffiliateReward,
		Points:      amount,
		Description: fmt.Sprintf("Affiliate commission: 5%% of %s points", points.String()),
	})
}

// ripple pays the tier's flat bonus to the slot owner's direct referrer. It never
// climbs further up the referral chain.
func (c *cascade) ripple(slot *model.RewardSlot, tier int) error {
	if c.customer.ReferredBy == nil {
		return nil
	}
	amount, ok := RippleRewards[tier]
	if !ok || amount.IsZero() {
		return nil
	}
	ref := c.referrerFor(commissionRipple)
	if ref == nil {
		return nil
	}

	c.credit(ref, amount)
	c.commissions = append(c.commissions, commissionRipple)
	return c.appendTx(&model.PointTransaction{
		CustomerID:   uint64Ptr(ref.ID),
		Type:         model.TxRippleReward,
		Points:       amount,
		Description:  fmt.Sprintf("Ripple reward from Tier %d: %s", tier, amount.String()),
		RewardSlotID: uint64Ptr(slot.ID),
	})
}
