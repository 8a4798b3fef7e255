package reward

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"server-reward-engine/internal/dao"
	"server-reward-engine/internal/model"
)

type Tier struct {
	Level     int
	Threshold int64 // global number that unlocks the tier
	Reward    decimal.Decimal
}

// Tiers are evaluated strictly in this order.
var Tiers = []Tier{
	{Level: 1, Threshold: 6, Reward: decimal.NewFromInt(800)},
	{Level: 2, Threshold: 30, Reward: decimal.NewFromInt(1500)},
	{Level: 3, Threshold: 120, Reward: decimal.NewFromInt(3500)},
	{Level: 4, Threshold: 480, Reward: decimal.NewFromInt(32200)},
}

const (
	TopTier       = 4
	VoucherCount  = 2
	InfinitySlots = 4
)

var VoucherAmount = decimal.NewFromInt(6000)

func tierThresholds() []int64 {
	ts := make([]int64, len(Tiers))
	for i, t := range Tiers {
		ts[i] = t.Threshold
	}
	return ts
}

type slotTask struct {
	depth int
}

type SlotResult struct {
	Slot       model.RewardSlot   `json:"slot"`
	PaidTiers  []int              `json:"paid_tiers"`
	ChildSlots []model.RewardSlot `json:"child_slots"`
}

func (c *cascade) enqueue(depth int) {
	c.queue = append(c.queue, slotTask{depth: depth})
}

// run drains the slot queue. Tier-4 payouts append to the queue, so slots are
// created breadth first and the whole cascade shares the caller's transaction.
func (c *cascade) run() error {
	for len(c.queue) > 0 {
		task := c.queue[0]
		c.queue = c.queue[1:]
		if _, err := c.createSlot(task.depth); err != nil {
			return err
		}
	}
	return nil
}

func (c *cascade) createSlot(depth int) (*model.RewardSlot, error) {
	n, err := dao.Sequence.Next(c.tx, dao.GlobalSlotSequence)
	if err != nil {
		return nil, err
	}
	slot := &model.RewardSlot{
		CustomerID:   c.customer.ID,
		GlobalNumber: n,
		Depth:        depth,
		Tier1Reward:  Tiers[0].Reward,
		Tier2Reward:  Tiers[1].Reward,
		Tier3Reward:  Tiers[2].Reward,
		Tier4Reward:  Tiers[3].Reward,
		CreatedAt:    c.e.opts.Now(),
	}
	if err = dao.RewardSlot.Create(c.tx, slot); err != nil {
		return nil, errors.Wrap(err, "create reward slot")
	}
	c.customer.GlobalRewardSlots++
	c.customerDirty = true
	c.created = append(c.created, slot)

	if _, err = c.evaluate(slot, depth); err != nil {
		return nil, err
	}
	return slot, nil
}

// evaluate pays, in ascending order, every tier the slot's global number has reached
// but the slot has not been paid for yet. Tier 4 is held back once depth reaches the
// configured infinity depth; such slots stay at tier 3 until re-evaluated.
func (c *cascade) evaluate(slot *model.RewardSlot, depth int) ([]int, error) {
	var paid []int
	for _, t := range Tiers {
		if slot.GlobalNumber < t.Threshold {
			break
		}
		if slot.CompletedTiers >= t.Level {
			continue
		}
		if t.Level == TopTier && depth >= c.e.opts.MaxInfinityDepth {
			log.Debugf("slot %d reached tier %d at infinity depth %d, deferred", slot.GlobalNumber, t.Level, depth)
			break
		}

		var err error
		if t.Level == TopTier {
			err = c.payTopTier(slot, t, depth)
		} else {
			err = c.payTier(slot, t)
		}
		if err != nil {
			return nil, err
		}
		slot.CompletedTiers = t.Level
		paid = append(paid, t.Level)
		c.tierPaid = append(c.tierPaid, t.Level)
	}

	if len(paid) == 0 {
		return nil, nil
	}
	err := dao.RewardSlot.UpdateCompletedTiers(c.tx, slot.ID, slot.CompletedTiers)
	return paid, errors.Wrap(err, "update completed tiers")
}

func (c *cascade) payTier(slot *model.RewardSlot, t Tier) error {
	c.credit(c.customer, t.Reward)
	err := c.appendTx(&model.PointTransaction{
		CustomerID:   uint64Ptr(c.customer.ID),
		Type:         model.TxStepUpReward,
		Points:       t.Reward,
		Description:  fmt.Sprintf("Step-up reward Tier %d: %s", t.Level, t.Reward.String()),
		RewardSlotID: uint64Ptr(slot.ID),
	})
	if err != nil {
		return err
	}
	return c.ripple(slot, t.Level)
}

// payTopTier splits the tier-4 reward into shopping vouchers and cash, and grants
// new slots to the same customer.
func (c *cascade) payTopTier(slot *model.RewardSlot, t Tier, depth int) error {
	for i := 0; i < VoucherCount; i++ {
		err := c.appendTx(&model.PointTransaction{
			CustomerID:   uint64Ptr(c.customer.ID),
			Type:         model.TxRewardPayout,
			Points:       VoucherAmount,
			Description:  fmt.Sprintf("Shopping voucher: %s", VoucherAmount.String()),
			RewardSlotID: uint64Ptr(slot.ID),
		})
		if err != nil {
			return err
		}
	}

	cash := t.Reward.Sub(VoucherAmount.Mul(decimal.NewFromInt(VoucherCount)))
	c.credit(c.customer, cash)
	err := c.appendTx(&model.PointTransaction{
		CustomerID:   uint64Ptr(c.customer.ID),
		Type:         model.TxStepUpReward,
		Points:       cash,
		Description:  fmt.Sprintf("Step-up reward Tier %d: %s", t.Level, cash.String()),
		RewardSlotID: uint64Ptr(slot.ID),
	})
	if err != nil {
		return err
	}

	for i := 0; i < InfinitySlots; i++ {
		c.enqueue(depth + 1)
	}

	err = c.appendTx(&model.PointTransaction{
		CustomerID:   uint64Ptr(c.customer.ID),
		Type:         model.TxInfinityReward,
		Points:       cash,
		Description:  fmt.Sprintf("Infinity reward: %s + %d new reward slots", cash.String(), InfinitySlots),
		RewardSlotID: uint64Ptr(slot.ID),
	})
	if err != nil {
		return err
	}
	return c.ripple(slot, t.Level)
}

// EvaluateSlot re-runs tier evaluation for one slot as a fresh cascade. A slot already
// paid for every tier its global number reaches is left untouched.
func (e *Engine) EvaluateSlot(ctx context.Context, slotID uint64) (*SlotResult, error) {
	var res SlotResult
	_, err := e.transaction(ctx, "evaluate_slot", func(c *cascade) error {
		s, err := dao.RewardSlot.Get(c.tx, slotID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Kind: "reward slot", Key: fmt.Sprint(slotID)}
		}
		if err != nil {
			return errors.Wrap(err, "get reward slot")
		}
		if err = c.load(s.CustomerID, true); err != nil {
			return err
		}
		s, err = dao.RewardSlot.GetForUpdate(c.tx, slotID)
		if err != nil {
			return errors.Wrap(err, "lock reward slot")
		}

		res.PaidTiers, err = c.evaluate(&s, 0)
		if err != nil {
			return err
		}
		if err = c.run(); err != nil {
			return err
		}
		res.Slot = s
		for _, child := range c.created {
			res.ChildSlots = append(res.ChildSlots, *child)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// EvaluatePendingSlots re-evaluates up to limit slots that reached a tier they were not
// paid for, each in its own transaction. It returns how many slots paid at least one tier.
func (e *Engine) EvaluatePendingSlots(ctx context.Context, limit int) (int, error) {
	pending, err := dao.RewardSlot.ListPending(e.db.WithContext(ctx), tierThresholds(), limit)
	if err != nil {
		return 0, errors.Wrap(err, "list pending slots")
	}

	evaluated := 0
	for _, s := range pending {
		res, err := e.EvaluateSlot(ctx, s.ID)
		if err != nil {
			log.Errorf("err: %+v", errors.WithMessagef(err, "evaluate slot %d", s.ID))
			continue
		}
		if len(res.PaidTiers) > 0 {
			evaluated++
		}
	}
	return evaluated, nil
}
