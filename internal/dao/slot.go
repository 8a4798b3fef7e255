package dao

import (
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"server-reward-engine/internal/model"
)

type rewardSlot struct {
}

var RewardSlot = new(rewardSlot)

func (*rewardSlot) Create(tx *gorm.DB, s *model.RewardSlot) error {
	return tx.Create(s).Error
}

func (*rewardSlot) Get(tx *gorm.DB, id uint64) (s model.RewardSlot, err error) {
	err = tx.Where("id = ?", id).Take(&s).Error
	return
}

func (*rewardSlot) GetForUpdate(tx *gorm.DB, id uint64) (s model.RewardSlot, err error) {
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&s).Error
	return
}

func (*rewardSlot) UpdateCompletedTiers(tx *gorm.DB, id uint64, tiers int) error {
	return tx.Model(&model.RewardSlot{}).Where("id = ?", id).Update("completed_tiers", tiers).Error
}

func (*rewardSlot) ListByCustomer(tx *gorm.DB, customerID uint64) (ss []model.RewardSlot, err error) {
	err = tx.Where("customer_id = ?", customerID).Order("global_number").Find(&ss).Error
	return
}

// ListPending returns slots whose global number already reaches a tier they have not been paid for.
// thresholds[i] is the global number that unlocks tier i+1.
func (*rewardSlot) ListPending(tx *gorm.DB, thresholds []int64, limit int) (ss []model.RewardSlot, err error) {
	if len(thresholds) == 0 {
		return nil, nil
	}
	parts := make([]string, 0, len(thresholds))
	args := make([]interface{}, 0, 2*len(thresholds))
	for i, t := range thresholds {
		parts = append(parts, "(completed_tiers < ? AND global_number >= ?)")
		args = append(args, i+1, t)
	}
	err = tx.Where(strings.Join(parts, " OR "), args...).Order("global_number").Limit(limit).Find(&ss).Error
	return
}

func (*rewardSlot) Count(tx *gorm.DB, countryID *uint64) (n int64, err error) {
	err = scopeSlotCountry(tx.Model(&model.RewardSlot{}), countryID).Count(&n).Error
	return
}

// CountReachedTier counts slots that completed at least tier.
func (*rewardSlot) CountReachedTier(tx *gorm.DB, tier int, countryID *uint64) (n int64, err error) {
	err = scopeSlotCountry(tx.Model(&model.RewardSlot{}), countryID).
		Where("reward_slots.completed_tiers >= ?", tier).Count(&n).Error
	return
}

// SumCompletedTiers is the number of tier payouts made so far.
func (*rewardSlot) SumCompletedTiers(tx *gorm.DB, countryID *uint64) (n int64, err error) {
	err = scopeSlotCountry(tx.Model(&model.RewardSlot{}), countryID).
		Select("COALESCE(SUM(reward_slots.completed_tiers), 0)").Scan(&n).Error
	return
}

func scopeSlotCountry(q *gorm.DB, countryID *uint64) *gorm.DB {
	if countryID == nil {
		return q
	}
	return q.Joins("JOIN customers ON customers.id = reward_slots.customer_id").
		Where("customers.country_id = ?", *countryID)
}
