package dao

import (
	"gorm.io/gorm"

	"server-reward-engine/internal/model"
)

type pointTransaction struct {
}

var PointTransaction = new(pointTransaction)

// Append adds one audit record; rows are never updated or deleted.
func (*pointTransaction) Append(tx *gorm.DB, t *model.PointTransaction) error {
	return tx.Create(t).Error
}

// TxFilter narrows a transaction log query, zero fields are ignored.
type TxFilter struct {
	CustomerID   *uint64
	MerchantID   *uint64
	RewardSlotID *uint64
	CountryID    *uint64
	Type         string
	Limit        int
}

// Query returns matching records newest first.
func (*pointTransaction) Query(tx *gorm.DB, f TxFilter) (ts []model.PointTransaction, err error) {
	q := tx.Model(&model.PointTransaction{})
	if f.CountryID != nil {
		q = q.Joins("JOIN customers ON customers.id = point_transactions.customer_id").
			Where("customers.country_id = ?", *f.CountryID)
	}
	if f.CustomerID != nil {
		q = q.Where("point_transactions.customer_id = ?", *f.CustomerID)
	}
	if f.MerchantID != nil {
		q = q.Where("point_transactions.merchant_id = ?", *f.MerchantID)
	}
	if f.RewardSlotID != nil {
		q = q.Where("point_transactions.reward_slot_id = ?", *f.RewardSlotID)
	}
	if f.Type != "" {
		q = q.Where("point_transactions.type = ?", f.Type)
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	err = q.Select("point_transactions.*").Order("point_transactions.id desc").Find(&ts).Error
	return
}

func (*pointTransaction) CountByType(tx *gorm.DB, typ string) (n int64, err error) {
	err = tx.Model(&model.PointTransaction{}).Where("type = ?", typ).Count(&n).Error
	return
}
