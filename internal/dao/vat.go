package dao

import (
	"gorm.io/gorm"

	"server-reward-engine/internal/model"
)

type vatServiceCharge struct {
}

var VatServiceCharge = new(vatServiceCharge)

func (*vatServiceCharge) Append(tx *gorm.DB, v *model.VatServiceCharge) error {
	return tx.Create(v).Error
}

func (*vatServiceCharge) List(tx *gorm.DB, customerID *uint64, limit int) (vs []model.VatServiceCharge, err error) {
	q := tx.Order("id desc")
	if customerID != nil {
		q = q.Where("customer_id = ?", *customerID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	err = q.Find(&vs).Error
	return
}
