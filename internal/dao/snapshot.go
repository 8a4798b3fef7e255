package dao

import (
	"gorm.io/gorm"

	"server-reward-engine/internal/model"
)

type rewardSnapshot struct {
}

var RewardSnapshot = new(rewardSnapshot)

func (*rewardSnapshot) Create(tx *gorm.DB, s *model.RewardSnapshot) error {
	return tx.Create(s).Error
}

func (*rewardSnapshot) GetLastRecord(tx *gorm.DB) (s model.RewardSnapshot, err error) {
	err = tx.Order("id desc").Take(&s).Error
	return
}
