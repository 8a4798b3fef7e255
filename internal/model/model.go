package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 交易类型
const (
	TxPurchase        = "purchase"
	TxDailyLogin      = "daily_login"
	TxReferral        = "referral"
	TxStepUpReward    = "stepup_reward"
	TxInfinityReward  = "infinity_reward"
	TxAffiliateReward = "affiliate_reward"
	TxRippleReward    = "ripple_reward"
	TxRewardPayout    = "reward_payout"
)

// ValidTxType reports whether t is one of the transaction log types.
func ValidTxType(t string) bool {
	switch t {
	case TxPurchase, TxDailyLogin, TxReferral, TxStepUpReward, TxInfinityReward,
		TxAffiliateReward, TxRippleReward, TxRewardPayout:
		return true
	}
	return false
}

// 客户奖励账本
type Customer struct {
	ID                uint64          `json:"id" gorm:"primaryKey"`
	Name              string          `json:"name" gorm:"size:200"`
	Phone             string          `json:"phone" gorm:"size:50;uniqueIndex"`
	CountryID         *uint64         `json:"country_id" gorm:"index"`
	ReferralCode      string          `json:"referral_code" gorm:"size:50;uniqueIndex"`
	AccumulatedPoints decimal.Decimal `json:"accumulated_points" gorm:"type:decimal(15,2);not null;default:0"` // 未转换积分, 始终小于1500
	GlobalRewardSlots int             `json:"global_reward_slots" gorm:"not null;default:0;index"`             // 拥有的全部奖励号
	LocalRewardSlots  int             `json:"local_reward_slots" gorm:"not null;default:0"`                    // 积分直接兑换的奖励号
	TotalRewards      decimal.Decimal `json:"total_rewards" gorm:"type:decimal(15,2);not null;default:0"`      // 未结算奖励
	Balance           decimal.Decimal `json:"balance" gorm:"type:decimal(15,2);not null;default:0"`            // 可用余额
	ReferredBy        *uint64         `json:"referred_by" gorm:"index"`                                        // 邀请人, 弱引用
	ReferralCount     int             `json:"referral_count" gorm:"not null;default:0;index"`
	DailyLoginCount   int             `json:"daily_login_count" gorm:"not null;default:0"`
	TotalLoginCount   int             `json:"total_login_count" gorm:"not null;default:0"`
	LastLoginDate     *time.Time      `json:"last_login_date"`
	Version           int64           `json:"-" gorm:"not null;default:0"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (Customer) TableName() string {
	return "customers"
}

// 奖励号
type RewardSlot struct {
	ID             uint64          `json:"id" gorm:"primaryKey"`
	CustomerID     uint64          `json:"customer_id" gorm:"not null;index"`
	GlobalNumber   int64           `json:"global_number" gorm:"not null;uniqueIndex"`
	CompletedTiers int             `json:"completed_tiers" gorm:"not null;default:0;index"`
	Depth          int             `json:"depth" gorm:"not null;default:0"` // 无限奖励代数
	Tier1Reward    decimal.Decimal `json:"tier1_reward" gorm:"type:decimal(10,2)"`
	Tier2Reward    decimal.Decimal `json:"tier2_reward" gorm:"type:decimal(10,2)"`
	Tier3Reward    decimal.Decimal `json:"tier3_reward" gorm:"type:decimal(10,2)"`
	Tier4Reward    decimal.Decimal `json:"tier4_reward" gorm:"type:decimal(10,2)"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (RewardSlot) TableName() string {
	return "reward_slots"
}

// 积分流水, 只追加
type PointTransaction struct {
	ID           uint64          `json:"id" gorm:"primaryKey"`
	CustomerID   *uint64         `json:"customer_id" gorm:"index"`
	MerchantID   *uint64         `json:"merchant_id" gorm:"index"`
	Type         string          `json:"type" gorm:"size:32;not null;index"`
	Points       decimal.Decimal `json:"points" gorm:"type:decimal(15,2);not null"`
	Description  string          `json:"description" gorm:"type:text"`
	RewardSlotID *uint64         `json:"reward_slot_id" gorm:"index"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`
}

func (PointTransaction) TableName() string {
	return "point_transactions"
}

// 增值税/服务费记录
type VatServiceCharge struct {
	ID                  uint64          `json:"id" gorm:"primaryKey"`
	TransactionID       string          `json:"transaction_id" gorm:"size:64;not null;uniqueIndex"`
	TransactionType     string          `json:"transaction_type" gorm:"size:32;not null"`
	CustomerID          uint64          `json:"customer_id" gorm:"not null;index"`
	Amount              decimal.Decimal `json:"amount" gorm:"type:decimal(15,2);not null"`
	VatAmount           decimal.Decimal `json:"vat_amount" gorm:"type:decimal(15,2);not null"`
	ServiceChargeAmount decimal.Decimal `json:"service_charge_amount" gorm:"type:decimal(15,2);not null"`
	TotalDeduction      decimal.Decimal `json:"total_deduction" gorm:"type:decimal(15,2);not null"`
	Rate                decimal.Decimal `json:"rate" gorm:"type:decimal(5,2);not null"`
	CountryID           *uint64         `json:"country_id" gorm:"index"`
	CreatedAt           time.Time       `json:"created_at"`
}

func (VatServiceCharge) TableName() string {
	return "vat_service_charges"
}

// 全局序列
type SlotSequence struct {
	Name  string `gorm:"primaryKey;size:64"`
	Value int64  `gorm:"not null;default:0"`
}

func (SlotSequence) TableName() string {
	return "slot_sequences"
}

// 每日奖励统计快照
type RewardSnapshot struct {
	ID               uint64          `json:"id" gorm:"primaryKey"`
	TotalRewardSlots int64           `json:"total_reward_slots"`
	ActivePoints     decimal.Decimal `json:"active_points" gorm:"type:decimal(15,2)"`
	ActiveCustomers  int64           `json:"active_customers"`
	CompletedPayouts int64           `json:"completed_payouts"`
	TotalRewards     decimal.Decimal `json:"total_rewards" gorm:"type:decimal(15,2)"`
	TotalBalance     decimal.Decimal `json:"total_balance" gorm:"type:decimal(15,2)"`
	CreatedAt        time.Time       `json:"created_at"`
}

func (RewardSnapshot) TableName() string {
	return "reward_snapshots"
}

// All lists every table the service migrates.
func All() []interface{} {
	return []interface{}{
		&Customer{},
		&RewardSlot{},
		&PointTransaction{},
		&VatServiceCharge{},
		&SlotSequence{},
		&RewardSnapshot{},
	}
}
