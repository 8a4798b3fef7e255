package dao

import (
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"server-reward-engine/internal/model"
)

// GlobalSlotSequence names the counter that numbers reward slots system wide.
const GlobalSlotSequence = "global_reward_slot"

type sequence struct {
}

var Sequence = new(sequence)

// Next increments the named counter and returns the new value. Run it inside the
// caller's transaction: the row lock taken by the update serialises every caller
// until commit, and a rollback gives the number back.
func (*sequence) Next(tx *gorm.DB, name string) (int64, error) {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SlotSequence{Name: name}).Error
	if err != nil {
		return 0, errors.Wrap(err, "ensure sequence")
	}

	res := tx.Model(&model.SlotSequence{}).Where("name = ?", name).
		Update("value", gorm.Expr("value + 1"))
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "increment sequence")
	}
	if res.RowsAffected != 1 {
		return 0, errors.Errorf("sequence %s not incremented", name)
	}

	var s model.SlotSequence
	if err = tx.Where("name = ?", name).Take(&s).Error; err != nil {
		return 0, errors.Wrap(err, "read sequence")
	}
	return s.Value, nil
}

// Current returns the last value handed out, zero when unused.
func (*sequence) Current(tx *gorm.DB, name string) (int64, error) {
	var s model.SlotSequence
	err := tx.Where("name = ?", name).Take(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return s.Value, err
}
