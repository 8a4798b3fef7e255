package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"server-reward-engine/config"
	"server-reward-engine/internal/app/dgraph"
	"server-reward-engine/internal/app/group"
	"server-reward-engine/internal/app/reward"
	"server-reward-engine/internal/app/warn"
	"server-reward-engine/internal/dao"
)

var ticker *cron.Cron

// RewardTicker schedules the daily snapshot, the pending slot sweep and the referral tree refresh.
func RewardTicker(gdb *gorm.DB, e *reward.Engine) error {
	c := cron.New()
	cfg := config.Reward

	if err := c.AddFunc(cfg.SnapshotSchedule, func() { SnapshotJob(e) }); err != nil {
		return errors.Wrap(err, "add snapshot job")
	}
	if err := c.AddFunc(cfg.SweepSchedule, func() { SweepJob(e, cfg.SweepBatchSize) }); err != nil {
		return errors.Wrap(err, "add sweep job")
	}
	if err := c.AddFunc(cfg.RelationSchedule, func() { RelationJob(gdb) }); err != nil {
		return errors.Wrap(err, "add relation job")
	}
	c.Start()
	ticker = c
	return nil
}

func StopTicker() {
	if ticker != nil {
		ticker.Stop()
	}
}

func SnapshotJob(e *reward.Engine) {
	s, err := e.Snapshot(context.Background())
	if warn.Must("reward snapshot", err) != nil {
		return
	}
	log.Infof("reward snapshot %d: %d slots, total rewards %s", s.ID, s.TotalRewardSlots, s.TotalRewards.StringFixed(2))
}

func SweepJob(e *reward.Engine, batch int) {
	n, err := e.EvaluatePendingSlots(context.Background(), batch)
	if warn.Must("pending slot sweep", err) != nil {
		return
	}
	if n > 0 {
		log.Infof("pending slot sweep paid %d slots", n)
	}
}

// RelationJob rebuilds the referral tree and mirrors it to dgraph when enabled.
func RelationJob(gdb *gorm.DB) {
	if warn.Must("update relation", group.GetLatestGroupRela(gdb)) != nil {
		return
	}
	if !dgraph.Enabled() {
		return
	}
	edges, err := dao.Customer.ListReferralEdges(gdb)
	if warn.Must("list referral edges", err) != nil {
		return
	}
	_ = warn.Must("sync dgraph relations", dgraph.SyncRelations(context.Background(), edges))
}
