package group

import (
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"server-reward-engine/internal/dao"
)

var (
	mu          sync.RWMutex
	userRelaMap map[uint64][]uint64
	fatherMap   map[uint64]uint64
	rewardMap   map[uint64]decimal.Decimal
	roots       []uint64

	relateUpdated time.Time
)

// GetLatestGroupRela rebuilds the referral tree from the customer store.
func GetLatestGroupRela(tx *gorm.DB) error {
	t := time.Now()
	log.Info("start update relation")
	edges, err := dao.Customer.ListReferralEdges(tx)
	if err != nil {
		return errors.Wrap(err, "list referral edges")
	}
	if err = UpdateGroupRelation(edges); err != nil {
		return errors.WithMessage(err, "update relation")
	}
	log.Infof("relation updated, %d customers, cost time: %v", len(edges), time.Since(t))
	return nil
}

// UpdateGroupRelation replaces the tree with edges. Customers whose referrer is unknown
// become roots. A cycle reachable from no root is reported as an error and the previous tree is kept.
func UpdateGroupRelation(edges []dao.ReferralEdge) error {
	rela := make(map[uint64][]uint64)
	fathers := make(map[uint64]uint64)
	rewards := make(map[uint64]decimal.Decimal, len(edges))
	for _, e := range edges {
		rewards[e.ID] = e.TotalRewards
	}

	var rs []uint64
	for _, e := range edges {
		// 邀请人不存在或自己邀请自己, 视为根节点
		if e.ReferredBy == nil || *e.ReferredBy == e.ID {
			rs = append(rs, e.ID)
			continue
		}
		if _, ok := rewards[*e.ReferredBy]; !ok {
			rs = append(rs, e.ID)
			continue
		}
		rela[*e.ReferredBy] = append(rela[*e.ReferredBy], e.ID)
		fathers[e.ID] = *e.ReferredBy
	}
	for _, sons := range rela {
		sort.Slice(sons, func(i, j int) bool { return sons[i] < sons[j] })
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i] < rs[j] })

	seen := make(map[uint64]bool, len(edges))
	for _, r := range rs {
		seen[r] = true
		sub, err := allDownLine(rela, r, seen)
		if err != nil {
			return err
		}
		for _, id := range sub {
			seen[id] = true
		}
	}
	if len(seen) != len(edges) {
		return errors.Errorf("dirty referral data, %d customers unreachable from any root", len(edges)-len(seen))
	}

	mu.Lock()
	userRelaMap, fatherMap, rewardMap, roots = rela, fathers, rewards, rs
	relateUpdated = time.Now()
	mu.Unlock()
	return nil
}

// GetAllDownLineUsers 获取当前用户的所有下线
func GetAllDownLineUsers(uid uint64, cm map[uint64]bool) ([]uint64, error) {
	mu.RLock()
	defer mu.RUnlock()
	return allDownLine(userRelaMap, uid, cm)
}

func allDownLine(rela map[uint64][]uint64, uid uint64, cm map[uint64]bool) (ids []uint64, err error) {
	ids = make([]uint64, 0)
	users := rela[uid]
	if len(users) == 0 {
		return ids, nil
	}
	ids = append(ids, users...)
	for _, user := range users {
		if cm[user] {
			err = errors.Errorf("dirty user data cause circle in relation, id: %d", user)
			return
		}
		cm[user] = true
		subs, err := allDownLine(rela, user, cm)
		if err != nil {
			return ids, err
		}
		ids = append(ids, subs...)
	}
	return
}

// GetDownLineUsers 获取当前用户的直接下线
func GetDownLineUsers(uid uint64) []uint64 {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]uint64, 0, len(userRelaMap[uid]))
	ids = append(ids, userRelaMap[uid]...)
	return ids
}

// GetFather returns the referrer of uid inside the tree.
func GetFather(uid uint64) (uint64, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := fatherMap[uid]
	return f, ok
}

// UpdatedAt reports when the tree was last replaced, zero before the first build.
func UpdatedAt() time.Time {
	mu.RLock()
	defer mu.RUnlock()
	return relateUpdated
}

// Contains reports whether uid is part of the current tree.
func Contains(uid uint64) bool {
	mu.RLock()
	defer mu.RUnlock()
	_, ok := rewardMap[uid]
	return ok
}

func Roots() []uint64 {
	mu.RLock()
	defer mu.RUnlock()
	return append([]uint64(nil), roots...)
}

func Rewards(uid uint64) decimal.Decimal {
	mu.RLock()
	defer mu.RUnlock()
	return rewardMap[uid]
}

// TeamRewards sums unsettled rewards of every downline customer of uid, uid excluded.
func TeamRewards(uid uint64) (decimal.Decimal, error) {
	users, err := GetAllDownLineUsers(uid, map[uint64]bool{uid: true})
	if err != nil {
		return decimal.Zero, err
	}
	mu.RLock()
	defer mu.RUnlock()
	total := decimal.Zero
	for _, u := range users {
		total = total.Add(rewardMap[u])
	}
	return total, nil
}

func Flush() {
	mu.Lock()
	userRelaMap = make(map[uint64][]uint64)
	fatherMap = make(map[uint64]uint64)
	rewardMap = make(map[uint64]decimal.Decimal)
	roots = nil
	relateUpdated = time.Time{}
	mu.Unlock()
}
