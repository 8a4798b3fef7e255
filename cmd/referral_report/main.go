package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"server-reward-engine/config"
	"server-reward-engine/internal/app/dgraph"
	"server-reward-engine/internal/app/group"
	"server-reward-engine/internal/db"
	"server-reward-engine/internal/pkg/logger"
)

var fromGraph bool

func init() {
	flag.BoolVar(&fromGraph, "dgraph", false, "read link rewards from dgraph instead of the database")
}

func main() {
	flag.Parse()
	config.Init()
	logger.Init()
	db.Init()

	// prepare group relation
	if err := group.GetLatestGroupRela(db.DB); err != nil {
		log.Fatalf("update relation failed: %+v", err)
	}

	rewards := group.Rewards
	if fromGraph {
		if err := dgraph.Open(config.Server.DgraphAddr); err != nil {
			log.Fatalf("open d-graph failed: %v", err)
		}
		defer dgraph.Close()
		linked, err := getLinkRewards()
		if err != nil {
			log.Fatalf("get link rewards failed: %v", err)
		}
		rewards = func(uid uint64) decimal.Decimal {
			if v, ok := linked[uid]; ok {
				return v
			}
			return group.Rewards(uid)
		}
		log.Infof("get link rewards done")
	}

	// prepare team amount file
	path := fmt.Sprintf("team_rewards_%s.txt", time.Now().Format("20060102150405"))
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("create team rewards file failed: %v", err)
	}
	defer f.Close()

	ctx := newCalcContext(rewards)
	for _, root := range group.Roots() {
		ctx.calcTeamRewards(root)
	}
	log.Infof("calc team rewards done.")

	w := bufio.NewWriter(f)
	if err = ctx.write(w); err != nil {
		log.Fatalf("write file failed: %v", err)
	}
	if err = w.Flush(); err != nil {
		log.Fatalf("flush file failed: %v", err)
	}
	log.Infof("report written to %s", path)
}

type calcContext struct {
	rewards        func(uid uint64) decimal.Decimal
	teamRewards    map[uint64]decimal.Decimal
	inviteRelation map[uint64]uint64 // child:parent
	order          []uint64
}

func newCalcContext(rewards func(uint64) decimal.Decimal) *calcContext {
	return &calcContext{
		rewards:        rewards,
		teamRewards:    make(map[uint64]decimal.Decimal),
		inviteRelation: make(map[uint64]uint64),
	}
}

// calcTeamRewards returns uid's own rewards plus those of its whole downline.
func (ctx *calcContext) calcTeamRewards(uid uint64) decimal.Decimal {
	ctx.order = append(ctx.order, uid)
	mine := ctx.rewards(uid)
	for _, child := range group.GetDownLineUsers(uid) {
		ctx.inviteRelation[child] = uid
		mine = mine.Add(ctx.calcTeamRewards(child))
	}
	ctx.teamRewards[uid] = mine
	return mine
}

// write emits uid, own rewards, team rewards and referrer for every customer with any rewards.
func (ctx *calcContext) write(w *bufio.Writer) error {
	for _, uid := range ctx.order {
		own, team := ctx.rewards(uid), ctx.teamRewards[uid]
		if !own.IsPositive() && !team.IsPositive() {
			continue
		}
		ref := ""
		if p, ok := ctx.inviteRelation[uid]; ok {
			ref = strconv.FormatUint(p, 10)
		}
		// uid, 奖励, 团队奖励, 邀请人
		if _, err := fmt.Fprintf(w, "%d,%s,%s,%s\n", uid, own.StringFixed(2), team.StringFixed(2), ref); err != nil {
			return err
		}
	}
	return nil
}

// 获取dgraph上每条邀请关系记录的下线奖励
func getLinkRewards() (map[uint64]decimal.Decimal, error) {
	relations, err := dgraph.ListRelation(context.Background(), 5000)
	if err != nil {
		return nil, fmt.Errorf("list relation from d-graph failed: %v", err)
	}
	out := make(map[uint64]decimal.Decimal, len(relations))
	for relation, val := range relations {
		tmp := strings.Split(relation, dgraph.RelationSep)
		if len(tmp) != 2 {
			return nil, fmt.Errorf("bad relation %s", relation)
		}
		child, err := strconv.ParseUint(tmp[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad relation %s: %v", relation, err)
		}
		out[child] = val
	}
	return out, nil
}
