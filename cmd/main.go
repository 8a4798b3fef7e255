package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"server-reward-engine/config"
	"server-reward-engine/internal/app/dgraph"
	"server-reward-engine/internal/app/reward"
	"server-reward-engine/internal/app/service"
	"server-reward-engine/internal/db"
	"server-reward-engine/internal/pkg/logger"
	"server-reward-engine/internal/pkg/metrics"
	"server-reward-engine/internal/pkg/util"
)

func main() {
	flag.Parse()
	config.Init()
	logger.Init()
	util.SetLocation(config.Reward.TimeZone)
	db.Init()

	if addr := config.Server.DgraphAddr; addr != "" {
		if err := dgraph.Open(addr); err != nil {
			log.Errorf("open dgraph %s: %v, relation export disabled", addr, err)
		}
	}

	engine := reward.New(db.DB, reward.Options{
		MaxInfinityDepth:    config.Reward.MaxInfinityDepth,
		MaxSlotsPerEvent:    config.Reward.MaxSlotsPerEvent,
		RecentActivityLimit: config.Reward.RecentActivityLimit,
		Location:            util.Loc,
		Metrics:             metrics.Reward(),
	})

	go service.RunHttp(engine)
	if err := service.RewardTicker(db.DB, engine); err != nil {
		log.Fatalf("start ticker: %v", err)
	}
	go service.RelationJob(db.DB)

	// Wait for interrupt signal to gracefully shutdown the server with
	// a timeout of 5 seconds.
	quit := make(chan os.Signal, 1)
	// kill (no param) default send syscall.SIGTERM
	// kill -2 is syscall.SIGINT
	// kill -9 is syscall.SIGKILL but can't be catch, so don't need add it
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown Server ...")
	service.StopTicker()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := service.GetHttp().Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	_ = dgraph.Close()
	log.Info("Server exiting")
}
