package service

import (
	"fmt"
	"net/http"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"server-reward-engine/config"
	"server-reward-engine/internal/app/reward"
	"server-reward-engine/internal/pkg/generr"
	"server-reward-engine/internal/pkg/middleware"
)

var srv *http.Server

// NewRouter wires the reward routes, metrics and pprof.
func NewRouter(e *reward.Engine) *gin.Engine {
	if config.Server.GinMode != "" {
		gin.SetMode(config.Server.GinMode)
	}
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorf("panic: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, generr.ServerError)
	}), middleware.AccessLog())
	pprof.Register(r)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	reward.NewHandler(e).Register(r)
	return r
}

func RunHttp(e *reward.Engine) {
	srv = &http.Server{
		Addr:    fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port),
		Handler: NewRouter(e),
	}

	log.Infof("Start to listen %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("listen: %s\n", err)
	}
}

func GetHttp() *http.Server {
	return srv
}
