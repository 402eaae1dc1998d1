// Package api exposes the extraction service over HTTP using gin.
package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"callscribe/internal/domain"
	"callscribe/internal/service"
)

// Extractor is the part of the service the HTTP layer calls.
type Extractor interface {
	Extract(ctx context.Context, req service.Request) (domain.ExtractionResult, error)
	RecentRuns(ctx context.Context, limit int) ([]domain.RunRecord, error)
}

// RouterConfig holds the HTTP-only knobs.
type RouterConfig struct {
	Mode      string
	RateRPS   float64
	RateBurst int
}

// NewRouter creates a configured gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestLogger
//	/scrape: RateLimit
func NewRouter(svc Extractor, cfg RouterConfig, logger logrus.FieldLogger, startTime time.Time) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	log := logger.WithField("component", "api")

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))

	r.GET("/", Root())
	r.GET("/health", Health(startTime))
	r.GET("/runs", Runs(svc, log))
	r.POST("/scrape", RateLimit(cfg.RateRPS, cfg.RateBurst), Scrape(svc, log))

	return r
}
