package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"callscribe/internal/domain"
	"callscribe/internal/service"
)

func errorBody(msg string) gin.H {
	return gin.H{"error": msg}
}

// Root answers liveness checks that only check the process is up.
func Root() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.String(http.StatusOK, "Server is running!")
	}
}

// Health returns a handler for GET /health.
func Health(startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(startTime).Round(time.Second).String(),
		})
	}
}

// Scrape returns a handler for POST /scrape.
//
// 400 for a missing or invalid videoUrl, 500 when extraction failed,
// 200 with the call metadata and transcript otherwise.
func Scrape(svc Extractor, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req domain.ExtractionRequest
		if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
			c.JSON(http.StatusBadRequest, errorBody("Missing videoUrl"))
			return
		}

		res, err := svc.Extract(c.Request.Context(), service.Request{
			URL:    strings.TrimSpace(req.URL),
			Source: domain.SourceHTTP,
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidURL) {
				c.JSON(http.StatusBadRequest, errorBody(err.Error()))
				return
			}
			log.WithError(err).Error("Unexpected extraction error")
			c.JSON(http.StatusInternalServerError, errorBody(err.Error()))
			return
		}

		if !res.OK() {
			c.JSON(http.StatusInternalServerError, res)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// Runs returns a handler for GET /runs?limit=N.
func Runs(svc Extractor, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, errorBody("limit must be a positive integer"))
				return
			}
			limit = n
		}

		runs, err := svc.RecentRuns(c.Request.Context(), limit)
		if err != nil {
			log.WithError(err).Error("Failed to list runs")
			c.JSON(http.StatusInternalServerError, errorBody("failed to list runs"))
			return
		}
		if runs == nil {
			runs = []domain.RunRecord{}
		}
		c.JSON(http.StatusOK, gin.H{"runs": runs})
	}
}
