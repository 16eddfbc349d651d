package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trendwire/trendwire/internal/storage"
)

type Server struct {
	store *storage.Store
}

func NewServer(store *storage.Store) *Server {
	return &Server{store: store}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/trends", s.listTrends)
		v1.GET("/runs/latest", s.latestRun)
		v1.GET("/dates", s.listDates)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// listTrends serves a published trend list. Consumers get read-only data;
// badge tiers are stored as derived fields of the run that produced them.
func (s *Server) listTrends(c *gin.Context) {
	date := c.Query("date")
	category := c.Query("category")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 50
	}

	items, err := s.store.ListTrends(date, category, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    items,
	})
}

// latestRun exposes the most recent run report, including aborted runs, so a
// failed day is diagnosable without re-running.
func (s *Server) latestRun(c *gin.Context) {
	run, err := s.store.LatestRun()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no runs recorded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    run,
	})
}

func (s *Server) listDates(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "31")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 31
	}

	dates, err := s.store.ListRunDates(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"code":    "internal_error",
			"message": "internal server error",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    dates,
	})
}
