package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/LJTian/DailyBriefing/internal/scheduler"
	"github.com/LJTian/DailyBriefing/internal/storage"
	"github.com/gin-gonic/gin"
)

// RunStore is the read side of the run archive.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]storage.Run, error)
	LatestDelivered(ctx context.Context) (*storage.Run, error)
}

// Trigger starts an out-of-schedule run.
type Trigger interface {
	Trigger() error
	Running() bool
	Next() time.Time
}

type Server struct {
	store   RunStore
	trigger Trigger
}

// NewServer builds the HTTP surface. store may be nil when no archive is configured.
func NewServer(store RunStore, trigger Trigger) *Server {
	return &Server{store: store, trigger: trigger}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/runs", s.listRuns)
		v1.GET("/runs/latest", s.latestRun)
		v1.POST("/runs", s.triggerRun)
	}
}

func (s *Server) health(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.trigger != nil {
		body["running"] = s.trigger.Running()
		if next := s.trigger.Next(); !next.IsZero() {
			body["nextRun"] = next
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) listRuns(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	limitStr := c.DefaultQuery("limit", "20")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 20
	}

	runs, err := s.store.ListRuns(c.Request.Context(), limit)
	if err != nil {
		logging.Error("list runs failed", "err", err)
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    runs,
	})
}

func (s *Server) latestRun(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	run, err := s.store.LatestDelivered(c.Request.Context())
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"code":    "not_found",
			"message": "no briefing delivered yet",
		})
		return
	}
	if err != nil {
		logging.Error("latest run failed", "err", err)
		internalError(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    "ok",
		"message": "success",
		"data":    run,
	})
}

func (s *Server) triggerRun(c *gin.Context) {
	if s.trigger == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"code":    "unavailable",
			"message": "scheduler not running",
		})
		return
	}

	if err := s.trigger.Trigger(); err != nil {
		if errors.Is(err, scheduler.ErrBusy) {
			c.JSON(http.StatusConflict, gin.H{
				"code":    "busy",
				"message": err.Error(),
			})
			return
		}
		logging.Error("trigger run failed", "err", err)
		internalError(c)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    "ok",
		"message": "run started",
	})
}

func (s *Server) requireStore(c *gin.Context) bool {
	if s.store != nil {
		return true
	}
	c.JSON(http.StatusNotImplemented, gin.H{
		"code":    "archive_disabled",
		"message": "run archive not configured",
	})
	return false
}

func internalError(c *gin.Context) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}

// BasicAuth guards every route except /health with a single user/password pair.
func BasicAuth(user, pass string) gin.HandlerFunc {
	const realm = "Restricted"
	uBytes := []byte(user)
	pBytes := []byte(pass)

	return func(c *gin.Context) {
		if c.Request.URL.Path == "/health" {
			c.Next()
			return
		}
		u, p, ok := c.Request.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(u), uBytes) != 1 ||
			subtle.ConstantTimeCompare([]byte(p), pBytes) != 1 {
			c.Header("WWW-Authenticate", `Basic realm="`+realm+`"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Next()
	}
}
