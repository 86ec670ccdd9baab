package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/LJTian/DailyBriefing/internal/pipeline"
	"github.com/redis/go-redis/v9"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Run statuses.
const (
	StatusDelivered = "delivered"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

const (
	runsCacheKey   = "briefing:runs:list"
	runsCacheTTL   = 5 * time.Minute
	errorMaxRunes  = 1000
	defaultListLen = 20
	maxListLen     = 200
)

// ErrNotFound is returned when no archived run matches.
var ErrNotFound = errors.New("run not found")

// Run is the archived record of one pipeline execution.
type Run struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	RunDate      string         `gorm:"size:10;index" json:"runDate"` // YYYY-MM-DD in the briefing timezone
	Status       string         `gorm:"size:16;index" json:"status"`
	StartedAt    time.Time      `gorm:"index" json:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt"`
	GeneralCount int            `json:"generalCount"`
	AICount      int            `json:"aiCount"`
	Provider     string         `gorm:"size:32" json:"provider"`
	Model        string         `gorm:"size:64" json:"model"`
	Message      string         `gorm:"type:text" json:"message"`
	Error        string         `gorm:"size:1024" json:"error,omitempty"`
	FeedErrors   datatypes.JSON `gorm:"type:jsonb" json:"feedErrors"`

	CreatedAt time.Time `json:"createdAt"`
}

// Store archives runs in Postgres. Redis, when present, caches the recent list.
type Store struct {
	DB    *gorm.DB
	Redis *redis.Client
	loc   *time.Location
}

// NewStore opens the archive. redisAddr may be empty to disable caching.
func NewStore(dsn, redisAddr string, loc *time.Location) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}

	var rdb *redis.Client
	if redisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: redisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logging.Warn("redis ping failed", "addr", redisAddr, "err", err)
		}
	}

	return newStore(db, rdb, loc)
}

func newStore(db *gorm.DB, rdb *redis.Client, loc *time.Location) (*Store, error) {
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Store{DB: db, Redis: rdb, loc: loc}, nil
}

// SaveRun stores a finished run and drops the cached list.
func (s *Store) SaveRun(ctx context.Context, res *pipeline.Result, runErr error) error {
	run, err := newRun(res, runErr, s.loc)
	if err != nil {
		return err
	}
	if err := s.DB.WithContext(ctx).Create(run).Error; err != nil {
		return fmt.Errorf("storage: save run: %w", err)
	}
	if s.Redis != nil {
		_ = s.Redis.Del(ctx, runsCacheKey).Err()
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	limit = clampLimit(limit)
	cacheKey := fmt.Sprintf("%s:%d", runsCacheKey, limit)

	if s.Redis != nil {
		if bs, err := s.Redis.HGet(ctx, runsCacheKey, cacheKey).Bytes(); err == nil {
			var cached []Run
			if err := json.Unmarshal(bs, &cached); err == nil {
				return cached, nil
			}
		}
	}

	var list []Run
	if err := s.DB.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&list).Error; err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}

	if s.Redis != nil && len(list) > 0 {
		if bs, err := json.Marshal(list); err == nil {
			pipe := s.Redis.TxPipeline()
			pipe.HSet(ctx, runsCacheKey, cacheKey, bs)
			pipe.Expire(ctx, runsCacheKey, runsCacheTTL)
			_, _ = pipe.Exec(ctx)
		}
	}
	return list, nil
}

// LatestDelivered returns the newest successfully delivered run.
func (s *Store) LatestDelivered(ctx context.Context) (*Run, error) {
	var run Run
	err := s.DB.WithContext(ctx).
		Where("status = ?", StatusDelivered).
		Order("started_at DESC").
		First(&run).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("storage: latest run: %w", err)
	}
	return &run, nil
}

func newRun(res *pipeline.Result, runErr error, loc *time.Location) (*Run, error) {
	if res == nil {
		return nil, fmt.Errorf("storage: nil result")
	}
	if loc == nil {
		loc = time.Local
	}

	feedErrs := res.FeedErrors
	if feedErrs == nil {
		feedErrs = []pipeline.FeedError{}
	}
	fe, err := json.Marshal(feedErrs)
	if err != nil {
		return nil, fmt.Errorf("storage: encode feed errors: %w", err)
	}

	run := &Run{
		RunDate:      res.StartedAt.In(loc).Format("2006-01-02"),
		Status:       statusFor(runErr),
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
		GeneralCount: len(res.Buckets.General),
		AICount:      len(res.Buckets.AI),
		Provider:     res.Provider,
		Model:        res.Model,
		Message:      toValidUTF8(res.Message),
		FeedErrors:   datatypes.JSON(fe),
	}
	if runErr != nil {
		run.Error = truncateRunesDB(toValidUTF8(runErr.Error()), errorMaxRunes)
	}
	return run, nil
}

func statusFor(err error) string {
	switch {
	case err == nil:
		return StatusDelivered
	case errors.Is(err, pipeline.ErrNoEntries):
		return StatusSkipped
	default:
		return StatusFailed
	}
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLen
	}
	if limit > maxListLen {
		return maxListLen
	}
	return limit
}

// toValidUTF8 keeps Postgres from rejecting invalid byte sequences coming from feeds or models.
func toValidUTF8(s string) string {
	return strings.ToValidUTF8(s, "�")
}

// truncateRunesDB cuts s to limit runes so it fits the column.
func truncateRunesDB(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	s = strings.TrimSpace(s)
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit])
}
