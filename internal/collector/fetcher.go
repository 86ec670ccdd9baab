package collector

import (
	"context"
	"time"

	"github.com/LJTian/DailyBriefing/internal/config"
)

// Entry is one article parsed out of a feed. It lives for a single run.
type Entry struct {
	Title string
	URL   string
	// Summary is plain text; may be empty.
	Summary     string
	Source      string
	Label       config.Label
	PublishedAt time.Time
}

// Fetcher abstracts one configured source.
type Fetcher interface {
	Name() string
	Label() config.Label
	Fetch(ctx context.Context) ([]Entry, error)
}
