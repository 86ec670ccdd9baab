package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"github.com/LJTian/DailyBriefing/internal/collector"
	"github.com/LJTian/DailyBriefing/internal/config"
	"github.com/LJTian/DailyBriefing/internal/logging"
)

// Buckets holds the two per-run groupings. Order inside each bucket is arrival order.
type Buckets struct {
	General []collector.Entry
	AI      []collector.Entry
}

// Len is the total number of entries across both buckets.
func (b Buckets) Len() int {
	return len(b.General) + len(b.AI)
}

// Get returns the bucket for label, or nil for an unknown label.
func (b Buckets) Get(label config.Label) []collector.Entry {
	switch label {
	case config.LabelGeneral:
		return b.General
	case config.LabelAI:
		return b.AI
	}
	return nil
}

// Sorter partitions entries by their feed label. It never looks at content.
type Sorter struct {
	dedupe bool
}

type SorterOption func(*Sorter)

// WithDedupe collapses repeated URLs inside one bucket to their first occurrence.
func WithDedupe() SorterOption {
	return func(s *Sorter) {
		s.dedupe = true
	}
}

func NewSorter(opts ...SorterOption) *Sorter {
	s := &Sorter{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sort routes every entry into the bucket named by its label. Entries with an unknown
// label are dropped.
func (s *Sorter) Sort(entries []collector.Entry) Buckets {
	var out Buckets
	seen := map[config.Label]map[string]struct{}{
		config.LabelGeneral: {},
		config.LabelAI:      {},
	}

	for _, e := range entries {
		ids, ok := seen[e.Label]
		if !ok {
			logging.Warn("dropping entry with unknown label", "label", e.Label, "source", e.Source, "url", e.URL)
			continue
		}
		if s.dedupe {
			id := hashURL(strings.TrimSpace(e.URL))
			if _, dup := ids[id]; dup {
				continue
			}
			ids[id] = struct{}{}
		}

		e.Title = strings.TrimSpace(e.Title)
		switch e.Label {
		case config.LabelGeneral:
			out.General = append(out.General, e)
		case config.LabelAI:
			out.AI = append(out.AI, e)
		}
	}

	return out
}

func hashURL(url string) string {
	h := sha1.New()
	h.Write([]byte(url))
	return hex.EncodeToString(h.Sum(nil))
}
