package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Label is the static topic bucket a feed belongs to.
type Label string

const (
	LabelGeneral Label = "general"
	LabelAI      Label = "ai"
)

// Valid reports whether l is one of the known labels.
func (l Label) Valid() bool {
	return l == LabelGeneral || l == LabelAI
}

// Feed is one configured RSS source.
type Feed struct {
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
	Label Label  `yaml:"label" json:"label"`
}

// DefaultFeeds is used when FEEDS_FILE is not set.
func DefaultFeeds() []Feed {
	return []Feed{
		{Name: "BBC World", URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Label: LabelGeneral},
		{Name: "NPR News", URL: "https://feeds.npr.org/1001/rss.xml", Label: LabelGeneral},
		{Name: "MIT Technology Review", URL: "https://www.technologyreview.com/feed/", Label: LabelAI},
		{Name: "The Verge AI", URL: "https://www.theverge.com/rss/ai-artificial-intelligence/index.xml", Label: LabelAI},
		{Name: "Hacker News", URL: "https://hnrss.org/frontpage", Label: LabelAI},
	}
}

type feedsFile struct {
	Feeds []Feed `yaml:"feeds"`
}

// LoadFeeds reads a YAML feed list:
//
//	feeds:
//	  - name: BBC World
//	    url: https://feeds.bbci.co.uk/news/world/rss.xml
//	    label: general
func LoadFeeds(path string) ([]Feed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feeds file: %w", err)
	}
	return ParseFeeds(data)
}

// ParseFeeds decodes a YAML feed list and normalizes labels and names.
func ParseFeeds(data []byte) ([]Feed, error) {
	var f feedsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse feeds yaml: %w", err)
	}

	feeds := make([]Feed, 0, len(f.Feeds))
	for _, fd := range f.Feeds {
		fd.URL = strings.TrimSpace(fd.URL)
		fd.Label = Label(strings.ToLower(strings.TrimSpace(string(fd.Label))))
		fd.Name = strings.TrimSpace(fd.Name)
		if fd.Name == "" {
			fd.Name = fd.URL
		}
		feeds = append(feeds, fd)
	}
	return feeds, nil
}

// ValidateFeeds rejects empty lists, missing URLs and unknown labels.
func ValidateFeeds(feeds []Feed) error {
	if len(feeds) == 0 {
		return fmt.Errorf("no feeds configured")
	}
	for i, fd := range feeds {
		if fd.URL == "" {
			return fmt.Errorf("feed %d (%s): url is required", i, fd.Name)
		}
		if !fd.Label.Valid() {
			return fmt.Errorf("feed %d (%s): unknown label %q, want %q or %q", i, fd.Name, fd.Label, LabelGeneral, LabelAI)
		}
	}
	return nil
}
