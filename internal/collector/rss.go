package collector

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/LJTian/DailyBriefing/internal/config"
	"github.com/LJTian/DailyBriefing/internal/logging"
	"github.com/gocolly/colly/v2"
	"github.com/mmcdole/gofeed"
)

const (
	rssUserAgent       = "DailyBriefingBot/1.0"
	rssMaxBodyBytes    = 4 << 20 // 4MB
	rssSummaryMaxRunes = 280
	rssDefaultTimeout  = 15 * time.Second
)

// RSSFetcher pulls one RSS/Atom feed and tags every entry with the feed's label.
type RSSFetcher struct {
	feed     config.Feed
	maxItems int
	timeout  time.Duration
	parser   *gofeed.Parser
}

// NewRSSFetcher builds a fetcher for feed. maxItems <= 0 means no cap.
func NewRSSFetcher(feed config.Feed, maxItems int, timeout time.Duration) *RSSFetcher {
	if timeout <= 0 {
		timeout = rssDefaultTimeout
	}
	return &RSSFetcher{
		feed:     feed,
		maxItems: maxItems,
		timeout:  timeout,
		parser:   gofeed.NewParser(),
	}
}

// NewRSSFetchers builds one fetcher per configured feed, keeping configuration order.
func NewRSSFetchers(feeds []config.Feed, maxItems int, timeout time.Duration) []Fetcher {
	out := make([]Fetcher, 0, len(feeds))
	for _, f := range feeds {
		out = append(out, NewRSSFetcher(f, maxItems, timeout))
	}
	return out
}

func (r *RSSFetcher) Name() string {
	return r.feed.Name
}

func (r *RSSFetcher) Label() config.Label {
	return r.feed.Label
}

func (r *RSSFetcher) Fetch(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body, err := r.download(ctx)
	if err != nil {
		return nil, fmt.Errorf("rss: fetch %s: %w", r.feed.URL, err)
	}

	feed, err := r.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("rss: parse %s: %w", r.feed.URL, err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if r.maxItems > 0 && len(entries) >= r.maxItems {
			break
		}
		e, ok := r.toEntry(item)
		if !ok {
			continue
		}
		entries = append(entries, e)
	}

	logging.Debug("rss feed parsed", "feed", r.feed.Name, "items", len(feed.Items), "kept", len(entries))
	return entries, nil
}

// download retrieves the raw feed document as UTF-8. Non-2xx responses surface as errors.
// The request timeout never outlives the deadline carried by ctx.
func (r *RSSFetcher) download(ctx context.Context) ([]byte, error) {
	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return nil, context.DeadlineExceeded
		}
		if left < timeout {
			timeout = left
		}
	}

	c := colly.NewCollector(
		colly.UserAgent(rssUserAgent),
		colly.MaxBodySize(rssMaxBodyBytes),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(timeout)
	c.OnRequest(func(req *colly.Request) {
		if ctx.Err() != nil {
			req.Abort()
			return
		}
		req.Headers.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")
	})

	var body []byte
	c.OnResponse(func(resp *colly.Response) {
		body = resp.Body
		if transcoded(resp.Headers.Get("Content-Type")) {
			body = rewriteXMLEncoding(body)
		}
	})

	var status int
	c.OnError(func(resp *colly.Response, err error) {
		if resp != nil {
			status = resp.StatusCode
		}
	})

	if err := c.Visit(r.feed.URL); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%w: %w", ctxErr, err)
		}
		if status != 0 {
			return nil, fmt.Errorf("status %d: %w", status, err)
		}
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return body, nil
}

func (r *RSSFetcher) toEntry(item *gofeed.Item) (Entry, bool) {
	if item == nil {
		return Entry{}, false
	}

	title := strings.Join(strings.Fields(item.Title), " ")
	link := strings.TrimSpace(item.Link)
	if link == "" && strings.HasPrefix(item.GUID, "http") {
		link = strings.TrimSpace(item.GUID)
	}
	if title == "" || link == "" {
		return Entry{}, false
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	var published time.Time
	if item.PublishedParsed != nil {
		published = *item.PublishedParsed
	} else if item.UpdatedParsed != nil {
		published = *item.UpdatedParsed
	}

	return Entry{
		Title:       title,
		URL:         link,
		Summary:     truncateRunes(stripHTML(summary), rssSummaryMaxRunes),
		Source:      r.feed.Name,
		Label:       r.feed.Label,
		PublishedAt: published,
	}, true
}
