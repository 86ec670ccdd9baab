package pipeline

import (
	"github.com/LJTian/DailyBriefing/internal/briefing"
	"github.com/LJTian/DailyBriefing/internal/collector"
	"github.com/LJTian/DailyBriefing/internal/config"
	"github.com/LJTian/DailyBriefing/internal/delivery"
	"github.com/LJTian/DailyBriefing/internal/processor"
)

// Build wires a pipeline from configuration: one RSS fetcher per feed, the selected
// model provider, and the webhook (or stdout when DryRun is set).
func Build(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	provider, err := briefing.NewProvider(cfg)
	if err != nil {
		return nil, err
	}

	var sender delivery.Sender
	if cfg.DryRun {
		sender = delivery.NewWriter(nil)
	} else {
		sender = delivery.NewWebhook(cfg.WebhookURL, cfg.WebhookFormat)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	fetchers := collector.NewRSSFetchers(cfg.Feeds, cfg.FeedMaxItems, cfg.FetchTimeout)
	var sortOpts []processor.SorterOption
	if cfg.DedupeURLs {
		sortOpts = append(sortOpts, processor.WithDedupe())
	}

	opts = append([]Option{WithLocation(loc), WithSorter(processor.NewSorter(sortOpts...))}, opts...)
	return New(fetchers, provider, sender, opts...), nil
}
