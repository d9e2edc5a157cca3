package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"gopkg.in/yaml.v3"

	"rss-reader/internal/domain/entity"
)

// seedFile lists the feeds to subscribe:
//
//	feeds:
//	  - url: https://go.dev/blog/feed.atom
//	    title: The Go Blog
//	    fetch_interval_minutes: 60
//	  - url: https://example.com/rss
//	    enabled: false
type seedFile struct {
	Feeds []seedFeed `yaml:"feeds"`
}

type seedFeed struct {
	URL                  string `yaml:"url"`
	Title                string `yaml:"title"`
	SiteURL              string `yaml:"site_url"`
	Enabled              *bool  `yaml:"enabled"`
	FetchIntervalMinutes int    `yaml:"fetch_interval_minutes"`
}

type feedCreator interface {
	CreateIfAbsent(ctx context.Context, feed *entity.Feed) (bool, error)
}

type seedStats struct {
	Created  int
	Existing int
}

func parseSeed(r io.Reader) ([]*entity.Feed, error) {
	var f seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed file: %w", err)
	}

	feeds := make([]*entity.Feed, 0, len(f.Feeds))
	for i, sf := range f.Feeds {
		feed := &entity.Feed{
			URL:                  sf.URL,
			Title:                sf.Title,
			SiteURL:              sf.SiteURL,
			Enabled:              sf.Enabled == nil || *sf.Enabled,
			FetchIntervalMinutes: sf.FetchIntervalMinutes,
		}
		if err := feed.Validate(); err != nil {
			return nil, fmt.Errorf("feed %d: %w", i+1, err)
		}
		feeds = append(feeds, feed)
	}
	return feeds, nil
}

// seedFeeds subscribes every feed whose URL is not already present.
func seedFeeds(ctx context.Context, logger *slog.Logger, repo feedCreator, feeds []*entity.Feed) (seedStats, error) {
	var stats seedStats
	for _, feed := range feeds {
		created, err := repo.CreateIfAbsent(ctx, feed)
		if err != nil {
			return stats, fmt.Errorf("seed %s: %w", feed.URL, err)
		}
		if created {
			stats.Created++
			logger.Info("feed subscribed", slog.Int64("feed_id", feed.ID), slog.String("url", feed.URL))
		} else {
			stats.Existing++
		}
	}
	return stats, nil
}
