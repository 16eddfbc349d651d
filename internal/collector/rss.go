package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	rssMaxResponseBytes = 2 << 20 // 2MB
	fetchUserAgent      = "TrendWireBot/1.0"
)

// RSSFetcher pulls items from RSS/Atom feeds via gofeed. One instance serves
// every rss-kind source in the catalog.
type RSSFetcher struct {
	client *http.Client
}

func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{client: &http.Client{}}
}

func (f *RSSFetcher) Kind() Kind {
	return KindRSS
}

func (f *RSSFetcher) Fetch(ctx context.Context, spec SourceSpec) (FetchResult, error) {
	body, err := f.get(ctx, spec.URL)
	if err != nil && spec.Fallback != "" {
		body, err = f.get(ctx, spec.Fallback)
	}
	if err != nil {
		return FetchResult{}, fmt.Errorf("%s: fetch feed: %w", spec.Key, err)
	}

	feed, err := gofeed.NewParser().ParseString(body)
	if err != nil {
		return FetchResult{}, fmt.Errorf("%s: parse feed: %w", spec.Key, err)
	}

	now := time.Now()
	res := FetchResult{Candidates: make([]Candidate, 0, spec.Limit)}
	for _, it := range feed.Items {
		if len(res.Candidates) >= spec.Limit {
			break
		}
		if it == nil || it.Title == "" {
			res.Skipped++
			continue
		}

		published := time.Time{}
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			published = *it.UpdatedParsed
		}

		author := ""
		if it.Author != nil {
			author = it.Author.Name
		}

		res.Candidates = append(res.Candidates, Candidate{
			Title:        it.Title,
			URL:          it.Link,
			Source:       spec.Key,
			Author:       author,
			CategoryHint: spec.Category,
			PublishedAt:  published,
			ObservedAt:   now,
		})
	}

	return res, nil
}

func (f *RSSFetcher) get(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &statusError{source: url, code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, rssMaxResponseBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}
