package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"sync"
	"time"
)

const (
	hnMaxResponseBytes = 1 << 20 // 1MB
	hnConcurrency      = 10
)

// HackerNewsFetcher serves api-kind sources: a top-stories id list followed by
// concurrent per-item JSON lookups. When the API is unreachable and the spec
// carries a fallback, that fallback is read as a feed.
type HackerNewsFetcher struct {
	client *http.Client
	rss    *RSSFetcher
}

func NewHackerNewsFetcher() *HackerNewsFetcher {
	return &HackerNewsFetcher{client: &http.Client{}, rss: NewRSSFetcher()}
}

func (h *HackerNewsFetcher) Kind() Kind {
	return KindAPI
}

type hnItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Score int    `json:"score"`
	By    string `json:"by"`
	Time  int64  `json:"time"`
	Type  string `json:"type"`
}

func (h *HackerNewsFetcher) Fetch(ctx context.Context, spec SourceSpec) (FetchResult, error) {
	var ids []int
	if err := h.getJSON(ctx, spec.URL+"/topstories.json", &ids); err != nil {
		if spec.Fallback != "" {
			fspec := spec
			fspec.URL = spec.Fallback
			fspec.Fallback = ""
			return h.rss.Fetch(ctx, fspec)
		}
		return FetchResult{}, fmt.Errorf("%s: fetch top stories: %w", spec.Key, err)
	}
	if len(ids) > spec.Limit {
		ids = ids[:spec.Limit]
	}

	type indexed struct {
		idx  int
		item hnItem
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, hnConcurrency)
		items   = make([]indexed, 0, len(ids))
		skipped int
	)

	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx, id int) {
			defer wg.Done()
			defer func() { <-sem }()

			var it hnItem
			url := fmt.Sprintf("%s/item/%d.json", spec.URL, id)
			if err := h.getJSON(ctx, url, &it); err != nil {
				log.Printf("%s: fetch item %d: %v", spec.Key, id, err)
				mu.Lock()
				skipped++
				mu.Unlock()
				return
			}
			if it.Title == "" || it.Type != "story" {
				mu.Lock()
				skipped++
				mu.Unlock()
				return
			}

			mu.Lock()
			items = append(items, indexed{idx: idx, item: it})
			mu.Unlock()
		}(i, id)
	}
	wg.Wait()

	// Restore front-page rank order after the concurrent item fetches.
	sort.Slice(items, func(a, b int) bool { return items[a].idx < items[b].idx })

	now := time.Now()
	res := FetchResult{
		Candidates: make([]Candidate, 0, len(items)),
		Skipped:    skipped,
	}
	for _, ii := range items {
		it := ii.item
		itemURL := it.URL
		if itemURL == "" {
			itemURL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", it.ID)
		}
		res.Candidates = append(res.Candidates, Candidate{
			Title:        it.Title,
			URL:          itemURL,
			Source:       spec.Key,
			Author:       it.By,
			CategoryHint: spec.Category,
			PublishedAt:  time.Unix(it.Time, 0),
			ObservedAt:   now,
			Extra: map[string]any{
				"hn_id": it.ID,
				"score": it.Score,
				"rank":  ii.idx + 1,
			},
		})
	}

	return res, nil
}

func (h *HackerNewsFetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &statusError{source: url, code: resp.StatusCode}
	}
	return json.NewDecoder(io.LimitReader(resp.Body, hnMaxResponseBytes)).Decode(out)
}
