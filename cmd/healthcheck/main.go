package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/trendwire/trendwire/internal/collector"
	"github.com/trendwire/trendwire/internal/config"
)

// Daily endpoint probe: checks every catalog source responds with the shape
// its adapter expects, without running the full pipeline.

const probeConcurrency = 8

type checkResult struct {
	Source  string `json:"source"`
	Kind    string `json:"kind"`
	URL     string `json:"url"`
	OK      bool   `json:"ok"`
	Items   int    `json:"items"`
	Elapsed string `json:"elapsed"`
	Error   string `json:"error,omitempty"`
}

type healthReport struct {
	CheckedAt time.Time     `json:"checkedAt"`
	Total     int           `json:"total"`
	Healthy   int           `json:"healthy"`
	Results   []checkResult `json:"results"`
}

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	specs, err := collector.LoadSources(cfg.SourcesFile)
	if err != nil {
		log.Fatalf("load sources failed: %v", err)
	}

	client := &http.Client{}
	timeouts := map[collector.Kind]time.Duration{
		collector.KindRSS:  cfg.RSSTimeout,
		collector.KindAPI:  cfg.APITimeout,
		collector.KindHTML: cfg.HTMLTimeout,
	}

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		sem     = make(chan struct{}, probeConcurrency)
		results = make([]checkResult, 0, len(specs))
	)

	for _, spec := range specs {
		wg.Add(1)
		sem <- struct{}{}
		go func(spec collector.SourceSpec) {
			defer wg.Done()
			defer func() { <-sem }()

			res := checkSource(client, spec, timeouts[spec.Kind])
			log.Printf("check %s: ok=%v items=%d %s", spec.Key, res.OK, res.Items, res.Error)

			mu.Lock()
			results = append(results, res)
			mu.Unlock()
		}(spec)
	}
	wg.Wait()

	report := healthReport{CheckedAt: time.Now().UTC(), Total: len(results)}
	for _, r := range results {
		if r.OK {
			report.Healthy++
		}
	}
	report.Results = results

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode report: %v", err)
	}

	log.Printf("health check done: %d/%d healthy", report.Healthy, report.Total)
	if report.Healthy < report.Total {
		os.Exit(1)
	}
}

func checkSource(client *http.Client, spec collector.SourceSpec, timeout time.Duration) checkResult {
	res := checkResult{Source: spec.Key, Kind: string(spec.Kind), URL: spec.URL}
	start := time.Now()
	defer func() { res.Elapsed = time.Since(start).Round(time.Millisecond).String() }()

	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	url := spec.URL
	if spec.Kind == collector.KindAPI {
		url = spec.URL + "/topstories.json"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	req.Header.Set("User-Agent", "TrendWireBot/1.0 HealthCheck")

	resp, err := client.Do(req)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		res.Error = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		return res
	}

	switch spec.Kind {
	case collector.KindRSS:
		feed, err := gofeed.NewParser().Parse(resp.Body)
		if err != nil {
			res.Error = "feed parse: " + err.Error()
			return res
		}
		res.Items = len(feed.Items)
	case collector.KindAPI:
		var ids []int
		if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
			res.Error = "json decode: " + err.Error()
			return res
		}
		res.Items = len(ids)
	case collector.KindHTML:
		doc, err := goquery.NewDocumentFromReader(resp.Body)
		if err != nil {
			res.Error = "html parse: " + err.Error()
			return res
		}
		res.Items = doc.Find(spec.Selector).Length()
	}

	if res.Items == 0 {
		res.Error = "no items found"
		return res
	}

	res.OK = true
	return res
}
