package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

const feedFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
<title>Test Feed</title>
<item>
  <title>First headline of the day</title>
  <link>https://example.com/1</link>
  <pubDate>Sat, 22 Aug 2026 08:00:00 GMT</pubDate>
</item>
<item>
  <title></title>
  <link>https://example.com/malformed</link>
</item>
<item>
  <title>Second headline of the day</title>
  <link>https://example.com/2</link>
</item>
<item>
  <title>Third headline of the day</title>
  <link>https://example.com/3</link>
</item>
</channel>
</rss>`

func TestRSSFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != fetchUserAgent {
			t.Errorf("user agent = %q", ua)
		}
		fmt.Fprint(w, feedFixture)
	}))
	defer srv.Close()

	spec := SourceSpec{Key: "test_feed", URL: srv.URL, Kind: KindRSS, Category: "news", Limit: 10}
	res, err := NewRSSFetcher().Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if len(res.Candidates) != 3 {
		t.Fatalf("got %d candidates, want 3", len(res.Candidates))
	}
	if res.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1 (empty-title item)", res.Skipped)
	}

	first := res.Candidates[0]
	if first.Title != "First headline of the day" || first.URL != "https://example.com/1" {
		t.Fatalf("first candidate wrong: %+v", first)
	}
	if first.Source != "test_feed" || first.CategoryHint != "news" {
		t.Fatalf("source fields wrong: %+v", first)
	}
	if first.PublishedAt.IsZero() {
		t.Fatalf("pubDate not parsed")
	}
	if first.ObservedAt.IsZero() {
		t.Fatalf("observation time not stamped")
	}
}

func TestRSSFetchRespectsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedFixture)
	}))
	defer srv.Close()

	spec := SourceSpec{Key: "test_feed", URL: srv.URL, Kind: KindRSS, Limit: 2}
	res, err := NewRSSFetcher().Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("limit ignored: got %d candidates", len(res.Candidates))
	}
}

func TestRSSFetchFallback(t *testing.T) {
	primary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer primary.Close()

	fallback := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, feedFixture)
	}))
	defer fallback.Close()

	spec := SourceSpec{Key: "test_feed", URL: primary.URL, Fallback: fallback.URL, Kind: KindRSS, Limit: 10}
	res, err := NewRSSFetcher().Fetch(context.Background(), spec)
	if err != nil {
		t.Fatalf("fallback not used: %v", err)
	}
	if len(res.Candidates) != 3 {
		t.Fatalf("got %d candidates via fallback, want 3", len(res.Candidates))
	}
}

func TestRSSFetchStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	spec := SourceSpec{Key: "test_feed", URL: srv.URL, Kind: KindRSS, Limit: 10}
	_, err := NewRSSFetcher().Fetch(context.Background(), spec)
	if err == nil {
		t.Fatalf("expected error on 429")
	}

	var se *statusError
	if !errors.As(err, &se) || se.code != http.StatusTooManyRequests {
		t.Fatalf("status not surfaced: %v", err)
	}
	if !transient(err) {
		t.Fatalf("429 should classify as transient")
	}
}

func TestRSSFetchGarbageBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer srv.Close()

	spec := SourceSpec{Key: "test_feed", URL: srv.URL, Kind: KindRSS, Limit: 10}
	if _, err := NewRSSFetcher().Fetch(context.Background(), spec); err == nil {
		t.Fatalf("expected parse error")
	}
}
