package collector

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tier-derived reliability weights. Tier 1 (wire services) outranks community
// and reference sources when picking a cluster representative.
const (
	weightTier1 = 1.30
	weightTier2 = 1.18
	weightTier3 = 1.05
	weightTier4 = 0.95
)

// DefaultSources is the built-in catalog of English sources. Per-source limits
// keep any single feed from dominating a run.
var DefaultSources = []SourceSpec{
	// Wire and general news feeds.
	{Key: "ap_news", Name: "AP News", URL: "https://feeds.apnews.com/rss/apf-topnews", Kind: KindRSS, Category: "news", Limit: 10, Weight: weightTier1},
	{Key: "npr_news", Name: "NPR News", URL: "https://feeds.npr.org/1001/rss.xml", Kind: KindRSS, Category: "news", Limit: 10, Weight: weightTier1},
	{Key: "bbc_news", Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/rss.xml", Kind: KindRSS, Category: "news", Limit: 10, Weight: weightTier1},
	{Key: "guardian", Name: "The Guardian", URL: "https://www.theguardian.com/world/rss", Kind: KindRSS, Category: "news", Limit: 10, Weight: weightTier2},
	{Key: "cbs_news", Name: "CBS News", URL: "https://www.cbsnews.com/latest/rss/main", Kind: KindRSS, Category: "news", Limit: 8, Weight: weightTier2},

	// Tech press.
	{Key: "verge", Name: "The Verge", URL: "https://www.theverge.com/rss/index.xml", Kind: KindRSS, Category: "tech", Limit: 8, Weight: weightTier2},
	{Key: "ars_technica", Name: "Ars Technica", URL: "https://feeds.arstechnica.com/arstechnica/index", Kind: KindRSS, Category: "tech", Limit: 8, Weight: weightTier2},
	{Key: "wired", Name: "Wired", URL: "https://www.wired.com/feed/rss", Kind: KindRSS, Category: "tech", Limit: 8, Weight: weightTier2},
	{Key: "techcrunch", Name: "TechCrunch", URL: "https://techcrunch.com/feed/", Kind: KindRSS, Category: "tech", Limit: 8, Weight: weightTier2},

	// Search and reference.
	{Key: "google_trends", Name: "Google Trends", URL: "https://trends.google.com/trending/rss?geo=US", Kind: KindRSS, Category: "general", Limit: 20, Weight: weightTier3},
	{Key: "wikipedia_current", Name: "Wikipedia Current Events", URL: "https://en.wikipedia.org/wiki/Portal:Current_events", Kind: KindHTML, Category: "news", Limit: 15, Weight: weightTier2, Selector: "div.current-events-content li"},

	// Communities and forums.
	{Key: "hackernews", Name: "Hacker News", URL: "https://hacker-news.firebaseio.com/v0", Fallback: "https://hnrss.org/frontpage", Kind: KindAPI, Category: "tech", Limit: 30, Weight: weightTier2},
	{Key: "lobsters", Name: "Lobsters", URL: "https://lobste.rs/rss", Kind: KindRSS, Category: "tech", Limit: 10, Weight: weightTier2},
	{Key: "reddit_news", Name: "r/news", URL: "https://www.reddit.com/r/news/top/.rss?limit=25", Kind: KindRSS, Category: "news", Limit: 10, Weight: weightTier3},
	{Key: "reddit_technology", Name: "r/technology", URL: "https://www.reddit.com/r/technology/hot/.rss?limit=25", Kind: KindRSS, Category: "tech", Limit: 10, Weight: weightTier3},
	{Key: "slashdot", Name: "Slashdot", URL: "https://rss.slashdot.org/Slashdot/slashdotMain", Kind: KindRSS, Category: "tech", Limit: 8, Weight: weightTier3},
	{Key: "devto", Name: "Dev.to", URL: "https://dev.to/feed", Kind: KindRSS, Category: "tech", Limit: 8, Weight: weightTier4},
	{Key: "product_hunt", Name: "Product Hunt", URL: "https://www.producthunt.com/feed", Kind: KindRSS, Category: "product", Limit: 8, Weight: weightTier3},

	// Code hosting.
	{Key: "github_trending", Name: "GitHub Trending", URL: "https://github.com/trending", Kind: KindHTML, Category: "tech", Limit: 15, Weight: weightTier3, Selector: "article.Box-row"},
}

// LoadSources returns the catalog, replaced wholesale by the YAML file at
// path when one is configured.
func LoadSources(path string) ([]SourceSpec, error) {
	if path == "" {
		return DefaultSources, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("sources: read %s: %w", path, err)
	}

	var specs []SourceSpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("sources: parse %s: %w", path, err)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("sources: %s contains no sources", path)
	}
	for i := range specs {
		if err := validateSpec(&specs[i]); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func validateSpec(s *SourceSpec) error {
	if s.Key == "" || s.URL == "" {
		return fmt.Errorf("sources: entry %q missing key or url", s.Key)
	}
	switch s.Kind {
	case KindRSS, KindAPI, KindHTML:
	default:
		return fmt.Errorf("sources: %s has unknown kind %q", s.Key, s.Kind)
	}
	if s.Limit <= 0 {
		s.Limit = 10
	}
	if s.Weight <= 0 {
		s.Weight = weightTier4
	}
	if s.Category == "" {
		s.Category = "general"
	}
	return nil
}
