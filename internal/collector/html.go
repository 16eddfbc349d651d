package collector

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

// HTMLFetcher scrapes html-kind trend pages with colly. The catalog's CSS
// selector locates one item per match; link and title extraction is
// best-effort since upstream page structure can shift under us.
type HTMLFetcher struct{}

func NewHTMLFetcher() *HTMLFetcher {
	return &HTMLFetcher{}
}

func (h *HTMLFetcher) Kind() Kind {
	return KindHTML
}

func (h *HTMLFetcher) Fetch(ctx context.Context, spec SourceSpec) (FetchResult, error) {
	if spec.Selector == "" {
		return FetchResult{}, fmt.Errorf("%s: html source without selector", spec.Key)
	}

	c := colly.NewCollector(colly.UserAgent(fetchUserAgent))
	if deadline, ok := ctx.Deadline(); ok {
		c.SetRequestTimeout(time.Until(deadline))
	}

	now := time.Now()
	res := FetchResult{Candidates: make([]Candidate, 0, spec.Limit)}

	c.OnHTML(spec.Selector, func(e *colly.HTMLElement) {
		if len(res.Candidates) >= spec.Limit {
			return
		}

		title, href := extractItem(e)
		if title == "" {
			res.Skipped++
			return
		}
		if href == "" {
			href = spec.URL
		} else if !strings.HasPrefix(href, "http") {
			href = e.Request.AbsoluteURL(href)
		}

		cand := Candidate{
			Title:        title,
			URL:          href,
			Source:       spec.Key,
			CategoryHint: spec.Category,
			ObservedAt:   now,
		}
		if stars := parseStars(e.ChildText(`a[href$="/stargazers"]`)); stars > 0 {
			cand.Extra = map[string]any{"stars": stars}
		}
		res.Candidates = append(res.Candidates, cand)
	})

	if err := c.Visit(spec.URL); err != nil {
		if spec.Fallback != "" {
			if ferr := c.Visit(spec.Fallback); ferr == nil {
				return res, nil
			}
		}
		return FetchResult{}, fmt.Errorf("%s: scrape: %w", spec.Key, err)
	}

	return res, nil
}

// extractItem pulls a title and link out of one matched element. Repo-style
// rows (GitHub trending) carry the title in "h2 a"; list-style pages
// (Wikipedia current events) carry a sentence with inline links.
func extractItem(e *colly.HTMLElement) (title, href string) {
	if sel := e.DOM.Find("h2 a").First(); sel.Length() > 0 {
		title = strings.Join(strings.Fields(sel.Text()), " ")
		href, _ = sel.Attr("href")
		return title, href
	}

	title = strings.Join(strings.Fields(e.Text), " ")
	if sel := e.DOM.Find("a").First(); sel.Length() > 0 {
		href, _ = sel.Attr("href")
	}
	return title, href
}

// parseStars turns GitHub "12.3k" star counts into an integer.
func parseStars(text string) int {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	if text == "" {
		return 0
	}

	multiplier := 1.0
	if strings.HasSuffix(text, "k") || strings.HasSuffix(text, "K") {
		multiplier = 1000
		text = strings.TrimSuffix(strings.TrimSuffix(text, "k"), "K")
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil {
		return 0
	}
	return int(f * multiplier)
}
