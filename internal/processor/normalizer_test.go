package processor

import (
	"testing"
	"time"

	"github.com/trendwire/trendwire/internal/collector"
)

func TestNormalizeTitleIdempotent(t *testing.T) {
	titles := []string{
		"Company X raises $50M",
		"Breaking: AI Model Beats Benchmark!",
		"SpaceX launches 22 satellites into orbit",
		"the quick brown fox",
	}

	for _, title := range titles {
		once := NormalizeTitle(title)
		twice := NormalizeTitle(once)
		if once != twice {
			t.Fatalf("NormalizeTitle not idempotent for %q: %q vs %q", title, once, twice)
		}
	}
}

func TestNormalizeTitleMagnitudeMerge(t *testing.T) {
	a := NormalizeTitle("Company X raises $50M")
	b := NormalizeTitle("Company X funding round hits $50 million")

	if a != "company x 50m" {
		t.Fatalf("unexpected normalized form: %q", a)
	}
	if b != "company x funding round 50m" {
		t.Fatalf("unexpected normalized form: %q", b)
	}
}

func TestNormalizeTitleStripsMarkupAndPunctuation(t *testing.T) {
	got := NormalizeTitle("<b>Hello,</b> World &amp; Friends!")
	// stripTags runs inside Normalize; NormalizeTitle alone still drops tags
	// char-by-char via punctuation stripping.
	if got == "" {
		t.Fatalf("normalized title should not be empty")
	}
	for _, r := range got {
		if r != ' ' && !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9') {
			t.Fatalf("normalized title contains %q: %q", r, got)
		}
	}
}

func TestIsEnglishText(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"Company X raises $50M", true},
		{"Früh übt sich", true}, // Latin-1 accents are English-compatible
		{"新しいモデルが発表された", false},
		{"百度热搜第一条", false},
		{"Новости дня", false},
		{"", false},
	}

	for _, c := range cases {
		if got := isEnglishText(c.text); got != c.want {
			t.Fatalf("isEnglishText(%q) = %v, want %v", c.text, got, c.want)
		}
	}
}

func TestNormalizeRejectsNonEnglish(t *testing.T) {
	n := NewNormalizer()

	accepted := n.Normalize(collector.Candidate{
		Title:      "Open source model tops leaderboard",
		URL:        "https://example.com/a",
		Source:     "hackernews",
		ObservedAt: time.Now(),
	})
	if !accepted.Accepted {
		t.Fatalf("english candidate should be accepted: %+v", accepted)
	}
	if accepted.Language != "en" {
		t.Fatalf("language = %q, want en", accepted.Language)
	}

	rejected := n.Normalize(collector.Candidate{
		Title:      "新しいモデルが発表された",
		URL:        "https://example.com/b",
		Source:     "hackernews",
		ObservedAt: time.Now(),
	})
	if rejected.Accepted {
		t.Fatalf("non-english candidate should be rejected: %+v", rejected)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	n := NewNormalizer()
	cand := collector.Candidate{
		Title:        "Senate passes budget bill after marathon session",
		URL:          "https://example.com/c",
		Source:       "ap_news",
		CategoryHint: "news",
		PublishedAt:  time.Date(2026, 8, 22, 10, 0, 0, 0, time.UTC),
	}

	first := n.Normalize(cand)
	second := n.Normalize(cand)
	if first.NormalizedTitle != second.NormalizedTitle ||
		first.Category != second.Category ||
		first.Accepted != second.Accepted {
		t.Fatalf("Normalize not deterministic: %+v vs %+v", first, second)
	}
}

func TestInferCategory(t *testing.T) {
	cases := []struct {
		hint  string
		title string
		want  string
	}{
		{"tech", "Anything at all", "tech"},
		{"news", "Scientists discover new deep-sea species", "science"},
		{"general", "Stock market rallies on earnings", "business"},
		{"", "Blockbuster film tops box office", "entertainment"},
		{"news", "Local election results delayed", "news"},
		{"", "Completely unremarkable headline", "general"},
	}

	for _, c := range cases {
		if got := inferCategory(c.hint, c.title); got != c.want {
			t.Fatalf("inferCategory(%q, %q) = %q, want %q", c.hint, c.title, got, c.want)
		}
	}
}
