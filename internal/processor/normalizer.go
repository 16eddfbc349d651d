package processor

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/trendwire/trendwire/internal/collector"
)

// Normalized is a raw candidate plus the derived fields used for matching.
// A candidate with Accepted=false never enters the dedup engine.
type Normalized struct {
	collector.Candidate
	NormalizedTitle string
	Language        string
	Category        string
	Accepted        bool
}

// Normalizer is a stateless, deterministic transform: the same candidate
// always yields the same Normalized.
type Normalizer struct{}

func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

func (n *Normalizer) NormalizeAll(cands []collector.Candidate) []Normalized {
	out := make([]Normalized, 0, len(cands))
	for _, c := range cands {
		out = append(out, n.Normalize(c))
	}
	return out
}

func (n *Normalizer) Normalize(c collector.Candidate) Normalized {
	norm := Normalized{
		Candidate: c,
		Language:  "other",
		Category:  inferCategory(c.CategoryHint, c.Title),
	}

	title := stripTags(c.Title)
	if isEnglishText(title) {
		norm.Language = "en"
	}

	norm.NormalizedTitle = NormalizeTitle(title)
	norm.Accepted = norm.Language == "en" && norm.NormalizedTitle != ""
	return norm
}

// Script ranges that disqualify a title as English-compatible.
var nonEnglishScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
	unicode.Arabic,
	unicode.Cyrillic,
	unicode.Devanagari,
	unicode.Thai,
	unicode.Hebrew,
}

// isEnglishText is a lightweight script heuristic, not language detection:
// no CJK/Arabic/Cyrillic/etc. runes, and at least 70% ASCII-or-Latin-1.
func isEnglishText(text string) bool {
	if text == "" {
		return false
	}

	total, latin := 0, 0
	for _, r := range text {
		for _, table := range nonEnglishScripts {
			if unicode.Is(table, r) {
				return false
			}
		}
		total++
		if r < 128 || unicode.Is(unicode.Latin, r) {
			latin++
		}
	}
	return float64(latin)/float64(total) >= 0.7
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

func stripTags(s string) string {
	if strings.Contains(s, "<") {
		s = tagPattern.ReplaceAllString(s, " ")
	}
	return strings.TrimSpace(html.UnescapeString(s))
}

// Magnitude words folded onto a preceding number so "$50M" and "50 million"
// normalize to the same token.
var magnitudes = map[string]string{
	"thousand": "k",
	"million":  "m",
	"billion":  "b",
	"trillion": "t",
	"k":        "k",
	"m":        "m",
	"b":        "b",
}

// Function words and low-signal headline verbs removed from normalized
// titles before similarity matching.
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "but": {}, "in": {},
	"on": {}, "at": {}, "to": {}, "for": {}, "of": {}, "with": {}, "by": {},
	"from": {}, "as": {}, "is": {}, "was": {}, "are": {}, "were": {},
	"be": {}, "been": {}, "has": {}, "have": {}, "had": {}, "will": {},
	"would": {}, "could": {}, "should": {}, "may": {}, "might": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"they": {}, "them": {}, "what": {}, "which": {}, "who": {}, "how": {},
	"after": {}, "before": {}, "over": {}, "under": {}, "into": {},
	"about": {}, "amid": {}, "against": {}, "new": {}, "latest": {},
	"breaking": {}, "update": {}, "news": {}, "today": {}, "says": {},
	"said": {}, "say": {}, "gets": {}, "get": {}, "got": {}, "makes": {},
	"make": {}, "made": {}, "raises": {}, "raise": {}, "raised": {},
	"hits": {}, "hit": {}, "takes": {}, "take": {}, "took": {},
	"shows": {}, "show": {}, "reports": {}, "report": {}, "reveals": {},
	"reveal": {}, "announces": {}, "announce": {}, "launches": {},
	"launch": {}, "sees": {}, "see": {}, "goes": {}, "go": {}, "went": {},
}

// NormalizeTitle produces the lower-cased, punctuation-stripped, stop-word-
// reduced form used for similarity matching. Idempotent:
// NormalizeTitle(NormalizeTitle(x)) == NormalizeTitle(x).
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())

	// Fold magnitude words onto the preceding bare number: "50 million" and
	// "50m" end up identical.
	merged := make([]string, 0, len(fields))
	for _, tok := range fields {
		if suffix, ok := magnitudes[tok]; ok && len(merged) > 0 && isDigits(merged[len(merged)-1]) {
			merged[len(merged)-1] += suffix
			continue
		}
		merged = append(merged, tok)
	}

	kept := merged[:0]
	for _, tok := range merged {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Fixed keyword-to-category mapping used when the source hint is generic.
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{"tech", []string{"ai", "software", "app", "chip", "startup", "google", "apple", "microsoft", "open", "source", "model", "robot"}},
	{"science", []string{"study", "research", "scientists", "nasa", "space", "climate", "vaccine", "species"}},
	{"business", []string{"stock", "market", "funding", "ipo", "earnings", "economy", "inflation", "merger"}},
	{"entertainment", []string{"film", "movie", "album", "actor", "singer", "box", "office", "netflix"}},
	{"sports", []string{"league", "championship", "playoff", "olympics", "cup", "match", "season"}},
}

func inferCategory(hint, title string) string {
	if hint != "" && hint != "general" && hint != "news" {
		return hint
	}

	lower := strings.ToLower(title)
	tokens := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		tokens[tok] = struct{}{}
	}

	for _, kc := range categoryKeywords {
		for _, w := range kc.words {
			if _, ok := tokens[w]; ok {
				return kc.category
			}
		}
	}

	if hint != "" {
		return hint
	}
	return "general"
}
