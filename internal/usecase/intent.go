package usecase

import (
	"log/slog"
	"math/rand"
	"regexp"
	"sort"
	"strings"
)

// Keyword sets for the pre-reasoning canned-response classifier. Order
// of the slice below is the match priority; within a set, longer
// phrases are compiled ahead of shorter ones so "thank you so much"
// wins over "thanks".
var (
	farewellKeywords  = []string{"bye", "goodbye", "bye bye", "see you", "see you later", "good night"}
	helpKeywords      = []string{"help", "commands", "what can you do"}
	thanksKeywords    = []string{"thanks", "thank you", "thanks a lot", "thank you so much", "thx"}
	howAreYouKeywords = []string{"how are you", "how are you doing", "how is it going"}
	greetingKeywords  = []string{"hi", "hello", "hey", "good morning", "good evening", "salam", "peace be upon you"}

	farewellResponses = []string{
		"Goodbye! Message me any time you need the store.",
		"See you later. I'll be here when you need me.",
	}
	thanksResponses = []string{
		"You're welcome!",
		"Any time. Glad to help.",
		"Happy to help!",
	}
	howAreYouResponses = []string{
		"Doing well and ready to work. How can I help?",
		"All good here. What do you need today?",
	}
	greetingResponses = []string{
		"Hello! How can I help you today?",
		"Hi there! Ask me about sales, stock, or customers.",
	}
)

const helpResponse = `I can help you with:
- recording a sale ("sell Ahmed 5 pens at 10")
- creating a purchase order ("order 20 notebooks from Al Noor")
- stock and customer lookups ("search item pen", "find customer Sara")
Type "cancel" at any time to abandon an in-progress order.`

type intentSet struct {
	name      string
	pattern   *regexp.Regexp
	responses []string
}

// IntentMatcher classifies a message against the closed keyword sets
// before any reasoning-engine call. Matching is case-insensitive and
// only fires on whitespace/string boundaries, so "thanksgiving" never
// matches "thanks".
type IntentMatcher struct {
	sets []intentSet
	pick func(n int) int
}

// NewIntentMatcher compiles the keyword sets once. A set whose pattern
// fails to compile is logged and skipped; the matcher itself never
// fails to construct.
func NewIntentMatcher(log *slog.Logger) *IntentMatcher {
	if log == nil {
		log = slog.Default()
	}
	defs := []struct {
		name      string
		keywords  []string
		responses []string
	}{
		{"farewell", farewellKeywords, farewellResponses},
		{"help", helpKeywords, []string{helpResponse}},
		{"thanks", thanksKeywords, thanksResponses},
		{"how_are_you", howAreYouKeywords, howAreYouResponses},
		{"greeting", greetingKeywords, greetingResponses},
	}

	m := &IntentMatcher{pick: rand.Intn}
	for _, def := range defs {
		pattern, err := compileKeywordPattern(def.keywords)
		if err != nil {
			log.Error("skipping intent set with invalid pattern", "set", def.name, "err", err)
			continue
		}
		m.sets = append(m.sets, intentSet{name: def.name, pattern: pattern, responses: def.responses})
	}
	return m
}

// Match returns a canned response for the first matching set, or
// ("", false) when no set matches. Sets with several responses pick
// one at random; callers and tests should treat the exact choice as
// unspecified.
func (m *IntentMatcher) Match(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}
	for _, set := range m.sets {
		if set.pattern.MatchString(text) {
			return set.responses[m.pick(len(set.responses))], true
		}
	}
	return "", false
}

// compileKeywordPattern builds one case-insensitive alternation for a
// keyword set. Keywords sort longest-first so a short phrase cannot
// mask a longer one that contains it, and each alternative must sit on
// a whitespace or string boundary on both sides.
func compileKeywordPattern(keywords []string) (*regexp.Regexp, error) {
	sorted := make([]string, len(keywords))
	copy(sorted, keywords)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })

	escaped := make([]string, len(sorted))
	for i, kw := range sorted {
		escaped[i] = regexp.QuoteMeta(kw)
	}
	return regexp.Compile(`(?i)(?:^|\s)(?:` + strings.Join(escaped, "|") + `)(?:\s|$)`)
}
