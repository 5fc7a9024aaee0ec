package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// deterministicMatcher pins the random pick to the first response so
// assertions stay stable.
func deterministicMatcher(t *testing.T) *IntentMatcher {
	t.Helper()
	m := NewIntentMatcher(nil)
	m.pick = func(int) int { return 0 }
	return m
}

func TestMatch_Greeting(t *testing.T) {
	m := deterministicMatcher(t)
	for _, text := range []string{"hi", "Hello", "hey there", "good morning everyone", "HELLO!!!"} {
		_, ok := m.Match(text)
		if text == "HELLO!!!" {
			// punctuation glued to the keyword breaks the boundary
			require.False(t, ok, "text=%q", text)
			continue
		}
		require.True(t, ok, "text=%q", text)
	}
}

func TestMatch_ResponseComesFromTheSet(t *testing.T) {
	m := NewIntentMatcher(nil)
	reply, ok := m.Match("thanks")
	require.True(t, ok)
	require.Contains(t, thanksResponses, reply)
}

func TestMatch_WordBoundaries(t *testing.T) {
	m := deterministicMatcher(t)
	cases := []struct {
		text string
		want bool
	}{
		{"thanks", true},
		{"thanks a lot", true},
		{"ok thanks", true},
		{"thanksgiving", false},
		{"bye", true},
		{"buybye", false},
		{"see you later", true},
		{"how are you", true},
		{"however you like", false},
		{"helped", false},
		{"help", true},
	}
	for _, tc := range cases {
		_, ok := m.Match(tc.text)
		require.Equal(t, tc.want, ok, "text=%q", tc.text)
	}
}

func TestMatch_PriorityFarewellOverGreeting(t *testing.T) {
	m := deterministicMatcher(t)
	// "good night" carries both a farewell phrase and greeting-like words;
	// the farewell set sits earlier in the table.
	reply, ok := m.Match("hello and goodbye")
	require.True(t, ok)
	require.Contains(t, farewellResponses, reply)
}

func TestMatch_HelpBeatsThanks(t *testing.T) {
	m := deterministicMatcher(t)
	reply, ok := m.Match("thanks for the help")
	require.True(t, ok)
	require.Equal(t, helpResponse, reply)
}

func TestMatch_LongestPhraseFirst(t *testing.T) {
	m := deterministicMatcher(t)
	// "thank you so much" must match as one phrase, not stop at "thank".
	reply, ok := m.Match("thank you so much")
	require.True(t, ok)
	require.Contains(t, thanksResponses, reply)
}

func TestMatch_NoMatch(t *testing.T) {
	m := deterministicMatcher(t)
	for _, text := range []string{"", "   ", "sell ahmed 5 pens", "order 20 notebooks"} {
		_, ok := m.Match(text)
		require.False(t, ok, "text=%q", text)
	}
}

func TestMatch_CaseInsensitive(t *testing.T) {
	m := deterministicMatcher(t)
	_, ok := m.Match("GOOD MORNING")
	require.True(t, ok)
	_, ok = m.Match("Thank You")
	require.True(t, ok)
}
