package serdeassert

import (
	"iter"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/samber/lo"
)

// Tokens is a sequence of tokens recorded by a Serializer.
type Tokens struct {
	tokens []Token
}

func (ts Tokens) Len() int { return len(ts.tokens) }

// Slice returns a copy of the tokens.
func (ts Tokens) Slice() []Token { return slices.Clone(ts.tokens) }

// All iterates over the tokens and their positions.
func (ts Tokens) All() iter.Seq2[int, Token] { return slices.All(ts.tokens) }

// Values iterates over the tokens. The iterator can be passed to
// NewDeserializer to replay the recording.
func (ts Tokens) Values() iter.Seq[Token] { return slices.Values(ts.tokens) }

// Refs iterates over pointers to the tokens without copying them. The
// tokens must not be modified.
func (ts Tokens) Refs() iter.Seq[*Token] {
	return func(yield func(*Token) bool) {
		for i := range ts.tokens {
			if !yield(&ts.tokens[i]) {
				return
			}
		}
	}
}

func (ts Tokens) String() string { return "[" + formatTokens(ts.tokens) + "]" }

// Equal reports whether the recorded tokens match expected. See Match.
func (ts Tokens) Equal(expected []Token) bool { return Match(ts.tokens, expected) }

// Match reports whether actual matches expected token for token, where each
// Unordered token of expected matches its groups in any order. The groups
// of an Unordered token are consumed entirely before the comparison
// resumes with the token following it. An Unordered token of actual only
// matches an equal Unordered token, so Match(x, x) holds for any x.
func Match(actual, expected []Token) bool {
	return match(actual, expected, func(rest []Token) bool { return len(rest) == 0 })
}

// match reports whether a prefix of actual matches expected and k accepts
// the rest of actual. Unordered groups may match prefixes of different
// lengths, so the continuation lets the search backtrack into them.
func match(actual, expected []Token, k func([]Token) bool) bool {
	for i, e := range expected {
		if e.kind == UnorderedKind {
			if len(actual) > 0 && actual[0].kind == UnorderedKind {
				return actual[0].Equal(e) && match(actual[1:], expected[i+1:], k)
			}
			used := make([]bool, len(e.groups))
			return matchGroups(actual, e.groups, used, len(e.groups), func(rest []Token) bool {
				return match(rest, expected[i+1:], k)
			})
		}
		if len(actual) == 0 || !actual[0].Equal(e) {
			return false
		}
		actual = actual[1:]
	}
	return k(actual)
}

func matchGroups(actual []Token, groups [][]Token, used []bool, remaining int, k func([]Token) bool) bool {
	if remaining == 0 {
		return k(actual)
	}
	for i, g := range groups {
		if used[i] {
			continue
		}
		used[i] = true
		ok := match(actual, g, func(rest []Token) bool {
			return matchGroups(rest, groups, used, remaining-1, k)
		})
		if ok {
			return true
		}
		used[i] = false
	}
	return false
}

// Diff returns an empty string when got matches want, and a human readable
// report of the differences otherwise.
func Diff(want []Token, got Tokens) string {
	if got.Equal(want) {
		return ""
	}
	return cmp.Diff(render(want), render(got.tokens))
}

func render(tokens []Token) []string {
	return lo.Map(tokens, func(t Token, _ int) string { return t.String() })
}

// AssertTokens fails the test when got does not match want.
func AssertTokens(t testing.TB, got Tokens, want ...Token) {
	t.Helper()
	if diff := Diff(want, got); diff != "" {
		t.Errorf("tokens mismatch (-want +got):\n%s", diff)
	}
}
