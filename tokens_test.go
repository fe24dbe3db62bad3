package serdeassert_test

import (
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	. "github.com/stealthrocket/serdeassert"
	"github.com/stealthrocket/serdeassert/serde"
)

func TestTokenEqual(t *testing.T) {
	tests := []struct {
		name  string
		a, b  Token
		equal bool
	}{
		{"bool", Bool(true), Bool(true), true},
		{"bool value", Bool(true), Bool(false), false},
		{"int widths", I8(1), I16(1), false},
		{"uint widths", U32(1), U64(1), false},
		{"i128", I128(serde.Int128From(-1)), I128(serde.Int128{High: -1, Low: math.MaxUint64}), true},
		{"u128 high bits", U128(serde.Uint128{High: 1}), U128(serde.Uint128{}), false},
		{"float", F64(1.5), F64(1.5), true},
		{"nan", F64(math.NaN()), F64(math.NaN()), false},
		{"str", Str("a"), Str("a"), true},
		{"str and field", Str("a"), Field("a"), false},
		{"bytes", Bytes([]byte{1, 2}), Bytes([]byte{1, 2}), true},
		{"bytes nil and empty", Bytes(nil), Bytes([]byte{}), true},
		{"seq len", Seq(1), Seq(UnknownLen), false},
		{"struct name", Struct("A", 1), Struct("B", 1), false},
		{"variant index", UnitVariant("E", 0, "A"), UnitVariant("E", 1, "A"), false},
		{"struct variant", StructVariant("E", 1, "B", 2), StructVariant("E", 1, "B", 2), true},
		{"ends", SeqEnd, TupleEnd, false},
		{"unordered", Unordered([]Token{Unit}), Unordered([]Token{Unit}), true},
		{"unordered groups", Unordered([]Token{Unit}, []Token{None}), Unordered([]Token{None}, []Token{Unit}), false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.equal, test.a.Equal(test.b))
			require.Equal(t, test.equal, test.b.Equal(test.a))
		})
	}
}

func TestTokenString(t *testing.T) {
	tests := []struct {
		token Token
		want  string
	}{
		{Bool(true), "Bool(true)"},
		{I32(-1), "I32(-1)"},
		{I128(serde.Int128From(-2)), "I128(-2)"},
		{U128(serde.Uint128{High: 1}), "U128(18446744073709551616)"},
		{F32(0.5), "F32(0.5)"},
		{Char('a'), "Char('a')"},
		{Str("x"), `Str("x")`},
		{Bytes([]byte{1, 2}), "Bytes([1 2])"},
		{Seq(UnknownLen), "Seq{len: unknown}"},
		{Struct("S", 2), `Struct{name: "S", len: 2}`},
		{UnitVariant("E", 1, "B"), `UnitVariant{name: "E", index: 1, variant: "B"}`},
		{StructEnd, "StructEnd"},
		{Unordered([]Token{Bool(true)}, []Token{U8(1), Unit}), "Unordered[[Bool(true)], [U8(1), Unit]]"},
	}

	for _, test := range tests {
		t.Run(test.want, func(t *testing.T) {
			require.Equal(t, test.want, test.token.String())
		})
	}
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name     string
		actual   []Token
		expected []Token
		match    bool
	}{
		{
			name:  "empty",
			match: true,
		},
		{
			name:     "same",
			actual:   []Token{Bool(true), U8(42)},
			expected: []Token{Bool(true), U8(42)},
			match:    true,
		},
		{
			name:     "shorter",
			actual:   []Token{Bool(true), U8(42)},
			expected: []Token{Bool(true)},
		},
		{
			name:     "longer",
			actual:   []Token{Bool(true), U8(42)},
			expected: []Token{Bool(true), U8(42), U8(42)},
		},
		{
			name:     "unordered same order",
			actual:   []Token{Bool(true), U8(42)},
			expected: []Token{Unordered([]Token{Bool(true)}, []Token{U8(42)})},
			match:    true,
		},
		{
			name:     "unordered different order",
			actual:   []Token{U8(42), Bool(true)},
			expected: []Token{Unordered([]Token{Bool(true)}, []Token{U8(42)})},
			match:    true,
		},
		{
			name:   "unordered within other tokens",
			actual: []Token{Char('a'), U8(42), Bool(true), I16(-42)},
			expected: []Token{
				Char('a'),
				Unordered([]Token{Bool(true)}, []Token{U8(42)}),
				I16(-42),
			},
			match: true,
		},
		{
			name:   "unordered multiple tokens",
			actual: []Token{U8(42), Bool(true), Char('a')},
			expected: []Token{
				Unordered([]Token{Bool(true), Char('a')}, []Token{U8(42)}),
			},
			match: true,
		},
		{
			name:     "unordered empty does not match",
			actual:   []Token{Bool(true)},
			expected: []Token{Unordered()},
		},
		{
			name:     "unordered variant mismatch",
			actual:   []Token{Bool(true)},
			expected: []Token{Unordered([]Token{I8(42)})},
		},
		{
			name:     "unordered value mismatch",
			actual:   []Token{Bool(true)},
			expected: []Token{Unordered([]Token{Bool(false)})},
		},
		{
			name:   "unordered nested",
			actual: []Token{Unit, U8(4), U8(3), U8(1), U8(2), Bool(true)},
			expected: []Token{
				Unordered(
					[]Token{Bool(true)},
					[]Token{Unordered(
						[]Token{U8(1), U8(2)},
						[]Token{U8(3)},
					)},
					[]Token{Unit, U8(4)},
				),
			},
			match: true,
		},
		{
			name:     "unordered empty",
			actual:   []Token{Unit},
			expected: []Token{Unordered(), Unit},
			match:    true,
		},
		{
			name:     "unordered empty nested",
			actual:   []Token{Unit},
			expected: []Token{Unordered([]Token{Unordered()}), Unit},
			match:    true,
		},
		{
			name:     "unordered empty at end",
			actual:   []Token{Unit},
			expected: []Token{Unit, Unordered()},
			match:    true,
		},
		{
			name:     "unordered non-empty at end",
			actual:   []Token{Unit},
			expected: []Token{Unit, Unordered([]Token{Unit})},
		},
		{
			name:     "end within unordered",
			actual:   []Token{Unit},
			expected: []Token{Unordered([]Token{Unit}, []Token{Unit})},
		},
		{
			name:     "end within unordered group",
			actual:   []Token{Unit},
			expected: []Token{Unordered([]Token{Unit, Unit})},
		},
		{
			name:     "end within unordered nested empty",
			actual:   []Token{Unit},
			expected: []Token{Unordered([]Token{Unit, Unordered()})},
			match:    true,
		},
		{
			name:   "end within unordered nested non-empty",
			actual: []Token{Unit},
			expected: []Token{Unordered([]Token{
				Unit,
				Unordered([]Token{Unit, Unit}, []Token{Unit}),
			})},
		},
		{
			name:     "unordered permutation",
			actual:   []Token{Char('c'), Char('a'), Char('b')},
			expected: []Token{Unordered([]Token{Char('a')}, []Token{Char('b')}, []Token{Char('c')})},
			match:    true,
		},
		{
			name:     "unordered missing element",
			actual:   []Token{Char('c'), Char('a'), Char('b')},
			expected: []Token{Unordered([]Token{Char('a')}, []Token{Char('b')})},
		},
		{
			name:     "unordered mismatched element",
			actual:   []Token{Char('c'), Char('a'), Char('b')},
			expected: []Token{Unordered([]Token{Char('a')}, []Token{Char('b')}, []Token{Char('d')})},
		},
		{
			// The first group could match the prefix of either entry, so the
			// matcher has to backtrack out of its first choice.
			name:   "unordered backtracking",
			actual: []Token{Str("a"), Str("a"), Str("b")},
			expected: []Token{Unordered(
				[]Token{Str("a")},
				[]Token{Str("a"), Str("b")},
			)},
			match: true,
		},
		{
			name:   "unordered groups of different lengths",
			actual: []Token{Str("a"), Str("b"), Str("a")},
			expected: []Token{Unordered(
				[]Token{Str("a"), Str("b")},
				[]Token{Str("a")},
			)},
			match: true,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.match, Match(test.actual, test.expected))
		})
	}
}

func TestTokensEqualReflexive(t *testing.T) {
	tokens, err := Serialize(map[string][]int32{"a": {1, 2}})
	require.NoError(t, err)
	require.True(t, tokens.Equal(tokens.Slice()))
	require.True(t, Match(tokens.Slice(), tokens.Slice()))

	// Unordered tokens on both sides compare as tokens.
	x := []Token{Seq(2), Unordered([]Token{Bool(true)}, []Token{U8(1)}), SeqEnd}
	require.True(t, Match(x, x))
	require.True(t, Match(x[1:2], x[1:2]))
	require.False(t, Match(x, []Token{Seq(2), Unordered([]Token{Bool(false)}, []Token{U8(1)}), SeqEnd}))
}

func TestTokensIterators(t *testing.T) {
	tokens, err := Serialize([]bool{true, false})
	require.NoError(t, err)

	want := []Token{Seq(2), Bool(true), Bool(false), SeqEnd}
	require.Equal(t, len(want), tokens.Len())

	values := slices.Collect(tokens.Values())
	require.True(t, Match(values, want))
	// Iterators can be consumed more than once.
	require.True(t, Match(slices.Collect(tokens.Values()), want))

	for i, tok := range tokens.All() {
		require.True(t, tok.Equal(want[i]), "token %d: %s", i, tok)
	}

	var refs []*Token
	for ref := range tokens.Refs() {
		refs = append(refs, ref)
	}
	require.Len(t, refs, len(want))
	for ref := range tokens.Refs() {
		require.Same(t, refs[0], ref)
		break
	}

	s := tokens.Slice()
	s[0] = Unit
	require.True(t, tokens.Equal(want), "Slice must return a copy")
}

func TestDiff(t *testing.T) {
	tokens, err := Serialize(int32(1))
	require.NoError(t, err)

	require.Empty(t, Diff([]Token{I32(1)}, tokens))

	diff := Diff([]Token{I32(2)}, tokens)
	require.True(t, strings.Contains(diff, "I32(2)"), diff)
	require.True(t, strings.Contains(diff, "I32(1)"), diff)
}

func TestAssertTokens(t *testing.T) {
	tokens, err := Serialize(map[string]int64{"a": 1, "b": 2})
	require.NoError(t, err)

	AssertTokens(t, tokens,
		Map(2),
		Unordered(
			[]Token{Str("a"), I64(1)},
			[]Token{Str("b"), I64(2)},
		),
		MapEnd,
	)

	rec := &recorder{TB: t}
	AssertTokens(rec, tokens, Map(2), MapEnd)
	require.True(t, rec.failed)
	require.Contains(t, rec.msg, "tokens mismatch")
}

// recorder captures failures instead of failing the test.
type recorder struct {
	testing.TB
	failed bool
	msg    string
}

func (r *recorder) Helper() {}

func (r *recorder) Errorf(format string, args ...any) {
	r.failed = true
	r.msg = format
}
