// Package serdeassert records and replays serialization as sequences of
// tokens, so that hand written Serialize and Deserialize methods can be tested
// without a wire format.
//
// A [Serializer] records every call made by [serde.Serialize] as a [Token].
// Tests compare the recorded [Tokens] against a literal expectation with
// [Tokens.Equal] or [AssertTokens]. A [Deserializer] replays a token stream
// into [serde.Deserialize], validating framing on the way.
package serdeassert

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/stealthrocket/serdeassert/serde"
)

// UnknownLen is the length of sequences and maps whose size was not given
// when they were started.
const UnknownLen = serde.UnknownLen

// Kind identifies the variant of a Token.
type Kind uint8

const (
	BoolKind Kind = iota
	I8Kind
	I16Kind
	I32Kind
	I64Kind
	I128Kind
	U8Kind
	U16Kind
	U32Kind
	U64Kind
	U128Kind
	F32Kind
	F64Kind
	CharKind
	StrKind
	BytesKind
	NoneKind
	SomeKind
	UnitKind
	UnitStructKind
	UnitVariantKind
	NewtypeStructKind
	NewtypeVariantKind
	SeqKind
	SeqEndKind
	TupleKind
	TupleEndKind
	TupleStructKind
	TupleStructEndKind
	TupleVariantKind
	TupleVariantEndKind
	MapKind
	MapEndKind
	FieldKind
	SkippedFieldKind
	StructKind
	StructEndKind
	StructVariantKind
	StructVariantEndKind
	UnorderedKind
)

var kindNames = [...]string{
	BoolKind:             "Bool",
	I8Kind:               "I8",
	I16Kind:              "I16",
	I32Kind:              "I32",
	I64Kind:              "I64",
	I128Kind:             "I128",
	U8Kind:               "U8",
	U16Kind:              "U16",
	U32Kind:              "U32",
	U64Kind:              "U64",
	U128Kind:             "U128",
	F32Kind:              "F32",
	F64Kind:              "F64",
	CharKind:             "Char",
	StrKind:              "Str",
	BytesKind:            "Bytes",
	NoneKind:             "None",
	SomeKind:             "Some",
	UnitKind:             "Unit",
	UnitStructKind:       "UnitStruct",
	UnitVariantKind:      "UnitVariant",
	NewtypeStructKind:    "NewtypeStruct",
	NewtypeVariantKind:   "NewtypeVariant",
	SeqKind:              "Seq",
	SeqEndKind:           "SeqEnd",
	TupleKind:            "Tuple",
	TupleEndKind:         "TupleEnd",
	TupleStructKind:      "TupleStruct",
	TupleStructEndKind:   "TupleStructEnd",
	TupleVariantKind:     "TupleVariant",
	TupleVariantEndKind:  "TupleVariantEnd",
	MapKind:              "Map",
	MapEndKind:           "MapEnd",
	FieldKind:            "Field",
	SkippedFieldKind:     "SkippedField",
	StructKind:           "Struct",
	StructEndKind:        "StructEnd",
	StructVariantKind:    "StructVariant",
	StructVariantEndKind: "StructVariantEnd",
	UnorderedKind:        "Unordered",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Token is one serialization event: a scalar value or a framing marker.
//
// Tokens are values; the zero Token is Bool(false). Build them with the
// constructor functions and the predefined variables of this package.
type Token struct {
	kind Kind
	// i holds signed integers, chars, and the high half of 128 bits integers.
	i int64
	// u holds booleans, unsigned integers, variant indexes, and the low half
	// of 128 bits integers.
	u uint64
	f float64
	// name is the string value, the type name, or the field name.
	name    string
	variant string
	len     int
	bytes   []byte
	groups  [][]Token
}

var (
	None             = Token{kind: NoneKind}
	Some             = Token{kind: SomeKind}
	Unit             = Token{kind: UnitKind}
	SeqEnd           = Token{kind: SeqEndKind}
	TupleEnd         = Token{kind: TupleEndKind}
	TupleStructEnd   = Token{kind: TupleStructEndKind}
	TupleVariantEnd  = Token{kind: TupleVariantEndKind}
	MapEnd           = Token{kind: MapEndKind}
	StructEnd        = Token{kind: StructEndKind}
	StructVariantEnd = Token{kind: StructVariantEndKind}
)

func Bool(v bool) Token {
	var u uint64
	if v {
		u = 1
	}
	return Token{kind: BoolKind, u: u}
}

func I8(v int8) Token   { return Token{kind: I8Kind, i: int64(v)} }
func I16(v int16) Token { return Token{kind: I16Kind, i: int64(v)} }
func I32(v int32) Token { return Token{kind: I32Kind, i: int64(v)} }
func I64(v int64) Token { return Token{kind: I64Kind, i: v} }

func I128(v serde.Int128) Token { return Token{kind: I128Kind, i: v.High, u: v.Low} }

func U8(v uint8) Token   { return Token{kind: U8Kind, u: uint64(v)} }
func U16(v uint16) Token { return Token{kind: U16Kind, u: uint64(v)} }
func U32(v uint32) Token { return Token{kind: U32Kind, u: uint64(v)} }
func U64(v uint64) Token { return Token{kind: U64Kind, u: v} }

func U128(v serde.Uint128) Token { return Token{kind: U128Kind, i: int64(v.High), u: v.Low} }

func F32(v float32) Token { return Token{kind: F32Kind, f: float64(v)} }
func F64(v float64) Token { return Token{kind: F64Kind, f: v} }

func Char(v rune) Token { return Token{kind: CharKind, i: int64(v)} }

func Str(v string) Token { return Token{kind: StrKind, name: v} }

// Bytes returns a Bytes token holding b. The slice is retained, not copied.
func Bytes(b []byte) Token { return Token{kind: BytesKind, bytes: b} }

func UnitStruct(name string) Token { return Token{kind: UnitStructKind, name: name} }

func UnitVariant(name string, index uint32, variant string) Token {
	return Token{kind: UnitVariantKind, name: name, u: uint64(index), variant: variant}
}

// NewtypeStruct is followed by the tokens of the wrapped value.
func NewtypeStruct(name string) Token { return Token{kind: NewtypeStructKind, name: name} }

// NewtypeVariant is followed by the tokens of the wrapped value.
func NewtypeVariant(name string, index uint32, variant string) Token {
	return Token{kind: NewtypeVariantKind, name: name, u: uint64(index), variant: variant}
}

// Seq starts a sequence of len elements closed by SeqEnd. len may be
// UnknownLen.
func Seq(len int) Token { return Token{kind: SeqKind, len: len} }

func Tuple(len int) Token { return Token{kind: TupleKind, len: len} }

func TupleStruct(name string, len int) Token {
	return Token{kind: TupleStructKind, name: name, len: len}
}

func TupleVariant(name string, index uint32, variant string, len int) Token {
	return Token{kind: TupleVariantKind, name: name, u: uint64(index), variant: variant, len: len}
}

// Map starts a map of len entries, each a key followed by a value, closed by
// MapEnd. len may be UnknownLen.
func Map(len int) Token { return Token{kind: MapKind, len: len} }

// Field precedes the value of a struct field.
func Field(name string) Token { return Token{kind: FieldKind, name: name} }

// SkippedField records a struct field that was left out of the output. It is
// ignored when deserializing.
func SkippedField(name string) Token { return Token{kind: SkippedFieldKind, name: name} }

func Struct(name string, len int) Token {
	return Token{kind: StructKind, name: name, len: len}
}

func StructVariant(name string, index uint32, variant string, len int) Token {
	return Token{kind: StructVariantKind, name: name, u: uint64(index), variant: variant, len: len}
}

// Unordered matches the token runs of groups in any order. Each group is
// compared as a unit and may contain Unordered tokens itself.
//
// Unordered is meant for expectations, for example the entries of a map
// whose iteration order is not deterministic:
//
//	serdeassert.Map(2),
//	serdeassert.Unordered(
//		[]serdeassert.Token{serdeassert.Str("a"), serdeassert.I64(1)},
//		[]serdeassert.Token{serdeassert.Str("b"), serdeassert.I64(2)},
//	),
//	serdeassert.MapEnd,
func Unordered(groups ...[]Token) Token { return Token{kind: UnorderedKind, groups: groups} }

func (t Token) Kind() Kind { return t.kind }

// Equal reports whether t and o are the same variant holding the same
// values. Floats compare by value. Unordered tokens are equal when their
// groups are pairwise equal.
func (t Token) Equal(o Token) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case BoolKind, U8Kind, U16Kind, U32Kind, U64Kind:
		return t.u == o.u
	case I8Kind, I16Kind, I32Kind, I64Kind, CharKind:
		return t.i == o.i
	case I128Kind, U128Kind:
		return t.i == o.i && t.u == o.u
	case F32Kind, F64Kind:
		return t.f == o.f
	case StrKind, UnitStructKind, NewtypeStructKind, FieldKind, SkippedFieldKind:
		return t.name == o.name
	case BytesKind:
		return bytes.Equal(t.bytes, o.bytes)
	case UnitVariantKind, NewtypeVariantKind:
		return t.name == o.name && t.u == o.u && t.variant == o.variant
	case TupleVariantKind, StructVariantKind:
		return t.name == o.name && t.u == o.u && t.variant == o.variant && t.len == o.len
	case SeqKind, TupleKind, MapKind:
		return t.len == o.len
	case TupleStructKind, StructKind:
		return t.name == o.name && t.len == o.len
	case UnorderedKind:
		return slices.EqualFunc(t.groups, o.groups, func(a, b []Token) bool {
			return slices.EqualFunc(a, b, Token.Equal)
		})
	default:
		return true
	}
}

func (t Token) String() string {
	switch t.kind {
	case BoolKind:
		return fmt.Sprintf("Bool(%t)", t.u != 0)
	case I8Kind, I16Kind, I32Kind, I64Kind:
		return fmt.Sprintf("%s(%d)", t.kind, t.i)
	case I128Kind:
		return fmt.Sprintf("I128(%s)", t.int128())
	case U8Kind, U16Kind, U32Kind, U64Kind:
		return fmt.Sprintf("%s(%d)", t.kind, t.u)
	case U128Kind:
		return fmt.Sprintf("U128(%s)", t.uint128())
	case F32Kind:
		return "F32(" + strconv.FormatFloat(t.f, 'g', -1, 32) + ")"
	case F64Kind:
		return "F64(" + strconv.FormatFloat(t.f, 'g', -1, 64) + ")"
	case CharKind:
		return "Char(" + strconv.QuoteRune(rune(t.i)) + ")"
	case StrKind, FieldKind, SkippedFieldKind:
		return fmt.Sprintf("%s(%q)", t.kind, t.name)
	case BytesKind:
		return fmt.Sprintf("Bytes(%v)", t.bytes)
	case UnitStructKind, NewtypeStructKind:
		return fmt.Sprintf("%s{name: %q}", t.kind, t.name)
	case UnitVariantKind, NewtypeVariantKind:
		return fmt.Sprintf("%s{name: %q, index: %d, variant: %q}", t.kind, t.name, t.u, t.variant)
	case SeqKind, TupleKind, MapKind:
		return fmt.Sprintf("%s{len: %s}", t.kind, formatLen(t.len))
	case TupleStructKind, StructKind:
		return fmt.Sprintf("%s{name: %q, len: %s}", t.kind, t.name, formatLen(t.len))
	case TupleVariantKind, StructVariantKind:
		return fmt.Sprintf("%s{name: %q, index: %d, variant: %q, len: %s}", t.kind, t.name, t.u, t.variant, formatLen(t.len))
	case UnorderedKind:
		groups := lo.Map(t.groups, func(g []Token, _ int) string {
			return "[" + formatTokens(g) + "]"
		})
		return "Unordered[" + strings.Join(groups, ", ") + "]"
	default:
		return t.kind.String()
	}
}

func formatLen(n int) string {
	if n < 0 {
		return "unknown"
	}
	return strconv.Itoa(n)
}

func formatTokens(tokens []Token) string {
	return strings.Join(lo.Map(tokens, func(t Token, _ int) string { return t.String() }), ", ")
}

func (t Token) int128() serde.Int128   { return serde.Int128{High: t.i, Low: t.u} }
func (t Token) uint128() serde.Uint128 { return serde.Uint128{High: uint64(t.i), Low: t.u} }

// unexpected describes t for InvalidType and InvalidValue errors.
func (t Token) unexpected() serde.Unexpected {
	switch t.kind {
	case BoolKind:
		return serde.UnexpectedBool(t.u != 0)
	case I8Kind, I16Kind, I32Kind, I64Kind:
		return serde.UnexpectedSigned(t.i)
	case I128Kind:
		return serde.UnexpectedOther("i128")
	case U8Kind, U16Kind, U32Kind, U64Kind:
		return serde.UnexpectedUnsigned(t.u)
	case U128Kind:
		return serde.UnexpectedOther("u128")
	case F32Kind, F64Kind:
		return serde.UnexpectedFloat(t.f)
	case CharKind:
		return serde.UnexpectedChar(rune(t.i))
	case StrKind:
		return serde.UnexpectedStr(t.name)
	case BytesKind:
		return serde.UnexpectedBytes
	case NoneKind, SomeKind:
		return serde.UnexpectedOption
	case UnitKind, UnitStructKind:
		return serde.UnexpectedUnit
	case UnitVariantKind:
		return serde.UnexpectedUnitVariant
	case NewtypeStructKind:
		return serde.UnexpectedNewtypeStruct
	case NewtypeVariantKind:
		return serde.UnexpectedNewtypeVariant
	case SeqKind, TupleKind:
		return serde.UnexpectedSeq
	case TupleVariantKind:
		return serde.UnexpectedTupleVariant
	case MapKind:
		return serde.UnexpectedMap
	case StructVariantKind:
		return serde.UnexpectedStructVariant
	default:
		return serde.UnexpectedOther(t.kind.String())
	}
}
