package serdeassert

import (
	"bytes"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/stealthrocket/serdeassert/serde"
)

// Deserializer replays tokens into the requests of a serde.Deserializer.
//
// Each request consumes the next token and fails unless it has the requested
// shape. Compounds push a frame on a stack; once the visitor is done with
// the compound, the frame is closed and the matching end token is required.
// SkippedField tokens are ignored.
type Deserializer struct {
	tokens []Token
	pos    int
	stack  []frame

	selfDescribing bool
	zeroCopy       bool
	humanReadable  bool
	logger         *slog.Logger
}

// frame is an open compound.
type frame struct {
	end      Token
	len      int
	consumed int
	ended    bool
}

var _ serde.Deserializer = (*Deserializer)(nil)

// NewDeserializer returns a Deserializer replaying the tokens of src, which
// is read once. Unordered tokens are replayed in the order their groups are
// written.
func NewDeserializer(src iter.Seq[Token], opts ...DeserializerOption) *Deserializer {
	d := &Deserializer{humanReadable: true}
	for t := range src {
		d.tokens = appendFlat(d.tokens, t)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func appendFlat(tokens []Token, t Token) []Token {
	if t.kind != UnorderedKind {
		return append(tokens, t)
	}
	for _, g := range t.groups {
		for _, x := range g {
			tokens = appendFlat(tokens, x)
		}
	}
	return tokens
}

// Stream returns a token source for NewDeserializer.
func Stream(tokens ...Token) iter.Seq[Token] {
	return slices.Values(tokens)
}

// Deserialize replays src into a new value of type T.
func Deserialize[T any](src iter.Seq[Token], opts ...DeserializerOption) (T, error) {
	var v T
	err := NewDeserializer(src, opts...).Deserialize(&v)
	return v, err
}

// Deserialize replays the tokens into the value ptr points to.
func (d *Deserializer) Deserialize(ptr any) error {
	return forward(serde.Deserialize(d, ptr))
}

// Remaining returns the number of tokens not consumed yet.
func (d *Deserializer) Remaining() int {
	return len(d.tokens) - d.pos
}

func (d *Deserializer) next() (Token, error) {
	for d.pos < len(d.tokens) {
		t := d.tokens[d.pos]
		d.pos++
		if t.kind == SkippedFieldKind {
			continue
		}
		if d.logger != nil {
			d.logger.Debug("consume token", "token", t.String(), "pos", d.pos-1, "depth", len(d.stack))
		}
		return t, nil
	}
	return Token{}, ErrEndOfTokens
}

// peek returns the next token without consuming it.
func (d *Deserializer) peek() (Token, error) {
	for d.pos < len(d.tokens) {
		t := d.tokens[d.pos]
		if t.kind != SkippedFieldKind {
			return t, nil
		}
		d.pos++
	}
	return Token{}, ErrEndOfTokens
}

// expect consumes the next token and checks that it is of kind k.
func (d *Deserializer) expect(v serde.Visitor, k Kind) (Token, error) {
	t, err := d.next()
	if err != nil {
		return t, err
	}
	if t.kind != k {
		return t, invalidType(t, v)
	}
	return t, nil
}

func (d *Deserializer) push(n int, end Token) int {
	d.stack = append(d.stack, frame{end: end, len: n})
	return len(d.stack) - 1
}

// close pops the innermost frame, consuming its end token unless an access
// already did.
func (d *Deserializer) close() error {
	f := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	if f.ended {
		return nil
	}
	t, err := d.next()
	if err != nil || !t.Equal(f.end) {
		return expectedEnd(f.end)
	}
	return nil
}

func (d *Deserializer) visitSeq(v serde.Visitor, n int, end Token) error {
	depth := d.push(n, end)
	if err := v.VisitSeq(&seqAccess{d: d, depth: depth}); err != nil {
		d.stack = d.stack[:depth]
		return forward(err)
	}
	return d.close()
}

func (d *Deserializer) visitMap(v serde.Visitor, n int, end Token) error {
	depth := d.push(n, end)
	if err := v.VisitMap(&mapAccess{d: d, depth: depth}); err != nil {
		d.stack = d.stack[:depth]
		return forward(err)
	}
	return d.close()
}

// DeserializeAny calls the visitor method matching the next token. Strings
// and bytes are handed over as owned copies.
func (d *Deserializer) DeserializeAny(v serde.Visitor) error {
	if !d.selfDescribing {
		return ErrNotSelfDescribing
	}
	t, err := d.next()
	if err != nil {
		return err
	}
	switch t.kind {
	case BoolKind:
		err = v.VisitBool(t.u != 0)
	case I8Kind:
		err = v.VisitI8(int8(t.i))
	case I16Kind:
		err = v.VisitI16(int16(t.i))
	case I32Kind:
		err = v.VisitI32(int32(t.i))
	case I64Kind:
		err = v.VisitI64(t.i)
	case I128Kind:
		err = v.VisitI128(t.int128())
	case U8Kind:
		err = v.VisitU8(uint8(t.u))
	case U16Kind:
		err = v.VisitU16(uint16(t.u))
	case U32Kind:
		err = v.VisitU32(uint32(t.u))
	case U64Kind:
		err = v.VisitU64(t.u)
	case U128Kind:
		err = v.VisitU128(t.uint128())
	case F32Kind:
		err = v.VisitF32(float32(t.f))
	case F64Kind:
		err = v.VisitF64(t.f)
	case CharKind:
		err = v.VisitChar(rune(t.i))
	case StrKind:
		err = serde.VisitString(v, strings.Clone(t.name))
	case BytesKind:
		err = serde.VisitByteBuf(v, bytes.Clone(t.bytes))
	case NoneKind:
		err = v.VisitNone()
	case SomeKind:
		err = v.VisitSome(d)
	case UnitKind, UnitStructKind:
		err = v.VisitUnit()
	case UnitVariantKind, NewtypeVariantKind, TupleVariantKind, StructVariantKind:
		d.pos--
		err = v.VisitEnum(&enumAccess{d: d})
	case NewtypeStructKind:
		err = v.VisitNewtypeStruct(d)
	case SeqKind:
		return d.visitSeq(v, t.len, SeqEnd)
	case TupleKind:
		return d.visitSeq(v, t.len, TupleEnd)
	case TupleStructKind:
		return d.visitSeq(v, t.len, TupleStructEnd)
	case MapKind:
		return d.visitMap(v, t.len, MapEnd)
	case StructKind:
		return d.visitMap(v, t.len, StructEnd)
	case FieldKind:
		err = v.VisitStr(t.name)
	default:
		return invalidType(t, v)
	}
	return forward(err)
}

func (d *Deserializer) DeserializeBool(v serde.Visitor) error {
	t, err := d.expect(v, BoolKind)
	if err != nil {
		return err
	}
	return forward(v.VisitBool(t.u != 0))
}

func (d *Deserializer) DeserializeI8(v serde.Visitor) error {
	t, err := d.expect(v, I8Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitI8(int8(t.i)))
}

func (d *Deserializer) DeserializeI16(v serde.Visitor) error {
	t, err := d.expect(v, I16Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitI16(int16(t.i)))
}

func (d *Deserializer) DeserializeI32(v serde.Visitor) error {
	t, err := d.expect(v, I32Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitI32(int32(t.i)))
}

func (d *Deserializer) DeserializeI64(v serde.Visitor) error {
	t, err := d.expect(v, I64Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitI64(t.i))
}

func (d *Deserializer) DeserializeI128(v serde.Visitor) error {
	t, err := d.expect(v, I128Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitI128(t.int128()))
}

func (d *Deserializer) DeserializeU8(v serde.Visitor) error {
	t, err := d.expect(v, U8Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitU8(uint8(t.u)))
}

func (d *Deserializer) DeserializeU16(v serde.Visitor) error {
	t, err := d.expect(v, U16Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitU16(uint16(t.u)))
}

func (d *Deserializer) DeserializeU32(v serde.Visitor) error {
	t, err := d.expect(v, U32Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitU32(uint32(t.u)))
}

func (d *Deserializer) DeserializeU64(v serde.Visitor) error {
	t, err := d.expect(v, U64Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitU64(t.u))
}

func (d *Deserializer) DeserializeU128(v serde.Visitor) error {
	t, err := d.expect(v, U128Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitU128(t.uint128()))
}

func (d *Deserializer) DeserializeF32(v serde.Visitor) error {
	t, err := d.expect(v, F32Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitF32(float32(t.f)))
}

func (d *Deserializer) DeserializeF64(v serde.Visitor) error {
	t, err := d.expect(v, F64Kind)
	if err != nil {
		return err
	}
	return forward(v.VisitF64(t.f))
}

func (d *Deserializer) DeserializeChar(v serde.Visitor) error {
	t, err := d.expect(v, CharKind)
	if err != nil {
		return err
	}
	return forward(v.VisitChar(rune(t.i)))
}

// DeserializeStr hands the visitor the string of the token itself when
// zero-copy is enabled, and a copy otherwise.
func (d *Deserializer) DeserializeStr(v serde.Visitor) error {
	t, err := d.expect(v, StrKind)
	if err != nil {
		return err
	}
	if d.zeroCopy {
		return forward(serde.VisitBorrowedStr(v, t.name))
	}
	return forward(v.VisitStr(strings.Clone(t.name)))
}

func (d *Deserializer) DeserializeString(v serde.Visitor) error {
	t, err := d.expect(v, StrKind)
	if err != nil {
		return err
	}
	return forward(serde.VisitString(v, strings.Clone(t.name)))
}

// DeserializeBytes hands the visitor the slice of the token itself when
// zero-copy is enabled, and a copy otherwise.
func (d *Deserializer) DeserializeBytes(v serde.Visitor) error {
	t, err := d.expect(v, BytesKind)
	if err != nil {
		return err
	}
	if d.zeroCopy {
		return forward(serde.VisitBorrowedBytes(v, t.bytes))
	}
	return forward(v.VisitBytes(bytes.Clone(t.bytes)))
}

func (d *Deserializer) DeserializeByteBuf(v serde.Visitor) error {
	t, err := d.expect(v, BytesKind)
	if err != nil {
		return err
	}
	return forward(serde.VisitByteBuf(v, bytes.Clone(t.bytes)))
}

func (d *Deserializer) DeserializeOption(v serde.Visitor) error {
	t, err := d.next()
	if err != nil {
		return err
	}
	switch t.kind {
	case SomeKind:
		return forward(v.VisitSome(d))
	case NoneKind:
		return forward(v.VisitNone())
	default:
		return invalidType(t, v)
	}
}

func (d *Deserializer) DeserializeUnit(v serde.Visitor) error {
	if _, err := d.expect(v, UnitKind); err != nil {
		return err
	}
	return forward(v.VisitUnit())
}

func (d *Deserializer) DeserializeUnitStruct(name string, v serde.Visitor) error {
	t, err := d.expect(v, UnitStructKind)
	if err != nil {
		return err
	}
	if t.name != name {
		return invalidValue(t, v)
	}
	return forward(v.VisitUnit())
}

func (d *Deserializer) DeserializeNewtypeStruct(name string, v serde.Visitor) error {
	t, err := d.expect(v, NewtypeStructKind)
	if err != nil {
		return err
	}
	if t.name != name {
		return invalidValue(t, v)
	}
	return forward(v.VisitNewtypeStruct(d))
}

func (d *Deserializer) DeserializeSeq(v serde.Visitor) error {
	t, err := d.expect(v, SeqKind)
	if err != nil {
		return err
	}
	return d.visitSeq(v, t.len, SeqEnd)
}

func (d *Deserializer) DeserializeTuple(len int, v serde.Visitor) error {
	t, err := d.expect(v, TupleKind)
	if err != nil {
		return err
	}
	if t.len != len {
		return invalidLength(t.len, v)
	}
	return d.visitSeq(v, t.len, TupleEnd)
}

func (d *Deserializer) DeserializeTupleStruct(name string, len int, v serde.Visitor) error {
	t, err := d.expect(v, TupleStructKind)
	if err != nil {
		return err
	}
	switch {
	case t.name != name:
		return invalidValue(t, v)
	case t.len != len:
		return invalidLength(t.len, v)
	}
	return d.visitSeq(v, t.len, TupleStructEnd)
}

func (d *Deserializer) DeserializeMap(v serde.Visitor) error {
	t, err := d.expect(v, MapKind)
	if err != nil {
		return err
	}
	return d.visitMap(v, t.len, MapEnd)
}

// DeserializeStruct accepts a Struct token, or a Seq token for structs
// recorded with StructAsSeq, in which case the visitor receives the field
// values in order.
func (d *Deserializer) DeserializeStruct(name string, fields []string, v serde.Visitor) error {
	t, err := d.next()
	if err != nil {
		return err
	}
	switch t.kind {
	case StructKind:
		if t.name != name {
			return invalidValue(t, v)
		}
		return d.visitMap(v, t.len, StructEnd)
	case SeqKind:
		return d.visitSeq(v, t.len, SeqEnd)
	default:
		return invalidType(t, v)
	}
}

// DeserializeEnum checks the type name of the next variant token and lets
// the visitor read the variant through a serde.EnumAccess.
func (d *Deserializer) DeserializeEnum(name string, variants []string, v serde.Visitor) error {
	t, err := d.peek()
	if err != nil {
		return err
	}
	switch t.kind {
	case UnitVariantKind, NewtypeVariantKind, TupleVariantKind, StructVariantKind:
		if t.name != name {
			d.pos++
			return invalidValue(t, v)
		}
		return forward(v.VisitEnum(&enumAccess{d: d}))
	default:
		d.pos++
		return invalidType(t, v)
	}
}

func (d *Deserializer) DeserializeIdentifier(v serde.Visitor) error {
	t, err := d.next()
	if err != nil {
		return err
	}
	switch t.kind {
	case StrKind, FieldKind:
		return forward(v.VisitStr(t.name))
	default:
		return invalidType(t, v)
	}
}

func (d *Deserializer) DeserializeIgnoredAny(v serde.Visitor) error {
	return d.DeserializeAny(v)
}

func (d *Deserializer) IsHumanReadable() bool { return d.humanReadable }

// seqAccess yields the elements of the frame at depth until its end token.
type seqAccess struct {
	d     *Deserializer
	depth int
}

func (a *seqAccess) NextElement(seed serde.Seed) (bool, error) {
	return nextEntry(a.d, a.depth, seed)
}

func (a *seqAccess) SizeHint() (int, bool) {
	return a.d.stack[a.depth].sizeHint()
}

type mapAccess struct {
	d     *Deserializer
	depth int
}

func (a *mapAccess) NextKey(seed serde.Seed) (bool, error) {
	return nextEntry(a.d, a.depth, seed)
}

func (a *mapAccess) NextValue(seed serde.Seed) error {
	return forward(seed(a.d))
}

func (a *mapAccess) SizeHint() (int, bool) {
	return a.d.stack[a.depth].sizeHint()
}

// nextEntry runs seed on the next element of the frame at depth, or marks
// the frame ended when the next token is its end token.
func nextEntry(d *Deserializer, depth int, seed serde.Seed) (bool, error) {
	f := &d.stack[depth]
	if f.ended {
		return false, nil
	}
	t, err := d.peek()
	if err != nil {
		return false, err
	}
	if t.Equal(f.end) {
		d.pos++
		f.ended = true
		return false, nil
	}
	f.consumed++
	return true, forward(seed(d))
}

func (f *frame) sizeHint() (int, bool) {
	if f.len < 0 {
		return 0, false
	}
	return max(f.len-f.consumed, 0), true
}

// enumAccess reads the variant token left in place by DeserializeEnum or
// DeserializeAny.
type enumAccess struct {
	d *Deserializer
}

func (e *enumAccess) Variant(seed serde.Seed) (serde.VariantAccess, error) {
	t, err := e.d.next()
	if err != nil {
		return nil, err
	}
	if err := seed(&enumDeserializer{d: e.d, variant: t}); err != nil {
		return nil, forward(err)
	}
	return &variantAccess{d: e.d, variant: t}, nil
}

// variantAccess checks that the variant is read with the shape it was
// recorded with.
type variantAccess struct {
	d       *Deserializer
	variant Token
}

var _ serde.ShapedVariantAccess = (*variantAccess)(nil)

func (a *variantAccess) Shape() serde.VariantShape {
	switch a.variant.kind {
	case UnitVariantKind:
		return serde.UnitShape
	case TupleVariantKind:
		return serde.TupleShape
	case StructVariantKind:
		return serde.StructShape
	default:
		return serde.NewtypeShape
	}
}

func (a *variantAccess) check(k Kind, expected string) error {
	if a.variant.kind != k {
		return Error{Kind: InvalidType, Found: a.variant.unexpected().String(), Expected: expected}
	}
	return nil
}

func (a *variantAccess) UnitVariant() error {
	return a.check(UnitVariantKind, "unit variant")
}

func (a *variantAccess) NewtypeVariant(seed serde.Seed) error {
	if err := a.check(NewtypeVariantKind, "newtype variant"); err != nil {
		return err
	}
	return forward(seed(a.d))
}

func (a *variantAccess) TupleVariant(len int, v serde.Visitor) error {
	if err := a.check(TupleVariantKind, "tuple variant"); err != nil {
		return err
	}
	return a.d.visitSeq(v, a.variant.len, TupleVariantEnd)
}

func (a *variantAccess) StructVariant(fields []string, v serde.Visitor) error {
	if err := a.check(StructVariantKind, "struct variant"); err != nil {
		return err
	}
	return a.d.visitMap(v, a.variant.len, StructVariantEnd)
}

// enumDeserializer only yields the identifier of a variant: its name when a
// string is requested and its index when an integer is requested.
type enumDeserializer struct {
	d       *Deserializer
	variant Token
}

var _ serde.Deserializer = (*enumDeserializer)(nil)

func (e *enumDeserializer) name(v serde.Visitor) error {
	return forward(v.VisitStr(e.variant.variant))
}

func (e *enumDeserializer) index(v serde.Visitor) error {
	return forward(v.VisitU32(uint32(e.variant.u)))
}

func unsupported() error { return ErrUnsupportedEnumDeserializerMethod }

func (e *enumDeserializer) DeserializeAny(v serde.Visitor) error    { return e.name(v) }
func (e *enumDeserializer) DeserializeStr(v serde.Visitor) error    { return e.name(v) }
func (e *enumDeserializer) DeserializeString(v serde.Visitor) error { return e.name(v) }

func (e *enumDeserializer) DeserializeEnum(_ string, _ []string, v serde.Visitor) error {
	return e.name(v)
}

func (e *enumDeserializer) DeserializeIdentifier(v serde.Visitor) error { return e.name(v) }
func (e *enumDeserializer) DeserializeIgnoredAny(v serde.Visitor) error { return e.name(v) }

func (e *enumDeserializer) DeserializeI8(v serde.Visitor) error   { return e.index(v) }
func (e *enumDeserializer) DeserializeI16(v serde.Visitor) error  { return e.index(v) }
func (e *enumDeserializer) DeserializeI32(v serde.Visitor) error  { return e.index(v) }
func (e *enumDeserializer) DeserializeI64(v serde.Visitor) error  { return e.index(v) }
func (e *enumDeserializer) DeserializeI128(v serde.Visitor) error { return e.index(v) }
func (e *enumDeserializer) DeserializeU8(v serde.Visitor) error   { return e.index(v) }
func (e *enumDeserializer) DeserializeU16(v serde.Visitor) error  { return e.index(v) }
func (e *enumDeserializer) DeserializeU32(v serde.Visitor) error  { return e.index(v) }
func (e *enumDeserializer) DeserializeU64(v serde.Visitor) error  { return e.index(v) }
func (e *enumDeserializer) DeserializeU128(v serde.Visitor) error { return e.index(v) }

func (e *enumDeserializer) DeserializeBool(serde.Visitor) error    { return unsupported() }
func (e *enumDeserializer) DeserializeF32(serde.Visitor) error     { return unsupported() }
func (e *enumDeserializer) DeserializeF64(serde.Visitor) error     { return unsupported() }
func (e *enumDeserializer) DeserializeChar(serde.Visitor) error    { return unsupported() }
func (e *enumDeserializer) DeserializeBytes(serde.Visitor) error   { return unsupported() }
func (e *enumDeserializer) DeserializeByteBuf(serde.Visitor) error { return unsupported() }
func (e *enumDeserializer) DeserializeOption(serde.Visitor) error  { return unsupported() }
func (e *enumDeserializer) DeserializeUnit(serde.Visitor) error    { return unsupported() }
func (e *enumDeserializer) DeserializeSeq(serde.Visitor) error     { return unsupported() }
func (e *enumDeserializer) DeserializeMap(serde.Visitor) error     { return unsupported() }

func (e *enumDeserializer) DeserializeUnitStruct(string, serde.Visitor) error {
	return unsupported()
}

func (e *enumDeserializer) DeserializeNewtypeStruct(string, serde.Visitor) error {
	return unsupported()
}

func (e *enumDeserializer) DeserializeTuple(int, serde.Visitor) error {
	return unsupported()
}

func (e *enumDeserializer) DeserializeTupleStruct(string, int, serde.Visitor) error {
	return unsupported()
}

func (e *enumDeserializer) DeserializeStruct(string, []string, serde.Visitor) error {
	return unsupported()
}

func (e *enumDeserializer) IsHumanReadable() bool { return e.d.humanReadable }
