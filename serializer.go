package serdeassert

import (
	"log/slog"

	"github.com/stealthrocket/serdeassert/serde"
)

// Serializer records the calls of a serde.Serializer as tokens.
//
// Compound starts push the compound on a stack and return a handle whose End
// method records the matching end token. Callers must end every compound
// they start, innermost first; this is not checked.
type Serializer struct {
	tokens []Token
	stack  []*compound

	structMode    StructMode
	humanReadable bool
	logger        *slog.Logger
}

var _ serde.Serializer = (*Serializer)(nil)

func NewSerializer(opts ...SerializerOption) *Serializer {
	s := &Serializer{humanReadable: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Serialize records v and returns the tokens. The recording is handed over
// to the caller; the Serializer starts from scratch on the next call.
func Serialize(v any, opts ...SerializerOption) (Tokens, error) {
	return NewSerializer(opts...).Serialize(v)
}

func (s *Serializer) Serialize(v any) (Tokens, error) {
	s.tokens, s.stack = nil, s.stack[:0]
	err := serde.Serialize(s, v)
	tokens := Tokens{tokens: s.tokens}
	s.tokens = nil
	if err != nil {
		return Tokens{}, forwardSerializeError(err)
	}
	return tokens, nil
}

// record appends t. Recording never fails.
func (s *Serializer) record(t Token) {
	s.tokens = append(s.tokens, t)
	if s.logger != nil {
		s.logger.Debug("record token", "token", t.String(), "depth", len(s.stack))
	}
}

// emit records t for the methods that report an error.
func (s *Serializer) emit(t Token) error {
	s.record(t)
	return nil
}

func (s *Serializer) open(start, end Token, asSeq bool) *compound {
	s.record(start)
	c := &compound{s: s, end: end, asSeq: asSeq}
	s.stack = append(s.stack, c)
	return c
}

func (s *Serializer) value(v any) error {
	return forwardSerializeError(serde.Serialize(s, v))
}

func (s *Serializer) SerializeBool(v bool) error { return s.emit(Bool(v)) }

func (s *Serializer) SerializeI8(v int8) error           { return s.emit(I8(v)) }
func (s *Serializer) SerializeI16(v int16) error         { return s.emit(I16(v)) }
func (s *Serializer) SerializeI32(v int32) error         { return s.emit(I32(v)) }
func (s *Serializer) SerializeI64(v int64) error         { return s.emit(I64(v)) }
func (s *Serializer) SerializeI128(v serde.Int128) error { return s.emit(I128(v)) }

func (s *Serializer) SerializeU8(v uint8) error           { return s.emit(U8(v)) }
func (s *Serializer) SerializeU16(v uint16) error         { return s.emit(U16(v)) }
func (s *Serializer) SerializeU32(v uint32) error         { return s.emit(U32(v)) }
func (s *Serializer) SerializeU64(v uint64) error         { return s.emit(U64(v)) }
func (s *Serializer) SerializeU128(v serde.Uint128) error { return s.emit(U128(v)) }

func (s *Serializer) SerializeF32(v float32) error { return s.emit(F32(v)) }
func (s *Serializer) SerializeF64(v float64) error { return s.emit(F64(v)) }

func (s *Serializer) SerializeChar(v rune) error    { return s.emit(Char(v)) }
func (s *Serializer) SerializeStr(v string) error   { return s.emit(Str(v)) }
func (s *Serializer) SerializeBytes(v []byte) error { return s.emit(Bytes(v)) }

func (s *Serializer) SerializeNone() error { return s.emit(None) }

func (s *Serializer) SerializeSome(v any) error {
	s.record(Some)
	return s.value(v)
}

func (s *Serializer) SerializeUnit() error { return s.emit(Unit) }

func (s *Serializer) SerializeUnitStruct(name string) error {
	return s.emit(UnitStruct(name))
}

func (s *Serializer) SerializeUnitVariant(name string, index uint32, variant string) error {
	return s.emit(UnitVariant(name, index, variant))
}

func (s *Serializer) SerializeNewtypeStruct(name string, v any) error {
	s.record(NewtypeStruct(name))
	return s.value(v)
}

func (s *Serializer) SerializeNewtypeVariant(name string, index uint32, variant string, v any) error {
	s.record(NewtypeVariant(name, index, variant))
	return s.value(v)
}

func (s *Serializer) SerializeSeq(len int) (serde.SerializeSeq, error) {
	return s.open(Seq(len), SeqEnd, false), nil
}

func (s *Serializer) SerializeTuple(len int) (serde.SerializeTuple, error) {
	return s.open(Tuple(len), TupleEnd, false), nil
}

func (s *Serializer) SerializeTupleStruct(name string, len int) (serde.SerializeTupleStruct, error) {
	return s.open(TupleStruct(name, len), TupleStructEnd, false), nil
}

func (s *Serializer) SerializeTupleVariant(name string, index uint32, variant string, len int) (serde.SerializeTupleVariant, error) {
	return s.open(TupleVariant(name, index, variant, len), TupleVariantEnd, false), nil
}

func (s *Serializer) SerializeMap(len int) (serde.SerializeMap, error) {
	return s.open(Map(len), MapEnd, false), nil
}

// StructsAsSeq reports whether structs are recorded as sequences, in which
// case struct fields are never skipped.
func (s *Serializer) StructsAsSeq() bool { return s.structMode == StructAsSeq }

// SerializeStruct starts a struct, or a sequence of the field values when
// the Serializer records structs with StructAsSeq.
func (s *Serializer) SerializeStruct(name string, len int) (serde.SerializeStruct, error) {
	if s.structMode == StructAsSeq {
		return s.open(Seq(len), SeqEnd, true), nil
	}
	return s.open(Struct(name, len), StructEnd, false), nil
}

func (s *Serializer) SerializeStructVariant(name string, index uint32, variant string, len int) (serde.SerializeStructVariant, error) {
	return s.open(StructVariant(name, index, variant, len), StructVariantEnd, false), nil
}

func (s *Serializer) IsHumanReadable() bool { return s.humanReadable }

// compound is the handle of an open sequence, tuple, map, or struct.
type compound struct {
	s   *Serializer
	end Token
	// asSeq drops field names, for structs recorded as sequences.
	asSeq bool
}

func (c *compound) SerializeElement(v any) error { return c.s.value(v) }

func (c *compound) SerializeKey(k any) error { return c.s.value(k) }

func (c *compound) SerializeValue(v any) error { return c.s.value(v) }

func (c *compound) SerializeField(name string, v any) error {
	if !c.asSeq {
		c.s.record(Field(name))
	}
	return c.s.value(v)
}

func (c *compound) SkipField(name string) error {
	if !c.asSeq {
		c.s.record(SkippedField(name))
	}
	return nil
}

func (c *compound) End() error {
	s := c.s
	s.stack = s.stack[:len(s.stack)-1]
	s.record(c.end)
	return nil
}
