// Package serde is a visitor-based serialization framework.
//
// A Serializer receives one call per primitive and a handle per compound
// value (sequence, tuple, map, struct and their enum variants). A Deserializer
// is asked for a specific shape and answers by calling back into a Visitor
// with what it found. Formats implement the two interfaces; Go values reach
// them through [Serialize] and [Deserialize], which walk values with
// reflection, or through [Serializable] and [Deserializable] when a type
// wants to drive the calls itself.
package serde

// UnknownLen is the length passed for sequences and maps whose size is not
// known when they are started.
const UnknownLen = -1

// Serializer is implemented by formats that values are serialized into.
//
// Compound starts return a handle that must receive every element and
// exactly one End call before the enclosing value continues.
type Serializer interface {
	SerializeBool(v bool) error

	SerializeI8(v int8) error
	SerializeI16(v int16) error
	SerializeI32(v int32) error
	SerializeI64(v int64) error
	SerializeI128(v Int128) error

	SerializeU8(v uint8) error
	SerializeU16(v uint16) error
	SerializeU32(v uint32) error
	SerializeU64(v uint64) error
	SerializeU128(v Uint128) error

	SerializeF32(v float32) error
	SerializeF64(v float64) error

	SerializeChar(v rune) error
	SerializeStr(v string) error
	SerializeBytes(v []byte) error

	SerializeNone() error
	SerializeSome(v any) error

	SerializeUnit() error
	SerializeUnitStruct(name string) error
	SerializeUnitVariant(name string, index uint32, variant string) error

	SerializeNewtypeStruct(name string, v any) error
	SerializeNewtypeVariant(name string, index uint32, variant string, v any) error

	SerializeSeq(len int) (SerializeSeq, error)
	SerializeTuple(len int) (SerializeTuple, error)
	SerializeTupleStruct(name string, len int) (SerializeTupleStruct, error)
	SerializeTupleVariant(name string, index uint32, variant string, len int) (SerializeTupleVariant, error)
	SerializeMap(len int) (SerializeMap, error)
	SerializeStruct(name string, len int) (SerializeStruct, error)
	SerializeStructVariant(name string, index uint32, variant string, len int) (SerializeStructVariant, error)

	IsHumanReadable() bool
}

// PositionalStructs is implemented by serializers that may write structs as
// sequences of field values. Fields are then told apart by their position,
// so none of them can be skipped.
type PositionalStructs interface {
	StructsAsSeq() bool
}

func positional(s Serializer) bool {
	p, ok := s.(PositionalStructs)
	return ok && p.StructsAsSeq()
}

type SerializeSeq interface {
	SerializeElement(v any) error
	End() error
}

type SerializeTuple interface {
	SerializeElement(v any) error
	End() error
}

type SerializeTupleStruct interface {
	SerializeElement(v any) error
	End() error
}

type SerializeTupleVariant interface {
	SerializeElement(v any) error
	End() error
}

type SerializeMap interface {
	SerializeKey(k any) error
	SerializeValue(v any) error
	End() error
}

type SerializeStruct interface {
	SerializeField(name string, v any) error
	// SkipField records that a field was left out of the output.
	SkipField(name string) error
	End() error
}

type SerializeStructVariant interface {
	SerializeField(name string, v any) error
	SkipField(name string) error
	End() error
}

// Serializable values drive a Serializer themselves instead of being walked
// with reflection.
type Serializable interface {
	Serialize(s Serializer) error
}

// Deserializable values read themselves from a Deserializer. The method is
// expected to be implemented on a pointer receiver.
type Deserializable interface {
	Deserialize(d Deserializer) error
}
