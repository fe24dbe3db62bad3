package serde

// Deserializer is implemented by formats that values are deserialized from.
//
// Each method names the shape the caller expects; the deserializer answers
// by calling the visitor method matching what it actually found, or by
// returning an error.
type Deserializer interface {
	// DeserializeAny lets the input decide which visitor method is called.
	// Formats that are not self-describing reject it.
	DeserializeAny(v Visitor) error

	DeserializeBool(v Visitor) error

	DeserializeI8(v Visitor) error
	DeserializeI16(v Visitor) error
	DeserializeI32(v Visitor) error
	DeserializeI64(v Visitor) error
	DeserializeI128(v Visitor) error

	DeserializeU8(v Visitor) error
	DeserializeU16(v Visitor) error
	DeserializeU32(v Visitor) error
	DeserializeU64(v Visitor) error
	DeserializeU128(v Visitor) error

	DeserializeF32(v Visitor) error
	DeserializeF64(v Visitor) error

	DeserializeChar(v Visitor) error
	// DeserializeStr may hand the visitor a string borrowed from the input.
	DeserializeStr(v Visitor) error
	// DeserializeString always hands the visitor a string it owns.
	DeserializeString(v Visitor) error
	DeserializeBytes(v Visitor) error
	DeserializeByteBuf(v Visitor) error

	DeserializeOption(v Visitor) error
	DeserializeUnit(v Visitor) error
	DeserializeUnitStruct(name string, v Visitor) error
	DeserializeNewtypeStruct(name string, v Visitor) error

	DeserializeSeq(v Visitor) error
	DeserializeTuple(len int, v Visitor) error
	DeserializeTupleStruct(name string, len int, v Visitor) error
	DeserializeMap(v Visitor) error
	DeserializeStruct(name string, fields []string, v Visitor) error
	DeserializeEnum(name string, variants []string, v Visitor) error

	// DeserializeIdentifier reads a struct field name or an enum variant.
	DeserializeIdentifier(v Visitor) error
	// DeserializeIgnoredAny skips over one value.
	DeserializeIgnoredAny(v Visitor) error

	IsHumanReadable() bool
}

// Seed deserializes one value out of d, typically into a location it
// closes over. See [Into].
type Seed func(d Deserializer) error

// Into returns a Seed deserializing into the value ptr points to.
func Into(ptr any) Seed {
	return func(d Deserializer) error {
		return Deserialize(d, ptr)
	}
}

// Visitor receives what a Deserializer found.
//
// Embed DefaultVisitor to only implement the methods a target accepts.
type Visitor interface {
	// Expecting describes what the visitor accepts, for error messages.
	Expecting() string

	VisitBool(bool) error

	VisitI8(int8) error
	VisitI16(int16) error
	VisitI32(int32) error
	VisitI64(int64) error
	VisitI128(Int128) error

	VisitU8(uint8) error
	VisitU16(uint16) error
	VisitU32(uint32) error
	VisitU64(uint64) error
	VisitU128(Uint128) error

	VisitF32(float32) error
	VisitF64(float64) error

	VisitChar(rune) error
	VisitStr(string) error
	VisitBytes([]byte) error

	VisitNone() error
	VisitSome(Deserializer) error
	VisitUnit() error
	VisitNewtypeStruct(Deserializer) error

	VisitSeq(SeqAccess) error
	VisitMap(MapAccess) error
	VisitEnum(EnumAccess) error
}

// BorrowedStrVisitor is implemented by visitors that want to know the string
// they receive is borrowed from the input.
type BorrowedStrVisitor interface {
	VisitBorrowedStr(string) error
}

// StringVisitor is implemented by visitors that want to know the string they
// receive is theirs to keep.
type StringVisitor interface {
	VisitString(string) error
}

type BorrowedBytesVisitor interface {
	VisitBorrowedBytes([]byte) error
}

type ByteBufVisitor interface {
	VisitByteBuf([]byte) error
}

// VisitBorrowedStr calls v.VisitBorrowedStr when v implements it and
// v.VisitStr otherwise.
func VisitBorrowedStr(v Visitor, s string) error {
	if b, ok := v.(BorrowedStrVisitor); ok {
		return b.VisitBorrowedStr(s)
	}
	return v.VisitStr(s)
}

// VisitString calls v.VisitString when v implements it and v.VisitStr
// otherwise.
func VisitString(v Visitor, s string) error {
	if o, ok := v.(StringVisitor); ok {
		return o.VisitString(s)
	}
	return v.VisitStr(s)
}

func VisitBorrowedBytes(v Visitor, b []byte) error {
	if x, ok := v.(BorrowedBytesVisitor); ok {
		return x.VisitBorrowedBytes(b)
	}
	return v.VisitBytes(b)
}

func VisitByteBuf(v Visitor, b []byte) error {
	if x, ok := v.(ByteBufVisitor); ok {
		return x.VisitByteBuf(b)
	}
	return v.VisitBytes(b)
}

// SeqAccess iterates over the elements of a sequence.
type SeqAccess interface {
	// NextElement runs seed on the next element. It returns false once the
	// sequence is exhausted, without running seed.
	NextElement(seed Seed) (bool, error)
	// SizeHint returns the number of remaining elements, if known.
	SizeHint() (int, bool)
}

// MapAccess iterates over the entries of a map. Every key must be followed
// by exactly one NextValue call.
type MapAccess interface {
	NextKey(seed Seed) (bool, error)
	NextValue(seed Seed) error
	SizeHint() (int, bool)
}

// EnumAccess gives access to the variant of an enum.
type EnumAccess interface {
	// Variant runs seed against a deserializer that only yields the
	// variant identifier, then returns access to the variant content.
	Variant(seed Seed) (VariantAccess, error)
}

type VariantAccess interface {
	UnitVariant() error
	NewtypeVariant(seed Seed) error
	TupleVariant(len int, v Visitor) error
	StructVariant(fields []string, v Visitor) error
}

// VariantShape is the form of the content of an enum variant.
type VariantShape int

const (
	NewtypeShape VariantShape = iota
	UnitShape
	TupleShape
	StructShape
)

// ShapedVariantAccess is implemented by variant accesses that know the shape
// of their variant. IgnoredAny needs it to skip variants that are not
// newtypes.
type ShapedVariantAccess interface {
	VariantAccess
	Shape() VariantShape
}

// DefaultVisitor rejects every input with an InvalidType error naming
// Expected.
type DefaultVisitor struct {
	Expected string
}

var _ Visitor = DefaultVisitor{}

func (v DefaultVisitor) Expecting() string { return v.Expected }

func (v DefaultVisitor) invalid(u Unexpected) error { return InvalidTypeError(u, v.Expected) }

func (v DefaultVisitor) VisitBool(x bool) error { return v.invalid(UnexpectedBool(x)) }

func (v DefaultVisitor) VisitI8(x int8) error   { return v.invalid(UnexpectedSigned(int64(x))) }
func (v DefaultVisitor) VisitI16(x int16) error { return v.invalid(UnexpectedSigned(int64(x))) }
func (v DefaultVisitor) VisitI32(x int32) error { return v.invalid(UnexpectedSigned(int64(x))) }
func (v DefaultVisitor) VisitI64(x int64) error { return v.invalid(UnexpectedSigned(x)) }
func (v DefaultVisitor) VisitI128(Int128) error { return v.invalid(UnexpectedOther("i128")) }

func (v DefaultVisitor) VisitU8(x uint8) error   { return v.invalid(UnexpectedUnsigned(uint64(x))) }
func (v DefaultVisitor) VisitU16(x uint16) error { return v.invalid(UnexpectedUnsigned(uint64(x))) }
func (v DefaultVisitor) VisitU32(x uint32) error { return v.invalid(UnexpectedUnsigned(uint64(x))) }
func (v DefaultVisitor) VisitU64(x uint64) error { return v.invalid(UnexpectedUnsigned(x)) }
func (v DefaultVisitor) VisitU128(Uint128) error { return v.invalid(UnexpectedOther("u128")) }

func (v DefaultVisitor) VisitF32(x float32) error { return v.invalid(UnexpectedFloat(float64(x))) }
func (v DefaultVisitor) VisitF64(x float64) error { return v.invalid(UnexpectedFloat(x)) }

func (v DefaultVisitor) VisitChar(x rune) error  { return v.invalid(UnexpectedChar(x)) }
func (v DefaultVisitor) VisitStr(x string) error { return v.invalid(UnexpectedStr(x)) }
func (v DefaultVisitor) VisitBytes([]byte) error { return v.invalid(UnexpectedBytes) }
func (v DefaultVisitor) VisitNone() error        { return v.invalid(UnexpectedOption) }

func (v DefaultVisitor) VisitSome(Deserializer) error {
	return v.invalid(UnexpectedOption)
}
func (v DefaultVisitor) VisitUnit() error { return v.invalid(UnexpectedUnit) }
func (v DefaultVisitor) VisitNewtypeStruct(Deserializer) error {
	return v.invalid(UnexpectedNewtypeStruct)
}

func (v DefaultVisitor) VisitSeq(SeqAccess) error   { return v.invalid(UnexpectedSeq) }
func (v DefaultVisitor) VisitMap(MapAccess) error   { return v.invalid(UnexpectedMap) }
func (v DefaultVisitor) VisitEnum(EnumAccess) error { return v.invalid(UnexpectedEnum) }
