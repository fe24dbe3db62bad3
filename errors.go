package serdeassert

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/stealthrocket/serdeassert/serde"
)

// SerializeError is returned by a Serializer when the value being serialized
// failed. The Serializer itself never fails.
type SerializeError struct {
	Message string
}

func (e SerializeError) Error() string { return e.Message }

// CustomSerializeError returns a SerializeError carrying msg.
func CustomSerializeError(msg string) error {
	return SerializeError{Message: msg}
}

func forwardSerializeError(err error) error {
	if err == nil {
		return nil
	}
	var e SerializeError
	if errors.As(err, &e) {
		return e
	}
	return SerializeError{Message: err.Error()}
}

// ErrorKind classifies deserialization errors.
type ErrorKind int

const (
	// Custom errors carry a message raised by the value being deserialized.
	Custom ErrorKind = iota
	// EndOfTokens is returned when a token is needed and none are left.
	EndOfTokens
	// InvalidType is returned when the next token has a different shape than
	// requested.
	InvalidType
	InvalidValue
	InvalidLength
	// NotSelfDescribing is returned by DeserializeAny and
	// DeserializeIgnoredAny unless the SelfDescribing option is set.
	NotSelfDescribing
	ExpectedSeqEnd
	ExpectedTupleEnd
	ExpectedTupleStructEnd
	ExpectedTupleVariantEnd
	ExpectedMapEnd
	ExpectedStructEnd
	ExpectedStructVariantEnd
	// UnsupportedEnumDeserializerMethod is returned when an enum variant
	// identifier is requested as something other than a string or an
	// integer.
	UnsupportedEnumDeserializerMethod
	UnknownVariant
	UnknownField
	MissingField
	DuplicateField
)

func (k ErrorKind) String() string {
	switch k {
	case Custom:
		return "custom"
	case EndOfTokens:
		return "end of tokens"
	case InvalidType:
		return "invalid type"
	case InvalidValue:
		return "invalid value"
	case InvalidLength:
		return "invalid length"
	case NotSelfDescribing:
		return "not self-describing"
	case ExpectedSeqEnd:
		return "expected seq end"
	case ExpectedTupleEnd:
		return "expected tuple end"
	case ExpectedTupleStructEnd:
		return "expected tuple struct end"
	case ExpectedTupleVariantEnd:
		return "expected tuple variant end"
	case ExpectedMapEnd:
		return "expected map end"
	case ExpectedStructEnd:
		return "expected struct end"
	case ExpectedStructVariantEnd:
		return "expected struct variant end"
	case UnsupportedEnumDeserializerMethod:
		return "unsupported enum deserializer method"
	case UnknownVariant:
		return "unknown variant"
	case UnknownField:
		return "unknown field"
	case MissingField:
		return "missing field"
	case DuplicateField:
		return "duplicate field"
	default:
		return "ErrorKind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Error is returned by a Deserializer. Errors are comparable values, so a
// test can check for an exact error with require.Equal or errors.Is.
//
// Which fields are set depends on Kind:
//
//   - Custom: Message
//   - InvalidType, InvalidValue: Found, Expected
//   - InvalidLength: Len, Expected
//   - UnknownVariant, UnknownField: Name, Expected
//   - MissingField, DuplicateField: Name
type Error struct {
	Kind     ErrorKind
	Message  string
	Found    string
	Expected string
	Len      int
	Name     string
}

var (
	ErrEndOfTokens                       = Error{Kind: EndOfTokens}
	ErrNotSelfDescribing                 = Error{Kind: NotSelfDescribing}
	ErrUnsupportedEnumDeserializerMethod = Error{Kind: UnsupportedEnumDeserializerMethod}
	ErrExpectedSeqEnd                    = Error{Kind: ExpectedSeqEnd}
	ErrExpectedTupleEnd                  = Error{Kind: ExpectedTupleEnd}
	ErrExpectedTupleStructEnd            = Error{Kind: ExpectedTupleStructEnd}
	ErrExpectedTupleVariantEnd           = Error{Kind: ExpectedTupleVariantEnd}
	ErrExpectedMapEnd                    = Error{Kind: ExpectedMapEnd}
	ErrExpectedStructEnd                 = Error{Kind: ExpectedStructEnd}
	ErrExpectedStructVariantEnd          = Error{Kind: ExpectedStructVariantEnd}
)

func (e Error) Error() string {
	switch e.Kind {
	case Custom:
		return e.Message
	case EndOfTokens:
		return "end of tokens"
	case NotSelfDescribing:
		return "attempted to deserialize as self-describing when deserializer is not set as self-describing"
	case UnsupportedEnumDeserializerMethod:
		return "use of unsupported enum deserializer method"
	case ExpectedSeqEnd, ExpectedTupleEnd, ExpectedTupleStructEnd, ExpectedTupleVariantEnd,
		ExpectedMapEnd, ExpectedStructEnd, ExpectedStructVariantEnd:
		return "expected token " + endToken(e.Kind).String()
	case InvalidType:
		return fmt.Sprintf("invalid type: expected %s, found %s", e.Expected, e.Found)
	case InvalidValue:
		return fmt.Sprintf("invalid value: expected %s, found %s", e.Expected, e.Found)
	case InvalidLength:
		return fmt.Sprintf("invalid length %d, expected %s", e.Len, e.Expected)
	case UnknownVariant:
		return fmt.Sprintf("unknown variant %s, %s", e.Name, e.Expected)
	case UnknownField:
		return fmt.Sprintf("unknown field %s, %s", e.Name, e.Expected)
	case MissingField:
		return "missing field " + e.Name
	case DuplicateField:
		return "duplicate field " + e.Name
	default:
		return e.Kind.String()
	}
}

func endToken(k ErrorKind) Token {
	switch k {
	case ExpectedSeqEnd:
		return SeqEnd
	case ExpectedTupleEnd:
		return TupleEnd
	case ExpectedTupleStructEnd:
		return TupleStructEnd
	case ExpectedTupleVariantEnd:
		return TupleVariantEnd
	case ExpectedMapEnd:
		return MapEnd
	case ExpectedStructEnd:
		return StructEnd
	default:
		return StructVariantEnd
	}
}

// expectedEnd returns the error reported when a compound closed by end is
// not terminated.
func expectedEnd(end Token) error {
	switch end.kind {
	case SeqEndKind:
		return ErrExpectedSeqEnd
	case TupleEndKind:
		return ErrExpectedTupleEnd
	case TupleStructEndKind:
		return ErrExpectedTupleStructEnd
	case TupleVariantEndKind:
		return ErrExpectedTupleVariantEnd
	case MapEndKind:
		return ErrExpectedMapEnd
	case StructEndKind:
		return ErrExpectedStructEnd
	default:
		return ErrExpectedStructVariantEnd
	}
}

func invalidType(t Token, v serde.Visitor) error {
	return Error{Kind: InvalidType, Found: t.unexpected().String(), Expected: v.Expecting()}
}

func invalidValue(t Token, v serde.Visitor) error {
	return Error{Kind: InvalidValue, Found: t.unexpected().String(), Expected: v.Expecting()}
}

func invalidLength(n int, v serde.Visitor) error {
	return Error{Kind: InvalidLength, Len: n, Expected: v.Expecting()}
}

// forward converts errors raised by visitors and values into an Error.
func forward(err error) error {
	if err == nil {
		return nil
	}
	var e Error
	if errors.As(err, &e) {
		return e
	}
	var se serde.Error
	if !errors.As(err, &se) {
		return Error{Kind: Custom, Message: err.Error()}
	}
	switch se.Kind {
	case serde.InvalidType:
		return Error{Kind: InvalidType, Found: se.Unexpected.String(), Expected: se.Expected}
	case serde.InvalidValue:
		return Error{Kind: InvalidValue, Found: se.Unexpected.String(), Expected: se.Expected}
	case serde.InvalidLength:
		return Error{Kind: InvalidLength, Len: se.Len, Expected: se.Expected}
	case serde.UnknownVariant:
		return Error{Kind: UnknownVariant, Name: se.Name, Expected: se.Expected}
	case serde.UnknownField:
		return Error{Kind: UnknownField, Name: se.Name, Expected: se.Expected}
	case serde.MissingField:
		return Error{Kind: MissingField, Name: se.Name}
	case serde.DuplicateField:
		return Error{Kind: DuplicateField, Name: se.Name}
	default:
		return Error{Kind: Custom, Message: se.Error()}
	}
}
