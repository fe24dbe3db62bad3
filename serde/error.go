package serde

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrorKind classifies the errors raised by visitors and the generic
// dispatch while converting between Go values and a serializer or
// deserializer.
type ErrorKind int

const (
	Custom ErrorKind = iota
	InvalidType
	InvalidValue
	InvalidLength
	UnknownVariant
	UnknownField
	MissingField
	DuplicateField
)

func (k ErrorKind) String() string {
	switch k {
	case Custom:
		return "custom"
	case InvalidType:
		return "invalid type"
	case InvalidValue:
		return "invalid value"
	case InvalidLength:
		return "invalid length"
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

// Error is the framework-level error type. It is a comparable value so that
// tests can assert an exact error with == or errors.Is.
//
// Which fields are set depends on Kind:
//
//   - Custom: Msg
//   - InvalidType, InvalidValue: Unexpected, Expected
//   - InvalidLength: Len, Expected
//   - UnknownVariant, UnknownField: Name, Expected (the known names)
//   - MissingField, DuplicateField: Name
type Error struct {
	Kind       ErrorKind
	Msg        string
	Unexpected Unexpected
	Expected   string
	Len        int
	Name       string
}

func (e Error) Error() string {
	switch e.Kind {
	case Custom:
		return e.Msg
	case InvalidType:
		return fmt.Sprintf("invalid type: %s, expected %s", e.Unexpected, e.Expected)
	case InvalidValue:
		return fmt.Sprintf("invalid value: %s, expected %s", e.Unexpected, e.Expected)
	case InvalidLength:
		return fmt.Sprintf("invalid length %d, expected %s", e.Len, e.Expected)
	case UnknownVariant:
		return fmt.Sprintf("unknown variant `%s`, %s", e.Name, e.Expected)
	case UnknownField:
		return fmt.Sprintf("unknown field `%s`, %s", e.Name, e.Expected)
	case MissingField:
		return fmt.Sprintf("missing field `%s`", e.Name)
	case DuplicateField:
		return fmt.Sprintf("duplicate field `%s`", e.Name)
	default:
		return e.Kind.String()
	}
}

// Errorf returns a Custom error with a formatted message.
func Errorf(format string, args ...any) error {
	return Error{Kind: Custom, Msg: fmt.Sprintf(format, args...)}
}

func InvalidTypeError(unexp Unexpected, expected string) error {
	return Error{Kind: InvalidType, Unexpected: unexp, Expected: expected}
}

func InvalidValueError(unexp Unexpected, expected string) error {
	return Error{Kind: InvalidValue, Unexpected: unexp, Expected: expected}
}

func InvalidLengthError(n int, expected string) error {
	return Error{Kind: InvalidLength, Len: n, Expected: expected}
}

func UnknownVariantError(variant string, known []string) error {
	return Error{Kind: UnknownVariant, Name: variant, Expected: oneOf(known, "variants")}
}

func UnknownFieldError(field string, known []string) error {
	return Error{Kind: UnknownField, Name: field, Expected: oneOf(known, "fields")}
}

func MissingFieldError(field string) error {
	return Error{Kind: MissingField, Name: field}
}

func DuplicateFieldError(field string) error {
	return Error{Kind: DuplicateField, Name: field}
}

func oneOf(names []string, what string) string {
	switch len(names) {
	case 0:
		return "there are no " + what
	case 1:
		return "expected `" + names[0] + "`"
	case 2:
		return "expected `" + names[0] + "` or `" + names[1] + "`"
	}
	var b strings.Builder
	b.WriteString("expected one of ")
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("`" + n + "`")
	}
	return b.String()
}

// Unexpected describes the value a visitor did not expect, for use in
// InvalidType and InvalidValue errors.
type Unexpected string

func (u Unexpected) String() string { return string(u) }

const (
	UnexpectedBytes          Unexpected = "byte array"
	UnexpectedUnit           Unexpected = "unit value"
	UnexpectedOption         Unexpected = "Option value"
	UnexpectedNewtypeStruct  Unexpected = "newtype struct"
	UnexpectedSeq            Unexpected = "sequence"
	UnexpectedMap            Unexpected = "map"
	UnexpectedEnum           Unexpected = "enum"
	UnexpectedUnitVariant    Unexpected = "unit variant"
	UnexpectedNewtypeVariant Unexpected = "newtype variant"
	UnexpectedTupleVariant   Unexpected = "tuple variant"
	UnexpectedStructVariant  Unexpected = "struct variant"
)

func UnexpectedBool(v bool) Unexpected {
	return Unexpected("boolean `" + strconv.FormatBool(v) + "`")
}

func UnexpectedSigned(v int64) Unexpected {
	return Unexpected("integer `" + strconv.FormatInt(v, 10) + "`")
}

func UnexpectedUnsigned(v uint64) Unexpected {
	return Unexpected("integer `" + strconv.FormatUint(v, 10) + "`")
}

// UnexpectedFloat always renders a decimal point so that 1.0 does not read
// as an integer.
func UnexpectedFloat(v float64) Unexpected {
	var s string
	switch {
	case math.IsNaN(v):
		s = "NaN"
	case math.IsInf(v, 1):
		s = "inf"
	case math.IsInf(v, -1):
		s = "-inf"
	default:
		s = strconv.FormatFloat(v, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
	}
	return Unexpected("floating point `" + s + "`")
}

func UnexpectedChar(v rune) Unexpected {
	return Unexpected("character `" + string(v) + "`")
}

func UnexpectedStr(v string) Unexpected {
	return Unexpected("string " + strconv.Quote(v))
}

func UnexpectedOther(what string) Unexpected {
	return Unexpected(what)
}
