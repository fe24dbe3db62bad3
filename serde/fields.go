package serde

import (
	"reflect"
	"sync"

	"github.com/stealthrocket/serdeassert/internal/reflectext"
)

// Field binds a struct field name to its value.
//
// When serializing, Value holds the field value. When deserializing, Value
// is a pointer to the location the field is decoded into.
type Field struct {
	Name string
	// Value is the field value or a pointer to it, see above.
	Value any
	// OmitEmpty fields holding their zero value are skipped when
	// serializing, and may be absent when deserializing.
	OmitEmpty bool
}

func (f Field) empty() bool {
	switch x := f.Value.(type) {
	case nil:
		return true
	case messageField:
		return x.v.IsNil()
	}
	return reflect.ValueOf(f.Value).IsZero()
}

// optional reports whether the field may be absent from the input, leaving
// the destination untouched.
func (f Field) optional() bool {
	if f.OmitEmpty {
		return true
	}
	if _, ok := f.Value.(messageField); ok {
		return true
	}
	t := reflect.TypeOf(f.Value)
	if t == nil || t.Kind() != reflect.Pointer {
		return false
	}
	switch t.Elem().Kind() {
	case reflect.Pointer, reflect.Interface:
		return true
	}
	return false
}

// SerializeFields serializes fields as a struct named name. Fields with
// OmitEmpty set and a zero value are reported through SkipField and are not
// counted in the struct length, unless s writes structs positionally.
func SerializeFields(s Serializer, name string, fields []Field) error {
	keepAll := positional(s)
	skip := func(f Field) bool {
		return !keepAll && f.OmitEmpty && f.empty()
	}
	n := 0
	for _, f := range fields {
		if !skip(f) {
			n++
		}
	}
	st, err := s.SerializeStruct(name, n)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if skip(f) {
			err = st.SkipField(f.Name)
		} else {
			err = st.SerializeField(f.Name, f.Value)
		}
		if err != nil {
			return err
		}
	}
	return st.End()
}

// DeserializeFields deserializes a struct named name into the field
// pointers. The input may frame the struct as a map of field names to values
// or as a sequence of values in field order.
//
// Unknown fields are skipped with DeserializeIgnoredAny. A field missing from
// the input is an error unless it is optional (OmitEmpty, or a pointer or
// interface destination).
func DeserializeFields(d Deserializer, name string, fields []Field) error {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return d.DeserializeStruct(name, names, &structVisitor{
		DefaultVisitor: DefaultVisitor{Expected: "struct " + name},
		fields:         fields,
		names:          names,
	})
}

type structVisitor struct {
	DefaultVisitor
	fields []Field
	names  []string
}

func (v *structVisitor) lookup(id identifier) int {
	if id.isIndex {
		if id.index < uint64(len(v.fields)) {
			return int(id.index)
		}
		return -1
	}
	for i, n := range v.names {
		if n == id.name {
			return i
		}
	}
	return -1
}

func (v *structVisitor) VisitMap(m MapAccess) error {
	seen := make([]bool, len(v.fields))
	for {
		var id identifier
		ok, err := m.NextKey(id.seed())
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		i := v.lookup(id)
		if i < 0 {
			if err := m.NextValue(Ignore); err != nil {
				return err
			}
			continue
		}
		if seen[i] {
			return DuplicateFieldError(v.fields[i].Name)
		}
		seen[i] = true
		if err := m.NextValue(Into(v.fields[i].Value)); err != nil {
			return err
		}
	}
	for i, f := range v.fields {
		if !seen[i] && !f.optional() {
			return MissingFieldError(f.Name)
		}
	}
	return nil
}

// VisitSeq reads fields positionally. The sequence may stop early when all
// the remaining fields are optional.
func (v *structVisitor) VisitSeq(s SeqAccess) error {
	for i, f := range v.fields {
		ok, err := s.NextElement(Into(f.Value))
		if err != nil {
			return err
		}
		if !ok {
			for _, rest := range v.fields[i:] {
				if !rest.optional() {
					return InvalidLengthError(i, v.Expected)
				}
			}
			return nil
		}
	}
	return nil
}

// identifier is a struct field or enum variant, by name or by index.
type identifier struct {
	name    string
	index   uint64
	isIndex bool
}

func (id *identifier) seed() Seed {
	return func(d Deserializer) error {
		return d.DeserializeIdentifier(identifierVisitor{DefaultVisitor{"identifier"}, id})
	}
}

type identifierVisitor struct {
	DefaultVisitor
	id *identifier
}

func (v identifierVisitor) VisitStr(s string) error {
	v.id.name = s
	return nil
}

func (v identifierVisitor) VisitBytes(b []byte) error {
	v.id.name = string(b)
	return nil
}

func (v identifierVisitor) VisitU8(x uint8) error   { return v.VisitU64(uint64(x)) }
func (v identifierVisitor) VisitU16(x uint16) error { return v.VisitU64(uint64(x)) }
func (v identifierVisitor) VisitU32(x uint32) error { return v.VisitU64(uint64(x)) }
func (v identifierVisitor) VisitU64(x uint64) error {
	v.id.index, v.id.isIndex = x, true
	return nil
}

// Ignore is a Seed that skips one value of any shape.
var Ignore Seed = func(d Deserializer) error {
	return d.DeserializeIgnoredAny(IgnoredAny{})
}

// IgnoredAny accepts and discards any input.
type IgnoredAny struct{}

var _ Visitor = IgnoredAny{}

func (IgnoredAny) Expecting() string { return "anything at all" }

func (IgnoredAny) VisitBool(bool) error { return nil }

func (IgnoredAny) VisitI8(int8) error     { return nil }
func (IgnoredAny) VisitI16(int16) error   { return nil }
func (IgnoredAny) VisitI32(int32) error   { return nil }
func (IgnoredAny) VisitI64(int64) error   { return nil }
func (IgnoredAny) VisitI128(Int128) error { return nil }

func (IgnoredAny) VisitU8(uint8) error     { return nil }
func (IgnoredAny) VisitU16(uint16) error   { return nil }
func (IgnoredAny) VisitU32(uint32) error   { return nil }
func (IgnoredAny) VisitU64(uint64) error   { return nil }
func (IgnoredAny) VisitU128(Uint128) error { return nil }

func (IgnoredAny) VisitF32(float32) error { return nil }
func (IgnoredAny) VisitF64(float64) error { return nil }

func (IgnoredAny) VisitChar(rune) error    { return nil }
func (IgnoredAny) VisitStr(string) error   { return nil }
func (IgnoredAny) VisitBytes([]byte) error { return nil }
func (IgnoredAny) VisitNone() error        { return nil }
func (IgnoredAny) VisitUnit() error        { return nil }

func (IgnoredAny) VisitSome(d Deserializer) error          { return Ignore(d) }
func (IgnoredAny) VisitNewtypeStruct(d Deserializer) error { return Ignore(d) }

func (IgnoredAny) VisitSeq(s SeqAccess) error {
	for {
		ok, err := s.NextElement(Ignore)
		if err != nil || !ok {
			return err
		}
	}
}

func (IgnoredAny) VisitMap(m MapAccess) error {
	for {
		ok, err := m.NextKey(Ignore)
		if err != nil || !ok {
			return err
		}
		if err := m.NextValue(Ignore); err != nil {
			return err
		}
	}
}

func (IgnoredAny) VisitEnum(e EnumAccess) error {
	va, err := e.Variant(Ignore)
	if err != nil {
		return err
	}
	shape := NewtypeShape
	if sva, ok := va.(ShapedVariantAccess); ok {
		shape = sva.Shape()
	}
	switch shape {
	case UnitShape:
		return va.UnitVariant()
	case TupleShape:
		return va.TupleVariant(UnknownLen, IgnoredAny{})
	case StructShape:
		return va.StructVariant(nil, IgnoredAny{})
	default:
		return va.NewtypeVariant(Ignore)
	}
}

// fieldCache memoizes the serialized fields of struct types.
var fieldCache sync.Map // map[reflect.Type][]reflectext.StructField

func structFieldsOf(t reflect.Type) []reflectext.StructField {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]reflectext.StructField)
	}
	f, _ := fieldCache.LoadOrStore(t, reflectext.StructFields(t))
	return f.([]reflectext.StructField)
}

// valueFields returns the fields of struct v. When addr is true, Value holds
// pointers to the fields, which requires v to be addressable.
//
// Message pointer fields are wrapped so that they read and write as options,
// like message fields nested in other messages.
func valueFields(v reflect.Value, addr bool) []Field {
	sf := structFieldsOf(v.Type())
	fields := make([]Field, len(sf))
	for i, f := range sf {
		fv := v.Field(f.Index)
		var value any
		switch {
		case f.Type.Kind() == reflect.Pointer && f.Type.Implements(protoMessageType):
			value = messageField{fv}
		case addr:
			value = fv.Addr().Interface()
		default:
			value = fv.Interface()
		}
		fields[i] = Field{Name: f.Name, Value: value, OmitEmpty: f.OmitEmpty}
	}
	return fields
}
