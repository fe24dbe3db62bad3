package serde

import (
	"reflect"
	"strconv"
	"unicode/utf8"

	"github.com/stealthrocket/serdeassert/internal/reflectext"
	"google.golang.org/protobuf/proto"
)

var (
	serializableType = reflect.TypeFor[Serializable]()
	protoMessageType = reflect.TypeFor[proto.Message]()
)

// Serialize walks v and reports it to s.
//
// Values implementing Serializable (on a value or pointer receiver) drive s
// themselves and protobuf messages are serialized as structs. Everything
// else is mapped by kind:
//
//	bool, ints, floats  matching primitive (int as i64, uint as u64)
//	complex             2-tuple of floats
//	string              str
//	[]byte              bytes
//	slice               seq
//	array               tuple
//	map                 map
//	struct{}            unit, or unit struct when named
//	struct              struct of its exported fields
//	pointer, nil        none or some
//	interface           the dynamic value
func Serialize(s Serializer, v any) error {
	switch x := v.(type) {
	case nil:
		return s.SerializeNone()
	case Serializable:
		return x.Serialize(s)
	case proto.Message:
		m := x.ProtoReflect()
		if !m.IsValid() {
			return s.SerializeNone()
		}
		return serializeMessage(s, m)
	}
	return serializeValue(s, reflect.ValueOf(v))
}

func serializeValue(s Serializer, v reflect.Value) error {
	t := v.Type()

	if reflect.PointerTo(t).Implements(serializableType) {
		p := reflect.New(t)
		p.Elem().Set(v)
		return p.Interface().(Serializable).Serialize(s)
	}

	switch t.Kind() {
	case reflect.Bool:
		return s.SerializeBool(v.Bool())
	case reflect.Int8:
		return s.SerializeI8(int8(v.Int()))
	case reflect.Int16:
		return s.SerializeI16(int16(v.Int()))
	case reflect.Int32:
		return s.SerializeI32(int32(v.Int()))
	case reflect.Int, reflect.Int64:
		return s.SerializeI64(v.Int())
	case reflect.Uint8:
		return s.SerializeU8(uint8(v.Uint()))
	case reflect.Uint16:
		return s.SerializeU16(uint16(v.Uint()))
	case reflect.Uint32:
		return s.SerializeU32(uint32(v.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return s.SerializeU64(v.Uint())
	case reflect.Float32:
		return s.SerializeF32(float32(v.Float()))
	case reflect.Float64:
		return s.SerializeF64(v.Float())
	case reflect.Complex64:
		c := v.Complex()
		return serializeTuple(s, float32(real(c)), float32(imag(c)))
	case reflect.Complex128:
		c := v.Complex()
		return serializeTuple(s, real(c), imag(c))
	case reflect.String:
		return s.SerializeStr(v.String())
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return s.SerializeBytes(v.Bytes())
		}
		return serializeSeq(s, v)
	case reflect.Array:
		return serializeArray(s, v)
	case reflect.Map:
		return serializeMap(s, v)
	case reflect.Struct:
		if t.NumField() == 0 {
			if reflectext.Named(t) {
				return s.SerializeUnitStruct(t.Name())
			}
			return s.SerializeUnit()
		}
		return SerializeFields(s, t.Name(), valueFields(v, false))
	case reflect.Pointer:
		if v.IsNil() {
			return s.SerializeNone()
		}
		return s.SerializeSome(v.Elem().Interface())
	case reflect.Interface:
		if v.IsNil() {
			return s.SerializeNone()
		}
		return Serialize(s, v.Elem().Interface())
	default:
		return Errorf("cannot serialize values of type %s", t)
	}
}

func serializeTuple(s Serializer, elems ...any) error {
	tup, err := s.SerializeTuple(len(elems))
	if err != nil {
		return err
	}
	for _, e := range elems {
		if err := tup.SerializeElement(e); err != nil {
			return err
		}
	}
	return tup.End()
}

func serializeSeq(s Serializer, v reflect.Value) error {
	n := v.Len()
	seq, err := s.SerializeSeq(n)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := seq.SerializeElement(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return seq.End()
}

func serializeArray(s Serializer, v reflect.Value) error {
	n := v.Len()
	tup, err := s.SerializeTuple(n)
	if err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := tup.SerializeElement(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return tup.End()
}

func serializeMap(s Serializer, v reflect.Value) error {
	m, err := s.SerializeMap(v.Len())
	if err != nil {
		return err
	}
	for it := v.MapRange(); it.Next(); {
		if err := m.SerializeKey(it.Key().Interface()); err != nil {
			return err
		}
		if err := m.SerializeValue(it.Value().Interface()); err != nil {
			return err
		}
	}
	return m.End()
}

// Deserialize reads one value from d into the value ptr points to.
//
// The shape requested from d follows the mapping documented on Serialize.
// Pointers to interface{} ask for DeserializeAny and receive bool, integer,
// float, string, []byte, []any, map[any]any or nil values.
func Deserialize(d Deserializer, ptr any) error {
	switch x := ptr.(type) {
	case Deserializable:
		return x.Deserialize(d)
	case proto.Message:
		return deserializeMessage(d, x.ProtoReflect())
	}
	v := reflect.ValueOf(ptr)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return Errorf("cannot deserialize into non-pointer %T", ptr)
	}
	return deserializeValue(d, v.Elem())
}

func deserializeValue(d Deserializer, v reflect.Value) error {
	t := v.Type()
	vis := &valueVisitor{v: v}

	switch t.Kind() {
	case reflect.Bool:
		return d.DeserializeBool(vis)
	case reflect.Int8:
		return d.DeserializeI8(vis)
	case reflect.Int16:
		return d.DeserializeI16(vis)
	case reflect.Int32:
		return d.DeserializeI32(vis)
	case reflect.Int, reflect.Int64:
		return d.DeserializeI64(vis)
	case reflect.Uint8:
		return d.DeserializeU8(vis)
	case reflect.Uint16:
		return d.DeserializeU16(vis)
	case reflect.Uint32:
		return d.DeserializeU32(vis)
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return d.DeserializeU64(vis)
	case reflect.Float32:
		return d.DeserializeF32(vis)
	case reflect.Float64:
		return d.DeserializeF64(vis)
	case reflect.Complex64, reflect.Complex128:
		return d.DeserializeTuple(2, vis)
	case reflect.String:
		return d.DeserializeStr(vis)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return d.DeserializeBytes(vis)
		}
		return d.DeserializeSeq(vis)
	case reflect.Array:
		return d.DeserializeTuple(t.Len(), vis)
	case reflect.Map:
		return d.DeserializeMap(vis)
	case reflect.Struct:
		if t.NumField() == 0 {
			if reflectext.Named(t) {
				return d.DeserializeUnitStruct(t.Name(), vis)
			}
			return d.DeserializeUnit(vis)
		}
		return DeserializeFields(d, t.Name(), valueFields(v, true))
	case reflect.Pointer:
		if t.Implements(protoMessageType) {
			if v.IsNil() {
				v.Set(reflect.New(t.Elem()))
			}
			return deserializeMessage(d, v.Interface().(proto.Message).ProtoReflect())
		}
		return d.DeserializeOption(vis)
	case reflect.Interface:
		if t.NumMethod() != 0 {
			return Errorf("cannot deserialize into non-empty interface %s", t)
		}
		return d.DeserializeAny(vis)
	default:
		return Errorf("cannot deserialize values of type %s", t)
	}
}

// valueVisitor stores what it visits into v, which must be settable.
type valueVisitor struct {
	v reflect.Value
}

var _ Visitor = (*valueVisitor)(nil)

func (vis *valueVisitor) Expecting() string {
	t := vis.v.Type()
	switch t.Kind() {
	case reflect.Bool:
		return "a boolean"
	case reflect.Int8:
		return "i8"
	case reflect.Int16:
		return "i16"
	case reflect.Int32:
		return "i32"
	case reflect.Int, reflect.Int64:
		return "i64"
	case reflect.Uint8:
		return "u8"
	case reflect.Uint16:
		return "u16"
	case reflect.Uint32:
		return "u32"
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return "u64"
	case reflect.Float32:
		return "f32"
	case reflect.Float64:
		return "f64"
	case reflect.Complex64, reflect.Complex128:
		return "a tuple of size 2"
	case reflect.String:
		return "a string"
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "a byte array"
		}
		return "a sequence"
	case reflect.Array:
		return "an array of length " + strconv.Itoa(t.Len())
	case reflect.Map:
		return "a map"
	case reflect.Struct:
		if reflectext.Named(t) {
			return "unit struct " + t.Name()
		}
		return "unit"
	case reflect.Pointer:
		return "option"
	case reflect.Interface:
		return "any value"
	default:
		return t.String()
	}
}

func (vis *valueVisitor) invalidType(u Unexpected) error {
	return InvalidTypeError(u, vis.Expecting())
}

func (vis *valueVisitor) invalidValue(u Unexpected) error {
	return InvalidValueError(u, vis.Expecting())
}

// setAny stores x when the target is an empty interface.
func (vis *valueVisitor) setAny(x any) bool {
	if vis.v.Kind() != reflect.Interface {
		return false
	}
	if x == nil {
		vis.v.SetZero()
	} else {
		vis.v.Set(reflect.ValueOf(x))
	}
	return true
}

func (vis *valueVisitor) VisitBool(x bool) error {
	if vis.setAny(x) {
		return nil
	}
	if vis.v.Kind() != reflect.Bool {
		return vis.invalidType(UnexpectedBool(x))
	}
	vis.v.SetBool(x)
	return nil
}

func (vis *valueVisitor) VisitI8(x int8) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setInt(int64(x))
}

func (vis *valueVisitor) VisitI16(x int16) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setInt(int64(x))
}

func (vis *valueVisitor) VisitI32(x int32) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setInt(int64(x))
}

func (vis *valueVisitor) VisitI64(x int64) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setInt(x)
}

func (vis *valueVisitor) VisitI128(x Int128) error {
	if vis.setAny(x) {
		return nil
	}
	i, ok := x.Int64()
	if !ok {
		return vis.invalidValue(UnexpectedOther("integer `" + x.String() + "`"))
	}
	return vis.setInt(i)
}

func (vis *valueVisitor) setInt(x int64) error {
	v := vis.v
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.OverflowInt(x) {
			return vis.invalidValue(UnexpectedSigned(x))
		}
		v.SetInt(x)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if x < 0 || v.OverflowUint(uint64(x)) {
			return vis.invalidValue(UnexpectedSigned(x))
		}
		v.SetUint(uint64(x))
	case reflect.Float32, reflect.Float64:
		v.SetFloat(float64(x))
	default:
		return vis.invalidType(UnexpectedSigned(x))
	}
	return nil
}

func (vis *valueVisitor) VisitU8(x uint8) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setUint(uint64(x))
}

func (vis *valueVisitor) VisitU16(x uint16) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setUint(uint64(x))
}

func (vis *valueVisitor) VisitU32(x uint32) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setUint(uint64(x))
}

func (vis *valueVisitor) VisitU64(x uint64) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setUint(x)
}

func (vis *valueVisitor) VisitU128(x Uint128) error {
	if vis.setAny(x) {
		return nil
	}
	u, ok := x.Uint64()
	if !ok {
		return vis.invalidValue(UnexpectedOther("integer `" + x.String() + "`"))
	}
	return vis.setUint(u)
}

func (vis *valueVisitor) setUint(x uint64) error {
	v := vis.v
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if int64(x) < 0 || v.OverflowInt(int64(x)) {
			return vis.invalidValue(UnexpectedUnsigned(x))
		}
		v.SetInt(int64(x))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.OverflowUint(x) {
			return vis.invalidValue(UnexpectedUnsigned(x))
		}
		v.SetUint(x)
	case reflect.Float32, reflect.Float64:
		v.SetFloat(float64(x))
	default:
		return vis.invalidType(UnexpectedUnsigned(x))
	}
	return nil
}

func (vis *valueVisitor) VisitF32(x float32) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setFloat(float64(x))
}

func (vis *valueVisitor) VisitF64(x float64) error {
	if vis.setAny(x) {
		return nil
	}
	return vis.setFloat(x)
}

func (vis *valueVisitor) setFloat(x float64) error {
	switch vis.v.Kind() {
	case reflect.Float32, reflect.Float64:
		vis.v.SetFloat(x)
		return nil
	}
	return vis.invalidType(UnexpectedFloat(x))
}

func (vis *valueVisitor) VisitChar(x rune) error {
	if vis.setAny(x) {
		return nil
	}
	switch vis.v.Kind() {
	case reflect.Int32:
		vis.v.SetInt(int64(x))
	case reflect.String:
		vis.v.SetString(string(x))
	default:
		return vis.invalidType(UnexpectedChar(x))
	}
	return nil
}

func (vis *valueVisitor) VisitStr(x string) error {
	if vis.setAny(x) {
		return nil
	}
	switch {
	case vis.v.Kind() == reflect.String:
		vis.v.SetString(x)
	case vis.isBytes():
		vis.v.SetBytes([]byte(x))
	default:
		return vis.invalidType(UnexpectedStr(x))
	}
	return nil
}

func (vis *valueVisitor) VisitBorrowedStr(x string) error { return vis.VisitStr(x) }

func (vis *valueVisitor) VisitBytes(x []byte) error {
	if vis.setAny(x) {
		return nil
	}
	switch {
	case vis.isBytes():
		vis.v.SetBytes(x)
	case vis.v.Kind() == reflect.String:
		if !utf8.Valid(x) {
			return vis.invalidValue(UnexpectedBytes)
		}
		vis.v.SetString(string(x))
	default:
		return vis.invalidType(UnexpectedBytes)
	}
	return nil
}

func (vis *valueVisitor) VisitBorrowedBytes(x []byte) error { return vis.VisitBytes(x) }

func (vis *valueVisitor) isBytes() bool {
	return vis.v.Kind() == reflect.Slice && vis.v.Type().Elem().Kind() == reflect.Uint8
}

func (vis *valueVisitor) VisitNone() error {
	switch vis.v.Kind() {
	case reflect.Pointer, reflect.Interface:
		vis.v.SetZero()
		return nil
	}
	return vis.invalidType(UnexpectedOption)
}

func (vis *valueVisitor) VisitSome(d Deserializer) error {
	switch vis.v.Kind() {
	case reflect.Pointer:
		p := reflect.New(vis.v.Type().Elem())
		if err := Deserialize(d, p.Interface()); err != nil {
			return err
		}
		vis.v.Set(p)
		return nil
	case reflect.Interface:
		return deserializeValue(d, vis.v)
	}
	return vis.invalidType(UnexpectedOption)
}

func (vis *valueVisitor) VisitUnit() error {
	switch vis.v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Struct:
		vis.v.SetZero()
		return nil
	}
	return vis.invalidType(UnexpectedUnit)
}

func (vis *valueVisitor) VisitNewtypeStruct(d Deserializer) error {
	return deserializeValue(d, vis.v)
}

func (vis *valueVisitor) VisitSeq(s SeqAccess) error {
	v := vis.v
	switch v.Kind() {
	case reflect.Slice:
		return vis.visitSlice(s)
	case reflect.Array:
		for i := 0; i < v.Len(); i++ {
			ok, err := s.NextElement(Into(v.Index(i).Addr().Interface()))
			if err != nil {
				return err
			}
			if !ok {
				return InvalidLengthError(i, vis.Expecting())
			}
		}
		return nil
	case reflect.Complex64, reflect.Complex128:
		var parts [2]float64
		for i := range parts {
			ok, err := s.NextElement(Into(&parts[i]))
			if err != nil {
				return err
			}
			if !ok {
				return InvalidLengthError(i, vis.Expecting())
			}
		}
		v.SetComplex(complex(parts[0], parts[1]))
		return nil
	case reflect.Interface:
		var elems []any
		if err := vis.collect(s, &elems); err != nil {
			return err
		}
		v.Set(reflect.ValueOf(elems))
		return nil
	}
	return vis.invalidType(UnexpectedSeq)
}

func (vis *valueVisitor) visitSlice(s SeqAccess) error {
	t := vis.v.Type()
	n, _ := s.SizeHint()
	elems := reflect.MakeSlice(t, 0, cautiousCap(n))
	for {
		e := reflect.New(t.Elem())
		ok, err := s.NextElement(Into(e.Interface()))
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		elems = reflect.Append(elems, e.Elem())
	}
	vis.v.Set(elems)
	return nil
}

func (vis *valueVisitor) collect(s SeqAccess, elems *[]any) error {
	for {
		var e any
		ok, err := s.NextElement(Into(&e))
		if err != nil || !ok {
			return err
		}
		*elems = append(*elems, e)
	}
}

func (vis *valueVisitor) VisitMap(m MapAccess) error {
	v := vis.v
	switch v.Kind() {
	case reflect.Map:
		t := v.Type()
		n, _ := m.SizeHint()
		out := reflect.MakeMapWithSize(t, cautiousCap(n))
		for {
			k := reflect.New(t.Key())
			ok, err := m.NextKey(Into(k.Interface()))
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			e := reflect.New(t.Elem())
			if err := m.NextValue(Into(e.Interface())); err != nil {
				return err
			}
			out.SetMapIndex(k.Elem(), e.Elem())
		}
		v.Set(out)
		return nil
	case reflect.Interface:
		out := map[any]any{}
		for {
			var k, e any
			ok, err := m.NextKey(Into(&k))
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if k != nil && !reflect.TypeOf(k).Comparable() {
				return vis.invalidValue(UnexpectedMap)
			}
			if err := m.NextValue(Into(&e)); err != nil {
				return err
			}
			out[k] = e
		}
		v.Set(reflect.ValueOf(out))
		return nil
	}
	return vis.invalidType(UnexpectedMap)
}

func (vis *valueVisitor) VisitEnum(EnumAccess) error {
	return vis.invalidType(UnexpectedEnum)
}

// cautiousCap bounds preallocation driven by an untrusted size hint.
func cautiousCap(hint int) int {
	const limit = 4096
	if hint < 0 {
		return 0
	}
	return min(hint, limit)
}
