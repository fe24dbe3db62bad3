package serde

import (
	"reflect"
	"strconv"

	"google.golang.org/protobuf/reflect/protoreflect"
)

// Protobuf messages are serialized as structs named after the message full
// name, with one field per declared field in declaration order. Fields with
// presence (messages, optional scalars, oneof members) are options. Members
// of a oneof that are not set are skipped, or written as None when structs
// are positional. Enums are unit variants of the enum full name.

func serializeMessage(s Serializer, m protoreflect.Message) error {
	md := m.Descriptor()
	fds := md.Fields()
	keepAll := positional(s)
	skip := func(fd protoreflect.FieldDescriptor) bool {
		return !keepAll && skipField(m, fd)
	}

	n := 0
	for i := 0; i < fds.Len(); i++ {
		if !skip(fds.Get(i)) {
			n++
		}
	}

	st, err := s.SerializeStruct(string(md.FullName()), n)
	if err != nil {
		return err
	}
	for i := 0; i < fds.Len(); i++ {
		fd := fds.Get(i)
		if skip(fd) {
			err = st.SkipField(string(fd.Name()))
		} else {
			err = st.SerializeField(string(fd.Name()), protoField{m, fd})
		}
		if err != nil {
			return err
		}
	}
	return st.End()
}

func skipField(m protoreflect.Message, fd protoreflect.FieldDescriptor) bool {
	od := fd.ContainingOneof()
	return od != nil && !od.IsSynthetic() && !m.Has(fd)
}

// protoField is a field of a message, serialized with its cardinality.
type protoField struct {
	m  protoreflect.Message
	fd protoreflect.FieldDescriptor
}

func (f protoField) Serialize(s Serializer) error {
	fd := f.fd
	switch {
	case fd.IsList():
		list := f.m.Get(fd).List()
		seq, err := s.SerializeSeq(list.Len())
		if err != nil {
			return err
		}
		for i := 0; i < list.Len(); i++ {
			if err := seq.SerializeElement(protoScalar{fd, list.Get(i)}); err != nil {
				return err
			}
		}
		return seq.End()

	case fd.IsMap():
		mp := f.m.Get(fd).Map()
		out, err := s.SerializeMap(mp.Len())
		if err != nil {
			return err
		}
		mp.Range(func(k protoreflect.MapKey, v protoreflect.Value) bool {
			if err = out.SerializeKey(protoScalar{fd.MapKey(), k.Value()}); err != nil {
				return false
			}
			err = out.SerializeValue(protoScalar{fd.MapValue(), v})
			return err == nil
		})
		if err != nil {
			return err
		}
		return out.End()

	case fd.HasPresence():
		if !f.m.Has(fd) {
			return s.SerializeNone()
		}
		return s.SerializeSome(protoScalar{fd, f.m.Get(fd)})

	default:
		return protoScalar{fd, f.m.Get(fd)}.Serialize(s)
	}
}

// protoScalar is a single value of a field, or an element of a repeated or
// map field.
type protoScalar struct {
	fd protoreflect.FieldDescriptor
	v  protoreflect.Value
}

func (p protoScalar) Serialize(s Serializer) error {
	v := p.v
	switch p.fd.Kind() {
	case protoreflect.BoolKind:
		return s.SerializeBool(v.Bool())
	case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
		return s.SerializeI32(int32(v.Int()))
	case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
		return s.SerializeI64(v.Int())
	case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
		return s.SerializeU32(uint32(v.Uint()))
	case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
		return s.SerializeU64(v.Uint())
	case protoreflect.FloatKind:
		return s.SerializeF32(float32(v.Float()))
	case protoreflect.DoubleKind:
		return s.SerializeF64(v.Float())
	case protoreflect.StringKind:
		return s.SerializeStr(v.String())
	case protoreflect.BytesKind:
		return s.SerializeBytes(v.Bytes())
	case protoreflect.EnumKind:
		ed := p.fd.Enum()
		ev := ed.Values().ByNumber(v.Enum())
		if ev == nil {
			return s.SerializeI32(int32(v.Enum()))
		}
		return s.SerializeUnitVariant(string(ed.FullName()), uint32(ev.Index()), string(ev.Name()))
	case protoreflect.MessageKind, protoreflect.GroupKind:
		return serializeMessage(s, v.Message())
	default:
		return Errorf("cannot serialize protobuf field %s of kind %s", p.fd.FullName(), p.fd.Kind())
	}
}

func deserializeMessage(d Deserializer, m protoreflect.Message) error {
	md := m.Descriptor()
	fds := md.Fields()
	names := make([]string, fds.Len())
	for i := range names {
		names[i] = string(fds.Get(i).Name())
	}
	name := string(md.FullName())
	return d.DeserializeStruct(name, names, &messageVisitor{
		DefaultVisitor: DefaultVisitor{Expected: "struct " + name},
		m:              m,
	})
}

type messageVisitor struct {
	DefaultVisitor
	m protoreflect.Message
}

func (v *messageVisitor) lookup(id identifier) protoreflect.FieldDescriptor {
	fds := v.m.Descriptor().Fields()
	if id.isIndex {
		if id.index < uint64(fds.Len()) {
			return fds.Get(int(id.index))
		}
		return nil
	}
	if fd := fds.ByName(protoreflect.Name(id.name)); fd != nil {
		return fd
	}
	return fds.ByJSONName(id.name)
}

func (v *messageVisitor) VisitMap(m MapAccess) error {
	seen := make(map[protoreflect.FieldNumber]bool)
	for {
		var id identifier
		ok, err := m.NextKey(id.seed())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fd := v.lookup(id)
		if fd == nil {
			if err := m.NextValue(Ignore); err != nil {
				return err
			}
			continue
		}
		if seen[fd.Number()] {
			return DuplicateFieldError(string(fd.Name()))
		}
		seen[fd.Number()] = true
		if err := m.NextValue(fieldSeed(v.m, fd)); err != nil {
			return err
		}
	}
}

// VisitSeq reads fields positionally. Every field is optional, so a short
// sequence leaves the remaining fields unset.
func (v *messageVisitor) VisitSeq(s SeqAccess) error {
	fds := v.m.Descriptor().Fields()
	for i := 0; i < fds.Len(); i++ {
		ok, err := s.NextElement(fieldSeed(v.m, fds.Get(i)))
		if err != nil || !ok {
			return err
		}
	}
	return nil
}

func fieldSeed(m protoreflect.Message, fd protoreflect.FieldDescriptor) Seed {
	return func(d Deserializer) error {
		switch {
		case fd.IsList():
			return d.DeserializeSeq(&listVisitor{
				DefaultVisitor: DefaultVisitor{Expected: "a sequence"},
				fd:             fd,
				list:           m.Mutable(fd).List(),
			})
		case fd.IsMap():
			return d.DeserializeMap(&mapVisitor{
				DefaultVisitor: DefaultVisitor{Expected: "a map"},
				fd:             fd,
				mp:             m.Mutable(fd).Map(),
			})
		case fd.HasPresence():
			return d.DeserializeOption(&presenceVisitor{
				DefaultVisitor: DefaultVisitor{Expected: "option"},
				m:              m,
				fd:             fd,
			})
		default:
			return scalarSeed(fd, func() protoreflect.Value { return m.NewField(fd) }, func(v protoreflect.Value) { m.Set(fd, v) })(d)
		}
	}
}

type listVisitor struct {
	DefaultVisitor
	fd   protoreflect.FieldDescriptor
	list protoreflect.List
}

func (v *listVisitor) VisitSeq(s SeqAccess) error {
	for {
		ok, err := s.NextElement(scalarSeed(v.fd, v.list.NewElement, v.list.Append))
		if err != nil || !ok {
			return err
		}
	}
}

type mapVisitor struct {
	DefaultVisitor
	fd protoreflect.FieldDescriptor
	mp protoreflect.Map
}

func (v *mapVisitor) VisitMap(m MapAccess) error {
	for {
		var key protoreflect.Value
		ok, err := m.NextKey(scalarSeed(v.fd.MapKey(), nil, func(k protoreflect.Value) { key = k }))
		if err != nil || !ok {
			return err
		}
		err = m.NextValue(scalarSeed(v.fd.MapValue(), v.mp.NewValue, func(x protoreflect.Value) {
			v.mp.Set(key.MapKey(), x)
		}))
		if err != nil {
			return err
		}
	}
}

type presenceVisitor struct {
	DefaultVisitor
	m  protoreflect.Message
	fd protoreflect.FieldDescriptor
}

func (v *presenceVisitor) VisitNone() error {
	v.m.Clear(v.fd)
	return nil
}

func (v *presenceVisitor) VisitUnit() error { return v.VisitNone() }

func (v *presenceVisitor) VisitSome(d Deserializer) error {
	newValue := func() protoreflect.Value { return v.m.NewField(v.fd) }
	return scalarSeed(v.fd, newValue, func(x protoreflect.Value) { v.m.Set(v.fd, x) })(d)
}

// scalarSeed decodes a single value of fd and passes it to set. newValue
// allocates the destination of message values.
func scalarSeed(fd protoreflect.FieldDescriptor, newValue func() protoreflect.Value, set func(protoreflect.Value)) Seed {
	return func(d Deserializer) error {
		var v protoreflect.Value
		var err error

		switch fd.Kind() {
		case protoreflect.BoolKind:
			var x bool
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfBool(x)
		case protoreflect.Int32Kind, protoreflect.Sint32Kind, protoreflect.Sfixed32Kind:
			var x int32
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfInt32(x)
		case protoreflect.Int64Kind, protoreflect.Sint64Kind, protoreflect.Sfixed64Kind:
			var x int64
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfInt64(x)
		case protoreflect.Uint32Kind, protoreflect.Fixed32Kind:
			var x uint32
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfUint32(x)
		case protoreflect.Uint64Kind, protoreflect.Fixed64Kind:
			var x uint64
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfUint64(x)
		case protoreflect.FloatKind:
			var x float32
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfFloat32(x)
		case protoreflect.DoubleKind:
			var x float64
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfFloat64(x)
		case protoreflect.StringKind:
			var x string
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfString(x)
		case protoreflect.BytesKind:
			var x []byte
			err = Deserialize(d, &x)
			v = protoreflect.ValueOfBytes(x)
		case protoreflect.EnumKind:
			var x protoreflect.EnumNumber
			err = deserializeEnum(d, fd.Enum(), &x)
			v = protoreflect.ValueOfEnum(x)
		case protoreflect.MessageKind, protoreflect.GroupKind:
			v = newValue()
			err = deserializeMessage(d, v.Message())
		default:
			return Errorf("cannot deserialize protobuf field %s of kind %s", fd.FullName(), fd.Kind())
		}

		if err != nil {
			return err
		}
		set(v)
		return nil
	}
}

func deserializeEnum(d Deserializer, ed protoreflect.EnumDescriptor, num *protoreflect.EnumNumber) error {
	values := ed.Values()
	names := make([]string, values.Len())
	for i := range names {
		names[i] = string(values.Get(i).Name())
	}
	name := string(ed.FullName())
	return d.DeserializeEnum(name, names, &enumVisitor{
		DefaultVisitor: DefaultVisitor{Expected: "enum " + name},
		ed:             ed,
		names:          names,
		num:            num,
	})
}

type enumVisitor struct {
	DefaultVisitor
	ed    protoreflect.EnumDescriptor
	names []string
	num   *protoreflect.EnumNumber
}

func (v *enumVisitor) VisitEnum(e EnumAccess) error {
	var id identifier
	va, err := e.Variant(id.seed())
	if err != nil {
		return err
	}
	values := v.ed.Values()
	var ev protoreflect.EnumValueDescriptor
	if id.isIndex {
		if id.index < uint64(values.Len()) {
			ev = values.Get(int(id.index))
		}
	} else {
		ev = values.ByName(protoreflect.Name(id.name))
	}
	if ev == nil {
		variant := id.name
		if id.isIndex {
			variant = strconv.FormatUint(id.index, 10)
		}
		return UnknownVariantError(variant, v.names)
	}
	*v.num = ev.Number()
	return va.UnitVariant()
}

// Open enums may hold numbers with no declared value, which are serialized
// as plain integers.
func (v *enumVisitor) VisitI32(x int32) error {
	*v.num = protoreflect.EnumNumber(x)
	return nil
}

// messageField adapts a message pointer held in a Go struct field so it
// serializes and deserializes as an option.
type messageField struct {
	v reflect.Value
}

func (f messageField) Serialize(s Serializer) error {
	if f.v.IsNil() {
		return s.SerializeNone()
	}
	return s.SerializeSome(f.v.Interface())
}

func (f messageField) Deserialize(d Deserializer) error {
	return d.DeserializeOption(&messageFieldVisitor{DefaultVisitor{"option"}, f.v})
}

type messageFieldVisitor struct {
	DefaultVisitor
	v reflect.Value
}

func (vis *messageFieldVisitor) VisitNone() error {
	vis.v.SetZero()
	return nil
}

func (vis *messageFieldVisitor) VisitSome(d Deserializer) error {
	return deserializeValue(d, vis.v)
}
