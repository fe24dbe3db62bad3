package serdeassert_test

import (
	"fmt"
	"strconv"

	"github.com/stealthrocket/serdeassert/serde"
)

type Point struct {
	X int32 `serde:"x"`
	Y int32 `serde:"y"`
}

type Options struct {
	Name   string   `serde:"name"`
	Limit  int32    `serde:"limit,omitempty"`
	Tags   []string `serde:"tags,omitempty"`
	Secret string   `serde:"-"`
}

type Marker struct{}

// Letter is serialized as a char.
type Letter rune

func (l *Letter) Serialize(s serde.Serializer) error { return s.SerializeChar(rune(*l)) }

func (l *Letter) Deserialize(d serde.Deserializer) error {
	return d.DeserializeChar(letterVisitor{serde.DefaultVisitor{Expected: "a char"}, l})
}

type letterVisitor struct {
	serde.DefaultVisitor
	l *Letter
}

func (v letterVisitor) VisitChar(r rune) error {
	*v.l = Letter(r)
	return nil
}

type Celsius float64

func (c Celsius) Serialize(s serde.Serializer) error {
	return s.SerializeNewtypeStruct("Celsius", float64(c))
}

func (c *Celsius) Deserialize(d serde.Deserializer) error {
	return d.DeserializeNewtypeStruct("Celsius", celsiusVisitor{serde.DefaultVisitor{Expected: "newtype struct Celsius"}, c})
}

type celsiusVisitor struct {
	serde.DefaultVisitor
	c *Celsius
}

func (v celsiusVisitor) VisitNewtypeStruct(d serde.Deserializer) error {
	return serde.Deserialize(d, (*float64)(v.c))
}

type Pair [2]int8

func (p Pair) Serialize(s serde.Serializer) error {
	ts, err := s.SerializeTupleStruct("Pair", 2)
	if err != nil {
		return err
	}
	for _, x := range p {
		if err := ts.SerializeElement(x); err != nil {
			return err
		}
	}
	return ts.End()
}

func (p *Pair) Deserialize(d serde.Deserializer) error {
	return d.DeserializeTupleStruct("Pair", 2, pairVisitor{serde.DefaultVisitor{Expected: "tuple struct Pair"}, p})
}

type pairVisitor struct {
	serde.DefaultVisitor
	p *Pair
}

func (v pairVisitor) VisitSeq(s serde.SeqAccess) error {
	for i := range v.p {
		ok, err := s.NextElement(serde.Into(&v.p[i]))
		if err != nil {
			return err
		}
		if !ok {
			return serde.InvalidLengthError(i, v.Expected)
		}
	}
	return nil
}

// Stamp is a unix time, written as a decimal string for human readable
// formats.
type Stamp int64

func (t Stamp) Serialize(s serde.Serializer) error {
	if s.IsHumanReadable() {
		return s.SerializeStr(strconv.FormatInt(int64(t), 10))
	}
	return s.SerializeI64(int64(t))
}

func (t *Stamp) Deserialize(d serde.Deserializer) error {
	if d.IsHumanReadable() {
		var s string
		if err := serde.Deserialize(d, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return serde.InvalidValueError(serde.UnexpectedStr(s), "a unix time")
		}
		*t = Stamp(n)
		return nil
	}
	return serde.Deserialize(d, (*int64)(t))
}

var eventVariants = []string{"Quit", "Key", "Move", "Click"}

// Event is an enum with one variant of each shape.
type Event struct {
	Kind string
	Key  string
	X, Y int32
}

func (e Event) Serialize(s serde.Serializer) error {
	switch e.Kind {
	case "Quit":
		return s.SerializeUnitVariant("Event", 0, "Quit")
	case "Key":
		return s.SerializeNewtypeVariant("Event", 1, "Key", e.Key)
	case "Move":
		tv, err := s.SerializeTupleVariant("Event", 2, "Move", 2)
		if err != nil {
			return err
		}
		if err := tv.SerializeElement(e.X); err != nil {
			return err
		}
		if err := tv.SerializeElement(e.Y); err != nil {
			return err
		}
		return tv.End()
	case "Click":
		sv, err := s.SerializeStructVariant("Event", 3, "Click", 2)
		if err != nil {
			return err
		}
		if err := sv.SerializeField("x", e.X); err != nil {
			return err
		}
		if err := sv.SerializeField("y", e.Y); err != nil {
			return err
		}
		return sv.End()
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

func (e *Event) Deserialize(d serde.Deserializer) error {
	return d.DeserializeEnum("Event", eventVariants, eventVisitor{serde.DefaultVisitor{Expected: "enum Event"}, e})
}

type eventVisitor struct {
	serde.DefaultVisitor
	e *Event
}

func (v eventVisitor) VisitEnum(a serde.EnumAccess) error {
	var name string
	va, err := a.Variant(serde.Into(&name))
	if err != nil {
		return err
	}
	v.e.Kind = name
	switch name {
	case "Quit":
		return va.UnitVariant()
	case "Key":
		return va.NewtypeVariant(serde.Into(&v.e.Key))
	case "Move":
		return va.TupleVariant(2, moveVisitor{serde.DefaultVisitor{Expected: "tuple variant Event::Move"}, v.e})
	case "Click":
		return va.StructVariant([]string{"x", "y"}, clickVisitor{serde.DefaultVisitor{Expected: "struct variant Event::Click"}, v.e})
	default:
		return serde.UnknownVariantError(name, eventVariants)
	}
}

type moveVisitor struct {
	serde.DefaultVisitor
	e *Event
}

func (v moveVisitor) VisitSeq(s serde.SeqAccess) error {
	for i, p := range []*int32{&v.e.X, &v.e.Y} {
		ok, err := s.NextElement(serde.Into(p))
		if err != nil {
			return err
		}
		if !ok {
			return serde.InvalidLengthError(i, v.Expected)
		}
	}
	return nil
}

type clickVisitor struct {
	serde.DefaultVisitor
	e *Event
}

func (v clickVisitor) VisitMap(m serde.MapAccess) error {
	for {
		var key string
		ok, err := m.NextKey(func(d serde.Deserializer) error {
			return d.DeserializeIdentifier(stringVisitor{serde.DefaultVisitor{Expected: "a field name"}, &key})
		})
		if err != nil || !ok {
			return err
		}
		switch key {
		case "x":
			err = m.NextValue(serde.Into(&v.e.X))
		case "y":
			err = m.NextValue(serde.Into(&v.e.Y))
		default:
			err = m.NextValue(serde.Ignore)
		}
		if err != nil {
			return err
		}
	}
}

type stringVisitor struct {
	serde.DefaultVisitor
	s *string
}

func (v stringVisitor) VisitStr(s string) error {
	*v.s = s
	return nil
}

// failing fails to serialize itself.
type failing struct{}

func (failing) Serialize(serde.Serializer) error {
	return fmt.Errorf("failing: %w", errBoom)
}

var errBoom = fmt.Errorf("boom")
