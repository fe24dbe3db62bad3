package serde

import "math/big"

// Int128 is a two's complement 128 bits signed integer.
type Int128 struct {
	High int64
	Low  uint64
}

// Uint128 is a 128 bits unsigned integer.
type Uint128 struct {
	High uint64
	Low  uint64
}

func Int128From(v int64) Int128 {
	return Int128{High: v >> 63, Low: uint64(v)}
}

func Uint128From(v uint64) Uint128 {
	return Uint128{Low: v}
}

// Int64 returns x as an int64 and whether it fits.
func (x Int128) Int64() (int64, bool) {
	v := int64(x.Low)
	return v, x.High == v>>63
}

// Uint64 returns x as a uint64 and whether it fits.
func (x Uint128) Uint64() (uint64, bool) {
	return x.Low, x.High == 0
}

func (x Int128) Big() *big.Int {
	b := new(big.Int).SetInt64(x.High)
	b.Lsh(b, 64)
	return b.Add(b, new(big.Int).SetUint64(x.Low))
}

func (x Uint128) Big() *big.Int {
	b := new(big.Int).SetUint64(x.High)
	b.Lsh(b, 64)
	return b.Add(b, new(big.Int).SetUint64(x.Low))
}

func (x Int128) String() string  { return x.Big().String() }
func (x Uint128) String() string { return x.Big().String() }

func (x Int128) Serialize(s Serializer) error  { return s.SerializeI128(x) }
func (x Uint128) Serialize(s Serializer) error { return s.SerializeU128(x) }

func (x *Int128) Deserialize(d Deserializer) error {
	return d.DeserializeI128(int128Visitor{DefaultVisitor{"i128"}, x})
}

func (x *Uint128) Deserialize(d Deserializer) error {
	return d.DeserializeU128(uint128Visitor{DefaultVisitor{"u128"}, x})
}

type int128Visitor struct {
	DefaultVisitor
	x *Int128
}

func (v int128Visitor) VisitI8(x int8) error   { return v.VisitI64(int64(x)) }
func (v int128Visitor) VisitI16(x int16) error { return v.VisitI64(int64(x)) }
func (v int128Visitor) VisitI32(x int32) error { return v.VisitI64(int64(x)) }
func (v int128Visitor) VisitI64(x int64) error {
	*v.x = Int128From(x)
	return nil
}

func (v int128Visitor) VisitI128(x Int128) error {
	*v.x = x
	return nil
}

func (v int128Visitor) VisitU8(x uint8) error   { return v.VisitI64(int64(x)) }
func (v int128Visitor) VisitU16(x uint16) error { return v.VisitI64(int64(x)) }
func (v int128Visitor) VisitU32(x uint32) error { return v.VisitI64(int64(x)) }
func (v int128Visitor) VisitU64(x uint64) error {
	*v.x = Int128{Low: x}
	return nil
}

type uint128Visitor struct {
	DefaultVisitor
	x *Uint128
}

func (v uint128Visitor) VisitU8(x uint8) error   { return v.VisitU64(uint64(x)) }
func (v uint128Visitor) VisitU16(x uint16) error { return v.VisitU64(uint64(x)) }
func (v uint128Visitor) VisitU32(x uint32) error { return v.VisitU64(uint64(x)) }
func (v uint128Visitor) VisitU64(x uint64) error {
	*v.x = Uint128From(x)
	return nil
}

func (v uint128Visitor) VisitU128(x Uint128) error {
	*v.x = x
	return nil
}
