package reflectext

import (
	"reflect"
	"strings"
)

// TagName is the struct tag key read by StructFields.
const TagName = "serde"

// StructField is an exported struct field as seen by serialization.
type StructField struct {
	// Name is the serialized name, from the tag or the Go field name.
	Name string
	// Index is the field index in the struct.
	Index int
	// OmitEmpty fields are skipped when they hold their zero value.
	OmitEmpty bool
	Type      reflect.Type
}

// StructFields lists the serialized fields of struct type t, in declaration
// order. Unexported fields and fields tagged `serde:"-"` are left out.
func StructFields(t reflect.Type) []StructField {
	n := t.NumField()
	fields := make([]StructField, 0, n)
	for i := 0; i < n; i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		tag := f.Tag.Get(TagName)
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		if name == "" {
			name = f.Name
		}
		fields = append(fields, StructField{
			Name:      name,
			Index:     i,
			OmitEmpty: hasOption(opts, "omitempty"),
			Type:      f.Type,
		})
	}
	return fields
}

func hasOption(opts, name string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == name {
			return true
		}
	}
	return false
}

// Named returns true if t has a name, as opposed to a type literal.
func Named(t reflect.Type) bool {
	return t.Name() != ""
}
