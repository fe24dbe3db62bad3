package serdegen

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const demoSource = `package demo

type Point struct {
	X    int32 ` + "`serde:\"x\"`" + `
	Y    int32
	z    int
	Skip bool     ` + "`serde:\"-\"`" + `
	Tags []string ` + "`serde:\"tags,omitempty\"`" + `
}

type Empty struct{}

type Alias = Point

type Number int

type Generic[T any] struct{ V T }

var serde = 1
`

func check(t *testing.T, path, src string) *types.Package {
	t.Helper()
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "demo.go", src, 0)
	require.NoError(t, err)
	pkg, err := new(types.Config).Check(path, fset, []*ast.File{f}, nil)
	require.NoError(t, err)
	return pkg
}

func TestGenerator(t *testing.T) {
	g := NewGenerator(check(t, "example.com/demo", demoSource), nil)
	require.NoError(t, g.Add("Point"))
	require.NoError(t, g.Add("Empty"))
	require.Equal(t, []string{"Point", "Empty"}, g.Types())

	src, err := g.Bytes()
	require.NoError(t, err)
	out := string(src)

	require.True(t, strings.HasPrefix(out, "// Code generated by serdegen. DO NOT EDIT.\n"), out)
	require.Contains(t, out, "package demo\n")

	// The package declares serde, so the import is renamed.
	require.Contains(t, out, `import serde_1 "github.com/stealthrocket/serdeassert/serde"`)

	for _, fragment := range []string{
		"func (x Point) Serialize(s serde_1.Serializer) error {",
		`return serde_1.SerializeFields(s, "Point", []serde_1.Field{`,
		`{Name: "x", Value: x.X},`,
		`{Name: "Y", Value: x.Y},`,
		`{Name: "tags", Value: x.Tags, OmitEmpty: true},`,
		"func (x *Point) Deserialize(d serde_1.Deserializer) error {",
		`return serde_1.DeserializeFields(d, "Point", []serde_1.Field{`,
		`{Name: "x", Value: &x.X},`,
		`{Name: "tags", Value: &x.Tags, OmitEmpty: true},`,
		"func (x Empty) Serialize(s serde_1.Serializer) error {",
	} {
		require.Contains(t, out, fragment)
	}
	require.NotContains(t, out, "x.z")
	require.NotContains(t, out, "Skip")

	// The output is valid Go.
	_, err = parser.ParseFile(token.NewFileSet(), "serde_generated.go", src, 0)
	require.NoError(t, err)
}

func TestGeneratorErrors(t *testing.T) {
	g := NewGenerator(check(t, "example.com/demo", demoSource), nil)

	tests := []struct {
		name string
		err  string
	}{
		{"Missing", "type Missing not found in package example.com/demo"},
		{"serde", "example.com/demo.serde is not a type"},
		{"Alias", "example.com/demo.Alias is not a defined type"},
		{"Number", "example.com/demo.Number is not a struct"},
		{"Generic", "example.com/demo.Generic is generic"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			require.EqualError(t, g.Add(test.name), test.err)
		})
	}

	require.NoError(t, g.Add("Point"))
	require.EqualError(t, g.Add("Point"), "example.com/demo.Point added twice")
}

func TestGeneratorBuildTags(t *testing.T) {
	g := NewGenerator(check(t, "example.com/demo", demoSource), []string{"!race"})
	require.NoError(t, g.Add("Empty"))

	var buf bytes.Buffer
	n, err := g.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)
	require.Contains(t, buf.String(), "//go:build !race\n")
}

func TestGeneratorSerdePackage(t *testing.T) {
	src := `package serde

type Pair struct {
	A int
	B int
}
`
	g := NewGenerator(check(t, SerdePackage, src), nil)
	require.NoError(t, g.Add("Pair"))

	out, err := g.Bytes()
	require.NoError(t, err)
	require.NotContains(t, string(out), "import")
	require.Contains(t, string(out), "func (x Pair) Serialize(s Serializer) error {")
	require.Contains(t, string(out), `return DeserializeFields(d, "Pair", []Field{`)
}

func TestImportsMap(t *testing.T) {
	var m importsmap
	m.Reserve("fmt")
	require.Equal(t, "fmt_1", m.Add("fmt"))
	require.Equal(t, "fmt_1", m.Add("fmt"))
	require.Equal(t, "fmt_2", m.Add("example.com/other/fmt"))
	require.Equal(t, "io", m.Add("io"))
	require.Equal(t, []string{"example.com/other/fmt", "fmt", "io"}, m.imports())
}
