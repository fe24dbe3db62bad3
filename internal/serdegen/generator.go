// Package serdegen generates Serialize and Deserialize methods for struct
// types, so that they do not go through reflection.
package serdegen

import (
	"bytes"
	"fmt"
	"go/format"
	"go/types"
	"io"
	"maps"
	"math"
	"path"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/stealthrocket/serdeassert/internal/reflectext"
)

// SerdePackage is the import path of the package the generated code calls.
const SerdePackage = "github.com/stealthrocket/serdeassert/serde"

type importsmap struct {
	byName map[string]string
	byPath map[string]string
}

// Reserve marks name as taken by a declaration of the output package.
func (m *importsmap) Reserve(name string) {
	m.init()
	m.byName[name] = ""
}

func (m *importsmap) init() {
	if m.byName == nil {
		m.byName = make(map[string]string)
		m.byPath = make(map[string]string)
	}
}

// Add a new import and assign it an imported name, avoiding clashes.
func (m *importsmap) Add(p string) string {
	name, ok := m.byPath[p]
	if ok {
		return name
	}
	m.init()

	original := path.Base(p)
	for i := 0; i <= math.MaxInt; i++ {
		name := original
		if i > 0 {
			name = fmt.Sprintf("%s_%d", original, i)
		}
		if _, ok := m.byName[name]; ok { // name clash
			continue
		}
		m.byName[name] = p
		m.byPath[p] = name
		return name
	}

	panic("exhausted suffixes")
}

func (m *importsmap) imports() []string {
	return slices.Sorted(maps.Keys(m.byPath))
}

// Generator accumulates the methods of the struct types of one package.
type Generator struct {
	// Build tags to decorate the output.
	tags []string
	// Package the output file belongs to.
	pkg *types.Package
	// Name the serde package is imported as, empty when generating code
	// for the serde package itself.
	serde   string
	imports importsmap
	types   []string

	s strings.Builder
}

func NewGenerator(pkg *types.Package, tags []string) *Generator {
	g := &Generator{tags: tags, pkg: pkg}
	if pkg.Path() != SerdePackage {
		scope := pkg.Scope()
		for _, name := range scope.Names() {
			g.imports.Reserve(name)
		}
		g.serde = g.imports.Add(SerdePackage)
	}
	return g
}

// W writes a line of output.
func (g *Generator) W(f string, args ...any) {
	fmt.Fprintf(&g.s, f, args...)
	g.s.WriteString("\n")
}

func (g *Generator) qualify(name string) string {
	if g.serde == "" {
		return name
	}
	return g.serde + "." + name
}

// Types returns the names of the types added so far.
func (g *Generator) Types() []string { return slices.Clone(g.types) }

// Add generates the methods of the struct type called name.
func (g *Generator) Add(name string) error {
	obj := g.pkg.Scope().Lookup(name)
	if obj == nil {
		return fmt.Errorf("type %s not found in package %s", name, g.pkg.Path())
	}
	tn, ok := obj.(*types.TypeName)
	if !ok {
		return fmt.Errorf("%s.%s is not a type", g.pkg.Path(), name)
	}
	named, ok := tn.Type().(*types.Named)
	if !ok || tn.IsAlias() {
		return fmt.Errorf("%s.%s is not a defined type", g.pkg.Path(), name)
	}
	if named.TypeParams().Len() > 0 {
		return fmt.Errorf("%s.%s is generic", g.pkg.Path(), name)
	}
	st, ok := named.Underlying().(*types.Struct)
	if !ok {
		return fmt.Errorf("%s.%s is not a struct", g.pkg.Path(), name)
	}
	if slices.Contains(g.types, name) {
		return fmt.Errorf("%s.%s added twice", g.pkg.Path(), name)
	}
	g.types = append(g.types, name)

	fields := structFields(st)
	quoted := strconv.Quote(name)

	g.W(``)
	g.W(`func (x %s) Serialize(s %s) error {`, name, g.qualify("Serializer"))
	g.W(`return %s(s, %s, []%s{`, g.qualify("SerializeFields"), quoted, g.qualify("Field"))
	for _, f := range fields {
		g.W(`{%s},`, f.literal("x."+f.goName))
	}
	g.W(`})`)
	g.W(`}`)

	g.W(``)
	g.W(`func (x *%s) Deserialize(d %s) error {`, name, g.qualify("Deserializer"))
	g.W(`return %s(d, %s, []%s{`, g.qualify("DeserializeFields"), quoted, g.qualify("Field"))
	for _, f := range fields {
		g.W(`{%s},`, f.literal("&x."+f.goName))
	}
	g.W(`})`)
	g.W(`}`)
	return nil
}

type field struct {
	goName    string
	name      string
	omitEmpty bool
}

func (f field) literal(value string) string {
	s := fmt.Sprintf("Name: %s, Value: %s", strconv.Quote(f.name), value)
	if f.omitEmpty {
		s += ", OmitEmpty: true"
	}
	return s
}

// structFields lists the fields of st the same way the reflection based
// code path does: exported fields, renamed or skipped with the serde tag.
func structFields(st *types.Struct) []field {
	vars := lo.Filter(lo.Range(st.NumFields()), func(i int, _ int) bool {
		return st.Field(i).Exported()
	})
	fields := make([]field, 0, len(vars))
	for _, i := range vars {
		tag := reflect.StructTag(st.Tag(i)).Get(reflectext.TagName)
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		goName := st.Field(i).Name()
		if name == "" {
			name = goName
		}
		fields = append(fields, field{
			goName:    goName,
			name:      name,
			omitEmpty: slices.Contains(strings.Split(opts, ","), "omitempty"),
		})
	}
	return fields
}

// Bytes returns the generated file, formatted.
func (g *Generator) Bytes() ([]byte, error) {
	var sb bytes.Buffer
	sb.WriteString("// Code generated by serdegen. DO NOT EDIT.\n\n")

	if len(g.tags) > 0 {
		fmt.Fprintf(&sb, "//go:build %s\n\n", strings.Join(g.tags, " "))
	}
	fmt.Fprintf(&sb, "package %s\n\n", g.pkg.Name())

	for _, p := range g.imports.imports() {
		fmt.Fprintf(&sb, "import %s %q\n", g.imports.byPath[p], p)
	}
	sb.WriteString(g.s.String())

	src, err := format.Source(sb.Bytes())
	if err != nil {
		return nil, fmt.Errorf("formatting generated code for %s: %w", g.pkg.Path(), err)
	}
	return src, nil
}

func (g *Generator) WriteTo(w io.Writer) (int64, error) {
	src, err := g.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(src)
	return int64(n), err
}
