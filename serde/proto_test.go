package serde_test

import (
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
	"google.golang.org/protobuf/types/known/fieldmaskpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"
	"google.golang.org/protobuf/types/known/typepb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	. "github.com/stealthrocket/serdeassert"
)

func TestProtoTokens(t *testing.T) {
	tests := []struct {
		name string
		msg  proto.Message
		want []Token
	}{
		{
			name: "timestamp",
			msg:  &timestamppb.Timestamp{Seconds: 10, Nanos: 5},
			want: []Token{
				Struct("google.protobuf.Timestamp", 2),
				Field("seconds"), I64(10),
				Field("nanos"), I32(5),
				StructEnd,
			},
		},
		{
			name: "wrapper",
			msg:  wrapperspb.String("x"),
			want: []Token{
				Struct("google.protobuf.StringValue", 1),
				Field("value"), Str("x"),
				StructEnd,
			},
		},
		{
			name: "repeated",
			msg:  &fieldmaskpb.FieldMask{Paths: []string{"a", "b.c"}},
			want: []Token{
				Struct("google.protobuf.FieldMask", 1),
				Field("paths"), Seq(2), Str("a"), Str("b.c"), SeqEnd,
				StructEnd,
			},
		},
		{
			name: "oneof",
			msg:  structpb.NewStringValue("s"),
			want: []Token{
				Struct("google.protobuf.Value", 1),
				SkippedField("null_value"),
				SkippedField("number_value"),
				Field("string_value"), Some, Str("s"),
				SkippedField("bool_value"),
				SkippedField("struct_value"),
				SkippedField("list_value"),
				StructEnd,
			},
		},
		{
			name: "map",
			msg: &structpb.Struct{Fields: map[string]*structpb.Value{
				"k": structpb.NewBoolValue(true),
			}},
			want: []Token{
				Struct("google.protobuf.Struct", 1),
				Field("fields"),
				Map(1),
				Str("k"),
				Struct("google.protobuf.Value", 1),
				SkippedField("null_value"),
				SkippedField("number_value"),
				SkippedField("string_value"),
				Field("bool_value"), Some, Bool(true),
				SkippedField("struct_value"),
				SkippedField("list_value"),
				StructEnd,
				MapEnd,
				StructEnd,
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			tokens, err := Serialize(test.msg)
			require.NoError(t, err)
			AssertTokens(t, tokens, test.want...)

			got := test.msg.ProtoReflect().New().Interface()
			require.NoError(t, NewDeserializer(Stream(test.want...)).Deserialize(got))
			if diff := cmp.Diff(test.msg, got, protocmp.Transform()); diff != "" {
				t.Errorf("message mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestProtoEnum(t *testing.T) {
	field := &typepb.Field{
		Kind:        typepb.Field_TYPE_STRING,
		Cardinality: typepb.Field_CARDINALITY_REPEATED,
		Number:      3,
		Name:        "names",
		Options: []*typepb.Option{
			{Name: "deprecated"},
		},
	}

	tokens, err := Serialize(field)
	require.NoError(t, err)

	values := tokens.Slice()
	require.True(t, slices.ContainsFunc(values, UnitVariant("google.protobuf.Field.Kind", 9, "TYPE_STRING").Equal))
	require.True(t, slices.ContainsFunc(values, UnitVariant("google.protobuf.Field.Cardinality", 3, "CARDINALITY_REPEATED").Equal))

	got, err := Deserialize[*typepb.Field](tokens.Values())
	require.NoError(t, err)
	if diff := cmp.Diff(field, got, protocmp.Transform()); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}

	_, err = Deserialize[*typepb.Field](Stream(
		Struct("google.protobuf.Field", 1),
		Field("kind"), UnitVariant("google.protobuf.Field.Kind", 99, "TYPE_NOPE"),
		StructEnd,
	))
	var e Error
	require.ErrorAs(t, err, &e)
	require.Equal(t, UnknownVariant, e.Kind)
	require.Equal(t, "TYPE_NOPE", e.Name)
}

func TestProtoFieldNames(t *testing.T) {
	// Fields are looked up by name, then by JSON name. Unknown fields are
	// skipped.
	got, err := Deserialize[*typepb.Field](Stream(
		Struct("google.protobuf.Field", 3),
		Field("jsonName"), Str("j"),
		Field("type_url"), Str("u"),
		Field("unknown"), U8(1),
		StructEnd,
	), SelfDescribing(true))
	require.NoError(t, err)
	require.Equal(t, "j", got.JsonName)
	require.Equal(t, "u", got.TypeUrl)

	_, err = Deserialize[*timestamppb.Timestamp](Stream(
		Struct("google.protobuf.Timestamp", 2),
		Field("seconds"), I64(1),
		Field("seconds"), I64(2),
		StructEnd,
	))
	require.Equal(t, Error{Kind: DuplicateField, Name: "seconds"}, err)
}

func TestProtoStructAsSeq(t *testing.T) {
	ts := &timestamppb.Timestamp{Seconds: 1, Nanos: 2}

	tokens, err := Serialize(ts, SerializeStructAs(StructAsSeq))
	require.NoError(t, err)
	AssertTokens(t, tokens, Seq(2), I64(1), I32(2), SeqEnd)

	got, err := Deserialize[*timestamppb.Timestamp](tokens.Values())
	require.NoError(t, err)
	require.True(t, proto.Equal(ts, got))

	// Trailing fields may be left out.
	got, err = Deserialize[*timestamppb.Timestamp](Stream(Seq(1), I64(7), SeqEnd))
	require.NoError(t, err)
	require.True(t, proto.Equal(&timestamppb.Timestamp{Seconds: 7}, got))

	// Unset oneof members keep their position as None.
	v := structpb.NewStringValue("x")
	tokens, err = Serialize(v, SerializeStructAs(StructAsSeq))
	require.NoError(t, err)
	AssertTokens(t, tokens,
		Seq(6),
		None,
		None,
		Some, Str("x"),
		None,
		None,
		None,
		SeqEnd,
	)

	value, err := Deserialize[*structpb.Value](tokens.Values())
	require.NoError(t, err)
	if diff := cmp.Diff(v, value, protocmp.Transform()); diff != "" {
		t.Errorf("message mismatch (-want +got):\n%s", diff)
	}
}

type Record struct {
	Name string                 `serde:"name"`
	At   *timestamppb.Timestamp `serde:"at"`
}

func TestProtoInStruct(t *testing.T) {
	r := Record{Name: "r", At: &timestamppb.Timestamp{Seconds: 3}}

	tokens, err := Serialize(r)
	require.NoError(t, err)
	want := []Token{
		Struct("Record", 2),
		Field("name"), Str("r"),
		Field("at"), Some,
		Struct("google.protobuf.Timestamp", 2),
		Field("seconds"), I64(3),
		Field("nanos"), I32(0),
		StructEnd,
		StructEnd,
	}
	AssertTokens(t, tokens, want...)

	got, err := Deserialize[Record](Stream(want...))
	require.NoError(t, err)
	require.Equal(t, "r", got.Name)
	require.True(t, proto.Equal(r.At, got.At))

	tokens, err = Serialize(Record{Name: "empty"})
	require.NoError(t, err)
	AssertTokens(t, tokens,
		Struct("Record", 2),
		Field("name"), Str("empty"),
		Field("at"), None,
		StructEnd,
	)

	// Message fields are optional.
	got, err = Deserialize[Record](Stream(Struct("Record", 1), Field("name"), Str("n"), StructEnd))
	require.NoError(t, err)
	require.Equal(t, Record{Name: "n"}, got)
}

func TestProtoNil(t *testing.T) {
	tokens, err := Serialize((*timestamppb.Timestamp)(nil))
	require.NoError(t, err)
	AssertTokens(t, tokens, None)
}
