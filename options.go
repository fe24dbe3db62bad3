package serdeassert

import "log/slog"

// StructMode selects how a Serializer records structs.
type StructMode int

const (
	// StructAsStruct records Struct, then Field and value pairs, then
	// StructEnd.
	StructAsStruct StructMode = iota
	// StructAsSeq records Seq with the field count, the bare field values,
	// then SeqEnd. Field names and skipped fields are dropped.
	StructAsSeq
)

// SerializerOption configures a Serializer.
type SerializerOption func(*Serializer)

func SerializeStructAs(mode StructMode) SerializerOption {
	return func(s *Serializer) {
		s.structMode = mode
	}
}

// SerializerHumanReadable sets the value reported by IsHumanReadable. The
// default is true.
func SerializerHumanReadable(enabled bool) SerializerOption {
	return func(s *Serializer) {
		s.humanReadable = enabled
	}
}

// SerializerLogger traces every recorded token at debug level.
func SerializerLogger(logger *slog.Logger) SerializerOption {
	return func(s *Serializer) {
		s.logger = logger
	}
}

// DeserializerOption configures a Deserializer.
type DeserializerOption func(*Deserializer)

// SelfDescribing lets DeserializeAny and DeserializeIgnoredAny pick what to
// produce from the next token. When disabled, the default, they fail with
// ErrNotSelfDescribing.
func SelfDescribing(enabled bool) DeserializerOption {
	return func(d *Deserializer) {
		d.selfDescribing = enabled
	}
}

// ZeroCopy lets DeserializeStr and DeserializeBytes hand out the memory of
// the source tokens instead of copies. The default is false.
func ZeroCopy(enabled bool) DeserializerOption {
	return func(d *Deserializer) {
		d.zeroCopy = enabled
	}
}

// DeserializerHumanReadable sets the value reported by IsHumanReadable. The
// default is true.
func DeserializerHumanReadable(enabled bool) DeserializerOption {
	return func(d *Deserializer) {
		d.humanReadable = enabled
	}
}

// DeserializerLogger traces every consumed token at debug level.
func DeserializerLogger(logger *slog.Logger) DeserializerOption {
	return func(d *Deserializer) {
		d.logger = logger
	}
}
