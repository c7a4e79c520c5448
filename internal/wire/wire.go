// Package wire is the canonical byte encoding shared by the protocol objects
// in pkg/pre. Objects are written as protobuf wire-format records: every
// field is either a length-delimited byte string or a varint, fields are
// emitted in ascending number order and decoders reject unknown wire types.
package wire

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrTruncated is returned when a record ends in the middle of a field.
	ErrTruncated = errors.New("wire: truncated record")
	// ErrNonCanonical is returned by DecodeSchema for a record no Builder
	// following the schema would produce.
	ErrNonCanonical = errors.New("wire: non-canonical record")
)

// Builder appends fields to a record.
type Builder struct {
	b []byte
}

// NewBuilder returns a Builder with capacity for n bytes.
func NewBuilder(n int) *Builder {
	return &Builder{b: make([]byte, 0, n)}
}

// Bytes appends a length-delimited field.
func (w *Builder) Bytes(num protowire.Number, v []byte) *Builder {
	w.b = protowire.AppendTag(w.b, num, protowire.BytesType)
	w.b = protowire.AppendBytes(w.b, v)
	return w
}

// Uint appends a varint field.
func (w *Builder) Uint(num protowire.Number, v uint64) *Builder {
	w.b = protowire.AppendTag(w.b, num, protowire.VarintType)
	w.b = protowire.AppendVarint(w.b, v)
	return w
}

// Int appends a signed varint field using zig-zag encoding.
func (w *Builder) Int(num protowire.Number, v int64) *Builder {
	return w.Uint(num, protowire.EncodeZigZag(v))
}

// Finish returns the encoded record.
func (w *Builder) Finish() []byte {
	return w.b
}

// Field is one decoded field. Exactly one of Value or Uint is meaningful,
// depending on Type.
type Field struct {
	Num   protowire.Number
	Type  protowire.Type
	Value []byte
	Uint  uint64
}

// Int returns the zig-zag decoded value of a varint field.
func (f Field) Int() int64 {
	return protowire.DecodeZigZag(f.Uint)
}

// Decode walks the fields of a record in order. Value slices alias b.
func Decode(b []byte, fn func(Field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrTruncated, protowire.ParseError(n))
		}
		b = b[n:]
		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.BytesType:
			v, m := protowire.ConsumeBytes(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrTruncated, num, protowire.ParseError(m))
			}
			f.Value = v
			b = b[m:]
		case protowire.VarintType:
			v, m := protowire.ConsumeVarint(b)
			if m < 0 {
				return fmt.Errorf("%w: field %d: %v", ErrTruncated, num, protowire.ParseError(m))
			}
			f.Uint = v
			b = b[m:]
		default:
			return fmt.Errorf("wire: field %d has unsupported wire type %d", num, typ)
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

// FieldSpec describes one field of a record.
type FieldSpec struct {
	Type     protowire.Type
	Repeated bool
}

// Field specs shared by the record schemas.
var (
	BytesField    = FieldSpec{Type: protowire.BytesType}
	VarintField   = FieldSpec{Type: protowire.VarintType}
	RepeatedBytes = FieldSpec{Type: protowire.BytesType, Repeated: true}
)

// Schema lists the fields a record may carry.
type Schema map[protowire.Number]FieldSpec

// DecodeSchema is Decode restricted to s. Unknown fields, fields with the
// wrong wire type and repeats of a non-repeated field fail with
// ErrNonCanonical before fn sees them.
func DecodeSchema(b []byte, s Schema, fn func(Field) error) error {
	seen := make(map[protowire.Number]bool, len(s))
	return Decode(b, func(f Field) error {
		spec, ok := s[f.Num]
		if !ok {
			return fmt.Errorf("%w: unknown field %d", ErrNonCanonical, f.Num)
		}
		if f.Type != spec.Type {
			return fmt.Errorf("%w: field %d has wire type %d, want %d", ErrNonCanonical, f.Num, f.Type, spec.Type)
		}
		if seen[f.Num] && !spec.Repeated {
			return fmt.Errorf("%w: duplicate field %d", ErrNonCanonical, f.Num)
		}
		seen[f.Num] = true
		return fn(f)
	})
}

// Clone returns a copy of v so decoded values do not alias the input record.
func Clone(v []byte) []byte {
	if v == nil {
		return nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out
}
