package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodeWalksFields(t *testing.T) {
	rec := NewBuilder(16).
		Bytes(1, []byte("abc")).
		Uint(2, 300).
		Int(3, -7).
		Bytes(4, nil).
		Finish()

	var got []Field
	require.NoError(t, Decode(rec, func(f Field) error {
		got = append(got, f)
		return nil
	}))
	require.Len(t, got, 4)
	require.Equal(t, []byte("abc"), got[0].Value)
	require.Equal(t, uint64(300), got[1].Uint)
	require.Equal(t, int64(-7), got[2].Int())
	require.Empty(t, got[3].Value)
}

func TestDecodeTruncated(t *testing.T) {
	rec := NewBuilder(16).Bytes(1, []byte("abcdef")).Finish()
	err := Decode(rec[:len(rec)-2], func(Field) error { return nil })
	require.ErrorIs(t, err, ErrTruncated)
}

func TestDecodeRejectsFixedTypes(t *testing.T) {
	rec := protowire.AppendTag(nil, 1, protowire.Fixed32Type)
	rec = protowire.AppendFixed32(rec, 1)
	require.Error(t, Decode(rec, func(Field) error { return nil }))
}

func TestCloneDetaches(t *testing.T) {
	src := []byte{1, 2, 3}
	c := Clone(src)
	src[0] = 9
	require.Equal(t, byte(1), c[0])
	require.Nil(t, Clone(nil))
}

func TestDecodeSchema(t *testing.T) {
	schema := Schema{1: BytesField, 2: VarintField, 3: RepeatedBytes}
	nop := func(Field) error { return nil }

	ok := NewBuilder(32).Bytes(1, []byte("a")).Uint(2, 5).Bytes(3, nil).Bytes(3, []byte("b")).Finish()
	var n int
	require.NoError(t, DecodeSchema(ok, schema, func(Field) error { n++; return nil }))
	require.Equal(t, 4, n)

	cases := map[string][]byte{
		"duplicate":     NewBuilder(16).Bytes(1, []byte("a")).Bytes(1, []byte("b")).Finish(),
		"unknown":       NewBuilder(16).Bytes(9, []byte("a")).Finish(),
		"varint as len": NewBuilder(16).Uint(1, 7).Finish(),
		"len as varint": NewBuilder(16).Bytes(2, []byte("a")).Finish(),
	}
	for name, rec := range cases {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, DecodeSchema(rec, schema, nop), ErrNonCanonical)
		})
	}
}
