package curve_test

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
)

const generatorHex = "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func mustScalar(t *testing.T) *curve.Scalar {
	t.Helper()
	s, err := curve.RandomScalar()
	if err != nil {
		t.Fatalf("RandomScalar: %v", err)
	}
	return s
}

func TestGeneratorEncoding(t *testing.T) {
	got := hex.EncodeToString(curve.Generator().Bytes())
	if got != generatorHex {
		t.Fatalf("generator encoding mismatch: got %s, want %s", got, generatorHex)
	}
}

func TestPointRoundTrip(t *testing.T) {
	p := curve.BaseMul(mustScalar(t))
	q, err := curve.NewPointFromBytes(p.Bytes())
	if err != nil {
		t.Fatalf("NewPointFromBytes: %v", err)
	}
	if !p.Equal(q) {
		t.Fatal("decoded point differs from original")
	}
}

func TestPointBytesMutationProtection(t *testing.T) {
	p := curve.BaseMul(mustScalar(t))
	first := p.Bytes()
	original := append([]byte(nil), first...)
	for i := range first {
		first[i] = 0xFF
	}
	if !bytes.Equal(p.Bytes(), original) {
		t.Fatal("mutating Bytes() result changed the point")
	}
}

func TestNewPointFromBytesRejects(t *testing.T) {
	cases := map[string][]byte{
		"empty":    nil,
		"short":    make([]byte, 32),
		"infinity": make([]byte, curve.PointSize),
		"bad x":    append([]byte{0x02}, bytes.Repeat([]byte{0xFF}, 32)...),
	}
	for name, b := range cases {
		if _, err := curve.NewPointFromBytes(b); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestScalarArithmetic(t *testing.T) {
	a, b := mustScalar(t), mustScalar(t)

	if !a.Add(b).Sub(b).Equal(a) {
		t.Fatal("(a+b)-b != a")
	}
	if !a.Add(a.Negate()).IsZero() {
		t.Fatal("a + (-a) != 0")
	}
	inv, err := a.Invert()
	if err != nil {
		t.Fatalf("Invert: %v", err)
	}
	if !a.Mul(inv).Equal(curve.NewScalarFromUint32(1)) {
		t.Fatal("a * a^-1 != 1")
	}
	if _, err := new(curve.Scalar).Invert(); err == nil {
		t.Fatal("expected error inverting zero")
	}
}

func TestScalarEncoding(t *testing.T) {
	a := mustScalar(t)
	b, err := curve.NewScalarFromBytes(a.Bytes())
	if err != nil {
		t.Fatalf("NewScalarFromBytes: %v", err)
	}
	if !a.Equal(b) {
		t.Fatal("scalar round trip mismatch")
	}
	if _, err := curve.NewScalarFromBytes(bytes.Repeat([]byte{0xFF}, 32)); err == nil {
		t.Fatal("expected overflow error")
	}
	if _, err := curve.NewScalarFromBytes([]byte{1}); err == nil {
		t.Fatal("expected length error")
	}
}

func TestPointLinearity(t *testing.T) {
	a, b := mustScalar(t), mustScalar(t)
	lhs := curve.BaseMul(a.Add(b))
	rhs := curve.BaseMul(a).Add(curve.BaseMul(b))
	if !lhs.Equal(rhs) {
		t.Fatal("(a+b)G != aG + bG")
	}

	p := curve.BaseMul(mustScalar(t))
	if !p.Mul(a).Mul(b).Equal(p.Mul(a.Mul(b))) {
		t.Fatal("b(aP) != (ab)P")
	}

	if !p.Add(p.Mul(curve.NewScalarFromUint32(1).Negate())).IsInfinity() {
		t.Fatal("P + (-P) is not infinity")
	}
}

func TestZeroize(t *testing.T) {
	a := mustScalar(t)
	a.Zeroize()
	if !a.IsZero() {
		t.Fatal("scalar not cleared")
	}
}

func TestHashToScalarDomainSeparation(t *testing.T) {
	x := curve.HashToScalar("test/a", []byte("ab"), []byte("c"))
	y := curve.HashToScalar("test/a", []byte("ab"), []byte("c"))
	if !x.Equal(y) {
		t.Fatal("HashToScalar is not deterministic")
	}
	if x.Equal(curve.HashToScalar("test/b", []byte("ab"), []byte("c"))) {
		t.Fatal("domain tag does not separate outputs")
	}
	if x.Equal(curve.HashToScalar("test/a", []byte("a"), []byte("bc"))) {
		t.Fatal("part boundaries are ambiguous")
	}
}

func TestHashToPoint(t *testing.T) {
	p := curve.HashToPoint("test/point", []byte("u"))
	q := curve.HashToPoint("test/point", []byte("u"))
	if !p.Equal(q) {
		t.Fatal("HashToPoint is not deterministic")
	}
	if p.IsInfinity() {
		t.Fatal("HashToPoint returned infinity")
	}
	if p.Equal(curve.Generator()) {
		t.Fatal("HashToPoint returned the generator")
	}
	if _, err := curve.NewPointFromBytes(p.Bytes()); err != nil {
		t.Fatalf("hashed point does not decode: %v", err)
	}
}
