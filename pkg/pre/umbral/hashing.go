package umbral

import (
	"github.com/manishvishnoi2/nucypher/pkg/pre/curve"
)

// Domain separation tags.
const (
	dstCapsule        = "NUCYPHER/UMBRAL/CAPSULE"
	dstNonInteractive = "NUCYPHER/UMBRAL/NON_INTERACTIVE"
	dstXCoordinate    = "NUCYPHER/UMBRAL/X_COORDINATE"
	dstProof          = "NUCYPHER/UMBRAL/CFRAG_VERIFICATION"
	dstParameterU     = "NUCYPHER/UMBRAL/PARAMETERS"
	dstKeyDerivation  = "NUCYPHER/UMBRAL/KEY_DERIVATION/"
	infoDEM           = "NUCYPHER/UMBRAL/DEM"
	parameterUMessage = "POINT_U"
)

var paramU = curve.HashToPoint(dstParameterU, []byte(parameterUMessage))

// ParameterU returns the public point U that key fragment commitments are
// computed against.
func ParameterU() *curve.Point {
	return paramU
}

func hashPoints(dst string, extra []byte, points ...*curve.Point) *curve.Scalar {
	parts := make([][]byte, 0, len(points)+1)
	for _, p := range points {
		parts = append(parts, p.Bytes())
	}
	if extra != nil {
		parts = append(parts, extra)
	}
	return curve.HashToScalar(dst, parts...)
}

// nonInteractiveD returns d = H(X_A, B, dh).
func nonInteractiveD(precursor, receiving, dh *curve.Point) *curve.Scalar {
	return hashPoints(dstNonInteractive, nil, precursor, receiving, dh)
}

// shareIndex returns the polynomial evaluation point for a kfrag id.
func shareIndex(precursor, receiving, dh *curve.Point, id []byte) *curve.Scalar {
	return hashPoints(dstXCoordinate, id, precursor, receiving, dh)
}
