package curve

import (
	"math/big"
	"runtime"

	"github.com/btcsuite/btcd/btcec/v2"
)

const (
	// ScalarSize is the encoded size of a Scalar in bytes.
	ScalarSize = 32

	// PointSize is the encoded size of a compressed Point in bytes.
	PointSize = 33
)

// Name is the curve identifier carried in logs and configuration.
const Name = "secp256k1"

// order returns the group order n. The returned value must not be mutated.
func order() *big.Int {
	return btcec.S256().Params().N
}

// zeroizeBytes overwrites the provided slice with zeros and prevents compiler
// dead store elimination using runtime.KeepAlive.
// Local duplicate to avoid import cycles with the top-level pre package.
func zeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}
