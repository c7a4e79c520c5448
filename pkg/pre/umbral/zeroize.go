package umbral

import "runtime"

// zeroizeBytes overwrites buf and keeps it alive past the stores.
// Local copy to avoid an import cycle with pkg/pre.
func zeroizeBytes(buf []byte) {
	for i := range buf {
		buf[i] = 0
	}
	runtime.KeepAlive(buf)
}
