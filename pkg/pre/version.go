package pre

var (
	Version     = "v0.0.0-in-progress"
	ProtocolTag = "umbral-secp256k1-v1"
)

// ModuleVersion returns the semantic version populated at build time via
// ldflags. In development it defaults to v0.0.0-in-progress.
func ModuleVersion() string {
	return Version
}
