// Package internalcheck holds source-level policy tests for pkg/pre.
//
// The tests load the non-test sources of every package under pkg/pre with
// golang.org/x/tools/go/packages and reject:
//
//   - == and != on byte slices and byte arrays (use crypto/subtle),
//   - %x and %X verbs in fmt and log format strings, which is how secret
//     bytes end up in errors and logs,
//   - calls to umbral.GenerateKeyFrags outside pkg/pre/policy, so that key
//     fragments are only ever produced by a grant.
//
// The package has no exported API.
package internalcheck
