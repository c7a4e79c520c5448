// Package pre is the shared vocabulary of the threshold proxy re-encryption
// system: error taxonomy, library configuration, the FragmentProvider
// contract between grantees and re-encryption nodes and its wire encoding.
//
// The protocol itself lives in subpackages:
//
//   - umbral: the proxy re-encryption scheme (capsules, key fragments,
//     capsule fragments).
//   - policy: the grantor side; creates policies and grants them to nodes.
//   - messagekit: the originator side; encrypts under a policy key.
//   - retrieval: the grantee side; joins policies and reconstructs
//     plaintexts from node responses.
//   - node and mocknet: re-encryption nodes and an in-memory network for
//     tests and local deployments.
//   - control: the HTTP control API wrapping the three roles.
//
// Errors returned by every subpackage wrap the sentinels declared here, so
// callers can classify failures with KindOf and errors.Is regardless of the
// layer that produced them.
package pre
