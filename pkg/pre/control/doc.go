// Package control exposes the grantor, grantee and originator roles over
// HTTP.
//
// Routes:
//
//	PUT  /create_policy    grantor    bob_encrypting_key, label, m, n
//	PUT  /grant            grantor    as create_policy plus expiration_time
//	POST /join_policy      grantee    label, alice_signing_pubkey
//	POST /retrieve         grantee    label, policy_encrypting_pubkey,
//	                                  alice_signing_pubkey, message_kit,
//	                                  datasource_signing_pubkey
//	POST /encrypt_message  originator message
//
// Keys are hex encoded compressed secp256k1 points; labels, message kits,
// messages and treasure maps are standard base64. Every listed field is
// required; an empty message is still a valid plaintext. Each route accepts one
// method only. Request bodies are decoded into typed requests and validated
// before any cryptographic work; errors map to status codes by pre.Kind.
package control
