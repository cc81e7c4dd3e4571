// Package signing implements the signed control protocol used between hosts.
//
// # Overview
//
// A request is signed by computing HMAC-SHA256 over
//
//	METHOD:PATH:TIMESTAMP:BODY
//
// with a shared secret of at least 32 bytes. The timestamp (decimal seconds)
// and the lowercase hex signature travel in the X-Plugin-Timestamp and
// X-Plugin-Signature headers.
//
// The verifier rejects, in order: missing headers, timestamps more than 30
// seconds from the server clock, and signature mismatches. Signatures are
// compared in constant time. An optional replay cache also rejects a
// signature that has already been accepted.
//
// # Usage Example
//
//	signer, err := signing.NewSigner(secret)
//	req, _ := http.NewRequest("POST", base+"/_plugins/chat/enable", nil)
//	signer.SignRequest(req, nil)
//
//	verifier, err := signing.NewVerifier(secret, signing.WithReplayCache(10000))
//	err = verifier.Verify(r.Method, r.URL.Path,
//		r.Header.Get(signing.TimestampHeader),
//		r.Header.Get(signing.SignatureHeader), body)
//
// # Related Packages
//
//   - pkg/middleware: SignatureMiddleware wraps Verify for HTTP handlers
//   - pkg/client: signed admin client
package signing
