package signing

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

const (
	// TimestampHeader carries the signing time in decimal seconds
	TimestampHeader = "X-Plugin-Timestamp"
	// SignatureHeader carries the lowercase hex HMAC-SHA256 signature
	SignatureHeader = "X-Plugin-Signature"

	// MinSecretLength is the minimum shared secret size in bytes
	MinSecretLength = 32
	// DefaultMaxSkew bounds how far a timestamp may drift from the server clock
	DefaultMaxSkew = 30 * time.Second
)

var (
	// ErrMissingHeaders is returned when either authentication header is absent
	ErrMissingHeaders = errors.New("Missing authentication headers")
	// ErrExpired is returned when the timestamp is unparsable or outside the allowed skew
	ErrExpired = errors.New("Request expired")
	// ErrInvalidSignature is returned when the signature does not match
	ErrInvalidSignature = errors.New("Invalid signature")
	// ErrReplayed is returned when an accepted signature is presented again
	ErrReplayed = errors.New("Request already processed")
	// ErrWeakSecret is returned when the shared secret is too short
	ErrWeakSecret = fmt.Errorf("shared secret must be at least %d bytes", MinSecretLength)
)

// CanonicalMessage builds the string that is signed: METHOD:PATH:TIMESTAMP:BODY
func CanonicalMessage(method, path string, timestamp int64, body []byte) []byte {
	var b bytes.Buffer
	b.Grow(len(method) + len(path) + len(body) + 24)
	b.WriteString(method)
	b.WriteByte(':')
	b.WriteString(path)
	b.WriteByte(':')
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteByte(':')
	b.Write(body)
	return b.Bytes()
}

func computeSignature(secret []byte, method, path string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(CanonicalMessage(method, path, timestamp, body))
	return hex.EncodeToString(mac.Sum(nil))
}

func checkSecret(secret []byte) error {
	if len(secret) < MinSecretLength {
		return ErrWeakSecret
	}
	return nil
}

// Signature is the pair of header values for one request
type Signature struct {
	Timestamp int64
	Value     string
}

// Signer signs outgoing control requests
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a signer for the shared secret
func NewSigner(secret []byte) (*Signer, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	return &Signer{secret: append([]byte(nil), secret...), now: time.Now}, nil
}

// Sign signs method, path and body at the current time
func (s *Signer) Sign(method, path string, body []byte) Signature {
	ts := s.now().Unix()
	return Signature{
		Timestamp: ts,
		Value:     computeSignature(s.secret, method, path, ts, body),
	}
}

// SignRequest sets the authentication headers on req. body must be the exact
// bytes sent; when req.Body is nil it is set from body.
func (s *Signer) SignRequest(req *http.Request, body []byte) {
	sig := s.Sign(req.Method, req.URL.Path, body)
	req.Header.Set(TimestampHeader, strconv.FormatInt(sig.Timestamp, 10))
	req.Header.Set(SignatureHeader, sig.Value)

	if req.Body == nil && len(body) > 0 {
		req.Body = io.NopCloser(bytes.NewReader(body))
		req.ContentLength = int64(len(body))
	}
}
