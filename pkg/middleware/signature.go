package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/platinummonkey/hangar/pkg/signing"
	"github.com/sirupsen/logrus"
)

// MaxSignedBody bounds the body read for signature verification
const MaxSignedBody = 1 << 20

// AuthRecorder counts authentication outcomes
type AuthRecorder interface {
	RecordAuth(result string)
}

// SignatureMiddleware authenticates signed control requests
type SignatureMiddleware struct {
	verifier *signing.Verifier
	log      *logrus.Entry
	recorder AuthRecorder
}

// NewSignatureMiddleware creates a new signature middleware; recorder may be nil
func NewSignatureMiddleware(verifier *signing.Verifier, log *logrus.Entry, recorder AuthRecorder) *SignatureMiddleware {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &SignatureMiddleware{
		verifier: verifier,
		log:      log.WithField("component", "auth"),
		recorder: recorder,
	}
}

// Handler wraps an HTTP handler with signature verification.
// The body is buffered and restored so handlers can read it again.
func (m *SignatureMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(r.Body, MaxSignedBody+1))
			r.Body.Close()
			if err != nil {
				m.reject(w, r, "invalid_body", signing.ErrInvalidSignature)
				return
			}
			if len(body) > MaxSignedBody {
				m.record("too_large")
				httputil.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
		}

		err := m.verifier.Verify(
			r.Method,
			r.URL.Path,
			r.Header.Get(signing.TimestampHeader),
			r.Header.Get(signing.SignatureHeader),
			body,
		)
		if err != nil {
			m.reject(w, r, resultFor(err), err)
			return
		}

		m.record("ok")
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func (m *SignatureMiddleware) reject(w http.ResponseWriter, r *http.Request, result string, err error) {
	m.record(result)

	fields := logrus.Fields{
		"ip":   httputil.ClientIP(r),
		"path": r.URL.Path,
	}
	if errors.Is(err, signing.ErrInvalidSignature) {
		m.log.WithFields(fields).Warn("Invalid signature")
	} else {
		m.log.WithFields(fields).WithField("reason", result).Info("Rejected control request")
	}

	httputil.WriteUnauthorized(w, err.Error())
}

func (m *SignatureMiddleware) record(result string) {
	if m.recorder != nil {
		m.recorder.RecordAuth(result)
	}
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, signing.ErrMissingHeaders):
		return "missing_headers"
	case errors.Is(err, signing.ErrExpired):
		return "expired"
	case errors.Is(err, signing.ErrReplayed):
		return "replayed"
	default:
		return "invalid_signature"
	}
}
