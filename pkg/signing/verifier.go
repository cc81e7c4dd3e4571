package signing

import (
	"crypto/hmac"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// Option configures a Verifier
type Option func(*Verifier)

// WithClock overrides the clock used for freshness checks
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) {
		v.now = now
	}
}

// WithMaxSkew sets the allowed distance between request and server time
func WithMaxSkew(skew time.Duration) Option {
	return func(v *Verifier) {
		v.maxSkew = skew
	}
}

// WithReplayCache rejects reuse of accepted signatures, remembering up to size
// of them for twice the allowed skew
func WithReplayCache(size int) Option {
	return func(v *Verifier) {
		v.replaySize = size
	}
}

// Verifier authenticates signed control requests
type Verifier struct {
	secret  []byte
	now     func() time.Time
	maxSkew time.Duration

	replaySize int
	replayMu   sync.Mutex
	replay     *lru.LRU[string, struct{}]
}

// NewVerifier creates a verifier for the shared secret
func NewVerifier(secret []byte, opts ...Option) (*Verifier, error) {
	if err := checkSecret(secret); err != nil {
		return nil, err
	}

	v := &Verifier{
		secret:  append([]byte(nil), secret...),
		now:     time.Now,
		maxSkew: DefaultMaxSkew,
	}
	for _, opt := range opts {
		opt(v)
	}

	if v.replaySize > 0 {
		v.replay = lru.NewLRU[string, struct{}](v.replaySize, nil, 2*v.maxSkew)
	}
	return v, nil
}

// MaxSkew returns the configured freshness window
func (v *Verifier) MaxSkew() time.Duration {
	return v.maxSkew
}

// Verify checks, in order: both headers present, timestamp fresh, signature valid.
// The first failure is returned.
func (v *Verifier) Verify(method, path, timestampHeader, signatureHeader string, body []byte) error {
	if timestampHeader == "" || signatureHeader == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(timestampHeader, 10, 64)
	if err != nil {
		return ErrExpired
	}
	// Whole seconds in int64; time.Duration would saturate for distant timestamps
	limit := int64(v.maxSkew / time.Second)
	if d := v.now().Unix() - ts; d < -limit || d > limit {
		return ErrExpired
	}

	expected := computeSignature(v.secret, method, path, ts, body)
	if len(signatureHeader) != len(expected) || !hmac.Equal([]byte(signatureHeader), []byte(expected)) {
		return ErrInvalidSignature
	}

	if v.replay != nil {
		v.replayMu.Lock()
		defer v.replayMu.Unlock()
		if v.replay.Contains(expected) {
			return ErrReplayed
		}
		v.replay.Add(expected, struct{}{})
	}

	return nil
}
