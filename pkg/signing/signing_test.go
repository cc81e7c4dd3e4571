package signing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newPair(t *testing.T, now time.Time, opts ...Option) (*Signer, *Verifier) {
	t.Helper()
	signer, err := NewSigner(testSecret)
	require.NoError(t, err)
	signer.now = fixedClock(now)

	verifier, err := NewVerifier(testSecret, append([]Option{WithClock(fixedClock(now))}, opts...)...)
	require.NoError(t, err)
	return signer, verifier
}

func TestCanonicalMessage(t *testing.T) {
	msg := CanonicalMessage("PUT", "/_plugins/chat/config", 1700000000, []byte(`{"a":1}`))
	assert.Equal(t, `PUT:/_plugins/chat/config:1700000000:{"a":1}`, string(msg))

	assert.Equal(t, "POST:/_plugins/chat/enable:5:", string(CanonicalMessage("POST", "/_plugins/chat/enable", 5, nil)))
}

func TestSigner_Sign(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer, _ := newPair(t, now)

	sig := signer.Sign("POST", "/_plugins/chat/enable", nil)
	assert.Equal(t, int64(1700000000), sig.Timestamp)

	mac := hmac.New(sha256.New, testSecret)
	mac.Write([]byte("POST:/_plugins/chat/enable:1700000000:"))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), sig.Value)
	assert.Len(t, sig.Value, 64)
	assert.Equal(t, strings.ToLower(sig.Value), sig.Value)
}

func TestSigner_SignRequest(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer, verifier := newPair(t, now)
	body := []byte(`{"theme":"dark"}`)

	req, err := http.NewRequest("PUT", "http://host/_plugins/chat/config", nil)
	require.NoError(t, err)
	signer.SignRequest(req, body)

	assert.Equal(t, "1700000000", req.Header.Get(TimestampHeader))
	sent, err := io.ReadAll(req.Body)
	require.NoError(t, err)
	assert.Equal(t, body, sent)

	assert.NoError(t, verifier.Verify(req.Method, req.URL.Path,
		req.Header.Get(TimestampHeader), req.Header.Get(SignatureHeader), sent))
}

func TestNewSigner_WeakSecret(t *testing.T) {
	_, err := NewSigner([]byte("short"))
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewVerifier(testSecret[:31])
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestVerifier_Verify(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer, verifier := newPair(t, now)
	body := []byte(`{"enabled":true}`)
	sig := signer.Sign("PUT", "/_plugins/chat/config", body)
	ts := strconv.FormatInt(sig.Timestamp, 10)

	tests := []struct {
		name   string
		method string
		path   string
		ts     string
		sig    string
		body   []byte
		want   error
	}{
		{"valid", "PUT", "/_plugins/chat/config", ts, sig.Value, body, nil},
		{"missing timestamp", "PUT", "/_plugins/chat/config", "", sig.Value, body, ErrMissingHeaders},
		{"missing signature", "PUT", "/_plugins/chat/config", ts, "", body, ErrMissingHeaders},
		{"non numeric timestamp", "PUT", "/_plugins/chat/config", "yesterday", sig.Value, body, ErrExpired},
		{"tampered body", "PUT", "/_plugins/chat/config", ts, sig.Value, []byte(`{"enabled":false}`), ErrInvalidSignature},
		{"other path", "PUT", "/_plugins/billing/config", ts, sig.Value, body, ErrInvalidSignature},
		{"other method", "POST", "/_plugins/chat/config", ts, sig.Value, body, ErrInvalidSignature},
		{"truncated signature", "PUT", "/_plugins/chat/config", ts, sig.Value[:63], body, ErrInvalidSignature},
		{"uppercase signature", "PUT", "/_plugins/chat/config", ts, strings.ToUpper(sig.Value), body, ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifier.Verify(tt.method, tt.path, tt.ts, tt.sig, tt.body)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestVerifier_Freshness(t *testing.T) {
	now := time.Unix(1700000000, 0)

	tests := []struct {
		name   string
		signed time.Time
		want   error
	}{
		{"exactly 30s old", now.Add(-30 * time.Second), nil},
		{"31s old", now.Add(-31 * time.Second), ErrExpired},
		{"30s ahead", now.Add(30 * time.Second), nil},
		{"31s ahead", now.Add(31 * time.Second), ErrExpired},
		{"far future", time.Unix(10000000000000, 0), ErrExpired},
		{"2^40 seconds", time.Unix(1<<40, 0), ErrExpired},
		{"far past", time.Unix(-(1 << 40), 0), ErrExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer, verifier := newPair(t, now)
			signer.now = fixedClock(tt.signed)

			sig := signer.Sign("POST", "/_plugins/chat/enable", nil)
			err := verifier.Verify("POST", "/_plugins/chat/enable", strconv.FormatInt(sig.Timestamp, 10), sig.Value, nil)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestVerifier_FreshnessUsesWholeSeconds(t *testing.T) {
	signed := time.Unix(1700000000, 0)
	signer, verifier := newPair(t, signed.Add(30*time.Second+400*time.Millisecond))
	signer.now = fixedClock(signed)

	sig := signer.Sign("POST", "/_plugins/chat/enable", nil)
	assert.NoError(t, verifier.Verify("POST", "/_plugins/chat/enable", strconv.FormatInt(sig.Timestamp, 10), sig.Value, nil))
}

func TestVerifier_ExpiredBeforeSignatureCheck(t *testing.T) {
	now := time.Unix(1700000000, 0)
	_, verifier := newPair(t, now)

	old := strconv.FormatInt(now.Add(-time.Hour).Unix(), 10)
	err := verifier.Verify("POST", "/_plugins/chat/enable", old, "garbage", nil)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifier_WithMaxSkew(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer, verifier := newPair(t, now, WithMaxSkew(5*time.Second))
	assert.Equal(t, 5*time.Second, verifier.MaxSkew())

	signer.now = fixedClock(now.Add(-6 * time.Second))
	sig := signer.Sign("GET", "/_plugins", nil)
	err := verifier.Verify("GET", "/_plugins", strconv.FormatInt(sig.Timestamp, 10), sig.Value, nil)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerifier_ReplayCache(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer, verifier := newPair(t, now, WithReplayCache(100))

	sig := signer.Sign("POST", "/_plugins/chat/enable", nil)
	ts := strconv.FormatInt(sig.Timestamp, 10)

	require.NoError(t, verifier.Verify("POST", "/_plugins/chat/enable", ts, sig.Value, nil))
	assert.ErrorIs(t, verifier.Verify("POST", "/_plugins/chat/enable", ts, sig.Value, nil), ErrReplayed)

	other := signer.Sign("POST", "/_plugins/chat/disable", nil)
	assert.NoError(t, verifier.Verify("POST", "/_plugins/chat/disable", ts, other.Value, nil))
}

func TestVerifier_ReplayAllowedWithoutCache(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer, verifier := newPair(t, now)

	sig := signer.Sign("GET", "/_plugins", nil)
	ts := strconv.FormatInt(sig.Timestamp, 10)
	require.NoError(t, verifier.Verify("GET", "/_plugins", ts, sig.Value, nil))
	assert.NoError(t, verifier.Verify("GET", "/_plugins", ts, sig.Value, nil))
}
