package httputil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJSON(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/", strings.NewReader(`{"theme":"dark"}`))
		var dest map[string]any
		require.NoError(t, ParseJSON(r, &dest))
		assert.Equal(t, "dark", dest["theme"])
	})

	t.Run("invalid", func(t *testing.T) {
		r := httptest.NewRequest("PUT", "/", strings.NewReader(`{invalid`))
		var dest map[string]any
		err := ParseJSON(r, &dest)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid JSON")
	})
}

func TestParseJSONOrError(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest("PUT", "/", strings.NewReader(`nope`))
	var dest map[string]any

	ok := ParseJSONOrError(w, r, &dest)

	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParsePathStringOrError(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		r := mux.SetURLVars(httptest.NewRequest("GET", "/", nil), map[string]string{"name": "chat"})
		w := httptest.NewRecorder()

		name, ok := ParsePathStringOrError(w, r, "name")
		assert.True(t, ok)
		assert.Equal(t, "chat", name)
	})

	t.Run("missing", func(t *testing.T) {
		w := httptest.NewRecorder()
		_, ok := ParsePathStringOrError(w, httptest.NewRequest("GET", "/", nil), "name")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "missing path parameter: name")
	})
}

func TestParseQueryString(t *testing.T) {
	r := httptest.NewRequest("GET", "/?format=dot", nil)
	assert.Equal(t, "dot", ParseQueryString(r, "format", "json"))
	assert.Equal(t, "table", ParseQueryString(r, "output", "table"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "10.0.0.1:5555", "10.0.0.1"},
		{"forwarded for ignored", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "10.0.0.1:5555", "10.0.0.1"},
		{"real ip ignored", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.1:5555", "10.0.0.1"},
		{"no port", nil, "10.0.0.2", "10.0.0.2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(r))
		})
	}
}

func TestProxyResolver_ClientIP(t *testing.T) {
	resolver, err := NewProxyResolver([]string{"10.0.0.0/8", "192.168.1.5"})
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"untrusted peer keeps its address", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "198.51.100.7:5555", "198.51.100.7"},
		{"trusted peer", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "10.0.0.1:5555", "203.0.113.9"},
		{"trusted single address", map[string]string{"X-Forwarded-For": "203.0.113.9"}, "192.168.1.5:5555", "203.0.113.9"},
		{"spoofed leftmost hop", map[string]string{"X-Forwarded-For": "1.2.3.4, 203.0.113.9, 10.1.1.1"}, "10.0.0.1:5555", "203.0.113.9"},
		{"real ip fallback", map[string]string{"X-Real-IP": "198.51.100.4"}, "10.0.0.1:5555", "198.51.100.4"},
		{"all hops trusted", map[string]string{"X-Forwarded-For": "10.2.2.2"}, "10.0.0.1:5555", "10.0.0.1"},
		{"no headers", nil, "10.0.0.1:5555", "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, resolver.ClientIP(r))
		})
	}
}

func TestNewProxyResolver_Invalid(t *testing.T) {
	_, err := NewProxyResolver([]string{"10.0.0.0/8", "not-an-ip"})
	assert.Error(t, err)

	resolver, err := NewProxyResolver(nil)
	require.NoError(t, err)
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.9")
	assert.Equal(t, "10.0.0.1", resolver.ClientIP(r))
}
