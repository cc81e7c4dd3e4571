package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/sirupsen/logrus"
)

// RateLimitMessage is the body of every 429 response
const RateLimitMessage = "Too many requests, please try again later"

// RateLimitConfig defines rate limiting configuration
type RateLimitConfig struct {
	// RequestsPerWindow is the max requests allowed in the time window
	RequestsPerWindow int
	// WindowDuration is the length of the sliding window
	WindowDuration time.Duration
}

// DefaultRateLimitConfig returns default rate limit settings: 30 requests per minute
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 30,
		WindowDuration:    time.Minute,
	}
}

// Decision is the outcome of one rate limit check
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	// Reset is when the oldest counted request leaves the window
	Reset time.Time
}

// Limiter decides whether the caller identified by key may proceed.
// Allow must be an atomic increment-and-check.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// SlidingWindowLimiter is an in-memory sliding window log keyed by caller
type SlidingWindowLimiter struct {
	config  *RateLimitConfig
	windows map[string]*window
	mu      sync.Mutex
	now     func() time.Time
}

type window struct {
	hits []time.Time
	mu   sync.Mutex
}

// NewSlidingWindowLimiter creates a new in-memory limiter
func NewSlidingWindowLimiter(config *RateLimitConfig) *SlidingWindowLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	return &SlidingWindowLimiter{
		config:  config,
		windows: make(map[string]*window),
		now:     time.Now,
	}
}

// Allow records a request for key if the window has room. It never fails.
func (rl *SlidingWindowLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	w, exists := rl.windows[key]
	if !exists {
		w = &window{}
		rl.windows[key] = w
	}
	rl.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	now := rl.now()
	w.evict(now.Add(-rl.config.WindowDuration))

	d := Decision{Limit: rl.config.RequestsPerWindow}
	if len(w.hits) < rl.config.RequestsPerWindow {
		w.hits = append(w.hits, now)
		d.Allowed = true
	}
	d.Remaining = rl.config.RequestsPerWindow - len(w.hits)
	d.Reset = now.Add(rl.config.WindowDuration)
	if len(w.hits) > 0 {
		d.Reset = w.hits[0].Add(rl.config.WindowDuration)
	}
	return d, nil
}

// evict drops hits at or before cutoff; hits are kept in time order
func (w *window) evict(cutoff time.Time) {
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.hits = append(w.hits[:0], w.hits[i:]...)
	}
}

// Cleanup removes windows with no hits left (should be called periodically)
func (rl *SlidingWindowLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-rl.config.WindowDuration)
	for key, w := range rl.windows {
		w.mu.Lock()
		w.evict(cutoff)
		if len(w.hits) == 0 {
			delete(rl.windows, key)
		}
		w.mu.Unlock()
	}
}

// Len returns the number of tracked callers
func (rl *SlidingWindowLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

// StartCleanup starts a background goroutine to cleanup idle windows
func (rl *SlidingWindowLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				ticker.Stop()
				return
			}
		}
	}()
}

// RateLimitRecorder counts rejected requests
type RateLimitRecorder interface {
	RecordRateLimited()
}

// RateLimitMiddleware provides HTTP rate limiting keyed by client IP.
// It sits in front of authentication so unauthenticated requests consume budget too.
type RateLimitMiddleware struct {
	limiter  Limiter
	log      *logrus.Entry
	recorder RateLimitRecorder
	clientIP func(*http.Request) string
}

// NewRateLimitMiddleware creates a new rate limit middleware; recorder may be nil
func NewRateLimitMiddleware(limiter Limiter, log *logrus.Entry, recorder RateLimitRecorder) *RateLimitMiddleware {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &RateLimitMiddleware{
		limiter:  limiter,
		log:      log.WithField("component", "ratelimit"),
		recorder: recorder,
		clientIP: httputil.ClientIP,
	}
}

// WithClientIP replaces how the limiter key is derived from a request. The
// default is the connection's peer address.
func (m *RateLimitMiddleware) WithClientIP(resolve func(*http.Request) string) *RateLimitMiddleware {
	if resolve != nil {
		m.clientIP = resolve
	}
	return m
}

// Handler wraps an HTTP handler with rate limiting
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := m.clientIP(r)

		d, err := m.limiter.Allow(r.Context(), "ip:"+ip)
		if err != nil && d.Allowed {
			// Fail open on limiter backend errors
			m.log.WithError(err).Warn("Rate limiter unavailable, allowing request")
			next.ServeHTTP(w, r)
			return
		}

		if err != nil {
			m.log.WithError(err).Warn("Rate limiter error after denying request")
		}
		setRateLimitHeaders(w, d)

		if !d.Allowed {
			if m.recorder != nil {
				m.recorder.RecordRateLimited()
			}
			m.log.WithFields(logrus.Fields{
				"ip":   ip,
				"path": r.URL.Path,
			}).Warn("Rate limit exceeded")

			retryAfter := int(time.Until(d.Reset).Round(time.Second).Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteTooManyRequests(w, RateLimitMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func setRateLimitHeaders(w http.ResponseWriter, d Decision) {
	remaining := d.Remaining
	if remaining < 0 {
		remaining = 0
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
}
