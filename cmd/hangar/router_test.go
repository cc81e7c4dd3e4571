package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/platinummonkey/hangar/pkg/control"
	"github.com/platinummonkey/hangar/pkg/host"
	"github.com/platinummonkey/hangar/pkg/middleware"
	"github.com/platinummonkey/hangar/pkg/observability"
	"github.com/platinummonkey/hangar/pkg/plugins"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/platinummonkey/hangar/pkg/signing"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("router-test-secret-that-is-long-enough")

type testApp struct {
	handler http.Handler
	metrics *observability.Metrics
	signer  *signing.Signer
}

// newTestApp boots core and chat (chat depends on core) the way main does
func newTestApp(t *testing.T, requests int) *testApp {
	t.Helper()
	ctx := context.Background()
	logger, _ := test.NewNullLogger()
	log := logrus.NewEntry(logger)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	registry := plugins.NewRegistry(plugins.WithLogger(log), plugins.WithObserver(metrics.ObserveTransition))
	kernel := sdk.New(nil, sdk.NewEventBus())

	store, err := control.NewFileStore(filepath.Join(t.TempDir(), "plugins.json"))
	require.NoError(t, err)
	svc := control.NewService(store, control.WithKernel(registry, kernel), control.WithLogger(log))
	require.NoError(t, svc.Load(ctx))

	descriptors := []plugins.Descriptor{
		{
			Name:         "chat",
			Version:      "1.2.0",
			Dependencies: plugins.DependencyRanges{"core": "^1.0.0"},
			Install: func(ctx context.Context, pc *plugins.Context, s *sdk.PluginSDK) error {
				return s.AddRoute(sdk.Route{Path: "/chat", Name: "chat"})
			},
		},
		{Name: "core", Version: "1.0.0"},
	}
	require.NoError(t, host.Bootstrap(ctx, registry, kernel, descriptors, svc.Enabled, log))
	require.NoError(t, svc.Reconcile(ctx))
	metrics.SetPluginCounts(registry.CountByStatus())

	verifier, err := signing.NewVerifier(testSecret)
	require.NoError(t, err)
	signer, err := signing.NewSigner(testSecret)
	require.NoError(t, err)

	return &testApp{
		handler: newRouter(routerDeps{
			Log:      log,
			Metrics:  metrics,
			SDK:      kernel,
			Registry: registry,
			Control:  svc,
			Limiter: middleware.NewSlidingWindowLimiter(&middleware.RateLimitConfig{
				RequestsPerWindow: requests,
				WindowDuration:    time.Minute,
			}),
			Verifier: verifier,
			Origins:  []string{"https://admin.example.com"},
		}),
		metrics: metrics,
		signer:  signer,
	}
}

func (a *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, req)
	return w
}

func (a *testApp) signed(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	a.signer.SignRequest(req, nil)
	return a.do(req)
}

func TestRouter_HostRoutesAreOpen(t *testing.T) {
	app := newTestApp(t, 30)

	w := app.do(httptest.NewRequest("GET", "/_host/routes", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/chat"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = app.do(httptest.NewRequest("GET", "/_host/graph/order", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Order []string `json:"order"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, []string{"core", "chat"}, body.Order)

	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.HTTPRequestsTotal.WithLabelValues("GET", "/_host/routes", "200")))
}

func TestRouter_ControlRequiresSignature(t *testing.T) {
	app := newTestApp(t, 30)

	w := app.do(httptest.NewRequest("GET", "/_plugins", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.signed("GET", "/_plugins")
	require.Equal(t, http.StatusOK, w.Code)
	var list control.PluginList
	require.NoError(t, json.NewDecoder(w.Body).Decode(&list))
	assert.Equal(t, 2, list.Total)

	w = app.signed("POST", "/_plugins/core/enable")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `Plugin \"core\" enabled`)
}

func TestRouter_PreflightSkipsRateLimitAndAuth(t *testing.T) {
	app := newTestApp(t, 1)

	req := httptest.NewRequest("OPTIONS", "/_plugins", nil)
	req.Header.Set("Origin", "https://admin.example.com")
	w := app.do(req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://admin.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	// the single slot is still available
	assert.Equal(t, http.StatusOK, app.signed("GET", "/_plugins").Code)
	assert.Equal(t, http.StatusTooManyRequests, app.signed("GET", "/_plugins").Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.RateLimitedTotal))
}

func TestRouter_PluginGauges(t *testing.T) {
	app := newTestApp(t, 30)

	// chat and core are both enabled by default
	assert.Equal(t, 2.0, testutil.ToFloat64(app.metrics.Plugins.WithLabelValues(plugins.StatusActive.String())))

	require.Equal(t, http.StatusOK, app.signed("POST", "/_plugins/chat/disable").Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.Plugins.WithLabelValues(plugins.StatusActive.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(app.metrics.Plugins.WithLabelValues(plugins.StatusInactive.String())))
}
