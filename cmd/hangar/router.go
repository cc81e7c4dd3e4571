package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/hangar/pkg/control"
	"github.com/platinummonkey/hangar/pkg/dependencies"
	"github.com/platinummonkey/hangar/pkg/host"
	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/platinummonkey/hangar/pkg/middleware"
	"github.com/platinummonkey/hangar/pkg/observability"
	"github.com/platinummonkey/hangar/pkg/plugins"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/platinummonkey/hangar/pkg/signing"
	"github.com/sirupsen/logrus"
)

type routerDeps struct {
	Log      *logrus.Entry
	Metrics  *observability.Metrics
	SDK      *sdk.SDK
	Registry *plugins.Registry
	Control  *control.Service
	Limiter  middleware.Limiter
	Verifier *signing.Verifier
	Proxies  *httputil.ProxyResolver
	Origins  []string
}

// newRouter serves /_host reads openly and /_plugins behind
// CORS, then rate limiting, then signature verification.
func newRouter(d routerDeps) http.Handler {
	router := mux.NewRouter()

	host.NewHandlers(d.SDK, d.Log).RegisterRoutes(router)
	dependencies.NewGraphHandlers(d.Registry).RegisterRoutes(router)

	controlRouter := mux.NewRouter()
	control.NewHandlers(d.Control, d.Log).RegisterRoutes(controlRouter)
	router.PathPrefix("/_plugins").Handler(httputil.Chain(
		httputil.CORSMiddleware(d.Origins),
		middleware.NewRateLimitMiddleware(d.Limiter, d.Log, d.Metrics).WithClientIP(d.Proxies.ClientIP).Handler,
		middleware.NewSignatureMiddleware(d.Verifier, d.Log, d.Metrics).Handler,
	)(controlRouter))

	router.Use(observability.HTTPMetricsMiddleware(d.Metrics))

	return httputil.Chain(
		httputil.RecoveryMiddleware(d.Log),
		httputil.RequestIDMiddleware,
		observability.TracingMiddleware("hangar"),
		httputil.LoggingMiddleware(d.Log),
	)(router)
}
