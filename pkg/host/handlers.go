package host

import (
	"net/http"
	"sort"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/platinummonkey/hangar/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// Handlers serves the SDK's accumulated state to the view layer
type Handlers struct {
	sdk *sdk.SDK
	log *logrus.Entry
}

// NewHandlers creates new host handlers
func NewHandlers(s *sdk.SDK, log *logrus.Entry) *Handlers {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handlers{sdk: s, log: log.WithField("component", "host")}
}

// RegisterRoutes registers host read routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/_host/routes", h.listRoutes).Methods("GET")
	router.HandleFunc("/_host/components", h.listComponents).Methods("GET")
	router.HandleFunc("/_host/translations/{locale}", h.getTranslations).Methods("GET")
	router.HandleFunc("/_host/stores", h.listStores).Methods("GET")
}

type routeView struct {
	Path   string        `json:"path"`
	Name   string        `json:"name"`
	Plugin string        `json:"plugin"`
	Meta   sdk.RouteMeta `json:"meta"`
	Module sdk.Module    `json:"module,omitempty"`
}

type componentView struct {
	Name   string     `json:"name"`
	Plugin string     `json:"plugin"`
	Module sdk.Module `json:"module,omitempty"`
}

type storeView struct {
	Name   string         `json:"name"`
	Plugin string         `json:"plugin"`
	State  map[string]any `json:"state"`
}

// listRoutes handles GET /_host/routes
func (h *Handlers) listRoutes(w http.ResponseWriter, r *http.Request) {
	routes := h.sdk.Routes()
	views := make([]routeView, 0, len(routes))
	for _, route := range routes {
		views = append(views, routeView{
			Path:   route.Path,
			Name:   route.Name,
			Plugin: route.Plugin,
			Meta:   route.Meta,
			Module: h.resolve(r, route.Load, route.Name),
		})
	}
	httputil.WriteSuccess(w, views)
}

// listComponents handles GET /_host/components
func (h *Handlers) listComponents(w http.ResponseWriter, r *http.Request) {
	components := h.sdk.Components()
	names := make([]string, 0, len(components))
	for name := range components {
		names = append(names, name)
	}
	sort.Strings(names)

	views := make([]componentView, 0, len(names))
	for _, name := range names {
		c := components[name]
		views = append(views, componentView{Name: name, Plugin: c.Plugin, Module: h.resolve(r, c.Load, name)})
	}
	httputil.WriteSuccess(w, views)
}

// getTranslations handles GET /_host/translations/{locale}
func (h *Handlers) getTranslations(w http.ResponseWriter, r *http.Request) {
	locale, ok := httputil.ParsePathStringOrError(w, r, "locale")
	if !ok {
		return
	}
	httputil.WriteSuccess(w, Catalog(h.sdk, locale))
}

// listStores handles GET /_host/stores
func (h *Handlers) listStores(w http.ResponseWriter, r *http.Request) {
	stores := h.sdk.Stores()
	names := make([]string, 0, len(stores))
	for name := range stores {
		names = append(names, name)
	}
	sort.Strings(names)

	views := make([]storeView, 0, len(names))
	for _, name := range names {
		st := stores[name]
		views = append(views, storeView{Name: name, Plugin: st.Plugin(), State: st.Snapshot()})
	}
	httputil.WriteSuccess(w, views)
}

// resolve runs a loader on behalf of the renderer; failures are logged and omitted
func (h *Handlers) resolve(r *http.Request, load sdk.Loader, name string) sdk.Module {
	if load == nil {
		return nil
	}
	mod, err := load(r.Context())
	if err != nil {
		h.log.WithError(err).WithField("name", name).Warn("Loader failed")
		return nil
	}
	return mod
}
