package control

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/hangar/pkg/httputil"
	"github.com/sirupsen/logrus"
)

// Handlers provides HTTP handlers for plugin management.
// They expect requests to be authenticated upstream.
type Handlers struct {
	service *Service
	log     *logrus.Entry
}

// NewHandlers creates new plugin management handlers
func NewHandlers(service *Service, log *logrus.Entry) *Handlers {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Handlers{
		service: service,
		log:     log.WithField("component", "control"),
	}
}

// RegisterRoutes registers plugin management routes
func (h *Handlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/_plugins", h.ListPlugins).Methods("GET")
	r.HandleFunc("/_plugins/{name}", h.GetPlugin).Methods("GET")
	r.HandleFunc("/_plugins/{name}/config", h.SaveConfig).Methods("PUT")
	r.HandleFunc("/_plugins/{name}/enable", h.EnablePlugin).Methods("POST")
	r.HandleFunc("/_plugins/{name}/disable", h.DisablePlugin).Methods("POST")
	r.HandleFunc("/_plugins/{name}/install", h.InstallPlugin).Methods("POST")
	r.HandleFunc("/_plugins/{name}/uninstall", h.UninstallPlugin).Methods("POST")
}

// ListPlugins handles GET /_plugins
func (h *Handlers) ListPlugins(w http.ResponseWriter, r *http.Request) {
	list := h.service.List(r.Context())
	httputil.WriteSuccess(w, PluginList{Plugins: list, Total: len(list)})
}

// GetPlugin handles GET /_plugins/{name}
func (h *Handlers) GetPlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	detail, found := h.service.Get(r.Context(), name)
	if !found {
		httputil.WriteNotFoundError(w, "Plugin not found")
		return
	}
	httputil.WriteSuccess(w, detail)
}

// SaveConfig handles PUT /_plugins/{name}/config
func (h *Handlers) SaveConfig(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	var config map[string]any
	if err := httputil.ParseJSON(r, &config); err != nil || config == nil {
		httputil.WriteBadRequest(w, "Config must be a JSON object")
		return
	}

	saved, err := h.service.SaveConfig(r.Context(), name, config)
	h.respond(w, name, saved, err, "Plugin not found", fmt.Sprintf("Configuration saved for plugin %q", name))
}

// EnablePlugin handles POST /_plugins/{name}/enable
func (h *Handlers) EnablePlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	done, err := h.service.Enable(r.Context(), name)
	h.respond(w, name, done, err, "Plugin not found or not installed", fmt.Sprintf("Plugin %q enabled", name))
}

// DisablePlugin handles POST /_plugins/{name}/disable
func (h *Handlers) DisablePlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	done, err := h.service.Disable(r.Context(), name)
	h.respond(w, name, done, err, "Plugin not found or not installed", fmt.Sprintf("Plugin %q disabled", name))
}

// InstallPlugin handles POST /_plugins/{name}/install
func (h *Handlers) InstallPlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	var req InstallRequest
	if err := httputil.ParseJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, "Invalid request body")
		return
	}

	if !h.service.Exists(name) {
		httputil.WriteNotFoundError(w, "Plugin not found")
		return
	}

	done, err := h.service.Install(r.Context(), name, req.Source)
	if err != nil {
		h.internalError(w, name, err)
		return
	}
	if !done {
		httputil.WriteBadRequest(w, "Plugin already installed")
		return
	}
	httputil.WriteMessage(w, fmt.Sprintf("Plugin %q installed", name))
}

// UninstallPlugin handles POST /_plugins/{name}/uninstall
func (h *Handlers) UninstallPlugin(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	done, err := h.service.Uninstall(r.Context(), name)
	h.respond(w, name, done, err, "Plugin not found or not installed", fmt.Sprintf("Plugin %q uninstalled", name))
}

func (h *Handlers) respond(w http.ResponseWriter, name string, done bool, err error, notFound, message string) {
	switch {
	case err != nil:
		h.internalError(w, name, err)
	case !done:
		httputil.WriteNotFoundError(w, notFound)
	default:
		httputil.WriteMessage(w, message)
	}
}

func (h *Handlers) internalError(w http.ResponseWriter, name string, err error) {
	h.log.WithError(err).WithField("plugin", name).Error("Plugin operation failed")
	httputil.WriteInternalError(w, err)
}
