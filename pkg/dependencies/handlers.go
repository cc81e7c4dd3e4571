package dependencies

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/platinummonkey/hangar/pkg/httputil"
)

// NodeSource supplies the current set of plugin nodes
type NodeSource interface {
	DependencyNodes() []Node
}

// GraphHandlers provides read-only HTTP handlers for the plugin dependency graph
type GraphHandlers struct {
	source NodeSource
}

// NewGraphHandlers creates new graph handlers
func NewGraphHandlers(source NodeSource) *GraphHandlers {
	return &GraphHandlers{source: source}
}

// RegisterRoutes registers graph routes
func (h *GraphHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/_host/graph", h.getGraph).Methods("GET")
	router.HandleFunc("/_host/graph/order", h.getInstallOrder).Methods("GET")
	router.HandleFunc("/_host/graph/{name}/impact", h.getImpact).Methods("GET")
}

// getGraph handles GET /_host/graph
// Query parameters:
//   - format: "json" (Cytoscape.js, default) or "dot"
func (h *GraphHandlers) getGraph(w http.ResponseWriter, r *http.Request) {
	graph := NewGraph(h.source.DependencyNodes())

	if httputil.ParseQueryString(r, "format", "json") == "dot" {
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(graph.ToDOT()))
		return
	}

	httputil.WriteSuccess(w, graph.ToCytoscape())
}

// getInstallOrder handles GET /_host/graph/order
func (h *GraphHandlers) getInstallOrder(w http.ResponseWriter, r *http.Request) {
	order, err := Resolve(h.source.DependencyNodes())
	if err != nil {
		httputil.WriteErrorMessage(w, http.StatusConflict, err.Error())
		return
	}

	httputil.WriteSuccess(w, map[string]interface{}{
		"order": order,
		"count": len(order),
	})
}

// getImpact handles GET /_host/graph/{name}/impact
func (h *GraphHandlers) getImpact(w http.ResponseWriter, r *http.Request) {
	name, ok := httputil.ParsePathStringOrError(w, r, "name")
	if !ok {
		return
	}

	graph := NewGraph(h.source.DependencyNodes())
	if _, exists := graph.Node(name); !exists {
		httputil.WriteNotFoundError(w, "Plugin not found")
		return
	}

	httputil.WriteSuccess(w, graph.Impact(name))
}
