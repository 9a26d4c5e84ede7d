package handler

import (
	"net/http"
	"strings"

	"github.com/toolrelay/toolrelay/internal/models"
)

// IndexHandler handles GET / with the list of available routes
type IndexHandler struct {
	routes []string
}

func NewIndexHandler(apiPrefix string) *IndexHandler {
	prefix := strings.TrimSuffix(apiPrefix, "/")
	return &IndexHandler{routes: []string{
		"GET /health",
		"GET " + prefix + "/tools",
		"POST " + prefix + "/chat",
	}}
}

func (h *IndexHandler) Index(w http.ResponseWriter, r *http.Request) {
	models.WriteJSON(w, http.StatusOK, models.IndexResponse{
		Message: "toolrelay API",
		Routes:  h.routes,
	})
}
