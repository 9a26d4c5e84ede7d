package handler

import (
	"net/http"

	"github.com/toolrelay/toolrelay/internal/models"
	"github.com/toolrelay/toolrelay/internal/tools"
)

// ToolsHandler handles GET /tools
type ToolsHandler struct {
	registry *tools.Registry
}

func NewToolsHandler(registry *tools.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// List handles GET /tools
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	defs := h.registry.Definitions()
	models.WriteJSON(w, http.StatusOK, models.ToolsResponse{
		Tools: defs,
		Total: len(defs),
	})
}
