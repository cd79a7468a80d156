package handlers

import (
	"log"
	"net/http"

	"embedchat-backend/internal/models"
	"embedchat-backend/pkg/httputil"
)

// WidgetHandler serves the embed script's bootstrap configuration.
type WidgetHandler struct{}

func NewWidgetHandler() *WidgetHandler {
	return &WidgetHandler{}
}

// HandleGetConfig handles GET /v1/chat/widget-config. It returns only
// what the embed script needs to render: name and branding. Secrets and
// provider settings never leave the server.
func (h *WidgetHandler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}

	cfg, err := models.ParseClientConfig(client.Config)
	if err != nil {
		log.Printf("GetConfig handler: client %s has malformed config: %v", client.ID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Client configuration error")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, models.WidgetConfigResponse{
		ClientName: client.Name,
		Branding:   cfg.Branding,
	})
}
