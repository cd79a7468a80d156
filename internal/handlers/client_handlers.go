package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"embedchat-backend/internal/auth"
	"embedchat-backend/internal/models"
	"embedchat-backend/internal/services"
	"embedchat-backend/pkg/httputil"

	"github.com/google/uuid"
)

// ClientHandler exposes the dashboard's tenant management endpoints.
type ClientHandler struct {
	clientService *services.ClientService
}

func NewClientHandler(clientSvc *services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientSvc}
}

// orgFromContext pulls the authenticated organization or writes a 401.
func orgFromContext(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	orgID, ok := auth.GetOrgIDFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return orgID, true
}

// HandleCreateClient handles POST /v1/clients.
func (h *ClientHandler) HandleCreateClient(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	var req models.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	client, key, err := h.clientService.CreateClient(r.Context(), orgID, req)
	if err != nil {
		if errors.Is(err, services.ErrValidation) {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		log.Printf("CreateClient handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to create client")
		return
	}

	// The API key is returned exactly once, at creation.
	httputil.RespondJSON(w, http.StatusCreated, struct {
		Client *models.ClientResponse `json:"client"`
		APIKey string                 `json:"api_key"`
	}{Client: client, APIKey: key.APIKey})
}

// HandleListClients handles GET /v1/clients.
func (h *ClientHandler) HandleListClients(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromContext(w, r)
	if !ok {
		return
	}

	resp, err := h.clientService.ListClients(r.Context(), orgID)
	if err != nil {
		log.Printf("ListClients handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list clients")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetClient handles GET /v1/clients/{clientID}.
func (h *ClientHandler) HandleGetClient(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromContext(w, r)
	if !ok {
		return
	}
	clientID, err := uuidParam(r, "clientID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.clientService.GetClient(r.Context(), orgID, clientID)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Client not found")
			return
		}
		log.Printf("GetClient handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to fetch client")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleUpdateClient handles PATCH /v1/clients/{clientID}.
func (h *ClientHandler) HandleUpdateClient(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromContext(w, r)
	if !ok {
		return
	}
	clientID, err := uuidParam(r, "clientID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.clientService.UpdateClient(r.Context(), orgID, clientID, req)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Client not found")
			return
		}
		log.Printf("UpdateClient handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to update client")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleRegenerateAPIKey handles POST /v1/clients/{clientID}/regenerate-key.
func (h *ClientHandler) HandleRegenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromContext(w, r)
	if !ok {
		return
	}
	clientID, err := uuidParam(r, "clientID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.clientService.RegenerateAPIKey(r.Context(), orgID, clientID)
	if err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Client not found")
			return
		}
		log.Printf("RegenerateAPIKey handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to regenerate api key")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteClient handles DELETE /v1/clients/{clientID}.
func (h *ClientHandler) HandleDeleteClient(w http.ResponseWriter, r *http.Request) {
	orgID, ok := orgFromContext(w, r)
	if !ok {
		return
	}
	clientID, err := uuidParam(r, "clientID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.clientService.DeleteClient(r.Context(), orgID, clientID); err != nil {
		if errors.Is(err, services.ErrClientNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Client not found")
			return
		}
		log.Printf("DeleteClient handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete client")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
