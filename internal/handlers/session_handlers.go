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
)

// SessionHandler exposes the widget's session endpoints. All routes sit
// behind API key auth, so the client is always present in the context.
type SessionHandler struct {
	sessionService *services.SessionService
}

func NewSessionHandler(sessionSvc *services.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionSvc}
}

// clientFromContext pulls the authenticated widget client or writes a 401.
func clientFromContext(w http.ResponseWriter, r *http.Request) (*models.Client, bool) {
	client, ok := auth.GetClientFromContext(r.Context())
	if !ok {
		httputil.RespondError(w, http.StatusUnauthorized, "Client authentication required")
		return nil, false
	}
	return client, true
}

// HandleCreateSession handles POST /v1/chat/sessions.
func (h *SessionHandler) HandleCreateSession(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}

	var req models.CreateSessionRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
			return
		}
	}
	defer r.Body.Close()

	resp, err := h.sessionService.CreateSession(r.Context(), client.ID, req)
	if err != nil {
		log.Printf("CreateSession handler failed for client %s: %v", client.ID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleListSessions handles GET /v1/chat/sessions.
func (h *SessionHandler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}

	limit := intQuery(r, "limit", 0)
	offset := intQuery(r, "offset", 0)

	resp, err := h.sessionService.ListSessions(r.Context(), client.ID, limit, offset)
	if err != nil {
		log.Printf("ListSessions handler failed for client %s: %v", client.ID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleGetSession handles GET /v1/chat/sessions/{sessionID}.
func (h *SessionHandler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}
	sessionID, err := uuidParam(r, "sessionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.sessionService.GetSession(r.Context(), client.ID, sessionID)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		log.Printf("GetSession handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to fetch session")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleListMessages handles GET /v1/chat/sessions/{sessionID}/messages.
func (h *SessionHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}
	sessionID, err := uuidParam(r, "sessionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := intQuery(r, "limit", 0)
	resp, err := h.sessionService.ListMessages(r.Context(), client.ID, sessionID, limit)
	if err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		log.Printf("ListMessages handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to list messages")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleDeleteSession handles DELETE /v1/chat/sessions/{sessionID}.
func (h *SessionHandler) HandleDeleteSession(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}
	sessionID, err := uuidParam(r, "sessionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.sessionService.DeleteSession(r.Context(), client.ID, sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		log.Printf("DeleteSession handler failed: %v", err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
