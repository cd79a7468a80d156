package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"embedchat-backend/internal/models"
	"embedchat-backend/internal/providers"
	"embedchat-backend/internal/services"
	"embedchat-backend/pkg/httputil"
)

// ChatHandler exposes the widget's message endpoint.
type ChatHandler struct {
	chatService *services.ChatService
}

func NewChatHandler(chatSvc *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatSvc}
}

// HandleSendMessage handles POST /v1/chat/message.
func (h *ChatHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}

	var req models.ChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	resp, err := h.chatService.SendMessage(r.Context(), client, req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmptyMessage), errors.Is(err, services.ErrValidation):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, services.ErrSessionNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, services.ErrSessionExpired):
			httputil.RespondError(w, http.StatusGone, "Session has expired")
		case errors.Is(err, providers.ErrProviderNotFound):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, providers.ErrMissingAPIKey):
			log.Printf("SendMessage: no provider key for client %s: %v", client.ID, err)
			httputil.RespondError(w, http.StatusBadGateway, "AI provider is not configured")
		default:
			log.Printf("SendMessage handler failed for client %s: %v", client.ID, err)
			httputil.RespondError(w, http.StatusBadGateway, "Failed to generate a response")
		}
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}
