package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"embedchat-backend/internal/files"
	"embedchat-backend/internal/services"
	"embedchat-backend/pkg/httputil"
)

// FileHandler exposes the widget's data file endpoints.
type FileHandler struct {
	fileService *services.FileService
	maxBytes    int64
}

func NewFileHandler(fileSvc *services.FileService, maxBytes int64) *FileHandler {
	if maxBytes <= 0 {
		maxBytes = files.DefaultMaxFileBytes
	}
	return &FileHandler{
		fileService: fileSvc,
		maxBytes:    maxBytes,
	}
}

// HandleUpload handles POST /v1/chat/sessions/{sessionID}/files as a
// multipart form with a single "file" field.
func (h *FileHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}
	sessionID, err := uuidParam(r, "sessionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		httputil.RespondError(w, http.StatusRequestEntityTooLarge, "Upload too large or malformed")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Missing file field")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Failed to read upload")
		return
	}

	resp, err := h.fileService.Upload(r.Context(), client.ID, sessionID, header.Filename, content)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, files.ErrEmptyFile),
			errors.Is(err, files.ErrUnsupportedType):
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, files.ErrFileTooLarge):
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			// Parse failures of the file content are client errors too.
			log.Printf("Upload handler failed for session %s: %v", sessionID, err)
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	httputil.RespondJSON(w, http.StatusCreated, resp)
}

// HandleGetActive handles GET /v1/chat/sessions/{sessionID}/files.
func (h *FileHandler) HandleGetActive(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}
	sessionID, err := uuidParam(r, "sessionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.fileService.GetActive(r.Context(), client.ID, sessionID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound):
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
		case errors.Is(err, services.ErrNoActiveFile):
			httputil.RespondError(w, http.StatusNotFound, "No active file for session")
		default:
			log.Printf("GetActive handler failed for session %s: %v", sessionID, err)
			httputil.RespondError(w, http.StatusInternalServerError, "Failed to fetch file")
		}
		return
	}
	httputil.RespondJSON(w, http.StatusOK, resp)
}

// HandleRemove handles DELETE /v1/chat/sessions/{sessionID}/files.
func (h *FileHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	client, ok := clientFromContext(w, r)
	if !ok {
		return
	}
	sessionID, err := uuidParam(r, "sessionID")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.fileService.Remove(r.Context(), client.ID, sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			httputil.RespondError(w, http.StatusNotFound, "Session not found")
			return
		}
		log.Printf("Remove handler failed for session %s: %v", sessionID, err)
		httputil.RespondError(w, http.StatusInternalServerError, "Failed to remove file")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
