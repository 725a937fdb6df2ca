package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sagefy-edu/sagefy/internal/extract"
	"github.com/sagefy-edu/sagefy/internal/identity"
	"github.com/sagefy-edu/sagefy/internal/ingest"
)

// maxUploadBytes bounds the decoded upload size.
const maxUploadBytes = 32 << 20 // 32 MiB

// maxUploadBodyBytes bounds the wire body: base64 inflates the file by
// 4/3, plus room for the JSON envelope.
const maxUploadBodyBytes = maxUploadBytes/3*4 + 4096

// Ingestor is what the upload endpoint needs from the ingest pipeline.
type Ingestor interface {
	Ingest(ctx context.Context, doc ingest.RawDocument) (int, error)
}

// Purger is what the delete endpoint needs from the vector store.
type Purger interface {
	DeleteByFileID(ctx context.Context, fileID string) error
}

// FilesHandler serves document management endpoints. Both are staff
// operations; students get 403.
type FilesHandler struct {
	auth     Authenticator
	ingestor Ingestor
	purger   Purger
	logger   *slog.Logger
}

// NewFilesHandler creates a files handler.
func NewFilesHandler(auth Authenticator, ingestor Ingestor, purger Purger, logger *slog.Logger) *FilesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilesHandler{auth: auth, ingestor: ingestor, purger: purger, logger: logger}
}

// RegisterRoutes registers file routes on the given mux.
func (h *FilesHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/files", h.handleUpload)
	mux.HandleFunc("DELETE /api/files", h.handleDelete)
}

// UploadRequest is the POST /api/files body.
type UploadRequest struct {
	FileName      string `json:"file_name"`
	ContentBase64 string `json:"content_base64"`
	ClassCode     string `json:"class_code,omitempty"`
}

// UploadResponse is the POST /api/files success body.
type UploadResponse struct {
	FileID string `json:"file_id"`
	Chunks int    `json:"chunks"`
}

func (h *FilesHandler) staffOnly(w http.ResponseWriter, r *http.Request) (identity.Identity, bool) {
	caller, err := h.auth.Authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid identity")
		return identity.Identity{}, false
	}
	if caller.Role == identity.RoleStudent {
		writeError(w, http.StatusForbidden, "forbidden", "document management requires a staff role")
		return identity.Identity{}, false
	}
	return caller, true
}

func (h *FilesHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.staffOnly(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBodyBytes)

	var req UploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}
	if req.FileName == "" || req.ContentBase64 == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "file_name and content_base64 are required")
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.ContentBase64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "content_base64 is not valid base64")
		return
	}
	if len(data) > maxUploadBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", "file exceeds the upload limit")
		return
	}

	chunks, err := h.ingestor.Ingest(r.Context(), ingest.RawDocument{
		Name:      req.FileName,
		Data:      data,
		ClassCode: req.ClassCode,
	})
	if err != nil {
		if errors.Is(err, extract.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, "unsupported_format", err.Error())
			return
		}
		h.logger.Error("ingestion failed", "file", req.FileName, "error", err, "user", caller.Email)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to ingest the document")
		return
	}

	h.logger.Info("document uploaded", "file", req.FileName, "chunks", chunks, "user", caller.Email)
	writeJSON(w, http.StatusOK, UploadResponse{FileID: req.FileName, Chunks: chunks})
}

func (h *FilesHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	caller, ok := h.staffOnly(w, r)
	if !ok {
		return
	}

	fileID := r.URL.Query().Get("file_id")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "file_id query parameter is required")
		return
	}

	if err := h.purger.DeleteByFileID(r.Context(), fileID); err != nil {
		h.logger.Error("purge failed", "file_id", fileID, "error", err, "user", caller.Email)
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to delete the document")
		return
	}

	h.logger.Info("document deleted", "file_id", fileID, "user", caller.Email)
	w.WriteHeader(http.StatusNoContent)
}
