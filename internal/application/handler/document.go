package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devlinduldulao/citizenship-application/internal/application/service"
	"github.com/devlinduldulao/citizenship-application/pkg/errors"
	"github.com/devlinduldulao/citizenship-application/pkg/httputil"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// DocumentHandler handles document upload and listing
type DocumentHandler struct {
	cases    *service.CaseService
	maxBytes int64
	logger   *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(cases *service.CaseService, maxBytes int64, log *logger.Logger) *DocumentHandler {
	return &DocumentHandler{
		cases:    cases,
		maxBytes: maxBytes,
		logger:   log,
	}
}

// Upload accepts a multipart document upload: document_type field + file part.
func (h *DocumentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// One extra byte so an exactly-over-limit body errors instead of truncating.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		httputil.Error(w, errors.Validation(map[string]string{
			"file": "invalid multipart form or file exceeds the upload size limit",
		}))
		return
	}

	documentType := r.FormValue("document_type")
	file, header, err := r.FormFile("file")
	if err != nil {
		httputil.Error(w, errors.Validation(map[string]string{"file": "file part is required"}))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httputil.Error(w, errors.BadRequest("failed to read uploaded file"))
		return
	}

	contentType := header.Header.Get("Content-Type")

	doc, err := h.cases.AddDocument(r.Context(), actorFrom(r), chi.URLParam(r, "id"), documentType, header.Filename, contentType, data)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, doc)
}

// List returns a case's documents
func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	docs, err := h.cases.ListDocuments(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, docs)
}
