package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devlinduldulao/citizenship-application/internal/application/service"
	"github.com/devlinduldulao/citizenship-application/internal/queue"
	"github.com/devlinduldulao/citizenship-application/pkg/httputil"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// ReviewHandler handles the reviewer-only queue and decision endpoints
type ReviewHandler struct {
	queue     *queue.Service
	decisions *service.DecisionService
	logger    *logger.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(queueService *queue.Service, decisions *service.DecisionService, log *logger.Logger) *ReviewHandler {
	return &ReviewHandler{
		queue:     queueService,
		decisions: decisions,
		logger:    log,
	}
}

// Queue returns the priority-ordered pending-manual cases
func (h *ReviewHandler) Queue(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	items, total, err := h.queue.List(r.Context(), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, items, &httputil.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   int64(total),
	})
}

// Metrics returns the aggregate review queue metrics
func (h *ReviewHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.queue.ComputeMetrics(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, metrics)
}

// Decide applies a reviewer decision to a case
func (h *ReviewHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req service.ReviewDecisionRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.decisions.Submit(r.Context(), actorFrom(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, c)
}
