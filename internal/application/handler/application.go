package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/devlinduldulao/citizenship-application/internal/application/service"
	"github.com/devlinduldulao/citizenship-application/internal/pipeline"
	"github.com/devlinduldulao/citizenship-application/pkg/httputil"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// ApplicationHandler handles case intake and read endpoints
type ApplicationHandler struct {
	cases        *service.CaseService
	orchestrator *pipeline.Orchestrator
	logger       *logger.Logger
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(cases *service.CaseService, orchestrator *pipeline.Orchestrator, log *logger.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		cases:        cases,
		orchestrator: orchestrator,
		logger:       log,
	}
}

func actorFrom(r *http.Request) service.Actor {
	return service.Actor{
		UserID:     httputil.GetUserID(r.Context()),
		IsReviewer: httputil.IsReviewer(r.Context()),
	}
}

func pagination(r *http.Request) (page, perPage int) {
	page, perPage = 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("per_page")); err == nil && v > 0 && v <= 100 {
		perPage = v
	}
	return page, perPage
}

// Create creates a case
func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.cases.CreateCase(r.Context(), actorFrom(r), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, c)
}

// List lists the caller's cases (all cases for reviewers)
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := pagination(r)

	cases, total, err := h.cases.ListCases(r.Context(), actorFrom(r), page, perPage)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, cases, &httputil.Meta{
		Page:    page,
		PerPage: perPage,
		Total:   total,
	})
}

// Get returns a single case
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.cases.GetCase(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, c)
}

// Update applies a partial update to the owner-editable fields
func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateCaseRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	c, err := h.cases.UpdateCase(r.Context(), actorFrom(r), chi.URLParam(r, "id"), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, c)
}

type processRequest struct {
	ForceReprocess bool `json:"force_reprocess"`
}

// Process queues a case for automated processing
func (h *ApplicationHandler) Process(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	caseID := chi.URLParam(r, "id")

	// Owner-or-reviewer scoping before touching the queue.
	if _, err := h.cases.GetCase(r.Context(), actor, caseID); err != nil {
		httputil.Error(w, err)
		return
	}

	var req processRequest
	if r.ContentLength > 0 {
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.Error(w, err)
			return
		}
	}

	c, err := h.orchestrator.QueueProcessing(r.Context(), caseID, actor.UserID, req.ForceReprocess)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, c)
}

// Breakdown returns the rule results and derived scores
func (h *ApplicationHandler) Breakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.cases.Breakdown(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, breakdown)
}

// AuditTrail returns the chronological audit events
func (h *ApplicationHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	events, err := h.cases.AuditTrail(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		httputil.Error(w, err)
		return
	}
	httputil.JSON(w, http.StatusOK, events)
}
