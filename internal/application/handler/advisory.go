package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/devlinduldulao/citizenship-application/internal/advisory"
	"github.com/devlinduldulao/citizenship-application/internal/application/service"
	"github.com/devlinduldulao/citizenship-application/pkg/httputil"
	"github.com/devlinduldulao/citizenship-application/pkg/logger"
)

// AdvisoryHandler serves the read-only advisory endpoints. Advisory output
// never mutates case state.
type AdvisoryHandler struct {
	cases     *service.CaseService
	explainer *advisory.Explainer
	logger    *logger.Logger
}

// NewAdvisoryHandler creates a new advisory handler
func NewAdvisoryHandler(cases *service.CaseService, explainer *advisory.Explainer, log *logger.Logger) *AdvisoryHandler {
	return &AdvisoryHandler{
		cases:     cases,
		explainer: explainer,
		logger:    log,
	}
}

// Explain returns the case explainer memo
func (h *AdvisoryHandler) Explain(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	caseID := chi.URLParam(r, "id")

	c, err := h.cases.GetCase(r.Context(), actor, caseID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	breakdown, err := h.cases.Breakdown(r.Context(), actor, caseID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	documents, err := h.cases.ListDocuments(r.Context(), actor, caseID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	explanation := h.explainer.Explain(r.Context(), c, breakdown.Rules, documents)
	httputil.JSON(w, http.StatusOK, explanation)
}

// Recommendations returns the evidence gap recommendations
func (h *AdvisoryHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	caseID := chi.URLParam(r, "id")

	c, err := h.cases.GetCase(r.Context(), actor, caseID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	breakdown, err := h.cases.Breakdown(r.Context(), actor, caseID)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	documents, err := h.cases.ListDocuments(r.Context(), actor, caseID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, advisory.Recommend(c, breakdown.Rules, documents))
}
