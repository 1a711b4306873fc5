package api

import (
	"net/http"
	"strconv"

	"github.com/quorumsec/aegis/internal/governance/auth"
	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/service"
	"github.com/quorumsec/aegis/internal/governance/storage"
	apperrors "github.com/quorumsec/aegis/internal/platform/errors"
)

// Handlers serves the governance HTTP API.
type Handlers struct {
	service *service.Service
	tokens  auth.RoleTokenConfig
}

// NewHandlers builds the API handlers around the governance service.
func NewHandlers(svc *service.Service, tokens auth.RoleTokenConfig) *Handlers {
	return &Handlers{service: svc, tokens: tokens}
}

// NewMux registers every governance route on a fresh mux.
func NewMux(h *Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc(http.MethodGet+" /health", h.handleHealth)

	mux.HandleFunc(http.MethodPost+" /api/detections/simulate", h.requireRole(h.handleSimulateDetection))
	mux.HandleFunc(http.MethodGet+" /api/detections", h.handleListDetections)
	mux.HandleFunc(http.MethodGet+" /api/detections/{id}", h.handleGetDetection)

	mux.HandleFunc(http.MethodPost+" /api/proposals", h.requireRole(h.handleCreateProposal))
	mux.HandleFunc(http.MethodGet+" /api/proposals", h.handleListProposals)
	mux.HandleFunc(http.MethodGet+" /api/proposals/{id}", h.handleGetProposal)
	mux.HandleFunc(http.MethodPost+" /api/proposals/{id}/sign", h.requireRole(h.handleSignProposal))
	mux.HandleFunc(http.MethodPost+" /api/proposals/{id}/reject", h.requireRole(h.handleRejectProposal))
	mux.HandleFunc(http.MethodPost+" /api/proposals/{id}/withdraw", h.requireRole(h.handleWithdrawProposal))
	mux.HandleFunc(http.MethodGet+" /api/proposals/{id}/receipt", h.handleGetReceipt)

	mux.HandleFunc(http.MethodGet+" /api/signers/{id}/contribution", h.handleGetContribution)
	mux.HandleFunc(http.MethodGet+" /api/audit", h.handleListAudit)

	return mux
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.CodeNotFound, "invalid id in path")
	}
	return id, nil
}

func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, healthView{
		Status:             "ok",
		Signers:            h.service.Signers(),
		RequiredSignatures: h.service.RequiredSignatures(),
		TotalDetections:    stats.TotalDetections,
		TotalProposals:     stats.TotalProposals,
		PendingProposals:   stats.PendingProposals,
		TotalExecutions:    stats.TotalExecutions,
	})
}

func (h *Handlers) handleSimulateDetection(w http.ResponseWriter, r *http.Request, _ auth.RoleClaims) {
	result, err := h.service.SimulateDetection(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDetectionResultView(result))
}

func (h *Handlers) handleListDetections(w http.ResponseWriter, r *http.Request) {
	detections, err := h.service.ListDetections(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]detectionView, 0, len(detections))
	for _, detection := range detections {
		views = append(views, toDetectionView(detection))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) handleGetDetection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	detection, err := h.service.GetDetection(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetectionView(detection))
}

type createProposalRequest struct {
	DetectionID        *int64  `json:"detection_id,omitempty"`
	ThreatType         string  `json:"threat_type"`
	Confidence         float64 `json:"confidence"`
	Target             string  `json:"target"`
	ActionType         string  `json:"action_type,omitempty"`
	RequiredSignatures int     `json:"required_signatures,omitempty"`
}

func (h *Handlers) handleCreateProposal(w http.ResponseWriter, r *http.Request, claims auth.RoleClaims) {
	var req createProposalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, apperrors.Wrap(apperrors.CodeRequestInvalid, "invalid request body", err))
		return
	}
	proposal, err := h.service.CreateProposal(r.Context(), domain.CreateProposalInput{
		DetectionID:        req.DetectionID,
		ThreatType:         req.ThreatType,
		Confidence:         req.Confidence,
		Target:             req.Target,
		ActionType:         req.ActionType,
		RequiredSignatures: req.RequiredSignatures,
		CreatedBy:          claims.Role,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProposalView(proposal))
}

func (h *Handlers) handleListProposals(w http.ResponseWriter, r *http.Request) {
	filter := storage.ProposalFilter{Limit: queryLimit(r)}
	if label := r.URL.Query().Get("status"); label != "" {
		status := domain.ParseProposalStatus(label)
		if status == domain.ProposalStatusUnspecified {
			writeError(w, apperrors.New(apperrors.CodeNotFound, "unknown proposal status "+label))
			return
		}
		filter.Status = &status
	}
	proposals, err := h.service.ListProposals(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]proposalView, 0, len(proposals))
	for _, proposal := range proposals {
		views = append(views, toProposalView(proposal))
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *Handlers) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	proposal, err := h.service.GetProposal(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalView(proposal))
}

func (h *Handlers) handleSignProposal(w http.ResponseWriter, r *http.Request, claims auth.RoleClaims) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := h.service.SignProposal(r.Context(), id, claims.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSignResultView(result))
}

func (h *Handlers) handleRejectProposal(w http.ResponseWriter, r *http.Request, claims auth.RoleClaims) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	proposal, err := h.service.RejectProposal(r.Context(), id, claims.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalView(proposal))
}

func (h *Handlers) handleWithdrawProposal(w http.ResponseWriter, r *http.Request, claims auth.RoleClaims) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	proposal, err := h.service.WithdrawProposal(r.Context(), id, claims.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toProposalView(proposal))
}

func (h *Handlers) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	receipt, err := h.service.Receipt(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptView(receipt))
}

func (h *Handlers) handleGetContribution(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Contribution(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContributionView(report))
}

func (h *Handlers) handleListAudit(w http.ResponseWriter, r *http.Request) {
	events, err := h.service.ListAuditEvents(r.Context(), queryLimit(r))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]auditEventView, 0, len(events))
	for _, event := range events {
		views = append(views, toAuditEventView(event))
	}
	writeJSON(w, http.StatusOK, views)
}
