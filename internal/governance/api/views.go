package api

import (
	"time"

	"github.com/quorumsec/aegis/internal/governance/domain"
	"github.com/quorumsec/aegis/internal/governance/service"
	"github.com/quorumsec/aegis/internal/governance/storage"
)

type proposalView struct {
	ID                 int64      `json:"id"`
	DetectionID        *int64     `json:"detection_id,omitempty"`
	ThreatType         string     `json:"threat_type"`
	Confidence         float64    `json:"confidence"`
	Target             string     `json:"target"`
	ActionType         string     `json:"action_type"`
	RequiredSignatures int        `json:"required_signatures"`
	Signatures         []string   `json:"signatures"`
	Status             string     `json:"status"`
	CreatedBy          string     `json:"created_by"`
	RejectedBy         string     `json:"rejected_by,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	ResolvedAt         *time.Time `json:"resolved_at,omitempty"`
	ExecutedAt         *time.Time `json:"executed_at,omitempty"`
}

func toProposalView(p domain.Proposal) proposalView {
	signatures := p.Signatures
	if signatures == nil {
		signatures = []string{}
	}
	return proposalView{
		ID:                 p.ID,
		DetectionID:        p.DetectionID,
		ThreatType:         p.ThreatType,
		Confidence:         p.Confidence,
		Target:             p.Target,
		ActionType:         p.ActionType,
		RequiredSignatures: p.RequiredSignatures,
		Signatures:         signatures,
		Status:             domain.ProposalStatusLabel(p.Status),
		CreatedBy:          p.CreatedBy,
		RejectedBy:         p.RejectedBy,
		CreatedAt:          p.CreatedAt,
		ResolvedAt:         p.ResolvedAt,
		ExecutedAt:         p.ExecutedAt,
	}
}

type detectionView struct {
	ID             int64     `json:"id"`
	FeatureRef     string    `json:"feature_ref,omitempty"`
	PredictedClass string    `json:"predicted_class"`
	Confidence     float64   `json:"confidence"`
	Tier           string    `json:"tier"`
	SourceIP       string    `json:"source_ip,omitempty"`
	TargetIP       string    `json:"target_ip,omitempty"`
	Status         string    `json:"status"`
	ProposalID     *int64    `json:"proposal_id,omitempty"`
	DetectedAt     time.Time `json:"detected_at"`
}

func toDetectionView(d domain.Detection) detectionView {
	return detectionView{
		ID:             d.ID,
		FeatureRef:     d.FeatureRef,
		PredictedClass: d.PredictedClass,
		Confidence:     d.Confidence,
		Tier:           domain.TierLabel(d.Tier),
		SourceIP:       d.SourceIP,
		TargetIP:       d.TargetIP,
		Status:         domain.DetectionStatusLabel(d.Status),
		ProposalID:     d.ProposalID,
		DetectedAt:     d.DetectedAt,
	}
}

type detectionResultView struct {
	Detection detectionView `json:"detection"`
	Proposal  *proposalView `json:"proposal,omitempty"`
}

func toDetectionResultView(result service.DetectionResult) detectionResultView {
	view := detectionResultView{Detection: toDetectionView(result.Detection)}
	if result.Proposal != nil {
		proposal := toProposalView(*result.Proposal)
		view.Proposal = &proposal
	}
	return view
}

type transferView struct {
	SignerID  string `json:"signer_id"`
	Account   string `json:"account"`
	Amount    int64  `json:"amount_micro"`
	TxRef     string `json:"tx_ref,omitempty"`
	Confirmed bool   `json:"confirmed"`
	Error     string `json:"error,omitempty"`
}

type receiptView struct {
	ProposalID int64          `json:"proposal_id"`
	Transfers  []transferView `json:"transfers"`
	ExecutedAt time.Time      `json:"executed_at"`
}

func toReceiptView(receipt domain.ExecutionReceipt) receiptView {
	transfers := make([]transferView, 0, len(receipt.Transfers))
	for _, transfer := range receipt.Transfers {
		transfers = append(transfers, transferView{
			SignerID:  transfer.SignerID,
			Account:   transfer.Account,
			Amount:    int64(transfer.Amount),
			TxRef:     transfer.TxRef,
			Confirmed: transfer.Confirmed,
			Error:     transfer.Error,
		})
	}
	return receiptView{
		ProposalID: receipt.ProposalID,
		Transfers:  transfers,
		ExecutedAt: receipt.ExecutedAt,
	}
}

type signResultView struct {
	Proposal proposalView `json:"proposal"`
	Executed bool         `json:"executed"`
	Receipt  *receiptView `json:"receipt,omitempty"`
}

func toSignResultView(result service.SignResult) signResultView {
	view := signResultView{
		Proposal: toProposalView(result.Proposal),
		Executed: result.Executed,
	}
	if result.Receipt != nil {
		receipt := toReceiptView(*result.Receipt)
		view.Receipt = &receipt
	}
	return view
}

type contributionView struct {
	SignerID        string  `json:"signer_id"`
	TotalSignatures int64   `json:"total_signatures"`
	TotalRejections int64   `json:"total_rejections"`
	AvgLatencyMS    int64   `json:"avg_latency_ms"`
	Score           float64 `json:"score"`
}

func toContributionView(report service.ContributionReport) contributionView {
	return contributionView{
		SignerID:        report.SignerID,
		TotalSignatures: report.TotalSignatures,
		TotalRejections: report.TotalRejections,
		AvgLatencyMS:    report.AvgLatency.Milliseconds(),
		Score:           report.Score,
	}
}

type auditEventView struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	DetectionID *int64    `json:"detection_id,omitempty"`
	ProposalID  *int64    `json:"proposal_id,omitempty"`
	Actor       string    `json:"actor,omitempty"`
	Detail      string    `json:"detail,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAuditEventView(event storage.AuditEvent) auditEventView {
	return auditEventView{
		ID:          event.ID,
		Kind:        event.Kind,
		DetectionID: event.DetectionID,
		ProposalID:  event.ProposalID,
		Actor:       event.Actor,
		Detail:      event.Detail,
		CreatedAt:   event.CreatedAt,
	}
}

type healthView struct {
	Status             string   `json:"status"`
	Signers            []string `json:"signers"`
	RequiredSignatures int      `json:"required_signatures"`
	TotalDetections    int64    `json:"total_detections"`
	TotalProposals     int64    `json:"total_proposals"`
	PendingProposals   int64    `json:"pending_proposals"`
	TotalExecutions    int64    `json:"total_executions"`
}
