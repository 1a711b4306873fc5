// Package audit records governance decisions to the append-only audit log.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/quorumsec/aegis/internal/governance/storage"
	"github.com/quorumsec/aegis/internal/platform/id"
)

// Event kinds recorded by the governance pipeline.
const (
	KindDetectionExecuted = "detection_executed"
	KindDetectionProposed = "detection_proposed"
	KindDetectionAlerted  = "detection_alerted"
	KindDetectionLogged   = "detection_logged"
	KindProposalCreated   = "proposal_created"
	KindProposalSigned    = "proposal_signed"
	KindProposalApproved  = "proposal_approved"
	KindProposalRejected  = "proposal_rejected"
	KindProposalWithdrawn = "proposal_withdrawn"
	KindIncentivePaid     = "incentive_paid"
	KindIncentiveFailed   = "incentive_failed"
)

// Emitter appends audit events. It is safe to use as a nil pointer, which
// turns every emit into a no-op.
type Emitter struct {
	store storage.AuditStore
	clock func() time.Time
}

// NewEmitter creates an audit emitter backed by the given store.
func NewEmitter(store storage.AuditStore) *Emitter {
	return &Emitter{store: store, clock: time.Now}
}

// WithClock overrides the emitter clock, for tests.
func (e *Emitter) WithClock(clock func() time.Time) *Emitter {
	if e != nil && clock != nil {
		e.clock = clock
	}
	return e
}

// Emit records an audit event. It is a no-op when the emitter or its store is
// nil. Audit failures are logged rather than propagated so governance
// operations never fail on audit writes.
func (e *Emitter) Emit(ctx context.Context, event storage.AuditEvent) {
	if e == nil || e.store == nil {
		return
	}
	if event.ID == "" {
		eventID, err := id.NewID()
		if err != nil {
			log.Printf("audit: generate event id: %v", err)
			return
		}
		event.ID = eventID
	}
	if event.CreatedAt.IsZero() {
		if e.clock == nil {
			event.CreatedAt = time.Now().UTC()
		} else {
			event.CreatedAt = e.clock().UTC()
		}
	}
	if err := e.store.AppendAuditEvent(ctx, event); err != nil {
		log.Printf("audit: append %s event: %v", event.Kind, err)
	}
}
