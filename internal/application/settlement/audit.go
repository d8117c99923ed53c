package settlement

import (
	"time"

	"github.com/google/uuid"
)

// AuditEntity names the kind of record an audit event is about
type AuditEntity string

const (
	AuditEntityPeriod     AuditEntity = "period"
	AuditEntityDocument   AuditEntity = "document"
	AuditEntityPayment    AuditEntity = "payment"
	AuditEntityAllocation AuditEntity = "allocation"
	AuditEntityParty      AuditEntity = "party"
	AuditEntityAccount    AuditEntity = "account"
)

// AuditAction names what happened to the record
type AuditAction string

const (
	AuditActionCreated       AuditAction = "created"
	AuditActionUpdated       AuditAction = "updated"
	AuditActionStatusChanged AuditAction = "status_changed"
	AuditActionPosted        AuditAction = "posted"
	AuditActionCancelled     AuditAction = "cancelled"
	AuditActionReversed      AuditAction = "reversed"
	AuditActionLocked        AuditAction = "locked"
	AuditActionUnlocked      AuditAction = "unlocked"
	AuditActionClosed        AuditAction = "closed"
)

// AuditEvent carries before/after snapshots of one mutation
type AuditEvent struct {
	ID         uuid.UUID   `json:"id"`
	CompanyID  uuid.UUID   `json:"company_id"`
	EntityType AuditEntity `json:"entity_type"`
	EntityID   uuid.UUID   `json:"entity_id"`
	Action     AuditAction `json:"action"`
	Before     any         `json:"before,omitempty"`
	After      any         `json:"after,omitempty"`
	ActorID    *uuid.UUID  `json:"actor_id,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

// auditTrail buffers events for one transaction attempt; they are emitted only after commit
type auditTrail struct {
	actor  Actor
	now    time.Time
	events []AuditEvent
}

func newAuditTrail(actor Actor, now time.Time) *auditTrail {
	return &auditTrail{actor: actor, now: now}
}

func (t *auditTrail) record(companyID uuid.UUID, entity AuditEntity, id uuid.UUID, action AuditAction, before, after any) {
	ev := AuditEvent{
		ID:         uuid.New(),
		CompanyID:  companyID,
		EntityType: entity,
		EntityID:   id,
		Action:     action,
		Before:     before,
		After:      after,
		OccurredAt: t.now,
	}
	if t.actor.UserID != uuid.Nil {
		actor := t.actor.UserID
		ev.ActorID = &actor
	}
	t.events = append(t.events, ev)
}
