package settlement

import (
	"context"
	"sort"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/erp/settlement/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// traced runs fn inside a service span carrying profiling labels for the operation
func traced(ctx context.Context, service, method string, companyID uuid.UUID, fn func(ctx context.Context) error) error {
	ctx, span := telemetry.StartServiceSpan(ctx, service, method)
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrCompanyID, companyID.String())

	var err error
	telemetry.WithProfilingLabels(ctx, telemetry.SettlementOperationLabels(service+"."+method, companyID.String()), func(c context.Context) {
		err = fn(c)
	})
	if err != nil {
		telemetry.RecordError(span, err)
	}
	return err
}

// createDocument validates and inserts a document, generating its number when absent.
// An explicit number that is already taken is a validation failure, not a retry.
func (c *core) createDocument(ctx context.Context, tx *txContext, p settlement.NewDocumentParams) (*settlement.Document, error) {
	if err := c.validateOpen(ctx, tx, p.CompanyID, p.DocumentDate); err != nil {
		return nil, err
	}
	if _, err := tx.repos.Parties().FindByID(ctx, p.CompanyID, p.PartyID); err != nil {
		return nil, err
	}
	doc, err := settlement.NewDocument(p)
	if err != nil {
		return nil, err
	}
	doc.SetCreatedBy(tx.actor.UserID)

	explicit := doc.DocumentNumber != ""
	if !explicit {
		year, _ := settlement.YearMonth(doc.DocumentDate)
		number, err := c.nextNumber(ctx, tx, settlement.DocumentSequenceKey(doc.CompanyID, doc.Type, year))
		if err != nil {
			return nil, err
		}
		doc.DocumentNumber = number
	}
	if err := tx.repos.Documents().Create(ctx, doc); err != nil {
		if explicit && settlement.IsNumberConflict(err) {
			return nil, shared.NewValidationError("DOCUMENT_NUMBER_EXISTS", "document number %s already exists", doc.DocumentNumber)
		}
		return nil, err
	}
	tx.documents[doc.ID] = doc
	tx.trail.record(doc.CompanyID, AuditEntityDocument, doc.ID, AuditActionCreated, nil, toDocumentResponse(doc))
	return doc, nil
}

// recalcDocument re-derives the cached allocated amount and status from active
// allocations. Only settlement columns are written, so a locked period does not block it.
func (c *core) recalcDocument(ctx context.Context, tx *txContext, doc *settlement.Document) error {
	before := toDocumentResponse(doc)
	sum, err := tx.repos.Allocations().SumActiveByDocument(ctx, doc.ID)
	if err != nil {
		return err
	}
	if err := doc.ApplyAllocatedAmount(sum, tx.now); err != nil {
		return err
	}
	if err := tx.repos.Documents().UpdateSettlement(ctx, doc); err != nil {
		return err
	}
	if before.Status != string(doc.Status) {
		tx.trail.record(doc.CompanyID, AuditEntityDocument, doc.ID, AuditActionStatusChanged, before, toDocumentResponse(doc))
	}
	return nil
}

// refreshPayment re-derives the cached allocated amount of a payment
func (c *core) refreshPayment(ctx context.Context, tx *txContext, pay *settlement.Payment) error {
	before := toPaymentResponse(pay)
	sum, err := tx.repos.Allocations().SumActiveByPayment(ctx, pay.ID)
	if err != nil {
		return err
	}
	if err := pay.ApplyAllocatedAmount(sum, tx.now); err != nil {
		return err
	}
	if err := tx.repos.Payments().UpdateSettlement(ctx, pay); err != nil {
		return err
	}
	if !before.AllocatedAmount.Equal(pay.AllocatedAmount) {
		tx.trail.record(pay.CompanyID, AuditEntityPayment, pay.ID, AuditActionUpdated, before, toPaymentResponse(pay))
	}
	return nil
}

// allocate applies lines against pay. Documents are locked in ID order after the
// payment, and every line is checked against the state left by the lines before it.
func (c *core) allocate(ctx context.Context, tx *txContext, pay *settlement.Payment, lines []settlement.AllocationLine) ([]*settlement.PaymentAllocation, []*settlement.Document, error) {
	if err := pay.EnsureAllocatable(); err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, shared.NewValidationError("NO_ALLOCATION_LINES", "at least one allocation line is required")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		if !seen[l.DocumentID] {
			seen[l.DocumentID] = true
			ids = append(ids, l.DocumentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	docs := make([]*settlement.Document, 0, len(ids))
	for _, id := range ids {
		doc, err := tx.lockDocument(ctx, pay.CompanyID, id)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
	}

	available := pay.UnallocatedAmount()
	running := decimal.Zero
	created := make([]*settlement.PaymentAllocation, 0, len(lines))
	for _, line := range lines {
		doc := tx.documents[line.DocumentID]
		if err := settlement.CheckSettlementPair(pay, doc); err != nil {
			return nil, nil, err
		}
		if err := doc.EnsureAllocatable(line.Amount); err != nil {
			return nil, nil, err
		}
		running = running.Add(line.Amount)
		if running.GreaterThan(available) {
			return nil, nil, shared.NewValidationError("PAYMENT_AMOUNT_EXCEEDED",
				"allocations total %s exceeds the unallocated %s of payment %s", running, available, pay.PaymentNumber)
		}

		date := pay.PaymentDate
		if line.AllocationDate != nil {
			date = settlement.DateOnly(*line.AllocationDate)
		}
		if err := c.validateOpen(ctx, tx, pay.CompanyID, date); err != nil {
			return nil, nil, err
		}

		alloc, err := settlement.NewPaymentAllocation(pay, doc, line.Amount, date, line.Notes)
		if err != nil {
			return nil, nil, err
		}
		if tx.actor.UserID != uuid.Nil {
			actor := tx.actor.UserID
			alloc.CreatedBy = &actor
		}
		if err := tx.repos.Allocations().Create(ctx, alloc); err != nil {
			return nil, nil, err
		}
		tx.trail.record(alloc.CompanyID, AuditEntityAllocation, alloc.ID, AuditActionCreated, nil, toAllocationResponse(alloc))
		if err := c.recalcDocument(ctx, tx, doc); err != nil {
			return nil, nil, err
		}
		created = append(created, alloc)
	}
	if err := c.refreshPayment(ctx, tx, pay); err != nil {
		return nil, nil, err
	}
	c.metrics.Allocated(ctx, len(created), running)
	return created, docs, nil
}

// cancelAllocation retires one allocation and re-derives both sides
func (c *core) cancelAllocation(ctx context.Context, tx *txContext, alloc *settlement.PaymentAllocation, reason string) error {
	pay, err := tx.lockPayment(ctx, alloc.CompanyID, alloc.PaymentID)
	if err != nil {
		return err
	}
	doc, err := tx.lockDocument(ctx, alloc.CompanyID, alloc.DocumentID)
	if err != nil {
		return err
	}
	before := toAllocationResponse(alloc)
	if err := alloc.Cancel(reason, tx.now); err != nil {
		return err
	}
	if err := tx.repos.Allocations().Save(ctx, alloc); err != nil {
		return err
	}
	tx.trail.record(alloc.CompanyID, AuditEntityAllocation, alloc.ID, AuditActionCancelled, before, toAllocationResponse(alloc))
	if err := c.recalcDocument(ctx, tx, doc); err != nil {
		return err
	}
	return c.refreshPayment(ctx, tx, pay)
}

// lockDocumentForRelease locks the payments funding a document's active allocations,
// in ID order, before the document itself. Allocation takes payment then documents,
// so releasing from the document side must not hold the document first.
func (c *core) lockDocumentForRelease(ctx context.Context, tx *txContext, companyID, documentID uuid.UUID) (*settlement.Document, error) {
	allocs, err := tx.repos.Allocations().ListByDocument(ctx, documentID, true)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(allocs))
	seen := make(map[uuid.UUID]bool, len(allocs))
	for _, a := range allocs {
		if a.CompanyID == companyID && !seen[a.PaymentID] {
			seen[a.PaymentID] = true
			ids = append(ids, a.PaymentID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	for _, id := range ids {
		if _, err := tx.lockPayment(ctx, companyID, id); err != nil {
			return nil, err
		}
	}
	return tx.lockDocument(ctx, companyID, documentID)
}

// cancelDocumentAllocations cancels every active allocation of a document
func (c *core) cancelDocumentAllocations(ctx context.Context, tx *txContext, doc *settlement.Document, reason string) (int, error) {
	allocs, err := tx.repos.Allocations().ListByDocument(ctx, doc.ID, true)
	if err != nil {
		return 0, err
	}
	for i := range allocs {
		if err := c.cancelAllocation(ctx, tx, &allocs[i], reason); err != nil {
			return i, err
		}
	}
	return len(allocs), nil
}

// cancelPaymentAllocations cancels every active allocation funded by a payment
func (c *core) cancelPaymentAllocations(ctx context.Context, tx *txContext, pay *settlement.Payment, reason string) (int, error) {
	allocs, err := tx.repos.Allocations().ListByPayment(ctx, pay.ID, true)
	if err != nil {
		return 0, err
	}
	for i := range allocs {
		if err := c.cancelAllocation(ctx, tx, &allocs[i], reason); err != nil {
			return i, err
		}
	}
	return len(allocs), nil
}
