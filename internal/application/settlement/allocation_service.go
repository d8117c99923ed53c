package settlement

import (
	"context"
	"fmt"
	"sort"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AllocationService settles payments against documents
type AllocationService struct {
	core *core
}

// Allocate applies every line of in atomically: either all allocations persist or none do
func (s *AllocationService) Allocate(ctx context.Context, companyID, paymentID uuid.UUID, in AllocateInput) (*AllocationResult, error) {
	if err := s.core.validateInput(in); err != nil {
		return nil, err
	}
	lines := make([]settlement.AllocationLine, len(in.Lines))
	for i, l := range in.Lines {
		lines[i] = settlement.AllocationLine{
			DocumentID:     l.DocumentID,
			Amount:         l.Amount,
			AllocationDate: l.AllocationDate,
			Notes:          l.Notes,
		}
	}

	var result *AllocationResult
	err := traced(ctx, "allocation", "allocate", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			pay, err := tx.lockPayment(ctx, companyID, paymentID)
			if err != nil {
				return err
			}
			allocs, docs, err := s.core.allocate(ctx, tx, pay, lines)
			if err != nil {
				return err
			}
			result = buildAllocationResult(pay, allocs, docs)
			return nil
		})
	})
	return result, err
}

// AutoAllocate settles the party's open documents oldest-due first until the
// payment is exhausted. The party defaults to the payment's own party.
// Having nothing to settle is not an error.
func (s *AllocationService) AutoAllocate(ctx context.Context, companyID, paymentID uuid.UUID, partyID *uuid.UUID) (*AllocationResult, error) {
	var result *AllocationResult
	err := traced(ctx, "allocation", "auto_allocate", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			pay, err := tx.lockPayment(ctx, companyID, paymentID)
			if err != nil {
				return err
			}
			if err := pay.EnsureAllocatable(); err != nil {
				return err
			}
			party, err := resolveParty(pay, partyID)
			if err != nil {
				return err
			}

			open, err := tx.repos.Documents().FindOpen(ctx, companyID, party, settlement.SettleableDirections(pay.Direction))
			if err != nil {
				return err
			}
			// re-read under lock so the plan sees committed allocations
			candidates := make([]settlement.Document, 0, len(open))
			for _, d := range sortedByID(open) {
				doc, err := tx.lockDocument(ctx, companyID, d.ID)
				if err != nil {
					return err
				}
				candidates = append(candidates, *doc)
			}

			plan := settlement.PlanFIFO(pay.UnallocatedAmount(), candidates)
			if len(plan) == 0 {
				result = buildAllocationResult(pay, nil, nil)
				return nil
			}
			allocs, docs, err := s.core.allocate(ctx, tx, pay, plan)
			if err != nil {
				return err
			}
			result = buildAllocationResult(pay, allocs, docs)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("payment auto-allocated",
			zap.String("payment_id", paymentID.String()),
			zap.Int("allocations", len(result.Allocations)),
			zap.String("allocated", result.TotalAllocated.String()),
		)
	}
	return result, err
}

func resolveParty(pay *settlement.Payment, requested *uuid.UUID) (uuid.UUID, error) {
	switch {
	case requested != nil && pay.PartyID != nil && *requested != *pay.PartyID:
		return uuid.Nil, shared.NewValidationError("PARTY_MISMATCH",
			"payment %s belongs to a different party", pay.PaymentNumber)
	case requested != nil:
		return *requested, nil
	case pay.PartyID != nil:
		return *pay.PartyID, nil
	}
	return uuid.Nil, shared.NewValidationError("PARTY_REQUIRED",
		"payment %s has no party; one must be given for automatic allocation", pay.PaymentNumber)
}

func sortedByID(docs []settlement.Document) []settlement.Document {
	out := make([]settlement.Document, len(docs))
	copy(out, docs)
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// HandleOverpayment records excess as an advance document for the payment's party.
// An outbound payment yields a receivable advance_given, an inbound one a payable
// advance_received. The advance is not allocated against the payment.
func (s *AllocationService) HandleOverpayment(ctx context.Context, companyID, paymentID uuid.UUID, excess decimal.Decimal) (*DocumentResponse, error) {
	var resp *DocumentResponse
	err := traced(ctx, "allocation", "handle_overpayment", companyID, func(ctx context.Context) error {
		return s.core.runNumbered(ctx, settlement.NumberScopeDocument, func(ctx context.Context, tx *txContext) error {
			pay, err := tx.lockPayment(ctx, companyID, paymentID)
			if err != nil {
				return err
			}
			if pay.Status != settlement.PaymentStatusConfirmed {
				return shared.NewStateError("PAYMENT_NOT_CONFIRMED", "payment %s is %s", pay.PaymentNumber, pay.Status)
			}
			if !excess.IsPositive() {
				return shared.NewValidationError("AMOUNT_INVALID", "overpayment amount must be positive")
			}
			if excess.GreaterThan(pay.UnallocatedAmount()) {
				return shared.NewValidationError("OVERPAYMENT_EXCEEDS_UNALLOCATED",
					"overpayment %s exceeds the unallocated %s of payment %s", excess, pay.UnallocatedAmount(), pay.PaymentNumber)
			}
			if pay.PartyID == nil {
				return shared.NewValidationError("PARTY_REQUIRED", "payment %s has no party to record an advance for", pay.PaymentNumber)
			}
			docType, direction, err := settlement.AdvanceFor(pay.Direction)
			if err != nil {
				return err
			}
			doc, err := s.core.createDocument(ctx, tx, settlement.NewDocumentParams{
				CompanyID:    pay.CompanyID,
				BranchID:     pay.BranchID,
				Type:         docType,
				Direction:    direction,
				PartyID:      *pay.PartyID,
				DocumentDate: pay.PaymentDate,
				TotalAmount:  excess,
				Currency:     pay.Currency,
				ExchangeRate: pay.ExchangeRate,
				Description:  fmt.Sprintf("Overpayment on %s", pay.PaymentNumber),
			})
			if err != nil {
				return err
			}
			resp = toDocumentResponse(doc)
			return nil
		})
	})
	if err == nil {
		s.core.metrics.DocumentCreated(ctx, settlement.DocumentType(resp.Type))
		s.core.logger.Info("overpayment recorded",
			zap.String("payment_id", paymentID.String()),
			zap.String("document_number", resp.DocumentNumber),
			zap.String("amount", excess.String()),
		)
	}
	return resp, err
}

// CancelAllocation retires one allocation and restores the document's unpaid amount
func (s *AllocationService) CancelAllocation(ctx context.Context, companyID, allocationID uuid.UUID, reason string) (*AllocationResponse, error) {
	var resp *AllocationResponse
	err := traced(ctx, "allocation", "cancel", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			alloc, err := tx.repos.Allocations().FindByIDForUpdate(ctx, companyID, allocationID)
			if err != nil {
				return err
			}
			if err := s.core.cancelAllocation(ctx, tx, alloc, reason); err != nil {
				return err
			}
			resp = toAllocationResponse(alloc)
			return nil
		})
	})
	return resp, err
}

// CancelPaymentAllocations cancels every active allocation funded by a payment
func (s *AllocationService) CancelPaymentAllocations(ctx context.Context, companyID, paymentID uuid.UUID, reason string) (int, error) {
	var n int
	err := traced(ctx, "allocation", "cancel_payment_allocations", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			pay, err := tx.lockPayment(ctx, companyID, paymentID)
			if err != nil {
				return err
			}
			n, err = s.core.cancelPaymentAllocations(ctx, tx, pay, reason)
			return err
		})
	})
	return n, err
}

// CancelDocumentAllocations cancels every active allocation settling a document
func (s *AllocationService) CancelDocumentAllocations(ctx context.Context, companyID, documentID uuid.UUID, reason string) (int, error) {
	var n int
	err := traced(ctx, "allocation", "cancel_document_allocations", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			doc, err := s.core.lockDocumentForRelease(ctx, tx, companyID, documentID)
			if err != nil {
				return err
			}
			n, err = s.core.cancelDocumentAllocations(ctx, tx, doc, reason)
			return err
		})
	})
	return n, err
}

// ListByPayment returns a payment's allocations, newest first
func (s *AllocationService) ListByPayment(ctx context.Context, companyID, paymentID uuid.UUID, activeOnly bool) ([]AllocationResponse, error) {
	var out []AllocationResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Payments().FindByID(ctx, companyID, paymentID); err != nil {
			return err
		}
		allocs, err := repos.Allocations().ListByPayment(ctx, paymentID, activeOnly)
		if err != nil {
			return err
		}
		out = toAllocationResponses(allocs)
		return nil
	})
	return out, err
}

// ListByDocument returns a document's allocations, newest first
func (s *AllocationService) ListByDocument(ctx context.Context, companyID, documentID uuid.UUID, activeOnly bool) ([]AllocationResponse, error) {
	var out []AllocationResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Documents().FindByID(ctx, companyID, documentID); err != nil {
			return err
		}
		allocs, err := repos.Allocations().ListByDocument(ctx, documentID, activeOnly)
		if err != nil {
			return err
		}
		out = toAllocationResponses(allocs)
		return nil
	})
	return out, err
}

func buildAllocationResult(pay *settlement.Payment, allocs []*settlement.PaymentAllocation, docs []*settlement.Document) *AllocationResult {
	result := &AllocationResult{
		Payment:          toPaymentResponse(pay),
		Allocations:      make([]AllocationResponse, 0, len(allocs)),
		Documents:        make([]DocumentResponse, 0, len(docs)),
		TotalAllocated:   decimal.Zero,
		RemainingPayment: pay.UnallocatedAmount(),
	}
	for _, a := range allocs {
		result.Allocations = append(result.Allocations, *toAllocationResponse(a))
		result.TotalAllocated = result.TotalAllocated.Add(a.Amount)
	}
	for _, d := range docs {
		result.Documents = append(result.Documents, *toDocumentResponse(d))
	}
	return result
}
