package settlement

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService manages cash and bank movements
type PaymentService struct {
	core *core
}

// Create records a confirmed payment after checking its accounts and, for cash
// outflows, the cashbox balance
func (s *PaymentService) Create(ctx context.Context, in CreatePaymentInput) (*PaymentResponse, error) {
	if err := s.core.validateInput(in); err != nil {
		return nil, err
	}
	params := settlement.NewPaymentParams{
		CompanyID:                in.CompanyID,
		BranchID:                 in.BranchID,
		Number:                   in.PaymentNumber,
		Type:                     settlement.PaymentType(in.Type),
		Direction:                settlement.PaymentDirection(in.Direction),
		PartyID:                  in.PartyID,
		CashboxID:                in.CashboxID,
		BankAccountID:            in.BankAccountID,
		DestinationCashboxID:     in.DestinationCashboxID,
		DestinationBankAccountID: in.DestinationBankAccountID,
		PaymentDate:              in.PaymentDate,
		Amount:                   in.Amount,
		FeeAmount:                in.FeeAmount,
		ReferenceType:            in.ReferenceType,
		ReferenceID:              in.ReferenceID,
		Currency:                 in.Currency,
		ExchangeRate:             in.ExchangeRate,
		Description:              in.Description,
		Notes:                    in.Notes,
	}

	var resp *PaymentResponse
	err := traced(ctx, "payment", "create", in.CompanyID, func(ctx context.Context) error {
		return s.core.runNumbered(ctx, settlement.NumberScopePayment, func(ctx context.Context, tx *txContext) error {
			if err := s.core.validateOpen(ctx, tx, params.CompanyID, params.PaymentDate); err != nil {
				return err
			}
			if params.PartyID != nil {
				if _, err := tx.repos.Parties().FindByID(ctx, params.CompanyID, *params.PartyID); err != nil {
					return err
				}
			}
			pay, err := settlement.NewPayment(params)
			if err != nil {
				return err
			}
			pay.SetCreatedBy(tx.actor.UserID)
			if err := s.checkAccounts(ctx, tx, pay); err != nil {
				return err
			}
			if err := s.checkCashOutflow(ctx, tx, pay, pay.Amount); err != nil {
				return err
			}

			explicit := pay.PaymentNumber != ""
			if !explicit {
				year, _ := settlement.YearMonth(pay.PaymentDate)
				number, err := s.core.nextNumber(ctx, tx, settlement.PaymentSequenceKey(pay.CompanyID, pay.Type, year))
				if err != nil {
					return err
				}
				pay.PaymentNumber = number
			}
			if err := tx.repos.Payments().Create(ctx, pay); err != nil {
				if explicit && settlement.IsNumberConflict(err) {
					return shared.NewValidationError("PAYMENT_NUMBER_EXISTS", "payment number %s already exists", pay.PaymentNumber)
				}
				return err
			}
			resp = toPaymentResponse(pay)
			tx.trail.record(pay.CompanyID, AuditEntityPayment, pay.ID, AuditActionCreated, nil, resp)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.core.metrics.PaymentCreated(ctx, params.Type)
	return resp, nil
}

// checkAccounts verifies each account leg exists, belongs to the company, has the right kind and is active
func (s *PaymentService) checkAccounts(ctx context.Context, tx *txContext, pay *settlement.Payment) error {
	spec, _ := pay.Type.Spec()
	legs := []struct {
		kind settlement.AccountKind
		id   *uuid.UUID
	}{
		{spec.Source, pay.SourceAccountID()},
		{spec.Destination, pay.DestinationAccountID()},
	}
	for _, leg := range legs {
		if leg.kind == settlement.AccountNone || leg.id == nil {
			continue
		}
		account, err := tx.repos.Accounts().FindByID(ctx, *leg.id)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.NewValidationError("ACCOUNT_NOT_FOUND", "%s %s does not exist", leg.kind, *leg.id)
			}
			return err
		}
		if err := account.EnsureUsable(pay.CompanyID, leg.kind); err != nil {
			return err
		}
	}
	return nil
}

// checkCashOutflow requires the source cashbox to cover amount when the payment takes cash out
func (s *PaymentService) checkCashOutflow(ctx context.Context, tx *txContext, pay *settlement.Payment, amount decimal.Decimal) error {
	spec, _ := pay.Type.Spec()
	if !spec.CashOutflow() || pay.CashboxID == nil || !amount.IsPositive() {
		return nil
	}
	balance, err := tx.repos.Payments().CashboxBalance(ctx, pay.CompanyID, *pay.CashboxID)
	if err != nil {
		return err
	}
	if balance.LessThan(amount) {
		return shared.NewValidationError(shared.ErrInsufficientBalance.Code,
			"cashbox balance %s is below the outflow of %s", balance, amount)
	}
	return nil
}

// Update edits a payment in an open period and recomputes its net amount
func (s *PaymentService) Update(ctx context.Context, companyID, id uuid.UUID, in UpdatePaymentInput) (*PaymentResponse, error) {
	if err := s.core.validateInput(in); err != nil {
		return nil, err
	}
	var resp *PaymentResponse
	err := traced(ctx, "payment", "update", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			pay, err := tx.lockPayment(ctx, companyID, id)
			if err != nil {
				return err
			}
			if err := s.core.validateOpen(ctx, tx, companyID, pay.PaymentDate); err != nil {
				return err
			}
			if in.PaymentDate != nil {
				if err := s.core.validateOpen(ctx, tx, companyID, *in.PaymentDate); err != nil {
					return err
				}
			}
			if in.PartyID != nil {
				if pay.PartyID != nil && *pay.PartyID != *in.PartyID && pay.AllocatedAmount.IsPositive() {
					return shared.NewStateError("PAYMENT_HAS_ALLOCATIONS",
						"payment %s has active allocations, its party cannot change", pay.PaymentNumber)
				}
				if _, err := tx.repos.Parties().FindByID(ctx, companyID, *in.PartyID); err != nil {
					return err
				}
			}
			if in.Amount != nil && in.Amount.GreaterThan(pay.Amount) {
				if err := s.checkCashOutflow(ctx, tx, pay, in.Amount.Sub(pay.Amount)); err != nil {
					return err
				}
			}

			before := toPaymentResponse(pay)
			changes := settlement.PaymentChanges{
				PartyID:       in.PartyID,
				PaymentDate:   in.PaymentDate,
				Amount:        in.Amount,
				FeeAmount:     in.FeeAmount,
				ReferenceType: in.ReferenceType,
				ReferenceID:   in.ReferenceID,
				Currency:      in.Currency,
				ExchangeRate:  in.ExchangeRate,
				Description:   in.Description,
				Notes:         in.Notes,
			}
			if err := pay.ApplyChanges(changes, tx.now); err != nil {
				return err
			}
			if err := tx.repos.Payments().Save(ctx, pay); err != nil {
				return err
			}
			resp = toPaymentResponse(pay)
			tx.trail.record(companyID, AuditEntityPayment, pay.ID, AuditActionUpdated, before, resp)
			return nil
		})
	})
	return resp, err
}

// Cancel voids a payment that funds no active allocation
func (s *PaymentService) Cancel(ctx context.Context, companyID, id uuid.UUID, reason string) (*PaymentResponse, error) {
	var resp *PaymentResponse
	err := traced(ctx, "payment", "cancel", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			pay, err := tx.lockPayment(ctx, companyID, id)
			if err != nil {
				return err
			}
			before := toPaymentResponse(pay)
			if err := pay.Cancel(reason, tx.now); err != nil {
				return err
			}
			if err := tx.repos.Payments().Save(ctx, pay); err != nil {
				return err
			}
			resp = toPaymentResponse(pay)
			tx.trail.record(companyID, AuditEntityPayment, pay.ID, AuditActionCancelled, before, resp)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("payment cancelled",
			zap.String("payment_id", id.String()),
			zap.String("payment_number", resp.PaymentNumber),
		)
	}
	return resp, err
}

// Reverse cancels the payment's allocations and posts a mirror in the opposite direction dated today
func (s *PaymentService) Reverse(ctx context.Context, companyID, id uuid.UUID, reason string) (*PaymentReversalResponse, error) {
	var resp *PaymentReversalResponse
	err := traced(ctx, "payment", "reverse", companyID, func(ctx context.Context) error {
		return s.core.runNumbered(ctx, settlement.NumberScopePayment, func(ctx context.Context, tx *txContext) error {
			pay, err := tx.lockPayment(ctx, companyID, id)
			if err != nil {
				return err
			}
			if err := pay.EnsureReversible(); err != nil {
				return err
			}
			today := tx.today()
			if err := s.core.validateOpen(ctx, tx, companyID, today); err != nil {
				return err
			}
			if _, err := s.core.cancelPaymentAllocations(ctx, tx, pay, reason); err != nil {
				return err
			}

			before := toPaymentResponse(pay)
			number, err := s.core.nextNumber(ctx, tx, settlement.PaymentSequenceKey(companyID, pay.Type, today.Year()))
			if err != nil {
				return err
			}
			mirror, err := pay.Reverse(number, today, reason, tx.now)
			if err != nil {
				return err
			}
			mirror.SetCreatedBy(tx.actor.UserID)
			if err := tx.repos.Payments().Create(ctx, mirror); err != nil {
				return err
			}
			if err := tx.repos.Payments().Save(ctx, pay); err != nil {
				return err
			}
			resp = &PaymentReversalResponse{
				Original: toPaymentResponse(pay),
				Reversal: toPaymentResponse(mirror),
			}
			tx.trail.record(companyID, AuditEntityPayment, pay.ID, AuditActionReversed, before, resp.Original)
			tx.trail.record(companyID, AuditEntityPayment, mirror.ID, AuditActionCreated, nil, resp.Reversal)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("payment reversed",
			zap.String("payment_number", resp.Original.PaymentNumber),
			zap.String("reversal_number", resp.Reversal.PaymentNumber),
		)
	}
	return resp, err
}

// Get returns one payment
func (s *PaymentService) Get(ctx context.Context, companyID, id uuid.UUID) (*PaymentResponse, error) {
	var resp *PaymentResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		pay, err := repos.Payments().FindByID(ctx, companyID, id)
		if err != nil {
			return err
		}
		resp = toPaymentResponse(pay)
		return nil
	})
	return resp, err
}

// List returns a page of payments and the total match count
func (s *PaymentService) List(ctx context.Context, companyID uuid.UUID, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	var (
		out   []PaymentResponse
		total int64
	)
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		pays, n, err := repos.Payments().List(ctx, companyID, filter.toDomain())
		if err != nil {
			return err
		}
		out, total = toPaymentResponses(pays), n
		return nil
	})
	return out, total, err
}
