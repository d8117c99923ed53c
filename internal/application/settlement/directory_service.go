package settlement

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/google/uuid"
)

// DirectoryService maintains the parties and cash/bank accounts settlement refers to
type DirectoryService struct {
	core *core
}

// CreateParty registers a counterparty
func (s *DirectoryService) CreateParty(ctx context.Context, in CreatePartyInput) (*PartyResponse, error) {
	if err := s.core.validateInput(in); err != nil {
		return nil, err
	}
	var resp *PartyResponse
	err := s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
		party, err := settlement.NewParty(in.CompanyID, in.Code, in.Name, settlement.PartyType(in.Type))
		if err != nil {
			return err
		}
		if err := tx.repos.Parties().Create(ctx, party); err != nil {
			return err
		}
		resp = toPartyResponse(party)
		tx.trail.record(party.CompanyID, AuditEntityParty, party.ID, AuditActionCreated, nil, resp)
		return nil
	})
	return resp, err
}

// GetParty returns one counterparty
func (s *DirectoryService) GetParty(ctx context.Context, companyID, id uuid.UUID) (*PartyResponse, error) {
	var resp *PartyResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		party, err := repos.Parties().FindByID(ctx, companyID, id)
		if err != nil {
			return err
		}
		resp = toPartyResponse(party)
		return nil
	})
	return resp, err
}

// ListParties returns the company's counterparties
func (s *DirectoryService) ListParties(ctx context.Context, companyID uuid.UUID) ([]PartyResponse, error) {
	var out []PartyResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		parties, err := repos.Parties().List(ctx, companyID)
		if err != nil {
			return err
		}
		out = make([]PartyResponse, len(parties))
		for i := range parties {
			out[i] = *toPartyResponse(&parties[i])
		}
		return nil
	})
	return out, err
}

// CreateAccount registers a cashbox or bank account
func (s *DirectoryService) CreateAccount(ctx context.Context, in CreateAccountInput) (*AccountResponse, error) {
	if err := s.core.validateInput(in); err != nil {
		return nil, err
	}
	var resp *AccountResponse
	err := s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
		account, err := settlement.NewAccount(in.CompanyID, settlement.AccountKind(in.Kind), in.Code, in.Name)
		if err != nil {
			return err
		}
		account.BankName = in.BankName
		account.AccountNumber = in.AccountNumber
		if in.Currency != "" {
			account.Currency = in.Currency
		}
		if err := tx.repos.Accounts().Create(ctx, account); err != nil {
			return err
		}
		resp = toAccountResponse(account)
		tx.trail.record(account.CompanyID, AuditEntityAccount, account.ID, AuditActionCreated, nil, resp)
		return nil
	})
	return resp, err
}

// GetAccount returns one account; cashboxes carry their current balance
func (s *DirectoryService) GetAccount(ctx context.Context, companyID, id uuid.UUID) (*AccountResponse, error) {
	var resp *AccountResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := repos.Accounts().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if account.CompanyID != companyID {
			return notFoundAccount(id)
		}
		resp = toAccountResponse(account)
		if account.Kind == settlement.AccountCashbox {
			balance, err := repos.Payments().CashboxBalance(ctx, companyID, account.ID)
			if err != nil {
				return err
			}
			resp.Balance = &balance
		}
		return nil
	})
	return resp, err
}

// ListAccounts returns the company's accounts of a kind, or all when kind is empty
func (s *DirectoryService) ListAccounts(ctx context.Context, companyID uuid.UUID, kind string) ([]AccountResponse, error) {
	var out []AccountResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		accounts, err := repos.Accounts().List(ctx, companyID, settlement.AccountKind(kind))
		if err != nil {
			return err
		}
		out = make([]AccountResponse, len(accounts))
		for i := range accounts {
			out[i] = *toAccountResponse(&accounts[i])
		}
		return nil
	})
	return out, err
}
