package settlement

import (
	"context"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentService manages payable and receivable obligations
type DocumentService struct {
	core *core
}

// Create records a new document, generating its number when none is given
func (s *DocumentService) Create(ctx context.Context, in CreateDocumentInput) (*DocumentResponse, error) {
	if err := s.core.validateInput(in); err != nil {
		return nil, err
	}
	lines, err := toDocumentLines(in.Lines)
	if err != nil {
		return nil, err
	}
	params := settlement.NewDocumentParams{
		CompanyID:    in.CompanyID,
		BranchID:     in.BranchID,
		Number:       in.DocumentNumber,
		Type:         settlement.DocumentType(in.Type),
		Direction:    settlement.DocumentDirection(in.Direction),
		PartyID:      in.PartyID,
		DocumentDate: in.DocumentDate,
		DueDate:      in.DueDate,
		TotalAmount:  in.TotalAmount,
		CategoryID:   in.CategoryID,
		Currency:     in.Currency,
		ExchangeRate: in.ExchangeRate,
		Description:  in.Description,
		Notes:        in.Notes,
		Lines:        lines,
		Draft:        in.AsDraft,
	}

	var resp *DocumentResponse
	err = traced(ctx, "document", "create", in.CompanyID, func(ctx context.Context) error {
		return s.core.runNumbered(ctx, settlement.NumberScopeDocument, func(ctx context.Context, tx *txContext) error {
			doc, err := s.core.createDocument(ctx, tx, params)
			if err != nil {
				return err
			}
			resp = toDocumentResponse(doc)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.core.metrics.DocumentCreated(ctx, params.Type)
	return resp, nil
}

// Update edits a document's own fields. The document's period must be open,
// and so must the period of a new document date. Allocated documents are frozen.
func (s *DocumentService) Update(ctx context.Context, companyID, id uuid.UUID, in UpdateDocumentInput) (*DocumentResponse, error) {
	if err := s.core.validateInput(in); err != nil {
		return nil, err
	}
	var resp *DocumentResponse
	err := traced(ctx, "document", "update", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			doc, err := tx.lockDocument(ctx, companyID, id)
			if err != nil {
				return err
			}
			if err := s.core.validateOpen(ctx, tx, companyID, doc.DocumentDate); err != nil {
				return err
			}
			if in.DocumentDate != nil {
				if err := s.core.validateOpen(ctx, tx, companyID, *in.DocumentDate); err != nil {
					return err
				}
			}
			allocated, err := tx.repos.Allocations().SumActiveByDocument(ctx, doc.ID)
			if err != nil {
				return err
			}
			if allocated.IsPositive() {
				return shared.NewStateError("DOCUMENT_HAS_ALLOCATIONS",
					"document %s has active allocations and cannot be edited", doc.DocumentNumber)
			}
			if in.PartyID != nil {
				if _, err := tx.repos.Parties().FindByID(ctx, companyID, *in.PartyID); err != nil {
					return err
				}
			}
			lines, err := toDocumentLines(in.Lines)
			if err != nil {
				return err
			}

			before := toDocumentResponse(doc)
			changes := settlement.DocumentChanges{
				PartyID:      in.PartyID,
				DocumentDate: in.DocumentDate,
				DueDate:      in.DueDate,
				TotalAmount:  in.TotalAmount,
				CategoryID:   in.CategoryID,
				Currency:     in.Currency,
				ExchangeRate: in.ExchangeRate,
				Description:  in.Description,
				Notes:        in.Notes,
				Lines:        lines,
				ReplaceLines: in.ReplaceLines,
			}
			if err := doc.ApplyChanges(changes, tx.now); err != nil {
				return err
			}
			if err := tx.repos.Documents().Save(ctx, doc); err != nil {
				return err
			}
			resp = toDocumentResponse(doc)
			tx.trail.record(companyID, AuditEntityDocument, doc.ID, AuditActionUpdated, before, resp)
			return nil
		})
	})
	return resp, err
}

// Post promotes a draft document to pending so it can be settled
func (s *DocumentService) Post(ctx context.Context, companyID, id uuid.UUID) (*DocumentResponse, error) {
	var resp *DocumentResponse
	err := traced(ctx, "document", "post", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			doc, err := tx.lockDocument(ctx, companyID, id)
			if err != nil {
				return err
			}
			if err := s.core.validateOpen(ctx, tx, companyID, doc.DocumentDate); err != nil {
				return err
			}
			before := toDocumentResponse(doc)
			if err := doc.Post(tx.now); err != nil {
				return err
			}
			if err := tx.repos.Documents().Save(ctx, doc); err != nil {
				return err
			}
			resp = toDocumentResponse(doc)
			tx.trail.record(companyID, AuditEntityDocument, doc.ID, AuditActionPosted, before, resp)
			return nil
		})
	})
	return resp, err
}

// Cancel terminates a document that was never settled and has no active allocations
func (s *DocumentService) Cancel(ctx context.Context, companyID, id uuid.UUID, reason string) (*DocumentResponse, error) {
	var resp *DocumentResponse
	err := traced(ctx, "document", "cancel", companyID, func(ctx context.Context) error {
		return s.core.run(ctx, func(ctx context.Context, tx *txContext) error {
			doc, err := tx.lockDocument(ctx, companyID, id)
			if err != nil {
				return err
			}
			before := toDocumentResponse(doc)
			if err := doc.Cancel(reason, tx.now); err != nil {
				return err
			}
			if err := tx.repos.Documents().Save(ctx, doc); err != nil {
				return err
			}
			resp = toDocumentResponse(doc)
			tx.trail.record(companyID, AuditEntityDocument, doc.ID, AuditActionCancelled, before, resp)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("document cancelled",
			zap.String("document_id", id.String()),
			zap.String("document_number", resp.DocumentNumber),
		)
	}
	return resp, err
}

// Reverse cancels the document's active allocations and posts a negated mirror dated today
func (s *DocumentService) Reverse(ctx context.Context, companyID, id uuid.UUID, reason string) (*DocumentReversalResponse, error) {
	var resp *DocumentReversalResponse
	err := traced(ctx, "document", "reverse", companyID, func(ctx context.Context) error {
		return s.core.runNumbered(ctx, settlement.NumberScopeDocument, func(ctx context.Context, tx *txContext) error {
			doc, err := s.core.lockDocumentForRelease(ctx, tx, companyID, id)
			if err != nil {
				return err
			}
			if err := doc.EnsureReversible(); err != nil {
				return err
			}
			today := tx.today()
			if err := s.core.validateOpen(ctx, tx, companyID, today); err != nil {
				return err
			}
			if _, err := s.core.cancelDocumentAllocations(ctx, tx, doc, reason); err != nil {
				return err
			}

			before := toDocumentResponse(doc)
			number, err := s.core.nextNumber(ctx, tx, settlement.DocumentSequenceKey(companyID, doc.Type, today.Year()))
			if err != nil {
				return err
			}
			mirror, err := doc.Reverse(number, today, reason, tx.now)
			if err != nil {
				return err
			}
			mirror.SetCreatedBy(tx.actor.UserID)
			if err := tx.repos.Documents().Create(ctx, mirror); err != nil {
				return err
			}
			if err := tx.repos.Documents().Save(ctx, doc); err != nil {
				return err
			}
			resp = &DocumentReversalResponse{
				Original: toDocumentResponse(doc),
				Reversal: toDocumentResponse(mirror),
			}
			tx.trail.record(companyID, AuditEntityDocument, doc.ID, AuditActionReversed, before, resp.Original)
			tx.trail.record(companyID, AuditEntityDocument, mirror.ID, AuditActionCreated, nil, resp.Reversal)
			return nil
		})
	})
	if err == nil {
		s.core.logger.Info("document reversed",
			zap.String("document_number", resp.Original.DocumentNumber),
			zap.String("reversal_number", resp.Reversal.DocumentNumber),
		)
	}
	return resp, err
}

// Get returns one document with its lines
func (s *DocumentService) Get(ctx context.Context, companyID, id uuid.UUID) (*DocumentResponse, error) {
	var resp *DocumentResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		doc, err := repos.Documents().FindByID(ctx, companyID, id)
		if err != nil {
			return err
		}
		resp = toDocumentResponse(doc)
		return nil
	})
	return resp, err
}

// List returns a page of documents and the total match count
func (s *DocumentService) List(ctx context.Context, companyID uuid.UUID, filter DocumentListFilter) ([]DocumentResponse, int64, error) {
	var (
		out   []DocumentResponse
		total int64
	)
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		docs, n, err := repos.Documents().List(ctx, companyID, filter.toDomain())
		if err != nil {
			return err
		}
		out, total = toDocumentResponses(docs), n
		return nil
	})
	return out, total, err
}

// OpenDocumentsForParty lists a party's pending and partial documents in FIFO order.
// An empty direction returns both sides.
func (s *DocumentService) OpenDocumentsForParty(ctx context.Context, companyID, partyID uuid.UUID, direction settlement.DocumentDirection) ([]DocumentResponse, error) {
	directions := []settlement.DocumentDirection{settlement.DirectionPayable, settlement.DirectionReceivable}
	if direction != "" {
		directions = []settlement.DocumentDirection{direction}
	}
	var out []DocumentResponse
	err := s.core.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		docs, err := repos.Documents().FindOpen(ctx, companyID, partyID, directions)
		if err != nil {
			return err
		}
		settlement.SortFIFO(docs)
		out = toDocumentResponses(docs)
		return nil
	})
	return out, err
}
