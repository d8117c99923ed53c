package persistence

import (
	"context"
	"fmt"

	"github.com/erp/settlement/internal/domain/settlement"
	"github.com/erp/settlement/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentRepository implements settlement.DocumentRepository using GORM
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GormDocumentRepository
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

func preloadLines(db *gorm.DB) *gorm.DB {
	return db.Order("line_no ASC")
}

// FindByID finds a document with its lines within a company
func (r *GormDocumentRepository) FindByID(ctx context.Context, companyID, id uuid.UUID) (*settlement.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "document", id)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate locks the document row until the transaction ends
func (r *GormDocumentRepository) FindByIDForUpdate(ctx context.Context, companyID, id uuid.UUID) (*settlement.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("company_id = ? AND id = ?", companyID, id).
		First(&model).Error; err != nil {
		return nil, notFound(err, "document", id)
	}
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", id).
		Order("line_no ASC").
		Find(&model.Lines).Error; err != nil {
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByNumber finds a document by its company-unique number
func (r *GormDocumentRepository) FindByNumber(ctx context.Context, companyID uuid.UUID, number string) (*settlement.Document, error) {
	var model models.DocumentModel
	if err := r.db.WithContext(ctx).
		Preload("Lines", preloadLines).
		Where("company_id = ? AND document_number = ?", companyID, number).
		First(&model).Error; err != nil {
		return nil, notFound(err, "document", number)
	}
	return model.ToDomain(), nil
}

// Create inserts the document and its lines
func (r *GormDocumentRepository) Create(ctx context.Context, doc *settlement.Document) error {
	model := models.DocumentModelFromDomain(doc)
	err := r.db.WithContext(ctx).Omit(clause.Associations).Create(model).Error
	if err != nil {
		return numberConflict(err, settlement.NumberScopeDocument, doc.DocumentNumber)
	}
	return r.insertLines(ctx, model.Lines)
}

func (r *GormDocumentRepository) insertLines(ctx context.Context, lines []models.DocumentLineModel) error {
	if len(lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&lines).Error
}

// Save writes every column and replaces the lines, guarded by version
func (r *GormDocumentRepository) Save(ctx context.Context, doc *settlement.Document) error {
	model := models.DocumentModelFromDomain(doc)
	result := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ? AND company_id = ? AND version = ?", doc.ID, doc.CompanyID, doc.Version-1).
		Select("*").
		Omit("id", "company_id", "created_at", "created_by", clause.Associations).
		Updates(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleVersion("document", doc.DocumentNumber)
	}
	if err := r.db.WithContext(ctx).
		Where("document_id = ?", doc.ID).
		Delete(&models.DocumentLineModel{}).Error; err != nil {
		return err
	}
	return r.insertLines(ctx, model.Lines)
}

// UpdateSettlement writes the cached allocated amount and derived status only
func (r *GormDocumentRepository) UpdateSettlement(ctx context.Context, doc *settlement.Document) error {
	result := r.db.WithContext(ctx).
		Model(&models.DocumentModel{}).
		Where("id = ? AND version = ?", doc.ID, doc.Version-1).
		Updates(map[string]any{
			"allocated_amount": doc.AllocatedAmount,
			"status":           doc.Status,
			"version":          doc.Version,
			"updated_at":       doc.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return staleVersion("document", doc.DocumentNumber)
	}
	return nil
}

// List returns one page of documents matching filter and the total match count
func (r *GormDocumentRepository) List(ctx context.Context, companyID uuid.UUID, filter settlement.DocumentFilter) ([]settlement.Document, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.DocumentModel{}).Where("company_id = ?", companyID)
	if filter.PartyID != nil {
		query = query.Where("party_id = ?", *filter.PartyID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Direction != "" {
		query = query.Where("direction = ?", filter.Direction)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.DateFrom != nil {
		query = query.Where("document_date >= ?", settlement.DateOnly(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		query = query.Where("document_date <= ?", settlement.DateOnly(*filter.DateTo))
	}
	if filter.Search != "" {
		pattern := likePattern(filter.Search)
		query = query.Where(`(LOWER(document_number) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.DocumentModel
	if err := paginate(query, filter.Filter, DocumentSortFields).
		Preload("Lines", preloadLines).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toDocuments(rows), total, nil
}

// FindOpen returns the pending and partial documents of a party in the given directions
func (r *GormDocumentRepository) FindOpen(ctx context.Context, companyID, partyID uuid.UUID, directions []settlement.DocumentDirection) ([]settlement.Document, error) {
	if len(directions) == 0 {
		return nil, nil
	}
	var rows []models.DocumentModel
	if err := r.db.WithContext(ctx).
		Where("company_id = ? AND party_id = ? AND direction IN ? AND status IN ?",
			companyID, partyID, directions,
			[]settlement.DocumentStatus{settlement.DocumentStatusPending, settlement.DocumentStatusPartial}).
		Order("document_date ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toDocuments(rows), nil
}

// MaxSequence returns the highest numeric counter among document numbers starting with prefix
func (r *GormDocumentRepository) MaxSequence(ctx context.Context, companyID uuid.UUID, prefix string) (int64, error) {
	return maxSequence(r.db.WithContext(ctx).Model(&models.DocumentModel{}), "document_number", companyID, prefix)
}

// maxSequence compares counters as integers so SI-2026-100000 beats SI-2026-99999.
// Suffixes that are not all digits, such as a hand-entered SI-2026-A1, are skipped.
func maxSequence(query *gorm.DB, column string, companyID uuid.UUID, prefix string) (int64, error) {
	suffix := fmt.Sprintf("SUBSTR(%s, %d)", column, len(prefix)+1)
	digitsOnly := suffix + " NOT GLOB '*[^0-9]*'"
	if query.Dialector.Name() == "postgres" {
		digitsOnly = suffix + " ~ '^[0-9]+$'"
	}
	var highest *int64
	if err := query.
		Select("MAX(CAST("+suffix+" AS BIGINT))").
		Where("company_id = ? AND "+column+" LIKE ? ESCAPE '\\'", companyID, escapeLike(prefix)+"%").
		Where("LENGTH(" + suffix + ") BETWEEN 1 AND 18").
		Where(digitsOnly).
		Scan(&highest).Error; err != nil {
		return 0, err
	}
	if highest == nil {
		return 0, nil
	}
	return *highest, nil
}

func toDocuments(rows []models.DocumentModel) []settlement.Document {
	docs := make([]settlement.Document, len(rows))
	for i := range rows {
		docs[i] = *rows[i].ToDomain()
	}
	return docs
}

var _ settlement.DocumentRepository = (*GormDocumentRepository)(nil)
