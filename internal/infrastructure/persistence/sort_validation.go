package persistence

import (
	"fmt"
	"strings"

	"github.com/erp/settlement/internal/domain/shared"
	"gorm.io/gorm"
)

// ValidateSortOrder normalizes the sort order to ASC or DESC, defaulting to DESC
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField returns sortField when it is whitelisted, otherwise defaultField
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// DocumentSortFields contains allowed sort fields for documents
var DocumentSortFields = map[string]bool{
	"created_at":      true,
	"updated_at":      true,
	"document_number": true,
	"document_date":   true,
	"due_date":        true,
	"total_amount":    true,
	"status":          true,
}

// PaymentSortFields contains allowed sort fields for payments
var PaymentSortFields = map[string]bool{
	"created_at":     true,
	"updated_at":     true,
	"payment_number": true,
	"payment_date":   true,
	"amount":         true,
	"status":         true,
}

// paginate applies whitelisted ordering and the page window of f.
// The id tiebreaker keeps pages stable when the sort column repeats.
func paginate(query *gorm.DB, f shared.Filter, allowed map[string]bool) *gorm.DB {
	f = f.Normalize()
	field := ValidateSortField(f.OrderBy, allowed, "created_at")
	return query.
		Order(fmt.Sprintf("%s %s, id %s", field, ValidateSortOrder(f.OrderDir), ValidateSortOrder(f.OrderDir))).
		Offset(f.Offset()).
		Limit(f.PageSize)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes LIKE wildcards; queries declare ESCAPE '\'
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// likePattern builds a case-insensitive contains pattern for a user search term
func likePattern(search string) string {
	return "%" + strings.ToLower(escapeLike(strings.TrimSpace(search))) + "%"
}
