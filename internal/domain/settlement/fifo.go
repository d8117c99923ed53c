package settlement

import (
	"sort"

	"github.com/shopspring/decimal"
)

// SortFIFO orders documents oldest obligation first: due date ascending with
// undated documents last, then document date, then creation time.
func SortFIFO(documents []Document) {
	sort.SliceStable(documents, func(i, j int) bool {
		a, b := documents[i], documents[j]
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			if !a.DueDate.Equal(*b.DueDate) {
				return a.DueDate.Before(*b.DueDate)
			}
		case a.DueDate != nil:
			return true
		case b.DueDate != nil:
			return false
		}
		if !a.DocumentDate.Equal(b.DocumentDate) {
			return a.DocumentDate.Before(b.DocumentDate)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// PlanFIFO spreads amount over documents in SortFIFO order.
// Each document receives min(unpaid, remaining); documents with nothing unpaid are skipped.
func PlanFIFO(amount decimal.Decimal, documents []Document) []AllocationLine {
	sorted := make([]Document, len(documents))
	copy(sorted, documents)
	SortFIFO(sorted)

	remaining := amount
	lines := make([]AllocationLine, 0, len(sorted))
	for _, doc := range sorted {
		if !remaining.IsPositive() {
			break
		}
		if !doc.Status.CanAllocate() {
			continue
		}
		unpaid := doc.UnpaidAmount()
		if !unpaid.IsPositive() {
			continue
		}
		take := decimal.Min(unpaid, remaining)
		lines = append(lines, AllocationLine{DocumentID: doc.ID, Amount: take})
		remaining = remaining.Sub(take)
	}
	return lines
}
