package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"

	appsettlement "github.com/erp/settlement/internal/application/settlement"
	"github.com/erp/settlement/internal/infrastructure/storage"
	"github.com/google/uuid"
)

const archiveContentType = "application/x-ndjson"

// ArchiveSink writes each committed batch to object storage as JSON lines.
// Keys look like <prefix>/<company>/<yyyy>/<mm>/<dd>/<first event id>.jsonl, so
// a batch spanning several companies becomes one object per company.
type ArchiveSink struct {
	store  storage.ObjectStore
	prefix string
}

// NewArchiveSink creates an archive sink rooted at prefix
func NewArchiveSink(store storage.ObjectStore, prefix string) *ArchiveSink {
	if prefix == "" {
		prefix = "audit"
	}
	return &ArchiveSink{store: store, prefix: prefix}
}

// Emit uploads one object per company in the batch
func (s *ArchiveSink) Emit(ctx context.Context, events []appsettlement.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}
	byCompany := make(map[uuid.UUID][]appsettlement.AuditEvent)
	for _, e := range events {
		byCompany[e.CompanyID] = append(byCompany[e.CompanyID], e)
	}
	companies := make([]uuid.UUID, 0, len(byCompany))
	for id := range byCompany {
		companies = append(companies, id)
	}
	sort.Slice(companies, func(i, j int) bool { return companies[i].String() < companies[j].String() })

	for _, companyID := range companies {
		batch := byCompany[companyID]
		body, err := encodeLines(batch)
		if err != nil {
			return err
		}
		key := s.objectKey(batch[0])
		if err := s.store.Upload(ctx, key, body, archiveContentType); err != nil {
			return fmt.Errorf("failed to archive %d audit events to %s: %w", len(batch), key, err)
		}
	}
	return nil
}

func (s *ArchiveSink) objectKey(first appsettlement.AuditEvent) string {
	at := first.OccurredAt.UTC()
	return path.Join(s.prefix, first.CompanyID.String(), at.Format("2006"), at.Format("01"), at.Format("02"),
		first.ID.String()+".jsonl")
}

func encodeLines(events []appsettlement.AuditEvent) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			return nil, fmt.Errorf("failed to encode audit event %s: %w", events[i].ID, err)
		}
	}
	return buf.Bytes(), nil
}

var _ appsettlement.AuditSink = (*ArchiveSink)(nil)
