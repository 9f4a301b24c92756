package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"support-orchestrator/internal/common/validation"
	"support-orchestrator/internal/models"
)

// FAQStore exposes the read-only FAQ knowledge base. Records are
// never mutated by the core.
type FAQStore interface {
	// All returns every record, ordered by ascending id so scoring
	// ties resolve deterministically downstream.
	All(ctx context.Context) ([]models.FAQRecord, error)
}

type faqDocument struct {
	Records []models.FAQRecord `json:"records"`
}

// FileFAQStore loads the knowledge base from a JSON file once,
// validating it against the schema before serving.
type FileFAQStore struct {
	records []models.FAQRecord
}

func NewFileFAQStore(path string) (*FileFAQStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open faq file: %w", err)
	}

	if err := validation.ValidateFAQDocument(raw); err != nil {
		return nil, err
	}

	var doc faqDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode faq file: %w", err)
	}

	sort.Slice(doc.Records, func(i, j int) bool {
		return doc.Records[i].ID < doc.Records[j].ID
	})

	return &FileFAQStore{records: doc.Records}, nil
}

func (s *FileFAQStore) All(ctx context.Context) ([]models.FAQRecord, error) {
	out := make([]models.FAQRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}
