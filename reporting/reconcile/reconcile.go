// Package reconcile resolves candidate reference rows (tags, categories,
// category values, teams, programs) to exactly one persisted row, keyed
// case-insensitively by name. Mutations reuse existing rows instead of
// inserting near-duplicates like "news" and "News".
package reconcile

import (
	"fmt"
	"log/slog"
	"strings"

	"diversity_platform/reporting/schema"

	"gorm.io/gorm"
)

// DuplicateReferenceDataError reports a pre-existing data quality problem:
// more than one non-deleted row already matches the name case-insensitively.
// Picking one arbitrarily would hide the corruption, so the mutation fails
// and the transaction rolls back.
type DuplicateReferenceDataError struct {
	Kind string
	Name string
}

func (e *DuplicateReferenceDataError) Error() string {
	return fmt.Sprintf("duplicate reference data: multiple %v rows match name %q", e.Kind, e.Name)
}

var ErrEmptyName = fmt.Errorf("name must not be blank")

// Batch tracks rows resolved earlier in the same request. A name that appears
// twice within one mutation resolves to the first occurrence's in-flight row
// even though it is not committed yet, so the database lookup alone is not
// enough.
type Batch[T any] struct {
	inflight map[string]*T
}

func NewBatch[T any]() *Batch[T] {
	return &Batch[T]{inflight: make(map[string]*T)}
}

// Resolve returns the single row for the candidate name, reusing a non-deleted
// row on a case-insensitive match and creating one via build otherwise. The
// candidate's remaining payload is ignored on reuse; only the relationship
// attachment the caller performs afterwards matters.
func (b *Batch[T]) Resolve(txn *gorm.DB, name string, build func(name string) *T) (*T, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, ErrEmptyName
	}
	key := strings.ToLower(trimmed)

	if row, ok := b.inflight[key]; ok {
		return row, nil
	}

	var rows []T
	result := txn.Where("lower(name) = ?", key).Limit(2).Find(&rows)
	if result.Error != nil {
		slog.Error("sql error looking up reference data by name", "name", trimmed, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}

	if len(rows) > 1 {
		return nil, &DuplicateReferenceDataError{Kind: fmt.Sprintf("%T", rows[0]), Name: trimmed}
	}

	if len(rows) == 1 {
		row := &rows[0]
		b.inflight[key] = row
		return row, nil
	}

	row := build(trimmed)
	if result := txn.Create(row); result.Error != nil {
		slog.Error("sql error creating reference data row", "name", trimmed, "error", result.Error)
		return nil, schema.ErrDbAccessFailed
	}
	b.inflight[key] = row
	return row, nil
}
