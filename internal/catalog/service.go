package catalog

import (
	"context"
	"fmt"
	"log/slog"
)

// CatalogStore is the storage surface the reconciliation service needs.
// *Store satisfies it; tests use an in-memory fake.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) (Catalog, error)
	UpsertActive(ctx context.Context, rec Record) error
	Deactivate(ctx context.Context, carID, contentHash string) error
}

// Service runs the validate/commit operations over uploaded spreadsheets.
type Service struct {
	store CatalogStore
}

// NewService creates the catalog service.
func NewService(store CatalogStore) *Service {
	return &Service{store: store}
}

// CommitSummary reports what a commit wrote.
type CommitSummary struct {
	Added       int `json:"added"`
	Changed     int `json:"changed"`
	Inactivated int `json:"inactivated"`
}

// Validate parses the upload and diffs it against the currently stored
// catalog. Read-only: no persisted state changes.
func (s *Service) Validate(ctx context.Context, filename string, data []byte, preferredSheet string) (Diff, error) {
	next, err := Parse(filename, data, preferredSheet)
	if err != nil {
		return Diff{}, err
	}

	current, err := s.store.LoadCatalog(ctx)
	if err != nil {
		return Diff{}, fmt.Errorf("load current catalog: %w", err)
	}

	return DiffCatalogs(current, next), nil
}

// Commit recomputes the diff against current storage state and applies it:
// added and changed records are upserted active, removed records are
// soft-deactivated. Committing the same upload twice produces the same
// stored state.
//
// Records are written independently; there is no batch transaction. A
// partial failure leaves earlier writes in place, so callers must treat
// commit as at-least-once.
func (s *Service) Commit(ctx context.Context, filename string, data []byte, preferredSheet string) (CommitSummary, error) {
	diff, err := s.Validate(ctx, filename, data, preferredSheet)
	if err != nil {
		return CommitSummary{}, err
	}

	var summary CommitSummary

	for _, rec := range diff.Added {
		if err := s.store.UpsertActive(ctx, rec); err != nil {
			return summary, err
		}
		summary.Added++
	}

	for _, pair := range diff.Changed {
		if err := s.store.UpsertActive(ctx, pair.After); err != nil {
			return summary, err
		}
		summary.Changed++
	}

	for _, rec := range diff.Removed {
		// The stored fingerprint must reflect the inactive status, or a
		// later import reintroducing the vehicle would hash identically
		// and never reactivate it.
		rec.Status = StatusInactive
		if err := s.store.Deactivate(ctx, rec.CarID, ContentHash(rec)); err != nil {
			return summary, err
		}
		summary.Inactivated++
	}

	slog.Info("catalog committed",
		"file", filename,
		"added", summary.Added,
		"changed", summary.Changed,
		"inactivated", summary.Inactivated,
	)

	return summary, nil
}
