package catalog

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

// fakeStore is an in-memory CatalogStore.
type fakeStore struct {
	records  map[string]Record
	failNext bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]Record)}
}

func (f *fakeStore) LoadCatalog(_ context.Context) (Catalog, error) {
	if f.failNext {
		return nil, errors.New("storage unavailable")
	}
	cat := make(Catalog, len(f.records))
	for id, rec := range f.records {
		cat[id] = rec
	}
	return cat, nil
}

func (f *fakeStore) UpsertActive(_ context.Context, rec Record) error {
	rec.Status = StatusActive
	f.records[rec.CarID] = rec
	return nil
}

func (f *fakeStore) Deactivate(_ context.Context, carID, contentHash string) error {
	rec, ok := f.records[carID]
	if !ok {
		return fmt.Errorf("vehicle %s not stored", carID)
	}
	rec.Status = StatusInactive
	rec.ContentHash = contentHash
	f.records[carID] = rec
	return nil
}

func uploadCSV(rows ...string) []byte {
	data := "CARRO,TIPO,AMARELA,VERDE,OURO,TANQUE\n"
	for _, r := range rows {
		data += r + "\n"
	}
	return []byte(data)
}

func TestService_ValidateAgainstEmptyStorage(t *testing.T) {
	svc := NewService(newFakeStore())

	diff, err := svc.Validate(context.Background(), "up.csv", uploadCSV(
		"101,CONVENCIONAL,2,2.4,2.8,275",
		"205,ARTICULADO,1.8,2.1,2.5,",
	), "")
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}

	if len(diff.Added) != 2 || len(diff.Removed) != 0 || len(diff.Changed) != 0 {
		t.Errorf("diff = added %d removed %d changed %d, want 2/0/0",
			len(diff.Added), len(diff.Removed), len(diff.Changed))
	}
	if diff.Totals.Current != 0 || diff.Totals.Next != 2 {
		t.Errorf("Totals = %+v, want 0/2", diff.Totals)
	}
}

func TestService_ValidateIsReadOnly(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	if _, err := svc.Validate(context.Background(), "up.csv",
		uploadCSV("101,CONVENCIONAL,2,2.4,2.8,"), ""); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(store.records) != 0 {
		t.Errorf("Validate() persisted %d records", len(store.records))
	}
}

func TestService_CommitLifecycle(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	// First import: everything added.
	sum, err := svc.Commit(ctx, "v1.csv", uploadCSV(
		"101,CONVENCIONAL,2,2.4,2.8,",
		"205,ARTICULADO,1.8,2.1,2.5,",
	), "")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if sum.Added != 2 || sum.Changed != 0 || sum.Inactivated != 0 {
		t.Fatalf("first commit summary = %+v, want 2/0/0", sum)
	}

	// Second import: 101 changed, 205 omitted, 330 new.
	sum, err = svc.Commit(ctx, "v2.csv", uploadCSV(
		"101,CONVENCIONAL,2.2,2.4,2.8,",
		"330,PADRAO,1.9,2.2,2.6,",
	), "")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if sum.Added != 1 || sum.Changed != 1 || sum.Inactivated != 1 {
		t.Fatalf("second commit summary = %+v, want 1/1/1", sum)
	}

	if store.records["205"].Status != StatusInactive {
		t.Errorf("205 status = %q, want inactive after omission", store.records["205"].Status)
	}
	if store.records["205"].Yellow != 1.8 {
		t.Errorf("205 kept fields = %v, soft delete must not touch them", store.records["205"].Yellow)
	}
	if store.records["101"].Yellow != 2.2 {
		t.Errorf("101 yellow = %v, want 2.2 after change", store.records["101"].Yellow)
	}

	// Third import: 205 reintroduced with its old values. Its stored record
	// is inactive, so the hash differs and the record reactivates.
	sum, err = svc.Commit(ctx, "v3.csv", uploadCSV(
		"101,CONVENCIONAL,2.2,2.4,2.8,",
		"330,PADRAO,1.9,2.2,2.6,",
		"205,ARTICULADO,1.8,2.1,2.5,",
	), "")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if store.records["205"].Status != StatusActive {
		t.Errorf("205 status = %q, want active after reintroduction", store.records["205"].Status)
	}
	if sum.Inactivated != 0 {
		t.Errorf("third commit inactivated %d, want 0", sum.Inactivated)
	}
}

func TestService_CommitIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)
	ctx := context.Background()

	upload := uploadCSV("101,CONVENCIONAL,2,2.4,2.8,275")

	if _, err := svc.Commit(ctx, "up.csv", upload, ""); err != nil {
		t.Fatalf("first Commit() error = %v", err)
	}
	after := store.records["101"]

	sum, err := svc.Commit(ctx, "up.csv", upload, "")
	if err != nil {
		t.Fatalf("second Commit() error = %v", err)
	}
	if sum.Added != 0 || sum.Changed != 0 || sum.Inactivated != 0 {
		t.Errorf("second commit summary = %+v, want all zero", sum)
	}
	if store.records["101"] != after {
		t.Error("second commit altered stored state")
	}
}

func TestService_StorageFailureSurfaces(t *testing.T) {
	store := newFakeStore()
	store.failNext = true
	svc := NewService(store)

	_, err := svc.Validate(context.Background(), "up.csv",
		uploadCSV("101,CONVENCIONAL,2,2.4,2.8,"), "")
	if err == nil {
		t.Fatal("Validate() did not surface storage failure")
	}
}

func TestService_ParseErrorsAreTerminal(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.Validate(context.Background(), "up.csv",
		[]byte("CARRO,AMARELA\n,2\n"), "")
	if !errors.Is(err, ErrNoValidVehicles) {
		t.Errorf("Validate() error = %v, want ErrNoValidVehicles", err)
	}
}
