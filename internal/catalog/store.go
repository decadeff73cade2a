package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrVehicleNotFound is returned when no record exists for a CarID.
var ErrVehicleNotFound = errors.New("vehicle not found")

// Store is the pgx-backed vehicle catalog repository.
type Store struct {
	db DBTX
}

// NewStore creates a Store on top of a pool or transaction.
func NewStore(db DBTX) *Store {
	return &Store{db: db}
}

const recordColumns = `car_id, status, chassis_type, th_yellow, th_green, th_gold, tank_capacity, content_hash, updated_at`

// LoadCatalog reads the full stored catalog, active and inactive alike.
// Called fresh at the start of every validate/commit request; never cached.
func (s *Store) LoadCatalog(ctx context.Context) (Catalog, error) {
	rows, err := s.db.Query(ctx, `SELECT `+recordColumns+` FROM vehicles`)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	defer rows.Close()

	cat := make(Catalog)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		cat[rec.CarID] = rec
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return cat, nil
}

// UpsertActive persists a record with status active, overwriting any
// existing row for the same CarID. Idempotent by construction.
func (s *Store) UpsertActive(ctx context.Context, rec Record) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO vehicles (car_id, status, chassis_type, th_yellow, th_green, th_gold, tank_capacity, content_hash, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (car_id) DO UPDATE SET
			status = EXCLUDED.status,
			chassis_type = EXCLUDED.chassis_type,
			th_yellow = EXCLUDED.th_yellow,
			th_green = EXCLUDED.th_green,
			th_gold = EXCLUDED.th_gold,
			tank_capacity = EXCLUDED.tank_capacity,
			content_hash = EXCLUDED.content_hash,
			updated_at = now()
	`, rec.CarID, StatusActive, rec.ChassisType, rec.Yellow, rec.Green, rec.Gold, rec.TankCapacity, rec.ContentHash)
	if err != nil {
		return fmt.Errorf("upsert vehicle %s: %w", rec.CarID, err)
	}
	return nil
}

// Deactivate soft-deletes a vehicle: the status flag flips to inactive and
// every semantic field keeps its previously stored value, so the record
// stays retrievable for audit and history. The content hash is bookkeeping
// and tracks the new status.
func (s *Store) Deactivate(ctx context.Context, carID, contentHash string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE vehicles SET status = $2, content_hash = $3, updated_at = now() WHERE car_id = $1
	`, carID, StatusInactive, contentHash)
	if err != nil {
		return fmt.Errorf("deactivate vehicle %s: %w", carID, err)
	}
	return nil
}

// ListVehicles returns records filtered by status; pass an empty string for
// all vehicles. Ordered by CarID for stable display.
func (s *Store) ListVehicles(ctx context.Context, status Status) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM vehicles ORDER BY car_id`
	args := []any{}
	if status != "" {
		query = `SELECT ` + recordColumns + ` FROM vehicles WHERE status = $1 ORDER BY car_id`
		args = append(args, status)
	}

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("list vehicles: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vehicles: %w", err)
	}
	return recs, nil
}

// GetVehicle fetches one record by CarID regardless of status; inactive
// vehicles remain retrievable by id.
func (s *Store) GetVehicle(ctx context.Context, carID string) (Record, error) {
	row := s.db.QueryRow(ctx, `SELECT `+recordColumns+` FROM vehicles WHERE car_id = $1`, carID)

	rec, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrVehicleNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get vehicle %s: %w", carID, err)
	}
	return rec, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	err := row.Scan(&rec.CarID, &rec.Status, &rec.ChassisType,
		&rec.Yellow, &rec.Green, &rec.Gold,
		&rec.TankCapacity, &rec.ContentHash, &rec.UpdatedAt)
	return rec, err
}
