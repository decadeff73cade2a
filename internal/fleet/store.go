package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/viaurbana/frota/internal/catalog"
)

// DefaultListLimit caps form listings when the caller does not set one.
const DefaultListLimit = 50

// Store is the pgx-backed repository for form submissions.
type Store struct {
	db catalog.DBTX
}

// NewStore creates a Store on top of a pool or transaction.
func NewStore(db catalog.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) InsertTrip(ctx context.Context, t TripLog) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO trip_logs (id, car_id, driver, line, odometer_start, odometer_end, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID, t.CarID, t.Driver, t.Line, t.OdometerStart, t.OdometerEnd, t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert trip log: %w", err)
	}
	return nil
}

func (s *Store) ListTrips(ctx context.Context, carID string, limit int) ([]TripLog, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, car_id, driver, line, odometer_start, odometer_end, created_at
		FROM trip_logs
		WHERE ($1 = '' OR car_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, carID, limit)
	if err != nil {
		return nil, fmt.Errorf("list trip logs: %w", err)
	}
	defer rows.Close()

	var out []TripLog
	for rows.Next() {
		var t TripLog
		if err := rows.Scan(&t.ID, &t.CarID, &t.Driver, &t.Line,
			&t.OdometerStart, &t.OdometerEnd, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("list trip logs: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) InsertFueling(ctx context.Context, f Fueling) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO fuelings (id, car_id, odometer, liters, fuel_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, f.ID, f.CarID, f.Odometer, f.Liters, f.FuelType, f.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert fueling: %w", err)
	}
	return nil
}

func (s *Store) ListFuelings(ctx context.Context, carID string, limit int) ([]Fueling, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, car_id, odometer, liters, fuel_type, created_at
		FROM fuelings
		WHERE ($1 = '' OR car_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, carID, limit)
	if err != nil {
		return nil, fmt.Errorf("list fuelings: %w", err)
	}
	defer rows.Close()

	var out []Fueling
	for rows.Next() {
		var f Fueling
		if err := rows.Scan(&f.ID, &f.CarID, &f.Odometer, &f.Liters,
			&f.FuelType, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("list fuelings: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (s *Store) InsertInspection(ctx context.Context, ti TireInspection) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO tire_inspections (id, car_id, position, pressure_psi, tread_mm, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ti.ID, ti.CarID, ti.Position, ti.PressurePSI, ti.TreadMM, ti.Notes, ti.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tire inspection: %w", err)
	}
	return nil
}

func (s *Store) ListInspections(ctx context.Context, carID string, limit int) ([]TireInspection, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, car_id, position, pressure_psi, tread_mm, notes, created_at
		FROM tire_inspections
		WHERE ($1 = '' OR car_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, carID, limit)
	if err != nil {
		return nil, fmt.Errorf("list tire inspections: %w", err)
	}
	defer rows.Close()

	var out []TireInspection
	for rows.Next() {
		var ti TireInspection
		if err := rows.Scan(&ti.ID, &ti.CarID, &ti.Position, &ti.PressurePSI,
			&ti.TreadMM, &ti.Notes, &ti.CreatedAt); err != nil {
			return nil, fmt.Errorf("list tire inspections: %w", err)
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

func (s *Store) InsertChecklist(ctx context.Context, c Checklist) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO checklists (id, car_id, attendant, items, notes, photo_keys, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.CarID, c.Attendant, c.Items, c.Notes, c.PhotoKeys, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert checklist: %w", err)
	}
	return nil
}

func (s *Store) ListChecklists(ctx context.Context, carID string, limit int) ([]Checklist, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, car_id, attendant, items, notes, photo_keys, created_at
		FROM checklists
		WHERE ($1 = '' OR car_id = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`, carID, limit)
	if err != nil {
		return nil, fmt.Errorf("list checklists: %w", err)
	}
	defer rows.Close()

	var out []Checklist
	for rows.Next() {
		var c Checklist
		if err := rows.Scan(&c.ID, &c.CarID, &c.Attendant, &c.Items,
			&c.Notes, &c.PhotoKeys, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("list checklists: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// FuelUsage aggregates the distance driven and fuel consumed for one
// vehicle since a point in time.
func (s *Store) FuelUsage(ctx context.Context, carID string, since time.Time) (km, liters float64, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(odometer_end - odometer_start), 0)
		FROM trip_logs
		WHERE car_id = $1 AND created_at >= $2
	`, carID, since).Scan(&km)
	if err != nil {
		return 0, 0, fmt.Errorf("sum trip distance: %w", err)
	}

	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(liters), 0)
		FROM fuelings
		WHERE car_id = $1 AND created_at >= $2
	`, carID, since).Scan(&liters)
	if err != nil {
		return 0, 0, fmt.Errorf("sum fuel liters: %w", err)
	}

	return km, liters, nil
}

// FormCounts holds per-form submission counts for the dashboard.
type FormCounts struct {
	Trips       int `json:"trips"`
	Fuelings    int `json:"fuelings"`
	Inspections int `json:"inspections"`
	Checklists  int `json:"checklists"`
}

// CountSince counts submissions of every form kind since a point in time.
func (s *Store) CountSince(ctx context.Context, since time.Time) (FormCounts, error) {
	var c FormCounts
	err := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM trip_logs WHERE created_at >= $1),
			(SELECT COUNT(*) FROM fuelings WHERE created_at >= $1),
			(SELECT COUNT(*) FROM tire_inspections WHERE created_at >= $1),
			(SELECT COUNT(*) FROM checklists WHERE created_at >= $1)
	`, since).Scan(&c.Trips, &c.Fuelings, &c.Inspections, &c.Checklists)
	if err != nil {
		return FormCounts{}, fmt.Errorf("count submissions: %w", err)
	}
	return c, nil
}
