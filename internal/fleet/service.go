package fleet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/viaurbana/frota/internal/catalog"
)

// Tier labels a vehicle's measured efficiency against its catalog targets.
const (
	TierGold   = "gold"
	TierGreen  = "green"
	TierYellow = "yellow"
	TierBelow  = "below"
	TierNoData = "no_data"
)

// CatalogReader is the slice of the vehicle catalog this package consumes.
type CatalogReader interface {
	GetVehicle(ctx context.Context, carID string) (catalog.Record, error)
	ListVehicles(ctx context.Context, status catalog.Status) ([]catalog.Record, error)
}

// FormStore is the storage surface for form submissions. *Store satisfies
// it; tests use an in-memory fake.
type FormStore interface {
	InsertTrip(ctx context.Context, t TripLog) error
	ListTrips(ctx context.Context, carID string, limit int) ([]TripLog, error)
	InsertFueling(ctx context.Context, f Fueling) error
	ListFuelings(ctx context.Context, carID string, limit int) ([]Fueling, error)
	InsertInspection(ctx context.Context, ti TireInspection) error
	ListInspections(ctx context.Context, carID string, limit int) ([]TireInspection, error)
	InsertChecklist(ctx context.Context, c Checklist) error
	ListChecklists(ctx context.Context, carID string, limit int) ([]Checklist, error)
	FuelUsage(ctx context.Context, carID string, since time.Time) (km, liters float64, err error)
	CountSince(ctx context.Context, since time.Time) (FormCounts, error)
}

// Service validates and persists form submissions and computes summaries.
type Service struct {
	store    FormStore
	vehicles CatalogReader
}

// NewService creates the fleet service.
func NewService(store FormStore, vehicles CatalogReader) *Service {
	return &Service{store: store, vehicles: vehicles}
}

// SubmitTrip validates and stores a trip log, assigning id and timestamp.
func (s *Service) SubmitTrip(ctx context.Context, t *TripLog) error {
	if err := t.Validate(); err != nil {
		return err
	}
	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()
	return s.store.InsertTrip(ctx, *t)
}

// SubmitFueling validates and stores a fueling record.
func (s *Service) SubmitFueling(ctx context.Context, f *Fueling) error {
	if err := f.Validate(); err != nil {
		return err
	}
	f.ID = uuid.New()
	f.CreatedAt = time.Now().UTC()
	return s.store.InsertFueling(ctx, *f)
}

// SubmitInspection validates and stores a tire inspection.
func (s *Service) SubmitInspection(ctx context.Context, ti *TireInspection) error {
	if err := ti.Validate(); err != nil {
		return err
	}
	ti.ID = uuid.New()
	ti.CreatedAt = time.Now().UTC()
	return s.store.InsertInspection(ctx, *ti)
}

// SubmitChecklist validates and stores a checklist. Photo keys point into
// the object store and are recorded as-is.
func (s *Service) SubmitChecklist(ctx context.Context, c *Checklist) error {
	if err := c.Validate(); err != nil {
		return err
	}
	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	return s.store.InsertChecklist(ctx, *c)
}

func (s *Service) ListTrips(ctx context.Context, carID string, limit int) ([]TripLog, error) {
	return s.store.ListTrips(ctx, catalog.NormalizeCarID(carID), limit)
}

func (s *Service) ListFuelings(ctx context.Context, carID string, limit int) ([]Fueling, error) {
	return s.store.ListFuelings(ctx, catalog.NormalizeCarID(carID), limit)
}

func (s *Service) ListInspections(ctx context.Context, carID string, limit int) ([]TireInspection, error) {
	return s.store.ListInspections(ctx, catalog.NormalizeCarID(carID), limit)
}

func (s *Service) ListChecklists(ctx context.Context, carID string, limit int) ([]Checklist, error) {
	return s.store.ListChecklists(ctx, catalog.NormalizeCarID(carID), limit)
}

// Thresholds echoes the vehicle's catalog targets in a summary.
type Thresholds struct {
	Yellow float64 `json:"yellow"`
	Green  float64 `json:"green"`
	Gold   float64 `json:"gold"`
}

// EfficiencySummary is the km/l figure for one vehicle over a period,
// classified against its catalog thresholds.
type EfficiencySummary struct {
	CarID      string     `json:"carId"`
	Days       int        `json:"days"`
	Km         float64    `json:"km"`
	Liters     float64    `json:"liters"`
	KmPerLiter float64    `json:"kmPerLiter"`
	Tier       string     `json:"tier"`
	Thresholds Thresholds `json:"thresholds"`
}

// Efficiency computes the km/l summary for one vehicle over the last days.
// Inactive vehicles are still reportable.
func (s *Service) Efficiency(ctx context.Context, carID string, days int) (EfficiencySummary, error) {
	carID = catalog.NormalizeCarID(carID)
	if days <= 0 {
		days = 30
	}

	rec, err := s.vehicles.GetVehicle(ctx, carID)
	if err != nil {
		return EfficiencySummary{}, err
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	km, liters, err := s.store.FuelUsage(ctx, carID, since)
	if err != nil {
		return EfficiencySummary{}, err
	}

	sum := EfficiencySummary{
		CarID:      carID,
		Days:       days,
		Km:         km,
		Liters:     liters,
		Thresholds: Thresholds{Yellow: rec.Yellow, Green: rec.Green, Gold: rec.Gold},
	}
	if liters > 0 {
		sum.KmPerLiter = km / liters
	}
	sum.Tier = ClassifyTier(rec, sum.KmPerLiter, liters > 0)

	return sum, nil
}

// ClassifyTier maps a measured km/l figure onto the vehicle's target tiers.
// The tier thresholds come from the catalog unvalidated, so comparison runs
// strictly top-down: gold first, then green, then yellow.
func ClassifyTier(rec catalog.Record, kmPerLiter float64, hasData bool) string {
	switch {
	case !hasData:
		return TierNoData
	case kmPerLiter >= rec.Gold && rec.Gold > 0:
		return TierGold
	case kmPerLiter >= rec.Green && rec.Green > 0:
		return TierGreen
	case kmPerLiter >= rec.Yellow && rec.Yellow > 0:
		return TierYellow
	default:
		return TierBelow
	}
}

// DashboardSummary aggregates fleet state for the manager dashboard.
type DashboardSummary struct {
	Days             int        `json:"days"`
	ActiveVehicles   int        `json:"activeVehicles"`
	InactiveVehicles int        `json:"inactiveVehicles"`
	Forms            FormCounts `json:"forms"`
}

// Dashboard builds the summary over the last days.
func (s *Service) Dashboard(ctx context.Context, days int) (DashboardSummary, error) {
	if days <= 0 {
		days = 30
	}

	active, err := s.vehicles.ListVehicles(ctx, catalog.StatusActive)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list active vehicles: %w", err)
	}
	inactive, err := s.vehicles.ListVehicles(ctx, catalog.StatusInactive)
	if err != nil {
		return DashboardSummary{}, fmt.Errorf("list inactive vehicles: %w", err)
	}

	counts, err := s.store.CountSince(ctx, time.Now().UTC().AddDate(0, 0, -days))
	if err != nil {
		return DashboardSummary{}, err
	}

	return DashboardSummary{
		Days:             days,
		ActiveVehicles:   len(active),
		InactiveVehicles: len(inactive),
		Forms:            counts,
	}, nil
}
