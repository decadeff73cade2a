// Package fleet handles the operational form submissions: trip odometer
// logs, fuelings, tire inspections and vehicle checklists, plus the
// efficiency and dashboard summaries built on top of them.
package fleet

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/viaurbana/frota/internal/catalog"
)

// ErrInvalidForm marks validation failures so callers can distinguish bad
// input from storage faults.
var ErrInvalidForm = errors.New("invalid form")

// TripLog is one driver-submitted odometer reading pair for a trip.
type TripLog struct {
	ID            uuid.UUID `json:"id"`
	CarID         string    `json:"carId"`
	Driver        string    `json:"driver"`
	Line          string    `json:"line,omitempty"`
	OdometerStart float64   `json:"odometerStart"`
	OdometerEnd   float64   `json:"odometerEnd"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Fueling is one tank fill-up record.
type Fueling struct {
	ID        uuid.UUID `json:"id"`
	CarID     string    `json:"carId"`
	Odometer  float64   `json:"odometer"`
	Liters    float64   `json:"liters"`
	FuelType  string    `json:"fuelType,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TireInspection is one attendant-submitted tire check.
type TireInspection struct {
	ID          uuid.UUID `json:"id"`
	CarID       string    `json:"carId"`
	Position    string    `json:"position"`
	PressurePSI float64   `json:"pressurePsi"`
	TreadMM     float64   `json:"treadMm"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Checklist is a vehicle inspection checklist, optionally with photos
// stored in the object store and referenced here by key.
type Checklist struct {
	ID        uuid.UUID       `json:"id"`
	CarID     string          `json:"carId"`
	Attendant string          `json:"attendant"`
	Items     map[string]bool `json:"items"`
	Notes     string          `json:"notes,omitempty"`
	PhotoKeys []string        `json:"photoKeys,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Validate normalizes the vehicle identifier and checks form invariants.
func (t *TripLog) Validate() error {
	if err := normalizeCarID(&t.CarID); err != nil {
		return err
	}
	if strings.TrimSpace(t.Driver) == "" {
		return fmt.Errorf("%w: driver is required", ErrInvalidForm)
	}
	if t.OdometerStart < 0 || t.OdometerEnd < 0 {
		return fmt.Errorf("%w: odometer readings must be non-negative", ErrInvalidForm)
	}
	if t.OdometerEnd < t.OdometerStart {
		return fmt.Errorf("%w: odometer end %.1f is before start %.1f", ErrInvalidForm, t.OdometerEnd, t.OdometerStart)
	}
	return nil
}

// Validate normalizes the vehicle identifier and checks form invariants.
func (f *Fueling) Validate() error {
	if err := normalizeCarID(&f.CarID); err != nil {
		return err
	}
	if f.Liters <= 0 {
		return fmt.Errorf("%w: liters must be positive", ErrInvalidForm)
	}
	if f.Odometer < 0 {
		return fmt.Errorf("%w: odometer must be non-negative", ErrInvalidForm)
	}
	return nil
}

// Validate normalizes the vehicle identifier and checks form invariants.
func (ti *TireInspection) Validate() error {
	if err := normalizeCarID(&ti.CarID); err != nil {
		return err
	}
	if strings.TrimSpace(ti.Position) == "" {
		return fmt.Errorf("%w: tire position is required", ErrInvalidForm)
	}
	if ti.PressurePSI < 0 || ti.TreadMM < 0 {
		return fmt.Errorf("%w: pressure and tread must be non-negative", ErrInvalidForm)
	}
	return nil
}

// Validate normalizes the vehicle identifier and checks form invariants.
func (c *Checklist) Validate() error {
	if err := normalizeCarID(&c.CarID); err != nil {
		return err
	}
	if strings.TrimSpace(c.Attendant) == "" {
		return fmt.Errorf("%w: attendant is required", ErrInvalidForm)
	}
	if len(c.Items) == 0 {
		return fmt.Errorf("%w: checklist has no items", ErrInvalidForm)
	}
	return nil
}

func normalizeCarID(carID *string) error {
	id := catalog.NormalizeCarID(*carID)
	if id == "" {
		return fmt.Errorf("%w: vehicle identifier is required", ErrInvalidForm)
	}
	*carID = id
	return nil
}
