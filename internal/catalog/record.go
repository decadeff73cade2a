// Package catalog implements the vehicle-parameter reconciliation pipeline:
// spreadsheet parsing, row normalization, content-hash based diffing and
// idempotent upsert against the stored catalog.
// This package has no HTTP dependencies and can be used by any frontend.
package catalog

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Status marks whether a vehicle is present in the latest committed import.
// Vehicles are never physically deleted; inactive means "no longer present".
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// ChassisType is the closed set of bus body configurations. The tier selects
// which tire-position diagram applies on inspection forms.
type ChassisType string

const (
	ChassisConvencional ChassisType = "CONVENCIONAL"
	ChassisArticulado   ChassisType = "ARTICULADO"
	ChassisPadrao       ChassisType = "PADRÃO"
	ChassisUnknown      ChassisType = "UNKNOWN"
)

// Record holds one physical vehicle's fuel-efficiency parameters.
//
// Yellow, Green and Gold are km/l efficiency targets. The tier names imply
// Yellow <= Green <= Gold but the ordering is not validated on import; a
// malformed spreadsheet is accepted as-is.
type Record struct {
	CarID        string      `json:"carId"`
	Status       Status      `json:"status"`
	ChassisType  ChassisType `json:"chassisType"`
	Yellow       float64     `json:"thYellow"`
	Green        float64     `json:"thGreen"`
	Gold         float64     `json:"thGold"`
	TankCapacity *float64    `json:"tankCapacity,omitempty"`
	ContentHash  string      `json:"contentHash"`
	UpdatedAt    time.Time   `json:"updatedAt,omitzero"`
}

// Catalog maps CarID to its Record, representing the full set of known
// vehicles at one point in time. Keys are unique by construction.
type Catalog map[string]Record
