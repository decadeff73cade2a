package web

import (
	"net/http"

	"github.com/viaurbana/frota/internal/catalog"
	"github.com/viaurbana/frota/internal/logging"
	"github.com/viaurbana/frota/internal/report"
)

// reportRequest is the body of POST /api/reports/fleet.
type reportRequest struct {
	Days int `json:"days"`
}

// reportResponse wraps the generated report text.
type reportResponse struct {
	Days   int    `json:"days"`
	Report string `json:"report"`
}

// handleFleetReport assembles a fleet snapshot and asks the generator for a
// narrative report.
func (s *Server) handleFleetReport(w http.ResponseWriter, r *http.Request) {
	if s.reports == nil || !s.reports.Available() {
		s.respondError(w, r, report.ErrUnavailable)
		return
	}

	req := reportRequest{Days: 30}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	if req.Days <= 0 {
		req.Days = 30
	}

	snap, err := s.buildSnapshot(r, req.Days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	text, err := s.reports.FleetReport(r.Context(), snap)
	if err != nil {
		logging.FromContext(r.Context()).Error("report generation failed", "error", err)
		writeError(w, http.StatusBadGateway, "report generation failed")
		return
	}

	writeJSON(w, reportResponse{Days: req.Days, Report: text})
}

// buildSnapshot gathers the dashboard totals and per-vehicle efficiency
// lines the generator works from.
func (s *Server) buildSnapshot(r *http.Request, days int) (report.FleetSnapshot, error) {
	ctx := r.Context()

	dash, err := s.fleet.Dashboard(ctx, days)
	if err != nil {
		return report.FleetSnapshot{}, err
	}

	snap := report.FleetSnapshot{
		PeriodDays:       days,
		ActiveVehicles:   dash.ActiveVehicles,
		InactiveVehicles: dash.InactiveVehicles,
		Trips:            dash.Forms.Trips,
		Fuelings:         dash.Forms.Fuelings,
		Inspections:      dash.Forms.Inspections,
		Checklists:       dash.Forms.Checklists,
	}

	active, err := s.vehicles.ListVehicles(ctx, catalog.StatusActive)
	if err != nil {
		return report.FleetSnapshot{}, err
	}

	for _, rec := range active {
		sum, err := s.fleet.Efficiency(ctx, rec.CarID, days)
		if err != nil {
			return report.FleetSnapshot{}, err
		}
		snap.Vehicles = append(snap.Vehicles, report.VehicleLine{
			CarID:      rec.CarID,
			Chassis:    string(rec.ChassisType),
			KmPerLiter: sum.KmPerLiter,
			Tier:       sum.Tier,
		})
	}

	return snap, nil
}
