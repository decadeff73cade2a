package web

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/viaurbana/frota/internal/catalog"
	"github.com/viaurbana/frota/internal/logging"
)

// readUpload extracts the spreadsheet from a multipart form. The optional
// "sheet" field overrides the configured preferred sheet.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (filename string, data []byte, sheet string, ok bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)

	if err := r.ParseMultipartForm(s.opts.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "file too large or invalid form")
		return "", nil, "", false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file provided")
		return "", nil, "", false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		return "", nil, "", false
	}

	sheet = r.FormValue("sheet")
	if sheet == "" {
		sheet = s.opts.PreferredSheet
	}
	return header.Filename, data, sheet, true
}

// handleCatalogValidate parses the upload and returns the diff against the
// stored catalog without writing anything.
func (s *Server) handleCatalogValidate(w http.ResponseWriter, r *http.Request) {
	filename, data, sheet, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	diff, err := s.catalog.Validate(r.Context(), filename, data, sheet)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, diff)
}

// handleCatalogCommit applies the upload to the stored catalog.
func (s *Server) handleCatalogCommit(w http.ResponseWriter, r *http.Request) {
	filename, data, sheet, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	logger := logging.WithFields(r.Context(), "filename", filename, "sheet", sheet)
	logger.Info("catalog commit started", "bytes", len(data))

	summary, err := s.catalog.Commit(r.Context(), filename, data, sheet)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logger.Info("catalog commit finished",
		"added", summary.Added,
		"changed", summary.Changed,
		"inactivated", summary.Inactivated,
	)
	writeJSON(w, summary)
}

// handleListVehicles lists catalog records, optionally filtered by status.
func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	var status catalog.Status
	switch r.URL.Query().Get("status") {
	case "", "all":
		status = ""
	case "active":
		status = catalog.StatusActive
	case "inactive":
		status = catalog.StatusInactive
	default:
		writeError(w, http.StatusBadRequest, "status must be active, inactive or all")
		return
	}

	vehicles, err := s.vehicles.ListVehicles(r.Context(), status)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if vehicles == nil {
		vehicles = []catalog.Record{}
	}

	writeJSON(w, vehicles)
}

// handleGetVehicle returns one catalog record. Inactive vehicles are still
// retrievable so their history stays reachable.
func (s *Server) handleGetVehicle(w http.ResponseWriter, r *http.Request) {
	carID := catalog.NormalizeCarID(chi.URLParam(r, "carID"))
	if carID == "" {
		writeError(w, http.StatusBadRequest, "missing vehicle identifier")
		return
	}

	rec, err := s.vehicles.GetVehicle(r.Context(), carID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, rec)
}

// handleVehicleEfficiency returns the km/l summary for one vehicle.
func (s *Server) handleVehicleEfficiency(w http.ResponseWriter, r *http.Request) {
	carID := chi.URLParam(r, "carID")
	days := queryInt(r, "days", 30)

	sum, err := s.fleet.Efficiency(r.Context(), carID, days)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, sum)
}
