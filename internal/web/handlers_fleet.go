package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/viaurbana/frota/internal/fleet"
	"github.com/viaurbana/frota/internal/logging"
)

// maxPhotoSize bounds a single checklist photo.
const maxPhotoSize = 10 << 20

// queryInt reads an integer query parameter with a fallback.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// decodeJSON decodes the request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleSubmitTrip(w http.ResponseWriter, r *http.Request) {
	var trip fleet.TripLog
	if !decodeJSON(w, r, &trip) {
		return
	}

	if err := s.fleet.SubmitTrip(r.Context(), &trip); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, trip)
}

func (s *Server) handleListTrips(w http.ResponseWriter, r *http.Request) {
	trips, err := s.fleet.ListTrips(r.Context(), r.URL.Query().Get("carId"), queryInt(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if trips == nil {
		trips = []fleet.TripLog{}
	}
	writeJSON(w, trips)
}

func (s *Server) handleSubmitFueling(w http.ResponseWriter, r *http.Request) {
	var f fleet.Fueling
	if !decodeJSON(w, r, &f) {
		return
	}

	if err := s.fleet.SubmitFueling(r.Context(), &f); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, f)
}

func (s *Server) handleListFuelings(w http.ResponseWriter, r *http.Request) {
	fuelings, err := s.fleet.ListFuelings(r.Context(), r.URL.Query().Get("carId"), queryInt(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if fuelings == nil {
		fuelings = []fleet.Fueling{}
	}
	writeJSON(w, fuelings)
}

func (s *Server) handleSubmitInspection(w http.ResponseWriter, r *http.Request) {
	var ti fleet.TireInspection
	if !decodeJSON(w, r, &ti) {
		return
	}

	if err := s.fleet.SubmitInspection(r.Context(), &ti); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, ti)
}

func (s *Server) handleListInspections(w http.ResponseWriter, r *http.Request) {
	inspections, err := s.fleet.ListInspections(r.Context(), r.URL.Query().Get("carId"), queryInt(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if inspections == nil {
		inspections = []fleet.TireInspection{}
	}
	writeJSON(w, inspections)
}

// handleSubmitChecklist accepts a multipart form: text fields carId,
// attendant, notes, a JSON "items" field, and any number of "photos" file
// parts. Photos go to the object store first; their keys ride along on the
// stored checklist.
func (s *Server) handleSubmitChecklist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(s.opts.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "form too large or invalid")
		return
	}

	c := fleet.Checklist{
		CarID:     r.FormValue("carId"),
		Attendant: r.FormValue("attendant"),
		Notes:     r.FormValue("notes"),
	}
	if raw := r.FormValue("items"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &c.Items); err != nil {
			writeError(w, http.StatusBadRequest, "items must be a JSON object of booleans")
			return
		}
	}

	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["photos"] {
			if s.photos == nil {
				writeError(w, http.StatusServiceUnavailable, "photo storage is not configured")
				return
			}
			if header.Size > maxPhotoSize {
				writeError(w, http.StatusBadRequest, "photo exceeds the size limit")
				return
			}

			file, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable photo part")
				return
			}

			key, err := s.photos.Put(r.Context(), c.CarID, header.Filename,
				header.Header.Get("Content-Type"), file, header.Size)
			file.Close()
			if err != nil {
				logging.FromContext(r.Context()).Error("photo upload failed", "error", err)
				writeError(w, http.StatusBadGateway, "photo storage failed")
				return
			}
			c.PhotoKeys = append(c.PhotoKeys, key)
		}
	}

	if err := s.fleet.SubmitChecklist(r.Context(), &c); err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSONStatus(w, http.StatusCreated, c)
}

func (s *Server) handleListChecklists(w http.ResponseWriter, r *http.Request) {
	checklists, err := s.fleet.ListChecklists(r.Context(), r.URL.Query().Get("carId"), queryInt(r, "limit", 0))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if checklists == nil {
		checklists = []fleet.Checklist{}
	}
	writeJSON(w, checklists)
}

// handlePhotoLink redirects to a presigned download URL for a stored photo.
// The wildcard keeps slash-separated object keys intact.
func (s *Server) handlePhotoLink(w http.ResponseWriter, r *http.Request) {
	if s.photos == nil {
		writeError(w, http.StatusServiceUnavailable, "photo storage is not configured")
		return
	}

	key := photoKeyFromPath(r.URL.Path)
	if key == "" {
		writeError(w, http.StatusBadRequest, "missing photo key")
		return
	}

	url, err := s.photos.PresignedURL(r.Context(), key, s.opts.PresignExpiry)
	if err != nil {
		logging.FromContext(r.Context()).Error("presign failed", "key", key, "error", err)
		writeError(w, http.StatusBadGateway, "photo storage failed")
		return
	}

	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

// photoKeyFromPath strips the route prefix from the request path.
func photoKeyFromPath(path string) string {
	const prefix = "/api/photos/"
	if len(path) <= len(prefix) {
		return ""
	}
	return path[len(prefix):]
}

// handleDashboard returns the fleet dashboard summary.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.fleet.Dashboard(r.Context(), queryInt(r, "days", 30))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, sum)
}
