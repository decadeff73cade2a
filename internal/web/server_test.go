package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/viaurbana/frota/internal/catalog"
	"github.com/viaurbana/frota/internal/fleet"
	"github.com/viaurbana/frota/internal/report"
)

type stubCatalog struct {
	diff      catalog.Diff
	summary   catalog.CommitSummary
	err       error
	lastSheet string
}

func (s *stubCatalog) Validate(_ context.Context, _ string, _ []byte, sheet string) (catalog.Diff, error) {
	s.lastSheet = sheet
	return s.diff, s.err
}

func (s *stubCatalog) Commit(_ context.Context, _ string, _ []byte, sheet string) (catalog.CommitSummary, error) {
	s.lastSheet = sheet
	return s.summary, s.err
}

type stubVehicles struct {
	records map[string]catalog.Record
}

func (s *stubVehicles) ListVehicles(_ context.Context, status catalog.Status) ([]catalog.Record, error) {
	var out []catalog.Record
	for _, rec := range s.records {
		if status == "" || rec.Status == status {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *stubVehicles) GetVehicle(_ context.Context, carID string) (catalog.Record, error) {
	rec, ok := s.records[carID]
	if !ok {
		return catalog.Record{}, catalog.ErrVehicleNotFound
	}
	return rec, nil
}

type stubFleet struct {
	trips      []fleet.TripLog
	checklists []fleet.Checklist
	efficiency fleet.EfficiencySummary
	dashboard  fleet.DashboardSummary
}

func (s *stubFleet) SubmitTrip(_ context.Context, t *fleet.TripLog) error {
	if err := t.Validate(); err != nil {
		return err
	}
	s.trips = append(s.trips, *t)
	return nil
}

func (s *stubFleet) ListTrips(_ context.Context, _ string, _ int) ([]fleet.TripLog, error) {
	return s.trips, nil
}

func (s *stubFleet) SubmitFueling(_ context.Context, f *fleet.Fueling) error {
	return f.Validate()
}

func (s *stubFleet) ListFuelings(_ context.Context, _ string, _ int) ([]fleet.Fueling, error) {
	return nil, nil
}

func (s *stubFleet) SubmitInspection(_ context.Context, ti *fleet.TireInspection) error {
	return ti.Validate()
}

func (s *stubFleet) ListInspections(_ context.Context, _ string, _ int) ([]fleet.TireInspection, error) {
	return nil, nil
}

func (s *stubFleet) SubmitChecklist(_ context.Context, c *fleet.Checklist) error {
	if err := c.Validate(); err != nil {
		return err
	}
	s.checklists = append(s.checklists, *c)
	return nil
}

func (s *stubFleet) ListChecklists(_ context.Context, _ string, _ int) ([]fleet.Checklist, error) {
	return s.checklists, nil
}

func (s *stubFleet) Efficiency(_ context.Context, carID string, days int) (fleet.EfficiencySummary, error) {
	sum := s.efficiency
	sum.CarID = carID
	sum.Days = days
	return sum, nil
}

func (s *stubFleet) Dashboard(_ context.Context, days int) (fleet.DashboardSummary, error) {
	sum := s.dashboard
	sum.Days = days
	return sum, nil
}

type stubPhotos struct {
	keys []string
}

func (s *stubPhotos) Put(_ context.Context, carID, filename, _ string, r io.Reader, _ int64) (string, error) {
	io.Copy(io.Discard, r)
	key := "checklists/" + carID + "/" + filename
	s.keys = append(s.keys, key)
	return key, nil
}

func (s *stubPhotos) PresignedURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://storage.example/" + key, nil
}

type stubReports struct {
	text string
	err  error
}

func (s *stubReports) Available() bool { return true }

func (s *stubReports) FleetReport(_ context.Context, _ report.FleetSnapshot) (string, error) {
	return s.text, s.err
}

func newTestServer(t *testing.T) (*Server, *stubCatalog, *stubFleet) {
	t.Helper()
	cat := &stubCatalog{}
	fl := &stubFleet{}
	vehicles := &stubVehicles{records: map[string]catalog.Record{
		"101": {CarID: "101", Status: catalog.StatusActive, ChassisType: catalog.ChassisConvencional},
	}}
	srv := NewServer(cat, vehicles, fl, &stubPhotos{}, &stubReports{text: "relatório"}, Options{
		PreferredSheet: "PARAMETROS",
	})
	return srv, cat, fl
}

func uploadRequest(t *testing.T, url, sheet string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "frota.csv")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("CARRO,CHASSI\n101,CONVENCIONAL\n"))
	if sheet != "" {
		mw.WriteField("sheet", sheet)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestCatalogValidate(t *testing.T) {
	srv, cat, _ := newTestServer(t)
	cat.diff = catalog.Diff{Added: []catalog.Record{{CarID: "101"}}}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/catalog/validate", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if cat.lastSheet != "PARAMETROS" {
		t.Errorf("sheet = %q, want the configured default", cat.lastSheet)
	}

	var diff catalog.Diff
	if err := json.Unmarshal(rec.Body.Bytes(), &diff); err != nil {
		t.Fatalf("response is not a diff: %v", err)
	}
	if len(diff.Added) != 1 || diff.Added[0].CarID != "101" {
		t.Errorf("diff = %+v, want one added vehicle 101", diff)
	}
}

func TestCatalogValidate_SheetOverride(t *testing.T) {
	srv, cat, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/catalog/validate", "Planilha2"))

	if cat.lastSheet != "Planilha2" {
		t.Errorf("sheet = %q, want %q", cat.lastSheet, "Planilha2")
	}
}

func TestCatalogValidate_MissingFile(t *testing.T) {
	srv, _, _ := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("sheet", "PARAMETROS")
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/catalog/validate", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestCatalogValidate_UnreadableUpload(t *testing.T) {
	srv, cat, _ := newTestServer(t)
	cat.err = catalog.ErrNoValidVehicles

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/catalog/validate", ""))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
}

func TestCatalogCommit(t *testing.T) {
	srv, cat, _ := newTestServer(t)
	cat.summary = catalog.CommitSummary{Added: 3, Changed: 1, Inactivated: 2}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/catalog/commit", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var summary catalog.CommitSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatal(err)
	}
	if summary != cat.summary {
		t.Errorf("summary = %+v, want %+v", summary, cat.summary)
	}
}

func TestListVehicles_BadStatus(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles?status=retired", nil))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetVehicle(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles/101", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var got catalog.Record
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.CarID != "101" {
		t.Errorf("CarID = %q, want %q", got.CarID, "101")
	}
}

func TestGetVehicle_NotFound(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles/999", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestSubmitTrip(t *testing.T) {
	srv, _, fl := newTestServer(t)

	body := `{"carId":"BUS-101","driver":"Marcos","odometerStart":1000,"odometerEnd":1120}`
	req := httptest.NewRequest(http.MethodPost, "/api/trips", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(fl.trips) != 1 {
		t.Fatalf("stored %d trips, want 1", len(fl.trips))
	}
	if fl.trips[0].CarID != "101" {
		t.Errorf("CarID = %q, want normalized %q", fl.trips[0].CarID, "101")
	}
}

func TestSubmitTrip_Invalid(t *testing.T) {
	srv, _, _ := newTestServer(t)

	body := `{"carId":"101","driver":"Ana","odometerStart":200,"odometerEnd":100}`
	req := httptest.NewRequest(http.MethodPost, "/api/trips", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSubmitChecklist_WithPhoto(t *testing.T) {
	srv, _, fl := newTestServer(t)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("carId", "101")
	mw.WriteField("attendant", "Paula")
	mw.WriteField("items", `{"freios":true,"luzes":false}`)
	part, err := mw.CreateFormFile("photos", "pneu.jpg")
	if err != nil {
		t.Fatal(err)
	}
	part.Write([]byte("fake image bytes"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/checklists", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(fl.checklists) != 1 {
		t.Fatalf("stored %d checklists, want 1", len(fl.checklists))
	}
	if len(fl.checklists[0].PhotoKeys) != 1 {
		t.Errorf("photo keys = %v, want one key", fl.checklists[0].PhotoKeys)
	}
}

func TestPhotoLink_Redirects(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/photos/checklists/101/abc.jpg", nil))

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "checklists/101/abc.jpg") {
		t.Errorf("Location = %q, want the object key preserved", loc)
	}
}

func TestDashboardSummary(t *testing.T) {
	srv, _, fl := newTestServer(t)
	fl.dashboard = fleet.DashboardSummary{ActiveVehicles: 5, Forms: fleet.FormCounts{Trips: 9}}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/summary?days=7", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var sum fleet.DashboardSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Days != 7 || sum.ActiveVehicles != 5 || sum.Forms.Trips != 9 {
		t.Errorf("summary = %+v", sum)
	}
}

func TestFleetReport(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/reports/fleet", strings.NewReader(`{"days":15}`))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp reportResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Days != 15 || resp.Report == "" {
		t.Errorf("response = %+v", resp)
	}
}

func TestFleetReport_Unconfigured(t *testing.T) {
	cat := &stubCatalog{}
	srv := NewServer(cat, &stubVehicles{}, &stubFleet{}, nil, nil, Options{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/reports/fleet", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestSecurityHeaders(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want %q", got, "nosniff")
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want %q", got, "DENY")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2, time.Minute)
	defer rl.close()

	if !rl.allow("10.0.0.1") || !rl.allow("10.0.0.1") {
		t.Fatal("first two requests should pass")
	}
	if rl.allow("10.0.0.1") {
		t.Error("third request within the window should be rejected")
	}
	if !rl.allow("10.0.0.2") {
		t.Error("other IPs are limited independently")
	}
}

func TestUploadRateLimit(t *testing.T) {
	srv := NewServer(&stubCatalog{}, &stubVehicles{}, &stubFleet{}, nil, nil, Options{
		PreferredSheet:  "PARAMETROS",
		UploadRateLimit: 1,
	})
	defer srv.Shutdown(context.Background())

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/catalog/validate", ""))
	if rec.Code == http.StatusTooManyRequests {
		t.Fatal("first upload should not be limited")
	}

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, uploadRequest(t, "/api/catalog/commit", ""))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second upload status = %d, want %d", rec.Code, http.StatusTooManyRequests)
	}

	// Non-upload routes are not subject to the upload limit.
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/vehicles", nil))
	if rec.Code == http.StatusTooManyRequests {
		t.Error("vehicle listing hit the upload limit")
	}
}

func TestShutdown_StopsLimiterCleanup(t *testing.T) {
	srv := NewServer(&stubCatalog{}, &stubVehicles{}, &stubFleet{}, nil, nil, Options{
		RateLimit:       5,
		UploadRateLimit: 1,
	})

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	for i, rl := range srv.limiters {
		select {
		case <-rl.stop:
		default:
			t.Errorf("limiter %d cleanup goroutine was not signalled to stop", i)
		}
	}

	// A second shutdown must not panic on already-closed channels.
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown() error = %v", err)
	}
}
