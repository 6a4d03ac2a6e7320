package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/max-belichenko/vehicle-manager/internal/audit"
	"github.com/max-belichenko/vehicle-manager/internal/auth"
	"github.com/max-belichenko/vehicle-manager/internal/tabular"
	"github.com/max-belichenko/vehicle-manager/internal/vehicle"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/encoding/charmap"
)

func TestFileTypeFromAccept(t *testing.T) {
	cases := []struct {
		accept string
		want   tabular.FileType
		ok     bool
	}{
		{"text/csv", tabular.FileTypeCSV, true},
		{"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", tabular.FileTypeXLSX, true},
		{"text/html, text/csv;q=0.9", tabular.FileTypeCSV, true},
		{"text/csv; charset=utf-8", tabular.FileTypeCSV, true},
		{"application/json", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := fileTypeFromAccept(tc.accept)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("accept %q: got (%q, %v), want (%q, %v)", tc.accept, got, ok, tc.want, tc.ok)
		}
	}
}

func newTestRouter(t *testing.T) (*gin.Engine, *audit.MemoryRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	auditRepo := audit.NewMemoryRepo()
	auditSvc := audit.NewService(auditRepo, log)
	vehicleSvc := vehicle.NewService(vehicle.NewMemoryRepo(), auditSvc)

	h := Handlers{Vehicles: vehicleSvc, Audit: auditSvc}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), "user-1", "alice", "operator")
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	})
	r.GET("/v1/vehicles", h.ListVehicles)
	r.POST("/v1/vehicles", h.CreateVehicle)
	r.PUT("/v1/vehicles/import", h.ImportVehicles)
	r.GET("/v1/vehicles/export", h.ExportVehicles)
	r.GET("/v1/vehicles/:id", h.GetVehicle)
	r.PUT("/v1/vehicles/:id", h.UpdateVehicle)
	r.DELETE("/v1/vehicles/:id", h.DeleteVehicle)
	r.GET("/v1/logs", h.ListAuditLog)
	return r, auditRepo
}

func do(t *testing.T, r *gin.Engine, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var vehicleBody = []byte(`{
	"make": "Toyota",
	"model": "Camry",
	"color": "Black",
	"registration_number": "А123ВС77",
	"year_of_manufacture": 2020,
	"vin": "JT123456789012345",
	"vehicle_certificate_number": "1234567890",
	"vehicle_certificate_date": "2020-01-01"
}`)

func TestVehicleCRUDFlow(t *testing.T) {
	r, auditRepo := newTestRouter(t)

	w := do(t, r, http.MethodPost, "/v1/vehicles", "application/json", vehicleBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", w.Code, w.Body)
	}
	var created vehicle.Vehicle
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == 0 || created.CreatedBy != "alice" {
		t.Fatalf("unexpected created vehicle: %+v", created)
	}

	w = do(t, r, http.MethodGet, "/v1/vehicles/1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/v1/vehicles?make=toy", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", w.Code)
	}
	var listed []vehicle.Vehicle
	if err := json.Unmarshal(w.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected 1 vehicle, got %d", len(listed))
	}

	w = do(t, r, http.MethodGet, "/v1/vehicles?make=lada", "", nil)
	var empty []vehicle.Vehicle
	if err := json.Unmarshal(w.Body.Bytes(), &empty); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty array, got %v", w.Body)
	}

	updated := bytes.Replace(vehicleBody, []byte(`"Black"`), []byte(`"Red"`), 1)
	w = do(t, r, http.MethodPut, "/v1/vehicles/1", "application/json", updated)
	if w.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", w.Code, w.Body)
	}

	w = do(t, r, http.MethodDelete, "/v1/vehicles/1", "", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}

	w = do(t, r, http.MethodGet, "/v1/vehicles/1", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("get after delete: expected 404, got %d", w.Code)
	}

	// add, modify, remove
	if got := len(auditRepo.Entries()); got != 3 {
		t.Fatalf("expected 3 audit entries, got %d", got)
	}
}

func TestCreateVehicle_ValidationFailure(t *testing.T) {
	r, _ := newTestRouter(t)

	body := bytes.Replace(vehicleBody, []byte("JT123456789012345"), []byte("SHORT"), 1)
	w := do(t, r, http.MethodPost, "/v1/vehicles", "application/json", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body)
	}
}

func TestCreateVehicle_Conflict(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := do(t, r, http.MethodPost, "/v1/vehicles", "application/json", vehicleBody); w.Code != http.StatusCreated {
		t.Fatalf("first create: expected 201, got %d", w.Code)
	}
	if w := do(t, r, http.MethodPost, "/v1/vehicles", "application/json", vehicleBody); w.Code != http.StatusConflict {
		t.Fatalf("second create: expected 409, got %d", w.Code)
	}
}

func TestGetVehicle_NonNumericID(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodGet, "/v1/vehicles/abc", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestImportVehicles_EndToEnd(t *testing.T) {
	r, auditRepo := newTestRouter(t)

	src := "Марка;Модель;Цвет;Регистрационный номер;Год выпуска;VIN;Номер СТС;Дата выдачи СТС\n" +
		"Toyota;Camry;Black;А123ВС77;2020;JT123456789012345;1234567890;01.01.2020\n"
	payload, err := charmap.Windows1251.NewEncoder().Bytes([]byte(src))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	w := do(t, r, http.MethodPut, "/v1/vehicles/import", "text/csv", payload)
	if w.Code != http.StatusCreated {
		t.Fatalf("import: expected 201, got %d: %s", w.Code, w.Body)
	}

	entries := auditRepo.Entries()
	if len(entries) != 1 || entries[0].Operation != audit.OpImport {
		t.Fatalf("expected one import audit entry, got %+v", entries)
	}
}

func TestImportVehicles_UnsupportedContentType(t *testing.T) {
	r, _ := newTestRouter(t)

	w := do(t, r, http.MethodPut, "/v1/vehicles/import", "application/json", []byte(`[]`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestImportVehicles_MissingColumn(t *testing.T) {
	r, _ := newTestRouter(t)

	payload, err := charmap.Windows1251.NewEncoder().Bytes([]byte("Марка;Модель\nToyota;Camry\n"))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	w := do(t, r, http.MethodPut, "/v1/vehicles/import", "text/csv", payload)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body)
	}
}

func TestExportVehicles_CSV(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := do(t, r, http.MethodPost, "/v1/vehicles", "application/json", vehicleBody); w.Code != http.StatusCreated {
		t.Fatalf("seed: expected 201, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/vehicles/export", nil)
	req.Header.Set("Accept", "text/csv")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d: %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); cd != `attachment; filename="vehicles.csv"` {
		t.Fatalf("unexpected disposition: %q", cd)
	}

	rows, err := tabular.Read(tabular.FileTypeCSV, bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if len(rows) != 1 || rows[0]["VIN"] != "JT123456789012345" {
		t.Fatalf("unexpected export rows: %+v", rows)
	}
}

func TestExportVehicles_XLSRejected(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/vehicles/export", nil)
	req.Header.Set("Accept", "application/vnd.ms-excel")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestListAuditLog(t *testing.T) {
	r, _ := newTestRouter(t)

	if w := do(t, r, http.MethodPost, "/v1/vehicles", "application/json", vehicleBody); w.Code != http.StatusCreated {
		t.Fatalf("seed: expected 201, got %d", w.Code)
	}

	w := do(t, r, http.MethodGet, "/v1/logs", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var entries []audit.Entry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(entries) != 1 || entries[0].Operation != audit.OpAdd {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}
