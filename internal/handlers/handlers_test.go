package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/drishan/rides-insights/internal/database"
	"github.com/drishan/rides-insights/internal/models"
	"github.com/drishan/rides-insights/internal/query"
	"github.com/drishan/rides-insights/internal/services"
)

func setupRouter(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}

	upi := "UPI"
	cash := "Cash"
	bookings := []models.Booking{
		{BookingID: "1", Date: "2024-07-01", CustomerID: "CID1", VehicleType: "Mini",
			BookingStatus: "Success", BookingValue: 100, RideDistance: 10,
			PaymentMethod: &upi, PickupLocation: "Airport", DropLocation: "Downtown"},
		{BookingID: "2", Date: "2024-07-02", CustomerID: "CID2", VehicleType: "Prime Sedan",
			BookingStatus: "Success", BookingValue: 50, RideDistance: 5,
			PaymentMethod: &cash, PickupLocation: "Mall", DropLocation: "Station"},
		{BookingID: "3", Date: "2024-07-03", CustomerID: "CID3", VehicleType: "Mini",
			BookingStatus: "Canceled_Rides_by_Customer", PickupLocation: "Station", DropLocation: "Airport"},
	}
	if err := db.Create(&bookings).Error; err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := database.CreateViews(db, database.ViewConfigFromEnv()); err != nil {
		t.Fatalf("create views: %v", err)
	}

	runner := query.NewRunner(db)
	hub := services.NewHub()
	go hub.Run()

	r := gin.New()
	api := r.Group("/api")
	api.GET("/health", Health(db, hub))
	api.GET("/bookings", GetBookings(runner))
	api.GET("/bookings/summary", GetBookingsSummary(db))
	api.GET("/filters/:column", GetDistinctValues(runner))
	api.GET("/views", ListViews(db))
	api.GET("/views/:name", GetView(runner))
	api.POST("/query", RunQuery(runner))
	api.POST("/export", ExportBookings(runner))

	return r, db
}

func do(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, w.Body.String())
	}
	return out
}

func TestHealth(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/health", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := decode(t, w)
	if out["rows"].(float64) != 3 {
		t.Fatalf("expected 3 rows, got %v", out["rows"])
	}
}

func TestGetBookingsWithStatusFilter(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/bookings?status=Success", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if out["count"].(float64) != 2 {
		t.Fatalf("expected 2 successful bookings, got %v", out["count"])
	}
}

func TestGetBookingsSearch(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/bookings?search=airport", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := decode(t, w)
	if out["count"].(float64) != 2 {
		t.Fatalf("expected 2 search hits, got %v", out["count"])
	}
}

func TestGetBookingsSummary(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/bookings/summary", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := decode(t, w)
	if out["totalBookings"].(float64) != 3 {
		t.Fatalf("expected 3 total, got %v", out["totalBookings"])
	}
	if out["totalSuccessValue"].(float64) != 150 {
		t.Fatalf("expected revenue 150, got %v", out["totalSuccessValue"])
	}
}

func TestGetDistinctValues(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/filters/vehicle_type", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := decode(t, w)
	values := out["values"].([]any)
	if len(values) != 2 {
		t.Fatalf("expected 2 vehicle types, got %v", values)
	}

	// unknown columns are rejected, not interpolated
	w = do(t, r, http.MethodGet, "/api/filters/sqlite_master", nil)
	if w.Code != 400 {
		t.Fatalf("expected 400 for unknown column, got %d", w.Code)
	}
}

func TestGetView(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodGet, "/api/views/Total_values", nil)
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := decode(t, w)
	rows := out["rows"].([]any)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %v", rows)
	}
	row := rows[0].(map[string]any)
	if row["total_success_value"].(float64) != 150 {
		t.Fatalf("expected 150, got %v", row)
	}

	w = do(t, r, http.MethodGet, "/api/views/no_such_view", nil)
	if w.Code != 404 {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestRunQueryReadOnlyBoundary(t *testing.T) {
	r, db := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/query", gin.H{"sql": "DELETE FROM bookings"})
	if w.Code != 403 {
		t.Fatalf("expected 403 for write statement, got %d", w.Code)
	}

	var n int64
	if err := db.Model(&models.Booking{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("store changed by rejected write: %d rows", n)
	}

	w = do(t, r, http.MethodPost, "/api/query", gin.H{"sql": "SELECT COUNT(*) AS n FROM successful_bookings"})
	if w.Code != 200 {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	row := out["rows"].([]any)[0].(map[string]any)
	if row["n"].(float64) != 2 {
		t.Fatalf("expected 2 successful bookings, got %v", row)
	}
}

func TestRunQueryMalformed(t *testing.T) {
	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/query", gin.H{"sql": "SELECT FROM WHERE"})
	if w.Code != 400 {
		t.Fatalf("expected 400 for malformed query, got %d", w.Code)
	}
}

func TestExportBookings(t *testing.T) {
	t.Setenv("EXPORT_DIR", t.TempDir())
	if err := services.InitStorage(); err != nil {
		t.Fatalf("init storage: %v", err)
	}

	r, _ := setupRouter(t)

	w := do(t, r, http.MethodPost, "/api/export", query.Filter{
		Clauses: []query.Clause{{Column: "booking_status", Op: "=", Value: "Success"}},
	})
	if w.Code != 201 {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	out := decode(t, w)
	if out["rows"].(float64) != 2 {
		t.Fatalf("expected 2 exported rows, got %v", out["rows"])
	}
	if out["url"].(string) == "" {
		t.Fatal("expected a download URL")
	}
}
