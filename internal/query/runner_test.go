package query

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/gorm"

	"github.com/drishan/rides-insights/internal/apperrors"
	"github.com/drishan/rides-insights/internal/database"
	"github.com/drishan/rides-insights/internal/models"
)

func setupRunner(t *testing.T, bookings []models.Booking) (*Runner, *gorm.DB) {
	t.Helper()
	db, err := database.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	if len(bookings) > 0 {
		if err := db.Create(&bookings).Error; err != nil {
			t.Fatalf("seed bookings: %v", err)
		}
	}
	if err := database.CreateViews(db, database.ViewConfigFromEnv()); err != nil {
		t.Fatalf("create views: %v", err)
	}
	return NewRunner(db), db
}

func sampleBookings() []models.Booking {
	upi := "UPI"
	cash := "Cash"
	return []models.Booking{
		{BookingID: "1", CustomerID: "CID1", VehicleType: "Mini", BookingStatus: "Success",
			BookingValue: 100, RideDistance: 10, PaymentMethod: &upi, PickupLocation: "Airport", DropLocation: "Downtown"},
		{BookingID: "2", CustomerID: "CID2", VehicleType: "Prime Sedan", BookingStatus: "Success",
			BookingValue: 50, RideDistance: 5, PaymentMethod: &cash, PickupLocation: "Mall", DropLocation: "Station"},
		{BookingID: "3", CustomerID: "CID3", VehicleType: "Mini", BookingStatus: "Canceled_Rides_by_Customer",
			BookingValue: 0, PickupLocation: "Station", DropLocation: "Airport"},
	}
}

func TestRunSelect(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	result, err := runner.Run(context.Background(), "SELECT booking_id, booking_value FROM bookings ORDER BY booking_id", 0)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	if result.Rows[0]["booking_id"] != "1" {
		t.Fatalf("unexpected first row: %v", result.Rows[0])
	}
}

func TestRunRejectsWriteStatements(t *testing.T) {
	runner, db := setupRunner(t, sampleBookings())

	statements := []string{
		"UPDATE bookings SET booking_value = 0",
		"DELETE FROM bookings",
		"DROP TABLE bookings",
		"INSERT INTO bookings (booking_id) VALUES ('X')",
		"SELECT 1; DELETE FROM bookings",
		"SELECT * FROM bookings WHERE booking_id IN (SELECT booking_id FROM bookings); DROP VIEW Total_values",
	}

	for _, stmt := range statements {
		if _, err := runner.Run(context.Background(), stmt, 0); !errors.Is(err, apperrors.ErrReadOnly) {
			t.Fatalf("statement %q: expected ErrReadOnly, got %v", stmt, err)
		}
	}

	// The store must be untouched after every rejected statement.
	var n int64
	if err := db.Model(&models.Booking{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Fatalf("row count changed after rejected writes: %d", n)
	}
}

func TestRunMalformedSelect(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	_, err := runner.Run(context.Background(), "SELECT nonexistent_column FROM bookings", 0)
	var queryErr *apperrors.QueryError
	if !errors.As(err, &queryErr) {
		t.Fatalf("expected QueryError, got %v", err)
	}
}

func TestRunAppliesRowLimit(t *testing.T) {
	var bookings []models.Booking
	for i := 0; i < 20; i++ {
		bookings = append(bookings, models.Booking{
			BookingID:     fmt.Sprintf("CNR%02d", i),
			CustomerID:    "CID1",
			BookingStatus: "Success",
		})
	}
	runner, _ := setupRunner(t, bookings)

	result, err := runner.Run(context.Background(), "SELECT * FROM bookings", 5)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(result.Rows) != 5 {
		t.Fatalf("expected limit 5 applied, got %d rows", len(result.Rows))
	}

	// Limit above the cap is clamped, not honored.
	if got := clampLimit(MaxRowLimit + 1); got != MaxRowLimit {
		t.Fatalf("expected clamp to %d, got %d", MaxRowLimit, got)
	}
	if got := clampLimit(0); got != DefaultRowLimit {
		t.Fatalf("expected default %d, got %d", DefaultRowLimit, got)
	}
}

func TestRunViewAndMissingView(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	result, err := runner.RunView(context.Background(), "Total_values", 0)
	if err != nil {
		t.Fatalf("run view: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}
	if v, ok := result.Rows[0]["total_success_value"].(float64); !ok || v != 150 {
		t.Fatalf("expected total_success_value 150, got %v", result.Rows[0])
	}

	if _, err := runner.RunView(context.Background(), "no_such_view", 0); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRunFilterEquality(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	result, err := runner.RunFilter(context.Background(), Filter{
		Clauses: []Clause{{Column: "booking_status", Op: "=", Value: "Success"}},
		OrderBy: "booking_id",
	})
	if err != nil {
		t.Fatalf("run filter: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 successful bookings, got %d", len(result.Rows))
	}
}

func TestRunFilterBetweenAndProjection(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	result, err := runner.RunFilter(context.Background(), Filter{
		Columns: []string{"booking_id", "booking_value"},
		Clauses: []Clause{{Column: "booking_value", Op: "BETWEEN", Value: 40, Value2: 120}},
		OrderBy: "booking_value",
		Desc:    true,
	})
	if err != nil {
		t.Fatalf("run filter: %v", err)
	}
	if len(result.Columns) != 2 {
		t.Fatalf("expected projection to 2 columns, got %v", result.Columns)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 rows in range, got %d", len(result.Rows))
	}
	if result.Rows[0]["booking_id"] != "1" {
		t.Fatalf("expected highest value first, got %v", result.Rows[0])
	}
}

func TestRunFilterSearch(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	result, err := runner.RunFilter(context.Background(), Filter{Search: "airport"})
	if err != nil {
		t.Fatalf("run filter: %v", err)
	}
	// matches pickup of booking 1 and drop of booking 3
	if len(result.Rows) != 2 {
		t.Fatalf("expected 2 search hits, got %d", len(result.Rows))
	}
}

func TestRunFilterRejectsUnknownColumn(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	cases := []Filter{
		{Clauses: []Clause{{Column: "sqlite_master", Op: "=", Value: "x"}}},
		{Columns: []string{"booking_id; DROP TABLE bookings"}},
		{OrderBy: "nonexistent"},
		{Clauses: []Clause{{Column: "booking_status", Op: "~", Value: "x"}}},
	}
	for i, f := range cases {
		_, err := runner.RunFilter(context.Background(), f)
		var queryErr *apperrors.QueryError
		if !errors.As(err, &queryErr) {
			t.Fatalf("case %d: expected QueryError, got %v", i, err)
		}
	}
}

func TestDistinctValues(t *testing.T) {
	runner, _ := setupRunner(t, sampleBookings())

	values, err := runner.DistinctValues(context.Background(), "vehicle_type")
	if err != nil {
		t.Fatalf("distinct: %v", err)
	}
	if len(values) != 2 || values[0] != "Mini" || values[1] != "Prime Sedan" {
		t.Fatalf("unexpected distinct values: %v", values)
	}

	if _, err := runner.DistinctValues(context.Background(), "not_a_column"); err == nil {
		t.Fatal("expected error for unknown column")
	}
}
