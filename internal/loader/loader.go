// Package loader materializes the ride-booking dataset as the bookings
// table. A load is an all-or-nothing replace: it runs in one transaction
// that drops and recreates the table, so a failed load leaves the
// previous store content untouched and re-running the loader never
// appends duplicate rows.
package loader

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/drishan/rides-insights/internal/apperrors"
	"github.com/drishan/rides-insights/internal/models"
)

const insertBatchSize = 500

// Load reads the delimited dataset at inputPath and replaces the
// bookings table with its rows. It returns the number of rows loaded.
//
// A missing input file fails with ErrNotFound. A header that does not
// cover the expected schema, or any row-level parse failure, fails with
// a FormatError and aborts the whole load.
func Load(db *gorm.DB, inputPath string) (int, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("input %s: %w", inputPath, apperrors.ErrNotFound)
		}
		return 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return 0, &apperrors.FormatError{Msg: fmt.Sprintf("cannot read header: %v", err)}
	}

	colIndex, err := mapHeader(header)
	if err != nil {
		return 0, err
	}

	bookings, err := parseRows(r, colIndex)
	if err != nil {
		return 0, err
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Migrator().DropTable(&models.Booking{}); err != nil {
			return err
		}
		if err := tx.Migrator().CreateTable(&models.Booking{}); err != nil {
			return err
		}
		if len(bookings) == 0 {
			return nil
		}
		return tx.CreateInBatches(bookings, insertBatchSize).Error
	})
	if err != nil {
		return 0, err
	}

	logrus.WithFields(logrus.Fields{
		"input": inputPath,
		"rows":  len(bookings),
	}).Info("bookings table replaced")

	return len(bookings), nil
}

// mapHeader resolves every expected column to its position in the input
// header. Header names are matched case-insensitively after trimming and
// replacing spaces with underscores; extra input columns are ignored.
func mapHeader(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[normalizeColumn(name)] = i
	}

	colIndex := make(map[string]int, len(models.Columns()))
	var missing []string
	for _, col := range models.Columns() {
		i, ok := pos[col]
		if !ok {
			missing = append(missing, col)
			continue
		}
		colIndex[col] = i
	}
	if len(missing) > 0 {
		return nil, &apperrors.FormatError{
			Msg: fmt.Sprintf("missing columns: %s", strings.Join(missing, ", ")),
		}
	}
	return colIndex, nil
}

func normalizeColumn(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	return strings.ReplaceAll(name, " ", "_")
}

func parseRows(r *csv.Reader, colIndex map[string]int) ([]models.Booking, error) {
	var bookings []models.Booking
	seen := make(map[string]int)

	for rowNum := 1; ; rowNum++ {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &apperrors.FormatError{Row: rowNum, Msg: err.Error()}
		}

		b, err := parseBooking(record, colIndex, rowNum)
		if err != nil {
			return nil, err
		}

		if prev, ok := seen[b.BookingID]; ok {
			return nil, &apperrors.FormatError{
				Row:    rowNum,
				Column: "booking_id",
				Msg:    fmt.Sprintf("duplicate booking_id %q (first seen at row %d)", b.BookingID, prev),
			}
		}
		seen[b.BookingID] = rowNum

		bookings = append(bookings, b)
	}

	return bookings, nil
}

func parseBooking(record []string, colIndex map[string]int, rowNum int) (models.Booking, error) {
	field := func(col string) string {
		i := colIndex[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	b := models.Booking{
		BookingID:      field("booking_id"),
		Date:           field("date"),
		Time:           field("time"),
		CustomerID:     field("customer_id"),
		VehicleType:    field("vehicle_type"),
		PickupLocation: field("pickup_location"),
		DropLocation:   field("drop_location"),
		BookingStatus:  field("booking_status"),
	}

	if b.BookingID == "" {
		return b, &apperrors.FormatError{Row: rowNum, Column: "booking_id", Msg: "empty"}
	}

	b.CanceledRidesByCustomer = optionalString(field("canceled_rides_by_customer"))
	b.CanceledRidesByDriver = optionalString(field("canceled_rides_by_driver"))
	b.IncompleteRides = optionalString(field("incomplete_rides"))
	b.IncompleteRidesReason = optionalString(field("incomplete_rides_reason"))
	b.PaymentMethod = optionalString(field("payment_method"))

	var err error
	if b.BookingValue, err = parseAmount(field("booking_value")); err != nil {
		return b, &apperrors.FormatError{Row: rowNum, Column: "booking_value", Msg: err.Error()}
	}
	if b.RideDistance, err = parseAmount(field("ride_distance")); err != nil {
		return b, &apperrors.FormatError{Row: rowNum, Column: "ride_distance", Msg: err.Error()}
	}
	if b.DriverRatings, err = parseRating(field("driver_ratings")); err != nil {
		return b, &apperrors.FormatError{Row: rowNum, Column: "driver_ratings", Msg: err.Error()}
	}
	if b.CustomerRating, err = parseRating(field("customer_rating")); err != nil {
		return b, &apperrors.FormatError{Row: rowNum, Column: "customer_rating", Msg: err.Error()}
	}

	return b, nil
}

// optionalString maps the dataset's null markers to NULL.
func optionalString(s string) *string {
	switch s {
	case "", "null", "NULL", "NA", "N/A":
		return nil
	}
	return &s
}

// parseAmount parses a non-negative numeric field; the dataset uses an
// empty cell for zero.
func parseAmount(s string) (float64, error) {
	if s == "" || s == "null" || s == "NULL" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative value: %v", v)
	}
	return v, nil
}

// parseRating parses a nullable 1-5 rating. Ratings are only present for
// completed rides.
func parseRating(s string) (*float64, error) {
	if s == "" || s == "null" || s == "NULL" || s == "NA" || s == "N/A" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	if v < 0 || v > 5 {
		return nil, fmt.Errorf("rating out of range: %v", v)
	}
	return &v, nil
}
