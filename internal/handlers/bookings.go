package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/drishan/rides-insights/internal/models"
	"github.com/drishan/rides-insights/internal/query"
	"github.com/drishan/rides-insights/internal/services"
)

// exploreFilter reads the dashboard's filter controls from the query
// string and turns them into a structured filter.
func exploreFilter(c *gin.Context) query.Filter {
	var f query.Filter

	if v := c.Query("status"); v != "" && v != "All" {
		f.Clauses = append(f.Clauses, query.Clause{Column: "booking_status", Op: "=", Value: v})
	}
	if v := c.Query("vehicle"); v != "" && v != "All" {
		f.Clauses = append(f.Clauses, query.Clause{Column: "vehicle_type", Op: "=", Value: v})
	}
	if v := c.Query("payment"); v != "" && v != "All" {
		f.Clauses = append(f.Clauses, query.Clause{Column: "payment_method", Op: "=", Value: v})
	}
	if from, to := c.Query("from"), c.Query("to"); from != "" && to != "" {
		f.Clauses = append(f.Clauses, query.Clause{Column: "date", Op: "BETWEEN", Value: from, Value2: to})
	}
	f.Search = c.Query("search")

	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.Limit = n
		}
	}

	return f
}

// GetBookings returns the filtered, searched, row-limited booking rows
// backing the dashboard's explore table.
func GetBookings(runner *query.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := runner.RunFilter(c.Request.Context(), exploreFilter(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{
			"columns": result.Columns,
			"rows":    result.Rows,
			"count":   len(result.Rows),
		})
	}
}

// GetBookingsSummary returns the KPI block for the current filter set.
func GetBookingsSummary(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		f := exploreFilter(c)

		var summary struct {
			TotalBookings     int64    `json:"totalBookings"`
			SuccessfulRides   int64    `json:"successfulRides"`
			TotalSuccessValue float64  `json:"totalSuccessValue"`
			AvgRideDistance   *float64 `json:"avgRideDistance"`
			AvgDriverRating   *float64 `json:"avgDriverRating"`
			AvgCustomerRating *float64 `json:"avgCustomerRating"`
		}

		q := db.Model(&models.Booking{}).Select(
			`COUNT(*) AS total_bookings,
			SUM(CASE WHEN booking_status = 'Success' THEN 1 ELSE 0 END) AS successful_rides,
			COALESCE(SUM(CASE WHEN booking_status = 'Success' THEN booking_value ELSE 0 END), 0) AS total_success_value,
			AVG(ride_distance) AS avg_ride_distance,
			AVG(driver_ratings) AS avg_driver_rating,
			AVG(customer_rating) AS avg_customer_rating`,
		)
		q = applyExploreFilter(q, f)

		if err := q.Scan(&summary).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to compute summary"})
			return
		}

		c.JSON(200, summary)
	}
}

// applyExploreFilter mirrors the structured filter onto a gorm query so
// the KPI aggregates see the same row subset as the explore table.
func applyExploreFilter(q *gorm.DB, f query.Filter) *gorm.DB {
	for _, cl := range f.Clauses {
		switch cl.Op {
		case "BETWEEN":
			q = q.Where(cl.Column+" BETWEEN ? AND ?", cl.Value, cl.Value2)
		default:
			q = q.Where(cl.Column+" "+cl.Op+" ?", cl.Value)
		}
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		q = q.Where(
			"CAST(customer_id AS TEXT) LIKE ? OR LOWER(pickup_location) LIKE LOWER(?) OR LOWER(drop_location) LIKE LOWER(?)",
			like, like, like,
		)
	}
	return q
}

// GetDistinctValues serves a filter dropdown: the distinct values of one
// allow-listed column, cached in Redis between store reloads.
func GetDistinctValues(runner *query.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		column := c.Param("column")

		if values, ok := services.CachedDistinctValues(c.Request.Context(), column); ok {
			c.JSON(200, gin.H{"column": column, "values": values, "cached": true})
			return
		}

		values, err := runner.DistinctValues(c.Request.Context(), column)
		if err != nil {
			respondError(c, err)
			return
		}

		if err := services.CacheDistinctValues(c.Request.Context(), column, values); err != nil {
			// cache failure is not a query failure
			c.JSON(200, gin.H{"column": column, "values": values, "cached": false})
			return
		}

		c.JSON(200, gin.H{"column": column, "values": values, "cached": false})
	}
}
