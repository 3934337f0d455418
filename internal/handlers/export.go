package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/drishan/rides-insights/internal/query"
	"github.com/drishan/rides-insights/internal/services"
	"github.com/drishan/rides-insights/pkg/utils"
)

// ExportBookings runs a structured filter and writes the result as a CSV
// download (S3 when configured, local export dir otherwise).
func ExportBookings(runner *query.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter query.Filter
		if err := c.ShouldBindJSON(&filter); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		result, err := runner.RunFilter(c.Request.Context(), filter)
		if err != nil {
			respondError(c, err)
			return
		}

		rows := utils.RecordsFromRows(result.Columns, result.Rows)

		url, err := services.ExportCSV("bookings", result.Columns, rows)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to export CSV"})
			return
		}

		c.JSON(201, gin.H{"url": url, "rows": len(rows)})
	}
}
