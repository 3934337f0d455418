package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/drishan/rides-insights/internal/database"
	"github.com/drishan/rides-insights/internal/models"
	"github.com/drishan/rides-insights/internal/query"
	"github.com/drishan/rides-insights/internal/services"
)

// Health reports the store contents so the dashboard can show its
// connection banner.
func Health(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		tables, err := database.TableNames(db)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to inspect store"})
			return
		}
		views, err := database.ViewNames(db)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to inspect store"})
			return
		}

		var rows int64
		if err := db.Model(&models.Booking{}).Count(&rows).Error; err != nil {
			c.JSON(500, gin.H{"error": "Failed to count bookings"})
			return
		}

		c.JSON(200, gin.H{
			"status":     "ok",
			"rows":       rows,
			"tables":     tables,
			"views":      views,
			"dashboards": hub.GetConnectedClients(),
		})
	}
}

// ListViews returns the registered view catalog.
func ListViews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		views, err := database.ViewNames(db)
		if err != nil {
			c.JSON(500, gin.H{"error": "Failed to list views"})
			return
		}
		c.JSON(200, gin.H{"views": views})
	}
}

// GetView executes one catalog view by name.
func GetView(runner *query.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

		result, err := runner.RunView(c.Request.Context(), c.Param("name"), limit)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(200, gin.H{
			"view":    c.Param("name"),
			"columns": result.Columns,
			"rows":    result.Rows,
			"count":   len(result.Rows),
		})
	}
}

// RunQuery is the SQL runner behind the dashboard's free-form query box.
// Only single SELECT statements pass the read-only boundary.
func RunQuery(runner *query.Runner) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			SQL   string `json:"sql" binding:"required"`
			Limit int    `json:"limit"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(400, gin.H{"error": err.Error()})
			return
		}

		result, err := runner.Run(c.Request.Context(), input.SQL, input.Limit)
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
