package api

import (
	"context"  // Context for Redis operations
	"net/http" // HTTP status codes
	"strconv"  // Pagination parsing
	"time"     // Cache TTLs and cleanup ages

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/account"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/domain"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"
	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/utils"

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse is the user row shown to admins.
type UserAdminResponse struct {
	ID              uint   `json:"id"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Role            string `json:"role"`
	IsPremium       bool   `json:"is_premium"`
	CommissionLevel int    `json:"commission_level"`
	TotalEarnings   int64  `json:"total_earnings"`
	EwalletBalance  int64  `json:"ewallet_balance"`
}

// ListUsersHandler returns all users with their wallet state, paginated
// and cached for 60 seconds.
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()
		cacheKey := utils.CacheKey("admin", "users",
			"page="+c.DefaultQuery("page", "1"),
			"size="+c.DefaultQuery("page_size", "20"))
		var cached struct {
			Users      []UserAdminResponse `json:"users"`
			Page       int                 `json:"page"`
			PageSize   int                 `json:"page_size"`
			Total      int64               `json:"total"`
			TotalPages int                 `json:"total_pages"`
		}
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{
				"users":       cached.Users,
				"page":        cached.Page,
				"page_size":   cached.PageSize,
				"total":       cached.Total,
				"total_pages": cached.TotalPages,
				"cached":      true,
			})
			return
		}
		page, pageSize := pagination(c)
		offset := (page - 1) * pageSize
		var total int64
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to count users"})
			return
		}
		var users []domain.User
		if err := db.Offset(offset).Limit(pageSize).Find(&users).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch users"})
			return
		}
		resp := make([]UserAdminResponse, len(users))
		for i, u := range users {
			resp[i] = UserAdminResponse{
				ID:              u.ID,
				Username:        u.Username,
				Email:           u.Email,
				Role:            u.Role,
				IsPremium:       u.IsPremium,
				CommissionLevel: u.CommissionLevel,
				TotalEarnings:   u.TotalEarnings,
				EwalletBalance:  u.EwalletBalance,
			}
		}
		totalPages := (int(total) + pageSize - 1) / pageSize
		respData := gin.H{
			"users":       resp,
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": totalPages,
			"cached":      false,
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, respData, 60*time.Second)
		c.JSON(http.StatusOK, respData)
	}
}

// pagination reads page/page_size query params with the usual bounds.
func pagination(c *gin.Context) (page, pageSize int) {
	page, pageSize = 1, 20
	if p := c.Query("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if ps := c.Query("page_size"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 && v <= 100 {
			pageSize = v
		}
	}
	return page, pageSize
}

// AddEarningsRequest credits earnings to a user (admin adjustment).
type AddEarningsRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Amount int64  `json:"amount" binding:"required,gt=0"` // Centavos
	Source string `json:"source"`
}

// AddEarningsHandler lets an admin credit earnings outside the sales
// flow, running the same promotion check.
func AddEarningsHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req AddEarningsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.Source == "" {
			req.Source = "adjustment"
		}
		promoted, err := accounts.AddEarnings(req.UserID, req.Amount, req.Source)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add earnings"})
			return
		}
		invalidateWallet(c, req.UserID)
		c.JSON(http.StatusOK, gin.H{"message": "Earnings updated", "promoted": promoted})
	}
}

// DatabaseInfoHandler reports record counts across every registered
// table plus the user table.
func DatabaseInfoHandler(db *gorm.DB, tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var userCount int64
		_ = db.Model(&domain.User{}).Count(&userCount).Error
		tables := make([]gin.H, 0, len(tabular.Schemas))
		totalRecords := userCount
		for _, name := range tabular.RegisteredTables() {
			stats, err := tab.Stats(name)
			if err != nil {
				tables = append(tables, gin.H{"name": name, "error": err.Error()})
				continue
			}
			tables = append(tables, gin.H{
				"name":    name,
				"records": stats.RecordCount,
				"size_kb": float64(stats.SizeBytes) / 1024,
				"exists":  stats.Exists,
				"columns": stats.ColumnCount,
			})
			totalRecords += int64(stats.RecordCount)
		}
		c.JSON(http.StatusOK, gin.H{
			"users":         userCount,
			"tables":        tables,
			"total_records": totalRecords,
		})
	}
}

// TableReportHandler runs the aggregation report for one table, cached
// for 60 seconds.
func TableReportHandler(tab *tabular.Store, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.Param("table")
		ctx := context.Background()
		cacheKey := utils.CacheKey("admin", "report", table)
		var cached tabular.Report
		found, err := utils.GetCache(ctx, rdb, cacheKey, &cached)
		if err == nil && found {
			c.JSON(http.StatusOK, gin.H{"report": cached, "cached": true})
			return
		}
		report, err := tab.Report(table)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build report"})
			return
		}
		_ = utils.SetCache(ctx, rdb, cacheKey, report, 60*time.Second)
		c.JSON(http.StatusOK, gin.H{"report": report, "cached": false})
	}
}

// ValidateTableHandler checks a table file against its registered
// schema.
func ValidateTableHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		table := c.Param("table")
		required, ok := tabular.Schemas[table]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Unknown table"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"validation": tab.ValidateStructure(table, required)})
	}
}

// BackupHandler snapshots one table, or all registered tables when no
// table is named.
func BackupHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if table := c.Query("table"); table != "" {
			backup, err := tab.Backup(table, "")
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Backup failed"})
				return
			}
			c.JSON(http.StatusOK, gin.H{"backups": []string{backup}})
			return
		}
		var backups []string
		for _, name := range tabular.RegisteredTables() {
			backup, err := tab.Backup(name, "")
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"table": name,
					"error": err.Error(),
				}).Warn("Backup skipped")
				continue
			}
			backups = append(backups, backup)
		}
		c.JSON(http.StatusOK, gin.H{"backups": backups})
	}
}

// MergeRequest merges several tables into an output table.
type MergeRequest struct {
	Tables []string `json:"tables" binding:"required,min=1"`
	Output string   `json:"output" binding:"required"`
	Dedupe bool     `json:"dedupe"`
}

// MergeHandler concatenates tables, optionally deduplicating rows.
func MergeHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req MergeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if err := tab.Merge(req.Tables, req.Output, req.Dedupe); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Tables merged", "output": req.Output})
	}
}

// CleanupRequest removes tables older than max_age_days, backing each
// one up first.
type CleanupRequest struct {
	Tables     []string `json:"tables"`
	MaxAgeDays int      `json:"max_age_days" binding:"required,gt=0"`
}

// CleanupHandler runs age-based cleanup. Destructive beyond the backup
// copy.
func CleanupHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CleanupRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		tables := req.Tables
		if len(tables) == 0 {
			tables = tabular.RegisteredTables()
		}
		res := tab.Cleanup(tables, time.Duration(req.MaxAgeDays)*24*time.Hour)
		c.JSON(http.StatusOK, gin.H{"result": res})
	}
}

// CleanRequest applies in-place cleaning operations to one table.
type CleanRequest struct {
	Table string   `json:"table" binding:"required"`
	Ops   []string `json:"ops"` // Empty means all operations
}

// CleanHandler strips whitespace and drops duplicate or empty rows.
func CleanHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CleanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		remaining, err := tab.Clean(req.Table, req.Ops)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Clean failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Table cleaned", "records_remaining": remaining})
	}
}

// ExportRequest writes rows matching the criteria into a new table.
type ExportRequest struct {
	Table    string            `json:"table" binding:"required"`
	Output   string            `json:"output" binding:"required"`
	Criteria map[string]string `json:"criteria"`
}

// ExportHandler filters a table into an output file for download or
// archival.
func ExportHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ExportRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		criteria := tabular.Criteria{}
		for k, v := range req.Criteria {
			criteria[k] = v
		}
		if err := tab.ExportFiltered(req.Table, criteria, req.Output); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Export written", "output": req.Output})
	}
}

// BreederEmailsHandler lists breeder contact addresses for the email
// collaborator.
func BreederEmailsHandler(accounts *account.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		contacts, err := accounts.BreederEmails()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load breeder contacts"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"breeders": contacts, "total": len(contacts)})
	}
}
