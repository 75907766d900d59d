package api

import (
	"errors"
	"net/http" // HTTP status codes
	"strconv"  // Numeric field formatting
	"time"

	"github.com/winjher/Butterfly-App-AI-Breeding-Management/internal/tabular"

	"github.com/gin-gonic/gin" // Gin web framework
	"github.com/google/uuid"   // Batch/task identifiers
)

// CreateBatchRequest starts a new breeding batch.
type CreateBatchRequest struct {
	Species      string `json:"species" binding:"required"`
	Stage        string `json:"stage"`
	LarvaCount   int    `json:"larva_count" binding:"required,gt=0"`
	HealthStatus string `json:"health_status"`
	Notes        string `json:"notes"`
}

// CreateBatchHandler registers a breeding batch and logs the event.
func CreateBatchHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CreateBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		if req.Stage == "" {
			req.Stage = "Egg"
		}
		if req.HealthStatus == "" {
			req.HealthStatus = "Healthy"
		}
		batchID := uuid.NewString()
		rec := tabular.Record{
			"batch_id":      batchID,
			"species":       req.Species,
			"stage":         req.Stage,
			"larva_count":   strconv.Itoa(req.LarvaCount),
			"health_status": req.HealthStatus,
			"created_date":  time.Now().Format("2006-01-02"),
			"created_by":    username,
			"notes":         req.Notes,
			"last_updated":  "",
		}
		if err := tab.Append(tabular.TableBreedingBatches, rec); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create batch"})
			return
		}
		logEvent(tab, "batch_created", batchID, "New "+req.Species+" batch started", username)
		c.JSON(http.StatusCreated, gin.H{"message": "Batch created", "batch_id": batchID})
	}
}

// ListBatchesHandler lists breeding batches, optionally filtered by
// species or stage.
func ListBatchesHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := tabular.Criteria{}
		if v := c.Query("species"); v != "" {
			criteria["species"] = v
		}
		if v := c.Query("stage"); v != "" {
			criteria["stage"] = v
		}
		recs, err := tab.Search(tabular.TableBreedingBatches, criteria)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load batches"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"batches": recs, "total": len(recs)})
	}
}

// UpdateBatchRequest changes stage/health/count of a batch.
type UpdateBatchRequest struct {
	Stage        string `json:"stage"`
	LarvaCount   *int   `json:"larva_count"`
	HealthStatus string `json:"health_status"`
	Notes        string `json:"notes"`
}

// UpdateBatchHandler updates every row carrying the batch id and stamps
// last_updated.
func UpdateBatchHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		batchID := c.Param("batch_id")
		var req UpdateBatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		updates := tabular.Record{}
		if req.Stage != "" {
			updates["stage"] = req.Stage
		}
		if req.LarvaCount != nil {
			updates["larva_count"] = strconv.Itoa(*req.LarvaCount)
		}
		if req.HealthStatus != "" {
			updates["health_status"] = req.HealthStatus
		}
		if req.Notes != "" {
			updates["notes"] = req.Notes
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
			return
		}
		n, err := tab.Update(tabular.TableBreedingBatches, "batch_id", batchID, updates)
		if err != nil {
			if errors.Is(err, tabular.ErrNoMatch) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update batch"})
			return
		}
		logEvent(tab, "batch_updated", batchID, "Batch updated", username)
		c.JSON(http.StatusOK, gin.H{"message": "Batch updated", "updated": n})
	}
}

// DeleteBatchHandler removes a batch.
func DeleteBatchHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		batchID := c.Param("batch_id")
		n, err := tab.Delete(tabular.TableBreedingBatches, "batch_id", batchID)
		if err != nil {
			if errors.Is(err, tabular.ErrNoMatch) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete batch"})
			return
		}
		logEvent(tab, "batch_deleted", batchID, "Batch removed", username)
		c.JSON(http.StatusOK, gin.H{"message": "Batch deleted", "removed": n})
	}
}

// CreateTaskRequest schedules a breeding task.
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	DueDate     string `json:"due_date"`
	BatchID     string `json:"batch_id"`
	Description string `json:"description"`
}

// CreateTaskHandler appends a pending breeding task.
func CreateTaskHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, username, ok := currentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		var req CreateTaskRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		taskID := uuid.NewString()
		rec := tabular.Record{
			"task_id":        taskID,
			"title":          req.Title,
			"type":           req.Type,
			"priority":       req.Priority,
			"due_date":       req.DueDate,
			"batch_id":       req.BatchID,
			"description":    req.Description,
			"status":         "pending",
			"created_by":     username,
			"created_date":   time.Now().Format("2006-01-02"),
			"completed_date": "",
		}
		if err := tab.Append(tabular.TableBreedingTasks, rec); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Task created", "task_id": taskID})
	}
}

// ListTasksHandler lists tasks, optionally filtered by status or batch.
func ListTasksHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := tabular.Criteria{}
		if v := c.Query("status"); v != "" {
			criteria["status"] = v
		}
		if v := c.Query("batch_id"); v != "" {
			criteria["batch_id"] = v
		}
		recs, err := tab.Search(tabular.TableBreedingTasks, criteria)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load tasks"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"tasks": recs, "total": len(recs)})
	}
}

// CompleteTaskHandler marks a task completed.
func CompleteTaskHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID := c.Param("task_id")
		n, err := tab.Update(tabular.TableBreedingTasks, "task_id", taskID, tabular.Record{
			"status":         "completed",
			"completed_date": time.Now().Format("2006-01-02"),
		})
		if err != nil {
			if errors.Is(err, tabular.ErrNoMatch) {
				c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to complete task"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Task completed", "updated": n})
	}
}

// BreedingLogHandler lists activity log entries, optionally by batch.
func BreedingLogHandler(tab *tabular.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		criteria := tabular.Criteria{}
		if v := c.Query("batch_id"); v != "" {
			criteria["batch_id"] = v
		}
		recs, err := tab.Search(tabular.TableBreedingLog, criteria)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load breeding log"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"log": recs, "total": len(recs)})
	}
}

// logEvent appends one breeding log row. Log failures never fail the
// operation that triggered them.
func logEvent(tab *tabular.Store, eventType, batchID, description, username string) {
	_ = tab.Append(tabular.TableBreedingLog, tabular.Record{
		"timestamp":   time.Now().Format(tabular.TimeLayout),
		"event_type":  eventType,
		"batch_id":    batchID,
		"description": description,
		"logged_by":   username,
	})
}
