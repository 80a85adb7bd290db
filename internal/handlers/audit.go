package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/robert0714/scm-ldap-plugin/internal/models"
	"github.com/robert0714/scm-ldap-plugin/internal/services"
	"github.com/robert0714/scm-ldap-plugin/internal/store"

	"github.com/gin-gonic/gin"
)

const (
	// queryValueTrue represents the string "true" used in query parameters
	queryValueTrue = "true"

	// exportLimit caps a CSV export to a size a browser download handles
	exportLimit = 10000
)

// AuditHandler handles audit log operations
type AuditHandler struct {
	auditService *services.AuditService
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(auditService *services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// parseAuditFilters reads the shared filter query parameters.
func parseAuditFilters(c *gin.Context) store.AuditLogFilters {
	filters := store.AuditLogFilters{
		EventType:    models.EventType(c.Query("event_type")),
		ActorUserID:  c.Query("actor_user_id"),
		ResourceType: models.ResourceType(c.Query("resource_type")),
		ResourceID:   c.Query("resource_id"),
		Severity:     models.EventSeverity(c.Query("severity")),
		ActorIP:      c.Query("actor_ip"),
		Search:       c.Query("search"),
	}

	// Parse success filter (optional boolean)
	if successStr := c.Query("success"); successStr != "" {
		success := successStr == queryValueTrue
		filters.Success = &success
	}

	// Parse time range
	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			filters.StartTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			filters.EndTime = t
		}
	}

	return filters
}

// ListAuditLogs godoc
//
//	@Summary		List audit logs
//	@Description	Returns audit log entries, newest first, with pagination and filtering by event type, actor, resource, severity, success, IP and time range.
//	@Tags			Audit
//	@Produce		json
//	@Security		BearerAuth
//	@Param			page		query		int		false	"Page number (1-indexed)"
//	@Param			page_size	query		int		false	"Entries per page, at most 100"
//	@Param			event_type	query		string	false	"Filter by event type"
//	@Param			severity	query		string	false	"Filter by severity"
//	@Param			success		query		bool	false	"Filter by outcome"
//	@Param			start_time	query		string	false	"RFC3339 lower bound"
//	@Param			end_time	query		string	false	"RFC3339 upper bound"
//	@Param			search		query		string	false	"Substring match on action, resource and actor"
//	@Success		200			{object}	object{logs=[]models.AuditLog,pagination=object}	"One page of entries"
//	@Failure		401			{object}	object{error=string}								"Missing or invalid admin token"
//	@Failure		500			{object}	object{error=string}								"Query failed"
//	@Router			/api/v1/audit [get]
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	params := store.NewPaginationParams(page, pageSize, c.Query("search"))

	filters := parseAuditFilters(c)

	logs, pagination, err := h.auditService.GetAuditLogs(params, filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	// The actor comes from the admin auth middleware via the context
	h.auditService.Log(c.Request.Context(), services.AuditLogEntry{
		EventType:    models.EventTypeAuditLogView,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceAuditLog,
		Action:       "Viewed audit logs",
		Details: models.AuditDetails{
			"page":      params.Page,
			"page_size": params.PageSize,
			"filters":   filters,
		},
		Success:       true,
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
		UserAgent:     c.Request.UserAgent(),
	})

	c.JSON(http.StatusOK, gin.H{
		"logs":       logs,
		"pagination": pagination,
	})
}

// GetAuditLogStats godoc
//
//	@Summary		Audit log statistics
//	@Description	Returns event counts grouped by type and severity for the given time range, defaulting to the last 30 days.
//	@Tags			Audit
//	@Produce		json
//	@Security		BearerAuth
//	@Param			start_time	query		string	false	"RFC3339 lower bound"
//	@Param			end_time	query		string	false	"RFC3339 upper bound"
//	@Success		200			{object}	object{stats=object,start_time=string,end_time=string}	"Aggregated counts"
//	@Failure		401			{object}	object{error=string}									"Missing or invalid admin token"
//	@Failure		500			{object}	object{error=string}									"Query failed"
//	@Router			/api/v1/audit/stats [get]
func (h *AuditHandler) GetAuditLogStats(c *gin.Context) {
	// Parse time range
	var startTime, endTime time.Time

	if startTimeStr := c.Query("start_time"); startTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			startTime = t
		}
	}
	if endTimeStr := c.Query("end_time"); endTimeStr != "" {
		if t, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			endTime = t
		}
	}

	// Default to last 30 days if no time range specified
	if startTime.IsZero() && endTime.IsZero() {
		endTime = time.Now()
		startTime = endTime.Add(-30 * 24 * time.Hour)
	}

	stats, err := h.auditService.GetAuditLogStats(startTime, endTime)
	if err != nil {
		c.JSON(
			http.StatusInternalServerError,
			gin.H{"error": "Failed to retrieve audit log statistics"},
		)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":      stats,
		"start_time": startTime,
		"end_time":   endTime,
	})
}

// ExportAuditLogs godoc
//
//	@Summary		Export audit logs as CSV
//	@Description	Streams the filtered audit log entries as a CSV attachment, oldest first, capped at 10000 rows.
//	@Tags			Audit
//	@Produce		text/csv
//	@Security		BearerAuth
//	@Param			event_type	query		string	false	"Filter by event type"
//	@Param			severity	query		string	false	"Filter by severity"
//	@Param			success		query		bool	false	"Filter by outcome"
//	@Param			start_time	query		string	false	"RFC3339 lower bound"
//	@Param			end_time	query		string	false	"RFC3339 upper bound"
//	@Success		200			{string}	string					"CSV document"
//	@Failure		401			{object}	object{error=string}	"Missing or invalid admin token"
//	@Failure		500			{object}	object{error=string}	"Query failed"
//	@Router			/api/v1/audit/export [get]
func (h *AuditHandler) ExportAuditLogs(c *gin.Context) {
	filters := parseAuditFilters(c)

	logs, err := h.auditService.ExportAuditLogs(filters, exportLimit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve audit logs"})
		return
	}

	// Set CSV headers
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf(
		"attachment; filename=audit_logs_%s.csv",
		time.Now().Format("2006-01-02"),
	))

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	// Write CSV header
	if err := writer.Write([]string{
		"Event Time",
		"Event Type",
		"Severity",
		"Actor Username",
		"Actor IP",
		"Resource Type",
		"Resource Name",
		"Action",
		"Success",
		"Error Message",
	}); err != nil {
		return
	}

	// Write data rows
	for _, log := range logs {
		successStr := "Yes"
		if !log.Success {
			successStr = "No"
		}

		if err := writer.Write([]string{
			log.EventTime.Format(time.RFC3339),
			string(log.EventType),
			string(log.Severity),
			log.ActorUsername,
			log.ActorIP,
			string(log.ResourceType),
			log.ResourceName,
			log.Action,
			successStr,
			log.ErrorMessage,
		}); err != nil {
			return
		}
	}

	h.auditService.Log(c.Request.Context(), services.AuditLogEntry{
		EventType:    models.EventTypeAuditLogExported,
		Severity:     models.SeverityInfo,
		ResourceType: models.ResourceAuditLog,
		Action:       "Exported audit logs to CSV",
		Details: models.AuditDetails{
			"record_count": len(logs),
			"filters":      filters,
		},
		Success:       true,
		RequestPath:   c.Request.URL.Path,
		RequestMethod: c.Request.Method,
		UserAgent:     c.Request.UserAgent(),
	})
}
