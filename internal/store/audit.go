package store

import (
	"time"

	"github.com/robert0714/scm-ldap-plugin/internal/models"

	"gorm.io/gorm"
)

// CreateAuditLog writes a single audit log entry
func (s *Store) CreateAuditLog(entry *models.AuditLog) error {
	return s.db.Create(entry).Error
}

// CreateAuditLogBatch writes audit log entries in batches
func (s *Store) CreateAuditLogBatch(entries []*models.AuditLog) error {
	if len(entries) == 0 {
		return nil
	}
	return s.db.CreateInBatches(entries, 100).Error
}

// GetAuditLogsPaginated returns audit logs matching the filters, newest first
func (s *Store) GetAuditLogsPaginated(
	params PaginationParams,
	filters AuditLogFilters,
) ([]models.AuditLog, PaginationResult, error) {
	var total int64
	if err := s.auditQuery(filters).Count(&total).Error; err != nil {
		return nil, PaginationResult{}, err
	}

	result := CalculatePagination(total, params.Page, params.PageSize)

	var logs []models.AuditLog
	offset := (result.CurrentPage - 1) * result.PageSize
	err := s.auditQuery(filters).
		Order("event_time DESC").
		Limit(result.PageSize).
		Offset(offset).
		Find(&logs).
		Error
	if err != nil {
		return nil, PaginationResult{}, err
	}

	return logs, result, nil
}

// GetAuditLogsForExport returns all audit logs matching the filters, oldest
// first, capped at limit entries (0 means no cap).
func (s *Store) GetAuditLogsForExport(
	filters AuditLogFilters,
	limit int,
) ([]models.AuditLog, error) {
	query := s.auditQuery(filters).Order("event_time ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var logs []models.AuditLog
	if err := query.Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// DeleteOldAuditLogs deletes entries with an event time before the cutoff
func (s *Store) DeleteOldAuditLogs(cutoff time.Time) (int64, error) {
	res := s.db.Where("event_time < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}

// GetAuditLogStats aggregates counts for the given time window. Zero times
// leave that side of the window open.
func (s *Store) GetAuditLogStats(startTime, endTime time.Time) (AuditLogStats, error) {
	stats := AuditLogStats{
		EventsByType:     make(map[models.EventType]int64),
		EventsBySeverity: make(map[models.EventSeverity]int64),
	}

	window := func() *gorm.DB {
		query := s.db.Model(&models.AuditLog{})
		if !startTime.IsZero() {
			query = query.Where("event_time >= ?", startTime)
		}
		if !endTime.IsZero() {
			query = query.Where("event_time <= ?", endTime)
		}
		return query
	}

	if err := window().Count(&stats.TotalEvents).Error; err != nil {
		return stats, err
	}

	type bucket struct {
		Name  string
		Total int64
	}

	var byType []bucket
	err := window().
		Select("event_type as name, count(*) as total").
		Group("event_type").
		Scan(&byType).
		Error
	if err != nil {
		return stats, err
	}
	for _, b := range byType {
		stats.EventsByType[models.EventType(b.Name)] = b.Total
	}

	var bySeverity []bucket
	err = window().
		Select("severity as name, count(*) as total").
		Group("severity").
		Scan(&bySeverity).
		Error
	if err != nil {
		return stats, err
	}
	for _, b := range bySeverity {
		stats.EventsBySeverity[models.EventSeverity(b.Name)] = b.Total
	}

	if err := window().Where("success = ?", true).Count(&stats.SuccessCount).Error; err != nil {
		return stats, err
	}
	if err := window().Where("success = ?", false).Count(&stats.FailureCount).Error; err != nil {
		return stats, err
	}

	return stats, nil
}

// auditQuery builds a query with the given filters applied
func (s *Store) auditQuery(filters AuditLogFilters) *gorm.DB {
	query := s.db.Model(&models.AuditLog{})

	if filters.EventType != "" {
		query = query.Where("event_type = ?", filters.EventType)
	}
	if filters.ActorUserID != "" {
		query = query.Where("actor_user_id = ?", filters.ActorUserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.ResourceID != "" {
		query = query.Where("resource_id = ?", filters.ResourceID)
	}
	if filters.Severity != "" {
		query = query.Where("severity = ?", filters.Severity)
	}
	if filters.Success != nil {
		query = query.Where("success = ?", *filters.Success)
	}
	if !filters.StartTime.IsZero() {
		query = query.Where("event_time >= ?", filters.StartTime)
	}
	if !filters.EndTime.IsZero() {
		query = query.Where("event_time <= ?", filters.EndTime)
	}
	if filters.ActorIP != "" {
		query = query.Where("actor_ip = ?", filters.ActorIP)
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where(
			"action LIKE ? OR resource_name LIKE ? OR actor_username LIKE ?",
			pattern, pattern, pattern,
		)
	}

	return query
}
