package gorm

import (
	"context"

	"github.com/aetim/core/internal/domain/audit"
	"github.com/aetim/core/internal/ports/outbound"
	"gorm.io/gorm"
)

// AuditRepository implements outbound.AuditRepository using GORM. No
// method here updates or deletes a persisted entry.
type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) outbound.AuditRepository {
	return &AuditRepository{db: db}
}

func (r *AuditRepository) Append(ctx context.Context, entry audit.Entry) error {
	return r.db.WithContext(ctx).Create(AuditEntryToModel(entry)).Error
}

func (r *AuditRepository) FindByResource(ctx context.Context, resourceKind, resourceID string) ([]audit.Entry, error) {
	var models []AuditEntryModel
	result := r.db.WithContext(ctx).
		Where("resource_kind = ? AND resource_id = ?", resourceKind, resourceID).
		Order("created_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return entriesFromModels(models), nil
}

func (r *AuditRepository) FindBySubject(ctx context.Context, subjectID string, offset, limit int) ([]audit.Entry, int, error) {
	var models []AuditEntryModel
	var total int64

	countResult := r.db.WithContext(ctx).Model(&AuditEntryModel{}).Where("subject_id = ?", subjectID).Count(&total)
	if countResult.Error != nil {
		return nil, 0, countResult.Error
	}

	result := r.db.WithContext(ctx).
		Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return entriesFromModels(models), int(total), nil
}

func entriesFromModels(models []AuditEntryModel) []audit.Entry {
	out := make([]audit.Entry, len(models))
	for i := range models {
		out[i] = ModelToAuditEntry(&models[i])
	}
	return out
}
