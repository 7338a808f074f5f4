package gorm

import (
	"context"
	"errors"

	"github.com/aetim/core/internal/domain/report"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReportRepository implements outbound.ReportRepository using GORM.
type ReportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) outbound.ReportRepository {
	return &ReportRepository{db: db}
}

func (r *ReportRepository) Create(ctx context.Context, rep *report.Report) error {
	return r.db.WithContext(ctx).Create(ReportToModel(rep)).Error
}

func (r *ReportRepository) Update(ctx context.Context, rep *report.Report) error {
	result := r.db.WithContext(ctx).Save(ReportToModel(rep))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("report not found")
	}
	return nil
}

func (r *ReportRepository) FindByID(ctx context.Context, id uuid.UUID) (*report.Report, error) {
	var model ReportModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("report not found")
		}
		return nil, result.Error
	}
	return ModelToReport(&model), nil
}

func (r *ReportRepository) FindByKind(ctx context.Context, kind report.Kind, offset, limit int) ([]*report.Report, int, error) {
	var models []ReportModel
	var total int64

	countResult := r.db.WithContext(ctx).Model(&ReportModel{}).Where("kind = ?", string(kind)).Count(&total)
	if countResult.Error != nil {
		return nil, 0, countResult.Error
	}

	result := r.db.WithContext(ctx).
		Where("kind = ?", string(kind)).
		Order("generated_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	return reportsFromModels(models), int(total), nil
}

func (r *ReportRepository) FindTicketsByStatus(ctx context.Context, status report.TicketStatus) ([]*report.Report, error) {
	var models []ReportModel
	result := r.db.WithContext(ctx).
		Where("kind = ? AND ticket_status = ?", string(report.KindItTicket), string(status)).
		Order("generated_at DESC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return reportsFromModels(models), nil
}

func reportsFromModels(models []ReportModel) []*report.Report {
	out := make([]*report.Report, len(models))
	for i := range models {
		out[i] = ModelToReport(&models[i])
	}
	return out
}

// ScheduleRepository implements outbound.ScheduleRepository using GORM.
type ScheduleRepository struct {
	db *gorm.DB
}

func NewScheduleRepository(db *gorm.DB) outbound.ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *report.Schedule) error {
	return r.db.WithContext(ctx).Create(ScheduleToModel(s)).Error
}

func (r *ScheduleRepository) Update(ctx context.Context, s *report.Schedule) error {
	result := r.db.WithContext(ctx).Save(ScheduleToModel(s))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("schedule not found")
	}
	return nil
}

func (r *ScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*report.Schedule, error) {
	var model ScheduleModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("schedule not found")
		}
		return nil, result.Error
	}
	return ModelToSchedule(&model), nil
}

func (r *ScheduleRepository) FindEnabled(ctx context.Context) ([]*report.Schedule, error) {
	var models []ScheduleModel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*report.Schedule, len(models))
	for i := range models {
		out[i] = ModelToSchedule(&models[i])
	}
	return out, nil
}
