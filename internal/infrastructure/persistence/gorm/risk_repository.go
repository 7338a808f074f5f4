package gorm

import (
	"context"
	"errors"

	"github.com/aetim/core/internal/domain/risk"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RiskAssessmentRepository implements outbound.RiskAssessmentRepository
// using GORM. Assessments upsert keyed on association_id; history rows are
// append-only and never updated or deleted.
type RiskAssessmentRepository struct {
	db *gorm.DB
}

func NewRiskAssessmentRepository(db *gorm.DB) outbound.RiskAssessmentRepository {
	return &RiskAssessmentRepository{db: db}
}

func (r *RiskAssessmentRepository) Upsert(ctx context.Context, a *risk.Assessment) error {
	model, err := RiskAssessmentToModel(a)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "association_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"breakdown", "updated_at"}),
	}).Create(model).Error
}

func (r *RiskAssessmentRepository) FindByAssociationID(ctx context.Context, associationID uuid.UUID) (*risk.Assessment, error) {
	var model RiskAssessmentModel
	result := r.db.WithContext(ctx).First(&model, "association_id = ?", associationID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("risk assessment not found")
		}
		return nil, result.Error
	}
	return ModelToRiskAssessment(&model)
}

func (r *RiskAssessmentRepository) FindByThreatID(ctx context.Context, threatID uuid.UUID) ([]*risk.Assessment, error) {
	var models []RiskAssessmentModel
	if err := r.db.WithContext(ctx).Where("threat_id = ?", threatID).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*risk.Assessment, len(models))
	for i := range models {
		a, err := ModelToRiskAssessment(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}

func (r *RiskAssessmentRepository) AppendHistory(ctx context.Context, entry risk.HistoryEntry) error {
	model, err := RiskHistoryToModel(entry)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *RiskAssessmentRepository) FindHistoryByAssessmentID(ctx context.Context, assessmentID uuid.UUID) ([]risk.HistoryEntry, error) {
	var models []RiskHistoryModel
	if err := r.db.WithContext(ctx).Where("assessment_id = ?", assessmentID).Order("recorded_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]risk.HistoryEntry, len(models))
	for i := range models {
		entry, err := ModelToRiskHistory(&models[i])
		if err != nil {
			return nil, err
		}
		out[i] = entry
	}
	return out, nil
}
