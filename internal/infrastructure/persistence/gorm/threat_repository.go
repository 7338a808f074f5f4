package gorm

import (
	"context"
	"errors"
	"time"

	"github.com/aetim/core/internal/domain/threat"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ThreatRepository implements outbound.ThreatRepository using GORM.
type ThreatRepository struct {
	db *gorm.DB
}

func NewThreatRepository(db *gorm.DB) outbound.ThreatRepository {
	return &ThreatRepository{db: db}
}

func (r *ThreatRepository) Create(ctx context.Context, t *threat.Threat) error {
	model, err := ThreatToModel(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

func (r *ThreatRepository) Update(ctx context.Context, t *threat.Threat) error {
	model, err := ThreatToModel(t)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Save(model)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("threat not found")
	}
	return nil
}

func (r *ThreatRepository) FindByID(ctx context.Context, id uuid.UUID) (*threat.Threat, error) {
	var model ThreatModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("threat not found")
		}
		return nil, result.Error
	}
	return ModelToThreat(&model)
}

func (r *ThreatRepository) FindByCVEID(ctx context.Context, cveID string) (*threat.Threat, error) {
	var model ThreatModel
	result := r.db.WithContext(ctx).First(&model, "cve_id = ?", cveID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("threat not found")
		}
		return nil, result.Error
	}
	return ModelToThreat(&model)
}

func (r *ThreatRepository) FindByFeedSourceURLTitle(ctx context.Context, feedID uuid.UUID, sourceURL, title string) (*threat.Threat, error) {
	var model ThreatModel
	result := r.db.WithContext(ctx).First(&model, "feed_id = ? AND source_url = ? AND title = ?", feedID, sourceURL, title)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("threat not found")
		}
		return nil, result.Error
	}
	return ModelToThreat(&model)
}

func (r *ThreatRepository) FindByStatus(ctx context.Context, status threat.Status, offset, limit int) ([]*threat.Threat, int, error) {
	var models []ThreatModel
	var total int64

	countResult := r.db.WithContext(ctx).Model(&ThreatModel{}).Where("status = ?", string(status)).Count(&total)
	if countResult.Error != nil {
		return nil, 0, countResult.Error
	}

	result := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("collected_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&models)
	if result.Error != nil {
		return nil, 0, result.Error
	}

	threats, err := threatsFromModels(models)
	if err != nil {
		return nil, 0, err
	}
	return threats, int(total), nil
}

func (r *ThreatRepository) FindIngestedBetween(ctx context.Context, from, to time.Time) ([]*threat.Threat, error) {
	var models []ThreatModel
	result := r.db.WithContext(ctx).
		Where("collected_at BETWEEN ? AND ?", from, to).
		Order("collected_at ASC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return threatsFromModels(models)
}

func threatsFromModels(models []ThreatModel) ([]*threat.Threat, error) {
	threats := make([]*threat.Threat, len(models))
	for i := range models {
		t, err := ModelToThreat(&models[i])
		if err != nil {
			return nil, err
		}
		threats[i] = t
	}
	return threats, nil
}
