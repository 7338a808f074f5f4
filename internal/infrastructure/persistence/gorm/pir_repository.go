package gorm

import (
	"context"
	"errors"

	"github.com/aetim/core/internal/domain/pir"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PIRRepository implements outbound.PIRRepository using GORM.
type PIRRepository struct {
	db *gorm.DB
}

func NewPIRRepository(db *gorm.DB) outbound.PIRRepository {
	return &PIRRepository{db: db}
}

func (r *PIRRepository) Create(ctx context.Context, p *pir.PIR) error {
	return r.db.WithContext(ctx).Create(PIRToModel(p)).Error
}

func (r *PIRRepository) Update(ctx context.Context, p *pir.PIR) error {
	result := r.db.WithContext(ctx).Save(PIRToModel(p))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("pir not found")
	}
	return nil
}

func (r *PIRRepository) FindByID(ctx context.Context, id uuid.UUID) (*pir.PIR, error) {
	var model PIRModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("pir not found")
		}
		return nil, result.Error
	}
	return ModelToPIR(&model), nil
}

func (r *PIRRepository) FindEnabled(ctx context.Context) ([]*pir.PIR, error) {
	var models []PIRModel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&models).Error; err != nil {
		return nil, err
	}
	return pirsFromModels(models), nil
}

func (r *PIRRepository) FindAll(ctx context.Context) ([]*pir.PIR, error) {
	var models []PIRModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return pirsFromModels(models), nil
}

func pirsFromModels(models []PIRModel) []*pir.PIR {
	out := make([]*pir.PIR, len(models))
	for i := range models {
		out[i] = ModelToPIR(&models[i])
	}
	return out
}
