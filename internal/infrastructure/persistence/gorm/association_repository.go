package gorm

import (
	"context"
	"errors"

	"github.com/aetim/core/internal/domain/association"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssociationRepository implements outbound.AssociationRepository using
// GORM. Upsert resolves conflicts on the primary key id; the
// (threat_id, asset_id) pair has no unique index, so the pair stays unique
// only when callers upsert the association FindByThreatAndAsset returns.
type AssociationRepository struct {
	db *gorm.DB
}

func NewAssociationRepository(db *gorm.DB) outbound.AssociationRepository {
	return &AssociationRepository{db: db}
}

func (r *AssociationRepository) Upsert(ctx context.Context, a *association.Association) error {
	model := AssociationToModel(a)
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"confidence", "match_kind", "match_details", "updated_at"}),
	}).Create(model).Error
}

func (r *AssociationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&AssociationModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("association not found")
	}
	return nil
}

func (r *AssociationRepository) FindByThreatID(ctx context.Context, threatID uuid.UUID) ([]*association.Association, error) {
	var models []AssociationModel
	if err := r.db.WithContext(ctx).Where("threat_id = ?", threatID).Find(&models).Error; err != nil {
		return nil, err
	}
	return associationsFromModels(models), nil
}

func (r *AssociationRepository) FindByAssetID(ctx context.Context, assetID uuid.UUID) ([]*association.Association, error) {
	var models []AssociationModel
	if err := r.db.WithContext(ctx).Where("asset_id = ?", assetID).Find(&models).Error; err != nil {
		return nil, err
	}
	return associationsFromModels(models), nil
}

func (r *AssociationRepository) FindByThreatAndAsset(ctx context.Context, threatID, assetID uuid.UUID) (*association.Association, error) {
	var model AssociationModel
	result := r.db.WithContext(ctx).First(&model, "threat_id = ? AND asset_id = ?", threatID, assetID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("association not found")
		}
		return nil, result.Error
	}
	return ModelToAssociation(&model), nil
}

func associationsFromModels(models []AssociationModel) []*association.Association {
	out := make([]*association.Association, len(models))
	for i := range models {
		out[i] = ModelToAssociation(&models[i])
	}
	return out
}
