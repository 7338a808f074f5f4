package gorm

import (
	"context"
	"errors"

	"github.com/aetim/core/internal/domain/feed"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedRepository implements outbound.FeedRepository using GORM.
type FeedRepository struct {
	db *gorm.DB
}

func NewFeedRepository(db *gorm.DB) outbound.FeedRepository {
	return &FeedRepository{db: db}
}

func (r *FeedRepository) Create(ctx context.Context, f *feed.Feed) error {
	return r.db.WithContext(ctx).Create(FeedToModel(f)).Error
}

func (r *FeedRepository) Update(ctx context.Context, f *feed.Feed) error {
	result := r.db.WithContext(ctx).Save(FeedToModel(f))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("feed not found")
	}
	return nil
}

func (r *FeedRepository) FindByID(ctx context.Context, id uuid.UUID) (*feed.Feed, error) {
	var model FeedModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("feed not found")
		}
		return nil, result.Error
	}
	return ModelToFeed(&model), nil
}

func (r *FeedRepository) FindByName(ctx context.Context, name string) (*feed.Feed, error) {
	var model FeedModel
	result := r.db.WithContext(ctx).First(&model, "name = ?", name)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("feed not found")
		}
		return nil, result.Error
	}
	return ModelToFeed(&model), nil
}

func (r *FeedRepository) FindEnabled(ctx context.Context) ([]*feed.Feed, error) {
	var models []FeedModel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&models).Error; err != nil {
		return nil, err
	}
	return feedsFromModels(models), nil
}

func (r *FeedRepository) FindAll(ctx context.Context) ([]*feed.Feed, error) {
	var models []FeedModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return feedsFromModels(models), nil
}

func feedsFromModels(models []FeedModel) []*feed.Feed {
	feeds := make([]*feed.Feed, len(models))
	for i := range models {
		feeds[i] = ModelToFeed(&models[i])
	}
	return feeds
}
