package gorm

import (
	"context"
	"errors"

	"github.com/aetim/core/internal/domain/notification"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NotificationRuleRepository implements outbound.NotificationRuleRepository
// using GORM.
type NotificationRuleRepository struct {
	db *gorm.DB
}

func NewNotificationRuleRepository(db *gorm.DB) outbound.NotificationRuleRepository {
	return &NotificationRuleRepository{db: db}
}

func (r *NotificationRuleRepository) Create(ctx context.Context, rule *notification.Rule) error {
	return r.db.WithContext(ctx).Create(NotificationRuleToModel(rule)).Error
}

func (r *NotificationRuleRepository) Update(ctx context.Context, rule *notification.Rule) error {
	result := r.db.WithContext(ctx).Save(NotificationRuleToModel(rule))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("notification rule not found")
	}
	return nil
}

func (r *NotificationRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Rule, error) {
	var model NotificationRuleModel
	result := r.db.WithContext(ctx).First(&model, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, errors.New("notification rule not found")
		}
		return nil, result.Error
	}
	return ModelToNotificationRule(&model), nil
}

func (r *NotificationRuleRepository) FindByKind(ctx context.Context, kind notification.RuleKind) ([]*notification.Rule, error) {
	var models []NotificationRuleModel
	if err := r.db.WithContext(ctx).Where("kind = ?", string(kind)).Find(&models).Error; err != nil {
		return nil, err
	}
	return rulesFromModels(models), nil
}

func (r *NotificationRuleRepository) FindEnabled(ctx context.Context) ([]*notification.Rule, error) {
	var models []NotificationRuleModel
	if err := r.db.WithContext(ctx).Where("enabled = ?", true).Find(&models).Error; err != nil {
		return nil, err
	}
	return rulesFromModels(models), nil
}

func rulesFromModels(models []NotificationRuleModel) []*notification.Rule {
	out := make([]*notification.Rule, len(models))
	for i := range models {
		out[i] = ModelToNotificationRule(&models[i])
	}
	return out
}

// NotificationRepository implements outbound.NotificationRepository using
// GORM.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) outbound.NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.WithContext(ctx).Create(NotificationToModel(n)).Error
}

func (r *NotificationRepository) FindByRuleID(ctx context.Context, ruleID uuid.UUID) ([]*notification.Notification, error) {
	var models []NotificationModel
	if err := r.db.WithContext(ctx).Where("rule_id = ?", ruleID).Order("delivered_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*notification.Notification, len(models))
	for i := range models {
		out[i] = ModelToNotification(&models[i])
	}
	return out, nil
}
