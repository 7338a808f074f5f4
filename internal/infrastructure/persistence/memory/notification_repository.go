package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/aetim/core/internal/domain/notification"
	"github.com/aetim/core/internal/ports/outbound"
	"github.com/google/uuid"
)

// NotificationRuleRepository is an in-memory
// outbound.NotificationRuleRepository for use in tests.
type NotificationRuleRepository struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*notification.Rule
}

func NewNotificationRuleRepository() outbound.NotificationRuleRepository {
	return &NotificationRuleRepository{byID: make(map[uuid.UUID]*notification.Rule)}
}

func (r *NotificationRuleRepository) Create(ctx context.Context, rule *notification.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[rule.ID()] = rule
	return nil
}

func (r *NotificationRuleRepository) Update(ctx context.Context, rule *notification.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[rule.ID()]; !ok {
		return errors.New("notification rule not found")
	}
	r.byID[rule.ID()] = rule
	return nil
}

func (r *NotificationRuleRepository) FindByID(ctx context.Context, id uuid.UUID) (*notification.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.byID[id]
	if !ok {
		return nil, errors.New("notification rule not found")
	}
	return rule, nil
}

func (r *NotificationRuleRepository) FindByKind(ctx context.Context, kind notification.RuleKind) ([]*notification.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*notification.Rule
	for _, rule := range r.byID {
		if rule.Kind() == kind {
			out = append(out, rule)
		}
	}
	return out, nil
}

func (r *NotificationRuleRepository) FindEnabled(ctx context.Context) ([]*notification.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*notification.Rule
	for _, rule := range r.byID {
		if rule.Enabled() {
			out = append(out, rule)
		}
	}
	return out, nil
}

// NotificationRepository is an in-memory outbound.NotificationRepository
// for use in tests.
type NotificationRepository struct {
	mu      sync.RWMutex
	byRule  map[uuid.UUID][]*notification.Notification
}

func NewNotificationRepository() outbound.NotificationRepository {
	return &NotificationRepository{byRule: make(map[uuid.UUID][]*notification.Notification)}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byRule[n.RuleID()] = append(r.byRule[n.RuleID()], n)
	return nil
}

func (r *NotificationRepository) FindByRuleID(ctx context.Context, ruleID uuid.UUID) ([]*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]*notification.Notification{}, r.byRule[ruleID]...), nil
}
