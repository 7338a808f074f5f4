package notification

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRule_ValidatesKindRecipientsAndThreshold(t *testing.T) {
	_, err := NewRule(RuleKind("bogus"), 5.0, "", []string{"a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidRuleKind)

	_, err = NewRule(RuleCriticalThreat, 5.0, "", nil)
	assert.ErrorIs(t, err, ErrNoRecipients)

	_, err = NewRule(RuleCriticalThreat, 11.0, "", []string{"a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidScoreThreshold)

	_, err = NewRule(RuleCriticalThreat, -1.0, "", []string{"a@example.com"})
	assert.ErrorIs(t, err, ErrInvalidScoreThreshold)
}

func TestNewRule_SucceedsEnabledByDefault(t *testing.T) {
	r, err := NewRule(RuleHighRiskDailyDigest, 6.0, "08:00", []string{"ciso@example.com"})
	require.NoError(t, err)
	assert.True(t, r.Enabled())
	assert.Equal(t, "08:00", r.SendTime())
	assert.Equal(t, []string{"ciso@example.com"}, r.Recipients())
}

func TestUpdate_AppliesOnlyProvidedFieldsAndRaisesEventOnChange(t *testing.T) {
	r, err := NewRule(RuleCriticalThreat, 5.0, "", []string{"a@example.com"})
	require.NoError(t, err)
	r.ClearEvents()

	disabled := false
	require.NoError(t, r.Update(&disabled, nil, nil, nil))
	assert.False(t, r.Enabled())
	assert.Equal(t, 5.0, r.ScoreThreshold())

	events := r.Events()
	require.Len(t, events, 1)
	updated, ok := events[0].(RuleUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, []string{"enabled"}, updated.UpdatedFields)
}

func TestUpdate_RejectsInvalidThresholdAndEmptyRecipients(t *testing.T) {
	r, err := NewRule(RuleCriticalThreat, 5.0, "", []string{"a@example.com"})
	require.NoError(t, err)

	badThreshold := 12.0
	assert.ErrorIs(t, r.Update(nil, &badThreshold, nil, nil), ErrInvalidScoreThreshold)
	assert.ErrorIs(t, r.Update(nil, nil, nil, []string{}), ErrNoRecipients)
}

func TestUpdate_NoFieldsProvidedRaisesNoEvent(t *testing.T) {
	r, err := NewRule(RuleCriticalThreat, 5.0, "", []string{"a@example.com"})
	require.NoError(t, err)
	r.ClearEvents()

	require.NoError(t, r.Update(nil, nil, nil, nil))
	assert.Empty(t, r.Events())
}

func TestNewNotification_RequiresRuleID(t *testing.T) {
	_, err := NewNotification(uuid.Nil, DeliverySent, "")
	assert.ErrorIs(t, err, ErrRuleIDRequired)

	n, err := NewNotification(uuid.New(), DeliveryFailed, "smtp timeout")
	require.NoError(t, err)
	assert.Equal(t, DeliveryFailed, n.Status())
	assert.Equal(t, "smtp timeout", n.ErrorText())
}

func TestRehydrateRule_PreservesState(t *testing.T) {
	created, err := NewRule(RuleWeeklyReport, 0.0, "", []string{"ciso@example.com"})
	require.NoError(t, err)

	rehydrated := RehydrateRule(created.ID(), created.Kind(), false, created.ScoreThreshold(), created.SendTime(), created.Recipients(), created.CreatedAt(), created.UpdatedAt())
	assert.Equal(t, created.ID(), rehydrated.ID())
	assert.False(t, rehydrated.Enabled())
	assert.Empty(t, rehydrated.Events())
}
