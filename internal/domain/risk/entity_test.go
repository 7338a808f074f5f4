package risk

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromScore_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{0.0, LevelLow},
		{3.99, LevelLow},
		{4.0, LevelMedium},
		{5.99, LevelMedium},
		{6.0, LevelHigh},
		{7.99, LevelHigh},
		{8.0, LevelCritical},
		{10.0, LevelCritical},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, LevelFromScore(tt.score), "score=%v", tt.score)
	}
}

func TestNew_RequiresThreatID(t *testing.T) {
	_, err := New(uuid.Nil, uuid.New(), Breakdown{})
	assert.ErrorIs(t, err, ErrThreatIDRequired)
}

func TestNew_RequiresAssociationID(t *testing.T) {
	_, err := New(uuid.New(), uuid.Nil, Breakdown{})
	assert.ErrorIs(t, err, ErrAssociationIDRequired)
}

func TestNew_RejectsInvalidBaseCVSS(t *testing.T) {
	_, err := New(uuid.New(), uuid.New(), Breakdown{BaseCVSSScore: 11.0})
	assert.ErrorIs(t, err, ErrInvalidCVSSScore)
}

func TestNew_ClampsFinalScoreAndDerivesLevel(t *testing.T) {
	a, err := New(uuid.New(), uuid.New(), Breakdown{BaseCVSSScore: 9.0, FinalRiskScore: 12.0})
	require.NoError(t, err)

	assert.Equal(t, 10.0, a.Breakdown().FinalRiskScore)
	assert.Equal(t, LevelCritical, a.Breakdown().RiskLevel)
}

func TestNew_RaisesAssessmentCompletedEvent(t *testing.T) {
	threatID := uuid.New()
	associationID := uuid.New()

	a, err := New(threatID, associationID, Breakdown{BaseCVSSScore: 7.5, FinalRiskScore: 7.5})
	require.NoError(t, err)

	events := a.Events()
	require.Len(t, events, 1)

	evt, ok := events[0].(AssessmentCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, a.ID(), evt.AssessmentID)
	assert.Equal(t, threatID, evt.ThreatID)
	assert.Equal(t, associationID, evt.AssociationID)
	assert.Equal(t, LevelHigh, evt.Level)
}

func TestRescore_ReplacesBreakdownAndRaisesNewEvent(t *testing.T) {
	a, err := New(uuid.New(), uuid.New(), Breakdown{BaseCVSSScore: 5.0, FinalRiskScore: 5.0})
	require.NoError(t, err)
	a.Events()

	err = a.Rescore(Breakdown{BaseCVSSScore: 9.5, FinalRiskScore: 9.5})
	require.NoError(t, err)

	assert.Equal(t, LevelCritical, a.Breakdown().RiskLevel)
	events := a.Events()
	require.Len(t, events, 1)
	assert.Equal(t, 9.5, events[0].(AssessmentCompletedEvent).FinalScore)
}

func TestRescore_RejectsInvalidBaseCVSS(t *testing.T) {
	a, err := New(uuid.New(), uuid.New(), Breakdown{BaseCVSSScore: 5.0, FinalRiskScore: 5.0})
	require.NoError(t, err)

	err = a.Rescore(Breakdown{BaseCVSSScore: -1.0})
	assert.ErrorIs(t, err, ErrInvalidCVSSScore)
}

func TestNewHistoryEntry_ReferencesAssessment(t *testing.T) {
	assessmentID := uuid.New()
	breakdown := Breakdown{FinalRiskScore: 6.5, RiskLevel: LevelHigh}

	entry := NewHistoryEntry(assessmentID, breakdown)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, assessmentID, entry.AssessmentID)
	assert.Equal(t, breakdown, entry.Breakdown)
}
