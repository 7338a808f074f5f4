package pir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresName(t *testing.T) {
	_, err := New("", "desc", PriorityHigh, ConditionProductName, "nginx")
	assert.ErrorIs(t, err, ErrNameRequired)
}

func TestNew_RequiresDescription(t *testing.T) {
	_, err := New("name", "", PriorityHigh, ConditionProductName, "nginx")
	assert.ErrorIs(t, err, ErrDescriptionRequired)
}

func TestNew_RejectsInvalidPriority(t *testing.T) {
	_, err := New("name", "desc", Priority("Urgent"), ConditionProductName, "nginx")
	assert.ErrorIs(t, err, ErrInvalidPriority)
}

func TestNew_RejectsInvalidConditionType(t *testing.T) {
	_, err := New("name", "desc", PriorityHigh, ConditionType("Bogus"), "nginx")
	assert.ErrorIs(t, err, ErrInvalidConditionType)
}

func TestNew_RequiresConditionValue(t *testing.T) {
	_, err := New("name", "desc", PriorityHigh, ConditionProductName, "")
	assert.ErrorIs(t, err, ErrConditionValueRequired)
}

func TestNew_DefaultsEnabled(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionProductName, "nginx")
	require.NoError(t, err)
	assert.True(t, p.Enabled())
}

func TestToggle_FlipsEnabledAndRaisesEvent(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionProductName, "nginx")
	require.NoError(t, err)
	p.Events()

	p.Toggle()
	assert.False(t, p.Enabled())

	events := p.Events()
	require.Len(t, events, 1)
	evt, ok := events[0].(ToggledEvent)
	require.True(t, ok)
	assert.False(t, evt.Enabled)
}

func TestMatches_DisabledAlwaysFalse(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionProductName, "nginx")
	require.NoError(t, err)
	p.Toggle()

	assert.False(t, p.Matches(Criteria{ProductName: "nginx 1.18.0"}))
}

func TestMatches_ProductNameSubstringCaseInsensitive(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionProductName, "Nginx")
	require.NoError(t, err)

	assert.True(t, p.Matches(Criteria{ProductName: "some nginx 1.18.0 install"}))
	assert.False(t, p.Matches(Criteria{ProductName: "apache tomcat"}))
}

func TestMatches_CVEIDPrefixWhenTrailingDash(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionCVEID, "CVE-2024-")
	require.NoError(t, err)

	assert.True(t, p.Matches(Criteria{CVE: "CVE-2024-00001"}))
	assert.False(t, p.Matches(Criteria{CVE: "CVE-2023-00001"}))
}

func TestMatches_CVEIDExactWithoutTrailingDash(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionCVEID, "CVE-2024-12345")
	require.NoError(t, err)

	assert.True(t, p.Matches(Criteria{CVE: "CVE-2024-12345"}))
	assert.False(t, p.Matches(Criteria{CVE: "CVE-2024-123456"}))
}

func TestMatches_ThreatTypeSubstring(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionThreatType, "ransomware")
	require.NoError(t, err)

	assert.True(t, p.Matches(Criteria{ThreatType: "New Ransomware Campaign Observed"}))
}

func TestMatches_CVSSScoreGreaterThan(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionCVSSScore, ">7.0")
	require.NoError(t, err)

	assert.True(t, p.Matches(Criteria{CVSSScore: 7.1}))
	assert.False(t, p.Matches(Criteria{CVSSScore: 7.0}))
}

func TestMatches_CVSSScoreLessThan(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionCVSSScore, "<4.0")
	require.NoError(t, err)

	assert.True(t, p.Matches(Criteria{CVSSScore: 3.9}))
	assert.False(t, p.Matches(Criteria{CVSSScore: 4.0}))
}

func TestMatches_CVSSScoreBareValueIsGreaterOrEqual(t *testing.T) {
	p, err := New("name", "desc", PriorityHigh, ConditionCVSSScore, "9.0")
	require.NoError(t, err)

	assert.True(t, p.Matches(Criteria{CVSSScore: 9.0}))
	assert.False(t, p.Matches(Criteria{CVSSScore: 8.9}))
}

func TestIsHighPriority(t *testing.T) {
	high, err := New("name", "desc", PriorityHigh, ConditionProductName, "nginx")
	require.NoError(t, err)
	assert.True(t, high.IsHighPriority())

	medium, err := New("name", "desc", PriorityMedium, ConditionProductName, "nginx")
	require.NoError(t, err)
	assert.False(t, medium.IsHighPriority())

	high.Toggle()
	assert.False(t, high.IsHighPriority())
}
