package association

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresThreatID(t *testing.T) {
	_, err := New(uuid.Nil, uuid.New(), 0.9, KindOSMatch, nil)
	assert.ErrorIs(t, err, ErrThreatIDRequired)
}

func TestNew_RequiresAssetID(t *testing.T) {
	_, err := New(uuid.New(), uuid.Nil, 0.9, KindOSMatch, nil)
	assert.ErrorIs(t, err, ErrAssetIDRequired)
}

func TestNew_RejectsOutOfRangeConfidence(t *testing.T) {
	_, err := New(uuid.New(), uuid.New(), 1.1, KindOSMatch, nil)
	assert.ErrorIs(t, err, ErrInvalidConfidence)

	_, err = New(uuid.New(), uuid.New(), -0.1, KindOSMatch, nil)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestNew_RaisesCreatedEvent(t *testing.T) {
	threatID, assetID := uuid.New(), uuid.New()
	a, err := New(threatID, assetID, 0.9, KindOSMatch, nil)
	require.NoError(t, err)

	events := a.Events()
	require.Len(t, events, 1)

	evt, ok := events[0].(CreatedEvent)
	require.True(t, ok)
	assert.Equal(t, a.ID(), evt.AssociationID)
	assert.Equal(t, threatID, evt.ThreatID)
	assert.Equal(t, assetID, evt.AssetID)
}

func TestRescore_UpdatesInPlace(t *testing.T) {
	a, err := New(uuid.New(), uuid.New(), 0.7, ProductKind(NameMatchFuzzy, VersionMatchMajor), nil)
	require.NoError(t, err)

	err = a.Rescore(1.0, ProductKind(NameMatchExact, VersionMatchExact), nil)
	require.NoError(t, err)

	assert.Equal(t, 1.0, a.Confidence())
	assert.Equal(t, ProductKind(NameMatchExact, VersionMatchExact), a.MatchKind())
}

func TestRescore_RejectsOutOfRangeConfidence(t *testing.T) {
	a, err := New(uuid.New(), uuid.New(), 0.7, KindOSMatch, nil)
	require.NoError(t, err)

	err = a.Rescore(2.0, KindOSMatch, nil)
	assert.ErrorIs(t, err, ErrInvalidConfidence)
}

func TestVersionMatchKind_Multiplier(t *testing.T) {
	assert.Equal(t, 1.0, VersionMatchExact.Multiplier())
	assert.Equal(t, 0.9, VersionMatchRange.Multiplier())
	assert.Equal(t, 0.8, VersionMatchMajor.Multiplier())
	assert.Equal(t, 0.7, VersionMatchNone.Multiplier())
}

func TestVersionMatchKind_FuzzyMultiplierIsOneStepBelowExact(t *testing.T) {
	assert.Equal(t, 0.9, VersionMatchExact.FuzzyMultiplier())
	assert.Equal(t, 0.8, VersionMatchRange.FuzzyMultiplier())
	assert.Equal(t, 0.7, VersionMatchMajor.FuzzyMultiplier())
	assert.Equal(t, 0.6, VersionMatchNone.FuzzyMultiplier())

	for _, kind := range []VersionMatchKind{VersionMatchExact, VersionMatchRange, VersionMatchMajor, VersionMatchNone} {
		assert.Less(t, kind.FuzzyMultiplier(), kind.Multiplier())
	}
}

func TestProductKind_ComposesNameAndVersion(t *testing.T) {
	assert.Equal(t, Kind("exact_product_exact_version"), ProductKind(NameMatchExact, VersionMatchExact))
	assert.Equal(t, Kind("fuzzy_product_range_version"), ProductKind(NameMatchFuzzy, VersionMatchRange))
}
