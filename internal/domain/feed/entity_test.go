package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ValidatesNameAndEnums(t *testing.T) {
	_, err := New("", PriorityP0, CadenceHourly, nil)
	assert.ErrorIs(t, err, ErrNameRequired)

	_, err = New("NVD", Priority("P9"), CadenceHourly, nil)
	assert.ErrorIs(t, err, ErrInvalidPriority)

	_, err = New("NVD", PriorityP0, Cadence("yearly"), nil)
	assert.ErrorIs(t, err, ErrInvalidCadence)
}

func TestNew_SucceedsEnabledByDefaultAndRaisesCreatedEvent(t *testing.T) {
	f, err := New("NVD", PriorityP0, CadenceHourly, []byte("secret"))
	require.NoError(t, err)

	assert.True(t, f.Enabled())
	assert.Equal(t, "NVD", f.Name())
	assert.Equal(t, []byte("secret"), f.CredentialBlob())

	events := f.Events()
	require.Len(t, events, 1)
	created, ok := events[0].(CreatedEvent)
	require.True(t, ok)
	assert.Equal(t, f.ID(), created.FeedID)
}

func TestUpdate_OnlyAppliesNonNilFieldsAndRaisesEventOnChange(t *testing.T) {
	f, err := New("NVD", PriorityP0, CadenceHourly, nil)
	require.NoError(t, err)
	f.ClearEvents()

	newName := "NVD Mirror"
	require.NoError(t, f.Update(&newName, nil, nil, nil))
	assert.Equal(t, "NVD Mirror", f.Name())
	assert.Equal(t, PriorityP0, f.Priority())

	events := f.Events()
	require.Len(t, events, 1)
	updated, ok := events[0].(UpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, updated.UpdatedFields)
}

func TestUpdate_RejectsInvalidPriorityAndCadence(t *testing.T) {
	f, err := New("NVD", PriorityP0, CadenceHourly, nil)
	require.NoError(t, err)

	badPriority := Priority("P9")
	assert.ErrorIs(t, f.Update(nil, &badPriority, nil, nil), ErrInvalidPriority)

	badCadence := Cadence("yearly")
	assert.ErrorIs(t, f.Update(nil, nil, &badCadence, nil), ErrInvalidCadence)

	emptyName := "   "
	assert.ErrorIs(t, f.Update(&emptyName, nil, nil, nil), ErrNameRequired)
}

func TestUpdate_NoChangesRaisesNoEvent(t *testing.T) {
	f, err := New("NVD", PriorityP0, CadenceHourly, nil)
	require.NoError(t, err)
	f.ClearEvents()

	require.NoError(t, f.Update(nil, nil, nil, nil))
	assert.Empty(t, f.Events())
}

func TestToggle_FlipsEnabledAndRaisesEvent(t *testing.T) {
	f, err := New("NVD", PriorityP0, CadenceHourly, nil)
	require.NoError(t, err)
	f.ClearEvents()

	f.Toggle()
	assert.False(t, f.Enabled())
	events := f.Events()
	require.Len(t, events, 1)
	assert.Equal(t, []string{"enabled"}, events[0].(UpdatedEvent).UpdatedFields)

	f.Toggle()
	assert.True(t, f.Enabled())
}

func TestRecordCollectionOutcome_RejectsInvalidStatusAndRaisesEventOnSuccess(t *testing.T) {
	f, err := New("NVD", PriorityP0, CadenceHourly, nil)
	require.NoError(t, err)
	f.ClearEvents()

	assert.ErrorIs(t, f.RecordCollectionOutcome(CollectionStatus("bogus"), 0, "", 0), ErrInvalidCollectionState)

	require.NoError(t, f.RecordCollectionOutcome(CollectionSuccess, 42, "", 3*time.Second))
	require.NotNil(t, f.LastRunStatus())
	assert.Equal(t, CollectionSuccess, *f.LastRunStatus())
	require.NotNil(t, f.LastRunAt())

	events := f.Events()
	require.Len(t, events, 1)
	outcome, ok := events[0].(CollectionStatusUpdatedEvent)
	require.True(t, ok)
	assert.Equal(t, 42, outcome.RecordCount)
}

func TestIsCISAKEV_MatchesByNameSubstring(t *testing.T) {
	kev, err := New("CISA Known Exploited Vulnerabilities", PriorityP0, CadenceDaily, nil)
	require.NoError(t, err)
	assert.True(t, kev.IsCISAKEV())

	other, err := New("MSRC", PriorityP1, CadenceDaily, nil)
	require.NoError(t, err)
	assert.False(t, other.IsCISAKEV())

	kevAbbrev, err := New("Vendor KEV feed", PriorityP1, CadenceDaily, nil)
	require.NoError(t, err)
	assert.True(t, kevAbbrev.IsCISAKEV())
}

func TestString_OmitsCredentialBlob(t *testing.T) {
	f, err := New("NVD", PriorityP0, CadenceHourly, []byte("super-secret-token"))
	require.NoError(t, err)
	assert.NotContains(t, f.String(), "super-secret-token")
	assert.Contains(t, f.String(), "NVD")
}

func TestRehydrate_PreservesPersistedStateWithoutEvents(t *testing.T) {
	created, err := New("NVD", PriorityP0, CadenceHourly, nil)
	require.NoError(t, err)

	rehydrated := Rehydrate(
		created.ID(), created.Name(), created.Priority(), false, created.Cadence(),
		nil, nil, nil, "", created.CreatedAt(), created.UpdatedAt(),
	)

	assert.Equal(t, created.ID(), rehydrated.ID())
	assert.False(t, rehydrated.Enabled())
	assert.Empty(t, rehydrated.Events())
}
