package threat

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func floatPtr(f float64) *float64 { return &f }

func TestNew_RequiresTitle(t *testing.T) {
	_, err := New(uuid.New(), "", "desc", "CVE-2024-0001", nil, "", "", nil, nil)
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestNew_RequiresFeedID(t *testing.T) {
	_, err := New(uuid.Nil, "title", "desc", "CVE-2024-0001", nil, "", "", nil, nil)
	assert.ErrorIs(t, err, ErrFeedIDRequired)
}

func TestNew_RejectsOutOfRangeCVSS(t *testing.T) {
	_, err := New(uuid.New(), "title", "desc", "CVE-2024-0001", floatPtr(10.1), "", "", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCVSSScore)

	_, err = New(uuid.New(), "title", "desc", "CVE-2024-0001", floatPtr(-0.1), "", "", nil, nil)
	assert.ErrorIs(t, err, ErrInvalidCVSSScore)
}

func TestNew_RaisesIngestedEvent(t *testing.T) {
	feedID := uuid.New()
	th, err := New(feedID, "title", "desc", "CVE-2024-0001", floatPtr(7.5), "vector", "https://example.com", nil, nil)
	require.NoError(t, err)

	events := th.Events()
	require.Len(t, events, 1)

	evt, ok := events[0].(IngestedEvent)
	require.True(t, ok)
	assert.Equal(t, th.ID(), evt.ThreatID)
	assert.Equal(t, feedID, evt.FeedID)
	assert.Equal(t, "CVE-2024-0001", evt.CVEID)
}

func TestNew_NilScoreLeavesSeverityZeroValue(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Severity(""), th.Severity())
}

func TestSetSeverity_SourceProvidedTagWinsOverDerivedBand(t *testing.T) {
	score := 9.8
	th, err := New(uuid.New(), "title", "desc", "", &score, "", "", nil, nil)
	require.NoError(t, err)
	require.Equal(t, SeverityCritical, th.Severity())

	require.NoError(t, th.SetSeverity(SeverityHigh))
	assert.Equal(t, SeverityHigh, th.Severity())

	assert.ErrorIs(t, th.SetSeverity(Severity("Catastrophic")), ErrInvalidSeverity)
	assert.Equal(t, SeverityHigh, th.Severity())
}

func TestSeverityFromCVSS_Boundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Severity
	}{
		{0.0, SeverityLow},
		{3.9, SeverityLow},
		{4.0, SeverityMedium},
		{6.9, SeverityMedium},
		{7.0, SeverityHigh},
		{8.9, SeverityHigh},
		{9.0, SeverityCritical},
		{10.0, SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equalf(t, tt.want, SeverityFromCVSS(tt.score), "score=%v", tt.score)
	}
}

func TestUpdateStatus_ValidTransitions(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)
	th.Events() // drain the constructor event

	require.NoError(t, th.UpdateStatus(StatusAnalyzing))
	assert.Equal(t, StatusAnalyzing, th.Status())

	require.NoError(t, th.UpdateStatus(StatusProcessed))
	assert.Equal(t, StatusProcessed, th.Status())

	require.NoError(t, th.UpdateStatus(StatusClosed))
	assert.Equal(t, StatusClosed, th.Status())
}

func TestUpdateStatus_RejectsInvalidTransition(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	err = th.UpdateStatus(StatusProcessed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
	assert.Equal(t, StatusNew, th.Status())
}

func TestUpdateStatus_ClosedIsTerminal(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)
	require.NoError(t, th.UpdateStatus(StatusClosed))

	err = th.UpdateStatus(StatusAnalyzing)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestUpdateStatus_RejectsUnknownStatus(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	err = th.UpdateStatus(Status("Bogus"))
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestAddProduct_DeduplicatesByNameAndVersion(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, th.AddProduct("nginx", "1.18.0", ProductTypeApplication, "nginx 1.18.0"))
	require.NoError(t, th.AddProduct("nginx", "1.18.0", ProductTypeApplication, "nginx 1.18.0 again"))

	assert.Len(t, th.Products(), 1)
}

func TestAddProduct_RejectsEmptyName(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	err = th.AddProduct("", "1.0", ProductTypeApplication, "")
	assert.ErrorIs(t, err, ErrProductNameRequired)
}

func TestAddTTP_Deduplicates(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	th.AddTTP("T1566")
	th.AddTTP("T1566")
	th.AddTTP("T1059.001")

	assert.Equal(t, []string{"T1566", "T1059.001"}, th.TTPs())
}

func TestAddIOC_DeduplicatesWithinBucket(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	th.AddIOC(IOCBucketIPs, "203.0.113.5")
	th.AddIOC(IOCBucketIPs, "203.0.113.5")
	th.AddIOC(IOCBucketDomains, "attacker.example.net")

	assert.Equal(t, []string{"203.0.113.5"}, th.IOCs(IOCBucketIPs))
	assert.Equal(t, []string{"attacker.example.net"}, th.IOCs(IOCBucketDomains))
}

func TestUpdateScore_RecomputesSeverity(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	require.NoError(t, th.UpdateScore(9.8, "AV:N/AC:L"))
	assert.Equal(t, SeverityCritical, th.Severity())
	require.NotNil(t, th.BaseScore())
	assert.Equal(t, 9.8, *th.BaseScore())
}

func TestUpdateScore_RejectsOutOfRange(t *testing.T) {
	th, err := New(uuid.New(), "title", "desc", "", nil, "", "", nil, nil)
	require.NoError(t, err)

	err = th.UpdateScore(11.0, "")
	assert.ErrorIs(t, err, ErrInvalidCVSSScore)
}

func TestStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, StatusNew.CanTransitionTo(StatusAnalyzing))
	assert.True(t, StatusNew.CanTransitionTo(StatusClosed))
	assert.False(t, StatusNew.CanTransitionTo(StatusProcessed))
	assert.True(t, StatusAnalyzing.CanTransitionTo(StatusProcessed))
	assert.False(t, StatusProcessed.CanTransitionTo(StatusAnalyzing))
	assert.False(t, StatusClosed.CanTransitionTo(StatusNew))
}
