package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aetim/core/internal/domain/threat"
)

func newFakeThreat(t *testing.T, feedID uuid.UUID, cveID string) *threat.Threat {
	t.Helper()

	score := gofakeit.Float64Range(0.0, 10.0)
	published := gofakeit.PastDate()

	th, err := threat.New(
		feedID,
		gofakeit.Sentence(6),
		gofakeit.Paragraph(1, 3, 8, " "),
		cveID,
		&score,
		"CVSS:3.1/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H",
		gofakeit.URL(),
		&published,
		[]byte(gofakeit.HackerPhrase()),
	)
	require.NoError(t, err)
	return th
}

func TestThreatRepository_RoundTripByIDAndCVE(t *testing.T) {
	gofakeit.Seed(11)
	repo := NewThreatRepository()
	ctx := context.Background()
	feedID := uuid.New()

	stored := make([]*threat.Threat, 0, 20)
	for i := 0; i < 20; i++ {
		th := newFakeThreat(t, feedID, fmt.Sprintf("CVE-2024-%05d", i))
		require.NoError(t, repo.Create(ctx, th))
		stored = append(stored, th)
	}

	for _, want := range stored {
		byID, err := repo.FindByID(ctx, want.ID())
		require.NoError(t, err)
		assert.Equal(t, want.Title(), byID.Title())
		assert.Equal(t, want.CVEID(), byID.CVEID())

		byCVE, err := repo.FindByCVEID(ctx, want.CVEID())
		require.NoError(t, err)
		assert.Equal(t, want.ID(), byCVE.ID())
	}
}

func TestThreatRepository_FindByFeedSourceURLTitleKeysCVELessThreats(t *testing.T) {
	gofakeit.Seed(12)
	repo := NewThreatRepository()
	ctx := context.Background()
	feedID := uuid.New()

	want := newFakeThreat(t, feedID, "")
	require.NoError(t, repo.Create(ctx, want))
	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Create(ctx, newFakeThreat(t, feedID, "")))
	}

	got, err := repo.FindByFeedSourceURLTitle(ctx, feedID, want.SourceURL(), want.Title())
	require.NoError(t, err)
	assert.Equal(t, want.ID(), got.ID())

	_, err = repo.FindByFeedSourceURLTitle(ctx, uuid.New(), want.SourceURL(), want.Title())
	assert.Error(t, err)
}

func TestThreatRepository_UpdateRequiresExistingRow(t *testing.T) {
	gofakeit.Seed(13)
	repo := NewThreatRepository()
	ctx := context.Background()

	th := newFakeThreat(t, uuid.New(), "CVE-2024-11111")
	assert.Error(t, repo.Update(ctx, th))

	require.NoError(t, repo.Create(ctx, th))
	assert.NoError(t, repo.Update(ctx, th))
}
