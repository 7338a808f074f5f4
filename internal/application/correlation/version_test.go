package correlation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aetim/core/internal/domain/association"
)

func TestParseVersion_DottedNumeric(t *testing.T) {
	assert.Equal(t, []int{7, 0, 3}, parseVersion("7.0.3"))
	assert.Equal(t, []int{1, 18}, parseVersion("1.18"))
}

func TestParseVersion_FallsBackToYear(t *testing.T) {
	assert.Equal(t, []int{2019}, parseVersion("2019"))
}

func TestParseVersion_Empty(t *testing.T) {
	assert.Nil(t, parseVersion(""))
}

func TestCompareVersions(t *testing.T) {
	assert.Equal(t, 0, compareVersions([]int{1, 0}, []int{1, 0}))
	assert.Equal(t, 1, compareVersions([]int{1, 1}, []int{1, 0}))
	assert.Equal(t, -1, compareVersions([]int{1, 0}, []int{1, 1}))
	assert.Equal(t, 1, compareVersions([]int{1, 1}, []int{1}))
}

func TestMatchVersions_ExactMatch(t *testing.T) {
	matched, kind := matchVersions("1.18.0", "1.18.0")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchExact, kind)
}

func TestMatchVersions_RangeSuffixDotX(t *testing.T) {
	matched, kind := matchVersions("7.0.x", "7.0.3")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchRange, kind)
	assert.Equal(t, 0.9, kind.Multiplier())
}

func TestMatchVersions_MajorVersionOnly(t *testing.T) {
	matched, kind := matchVersions("7.1.0", "7.0.3")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchMajor, kind)
	assert.Equal(t, 0.8, kind.Multiplier())
}

func TestMatchVersions_ComparisonOperator(t *testing.T) {
	matched, kind := matchVersions(">=2.0", "7.5.0")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchRange, kind)
}

func TestMatchVersions_ComparisonOperatorWinsOverSharedMajor(t *testing.T) {
	// ">=7.0" and "7.5.0" share major component 7; the comparator must
	// still classify this as a range match, not a major match.
	matched, kind := matchVersions(">=7.0", "7.5.0")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchRange, kind)

	matched, kind = matchVersions("<7.9", "7.5.0")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchRange, kind)
}

func TestMatchVersions_NoMatch(t *testing.T) {
	matched, _ := matchVersions("2.0.0", "9.0.0")
	assert.False(t, matched)
}

func TestMatchVersions_BothEmptyVersionsMatchAsNone(t *testing.T) {
	matched, kind := matchVersions("", "")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchNone, kind)
}

func TestMatchVersions_ThreatVersionEmptyMatchesAny(t *testing.T) {
	matched, kind := matchVersions("", "7.0.3")
	assert.True(t, matched)
	assert.Equal(t, association.VersionMatchNone, kind)
}

func TestMatchVersions_AssetVersionEmptyWithThreatVersionFails(t *testing.T) {
	matched, _ := matchVersions("7.0.3", "")
	assert.False(t, matched)
}
