package emission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPreviousReportWeek(t *testing.T) {
	utc := time.UTC

	// 2026-07-31 is a Friday; the previous complete week is
	// 2026-07-20 (Mon) through 2026-07-26 (Sun).
	friday := time.Date(2026, 7, 31, 14, 30, 0, 0, utc)
	start, end := previousReportWeek(friday, utc)
	assert.Equal(t, time.Date(2026, 7, 20, 0, 0, 0, 0, utc), start)
	assert.Equal(t, time.Date(2026, 7, 26, 23, 59, 59, 0, utc), end)

	// Firing exactly on a Monday still reports the week that just ended,
	// not the week that is only just starting.
	monday := time.Date(2026, 7, 27, 9, 0, 0, 0, utc)
	start, end = previousReportWeek(monday, utc)
	assert.Equal(t, time.Date(2026, 7, 20, 0, 0, 0, 0, utc), start)
	assert.Equal(t, time.Date(2026, 7, 26, 23, 59, 59, 0, utc), end)

	// Firing on a Sunday reports the week ending the Sunday before.
	sunday := time.Date(2026, 7, 26, 23, 0, 0, 0, utc)
	start, end = previousReportWeek(sunday, utc)
	assert.Equal(t, time.Date(2026, 7, 13, 0, 0, 0, 0, utc), start)
	assert.Equal(t, time.Date(2026, 7, 19, 23, 59, 59, 0, utc), end)
}
