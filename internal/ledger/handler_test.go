package ledger

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidKind(t *testing.T) {
	require.True(t, ValidKind(KindIncome))
	require.True(t, ValidKind(KindExpense))
	require.False(t, ValidKind(Kind("transfer")))
	require.False(t, ValidKind(Kind("")))
}

func TestParsePeriodDefaultsToCurrentMonth(t *testing.T) {
	r := httptest.NewRequest("GET", "/transactions/summary", nil)
	from, to := parsePeriod(r)

	now := time.Now().UTC()
	require.Equal(t, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, from.AddDate(0, 1, 0), to)
}

func TestParsePeriodAcceptsDates(t *testing.T) {
	r := httptest.NewRequest("GET", "/transactions?from=2026-01-01&to=2026-02-01", nil)
	from, to := parsePeriod(r)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), from)
	require.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), to)
}

func TestParsePeriodAcceptsTimestamps(t *testing.T) {
	r := httptest.NewRequest("GET", "/transactions?from=2026-03-01T12:00:00Z", nil)
	from, _ := parsePeriod(r)
	require.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), from)
}

func TestParsePeriodIgnoresGarbage(t *testing.T) {
	r := httptest.NewRequest("GET", "/transactions?from=yesterday", nil)
	from, _ := parsePeriod(r)

	now := time.Now().UTC()
	require.Equal(t, time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC), from)
}
