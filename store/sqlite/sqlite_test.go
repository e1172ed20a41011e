package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetRun(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	run := sqlite.RunRecord{
		ID:                "run-1",
		OffenderReference: "A1234BC",
		RequestJSON:       `{"sentences":[]}`,
		ResultJSON:        `{"dates":{}}`,
		CreatedAt:         time.Date(2025, 1, 2, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveRun(ctx, run))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.OffenderReference, got.OffenderReference)
	assert.Equal(t, run.RequestJSON, got.RequestJSON)
	assert.Equal(t, run.ResultJSON, got.ResultJSON)
	assert.True(t, got.CreatedAt.Equal(run.CreatedAt))
}

func TestGetRun_Missing(t *testing.T) {
	s := newStore(t)

	got, err := s.GetRun(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveRun_AppendOnly(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	run := sqlite.RunRecord{ID: "run-1", OffenderReference: "A1234BC", RequestJSON: "{}", ResultJSON: "{}"}
	require.NoError(t, s.SaveRun(ctx, run))

	// Same ID again is a conflict, never an overwrite.
	err := s.SaveRun(ctx, run)
	assert.Error(t, err)
}

func TestListRuns(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, ref := range []string{"A1234BC", "A1234BC", "Z9999XX"} {
		require.NoError(t, s.SaveRun(ctx, sqlite.RunRecord{
			ID:                []string{"run-1", "run-2", "run-3"}[i],
			OffenderReference: ref,
			RequestJSON:       "{}",
			ResultJSON:        "{}",
			CreatedAt:         base.Add(time.Duration(i) * time.Hour),
		}))
	}

	// Newest first, filtered by offender.
	runs, err := s.ListRuns(ctx, "A1234BC", 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)

	// Empty reference lists across offenders; limit applies.
	runs, err = s.ListRuns(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
}

func TestBankHolidays(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	boxing := calc.NewDate(2024, time.December, 26)
	christmas := calc.NewDate(2024, time.December, 25)
	require.NoError(t, s.SaveBankHoliday(ctx, boxing, "Boxing Day"))
	require.NoError(t, s.SaveBankHoliday(ctx, christmas, "Christmas Day"))
	// Upsert on the same date is not an error.
	require.NoError(t, s.SaveBankHoliday(ctx, christmas, "Christmas"))

	dates, err := s.LoadBankHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 2)
	assert.True(t, dates[0].Equal(christmas))
	assert.True(t, dates[1].Equal(boxing))

	require.NoError(t, s.DeleteBankHoliday(ctx, boxing))
	dates, err = s.LoadBankHolidays(ctx)
	require.NoError(t, err)
	require.Len(t, dates, 1)
}
