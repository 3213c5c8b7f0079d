package marts

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
)

func i64Ptr(i int64) *int64   { return &i }
func intPtr(i int) *int       { return &i }
func strPtr(s string) *string { return &s }

func factLap(driverID string, lap int, lapTimeMS *int64) model.FactLap {
	return model.FactLap{
		RaceID:    "2024_01_R",
		DriverID:  driverID,
		LapNumber: lap,
		LapTimeMS: lapTimeMS,
	}
}

func TestBuildGapTimeline(t *testing.T) {
	laps := []model.FactLap{
		factLap("drv_a", 1, i64Ptr(90000)),
		factLap("drv_a", 2, i64Ptr(91000)),
		factLap("drv_b", 1, i64Ptr(92000)),
		factLap("drv_b", 2, i64Ptr(90000)),
	}

	want := []model.GapTimelineRow{
		{RaceID: "2024_01_R", LapNumber: 1, LeaderDriverID: "drv_a",
			P2DriverID: "drv_b", GapP2ToLeaderMS: 2000},
		// cumulative: a=181000, b=182000
		{RaceID: "2024_01_R", LapNumber: 2, LeaderDriverID: "drv_a",
			P2DriverID: "drv_b", GapP2ToLeaderMS: 1000},
	}
	if diff := cmp.Diff(want, BuildGapTimeline(laps)); diff != "" {
		t.Errorf("gap timeline mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildGapTimelineSkipsThinLaps(t *testing.T) {
	laps := []model.FactLap{
		factLap("drv_a", 1, i64Ptr(90000)),
		factLap("drv_b", 1, nil),
		factLap("drv_a", 2, i64Ptr(90000)),
		factLap("drv_b", 2, i64Ptr(185000)),
	}

	rows := BuildGapTimeline(laps)
	require.Len(t, rows, 1, "laps with fewer than two timed drivers are skipped")
	assert.Equal(t, 2, rows[0].LapNumber)
	// b missed lap 1, so only lap 2 counts toward b's total
	assert.Equal(t, int64(5000), rows[0].GapP2ToLeaderMS)
}

func TestBuildPositionChart(t *testing.T) {
	lapA := factLap("drv_a", 1, nil)
	lapA.Position = intPtr(1)
	lapB := factLap("drv_b", 1, nil)

	results := []model.FactSessionResult{
		{RaceID: "2024_01_R", DriverID: "drv_a", TeamID: strPtr("team_x")},
	}

	rows := BuildPositionChart([]model.FactLap{lapA, lapB, lapA}, results)
	require.Len(t, rows, 2, "duplicate (driver, lap) rows collapse")

	assert.Equal(t, "drv_a", rows[0].DriverID)
	require.NotNil(t, rows[0].TeamID)
	assert.Equal(t, "team_x", *rows[0].TeamID)
	require.NotNil(t, rows[0].Position)
	assert.Equal(t, 1, *rows[0].Position)

	assert.Equal(t, "drv_b", rows[1].DriverID)
	assert.Nil(t, rows[1].TeamID, "driver without a result row keeps a null team")
}

func TestBuildStintSummary(t *testing.T) {
	mk := func(lap int, stint int, ms int64, pitIn bool, compound string) model.FactLap {
		l := factLap("drv_a", lap, i64Ptr(ms))
		l.Stint = intPtr(stint)
		l.IsPitInLap = pitIn
		if compound != "" {
			l.Compound = strPtr(compound)
		}
		return l
	}

	laps := []model.FactLap{
		mk(1, 1, 95000, false, "SOFT"),
		mk(2, 1, 93000, false, "SOFT"),
		mk(3, 1, 94000, true, "SOFT"),
		mk(4, 2, 92000, false, "HARD"),
		mk(5, 2, 91500, false, "HARD"),
	}

	rows := BuildStintSummary(laps)
	require.Len(t, rows, 2)

	s1 := rows[0]
	assert.Equal(t, 1, s1.Stint)
	assert.Equal(t, 1, s1.StartLap)
	assert.Equal(t, 3, s1.EndLap)
	assert.Equal(t, 3, s1.StintLaps)
	require.NotNil(t, s1.Compound)
	assert.Equal(t, "SOFT", *s1.Compound)
	require.NotNil(t, s1.MedianLapMS)
	assert.Equal(t, int64(94000), *s1.MedianLapMS)
	require.NotNil(t, s1.AvgLapMS)
	assert.Equal(t, int64(94000), *s1.AvgLapMS)
	require.NotNil(t, s1.PitLap)
	assert.Equal(t, 3, *s1.PitLap)

	s2 := rows[1]
	assert.Equal(t, 2, s2.Stint)
	require.NotNil(t, s2.MedianLapMS)
	assert.Equal(t, int64(91750), *s2.MedianLapMS)
	assert.Nil(t, s2.PitLap)
}

func TestBuildStintSummarySkipsStintlessLaps(t *testing.T) {
	rows := BuildStintSummary([]model.FactLap{factLap("drv_a", 1, i64Ptr(90000))})
	assert.Empty(t, rows)
}
