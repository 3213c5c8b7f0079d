package transform

import (
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racedecoder/f1-warehouse-go/pkg/ident"
	"github.com/racedecoder/f1-warehouse-go/pkg/model"
)

func strPtr(s string) *string   { return &s }
func intPtr(i int) *int         { return &i }
func i64Ptr(i int64) *int64     { return &i }
func f64Ptr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool      { return &b }

func raceMeta() RaceMeta {
	return RaceMeta{
		RaceID:    "2024_01_R",
		Season:    2024,
		Round:     1,
		EventName: "Bahrain Grand Prix",
	}
}

func stagingResult(code string) model.StagingResult {
	return model.StagingResult{
		RaceID:      "2024_01_R",
		Season:      2024,
		Round:       1,
		SessionType: "R",
		DriverCode:  strPtr(code),
	}
}

func stagingLap(code string, lap int, lapTimeMS *int64) model.StagingLap {
	return model.StagingLap{
		RaceID:      "2024_01_R",
		Season:      2024,
		Round:       1,
		SessionType: "R",
		DriverCode:  strPtr(code),
		LapNumber:   lap,
		LapTimeMS:   lapTimeMS,
	}
}

func TestBuildDriversMergesByCompleteness(t *testing.T) {
	full := stagingResult("VER")
	full.DriverNumber = strPtr("1")
	full.FirstName = strPtr("Max")
	full.LastName = strPtr("Verstappen")
	full.FullName = strPtr("Max Verstappen")

	sparse := stagingResult("VER")
	sparse.DriverNumber = strPtr("1")

	bundle := model.StagingBundle{
		Results: []model.StagingResult{sparse, full},
		// a driver appearing only in laps still gets a dimension row
		Laps: []model.StagingLap{stagingLap("HAM", 1, nil)},
	}

	curated := BuildCurated(raceMeta(), bundle)
	require.Len(t, curated.Drivers, 2)

	byCode := lo.KeyBy(curated.Drivers, func(d model.DimDriver) string { return d.DriverCode })
	ver := byCode["VER"]
	require.NotNil(t, ver.FullName, "most complete candidate wins")
	assert.Equal(t, "Max Verstappen", *ver.FullName)
	assert.Equal(t, ident.DriverID("VER"), ver.DriverID)

	ham := byCode["HAM"]
	assert.Equal(t, "HAM", ham.DriverCode)
	assert.Nil(t, ham.FullName)
}

func TestBuildTeamsDedups(t *testing.T) {
	r1 := stagingResult("VER")
	r1.TeamName = strPtr("Red Bull Racing")
	r1.TeamColor = strPtr("3671C6")
	r2 := stagingResult("PER")
	r2.TeamName = strPtr("Red Bull Racing")
	r3 := stagingResult("HAM")
	r3.TeamName = strPtr("Mercedes")

	curated := BuildCurated(raceMeta(), model.StagingBundle{
		Results: []model.StagingResult{r1, r2, r3},
	})
	require.Len(t, curated.Teams, 2)
	assert.Equal(t, "Mercedes", curated.Teams[0].TeamName)
	assert.Equal(t, "Red Bull Racing", curated.Teams[1].TeamName)

	require.Len(t, curated.DriverTeamSeason, 3)
	assert.Equal(t, 2024, curated.DriverTeamSeason[0].Season)
}

func TestBuildFactLapsDropsCodelessAndDedups(t *testing.T) {
	noCode := model.StagingLap{RaceID: "2024_01_R", LapNumber: 1}
	dup1 := stagingLap("VER", 1, i64Ptr(95000))
	dup2 := stagingLap("VER", 1, i64Ptr(96000))

	curated := BuildCurated(raceMeta(), model.StagingBundle{
		Laps: []model.StagingLap{noCode, dup1, dup2},
	})
	require.Len(t, curated.Laps, 1)
	assert.Equal(t, int64(95000), *curated.Laps[0].LapTimeMS, "first occurrence wins")
}

func TestBuildFactResultsGapToWinner(t *testing.T) {
	winner := stagingResult("VER")
	winner.FinishPosition = intPtr(1)
	winner.RaceTimeMS = i64Ptr(5504742)

	second := stagingResult("NOR")
	second.FinishPosition = intPtr(2)
	second.RaceTimeMS = i64Ptr(5527193)

	dnf := stagingResult("SAR")
	dnf.Status = strPtr("Retired")

	curated := BuildCurated(raceMeta(), model.StagingBundle{
		Results: []model.StagingResult{winner, second, dnf},
	})
	require.Len(t, curated.SessionResults, 3)

	byID := lo.KeyBy(curated.SessionResults,
		func(r model.FactSessionResult) string { return r.DriverID })

	verRow := byID[ident.DriverID("VER")]
	require.NotNil(t, verRow.GapToWinnerMS)
	assert.Equal(t, int64(0), *verRow.GapToWinnerMS)

	norRow := byID[ident.DriverID("NOR")]
	require.NotNil(t, norRow.GapToWinnerMS)
	assert.Equal(t, int64(22451), *norRow.GapToWinnerMS)

	sarRow := byID[ident.DriverID("SAR")]
	assert.Nil(t, sarRow.GapToWinnerMS, "no race time means no gap")
}

func TestBuildRaceControlOrsFlagsPerLap(t *testing.T) {
	ver := stagingLap("VER", 3, nil)
	ver.TrackStatusFlags = strPtr("1")
	ham := stagingLap("HAM", 3, nil)
	ham.TrackStatusFlags = strPtr("4")
	lap4 := stagingLap("VER", 4, nil)
	lap4.TrackStatusFlags = strPtr("67")

	curated := BuildCurated(raceMeta(), model.StagingBundle{
		Laps: []model.StagingLap{ver, ham, lap4},
	})
	require.Len(t, curated.RaceControl, 2)

	lap3Row := curated.RaceControl[0]
	assert.Equal(t, 3, lap3Row.LapNumber)
	assert.True(t, lap3Row.IsSC, "one driver under SC marks the lap")
	assert.False(t, lap3Row.IsVSC)

	lap4Row := curated.RaceControl[1]
	assert.True(t, lap4Row.IsVSC)
	assert.False(t, lap4Row.IsSC)
}

func TestBuildRaceControlIgnoresDriverlessLaps(t *testing.T) {
	ver := stagingLap("VER", 1, nil)
	ver.TrackStatusFlags = strPtr("1")
	ghost := stagingLap("", 2, nil)
	ghost.DriverCode = nil
	ghost.TrackStatusFlags = strPtr("4")

	curated := BuildCurated(raceMeta(), model.StagingBundle{
		Laps: []model.StagingLap{ver, ghost},
	})

	// lap 2 exists only on a row that never makes it into fact_lap
	require.Len(t, curated.RaceControl, 1)
	assert.Equal(t, 1, curated.RaceControl[0].LapNumber)
}

func TestBuildWeatherMinutesAggregates(t *testing.T) {
	minute := time.Date(2024, 3, 2, 15, 1, 0, 0, time.UTC)
	samples := []model.StagingWeather{
		{RaceID: "2024_01_R", TimestampUTC: minute.Add(10 * time.Second),
			AirTempC: f64Ptr(28.0), Rainfall: boolPtr(false)},
		{RaceID: "2024_01_R", TimestampUTC: minute.Add(40 * time.Second),
			AirTempC: f64Ptr(30.0), Rainfall: boolPtr(true)},
		{RaceID: "2024_01_R", TimestampUTC: minute.Add(70 * time.Second),
			AirTempC: f64Ptr(31.0)},
	}

	curated := BuildCurated(raceMeta(), model.StagingBundle{Weather: samples})
	require.Len(t, curated.WeatherMinutes, 2)

	first := curated.WeatherMinutes[0]
	assert.Equal(t, minute, first.TimestampUTC)
	require.NotNil(t, first.AirTempC)
	assert.Equal(t, 29.0, *first.AirTempC)
	require.NotNil(t, first.Rainfall)
	assert.True(t, *first.Rainfall, "any rainy sample marks the minute")

	second := curated.WeatherMinutes[1]
	assert.Equal(t, minute.Add(time.Minute), second.TimestampUTC)
	assert.Nil(t, second.Rainfall)
}
