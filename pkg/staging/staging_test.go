package staging

import (
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/racedecoder/f1-warehouse-go/pkg/upstream"
)

func sessionStart() *time.Time {
	t := time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)
	return &t
}

func sampleExtract() *upstream.SessionExtract {
	return &upstream.SessionExtract{
		Season:          2024,
		Round:           1,
		SessionType:     "R",
		RaceID:          "2024_01_R",
		EventName:       "Bahrain Grand Prix",
		RaceDatetimeUTC: sessionStart(),
	}
}

func TestBuildLaps(t *testing.T) {
	extract := sampleExtract()
	extract.Laps = []map[string]any{
		{
			"Driver": "VER", "DriverNumber": "1", "LapNumber": int64(1),
			"Position": int64(1), "LapTime": "0 days 00:01:35.123000",
			"Stint": 1.0, "Compound": "SOFT", "TyreLife": 1.0,
			"FreshTyre": true, "IsAccurate": true,
			"PitInTime": nil, "PitOutTime": "0 days 00:00:20.500000",
			"TrackStatus": "1",
			"Sector1Time": "0 days 00:00:30.100000",
		},
		{
			// no lap number: dropped
			"Driver": "VER", "LapTime": "0 days 00:01:36.000000",
		},
		{
			"Driver": "HAM", "DriverNumber": "44", "LapNumber": int64(2),
			"LapTime": "NaT", "PitInTime": "0 days 00:55:01.000000",
		},
	}

	bundle := BuildBundle(extract, uuid.Must(uuid.NewV4()))
	require.Len(t, bundle.Laps, 2)

	ver := bundle.Laps[0]
	assert.Equal(t, "2024_01_R", ver.RaceID)
	assert.Equal(t, 1, ver.LapNumber)
	require.NotNil(t, ver.DriverCode)
	assert.Equal(t, "VER", *ver.DriverCode)
	require.NotNil(t, ver.LapTimeMS)
	assert.Equal(t, int64(95123), *ver.LapTimeMS)
	assert.False(t, ver.IsPitInLap)
	assert.True(t, ver.IsPitOutLap)
	require.NotNil(t, ver.Sector1MS)
	assert.Equal(t, int64(30100), *ver.Sector1MS)

	ham := bundle.Laps[1]
	assert.Nil(t, ham.LapTimeMS, "NaT lap time becomes null")
	assert.True(t, ham.IsPitInLap)
	assert.False(t, ham.IsPitOutLap)
}

func TestBuildResults(t *testing.T) {
	extract := sampleExtract()
	extract.Results = []map[string]any{
		{
			"Abbreviation": "VER", "DriverNumber": "1",
			"FirstName": "Max", "LastName": "Verstappen",
			"FullName": "Max Verstappen", "TeamName": "Red Bull Racing",
			"TeamColor": "3671C6", "GridPosition": 1.0, "Position": 1.0,
			"ClassifiedPosition": "1", "Status": "Finished",
			"Points": 25.0, "Time": "0 days 01:31:44.742000",
		},
		{
			"Abbreviation": "SAR", "Position": "nan", "Status": "Retired",
		},
	}

	bundle := BuildBundle(extract, uuid.Must(uuid.NewV4()))
	require.Len(t, bundle.Results, 2)

	ver := bundle.Results[0]
	require.NotNil(t, ver.FinishPosition)
	assert.Equal(t, 1, *ver.FinishPosition)
	require.NotNil(t, ver.RaceTimeMS)
	assert.Equal(t, int64(5504742), *ver.RaceTimeMS)
	require.NotNil(t, ver.Points)
	assert.Equal(t, 25.0, *ver.Points)

	sar := bundle.Results[1]
	assert.Nil(t, sar.FinishPosition)
	require.NotNil(t, sar.Status)
	assert.Equal(t, "Retired", *sar.Status)
}

func TestBuildWeatherAnchorsOffsets(t *testing.T) {
	extract := sampleExtract()
	extract.Weather = []map[string]any{
		{"Time": "0 days 00:01:00", "AirTemp": 28.5, "Rainfall": false},
		{"Time": "2024-03-02T15:05:00Z", "AirTemp": 29.0},
		{"Time": "garbage", "AirTemp": 30.0},
	}

	bundle := BuildBundle(extract, uuid.Must(uuid.NewV4()))
	require.Len(t, bundle.Weather, 2, "unresolvable timestamps are dropped")

	assert.Equal(t,
		time.Date(2024, 3, 2, 15, 1, 0, 0, time.UTC), bundle.Weather[0].TimestampUTC)
	assert.Equal(t,
		time.Date(2024, 3, 2, 15, 5, 0, 0, time.UTC), bundle.Weather[1].TimestampUTC)
}

func TestBuildWeatherNoAnchorDropsOffsets(t *testing.T) {
	extract := sampleExtract()
	extract.RaceDatetimeUTC = nil
	extract.Weather = []map[string]any{
		{"Time": "0 days 00:01:00", "AirTemp": 28.5},
	}

	bundle := BuildBundle(extract, uuid.Must(uuid.NewV4()))
	assert.Empty(t, bundle.Weather)
}
