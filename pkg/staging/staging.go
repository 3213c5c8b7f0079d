// Package staging normalizes the loosely typed extraction payload into
// typed staging rows. This is the only layer that knows the upstream
// field names; everything downstream works on the typed shapes.
package staging

import (
	"time"

	"github.com/gofrs/uuid/v5"

	"github.com/racedecoder/f1-warehouse-go/pkg/coerce"
	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/pkg/upstream"
)

// BuildBundle converts one session extract into staging rows. Rows
// missing their identifying fields (lap number, weather timestamp) are
// dropped rather than loaded half-empty.
func BuildBundle(extract *upstream.SessionExtract, runID uuid.UUID) model.StagingBundle {
	return model.StagingBundle{
		Laps:    buildLaps(extract, runID),
		Results: buildResults(extract, runID),
		Weather: buildWeather(extract, runID),
	}
}

func buildLaps(extract *upstream.SessionExtract, runID uuid.UUID) []model.StagingLap {
	laps := make([]model.StagingLap, 0, len(extract.Laps))
	for _, row := range extract.Laps {
		lapNumber := coerce.Int(row["LapNumber"])
		if lapNumber == nil {
			continue
		}
		pitIn := coerce.DurationMS(row["PitInTime"])
		pitOut := coerce.DurationMS(row["PitOutTime"])
		laps = append(laps, model.StagingLap{
			RunID:            runID,
			RaceID:           extract.RaceID,
			Season:           extract.Season,
			Round:            extract.Round,
			SessionType:      extract.SessionType,
			DriverCode:       coerce.String(row["Driver"]),
			DriverNumber:     coerce.String(row["DriverNumber"]),
			LapNumber:        *lapNumber,
			Position:         coerce.Int(row["Position"]),
			LapTimeMS:        coerce.DurationMS(row["LapTime"]),
			Stint:            coerce.Int(row["Stint"]),
			Compound:         coerce.String(row["Compound"]),
			TyreLifeLaps:     coerce.Int(row["TyreLife"]),
			FreshTyre:        coerce.Bool(row["FreshTyre"]),
			IsAccurate:       coerce.Bool(row["IsAccurate"]),
			IsPitInLap:       pitIn != nil,
			IsPitOutLap:      pitOut != nil,
			PitInTimeMS:      pitIn,
			PitOutTimeMS:     pitOut,
			TrackStatusFlags: coerce.String(row["TrackStatus"]),
			Sector1MS:        coerce.DurationMS(row["Sector1Time"]),
			Sector2MS:        coerce.DurationMS(row["Sector2Time"]),
			Sector3MS:        coerce.DurationMS(row["Sector3Time"]),
		})
	}
	return laps
}

func buildResults(extract *upstream.SessionExtract, runID uuid.UUID) []model.StagingResult {
	results := make([]model.StagingResult, 0, len(extract.Results))
	for _, row := range extract.Results {
		results = append(results, model.StagingResult{
			RunID:              runID,
			RaceID:             extract.RaceID,
			Season:             extract.Season,
			Round:              extract.Round,
			SessionType:        extract.SessionType,
			DriverCode:         coerce.String(row["Abbreviation"]),
			DriverNumber:       coerce.String(row["DriverNumber"]),
			FirstName:          coerce.String(row["FirstName"]),
			LastName:           coerce.String(row["LastName"]),
			FullName:           coerce.String(row["FullName"]),
			TeamName:           coerce.String(row["TeamName"]),
			TeamColor:          coerce.String(row["TeamColor"]),
			GridPosition:       coerce.Int(row["GridPosition"]),
			FinishPosition:     coerce.Int(row["Position"]),
			ClassifiedPosition: coerce.String(row["ClassifiedPosition"]),
			Status:             coerce.String(row["Status"]),
			Points:             coerce.Float(row["Points"]),
			RaceTimeMS:         coerce.DurationMS(row["Time"]),
		})
	}
	return results
}

// buildWeather resolves each sample's timestamp: an absolute timestamp
// is taken as-is, a session offset is anchored to the session start.
// Samples whose timestamp cannot be resolved are dropped.
func buildWeather(extract *upstream.SessionExtract, runID uuid.UUID) []model.StagingWeather {
	weather := make([]model.StagingWeather, 0, len(extract.Weather))
	for _, row := range extract.Weather {
		ts := resolveTimestamp(row["Time"], extract.RaceDatetimeUTC)
		if ts == nil {
			continue
		}
		weather = append(weather, model.StagingWeather{
			RunID:        runID,
			RaceID:       extract.RaceID,
			TimestampUTC: *ts,
			AirTempC:     coerce.Float(row["AirTemp"]),
			TrackTempC:   coerce.Float(row["TrackTemp"]),
			HumidityPct:  coerce.Float(row["Humidity"]),
			PressureMbar: coerce.Float(row["Pressure"]),
			Rainfall:     coerce.Bool(row["Rainfall"]),
			WindDirDeg:   coerce.Float(row["WindDirection"]),
			WindSpeedMS:  coerce.Float(row["WindSpeed"]),
		})
	}
	return weather
}

func resolveTimestamp(v any, anchor *time.Time) *time.Time {
	if ts := coerce.TimeUTC(v); ts != nil {
		return ts
	}
	if anchor == nil {
		return nil
	}
	offset := coerce.DurationMS(v)
	if offset == nil {
		return nil
	}
	ts := anchor.Add(time.Duration(*offset) * time.Millisecond).UTC()
	return &ts
}
