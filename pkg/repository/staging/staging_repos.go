package staging

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
)

// Replace swaps a race's staging snapshot: delete whatever the race
// had, then bulk-copy the new rows. Runs inside the caller's
// transaction so readers never see a partially replaced race.
func Replace(ctx context.Context, tx pgx.Tx, raceID string, bundle model.StagingBundle) error {
	for _, table := range []string{
		"staging.session_laps", "staging.session_results", "staging.session_weather",
	} {
		if _, err := tx.Exec(ctx,
			"delete from "+table+" where race_id=$1", raceID); err != nil {
			return err
		}
	}
	if err := copyLaps(ctx, tx, bundle.Laps); err != nil {
		return err
	}
	if err := copyResults(ctx, tx, bundle.Results); err != nil {
		return err
	}
	return copyWeather(ctx, tx, bundle.Weather)
}

func copyLaps(ctx context.Context, tx pgx.Tx, laps []model.StagingLap) error {
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"staging", "session_laps"},
		[]string{
			"run_id", "race_id", "season", "round", "session_type",
			"driver_code", "driver_number", "lap_number", "position",
			"lap_time_ms", "stint", "compound", "tyre_life_laps",
			"fresh_tyre", "is_accurate", "is_pit_in_lap", "is_pit_out_lap",
			"pit_in_time_ms", "pit_out_time_ms", "track_status_flags",
			"sector1_ms", "sector2_ms", "sector3_ms",
		},
		pgx.CopyFromSlice(len(laps), func(i int) ([]any, error) {
			l := laps[i]
			return []any{
				l.RunID, l.RaceID, l.Season, l.Round, l.SessionType,
				l.DriverCode, l.DriverNumber, l.LapNumber, l.Position,
				l.LapTimeMS, l.Stint, l.Compound, l.TyreLifeLaps,
				l.FreshTyre, l.IsAccurate, l.IsPitInLap, l.IsPitOutLap,
				l.PitInTimeMS, l.PitOutTimeMS, l.TrackStatusFlags,
				l.Sector1MS, l.Sector2MS, l.Sector3MS,
			}, nil
		}))
	return err
}

func copyResults(ctx context.Context, tx pgx.Tx, results []model.StagingResult) error {
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"staging", "session_results"},
		[]string{
			"run_id", "race_id", "season", "round", "session_type",
			"driver_code", "driver_number", "first_name", "last_name",
			"full_name", "team_name", "team_color", "grid_position",
			"finish_position", "classified_position", "status", "points",
			"race_time_ms",
		},
		pgx.CopyFromSlice(len(results), func(i int) ([]any, error) {
			r := results[i]
			return []any{
				r.RunID, r.RaceID, r.Season, r.Round, r.SessionType,
				r.DriverCode, r.DriverNumber, r.FirstName, r.LastName,
				r.FullName, r.TeamName, r.TeamColor, r.GridPosition,
				r.FinishPosition, r.ClassifiedPosition, r.Status, r.Points,
				r.RaceTimeMS,
			}, nil
		}))
	return err
}

func copyWeather(ctx context.Context, tx pgx.Tx, weather []model.StagingWeather) error {
	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"staging", "session_weather"},
		[]string{
			"run_id", "race_id", "timestamp_utc", "air_temp_c",
			"track_temp_c", "humidity_pct", "pressure_mbar", "rainfall",
			"wind_dir_deg", "wind_speed_ms",
		},
		pgx.CopyFromSlice(len(weather), func(i int) ([]any, error) {
			w := weather[i]
			return []any{
				w.RunID, w.RaceID, w.TimestampUTC, w.AirTempC,
				w.TrackTempC, w.HumidityPct, w.PressureMbar, w.Rainfall,
				w.WindDirDeg, w.WindSpeedMS,
			}, nil
		}))
	return err
}
