package curated

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/pkg/repository"
)

// UpsertBundle loads one race's dimensional bundle. Dimensions go
// first so the fact foreign keys resolve; dim_driver_team_season is
// append-only and never updated once recorded. Runs inside the
// caller's transaction.
func UpsertBundle(ctx context.Context, tx pgx.Tx, bundle model.CuratedBundle) error {
	if err := upsertRace(ctx, tx, bundle.Race); err != nil {
		return err
	}
	for _, d := range bundle.Drivers {
		if err := upsertDriver(ctx, tx, d); err != nil {
			return err
		}
	}
	for _, t := range bundle.Teams {
		if err := upsertTeam(ctx, tx, t); err != nil {
			return err
		}
	}
	for _, dts := range bundle.DriverTeamSeason {
		_, err := tx.Exec(ctx, `
		insert into curated.dim_driver_team_season (season, driver_id, team_id)
		values ($1,$2,$3)
		on conflict (season, driver_id, team_id) do nothing`,
			dts.Season, dts.DriverID, dts.TeamID)
		if err != nil {
			return err
		}
	}
	for _, l := range bundle.Laps {
		if err := upsertLap(ctx, tx, l); err != nil {
			return err
		}
	}
	for _, r := range bundle.SessionResults {
		if err := upsertResult(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, rc := range bundle.RaceControl {
		if err := upsertRaceControl(ctx, tx, rc); err != nil {
			return err
		}
	}
	for _, w := range bundle.WeatherMinutes {
		if err := upsertWeatherMinute(ctx, tx, w); err != nil {
			return err
		}
	}
	return nil
}

func upsertRace(ctx context.Context, tx pgx.Tx, r model.DimRace) error {
	_, err := tx.Exec(ctx, `
	insert into curated.dim_race (
		race_id, season, round, event_name, circuit, country, race_date_utc
	) values ($1,$2,$3,$4,$5,$6,$7)
	on conflict (race_id) do update set
		season=excluded.season, round=excluded.round,
		event_name=excluded.event_name, circuit=excluded.circuit,
		country=excluded.country, race_date_utc=excluded.race_date_utc`,
		r.RaceID, r.Season, r.Round, r.EventName, r.Circuit, r.Country,
		r.RaceDateUTC)
	return err
}

func upsertDriver(ctx context.Context, tx pgx.Tx, d model.DimDriver) error {
	_, err := tx.Exec(ctx, `
	insert into curated.dim_driver (
		driver_id, driver_code, driver_number, first_name, last_name, full_name
	) values ($1,$2,$3,$4,$5,$6)
	on conflict (driver_id) do update set
		driver_code=excluded.driver_code,
		driver_number=coalesce(excluded.driver_number, curated.dim_driver.driver_number),
		first_name=coalesce(excluded.first_name, curated.dim_driver.first_name),
		last_name=coalesce(excluded.last_name, curated.dim_driver.last_name),
		full_name=coalesce(excluded.full_name, curated.dim_driver.full_name)`,
		d.DriverID, d.DriverCode, d.DriverNumber, d.FirstName, d.LastName,
		d.FullName)
	return err
}

func upsertTeam(ctx context.Context, tx pgx.Tx, t model.DimTeam) error {
	_, err := tx.Exec(ctx, `
	insert into curated.dim_team (team_id, team_name, team_color)
	values ($1,$2,$3)
	on conflict (team_id) do update set
		team_name=excluded.team_name,
		team_color=coalesce(excluded.team_color, curated.dim_team.team_color)`,
		t.TeamID, t.TeamName, t.TeamColor)
	return err
}

func upsertLap(ctx context.Context, tx pgx.Tx, l model.FactLap) error {
	_, err := tx.Exec(ctx, `
	insert into curated.fact_lap (
		race_id, driver_id, lap_number, position, lap_time_ms, stint,
		compound, tyre_life_laps, fresh_tyre, is_accurate, is_pit_in_lap,
		is_pit_out_lap, pit_in_time_ms, pit_out_time_ms, track_status_flags,
		sector1_ms, sector2_ms, sector3_ms
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	on conflict (race_id, driver_id, lap_number) do update set
		position=excluded.position, lap_time_ms=excluded.lap_time_ms,
		stint=excluded.stint, compound=excluded.compound,
		tyre_life_laps=excluded.tyre_life_laps, fresh_tyre=excluded.fresh_tyre,
		is_accurate=excluded.is_accurate, is_pit_in_lap=excluded.is_pit_in_lap,
		is_pit_out_lap=excluded.is_pit_out_lap,
		pit_in_time_ms=excluded.pit_in_time_ms,
		pit_out_time_ms=excluded.pit_out_time_ms,
		track_status_flags=excluded.track_status_flags,
		sector1_ms=excluded.sector1_ms, sector2_ms=excluded.sector2_ms,
		sector3_ms=excluded.sector3_ms`,
		l.RaceID, l.DriverID, l.LapNumber, l.Position, l.LapTimeMS, l.Stint,
		l.Compound, l.TyreLifeLaps, l.FreshTyre, l.IsAccurate, l.IsPitInLap,
		l.IsPitOutLap, l.PitInTimeMS, l.PitOutTimeMS, l.TrackStatusFlags,
		l.Sector1MS, l.Sector2MS, l.Sector3MS)
	return err
}

func upsertResult(ctx context.Context, tx pgx.Tx, r model.FactSessionResult) error {
	_, err := tx.Exec(ctx, `
	insert into curated.fact_session_results (
		race_id, driver_id, team_id, grid_position, finish_position,
		classified_position, status, points, race_time_ms, gap_to_winner_ms
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	on conflict (race_id, driver_id) do update set
		team_id=excluded.team_id, grid_position=excluded.grid_position,
		finish_position=excluded.finish_position,
		classified_position=excluded.classified_position,
		status=excluded.status, points=excluded.points,
		race_time_ms=excluded.race_time_ms,
		gap_to_winner_ms=excluded.gap_to_winner_ms`,
		r.RaceID, r.DriverID, r.TeamID, r.GridPosition, r.FinishPosition,
		r.ClassifiedPosition, r.Status, r.Points, r.RaceTimeMS,
		r.GapToWinnerMS)
	return err
}

func upsertRaceControl(ctx context.Context, tx pgx.Tx, rc model.FactRaceControl) error {
	_, err := tx.Exec(ctx, `
	insert into curated.fact_race_control (
		race_id, lap_number, is_sc, is_vsc, is_red_flag, is_yellow_flag
	) values ($1,$2,$3,$4,$5,$6)
	on conflict (race_id, lap_number) do update set
		is_sc=excluded.is_sc, is_vsc=excluded.is_vsc,
		is_red_flag=excluded.is_red_flag,
		is_yellow_flag=excluded.is_yellow_flag`,
		rc.RaceID, rc.LapNumber, rc.IsSC, rc.IsVSC, rc.IsRedFlag,
		rc.IsYellowFlag)
	return err
}

func upsertWeatherMinute(ctx context.Context, tx pgx.Tx, w model.FactWeatherMinute) error {
	_, err := tx.Exec(ctx, `
	insert into curated.fact_weather_minute (
		race_id, timestamp_utc, air_temp_c, track_temp_c, humidity_pct,
		pressure_mbar, rainfall, wind_dir_deg, wind_speed_ms
	) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	on conflict (race_id, timestamp_utc) do update set
		air_temp_c=excluded.air_temp_c, track_temp_c=excluded.track_temp_c,
		humidity_pct=excluded.humidity_pct,
		pressure_mbar=excluded.pressure_mbar, rainfall=excluded.rainfall,
		wind_dir_deg=excluded.wind_dir_deg,
		wind_speed_ms=excluded.wind_speed_ms`,
		w.RaceID, w.TimestampUTC, w.AirTempC, w.TrackTempC, w.HumidityPct,
		w.PressureMbar, w.Rainfall, w.WindDirDeg, w.WindSpeedMS)
	return err
}

// LoadFactLaps reads a race's lap facts back, ordered by driver and lap.
func LoadFactLaps(ctx context.Context, conn repository.Querier, raceID string) (
	[]model.FactLap, error,
) {
	rows, err := conn.Query(ctx, `
	select race_id, driver_id, lap_number, position, lap_time_ms, stint,
		compound, tyre_life_laps, fresh_tyre, is_accurate, is_pit_in_lap,
		is_pit_out_lap, pit_in_time_ms, pit_out_time_ms, track_status_flags,
		sector1_ms, sector2_ms, sector3_ms
	from curated.fact_lap where race_id=$1
	order by driver_id, lap_number`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.FactLap, 0)
	for rows.Next() {
		var l model.FactLap
		if err := rows.Scan(
			&l.RaceID, &l.DriverID, &l.LapNumber, &l.Position, &l.LapTimeMS,
			&l.Stint, &l.Compound, &l.TyreLifeLaps, &l.FreshTyre,
			&l.IsAccurate, &l.IsPitInLap, &l.IsPitOutLap, &l.PitInTimeMS,
			&l.PitOutTimeMS, &l.TrackStatusFlags, &l.Sector1MS, &l.Sector2MS,
			&l.Sector3MS,
		); err != nil {
			return nil, err
		}
		ret = append(ret, l)
	}
	return ret, rows.Err()
}

func LoadFactResults(ctx context.Context, conn repository.Querier, raceID string) (
	[]model.FactSessionResult, error,
) {
	rows, err := conn.Query(ctx, `
	select race_id, driver_id, team_id, grid_position, finish_position,
		classified_position, status, points, race_time_ms, gap_to_winner_ms
	from curated.fact_session_results where race_id=$1
	order by driver_id`, raceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.FactSessionResult, 0)
	for rows.Next() {
		var r model.FactSessionResult
		if err := rows.Scan(
			&r.RaceID, &r.DriverID, &r.TeamID, &r.GridPosition,
			&r.FinishPosition, &r.ClassifiedPosition, &r.Status, &r.Points,
			&r.RaceTimeMS, &r.GapToWinnerMS,
		); err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, rows.Err()
}
