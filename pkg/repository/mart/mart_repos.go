package mart

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
)

// ReplaceAll swaps a race's mart rows in one go. Runs inside the
// caller's transaction.
//
//nolint:whitespace // can't make both editor and linter happy
func ReplaceAll(
	ctx context.Context, tx pgx.Tx, raceID string,
	gaps []model.GapTimelineRow,
	chart []model.PositionChartRow,
	stints []model.StintSummaryRow,
) error {
	for _, table := range []string{
		"marts.mart_gap_timeline", "marts.mart_position_chart",
		"marts.mart_stint_summary",
	} {
		if _, err := tx.Exec(ctx,
			"delete from "+table+" where race_id=$1", raceID); err != nil {
			return err
		}
	}

	for _, g := range gaps {
		_, err := tx.Exec(ctx, `
		insert into marts.mart_gap_timeline (
			race_id, lap_number, leader_driver_id, p2_driver_id,
			gap_p2_to_leader_ms
		) values ($1,$2,$3,$4,$5)`,
			g.RaceID, g.LapNumber, g.LeaderDriverID, g.P2DriverID,
			g.GapP2ToLeaderMS)
		if err != nil {
			return err
		}
	}
	for _, c := range chart {
		_, err := tx.Exec(ctx, `
		insert into marts.mart_position_chart (
			race_id, driver_id, lap_number, position, team_id
		) values ($1,$2,$3,$4,$5)`,
			c.RaceID, c.DriverID, c.LapNumber, c.Position, c.TeamID)
		if err != nil {
			return err
		}
	}
	for _, s := range stints {
		_, err := tx.Exec(ctx, `
		insert into marts.mart_stint_summary (
			race_id, driver_id, stint, start_lap, end_lap, compound,
			stint_laps, median_lap_ms, avg_lap_ms, pit_lap
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
			s.RaceID, s.DriverID, s.Stint, s.StartLap, s.EndLap, s.Compound,
			s.StintLaps, s.MedianLapMS, s.AvgLapMS, s.PitLap)
		if err != nil {
			return err
		}
	}
	return nil
}
