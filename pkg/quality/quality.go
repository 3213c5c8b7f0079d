// Package quality runs the post-load verification checks and records
// their verdicts. A failed check does not roll back loaded data; it
// only decides the run's terminal status.
package quality

import (
	"context"

	"github.com/gofrs/uuid/v5"
	"github.com/ohler55/ojg/oj"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/pkg/repository"
)

const (
	StatusPass = "pass"
	StatusFail = "fail"
)

const (
	minLapRowcount = 100
	maxLapNumber   = 120
)

type check struct {
	name string
	run  func(ctx context.Context, conn repository.Querier, raceID string) (
		bool, map[string]any, error)
}

// ordered: verdict rows are written in registry order
var registry = []check{
	{name: "fact_lap_rowcount", run: lapRowcount},
	{name: "fact_lap_pk_duplicates", run: lapDuplicates},
	{name: "lap_number_sanity", run: lapNumberSanity},
	{name: "winner_exists", run: winnerExists},
}

// RunChecks executes all checks against one race and persists every
// verdict under the given run. The overall result is true only when
// all checks pass.
//
//nolint:whitespace // can't make both editor and linter happy
func RunChecks(
	ctx context.Context, conn repository.Querier, runID uuid.UUID, raceID string,
) (bool, []model.QualityCheckResult, error) {
	passed := true
	results := make([]model.QualityCheckResult, 0, len(registry))
	for _, c := range registry {
		ok, details, err := c.run(ctx, conn, raceID)
		if err != nil {
			return false, nil, err
		}
		status := StatusPass
		if !ok {
			status = StatusFail
			passed = false
		}
		result := model.QualityCheckResult{
			CheckName: c.name,
			Status:    status,
			Details:   details,
		}
		if err := persist(ctx, conn, runID, result); err != nil {
			return false, nil, err
		}
		results = append(results, result)
	}
	return passed, results, nil
}

func persist(
	ctx context.Context, conn repository.Querier,
	runID uuid.UUID, result model.QualityCheckResult,
) error {
	detailsJSON, err := oj.Marshal(result.Details)
	if err != nil {
		return err
	}
	_, err = conn.Exec(ctx, `
	insert into metadata.data_quality_checks (run_id, check_name, status, details)
	values ($1,$2,$3,$4)`,
		runID, result.CheckName, result.Status, detailsJSON)
	return err
}

// lapRowcount expects a plausible race to have well over 100 lap rows.
func lapRowcount(ctx context.Context, conn repository.Querier, raceID string) (
	bool, map[string]any, error,
) {
	var count int
	row := conn.QueryRow(ctx,
		"select count(*) from curated.fact_lap where race_id=$1", raceID)
	if err := row.Scan(&count); err != nil {
		return false, nil, err
	}
	details := map[string]any{"rowcount": count, "threshold": minLapRowcount}
	return count > minLapRowcount, details, nil
}

func lapDuplicates(ctx context.Context, conn repository.Querier, raceID string) (
	bool, map[string]any, error,
) {
	var count int
	row := conn.QueryRow(ctx, `
	select count(*) from (
		select driver_id, lap_number from curated.fact_lap
		where race_id=$1
		group by driver_id, lap_number
		having count(*) > 1
	) dups`, raceID)
	if err := row.Scan(&count); err != nil {
		return false, nil, err
	}
	return count == 0, map[string]any{"duplicate_keys": count}, nil
}

// lapNumberSanity checks the observed lap number span; an empty lap
// set fails the check rather than passing vacuously.
func lapNumberSanity(ctx context.Context, conn repository.Querier, raceID string) (
	bool, map[string]any, error,
) {
	var minLap, maxLap *int
	row := conn.QueryRow(ctx, `
	select min(lap_number), max(lap_number) from curated.fact_lap
	where race_id=$1`, raceID)
	if err := row.Scan(&minLap, &maxLap); err != nil {
		return false, nil, err
	}
	details := map[string]any{"min_lap": nil, "max_lap": nil}
	if minLap != nil {
		details["min_lap"] = *minLap
	}
	if maxLap != nil {
		details["max_lap"] = *maxLap
	}
	ok := minLap != nil && *minLap >= 1 && maxLap != nil && *maxLap <= maxLapNumber
	return ok, details, nil
}

func winnerExists(ctx context.Context, conn repository.Querier, raceID string) (
	bool, map[string]any, error,
) {
	var count int
	row := conn.QueryRow(ctx, `
	select count(*) from curated.fact_session_results
	where race_id=$1 and finish_position=1`, raceID)
	if err := row.Scan(&count); err != nil {
		return false, nil, err
	}
	return count >= 1, map[string]any{"winners": count}, nil
}
