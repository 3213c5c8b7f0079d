//nolint:funlen // ok for this test code
package quality

import (
	"context"
	"fmt"
	"testing"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	curatedrepo "github.com/racedecoder/f1-warehouse-go/pkg/repository/curated"
	runrepo "github.com/racedecoder/f1-warehouse-go/pkg/repository/run"
	"github.com/racedecoder/f1-warehouse-go/testsupport/testdb"
)

func intPtr(i int) *int     { return &i }
func i64Ptr(i int64) *int64 { return &i }

// seedRace loads a race with lapsPerDriver laps for two drivers and,
// optionally, a winner result row.
func seedRace(t *testing.T, pool *pgxpool.Pool, lapsPerDriver int, withWinner bool) uuid.UUID {
	t.Helper()
	ctx := context.Background()

	run := &model.IngestionRun{
		Season: 2024, Round: 1, SessionType: "R", CodeVersion: "test",
	}
	if err := runrepo.Create(ctx, pool, run); err != nil {
		t.Fatalf("create run: %v", err)
	}

	bundle := model.CuratedBundle{
		Race: model.DimRace{
			RaceID: "2024_01_R", Season: 2024, Round: 1,
			EventName: "Bahrain Grand Prix",
		},
		Drivers: []model.DimDriver{
			{DriverID: "drv_ver", DriverCode: "VER"},
			{DriverID: "drv_nor", DriverCode: "NOR"},
		},
	}
	for _, driverID := range []string{"drv_ver", "drv_nor"} {
		for lap := 1; lap <= lapsPerDriver; lap++ {
			bundle.Laps = append(bundle.Laps, model.FactLap{
				RaceID: "2024_01_R", DriverID: driverID, LapNumber: lap,
				LapTimeMS: i64Ptr(95000),
			})
		}
	}
	if withWinner {
		bundle.SessionResults = []model.FactSessionResult{
			{RaceID: "2024_01_R", DriverID: "drv_ver",
				FinishPosition: intPtr(1)},
		}
	}
	err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return curatedrepo.UpsertBundle(ctx, tx, bundle)
	})
	if err != nil {
		t.Fatalf("seed bundle: %v", err)
	}
	return run.RunID
}

func TestRunChecksAllPass(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	runID := seedRace(t, pool, 57, true)

	passed, results, err := RunChecks(ctx, pool, runID, "2024_01_R")
	if err != nil {
		t.Fatalf("RunChecks() error = %v", err)
	}
	if !passed {
		t.Errorf("RunChecks() passed = false, results %+v", results)
	}
	if len(results) != 4 {
		t.Fatalf("RunChecks() returned %d results, want 4", len(results))
	}
	for _, r := range results {
		if r.Status != StatusPass {
			t.Errorf("check %s = %s, want pass", r.CheckName, r.Status)
		}
	}

	// every verdict lands in metadata.data_quality_checks
	var count int
	row := pool.QueryRow(ctx,
		"select count(*) from metadata.data_quality_checks where run_id=$1", runID)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 4 {
		t.Errorf("persisted checks = %d, want 4", count)
	}
}

func TestRunChecksFailures(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	// 20 laps per driver: rowcount check must fail; no winner either
	runID := seedRace(t, pool, 20, false)

	passed, results, err := RunChecks(ctx, pool, runID, "2024_01_R")
	if err != nil {
		t.Fatalf("RunChecks() error = %v", err)
	}
	if passed {
		t.Error("RunChecks() passed = true, want failure")
	}

	byName := map[string]model.QualityCheckResult{}
	for _, r := range results {
		byName[r.CheckName] = r
	}
	if byName["fact_lap_rowcount"].Status != StatusFail {
		t.Error("fact_lap_rowcount should fail for 40 rows")
	}
	if byName["winner_exists"].Status != StatusFail {
		t.Error("winner_exists should fail without a winner row")
	}
	if byName["fact_lap_pk_duplicates"].Status != StatusPass {
		t.Error("fact_lap_pk_duplicates should pass")
	}
	if byName["lap_number_sanity"].Status != StatusPass {
		t.Error("lap_number_sanity should pass")
	}
}

func TestLapNumberSanityEmptyRaceFails(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()

	// a race with no lap rows at all must not pass vacuously
	ok, details, err := lapNumberSanity(ctx, pool, "2024_99_R")
	if err != nil {
		t.Fatalf("lapNumberSanity() error = %v", err)
	}
	if ok {
		t.Error("lapNumberSanity() = true for an empty race, want failure")
	}
	if details["min_lap"] != nil || details["max_lap"] != nil {
		t.Errorf("details = %+v, want nil lap span", details)
	}
}

func TestLapNumberSanity(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	runID := seedRace(t, pool, 60, true)

	// inject an implausible lap number
	_, err := pool.Exec(ctx, fmt.Sprintf(`
	insert into curated.fact_lap (race_id, driver_id, lap_number)
	values ('2024_01_R', 'drv_ver', %d)`, maxLapNumber+1))
	if err != nil {
		t.Fatalf("inject lap: %v", err)
	}

	passed, results, err := RunChecks(ctx, pool, runID, "2024_01_R")
	if err != nil {
		t.Fatalf("RunChecks() error = %v", err)
	}
	if passed {
		t.Error("RunChecks() passed = true, want lap sanity failure")
	}
	for _, r := range results {
		if r.CheckName == "lap_number_sanity" && r.Status != StatusFail {
			t.Errorf("lap_number_sanity = %s, want fail", r.Status)
		}
	}
}
