package staging

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/testsupport/testdb"
)

func sampleBundle(runID uuid.UUID, lapCount int) model.StagingBundle {
	code := "VER"
	laps := make([]model.StagingLap, 0, lapCount)
	for i := 1; i <= lapCount; i++ {
		laps = append(laps, model.StagingLap{
			RunID: runID, RaceID: "2024_01_R", Season: 2024, Round: 1,
			SessionType: "R", DriverCode: &code, LapNumber: i,
		})
	}
	return model.StagingBundle{
		Laps: laps,
		Results: []model.StagingResult{
			{RunID: runID, RaceID: "2024_01_R", Season: 2024, Round: 1,
				SessionType: "R", DriverCode: &code},
		},
		Weather: []model.StagingWeather{
			{RunID: runID, RaceID: "2024_01_R",
				TimestampUTC: time.Date(2024, 3, 2, 15, 0, 0, 0, time.UTC)},
		},
	}
}

func replace(t *testing.T, pool *pgxpool.Pool, bundle model.StagingBundle) {
	t.Helper()
	err := pgx.BeginFunc(context.Background(), pool, func(tx pgx.Tx) error {
		return Replace(context.Background(), tx, "2024_01_R", bundle)
	})
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var count int
	row := pool.QueryRow(context.Background(),
		"select count(*) from "+table+" where race_id=$1", "2024_01_R")
	if err := row.Scan(&count); err != nil {
		t.Fatalf("count %s error = %v", table, err)
	}
	return count
}

func TestReplaceSwapsSnapshot(t *testing.T) {
	pool := testdb.InitTestDb()

	run1 := uuid.Must(uuid.NewV4())
	replace(t, pool, sampleBundle(run1, 5))

	if got := countRows(t, pool, "staging.session_laps"); got != 5 {
		t.Fatalf("lap rows = %d, want 5", got)
	}

	// a re-run with fewer rows must not leave stale leftovers
	run2 := uuid.Must(uuid.NewV4())
	replace(t, pool, sampleBundle(run2, 3))

	if got := countRows(t, pool, "staging.session_laps"); got != 3 {
		t.Errorf("lap rows after replace = %d, want 3", got)
	}
	if got := countRows(t, pool, "staging.session_results"); got != 1 {
		t.Errorf("result rows after replace = %d, want 1", got)
	}
	if got := countRows(t, pool, "staging.session_weather"); got != 1 {
		t.Errorf("weather rows after replace = %d, want 1", got)
	}

	var runID uuid.UUID
	row := pool.QueryRow(context.Background(),
		"select distinct run_id from staging.session_laps where race_id=$1",
		"2024_01_R")
	if err := row.Scan(&runID); err != nil {
		t.Fatalf("run_id query error = %v", err)
	}
	if runID != run2 {
		t.Errorf("run_id = %v, want the replacing run %v", runID, run2)
	}
}
