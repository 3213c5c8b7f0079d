//nolint:errcheck // testsetup
package tcpostgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/racedecoder/f1-warehouse-go/pkg/db/migrate"
	database "github.com/racedecoder/f1-warehouse-go/pkg/db/postgres"
)

// SetupTestDb boots a postgres container, applies the warehouse
// migrations and returns a ready pool.
func SetupTestDb() *pgxpool.Pool {
	ctx := context.Background()
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		log.Fatal(err)
	}
	container, err := SetupPostgres(ctx,
		WithPort(port.Port()),
		WithInitialDatabase("postgres", "password", "postgres"),
		WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
		WithName("f1-warehouse-test"),
	)
	if err != nil {
		log.Fatal(err)
	}
	containerPort, _ := container.MappedPort(ctx, port)
	host, _ := container.Host(ctx)
	dbURL := fmt.Sprintf("postgresql://postgres:password@%s:%s/postgres",
		host, containerPort.Port())

	return initPool(dbURL)
}

// SetupExternalTestDb connects to the database named by TESTDB_URL
// instead of booting a container.
func SetupExternalTestDb() *pgxpool.Pool {
	return initPool(os.Getenv("TESTDB_URL"))
}

func initPool(dbURL string) *pgxpool.Pool {
	if err := migrate.MigrateDb(dbURL); err != nil {
		log.Fatal(err)
	}
	pool, err := database.InitWithURL(dbURL)
	if err != nil {
		log.Fatal(err)
	}
	return pool
}

// delete order respects the fact -> dim foreign keys
func ClearCuratedTables(pool *pgxpool.Pool) {
	ctx := context.Background()
	pool.Exec(ctx, "delete from curated.fact_weather_minute")
	pool.Exec(ctx, "delete from curated.fact_race_control")
	pool.Exec(ctx, "delete from curated.fact_session_results")
	pool.Exec(ctx, "delete from curated.fact_lap")
	pool.Exec(ctx, "delete from curated.dim_driver_team_season")
	pool.Exec(ctx, "delete from curated.dim_team")
	pool.Exec(ctx, "delete from curated.dim_driver")
	pool.Exec(ctx, "delete from curated.dim_race")
}

func ClearStagingTables(pool *pgxpool.Pool) {
	ctx := context.Background()
	pool.Exec(ctx, "delete from staging.session_laps")
	pool.Exec(ctx, "delete from staging.session_results")
	pool.Exec(ctx, "delete from staging.session_weather")
}

func ClearMartTables(pool *pgxpool.Pool) {
	ctx := context.Background()
	pool.Exec(ctx, "delete from marts.mart_gap_timeline")
	pool.Exec(ctx, "delete from marts.mart_position_chart")
	pool.Exec(ctx, "delete from marts.mart_stint_summary")
}

func ClearMetadataTables(pool *pgxpool.Pool) {
	ctx := context.Background()
	pool.Exec(ctx, "delete from metadata.data_quality_checks")
	pool.Exec(ctx, "delete from metadata.ingestion_runs")
	pool.Exec(ctx, "delete from metadata.races_catalog")
}

func ClearAllTables(pool *pgxpool.Pool) {
	ClearMartTables(pool)
	ClearCuratedTables(pool)
	ClearStagingTables(pool)
	ClearMetadataTables(pool)
}
