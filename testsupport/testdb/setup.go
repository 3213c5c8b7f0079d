package testdb

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	tcpg "github.com/racedecoder/f1-warehouse-go/testsupport/tcpostgres"
)

// InitTestDb returns a migrated, empty warehouse database. When
// TESTDB_URL is set that database is used; otherwise a container is
// started.
func InitTestDb() *pgxpool.Pool {
	var pool *pgxpool.Pool

	if os.Getenv("TESTDB_URL") != "" {
		pool = tcpg.SetupExternalTestDb()
	} else {
		pool = tcpg.SetupTestDb()
	}
	tcpg.ClearAllTables(pool)
	return pool
}
