// Package bootstrap wires the shared runtime for the CLI commands:
// logging, database pool, migrations and the upstream client.
package bootstrap

import (
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/racedecoder/f1-warehouse-go/log"
	"github.com/racedecoder/f1-warehouse-go/pkg/config"
	"github.com/racedecoder/f1-warehouse-go/pkg/db/migrate"
	"github.com/racedecoder/f1-warehouse-go/pkg/db/postgres"
	"github.com/racedecoder/f1-warehouse-go/pkg/ingest"
	"github.com/racedecoder/f1-warehouse-go/pkg/upstream"
	"github.com/racedecoder/f1-warehouse-go/pkg/utils"
)

const dbWaitTimeout = 15 * time.Second

// Stack bundles the initialized runtime components.
type Stack struct {
	Logger   *log.Logger
	Pool     *pgxpool.Pool
	Upstream *upstream.Client
	Pipeline *ingest.Pipeline
}

// SetupLogger builds the process logger from the config values and
// installs it as the package default.
func SetupLogger() (*log.Logger, error) {
	parseLevel := func(l string) log.Level {
		parsedLevel, err := log.ParseLevel(l)
		if err != nil {
			parsedLevel = log.InfoLevel
		}
		return parsedLevel
	}
	var logger *log.Logger
	switch config.LogFormat {
	case "json":
		logger = log.New(
			os.Stderr,
			parseLevel(config.LogLevel),
			log.WithCaller(false),
			log.AddCallerSkip(1))
	default:
		logger = log.DevLogger(
			os.Stderr,
			parseLevel(config.LogLevel),
			log.WithCaller(false),
			log.AddCallerSkip(1))
	}
	log.ResetDefault(logger)
	return logger, nil
}

// Init prepares the full stack: migrations applied, pool connected,
// upstream client ready. Callers own the returned stack and must Close it.
func Init() (*Stack, error) {
	logger, err := SetupLogger()
	if err != nil {
		return nil, err
	}
	if addr := utils.ExtractFromDBURL(config.DB); addr != "" {
		if err := utils.WaitForTCP(addr, dbWaitTimeout); err != nil {
			return nil, err
		}
	}
	if err := migrate.MigrateDb(config.DB); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	sqlLevel, err := log.ParseLevel(config.SQLLogLevel)
	if err != nil {
		sqlLevel = log.DebugLevel
	}
	pool, err := postgres.InitWithURL(
		config.DB,
		postgres.WithTracer(logger.Named("sql"), sqlLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	client, err := upstream.NewClient(
		upstream.WithBaseURL(config.UpstreamURL),
		upstream.WithCacheDir(config.CacheDir),
		upstream.WithLogger(logger.Named("upstream")),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}
	pipeline := ingest.NewPipeline(
		ingest.WithPool(pool),
		ingest.WithUpstream(client),
		ingest.WithLogger(logger.Named("ingest")),
		ingest.WithCodeVersion(config.CodeVersion),
		ingest.WithSessionType(config.SessionType),
		ingest.WithPauseBetweenRaces(config.PauseRace),
		ingest.WithPauseBetweenPasses(config.PausePass),
	)
	return &Stack{
		Logger:   logger,
		Pool:     pool,
		Upstream: client,
		Pipeline: pipeline,
	}, nil
}

func (s *Stack) Close() {
	if s.Upstream != nil {
		if err := s.Upstream.Close(); err != nil {
			s.Logger.Warn("closing upstream client", log.ErrorField(err))
		}
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
	_ = s.Logger.Sync()
}
