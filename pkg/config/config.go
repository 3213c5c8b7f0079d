package config

import "time"

// this holds the resolved configuration values from CLI
var (
	DB            string        // connection string for the warehouse database
	UpstreamURL   string        // base URL of the upstream timing API
	CacheDir      string        // directory for the upstream on-disk cache ("" disables caching)
	CodeVersion   string        // code version recorded on every ingestion run
	LogLevel      string        // sets the log level (zap log level values)
	SQLLogLevel   string        // sets the log level for sql subsystem
	LogFormat     string        // text vs json
	SessionType   string        // session type to ingest (R, Q, ...)
	StrictQuality bool          // non-zero exit code when a run ends quality_failed
	PauseRace     time.Duration // pause between races during backfill
	PausePass     time.Duration // pause between passes of backfill until-complete
)
