// Package model holds the typed row shapes of the warehouse layers.
// Staging fields that may legitimately be absent upstream are pointers;
// the staging boundary is the only place where "missing" representations
// are normalized (see pkg/staging).
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// run lifecycle states; terminal states are written exactly once
const (
	StatusRunning       = "running"
	StatusSuccess       = "success"
	StatusQualityFailed = "quality_failed"
	StatusFailed        = "failed"
)

type ScheduleEvent struct {
	RaceID           string     `json:"raceId"`
	Season           int        `json:"season"`
	Round            int        `json:"round"`
	EventName        string     `json:"eventName"`
	Circuit          *string    `json:"circuit"`
	Country          *string    `json:"country"`
	RaceDatetimeUTC  *time.Time `json:"raceDatetimeUtc"`
	UpstreamEventKey *string    `json:"upstreamEventKey"`
	SessionType      string     `json:"sessionType"`
}

type CatalogEntry struct {
	ScheduleEvent
	IsIngested     bool       `json:"isIngested"`
	LastIngestedAt *time.Time `json:"lastIngestedAt"`
}

type IngestionRun struct {
	RunID       uuid.UUID  `json:"runId"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt"`
	Status      string     `json:"status"`
	Season      int        `json:"season"`
	Round       int        `json:"round"`
	SessionType string     `json:"sessionType"`
	CodeVersion string     `json:"codeVersion"`
	Notes       *RunNotes  `json:"notes"`
}

// RunNotes is the free-form JSON attached to a run record.
type RunNotes struct {
	TimingsSec    map[string]float64   `json:"timings_sec,omitempty"`
	QualityChecks []QualityCheckResult `json:"quality_checks,omitempty"`
	Error         string               `json:"error,omitempty"`
}

type QualityCheckResult struct {
	CheckName string         `json:"name"`
	Status    string         `json:"status"`
	Details   map[string]any `json:"details"`
}

// RunResult is the caller-visible outcome of one ingest attempt.
type RunResult struct {
	RunID       string             `json:"run_id,omitempty"`
	RaceID      string             `json:"race_id"`
	Season      int                `json:"season"`
	Round       int                `json:"round"`
	Status      string             `json:"status"`
	TimingsSec  map[string]float64 `json:"timings_sec,omitempty"`
	Error       string             `json:"error,omitempty"`
}

type StagingLap struct {
	RunID            uuid.UUID
	RaceID           string
	Season           int
	Round            int
	SessionType      string
	DriverCode       *string
	DriverNumber     *string
	LapNumber        int
	Position         *int
	LapTimeMS        *int64
	Stint            *int
	Compound         *string
	TyreLifeLaps     *int
	FreshTyre        *bool
	IsAccurate       *bool
	IsPitInLap       bool
	IsPitOutLap      bool
	PitInTimeMS      *int64
	PitOutTimeMS     *int64
	TrackStatusFlags *string
	Sector1MS        *int64
	Sector2MS        *int64
	Sector3MS        *int64
}

type StagingResult struct {
	RunID              uuid.UUID
	RaceID             string
	Season             int
	Round              int
	SessionType        string
	DriverCode         *string
	DriverNumber       *string
	FirstName          *string
	LastName           *string
	FullName           *string
	TeamName           *string
	TeamColor          *string
	GridPosition       *int
	FinishPosition     *int
	ClassifiedPosition *string
	Status             *string
	Points             *float64
	RaceTimeMS         *int64
}

type StagingWeather struct {
	RunID        uuid.UUID
	RaceID       string
	TimestampUTC time.Time
	AirTempC     *float64
	TrackTempC   *float64
	HumidityPct  *float64
	PressureMbar *float64
	Rainfall     *bool
	WindDirDeg   *float64
	WindSpeedMS  *float64
}

// StagingBundle is the full extraction snapshot for one race.
type StagingBundle struct {
	Laps    []StagingLap
	Results []StagingResult
	Weather []StagingWeather
}

type DimRace struct {
	RaceID      string
	Season      int
	Round       int
	EventName   string
	Circuit     *string
	Country     *string
	RaceDateUTC *time.Time
}

type DimDriver struct {
	DriverID     string
	DriverCode   string
	DriverNumber *string
	FirstName    *string
	LastName     *string
	FullName     *string
}

type DimTeam struct {
	TeamID    string
	TeamName  string
	TeamColor *string
}

// DimDriverTeamSeason is append-only: rows are never updated once recorded.
type DimDriverTeamSeason struct {
	Season   int
	DriverID string
	TeamID   string
}

type FactLap struct {
	RaceID           string
	DriverID         string
	LapNumber        int
	Position         *int
	LapTimeMS        *int64
	Stint            *int
	Compound         *string
	TyreLifeLaps     *int
	FreshTyre        *bool
	IsAccurate       *bool
	IsPitInLap       bool
	IsPitOutLap      bool
	PitInTimeMS      *int64
	PitOutTimeMS     *int64
	TrackStatusFlags *string
	Sector1MS        *int64
	Sector2MS        *int64
	Sector3MS        *int64
}

type FactSessionResult struct {
	RaceID             string
	DriverID           string
	TeamID             *string
	GridPosition       *int
	FinishPosition     *int
	ClassifiedPosition *string
	Status             *string
	Points             *float64
	RaceTimeMS         *int64
	GapToWinnerMS      *int64
}

type FactRaceControl struct {
	RaceID       string
	LapNumber    int
	IsSC         bool
	IsVSC        bool
	IsRedFlag    bool
	IsYellowFlag bool
}

type FactWeatherMinute struct {
	RaceID       string
	TimestampUTC time.Time
	AirTempC     *float64
	TrackTempC   *float64
	HumidityPct  *float64
	PressureMbar *float64
	Rainfall     *bool
	WindDirDeg   *float64
	WindSpeedMS  *float64
}

// CuratedBundle is the dimensional output of one transform pass.
// Every fact row's foreign keys resolve to a dimension row in the same
// bundle.
type CuratedBundle struct {
	Race             DimRace
	Drivers          []DimDriver
	Teams            []DimTeam
	DriverTeamSeason []DimDriverTeamSeason
	Laps             []FactLap
	SessionResults   []FactSessionResult
	RaceControl      []FactRaceControl
	WeatherMinutes   []FactWeatherMinute
}

type GapTimelineRow struct {
	RaceID          string
	LapNumber       int
	LeaderDriverID  string
	P2DriverID      string
	GapP2ToLeaderMS int64
}

type PositionChartRow struct {
	RaceID    string
	DriverID  string
	LapNumber int
	Position  *int
	TeamID    *string
}

type StintSummaryRow struct {
	RaceID      string
	DriverID    string
	Stint       int
	StartLap    int
	EndLap      int
	Compound    *string
	StintLaps   int
	MedianLapMS *int64
	AvgLapMS    *int64
	PitLap      *int
}
