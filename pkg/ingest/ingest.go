// Package ingest orchestrates one race's journey through the
// warehouse: fetch, stage, transform, load marts, verify. Each race is
// tracked by a run record whose terminal status reflects the outcome.
package ingest

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/racedecoder/f1-warehouse-go/log"
	"github.com/racedecoder/f1-warehouse-go/pkg/ident"
	"github.com/racedecoder/f1-warehouse-go/pkg/marts"
	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/pkg/quality"
	catalogrepo "github.com/racedecoder/f1-warehouse-go/pkg/repository/catalog"
	curatedrepo "github.com/racedecoder/f1-warehouse-go/pkg/repository/curated"
	martrepo "github.com/racedecoder/f1-warehouse-go/pkg/repository/mart"
	runrepo "github.com/racedecoder/f1-warehouse-go/pkg/repository/run"
	stagingrepo "github.com/racedecoder/f1-warehouse-go/pkg/repository/staging"
	"github.com/racedecoder/f1-warehouse-go/pkg/staging"
	"github.com/racedecoder/f1-warehouse-go/pkg/transform"
	"github.com/racedecoder/f1-warehouse-go/pkg/upstream"
)

const defaultMaxPasses = 8

type (
	Option   func(*Pipeline)
	Pipeline struct {
		pool        *pgxpool.Pool
		upstream    *upstream.Client
		logger      *log.Logger
		codeVersion string
		sessionType string
		pauseRace   time.Duration
		pausePass   time.Duration
		maxPasses   int
	}
)

func WithPool(pool *pgxpool.Pool) Option {
	return func(p *Pipeline) { p.pool = pool }
}

func WithUpstream(client *upstream.Client) Option {
	return func(p *Pipeline) { p.upstream = client }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithCodeVersion(v string) Option {
	return func(p *Pipeline) { p.codeVersion = v }
}

func WithSessionType(t string) Option {
	return func(p *Pipeline) { p.sessionType = t }
}

// WithPauseBetweenRaces throttles backfills to spare the upstream API.
func WithPauseBetweenRaces(d time.Duration) Option {
	return func(p *Pipeline) { p.pauseRace = d }
}

func WithPauseBetweenPasses(d time.Duration) Option {
	return func(p *Pipeline) { p.pausePass = d }
}

func WithMaxPasses(n int) Option {
	return func(p *Pipeline) { p.maxPasses = n }
}

func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		logger:      log.Default().Named("ingest"),
		codeVersion: "dev",
		sessionType: "R",
		maxPasses:   defaultMaxPasses,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// RefreshSchedule pulls the season schedule into the catalog and
// returns the number of events seen. Ingestion bookkeeping is left
// untouched.
func (p *Pipeline) RefreshSchedule(ctx context.Context, season int) (int, error) {
	events, err := p.upstream.FetchSchedule(ctx, season, p.sessionType)
	if err != nil {
		return 0, err
	}
	if err := catalogrepo.UpsertSchedule(ctx, p.pool, events); err != nil {
		return 0, err
	}
	p.logger.Info("schedule refreshed",
		log.Int("season", season), log.Int("events", len(events)))
	return len(events), nil
}

// IngestSingleRace runs the full pipeline for one event. The returned
// result mirrors the run record; a non-nil error means the run failed
// before reaching a quality verdict.
func (p *Pipeline) IngestSingleRace(ctx context.Context, season, round int) (
	*model.RunResult, error,
) {
	// the season schedule lands in the catalog before the run record,
	// so even a failed run leaves its event row behind
	if _, err := p.RefreshSchedule(ctx, season); err != nil {
		return nil, err
	}

	raceID := ident.RaceID(season, round, p.sessionType)
	run := &model.IngestionRun{
		Season:      season,
		Round:       round,
		SessionType: p.sessionType,
		CodeVersion: p.codeVersion,
	}
	if err := runrepo.Create(ctx, p.pool, run); err != nil {
		return nil, err
	}
	logger := p.logger.Named("run").
		Named(run.RunID.String()[:8])
	logger.Info("ingest started",
		log.String("raceId", raceID),
		log.Int("season", season), log.Int("round", round))

	result := &model.RunResult{
		RunID:  run.RunID.String(),
		RaceID: raceID,
		Season: season,
		Round:  round,
	}
	timings := map[string]float64{}
	status, err := p.runStages(ctx, run, raceID, timings)
	result.TimingsSec = timings
	if err != nil {
		result.Status = model.StatusFailed
		result.Error = err.Error()
		notes := &model.RunNotes{TimingsSec: timings, Error: err.Error()}
		if finishErr := runrepo.Finish(
			ctx, p.pool, run.RunID, model.StatusFailed, notes); finishErr != nil {
			logger.Error("could not finalize failed run",
				log.ErrorField(finishErr))
		}
		logger.Error("ingest failed", log.ErrorField(err))
		return result, err
	}
	result.Status = status
	logger.Info("ingest finished", log.String("status", status))
	return result, nil
}

//nolint:funlen // orchestration sequence reads best in one place
func (p *Pipeline) runStages(
	ctx context.Context, run *model.IngestionRun, raceID string,
	timings map[string]float64,
) (string, error) {
	stage := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		timings[name] = time.Since(start).Seconds()
		return err
	}

	var extract *upstream.SessionExtract
	if err := stage("extract_fetch", func() error {
		var err error
		extract, err = p.upstream.FetchSession(
			ctx, run.Season, run.Round, run.SessionType)
		return err
	}); err != nil {
		return "", err
	}

	// the session's own metadata refines the catalog row, the schedule
	// endpoint carries less detail than the session header
	event := model.ScheduleEvent{
		RaceID:           extract.RaceID,
		Season:           extract.Season,
		Round:            extract.Round,
		EventName:        extract.EventName,
		Circuit:          extract.Circuit,
		Country:          extract.Country,
		RaceDatetimeUTC:  extract.RaceDatetimeUTC,
		UpstreamEventKey: &extract.UpstreamEventKey,
		SessionType:      extract.SessionType,
	}
	if err := catalogrepo.UpsertSchedule(
		ctx, p.pool, []model.ScheduleEvent{event}); err != nil {
		return "", err
	}

	var bundle model.StagingBundle
	if err := stage("extract_stage", func() error {
		bundle = staging.BuildBundle(extract, run.RunID)
		return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			return stagingrepo.Replace(ctx, tx, raceID, bundle)
		})
	}); err != nil {
		return "", err
	}

	if err := stage("transform_curated", func() error {
		curated := transform.BuildCurated(transform.RaceMeta{
			RaceID:      extract.RaceID,
			Season:      extract.Season,
			Round:       extract.Round,
			EventName:   extract.EventName,
			Circuit:     extract.Circuit,
			Country:     extract.Country,
			RaceDateUTC: extract.RaceDatetimeUTC,
		}, bundle)
		return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			return curatedrepo.UpsertBundle(ctx, tx, curated)
		})
	}); err != nil {
		return "", err
	}

	if err := stage("load_marts", func() error {
		laps, err := curatedrepo.LoadFactLaps(ctx, p.pool, raceID)
		if err != nil {
			return err
		}
		results, err := curatedrepo.LoadFactResults(ctx, p.pool, raceID)
		if err != nil {
			return err
		}
		return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
			return martrepo.ReplaceAll(ctx, tx, raceID,
				marts.BuildGapTimeline(laps),
				marts.BuildPositionChart(laps, results),
				marts.BuildStintSummary(laps))
		})
	}); err != nil {
		return "", err
	}

	var passed bool
	var checks []model.QualityCheckResult
	if err := stage("quality", func() error {
		var err error
		passed, checks, err = quality.RunChecks(ctx, p.pool, run.RunID, raceID)
		return err
	}); err != nil {
		return "", err
	}

	// data is present either way, so the race counts as ingested even
	// when the quality gate fails
	if err := catalogrepo.MarkIngested(ctx, p.pool, raceID); err != nil {
		return "", err
	}

	status := model.StatusSuccess
	if !passed {
		status = model.StatusQualityFailed
	}
	notes := &model.RunNotes{TimingsSec: timings, QualityChecks: checks}
	if err := runrepo.Finish(ctx, p.pool, run.RunID, status, notes); err != nil {
		return "", err
	}
	return status, nil
}

// BackfillSeason refreshes the schedule, then ingests every round of
// the season. A failing round does not stop the pass.
func (p *Pipeline) BackfillSeason(ctx context.Context, season int) (
	[]model.RunResult, error,
) {
	if _, err := p.RefreshSchedule(ctx, season); err != nil {
		return nil, err
	}
	entries, err := catalogrepo.LoadBySeason(ctx, p.pool, season)
	if err != nil {
		return nil, err
	}
	rounds := make([]int, 0, len(entries))
	for _, e := range entries {
		rounds = append(rounds, e.Round)
	}
	return p.ingestRounds(ctx, season, rounds)
}

// BackfillRange ingests the rounds from..to (inclusive).
func (p *Pipeline) BackfillRange(ctx context.Context, season, from, to int) (
	[]model.RunResult, error,
) {
	if _, err := p.RefreshSchedule(ctx, season); err != nil {
		return nil, err
	}
	rounds := make([]int, 0, to-from+1)
	for r := from; r <= to; r++ {
		rounds = append(rounds, r)
	}
	return p.ingestRounds(ctx, season, rounds)
}

func (p *Pipeline) ingestRounds(ctx context.Context, season int, rounds []int) (
	[]model.RunResult, error,
) {
	results := make([]model.RunResult, 0, len(rounds))
	for i, round := range rounds {
		if i > 0 {
			if err := p.pause(ctx, p.pauseRace); err != nil {
				return results, err
			}
		}
		// round failures are isolated; the run record carries the error
		res, err := p.IngestSingleRace(ctx, season, round)
		if res != nil {
			results = append(results, *res)
		}
		if err != nil && ctx.Err() != nil {
			return results, ctx.Err()
		}
	}
	return results, nil
}

// SeasonReport summarizes a multi-pass backfill.
type SeasonReport struct {
	Season   int               `json:"season"`
	Passes   int               `json:"passes"`
	Total    int               `json:"total"`
	Ingested int               `json:"ingested"`
	Results  []model.RunResult `json:"results"`
}

// BackfillUntilComplete keeps sweeping the season's uningested rounds
// until the catalog reports no gaps or the pass budget is spent.
func (p *Pipeline) BackfillUntilComplete(ctx context.Context, season int) (
	*SeasonReport, error,
) {
	if _, err := p.RefreshSchedule(ctx, season); err != nil {
		return nil, err
	}
	report := &SeasonReport{Season: season}
	for pass := 1; pass <= p.maxPasses; pass++ {
		missing, err := catalogrepo.UningestedRounds(
			ctx, p.pool, season, p.sessionType)
		if err != nil {
			return nil, err
		}
		if len(missing) == 0 {
			break
		}
		if pass > 1 {
			if err := p.pause(ctx, p.pausePass); err != nil {
				return report, err
			}
		}
		report.Passes = pass
		p.logger.Info("backfill pass",
			log.Int("pass", pass), log.Int("missing", len(missing)))
		results, err := p.ingestRounds(ctx, season, missing)
		report.Results = append(report.Results, results...)
		if err != nil {
			return report, err
		}
	}
	total, ingested, err := catalogrepo.SeasonTotals(
		ctx, p.pool, season, p.sessionType)
	if err != nil {
		return report, err
	}
	report.Total = total
	report.Ingested = ingested
	return report, nil
}

// BackfillSeasonsUntilComplete sweeps every season in from..to. A
// failing season does not stop the later ones; only a cancelled
// context aborts the range.
func (p *Pipeline) BackfillSeasonsUntilComplete(ctx context.Context, from, to int) (
	[]*SeasonReport, error,
) {
	reports := make([]*SeasonReport, 0, to-from+1)
	for season := from; season <= to; season++ {
		report, err := p.BackfillUntilComplete(ctx, season)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			if ctx.Err() != nil {
				return reports, ctx.Err()
			}
			p.logger.Warn("season backfill failed",
				log.Int("season", season), log.ErrorField(err))
		}
	}
	return reports, nil
}

func (p *Pipeline) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
