package run

import (
	"context"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/ohler55/ojg/oj"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/pkg/repository"
)

// Create records the start of an ingestion run in status running.
func Create(ctx context.Context, conn repository.Querier, r *model.IngestionRun) error {
	if r.RunID.IsNil() {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		r.RunID = id
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now().UTC()
	}
	r.Status = model.StatusRunning
	_, err := conn.Exec(ctx, `
	insert into metadata.ingestion_runs (
		run_id, started_at, status, season, round, session_type, code_version
	) values ($1,$2,$3,$4,$5,$6,$7)`,
		r.RunID, r.StartedAt, r.Status, r.Season, r.Round, r.SessionType,
		r.CodeVersion,
	)
	return err
}

// Finish writes the terminal status and notes exactly once.
//
//nolint:whitespace // can't make both editor and linter happy
func Finish(
	ctx context.Context, conn repository.Querier,
	runID uuid.UUID, status string, notes *model.RunNotes,
) error {
	var notesJSON []byte
	if notes != nil {
		data, err := oj.Marshal(notes)
		if err != nil {
			return err
		}
		notesJSON = data
	}
	_, err := conn.Exec(ctx, `
	update metadata.ingestion_runs
	set finished_at=$2, status=$3, notes=$4
	where run_id=$1 and status=$5`,
		runID, time.Now().UTC(), status, notesJSON, model.StatusRunning)
	return err
}

func LoadByID(ctx context.Context, conn repository.Querier, runID uuid.UUID) (
	*model.IngestionRun, error,
) {
	row := conn.QueryRow(ctx, `
	select run_id, started_at, finished_at, status, season, round,
		session_type, code_version, notes
	from metadata.ingestion_runs where run_id=$1`, runID)

	var item model.IngestionRun
	var notesJSON []byte
	if err := row.Scan(
		&item.RunID, &item.StartedAt, &item.FinishedAt, &item.Status,
		&item.Season, &item.Round, &item.SessionType, &item.CodeVersion,
		&notesJSON,
	); err != nil {
		return nil, err
	}
	if len(notesJSON) > 0 {
		var notes model.RunNotes
		if err := oj.Unmarshal(notesJSON, &notes); err != nil {
			return nil, err
		}
		item.Notes = &notes
	}
	return &item, nil
}
