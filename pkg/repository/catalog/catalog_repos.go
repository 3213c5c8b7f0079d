package catalog

import (
	"context"
	"fmt"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/pkg/repository"
)

var selector = `select race_id, season, round, event_name, circuit, country,
	race_datetime_utc, upstream_event_key, session_type, is_ingested,
	last_ingested_at from metadata.races_catalog`

// UpsertSchedule writes schedule rows into the catalog. The ingestion
// bookkeeping columns (is_ingested, last_ingested_at) are never touched
// here; a schedule refresh must not reset ingestion state.
func UpsertSchedule(
	ctx context.Context, conn repository.Querier, events []model.ScheduleEvent,
) error {
	for i := range events {
		e := &events[i]
		_, err := conn.Exec(ctx, `
		insert into metadata.races_catalog (
			race_id, season, round, event_name, circuit, country,
			race_datetime_utc, upstream_event_key, session_type
		) values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		on conflict (race_id) do update set
			season=excluded.season,
			round=excluded.round,
			event_name=excluded.event_name,
			circuit=excluded.circuit,
			country=excluded.country,
			race_datetime_utc=excluded.race_datetime_utc,
			upstream_event_key=excluded.upstream_event_key,
			session_type=excluded.session_type
		`,
			e.RaceID, e.Season, e.Round, e.EventName, e.Circuit, e.Country,
			e.RaceDatetimeUTC, e.UpstreamEventKey, e.SessionType,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// MarkIngested flags a race as ingested. Quality verdicts don't undo
// this; a race with warehouse data present counts as ingested.
func MarkIngested(ctx context.Context, conn repository.Querier, raceID string) error {
	_, err := conn.Exec(ctx, `
	update metadata.races_catalog
	set is_ingested=true, last_ingested_at=now()
	where race_id=$1`, raceID)
	return err
}

func LoadByID(ctx context.Context, conn repository.Querier, raceID string) (
	*model.CatalogEntry, error,
) {
	row := conn.QueryRow(ctx, fmt.Sprintf("%s where race_id=$1", selector), raceID)
	return readData(row)
}

func LoadBySeason(ctx context.Context, conn repository.Querier, season int) (
	[]model.CatalogEntry, error,
) {
	rows, err := conn.Query(ctx,
		fmt.Sprintf("%s where season=$1 order by round", selector), season)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]model.CatalogEntry, 0)
	for rows.Next() {
		item, err := readData(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, *item)
	}
	return ret, rows.Err()
}

// UningestedRounds returns the rounds of a season still waiting for a
// successful ingest, in round order.
func UningestedRounds(
	ctx context.Context, conn repository.Querier, season int, sessionType string,
) ([]int, error) {
	rows, err := conn.Query(ctx, `
	select round from metadata.races_catalog
	where season=$1 and session_type=$2 and is_ingested=false
	order by round`, season, sessionType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ret := make([]int, 0)
	for rows.Next() {
		var round int
		if err := rows.Scan(&round); err != nil {
			return nil, err
		}
		ret = append(ret, round)
	}
	return ret, rows.Err()
}

// SeasonTotals reports how many catalog rows a season has and how many
// of them are ingested.
func SeasonTotals(
	ctx context.Context, conn repository.Querier, season int, sessionType string,
) (total, ingested int, err error) {
	row := conn.QueryRow(ctx, `
	select count(*), count(*) filter (where is_ingested)
	from metadata.races_catalog
	where season=$1 and session_type=$2`, season, sessionType)
	if err := row.Scan(&total, &ingested); err != nil {
		return 0, 0, err
	}
	return total, ingested, nil
}

func readData(row interface{ Scan(...any) error }) (*model.CatalogEntry, error) {
	var item model.CatalogEntry
	if err := row.Scan(
		&item.RaceID, &item.Season, &item.Round, &item.EventName,
		&item.Circuit, &item.Country, &item.RaceDatetimeUTC,
		&item.UpstreamEventKey, &item.SessionType,
		&item.IsIngested, &item.LastIngestedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
