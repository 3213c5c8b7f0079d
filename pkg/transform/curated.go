// Package transform derives the dimensional layer from staging rows:
// conformed driver and team dimensions plus the per-race fact tables.
package transform

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/racedecoder/f1-warehouse-go/pkg/ident"
	"github.com/racedecoder/f1-warehouse-go/pkg/model"
	"github.com/racedecoder/f1-warehouse-go/pkg/trackstatus"
)

// RaceMeta is the event metadata the transform needs to emit dim_race.
type RaceMeta struct {
	RaceID      string
	Season      int
	Round       int
	EventName   string
	Circuit     *string
	Country     *string
	RaceDateUTC *time.Time
}

// BuildCurated derives the full dimensional bundle for one race. All
// fact rows reference dimension rows emitted in the same bundle; lap
// and result rows without a driver code are dropped.
func BuildCurated(meta RaceMeta, bundle model.StagingBundle) model.CuratedBundle {
	drivers := buildDrivers(bundle)
	teams := buildTeams(bundle.Results)
	laps := buildFactLaps(bundle.Laps)

	return model.CuratedBundle{
		Race: model.DimRace{
			RaceID:      meta.RaceID,
			Season:      meta.Season,
			Round:       meta.Round,
			EventName:   meta.EventName,
			Circuit:     meta.Circuit,
			Country:     meta.Country,
			RaceDateUTC: meta.RaceDateUTC,
		},
		Drivers:          drivers,
		Teams:            teams,
		DriverTeamSeason: buildDriverTeamSeason(meta.Season, bundle.Results),
		Laps:             laps,
		SessionResults:   buildFactResults(bundle.Results),
		RaceControl:      buildRaceControl(laps),
		WeatherMinutes:   buildWeatherMinutes(bundle.Weather),
	}
}

// completeness ranks duplicate driver candidates: the row carrying the
// most identity fields wins.
func completeness(d model.DimDriver) int {
	count := 0
	for _, f := range []*string{d.DriverNumber, d.FirstName, d.LastName, d.FullName} {
		if f != nil {
			count++
		}
	}
	return count
}

// buildDrivers conforms one dimension row per driver code. Result rows
// carry the full identity; lap rows contribute codes (and numbers) for
// drivers missing from the results.
func buildDrivers(bundle model.StagingBundle) []model.DimDriver {
	candidates := make([]model.DimDriver, 0, len(bundle.Results))
	for _, r := range bundle.Results {
		if r.DriverCode == nil {
			continue
		}
		candidates = append(candidates, model.DimDriver{
			DriverID:     ident.DriverID(*r.DriverCode),
			DriverCode:   *r.DriverCode,
			DriverNumber: r.DriverNumber,
			FirstName:    r.FirstName,
			LastName:     r.LastName,
			FullName:     r.FullName,
		})
	}
	for _, l := range bundle.Laps {
		if l.DriverCode == nil {
			continue
		}
		candidates = append(candidates, model.DimDriver{
			DriverID:     ident.DriverID(*l.DriverCode),
			DriverCode:   *l.DriverCode,
			DriverNumber: l.DriverNumber,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].DriverCode != candidates[j].DriverCode {
			return candidates[i].DriverCode < candidates[j].DriverCode
		}
		return completeness(candidates[i]) > completeness(candidates[j])
	})
	return lo.UniqBy(candidates, func(d model.DimDriver) string { return d.DriverID })
}

func buildTeams(results []model.StagingResult) []model.DimTeam {
	teams := make([]model.DimTeam, 0, len(results))
	for _, r := range results {
		if r.TeamName == nil {
			continue
		}
		teams = append(teams, model.DimTeam{
			TeamID:    ident.TeamID(*r.TeamName),
			TeamName:  *r.TeamName,
			TeamColor: r.TeamColor,
		})
	}
	sort.SliceStable(teams, func(i, j int) bool { return teams[i].TeamName < teams[j].TeamName })
	return lo.UniqBy(teams, func(t model.DimTeam) string { return t.TeamID })
}

func buildDriverTeamSeason(season int, results []model.StagingResult) []model.DimDriverTeamSeason {
	rows := make([]model.DimDriverTeamSeason, 0, len(results))
	for _, r := range results {
		if r.DriverCode == nil || r.TeamName == nil {
			continue
		}
		rows = append(rows, model.DimDriverTeamSeason{
			Season:   season,
			DriverID: ident.DriverID(*r.DriverCode),
			TeamID:   ident.TeamID(*r.TeamName),
		})
	}
	return lo.UniqBy(rows, func(r model.DimDriverTeamSeason) model.DimDriverTeamSeason { return r })
}

type lapKey struct {
	driverID  string
	lapNumber int
}

func buildFactLaps(laps []model.StagingLap) []model.FactLap {
	facts := make([]model.FactLap, 0, len(laps))
	for _, l := range laps {
		if l.DriverCode == nil {
			continue
		}
		facts = append(facts, model.FactLap{
			RaceID:           l.RaceID,
			DriverID:         ident.DriverID(*l.DriverCode),
			LapNumber:        l.LapNumber,
			Position:         l.Position,
			LapTimeMS:        l.LapTimeMS,
			Stint:            l.Stint,
			Compound:         l.Compound,
			TyreLifeLaps:     l.TyreLifeLaps,
			FreshTyre:        l.FreshTyre,
			IsAccurate:       l.IsAccurate,
			IsPitInLap:       l.IsPitInLap,
			IsPitOutLap:      l.IsPitOutLap,
			PitInTimeMS:      l.PitInTimeMS,
			PitOutTimeMS:     l.PitOutTimeMS,
			TrackStatusFlags: l.TrackStatusFlags,
			Sector1MS:        l.Sector1MS,
			Sector2MS:        l.Sector2MS,
			Sector3MS:        l.Sector3MS,
		})
	}
	// duplicate (driver, lap) rows keep the first occurrence
	return lo.UniqBy(facts, func(f model.FactLap) lapKey {
		return lapKey{f.DriverID, f.LapNumber}
	})
}

func buildFactResults(results []model.StagingResult) []model.FactSessionResult {
	var winnerTime *int64
	for _, r := range results {
		if r.FinishPosition != nil && *r.FinishPosition == 1 {
			winnerTime = r.RaceTimeMS
			break
		}
	}

	facts := make([]model.FactSessionResult, 0, len(results))
	for _, r := range results {
		if r.DriverCode == nil {
			continue
		}
		var teamID *string
		if r.TeamName != nil {
			id := ident.TeamID(*r.TeamName)
			teamID = &id
		}
		var gap *int64
		if winnerTime != nil && r.RaceTimeMS != nil {
			g := *r.RaceTimeMS - *winnerTime
			gap = &g
		}
		facts = append(facts, model.FactSessionResult{
			RaceID:             r.RaceID,
			DriverID:           ident.DriverID(*r.DriverCode),
			TeamID:             teamID,
			GridPosition:       r.GridPosition,
			FinishPosition:     r.FinishPosition,
			ClassifiedPosition: r.ClassifiedPosition,
			Status:             r.Status,
			Points:             r.Points,
			RaceTimeMS:         r.RaceTimeMS,
			GapToWinnerMS:      gap,
		})
	}
	return lo.UniqBy(facts, func(f model.FactSessionResult) string { return f.DriverID })
}

// buildRaceControl ORs the decoded track status flags of every lap
// fact into one row per lap. Deriving from the facts keeps laps seen
// only on driverless staging rows out of the race control timeline.
func buildRaceControl(laps []model.FactLap) []model.FactRaceControl {
	if len(laps) == 0 {
		return nil
	}
	raceID := laps[0].RaceID
	byLap := map[int]trackstatus.Flags{}
	for _, l := range laps {
		flags := byLap[l.LapNumber]
		if l.TrackStatusFlags != nil {
			flags = flags.Or(trackstatus.Decode(*l.TrackStatusFlags))
		}
		byLap[l.LapNumber] = flags
	}

	rows := make([]model.FactRaceControl, 0, len(byLap))
	for lap, flags := range byLap {
		rows = append(rows, model.FactRaceControl{
			RaceID:       raceID,
			LapNumber:    lap,
			IsSC:         flags.SafetyCar,
			IsVSC:        flags.VirtualSafetyCar,
			IsRedFlag:    flags.RedFlag,
			IsYellowFlag: flags.YellowFlag,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].LapNumber < rows[j].LapNumber })
	return rows
}

// buildWeatherMinutes floors samples to the minute and aggregates:
// numeric fields average over the non-null samples, rainfall is true
// when any sample in the minute reported rain.
func buildWeatherMinutes(weather []model.StagingWeather) []model.FactWeatherMinute {
	grouped := lo.GroupBy(weather, func(w model.StagingWeather) time.Time {
		return w.TimestampUTC.Truncate(time.Minute)
	})

	rows := make([]model.FactWeatherMinute, 0, len(grouped))
	for minute, samples := range grouped {
		row := model.FactWeatherMinute{
			RaceID:       samples[0].RaceID,
			TimestampUTC: minute,
			AirTempC:     meanOf(samples, func(w model.StagingWeather) *float64 { return w.AirTempC }),
			TrackTempC:   meanOf(samples, func(w model.StagingWeather) *float64 { return w.TrackTempC }),
			HumidityPct:  meanOf(samples, func(w model.StagingWeather) *float64 { return w.HumidityPct }),
			PressureMbar: meanOf(samples, func(w model.StagingWeather) *float64 { return w.PressureMbar }),
			WindDirDeg:   meanOf(samples, func(w model.StagingWeather) *float64 { return w.WindDirDeg }),
			WindSpeedMS:  meanOf(samples, func(w model.StagingWeather) *float64 { return w.WindSpeedMS }),
		}
		for _, s := range samples {
			if s.Rainfall != nil {
				if row.Rainfall == nil || *s.Rainfall {
					row.Rainfall = s.Rainfall
				}
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].TimestampUTC.Before(rows[j].TimestampUTC)
	})
	return rows
}

func meanOf(samples []model.StagingWeather, get func(model.StagingWeather) *float64) *float64 {
	var sum float64
	var count int
	for _, s := range samples {
		if v := get(s); v != nil {
			sum += *v
			count++
		}
	}
	if count == 0 {
		return nil
	}
	mean := sum / float64(count)
	return &mean
}
