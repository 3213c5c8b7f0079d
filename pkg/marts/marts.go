// Package marts builds the reporting aggregates from curated fact rows.
package marts

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/racedecoder/f1-warehouse-go/pkg/model"
)

// BuildGapTimeline computes the leader/P2 gap per lap from cumulative
// race time. Only laps with a recorded lap time contribute to a
// driver's running total; laps where fewer than two drivers have a
// total are skipped.
func BuildGapTimeline(laps []model.FactLap) []model.GapTimelineRow {
	type cumEntry struct {
		driverID string
		cumMS    int64
	}

	ordered := append([]model.FactLap(nil), laps...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].DriverID != ordered[j].DriverID {
			return ordered[i].DriverID < ordered[j].DriverID
		}
		return ordered[i].LapNumber < ordered[j].LapNumber
	})

	running := map[string]int64{}
	byLap := map[int][]cumEntry{}
	for _, l := range ordered {
		if l.LapTimeMS == nil {
			continue
		}
		running[l.DriverID] += *l.LapTimeMS
		byLap[l.LapNumber] = append(byLap[l.LapNumber],
			cumEntry{driverID: l.DriverID, cumMS: running[l.DriverID]})
	}

	rows := make([]model.GapTimelineRow, 0, len(byLap))
	for lap, entries := range byLap {
		if len(entries) < 2 {
			continue
		}
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].cumMS < entries[j].cumMS
		})
		rows = append(rows, model.GapTimelineRow{
			RaceID:          laps[0].RaceID,
			LapNumber:       lap,
			LeaderDriverID:  entries[0].driverID,
			P2DriverID:      entries[1].driverID,
			GapP2ToLeaderMS: entries[1].cumMS - entries[0].cumMS,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].LapNumber < rows[j].LapNumber })
	return rows
}

// BuildPositionChart emits one row per (driver, lap) with the team
// resolved from the session results. Drivers without a result row keep
// a null team.
func BuildPositionChart(laps []model.FactLap, results []model.FactSessionResult) []model.PositionChartRow {
	teamByDriver := map[string]*string{}
	for _, r := range results {
		teamByDriver[r.DriverID] = r.TeamID
	}

	rows := make([]model.PositionChartRow, 0, len(laps))
	for _, l := range laps {
		rows = append(rows, model.PositionChartRow{
			RaceID:    l.RaceID,
			DriverID:  l.DriverID,
			LapNumber: l.LapNumber,
			Position:  l.Position,
			TeamID:    teamByDriver[l.DriverID],
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].DriverID != rows[j].DriverID {
			return rows[i].DriverID < rows[j].DriverID
		}
		return rows[i].LapNumber < rows[j].LapNumber
	})
	type chartKey struct {
		driverID  string
		lapNumber int
	}
	return lo.UniqBy(rows, func(r model.PositionChartRow) chartKey {
		return chartKey{r.DriverID, r.LapNumber}
	})
}

// BuildStintSummary aggregates one row per (driver, stint): lap range,
// starting compound, lap count, median and mean lap time, and the pit
// lap closing the stint.
func BuildStintSummary(laps []model.FactLap) []model.StintSummaryRow {
	type stintKey struct {
		driverID string
		stint    int
	}
	grouped := map[stintKey][]model.FactLap{}
	for _, l := range laps {
		if l.Stint == nil {
			continue
		}
		k := stintKey{l.DriverID, *l.Stint}
		grouped[k] = append(grouped[k], l)
	}

	rows := make([]model.StintSummaryRow, 0, len(grouped))
	for k, stintLaps := range grouped {
		sort.Slice(stintLaps, func(i, j int) bool {
			return stintLaps[i].LapNumber < stintLaps[j].LapNumber
		})
		row := model.StintSummaryRow{
			RaceID:    stintLaps[0].RaceID,
			DriverID:  k.driverID,
			Stint:     k.stint,
			StartLap:  math.MaxInt,
			StintLaps: len(stintLaps),
		}
		var times []int64
		for _, l := range stintLaps {
			if l.LapNumber < row.StartLap {
				row.StartLap = l.LapNumber
			}
			if l.LapNumber > row.EndLap {
				row.EndLap = l.LapNumber
			}
			if row.Compound == nil && l.Compound != nil {
				row.Compound = l.Compound
			}
			if l.LapTimeMS != nil {
				times = append(times, *l.LapTimeMS)
			}
			if l.IsPitInLap && (row.PitLap == nil || l.LapNumber > *row.PitLap) {
				lap := l.LapNumber
				row.PitLap = &lap
			}
		}
		row.MedianLapMS = medianMS(times)
		row.AvgLapMS = meanMS(times)
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].DriverID != rows[j].DriverID {
			return rows[i].DriverID < rows[j].DriverID
		}
		return rows[i].Stint < rows[j].Stint
	})
	return rows
}

func medianMS(times []int64) *int64 {
	if len(times) == 0 {
		return nil
	}
	sorted := append([]int64(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	mid := len(sorted) / 2
	var median float64
	if len(sorted)%2 == 1 {
		median = float64(sorted[mid])
	} else {
		median = float64(sorted[mid-1]+sorted[mid]) / 2
	}
	rounded := int64(math.Round(median))
	return &rounded
}

func meanMS(times []int64) *int64 {
	if len(times) == 0 {
		return nil
	}
	var sum int64
	for _, t := range times {
		sum += t
	}
	rounded := int64(math.Round(float64(sum) / float64(len(times))))
	return &rounded
}
