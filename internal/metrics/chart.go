package metrics

import "sort"

// ChartRow is the flat record shape the presentation layer charts from. Keys
// are stable across calls; rows from a series are chronological.
type ChartRow struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
	Target float64 `json:"target,omitempty"`
}

// periodLabel renders the human-readable label for a point. Month abbreviation
// plus year keeps labels unambiguous across year boundaries.
const periodLayout = "Jan 2006"

// SeriesRows reshapes a series into chart rows ordered chronologically.
func SeriesRows(series Series) []ChartRow {
	points := make([]TimeSeriesPoint, len(series.Points))
	copy(points, series.Points)
	sort.SliceStable(points, func(i, j int) bool { return points[i].Timestamp.Before(points[j].Timestamp) })

	rows := make([]ChartRow, 0, len(points))
	for _, p := range points {
		rows = append(rows, ChartRow{
			Period: p.Timestamp.UTC().Format(periodLayout),
			Value:  p.Value,
			Target: p.Target,
		})
	}
	return rows
}

// DistributionRows reshapes a distribution into chart rows, preserving the
// distribution's own stable ordering. Percentages stay on the distribution;
// rows expose raw bucket values.
func DistributionRows(dist StatusDistribution) []ChartRow {
	rows := make([]ChartRow, 0, len(dist.Entries))
	for _, e := range dist.Entries {
		rows = append(rows, ChartRow{Period: e.Name, Value: e.Value})
	}
	return rows
}
