// Package strategy computes the relative strength of a security against its benchmark.
package strategy

import (
	"math"

	"StrengthSentinel/internal/calculator"
	"StrengthSentinel/internal/model"
)

// Rolling windows and momentum offsets over the normalized series.
const (
	ShortWindow  = 5
	MediumWindow = 10
	LongWindow   = 20

	VolatilityWindow = 20
	DefaultRecent    = 20
)

// Meta describes the pair being compared. Zero Period bounds are filled from the data.
type Meta struct {
	Symbol     string
	Benchmark  model.Benchmark
	Segment    model.Segment
	Period     model.Period
	RecentRows int
}

// AlignedRow is one date present in both series.
type AlignedRow struct {
	Date           model.Date
	SecurityClose  float64
	BenchmarkClose float64
}

// Align inner-joins two series on date, ascending.
func Align(security, benchmark model.PriceSeries) ([]AlignedRow, error) {
	index := make(map[string]float64, benchmark.Len())
	for _, p := range benchmark.Points {
		index[p.Date.String()] = p.Close
	}

	rows := make([]AlignedRow, 0, security.Len())
	for _, p := range model.NewPriceSeries(security.Symbol, security.Points).Points {
		if bc, ok := index[p.Date.String()]; ok {
			rows = append(rows, AlignedRow{Date: p.Date, SecurityClose: p.Close, BenchmarkClose: bc})
		}
	}
	if len(rows) == 0 {
		return nil, model.NewFailure(model.FailureAlignment, nil,
			"no overlapping data between %s and %s", security.Symbol, benchmark.Symbol)
	}
	return rows, nil
}

// BuildRows derives ratio, normalized value, moving averages and momentum for each aligned row.
func BuildRows(aligned []AlignedRow) ([]model.RelativeStrengthRow, error) {
	if len(aligned) == 0 {
		return nil, model.NewFailure(model.FailureAlignment, nil, "no overlapping data")
	}

	rows := make([]model.RelativeStrengthRow, len(aligned))
	for i, a := range aligned {
		if !finite(a.BenchmarkClose) || a.BenchmarkClose <= 0 {
			return nil, model.NewFailure(model.FailureDegenerateRatio, nil,
				"benchmark close %v on %s", a.BenchmarkClose, a.Date)
		}
		if !finite(a.SecurityClose) || a.SecurityClose < 0 {
			return nil, model.NewFailure(model.FailureDegenerateRatio, nil,
				"security close %v on %s", a.SecurityClose, a.Date)
		}
		rows[i] = model.RelativeStrengthRow{
			Date:           a.Date,
			SecurityClose:  a.SecurityClose,
			BenchmarkClose: a.BenchmarkClose,
			Ratio:          a.SecurityClose / a.BenchmarkClose,
		}
	}

	base := rows[0].Ratio
	if base == 0 {
		return nil, model.NewFailure(model.FailureDegenerateRatio, nil,
			"baseline ratio is zero on %s", rows[0].Date)
	}
	normalized := make([]float64, len(rows))
	for i := range rows {
		rows[i].Normalized = rows[i].Ratio / base * Baseline
		normalized[i] = rows[i].Normalized
	}
	rows[0].Normalized = Baseline
	normalized[0] = Baseline

	ma5 := calculator.RollingMean(normalized, ShortWindow)
	ma10 := calculator.RollingMean(normalized, MediumWindow)
	ma20 := calculator.RollingMean(normalized, LongWindow)
	ch1 := calculator.PctChange(normalized, 1)
	ch5 := calculator.PctChange(normalized, ShortWindow)
	ch20 := calculator.PctChange(normalized, LongWindow)
	for i := range rows {
		rows[i].MA5, rows[i].MA10, rows[i].MA20 = ma5[i], ma10[i], ma20[i]
		rows[i].Change1D, rows[i].Change5D, rows[i].Change20D = ch1[i], ch5[i], ch20[i]
	}
	return rows, nil
}

// Compute runs the full pipeline on two already fetched series. It is pure: the
// same inputs always produce the same bundle.
func Compute(security, benchmark model.PriceSeries, meta Meta) (*model.Bundle, error) {
	if security.Empty() {
		return nil, model.NewFailure(model.FailureDataUnavailable, nil, "no price data for %s", meta.Symbol)
	}
	if benchmark.Empty() {
		return nil, model.NewFailure(model.FailureDataUnavailable, nil, "no price data for index %s", meta.Benchmark.ID)
	}

	aligned, err := Align(security, benchmark)
	if err != nil {
		return nil, err
	}
	rows, err := BuildRows(aligned)
	if err != nil {
		return nil, err
	}

	last := rows[len(rows)-1]
	normalized := make([]float64, len(rows))
	for i, r := range rows {
		normalized[i] = r.Normalized
	}
	std := calculator.TrailingStdDev(normalized, VolatilityWindow)

	period := meta.Period
	if period.Start.IsZero() {
		period.Start = rows[0].Date
	}
	if period.End.IsZero() {
		period.End = last.Date
	}

	return &model.Bundle{
		Symbol:     meta.Symbol,
		Benchmark:  meta.Benchmark,
		Segment:    meta.Segment,
		Period:     period,
		DataPoints: len(rows),
		Latest: model.Latest{
			Date:       last.Date,
			Price:      last.SecurityClose,
			IndexValue: last.BenchmarkClose,
			Ratio:      last.Ratio,
			Normalized: last.Normalized,
			MA5:        last.MA5,
			MA10:       last.MA10,
			MA20:       last.MA20,
		},
		Momentum: model.Momentum{
			Change1D:  last.Change1D,
			Change5D:  last.Change5D,
			Change20D: last.Change20D,
		},
		Analysis: Analyze(last.Normalized, last.MA5, last.MA10, std),
		Recent:   recent(rows, meta.RecentRows),
	}, nil
}

func recent(rows []model.RelativeStrengthRow, n int) []model.RecentRow {
	if n <= 0 {
		n = DefaultRecent
	}
	if n > len(rows) {
		n = len(rows)
	}
	out := make([]model.RecentRow, 0, n)
	for _, r := range rows[len(rows)-n:] {
		out = append(out, model.RecentRow{
			Date:           r.Date,
			SecurityClose:  r.SecurityClose,
			BenchmarkClose: r.BenchmarkClose,
			Normalized:     r.Normalized,
			MA5:            r.MA5,
			MA10:           r.MA10,
		})
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
