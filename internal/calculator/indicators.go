package calculator

import (
	"math"

	"StrengthSentinel/internal/model"
)

// Dashboard indicator parameters.
const (
	RSIPeriod       = 14
	MACDFast        = 12
	MACDSlow        = 26
	MACDSignal      = 9
	BollingerWindow = 20
	BollingerWidth  = 2.0
	KDJWindow       = 9
	KDJCom          = 2.0
	RangeWindow     = 20
)

// ComputeIndicators derives the classic single-series technicals at the last bar.
// Every field whose window is not yet full is left nil.
func ComputeIndicators(series model.PriceSeries) model.PriceIndicators {
	ind := model.PriceIndicators{Symbol: series.Symbol}
	if series.Empty() {
		return ind
	}
	last := series.Points[len(series.Points)-1]
	ind.Date = last.Date
	ind.Price = last.Close

	closes := series.Closes()
	ind.MA5 = sma(closes, 5)
	ind.MA10 = sma(closes, 10)
	ind.MA20 = sma(closes, 20)
	ind.MA60 = sma(closes, 60)
	ind.RSI = Last(RollingRSI(closes, RSIPeriod))
	if len(closes) > RSIPeriod {
		if v, err := CalculateRSI(closes, RSIPeriod); err == nil {
			ind.RSIWilder = &v
		}
	}

	macd, signal, hist := MACD(closes, MACDFast, MACDSlow, MACDSignal)
	ind.MACD, ind.MACDSignal, ind.MACDHist = Last(macd), Last(signal), Last(hist)

	upper, middle, lower := Bollinger(closes, BollingerWindow, BollingerWidth)
	ind.BollUpper, ind.BollMiddle, ind.BollLower = Last(upper), Last(middle), Last(lower)

	k, d, j := KDJ(series.Points, KDJWindow, KDJCom)
	ind.K, ind.D, ind.J = Last(k), Last(d), Last(j)

	ind.Resistance, ind.Support, _ = PriceRange(series.Points, RangeWindow)
	if pos, err := RangePosition(ind.Price, ind.Resistance, ind.Support); err == nil {
		ind.RangePosition = pos
	}
	return ind
}

func sma(values []float64, period int) *float64 {
	v, err := CalculateSMA(values, period)
	if err != nil {
		return nil
	}
	return &v
}

// EWM is the adjusted exponentially weighted mean with smoothing alpha.
// Nil inputs are skipped; output is nil until the first defined input.
func EWM(values []*float64, alpha float64) []*float64 {
	out := make([]*float64, len(values))
	var num, den float64
	started := false
	for i, v := range values {
		if v == nil {
			if started {
				// decay still applies across gaps
				num *= 1 - alpha
				den *= 1 - alpha
				m := num / den
				out[i] = &m
			}
			continue
		}
		num = num*(1-alpha) + *v
		den = den*(1-alpha) + 1
		started = true
		m := num / den
		out[i] = &m
	}
	return out
}

// SpanAlpha converts an EWM span to its smoothing factor.
func SpanAlpha(span int) float64 { return 2 / (float64(span) + 1) }

// ComAlpha converts an EWM centre of mass to its smoothing factor.
func ComAlpha(com float64) float64 { return 1 / (1 + com) }

// MACD returns the fast-minus-slow EMA line, its signal EMA and the histogram.
func MACD(closes []float64, fast, slow, signal int) (line, sig, hist []*float64) {
	in := defined(closes)
	fastEMA := EWM(in, SpanAlpha(fast))
	slowEMA := EWM(in, SpanAlpha(slow))
	line = make([]*float64, len(closes))
	for i := range closes {
		if fastEMA[i] != nil && slowEMA[i] != nil {
			v := *fastEMA[i] - *slowEMA[i]
			line[i] = &v
		}
	}
	sig = EWM(line, SpanAlpha(signal))
	hist = make([]*float64, len(closes))
	for i := range closes {
		if line[i] != nil && sig[i] != nil {
			v := *line[i] - *sig[i]
			hist[i] = &v
		}
	}
	return line, sig, hist
}

// Bollinger returns the upper, middle and lower bands using the sample standard deviation.
func Bollinger(closes []float64, window int, width float64) (upper, middle, lower []*float64) {
	middle = RollingMean(closes, window)
	upper = make([]*float64, len(closes))
	lower = make([]*float64, len(closes))
	for i := range closes {
		if middle[i] == nil {
			continue
		}
		sd := TrailingStdDev(closes[:i+1], window)
		u, l := *middle[i]+width*sd, *middle[i]-width*sd
		upper[i], lower[i] = &u, &l
	}
	return upper, middle, lower
}

// KDJ computes the stochastic K, D and J lines. The raw stochastic value is undefined
// when the window's high equals its low.
func KDJ(points []model.PricePoint, window int, com float64) (k, d, j []*float64) {
	rsv := make([]*float64, len(points))
	for i := window - 1; i >= 0 && i < len(points); i++ {
		hi, lo := math.Inf(-1), math.Inf(1)
		for _, p := range points[i-window+1 : i+1] {
			hi = math.Max(hi, barHigh(p))
			lo = math.Min(lo, barLow(p))
		}
		if hi == lo {
			continue
		}
		v := (points[i].Close - lo) / (hi - lo) * 100
		rsv[i] = &v
	}
	alpha := ComAlpha(com)
	k = EWM(rsv, alpha)
	d = EWM(k, alpha)
	j = make([]*float64, len(points))
	for i := range points {
		if k[i] != nil && d[i] != nil {
			v := 3*(*k[i]) - 2*(*d[i])
			j[i] = &v
		}
	}
	return k, d, j
}

func defined(values []float64) []*float64 {
	out := make([]*float64, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}
