package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DateLayout is the wire and display format for calendar dates.
const DateLayout = "2006-01-02"

// Date is a calendar day in UTC.
type Date struct {
	time.Time
}

// DateOf truncates t to its calendar day, keeping t's own location for the day boundary.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// NewDate builds a Date from its parts.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses YYYY-MM-DD (also accepts YYYYMMDD).
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	layout := DateLayout
	if len(s) == 8 && !strings.Contains(s, "-") {
		layout = "20060102"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// AddDays returns the date n calendar days later (n may be negative).
func (d Date) AddDays(n int) Date {
	return Date{d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// PricePoint is one daily bar. Open/High/Low/Volume are zero when the provider only supplies closes.
type PricePoint struct {
	Date   Date
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries holds a date-ordered series for one instrument.
type PriceSeries struct {
	Symbol string
	Points []PricePoint
}

// NewPriceSeries sorts points ascending by date and drops duplicate dates, keeping the last one seen.
func NewPriceSeries(symbol string, points []PricePoint) PriceSeries {
	sorted := make([]PricePoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date.Time) })

	out := make([]PricePoint, 0, len(sorted))
	for _, p := range sorted {
		if n := len(out); n > 0 && out[n-1].Date.Equal(p.Date.Time) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return PriceSeries{Symbol: symbol, Points: out}
}

func (s PriceSeries) Len() int { return len(s.Points) }

func (s PriceSeries) Empty() bool { return len(s.Points) == 0 }

// Closes returns the close column.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s.Points))
	for i, p := range s.Points {
		closes[i] = p.Close
	}
	return closes
}

// Between returns the points whose date falls in [start, end]. Zero bounds are open.
func (s PriceSeries) Between(start, end Date) PriceSeries {
	out := make([]PricePoint, 0, len(s.Points))
	for _, p := range s.Points {
		if !start.IsZero() && p.Date.Before(start.Time) {
			continue
		}
		if !end.IsZero() && p.Date.After(end.Time) {
			continue
		}
		out = append(out, p)
	}
	return PriceSeries{Symbol: s.Symbol, Points: out}
}

// InstrumentKind distinguishes tradable securities from benchmark indices.
type InstrumentKind string

const (
	KindSecurity InstrumentKind = "security"
	KindIndex    InstrumentKind = "index"
)

// Instrument identifies what a fetcher should retrieve.
type Instrument struct {
	Symbol  string
	Kind    InstrumentKind
	Segment Segment
}

func (i Instrument) String() string {
	return fmt.Sprintf("%s(%s/%s)", i.Symbol, i.Segment, i.Kind)
}

// Segment is the market a security trades in.
type Segment string

const (
	SegmentDomestic Segment = "domestic"
	SegmentHongKong Segment = "hongkong"
	SegmentUS       Segment = "us"
)

// Benchmark is a reference index used as the relative strength denominator.
type Benchmark struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Alias   string  `json:"alias"`
	Segment Segment `json:"segment"`
}
