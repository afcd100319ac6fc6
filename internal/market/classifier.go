// Package market maps security identifiers to a market segment and its default benchmark.
package market

import (
	"strings"

	"StrengthSentinel/internal/model"
)

// Benchmark catalogue. IDs are the codes the data providers understand.
var (
	ShanghaiComposite = model.Benchmark{ID: "000001", Name: "上证指数", Alias: "shanghai-composite", Segment: model.SegmentDomestic}
	ShenzhenComposite = model.Benchmark{ID: "399001", Name: "深证成指", Alias: "shenzhen-composite", Segment: model.SegmentDomestic}
	SciTech50         = model.Benchmark{ID: "000688", Name: "科创50", Alias: "sci-tech-50", Segment: model.SegmentDomestic}
	CSI300            = model.Benchmark{ID: "000300", Name: "沪深300", Alias: "csi300", Segment: model.SegmentDomestic}
	CSI500            = model.Benchmark{ID: "000905", Name: "中证500", Alias: "csi500", Segment: model.SegmentDomestic}
	HangSeng          = model.Benchmark{ID: "^HSI", Name: "恒生指数", Alias: "hang-seng-index", Segment: model.SegmentHongKong}
	HangSengChinaEnt  = model.Benchmark{ID: "^HSCE", Name: "恒生中国企业指数", Alias: "hang-seng-china-enterprises", Segment: model.SegmentHongKong}
	SP500             = model.Benchmark{ID: "^GSPC", Name: "标普500", Alias: "sp500", Segment: model.SegmentUS}
	Nasdaq            = model.Benchmark{ID: "^IXIC", Name: "纳斯达克", Alias: "nasdaq", Segment: model.SegmentUS}
	DowJones          = model.Benchmark{ID: "^DJI", Name: "道琼斯", Alias: "dow", Segment: model.SegmentUS}
)

// Benchmarks lists every known index.
var Benchmarks = []model.Benchmark{
	ShanghaiComposite, ShenzhenComposite, SciTech50, CSI300, CSI500,
	HangSeng, HangSengChinaEnt,
	SP500, Nasdaq, DowJones,
}

// short names accepted on input
var aliases = map[string]string{
	"sh":     ShanghaiComposite.ID,
	"sz":     ShenzhenComposite.ID,
	"hs300":  CSI300.ID,
	"zz500":  CSI500.ID,
	"kc50":   SciTech50.ID,
	"hsi":    HangSeng.ID,
	"hscei":  HangSengChinaEnt.ID,
	"spx":    SP500.ID,
	"spx500": SP500.ID,
	"ndx":    Nasdaq.ID,
	"djia":   DowJones.ID,
}

// fallbacks is consulted when a default benchmark has no data downstream.
var fallbacks = map[string]model.Benchmark{
	SciTech50.ID: CSI300,
}

// HongKongSuffix marks Hong Kong listed identifiers, e.g. 0700.HK.
const HongKongSuffix = ".HK"

// Classification is the result of Classify.
type Classification struct {
	Segment   model.Segment
	Benchmark model.Benchmark
}

// Classify maps an identifier to its market segment and default benchmark.
// It never fails: anything that is neither a 6-digit domestic code nor a .HK
// listing is treated as a US ticker benchmarked against the S&P 500.
func Classify(identifier string) Classification {
	id := strings.ToUpper(strings.TrimSpace(identifier))

	if isSixDigits(id) {
		switch prefix := id[:3]; prefix {
		case "000", "001", "002", "003":
			return Classification{Segment: model.SegmentDomestic, Benchmark: ShenzhenComposite}
		case "600", "601", "603", "605":
			return Classification{Segment: model.SegmentDomestic, Benchmark: ShanghaiComposite}
		case "688":
			return Classification{Segment: model.SegmentDomestic, Benchmark: SciTech50}
		default:
			return Classification{Segment: model.SegmentDomestic, Benchmark: CSI300}
		}
	}

	if strings.HasSuffix(id, HongKongSuffix) {
		return Classification{Segment: model.SegmentHongKong, Benchmark: HangSeng}
	}

	return Classification{Segment: model.SegmentUS, Benchmark: SP500}
}

func isSixDigits(s string) bool {
	if len(s) != 6 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// LookupBenchmark resolves a user supplied index by code or alias (case-insensitive).
// Unknown codes are returned as-is with the segment inferred from their format.
func LookupBenchmark(ref string) model.Benchmark {
	ref = strings.TrimSpace(ref)
	key := strings.ToLower(ref)
	if id, ok := aliases[key]; ok {
		key = strings.ToLower(id)
	}
	for _, b := range Benchmarks {
		if strings.ToLower(b.ID) == key || b.Alias == key {
			return b
		}
	}

	b := model.Benchmark{ID: strings.ToUpper(ref), Name: strings.ToUpper(ref), Alias: key}
	switch {
	case isSixDigits(ref):
		b.Segment = model.SegmentDomestic
	case strings.HasSuffix(b.ID, HongKongSuffix):
		b.Segment = model.SegmentHongKong
	default:
		b.Segment = model.SegmentUS
	}
	return b
}

// Fallback returns the substitute for a default benchmark that could not be fetched.
func Fallback(b model.Benchmark) (model.Benchmark, bool) {
	fb, ok := fallbacks[b.ID]
	return fb, ok
}

// SecurityInstrument builds the fetch target for a classified security.
func SecurityInstrument(identifier string, c Classification) model.Instrument {
	return model.Instrument{
		Symbol:  strings.ToUpper(strings.TrimSpace(identifier)),
		Kind:    model.KindSecurity,
		Segment: c.Segment,
	}
}

// IndexInstrument builds the fetch target for a benchmark.
func IndexInstrument(b model.Benchmark) model.Instrument {
	return model.Instrument{Symbol: b.ID, Kind: model.KindIndex, Segment: b.Segment}
}
