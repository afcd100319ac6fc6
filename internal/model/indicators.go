package model

// RelativeStrengthRow is one aligned date of the relative strength series.
// Pointer fields are nil until the window has enough history.
type RelativeStrengthRow struct {
	Date           Date     `json:"date"`
	SecurityClose  float64  `json:"security_close"`
	BenchmarkClose float64  `json:"benchmark_close"`
	Ratio          float64  `json:"ratio"`
	Normalized     float64  `json:"normalized"`
	MA5            *float64 `json:"ma5"`
	MA10           *float64 `json:"ma10"`
	MA20           *float64 `json:"ma20"`
	Change1D       *float64 `json:"change_1d"`
	Change5D       *float64 `json:"change_5d"`
	Change20D      *float64 `json:"change_20d"`
}

// Latest holds the values of the final aligned row.
type Latest struct {
	Date       Date     `json:"date"`
	Price      float64  `json:"stock_price"`
	IndexValue float64  `json:"index_value"`
	Ratio      float64  `json:"rs_ratio"`
	Normalized float64  `json:"rs_normalized"`
	MA5        *float64 `json:"rs_ma5"`
	MA10       *float64 `json:"rs_ma10"`
	MA20       *float64 `json:"rs_ma20"`
}

// Momentum holds the percentage change of normalized over 1/5/20 rows.
type Momentum struct {
	Change1D  *float64 `json:"1_day"`
	Change5D  *float64 `json:"5_day"`
	Change20D *float64 `json:"20_day"`
}

// RecentRow is the display subset of a RelativeStrengthRow.
type RecentRow struct {
	Date           Date     `json:"date"`
	SecurityClose  float64  `json:"close_stock"`
	BenchmarkClose float64  `json:"close_index"`
	Normalized     float64  `json:"rs_normalized"`
	MA5            *float64 `json:"rs_ma5"`
	MA10           *float64 `json:"rs_ma10"`
}

// Period is the requested analysis window.
type Period struct {
	Start Date `json:"start"`
	End   Date `json:"end"`
}

// Bundle is the full output of one relative strength computation.
type Bundle struct {
	Symbol     string         `json:"symbol"`
	Benchmark  Benchmark      `json:"index"`
	Segment    Segment        `json:"market_type"`
	Period     Period         `json:"analysis_period"`
	DataPoints int            `json:"data_points"`
	Latest     Latest         `json:"latest"`
	Momentum   Momentum       `json:"changes"`
	Analysis   AnalysisResult `json:"analysis"`
	Recent     []RecentRow    `json:"recent_data"`
}

// PriceIndicators are classic single-series technicals on the security itself.
type PriceIndicators struct {
	Symbol     string   `json:"symbol"`
	Date       Date     `json:"date"`
	Price      float64  `json:"price"`
	MA5        *float64 `json:"ma5"`
	MA10       *float64 `json:"ma10"`
	MA20       *float64 `json:"ma20"`
	MA60       *float64 `json:"ma60"`
	RSI        *float64 `json:"rsi"`
	RSIWilder  *float64 `json:"rsi_wilder"`
	MACD       *float64 `json:"macd"`
	MACDSignal *float64 `json:"macd_signal"`
	MACDHist   *float64 `json:"macd_hist"`
	BollUpper  *float64 `json:"boll_upper"`
	BollMiddle *float64 `json:"boll_middle"`
	BollLower  *float64 `json:"boll_lower"`
	K          *float64 `json:"kdj_k"`
	D          *float64 `json:"kdj_d"`
	J          *float64 `json:"kdj_j"`
	Support    float64  `json:"support"`
	Resistance float64  `json:"resistance"`
	// RangePosition is where Price sits between Support (0) and Resistance (1).
	RangePosition float64 `json:"range_position"`
}
