package model

// Timeframe names a target holding horizon and selects a scoring profile.
type Timeframe string

const (
	Timeframe24Hours Timeframe = "24_hours"
	Timeframe3Days   Timeframe = "3_days"
	Timeframe7Days   Timeframe = "7_days"
	Timeframe2Weeks  Timeframe = "2_weeks"
	Timeframe1Month  Timeframe = "1_month"
)

// Timeframes lists every supported timeframe in display order.
var Timeframes = []Timeframe{
	Timeframe24Hours,
	Timeframe3Days,
	Timeframe7Days,
	Timeframe2Weeks,
	Timeframe1Month,
}

// Candidate is a scored ticker that passed the screen.
type Candidate struct {
	Ticker    string
	Bundle    Bundle
	Score     int
	Criteria  []string
	Timeframe Timeframe
}
