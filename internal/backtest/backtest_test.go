package backtest

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SkyrocketScreener/internal/model"
)

type fakeSource map[string][]model.OHLCV

func (f fakeSource) Fetch(_ context.Context, symbol string, _ model.Window) []model.OHLCV {
	return f[symbol]
}

var day0 = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func closes(vals ...float64) []model.OHLCV {
	bars := make([]model.OHLCV, len(vals))
	for i, v := range vals {
		bars[i] = model.OHLCV{Time: day0.AddDate(0, 0, i), Close: v}
	}
	return bars
}

func cfg() Config {
	return Config{Start: day0, End: day0.AddDate(0, 0, 10), Investment: 100, Benchmark: "SPY"}
}

func TestParseDates(t *testing.T) {
	now := time.Date(2025, 3, 31, 15, 4, 5, 0, time.UTC)

	s, e, err := ParseDates("", "", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), s)
	assert.Equal(t, time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), e)

	s, e, err = ParseDates("2025-01-02", "2025-02-03", now)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02", s.Format(DateLayout))
	assert.Equal(t, "2025-02-03", e.Format(DateLayout))

	_, _, err = ParseDates("01/02/2025", "", now)
	assert.ErrorContains(t, err, "invalid start date")
	_, _, err = ParseDates("", "soon", now)
	assert.ErrorContains(t, err, "invalid end date")
	_, _, err = ParseDates("2025-02-03", "2025-02-03", now)
	assert.ErrorContains(t, err, "must be before")
}

func TestWindowFor(t *testing.T) {
	now := day0
	assert.Equal(t, "3mo_1d", windowFor(now.AddDate(0, 0, -30), now).String())
	assert.Equal(t, "6mo_1d", windowFor(now.AddDate(0, 0, -120), now).String())
	assert.Equal(t, "1y_1d", windowFor(now.AddDate(0, 0, -300), now).String())
	assert.Equal(t, "5y_1d", windowFor(now.AddDate(-3, 0, 0), now).String())
}

func TestRun_EqualWeight(t *testing.T) {
	src := fakeSource{
		"AAA": closes(10, 12, 15),
		"BBB": closes(2, 1, 1.5),
		"SPY": closes(100, 101, 110),
	}
	res, err := Run(context.Background(), src, []string{"AAA", "BBB"}, cfg(), day0)
	require.NoError(t, err)

	assert.Equal(t, []string{"AAA", "BBB"}, res.Invested)
	assert.Equal(t, 200.0, res.TotalInvestment)
	require.Len(t, res.Values, 3)
	// AAA 10 shares, BBB 50 shares
	assert.InDelta(t, 200.0, res.Values[0].Portfolio, 1e-9)
	assert.InDelta(t, 170.0, res.Values[1].Portfolio, 1e-9)
	assert.InDelta(t, 225.0, res.Values[2].Portfolio, 1e-9)
	assert.InDelta(t, 225.0, res.FinalValue, 1e-9)
	assert.InDelta(t, 0.125, res.TotalReturn, 1e-9)
	assert.InDelta(t, 0.10, res.BenchmarkReturn, 1e-9)
	assert.InDelta(t, 170.0/200.0-1, res.MaxDrawdown, 1e-9)
	assert.True(t, res.Sharpe.Valid)
}

func TestRun_ForwardFillAndClip(t *testing.T) {
	src := fakeSource{
		"AAA": {
			{Time: day0.AddDate(0, 0, -5), Close: 1}, // before the window
			{Time: day0, Close: 10},
			{Time: day0.AddDate(0, 0, 1), Close: 20},
			{Time: day0.AddDate(0, 0, 3), Close: 40},
		},
		"SPY": closes(100, 100, 100, 100),
	}
	res, err := Run(context.Background(), src, []string{"AAA"}, cfg(), day0)
	require.NoError(t, err)
	require.Len(t, res.Values, 4)
	assert.Equal(t, day0, res.Values[0].Date)
	assert.InDelta(t, 200.0, res.Values[2].Portfolio, 1e-9)
	assert.InDelta(t, 400.0, res.Values[3].Portfolio, 1e-9)
	assert.InDelta(t, 0.0, res.BenchmarkReturn, 1e-9)
}

func TestRun_SkipsMissingAndUninvestable(t *testing.T) {
	late := closes(5, 6, 7)[1:] // first session missing
	src := fakeSource{
		"AAA":  closes(10, 11, 12),
		"LATE": late,
		"SPY":  closes(100, 100, 100),
	}
	res, err := Run(context.Background(), src, []string{"AAA", "GONE", "LATE"}, cfg(), day0)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAA"}, res.Invested)
	assert.Equal(t, 3, res.Requested)
	assert.Equal(t, 100.0, res.TotalInvestment)
}

func TestRun_Errors(t *testing.T) {
	ctx := context.Background()
	spy := closes(100, 101)

	_, err := Run(ctx, fakeSource{}, nil, cfg(), day0)
	assert.ErrorIs(t, err, ErrNoSymbols)

	_, err = Run(ctx, fakeSource{"AAA": closes(1, 2)}, []string{"AAA"}, cfg(), day0)
	assert.ErrorIs(t, err, ErrNoBenchmark)

	_, err = Run(ctx, fakeSource{"SPY": spy}, []string{"AAA"}, cfg(), day0)
	assert.ErrorIs(t, err, ErrNoPriceData)

	_, err = Run(ctx, fakeSource{"SPY": spy, "AAA": closes(0, 2)}, []string{"AAA"}, cfg(), day0)
	assert.ErrorIs(t, err, ErrNotInvestable)

	_, err = Run(ctx, fakeSource{"SPY": spy[:1], "AAA": closes(1)}, []string{"AAA"}, cfg(), day0)
	assert.ErrorIs(t, err, ErrTooFewSessions)

	bad := cfg()
	bad.End = bad.Start
	_, err = Run(ctx, fakeSource{"SPY": spy}, []string{"AAA"}, bad, day0)
	assert.ErrorContains(t, err, "must be before")
}

func TestOutput(t *testing.T) {
	src := fakeSource{"AAA": closes(10, 12), "SPY": closes(100, 100)}
	res, err := Run(context.Background(), src, []string{"AAA"}, cfg(), day0)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "values.csv")
	require.NoError(t, WriteValues(res, path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "date,portfolio,benchmark\n2025-01-06,100.00,100.00\n2025-01-07,120.00,100.00\n", string(data))

	var buf bytes.Buffer
	PrintSummary(&buf, res, "SPY")
	out := buf.String()
	assert.Contains(t, out, "BACKTEST RESULTS")
	assert.Contains(t, out, "Stocks Tested:         1/1")
	assert.Contains(t, out, "Total Return:     20.00%")
	assert.Contains(t, out, "Sharpe Ratio:     N/A")
	assert.True(t, strings.HasPrefix(out, strings.Repeat("=", 60)))
}
