package collector

import (
	"context"
	"strings"
	"sync"
	"time"

	"SkyrocketScreener/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Symbols without an entry in Bars get a generated series of Count bars around Price,
// unless Count is zero, in which case they have no data.
type MockFetcher struct {
	Source   string
	Price    float64
	Count    int
	Bars     map[string][]model.OHLCV
	Profiles map[string]*model.TickerProfile
	Err      error

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string {
	if m.Source == "" {
		return "mock"
	}
	return m.Source
}

// Calls returns how many times symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[strings.ToUpper(symbol)]
}

func (m *MockFetcher) record(symbol string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[strings.ToUpper(symbol)]++
}

func (m *MockFetcher) FetchBars(_ context.Context, symbol string, _ model.Window) ([]model.OHLCV, error) {
	m.record(symbol)
	if m.Err != nil {
		return nil, m.Err
	}
	if bars, ok := m.Bars[strings.ToUpper(symbol)]; ok {
		if len(bars) == 0 {
			return nil, ErrNoData
		}
		return bars, nil
	}
	if m.Count == 0 {
		return nil, ErrNoData
	}
	return GenerateBars(m.Price, m.Count), nil
}

func (m *MockFetcher) FetchProfile(_ context.Context, symbol string) (*model.TickerProfile, error) {
	m.record(symbol + "_info")
	if m.Err != nil {
		return nil, m.Err
	}
	if p, ok := m.Profiles[strings.ToUpper(symbol)]; ok {
		return p, nil
	}
	return nil, ErrNoData
}

// GenerateBars builds a gently rising daily series ending yesterday.
func GenerateBars(basePrice float64, count int) []model.OHLCV {
	end := time.Now().UTC().Truncate(24 * time.Hour)
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   end.AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
