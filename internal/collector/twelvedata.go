package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"SkyrocketScreener/internal/model"
)

const twelveDataBaseURL = "https://api.twelvedata.com"

// TwelveDataFetcher implements Fetcher using the Twelve Data time_series REST API.
type TwelveDataFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewTwelveDataFetcher creates a new fetcher with optional proxy support.
func NewTwelveDataFetcher(apiKey, proxyURL string) *TwelveDataFetcher {
	return &TwelveDataFetcher{
		BaseURL: twelveDataBaseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *TwelveDataFetcher) Name() string { return "twelvedata" }

// tdSeries is the time_series payload. Numbers arrive as strings, newest first.
type tdSeries struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Values  []struct {
		Datetime string `json:"datetime"`
		Open     string `json:"open"`
		High     string `json:"high"`
		Low      string `json:"low"`
		Close    string `json:"close"`
		Volume   string `json:"volume"`
	} `json:"values"`
}

func tdInterval(interval string) string {
	switch interval {
	case "1d":
		return "1day"
	case "1wk":
		return "1week"
	case "1mo":
		return "1month"
	case "1h", "60m":
		return "1h"
	default:
		return interval
	}
}

func tdTime(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", s)
}

// outputSize requests a little more than the indicator engine needs, or the whole window.
func outputSize(w model.Window) int {
	return max(MinLength+5, w.ApproxBars())
}

// FetchBars returns the bars of the window in ascending time order.
func (f *TwelveDataFetcher) FetchBars(ctx context.Context, symbol string, w model.Window) ([]model.OHLCV, error) {
	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", tdInterval(w.Interval))
	q.Set("outputsize", strconv.Itoa(outputSize(w)))
	q.Set("apikey", f.APIKey)
	endpoint := f.BaseURL + "/time_series?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("twelvedata fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twelvedata: status %d, body: %s", resp.StatusCode, truncate(body, 200))
	}

	var series tdSeries
	if err := json.NewDecoder(resp.Body).Decode(&series); err != nil {
		return nil, fmt.Errorf("twelvedata decode: %w", err)
	}
	if series.Status == "error" {
		// 400 and 404 mean the symbol is unknown; anything else (401, 429) is a real failure
		if series.Code == http.StatusBadRequest || series.Code == http.StatusNotFound {
			return nil, fmt.Errorf("twelvedata %s: %s: %w", symbol, series.Message, ErrNoData)
		}
		return nil, fmt.Errorf("twelvedata api error %d: %s", series.Code, series.Message)
	}
	if len(series.Values) == 0 {
		return nil, fmt.Errorf("twelvedata %s: %w", symbol, ErrNoData)
	}

	bars := make([]model.OHLCV, 0, len(series.Values))
	for _, v := range series.Values {
		t, err := tdTime(v.Datetime)
		if err != nil {
			return nil, fmt.Errorf("twelvedata datetime %q: %w", v.Datetime, err)
		}
		var p [4]float64
		for i, s := range []string{v.Open, v.High, v.Low, v.Close} {
			if p[i], err = strconv.ParseFloat(s, 64); err != nil {
				return nil, fmt.Errorf("twelvedata price %q: %w", s, err)
			}
		}
		var vol float64
		if v.Volume != "" {
			if vol, err = strconv.ParseFloat(v.Volume, 64); err != nil {
				return nil, fmt.Errorf("twelvedata volume %q: %w", v.Volume, err)
			}
		}
		bars = append(bars, model.OHLCV{Time: t, Open: p[0], High: p[1], Low: p[2], Close: p[3], Volume: vol})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return bars, nil
}
