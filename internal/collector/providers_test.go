package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SkyrocketScreener/internal/model"
)

const chartPayload = `{"chart":{"result":[{
  "timestamp":[1717372800,1717459200,1717545600,1717632000],
  "indicators":{"quote":[{
    "open":[1.10,1.20,null,1.30],
    "high":[1.15,1.25,null,1.40],
    "low":[1.05,1.15,null,1.25],
    "close":[1.12,1.22,null,1.35],
    "volume":[1000,2000,null,null]}]}}],"error":null}}`

func TestYahooFetcher_FetchBars(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(chartPayload))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "brk.b", model.ScreenWindow)
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/BRK-B", gotPath)
	assert.Equal(t, "interval=1d&range=3mo", gotQuery)
	require.Len(t, bars, 3, "null session skipped")
	assert.Equal(t, 1.12, bars[0].Close)
	assert.Equal(t, 1.35, bars[2].Close)
	assert.Equal(t, 0.0, bars[2].Volume)
	assert.Equal(t, time.UTC, bars[0].Time.Location())
	assert.True(t, bars[1].Time.Before(bars[2].Time))
}

func TestYahooFetcher_NoData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchBars(context.Background(), "XXXX", model.ScreenWindow)
	assert.ErrorIs(t, err, ErrNoData)
}

func TestYahooFetcher_ServerErrorIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	_, err := f.FetchBars(context.Background(), "AMC", model.ScreenWindow)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoData)
}

func TestYahooFetcher_FetchProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "defaultKeyStatistics,price,summaryProfile", r.URL.Query().Get("modules"))
		w.Write([]byte(`{"quoteSummary":{"result":[{
		  "defaultKeyStatistics":{"sharesShort":{"raw":20000000,"fmt":"20M"},"floatShares":{"raw":100000000},
		    "shortRatio":{"raw":3.4},"heldPercentInstitutions":{}},
		  "price":{"shortName":"Sundial Growers","marketCap":{"raw":350000000}},
		  "summaryProfile":{"sector":"Healthcare","industry":"Drug Manufacturers"}}],"error":null}}`))
	}))
	defer srv.Close()

	f := NewYahooFetcher("")
	f.BaseURL = srv.URL
	p, err := f.FetchProfile(context.Background(), "SNDL")
	require.NoError(t, err)
	assert.Equal(t, "Sundial Growers", p.ShortName)
	assert.Equal(t, "Healthcare", p.Sector)
	assert.Equal(t, 2e7, p.SharesShort.Float64)
	assert.Equal(t, 1e8, p.FloatShares.Float64)
	assert.Equal(t, 3.4, p.ShortRatio.Float64)
	assert.Equal(t, 3.5e8, p.MarketCap.Float64)
	assert.False(t, p.HeldPercentInstitutions.Valid)
}

func TestTwelveDataFetcher_SortsAscending(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		w.Write([]byte(`{"meta":{"symbol":"SNDL"},"status":"ok","values":[
		  {"datetime":"2024-06-05","open":"1.30","high":"1.40","low":"1.25","close":"1.35","volume":"3000"},
		  {"datetime":"2024-06-04","open":"1.20","high":"1.25","low":"1.15","close":"1.22","volume":"2000"},
		  {"datetime":"2024-06-03","open":"1.10","high":"1.15","low":"1.05","close":"1.12","volume":"1000"}]}`))
	}))
	defer srv.Close()

	f := NewTwelveDataFetcher("secret", "")
	f.BaseURL = srv.URL
	bars, err := f.FetchBars(context.Background(), "sndl", model.ScreenWindow)
	require.NoError(t, err)

	assert.Equal(t, "SNDL", query["symbol"])
	assert.Equal(t, "1day", query["interval"])
	assert.Equal(t, "63", query["outputsize"])
	assert.Equal(t, "secret", query["apikey"])

	require.Len(t, bars, 3)
	assert.Equal(t, []float64{1.12, 1.22, 1.35}, model.Closes(bars))
	assert.Equal(t, []float64{1000, 2000, 3000}, model.Volumes(bars))
	assert.Equal(t, time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC), bars[0].Time)
}

func TestTwelveDataFetcher_Errors(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		isNoData bool
	}{
		{"unknown symbol", `{"code":400,"message":"**symbol** not found: ZZZZ","status":"error"}`, true},
		{"empty values", `{"status":"ok","values":[]}`, true},
		{"rate limited", `{"code":429,"message":"You have run out of API credits","status":"error"}`, false},
		{"bad number", `{"status":"ok","values":[{"datetime":"2024-06-03","open":"x","high":"1","low":"1","close":"1","volume":"1"}]}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.payload))
			}))
			defer srv.Close()

			f := NewTwelveDataFetcher("k", "")
			f.BaseURL = srv.URL
			_, err := f.FetchBars(context.Background(), "ZZZZ", model.ScreenWindow)
			require.Error(t, err)
			assert.Equal(t, tt.isNoData, errors.Is(err, ErrNoData))
		})
	}
}

func TestOutputSize(t *testing.T) {
	assert.Equal(t, MinLength+5, outputSize(model.Window{Range: "1mo", Interval: "1d"}))
	assert.Equal(t, 252, outputSize(model.ReportWindow))
	assert.Equal(t, 21, MinLength)
}
