package collector

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"SkyrocketScreener/internal/model"
)

// ErrNoData is returned by providers that answered but hold no bars for the symbol.
// It is not a provider failure.
var ErrNoData = errors.New("no data for symbol")

// Indicator lookbacks. MinLength is the shortest series the indicator engine accepts.
const (
	RSIPeriod        = 14
	BollingerPeriod  = 20
	ATRPeriod        = 14
	VolumeLookback   = 10
	BreakoutLookback = 20

	MinLength = max(RSIPeriod, BollingerPeriod, ATRPeriod, VolumeLookback, BreakoutLookback) + 1
)

// Fetcher fetches OHLCV history for one symbol.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol string, w model.Window) ([]model.OHLCV, error)
	Name() string
}

// ProfileFetcher fetches the short-interest and ownership profile of a symbol.
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, symbol string) (*model.TickerProfile, error)
	Name() string
}

func newHTTPClient(proxyURL string) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   30 * time.Second,
		Transport: transport,
	}
}
