// Package report renders screening candidates into a standalone HTML page.
package report

import (
	"context"
	_ "embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/guregu/null/v6"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/saver"
	"SkyrocketScreener/internal/strategy"
)

//go:embed template.html
var pageTemplate string

// TopPicks is how many candidates are highlighted.
const TopPicks = 3

// Source supplies history and profiles for each reported ticker.
type Source interface {
	Fetch(ctx context.Context, symbol string, w model.Window) []model.OHLCV
	Profile(ctx context.Context, symbol string) *model.TickerProfile
}

// Stock is one reported candidate.
type Stock struct {
	saver.Row
	PriceValue null.Float
	Info       model.TickerProfile
	MarketCap  string
	Perf       Performance
	Tech       Technicals
	Score10    int
}

// Page is the template input.
type Page struct {
	Title     string
	Generated string
	Timeframe string
	Strategy  string
	MinPrice  string
	MaxPrice  string
	Stocks    []Stock
	TopPicks  []Stock
	Weights   []strategy.Weight
}

// Options describe the screen the report belongs to.
type Options struct {
	Timeframe model.Timeframe
	MinPrice  float64
	MaxPrice  float64
	Delay     time.Duration // pause between tickers
	Now       time.Time
}

var tmpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"pct":     formatPct,
	"sma":     formatSMA,
	"money":   formatMoney,
	"checked": func(s string) bool { return strings.EqualFold(s, "true") },
}).Parse(pageTemplate))

// Build collects report data for rows. Rows are re-sorted by score, highest first.
func Build(ctx context.Context, src Source, rows []saver.Row, opts Options) (*Page, error) {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.Delay), 1)
	}

	log.Info().Int("stocks", len(rows)).Msg("fetching report data")
	stocks := make([]Stock, 0, len(rows))
	for _, r := range rows {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		stocks = append(stocks, buildStock(ctx, src, r))
	}
	sort.SliceStable(stocks, func(i, j int) bool { return stocks[i].Score > stocks[j].Score })

	page := &Page{
		Title:     fmt.Sprintf("Skyrocket Stocks (%s) Analysis", titleCase(string(opts.Timeframe))),
		Generated: opts.Now.Format("2006-01-02 15:04:05"),
		Timeframe: string(opts.Timeframe),
		MinPrice:  strconv.FormatFloat(opts.MinPrice, 'f', 2, 64),
		MaxPrice:  strconv.FormatFloat(opts.MaxPrice, 'f', 2, 64),
		Stocks:    stocks,
		TopPicks:  stocks[:min(TopPicks, len(stocks))],
	}
	if p, err := strategy.Lookup(opts.Timeframe); err == nil {
		page.Weights = p.Weights()
		page.Strategy = p.Description
	}
	return page, nil
}

func buildStock(ctx context.Context, src Source, r saver.Row) Stock {
	bars := src.Fetch(ctx, r.Ticker, model.ReportWindow)
	s := Stock{
		Row:     r,
		Perf:    CalculatePerformance(bars),
		Tech:    CalculateTechnicals(bars),
		Score10: Score10(r.Score),
	}
	if p := src.Profile(ctx, r.Ticker); p != nil {
		s.Info = *p
	}
	s.MarketCap = FormatMarketCap(s.Info.MarketCap)
	if v, err := strconv.ParseFloat(r.Price, 64); err == nil {
		s.PriceValue = null.FloatFrom(v)
	}
	if len(bars) == 0 {
		log.Warn().Str("symbol", r.Ticker).Msg("no history for report")
	}
	return s
}

// Render writes the page as HTML.
func Render(w io.Writer, page *Page) error {
	return tmpl.Execute(w, page)
}

// Generate reads an artifact and writes the report next to it with an .html extension.
func Generate(ctx context.Context, src Source, artifact string, opts Options) (string, error) {
	rows, err := saver.ReadRows(artifact)
	if err != nil {
		return "", fmt.Errorf("read results: %w", err)
	}
	if len(rows) == 0 {
		log.Warn().Str("path", artifact).Msg("results file has no rows")
	}
	page, err := Build(ctx, src, rows, opts)
	if err != nil {
		return "", err
	}

	out := strings.TrimSuffix(artifact, filepath.Ext(artifact)) + ".html"
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}
	if err := Render(f, page); err != nil {
		f.Close()
		return "", fmt.Errorf("render report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	log.Info().Str("path", out).Int("stocks", len(page.Stocks)).Msg("report generated")
	return out, nil
}

func titleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func formatPct(v null.Float) template.HTML {
	if !v.Valid {
		return "N/A"
	}
	class := "positive"
	if v.Float64 < 0 {
		class = "negative"
	}
	return template.HTML(fmt.Sprintf(`<span class="%s">%+.1f%%</span>`, class, v.Float64))
}

func formatSMA(price, sma null.Float) template.HTML {
	if !price.Valid || !sma.Valid || sma.Float64 == 0 {
		return "N/A"
	}
	diff := (price.Float64 - sma.Float64) / sma.Float64 * 100
	class := "positive"
	if diff < 0 {
		class = "negative"
	}
	return template.HTML(fmt.Sprintf(`<span class="%s">$%.2f (%+.1f%%)</span>`, class, sma.Float64, diff))
}

func formatMoney(v null.Float) string {
	if !v.Valid {
		return saver.NotAvailable
	}
	return fmt.Sprintf("$%.2f", v.Float64)
}
