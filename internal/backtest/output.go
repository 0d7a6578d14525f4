package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// WriteValues writes the daily value curve as CSV.
func WriteValues(res *Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "portfolio", "benchmark"}); err != nil {
		return err
	}
	for _, p := range res.Values {
		if err := w.Write([]string{
			p.Date.Format(DateLayout),
			strconv.FormatFloat(p.Portfolio, 'f', 2, 64),
			strconv.FormatFloat(p.Benchmark, 'f', 2, 64),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// PrintSummary writes a human-readable summary.
func PrintSummary(out io.Writer, res *Result, benchmark string) {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, "%s\n", centered("BACKTEST RESULTS", 60))
	fmt.Fprintln(out, line)
	fmt.Fprintf(out, " Period:                %s to %s\n", res.Start.Format(DateLayout), res.End.Format(DateLayout))
	fmt.Fprintf(out, " Stocks Tested:         %d/%d\n", len(res.Invested), res.Requested)
	fmt.Fprintf(out, " Investment/Stock:      $%.2f\n", res.Investment)
	fmt.Fprintf(out, " Total Investment:      $%.2f\n", res.TotalInvestment)
	fmt.Fprintf(out, " Final Portfolio Value: $%.2f\n", res.FinalValue)
	fmt.Fprintln(out, strings.Repeat("-", 60))
	fmt.Fprintf(out, "  Total Return:     %.2f%%\n", res.TotalReturn*100)
	fmt.Fprintf(out, "  Benchmark Return: %.2f%% (%s)\n", res.BenchmarkReturn*100, benchmark)
	if res.Sharpe.Valid {
		fmt.Fprintf(out, "  Sharpe Ratio:     %.2f\n", res.Sharpe.Float64)
	} else {
		fmt.Fprintf(out, "  Sharpe Ratio:     N/A\n")
	}
	fmt.Fprintf(out, "  Max Drawdown:     %.2f%%\n", res.MaxDrawdown*100)
	fmt.Fprintln(out, line)
}

func centered(s string, width int) string {
	pad := (width - len(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
