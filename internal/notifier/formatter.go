package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/recorder"
	"SkyrocketScreener/internal/strategy"
)

// FormatRun renders a run summary with at most topN candidates.
func FormatRun(run *recorder.Run, topN int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚀 <b>Skyrocket Screener</b> | %s\n", run.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Timeframe: %s | Price: $%.2f - $%.2f\n", run.Timeframe, run.MinPrice, run.MaxPrice)
	fmt.Fprintf(&b, "Screened %d tickers in %s\n", run.Universe, run.Duration.Round(time.Second))
	if run.Status != recorder.StatusOK {
		fmt.Fprintf(&b, "⚠️ Run %s, results are partial\n", run.Status)
	}
	b.WriteString("\n")

	if len(run.Candidates) == 0 {
		b.WriteString("No stocks passed the screening criteria.")
		return b.String()
	}

	maxScore := strategy.MaxScore(run.Timeframe)
	fmt.Fprintf(&b, "📈 <b>%d candidates</b>, top %d:\n", len(run.Candidates), min(topN, len(run.Candidates)))
	for i, c := range run.Candidates {
		if i >= topN {
			break
		}
		b.WriteString(formatCandidate(i+1, c, maxScore))
	}
	if run.Artifact != "" {
		fmt.Fprintf(&b, "\nSaved to <code>%s</code>", html.EscapeString(run.Artifact))
	}
	return b.String()
}

func formatCandidate(rank int, c model.Candidate, maxScore int) string {
	price := "N/A"
	if c.Bundle.CurrentPrice.Valid {
		price = fmt.Sprintf("$%.2f", c.Bundle.CurrentPrice.Float64)
	}
	return fmt.Sprintf("%d. <b>%s</b> %s score %d/%d\n   %s\n",
		rank, html.EscapeString(c.Ticker), price, c.Score, maxScore,
		html.EscapeString(strings.Join(c.Criteria, ", ")))
}

// FormatHelp lists the supported bot commands.
func FormatHelp() string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	b.WriteString("• /screen [timeframe] - run a screen now\n")
	b.WriteString("• /last - show the latest results\n")
	b.WriteString("• /help - this message\n\nTimeframes: ")
	names := make([]string, len(model.Timeframes))
	for i, tf := range model.Timeframes {
		names[i] = string(tf)
	}
	b.WriteString(strings.Join(names, ", "))
	return b.String()
}
