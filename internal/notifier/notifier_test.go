package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SkyrocketScreener/internal/model"
	"SkyrocketScreener/internal/recorder"
)

func newTestNotifier(url string) *TelegramNotifier {
	return &TelegramNotifier{
		BaseURL:  url,
		BotToken: "TOKEN",
		ChatID:   "42",
		Client:   &http.Client{Timeout: 5 * time.Second},
		Backoff:  time.Millisecond,
	}
}

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).Send(context.Background(), "<b>hi</b>"))
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "<b>hi</b>", got["text"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendWithRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	require.NoError(t, newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 3))
	assert.Equal(t, int32(3), calls.Load())
}

func TestSendWithRetry_Exhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newTestNotifier(srv.URL).SendWithRetry(context.Background(), "x", 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 3 attempts failed")
	assert.Contains(t, err.Error(), "status 502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestStartPolling(t *testing.T) {
	var (
		mu      sync.Mutex
		replies []string
		polls   atomic.Int32
	)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/getUpdates":
			if polls.Add(1) == 1 {
				assert.Equal(t, "0", r.URL.Query().Get("offset"))
				w.Write([]byte(`{"ok":true,"result":[
					{"update_id":7,"message":{"text":" /help "}},
					{"update_id":8}
				]}`))
				return
			}
			assert.Equal(t, "9", r.URL.Query().Get("offset"))
			cancel()
			w.Write([]byte(`{"ok":true,"result":[]}`))
		case "/botTOKEN/sendMessage":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			mu.Lock()
			replies = append(replies, body["text"])
			mu.Unlock()
			w.Write([]byte(`{"ok":true}`))
		}
	}))
	defer srv.Close()

	var commands []string
	done := make(chan struct{})
	go func() {
		newTestNotifier(srv.URL).StartPolling(ctx, func(_ context.Context, cmd string) string {
			commands = append(commands, cmd)
			return "reply to " + cmd
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("polling did not stop")
	}
	assert.Equal(t, []string{"/help"}, commands)
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"reply to /help"}, replies)
}

func TestFormatRun(t *testing.T) {
	run := &recorder.Run{
		StartedAt: time.Date(2025, 3, 4, 16, 30, 0, 0, time.UTC),
		Duration:  95 * time.Second,
		Timeframe: model.Timeframe24Hours,
		MinPrice:  0.10,
		MaxPrice:  4.00,
		Universe:  120,
		Status:    recorder.StatusOK,
		Artifact:  "out/skyrocket_candidates_24_hours.csv",
		Candidates: []model.Candidate{
			{Ticker: "AAA", Score: 70, Criteria: []string{"Volume Surge (40)", "Breakout (30)"},
				Bundle: model.Bundle{CurrentPrice: null.FloatFrom(1.5)}},
			{Ticker: "B&B", Score: 40, Criteria: []string{"Volume Surge (40)"}},
		},
	}

	msg := FormatRun(run, 1)
	assert.Contains(t, msg, "2025-03-04 16:30")
	assert.Contains(t, msg, "Price: $0.10 - $4.00")
	assert.Contains(t, msg, "Screened 120 tickers in 1m35s")
	assert.Contains(t, msg, "2 candidates</b>, top 1")
	assert.Contains(t, msg, "1. <b>AAA</b> $1.50 score 70/100")
	assert.Contains(t, msg, "Volume Surge (40), Breakout (30)")
	assert.NotContains(t, msg, "B&amp;B")
	assert.Contains(t, msg, "skyrocket_candidates_24_hours.csv")

	msg = FormatRun(run, 5)
	assert.Contains(t, msg, "2. <b>B&amp;B</b> N/A score 40/100")
}

func TestFormatRun_EmptyAndCancelled(t *testing.T) {
	msg := FormatRun(&recorder.Run{Timeframe: model.Timeframe3Days, Status: recorder.StatusCancelled}, 5)
	assert.Contains(t, msg, "Run cancelled")
	assert.Contains(t, msg, "No stocks passed the screening criteria.")
}

func TestFormatHelp(t *testing.T) {
	msg := FormatHelp()
	assert.Contains(t, msg, "/screen")
	assert.Contains(t, msg, "/last")
	assert.Contains(t, msg, "24_hours, 3_days, 7_days, 2_weeks, 1_month")
}
