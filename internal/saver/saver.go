package saver

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"SkyrocketScreener/internal/model"
)

// Saver writes rows in one file format.
type Saver interface {
	Save(rows []Row, path string) error
	Extension() string
}

// New returns the saver for format (csv, json, parquet), or nil if unsupported.
func New(format string) Saver {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "csv", "":
		return CSVSaver{}
	case "json":
		return JSONSaver{}
	case "parquet":
		return ParquetSaver{}
	default:
		return nil
	}
}

// BaseName is the artifact name for a timeframe, without extension.
func BaseName(tf model.Timeframe) string {
	return "skyrocket_candidates_" + string(tf)
}

// Path is where Write puts the artifact for tf.
func Path(dir string, tf model.Timeframe, s Saver) string {
	return filepath.Join(dir, BaseName(tf)+"."+s.Extension())
}

// Write saves the candidates to dir and returns the file path. Nothing is written for
// an empty result and the returned path is empty.
func Write(s Saver, dir string, tf model.Timeframe, cands []model.Candidate) (string, error) {
	if len(cands) == 0 {
		return "", nil
	}
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}
	path := Path(dir, tf, s)
	if err := s.Save(Rows(cands), path); err != nil {
		return "", fmt.Errorf("save %s: %w", path, err)
	}
	return path, nil
}

// CSVSaver writes a header row followed by one line per candidate.
type CSVSaver struct{}

func (CSVSaver) Extension() string { return "csv" }

func (CSVSaver) Save(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)

	if err := w.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write(r.fields()); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

// JSONSaver writes an indented array.
type JSONSaver struct{}

func (JSONSaver) Extension() string { return "json" }

func (JSONSaver) Save(rows []Row, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return err
	}
	return f.Close()
}

// ParquetSaver writes a parquet file with one string column per artifact column
// (score is int64).
type ParquetSaver struct{}

func (ParquetSaver) Extension() string { return "parquet" }

func (ParquetSaver) Save(rows []Row, path string) error {
	return parquet.WriteFile(path, rows)
}

// ReadTickers returns the ticker column of an artifact in file order.
func ReadTickers(path string) ([]string, error) {
	rows, err := ReadRows(path)
	if err != nil {
		return nil, err
	}
	tickers := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Ticker != "" {
			tickers = append(tickers, r.Ticker)
		}
	}
	return tickers, nil
}

// ReadRows loads an artifact back into rows. The format is taken from the extension.
func ReadRows(path string) ([]Row, error) {
	var rows []Row
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSVRows(path)
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
	case ".parquet":
		var err error
		if rows, err = parquet.ReadFile[Row](path); err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported artifact %q", path)
	}
	return rows, nil
}

func (r *Row) set(col, v string) {
	switch col {
	case "ticker":
		r.Ticker = v
	case "price":
		r.Price = v
	case "score":
		r.Score, _ = strconv.ParseInt(v, 10, 64)
	case "timeframe":
		r.Timeframe = v
	case "criteria":
		r.Criteria = v
	case "rsi":
		r.RSI = v
	case "volume_surge":
		r.VolumeSurge = v
	case "breakout":
		r.Breakout = v
	case "bb_squeeze":
		r.BBSqueeze = v
	case "atr_percent":
		r.ATRPercent = v
	case "short_int_pct":
		r.ShortIntPct = v
	case "short_ratio":
		r.ShortRatio = v
	case "catalyst_proxy":
		r.CatalystProxy = v
	case "momentum_6m":
		r.Momentum6m = v
	case "sharpe_ratio":
		r.SharpeRatio = v
	case "inst_own_pct":
		r.InstOwnPct = v
	}
}

func readCSVRows(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, errors.New("artifact is empty")
	}
	header := make([]string, len(records[0]))
	hasTicker := false
	for i, h := range records[0] {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		hasTicker = hasTicker || header[i] == "ticker"
	}
	if !hasTicker {
		return nil, fmt.Errorf("%s has no ticker column", path)
	}
	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		var row Row
		for i, v := range rec {
			if i < len(header) {
				row.set(header[i], strings.TrimSpace(v))
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
