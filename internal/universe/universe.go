// Package universe loads the ordered list of symbols to screen.
package universe

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// NasdaqListedURL is the NASDAQ Trader symbol directory for NASDAQ-listed securities.
const NasdaqListedURL = "https://www.nasdaqtrader.com/dynamic/SymDir/nasdaqlisted.txt"

func clean(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func appendClean(dst []string, syms ...string) []string {
	for _, s := range syms {
		if c := clean(s); c != "" {
			dst = append(dst, c)
		}
	}
	return dst
}

// Parse splits a semicolon separated list. Symbols are trimmed and uppercased, blanks
// dropped; duplicates are kept.
func Parse(list string) []string {
	return appendClean(nil, strings.Split(list, ";")...)
}

// LoadFile reads symbols from a file. JSON files hold either an array of strings or an
// array of objects with a Symbol field; CSV files need a Symbol or ticker column; any
// other file has one symbol per line with # comments.
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var syms []string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		syms, err = parseJSON(data)
	case ".csv":
		syms, err = parseCSV(bytes.NewReader(data))
	default:
		syms, err = parseLines(bytes.NewReader(data))
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return syms, nil
}

func parseJSON(data []byte) ([]string, error) {
	var plain []string
	if err := json.Unmarshal(data, &plain); err == nil {
		return appendClean(nil, plain...), nil
	}
	var listings []map[string]any
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, err
	}
	var out []string
	for _, l := range listings {
		for _, k := range []string{"Symbol", "symbol", "ticker", "Ticker"} {
			if s, ok := l[k].(string); ok {
				out = appendClean(out, s)
				break
			}
		}
	}
	return out, nil
}

func parseCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, err
	}
	col := -1
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "symbol", "ticker":
			col = i
		}
		if col >= 0 {
			break
		}
	}
	if col < 0 {
		return nil, errors.New("no Symbol or ticker column")
	}
	var out []string
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if col < len(rec) {
			out = appendClean(out, rec[col])
		}
	}
}

func parseLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		out = appendClean(out, line)
	}
	return out, sc.Err()
}

// FetchNasdaqListed downloads the NASDAQ Trader pipe-delimited directory and returns
// the symbols of common listings, skipping test issues and the trailer line.
func FetchNasdaqListed(ctx context.Context, client *http.Client, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch listings: status %d", resp.StatusCode)
	}
	return parseNasdaqListed(resp.Body)
}

func parseNasdaqListed(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		return nil, errors.New("listings are empty")
	}
	header := strings.Split(sc.Text(), "|")
	symCol, testCol := -1, -1
	for i, h := range header {
		switch h {
		case "Symbol":
			symCol = i
		case "Test Issue":
			testCol = i
		}
	}
	if symCol < 0 {
		return nil, errors.New("listings have no Symbol column")
	}
	var out []string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "File Creation Time") {
			continue
		}
		f := strings.Split(line, "|")
		if symCol >= len(f) {
			continue
		}
		if testCol >= 0 && testCol < len(f) && f[testCol] == "Y" {
			continue
		}
		out = appendClean(out, f[symCol])
	}
	return out, sc.Err()
}
