// Package buoyfetch implements the validation-only NDBC ingestion path
// (spec §4.12, C12). It is deliberately independent of internal/agents:
// production collection and after-the-fact validation have different
// failure tolerances and schedules, and spec §4.12 calls out that this
// independence is intentional, not an oversight.
package buoyfetch

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// CourtesyRateLimit is the 0.5 req/s ceiling spec §4.12 asks for, well
// under NDBC's own published limits, applied out of courtesy rather
// than necessity.
const CourtesyRateLimit = 0.5

const metersToFeet = 3.28084

// missingTokens mirrors the NDBC null markers used across realtime2
// text products.
var missingTokens = map[string]bool{"MM": true, "99.0": true, "999.0": true, "999": true}

// Reading is one validation-ready buoy observation.
type Reading struct {
	BuoyID          string
	ObservationTime string
	WaveHeightFt    float64
	DominantPeriodS float64
	DirectionDeg    float64
	HasDirection    bool
	Source          string
}

// Fetcher is the subset of *fetch.Fetcher this package needs. Declared
// locally rather than importing internal/agents' interface, to keep
// this package's dependency surface independent per spec §4.12.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string, maxWait time.Duration) ([]byte, error)
}

// Client fetches and parses NDBC realtime2 standard meteorological data
// for validation, rate-limited to CourtesyRateLimit requests/second.
type Client struct {
	fetcher Fetcher
	limiter *rate.Limiter
	maxWait time.Duration
}

// NewClient builds a Client with its own independent rate limiter.
func NewClient(fetcher Fetcher, maxWait time.Duration) *Client {
	return &Client{
		fetcher: fetcher,
		limiter: rate.NewLimiter(rate.Limit(CourtesyRateLimit), 1),
		maxWait: maxWait,
	}
}

// stationURL builds the realtime2 standard meteorological data URL.
func stationURL(stationID string) string {
	return fmt.Sprintf("https://www.ndbc.noaa.gov/data/realtime2/%s.txt", stationID)
}

// FetchStation fetches and parses one station's realtime2 data, returning
// only readings whose observation time falls within [since, until].
func (c *Client) FetchStation(ctx context.Context, stationID string, since, until time.Time) ([]Reading, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("buoyfetch rate limiter wait: %w", err)
	}

	body, err := c.fetcher.Fetch(ctx, stationURL(stationID), c.maxWait)
	if err != nil {
		return nil, fmt.Errorf("fetch station %s: %w", stationID, err)
	}

	all := ParseReadings(stationID, body)

	var filtered []Reading
	for _, r := range all {
		t, err := time.Parse(time.RFC3339, r.ObservationTime)
		if err != nil {
			continue
		}
		if t.Before(since) || t.After(until) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered, nil
}

// ParseReadings parses NDBC's standard meteorological data format:
// a "#"-prefixed header row naming columns, then fixed-width-by-field
// data rows. WVHT/DPD/MWD columns are meters/seconds/degrees-true; this
// function converts height to feet per spec §4.12. Exported so the
// orchestrator's process stage can reuse it against buoy .txt files
// already sitting in a bundle, rather than duplicating this format's
// parsing rules.
func ParseReadings(stationID string, data []byte) []Reading {
	scanner := bufio.NewScanner(strings.NewReader(string(data)))

	var header []string
	var readings []Reading
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if header == nil {
				header = strings.Fields(strings.TrimPrefix(line, "#"))
			}
			continue
		}
		if header == nil {
			continue
		}
		if r, ok := parseReadingRow(stationID, line, header); ok {
			readings = append(readings, r)
		}
	}
	return readings
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func parseReadingRow(stationID, line string, header []string) (Reading, bool) {
	fields := strings.Fields(line)
	if len(fields) < len(header) {
		return Reading{}, false
	}

	get := func(name string) (string, bool) {
		idx := columnIndex(header, name)
		if idx < 0 || idx >= len(fields) {
			return "", false
		}
		return fields[idx], true
	}

	ts, ok := timestampFromFields(fields, header)
	if !ok {
		return Reading{}, false
	}

	wvhtM, ok := floatField(get, "WVHT")
	if !ok {
		return Reading{}, false
	}

	r := Reading{
		BuoyID:          stationID,
		ObservationTime: ts,
		WaveHeightFt:    wvhtM * metersToFeet,
		Source:          "NDBC",
	}
	if dpd, ok := floatField(get, "DPD"); ok {
		r.DominantPeriodS = dpd
	}
	if mwd, ok := floatField(get, "MWD"); ok {
		r.DirectionDeg = mwd
		r.HasDirection = true
	}
	return r, true
}

func timestampFromFields(fields, header []string) (string, bool) {
	cols := []string{"YY", "MM", "DD", "hh", "mm"}
	idxs := make([]int, len(cols))
	for i, c := range cols {
		idx := columnIndex(header, c)
		if idx < 0 || idx >= len(fields) {
			return "", false
		}
		idxs[i] = idx
	}
	year := fields[idxs[0]]
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("%s-%s-%sT%s:%s:00Z", year, fields[idxs[1]], fields[idxs[2]], fields[idxs[3]], fields[idxs[4]]), true
}

func floatField(get func(string) (string, bool), name string) (float64, bool) {
	v, present := get(name)
	if !present || missingTokens[v] {
		return 0, false
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
