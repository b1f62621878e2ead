package agents

import (
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"github.com/stonezone/surfcastai/internal/bundle"
	"github.com/stonezone/surfcastai/internal/config"
)

// WaveModelAgent fetches WW3 wave-model output from PacIOOS ERDDAP,
// preferring a Hawaiian-bbox grid and falling back to the global grid.
// ERDDAP responses come in two CSV shapes, distinguished by header
// signature: a legacy NOMADS-style point file, and a gridded aggregation
// with one row per (time, lat, lon) cell.
type WaveModelAgent struct {
	cfg  config.DataSourceConfig
	deps deps
}

// NewWaveModelAgent builds a WaveModelAgent.
func NewWaveModelAgent(cfg config.DataSourceConfig, d Deps) *WaveModelAgent {
	return &WaveModelAgent{cfg: cfg, deps: d.internal()}
}

func (a *WaveModelAgent) Name() string { return "wavemodel" }

func (a *WaveModelAgent) Collect(ctx context.Context, b *bundle.Bundle) (Result, error) {
	res := Result{Agent: a.Name()}

	for i, url := range a.cfg.URLTemplates {
		data, err := a.deps.fetcher.Fetch(ctx, url, a.deps.maxWait)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("endpoint %d: %v", i, err))
			continue
		}

		cells, err := parseERDDAPCSV(data)
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("endpoint %d parse: %v", i, err))
			continue
		}

		agg := aggregateGridCells(cells)
		path, err := writeFile(b, a.Name(), fmt.Sprintf("grid_%d.csv", i), data)
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, path)

		summaryPath, err := writeFile(b, a.Name(), fmt.Sprintf("grid_%d_summary.txt", i), []byte(agg.String()))
		if err != nil {
			return res, err
		}
		res.Files = append(res.Files, summaryPath)

		if i > 0 {
			res.FallbackUsed = true
		}
		return res, nil
	}

	return res, nil
}

// gridCell is one (time, lat, lon) sample from a gridded ERDDAP response.
type gridCell struct {
	heightM     float64
	periodS     float64
	directionDg float64
}

// gridAggregate summarizes a set of grid cells to the per-time scalars
// fusion needs: mean height, max height, min height, and a mean
// period/direction.
type gridAggregate struct {
	meanHeightM, maxHeightM, minHeightM float64
	meanPeriodS, meanDirectionDeg       float64
	sampleCount                         int
}

func (g gridAggregate) String() string {
	return fmt.Sprintf("mean_height_m=%.2f max_height_m=%.2f min_height_m=%.2f mean_period_s=%.2f mean_direction_deg=%.1f n=%d\n",
		g.meanHeightM, g.maxHeightM, g.minHeightM, g.meanPeriodS, g.meanDirectionDeg, g.sampleCount)
}

func aggregateGridCells(cells []gridCell) gridAggregate {
	if len(cells) == 0 {
		return gridAggregate{}
	}

	agg := gridAggregate{minHeightM: cells[0].heightM, maxHeightM: cells[0].heightM}
	var sumHeight, sumPeriod, sumDir float64

	for _, c := range cells {
		sumHeight += c.heightM
		sumPeriod += c.periodS
		sumDir += c.directionDg
		if c.heightM > agg.maxHeightM {
			agg.maxHeightM = c.heightM
		}
		if c.heightM < agg.minHeightM {
			agg.minHeightM = c.heightM
		}
	}

	n := float64(len(cells))
	agg.meanHeightM = sumHeight / n
	agg.meanPeriodS = sumPeriod / n
	agg.meanDirectionDeg = sumDir / n
	agg.sampleCount = len(cells)
	return agg
}

// parseERDDAPCSV detects the response shape by header signature and
// parses accordingly. Both shapes carry wave height/period/direction,
// but the gridded shape additionally carries latitude/longitude columns
// per row.
func parseERDDAPCSV(data []byte) ([]gridCell, error) {
	r := csv.NewReader(strings.NewReader(string(data)))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("csv has no data rows")
	}

	header := rows[0]
	// ERDDAP gridded aggregations carry a units row directly beneath the
	// header (e.g. "UTC", "degrees_north", "m"); the legacy NOMADS shape
	// does not, and its header directly precedes numeric rows.
	dataRows := rows[1:]
	if looksLikeUnitsRow(rows[1]) {
		dataRows = rows[2:]
	}

	idx := columnIndex(header)
	if idx.height < 0 || idx.period < 0 {
		return nil, fmt.Errorf("missing required wave-height/period columns in header %v", header)
	}

	var cells []gridCell
	for _, row := range dataRows {
		if len(row) <= idx.height || len(row) <= idx.period {
			continue
		}
		height, err := strconv.ParseFloat(strings.TrimSpace(row[idx.height]), 64)
		if err != nil {
			continue
		}
		period, err := strconv.ParseFloat(strings.TrimSpace(row[idx.period]), 64)
		if err != nil {
			continue
		}
		var direction float64
		if idx.direction >= 0 && len(row) > idx.direction {
			direction, _ = strconv.ParseFloat(strings.TrimSpace(row[idx.direction]), 64)
		}
		cells = append(cells, gridCell{heightM: height, periodS: period, directionDg: direction})
	}

	if len(cells) == 0 {
		return nil, fmt.Errorf("no parseable data rows")
	}
	return cells, nil
}

func looksLikeUnitsRow(row []string) bool {
	for _, cell := range row {
		if _, err := strconv.ParseFloat(strings.TrimSpace(cell), 64); err == nil {
			return false
		}
	}
	return true
}

type columnIndices struct {
	height, period, direction int
}

func columnIndex(header []string) columnIndices {
	idx := columnIndices{height: -1, period: -1, direction: -1}
	for i, col := range header {
		switch {
		case strings.Contains(col, "Thgt") || strings.Contains(col, "wave_height"):
			idx.height = i
		case strings.Contains(col, "Tper") || strings.Contains(col, "wave_period"):
			idx.period = i
		case strings.Contains(col, "Tdir") || strings.Contains(col, "wave_direction"):
			idx.direction = i
		}
	}
	return idx
}
