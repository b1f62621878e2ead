// Package parser implements the forecast-narrative extractor (spec
// §4.11, C11): regex-based conversion of human-readable forecast
// markdown into structured ForecastPrediction records suitable for
// comparison against actual buoy observations.
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/stonezone/surfcastai/internal/domain"
)

var (
	shoreHeaderRe = regexp.MustCompile(`(?im)^#+\s*(North|South|East|West)\s+Shore\s+Forecast\s*$`)
	dayMarkerRe   = regexp.MustCompile(`(?i)\bDay\s+(\d+)\b|\b([A-Z][a-z]{2})\s+(\d{1,2})\b`)

	heightRangeRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:-|to)\s*(\d+(?:\.\d+)?)\s*(?:ft|feet)`)
	heightSingleRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:ft|feet)`)
	periodRangeRe  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:-|to)\s*(\d+(?:\.\d+)?)\s*(?:sec|seconds?|s)\b`)
	periodSingleRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:sec|seconds?)\b`)
	directionRe    = regexp.MustCompile(`(?i)\b(N|NNE|NE|ENE|E|ESE|SE|SSE|S|SSW|SW|WSW|W|WNW|NW|NNW)\b`)
	categoryRe     = regexp.MustCompile(`(?i)\b(flat|small|fun|good|firing|epic|large|closeout|dangerous)\b`)
)

// ForecastPrediction is one extracted day-level forecast statement for
// one shore, with a confidence score reflecting how many of the
// optional fields the narrative actually provided.
type ForecastPrediction struct {
	Shore        domain.Shore
	Day          string
	HeightMinFt  float64
	HeightMaxFt  float64
	HasHeight    bool
	PeriodS      float64
	HasPeriod    bool
	Direction    string
	HasDirection bool
	Category     string
	HasCategory  bool
	Confidence   float64
	RawText      string
}

// dedupeKey identifies a prediction for deduplication per spec §4.11:
// (shore, day, height_min, height_max).
func (p ForecastPrediction) dedupeKey() string {
	return fmt.Sprintf("%s|%s|%.2f|%.2f", p.Shore, p.Day, p.HeightMinFt, p.HeightMaxFt)
}

// Parse splits narrative into shore sections and extracts one
// ForecastPrediction per day marker found in each section, deduplicated
// by (shore, day, height_min, height_max).
func Parse(narrative string) []ForecastPrediction {
	sections := splitByShoreHeader(narrative)

	seen := make(map[string]bool)
	var out []ForecastPrediction
	for _, sec := range sections {
		for _, block := range splitByDayMarker(sec.body) {
			p := extractPredictionFromBlock(sec.shore, block.day, block.body)
			if p == nil {
				continue
			}
			key := p.dedupeKey()
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, *p)
		}
	}
	return out
}

type shoreSection struct {
	shore domain.Shore
	body  string
}

func splitByShoreHeader(narrative string) []shoreSection {
	matches := shoreHeaderRe.FindAllStringSubmatchIndex(narrative, -1)
	if len(matches) == 0 {
		return nil
	}

	var sections []shoreSection
	for i, m := range matches {
		shoreName := strings.ToLower(narrative[m[2]:m[3]])
		bodyStart := m[1]
		bodyEnd := len(narrative)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		sections = append(sections, shoreSection{
			shore: domain.Shore(shoreName),
			body:  narrative[bodyStart:bodyEnd],
		})
	}
	return sections
}

type dayBlock struct {
	day  string
	body string
}

func splitByDayMarker(section string) []dayBlock {
	matches := dayMarkerRe.FindAllStringSubmatchIndex(section, -1)
	if len(matches) == 0 {
		return nil
	}

	var blocks []dayBlock
	for i, m := range matches {
		day := dayLabel(section, m)
		bodyStart := m[1]
		bodyEnd := len(section)
		if i+1 < len(matches) {
			bodyEnd = matches[i+1][0]
		}
		blocks = append(blocks, dayBlock{day: day, body: section[bodyStart:bodyEnd]})
	}
	return blocks
}

func dayLabel(section string, m []int) string {
	if m[2] != -1 {
		return "Day " + section[m[2]:m[3]]
	}
	return section[m[4]:m[5]] + " " + section[m[6]:m[7]]
}

func extractPredictionFromBlock(shore domain.Shore, day, body string) *ForecastPrediction {
	p := &ForecastPrediction{Shore: shore, Day: day, RawText: strings.TrimSpace(body)}

	if m := heightRangeRe.FindStringSubmatch(body); m != nil {
		p.HeightMinFt = mustFloat(m[1])
		p.HeightMaxFt = mustFloat(m[2])
		p.HasHeight = true
	} else if m := heightSingleRe.FindStringSubmatch(body); m != nil {
		h := mustFloat(m[1])
		p.HeightMinFt, p.HeightMaxFt = h, h
		p.HasHeight = true
	}

	if m := periodRangeRe.FindStringSubmatch(body); m != nil {
		lo, hi := mustFloat(m[1]), mustFloat(m[2])
		p.PeriodS = (lo + hi) / 2
		p.HasPeriod = true
	} else if m := periodSingleRe.FindStringSubmatch(body); m != nil {
		p.PeriodS = mustFloat(m[1])
		p.HasPeriod = true
	}

	if m := directionRe.FindStringSubmatch(body); m != nil {
		p.Direction = strings.ToUpper(m[1])
		p.HasDirection = true
	}

	if m := categoryRe.FindStringSubmatch(body); m != nil {
		p.Category = strings.ToLower(m[1])
		p.HasCategory = true
	}

	p.Confidence = confidenceFor(p)
	return p
}

// confidenceFor implements spec §4.11's additive confidence formula.
func confidenceFor(p *ForecastPrediction) float64 {
	c := 0.5
	if p.HasHeight {
		c += 0.2
	}
	if p.HasPeriod {
		c += 0.15
	}
	if p.HasDirection {
		c += 0.10
	}
	if p.HasCategory {
		c += 0.05
	}
	return c
}

func mustFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
