// Package feedback implements the validation-feedback guidance string
// (spec §4.14, C14): a human-readable context block the external
// narrative layer can prepend to its prompts, derived entirely from
// C13's performance report.
package feedback

import (
	"fmt"
	"strings"

	"github.com/stonezone/surfcastai/internal/validation/analyzer"
)

// Thresholds per spec §4.14's rule table.
const (
	overallMAEThresholdFt        = 2.5
	perShoreOverpredictThreshold = 0.5
	perShoreUnderpredictThreshold = -0.5
	wellCalibratedBiasFt         = 0.3
	wellCalibratedMAEFt          = 1.5
	categoricalAccuracyThreshold = 0.70

	minTotalSamples = 10
)

// Build consumes an analyzer.Report and produces guidance text by
// applying every matching rule in spec §4.14's table. Returns an empty
// string when there isn't enough data to say anything useful, so a
// caller never injects noise into its prompt.
func Build(report analyzer.Report) string {
	if !report.HasData || totalSamples(report) < minTotalSamples {
		return ""
	}

	var lines []string

	if report.Overall.AvgMAE > overallMAEThresholdFt {
		lines = append(lines, "Overall MAE elevated; be conservative.")
	}

	for _, s := range report.PerShore {
		shore := capitalize(s.Shore)
		switch {
		case s.AvgBias > perShoreOverpredictThreshold:
			lines = append(lines, fmt.Sprintf("%s recently overpredicting by %.1f ft; bias down.", shore, s.AvgBias))
		case s.AvgBias < perShoreUnderpredictThreshold:
			lines = append(lines, fmt.Sprintf("%s recently underpredicting; bias up.", shore))
		}
		if absFloat(s.AvgBias) <= wellCalibratedBiasFt && s.AvgMAE < wellCalibratedMAEFt {
			lines = append(lines, fmt.Sprintf("%s well-calibrated; maintain.", shore))
		}
	}

	if report.Overall.CategoricalAccuracy < categoricalAccuracyThreshold {
		lines = append(lines, "Categorical accuracy low; reassess thresholds.")
	}

	return strings.Join(lines, " ")
}

func totalSamples(report analyzer.Report) int {
	return report.Overall.Count
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func absFloat(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
