// Package domain models the data-fusion entities that flow through the
// SurfCastAI forecasting pipeline: scalar wave trains (SwellComponent),
// spectral decompositions (SpectralAnalysisResult), storm observations
// (StormInfo), fused per-shore predictions (ShoreForecast), and the
// handoff artifact consumed by the external narrative layer
// (FusedForecast).
//
// # Units
//
// Heights are stored in meters internally and converted to feet only at
// the Hawaiian-scale boundary (see the fusion package). Periods are in
// seconds, directions in degrees 0–360 meteorological (the direction the
// wave or wind is coming FROM), always normalized via [NormalizeDirection].
//
// # Immutability
//
// Entities built during a single fusion run (SwellComponent, StormInfo,
// ShoreForecast, FusedForecast) are immutable after construction:
// constructors validate and normalize; callers should not mutate fields of
// a value once returned.
package domain
