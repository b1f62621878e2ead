// Package fusion implements data fusion (C7): merging buoy, wave-model,
// marine-forecast, and storm-arrival inputs into a FusedForecast, with
// shore direction-band mapping, Hawaiian-scale conversion, and trend
// computation.
package fusion

import "github.com/stonezone/surfcastai/internal/domain"

// directionBand is an inclusive degree range a shore accepts swell from.
// Wrapping ranges (where lo > hi) span through 360/0.
type directionBand struct {
	lo, hi float64
}

func (b directionBand) contains(deg float64) bool {
	deg = domain.NormalizeDirection(deg)
	if b.lo <= b.hi {
		return deg >= b.lo && deg <= b.hi
	}
	return deg >= b.lo || deg <= b.hi
}

// shoreBands are the candidate swell direction bands per spec §4.7.
// West is documented only as "NW-wrap set"; taken here as the
// northwest-quadrant wrap immediately counterclockwise of the North
// band, since Hawaiian west shores pick up the trailing edge of
// north-northwest groundswell.
var shoreBands = map[domain.Shore]directionBand{
	domain.ShoreNorth: {lo: 310, hi: 40},
	domain.ShoreSouth: {lo: 150, hi: 210},
	domain.ShoreEast:  {lo: 60, hi: 90},
	domain.ShoreWest:  {lo: 280, hi: 310},
}

// ShoresAccepting returns every shore whose direction band contains
// directionDeg, in AllShores order. An event matching no shore is still
// retained in the overall event list by the caller; it is simply
// excluded from every ShoreForecast.
func ShoresAccepting(directionDeg float64) []domain.Shore {
	var matched []domain.Shore
	for _, shore := range domain.AllShores {
		if shoreBands[shore].contains(directionDeg) {
			matched = append(matched, shore)
		}
	}
	return matched
}
