// Package domain defines the persistence models and core value types for the
// earthquake notification backend. This file implements the JMA seismic
// intensity scale as an ordinal value type.
package domain

// Intensity is a JMA seismic intensity class, kept verbatim as reported by
// the provider ("0".."4", "5-", "5+", "6-", "6+", "7"). The scale has
// half-step classes at levels 5 and 6, so string or float comparison is
// wrong; use Rank for ordering.
type Intensity string

// IntensityUnknown marks telegrams that carry no observed intensity.
const IntensityUnknown Intensity = "不明"

// intensityRanks maps each class to a strictly increasing rank. The order,
// low to high: 0,1,2,3,4,"5-","5+","6-","6+",7.
var intensityRanks = map[Intensity]int{
	"0":  0,
	"1":  1,
	"2":  2,
	"3":  3,
	"4":  4,
	"5-": 5,
	"5+": 6,
	"6-": 7,
	"6+": 8,
	"7":  9,
}

// Rank returns the ordinal rank of the intensity and whether the value is a
// known class. Unknown or empty intensities rank below every real class.
func (i Intensity) Rank() (int, bool) {
	r, ok := intensityRanks[i]
	if !ok {
		return -1, false
	}
	return r, true
}

// AtLeast reports whether i is a known intensity class greater than or equal
// to min. An unknown observed intensity never satisfies any threshold.
func (i Intensity) AtLeast(min Intensity) bool {
	ri, ok := i.Rank()
	if !ok {
		return false
	}
	rm, ok := min.Rank()
	if !ok {
		return false
	}
	return ri >= rm
}

// Valid reports whether i is one of the ten JMA classes.
func (i Intensity) Valid() bool {
	_, ok := intensityRanks[i]
	return ok
}
