package metering

import (
	"fmt"
	"log"
	"sort"
)

// A Strategy is one of the fixed set of auto-exposure algorithms.
type Strategy int

const (
	Average Strategy = iota
	CenterWeighted
	HighlightSafe
	Hybrid
	Matrix
)

var strategyNames = map[Strategy]string{
	Average:        "average",
	CenterWeighted: "center-weighted",
	HighlightSafe:  "highlight-safe",
	Hybrid:         "hybrid",
	Matrix:         "matrix",
}

func (s Strategy) String() string {
	if name, exists := strategyNames[s]; exists {
		return name
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy maps a name onto a Strategy.
func ParseStrategy(name string) (Strategy, error) {
	for s, n := range strategyNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("no metering strategy named '%s' (have: %v)", name, ListStrategies())
}

func ListStrategies() []string {
	names := []string{}
	for _, n := range strategyNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Options tune the metering; the zero value is not useful, start
// from DefaultOptions.
type Options struct {
	TargetGray     float64 // Where the scene's average luminance should land
	PeakCeiling    float64 // hybrid & matrix: max allowed value for the bright percentile after gain
	PeakPercentile float64 // hybrid & matrix: which percentile of channel max counts as "bright"

	Logger   *log.Logger // Where to report decisions; nil means the std logger
	GridDump string      // If set, matrix metering writes its grid as a PNG heatmap here
}

func DefaultOptions() Options {
	return Options{
		TargetGray:     0.18,
		PeakCeiling:    6.0,
		PeakPercentile: 99.0,
	}
}

func (o Options) logf(format string, args ...interface{}) {
	if o.Logger != nil {
		o.Logger.Printf(format, args...)
	} else {
		log.Printf(format, args...)
	}
}
