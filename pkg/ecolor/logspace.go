package ecolor

import (
	"fmt"
	"sort"
)

// Two separate tables, deliberately not merged: several log spaces
// share a working gamut but are encoded with different curves, and a
// log space's name is not always the name of its curve.
var (
	// LogToWorkingSpace maps a log space to the linear gamut it encodes.
	LogToWorkingSpace = map[string]string{
		"F-Log":       FGamut,
		"F-Log2":      FGamut,
		"F-Log2C":     FGamutC,
		"V-Log":       VGamut,
		"N-Log":       NGamut,
		"L-Log":       BT2020,
		"Canon Log 2": CinemaGamut,
		"Canon Log 3": CinemaGamut,
		"S-Log3":      SGamut3,
		"S-Log3.Cine": SGamut3Cine,
		"Arri LogC3":  ARRIWideGamut3,
		"Arri LogC4":  ARRIWideGamut4,
		"Log3G10":     REDWideGamutRGB,
		"D-Log":       DJIDGamut,
	}

	// LogEncodingMap names the transfer curve for log spaces whose
	// curve isn't simply the log space's own name.
	LogEncodingMap = map[string]string{
		"S-Log3.Cine": "S-Log3",
		"F-Log2C":     "F-Log2",
	}
)

// WorkingSpaceFor returns the gamut that the log space expects its
// linear input to be in.
func WorkingSpaceFor(logSpace string) (Colorspace, error) {
	name, exists := LogToWorkingSpace[logSpace]
	if !exists {
		return Colorspace{}, fmt.Errorf("no log space named '%s'", logSpace)
	}
	return Lookup(name)
}

// EncodingCurveFor returns the name of the transfer curve for the log
// space; it falls back to the log space's own name.
func EncodingCurveFor(logSpace string) string {
	if curve, exists := LogEncodingMap[logSpace]; exists {
		return curve
	}
	return logSpace
}

func IsLogSpace(name string) bool {
	_, exists := LogToWorkingSpace[name]
	return exists
}

func ListLogSpaces() []string {
	names := []string{}
	for name := range LogToWorkingSpace {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
