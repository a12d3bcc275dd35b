package projector

import (
	"math"
	"strconv"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// FormatBytes renders a size with 1024-based units rounded to two decimals,
// e.g. 1536 -> "1.5 KB". Zero and negative sizes render as "0 B".
func FormatBytes(b int64) string {
	if b <= 0 {
		return "0 B"
	}
	i, div := 0, int64(1)
	for i < len(byteUnits)-1 && b >= div*1024 {
		div *= 1024
		i++
	}
	v := math.Round(float64(b)/float64(div)*100) / 100
	return FormatNumber(v) + " " + byteUnits[i]
}

// FormatNumber renders f without trailing zeros ("12", "12.5").
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Band classifies a used percentage for progress bars.
type Band string

const (
	BandNormal   Band = "normal"
	BandWarning  Band = "warning"
	BandCritical Band = "critical"
)

// UsageBand returns critical above 90%, warning above 70%, else normal.
func UsageBand(percent float64) Band {
	switch {
	case percent > 90:
		return BandCritical
	case percent > 70:
		return BandWarning
	default:
		return BandNormal
	}
}
