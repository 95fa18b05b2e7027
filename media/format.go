package media

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatFileSize renders a byte count for people, e.g. 1536 -> "1.5 KiB".
// Negative values render as "0 B".
func FormatFileSize(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.IBytes(uint64(bytes))
}

// SavingsPercent is the share of the original size saved, rounded to one
// decimal place. Returns 0 when nothing was saved.
func SavingsPercent(originalSize, savings int64) float64 {
	if originalSize <= 0 || savings <= 0 {
		return 0
	}
	return math.Round(float64(savings)/float64(originalSize)*1000) / 10
}
