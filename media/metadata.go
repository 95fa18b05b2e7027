package media

import (
	"io"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// ExtractTakenAt returns the EXIF capture time, or nil when the image carries
// no usable EXIF block.
func ExtractTakenAt(r io.Reader) *time.Time {
	x, err := exif.Decode(r)
	if err != nil {
		return nil
	}
	taken, err := x.DateTime()
	if err != nil || taken.IsZero() {
		return nil
	}
	taken = taken.UTC()
	return &taken
}
