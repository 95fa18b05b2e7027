// Package webpenc encodes stored image variants as lossy WebP through libwebp.
package webpenc

import (
	"fmt"
	"image"
	"io"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
)

// Encoder implements media.Encoder.
type Encoder struct {
	options *encoder.Options
}

// New returns an encoder using the default lossy preset at the given quality (1-100).
func New(quality int) (*Encoder, error) {
	options, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
	if err != nil {
		return nil, fmt.Errorf("error creating webp encoder options: %w", err)
	}
	return &Encoder{options: options}, nil
}

func (e *Encoder) Encode(w io.Writer, img image.Image) error {
	if err := webp.Encode(w, img, e.options); err != nil {
		return fmt.Errorf("error encoding image to webp: %w", err)
	}
	return nil
}
