package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path"
	"regexp"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	_ "golang.org/x/image/webp"

	"github.com/camden-git/beachfinder/logging"
)

const (
	// MaxOriginalWidth caps the width of the stored original-size variant.
	MaxOriginalWidth = 2400

	storedExtension   = ".webp"
	storedContentType = "image/webp"
)

var namespacePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// OptimizedImage describes the variants written by an Optimizer.
type OptimizedImage struct {
	Filename         string     `json:"filename"`
	OriginalFilename string     `json:"original_filename"`
	OriginalFormat   string     `json:"original_format"`
	Width            int        `json:"width"`
	Height           int        `json:"height"`
	OriginalSize     int64      `json:"original_size"`
	OptimizedSize    int64      `json:"optimized_size"`
	SavingsBytes     int64      `json:"savings_bytes"`
	SavingsPercent   float64    `json:"savings_percent"`
	URLs             ImageURLs  `json:"urls"`
	TakenAt          *time.Time `json:"taken_at,omitempty"`
}

// OptimizeError is an Optimize failure. Message is fixed text safe to show
// the uploader; Err keeps the cause, which may name server paths.
type OptimizeError struct {
	Message string
	Err     error
}

func (e *OptimizeError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *OptimizeError) Unwrap() error {
	return e.Err
}

func optimizeError(msg string, err error) *OptimizeError {
	return &OptimizeError{Message: msg, Err: err}
}

// Optimizer re-encodes an uploaded file into stored variants and removes them
// again on request.
type Optimizer interface {
	// Optimize reads srcPath, writes every variant under namespace and returns
	// the result. Failures are *OptimizeError.
	Optimize(ctx context.Context, srcPath, namespace, originalName string) (*OptimizedImage, error)
	// DeleteVariants removes every variant derived from a stored filename.
	DeleteVariants(ctx context.Context, filename string) error
}

// Encoder writes an image in the stored format.
type Encoder interface {
	Encode(w io.Writer, img image.Image) error
}

// Processor is the Optimizer backed by a Store.
type Processor struct {
	store   Store
	encoder Encoder
	baseURL string
}

func NewProcessor(store Store, encoder Encoder, baseURL string) *Processor {
	return &Processor{store: store, encoder: encoder, baseURL: baseURL}
}

func (p *Processor) Optimize(ctx context.Context, srcPath, namespace, originalName string) (*OptimizedImage, error) {
	if !namespacePattern.MatchString(namespace) {
		return nil, optimizeError("Invalid storage namespace", fmt.Errorf("namespace %q", namespace))
	}

	info, err := os.Stat(srcPath)
	if err != nil {
		return nil, optimizeError("Uploaded file could not be read", err)
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return nil, optimizeError("Uploaded file could not be read", err)
	}
	defer src.Close()

	_, format, err := image.DecodeConfig(src)
	if err != nil {
		return nil, optimizeError("Could not decode image", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, optimizeError("Uploaded file could not be read", err)
	}
	takenAt := ExtractTakenAt(src)

	img, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, optimizeError("Could not decode image", err)
	}
	if img.Bounds().Dx() <= 0 || img.Bounds().Dy() <= 0 {
		return nil, optimizeError(fmt.Sprintf("Invalid image dimensions: %dx%d", img.Bounds().Dx(), img.Bounds().Dy()), nil)
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, optimizeError("Failed to process image", err)
	}
	filename := path.Join(namespace, id.String()+storedExtension)

	original := resizeToWidth(img, MaxOriginalWidth)
	written := make([]string, 0, len(Variants)+1)
	cleanup := func() {
		for _, key := range written {
			if err := p.store.Delete(context.WithoutCancel(ctx), key); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("processor: failed to remove partial variant")
			}
		}
	}

	optimizedSize, err := p.writeVariant(ctx, filename, original)
	if err != nil {
		return nil, err
	}
	written = append(written, filename)

	for _, v := range Variants {
		key := VariantKey(filename, v.Name)
		if _, err := p.writeVariant(ctx, key, resizeToWidth(img, v.Width)); err != nil {
			cleanup()
			return nil, err
		}
		written = append(written, key)
	}

	savings := info.Size() - optimizedSize
	if savings < 0 {
		savings = 0
	}

	bounds := original.Bounds()
	logging.Ctx(ctx).Info().
		Str("filename", filename).
		Str("format", format).
		Int64("original_size", info.Size()).
		Int64("optimized_size", optimizedSize).
		Msg("processor: image optimized")

	return &OptimizedImage{
		Filename:         filename,
		OriginalFilename: originalName,
		OriginalFormat:   format,
		Width:            bounds.Dx(),
		Height:           bounds.Dy(),
		OriginalSize:     info.Size(),
		OptimizedSize:    optimizedSize,
		SavingsBytes:     savings,
		SavingsPercent:   SavingsPercent(info.Size(), savings),
		URLs:             BuildImageURLs(p.baseURL, filename),
		TakenAt:          takenAt,
	}, nil
}

func (p *Processor) writeVariant(ctx context.Context, key string, img image.Image) (int64, error) {
	var buf bytes.Buffer
	if err := p.encoder.Encode(&buf, img); err != nil {
		return 0, optimizeError("Image encoding failed", err)
	}
	size := int64(buf.Len())
	if err := p.store.Save(ctx, key, bytes.NewReader(buf.Bytes()), storedContentType); err != nil {
		return 0, optimizeError("Failed to store optimized image", fmt.Errorf("save %s: %w", key, err))
	}
	return size, nil
}

// DeleteVariants removes the original and every size variant. All keys are
// attempted; the joined error reports every failure.
func (p *Processor) DeleteVariants(ctx context.Context, filename string) error {
	var errs []error
	for _, key := range VariantKeys(filename) {
		if err := p.store.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func resizeToWidth(img image.Image, maxWidth int) image.Image {
	if img.Bounds().Dx() <= maxWidth {
		return img
	}
	return imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
}
