// Package fetch retrieves raw alert tiles from a tile source.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register jpeg tiles
	_ "image/png"  // register png tiles
	"io"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register webp tiles

	"github.com/pdok/alerttiles/tile"
)

var (
	// ErrNotFound means the source has no tile at the requested address.
	ErrNotFound = errors.New("tile not found")
	// ErrStatus wraps unexpected responses of a remote source.
	ErrStatus = errors.New("unexpected response")
)

// Fetcher retrieves the raw pixels of one tile. The returned image is opaque
// and its bounds start at (0, 0). Implementations must be safe for concurrent use.
type Fetcher interface {
	Fetch(ctx context.Context, a tile.Address) (*image.NRGBA, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, a tile.Address) (*image.NRGBA, error)

func (f FetcherFunc) Fetch(ctx context.Context, a tile.Address) (*image.NRGBA, error) {
	return f(ctx, a)
}

// Decode reads a png, jpeg or webp tile.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("could not decode tile: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("empty %s tile", format)
	}
	return Normalize(img), nil
}

// DecodeBytes is Decode for an in-memory tile.
func DecodeBytes(data []byte) (*image.NRGBA, error) {
	return Decode(bytes.NewReader(data))
}

// Normalize copies img into a new NRGBA image anchored at (0, 0) and forces every
// pixel opaque. Alert tiles carry their payload in RGB only, so whatever alpha the
// source had is meaningless.
func Normalize(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		for y := 0; y < b.Dy(); y++ {
			i := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+4*b.Dx()], src.Pix[i:i+4*b.Dx()])
		}
	} else {
		draw.Copy(dst, image.Point{}, img, b, draw.Src, nil)
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}
