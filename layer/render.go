package layer

import (
	"image"

	"golang.org/x/image/draw"

	"github.com/pdok/alerttiles/codec"
)

// render produces the surface of a tile: raw pixels magnified by scale (without
// smoothing, so encoded values survive) and then filtered.
func render(raw *image.NRGBA, p codec.FilterParams, scale int) *image.NRGBA {
	if scale <= 1 {
		return codec.FilterImage(raw, p)
	}
	return codec.FilterImage(magnify(raw, scale), p)
}

func magnify(src *image.NRGBA, scale int) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}
