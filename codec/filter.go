package codec

import (
	"image"

	"github.com/pdok/alerttiles/mathhelp"
)

// ConfidenceSet is a set of confidence values, bit c set means confidence c is included.
type ConfidenceSet uint8

const (
	Unconfirmed ConfidenceSet = 1 << 0
	Confirmed   ConfidenceSet = 1 << 1
	AllLevels                 = Unconfirmed | Confirmed
)

// LevelAll is the confidence level that shows unconfirmed and confirmed alerts.
const LevelAll = "all"

// ConfidenceLevel maps a confidence level name to a set: "all" is {0,1}, anything else {1}.
func ConfidenceLevel(level string) ConfidenceSet {
	if level == LevelAll {
		return AllLevels
	}
	return Confirmed
}

// Has reports whether confidence c is in the set.
func (s ConfidenceSet) Has(c int) bool {
	if c < 0 || c > 1 {
		return false
	}
	return s&(1<<c) != 0
}

func (s ConfidenceSet) String() string {
	switch s {
	case AllLevels:
		return "{0,1}"
	case Confirmed:
		return "{1}"
	case Unconfirmed:
		return "{0}"
	default:
		return "{}"
	}
}

// FilterParams select which pixels are visible. They are not validated:
// MinDate > MaxDate or an empty confidence set simply shows nothing.
type FilterParams struct {
	MinDate    int
	MaxDate    int
	Confidence ConfidenceSet
}

// Visible reports whether a decoded pixel passes the filter.
func (p FilterParams) Visible(px Pixel) bool {
	return !px.Artifact &&
		mathhelp.BetweenInc(px.Date, p.MinDate, p.MaxDate) &&
		p.Confidence.Has(px.Confidence)
}

// FilterBuffer writes the display version of the raw pixels in src to dst.
// Both are 4 bytes per pixel (RGBA order, alpha of src ignored) and dst must be
// at least as long as src. dst and src may be the same slice, but filtering a
// buffer that was already filtered destroys the encoding: always filter from raw.
func FilterBuffer(dst, src []byte, p FilterParams) {
	if len(src) == 0 {
		return
	}
	_ = dst[len(src)-1]
	for i := 0; i+3 < len(src); i += 4 {
		px := Decode(src[i], src[i+1], src[i+2])
		if p.Visible(px) {
			dst[i] = Highlight[0]
			dst[i+1] = Highlight[1]
			dst[i+2] = Highlight[2]
			dst[i+3] = px.Intensity
			continue
		}
		dst[i], dst[i+1], dst[i+2], dst[i+3] = 0, 0, 0, 0
	}
}

// Filter returns a newly allocated display buffer for src.
func Filter(src []byte, p FilterParams) []byte {
	dst := make([]byte, len(src))
	if len(src) > 0 {
		FilterBuffer(dst, src, p)
	}
	return dst
}

// FilterImage filters a raw tile into a new image of the same bounds.
func FilterImage(raw *image.NRGBA, p FilterParams) *image.NRGBA {
	out := image.NewNRGBA(raw.Rect)
	FilterInto(out, raw, p)
	return out
}

// FilterInto filters raw into dst, which must have the same bounds.
func FilterInto(dst, raw *image.NRGBA, p FilterParams) {
	if raw.Stride == dst.Stride && len(raw.Pix) > 0 {
		FilterBuffer(dst.Pix, raw.Pix, p)
		return
	}
	w := raw.Rect.Dx() * 4
	for y := 0; y < raw.Rect.Dy(); y++ {
		src := raw.Pix[y*raw.Stride : y*raw.Stride+w]
		if w > 0 {
			FilterBuffer(dst.Pix[y*dst.Stride:y*dst.Stride+w], src, p)
		}
	}
}
