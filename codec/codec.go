// Package codec decodes the per-pixel alert encoding of GLAD style tiles and
// turns raw tile pixels into display pixels for a date range and confidence filter.
//
// Each pixel packs three values into its RGB channels:
//
//	red*255 + green  number of days since the start of 2015
//	blue             three decimal digits "cii": c is confidence+1, ii the raw intensity
//
// The encoding is lossy: resampled tiles can carry blue values below 100, which
// leaves the confidence digit at 0. Such pixels are decoded but never shown.
package codec

const (
	daysPerYear   = 365
	baseYear      = 15 // two digit year of day 0
	intensityStep = 50
)

// Highlight is the color of a visible alert pixel.
var Highlight = [3]uint8{220, 102, 153}

// Pixel is a decoded alert pixel.
type Pixel struct {
	// Date in YYDDD form, e.g. 16045.
	Date int
	// Confidence is 0 (unconfirmed) or 1 (confirmed).
	Confidence int
	// Intensity is the alpha the pixel is drawn with.
	Intensity uint8
	// Artifact is set when the confidence digit was missing (blue < 100).
	Artifact bool
}

// Decode recovers date, confidence and intensity from an RGB triple.
// It is total: every input yields a Pixel with Confidence in {0,1}.
func Decode(r, g, b uint8) Pixel {
	totalDays := int(r)*255 + int(g)
	year := (totalDays/daysPerYear + baseYear) * 1000
	date := year + totalDays%daysPerYear

	// the blue channel as three zero padded decimal digits
	band3 := int(b)
	confidenceDigit := band3 / 100
	rawIntensity := band3 % 100

	p := Pixel{
		Date:      date,
		Intensity: uint8(min(rawIntensity*intensityStep, 255)),
	}
	switch confidenceDigit {
	case 0:
		p.Artifact = true
	default:
		p.Confidence = confidenceDigit - 1
	}
	return p
}

// Encode is the inverse of Decode for valid inputs: a date between 15000 and the
// last representable day, confidence 0 or 1 and a raw intensity 0..55.
// Intensities above 55 do not fit the blue channel and are clamped.
func Encode(date, confidence, rawIntensity int) (r, g, b uint8) {
	totalDays := (date/1000-baseYear)*daysPerYear + date%1000
	r = uint8(totalDays / 255)
	g = uint8(totalDays % 255)
	b = uint8((confidence+1)*100 + min(max(rawIntensity, 0), 55))
	return r, g, b
}
