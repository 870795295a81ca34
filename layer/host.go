package layer

import (
	"errors"
	"image"

	"github.com/go-spatial/geom"
)

// ErrNoContainer is returned by Attach when the host cannot supply a pixel surface.
var ErrNoContainer = errors.New("host could not provide a container")

// View is what the host map currently shows.
type View struct {
	// Extent in map units (Web Mercator meters).
	Extent geom.Extent
	// Zoom is the host's zoom level.
	Zoom int
	// Resolution in map units per pixel at Zoom.
	Resolution float64
}

// Host is the map widget the layer draws on.
type Host interface {
	View() View
	// ToScreen projects a longitude/latitude to screen pixels.
	ToScreen(lonLat geom.Point) image.Point
	NewContainer() (Container, error)
}

// Container is an addressable pixel surface positioned over the map.
// Tiles are put at offsets within the container; the container itself
// can be translated as a whole.
type Container interface {
	Put(id string, img image.Image, at image.Point)
	Remove(id string)
	Clear()
	Translate(offset image.Point)
	SetVisible(visible bool)
}
