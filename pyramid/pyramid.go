// Package pyramid maps map extents onto tile addresses of a square power-of-two
// tile pyramid with its origin in the top left corner (Web Mercator style).
package pyramid

import (
	"math"

	"github.com/go-spatial/geom"

	"github.com/pdok/alerttiles/mathhelp"
	"github.com/pdok/alerttiles/tile"
)

const (
	// WebMercatorHalfSize is half the width of the Web Mercator world, in meters.
	WebMercatorHalfSize = 20037508.34
	DefaultTileSize     = 256
)

// Grid holds the parameters of the pyramid. Resolutions (map units per pixel) are
// supplied per call, they come from the host map.
type Grid struct {
	OriginX  float64 `default:"-20037508.34" json:"originX" koanf:"originX"`
	OriginY  float64 `default:"20037508.34" json:"originY" koanf:"originY"`
	TileSize int     `default:"256" validate:"min=1" json:"tileSize" koanf:"tileSize"`
}

// WebMercator is the grid used by slippy maps.
var WebMercator = Grid{
	OriginX:  -WebMercatorHalfSize,
	OriginY:  WebMercatorHalfSize,
	TileSize: DefaultTileSize,
}

// Row is the tile row containing y. Rows grow downwards from the origin,
// so the smallest row of an extent comes from its maxY.
func (g Grid) Row(y, resolution float64) int {
	sizeInMapUnits := float64(g.TileSize) * resolution
	return int(math.Floor((g.OriginY - y) / sizeInMapUnits))
}

// Col is the tile column containing x.
func (g Grid) Col(x, resolution float64) int {
	sizeInMapUnits := float64(g.TileSize) * resolution
	return int(math.Floor((x - g.OriginX) / sizeInMapUnits))
}

// Covering returns the rectangle of tiles at zoom covering extent, using the
// host's resolution for that zoom level.
func (g Grid) Covering(extent geom.Extent, zoom int, resolution float64) Range {
	return Range{
		ColMin: g.Col(extent.MinX(), resolution),
		RowMin: g.Row(extent.MaxY(), resolution),
		ColMax: g.Col(extent.MaxX(), resolution),
		RowMax: g.Row(extent.MinY(), resolution),
		Zoom:   zoom,
	}
}

// TopLeftNative is the top left corner of a tile in map units.
func (g Grid) TopLeftNative(a tile.Address, resolution float64) geom.Point {
	sizeInMapUnits := float64(g.TileSize) * resolution
	return geom.Point{
		g.OriginX + float64(a.Col)*sizeInMapUnits,
		g.OriginY - float64(a.Row)*sizeInMapUnits,
	}
}

// Resolution is the Web Mercator resolution at a zoom level for this tile size.
func (g Grid) Resolution(zoom int) float64 {
	return 2 * WebMercatorHalfSize / (float64(g.TileSize) * float64(mathhelp.Pow2(zoom)))
}

// TopLeftLonLat is the longitude/latitude of the top left corner of a tile.
func TopLeftLonLat(a tile.Address) geom.Point {
	n := float64(mathhelp.Pow2(a.Zoom))
	lon := float64(a.Col)/n*360 - 180
	y := math.Pi - 2*math.Pi*float64(a.Row)/n
	lat := 180 / math.Pi * math.Atan(math.Sinh(y))
	return geom.Point{lon, lat}
}
