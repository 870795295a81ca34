// Package viewport is a headless map host: a Web Mercator view of a given size
// around a center, producing the events a map widget would.
package viewport

import (
	"image"
	"math"
	"sync"

	"github.com/go-spatial/geom"

	"github.com/pdok/alerttiles/canvas"
	"github.com/pdok/alerttiles/layer"
	"github.com/pdok/alerttiles/mathhelp"
	"github.com/pdok/alerttiles/pyramid"
)

// maxLat is the latitude where Web Mercator is cut off.
const maxLat = 85.0511287798

// Listener receives the view events of a Viewport. *layer.Layer is a Listener.
type Listener interface {
	OnExtentChanged(view layer.View)
	OnPan(delta image.Point)
	OnPanEnd(delta image.Point)
	OnZoomStart()
}

// Viewport implements layer.Host.
type Viewport struct {
	mu        sync.Mutex
	center    geom.Point // lon/lat
	zoom      int
	width     int
	height    int
	grid      pyramid.Grid
	listeners []Listener
	canvases  []*canvas.Canvas
}

func New(center geom.Point, zoom, width, height int) *Viewport {
	return &Viewport{
		center: clampLonLat(center),
		zoom:   zoom,
		width:  width,
		height: height,
		grid:   pyramid.WebMercator,
	}
}

// Subscribe adds a listener for pan, zoom and extent events.
func (v *Viewport) Subscribe(l Listener) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, l)
}

func (v *Viewport) Center() geom.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.center
}

func (v *Viewport) Zoom() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.zoom
}

func (v *Viewport) Size() image.Point {
	return image.Pt(v.width, v.height)
}

func (v *Viewport) View() layer.View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewLocked()
}

func (v *Viewport) viewLocked() layer.View {
	res := v.grid.Resolution(v.zoom)
	c := Project(v.center)
	halfW := float64(v.width) / 2 * res
	halfH := float64(v.height) / 2 * res
	return layer.View{
		Extent:     geom.Extent{c.X() - halfW, c.Y() - halfH, c.X() + halfW, c.Y() + halfH},
		Zoom:       v.zoom,
		Resolution: res,
	}
}

// ToScreen maps a lon/lat to pixels from the top left corner of the view.
func (v *Viewport) ToScreen(lonLat geom.Point) image.Point {
	v.mu.Lock()
	defer v.mu.Unlock()
	view := v.viewLocked()
	p := Project(lonLat)
	return image.Pt(
		int(math.Round((p.X()-view.Extent.MinX())/view.Resolution)),
		int(math.Round((view.Extent.MaxY()-p.Y())/view.Resolution)),
	)
}

// NewContainer hands out a canvas the size of the view.
func (v *Viewport) NewContainer() (layer.Container, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c := canvas.New(v.width, v.height)
	v.canvases = append(v.canvases, c)
	return c, nil
}

// Canvases returns the containers handed out, in stacking order.
func (v *Viewport) Canvases() []*canvas.Canvas {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]*canvas.Canvas(nil), v.canvases...)
}

// Refresh announces the current extent, as a map does after loading.
func (v *Viewport) Refresh() {
	view := v.View()
	for _, l := range v.subscribers() {
		l.OnExtentChanged(view)
	}
}

// Pan drags the map by delta screen pixels: content moves with the pointer,
// so the center moves the other way.
func (v *Viewport) Pan(delta image.Point) {
	ls := v.subscribers()
	for _, l := range ls {
		l.OnPan(delta)
	}
	v.mu.Lock()
	res := v.grid.Resolution(v.zoom)
	c := Project(v.center)
	v.center = clampLonLat(Unproject(geom.Point{
		c.X() - float64(delta.X)*res,
		c.Y() + float64(delta.Y)*res,
	}))
	view := v.viewLocked()
	v.mu.Unlock()
	for _, l := range ls {
		l.OnPanEnd(delta)
	}
	for _, l := range ls {
		l.OnExtentChanged(view)
	}
}

// ZoomTo changes the zoom level around the current center.
func (v *Viewport) ZoomTo(zoom int) {
	ls := v.subscribers()
	for _, l := range ls {
		l.OnZoomStart()
	}
	v.mu.Lock()
	v.zoom = zoom
	view := v.viewLocked()
	v.mu.Unlock()
	for _, l := range ls {
		l.OnExtentChanged(view)
	}
}

// Flatten composites all canvases in stacking order.
func (v *Viewport) Flatten() *image.NRGBA {
	dst := image.NewNRGBA(image.Rect(0, 0, v.width, v.height))
	for _, c := range v.Canvases() {
		c.DrawOver(dst)
	}
	return dst
}

func (v *Viewport) subscribers() []Listener {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]Listener(nil), v.listeners...)
}

// Project converts lon/lat degrees to Web Mercator meters.
func Project(lonLat geom.Point) geom.Point {
	x := lonLat.X() * pyramid.WebMercatorHalfSize / 180
	y := math.Log(math.Tan((90+lonLat.Y())*math.Pi/360)) / math.Pi * pyramid.WebMercatorHalfSize
	return geom.Point{x, y}
}

// Unproject converts Web Mercator meters to lon/lat degrees.
func Unproject(p geom.Point) geom.Point {
	lon := p.X() / pyramid.WebMercatorHalfSize * 180
	lat := math.Atan(math.Exp(p.Y()/pyramid.WebMercatorHalfSize*math.Pi))*360/math.Pi - 90
	return geom.Point{lon, lat}
}

func clampLonLat(p geom.Point) geom.Point {
	return geom.Point{
		mathhelp.Clamp(p.X(), -180, 180),
		mathhelp.Clamp(p.Y(), -maxLat, maxLat),
	}
}
