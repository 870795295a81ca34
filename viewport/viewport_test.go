package viewport

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/go-spatial/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/alerttiles/fetch"
	"github.com/pdok/alerttiles/layer"
	"github.com/pdok/alerttiles/pyramid"
	"github.com/pdok/alerttiles/tile"
)

type recorder struct {
	events []string
	views  []layer.View
}

func (r *recorder) OnExtentChanged(view layer.View) {
	r.events = append(r.events, "extent")
	r.views = append(r.views, view)
}
func (r *recorder) OnPan(delta image.Point)    { r.events = append(r.events, "pan "+delta.String()) }
func (r *recorder) OnPanEnd(delta image.Point) { r.events = append(r.events, "panEnd "+delta.String()) }
func (r *recorder) OnZoomStart()               { r.events = append(r.events, "zoomStart") }

func TestProjectUnproject(t *testing.T) {
	tests := []geom.Point{{0, 0}, {113.763, 0.334}, {-180, maxLat}, {5.1, 52.09}}
	for _, p := range tests {
		t.Run(fmt.Sprint(p), func(t *testing.T) {
			back := Unproject(Project(p))
			assert.InDelta(t, p.X(), back.X(), 1e-9)
			assert.InDelta(t, p.Y(), back.Y(), 1e-9)
		})
	}
	assert.InDelta(t, pyramid.WebMercatorHalfSize, Project(geom.Point{180, 0}).X(), 1e-6)
	assert.InDelta(t, pyramid.WebMercatorHalfSize, Project(geom.Point{0, maxLat}).Y(), 1)
}

func TestViewport_View(t *testing.T) {
	v := New(geom.Point{0, 0}, 0, 256, 256)
	view := v.View()
	assert.Equal(t, 0, view.Zoom)
	assert.InDelta(t, 2*pyramid.WebMercatorHalfSize/256, view.Resolution, 1e-9)
	for i, want := range []float64{-pyramid.WebMercatorHalfSize, -pyramid.WebMercatorHalfSize, pyramid.WebMercatorHalfSize, pyramid.WebMercatorHalfSize} {
		assert.InDelta(t, want, view.Extent[i], 1e-6)
	}

	assert.Equal(t, image.Pt(0, 0), v.ToScreen(geom.Point{-180, maxLat}))
	assert.Equal(t, image.Pt(128, 128), v.ToScreen(geom.Point{0, 0}))
	assert.Equal(t, image.Pt(256, 256), v.ToScreen(geom.Point{180, -maxLat}))
}

func TestViewport_Pan(t *testing.T) {
	v := New(geom.Point{0, 0}, 1, 256, 256)
	r := &recorder{}
	v.Subscribe(r)
	before := v.ToScreen(geom.Point{10, 10})

	v.Pan(image.Pt(64, 0))

	assert.Equal(t, []string{"pan (64,0)", "panEnd (64,0)", "extent"}, r.events)
	assert.InDelta(t, -45, v.Center().X(), 1e-9)
	assert.InDelta(t, 0, v.Center().Y(), 1e-9)
	assert.Equal(t, before.Add(image.Pt(64, 0)), v.ToScreen(geom.Point{10, 10}))
	assert.Equal(t, v.View(), r.views[0])
}

func TestViewport_ZoomTo(t *testing.T) {
	v := New(geom.Point{113.763, 0.334}, 7, 512, 512)
	r := &recorder{}
	v.Subscribe(r)

	v.ZoomTo(8)
	assert.Equal(t, []string{"zoomStart", "extent"}, r.events)
	assert.Equal(t, 8, v.Zoom())
	assert.Equal(t, 8, r.views[0].Zoom)

	v.Refresh()
	assert.Equal(t, []string{"zoomStart", "extent", "extent"}, r.events)
}

func TestViewport_withLayer(t *testing.T) {
	raw := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 3; i < len(raw.Pix); i += 4 {
		raw.Pix[i] = 0xff
	}
	raw.SetNRGBA(0, 0, color.NRGBA{R: 1, G: 10, B: 101, A: 255})
	fetcher := fetch.FetcherFunc(func(_ context.Context, _ tile.Address) (*image.NRGBA, error) {
		return raw, nil
	})

	l, err := layer.New(fetcher, layer.Options{ID: "glad"})
	require.NoError(t, err)
	v := New(geom.Point{0, 0}, 1, 256, 256)
	require.NoError(t, l.Attach(v))
	v.Subscribe(l)

	v.Refresh()
	l.Wait()

	require.Len(t, v.Canvases(), 1)
	c := v.Canvases()[0]
	assert.Equal(t, 4, c.Len())
	at, ok := c.Position(tile.Address{Col: 1, Row: 1, Zoom: 1}.Key())
	require.True(t, ok)
	assert.Equal(t, image.Pt(128, 128), at)

	img := v.Flatten()
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A, "tile 0/0/0 starts off screen")
	assert.Equal(t, uint8(50), img.NRGBAAt(128, 128).A)
	assert.Equal(t, uint8(0), img.NRGBAAt(129, 128).A)

	v.Pan(image.Pt(10, 20))
	l.Wait()
	at, _ = c.Position(tile.Address{Col: 1, Row: 1, Zoom: 1}.Key())
	assert.Equal(t, image.Pt(138, 148), at)
	assert.Equal(t, uint8(50), v.Flatten().NRGBAAt(138, 148).A)
}
