package layer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/go-spatial/geom"

	"github.com/pdok/alerttiles/pyramid"
	"github.com/pdok/alerttiles/tile"
)

var (
	// date 15265, confidence 0, intensity 50
	unconfirmedAlert = color.NRGBA{R: 1, G: 10, B: 101, A: 255}
	// date 16000, confidence 1, intensity 150
	confirmedAlert = color.NRGBA{R: 1, G: 110, B: 203, A: 255}

	pink50  = color.NRGBA{R: 220, G: 102, B: 153, A: 50}
	pink150 = color.NRGBA{R: 220, G: 102, B: 153, A: 150}
)

// alertTile is a 2x2 raw tile: an unconfirmed alert top left, a confirmed alert
// top right and no alerts in the bottom row.
func alertTile() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	img.SetNRGBA(0, 0, unconfirmedAlert)
	img.SetNRGBA(1, 0, confirmedAlert)
	return img
}

// viewOf returns a view at zoom that exactly covers the given tile rectangle,
// shrunk by a meter so tile borders do not count.
func viewOf(zoom, colMin, rowMin, colMax, rowMax int) View {
	res := pyramid.WebMercator.Resolution(zoom)
	tl := pyramid.WebMercator.TopLeftNative(tile.Address{Col: colMin, Row: rowMin, Zoom: zoom}, res)
	br := pyramid.WebMercator.TopLeftNative(tile.Address{Col: colMax + 1, Row: rowMax + 1, Zoom: zoom}, res)
	return View{
		Extent:     geom.Extent{tl.X() + 1, br.Y() + 1, br.X() - 1, tl.Y() - 1},
		Zoom:       zoom,
		Resolution: res,
	}
}

type fakeHost struct {
	mu           sync.Mutex
	view         View
	containerErr error
	container    *fakeContainer
}

func newFakeHost(view View) *fakeHost {
	return &fakeHost{view: view, container: newFakeContainer()}
}

func (h *fakeHost) View() View {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.view
}

func (h *fakeHost) setView(v View) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.view = v
}

// ToScreen is a plain equirectangular projection, 100 pixels per degree.
func (h *fakeHost) ToScreen(lonLat geom.Point) image.Point {
	return image.Pt(int(math.Round(lonLat.X()*100)), int(math.Round(-lonLat.Y()*100)))
}

func (h *fakeHost) NewContainer() (Container, error) {
	if h.containerErr != nil {
		return nil, h.containerErr
	}
	return h.container, nil
}

type placement struct {
	img *image.NRGBA
	at  image.Point
}

type fakeContainer struct {
	mu          sync.Mutex
	placed      map[string]placement
	puts        int
	translation image.Point
	visible     bool
}

func newFakeContainer() *fakeContainer {
	return &fakeContainer{placed: make(map[string]placement)}
}

func (c *fakeContainer) Put(id string, img image.Image, at image.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed[id] = placement{img: img.(*image.NRGBA), at: at}
	c.puts++
}

func (c *fakeContainer) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.placed, id)
}

func (c *fakeContainer) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.placed = make(map[string]placement)
}

func (c *fakeContainer) Translate(offset image.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.translation = offset
}

func (c *fakeContainer) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = visible
}

func (c *fakeContainer) get(id string) (placement, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.placed[id]
	return p, ok
}

func (c *fakeContainer) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.placed)
}

func (c *fakeContainer) putCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.puts
}

var errUnavailable = errors.New("source unavailable")

// fakeFetcher serves alertTile for every address. Fetches block while the gate
// is closed, and addresses listed in failOnce fail the first time.
type fakeFetcher struct {
	mu       sync.Mutex
	calls    map[tile.Address]int
	failOnce map[tile.Address]bool
	gate     chan struct{}
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		calls:    make(map[tile.Address]int),
		failOnce: make(map[tile.Address]bool),
	}
}

func (f *fakeFetcher) hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

func (f *fakeFetcher) release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	close(f.gate)
	f.gate = nil
}

func (f *fakeFetcher) Fetch(ctx context.Context, a tile.Address) (*image.NRGBA, error) {
	f.mu.Lock()
	f.calls[a]++
	gate := f.gate
	fail := f.failOnce[a]
	delete(f.failOnce, a)
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, errUnavailable
	}
	return alertTile(), nil
}

func (f *fakeFetcher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeFetcher) callsFor(a tile.Address) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[a]
}

func (f *fakeFetcher) addresses() []tile.Address {
	f.mu.Lock()
	defer f.mu.Unlock()
	addrs := make([]tile.Address, 0, len(f.calls))
	for a := range f.calls {
		addrs = append(addrs, a)
	}
	return addrs
}
