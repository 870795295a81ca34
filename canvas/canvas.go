// Package canvas is an in-memory pixel surface for layers, the headless
// counterpart of the element a map widget would stack over its base map.
package canvas

import (
	"image"
	"sync"

	"github.com/umpc/go-sortedmap"
	"golang.org/x/image/draw"
)

type placed struct {
	id  string
	img image.Image
	at  image.Point
}

// Canvas holds images at offsets within the surface. Images are drawn top to
// bottom, left to right, so overlapping tiles composite deterministically.
// Canvas is safe for concurrent use.
type Canvas struct {
	mu      sync.Mutex
	width   int
	height  int
	images  *sortedmap.SortedMap
	offset  image.Point
	visible bool
}

func New(width, height int) *Canvas {
	return &Canvas{
		width:   width,
		height:  height,
		images:  newDrawOrder(),
		visible: true,
	}
}

func newDrawOrder() *sortedmap.SortedMap {
	return sortedmap.New(16, func(x, y interface{}) bool {
		a, b := x.(placed), y.(placed)
		if a.at.Y != b.at.Y {
			return a.at.Y < b.at.Y
		}
		if a.at.X != b.at.X {
			return a.at.X < b.at.X
		}
		return a.id < b.id
	})
}

// Put places img with its top left corner at at, replacing an image with the same id.
func (c *Canvas) Put(id string, img image.Image, at image.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images.Delete(id)
	c.images.Insert(id, placed{id: id, img: img, at: at})
}

func (c *Canvas) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images.Delete(id)
}

func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.images = newDrawOrder()
}

// Translate moves all images by offset.
func (c *Canvas) Translate(offset image.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = offset
}

func (c *Canvas) SetVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.visible = visible
}

func (c *Canvas) Visible() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visible
}

func (c *Canvas) Offset() image.Point {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offset
}

func (c *Canvas) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.images.Len()
}

// IDs lists the placed images in draw order.
func (c *Canvas) IDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, c.images.Len())
	for _, k := range c.images.Keys() {
		ids = append(ids, k.(string))
	}
	return ids
}

// Position is where the image with id currently shows up, translation included.
func (c *Canvas) Position(id string) (image.Point, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.images.Get(id)
	if !ok {
		return image.Point{}, false
	}
	return v.(placed).at.Add(c.offset), true
}

// Flatten composites all images onto a transparent width x height image.
// A hidden canvas flattens to a fully transparent image.
func (c *Canvas) Flatten() *image.NRGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	dst := image.NewNRGBA(image.Rect(0, 0, c.width, c.height))
	if !c.visible {
		return dst
	}
	images := c.images.Map()
	for _, k := range c.images.Keys() {
		p := images[k].(placed)
		b := p.img.Bounds()
		r := image.Rectangle{Min: p.at.Add(c.offset), Max: p.at.Add(c.offset).Add(b.Size())}
		draw.Draw(dst, r, p.img, b.Min, draw.Over)
	}
	return dst
}

// DrawOver composites the canvas over base, e.g. a rendered base map.
func (c *Canvas) DrawOver(base draw.Image) {
	overlay := c.Flatten()
	draw.Draw(base, base.Bounds(), overlay, image.Point{}, draw.Over)
}
