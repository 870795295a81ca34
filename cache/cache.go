// Package cache holds the decoded tiles of the current zoom epoch.
//
// A Cache is not safe for concurrent use; its owner serialises access.
package cache

import (
	"image"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/pdok/alerttiles/mapslicehelp"
	"github.com/pdok/alerttiles/tile"
)

// NoEpoch is the epoch of a cache that has not been bound to a zoom level yet.
const NoEpoch = -1

// Tile is a fetched tile. Raw holds the pixels as fetched and is never
// written to after the tile has been put in the cache. Rendered is the
// filtered (and possibly magnified) surface that is placed on the screen.
type Tile struct {
	Address  tile.Address
	Raw      *image.NRGBA
	Rendered *image.NRGBA
	Scale    int
	Anchor   image.Point
	Placed   bool
}

type Cache struct {
	tiles      *orderedmap.OrderedMap[string, *Tile]
	epoch      int
	generation uint64
}

func New() *Cache {
	return &Cache{
		tiles: orderedmap.New[string, *Tile](),
		epoch: NoEpoch,
	}
}

func (c *Cache) Get(a tile.Address) (*Tile, bool) {
	return c.tiles.Get(a.Key())
}

func (c *Cache) Has(a tile.Address) bool {
	_, ok := c.tiles.Get(a.Key())
	return ok
}

// Put stores t under its address, replacing an earlier tile for the same address.
func (c *Cache) Put(t *Tile) {
	c.tiles.Set(t.Address.Key(), t)
}

func (c *Cache) Len() int {
	return c.tiles.Len()
}

// Keys lists the keys of the cached tiles in insertion order.
func (c *Cache) Keys() []string {
	return mapslicehelp.OrderedMapKeys(c.tiles)
}

// Placed counts the tiles that are on the screen.
func (c *Cache) Placed() int {
	return mapslicehelp.CountVals(c.tiles, func(t *Tile) bool { return t.Placed })
}

// Each calls fn for every tile in insertion order, stopping when fn returns false.
func (c *Cache) Each(fn func(t *Tile) bool) {
	for pair := c.tiles.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Value) {
			return
		}
	}
}

// InvalidateAll empties the cache, unbinds it from its epoch and starts a new
// generation. The removed tiles are returned so the caller can take their
// surfaces off the screen.
func (c *Cache) InvalidateAll() []*Tile {
	removed := make([]*Tile, 0, c.tiles.Len())
	c.Each(func(t *Tile) bool {
		removed = append(removed, t)
		return true
	})
	c.tiles = orderedmap.New[string, *Tile]()
	c.epoch = NoEpoch
	c.generation++
	return removed
}

// Epoch is the zoom level the cached tiles were fetched for, or NoEpoch.
func (c *Cache) Epoch() int {
	return c.epoch
}

func (c *Cache) SetEpoch(zoom int) {
	c.epoch = zoom
}

// Generation counts invalidations. Work started for an older generation must
// not end up in the cache.
func (c *Cache) Generation() uint64 {
	return c.generation
}
