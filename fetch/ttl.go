package fetch

import (
	"context"
	"image"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pdok/alerttiles/tile"
)

// TTL remembers fetched tiles for a while, so zooming back and forth does not
// go back to the source. Failures are not remembered.
type TTL struct {
	next  Fetcher
	tiles *gocache.Cache
}

func NewTTL(next Fetcher, ttl time.Duration) *TTL {
	return &TTL{
		next:  next,
		tiles: gocache.New(ttl, 2*ttl),
	}
}

func (t *TTL) Fetch(ctx context.Context, a tile.Address) (*image.NRGBA, error) {
	if hit, ok := t.tiles.Get(a.Key()); ok {
		return hit.(*image.NRGBA), nil
	}
	img, err := t.next.Fetch(ctx, a)
	if err != nil {
		return nil, err
	}
	t.tiles.SetDefault(a.Key(), img)
	return img, nil
}

// Flush forgets every remembered tile.
func (t *TTL) Flush() {
	t.tiles.Flush()
}
