// Package layer composes decoded alert tiles into a pixel surface on top of a host map.
//
// A Layer reacts to the host's extent, pan and zoom events. It works out which
// tiles cover the view, fetches the missing ones on their own goroutines and keeps
// the fetched tiles for the current zoom level in a cache, so a filter change
// redraws everything without fetching again.
package layer

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pdok/alerttiles/cache"
	"github.com/pdok/alerttiles/codec"
	"github.com/pdok/alerttiles/fetch"
	"github.com/pdok/alerttiles/mathhelp"
	"github.com/pdok/alerttiles/pyramid"
	"github.com/pdok/alerttiles/tile"
)

type State int

const (
	// Unloaded layers are not attached to a host, they ignore host events.
	Unloaded State = iota
	// Attached layers have a container but no tiles for the current zoom level.
	Attached
	// Populated layers have requested the tiles of their view.
	Populated
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Attached:
		return "attached"
	case Populated:
		return "populated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// request is an in-flight fetch. Its generation is the cache generation the
// result is meant for.
type request struct {
	generation uint64
}

type Layer struct {
	opts    Options
	fetcher fetch.Fetcher
	log     zerolog.Logger
	metrics *metrics
	wg      sync.WaitGroup

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	host      Host
	container Container
	state     State
	visible   bool
	filter    codec.FilterParams
	tiles     *cache.Cache
	inFlight  map[string]*request
	panOffset image.Point
	view      *View
}

type Option func(*Layer)

func WithLogger(log zerolog.Logger) Option {
	return func(l *Layer) { l.log = log }
}

// New creates an unattached layer that gets its tiles from fetcher.
func New(fetcher fetch.Fetcher, opts Options, options ...Option) (*Layer, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("layer needs a fetcher")
	}
	if err := opts.setDefaults(); err != nil {
		return nil, err
	}
	l := &Layer{
		opts:     opts,
		fetcher:  fetcher,
		log:      zerolog.Nop(),
		metrics:  newMetrics(opts.ID),
		visible:  !opts.Hidden,
		filter:   opts.Filter(),
		tiles:    cache.New(),
		inFlight: make(map[string]*request),
	}
	for _, option := range options {
		option(l)
	}
	l.log = l.log.With().Str("layer", opts.ID).Logger()
	return l, nil
}

func (l *Layer) ID() string {
	return l.opts.ID
}

// RegisterMetrics registers the layer's collectors with reg.
func (l *Layer) RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range l.metrics.collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Attach binds the layer to a host. When the host cannot provide a container
// the layer stays unloaded and ignores all events.
func (l *Layer) Attach(host Host) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != Unloaded {
		return fmt.Errorf("layer %s is already attached", l.opts.ID)
	}
	container, err := host.NewContainer()
	if err == nil && container == nil {
		err = ErrNoContainer
	} else if err != nil {
		err = fmt.Errorf("%w: %w", ErrNoContainer, err)
	}
	if err != nil {
		l.log.Error().Err(err).Msg("could not attach layer")
		return err
	}
	l.host = host
	l.container = container
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.state = Attached
	l.panOffset = image.Point{}
	container.Translate(l.panOffset)
	container.SetVisible(l.visible)
	l.log.Debug().Msg("attached")
	return nil
}

// Detach unbinds the layer from its host. In-flight fetches are cancelled and
// their results dropped.
func (l *Layer) Detach() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Unloaded {
		return
	}
	l.cancel()
	l.tiles.InvalidateAll()
	l.metrics.cacheEntries.Set(0)
	l.inFlight = make(map[string]*request)
	l.container.Clear()
	l.host, l.container, l.view = nil, nil, nil
	l.state = Unloaded
	l.log.Debug().Msg("detached")
}

func (l *Layer) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Layer) Visible() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.visible
}

// Filter returns the filter currently applied to the tiles.
func (l *Layer) Filter() codec.FilterParams {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.filter
}

// Wait blocks until every fetch started so far has been handled.
func (l *Layer) Wait() {
	l.wg.Wait()
}

// OnExtentChanged requests the tiles covering view. Cached tiles are placed
// right away, the others are fetched.
func (l *Layer) OnExtentChanged(view View) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Unloaded {
		return
	}
	l.view = &view
	if l.tiles.Epoch() != view.Zoom {
		if l.tiles.Epoch() != cache.NoEpoch {
			// the host zoomed without announcing it
			l.resetLocked()
		}
		l.tiles.SetEpoch(view.Zoom)
	}
	if !l.visible {
		return
	}
	l.requestLocked(view)
	l.log.Debug().Int("zoom", view.Zoom).Int("cached", l.tiles.Len()).Int("placed", l.tiles.Placed()).
		Int("inFlight", len(l.inFlight)).Msg("extent changed")
}

// OnPan moves the surface along while the user drags the map.
func (l *Layer) OnPan(delta image.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Unloaded {
		return
	}
	l.container.Translate(l.panOffset.Add(delta))
}

// OnPanEnd keeps the final drag distance.
func (l *Layer) OnPanEnd(delta image.Point) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Unloaded {
		return
	}
	l.panOffset = l.panOffset.Add(delta)
	l.container.Translate(l.panOffset)
}

// OnZoomStart drops all tiles, they belong to the zoom level being left.
func (l *Layer) OnZoomStart() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Unloaded {
		return
	}
	l.resetLocked()
	l.log.Debug().Uint64("generation", l.tiles.Generation()).Msg("zoom started, cache invalidated")
}

// SetDateRange changes the date window (inclusive, YYDDD) and redraws every
// cached tile. Inverted ranges are accepted and show nothing.
func (l *Layer) SetDateRange(minDate, maxDate int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter.MinDate = minDate
	l.filter.MaxDate = maxDate
	l.redrawLocked()
}

// SetConfidenceLevel switches between "all" alerts and, for any other level,
// confirmed alerts only, and redraws every cached tile.
func (l *Layer) SetConfidenceLevel(level string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter.Confidence = codec.ConfidenceLevel(level)
	l.redrawLocked()
}

// Show makes the layer visible and places the tiles of the host's current view.
func (l *Layer) Show() {
	l.mu.Lock()
	if l.visible {
		l.mu.Unlock()
		return
	}
	l.visible = true
	if l.state == Unloaded {
		l.mu.Unlock()
		return
	}
	l.container.SetVisible(true)
	host := l.host
	l.mu.Unlock()
	// the host is asked outside the lock, it may call back into the layer
	l.OnExtentChanged(host.View())
}

// Hide takes the tiles off the surface. The cache is kept.
func (l *Layer) Hide() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.visible {
		return
	}
	l.visible = false
	if l.state == Unloaded {
		return
	}
	l.container.SetVisible(false)
	l.container.Clear()
	l.tiles.Each(func(t *cache.Tile) bool {
		t.Placed = false
		return true
	})
}

// resetLocked empties cache and container and forgets the pan distance.
func (l *Layer) resetLocked() {
	if e := l.log.Debug(); e.Enabled() {
		e.Strs("tiles", l.tiles.Keys()).Msg("dropping tiles")
	}
	for _, t := range l.tiles.InvalidateAll() {
		if t.Placed {
			l.container.Remove(t.Address.Key())
		}
	}
	l.metrics.cacheEntries.Set(0)
	l.container.Clear()
	l.panOffset = image.Point{}
	l.container.Translate(l.panOffset)
	l.state = Attached
}

func (l *Layer) requestLocked(view View) {
	covering := l.opts.Grid.Covering(view.Extent, view.Zoom, view.Resolution)
	needed, _ := covering.Overflow(l.opts.MaxZoom)
	generation := l.tiles.Generation()
	for _, a := range needed.MortonOrder(needed.Addresses()) {
		if !a.Valid() {
			continue
		}
		if t, ok := l.tiles.Get(a); ok {
			l.metrics.cacheHits.Inc()
			l.placeLocked(t)
			continue
		}
		l.metrics.cacheMisses.Inc()
		if req, ok := l.inFlight[a.Key()]; ok {
			if req.generation != generation {
				req.generation = generation
				l.metrics.fetchesAdopted.Inc()
			}
			continue
		}
		req := &request{generation: generation}
		l.inFlight[a.Key()] = req
		l.metrics.fetchesIssued.Inc()
		l.wg.Add(1)
		go l.fetch(l.ctx, a, req)
	}
	l.state = Populated
}

func (l *Layer) fetch(ctx context.Context, a tile.Address, req *request) {
	defer l.wg.Done()
	raw, err := l.fetcher.Fetch(ctx, a)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inFlight[a.Key()] != req {
		l.metrics.fetchesDropped.Inc()
		return
	}
	delete(l.inFlight, a.Key())
	if err != nil {
		l.metrics.fetchesFailed.Inc()
		l.log.Debug().Err(err).Stringer("tile", a).Msg("fetching tile failed")
		return
	}
	if req.generation != l.tiles.Generation() {
		l.metrics.fetchesDropped.Inc()
		l.log.Debug().Stringer("tile", a).Uint64("generation", req.generation).Msg("discarding tile of an outdated view")
		return
	}
	t := &cache.Tile{Address: a, Raw: raw}
	l.renderLocked(t)
	l.tiles.Put(t)
	l.metrics.cacheEntries.Set(float64(l.tiles.Len()))
	if l.visible {
		l.placeLocked(t)
	}
}

// scaleLocked is the magnification of cached tiles at the current epoch.
func (l *Layer) scaleLocked() int {
	epoch := l.tiles.Epoch()
	if epoch <= l.opts.MaxZoom {
		return 1
	}
	return mathhelp.Pow2(epoch - l.opts.MaxZoom)
}

// renderLocked filters the raw pixels of t into a fresh surface, magnified
// when the view is deeper than the source's max zoom.
func (l *Layer) renderLocked(t *cache.Tile) {
	t.Scale = l.scaleLocked()
	t.Rendered = render(t.Raw, l.filter, t.Scale)
	l.metrics.tilesFiltered.Inc()
}

// placeLocked puts t on the surface at its screen position, compensated for
// the translation the container got from panning.
func (l *Layer) placeLocked(t *cache.Tile) {
	if !l.visible {
		return
	}
	at := l.host.ToScreen(pyramid.TopLeftLonLat(t.Address)).Sub(l.panOffset)
	if t.Placed && t.Anchor == at {
		return
	}
	t.Anchor = at
	t.Placed = true
	l.container.Put(t.Address.Key(), t.Rendered, at)
}

// redrawLocked reapplies the filter to every cached tile. No tile is fetched.
func (l *Layer) redrawLocked() {
	if l.tiles.Len() == 0 {
		return
	}
	l.metrics.redraws.Inc()
	l.tiles.Each(func(t *cache.Tile) bool {
		l.renderLocked(t)
		if t.Placed {
			l.container.Put(t.Address.Key(), t.Rendered, t.Anchor)
		}
		return true
	})
}
