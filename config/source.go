package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdok/alerttiles/fetch"
)

const (
	SourceHTTP    = "http"
	SourceMBTiles = "mbtiles"
	SourceDir     = "dir"
)

// Source selects where tiles are fetched from.
type Source struct {
	Type string           `default:"http" validate:"oneof=http mbtiles dir" json:"type" koanf:"type"`
	HTTP fetch.HTTPConfig `json:"http" koanf:"http"`
	// Path is the MBTiles file or the {z}/{x}/{y} path pattern of a tile directory.
	Path string `validate:"required_unless=Type http" json:"path" koanf:"path"`
	// CacheTTL keeps fetched tiles in memory for a while, 0 disables it.
	CacheTTL time.Duration `default:"5m" validate:"min=0" json:"cacheTTL" koanf:"cacheTTL"`
}

// Fetcher builds the configured fetcher. closeFn releases its resources.
func (s Source) Fetcher(log zerolog.Logger) (f fetch.Fetcher, closeFn func() error, err error) {
	closeFn = func() error { return nil }
	switch s.Type {
	case SourceHTTP:
		f, err = fetch.NewHTTP(s.HTTP, fetch.WithLogger(log))
	case SourceMBTiles:
		var m *fetch.MBTiles
		if m, err = fetch.OpenMBTiles(s.Path); err == nil {
			f, closeFn = m, m.Close
		}
	case SourceDir:
		f = fetch.Dir{Pattern: s.Path}
	default:
		err = fmt.Errorf("unknown source type %q", s.Type)
	}
	if err != nil {
		return nil, closeFn, err
	}
	if s.CacheTTL > 0 {
		f = fetch.NewTTL(f, s.CacheTTL)
	}
	return f, closeFn, nil
}
