package fetch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/pdok/alerttiles/tile"
)

// MBTiles reads tiles from an MBTiles (sqlite) file. MBTiles stores rows
// bottom-up (TMS), addresses are flipped on lookup.
type MBTiles struct {
	db *sql.DB
}

func OpenMBTiles(path string) (*MBTiles, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, fmt.Errorf("could not open mbtiles %s: %w", path, err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not open mbtiles %s: %w", path, err)
	}
	return &MBTiles{db: db}, nil
}

func (m *MBTiles) Fetch(ctx context.Context, a tile.Address) (*image.NRGBA, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: %s is outside the pyramid", ErrNotFound, a)
	}
	tmsRow := (1 << a.Zoom) - 1 - a.Row
	var data []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?`,
		a.Zoom, a.Col, tmsRow).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, a)
	}
	if err != nil {
		return nil, fmt.Errorf("reading tile %s: %w", a, err)
	}
	img, err := DecodeBytes(data)
	if err != nil {
		return nil, fmt.Errorf("tile %s: %w", a, err)
	}
	return img, nil
}

func (m *MBTiles) Close() error {
	return m.db.Close()
}
