package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"

	"github.com/pdok/alerttiles/tile"
)

// Dir reads tiles from the local file system. Pattern is a path template with
// {z}, {x} and {y} placeholders, e.g. "tiles/{z}/{x}/{y}.png".
type Dir struct {
	Pattern string
}

func (d Dir) Fetch(ctx context.Context, a tile.Address) (*image.NRGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := a.Format(d.Pattern)
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}
