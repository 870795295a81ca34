package layer

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pdok/alerttiles/codec"
	"github.com/pdok/alerttiles/pyramid"
)

// Options configures a Layer. Zero fields get their default.
type Options struct {
	// ID names the layer in logs and metrics. A random id is generated when empty.
	ID      string `json:"id" koanf:"id"`
	MinDate int    `default:"15000" json:"minDate" koanf:"minDate"`
	MaxDate int    `default:"16365" json:"maxDate" koanf:"maxDate"`
	// Confidence is "all" or any other value for confirmed alerts only.
	Confidence string `default:"all" json:"confidence" koanf:"confidence"`
	// MaxZoom is the deepest zoom level the tile source has. Deeper views magnify tiles of MaxZoom.
	MaxZoom int          `default:"12" validate:"min=0,max=30" json:"maxZoom" koanf:"maxZoom"`
	Hidden  bool         `json:"hidden" koanf:"hidden"`
	Grid    pyramid.Grid `json:"grid" koanf:"grid"`
}

// Filter is the filter the options start the layer with.
func (o Options) Filter() codec.FilterParams {
	return codec.FilterParams{
		MinDate:    o.MinDate,
		MaxDate:    o.MaxDate,
		Confidence: codec.ConfidenceLevel(o.Confidence),
	}
}

func (o *Options) setDefaults() error {
	if err := defaults.Set(o); err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(o); err != nil {
		return fmt.Errorf("invalid layer options: %w", err)
	}
	return nil
}
