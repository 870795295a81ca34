package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/perimeterx/marshmallow"

	"github.com/pdok/alerttiles/codec"
)

var (
	//go:embed presets/*.json
	embeddedPresetsFS    embed.FS
	embeddedPresetsCache = make(map[string]*Preset)
	embeddedPresetsMu    sync.Mutex
)

// Preset is a named alert data set: where its tiles live and how it is shown initially.
type Preset struct {
	ID          string `validate:"required" json:"id"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	URLTemplate string `validate:"required" json:"urlTemplate"`
	MaxZoom     int    `default:"12" validate:"min=0,max=30" json:"maxZoom"`
	// Confidence is a level name, see codec.ConfidenceLevel. Read from the "confidence" array.
	Confidence string `json:"-"`
	// MinDate and MaxDate are YYDDD dates. Read from "dateRange".
	MinDate int `default:"15000" json:"-"`
	MaxDate int `default:"16365" json:"-"`
}

// PresetIDs lists the embedded presets.
func PresetIDs() ([]string, error) {
	entries, err := embeddedPresetsFS.ReadDir("presets")
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, strings.TrimSuffix(e.Name(), path.Ext(e.Name())))
	}
	sort.Strings(ids)
	return ids, nil
}

func LoadEmbeddedPreset(id string) (Preset, error) {
	embeddedPresetsMu.Lock()
	defer embeddedPresetsMu.Unlock()
	if cached, ok := embeddedPresetsCache[id]; ok {
		return *cached, nil
	}
	var p Preset
	data, err := embeddedPresetsFS.ReadFile("presets/" + id + ".json")
	if err != nil {
		return p, fmt.Errorf("unknown preset %q: %w", id, err)
	}
	if err = json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("preset %q: %w", id, err)
	}
	embeddedPresetsCache[id] = &p
	return p, nil
}

func (p *Preset) UnmarshalJSON(data []byte) error {
	err := defaults.Set(p)
	if err != nil {
		return err
	}

	specials, err := marshmallow.Unmarshal(data, p, marshmallow.WithExcludeKnownFieldsFromMap(true))
	if err != nil {
		return err
	}

	p.Confidence = codec.LevelAll
	if rawConfidence, ok := specials["confidence"]; ok {
		p.Confidence, err = unmarshalConfidence(rawConfidence)
		if err != nil {
			return err
		}
	}

	if rawDateRange, ok := specials["dateRange"]; ok {
		p.MinDate, p.MaxDate, err = unmarshalDateRange(rawDateRange)
		if err != nil {
			return err
		}
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	return validate.Struct(p)
}

// unmarshalConfidence accepts a level name or a list of confidence values (0 and/or 1).
func unmarshalConfidence(raw interface{}) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []interface{}:
		for _, c := range v {
			n, ok := c.(float64)
			if !ok {
				return "", fmt.Errorf(`"confidence" values should be numbers, not %T`, c)
			}
			if n == 0 {
				return codec.LevelAll, nil
			}
		}
		return "confirmed", nil
	}
	return "", fmt.Errorf(`"confidence" should be a string or an array, not %T`, raw)
}

func unmarshalDateRange(raw interface{}) (minDate, maxDate int, err error) {
	rawMap, ok := raw.(map[string]interface{})
	if !ok {
		return 0, 0, fmt.Errorf(`"dateRange" should be an object`)
	}
	minDate, err = unmarshalDate(rawMap, "min")
	if err != nil {
		return 0, 0, err
	}
	maxDate, err = unmarshalDate(rawMap, "max")
	return minDate, maxDate, err
}

// unmarshalDate reads a YYDDD number or a YYYY-MM-DD string.
func unmarshalDate(m map[string]interface{}, key string) (int, error) {
	raw, ok := m[key]
	if !ok {
		return 0, fmt.Errorf(`"dateRange" is missing %q`, key)
	}
	switch v := raw.(type) {
	case float64:
		return int(v), nil
	case string:
		t, err := time.Parse(time.DateOnly, v)
		if err != nil {
			return 0, fmt.Errorf(`"dateRange" %s: %w`, key, err)
		}
		return codec.TimeToJulian(t), nil
	}
	return 0, fmt.Errorf(`"dateRange" %s should be a number or a date, not %T`, key, raw)
}

// Apply copies the preset into the layer and source settings of cfg.
func (p Preset) Apply(cfg *Config) {
	cfg.Preset = p.ID
	cfg.Layer.ID = p.ID
	cfg.Layer.MaxZoom = p.MaxZoom
	cfg.Layer.Confidence = p.Confidence
	cfg.Layer.MinDate = p.MinDate
	cfg.Layer.MaxDate = p.MaxDate
	cfg.Source.HTTP.URLTemplate = p.URLTemplate
}
