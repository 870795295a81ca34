package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdok/alerttiles/codec"
	"github.com/pdok/alerttiles/fetch"
)

func TestLoadEmbeddedPreset(t *testing.T) {
	tests := []struct {
		id         string
		confidence string
		minDate    int
		maxDate    int
	}{
		{id: "glad", confidence: codec.LevelAll, minDate: 15000, maxDate: 16365},
		{id: "glad-confirmed-2016", confidence: "confirmed", minDate: 16001, maxDate: 16366},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got, err := LoadEmbeddedPreset(tt.id)
			require.NoErrorf(t, err, "LoadEmbeddedPreset() error = %v", err)
			assert.Equal(t, tt.id, got.ID)
			assert.Equal(t, tt.confidence, got.Confidence)
			assert.Equal(t, tt.minDate, got.MinDate)
			assert.Equal(t, tt.maxDate, got.MaxDate)
			assert.Equal(t, 12, got.MaxZoom)
			assert.Equal(t, "http://wri-tiles.s3.amazonaws.com/glad_test/test2/{z}/{x}/{y}.png", got.URLTemplate)
		})
	}

	_, err := LoadEmbeddedPreset("nope")
	assert.Error(t, err)
}

func TestPresetIDs(t *testing.T) {
	ids, err := PresetIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"glad", "glad-confirmed-2016"}, ids)
}

func TestPreset_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		want    Preset
		wantErr bool
	}{
		{
			name: "defaults",
			json: `{"id": "x", "urlTemplate": "http://tiles/{z}/{x}/{y}.png"}`,
			want: Preset{ID: "x", URLTemplate: "http://tiles/{z}/{x}/{y}.png", MaxZoom: 12,
				Confidence: codec.LevelAll, MinDate: 15000, MaxDate: 16365},
		},
		{
			name: "named level",
			json: `{"id": "x", "urlTemplate": "u", "confidence": "confirmed", "maxZoom": 9}`,
			want: Preset{ID: "x", URLTemplate: "u", MaxZoom: 9,
				Confidence: "confirmed", MinDate: 15000, MaxDate: 16365},
		},
		{
			name:    "missing id",
			json:    `{"urlTemplate": "u"}`,
			wantErr: true,
		},
		{
			name:    "confidence of the wrong type",
			json:    `{"id": "x", "urlTemplate": "u", "confidence": 1}`,
			wantErr: true,
		},
		{
			name:    "incomplete date range",
			json:    `{"id": "x", "urlTemplate": "u", "dateRange": {"min": 15000}}`,
			wantErr: true,
		},
		{
			name:    "bad date",
			json:    `{"id": "x", "urlTemplate": "u", "dateRange": {"min": "yesterday", "max": 16000}}`,
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Preset
			err := json.Unmarshal([]byte(tt.json), &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default("")
	require.NoError(t, err)
	assert.Equal(t, SourceHTTP, cfg.Source.Type)
	assert.Equal(t, 5*time.Minute, cfg.Source.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.Source.HTTP.Timeout)
	assert.Equal(t, 12, cfg.Layer.MaxZoom)
	assert.Equal(t, 15000, cfg.Layer.MinDate)
	assert.Equal(t, "info", cfg.Logging.Level)
	require.NoError(t, cfg.Validate())

	cfg, err = Default("glad-confirmed-2016")
	require.NoError(t, err)
	assert.Equal(t, "glad-confirmed-2016", cfg.Layer.ID)
	assert.Equal(t, "confirmed", cfg.Layer.Confidence)
	assert.Equal(t, 16001, cfg.Layer.MinDate)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerttiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
layer:
  maxZoom: 10
source:
  type: dir
  path: /srv/tiles/{z}/{x}/{y}.png
  cacheTTL: 0s
logging:
  format: json
`), 0o600))
	t.Setenv("ALERTTILES_LOGGING_LEVEL", "debug")
	t.Setenv("ALERTTILES_LAYER_MIN_DATE", "16000")

	cfg, err := Load(path, "glad")
	require.NoError(t, err)
	assert.Equal(t, "glad", cfg.Preset)
	assert.Equal(t, "glad", cfg.Layer.ID)
	assert.Equal(t, 10, cfg.Layer.MaxZoom)
	assert.Equal(t, 16000, cfg.Layer.MinDate)
	assert.Equal(t, 16365, cfg.Layer.MaxDate)
	assert.Equal(t, SourceDir, cfg.Source.Type)
	assert.Equal(t, "/srv/tiles/{z}/{x}/{y}.png", cfg.Source.Path)
	assert.Equal(t, time.Duration(0), cfg.Source.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 256, cfg.Layer.Grid.TileSize)
}

func TestLoad_invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alerttiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source:\n  type: ftp\n"), 0o600))
	_, err := Load(path, "")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("source:\n  type: mbtiles\n"), 0o600))
	_, err = Load(path, "")
	assert.Error(t, err, "mbtiles needs a path")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)
	_, err = Load("", "unknown-preset")
	assert.Error(t, err)
}

func TestEnvNames(t *testing.T) {
	got := EnvNames([]string{"source.http.urlTemplate", "layer.maxZoom", "source.cacheTTL", "layer.grid.originX"})
	assert.Equal(t, map[string]string{
		"ALERTTILES_SOURCE_HTTP_URL_TEMPLATE": "source.http.urlTemplate",
		"ALERTTILES_LAYER_MAX_ZOOM":           "layer.maxZoom",
		"ALERTTILES_SOURCE_CACHE_TTL":         "source.cacheTTL",
		"ALERTTILES_LAYER_GRID_ORIGIN_X":      "layer.grid.originX",
	}, got)
}

func TestSource_Fetcher(t *testing.T) {
	tests := []struct {
		name    string
		source  Source
		want    interface{}
		wantErr bool
	}{
		{
			name:   "dir",
			source: Source{Type: SourceDir, Path: "tiles/{z}/{x}/{y}.png"},
			want:   fetch.Dir{Pattern: "tiles/{z}/{x}/{y}.png"},
		},
		{
			name:   "dir with ttl",
			source: Source{Type: SourceDir, Path: "tiles/{z}/{x}/{y}.png", CacheTTL: time.Minute},
			want:   &fetch.TTL{},
		},
		{
			name:   "http",
			source: Source{Type: SourceHTTP, HTTP: fetch.HTTPConfig{URLTemplate: "http://localhost/{z}/{x}/{y}.png"}},
			want:   &fetch.HTTP{},
		},
		{
			name:    "unknown",
			source:  Source{Type: "ftp"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, closeFn, err := tt.source.Fetcher(zerolog.Nop())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			defer closeFn()
			assert.IsType(t, tt.want, f)
		})
	}
}

func TestLogging_Logger(t *testing.T) {
	var buf bytes.Buffer
	log := Logging{Level: "warn", Format: "json"}.Logger(&buf)
	log.Info().Msg("hidden")
	log.Warn().Str("tile", "7/104/63").Msg("shown")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "shown", line["message"])
	assert.Equal(t, "7/104/63", line["tile"])
}
