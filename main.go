package main

import (
	"encoding/json"
	"fmt"
	"image/png"
	"log"
	"os"
	"strings"

	"github.com/carlmjohnson/versioninfo"
	"github.com/go-spatial/geom"
	"github.com/iancoleman/strcase"
	"github.com/muesli/reflow/wordwrap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/pdok/alerttiles/codec"
	"github.com/pdok/alerttiles/config"
	"github.com/pdok/alerttiles/fetch"
	"github.com/pdok/alerttiles/layer"
	"github.com/pdok/alerttiles/mapslicehelp"
	"github.com/pdok/alerttiles/viewport"
)

const CONFIG string = `config`
const PRESET string = `preset`
const CENTER string = `center`
const ZOOM string = `zoom`
const WIDTH string = `width`
const HEIGHT string = `height`
const MINDATE string = `min-date`
const MAXDATE string = `max-date`
const FROM string = `from`
const TO string = `to`
const CONFIDENCE string = `confidence`
const OUTPUT string = `output`
const RGB string = `rgb`
const TILE string = `tile`

func envVars(name string) []string {
	return []string{config.EnvPrefix + strcase.ToScreamingSnake(name)}
}

//nolint:funlen
func main() {
	app := cli.NewApp()
	app.Name = "alerttiles"
	app.Usage = "Render and inspect deforestation alert tiles"
	app.Version = versioninfo.Short()

	filterFlags := []cli.Flag{
		&cli.IntFlag{
			Name:    MINDATE,
			Usage:   "First day of alerts to show, YYDDD. E.g.: 15000",
			EnvVars: envVars(MINDATE),
		},
		&cli.IntFlag{
			Name:    MAXDATE,
			Usage:   "Last day of alerts to show, YYDDD. E.g.: 16365",
			EnvVars: envVars(MAXDATE),
		},
		&cli.Float64Flag{
			Name:  FROM,
			Usage: "First day of alerts as a slider position between 0 (start of 2015) and 2 (end of 2016). Overrides " + MINDATE,
		},
		&cli.Float64Flag{
			Name:  TO,
			Usage: "Last day of alerts as a slider position between 0 and 2. Overrides " + MAXDATE,
		},
		&cli.StringFlag{
			Name:    CONFIDENCE,
			Usage:   `Confidence level, "all" or "confirmed"`,
			EnvVars: envVars(CONFIDENCE),
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "render",
			Usage: "Render the alert layer for a view to a PNG",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:    CONFIG,
					Aliases: []string{"c"},
					Usage:   "YAML config file",
					EnvVars: envVars(CONFIG),
				},
				&cli.StringFlag{
					Name:    PRESET,
					Aliases: []string{"p"},
					Usage:   "ID of a (built-in) preset. E.g.: glad",
					Value:   "glad",
					EnvVars: envVars(PRESET),
				},
				&cli.StringFlag{
					Name:    CENTER,
					Usage:   "Center of the view, JSON array of longitude and latitude. E.g.: [113.763,0.334]",
					Value:   "[113.763,0.334]",
					EnvVars: envVars(CENTER),
				},
				&cli.IntFlag{
					Name:    ZOOM,
					Aliases: []string{"z"},
					Value:   7,
					EnvVars: envVars(ZOOM),
				},
				&cli.IntFlag{
					Name:  WIDTH,
					Value: 1024,
				},
				&cli.IntFlag{
					Name:  HEIGHT,
					Value: 768,
				},
				&cli.StringFlag{
					Name:     OUTPUT,
					Aliases:  []string{"o"},
					Usage:    "Target PNG",
					Required: true,
					EnvVars:  envVars(OUTPUT),
				},
			}, filterFlags...),
			Action: render,
		},
		{
			Name:  "decode",
			Usage: "Decode one encoded pixel",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     RGB,
					Usage:    "JSON array of red, green and blue. E.g.: [1,10,101]",
					Required: true,
				},
			},
			Action: decode,
		},
		{
			Name:  "inspect",
			Usage: "Summarise the alerts in a tile image",
			Flags: append([]cli.Flag{
				&cli.StringFlag{
					Name:     TILE,
					Aliases:  []string{"t"},
					Usage:    "Tile image (png, jpeg or webp)",
					Required: true,
				},
			}, filterFlags...),
			Action: inspect,
		},
		{
			Name:  "presets",
			Usage: "List the built-in presets",
			Action: func(*cli.Context) error {
				ids, err := config.PresetIDs()
				if err != nil {
					return err
				}
				for _, id := range ids {
					p, err := config.LoadEmbeddedPreset(id)
					if err != nil {
						return err
					}
					fmt.Printf("%-24s %s\n", id, p.Title)
				}
				return nil
			},
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

// applyFilterFlags overrides opts with the filter flags that were given.
func applyFilterFlags(c *cli.Context, opts *layer.Options) {
	if c.IsSet(MINDATE) {
		opts.MinDate = c.Int(MINDATE)
	}
	if c.IsSet(MAXDATE) {
		opts.MaxDate = c.Int(MAXDATE)
	}
	if c.IsSet(FROM) {
		opts.MinDate = codec.SliderToJulian(c.Float64(FROM))
	}
	if c.IsSet(TO) {
		opts.MaxDate = codec.SliderToJulian(c.Float64(TO))
	}
	if c.IsSet(CONFIDENCE) {
		opts.Confidence = c.String(CONFIDENCE)
	}
}

func render(c *cli.Context) error {
	cfg, err := config.Load(c.String(CONFIG), c.String(PRESET))
	if err != nil {
		return err
	}
	applyFilterFlags(c, &cfg.Layer)
	logger := cfg.Logging.Logger(os.Stderr)

	var center []float64
	if err = json.Unmarshal([]byte(c.String(CENTER)), &center); err != nil || len(center) != 2 {
		return fmt.Errorf("--%s should be a JSON array of longitude and latitude, not %s", CENTER, c.String(CENTER))
	}

	fetcher, closeFetcher, err := cfg.Source.Fetcher(logger)
	if err != nil {
		return err
	}
	defer closeFetcher()

	l, err := layer.New(fetcher, cfg.Layer, layer.WithLogger(logger))
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	if err = l.RegisterMetrics(reg); err != nil {
		return err
	}

	vp := viewport.New(geom.Point{center[0], center[1]}, c.Int(ZOOM), c.Int(WIDTH), c.Int(HEIGHT))
	if err = l.Attach(vp); err != nil {
		return err
	}
	defer l.Detach()
	vp.Subscribe(l)

	logger.Info().Str("layer", l.ID()).Int("zoom", vp.Zoom()).Stringer("filter", filterString(l.Filter())).Msg("rendering")
	vp.Refresh()
	l.Wait()

	out, err := os.Create(c.String(OUTPUT))
	if err != nil {
		return err
	}
	defer out.Close()
	if err = png.Encode(out, vp.Flatten()); err != nil {
		return err
	}
	logMetrics(logger, reg)
	logger.Info().Str("output", c.String(OUTPUT)).Msg("done")
	return nil
}

type filterString codec.FilterParams

func (f filterString) String() string {
	return fmt.Sprintf("%d..%d confidence %s", f.MinDate, f.MaxDate, f.Confidence)
}

func logMetrics(logger zerolog.Logger, reg *prometheus.Registry) {
	families, err := reg.Gather()
	if err != nil {
		logger.Warn().Err(err).Msg("could not gather metrics")
		return
	}
	e := logger.Info()
	for _, family := range families {
		for _, m := range family.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				e = e.Float64(family.GetName(), m.GetCounter().GetValue())
			case m.GetGauge() != nil:
				e = e.Float64(family.GetName(), m.GetGauge().GetValue())
			}
		}
	}
	e.Msg("metrics")
}

func decode(c *cli.Context) error {
	var rgb []int
	if err := json.Unmarshal([]byte(c.String(RGB)), &rgb); err != nil || len(rgb) != 3 {
		return fmt.Errorf("--%s should be a JSON array of three bytes, not %s", RGB, c.String(RGB))
	}
	for _, v := range rgb {
		if v < 0 || v > 255 {
			return fmt.Errorf("--%s values should be between 0 and 255, not %d", RGB, v)
		}
	}
	px := codec.Decode(uint8(rgb[0]), uint8(rgb[1]), uint8(rgb[2]))
	fmt.Printf("date:       %d (%s)\n", px.Date, codec.JulianToTime(px.Date).Format("2006-01-02"))
	fmt.Printf("confidence: %d\n", px.Confidence)
	fmt.Printf("intensity:  %d\n", px.Intensity)
	if px.Artifact {
		fmt.Println("artifact:   blue band below 100, never shown")
	}
	return nil
}

func inspect(c *cli.Context) error {
	f, err := os.Open(c.String(TILE))
	if err != nil {
		return err
	}
	defer f.Close()
	raw, err := fetch.Decode(f)
	if err != nil {
		return err
	}
	opts := layer.Options{MinDate: 15000, MaxDate: 16365, Confidence: codec.LevelAll}
	applyFilterFlags(c, &opts)
	filter := opts.Filter()

	perDate := make(map[int]int)
	var confidences [2]int
	artifacts, visible := 0, 0
	for i := 0; i+3 < len(raw.Pix); i += 4 {
		px := codec.Decode(raw.Pix[i], raw.Pix[i+1], raw.Pix[i+2])
		if filter.Visible(px) {
			visible++
		}
		if px.Artifact {
			artifacts++
			continue
		}
		if px.Intensity == 0 {
			continue
		}
		perDate[px.Date]++
		confidences[px.Confidence]++
	}

	entries := make([]string, 0, len(perDate))
	for _, d := range mapslicehelp.SortedKeys(perDate) {
		entries = append(entries, fmt.Sprintf("%d:%d", d, perDate[d]))
	}

	b := raw.Bounds()
	fmt.Printf("tile:        %s (%dx%d)\n", c.String(TILE), b.Dx(), b.Dy())
	fmt.Printf("unconfirmed: %d\n", confidences[0])
	fmt.Printf("confirmed:   %d\n", confidences[1])
	fmt.Printf("artifacts:   %d\n", artifacts)
	fmt.Printf("visible:     %d with %s\n", visible, filterString(filter))
	fmt.Println("alerts per date:")
	fmt.Println(wordwrap.String(strings.Join(entries, " "), 78))
	return nil
}
