package fetch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/muesli/reflow/truncate"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/pdok/alerttiles/tile"
)

const maxErrorBody = 120

// HTTPConfig configures a remote XYZ tile source.
type HTTPConfig struct {
	// URLTemplate contains {z}, {x} and {y} placeholders.
	URLTemplate string        `default:"http://wri-tiles.s3.amazonaws.com/glad_test/test2/{z}/{x}/{y}.png" validate:"required,url" json:"urlTemplate" koanf:"urlTemplate"`
	Timeout     time.Duration `default:"10s" validate:"min=0" json:"timeout" koanf:"timeout"`
	// RequestsPerSecond limits the rate of requests, 0 disables the limit.
	RequestsPerSecond float64 `default:"50" validate:"min=0" json:"requestsPerSecond" koanf:"requestsPerSecond"`
	Burst             int     `default:"16" validate:"min=1" json:"burst" koanf:"burst"`
	// FailureThreshold is the number of consecutive failures that opens the circuit breaker.
	FailureThreshold uint32        `default:"5" validate:"min=1" json:"failureThreshold" koanf:"failureThreshold"`
	BreakerTimeout   time.Duration `default:"30s" json:"breakerTimeout" koanf:"breakerTimeout"`
	UserAgent        string        `default:"alerttiles" json:"userAgent" koanf:"userAgent"`
}

// HTTP fetches tiles over http(s).
type HTTP struct {
	cfg     HTTPConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	log     zerolog.Logger
}

type HTTPOption func(*HTTP)

func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTP) { h.client = c }
}

func WithLogger(log zerolog.Logger) HTTPOption {
	return func(h *HTTP) { h.log = log }
}

// NewHTTP applies defaults to the zero fields of cfg, validates it and returns a fetcher.
func NewHTTP(cfg HTTPConfig, opts ...HTTPOption) (*HTTP, error) {
	if err := defaults.Set(&cfg); err != nil {
		return nil, err
	}
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid http source: %w", err)
	}
	h := &HTTP{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Inf, cfg.Burst),
		log:     zerolog.Nop(),
	}
	if cfg.RequestsPerSecond > 0 {
		h.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}
	for _, opt := range opts {
		opt(h)
	}
	h.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tiles " + cfg.URLTemplate,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		// a missing tile is an answer, not an outage
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			h.log.Warn().Str("breaker", name).Stringer("from", from).Stringer("to", to).Msg("circuit breaker changed state")
		},
	})
	return h, nil
}

func (h *HTTP) Fetch(ctx context.Context, a tile.Address) (*image.NRGBA, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	url := a.Format(h.cfg.URLTemplate)
	body, err := h.breaker.Execute(func() ([]byte, error) {
		return h.get(ctx, url)
	})
	if err != nil {
		return nil, fmt.Errorf("fetching tile %s: %w", a, err)
	}
	img, err := DecodeBytes(body)
	if err != nil {
		return nil, fmt.Errorf("tile %s from %s: %w", a, url, err)
	}
	return img, nil
}

func (h *HTTP) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", h.cfg.UserAgent)
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: %s: %s %s", ErrStatus, url, resp.Status,
			truncate.StringWithTail(string(body), maxErrorBody, "..."))
	}
	return body, nil
}
