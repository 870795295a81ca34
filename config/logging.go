package config

import (
	"io"

	"github.com/rs/zerolog"
)

type Logging struct {
	Level  string `default:"info" validate:"oneof=trace debug info warn error" json:"level" koanf:"level"`
	Format string `default:"console" validate:"oneof=console json" json:"format" koanf:"format"`
}

// Logger builds a logger writing to w.
func (l Logging) Logger(w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(l.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if l.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, NoColor: true}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}
