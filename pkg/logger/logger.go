// Package logx configures the process-wide zerolog logger.
package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool `envconfig:"DEBUG" split_words:"true" default:"false"`
	PrettyFormat bool `envconfig:"PRETTY_FORMAT" split_words:"true" default:"false"`
}

// Init replaces the global logger according to cfg. JSON lines by default,
// console writer when PrettyFormat is set.
func Init(cfg Config) {
	if cfg.PrettyFormat {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)
}
