package loggerconfig

import (
	"github.com/veritrust-dev/veritrust-node/cmd/veritrust-node/config"
)

const (
	subsection = "logger"

	// LevelDefault is the default logger verbosity.
	LevelDefault = "info"
)

// Level returns the value of "level" config parameter
// from "logger" section.
//
// Returns LevelDefault if the value is not set.
func Level(c *config.Config) string {
	v := config.StringSafe(c.Sub(subsection), "level")
	if v == "" {
		return LevelDefault
	}

	return v
}
