// Package logging builds the hclog loggers shared by the host and the
// plugin clients it starts.
package logging

import (
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
)

// Options configure the root logger.
type Options struct {
	Name string
	// Level is an hclog level name such as "warn" or "debug". Unknown names
	// select Warn.
	Level  string
	Output io.Writer
	JSON   bool
}

// New creates the root logger. Diagnostics go to stderr unless Output is
// set, so they never mix with command output.
func New(opts Options) hclog.Logger {
	if opts.Name == "" {
		opts.Name = "sysplug"
	}
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	level := hclog.LevelFromString(opts.Level)
	if level == hclog.NoLevel {
		level = hclog.Warn
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       opts.Name,
		Level:      level,
		Output:     opts.Output,
		JSONFormat: opts.JSON,
	})
}

// Discard returns a logger that drops everything.
func Discard() hclog.Logger {
	return hclog.NewNullLogger()
}
