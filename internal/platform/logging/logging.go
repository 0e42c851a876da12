package logging

import (
	"io"
	"os"

	hclog "github.com/hashicorp/go-hclog"
)

// New returns the process logger. Verbose enables debug output, which
// the plugin factory and default-manager bootstrap use for the expected
// soft-absence cases.
func New(verbose bool) hclog.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:   "amio",
		Level:  level,
		Output: os.Stderr,
	})
}

// Silent returns a logger that discards everything. Used to quiet
// go-plugin's internal chatter.
func Silent() hclog.Logger {
	return hclog.New(&hclog.LoggerOptions{Output: io.Discard, Level: hclog.NoLevel})
}
