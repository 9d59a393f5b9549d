package build

import (
	"io"

	"github.com/btcsuite/btclog"
)

// NewSubLogger constructs a new subsystem logger from the supplied
// constructor. If no constructor is provided, logging for the subsystem is
// disabled until the caller installs a logger explicitly via the package's
// UseLogger function.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	if genSubLogger != nil {
		return genSubLogger(subsystem)
	}

	return btclog.Disabled
}

// NewDefaultGenSubLogger returns a sublogger constructor backed by a single
// btclog backend writing to w. It is intended for wiring up logging in
// binaries and tests; libraries should leave their loggers disabled.
func NewDefaultGenSubLogger(w io.Writer,
	level btclog.Level) func(string) btclog.Logger {

	backend := btclog.NewBackend(w)

	return func(subsystem string) btclog.Logger {
		logger := backend.Logger(subsystem)
		logger.SetLevel(level)

		return logger
	}
}
