package go_func_utils

import (
	"runtime/debug"

	"github.com/rs/zerolog"
)

func SafeGo(logger zerolog.Logger, fn func()) {
	// the curses UI swallows anything written to stdout, so get panics into the
	// log file before crashing out again
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error().Str("stack", string(debug.Stack())).Msgf("PANIC: %v", r)
				panic(r)
			}
		}()
		fn()
	}()
}
