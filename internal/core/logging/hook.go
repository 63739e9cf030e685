package logging

import (
	"github.com/rs/zerolog"
)

// ContextHook extracts change_id and gate from the event context and adds
// them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == nil {
		return
	}

	if id := GetChangeID(ctx); id != "" {
		e.Str("change_id", id)
	}

	if g := GetGate(ctx); g != "" {
		e.Str("gate", g)
	}
}
