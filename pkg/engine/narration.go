package engine

import (
	"context"

	"github.com/m-mizutani/arjournal/pkg/interaction"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
)

// Narration is the spoken-style introduction of the opened memory. Err is
// shown as text in place of the narration.
type Narration struct {
	MemoryID model.MemoryID
	Text     string
	Err      error
	Pending  bool
}

func (e *Engine) startNarration(ctx context.Context, id model.MemoryID) {
	e.resetNarration()
	if e.narrator == nil || !e.config.Narration {
		return
	}
	m, ok := e.store.Get(id)
	if !ok {
		return
	}

	seq := e.narrationID
	e.narration = Narration{MemoryID: id, Pending: true}

	e.goWorker(func() {
		text, err := e.narrator.Narrate(ctx, m.Title)
		e.post(func(ctx context.Context) {
			if seq != e.narrationID {
				logging.From(ctx).Debug("dropping stale narration", "memory_id", id)
				return
			}
			if err != nil {
				logging.From(ctx).Warn("narration failed", "memory_id", id, "error", err)
			}
			e.narration = Narration{MemoryID: id, Text: text, Err: err}
		})
	})
}

// resetNarration invalidates any narration in flight.
func (e *Engine) resetNarration() {
	e.narrationID++
	e.narration = Narration{}
}

// Narration returns the narration of the opened memory. The zero value
// means no memory is open or narration is disabled.
func (e *Engine) Narration(ctx context.Context) (Narration, error) {
	return call(ctx, e, func(ctx context.Context) (Narration, error) {
		if e.machine.State().Kind != interaction.KindViewing {
			return Narration{}, nil
		}
		return e.narration, nil
	})
}
