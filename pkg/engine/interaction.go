package engine

import (
	"context"

	"github.com/m-mizutani/arjournal/pkg/interaction"
	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/scene"
	"github.com/m-mizutani/arjournal/pkg/tracking"
	"github.com/m-mizutani/arjournal/pkg/usecase/memory"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// SaveResult is delivered once the memory has been created. Memory is set
// even when Err wraps model.ErrPersistence.
type SaveResult struct {
	Memory *model.Memory
	Err    error
}

// Tap resolves a screen tap. Misses are reported in the outcome, not as an
// error.
func (e *Engine) Tap(ctx context.Context, p scene.ScreenPoint) (interaction.Outcome, error) {
	return call(ctx, e, func(ctx context.Context) (interaction.Outcome, error) {
		out := e.machine.Tap(p)
		logger := logging.From(ctx)

		switch out.Action {
		case interaction.ActionOpen:
			logger.Debug("memory opened", "memory_id", out.MemoryID)
			e.startNarration(ctx, out.MemoryID)
		case interaction.ActionPendingCreate:
			logger.Debug("pending create", "position", out.Position, "fallback", out.Fallback)
		default:
			if out.Miss != nil {
				logger.Debug("tap ignored", "reason", out.Miss)
			}
		}
		return out, nil
	})
}

// Save turns the pending position into a memory. The pending state is
// cleared before it returns; the memory is created on the control goroutine
// once a world snapshot is captured or the capture gives up, and the
// result is sent on the returned channel. A missing title or a missing
// pending position is returned as an error and nothing is sent.
func (e *Engine) Save(ctx context.Context, title, description string) (<-chan SaveResult, error) {
	return call(ctx, e, func(ctx context.Context) (<-chan SaveResult, error) {
		req, err := e.machine.Save(title, description)
		if err != nil {
			return nil, err
		}

		input := memory.CreateInput{
			Title:       req.Title,
			Description: req.Description,
			Position:    req.Position,
		}
		if e.locator != nil {
			input.Location = e.locator.CurrentLocation(ctx)
		}

		result := make(chan SaveResult, 1)
		if !req.CaptureSnapshot || e.snapshots == nil {
			e.create(ctx, input, result)
			return result, nil
		}

		e.goWorker(func() {
			data, err := tracking.Capture(ctx, e.snapshots, e.config.SnapshotTimeout)
			if err != nil {
				logging.From(ctx).Warn("saving memory without world snapshot", "error", err)
			}
			input.Snapshot = data

			if !e.post(func(ctx context.Context) { e.create(ctx, input, result) }) {
				result <- SaveResult{Err: ErrClosed}
			}
		})
		return result, nil
	})
}

func (e *Engine) create(ctx context.Context, input memory.CreateInput, result chan<- SaveResult) {
	m, err := e.store.Create(ctx, input)
	if m != nil {
		e.refresh(ctx)
	}
	result <- SaveResult{Memory: m, Err: err}
}

// Cancel discards the pending position.
func (e *Engine) Cancel(ctx context.Context) error {
	_, err := call(ctx, e, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.machine.Cancel()
	})
	return err
}

// Dismiss closes the opened memory.
func (e *Engine) Dismiss(ctx context.Context) error {
	_, err := call(ctx, e, func(ctx context.Context) (struct{}, error) {
		if err := e.machine.Dismiss(); err != nil {
			return struct{}{}, err
		}
		e.resetNarration()
		return struct{}{}, nil
	})
	return err
}

// Delete removes the opened memory from the store and the scene. A failed
// write is returned wrapping model.ErrPersistence; the memory is removed
// regardless.
func (e *Engine) Delete(ctx context.Context) (model.MemoryID, error) {
	return call(ctx, e, func(ctx context.Context) (model.MemoryID, error) {
		id, err := e.machine.Delete()
		if err != nil {
			return "", err
		}
		e.resetNarration()

		removed, err := e.store.Delete(ctx, id)
		if removed {
			e.refresh(ctx)
		}
		if err != nil {
			return id, err
		}
		if !removed {
			return id, goerr.Wrap(model.ErrMemoryNotFound, "opened memory is gone", goerr.V("memory_id", id))
		}
		return id, nil
	})
}

// State returns the pending interaction.
func (e *Engine) State(ctx context.Context) (interaction.State, error) {
	return call(ctx, e, func(ctx context.Context) (interaction.State, error) {
		return e.machine.State(), nil
	})
}
