package engine

import (
	"context"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/tracking"
	"github.com/m-mizutani/arjournal/pkg/usecase/proximity"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
)

// EnterMode switches the interaction mode, drops any pending action,
// attempts relocalization once and repopulates the scene.
func (e *Engine) EnterMode(ctx context.Context, mode model.Mode) error {
	if err := mode.Validate(); err != nil {
		return err
	}
	_, err := call(ctx, e, func(ctx context.Context) (struct{}, error) {
		e.resetNarration()
		return struct{}{}, e.enterMode(ctx, mode)
	})
	return err
}

func (e *Engine) enterMode(ctx context.Context, mode model.Mode) error {
	logger := logging.From(ctx)
	e.machine.SetMode(mode)

	id, seeded, err := e.relocalizer.Attempt(ctx, e.store.List())
	if err != nil {
		return err
	}
	if !seeded && !e.controller.Running() {
		if _, err := e.controller.Start(ctx, nil); err != nil {
			return err
		}
	}

	e.registry.Populate(e.visible(ctx))
	logger.Info("mode entered",
		"mode", mode,
		"relocalizing_from", id,
		"visible", e.registry.Len(),
	)
	return nil
}

// Refresh re-derives the visible memories and rebuilds the scene if the
// visible set changed. It reports whether the scene was rebuilt.
func (e *Engine) Refresh(ctx context.Context) (bool, error) {
	return call(ctx, e, func(ctx context.Context) (bool, error) {
		return e.refresh(ctx), nil
	})
}

func (e *Engine) refresh(ctx context.Context) bool {
	rebuilt := e.registry.Sync(e.visible(ctx))
	if rebuilt {
		logging.From(ctx).Debug("scene rebuilt", "visible", e.registry.Len())
	}
	return rebuilt
}

func (e *Engine) visible(ctx context.Context) []*model.Memory {
	memories := e.store.List()
	if e.locator == nil {
		return memories
	}
	return proximity.Filter(memories, e.locator.CurrentLocation(ctx), e.config.RadiusMeters, e.locator.Distance)
}

// Visible returns the IDs of the memories currently in the scene.
func (e *Engine) Visible(ctx context.Context) ([]model.MemoryID, error) {
	return call(ctx, e, func(ctx context.Context) ([]model.MemoryID, error) {
		return e.registry.IDs(), nil
	})
}

// Mode returns the active interaction mode.
func (e *Engine) Mode(ctx context.Context) (model.Mode, error) {
	return call(ctx, e, func(ctx context.Context) (model.Mode, error) {
		return e.machine.Mode(), nil
	})
}

// OnFrame is called by the tracking collaborator for every camera frame. It
// never blocks; frames arriving while the previous one is still pending
// are coalesced and only the latest camera position is used.
func (e *Engine) OnFrame(camera model.Transform) {
	pos := camera.Position
	e.camera.Store(&pos)
	select {
	case e.frames <- struct{}{}:
	default:
	}
}

// OnTrackingState applies a tracking state change. States delivered by the
// session's own channel are applied without calling this.
func (e *Engine) OnTrackingState(ctx context.Context, s tracking.State) error {
	_, err := call(ctx, e, func(ctx context.Context) (struct{}, error) {
		e.handleState(ctx, s)
		return struct{}{}, nil
	})
	return err
}

// TrackingState returns the last reported tracking state.
func (e *Engine) TrackingState(ctx context.Context) (tracking.State, error) {
	return call(ctx, e, func(ctx context.Context) (tracking.State, error) {
		return e.controller.State(), nil
	})
}
