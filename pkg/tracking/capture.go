package tracking

import (
	"context"
	"time"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

// DefaultCaptureTimeout bounds how long memory creation waits for a world
// snapshot.
const DefaultCaptureTimeout = 5 * time.Second

// Capture asks s for a world snapshot and gives up after timeout. Any
// failure, an empty result or the timeout is reported as
// model.ErrSnapshotUnavailable.
func Capture(ctx context.Context, s Snapshotter, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = DefaultCaptureTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := s.Capture(ctx)
		ch <- result{data: data, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			return nil, goerr.Wrap(model.ErrSnapshotUnavailable, r.err.Error())
		}
		if len(r.data) == 0 {
			return nil, goerr.Wrap(model.ErrSnapshotUnavailable, "empty snapshot")
		}
		return r.data, nil
	case <-ctx.Done():
		return nil, goerr.Wrap(model.ErrSnapshotUnavailable, "capture timed out", goerr.V("timeout", timeout))
	}
}
