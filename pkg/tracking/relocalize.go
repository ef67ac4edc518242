package tracking

import (
	"context"

	"github.com/m-mizutani/arjournal/pkg/model"
	"github.com/m-mizutani/arjournal/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

// Policy decides which stored snapshots are tried when relocalizing.
type Policy string

const (
	// PolicyFirst uses the first memory in store order that has a snapshot.
	PolicyFirst Policy = "first"
	// PolicyEach tries memories in store order until a snapshot restores.
	PolicyEach Policy = "each"
)

func (p Policy) Validate() error {
	switch p {
	case PolicyFirst, PolicyEach:
		return nil
	default:
		return goerr.Wrap(model.ErrValidation, "unknown relocalization policy", goerr.V("policy", p))
	}
}

// Relocalizer restarts the session seeded with a stored world snapshot.
type Relocalizer struct {
	controller *Controller
	policy     Policy
}

func NewRelocalizer(controller *Controller, policy Policy) *Relocalizer {
	if policy == "" {
		policy = PolicyFirst
	}
	return &Relocalizer{controller: controller, policy: policy}
}

// Attempt restarts the session with a snapshot from memories. If no memory
// carries a snapshot that restores, the session is not touched and keeps
// its origin. It returns the memory whose snapshot seeded the session.
func (r *Relocalizer) Attempt(ctx context.Context, memories []*model.Memory) (model.MemoryID, bool, error) {
	logger := logging.From(ctx)

	if r.controller.snapshots == nil {
		return "", false, nil
	}

	for _, m := range memories {
		if !m.HasSnapshot() {
			continue
		}
		world, err := r.controller.snapshots.Restore(m.WorldSnapshot)
		if err != nil {
			if r.policy == PolicyEach {
				logger.Debug("snapshot does not restore, trying next", "memory_id", m.ID, "error", err)
				continue
			}
			logger.Warn("snapshot does not restore, keeping current session", "memory_id", m.ID, "error", err)
			return "", false, nil
		}
		if err := r.controller.run(world); err != nil {
			return "", false, err
		}
		logger.Info("relocalizing", "memory_id", m.ID, "policy", r.policy)
		return m.ID, true, nil
	}

	logger.Info("no world snapshot available, keeping current tracking origin")
	return "", false, nil
}
