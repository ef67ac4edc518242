package model

import "github.com/m-mizutani/goerr/v2"

// Mode is the interaction mode of the AR view.
type Mode string

const (
	// ModeAdd allows creating memories and opening existing ones. It is the
	// only mode that captures world snapshots for later relocalization.
	ModeAdd Mode = "add"
	// ModeExplore only allows opening existing memories.
	ModeExplore Mode = "explore"
)

func (m Mode) CanCreate() bool  { return m == ModeAdd }
func (m Mode) CanExplore() bool { return m == ModeAdd || m == ModeExplore }

// PersistsWorld reports whether memories created in this mode carry a world
// snapshot.
func (m Mode) PersistsWorld() bool { return m == ModeAdd }

func (m Mode) Validate() error {
	switch m {
	case ModeAdd, ModeExplore:
		return nil
	default:
		return goerr.Wrap(ErrValidation, "unknown mode", goerr.V("mode", m))
	}
}
