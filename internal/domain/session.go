package domain

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

// SlotCount is the number of posed composites produced per generation run.
const SlotCount = 4

// Phase is the session lifecycle state.
type Phase string

const (
	PhaseIdle         Phase = "idle"
	PhaseSourcesReady Phase = "sources_ready"
	PhaseProcessing   Phase = "processing"
	PhaseResultsReady Phase = "results_ready"
)

// SlotStatus is the per-slot result status. The zero value means the slot has
// not been part of any generation run yet.
type SlotStatus string

const (
	SlotEmpty   SlotStatus = ""
	SlotPending SlotStatus = "pending"
	SlotDone    SlotStatus = "done"
	SlotError   SlotStatus = "error"
)

// SlotResult is the tagged outcome of one pose slot. Image is set when the
// status is SlotDone, Message when it is SlotError.
type SlotResult struct {
	Status  SlotStatus
	Image   EncodedImage
	Message string
}

// Settled reports whether the slot has reached a terminal status.
func (r SlotResult) Settled() bool {
	return r.Status == SlotDone || r.Status == SlotError
}

// SourceKind distinguishes the two uploaded source images.
type SourceKind string

const (
	SourcePerson  SourceKind = "person"
	SourceGarment SourceKind = "garment"
)

// Session is the full application state for one try-on session. It is a value
// type: Reduce returns a new Session rather than mutating in place.
type Session struct {
	ID      string
	Phase   Phase
	Person  *EncodedImage
	Garment *EncodedImage
	Slots   [SlotCount]SlotResult
	// Started records that a generation run has been triggered for the
	// current pair of source images.
	Started   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSession returns an idle session.
func NewSession(id string, now time.Time) Session {
	return Session{ID: id, Phase: PhaseIdle, CreatedAt: now, UpdatedAt: now}
}

// Action is a state-machine input. All session mutations flow through Reduce
// so that every transition is applied atomically per dispatched action.
type Action interface {
	isAction()
}

// SetSourceImage installs or replaces one of the two source images.
type SetSourceImage struct {
	Kind  SourceKind
	Image EncodedImage
}

// StartGeneration begins a run for all slots. Valid only from SourcesReady.
type StartGeneration struct{}

// SettleSlot records the terminal outcome of one slot. Valid only while the
// slot is pending, so a settle racing a reset is dropped.
type SettleSlot struct {
	Index  int
	Result SlotResult
}

// RegenerateSlot returns a settled slot to pending for an individual retry.
type RegenerateSlot struct {
	Index int
}

// Reset discards all source images and results from any phase.
type Reset struct{}

func (SetSourceImage) isAction() {}
func (StartGeneration) isAction() {}
func (SettleSlot) isAction()     {}
func (RegenerateSlot) isAction() {}
func (Reset) isAction()          {}

// Reduce applies one action to a session and returns the next state. The
// phase is re-derived from the slot and source state after every action, so a
// regenerate issued after ResultsReady moves the phase back to Processing
// instead of leaving a stale "all done" signal.
func Reduce(s Session, action Action, now time.Time) (Session, error) {
	switch a := action.(type) {
	case SetSourceImage:
		if err := a.Image.Validate(); err != nil {
			return s, err
		}
		// Replacing a source after a run keeps only the new image: the
		// other source, the results and the started flag are cleared,
		// so the session walks back through Idle and reaches
		// SourcesReady only once both sources are present again.
		if s.Started {
			s.Person = nil
			s.Garment = nil
			s.Slots = [SlotCount]SlotResult{}
			s.Started = false
		}
		img := a.Image
		switch a.Kind {
		case SourcePerson:
			s.Person = &img
		case SourceGarment:
			s.Garment = &img
		default:
			return s, fmt.Errorf("%w: unknown source kind %q", ErrInvalidTransition, a.Kind)
		}

	case StartGeneration:
		if s.Phase != PhaseSourcesReady {
			return s, fmt.Errorf("%w: generate requires both source images and no active run (phase %s)", ErrInvalidTransition, s.Phase)
		}
		s.Started = true
		for i := range s.Slots {
			s.Slots[i] = SlotResult{Status: SlotPending}
		}

	case SettleSlot:
		if a.Index < 0 || a.Index >= SlotCount {
			return s, fmt.Errorf("%w: %d", ErrSlotIndex, a.Index)
		}
		if s.Slots[a.Index].Status != SlotPending {
			return s, fmt.Errorf("%w: slot %d is not pending", ErrInvalidTransition, a.Index)
		}
		if !a.Result.Settled() {
			return s, fmt.Errorf("%w: slot %d settle must be done or error", ErrInvalidTransition, a.Index)
		}
		s.Slots[a.Index] = a.Result

	case RegenerateSlot:
		if a.Index < 0 || a.Index >= SlotCount {
			return s, fmt.Errorf("%w: %d", ErrSlotIndex, a.Index)
		}
		if !s.Started {
			return s, fmt.Errorf("%w: no generation run to regenerate", ErrInvalidTransition)
		}
		if s.Slots[a.Index].Status == SlotPending {
			return s, fmt.Errorf("%w: slot %d", ErrSlotPending, a.Index)
		}
		s.Slots[a.Index] = SlotResult{Status: SlotPending}

	case Reset:
		return NewSession(s.ID, now), nil

	default:
		return s, fmt.Errorf("%w: unknown action %T", ErrInvalidTransition, action)
	}

	s.Phase = derivePhase(s)
	s.UpdatedAt = now
	return s, nil
}

func derivePhase(s Session) Phase {
	if !s.Started {
		if s.Person != nil && s.Garment != nil {
			return PhaseSourcesReady
		}
		return PhaseIdle
	}
	allSettled := lo.EveryBy(s.Slots[:], SlotResult.Settled)
	if allSettled {
		return PhaseResultsReady
	}
	return PhaseProcessing
}
