package session

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edytjahyadi/AI-Fashion/internal/domain"
	"github.com/edytjahyadi/AI-Fashion/internal/imaging"
	"github.com/edytjahyadi/AI-Fashion/internal/tryon"
)

// Generator is the remote try-on backend contract.
type Generator interface {
	TryOn(ctx context.Context, person, garment domain.EncodedImage, instruction string) (domain.EncodedImage, error)
}

// Orchestrator drives the four per-pose generation chains. Each chain is
// remote call followed by watermark, settling its own slot as soon as it
// resolves; a failed slot never blocks or fails the siblings.
type Orchestrator struct {
	store       *Store
	generator   Generator
	watermarker *imaging.Watermarker
	poses       []tryon.Pose
	slotTimeout time.Duration
	logger      zerolog.Logger
}

// NewOrchestrator wires the orchestrator. A non-positive slot timeout
// defaults to two minutes per chain.
func NewOrchestrator(store *Store, generator Generator, watermarker *imaging.Watermarker, slotTimeout time.Duration, logger zerolog.Logger) *Orchestrator {
	if slotTimeout <= 0 {
		slotTimeout = 2 * time.Minute
	}
	return &Orchestrator{
		store:       store,
		generator:   generator,
		watermarker: watermarker,
		poses:       tryon.Poses(),
		slotTimeout: slotTimeout,
		logger:      logger,
	}
}

// Poses returns the fixed pose set driving the slots.
func (o *Orchestrator) Poses() []tryon.Pose {
	return o.poses
}

// Generate transitions the session into Processing and launches all slot
// chains. It returns as soon as the transition is applied; slots settle in
// the background and the phase becomes ResultsReady once all are terminal.
func (o *Orchestrator) Generate(id string) (domain.Session, error) {
	sess, err := o.store.Dispatch(id, domain.StartGeneration{})
	if err != nil {
		return domain.Session{}, err
	}
	person, garment := *sess.Person, *sess.Garment

	go func() {
		var g errgroup.Group
		for i, pose := range o.poses {
			i, pose := i, pose
			g.Go(func() error {
				o.settle(id, i, o.runSlot(person, garment, pose))
				return nil
			})
		}
		// The join exists only for the aggregate all-settled signal;
		// chain outcomes live in their slots.
		_ = g.Wait()
		o.logger.Info().Str("session_id", id).Msg("session: all slots settled")
	}()

	return sess, nil
}

// Regenerate returns one settled slot to pending and re-runs its chain alone.
// A slot that is still pending rejects the action, which guards against
// double-issuing while the previous request is in flight.
func (o *Orchestrator) Regenerate(id string, slot int) (domain.Session, error) {
	sess, err := o.store.Dispatch(id, domain.RegenerateSlot{Index: slot})
	if err != nil {
		return domain.Session{}, err
	}
	person, garment := *sess.Person, *sess.Garment
	pose := o.poses[slot]

	go func() {
		o.settle(id, slot, o.runSlot(person, garment, pose))
	}()

	return sess, nil
}

// runSlot executes one chain: remote generation then watermark. Any failure
// is converted into an error result for that slot.
func (o *Orchestrator) runSlot(person, garment domain.EncodedImage, pose tryon.Pose) domain.SlotResult {
	ctx, cancel := context.WithTimeout(context.Background(), o.slotTimeout)
	defer cancel()

	generated, err := o.generator.TryOn(ctx, person, garment, tryon.BuildInstruction(pose))
	if err != nil {
		o.logger.Warn().Err(err).Str("pose", pose.Slug).Msg("session: generation failed")
		return domain.SlotResult{Status: domain.SlotError, Message: err.Error()}
	}

	marked, err := o.watermarker.Apply(generated)
	if err != nil {
		o.logger.Warn().Err(err).Str("pose", pose.Slug).Msg("session: watermark failed")
		return domain.SlotResult{Status: domain.SlotError, Message: err.Error()}
	}

	return domain.SlotResult{Status: domain.SlotDone, Image: marked}
}

func (o *Orchestrator) settle(id string, slot int, result domain.SlotResult) {
	if _, err := o.store.Dispatch(id, domain.SettleSlot{Index: slot, Result: result}); err != nil {
		// A reset or source replacement raced the chain; the stale
		// outcome is dropped on purpose.
		o.logger.Debug().Err(err).Str("session_id", id).Int("slot", slot).Msg("session: settle discarded")
	}
}
