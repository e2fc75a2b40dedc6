// internal/round/controller.go
//
// Round controller for one player's session.
// Responsibilities:
//   - Fetch a record per round (with bounded exponential backoff) and
//     surface terminal failures as LoadFailed.
//   - Validate pending inputs and submit at most one scored guess per round.
//   - Normalize the scorer's reply before it reaches displayed state.
//   - Track round index and cumulative score across TotalRounds rounds.
//
// Only one load or submit may be outstanding at a time; concurrent calls
// get ErrBusy and change nothing. Transitions never panic: failures are
// recorded in the snapshot and returned as errors.

package round

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/robalobadob/carguess/internal/car"
)

// Controller drives a session through its rounds.
type Controller struct {
	provider Provider
	scorer   Scorer
	log      zerolog.Logger
	backoff  func() backoff.BackOff

	mu        sync.Mutex
	busy      bool
	state     State
	round     int
	score     int
	car       *car.Car
	breakdown *Breakdown
	price     string
	model     string
	image     int
	err       error
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the controller's logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.log = l } }

// WithBackOff sets the retry policy for record loads. The function is
// called once per load to get a fresh policy.
func WithBackOff(f func() backoff.BackOff) Option { return func(c *Controller) { c.backoff = f } }

// DefaultBackOff retries a failed load up to three times, starting at
// 250ms and doubling, giving up after ten seconds overall.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = 10 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

// New returns a controller in the Loading state at round 1. Call Start to
// fetch the first record.
func New(p Provider, s Scorer, opts ...Option) *Controller {
	c := &Controller{
		provider: p,
		scorer:   s,
		log:      zerolog.Nop(),
		backoff:  DefaultBackOff,
		state:    Loading,
		round:    1,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start loads the first round of a fresh session.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.begin(func() bool { return c.state == Loading && c.car == nil }); err != nil {
		return err
	}
	return c.load(ctx)
}

// Retry reloads the current round after a load failure.
func (c *Controller) Retry(ctx context.Context) error {
	if err := c.begin(func() bool { return c.state == LoadFailed }); err != nil {
		return err
	}
	return c.load(ctx)
}

// Advance moves to the next round, or to Finished after the last one.
// From AwaitingGuess this is a skip and the round scores nothing.
// Advancing a finished session is a no-op.
func (c *Controller) Advance(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	switch c.state {
	case Finished:
		c.mu.Unlock()
		return nil
	case AwaitingGuess, Revealed:
	default:
		c.mu.Unlock()
		return ErrWrongState
	}
	if c.round >= TotalRounds {
		c.state = Finished
		c.log.Info().Int("score", c.score).Msg("session finished")
		c.mu.Unlock()
		return nil
	}
	if c.state == AwaitingGuess {
		c.log.Debug().Int("round", c.round).Msg("round skipped")
	}
	c.round++
	c.busy = true
	c.mu.Unlock()
	return c.load(ctx)
}

// Restart resets a finished session and loads its first round.
func (c *Controller) Restart(ctx context.Context) error {
	if err := c.begin(func() bool { return c.state == Finished }); err != nil {
		return err
	}
	c.mu.Lock()
	c.score = 0
	c.round = 1
	c.breakdown = nil
	c.mu.Unlock()
	return c.load(ctx)
}

// Submit scores the pending guess for the current round.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.state != AwaitingGuess || c.car == nil || c.breakdown != nil {
		c.mu.Unlock()
		return ErrWrongState
	}
	price, model, ok := c.pendingLocked()
	if !ok {
		c.mu.Unlock()
		return ErrInvalidGuess
	}
	truth := *c.car
	c.busy = true
	c.mu.Unlock()

	reply, err := c.scorer.ScoreGuess(ctx, price, model, truth)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.err = err
		c.log.Error().Err(err).Int("round", c.round).Msg("score guess failed")
		return err
	}
	b := normalize(reply)
	if b.Correct == nil {
		b.Correct = &truth
	}
	c.breakdown = &b
	c.score += b.TotalScore
	c.state = Revealed
	c.err = nil
	c.log.Info().
		Int("round", c.round).
		Int("total", b.TotalScore).
		Int("price", b.PriceScore).
		Int("model", b.ModelScore).
		Int("score", c.score).
		Msg("round scored")
	return nil
}

// SetPrice records the raw price input as typed.
func (c *Controller) SetPrice(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.price = s
}

// SetModel records the raw model input as typed.
func (c *Controller) SetModel(s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = s
}

// CanSubmit reports whether Submit would be attempted right now.
func (c *Controller) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy || c.state != AwaitingGuess || c.car == nil || c.breakdown != nil {
		return false
	}
	_, _, ok := c.pendingLocked()
	return ok
}

// NextImage and PrevImage move the carousel, wrapping at either end.
func (c *Controller) NextImage() { c.stepImage(1) }
func (c *Controller) PrevImage() { c.stepImage(-1) }

func (c *Controller) stepImage(d int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.car == nil {
		return
	}
	n := len(c.car.Gallery())
	if n < 2 {
		return
	}
	c.image = ((c.image+d)%n + n) % n
}

// Snapshot returns a copy of the current state. The records it carries
// are deep copies and may be modified freely.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Snapshot{
		State:      c.state,
		Round:      c.round,
		Score:      c.score,
		PriceInput: c.price,
		ModelInput: c.model,
		ImageIndex: c.image,
		Err:        c.err,
	}
	if c.car != nil {
		s.Car = cloneCar(c.car)
	}
	if c.breakdown != nil {
		b := *c.breakdown
		if b.Correct != nil {
			b.Correct = cloneCar(b.Correct)
		}
		s.Breakdown = &b
	}
	return s
}

func cloneCar(c *car.Car) *car.Car {
	cp := *c
	cp.Description = slices.Clone(c.Description)
	cp.Images = slices.Clone(c.Images)
	return &cp
}

// begin claims the in-flight slot if allowed() holds.
func (c *Controller) begin(allowed func() bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy {
		return ErrBusy
	}
	if !allowed() {
		return ErrWrongState
	}
	c.busy = true
	return nil
}

// load fetches a record for the current round. The caller must hold the
// in-flight slot; load releases it.
func (c *Controller) load(ctx context.Context) error {
	c.mu.Lock()
	c.state = Loading
	c.car = nil
	c.breakdown = nil
	c.price = ""
	c.model = ""
	c.image = 0
	round := c.round
	c.mu.Unlock()

	var rec car.Car
	op := func() error {
		r, err := c.provider.RandomCar(ctx)
		if err != nil {
			return err
		}
		rec = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().Err(err).Int("round", round).Dur("retry_in", wait).Msg("load car failed")
	}
	err := backoff.RetryNotify(op, backoff.WithContext(c.backoff(), ctx), notify)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false
	if err != nil {
		c.state = LoadFailed
		c.err = err
		c.log.Error().Err(err).Int("round", round).Msg("giving up loading car")
		return err
	}
	c.car = &rec
	c.state = AwaitingGuess
	c.err = nil
	c.log.Debug().Int("round", round).Str("car", rec.ID).Msg("round loaded")
	return nil
}

// pendingLocked validates the inputs: a parsable price and a model that is
// not blank. The model is sent as typed.
func (c *Controller) pendingLocked() (float64, string, bool) {
	price, ok := ParsePrice(c.price)
	if !ok || strings.TrimSpace(c.model) == "" {
		return 0, "", false
	}
	return price, c.model, true
}
