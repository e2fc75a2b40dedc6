// internal/round/types.go
//
// Type definitions for the round controller.
// Defines:
//   - State: the session's position in the round cycle.
//   - Provider / Scorer: the boundary the controller talks to.
//   - Reply: the scorer's raw, untrusted response.
//   - Breakdown / Snapshot: normalized results and a read-only view.

package round

import (
	"context"
	"errors"

	"github.com/robalobadob/carguess/internal/car"
)

// TotalRounds is the fixed number of rounds in a session.
const TotalRounds = 5

// State is the controller's position in the round cycle.
//
//	Loading → AwaitingGuess → Revealed → (AwaitingGuess | Finished)
//	Loading → LoadFailed → Loading (manual retry)
//	Finished → Loading (restart)
type State int

const (
	Loading State = iota
	AwaitingGuess
	Revealed
	Finished
	LoadFailed
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case AwaitingGuess:
		return "awaiting_guess"
	case Revealed:
		return "revealed"
	case Finished:
		return "finished"
	case LoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

var (
	// ErrBusy is returned when a load or submit is already outstanding.
	ErrBusy = errors.New("round: request in flight")
	// ErrWrongState is returned when a transition is not allowed from the
	// current state.
	ErrWrongState = errors.New("round: not allowed in current state")
	// ErrInvalidGuess is returned when the pending inputs cannot be submitted.
	ErrInvalidGuess = errors.New("round: invalid guess")
)

// Provider supplies one random record per round.
type Provider interface {
	RandomCar(ctx context.Context) (car.Car, error)
}

// Scorer scores a guess against the truth record.
type Scorer interface {
	ScoreGuess(ctx context.Context, price float64, model string, truth car.Car) (Reply, error)
}

// Reply is the scorer's response as decoded from the wire. Numeric fields
// are left untyped because the controller does not trust their shape.
type Reply struct {
	TotalScore any      `json:"totalScore"`
	PriceScore any      `json:"priceScore"`
	ModelScore any      `json:"modelScore"`
	Error      any      `json:"error"`
	Correct    *car.Car `json:"correct"`
}

// Breakdown is a normalized scoring result for the current round.
type Breakdown struct {
	TotalScore int
	PriceScore int
	ModelScore int
	Error      *float64 // nil when the price could not be scored
	Correct    *car.Car
}

// Snapshot is a copy of the controller's state for display.
type Snapshot struct {
	State      State
	Round      int
	Score      int
	Car        *car.Car
	Breakdown  *Breakdown
	PriceInput string
	ModelInput string
	ImageIndex int
	Err        error // last load or submit failure, cleared on success
}
