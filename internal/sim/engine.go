// Package sim drives the discrete-event Monte-Carlo simulation: each trial
// samples a full system failure sequence and appends the observed time to
// failure of every component that fails during it.
package sim

import (
	"context"
	"math"
	"math/rand"
	"time"

	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/platform"
)

// Options tune one simulation run.
type Options struct {
	// Iterations is the number of Monte-Carlo trials.
	Iterations int
	// Seed seeds the random source; 0 seeds from the clock.
	Seed int64
}

// Engine owns all state for one simulation run: the component tree, its
// units and the random source. Nothing leaks across runs; build a new Engine
// per run.
type Engine struct {
	root       platform.Component
	units      []*platform.Unit
	iterations int
	rng        *rand.Rand
	log        logger.Logger
}

// New creates an engine over a component tree whose units have had their
// reliability distributions computed.
func New(root platform.Component, units []*platform.Unit, opts Options) (*Engine, error) {
	if opts.Iterations <= 0 {
		return nil, errors.New().WithData(errors.ErrInvalidIterations, opts.Iterations)
	}

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Engine{
		root:       root,
		units:      units,
		iterations: opts.Iterations,
		rng:        rand.New(rand.NewSource(seed)),
		log:        logger.Default(),
	}, nil
}

// Root returns the root of the simulated component tree.
func (e *Engine) Root() platform.Component {
	return e.root
}

// Units returns the leaf units of the simulated tree.
func (e *Engine) Units() []*platform.Unit {
	return e.units
}

// Run performs all Monte-Carlo trials. Trials are independent; the only
// state carried across them is the per-component TTF sample lists. The
// context is checked between trials.
func (e *Engine) Run(ctx context.Context) error {
	for i := 0; i < e.iterations; i++ {
		select {
		case <-ctx.Done():
			return errors.New().Wrap(errors.ErrSimulationAborted, ctx.Err())
		default:
		}

		e.log.Debug().Int("trial", i).Msg("Beginning Monte Carlo trial")
		e.trial(i)
	}

	return nil
}

// trial samples one full system failure sequence.
func (e *Engine) trial(n int) {
	for _, u := range e.units {
		u.Reset()
	}

	recorded := make(map[platform.Component]bool)
	healthy := append([]*platform.Unit(nil), e.units...)
	t := 0.0

	for !e.root.Failed() {
		// Re-derive every live unit's configuration from the current
		// failed-set before sampling; sibling failures change the
		// distribution a unit ages under.
		for _, u := range e.units {
			if !u.Failed() {
				u.SetConfiguration(e.root)
			}
		}

		dtEvent := math.Inf(1)
		var next *platform.Unit
		for _, u := range healthy {
			if dt := u.NextEventDelay(e.rng); dt < dtEvent {
				dtEvent = dt
				next = u
			}
		}

		if next == nil || math.IsInf(dtEvent, 1) {
			// Nothing left that can age; the trial can never reach a system
			// failure state. Abandon it rather than corrupting the
			// aggregate statistics.
			e.log.Warn().Int("trial", n).Msg("no unit failure possible, abandoning trial")
			return
		}

		// Every healthy unit's age advances to the trial's global clock,
		// not just the one that fails.
		for _, u := range healthy {
			u.AdvanceAge(dtEvent)
		}
		next.Failure()
		if next.Failed() {
			healthy = remove(healthy, next)
		}
		t += dtEvent

		platform.Walk(e.root, func(c platform.Component) {
			if c.Failed() && !recorded[c] {
				c.Lifetimes().Record(t)
				recorded[c] = true
			}
		})

		// Units stranded under a failed group stop aging and never record a
		// TTF of their own.
		for _, u := range platform.MarkParentsFailed(e.root, e.units) {
			recorded[u] = true
			healthy = remove(healthy, u)
		}
	}
}

func remove(units []*platform.Unit, u *platform.Unit) []*platform.Unit {
	for i, candidate := range units {
		if candidate == u {
			return append(units[:i], units[i+1:]...)
		}
	}
	return units
}
