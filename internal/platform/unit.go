package platform

import (
	"fmt"
	"math"
	"math/rand"

	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/mechanism"
	"codeberg.org/mutker/wearsim/internal/reliability"
	"codeberg.org/mutker/wearsim/internal/trace"
)

// Kind selects how a unit derives its duty cycle from a workload sample.
type Kind int

const (
	// KindGeneric units read an explicit activity column from the trace.
	KindGeneric Kind = iota
	// KindCore units estimate activity as power over peak power; a core is
	// too complex to track per-gate switching.
	KindCore
	// KindLogic units derive activity from toggle counts over elapsed
	// cycles.
	KindLogic
	// KindMemory units age data-dependently rather than usage-dependently.
	KindMemory
)

// KindFromString parses the unit kind used in platform descriptions.
func KindFromString(s string) (Kind, error) {
	switch s {
	case "", "unit", "generic":
		return KindGeneric, nil
	case "core":
		return KindCore, nil
	case "logic":
		return KindLogic, nil
	case "memory":
		return KindMemory, nil
	default:
		return 0, errors.New().WithData(errors.ErrUnknownUnitKind, s)
	}
}

func (k Kind) String() string {
	switch k {
	case KindCore:
		return "core"
	case KindLogic:
		return "logic"
	case KindMemory:
		return "memory"
	default:
		return "unit"
	}
}

// Redundancy describes spare copies of a unit. Serial (standby) spares take
// over unaged when the active copy fails; parallel copies share wear.
type Redundancy struct {
	Serial bool
	Copies int
}

// Unit is a leaf component. It owns one reliability distribution per bound
// configuration and tracks its own accumulated age and survival probability
// during a trial.
type Unit struct {
	component
	id     int
	kind   Kind
	copies int
	serial bool

	traces  map[Config][]trace.DataPoint
	perMech map[Config]map[string]reliability.Weibull
	overall map[Config]reliability.Weibull

	// per-trial state, restored by Reset
	age        float64
	current    float64
	failed     bool
	remaining  int
	config     Config
	prevConfig Config
	hasPrev    bool
	configured bool
}

// NewUnit builds a unit from its bound traces. Missing quantities in trace
// samples fall back to the declared defaults; a fresh-configuration trace is
// synthesized from the defaults when none is bound. Frequencies are expected
// in MHz and converted to Hz.
func NewUnit(name string, id int, kind Kind, red Redundancy, defaults map[string]float64, traces map[Config][]trace.DataPoint) *Unit {
	merged := map[string]float64{
		trace.QuantityVdd:         1,
		trace.QuantityTemperature: 350,
		trace.QuantityFrequency:   1000,
		trace.QuantityActivity:    0,
	}
	if kind == KindCore {
		merged[trace.QuantityPower] = 1
		merged[trace.QuantityPeakPower] = 1
	}
	for name, value := range defaults {
		merged[name] = value
	}

	copies := red.Copies
	if copies < 1 {
		copies = 1
	}

	if traces == nil {
		traces = map[Config][]trace.DataPoint{}
	}
	if _, ok := traces[Fresh]; !ok {
		values := make(map[string]float64, len(merged))
		for name, value := range merged {
			values[name] = value
		}
		traces[Fresh] = []trace.DataPoint{{Time: 1, Duration: 1, Values: values}}
	}
	for _, tr := range traces {
		trace.ApplyDefaults(tr, merged)
		trace.Normalize(tr)
	}

	return &Unit{
		component: component{name: name},
		id:        id,
		kind:      kind,
		copies:    copies,
		serial:    red.Serial,
		traces:    traces,
		perMech:   map[Config]map[string]reliability.Weibull{},
		overall:   map[Config]reliability.Weibull{},
		current:   1,
		remaining: copies,
	}
}

func (u *Unit) Children() []Component {
	return nil
}

func (u *Unit) ID() int {
	return u.id
}

func (u *Unit) Kind() Kind {
	return u.kind
}

func (u *Unit) Failed() bool {
	return u.failed
}

// CurrentReliability is the unit's survival probability at its current age.
func (u *Unit) CurrentReliability() float64 {
	return u.current
}

// Age is the unit's accumulated age in seconds, on its current
// configuration's clock.
func (u *Unit) Age() float64 {
	return u.age
}

// Configuration is the unit's active failed-units configuration.
func (u *Unit) Configuration() Config {
	return u.config
}

// Reset restores pristine per-trial state between Monte-Carlo trials.
func (u *Unit) Reset() {
	u.age = 0
	u.current = 1
	u.failed = false
	u.remaining = u.copies
	u.config = Fresh
	u.prevConfig = Fresh
	u.hasPrev = false
	u.configured = false
}

// activity derives the duty cycle for one sample, specific to the unit kind
// and, for some kinds, the mechanism.
func (u *Unit) activity(data trace.DataPoint, mech string) (float64, error) {
	switch u.kind {
	case KindCore:
		power, err := data.Value(trace.QuantityPower)
		if err != nil {
			return 0, err
		}
		peak, err := data.Value(trace.QuantityPeakPower)
		if err != nil {
			return 0, err
		}
		return power / peak, nil

	case KindLogic:
		toggles, err := data.Value(trace.QuantityActivity)
		if err != nil {
			return 0, err
		}
		frequency, err := data.Value(trace.QuantityFrequency)
		if err != nil {
			return 0, err
		}
		duty := math.Min(toggles/(data.Duration*frequency), 1)
		if mech == "NBTI" {
			// Only half of a logic block's PMOS gates are under NBTI stress
			// at once [2].
			return 1 - duty*duty/2, nil
		}
		return duty, nil

	case KindMemory:
		if mech == "HCI" {
			// Bit cells see no HCI-relevant switching.
			return 0, nil
		}
		return 1, nil

	default:
		return data.Value(trace.QuantityActivity)
	}
}

// ComputeReliability builds, for every bound configuration, one distribution
// per mechanism and their series composition. Must run once before
// simulation.
func (u *Unit) ComputeReliability(mechanisms []mechanism.Mechanism) error {
	if len(mechanisms) == 0 {
		return errors.New().New(errors.ErrNoMechanisms)
	}

	for cfg, tr := range u.traces {
		perMech := make(map[string]reliability.Weibull, len(mechanisms))
		for _, mech := range mechanisms {
			segments := make([]reliability.MTTFSegment, len(tr))
			for j, point := range tr {
				act, err := u.activity(point, mech.Name())
				if err != nil {
					return err
				}
				duty := math.Min(act, 1)
				ttf, err := mech.TimeToFailure(point, duty, math.NaN())
				if err != nil {
					return err
				}
				segments[j] = reliability.MTTFSegment{Duration: point.Duration, MTTF: ttf}
			}
			dist, err := mech.Distribution(segments)
			if err != nil {
				return err
			}
			perMech[mech.Name()] = dist
		}
		u.perMech[cfg] = perMech

		overall := perMech[mechanisms[0].Name()]
		for _, mech := range mechanisms[1:] {
			combined, err := overall.Combine(perMech[mech.Name()])
			if err != nil {
				return err
			}
			overall = combined
		}
		u.overall[cfg] = overall
	}

	return nil
}

// SetConfiguration walks the component tree to determine the current set of
// failed units and selects the matching trace's distribution. A
// configuration with no bound trace falls back to fresh with a warning;
// simulation proceeds with best-effort data.
func (u *Unit) SetConfiguration(root Component) {
	if u.failed {
		logger.WarnOnce("setting configuration for failed unit " + u.name)
	}
	if root.Failed() {
		logger.WarnOnce("setting configuration for failed system")
	}

	u.prevConfig = u.config
	u.hasPrev = u.configured
	u.configured = true

	var failed []string
	ConditionalWalk(root, func(c Component) bool {
		if c.Failed() {
			failed = append(failed, c.Name())
			return false
		}
		return true
	})

	cfg := ConfigOf(failed...)
	if _, ok := u.overall[cfg]; !ok {
		logger.WarnOnce(fmt.Sprintf("can't find configuration %s for %s, using %s", cfg, u.name, Fresh))
		cfg = Fresh
	}
	u.config = cfg
}

// NextEventDelay samples the relative time until this unit's next candidate
// failure under its current configuration: a uniform variate in
// (0, current reliability] inverted to an absolute age, less the age that
// corresponds to the current reliability.
func (u *Unit) NextEventDelay(rng *rand.Rand) float64 {
	dist := u.overall[u.config]
	next := dist.Inverse(rng.Float64() * u.current)
	if math.IsInf(next, 1) {
		return math.Inf(1)
	}
	return next - dist.Inverse(u.current)
}

// AdvanceAge moves the unit's age forward by dt on the trial's global clock.
// If the configuration changed since the last event, the age is first
// translated onto the new distribution so that survival probability stays
// continuous across the switch: accumulated damage is preserved, not reset
// (Bolchini et al., ICCD 2014).
func (u *Unit) AdvanceAge(dt float64) {
	u.age += dt
	if u.hasPrev && u.prevConfig != u.config {
		oldAge := u.InverseFor(u.prevConfig, u.current)
		newAge := u.InverseFor(u.config, u.current)
		// Never-fails distributions have no finite age for a given survival
		// probability; leave the clock alone when either side is such.
		if !math.IsInf(oldAge, 1) && !math.IsInf(newAge, 1) {
			u.age -= oldAge - newAge
		}
	}
	u.current = u.ReliabilityAt(u.config, u.age)
}

// Failure consumes one redundant copy; the unit becomes failed only when no
// copies remain. Successfully switching to a serial (standby) spare resets
// age and reliability, since the spare has not aged. Parallel copies share
// wear and keep the clock.
func (u *Unit) Failure() {
	u.remaining--
	u.failed = u.remaining <= 0
	if u.serial {
		u.current = 1
		u.age = 0
		u.hasPrev = false
	}
}

// MarkFailed forces the failed state without consuming redundancy. Used when
// an enclosing group has failed and the unit can no longer matter.
func (u *Unit) MarkFailed() {
	u.failed = true
}

// FailedInConfig reports whether this unit is one of the failed units in the
// given configuration.
func (u *Unit) FailedInConfig(c Config) bool {
	return c.Contains(u.name)
}

// ReliabilityAt is R(t) under configuration c.
func (u *Unit) ReliabilityAt(c Config, t float64) float64 {
	return u.overall[c].Reliability(t)
}

// InverseFor is the age at which reliability reaches r under configuration
// c.
func (u *Unit) InverseFor(c Config, r float64) float64 {
	return u.overall[c].Inverse(r)
}

// AgingRate is the overall Weibull rate (alpha) for configuration c, or zero
// if the unit is failed in it.
func (u *Unit) AgingRate(c Config) float64 {
	if u.FailedInConfig(c) {
		return 0
	}
	return u.overall[c].Rate()
}

// FreshAgingRate is the overall rate for the fresh configuration, the one
// reported by default.
func (u *Unit) FreshAgingRate() float64 {
	return u.AgingRate(Fresh)
}

// MechanismRate is the fresh-configuration rate for one mechanism, for
// per-mechanism reporting.
func (u *Unit) MechanismRate(mech string) float64 {
	dists, ok := u.perMech[Fresh]
	if !ok {
		return math.NaN()
	}
	dist, ok := dists[mech]
	if !ok {
		return math.NaN()
	}
	return dist.Rate()
}

// MarkParentsFailed marks every unit whose enclosing groups have failed as
// failed itself, so it is no longer re-configured or re-aged. It returns the
// units so marked.
func MarkParentsFailed(root Component, units []*Unit) []*Unit {
	reachable := make(map[*Unit]bool, len(units))
	ConditionalWalk(root, func(c Component) bool {
		if c.Failed() {
			return false
		}
		if u, ok := c.(*Unit); ok {
			reachable[u] = true
		}
		return true
	})

	var marked []*Unit
	for _, u := range units {
		if !reachable[u] && !u.failed {
			u.MarkFailed()
			marked = append(marked, u)
		}
	}
	return marked
}
