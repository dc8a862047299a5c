package platform_test

import (
	"math"
	"math/rand"
	"testing"

	"codeberg.org/mutker/wearsim/internal/mechanism"
	"codeberg.org/mutker/wearsim/internal/platform"
	"codeberg.org/mutker/wearsim/internal/reliability"
	"codeberg.org/mutker/wearsim/internal/trace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableMech is a stub aging law whose MTTF is read straight from an "mttf"
// trace column, which makes unit-level distributions fully deterministic.
type tableMech struct {
	name string
}

func (m tableMech) Name() string   { return m.name }
func (m tableMech) Shape() float64 { return mechanism.WeibullShape }

func (m tableMech) TimeToFailure(data trace.DataPoint, _, _ float64) (float64, error) {
	return data.Value("mttf")
}

func (m tableMech) Distribution(segments []reliability.MTTFSegment) (reliability.Weibull, error) {
	return reliability.FromSegments(mechanism.WeibullShape, segments)
}

// dutyMech is a stub aging law whose MTTF is the reciprocal of the duty
// cycle, exposing the kind-specific activity derivations.
type dutyMech struct {
	name string
}

func (m dutyMech) Name() string   { return m.name }
func (m dutyMech) Shape() float64 { return mechanism.WeibullShape }

func (m dutyMech) TimeToFailure(_ trace.DataPoint, dutyCycle, _ float64) (float64, error) {
	if dutyCycle == 0 {
		return math.Inf(1), nil
	}
	return 1 / dutyCycle, nil
}

func (m dutyMech) Distribution(segments []reliability.MTTFSegment) (reliability.Weibull, error) {
	return reliability.FromSegments(mechanism.WeibullShape, segments)
}

// mttfTrace binds one single-sample trace with the given MTTF per
// configuration.
func mttfTrace(mttfs map[platform.Config]float64) map[platform.Config][]trace.DataPoint {
	traces := map[platform.Config][]trace.DataPoint{}
	for cfg, mttf := range mttfs {
		traces[cfg] = []trace.DataPoint{{Time: 1, Duration: 1, Values: map[string]float64{"mttf": mttf}}}
	}
	return traces
}

func newTableUnit(t *testing.T, name string, mttfs map[platform.Config]float64) *platform.Unit {
	t.Helper()
	u := platform.NewUnit(name, 0, platform.KindGeneric, platform.Redundancy{}, nil, mttfTrace(mttfs))
	require.NoError(t, u.ComputeReliability([]mechanism.Mechanism{tableMech{name: "stub"}}))
	return u
}

func TestComputeReliability(t *testing.T) {
	u := newTableUnit(t, "a", map[platform.Config]float64{platform.Fresh: 1000})

	dist := u.FreshAgingRate()
	assert.InEpsilon(t, 1000/math.Gamma(1.5), dist, 1e-9, "Expected rate recovering the bound MTTF")
	assert.InEpsilon(t, 1000/math.Gamma(1.5), u.MechanismRate("stub"), 1e-9)
	assert.True(t, math.IsNaN(u.MechanismRate("other")), "Expected NaN for an unknown mechanism")
}

func TestComputeReliabilitySeriesComposition(t *testing.T) {
	u := platform.NewUnit("a", 0, platform.KindGeneric, platform.Redundancy{}, nil,
		mttfTrace(map[platform.Config]float64{platform.Fresh: 1000}))
	mechs := []mechanism.Mechanism{tableMech{name: "one"}, tableMech{name: "two"}}
	require.NoError(t, u.ComputeReliability(mechs))

	single := 1000 / math.Gamma(1.5)
	want := math.Pow(2*math.Pow(single, -2), -0.5)
	assert.InEpsilon(t, want, u.FreshAgingRate(), 1e-9, "Expected series composition of the per-mechanism rates")
}

func TestComputeReliabilityNoMechanisms(t *testing.T) {
	u := platform.NewUnit("a", 0, platform.KindGeneric, platform.Redundancy{}, nil, nil)
	require.Error(t, u.ComputeReliability(nil))
}

func TestActivityByKind(t *testing.T) {
	gamma := math.Gamma(1.5)

	// generic: explicit activity column
	g := platform.NewUnit("g", 0, platform.KindGeneric, platform.Redundancy{},
		map[string]float64{trace.QuantityActivity: 0.5}, nil)
	require.NoError(t, g.ComputeReliability([]mechanism.Mechanism{dutyMech{name: "stub"}}))
	assert.InEpsilon(t, 2/gamma, g.FreshAgingRate(), 1e-9)

	// generic with the default zero activity never ages
	idle := platform.NewUnit("idle", 0, platform.KindGeneric, platform.Redundancy{}, nil, nil)
	require.NoError(t, idle.ComputeReliability([]mechanism.Mechanism{dutyMech{name: "stub"}}))
	assert.True(t, math.IsInf(idle.FreshAgingRate(), 1))

	// core: power over peak power
	c := platform.NewUnit("c", 0, platform.KindCore, platform.Redundancy{},
		map[string]float64{trace.QuantityPower: 1, trace.QuantityPeakPower: 4}, nil)
	require.NoError(t, c.ComputeReliability([]mechanism.Mechanism{dutyMech{name: "stub"}}))
	assert.InEpsilon(t, 4/gamma, c.FreshAgingRate(), 1e-9)

	// logic: toggles over elapsed cycles; NBTI sees the complementary form
	l := platform.NewUnit("l", 0, platform.KindLogic, platform.Redundancy{},
		map[string]float64{trace.QuantityActivity: 5e8, trace.QuantityFrequency: 1000}, nil)
	require.NoError(t, l.ComputeReliability([]mechanism.Mechanism{dutyMech{name: "NBTI"}, dutyMech{name: "HCI"}}))
	// toggles 5e8 over 1 s at 1 GHz is a duty cycle of 0.5
	assert.InEpsilon(t, 2/gamma, l.MechanismRate("HCI"), 1e-9)
	assert.InEpsilon(t, (1/0.875)/gamma, l.MechanismRate("NBTI"), 1e-9, "Expected NBTI stress of 1 - d^2/2")

	// memory: full stress except HCI
	m := platform.NewUnit("m", 0, platform.KindMemory, platform.Redundancy{}, nil, nil)
	require.NoError(t, m.ComputeReliability([]mechanism.Mechanism{dutyMech{name: "HCI"}, dutyMech{name: "EM"}}))
	assert.True(t, math.IsInf(m.MechanismRate("HCI"), 1), "Expected bit cells immune to HCI")
	assert.InEpsilon(t, 1/gamma, m.MechanismRate("EM"), 1e-9)
}

func TestKindFromString(t *testing.T) {
	for s, want := range map[string]platform.Kind{
		"":        platform.KindGeneric,
		"unit":    platform.KindGeneric,
		"generic": platform.KindGeneric,
		"core":    platform.KindCore,
		"logic":   platform.KindLogic,
		"memory":  platform.KindMemory,
	} {
		kind, err := platform.KindFromString(s)
		require.NoError(t, err)
		assert.Equal(t, want, kind)
	}

	_, err := platform.KindFromString("dsp")
	require.Error(t, err, "Expected unknown kinds to be rejected")

	assert.Equal(t, "core", platform.KindCore.String())
	assert.Equal(t, "unit", platform.KindGeneric.String())
}

func TestSetConfiguration(t *testing.T) {
	a := newTableUnit(t, "a", map[platform.Config]float64{
		platform.Fresh:         1000,
		platform.ConfigOf("b"): 500,
	})
	b := newTableUnit(t, "b", map[platform.Config]float64{platform.Fresh: 1000})
	root := platform.NewGroup("root", 1, a, b)

	a.SetConfiguration(root)
	assert.Equal(t, platform.Fresh, a.Configuration())

	b.MarkFailed()
	a.SetConfiguration(root)
	assert.Equal(t, platform.ConfigOf("b"), a.Configuration())
	assert.InEpsilon(t, 500/math.Gamma(1.5), a.AgingRate(a.Configuration()), 1e-9)
}

func TestSetConfigurationFallsBackToFresh(t *testing.T) {
	a := newTableUnit(t, "a", map[platform.Config]float64{platform.Fresh: 1000})
	b := newTableUnit(t, "b", map[platform.Config]float64{platform.Fresh: 1000})
	root := platform.NewGroup("root", 1, a, b)

	b.MarkFailed()
	a.SetConfiguration(root)
	assert.Equal(t, platform.Fresh, a.Configuration(), "Expected unbound configuration to fall back to fresh")
}

func TestAdvanceAge(t *testing.T) {
	u := newTableUnit(t, "a", map[platform.Config]float64{platform.Fresh: 1000})
	u.Reset()

	assert.Equal(t, 1.0, u.CurrentReliability())

	u.AdvanceAge(100)
	assert.Equal(t, 100.0, u.Age())
	assert.InEpsilon(t, u.ReliabilityAt(platform.Fresh, 100), u.CurrentReliability(), 1e-12)
	assert.Less(t, u.CurrentReliability(), 1.0)

	u.AdvanceAge(50)
	assert.Equal(t, 150.0, u.Age())
}

func TestAgeRebaseAcrossConfigSwitch(t *testing.T) {
	a := newTableUnit(t, "a", map[platform.Config]float64{
		platform.Fresh:         1000,
		platform.ConfigOf("b"): 250,
	})
	b := newTableUnit(t, "b", map[platform.Config]float64{platform.Fresh: 1000})
	root := platform.NewGroup("root", 1, a, b)

	a.Reset()
	b.Reset()

	a.SetConfiguration(root)
	a.AdvanceAge(300)
	before := a.CurrentReliability()

	b.MarkFailed()
	a.SetConfiguration(root)
	a.AdvanceAge(0)

	assert.InEpsilon(t, before, a.CurrentReliability(), 1e-9,
		"Expected survival probability continuous across the switch")
	assert.InEpsilon(t, a.InverseFor(platform.ConfigOf("b"), before), a.Age(), 1e-9,
		"Expected age translated onto the degraded configuration's clock")
	assert.Less(t, a.Age(), 300.0, "Expected the same damage reached sooner on the faster-aging clock")

	// aging continues on the degraded clock
	a.AdvanceAge(10)
	assert.Less(t, a.CurrentReliability(), before)
}

func TestSerialRedundancy(t *testing.T) {
	u := platform.NewUnit("a", 0, platform.KindGeneric, platform.Redundancy{Serial: true, Copies: 2}, nil,
		mttfTrace(map[platform.Config]float64{platform.Fresh: 1000}))
	require.NoError(t, u.ComputeReliability([]mechanism.Mechanism{tableMech{name: "stub"}}))
	u.Reset()

	u.AdvanceAge(500)
	require.Less(t, u.CurrentReliability(), 1.0)

	u.Failure()
	assert.False(t, u.Failed(), "Expected the standby spare to take over")
	assert.Zero(t, u.Age(), "Expected the spare to start unaged")
	assert.Equal(t, 1.0, u.CurrentReliability())

	u.Failure()
	assert.True(t, u.Failed(), "Expected failure once no copies remain")
}

func TestParallelRedundancy(t *testing.T) {
	u := platform.NewUnit("a", 0, platform.KindGeneric, platform.Redundancy{Serial: false, Copies: 2}, nil,
		mttfTrace(map[platform.Config]float64{platform.Fresh: 1000}))
	require.NoError(t, u.ComputeReliability([]mechanism.Mechanism{tableMech{name: "stub"}}))
	u.Reset()

	u.AdvanceAge(500)
	worn := u.CurrentReliability()

	u.Failure()
	assert.False(t, u.Failed())
	assert.Equal(t, 500.0, u.Age(), "Expected parallel copies to share wear")
	assert.Equal(t, worn, u.CurrentReliability())

	u.Failure()
	assert.True(t, u.Failed())
}

func TestReset(t *testing.T) {
	u := newTableUnit(t, "a", map[platform.Config]float64{platform.Fresh: 1000})
	u.Reset()
	u.AdvanceAge(500)
	u.Failure()
	require.True(t, u.Failed())

	u.Reset()
	assert.False(t, u.Failed())
	assert.Zero(t, u.Age())
	assert.Equal(t, 1.0, u.CurrentReliability())
	assert.Equal(t, platform.Fresh, u.Configuration())
}

func TestNextEventDelay(t *testing.T) {
	u := newTableUnit(t, "a", map[platform.Config]float64{platform.Fresh: 1000})
	u.Reset()
	rng := rand.New(rand.NewSource(1))

	for i := 0; i < 100; i++ {
		delay := u.NextEventDelay(rng)
		assert.Greater(t, delay, 0.0)
		assert.False(t, math.IsInf(delay, 1))
	}

	// an already-aged unit samples conditional on survival so far
	u.AdvanceAge(800)
	delay := u.NextEventDelay(rng)
	assert.Greater(t, delay, 0.0)

	immortal := newTableUnit(t, "b", map[platform.Config]float64{platform.Fresh: math.Inf(1)})
	immortal.Reset()
	assert.True(t, math.IsInf(immortal.NextEventDelay(rng), 1), "Expected no events from a never-failing unit")
}

func TestMarkParentsFailed(t *testing.T) {
	a := newTableUnit(t, "a", map[platform.Config]float64{platform.Fresh: 1000})
	b := newTableUnit(t, "b", map[platform.Config]float64{platform.Fresh: 1000})
	c := newTableUnit(t, "c", map[platform.Config]float64{platform.Fresh: 1000})
	inner := platform.NewGroup("inner", 0, a, b)
	root := platform.NewGroup("root", 1, inner, c)
	units := []*platform.Unit{a, b, c}

	for _, u := range units {
		u.Reset()
	}

	a.MarkFailed()
	require.True(t, inner.Failed())
	require.False(t, root.Failed())

	marked := platform.MarkParentsFailed(root, units)
	require.Len(t, marked, 1)
	assert.Same(t, b, marked[0], "Expected the healthy unit inside the dead group to be marked")
	assert.True(t, b.Failed())
	assert.False(t, c.Failed())
}

func TestFailedInConfig(t *testing.T) {
	u := newTableUnit(t, "a", map[platform.Config]float64{platform.Fresh: 1000})

	assert.True(t, u.FailedInConfig(platform.ConfigOf("a", "b")))
	assert.False(t, u.FailedInConfig(platform.ConfigOf("b")))
	assert.Zero(t, u.AgingRate(platform.ConfigOf("a")), "Expected no aging rate for a unit failed in the configuration")
}
