package mechanism

import (
	"math"

	"codeberg.org/mutker/wearsim/internal/trace"
)

// TDDB models time-dependent dielectric breakdown. Default parameters come
// from:
//
//	[5] Srinivasan, J., Adve, S. V., Bose, P., Rivers, J. A., "The case for
//	    lifetime reliability-aware microprocessors," ISCA 2004.
type TDDB struct {
	base
}

func NewTDDB(techFile, paramFile string) (*TDDB, error) {
	b, err := newBase("TDDB", techFile)
	if err != nil {
		return nil, err
	}

	b.merge(Params{
		"a": 78,
		"b": -0.081,   // 1/K
		"X": 0.759,    // eV
		"Y": -66.8,    // eV*K
		"Z": -8.37e-4, // eV/K
	})

	m := &TDDB{base: b}
	if err := m.loadOverrides(paramFile); err != nil {
		return nil, err
	}

	return m, nil
}

// TimeToFailure evaluates the closed-form TDDB lifetime model of [5] in
// device voltage and temperature.
func (m *TDDB) TimeToFailure(data trace.DataPoint, _, _ float64) (float64, error) {
	vdd, err := data.Value(trace.QuantityVdd)
	if err != nil {
		return 0, err
	}
	temperature, err := data.Value(trace.QuantityTemperature)
	if err != nil {
		return 0, err
	}

	exponent := (m.p["X"] + m.p["Y"]/temperature + m.p["Z"]*temperature) / (kB * temperature)

	return math.Pow(vdd, m.p["a"]-m.p["b"]*temperature) * math.Exp(exponent), nil
}
