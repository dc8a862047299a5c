package mechanism

import (
	"math"

	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/trace"
)

// EM models electromigration via Black's equation:
//
//	[4] Black, J. R., "Electromigration — a brief survey and some recent
//	    results," IEEE Transactions on Electron Devices, 16(4), 1969.
type EM struct {
	base
}

func NewEM(techFile, paramFile string) (*EM, error) {
	b, err := newBase("EM", techFile)
	if err != nil {
		return nil, err
	}

	b.merge(Params{
		"n":  2,
		"Ea": 0.8,    // eV
		"w":  4.5e-7, // wire width, m
		"h":  1.2e-6, // wire height, m
		"A":  3.22e21,
	})

	m := &EM{base: b}
	if err := m.loadOverrides(paramFile); err != nil {
		return nil, err
	}

	return m, nil
}

// TimeToFailure evaluates Black's equation at the sample's operating point.
// When the trace carries no explicit current, the interconnect current is
// approximated as power/vdd; that substitution is logged, never silent.
func (m *EM) TimeToFailure(data trace.DataPoint, _, _ float64) (float64, error) {
	temperature, err := data.Value(trace.QuantityTemperature)
	if err != nil {
		return 0, err
	}

	var current float64
	if data.Has(trace.QuantityCurrent) {
		current, err = data.Value(trace.QuantityCurrent)
		if err != nil {
			return 0, err
		}
	} else {
		logger.WarnOnce("no current in trace, approximating current density from power and voltage")
		power, err := data.Value(trace.QuantityPower)
		if err != nil {
			return 0, err
		}
		vdd, err := data.Value(trace.QuantityVdd)
		if err != nil {
			return 0, err
		}
		current = power / vdd
	}

	j := current / (m.p["w"] * m.p["h"])

	return m.p["A"] * math.Pow(j, -m.p["n"]) * math.Exp(m.p["Ea"]/(kB*temperature)), nil
}
