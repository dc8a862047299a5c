package mechanism

import (
	"fmt"
	"math"

	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/trace"
)

// integration step for the forward NBTI model: one day.
const nbtiStep = 3600 * 24

// NBTI models negative bias temperature instability. Default parameters come
// from:
//
//	[3] Joshi, K., Mukhopadhyay, S., Goel, N., Mahapatra, S., "A consistent
//	    physical framework for N and P BTI in HKMG MOSFETs," IRPS 2012.
type NBTI struct {
	base
}

func NewNBTI(techFile, paramFile string) (*NBTI, error) {
	b, err := newBase("NBTI", techFile)
	if err != nil {
		return nil, err
	}

	b.merge(Params{
		"A":        5.5e12,
		"B":        8e11,
		"Gamma_IT": 4.5,
		"Gamma_HT": 4.5,
		"E_Akf":    0.175, // eV
		"E_Akr":    0.2,   // eV
		"E_ADH2":   0.58,  // eV
		"E_AHT":    0.03,  // eV
	})

	m := &NBTI{base: b}
	if err := m.loadOverrides(paramFile); err != nil {
		return nil, err
	}

	return m, nil
}

// degradation is the threshold-voltage shift dVth after stress time t at the
// given conditions [3]. The effective duty cycle accounts for partial
// recovery during the un-stressed half of the cycle [2].
func (m *NBTI) degradation(t, vdd, dVth, temperature, dutyCycle float64) float64 {
	dutyCycle = math.Pow(dutyCycle/(1+math.Sqrt((1-dutyCycle)/2)), 1.0/6.0)
	v := vdd - m.p["Vt0_p"] - dVth
	if v < 0 {
		logger.WarnOnce(fmt.Sprintf("subthreshold VDD %g not supported, operating at threshold instead", vdd))
		v = 0
	}
	eAIT := 2.0/3.0*(m.p["E_Akf"]-m.p["E_Akr"]) + m.p["E_ADH2"]/6
	dNIT := m.p["A"] * math.Pow(v, m.p["Gamma_IT"]) * math.Exp(-eAIT/(kB*temperature)) * math.Pow(t, 1.0/6.0)
	dNHT := m.p["B"] * math.Pow(v, m.p["Gamma_HT"]) * math.Exp(-m.p["E_AHT"]/(kB*temperature))

	return dutyCycle * 0.027e-12 * (dNIT + dNHT)
}

// TimeToFailure integrates the degradation curve forward in fixed steps
// until it crosses the threshold shift corresponding to the requested
// fractional delay change, then linearly interpolates between the last two
// samples. The model of [3] is not analytically invertible. A zero duty
// cycle never ages and yields +Inf.
func (m *NBTI) TimeToFailure(data trace.DataPoint, dutyCycle, fail float64) (float64, error) {
	fail = failOrDefault(fail)
	if dutyCycle == 0 {
		return math.Inf(1), nil
	}

	vdd, err := data.Value(trace.QuantityVdd)
	if err != nil {
		return 0, err
	}
	temperature, err := data.Value(trace.QuantityTemperature)
	if err != nil {
		return 0, err
	}

	// Threshold shift at which the relative delay change reaches fail [2]
	overdrive := vdd - m.p["Vt0_p"]
	dVthFail := overdrive - overdrive/math.Pow(1+fail, 1/m.p["alpha"])

	dVth, dVthPrev := 0.0, 0.0
	t := 0.0
	for ; dVth < dVthFail; t += nbtiStep {
		dVthPrev = dVth
		dVth = m.degradation(t, vdd, dVth, temperature, dutyCycle)
	}
	t -= nbtiStep

	if dVth == 0 {
		return 0, nil
	}

	return linterp(dVthFail, dVthPrev, t-nbtiStep, dVth, t), nil
}
