package mechanism

import (
	"math"

	"codeberg.org/mutker/wearsim/internal/trace"
)

// HCI models hot-carrier injection. Default parameters come from [1]; the
// model is invertible, so the time to reach the failure threshold is
// computed in closed form.
type HCI struct {
	base
}

func NewHCI(techFile, paramFile string) (*HCI, error) {
	b, err := newBase("HCI", techFile)
	if err != nil {
		return nil, err
	}

	b.merge(Params{
		"E0":     0.8,   // V/nm
		"K":      1.7e8, // nm/C^0.5
		"A_bulk": 0.005,
		"phi_it": 3.7, // eV
		"lambda": 7.8, // nm
		"l":      17,  // nm
		"Esat":   0.011, // V/nm
		"n":      0.45,
	})

	m := &HCI{base: b}
	if err := m.loadOverrides(paramFile); err != nil {
		return nil, err
	}

	return m, nil
}

// TimeToFailure inverts the degradation law of [1] for the threshold shift
// corresponding to the requested fractional delay change. A zero duty cycle
// divides out to +Inf: idle gates inject no hot carriers.
func (m *HCI) TimeToFailure(data trace.DataPoint, dutyCycle, fail float64) (float64, error) {
	fail = failOrDefault(fail)

	vdd, err := data.Value(trace.QuantityVdd)
	if err != nil {
		return 0, err
	}
	temperature, err := data.Value(trace.QuantityTemperature)
	if err != nil {
		return 0, err
	}
	frequency, err := data.Value(trace.QuantityFrequency)
	if err != nil {
		return 0, err
	}

	overdrive := vdd - m.p["Vt0_n"]
	dVthFail := overdrive - overdrive/math.Pow(1+fail, 1/m.p["alpha"]) // [2]

	vt := kB / eVJ * temperature / q
	vdsat := ((overdrive + 2*vt) * m.p["L"] * m.p["Esat"]) /
		(overdrive + 2*vt + m.p["A_bulk"]*m.p["L"]*m.p["Esat"])
	em := (vdd - vdsat) / m.p["l"]
	eox := overdrive / m.p["tox"]
	aHCI := q / m.p["Cox"] * m.p["K"] * math.Sqrt(m.p["Cox"]*overdrive)

	t := math.Pow(dVthFail/(aHCI*math.Exp(eox/m.p["E0"])*math.Exp(-m.p["phi_it"]/eVJ/(q*m.p["lambda"]*em))), 1/m.p["n"]) /
		(dutyCycle * frequency)

	return t, nil
}
