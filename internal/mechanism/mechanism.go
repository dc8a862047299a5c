// Package mechanism implements the physical aging laws that map operating
// conditions to a time to failure: negative bias temperature instability
// (NBTI), electromigration (EM), hot-carrier injection (HCI) and
// time-dependent dielectric breakdown (TDDB).
//
// Default process parameters come from:
//
//	[1] R. Vattikonda, W. Wang, Y. Cao, "Modeling and minimization of PMOS
//	    NBTI effect for robust nanometer design," DAC 2006.
//	[2] F. Oboril, M. B. Tahoori, "ExtraTime: Modeling and analysis of
//	    wearout due to transistor aging at microarchitecture-level,"
//	    DSN 2012.
package mechanism

import (
	"math"
	"os"
	"strings"

	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/logger"
	"codeberg.org/mutker/wearsim/internal/reliability"
	"codeberg.org/mutker/wearsim/internal/trace"
	"gopkg.in/yaml.v3"
)

// Universal constants
const (
	q   = 1.60217662e-19 // C
	kB  = 8.6173303e-5   // eV/K
	eVJ = 6.242e18       // eV per J
)

// WeibullShape is the shape parameter all mechanisms share (JEDEC JEP122H).
const WeibullShape = 2.0

// DefaultFailThreshold is the relative delay change considered a failure [2].
// Callers pass NaN as the threshold to request it.
const DefaultFailThreshold = 0.05

// Mechanism is one physical aging law.
type Mechanism interface {
	Name() string
	// Shape is the Weibull shape parameter this mechanism's failure times
	// follow.
	Shape() float64
	// TimeToFailure maps one operating point and a duty cycle to a mean time
	// to failure in seconds. fail is the fractional degradation regarded as
	// failure; NaN selects the mechanism default.
	TimeToFailure(data trace.DataPoint, dutyCycle, fail float64) (float64, error)
	// Distribution converts a trace of per-segment MTTFs into a single
	// reliability distribution.
	Distribution(segments []reliability.MTTFSegment) (reliability.Weibull, error)
}

// Params is a name-to-value table of physical and process parameters.
type Params map[string]float64

// LoadParams reads parameter overrides from a YAML file of name: value
// pairs.
func LoadParams(path string) (Params, error) {
	errFactory := errors.New()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrReadParameters, err)
	}

	p := Params{}
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, errFactory.Wrap(errors.ErrReadParameters, err)
	}

	return p, nil
}

// base carries the process parameters shared by every mechanism [1].
type base struct {
	name string
	p    Params
}

func newBase(name, techFile string) (base, error) {
	b := base{
		name: name,
		p: Params{
			"L":     65,       // gate length, nm
			"Vt0_p": 0.5,      // PMOS threshold voltage, V
			"Vt0_n": 0.5,      // NMOS threshold voltage, V
			"tox":   1.8,      // oxide thickness, nm
			"Cox":   1.92e-20, // oxide capacitance, F/nm^2
			"alpha": 1.3,      // alpha power law [2]
		},
	}
	if techFile != "" {
		overrides, err := LoadParams(techFile)
		if err != nil {
			return base{}, err
		}
		b.merge(overrides)
	}

	return b, nil
}

func (b *base) merge(overrides Params) {
	for name, value := range overrides {
		b.p[name] = value
	}
}

func (b *base) loadOverrides(paramFile string) error {
	if paramFile == "" {
		return nil
	}
	overrides, err := LoadParams(paramFile)
	if err != nil {
		return err
	}
	b.merge(overrides)

	return nil
}

func (b *base) Name() string {
	return b.name
}

func (b *base) Shape() float64 {
	return WeibullShape
}

func (b *base) Distribution(segments []reliability.MTTFSegment) (reliability.Weibull, error) {
	return reliability.FromSegments(WeibullShape, segments)
}

// failOrDefault resolves the failure threshold argument.
func failOrDefault(fail float64) float64 {
	if math.IsNaN(fail) {
		return DefaultFailThreshold
	}
	return fail
}

// linterp linearly interpolates x between the points (x0, y0) and (x1, y1).
func linterp(x, x0, y0, x1, y1 float64) float64 {
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// Files names the optional parameter override files per mechanism.
type Files struct {
	Technology string
	NBTI       string
	EM         string
	HCI        string
	TDDB       string
}

// order fixes the construction order so runs are reproducible.
var order = []string{"nbti", "em", "hci", "tddb"}

// FromNames builds the mechanisms selected by a comma-separated name list
// ("all" selects every known mechanism). Unknown names are warned about and
// skipped; an empty selection is an error.
func FromNames(list string, files Files) ([]Mechanism, error) {
	errFactory := errors.New()

	selected := map[string]bool{}
	for _, token := range strings.Split(strings.ToLower(list), ",") {
		token = strings.TrimSpace(token)
		switch token {
		case "all":
			for _, name := range order {
				selected[name] = true
			}
		case "nbti", "em", "hci", "tddb":
			selected[token] = true
		case "":
		default:
			logger.WarnOnce("ignoring unknown aging mechanism \"" + token + "\"")
		}
	}

	mechanisms := make([]Mechanism, 0, len(selected))
	for _, name := range order {
		if !selected[name] {
			continue
		}
		var (
			m   Mechanism
			err error
		)
		switch name {
		case "nbti":
			m, err = NewNBTI(files.Technology, files.NBTI)
		case "em":
			m, err = NewEM(files.Technology, files.EM)
		case "hci":
			m, err = NewHCI(files.Technology, files.HCI)
		case "tddb":
			m, err = NewTDDB(files.Technology, files.TDDB)
		}
		if err != nil {
			return nil, err
		}
		mechanisms = append(mechanisms, m)
	}

	if len(mechanisms) == 0 {
		return nil, errFactory.New(errors.ErrNoMechanisms)
	}

	return mechanisms, nil
}
