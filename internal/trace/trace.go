// Package trace ingests workload traces: ordered rows of operating
// conditions (voltage, temperature, frequency, activity, power, ...) sampled
// over one representative period of a unit's life.
package trace

import (
	"encoding/csv"
	"os"
	"strconv"

	"codeberg.org/mutker/wearsim/internal/errors"
)

// Well-known quantity names. Traces may carry arbitrary additional columns;
// these are the ones the aging models consume.
const (
	QuantityVdd         = "vdd"         // V
	QuantityTemperature = "temperature" // K
	QuantityFrequency   = "frequency"   // MHz in files, Hz after Normalize
	QuantityActivity    = "activity"
	QuantityPower       = "power"      // W
	QuantityPeakPower   = "peak_power" // W
	QuantityCurrent     = "current"    // A
)

const mhzToHz = 1e6

// DataPoint is one workload sample: a duration and the operating conditions
// that held over it. Immutable once the owning unit has been built.
type DataPoint struct {
	Time     float64 // s, end of the sample window
	Duration float64 // s
	Values   map[string]float64
}

// Value looks up a quantity by name. A quantity absent from both the trace
// and the unit's defaults is a fatal input error, never a silent zero.
func (d DataPoint) Value(name string) (float64, error) {
	v, ok := d.Values[name]
	if !ok {
		return 0, errors.New().WithData(errors.ErrMissingQuantity, name)
	}
	return v, nil
}

// Has reports whether the quantity is present.
func (d DataPoint) Has(name string) bool {
	_, ok := d.Values[name]
	return ok
}

// Parse reads a delimited trace file. The first row names the quantities
// (its first column is the time column and is skipped); every following row
// is a timestamped sample. The first row's duration equals its timestamp and
// subsequent durations are the deltas between consecutive timestamps.
func Parse(path string, delim rune) ([]DataPoint, error) {
	errFactory := errors.New()

	f, err := os.Open(path)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrReadTrace, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = delim
	r.TrimLeadingSpace = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrParseTrace, err)
	}
	if len(rows) < 2 {
		return nil, errFactory.WithData(errors.ErrParseTrace, path)
	}

	quantities := rows[0][1:]

	trace := make([]DataPoint, 0, len(rows)-1)
	prev := 0.0
	for _, row := range rows[1:] {
		if len(row) != len(quantities)+1 {
			return nil, errFactory.WithData(errors.ErrParseTrace, row)
		}
		t, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return nil, errFactory.Wrap(errors.ErrParseTrace, err)
		}
		values := make(map[string]float64, len(quantities))
		for i, name := range quantities {
			v, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, errFactory.Wrap(errors.ErrParseTrace, err)
			}
			values[name] = v
		}
		trace = append(trace, DataPoint{Time: t, Duration: t - prev, Values: values})
		prev = t
	}

	return trace, nil
}

// ApplyDefaults fills quantities missing from individual samples with the
// given default values. Quantities present in the trace always win.
func ApplyDefaults(trace []DataPoint, defaults map[string]float64) {
	for _, point := range trace {
		for name, value := range defaults {
			if _, ok := point.Values[name]; !ok {
				point.Values[name] = value
			}
		}
	}
}

// Normalize converts file units to SI units. Trace files and defaults carry
// frequency in MHz.
func Normalize(trace []DataPoint) {
	for _, point := range trace {
		if f, ok := point.Values[QuantityFrequency]; ok {
			point.Values[QuantityFrequency] = f * mhzToHz
		}
	}
}
