package results

import (
	"fmt"
	"os"
	"strings"

	"codeberg.org/mutker/wearsim/internal/errors"
	"codeberg.org/mutker/wearsim/internal/platform"
)

// ConvertTime converts a duration in seconds to the requested display unit.
// Months are four weeks and years twelve months, matching how operating
// periods are extrapolated elsewhere.
func ConvertTime(seconds float64, units string) (float64, error) {
	t := seconds
	if units == "seconds" {
		return t, nil
	}
	t /= 60
	if units == "minutes" {
		return t, nil
	}
	t /= 60
	if units == "hours" {
		return t, nil
	}
	t /= 24
	if units == "days" {
		return t, nil
	}
	t /= 7
	if units == "weeks" {
		return t, nil
	}
	t /= 4
	if units == "months" {
		return t, nil
	}
	t /= 12
	if units == "years" {
		return t, nil
	}

	return 0, errors.New().WithData(ErrInvalidTimeUnit, units)
}

// UnitColumn is one column in a per-unit CSV report.
type UnitColumn struct {
	Name  string
	Value func(*platform.Unit) float64
}

// WriteUnitCSV writes one row per unit with the given columns. The first
// column is always the unit name.
func WriteUnitCSV(path string, units []*platform.Unit, columns []UnitColumn) error {
	errFactory := errors.New()

	var b strings.Builder
	for _, col := range columns {
		b.WriteByte(',')
		b.WriteString(col.Name)
	}
	b.WriteByte('\n')

	for _, u := range units {
		b.WriteString(u.Name())
		for _, col := range columns {
			fmt.Fprintf(&b, ",%g", col.Value(u))
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errFactory.Wrap(ErrWriteReport, err)
	}

	return nil
}

// WriteTTFDump writes the raw time-to-failure samples, one line per
// component: the component name followed by its comma-separated trial
// failure times, converted to the given display unit. The root comes first,
// then every unit.
func WriteTTFDump(path string, root platform.Component, units []*platform.Unit, timeUnits string) error {
	errFactory := errors.New()

	var b strings.Builder
	components := make([]platform.Component, 0, len(units)+1)
	components = append(components, root)
	for _, u := range units {
		components = append(components, u)
	}

	for _, c := range components {
		b.WriteString(c.Name())
		for _, ttf := range c.Lifetimes().Values() {
			converted, err := ConvertTime(ttf, timeUnits)
			if err != nil {
				return err
			}
			fmt.Fprintf(&b, ",%g", converted)
		}
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return errFactory.Wrap(ErrWriteReport, err)
	}

	return nil
}
