// Package reliability implements the Weibull survivor model used by all
// aging mechanisms and the time-to-failure sample statistics reported per
// component.
//
// Aging mechanisms are assumed to follow a Weibull distribution
// R(t) = exp(-(t/alpha)^beta) with beta fixed per mechanism (JEDEC JEP122H
// uses beta = 2 for wear-out mechanisms, i.e. increasing failure rate) and
// alpha dependent on operating conditions.
package reliability

import (
	"math"

	"codeberg.org/mutker/wearsim/internal/errors"
)

// MTTFSegment is a time period over which a device experiences a constant
// failure rate with a particular mean time to failure.
type MTTFSegment struct {
	Duration float64 // s
	MTTF     float64 // s
}

// Weibull is a two-parameter Weibull survivor function. A rate (alpha) of
// +Inf is the never-fails sentinel used for units with zero activity.
type Weibull struct {
	alpha float64
	beta  float64
}

// New returns a Weibull distribution with the given rate and shape.
func New(alpha, beta float64) Weibull {
	return Weibull{alpha: alpha, beta: beta}
}

// FromSegments builds a single distribution that summarizes one
// representative operating period described as piecewise-constant MTTF
// segments. The combined rate is the duration-weighted harmonic mean of the
// per-segment rates:
//
//	alpha = 1 / (sum(duration_i/mttf_i) / sum(duration_i))
//
// following Xiang et al., "System-level reliability modeling for MPSoCs"
// (CODES+ISSS 2010). Each segment's rate parameter is its MTTF divided by
// Gamma(1/beta + 1), so a sequence with one constant MTTF builds a
// distribution whose mean is exactly that constant. Segments with an
// infinite MTTF contribute no aging; a sequence made solely of such segments
// yields the never-fails sentinel.
func FromSegments(beta float64, segments []MTTFSegment) (Weibull, error) {
	errFactory := errors.New()

	if len(segments) == 0 {
		return Weibull{}, errFactory.WithMessage(errors.ErrInvalidSegments, "empty segment sequence")
	}

	g := math.Gamma(1/beta + 1)
	rate := 0.0
	total := 0.0
	for _, s := range segments {
		if s.Duration < 0 {
			return Weibull{}, errFactory.WithData(errors.ErrInvalidSegments, s.Duration)
		}
		if !math.IsInf(s.MTTF, 1) {
			rate += s.Duration * g / s.MTTF
		}
		total += s.Duration
	}
	if total <= 0 {
		return Weibull{}, errFactory.WithMessage(errors.ErrInvalidSegments, "segments cover no time")
	}

	rate /= total
	if rate == 0 {
		return Weibull{alpha: math.Inf(1), beta: beta}, nil
	}

	return Weibull{alpha: 1 / rate, beta: beta}, nil
}

// Estimate fits the rate parameter to a set of observed failure times for a
// known shape, using the maximum-likelihood estimator
// alpha = (mean(t^beta))^(1/beta).
func Estimate(ttfs []float64, beta float64) Weibull {
	sum := 0.0
	for _, t := range ttfs {
		sum += math.Pow(t, beta)
	}
	alpha := math.Pow(sum/float64(len(ttfs)), 1/beta)

	return Weibull{alpha: alpha, beta: beta}
}

// Reliability is the survivor probability R(t) at elapsed age t.
func (w Weibull) Reliability(t float64) float64 {
	if math.IsInf(w.alpha, 1) {
		return 1
	}
	return math.Exp(-math.Pow(t/w.alpha, w.beta))
}

// Inverse is the age at which the survivor probability reaches r. It is the
// core sampling primitive: drawing r uniformly in (0, 1) yields one failure
// time.
func (w Weibull) Inverse(r float64) float64 {
	if math.IsInf(w.alpha, 1) {
		return math.Inf(1)
	}
	return w.alpha * math.Pow(-math.Log(r), 1/w.beta)
}

// MTTF is the closed-form mean of the distribution, alpha*Gamma(1/beta + 1).
func (w Weibull) MTTF() float64 {
	return w.alpha * math.Gamma(1/w.beta+1)
}

// Rate returns the rate (scale) parameter alpha.
func (w Weibull) Rate() float64 {
	return w.alpha
}

// Shape returns the shape parameter beta.
func (w Weibull) Shape() float64 {
	return w.beta
}

// Combine composes two independent distributions into the distribution of a
// series system (both must survive). This is only defined when the shapes
// match; the product of two Weibull distributions with different shapes does
// not itself follow a Weibull distribution.
func (w Weibull) Combine(other Weibull) (Weibull, error) {
	if w.beta != other.beta {
		return Weibull{}, errors.New().WithData(errors.ErrIncompatibleShapes, [2]float64{w.beta, other.beta})
	}
	alpha := math.Pow(math.Pow(1/w.alpha, w.beta)+math.Pow(1/other.alpha, w.beta), -1/w.beta)

	return Weibull{alpha: alpha, beta: w.beta}, nil
}
