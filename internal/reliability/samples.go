package reliability

import "math"

// z-score for a two-sided 95% interval. A normal approximation is used
// instead of Student's t; for the sample sizes Monte-Carlo runs produce the
// difference is negligible.
const z95 = 1.96

// Samples accumulates observed times to failure across Monte-Carlo trials
// and derives summary statistics from them. Appends are attributable to the
// trial currently running; the type itself is not safe for concurrent use.
type Samples struct {
	ttfs []float64
}

// Record appends one observed failure time.
func (s *Samples) Record(t float64) {
	s.ttfs = append(s.ttfs, t)
}

// Values returns the accumulated failure times in recording order.
func (s *Samples) Values() []float64 {
	return s.ttfs
}

// Len returns the number of recorded failure times.
func (s *Samples) Len() int {
	return len(s.ttfs)
}

// Mean is the sample mean, or NaN with no samples.
func (s *Samples) Mean() float64 {
	if len(s.ttfs) == 0 {
		return math.NaN()
	}

	sum := 0.0
	for _, t := range s.ttfs {
		sum += t
	}

	return sum / float64(len(s.ttfs))
}

// StdDev is the sample standard deviation, or NaN with fewer than two
// samples.
func (s *Samples) StdDev() float64 {
	if len(s.ttfs) <= 1 {
		return math.NaN()
	}

	mean := s.Mean()
	sum := 0.0
	for _, t := range s.ttfs {
		sum += (t - mean) * (t - mean)
	}

	return math.Sqrt(sum / float64(len(s.ttfs)-1))
}

// Interval is the 95% confidence interval on the mean, or (NaN, NaN) with
// fewer than two samples.
func (s *Samples) Interval() (lo, hi float64) {
	if len(s.ttfs) <= 1 {
		return math.NaN(), math.NaN()
	}

	mean := s.Mean()
	margin := z95 * s.StdDev() / math.Sqrt(float64(len(s.ttfs)))

	return mean - margin, mean + margin
}
