// Package probability turns a critical path analysis into deadline risk
// figures using the normal approximation of the project duration.
//
// When several critical paths tie on duration, the path with the largest
// total variance is used. Its spread is the widest, so the resulting
// completion probability is the most conservative of the candidates.
// Remaining ties keep the first path in enumeration order.
package probability

import (
	"encoding/json"
	"math"

	"github.com/sauravsvt/PERT-CPM/internal/cpm"
	"github.com/sauravsvt/PERT-CPM/internal/errors"
)

// Stats are the project-level figures for one deadline.
type Stats struct {
	Deadline         float64  `json:"deadline"`
	ExpectedDuration float64  `json:"expected_duration"`
	Variance         float64  `json:"variance"`
	StdDev           float64  `json:"std_dev"`
	ZScore           float64  `json:"z_score"` // ±Inf when StdDev is zero
	Probability      float64  `json:"probability"`
	Path             []string `json:"path"`       // critical path the figures are taken from
	PathIndex        int      `json:"path_index"` // index into cpm.Result.CriticalPaths, -1 if none

	// TabulatedZ is ZScore truncated to two decimals, the precision of a
	// printed z-table; TabulatedProbability is the table value for it.
	TabulatedZ           float64 `json:"tabulated_z"`
	TabulatedProbability float64 `json:"tabulated_probability"`
}

// NormalCDF is the cumulative distribution function of the standard normal
// distribution.
func NormalCDF(z float64) float64 {
	return 0.5 * math.Erfc(-z/math.Sqrt2)
}

// NormalQuantile is the inverse of NormalCDF for p in (0, 1).
func NormalQuantile(p float64) float64 {
	return math.Sqrt2 * math.Erfinv(2*p-1)
}

// SelectPath returns the critical path with the largest total variance and
// its index, or (nil, -1) when the result has no critical path.
func SelectPath(res *cpm.Result) ([]string, int) {
	best := -1
	bestVar := math.Inf(-1)
	for i, path := range res.CriticalPaths {
		if v := res.PathVariance(path); v > bestVar {
			best, bestVar = i, v
		}
	}
	if best < 0 {
		return nil, -1
	}
	return res.CriticalPaths[best], best
}

// Evaluate computes the probability of finishing by deadline.
func Evaluate(res *cpm.Result, deadline float64) (Stats, error) {
	if math.IsNaN(deadline) || math.IsInf(deadline, 0) || deadline < 0 {
		return Stats{}, errors.NewValidationError("", "deadline", deadline, errors.ErrInvalidDeadline)
	}

	s := Stats{Deadline: deadline}
	s.Path, s.PathIndex = SelectPath(res)
	if s.Path == nil {
		s.ExpectedDuration = res.TotalDuration
	} else {
		s.Path = append([]string(nil), s.Path...)
		s.ExpectedDuration = res.PathDuration(s.Path)
		s.Variance = res.PathVariance(s.Path)
	}
	s.StdDev = math.Sqrt(s.Variance)

	if s.StdDev == 0 {
		// Deterministic project: no z-score division.
		if deadline >= s.ExpectedDuration {
			s.ZScore, s.Probability = math.Inf(1), 1
		} else {
			s.ZScore, s.Probability = math.Inf(-1), 0
		}
		s.TabulatedZ, s.TabulatedProbability = s.ZScore, s.Probability
		return s, nil
	}

	s.ZScore = (deadline - s.ExpectedDuration) / s.StdDev
	s.Probability = NormalCDF(s.ZScore)
	s.TabulatedZ = math.Floor(s.ZScore*100) / 100
	s.TabulatedProbability = NormalCDF(s.TabulatedZ)
	return s, nil
}

// DeadlineFor returns the deadline met with the given confidence, e.g.
// 0.95 for a 95% chance of completion.
func DeadlineFor(res *cpm.Result, confidence float64) (float64, error) {
	if math.IsNaN(confidence) || confidence <= 0 || confidence >= 1 {
		return 0, errors.NewValidationError("", "confidence", confidence, errors.ErrInvalidConfidence)
	}
	path, _ := SelectPath(res)
	if path == nil {
		return res.TotalDuration, nil
	}
	e := res.PathDuration(path)
	sigma := math.Sqrt(res.PathVariance(path))
	if sigma == 0 {
		return e, nil
	}
	return math.Max(0, e+sigma*NormalQuantile(confidence)), nil
}

// Percent returns the probability as a percentage.
func (s Stats) Percent() float64 {
	return s.Probability * 100
}

// Deterministic reports whether the selected path has no variance.
func (s Stats) Deterministic() bool {
	return s.StdDev == 0
}

// MarshalJSON renders infinite z-scores as null.
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	return json.Marshal(struct {
		plain
		ZScore     *float64 `json:"z_score"`
		TabulatedZ *float64 `json:"tabulated_z"`
	}{
		plain:      plain(s),
		ZScore:     finite(s.ZScore),
		TabulatedZ: finite(s.TabulatedZ),
	})
}

// UnmarshalJSON accepts null z-scores produced by MarshalJSON.
func (s *Stats) UnmarshalJSON(data []byte) error {
	type plain Stats
	aux := struct {
		*plain
		ZScore     *float64 `json:"z_score"`
		TabulatedZ *float64 `json:"tabulated_z"`
	}{plain: (*plain)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.ZScore = infiniteFor(aux.ZScore, s.Probability)
	s.TabulatedZ = infiniteFor(aux.TabulatedZ, s.Probability)
	return nil
}

func finite(v float64) *float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}
	return &v
}

func infiniteFor(v *float64, probability float64) float64 {
	if v != nil {
		return *v
	}
	if probability >= 1 {
		return math.Inf(1)
	}
	return math.Inf(-1)
}
