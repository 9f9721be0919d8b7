// Package params generates the visual adjustment tuples applied to each
// variant and encodes them into the provenance comment stamped on outputs.
package params

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Adjustment names, in the fixed order used for tuple keys, comments and
// diff reports.
const (
	Brightness  = "brightness"
	Sharpen     = "sharpen"
	Temperature = "temperature"
	Contrast    = "contrast"
	Gamma       = "gamma"
)

// Precision is the number of decimals values are rounded to before they are
// compared or written out.
const Precision = 3

var names = [...]string{Brightness, Sharpen, Temperature, Contrast, Gamma}

// Names returns the adjustment names in their fixed order.
func Names() []string {
	return append([]string(nil), names[:]...)
}

// Label returns the display form of an adjustment name ("Brightness").
func Label(name string) string {
	return cases.Title(language.Und).String(name)
}

// ErrExhausted reports that no unused parameter tuple could be drawn within
// the attempt ceiling.
var ErrExhausted = errors.New("unique parameter set exhausted")

// Set holds one value per adjustment.
type Set struct {
	Brightness  float64
	Sharpen     float64
	Temperature float64
	Contrast    float64
	Gamma       float64
}

// Key is the ordered tuple of a Set at Precision, in thousandths.
type Key [len(names)]int64

// Values returns the values in Names order.
func (s Set) Values() []float64 {
	return []float64{s.Brightness, s.Sharpen, s.Temperature, s.Contrast, s.Gamma}
}

// Get returns the value for an adjustment name.
func (s Set) Get(name string) (float64, bool) {
	switch name {
	case Brightness:
		return s.Brightness, true
	case Sharpen:
		return s.Sharpen, true
	case Temperature:
		return s.Temperature, true
	case Contrast:
		return s.Contrast, true
	case Gamma:
		return s.Gamma, true
	}
	return 0, false
}

func (s *Set) set(name string, v float64) bool {
	switch name {
	case Brightness:
		s.Brightness = v
	case Sharpen:
		s.Sharpen = v
	case Temperature:
		s.Temperature = v
	case Contrast:
		s.Contrast = v
	case Gamma:
		s.Gamma = v
	default:
		return false
	}
	return true
}

// Key returns the rounded ordered tuple used for uniqueness checks.
func (s Set) Key() Key {
	var k Key
	for i, v := range s.Values() {
		k[i] = int64(math.Round(v * math.Pow10(Precision)))
	}
	return k
}

// Format renders a value at Precision.
func Format(v float64) string {
	return strconv.FormatFloat(v, 'f', Precision, 64)
}

func (s Set) String() string {
	return FormatComment(s)
}

// Range is an inclusive [Min, Max] interval.
type Range struct {
	Min float64
	Max float64
}

func (r Range) contains(v float64) bool { return v >= r.Min && v <= r.Max }

func (r Range) clamp(v float64) float64 {
	return math.Min(math.Max(v, r.Min), r.Max)
}

// Constraints bound random generation. Values are drawn from Draw and then
// clamped into Bound; Draw is expected to be a narrow window around neutral.
type Constraints struct {
	Draw     Range
	Bound    Range
	Attempts int
}

// DefaultConstraints keeps adjustments within ±10% of neutral.
func DefaultConstraints() Constraints {
	return Constraints{
		Draw:     Range{Min: 0.9, Max: 1.1},
		Bound:    Range{Min: 0.8, Max: 1.2},
		Attempts: 5,
	}
}

// Validate checks that the ranges are ordered and nested.
func (c Constraints) Validate() error {
	if c.Bound.Min > c.Bound.Max {
		return fmt.Errorf("bound min %v exceeds max %v", c.Bound.Min, c.Bound.Max)
	}
	if c.Draw.Min > c.Draw.Max {
		return fmt.Errorf("draw min %v exceeds max %v", c.Draw.Min, c.Draw.Max)
	}
	if !c.Bound.contains(c.Draw.Min) || !c.Bound.contains(c.Draw.Max) {
		return fmt.Errorf("draw range [%v, %v] outside bound [%v, %v]", c.Draw.Min, c.Draw.Max, c.Bound.Min, c.Bound.Max)
	}
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be positive, got %d", c.Attempts)
	}
	return nil
}

func round(v float64) float64 {
	p := math.Pow10(Precision)
	return math.Round(v*p) / p
}
