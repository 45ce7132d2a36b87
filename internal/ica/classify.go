package ica

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// QualityClass is the ordered water quality category. Higher is better.
type QualityClass int

const (
	VeryPoor QualityClass = iota + 1
	Poor
	Fair
	Acceptable
	Good
)

var classNames = map[QualityClass]string{
	VeryPoor:   "VERY_POOR",
	Poor:       "POOR",
	Fair:       "FAIR",
	Acceptable: "ACCEPTABLE",
	Good:       "GOOD",
}

// QualityClasses lists every class from worst to best.
var QualityClasses = []QualityClass{VeryPoor, Poor, Fair, Acceptable, Good}

func (q QualityClass) String() string {
	if name, ok := classNames[q]; ok {
		return name
	}
	return fmt.Sprintf("QualityClass(%d)", int(q))
}

// MarshalText encodes the class by name.
func (q QualityClass) MarshalText() ([]byte, error) {
	if _, ok := classNames[q]; !ok {
		return nil, fmt.Errorf("invalid quality class %d", int(q))
	}
	return []byte(q.String()), nil
}

// UnmarshalText decodes a class name such as "FAIR".
func (q *QualityClass) UnmarshalText(text []byte) error {
	parsed, err := ParseQualityClass(string(text))
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}

// ParseQualityClass parses a class name, ignoring case.
func ParseQualityClass(s string) (QualityClass, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for class, n := range classNames {
		if n == name {
			return class, nil
		}
	}
	return 0, fmt.Errorf("unknown quality class %q", s)
}

// Upper bounds (inclusive) of each class over [0, 1].
var classBounds = []struct {
	upper *apd.Decimal
	class QualityClass
}{
	{MustDecimal("0.25"), VeryPoor},
	{MustDecimal("0.5"), Poor},
	{MustDecimal("0.7"), Fair},
	{MustDecimal("0.9"), Acceptable},
	{one, Good},
}

// Classify maps a composite coefficient in [0, 1] to its quality class.
func Classify(composite *apd.Decimal) (QualityClass, error) {
	if composite.Sign() < 0 || composite.Cmp(one) > 0 {
		return 0, &Error{Kind: ErrInvalidCompositeRange, Field: "composite_coefficient", Value: Format(composite)}
	}
	for _, b := range classBounds {
		if composite.Cmp(b.upper) <= 0 {
			return b.class, nil
		}
	}
	return 0, &Error{Kind: ErrInvalidCompositeRange, Field: "composite_coefficient", Value: Format(composite)}
}
