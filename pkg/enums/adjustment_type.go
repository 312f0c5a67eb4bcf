package enums

import "fmt"

type AdjustmentType string

const (
	AdjustmentTypePercentage AdjustmentType = "percentage"
	AdjustmentTypeFixed      AdjustmentType = "fixed"
)

var validAdjustmentTypes = []AdjustmentType{
	AdjustmentTypePercentage,
	AdjustmentTypeFixed,
}

// String implements fmt.Stringer.
func (t AdjustmentType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known AdjustmentType.
func (t AdjustmentType) IsValid() bool {
	for _, candidate := range validAdjustmentTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseAdjustmentType converts raw input into an AdjustmentType.
func ParseAdjustmentType(value string) (AdjustmentType, error) {
	for _, candidate := range validAdjustmentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid adjustment type %q", value)
}
