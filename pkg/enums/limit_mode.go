package enums

import "fmt"

// LimitMode caps how much of a seller's synced inventory a sell order exposes.
type LimitMode string

const (
	LimitModeNone    LimitMode = "none"
	LimitModeMaxSell LimitMode = "max_sell"
	LimitModeReserve LimitMode = "reserve"
)

var validLimitModes = []LimitMode{
	LimitModeNone,
	LimitModeMaxSell,
	LimitModeReserve,
}

// String implements fmt.Stringer.
func (m LimitMode) String() string {
	return string(m)
}

// IsValid reports whether the value is a known LimitMode.
func (m LimitMode) IsValid() bool {
	for _, candidate := range validLimitModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseLimitMode converts raw input into a LimitMode.
func ParseLimitMode(value string) (LimitMode, error) {
	for _, candidate := range validLimitModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid limit mode %q", value)
}
