package enums

import (
	"fmt"
	"strings"
)

// Currency is one of the in-game faction currencies prices are quoted in.
type Currency string

const (
	CurrencyAIC Currency = "AIC"
	CurrencyCIS Currency = "CIS"
	CurrencyICA Currency = "ICA"
	CurrencyNCC Currency = "NCC"
)

var validCurrencies = []Currency{
	CurrencyAIC,
	CurrencyCIS,
	CurrencyICA,
	CurrencyNCC,
}

// String implements fmt.Stringer.
func (c Currency) String() string {
	return string(c)
}

// IsValid reports whether the currency is recognized.
func (c Currency) IsValid() bool {
	for _, candidate := range validCurrencies {
		if candidate == c {
			return true
		}
	}
	return false
}

// Currencies lists every supported currency.
func Currencies() []Currency {
	out := make([]Currency, len(validCurrencies))
	copy(out, validCurrencies)
	return out
}

// ParseCurrency converts a raw string into a Currency. Input is upper-cased first.
func ParseCurrency(value string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validCurrencies {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid currency %q", value)
}
