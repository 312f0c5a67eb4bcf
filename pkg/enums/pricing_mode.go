package enums

// PricingMode is derived from a sell order, never stored.
type PricingMode string

const (
	PricingModeFixed   PricingMode = "fixed"
	PricingModeDynamic PricingMode = "dynamic"
)

// String implements fmt.Stringer.
func (m PricingMode) String() string {
	return string(m)
}
