package enums

// ShippingProvider records where an order's shipping fee came from.
type ShippingProvider string

const (
	// ShippingProviderFastShip marks a fee quoted by the external rate API.
	ShippingProviderFastShip ShippingProvider = "FastShip"
	// ShippingProviderFixed marks the flat fallback fee used when the rate
	// API fails or location ids are missing.
	ShippingProviderFixed ShippingProvider = "Fixed"
)

// String implements fmt.Stringer.
func (p ShippingProvider) String() string {
	return string(p)
}
