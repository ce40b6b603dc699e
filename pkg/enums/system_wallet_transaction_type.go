package enums

import "fmt"

// SystemWalletTransactionType labels an entry in the escrow ledger.
type SystemWalletTransactionType string

const (
	SystemWalletTransactionTypeHoldFromCustomer SystemWalletTransactionType = "HoldFromCustomer"
	SystemWalletTransactionTypeReleaseToShop    SystemWalletTransactionType = "ReleaseToShop"
	SystemWalletTransactionTypeRefundToCustomer SystemWalletTransactionType = "RefundToCustomer"
)

var validSystemWalletTransactionTypes = []SystemWalletTransactionType{
	SystemWalletTransactionTypeHoldFromCustomer,
	SystemWalletTransactionTypeReleaseToShop,
	SystemWalletTransactionTypeRefundToCustomer,
}

// String implements fmt.Stringer.
func (t SystemWalletTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known SystemWalletTransactionType.
func (t SystemWalletTransactionType) IsValid() bool {
	for _, candidate := range validSystemWalletTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseSystemWalletTransactionType converts raw input into a SystemWalletTransactionType.
func ParseSystemWalletTransactionType(value string) (SystemWalletTransactionType, error) {
	for _, candidate := range validSystemWalletTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid system wallet transaction type %q", value)
}
