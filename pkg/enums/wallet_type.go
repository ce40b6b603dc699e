package enums

import "fmt"

// WalletType distinguishes customer-side from shop-side wallet entries.
type WalletType string

const (
	WalletTypeUser WalletType = "User"
	WalletTypeShop WalletType = "Shop"
)

var validWalletTypes = []WalletType{
	WalletTypeUser,
	WalletTypeShop,
}

// String implements fmt.Stringer.
func (w WalletType) String() string {
	return string(w)
}

// IsValid reports whether the value is a known WalletType.
func (w WalletType) IsValid() bool {
	for _, candidate := range validWalletTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseWalletType converts raw input into a WalletType.
func ParseWalletType(value string) (WalletType, error) {
	for _, candidate := range validWalletTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid wallet type %q", value)
}

// SystemWalletType names a pooled system-owned balance.
type SystemWalletType string

// SystemWalletTypeEscrow is the pooled balance holding customer payments
// until an order resolves.
const SystemWalletTypeEscrow SystemWalletType = "Escrow"

// IsValid reports whether the value is a known SystemWalletType.
func (s SystemWalletType) IsValid() bool {
	return s == SystemWalletTypeEscrow
}

// String implements fmt.Stringer.
func (s SystemWalletType) String() string {
	return string(s)
}
