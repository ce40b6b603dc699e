package orders

import "github.com/minhtran-dev/cakemarket-backend/pkg/enums"

// shopTransitions is the complete set of legal shop-side status updates.
// Shipper and customer transitions run through their own entry points with
// their own preconditions and are deliberately absent here.
var shopTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:   {enums.OrderStatusConfirmed, enums.OrderStatusCancelled},
	enums.OrderStatusConfirmed: {enums.OrderStatusReadyForPickup, enums.OrderStatusCancelled},
}

// ShopTransitionAllowed reports whether a shop may move an order from one
// status to another.
func ShopTransitionAllowed(from, to enums.OrderStatus) bool {
	for _, allowed := range shopTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
