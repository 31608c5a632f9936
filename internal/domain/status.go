package domain

type ItemStatus string

const (
	ItemNew        ItemStatus = "NEW"
	ItemInProgress ItemStatus = "IN_PROGRESS"
	ItemReady      ItemStatus = "READY"
	ItemServed     ItemStatus = "SERVED"
	ItemCancelled  ItemStatus = "CANCELLED"
)

type OrderStatus string

const (
	// OrderOpen: at least one item is still NEW, IN_PROGRESS or READY.
	OrderOpen OrderStatus = "OPEN"
	// OrderServed: every item reached SERVED.
	OrderServed OrderStatus = "SERVED"
	// OrderCompleted: every item terminal, at least one SERVED and at least
	// one CANCELLED.
	OrderCompleted OrderStatus = "COMPLETED"
	// OrderCancelled: every item CANCELLED.
	OrderCancelled OrderStatus = "CANCELLED"
)

// itemTransitions is the exhaustive set of legal item moves. Anything not
// listed is rejected; terminal states have no outgoing edges.
var itemTransitions = map[ItemStatus][]ItemStatus{
	ItemNew:        {ItemInProgress, ItemCancelled},
	ItemInProgress: {ItemReady, ItemCancelled},
	ItemReady:      {ItemServed},
}

func CanTransition(from, to ItemStatus) bool {
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s ItemStatus) Terminal() bool {
	return s == ItemServed || s == ItemCancelled
}

// DeriveOrderStatus computes the order-level status from its items. The order
// never stores this independently; it is recomputed on every item transition.
func DeriveOrderStatus(items []OrderItem) OrderStatus {
	if len(items) == 0 {
		return OrderOpen
	}
	served, cancelled := 0, 0
	for _, it := range items {
		switch it.Status {
		case ItemServed:
			served++
		case ItemCancelled:
			cancelled++
		default:
			return OrderOpen
		}
	}
	switch {
	case cancelled == len(items):
		return OrderCancelled
	case cancelled > 0:
		return OrderCompleted
	default:
		return OrderServed
	}
}
