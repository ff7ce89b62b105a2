package book

import "github.com/shopspring/decimal"

// orderNode is one FIFO slot in a PriceLevel. It is the stable handle shared
// between the level's linked list and the order index, avoiding a second
// lookup to cancel or fill a resting order once the handle is known.
type orderNode struct {
	order *Order
	prev  *orderNode
	next  *orderNode
}

// PriceLevel is the FIFO queue of resting orders at a single price on a
// single side. Invariant: Volume == sum of member quantities at all times.
type PriceLevel struct {
	Price  decimal.Decimal
	head   *orderNode
	tail   *orderNode
	Volume decimal.Decimal
	Length int
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{Price: price, Volume: decimal.Zero}
}

// append adds order to the tail of the FIFO and returns its stable node.
func (l *PriceLevel) append(o *Order) *orderNode {
	n := &orderNode{order: o}
	if l.tail == nil {
		l.head = n
		l.tail = n
	} else {
		n.prev = l.tail
		l.tail.next = n
		l.tail = n
	}
	l.Volume = l.Volume.Add(o.Quantity)
	l.Length++
	return n
}

// remove unlinks node from the FIFO in O(1).
func (l *PriceLevel) remove(n *orderNode) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev = nil
	n.next = nil
	l.Volume = l.Volume.Sub(n.order.Quantity)
	l.Length--
}

// updateQuantity applies a delta to both the order and the level's aggregate
// volume, keeping the invariant volume == sum(quantities) intact.
func (l *PriceLevel) updateQuantity(n *orderNode, delta decimal.Decimal) {
	n.order.Quantity = n.order.Quantity.Add(delta)
	l.Volume = l.Volume.Add(delta)
}

func (l *PriceLevel) headNode() *orderNode {
	return l.head
}

func (l *PriceLevel) empty() bool {
	return l.head == nil
}
