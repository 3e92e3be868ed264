package engine

import (
	"fmt"

	"orb-trading-bot/internal/types"
)

type Purpose string

const (
	PurposeEntry Purpose = "ENTRY"
	PurposeExit  Purpose = "EXIT"
)

// PendingOrder is an order the day submitted and has not seen resolved.
type PendingOrder struct {
	ID             string
	Purpose        Purpose
	Side           types.Side
	Direction      types.Direction
	RequestedPrice float64
	Status         types.OrderStatus
	FillPrice      float64

	// Reason is the outcome an exit order settles with.
	Reason types.Outcome
	// Abandoned orders no longer drive the day; a fill on one is escalated.
	Abandoned bool
}

// Reconciler maps client order ids to their pending state. It is owned by a
// single Day and is not safe for concurrent use.
type Reconciler struct {
	orders map[string]*PendingOrder
	seq    []string
}

func NewReconciler() *Reconciler {
	return &Reconciler{orders: make(map[string]*PendingOrder)}
}

// Track starts following po. Ids must be unique for the day.
func (r *Reconciler) Track(po *PendingOrder) error {
	if _, ok := r.orders[po.ID]; ok {
		return fmt.Errorf("order %s already tracked", po.ID)
	}
	if po.Status == "" {
		po.Status = types.OrderSubmitted
	}
	r.orders[po.ID] = po
	r.seq = append(r.seq, po.ID)
	return nil
}

// Outstanding returns the oldest unresolved, non-abandoned order for purpose.
func (r *Reconciler) Outstanding(p Purpose) *PendingOrder {
	for _, id := range r.seq {
		po := r.orders[id]
		if po.Purpose == p && !po.Status.Terminal() && !po.Abandoned {
			return po
		}
	}
	return nil
}

// Get returns the tracked order for id, or nil.
func (r *Reconciler) Get(id string) *PendingOrder {
	return r.orders[id]
}

// Resolve applies ack and reports whether it changed anything. Unknown ids,
// SUBMITTED echoes and acks for orders already terminal are no-ops; the
// order (if known) is still returned so callers can escalate late fills.
func (r *Reconciler) Resolve(ack types.OrderAck) (*PendingOrder, bool) {
	po, ok := r.orders[ack.OrderID]
	if !ok {
		return nil, false
	}
	if po.Status.Terminal() || !ack.Status.Terminal() {
		return po, false
	}
	po.Status = ack.Status
	if ack.Status == types.OrderFilled {
		po.FillPrice = ack.FillPrice
		if po.FillPrice <= 0 {
			po.FillPrice = po.RequestedPrice
		}
	}
	return po, true
}

// Open lists every unresolved order in submission order.
func (r *Reconciler) Open() []PendingOrder {
	var out []PendingOrder
	for _, id := range r.seq {
		if po := r.orders[id]; !po.Status.Terminal() {
			out = append(out, *po)
		}
	}
	return out
}
