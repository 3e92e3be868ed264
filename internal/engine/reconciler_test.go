package engine

import (
	"testing"

	"orb-trading-bot/internal/types"
)

func TestReconcilerTrackRejectsDuplicates(t *testing.T) {
	r := NewReconciler()
	if err := r.Track(&PendingOrder{ID: "A", Purpose: PurposeEntry}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := r.Track(&PendingOrder{ID: "A", Purpose: PurposeExit}); err == nil {
		t.Error("Expected error for duplicate id")
	}
	if got := r.Get("A").Status; got != types.OrderSubmitted {
		t.Errorf("Expected SUBMITTED, got %s", got)
	}
}

func TestReconcilerResolve(t *testing.T) {
	r := NewReconciler()
	_ = r.Track(&PendingOrder{ID: "A", Purpose: PurposeEntry, RequestedPrice: 100})

	if po, applied := r.Resolve(types.OrderAck{OrderID: "B", Status: types.OrderFilled}); po != nil || applied {
		t.Errorf("Expected unknown id to be ignored, got %+v applied=%v", po, applied)
	}
	if _, applied := r.Resolve(types.OrderAck{OrderID: "A", Status: types.OrderSubmitted}); applied {
		t.Error("Expected SUBMITTED echo not to apply")
	}

	po, applied := r.Resolve(types.OrderAck{OrderID: "A", Status: types.OrderFilled, FillPrice: 101})
	if !applied || po.FillPrice != 101 || po.Status != types.OrderFilled {
		t.Errorf("Expected fill at 101 applied, got %+v applied=%v", po, applied)
	}

	po, applied = r.Resolve(types.OrderAck{OrderID: "A", Status: types.OrderCancelled})
	if applied || po.Status != types.OrderFilled {
		t.Errorf("Expected terminal order to stay FILLED, got %s applied=%v", po.Status, applied)
	}
}

func TestReconcilerOutstandingOrder(t *testing.T) {
	r := NewReconciler()
	_ = r.Track(&PendingOrder{ID: "E1", Purpose: PurposeExit})
	_ = r.Track(&PendingOrder{ID: "N1", Purpose: PurposeEntry})
	_ = r.Track(&PendingOrder{ID: "E2", Purpose: PurposeExit})

	if po := r.Outstanding(PurposeExit); po == nil || po.ID != "E1" {
		t.Fatalf("Expected oldest exit E1, got %+v", po)
	}
	r.Get("E1").Abandoned = true
	if po := r.Outstanding(PurposeExit); po == nil || po.ID != "E2" {
		t.Errorf("Expected E2 once E1 is abandoned, got %+v", po)
	}
	r.Resolve(types.OrderAck{OrderID: "E2", Status: types.OrderCancelled})
	if po := r.Outstanding(PurposeExit); po != nil {
		t.Errorf("Expected no outstanding exit, got %+v", po)
	}

	open := r.Open()
	if len(open) != 2 || open[0].ID != "E1" || open[1].ID != "N1" {
		t.Errorf("Expected E1 and N1 open, got %+v", open)
	}
}

func TestReconcilerFillWithoutPrice(t *testing.T) {
	r := NewReconciler()
	_ = r.Track(&PendingOrder{ID: "A", Purpose: PurposeExit, RequestedPrice: 82})
	po, _ := r.Resolve(types.OrderAck{OrderID: "A", Status: types.OrderFilled})
	if po.FillPrice != 82 {
		t.Errorf("Expected fill to fall back to 82, got %.2f", po.FillPrice)
	}
}
