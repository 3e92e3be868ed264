package types

import "time"

// Bar is a historical or live aggregated price bar.
type Bar struct {
	Time                   time.Time
	Open, High, Low, Close float64
}

// Tick is a last-traded price update.
type Tick struct {
	Time  time.Time
	Price float64
}

type OrderStatus string

const (
	OrderSubmitted OrderStatus = "SUBMITTED"
	OrderFilled    OrderStatus = "FILLED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// Terminal reports whether no further acknowledgement can change the order.
func (s OrderStatus) Terminal() bool {
	return s == OrderFilled || s == OrderCancelled
}

// OrderAck is a broker order-state callback. OrderID is the client order id
// carried on the request (OrderReq.Tag); FillPrice is zero when the broker did
// not report one.
type OrderAck struct {
	OrderID   string
	Status    OrderStatus
	FillPrice float64
	Message   string
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

type OrderReq struct {
	Symbol string
	Side   Side
	Qty    int
	Type   OrderType
	Price  float64 // limit price, zero for market orders
	Tag    string  // client order id
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
	None  Direction = "NONE"
)

type Outcome string

const (
	StopHit      Outcome = "STOP_HIT"
	TargetHit    Outcome = "TARGET_HIT"
	EODClose     Outcome = "EOD_CLOSE"
	NotTriggered Outcome = "NOT_TRIGGERED"
)

// TradeResult is one row of the append-only results table.
type TradeResult struct {
	Date      string    `json:"date" csv:"date"`
	Direction Direction `json:"direction" csv:"direction"`
	Outcome   Outcome   `json:"outcome" csv:"outcome"`
	ExitPrice float64   `json:"exit_price" csv:"exit_price"`
	Points    float64   `json:"points" csv:"points"`
}

// Alert is an escalation that needs a human. Kind is one of
// UNHEDGED_POSITION, ORPHANED_ENTRY or LATE_FILL.
type Alert struct {
	Time    time.Time
	Symbol  string
	Date    string
	Kind    string
	Message string
}
