package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/metrics"
	"orb-trading-bot/internal/types"
)

// Params configures one trading day.
type Params struct {
	Symbol    string
	Bracket   BracketConfig
	Qty       int
	EntryType types.OrderType

	// Journal, when set, receives every order request and acknowledgement.
	Journal Journal
	// NewOrderID overrides client order id generation.
	NewOrderID func() string
}

// Day is the breakout lifecycle for a single trading date. It is driven by
// one goroutine; nothing in it is safe for concurrent use.
//
// With a nil Submitter the day is synchronous: entries fill at the range
// boundary, exits at the stop, target or closing level, and the pending
// states are never entered. With a Submitter every order is dispatched and
// the day waits for OnAck.
type Day struct {
	date  string
	p     Params
	sub   Submitter
	exec  *orderExecutor
	recon *Reconciler

	state  State
	rng    OpeningRange
	levels RiskLevels
	pos    *Position

	lastPrice float64
	lastAt    time.Time

	results    []types.TradeResult
	settled    map[types.Direction]bool
	unresolved map[types.Direction]bool

	skipped  error
	deadline bool
	halted   bool
	finished bool
}

func NewDay(date string, p Params, sub Submitter) *Day {
	metrics.SetDayState(int(NoRange))
	return &Day{
		date:       date,
		p:          p,
		sub:        sub,
		exec:       newOrderExecutor(p, sub),
		recon:      NewReconciler(),
		state:      NoRange,
		settled:    make(map[types.Direction]bool),
		unresolved: make(map[types.Direction]bool),
	}
}

func (d *Day) Date() string { return d.date }
func (d *Day) State() State { return d.state }
func (d *Day) Levels() RiskLevels { return d.levels }
func (d *Day) Range() OpeningRange { return d.rng }
func (d *Day) Halted() bool { return d.halted }
func (d *Day) Skipped() error { return d.skipped }
func (d *Day) Pending() []PendingOrder { return d.recon.Open() }

// Position returns a copy of the open position, if any.
func (d *Day) Position() (Position, bool) {
	if d.pos == nil {
		return Position{}, false
	}
	return *d.pos, true
}

// Orders lists every order request the day produced, in order.
func (d *Day) Orders() []types.OrderReq {
	return append([]types.OrderReq(nil), d.exec.orders...)
}

// Results lists the results appended so far.
func (d *Day) Results() []types.TradeResult {
	return append([]types.TradeResult(nil), d.results...)
}

// SetRange installs the opening range and derives risk levels. Neutral and
// degenerate ranges close the day as skipped and return the matching
// sentinel.
func (d *Day) SetRange(ctx context.Context, rng OpeningRange) error {
	if d.state != NoRange {
		return ErrRangeAlreadySet
	}
	d.rng = rng
	if rng.Color == Neutral {
		if err := d.Skip(ctx, ErrNeutralRange); err != nil {
			return err
		}
		return ErrNeutralRange
	}
	levels, err := ComputeRiskLevels(rng, d.p.Bracket)
	if err != nil {
		if skipErr := d.Skip(ctx, err); skipErr != nil {
			return skipErr
		}
		return err
	}
	d.levels = levels

	logger.Info(ctx, "Opening range set",
		"symbol", d.p.Symbol,
		"date", d.date,
		"high", rng.High,
		"low", rng.Low,
		"color", string(rng.Color),
		"long_stop", levels.LongStop,
		"long_target", levels.LongTarget,
		"short_stop", levels.ShortStop,
		"short_target", levels.ShortTarget,
	)
	return d.transition(ctx, RangeSet, "opening range captured")
}

// Skip closes a day that never got usable risk levels. It produces no
// results.
func (d *Day) Skip(ctx context.Context, reason error) error {
	if d.state != NoRange {
		return fmt.Errorf("%w: skip from %s", ErrInvalidTransition, d.state)
	}
	d.skipped = reason
	metrics.IncSkippedDay(skipLabel(reason))
	logger.Info(ctx, "Day skipped", "symbol", d.p.Symbol, "date", d.date, "reason", reason.Error())
	return d.transition(ctx, Closed, reason.Error())
}

func skipLabel(err error) string {
	switch {
	case errors.Is(err, ErrNoOpeningBar):
		return "no_opening_bar"
	case errors.Is(err, ErrNeutralRange):
		return "neutral"
	case errors.Is(err, ErrDegenerateRange):
		return "degenerate"
	default:
		return "other"
	}
}

func (d *Day) OnBar(ctx context.Context, b types.Bar) error {
	return d.evaluate(ctx, barQuote(b))
}

func (d *Day) OnTick(ctx context.Context, t types.Tick) error {
	return d.evaluate(ctx, tickQuote(t))
}

func (d *Day) evaluate(ctx context.Context, q quote) error {
	if q.last <= 0 {
		return nil
	}
	d.lastPrice = q.last
	d.lastAt = q.at
	if d.halted || d.deadline {
		return nil
	}
	switch d.state {
	case RangeSet:
		if err := d.checkBreakout(ctx, q); err != nil {
			return err
		}
		// A synchronous fill happens inside the triggering bar, which may
		// also reach the stop or target.
		if d.sub == nil && d.pos != nil {
			return d.checkExit(ctx, q)
		}
	case InLong, InShort:
		return d.checkExit(ctx, q)
	}
	return nil
}

// checkBreakout tests the long side first; a bar through both edges is long.
func (d *Day) checkBreakout(ctx context.Context, q quote) error {
	if d.recon.Outstanding(PurposeEntry) != nil {
		return nil
	}
	switch {
	case q.high > d.rng.High:
		return d.enter(ctx, types.Long, q)
	case q.low < d.rng.Low:
		return d.enter(ctx, types.Short, q)
	}
	return nil
}

func (d *Day) enter(ctx context.Context, dir types.Direction, q quote) error {
	price := d.levels.LongEntry
	if dir == types.Short {
		price = d.levels.ShortEntry
	}
	req := d.exec.build(ctx, d.date, PurposeEntry, dir, entrySide(dir), price, "breakout")

	if d.sub == nil {
		d.pos = newPosition(dir, price, d.levels, req.Tag, q.at)
		return d.transition(ctx, holding(dir), "breakout "+string(dir))
	}

	if err := d.recon.Track(&PendingOrder{
		ID:             req.Tag,
		Purpose:        PurposeEntry,
		Side:           req.Side,
		Direction:      dir,
		RequestedPrice: price,
	}); err != nil {
		return err
	}
	if err := d.transition(ctx, EntryPending, "breakout "+string(dir)); err != nil {
		return err
	}
	d.exec.send(ctx, req)
	return nil
}

func (d *Day) checkExit(ctx context.Context, q quote) error {
	outcome, level, ok := d.pos.exitSignal(q)
	if !ok {
		return nil
	}
	return d.exit(ctx, outcome, level)
}

func (d *Day) exit(ctx context.Context, outcome types.Outcome, price float64) error {
	req := d.exec.build(ctx, d.date, PurposeExit, d.pos.Direction, d.pos.exitSide(), price, string(outcome))

	if d.sub == nil {
		return d.settle(ctx, outcome, price)
	}

	if err := d.recon.Track(&PendingOrder{
		ID:             req.Tag,
		Purpose:        PurposeExit,
		Side:           req.Side,
		Direction:      d.pos.Direction,
		RequestedPrice: price,
		Reason:         outcome,
	}); err != nil {
		return err
	}
	if d.state != ExitPending {
		if err := d.transition(ctx, ExitPending, string(outcome)); err != nil {
			return err
		}
	}
	d.exec.send(ctx, req)
	return nil
}

// settle appends the position's result and closes the day. Any other exit
// still working is abandoned so a later fill on it is escalated.
func (d *Day) settle(ctx context.Context, outcome types.Outcome, exitPrice float64) error {
	res := types.TradeResult{
		Date:      d.date,
		Direction: d.pos.Direction,
		Outcome:   outcome,
		ExitPrice: exitPrice,
		Points:    d.pos.points(exitPrice),
	}
	d.results = append(d.results, res)
	d.settled[res.Direction] = true
	metrics.ObserveResult(string(res.Direction), string(res.Outcome), res.Points)

	logger.Info(ctx, "Position closed",
		"symbol", d.p.Symbol,
		"date", d.date,
		"direction", string(res.Direction),
		"outcome", string(res.Outcome),
		"entry_price", d.pos.EntryPrice,
		"exit_price", res.ExitPrice,
		"points", res.Points,
	)

	for po := d.recon.Outstanding(PurposeExit); po != nil; po = d.recon.Outstanding(PurposeExit) {
		po.Abandoned = true
	}
	d.pos = nil
	return d.transition(ctx, Closed, string(outcome))
}

// OnAck applies a broker acknowledgement. Duplicates, unknown ids and
// SUBMITTED echoes change nothing. The returned error is non-nil only for
// conditions that need a human: ErrUnhedgedPosition and ErrLateFill.
func (d *Day) OnAck(ctx context.Context, ack types.OrderAck) error {
	po, applied := d.recon.Resolve(ack)
	metrics.IncAck(string(ack.Status), applied)
	d.exec.journalAck(ctx, d.date, ack, applied)

	if po == nil {
		logger.Debug(ctx, "Ack for unknown order ignored", "order_id", ack.OrderID, "status", string(ack.Status))
		return nil
	}
	if !applied {
		logger.Debug(ctx, "Ack ignored", "order_id", ack.OrderID, "status", string(ack.Status), "current", string(po.Status))
		return nil
	}

	if po.Abandoned {
		if po.Status != types.OrderFilled {
			return nil
		}
		metrics.IncFatal("late_fill")
		logger.Risk(ctx, d.p.Symbol, "LATE_FILL",
			"date", d.date,
			"order_id", po.ID,
			"purpose", string(po.Purpose),
			"side", string(po.Side),
			"fill_price", po.FillPrice,
		)
		return fmt.Errorf("%w: %s order %s %s filled at %.2f", ErrLateFill, po.Purpose, po.ID, po.Side, po.FillPrice)
	}

	switch po.Purpose {
	case PurposeEntry:
		return d.onEntryAck(ctx, po)
	default:
		return d.onExitAck(ctx, po)
	}
}

func (d *Day) onEntryAck(ctx context.Context, po *PendingOrder) error {
	if po.Status == types.OrderCancelled {
		logger.Info(ctx, "Entry cancelled, re-armed",
			"symbol", d.p.Symbol,
			"date", d.date,
			"order_id", po.ID,
			"direction", string(po.Direction),
		)
		if err := d.transition(ctx, RangeSet, "entry cancelled"); err != nil {
			return err
		}
		if d.deadline {
			return d.transition(ctx, Closed, "deadline passed")
		}
		return nil
	}

	d.pos = newPosition(po.Direction, po.FillPrice, d.levels, po.ID, d.lastAt)
	logger.Trade(ctx, d.p.Symbol, string(po.Side), d.exec.qty, po.FillPrice, po.ID,
		"event", "ENTRY_FILLED",
		"direction", string(po.Direction),
		"requested_price", po.RequestedPrice,
	)
	if err := d.transition(ctx, holding(po.Direction), "entry filled"); err != nil {
		return err
	}
	if d.deadline {
		return d.exit(ctx, types.EODClose, d.closingPrice(0))
	}
	return nil
}

func (d *Day) onExitAck(ctx context.Context, po *PendingOrder) error {
	if d.pos == nil {
		return fmt.Errorf("%w: exit %s resolved with no position", ErrInvalidTransition, po.ID)
	}
	if po.Status == types.OrderFilled {
		return d.settle(ctx, po.Reason, po.FillPrice)
	}

	if other := d.recon.Outstanding(PurposeExit); other != nil {
		logger.Warn(ctx, "Exit cancelled, another exit still working",
			"symbol", d.p.Symbol,
			"order_id", po.ID,
			"working_order_id", other.ID,
		)
		return nil
	}

	d.halted = true
	metrics.IncFatal("unhedged_position")
	logger.Risk(ctx, d.p.Symbol, "UNHEDGED_POSITION",
		"date", d.date,
		"order_id", po.ID,
		"direction", string(d.pos.Direction),
		"entry_price", d.pos.EntryPrice,
		"reason", string(po.Reason),
	)
	if err := d.transition(ctx, holding(d.pos.Direction), "exit cancelled"); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s position from %.2f, exit %s cancelled", ErrUnhedgedPosition, d.pos.Direction, d.pos.EntryPrice, po.ID)
}

// ForceClose applies the end-of-day deadline. An open position is exited at
// price (the last seen price when price <= 0) with outcome EOD_CLOSE; an
// armed day closes untriggered; a day without a range is skipped. Pending
// orders are left to drain; see ExpireDrain.
func (d *Day) ForceClose(ctx context.Context, price float64) error {
	if d.halted {
		return fmt.Errorf("%w: %s position still open at deadline", ErrUnhedgedPosition, d.pos.Direction)
	}
	if d.deadline {
		return nil
	}
	d.deadline = true

	switch d.state {
	case NoRange:
		return d.Skip(ctx, ErrNoOpeningBar)
	case RangeSet:
		return d.transition(ctx, Closed, "deadline without breakout")
	case InLong, InShort:
		return d.exit(ctx, types.EODClose, d.closingPrice(price))
	case EntryPending, ExitPending:
		logger.Info(ctx, "Deadline reached with orders pending",
			"symbol", d.p.Symbol,
			"date", d.date,
			"state", d.state.String(),
			"pending", len(d.recon.Open()),
		)
	}
	return nil
}

// ExpireDrain ends the grace window after ForceClose. A still-pending exit
// gets one more market exit at the last price; a still-pending entry is
// abandoned and reported as ErrOrphanedEntry.
func (d *Day) ExpireDrain(ctx context.Context) error {
	if !d.deadline {
		return nil
	}
	switch d.state {
	case ExitPending:
		logger.Warn(ctx, "Exit still pending after grace, forcing close",
			"symbol", d.p.Symbol,
			"date", d.date,
		)
		return d.exit(ctx, types.EODClose, d.closingPrice(0))
	case EntryPending:
		po := d.recon.Outstanding(PurposeEntry)
		if po == nil {
			return nil
		}
		po.Abandoned = true
		d.unresolved[po.Direction] = true
		metrics.IncFatal("orphaned_entry")
		logger.Risk(ctx, d.p.Symbol, "ORPHANED_ENTRY",
			"date", d.date,
			"order_id", po.ID,
			"direction", string(po.Direction),
		)
		if err := d.transition(ctx, Closed, "entry unresolved after grace"); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s order %s", ErrOrphanedEntry, po.Direction, po.ID)
	}
	return nil
}

// Finish appends NOT_TRIGGERED for every side that neither settled nor is
// still live, and returns the day's results long side first. Skipped days
// return nothing. Later calls return the same slice.
func (d *Day) Finish(ctx context.Context) []types.TradeResult {
	if d.finished {
		return d.Results()
	}
	d.finished = true
	if d.state == NoRange {
		_ = d.Skip(ctx, ErrNoOpeningBar)
	}
	if d.skipped != nil {
		return nil
	}

	for _, dir := range []types.Direction{types.Long, types.Short} {
		if d.settled[dir] || d.unresolved[dir] {
			continue
		}
		if d.pos != nil && d.pos.Direction == dir {
			logger.Warn(ctx, "Day finished with position open", "symbol", d.p.Symbol, "date", d.date, "direction", string(dir))
			continue
		}
		if po := d.recon.Outstanding(PurposeEntry); po != nil && po.Direction == dir {
			continue
		}
		res := types.TradeResult{Date: d.date, Direction: dir, Outcome: types.NotTriggered}
		d.results = append(d.results, res)
		metrics.ObserveResult(string(dir), string(res.Outcome), 0)
	}

	sort.SliceStable(d.results, func(i, j int) bool {
		return d.results[i].Direction == types.Long && d.results[j].Direction != types.Long
	})
	return d.Results()
}

func (d *Day) closingPrice(price float64) float64 {
	if price > 0 {
		return price
	}
	return d.lastPrice
}

func (d *Day) transition(ctx context.Context, to State, reason string) error {
	if !canTransition(d.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, d.state, to)
	}
	logger.Transition(ctx, d.p.Symbol, d.date, d.state.String(), to.String(), reason)
	d.state = to
	metrics.SetDayState(int(to))
	return nil
}

func holding(dir types.Direction) State {
	if dir == types.Long {
		return InLong
	}
	return InShort
}
