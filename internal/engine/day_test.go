package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"orb-trading-bot/internal/tradelog"
	"orb-trading-bot/internal/types"
)

const testDate = "2024-03-04"

type recordingSubmitter struct {
	reqs []types.OrderReq
}

func (s *recordingSubmitter) Submit(_ context.Context, req types.OrderReq) {
	s.reqs = append(s.reqs, req)
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("ORB%04d", n)
	}
}

func testParams() Params {
	return Params{
		Symbol:     "DAX",
		Bracket:    DefaultBracketConfig(),
		Qty:        1,
		EntryType:  types.OrderMarket,
		NewOrderID: seqIDs(),
	}
}

// greenRange is high 100, low 90: long stop 82, long target 108, short stop
// 108, short target 82.
func greenRange() OpeningRange {
	return OpeningRange{Date: testDate, Open: 92, High: 100, Low: 90, Close: 98, Color: Green}
}

var barClock = time.Date(2024, 3, 4, 8, 15, 0, 0, time.UTC)

func bar(i int, high, low, close float64) types.Bar {
	return types.Bar{
		Time:  barClock.Add(time.Duration(i) * 15 * time.Minute),
		Open:  close,
		High:  high,
		Low:   low,
		Close: close,
	}
}

func newArmedDay(t *testing.T, sub Submitter) *Day {
	t.Helper()
	d := NewDay(testDate, testParams(), sub)
	if err := d.SetRange(context.Background(), greenRange()); err != nil {
		t.Fatalf("Expected range to be accepted, got %v", err)
	}
	if d.State() != RangeSet {
		t.Fatalf("Expected RANGE_SET, got %s", d.State())
	}
	return d
}

func feed(t *testing.T, d *Day, bars ...types.Bar) {
	t.Helper()
	for _, b := range bars {
		if err := d.OnBar(context.Background(), b); err != nil {
			t.Fatalf("Unexpected error on bar %v: %v", b.Time, err)
		}
	}
}

func TestSyncLongWinsWhenBarBreaksBothSides(t *testing.T) {
	d := newArmedDay(t, nil)
	feed(t, d, bar(1, 101, 89, 95))

	if d.State() != InLong {
		t.Fatalf("Expected IN_LONG, got %s", d.State())
	}
	pos, ok := d.Position()
	if !ok {
		t.Fatal("Expected an open position")
	}
	if pos.EntryPrice != 100 {
		t.Errorf("Expected entry at range high 100, got %.2f", pos.EntryPrice)
	}
	orders := d.Orders()
	if len(orders) != 1 || orders[0].Side != types.SideBuy {
		t.Errorf("Expected one BUY order, got %+v", orders)
	}
}

func TestSyncStopBeatsTargetInSameBar(t *testing.T) {
	d := newArmedDay(t, nil)
	feed(t, d, bar(1, 101, 95, 100), bar(2, 110, 80, 100))

	results := d.Finish(context.Background())
	want := []types.TradeResult{
		{Date: testDate, Direction: types.Long, Outcome: types.StopHit, ExitPrice: 82, Points: -18},
		{Date: testDate, Direction: types.Short, Outcome: types.NotTriggered},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Expected %+v, got %+v", want, results)
	}
}

func TestSyncTargetOnEntryBar(t *testing.T) {
	d := newArmedDay(t, nil)
	feed(t, d, bar(1, 109, 95, 105))

	if d.State() != Closed {
		t.Fatalf("Expected CLOSED, got %s", d.State())
	}
	results := d.Finish(context.Background())
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].Outcome != types.TargetHit || results[0].Points != 8 || results[0].ExitPrice != 108 {
		t.Errorf("Expected long TARGET_HIT at 108 for 8 points, got %+v", results[0])
	}
}

func TestSyncShortTarget(t *testing.T) {
	d := newArmedDay(t, nil)
	feed(t, d, bar(1, 95, 89, 89.5), bar(2, 92, 85, 86), bar(3, 88, 81, 82))

	results := d.Finish(context.Background())
	want := []types.TradeResult{
		{Date: testDate, Direction: types.Long, Outcome: types.NotTriggered},
		{Date: testDate, Direction: types.Short, Outcome: types.TargetHit, ExitPrice: 82, Points: 8},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Expected %+v, got %+v", want, results)
	}
	orders := d.Orders()
	if len(orders) != 2 || orders[0].Side != types.SideSell || orders[1].Side != types.SideBuy {
		t.Errorf("Expected SELL entry then BUY exit, got %+v", orders)
	}
}

func TestSyncNotTriggeredProducesNoOrders(t *testing.T) {
	d := newArmedDay(t, nil)
	feed(t, d, bar(1, 99, 91, 95), bar(2, 100, 90, 94), bar(3, 98, 92, 96))

	if err := d.ForceClose(context.Background(), 96); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	results := d.Finish(context.Background())
	want := []types.TradeResult{
		{Date: testDate, Direction: types.Long, Outcome: types.NotTriggered},
		{Date: testDate, Direction: types.Short, Outcome: types.NotTriggered},
	}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Expected %+v, got %+v", want, results)
	}
	if n := len(d.Orders()); n != 0 {
		t.Errorf("Expected no order requests, got %d", n)
	}
}

func TestSyncEODClose(t *testing.T) {
	d := newArmedDay(t, nil)
	feed(t, d, bar(1, 101, 95, 100), bar(2, 105, 99, 103))

	if err := d.ForceClose(context.Background(), 103); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	results := d.Finish(context.Background())
	if results[0].Outcome != types.EODClose || results[0].ExitPrice != 103 || results[0].Points != 3 {
		t.Errorf("Expected EOD_CLOSE at 103 for 3 points, got %+v", results[0])
	}
	if d.State() != Closed {
		t.Errorf("Expected CLOSED, got %s", d.State())
	}
}

func TestSyncNoEvaluationAfterDeadline(t *testing.T) {
	d := newArmedDay(t, nil)
	if err := d.ForceClose(context.Background(), 95); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	feed(t, d, bar(1, 120, 60, 100))
	if n := len(d.Orders()); n != 0 {
		t.Errorf("Expected no orders after the deadline, got %d", n)
	}
}

func TestSkippedDays(t *testing.T) {
	tests := []struct {
		name string
		rng  OpeningRange
		want error
	}{
		{"neutral", OpeningRange{Date: testDate, Open: 95, High: 100, Low: 90, Close: 95, Color: Neutral}, ErrNeutralRange},
		{"degenerate", OpeningRange{Date: testDate, Open: 95, High: 90, Low: 100, Close: 96, Color: Green}, ErrDegenerateRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDay(testDate, testParams(), nil)
			err := d.SetRange(context.Background(), tt.rng)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, err)
			}
			if d.State() != Closed {
				t.Errorf("Expected CLOSED, got %s", d.State())
			}
			feed(t, d, bar(1, 200, 10, 100))
			if res := d.Finish(context.Background()); len(res) != 0 {
				t.Errorf("Expected no results for a skipped day, got %+v", res)
			}
			if len(d.Orders()) != 0 {
				t.Error("Expected no orders for a skipped day")
			}
		})
	}
}

func TestSetRangeOnlyOnce(t *testing.T) {
	d := newArmedDay(t, nil)
	err := d.SetRange(context.Background(), OpeningRange{High: 200, Low: 100, Open: 100, Close: 150, Color: Green})
	if !errors.Is(err, ErrRangeAlreadySet) {
		t.Errorf("Expected ErrRangeAlreadySet, got %v", err)
	}
	if d.Range().High != 100 {
		t.Errorf("Expected original range to be kept, got high %.2f", d.Range().High)
	}
}

func TestFinishWithoutRangeSkipsDay(t *testing.T) {
	d := NewDay(testDate, testParams(), nil)
	if res := d.Finish(context.Background()); res != nil {
		t.Errorf("Expected no results, got %+v", res)
	}
	if !errors.Is(d.Skipped(), ErrNoOpeningBar) {
		t.Errorf("Expected ErrNoOpeningBar skip reason, got %v", d.Skipped())
	}
}

func TestSyncReplayIsIdempotent(t *testing.T) {
	bars := []types.Bar{bar(1, 99, 91, 95), bar(2, 101, 93, 100), bar(3, 104, 97, 102), bar(4, 103, 96, 99)}

	run := func() []types.TradeResult {
		d := newArmedDay(t, nil)
		feed(t, d, bars...)
		if err := d.ForceClose(context.Background(), bars[len(bars)-1].Close); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		return d.Finish(context.Background())
	}

	first, second := run(), run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Expected identical results, got %+v and %+v", first, second)
	}
	if first[0].Outcome != types.EODClose || first[0].Points != -1 {
		t.Errorf("Expected long EOD_CLOSE for -1 point, got %+v", first[0])
	}
}

func TestFinishIsStable(t *testing.T) {
	d := newArmedDay(t, nil)
	_ = d.ForceClose(context.Background(), 95)
	first := d.Finish(context.Background())
	second := d.Finish(context.Background())
	if !reflect.DeepEqual(first, second) || len(second) != 2 {
		t.Errorf("Expected repeated Finish to return the same 2 rows, got %+v and %+v", first, second)
	}
}

// Asynchronous mode.

func ack(id string, status types.OrderStatus, price float64) types.OrderAck {
	return types.OrderAck{OrderID: id, Status: status, FillPrice: price}
}

func TestAsyncEntryPendingBlocksSecondEntry(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)

	feed(t, d, bar(1, 101, 95, 100), bar(2, 102, 96, 101), bar(3, 95, 85, 86))

	if d.State() != EntryPending {
		t.Fatalf("Expected ENTRY_PENDING, got %s", d.State())
	}
	if len(sub.reqs) != 1 {
		t.Fatalf("Expected exactly one submitted order, got %d", len(sub.reqs))
	}
	if sub.reqs[0].Tag == "" || sub.reqs[0].Side != types.SideBuy {
		t.Errorf("Expected tagged BUY entry, got %+v", sub.reqs[0])
	}
	if p := d.Pending(); len(p) != 1 || p[0].Purpose != PurposeEntry {
		t.Errorf("Expected one pending entry, got %+v", p)
	}
}

func TestAsyncDuplicateFillAppliedOnce(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100))
	id := sub.reqs[0].Tag

	if err := d.OnAck(ctx, ack(id, types.OrderFilled, 100.5)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d.State() != InLong {
		t.Fatalf("Expected IN_LONG, got %s", d.State())
	}
	pos, _ := d.Position()

	if err := d.OnAck(ctx, ack(id, types.OrderFilled, 99)); err != nil {
		t.Fatalf("Expected duplicate to be ignored, got %v", err)
	}
	again, _ := d.Position()
	if d.State() != InLong || again != pos {
		t.Errorf("Expected duplicate fill to change nothing, got state %s position %+v", d.State(), again)
	}
	if pos.EntryPrice != 100.5 {
		t.Errorf("Expected entry at fill price 100.5, got %.2f", pos.EntryPrice)
	}
	if len(sub.reqs) != 1 {
		t.Errorf("Expected no further orders, got %d", len(sub.reqs))
	}
}

func TestAsyncEntryCancelReArms(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100))
	if err := d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderCancelled, 0)); err != nil {
		t.Fatalf("Expected entry cancel to be routine, got %v", err)
	}
	if d.State() != RangeSet {
		t.Fatalf("Expected RANGE_SET after cancel, got %s", d.State())
	}
	if _, ok := d.Position(); ok {
		t.Error("Expected no position after cancelled entry")
	}

	feed(t, d, bar(2, 95, 88, 89))
	if len(sub.reqs) != 2 || sub.reqs[1].Side != types.SideSell {
		t.Errorf("Expected a new SELL entry after re-arm, got %+v", sub.reqs)
	}
}

func TestAsyncExitSuspendsEvaluation(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100))
	_ = d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderFilled, 100.5))

	feed(t, d, bar(2, 101, 81, 82))
	if d.State() != ExitPending {
		t.Fatalf("Expected EXIT_PENDING, got %s", d.State())
	}
	feed(t, d, bar(3, 115, 70, 90), bar(4, 120, 60, 90))
	if len(sub.reqs) != 2 {
		t.Fatalf("Expected one entry and one exit, got %d orders", len(sub.reqs))
	}

	if err := d.OnAck(ctx, ack(sub.reqs[1].Tag, types.OrderFilled, 81.5)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	results := d.Finish(ctx)
	want := types.TradeResult{Date: testDate, Direction: types.Long, Outcome: types.StopHit, ExitPrice: 81.5, Points: -19}
	if results[0] != want {
		t.Errorf("Expected %+v, got %+v", want, results[0])
	}
}

func TestAsyncFillWithoutPriceUsesRequested(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 95, 89, 89.5))
	_ = d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderFilled, 0))

	pos, ok := d.Position()
	if !ok || pos.Direction != types.Short || pos.EntryPrice != 90 {
		t.Errorf("Expected short from requested price 90, got %+v", pos)
	}
}

func TestAsyncExitCancelIsFatal(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100))
	_ = d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderFilled, 100))
	feed(t, d, bar(2, 109, 99, 108))

	err := d.OnAck(ctx, ack(sub.reqs[1].Tag, types.OrderCancelled, 0))
	if !errors.Is(err, ErrUnhedgedPosition) {
		t.Fatalf("Expected ErrUnhedgedPosition, got %v", err)
	}
	if !d.Halted() || d.State() != InLong {
		t.Errorf("Expected halted IN_LONG, got halted=%v state=%s", d.Halted(), d.State())
	}

	feed(t, d, bar(3, 120, 60, 90))
	if len(sub.reqs) != 2 {
		t.Errorf("Expected no automatic retry, got %d orders", len(sub.reqs))
	}
	if err := d.ForceClose(ctx, 95); !errors.Is(err, ErrUnhedgedPosition) {
		t.Errorf("Expected deadline to escalate again, got %v", err)
	}
	if len(sub.reqs) != 2 {
		t.Errorf("Expected no forced exit while halted, got %d orders", len(sub.reqs))
	}

	results := d.Finish(ctx)
	want := []types.TradeResult{{Date: testDate, Direction: types.Short, Outcome: types.NotTriggered}}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Expected only the short slot, got %+v", results)
	}
}

func TestAsyncDeadlineDrainsPendingExit(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100))
	_ = d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderFilled, 100))
	feed(t, d, bar(2, 101, 81, 83))

	if err := d.ForceClose(ctx, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d.State() != ExitPending || len(sub.reqs) != 2 {
		t.Fatalf("Expected to wait on the pending exit, got state %s with %d orders", d.State(), len(sub.reqs))
	}

	if err := d.ExpireDrain(ctx); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(sub.reqs) != 3 {
		t.Fatalf("Expected a second forced exit, got %d orders", len(sub.reqs))
	}

	// The original stop order fills first; the forced exit is superseded.
	if err := d.OnAck(ctx, ack(sub.reqs[1].Tag, types.OrderFilled, 82)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	results := d.Results()
	if len(results) != 1 || results[0].Outcome != types.StopHit || results[0].Points != -18 {
		t.Errorf("Expected STOP_HIT for -18, got %+v", results)
	}

	err := d.OnAck(ctx, ack(sub.reqs[2].Tag, types.OrderFilled, 83))
	if !errors.Is(err, ErrLateFill) {
		t.Errorf("Expected ErrLateFill for the superseded exit, got %v", err)
	}
}

func TestAsyncDeadlineForcedExitFills(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100))
	_ = d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderFilled, 100))
	feed(t, d, bar(2, 104, 99, 103))

	if err := d.ForceClose(ctx, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d.State() != ExitPending || sub.reqs[1].Side != types.SideSell {
		t.Fatalf("Expected a SELL exit pending, got %s %+v", d.State(), sub.reqs)
	}
	_ = d.OnAck(ctx, ack(sub.reqs[1].Tag, types.OrderFilled, 102.5))

	results := d.Finish(ctx)
	if results[0].Outcome != types.EODClose || results[0].ExitPrice != 102.5 || results[0].Points != 2.5 {
		t.Errorf("Expected EOD_CLOSE at 102.5 for 2.5 points, got %+v", results[0])
	}
}

func TestAsyncEntryFilledAfterDeadlineIsClosed(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100.5))
	if err := d.ForceClose(ctx, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d.State() != EntryPending {
		t.Fatalf("Expected ENTRY_PENDING to drain, got %s", d.State())
	}

	if err := d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderFilled, 100.25)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if d.State() != ExitPending || len(sub.reqs) != 2 {
		t.Fatalf("Expected immediate EOD exit, got state %s with %d orders", d.State(), len(sub.reqs))
	}
	_ = d.OnAck(ctx, ack(sub.reqs[1].Tag, types.OrderFilled, 100.5))
	if res := d.Results(); len(res) != 1 || res[0].Outcome != types.EODClose {
		t.Errorf("Expected EOD_CLOSE, got %+v", res)
	}
}

func TestAsyncEntryCancelledAfterDeadlineCloses(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100.5))
	_ = d.ForceClose(ctx, 0)
	_ = d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderCancelled, 0))

	if d.State() != Closed {
		t.Fatalf("Expected CLOSED, got %s", d.State())
	}
	if res := d.Finish(ctx); len(res) != 2 || res[0].Outcome != types.NotTriggered || res[1].Outcome != types.NotTriggered {
		t.Errorf("Expected both sides NOT_TRIGGERED, got %+v", res)
	}
}

func TestAsyncOrphanedEntry(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 95, 89, 89.5))
	_ = d.ForceClose(ctx, 0)

	err := d.ExpireDrain(ctx)
	if !errors.Is(err, ErrOrphanedEntry) {
		t.Fatalf("Expected ErrOrphanedEntry, got %v", err)
	}
	if d.State() != Closed {
		t.Errorf("Expected CLOSED, got %s", d.State())
	}

	results := d.Finish(ctx)
	want := []types.TradeResult{{Date: testDate, Direction: types.Long, Outcome: types.NotTriggered}}
	if !reflect.DeepEqual(results, want) {
		t.Errorf("Expected only the long slot, got %+v", results)
	}

	if err := d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderFilled, 89)); !errors.Is(err, ErrLateFill) {
		t.Errorf("Expected ErrLateFill for orphaned entry, got %v", err)
	}
}

func TestAsyncUnknownAndSubmittedAcksIgnored(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	ctx := context.Background()

	feed(t, d, bar(1, 101, 95, 100))
	if err := d.OnAck(ctx, ack("nope", types.OrderFilled, 1)); err != nil {
		t.Errorf("Expected unknown id to be ignored, got %v", err)
	}
	if err := d.OnAck(ctx, ack(sub.reqs[0].Tag, types.OrderSubmitted, 0)); err != nil {
		t.Errorf("Expected SUBMITTED echo to be ignored, got %v", err)
	}
	if d.State() != EntryPending {
		t.Errorf("Expected ENTRY_PENDING, got %s", d.State())
	}
}

func TestLimitEntryCarriesBoundaryPrice(t *testing.T) {
	p := testParams()
	p.EntryType = types.OrderLimit
	sub := &recordingSubmitter{}
	d := NewDay(testDate, p, sub)
	_ = d.SetRange(context.Background(), greenRange())

	feed(t, d, bar(1, 101, 95, 100))
	req := sub.reqs[0]
	if req.Type != types.OrderLimit || req.Price != 100 {
		t.Errorf("Expected LIMIT at 100, got %+v", req)
	}

	_ = d.OnAck(context.Background(), ack(req.Tag, types.OrderFilled, 100))
	feed(t, d, bar(2, 109, 99, 108))
	if exit := sub.reqs[1]; exit.Type != types.OrderMarket || exit.Price != 0 {
		t.Errorf("Expected MARKET exit, got %+v", exit)
	}
}

type memJournal struct {
	orders []tradelog.Entry
	acks   []tradelog.AckEntry
}

func (j *memJournal) Append(e tradelog.Entry) error {
	j.orders = append(j.orders, e)
	return nil
}

func (j *memJournal) AppendAck(e tradelog.AckEntry) error {
	j.acks = append(j.acks, e)
	return nil
}

func TestJournalFilesUnderTradingDate(t *testing.T) {
	j := &memJournal{}
	p := testParams()
	p.Journal = j
	sub := &recordingSubmitter{}
	d := NewDay(testDate, p, sub)
	if err := d.SetRange(context.Background(), greenRange()); err != nil {
		t.Fatal(err)
	}
	feed(t, d, bar(1, 101, 95, 100))
	if err := d.OnAck(context.Background(), ack(sub.reqs[0].Tag, types.OrderFilled, 100.5)); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if len(j.orders) != 1 || j.orders[0].Date != testDate {
		t.Errorf("Expected 1 order journaled for %s, got %+v", testDate, j.orders)
	}
	if len(j.acks) != 1 || j.acks[0].Date != testDate || !j.acks[0].Applied {
		t.Errorf("Expected 1 applied ack journaled for %s, got %+v", testDate, j.acks)
	}
}

func TestNonPositiveQuoteIgnored(t *testing.T) {
	sub := &recordingSubmitter{}
	d := newArmedDay(t, sub)
	if err := d.OnTick(context.Background(), types.Tick{Time: barClock, Price: 0}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	feed(t, d, bar(1, 0, 0, 0))
	if d.State() != RangeSet || len(sub.reqs) != 0 {
		t.Errorf("Expected RANGE_SET with no orders, got %s and %d orders", d.State(), len(sub.reqs))
	}
}
