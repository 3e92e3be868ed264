package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"orb-trading-bot/internal/broker/paper"
	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/store"
	"orb-trading-bot/internal/types"
)

var open = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func testConfig() *store.Config {
	cfg := store.Default()
	cfg.Symbol = "DAX"
	cfg.Timezone = "UTC"
	return cfg
}

// manualBroker accepts orders and leaves acknowledging them to the test.
type manualBroker struct {
	orders chan types.OrderReq
	refuse types.Side
}

func newManualBroker() *manualBroker {
	return &manualBroker{orders: make(chan types.OrderReq, 16)}
}

func (b *manualBroker) Name() string { return "MANUAL" }
func (b *manualBroker) Start(context.Context, interfaces.EventSink) error { return nil }
func (b *manualBroker) Stop(context.Context) {}

func (b *manualBroker) PlaceOrder(_ context.Context, req types.OrderReq) (types.OrderResp, error) {
	if b.refuse != "" && req.Side == b.refuse {
		return types.OrderResp{}, errors.New("insufficient margin")
	}
	b.orders <- req
	return types.OrderResp{OrderID: req.Tag, Status: "accepted"}, nil
}

func (b *manualBroker) next(t *testing.T) types.OrderReq {
	t.Helper()
	select {
	case req := <-b.orders:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("Expected an order, got none")
		return types.OrderReq{}
	}
}

type memRecorder struct {
	mu   sync.Mutex
	rows []types.TradeResult
}

func (r *memRecorder) Record(res types.TradeResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, res)
	return nil
}

func (r *memRecorder) ResultsForDate(string) ([]types.TradeResult, error) { return nil, nil }
func (r *memRecorder) Close() error { return nil }

type memAlerter struct {
	mu     sync.Mutex
	alerts []types.Alert
}

func (a *memAlerter) Alert(_ context.Context, al types.Alert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, al)
	return nil
}

func (a *memAlerter) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, al := range a.alerts {
		out = append(out, al.Kind)
	}
	return out
}

func run(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("Expected clean shutdown, got %v", err)
		}
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("Timed out waiting for %s", what)
}

func waitState(t *testing.T, s *Session, state string) {
	t.Helper()
	waitFor(t, state, func() bool { return s.Status().State == state })
}

func at(minutes int) time.Time { return open.Add(time.Duration(minutes) * time.Minute) }

func openingBar() types.Bar {
	return types.Bar{Time: open, Open: 92, High: 100, Low: 90, Close: 98}
}

func TestSessionTargetWithPaperBroker(t *testing.T) {
	rec := &memRecorder{}
	s := NewSession(testConfig(), paper.New(), rec, nil)
	run(t, s)

	s.PostBar(openingBar())
	s.PostBar(types.Bar{Time: at(15), Open: 98, High: 101, Low: 95, Close: 100})
	waitState(t, s, "IN_LONG")

	s.PostBar(types.Bar{Time: at(30), Open: 100, High: 109, Low: 99, Close: 108})
	waitFor(t, "two results", func() bool { return len(s.Results()) == 2 })

	res := s.Results()
	if res[0].Direction != types.Long || res[0].Outcome != types.TargetHit || res[0].ExitPrice != 108 || res[0].Points != 8 {
		t.Errorf("Expected LONG TARGET_HIT 108 +8, got %+v", res[0])
	}
	if res[1].Direction != types.Short || res[1].Outcome != types.NotTriggered {
		t.Errorf("Expected SHORT NOT_TRIGGERED, got %+v", res[1])
	}
	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.rows) != 2 {
		t.Errorf("Expected 2 recorded rows, got %d", len(rec.rows))
	}
}

func TestSessionEODClosesPosition(t *testing.T) {
	brk := newManualBroker()
	s := NewSession(testConfig(), brk, nil, nil)
	run(t, s)

	s.PostBar(openingBar())
	s.PostBar(types.Bar{Time: at(15), Open: 98, High: 101, Low: 95, Close: 100})
	entry := brk.next(t)
	if entry.Side != types.SideBuy {
		t.Fatalf("Expected a BUY entry, got %s", entry.Side)
	}
	s.PostAck(types.OrderAck{OrderID: entry.Tag, Status: types.OrderFilled, FillPrice: 100.5})
	waitState(t, s, "IN_LONG")

	s.PostTick(types.Tick{Time: at(40), Price: 97})
	s.TriggerEOD(at(8 * 60))
	exit := brk.next(t)
	if exit.Side != types.SideSell || exit.Type != types.OrderMarket {
		t.Fatalf("Expected a market SELL exit, got %+v", exit)
	}
	waitState(t, s, "EXIT_PENDING")

	s.PostAck(types.OrderAck{OrderID: exit.Tag, Status: types.OrderFilled, FillPrice: 97})
	waitFor(t, "results", func() bool { return len(s.Results()) == 2 })
	if r := s.Results()[0]; r.Outcome != types.EODClose || r.ExitPrice != 97 || r.Points != -3.5 {
		t.Errorf("Expected EOD_CLOSE at 97 for -3.5, got %+v", r)
	}
}

func TestSessionRefusedExitAlerts(t *testing.T) {
	brk := newManualBroker()
	brk.refuse = types.SideSell
	alerts := &memAlerter{}
	s := NewSession(testConfig(), brk, nil, alerts)
	run(t, s)

	s.PostBar(openingBar())
	s.PostBar(types.Bar{Time: at(15), Open: 98, High: 101, Low: 95, Close: 100})
	entry := brk.next(t)
	s.PostAck(types.OrderAck{OrderID: entry.Tag, Status: types.OrderFilled})
	waitState(t, s, "IN_LONG")

	s.PostBar(types.Bar{Time: at(30), Open: 100, High: 101, Low: 80, Close: 81})
	waitFor(t, "halt", func() bool { return s.Status().Halted })
	waitFor(t, "alert", func() bool { return len(alerts.kinds()) == 1 })
	if k := alerts.kinds()[0]; k != "UNHEDGED_POSITION" {
		t.Errorf("Expected UNHEDGED_POSITION, got %s", k)
	}
	if st := s.Status().State; st != "IN_LONG" {
		t.Errorf("Expected IN_LONG while halted, got %s", st)
	}
}

func TestSessionOpeningTimeoutSkips(t *testing.T) {
	s := NewSession(testConfig(), paper.New(), nil, nil)
	run(t, s)

	s.ExpireOpening(at(30))
	waitState(t, s, "CLOSED")
	s.TriggerEOD(at(8 * 60))
	s.PostTick(types.Tick{Time: at(8*60 + 1), Price: 100})
	time.Sleep(20 * time.Millisecond)
	if n := len(s.Results()); n != 0 {
		t.Errorf("Expected no results for a skipped day, got %d", n)
	}
}

func TestSessionRangeFromTicks(t *testing.T) {
	s := NewSession(testConfig(), paper.New(), nil, nil)
	run(t, s)

	for _, tk := range []types.Tick{
		{Time: at(0).Add(time.Second), Price: 92},
		{Time: at(5), Price: 100},
		{Time: at(10), Price: 90},
		{Time: at(14), Price: 98},
	} {
		s.PostTick(tk)
	}
	s.ExpireOpening(at(30))
	waitState(t, s, "RANGE_SET")

	s.PostTick(types.Tick{Time: at(31), Price: 89})
	waitState(t, s, "IN_SHORT")
}

func TestSessionRolloverFinishesPreviousDay(t *testing.T) {
	s := NewSession(testConfig(), paper.New(), nil, nil)
	run(t, s)

	s.PostBar(openingBar())
	waitState(t, s, "RANGE_SET")
	s.PostBar(types.Bar{Time: open.AddDate(0, 0, 1), Open: 92, High: 100, Low: 90, Close: 98})

	waitFor(t, "previous day results", func() bool { return len(s.Results()) == 2 })
	for _, r := range s.Results() {
		if r.Date != "2024-03-04" || r.Outcome != types.NotTriggered {
			t.Errorf("Expected NOT_TRIGGERED for 2024-03-04, got %+v", r)
		}
	}
	waitFor(t, "new day", func() bool { return s.Status().Date == "2024-03-05" })
}

func TestRunTwice(t *testing.T) {
	s := NewSession(testConfig(), paper.New(), nil, nil)
	run(t, s)
	waitFor(t, "running", func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.running
	})
	if err := s.Run(context.Background()); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("Expected ErrAlreadyRunning, got %v", err)
	}
}

func TestSessionDrainForcesOneMoreExitThenEscalates(t *testing.T) {
	brk := newManualBroker()
	alerts := &memAlerter{}
	s := NewSession(testConfig(), brk, nil, alerts, WithDrainGrace(50*time.Millisecond))
	run(t, s)

	s.PostBar(openingBar())
	s.PostBar(types.Bar{Time: at(15), Open: 98, High: 101, Low: 95, Close: 100})
	entry := brk.next(t)
	s.PostAck(types.OrderAck{OrderID: entry.Tag, Status: types.OrderFilled, FillPrice: 100})
	waitState(t, s, "IN_LONG")

	s.TriggerEOD(at(8 * 60))
	first := brk.next(t)
	second := brk.next(t)
	if first.Side != types.SideSell || second.Side != types.SideSell || first.Tag == second.Tag {
		t.Fatalf("Expected two distinct SELL exits, got %+v and %+v", first, second)
	}

	waitFor(t, "unhedged alert", func() bool { return len(alerts.kinds()) == 1 })
	if k := alerts.kinds()[0]; k != "UNHEDGED_POSITION" {
		t.Errorf("Expected UNHEDGED_POSITION, got %s", k)
	}
	select {
	case extra := <-brk.orders:
		t.Errorf("Expected no third exit, got %+v", extra)
	case <-time.After(120 * time.Millisecond):
	}
	if got := s.Results(); len(got) != 1 || got[0].Direction != types.Short || got[0].Outcome != types.NotTriggered {
		t.Fatalf("Expected only SHORT NOT_TRIGGERED after giving up, got %+v", got)
	}

	s.PostAck(types.OrderAck{OrderID: first.Tag, Status: types.OrderFilled, FillPrice: 99})
	waitFor(t, "late exit fill", func() bool { return len(s.Results()) == 2 })
	long := s.Results()[1]
	if long.Direction != types.Long || long.Outcome != types.EODClose || long.ExitPrice != 99 || long.Points != -1 {
		t.Errorf("Expected LONG EOD_CLOSE at 99 for -1, got %+v", long)
	}

	s.PostAck(types.OrderAck{OrderID: second.Tag, Status: types.OrderFilled, FillPrice: 98.5})
	waitFor(t, "late fill alert", func() bool { return len(alerts.kinds()) == 2 })
	if k := alerts.kinds()[1]; k != "LATE_FILL" {
		t.Errorf("Expected LATE_FILL, got %s", k)
	}
}
