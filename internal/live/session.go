// Package live drives the breakout engine from a broker's streams. All
// ticks, bars, acknowledgements and clock events go through one queue and are
// applied by a single goroutine, so a Day is never touched concurrently.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"orb-trading-bot/internal/engine"
	"orb-trading-bot/internal/engine/engineobs"
	"orb-trading-bot/internal/interfaces"
	"orb-trading-bot/internal/logger"
	"orb-trading-bot/internal/metrics"
	"orb-trading-bot/internal/store"
	"orb-trading-bot/internal/types"
)

var ErrAlreadyRunning = errors.New("session already running")

type eventKind int

const (
	evTick eventKind = iota
	evBar
	evAck
	evEOD
	evOpeningTimeout
	evDrainExpired
)

type event struct {
	kind eventKind
	tick types.Tick
	bar  types.Bar
	ack  types.OrderAck
	at   time.Time
	date string
}

// Status is a point-in-time view of the current trading day.
type Status struct {
	Date   string `json:"date"`
	State  string `json:"state"`
	Halted bool   `json:"halted"`
}

type Option func(*Session)

// WithJournal journals every order and acknowledgement.
func WithJournal(j engine.Journal) Option {
	return func(s *Session) { s.params.Journal = j }
}

// WithSummarizer writes the fills report when a day finishes.
func WithSummarizer(sum interfaces.EodSummarizer) Option {
	return func(s *Session) { s.summarizer = sum }
}

// WithDrainGrace overrides how long pending orders may drain after the
// deadline.
func WithDrainGrace(d time.Duration) Option {
	return func(s *Session) { s.drainGrace = d }
}

type Session struct {
	params     engine.Params
	open       engine.Clock
	loc        *time.Location
	drainGrace time.Duration

	broker     interfaces.Broker
	rec        interfaces.Recorder
	alerter    interfaces.Alerter
	summarizer interfaces.EodSummarizer

	events chan event
	done   chan struct{}
	disp   *dispatcher
	wg     sync.WaitGroup

	// Owned by the Run goroutine.
	date        string
	raw         *engine.Day
	day         interfaces.Engine
	prev        interfaces.Engine
	agg         *aggregator
	deadline    bool
	finished    bool
	drainRounds int
	drainTimer  *time.Timer
	recorded    map[string]bool

	mu      sync.Mutex
	running bool
	results []types.TradeResult
	status  Status
}

var _ interfaces.EventSink = (*Session)(nil)

// NewSession wires a session for cfg. rec and alerter may be nil.
func NewSession(cfg *store.Config, broker interfaces.Broker, rec interfaces.Recorder, alerter interfaces.Alerter, opts ...Option) *Session {
	s := &Session{
		params:     cfg.DayParams(),
		open:       cfg.OpeningClock(),
		loc:        cfg.Location(),
		drainGrace: cfg.DrainGrace(),
		broker:     broker,
		rec:        rec,
		alerter:    alerter,
		events:     make(chan event, cfg.QueueSize),
		done:       make(chan struct{}),
		agg:        newAggregator(cfg.BarInterval(), cfg.Location()),
		recorded:   make(map[string]bool),
	}
	for _, o := range opts {
		o(s)
	}
	s.disp = newDispatcher(broker, cfg.QueueSize, s.PostAck)
	return s
}

func (s *Session) PostTick(t types.Tick) { s.post(event{kind: evTick, tick: t}) }
func (s *Session) PostBar(b types.Bar) { s.post(event{kind: evBar, bar: b}) }
func (s *Session) PostAck(a types.OrderAck) { s.post(event{kind: evAck, ack: a}) }

// TriggerEOD applies the end-of-day deadline for the trading date of at.
func (s *Session) TriggerEOD(at time.Time) { s.post(event{kind: evEOD, at: at}) }

// ExpireOpening skips the trading date of at if its opening bar has not
// arrived.
func (s *Session) ExpireOpening(at time.Time) { s.post(event{kind: evOpeningTimeout, at: at}) }

// post blocks while the queue is full. Once Run has returned events are
// dropped.
func (s *Session) post(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

// Results returns every result recorded by this session.
func (s *Session) Results() []types.TradeResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.TradeResult(nil), s.results...)
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Run starts the broker and processes events until ctx is done. Positions
// left open at shutdown stay with the broker.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	s.running = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		close(s.done)
		cancel()
		s.wg.Wait()
		if s.drainTimer != nil {
			s.drainTimer.Stop()
		}
		s.broker.Stop(context.Background())
	}()

	if err := s.broker.Start(ctx, s); err != nil {
		return fmt.Errorf("start broker: %w", err)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.disp.run(ctx)
	}()

	logger.Info(ctx, "Live session started",
		"symbol", s.params.Symbol,
		"broker", s.broker.Name(),
		"opening", s.open.String(),
		"timezone", s.loc.String(),
	)
	for {
		select {
		case <-ctx.Done():
			s.shutdown(context.WithoutCancel(ctx))
			return nil
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) handle(ctx context.Context, ev event) {
	var err error
	switch ev.kind {
	case evTick:
		err = s.onTick(ctx, ev.tick)
	case evBar:
		err = s.onBar(ctx, ev.bar, true)
	case evAck:
		err = s.onAck(ctx, ev.ack)
	case evEOD:
		err = s.onEOD(ctx, ev.at)
	case evOpeningTimeout:
		err = s.onOpeningTimeout(ctx, ev.at)
	case evDrainExpired:
		err = s.onDrainExpired(ctx, ev.date)
	}
	if err != nil {
		s.escalate(ctx, err)
	}
	s.afterEvent(ctx)
}

// ensureDay makes the trading date of t current, rolling over from an
// earlier date. It reports false for events older than the current date.
func (s *Session) ensureDay(ctx context.Context, t time.Time) bool {
	date := t.In(s.loc).Format("2006-01-02")
	switch {
	case s.day == nil:
	case date == s.date:
		return true
	case date < s.date:
		logger.Debug(ctx, "Stale event ignored", "event_date", date, "date", s.date)
		return false
	default:
		s.rollover(ctx)
	}

	p := s.params
	s.raw = engine.NewDay(date, p, s.disp)
	s.day = engineobs.Wrap(s.raw)
	s.date = date
	s.deadline, s.finished, s.drainRounds = false, false, 0
	s.agg.Reset()
	logger.Info(ctx, "Trading day started", "symbol", p.Symbol, "date", date)
	return true
}

// rollover closes a day that never saw its deadline, as if it had fired
// and the grace window had already passed.
func (s *Session) rollover(ctx context.Context) {
	if !s.finished {
		logger.Warn(ctx, "Day rolled over before finishing", "date", s.date, "state", s.day.State().String())
		if !s.deadline {
			if err := s.day.ForceClose(ctx, 0); err != nil {
				s.escalate(ctx, err)
			}
		}
		if err := s.day.ExpireDrain(ctx); err != nil {
			s.escalate(ctx, err)
		}
		s.finishDay(ctx)
	}
	s.stopDrain()
	s.prev = s.day
}

func (s *Session) onTick(ctx context.Context, t types.Tick) error {
	if !s.ensureDay(ctx, t.Time) {
		return nil
	}
	if b, ok := s.agg.Add(t); ok {
		if err := s.onBar(ctx, b, false); err != nil {
			return err
		}
	}
	return s.day.OnTick(ctx, t)
}

// onBar captures the opening range from the bar at the opening time. Bars
// built from ticks only feed range capture since the ticks themselves were
// already evaluated.
func (s *Session) onBar(ctx context.Context, b types.Bar, evaluate bool) error {
	if !s.ensureDay(ctx, b.Time) {
		return nil
	}
	if s.day.State() == engine.NoRange {
		if !s.open.Matches(b.Time, s.loc) {
			return nil
		}
		err := s.day.SetRange(ctx, engine.RangeFromBar(b, s.loc))
		if errors.Is(err, engine.ErrNeutralRange) || errors.Is(err, engine.ErrDegenerateRange) {
			return nil
		}
		return err
	}
	if !evaluate {
		return nil
	}
	return s.day.OnBar(ctx, b)
}

func (s *Session) onAck(ctx context.Context, a types.OrderAck) error {
	switch {
	case s.day != nil && owns(s.day, a.OrderID):
		return s.day.OnAck(ctx, a)
	case s.prev != nil && owns(s.prev, a.OrderID):
		return s.prev.OnAck(ctx, a)
	}
	logger.Debug(ctx, "Ack for an order no day placed", "order_id", a.OrderID, "status", string(a.Status))
	return nil
}

func owns(eng interfaces.Engine, orderID string) bool {
	for _, o := range eng.Orders() {
		if o.Tag == orderID {
			return true
		}
	}
	return false
}

func (s *Session) onEOD(ctx context.Context, at time.Time) error {
	if !s.ensureDay(ctx, at) || s.deadline {
		return nil
	}
	s.deadline = true
	logger.Info(ctx, "End of day deadline", "symbol", s.params.Symbol, "date", s.date, "state", s.day.State().String())

	err := s.day.ForceClose(ctx, 0)
	if pending(s.day.State()) {
		s.armDrain()
	}
	return err
}

func (s *Session) onOpeningTimeout(ctx context.Context, at time.Time) error {
	if !s.ensureDay(ctx, at) || s.day.State() != engine.NoRange {
		return nil
	}
	if b, ok := s.agg.FlushBefore(at); ok {
		if err := s.onBar(ctx, b, false); err != nil {
			return err
		}
		if s.day.State() != engine.NoRange {
			return nil
		}
	}
	logger.Warn(ctx, "Opening bar did not arrive in time", "symbol", s.params.Symbol, "date", s.date, "opening", s.open.String())
	return s.day.Skip(ctx, engine.ErrNoOpeningBar)
}

// onDrainExpired ends a grace window. The first expiry lets the day force
// one more exit and waits again; the second closes the day out with the exit
// still unconfirmed.
func (s *Session) onDrainExpired(ctx context.Context, date string) error {
	if date != s.date || s.finished {
		return nil
	}
	s.drainTimer = nil
	s.drainRounds++
	if s.drainRounds == 1 {
		err := s.day.ExpireDrain(ctx)
		if pending(s.day.State()) {
			s.armDrain()
		}
		return err
	}
	s.finishDay(ctx)
	metrics.IncFatal("unhedged_position")
	return fmt.Errorf("%w: exit unacknowledged after grace", engine.ErrUnhedgedPosition)
}

func (s *Session) armDrain() {
	s.stopDrain()
	date := s.date
	s.drainTimer = time.AfterFunc(s.drainGrace, func() {
		s.post(event{kind: evDrainExpired, date: date})
	})
}

func (s *Session) stopDrain() {
	if s.drainTimer != nil {
		s.drainTimer.Stop()
		s.drainTimer = nil
	}
}

func pending(st engine.State) bool {
	return st == engine.EntryPending || st == engine.ExitPending
}

// afterEvent records new results and finishes the day once it is closed, or
// once the deadline has passed with nothing left to drain.
func (s *Session) afterEvent(ctx context.Context) {
	if s.prev != nil {
		s.record(ctx, s.prev.Results())
	}
	if s.day == nil {
		return
	}
	s.record(ctx, s.day.Results())

	if !s.finished {
		st := s.day.State()
		if st == engine.Closed || (s.deadline && !pending(st)) {
			s.finishDay(ctx)
		}
	}

	s.mu.Lock()
	s.status = Status{Date: s.date, State: s.day.State().String(), Halted: s.raw.Halted()}
	s.mu.Unlock()
}

func (s *Session) finishDay(ctx context.Context) {
	s.finished = true
	s.stopDrain()
	results := s.day.Finish(ctx)
	s.record(ctx, results)
	logger.Info(ctx, "Trading day finished", "symbol", s.params.Symbol, "date", s.date, "results", len(results))

	if s.summarizer == nil {
		return
	}
	path, err := s.summarizer.SummarizeDay(ctx, s.date)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to write fills report", err, "date", s.date)
		return
	}
	if path != "" {
		logger.Info(ctx, "Fills report written", "date", s.date, "path", path)
	}
}

// record appends results not yet recorded. A row is keyed by date and
// direction, matching the table's uniqueness.
func (s *Session) record(ctx context.Context, results []types.TradeResult) {
	for _, res := range results {
		key := res.Date + "|" + string(res.Direction)
		if s.recorded[key] {
			continue
		}
		s.recorded[key] = true
		if s.rec != nil {
			if err := s.rec.Record(res); err != nil {
				logger.ErrorWithErr(ctx, "Failed to record result", err, "date", res.Date, "direction", string(res.Direction))
			}
		}
		s.mu.Lock()
		s.results = append(s.results, res)
		s.mu.Unlock()
	}
}

// escalate sends conditions that need a human to the alerter. Alerts are
// delivered off the event goroutine.
func (s *Session) escalate(ctx context.Context, err error) {
	kind := ""
	switch {
	case errors.Is(err, engine.ErrUnhedgedPosition):
		kind = "UNHEDGED_POSITION"
	case errors.Is(err, engine.ErrOrphanedEntry):
		kind = "ORPHANED_ENTRY"
	case errors.Is(err, engine.ErrLateFill):
		kind = "LATE_FILL"
	}
	if kind == "" {
		logger.ErrorWithErr(ctx, "Event processing failed", err, "date", s.date)
		return
	}
	if s.alerter == nil {
		return
	}

	a := types.Alert{Time: time.Now(), Symbol: s.params.Symbol, Date: s.date, Kind: kind, Message: err.Error()}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if aerr := s.alerter.Alert(context.WithoutCancel(ctx), a); aerr != nil {
			logger.ErrorWithErr(ctx, "Failed to deliver alert", aerr, "kind", kind)
		}
	}()
}

func (s *Session) shutdown(ctx context.Context) {
	if s.day == nil || s.finished {
		logger.Info(ctx, "Live session stopped")
		return
	}
	logger.Warn(ctx, "Live session stopped mid-day",
		"date", s.date,
		"state", s.day.State().String(),
		"pending", len(s.day.Pending()),
	)
}
