// Package dashboard runs the operational session: it pulls the ledger and the
// profile directory, recomputes metrics, rotation capital and alerts, and
// publishes each applied refresh to subscribers.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"ops-analytics/internal/alerts"
	"ops-analytics/internal/config"
	"ops-analytics/internal/domain"
	"ops-analytics/internal/feed"
	"ops-analytics/internal/metrics"
	"ops-analytics/internal/observability"
	"ops-analytics/internal/rotation"
	"ops-analytics/internal/storage"
	"ops-analytics/internal/storage/memory"
	"ops-analytics/internal/window"
)

// DefaultPollInterval is the refresh cadence used when Run gets a non-positive interval.
const DefaultPollInterval = 30 * time.Second

// Session errors.
var (
	// ErrStale is returned by Refresh when a newer refresh started before this one finished.
	// The result was discarded.
	ErrStale = errors.New("refresh superseded by a newer one")

	// ErrDayOutOfRange is returned by Toggle for a day index outside the profile schedule.
	ErrDayOutOfRange = errors.New("day index out of range")

	// ErrNoView is returned when an operation needs a view before the first refresh applied.
	ErrNoView = errors.New("no refresh applied yet")
)

// Options for creating a Session.
type Options struct {
	// Required
	Ledger     feed.Ledger
	Directory  storage.Directory
	Thresholds config.ThresholdSource

	// Optional
	AlertState storage.AlertStateStore     // nil keeps view state in memory
	Snapshots  storage.EquitySnapshotStore // nil skips snapshot persistence

	Window  window.Selector // default window; zero value means month-to-date
	Metrics metrics.Options

	Observer *observability.Metrics
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

// Session is the single owner of dashboard state.
type Session struct {
	ledger     feed.Ledger
	directory  storage.Directory
	thresholds config.ThresholdSource
	alertState storage.AlertStateStore
	snapshots  storage.EquitySnapshotStore
	window     window.Selector
	opts       metrics.Options
	observer   *observability.Metrics
	logger     logrus.FieldLogger
	now        func() time.Time

	engine    *alerts.Engine
	scheduler *rotation.Scheduler // profiles of the applied view

	toggleMu sync.Mutex // serializes read-flip-save of schedules

	started atomic.Uint64 // last generation handed out

	mu      sync.RWMutex
	view    *View
	subs    map[int]chan *View
	nextSub int
}

// New creates a Session.
func New(opts Options) *Session {
	if opts.Window.Kind == "" {
		opts.Window = window.MonthToDate()
	}
	if opts.AlertState == nil {
		opts.AlertState = memory.NewAlertStateStore()
	}
	if opts.Observer == nil {
		opts.Observer = observability.DefaultMetrics
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Session{
		ledger:     opts.Ledger,
		directory:  opts.Directory,
		thresholds: opts.Thresholds,
		alertState: opts.AlertState,
		snapshots:  opts.Snapshots,
		window:     opts.Window,
		opts:       opts.Metrics,
		observer:   opts.Observer,
		logger:     opts.Logger.WithField("component", "session"),
		now:        opts.Now,
		engine:     alerts.NewEngine(),
		scheduler:  rotation.NewScheduler(),
		subs:       make(map[int]chan *View),
	}
}

// Current returns the last applied view, or nil before the first refresh.
func (s *Session) Current() *View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Profiles returns the profiles of the applied view with every schedule toggle saved
// since, ordered by id. Empty before the first refresh.
func (s *Session) Profiles() []*domain.ProfileEntity {
	return s.scheduler.Profiles()
}

// Refresh recomputes the dashboard for the default window.
func (s *Session) Refresh(ctx context.Context) (*View, error) {
	return s.RefreshWindow(ctx, s.window)
}

// RefreshWindow recomputes the dashboard for sel. Each call takes a new generation;
// the result is applied only if no newer refresh started meanwhile, otherwise it is
// discarded and ErrStale is returned.
func (s *Session) RefreshWindow(ctx context.Context, sel window.Selector) (*View, error) {
	gen := s.started.Add(1)
	start := time.Now()

	view, err := s.build(ctx, gen, sel)
	if err != nil {
		s.observer.RecordRefresh("error", time.Since(start).Seconds())
		return nil, err
	}

	if !s.apply(view) {
		s.observer.RecordRefresh("stale", time.Since(start).Seconds())
		s.logger.WithField("generation", gen).Debug("discarding stale refresh")
		return nil, ErrStale
	}

	s.observer.RecordRefresh("applied", time.Since(start).Seconds())
	s.record(view)
	s.retain(ctx, view)
	s.persistSnapshots(ctx, view)
	return view, nil
}

// build loads inputs concurrently and runs the engines.
func (s *Session) build(ctx context.Context, gen uint64, sel window.Selector) (*View, error) {
	now := s.now()
	r := window.Resolve(sel, now)
	today := window.Resolve(window.Selector{Kind: window.KindPreset, Preset: window.PresetToday}, now)

	var (
		records     []domain.TradeRecord
		todayTrades []domain.TradeRecord
		profiles    []*domain.ProfileEntity
		houses      []*domain.House
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.ledger.Trades(gctx, r)
		if err != nil {
			return fmt.Errorf("load ledger %s: %w", r.Key(), err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		todayTrades, err = s.ledger.Trades(gctx, today)
		if err != nil {
			return fmt.Errorf("load today's trades: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		profiles, err = s.directory.Profiles.GetAll(gctx)
		if err != nil {
			return fmt.Errorf("load profiles: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		houses, err = s.directory.Houses.GetAll(gctx)
		if err != nil {
			return fmt.Errorf("load houses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	thresholds := s.thresholds.Thresholds()
	current, todayIndex := rotation.AsOf(profiles, now)

	volume := decimal.Zero
	for _, t := range todayTrades {
		volume = volume.Add(t.Stake)
	}

	items := s.engine.Run(alerts.Input{
		Profiles:    current,
		Houses:      houses,
		Thresholds:  thresholds,
		TodayIndex:  todayIndex,
		TodayVolume: &volume,
	})

	read, expanded, err := s.alertState.State(ctx)
	if err != nil {
		return nil, fmt.Errorf("load alert state: %w", err)
	}

	activeCount := 0
	for _, p := range current {
		if rotation.IsActiveToday(p, todayIndex) {
			activeCount++
		}
	}

	base := &View{
		Generation: gen,
		ComputedAt: now,
		Range:      r,
		WindowKey:  r.Key(),
		Metrics:    metrics.Compute(records, s.opts),
		Alerts:     make([]AlertView, len(items)),
		Capital: CapitalView{
			Date:        domain.Day(now),
			TodayIndex:  todayIndex,
			Total:       rotation.ActiveCapitalToday(current, todayIndex),
			ActiveCount: activeCount,
			ByHouse:     rotation.CapitalByHouse(current, houses, todayIndex),
		},
		TodayVolume: volume,
		Thresholds:  thresholds.Clamp(),
		Profiles:    profiles,
		Houses:      houses,
	}
	for i, a := range items {
		base.Alerts[i] = AlertView{AlertItem: a}
	}
	return base.withAlertState(read, expanded), nil
}

// apply installs v unless a newer refresh has started. Subscribers get v.
// Only an applied view updates the scheduler.
func (s *Session) apply(v *View) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v.Generation != s.started.Load() {
		return false
	}
	s.view = v
	s.scheduler.Replace(v.Profiles)
	s.publishLocked(v)
	return true
}

// retain drops view state of alerts that are no longer live.
// It runs after apply so a discarded refresh never prunes state.
func (s *Session) retain(ctx context.Context, v *View) {
	live := make([]string, len(v.Alerts))
	for i, a := range v.Alerts {
		live[i] = a.ID
	}
	if err := s.alertState.Retain(ctx, live); err != nil {
		s.logger.WithError(err).Warn("retain alert state failed")
	}
}

func (s *Session) record(v *View) {
	s.observer.LastSuccessfulRefresh.Set(float64(v.ComputedAt.Unix()))
	s.observer.RecordsLoaded.Set(float64(v.Metrics.ClosedCount + v.Metrics.OpenCount))
	s.observer.ActiveCapitalToday.Set(v.Capital.Total.InexactFloat64())
	s.observer.ActiveProfiles.Set(float64(v.Capital.ActiveCount))
	s.observer.TotalProfit.Set(v.Metrics.TotalProfit.InexactFloat64())
	s.observer.MaxDrawdown.Set(v.Metrics.Drawdown.MaxDrawdown.InexactFloat64())

	counts := make(map[string]int)
	for _, a := range v.Alerts {
		counts[string(a.Severity)]++
	}
	s.observer.SetAlertCounts(counts, severityNames)

	s.logger.WithFields(logrus.Fields{
		"generation": v.Generation,
		"window":     v.WindowKey,
		"records":    v.Metrics.ClosedCount + v.Metrics.OpenCount,
		"alerts":     len(v.Alerts),
		"capital":    v.Capital.Total.StringFixed(2),
	}).Info("refresh applied")
}

func (s *Session) persistSnapshots(ctx context.Context, v *View) {
	if s.snapshots == nil {
		return
	}
	snaps := metrics.Snapshots(&metrics.Result{Range: v.Range, ComputedAt: v.ComputedAt, Metrics: v.Metrics})
	if err := s.snapshots.InsertBulk(ctx, snaps); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			s.logger.WithError(err).Warn("persist equity snapshots failed")
		}
		return
	}
	s.observer.SnapshotsStored.Add(float64(len(snaps)))
}

var severityNames = []string{
	string(domain.SeverityCritical),
	string(domain.SeverityRisk),
	string(domain.SeverityExecution),
	string(domain.SeverityFinance),
	string(domain.SeverityInfo),
}

// Metrics computes metrics for sel without touching the applied view.
// An empty dim keeps the configured movers dimension.
func (s *Session) Metrics(ctx context.Context, sel window.Selector, dim metrics.Dimension) (*metrics.Result, error) {
	now := s.now()
	r := window.Resolve(sel, now)
	records, err := s.ledger.Trades(ctx, r)
	if err != nil {
		return nil, err
	}
	opts := s.opts
	if dim != "" {
		opts.MoverDimension = dim
	}
	return &metrics.Result{Range: r, ComputedAt: now, Metrics: metrics.Compute(records, opts)}, nil
}

// Run refreshes immediately and then every interval until ctx is done.
// Refresh errors are logged, not returned.
func (s *Session) Run(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = DefaultPollInterval
	}
	s.logger.WithField("interval", every).Info("session polling started")

	s.refreshLogged(ctx)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.refreshLogged(ctx)
		}
	}
}

func (s *Session) refreshLogged(ctx context.Context) {
	if _, err := s.Refresh(ctx); err != nil && !errors.Is(err, ErrStale) && ctx.Err() == nil {
		s.logger.WithError(err).Error("refresh failed")
	}
}

// Toggle flips one schedule day of a profile, persists the schedule and refreshes.
// The schedule is read from the directory, so a refresh in flight cannot hide an
// earlier toggle. The refreshed view is returned; it may be nil if a newer refresh
// superseded it.
func (s *Session) Toggle(ctx context.Context, profileID string, dayIndex int) (domain.DayState, *View, error) {
	state, err := s.toggle(ctx, profileID, dayIndex)
	if err != nil {
		return "", nil, err
	}
	s.observer.ScheduleToggles.Inc()
	s.logger.WithFields(logrus.Fields{
		"profile": profileID,
		"day":     dayIndex + 1,
		"state":   state,
	}).Info("schedule day toggled")

	view, err := s.Refresh(ctx)
	if errors.Is(err, ErrStale) {
		return state, nil, nil
	}
	return state, view, err
}

func (s *Session) toggle(ctx context.Context, profileID string, dayIndex int) (domain.DayState, error) {
	s.toggleMu.Lock()
	defer s.toggleMu.Unlock()

	p, err := s.directory.Profiles.GetByID(ctx, profileID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", rotation.ErrProfileNotFound
	}
	if err != nil {
		return "", fmt.Errorf("load profile %s: %w", profileID, err)
	}
	if dayIndex < 0 || dayIndex >= p.Schedule.Len() {
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrDayOutOfRange, dayIndex, p.Schedule.Len())
	}

	state := rotation.ToggleDay(&p.Schedule, dayIndex)
	if err := s.directory.Profiles.SaveSchedule(ctx, profileID, p.Schedule); err != nil {
		return "", fmt.Errorf("save schedule %s: %w", profileID, err)
	}
	s.scheduler.Upsert(p)
	return state, nil
}

// MarkRead marks alerts read and republishes the current view.
func (s *Session) MarkRead(ctx context.Context, ids ...string) (*View, error) {
	if err := s.alertState.MarkRead(ctx, ids...); err != nil {
		return nil, err
	}
	return s.restate(ctx)
}

// MarkUnread clears the read flag of alerts and republishes the current view.
func (s *Session) MarkUnread(ctx context.Context, ids ...string) (*View, error) {
	if err := s.alertState.MarkUnread(ctx, ids...); err != nil {
		return nil, err
	}
	return s.restate(ctx)
}

// SetExpanded records the expanded flag of an alert and republishes the current view.
func (s *Session) SetExpanded(ctx context.Context, id string, expanded bool) (*View, error) {
	if err := s.alertState.SetExpanded(ctx, id, expanded); err != nil {
		return nil, err
	}
	return s.restate(ctx)
}

// MarkAllRead marks every alert of the current view read.
func (s *Session) MarkAllRead(ctx context.Context) (*View, error) {
	cur := s.Current()
	if cur == nil {
		return nil, ErrNoView
	}
	ids := make([]string, len(cur.Alerts))
	for i, a := range cur.Alerts {
		ids[i] = a.ID
	}
	return s.MarkRead(ctx, ids...)
}

// restate reapplies alert view state to the current view without recomputing.
func (s *Session) restate(ctx context.Context) (*View, error) {
	read, expanded, err := s.alertState.State(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.view == nil {
		return nil, ErrNoView
	}
	s.view = s.view.withAlertState(read, expanded)
	s.publishLocked(s.view)
	return s.view, nil
}

// Subscribe returns a channel receiving every applied view, newest first served.
// A slow subscriber only ever sees the latest view. cancel releases the channel.
func (s *Session) Subscribe() (<-chan *View, func()) {
	ch := make(chan *View, 1)

	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	if s.view != nil {
		ch <- s.view
	}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publishLocked(v *View) {
	for _, ch := range s.subs {
		select {
		case ch <- v:
		default:
			// Replace the undelivered view with the newer one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}
