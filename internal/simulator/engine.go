package simulator

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"energy_dashboard/internal/energy"
	"energy_dashboard/internal/model"
	"energy_dashboard/internal/store"
	"energy_dashboard/internal/thermal"
)

// DefaultInterval is the period between two ticks.
const DefaultInterval = 3 * time.Second

var errStopped = errors.New("tick loop stopped")

// averageWindow is the span of the rolling home average.
const averageWindow = 15 * time.Minute

// State represents the current simulation state.
type State struct {
	SessionID string         `json:"session_id"`
	Running   bool           `json:"running"`
	Editing   bool           `json:"editing"`
	Interval  time.Duration  `json:"interval"`
	Ticks     uint64         `json:"ticks"`
	Controls  model.Controls `json:"controls"`
}

// Update carries the component values after a tick or a user change.
type Update struct {
	Tick  uint64      `json:"tick"`
	Time  time.Time   `json:"time"`
	Flows model.Flows `json:"flows"`
}

// Summary holds derived figures shown next to the flow diagram.
type Summary struct {
	HomeAvg15MinKW float64 `json:"home_avg_15min_kw"`
	HeatingKW      float64 `json:"heating_kw"`
	TemperatureC   float64 `json:"temperature_c"`
	Ticks          uint64  `json:"ticks"`
}

// Callback receives simulation events.
type Callback interface {
	OnState(state State)
	OnUpdate(update Update)
	OnSummary(summary Summary)
	OnEdit(edit EditState)
}

// Callbacks fans events out to several callbacks in order.
type Callbacks []Callback

func (cs Callbacks) OnState(s State) {
	for _, c := range cs {
		c.OnState(s)
	}
}

func (cs Callbacks) OnUpdate(u Update) {
	for _, c := range cs {
		c.OnUpdate(u)
	}
}

func (cs Callbacks) OnSummary(s Summary) {
	for _, c := range cs {
		c.OnSummary(s)
	}
}

func (cs Callbacks) OnEdit(e EditState) {
	for _, c := range cs {
		c.OnEdit(e)
	}
}

// Config holds engine tuning. Zero values fall back to defaults.
type Config struct {
	Interval time.Duration
	Nominal  energy.Nominal
	Table    thermal.Table
	Clock    clock.Clock
	Logger   *slog.Logger
}

// Engine drives the periodic tick of one simulation session.
type Engine struct {
	mu       sync.Mutex
	store    *store.Store
	callback Callback
	clock    clock.Clock
	log      *slog.Logger

	sessionID string
	interval  time.Duration
	nominal   energy.Nominal
	table     thermal.Table

	running bool
	stopCh  chan struct{}
	ticks   uint64

	// Rolling window of home values for the 15 minute average.
	window    []float64
	windowPos int
	windowLen int
	windowSum float64

	// Pending edit, nil when the edit surface is closed.
	edit            *EditState
	resumeAfterEdit bool
}

func New(s *store.Store, cb Callback, cfg Config) *Engine {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Nominal == (energy.Nominal{}) {
		cfg.Nominal = energy.DefaultNominal()
	}
	if len(cfg.Table.Points) == 0 {
		cfg.Table = thermal.DefaultTable
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	size := int(averageWindow / cfg.Interval)
	if size < 1 {
		size = 1
	}

	return &Engine{
		store:     s,
		callback:  cb,
		clock:     cfg.Clock,
		log:       cfg.Logger.With("component", "engine"),
		sessionID: uuid.NewString(),
		interval:  cfg.Interval,
		nominal:   cfg.Nominal,
		table:     cfg.Table,
		window:    make([]float64, size),
	}
}

// State returns the current simulation state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

// stateLocked builds the state. Must be called with mu held.
func (e *Engine) stateLocked() State {
	return State{
		SessionID: e.sessionID,
		Running:   e.running,
		Editing:   e.edit != nil,
		Interval:  e.interval,
		Ticks:     e.ticks,
		Controls:  e.store.Controls(),
	}
}

// Flows returns the current component values.
func (e *Engine) Flows() model.Flows {
	return e.store.Flows()
}

// Summary returns the current derived figures.
func (e *Engine) Summary() Summary {
	flows := e.store.Flows()
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.summaryLocked(flows)
}

// Start begins the tick loop. While an edit is open the loop is started
// once the edit is saved or cancelled.
func (e *Engine) Start() {
	e.mu.Lock()
	if e.edit != nil {
		e.resumeAfterEdit = true
		e.mu.Unlock()
		return
	}
	started := e.startLocked()
	e.mu.Unlock()

	if started {
		e.log.Info("simulation started", "interval", e.interval)
		e.broadcastState()
	}
}

// Pause stops the tick loop.
func (e *Engine) Pause() {
	e.mu.Lock()
	e.resumeAfterEdit = false
	stopped := e.stopLocked()
	e.mu.Unlock()

	if stopped {
		e.log.Info("simulation paused", "ticks", e.State().Ticks)
		e.broadcastState()
	}
}

// startLocked launches the loop. Must be called with mu held.
func (e *Engine) startLocked() bool {
	if e.running {
		return false
	}
	e.running = true
	e.stopCh = make(chan struct{})
	go e.loop(e.stopCh)
	return true
}

// stopLocked ends the loop. Must be called with mu held.
func (e *Engine) stopLocked() bool {
	if !e.running {
		return false
	}
	e.running = false
	close(e.stopCh)
	return true
}

// Step runs one tick synchronously. Useful for deterministic testing and
// headless runs. Does not require Start(). Returns ErrEditInProgress while
// the edit surface is open.
func (e *Engine) Step() (Update, error) {
	return e.tick(nil)
}

func (e *Engine) loop(stop chan struct{}) {
	ticker := e.clock.Ticker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := e.tick(stop); errors.Is(err, errStopped) {
				return
			}
		}
	}
}

// tick applies one transition under mu, so it cannot interleave with
// opening an edit or pausing. stop is nil for manual steps.
func (e *Engine) tick(stop chan struct{}) (Update, error) {
	e.mu.Lock()
	if stop != nil {
		select {
		case <-stop:
			e.mu.Unlock()
			return Update{}, errStopped
		default:
		}
	}
	if e.edit != nil {
		e.mu.Unlock()
		return Update{}, ErrEditInProgress
	}

	flows := e.store.Tick(e.nominal)
	e.ticks++
	e.pushHome(flows.Home)
	u := Update{Tick: e.ticks, Time: e.clock.Now(), Flows: flows}
	summary := e.summaryLocked(flows)
	e.mu.Unlock()

	e.log.Debug("tick",
		"tick", u.Tick,
		"solar", flows.Solar,
		"battery_kw", flows.Battery.PowerW/1000,
		"car", flows.Car,
		"grid", flows.Grid,
		"home", flows.Home,
	)

	e.callback.OnUpdate(u)
	e.callback.OnSummary(summary)
	return u, nil
}

// pushHome adds a home value to the rolling window. Must be called with mu held.
func (e *Engine) pushHome(v float64) {
	if e.windowLen == len(e.window) {
		e.windowSum -= e.window[e.windowPos]
	} else {
		e.windowLen++
	}
	e.window[e.windowPos] = v
	e.windowSum += v
	e.windowPos = (e.windowPos + 1) % len(e.window)

	// resum once per lap so rounding drift cannot accumulate
	if e.windowPos == 0 {
		e.windowSum = 0
		for _, x := range e.window[:e.windowLen] {
			e.windowSum += x
		}
	}
}

// summaryLocked derives the summary for flows. Must be called with mu held.
func (e *Engine) summaryLocked(flows model.Flows) Summary {
	avg := flows.Home
	if e.windowLen > 0 {
		avg = e.windowSum / float64(e.windowLen)
	}

	heatingKW := flows.HeatingKW()
	temp, err := e.table.Estimate(heatingKW)
	if err != nil {
		e.log.Warn("temperature estimate failed", "heating_kw", heatingKW, "error", err)
	}

	return Summary{
		HomeAvg15MinKW: energy.Round2(avg),
		HeatingKW:      energy.Round2(heatingKW),
		TemperatureC:   temp,
		Ticks:          e.ticks,
	}
}

// EstimateTemperature looks up the home temperature for a heating power
// using the engine's table.
func (e *Engine) EstimateTemperature(kw float64) (float64, error) {
	return e.table.Estimate(kw)
}

// SetWeatherMode changes the weather mode and resamples solar.
func (e *Engine) SetWeatherMode(mode model.WeatherMode) error {
	if _, err := e.store.SetWeatherMode(mode); err != nil {
		return err
	}
	e.log.Info("weather changed", "mode", mode)
	e.broadcastChange()
	return nil
}

// SetComponentValue pins a component to a user value.
func (e *Engine) SetComponentValue(c model.Component, raw float64) error {
	if _, err := e.store.SetComponentValue(c, raw); err != nil {
		return err
	}
	e.log.Info("component set", "target", c, "value", raw)
	e.broadcastChange()
	return nil
}

// SetTargetGrid sets the auto-mode grid target.
func (e *Engine) SetTargetGrid(kw float64) error {
	v, err := e.store.SetTargetGrid(kw)
	if err != nil {
		return err
	}
	e.log.Info("target grid set", "requested_kw", kw, "target_kw", v)
	e.broadcastState()
	return nil
}

// ToggleAutoMode flips between automatic and manual car charging.
func (e *Engine) ToggleAutoMode() bool {
	auto := e.store.ToggleAutoMode()
	e.log.Info("charging mode toggled", "auto", auto)
	e.broadcastState()
	return auto
}

// broadcastChange emits state, flows and summary after a user change.
func (e *Engine) broadcastChange() {
	flows := e.store.Flows()
	e.mu.Lock()
	s := e.stateLocked()
	u := Update{Tick: e.ticks, Time: e.clock.Now(), Flows: flows}
	summary := e.summaryLocked(flows)
	e.mu.Unlock()

	e.callback.OnState(s)
	e.callback.OnUpdate(u)
	e.callback.OnSummary(summary)
}

func (e *Engine) broadcastState() {
	e.callback.OnState(e.State())
}
