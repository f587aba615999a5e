package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"energy_dashboard/internal/model"
	"energy_dashboard/internal/simulator"
)

const namespace = "energy_dashboard"

// Metrics exports simulation and HTTP figures to Prometheus. It implements
// simulator.Callback so the engine feeds it like any other subscriber.
type Metrics struct {
	registry *prometheus.Registry

	power        *prometheus.GaugeVec
	batteryPct   prometheus.Gauge
	temperature  prometheus.Gauge
	homeAvg      prometheus.Gauge
	running      prometheus.Gauge
	editOpen     prometheus.Gauge
	ticks        prometheus.Counter
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	mu       sync.Mutex
	lastTick uint64
}

// New creates the collectors on a private registry, so several instances
// can coexist in tests.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "component_power_kw",
			Help:      "Current power of each component in kW. Consumption is negative.",
		}, []string{"component"}),
		batteryPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "battery_percentage",
			Help:      "Battery state of charge in percent.",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "home_temperature_celsius",
			Help:      "Estimated home temperature.",
		}),
		homeAvg: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "home_avg_15min_kw",
			Help:      "Rolling 15 minute average of home consumption.",
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulation_running",
			Help:      "1 while the tick loop is running.",
		}),
		editOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "edit_open",
			Help:      "1 while the edit surface is open.",
		}),
		ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticks_total",
			Help:      "Total simulation ticks applied.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		m.power,
		m.batteryPct,
		m.temperature,
		m.homeAvg,
		m.running,
		m.editOpen,
		m.ticks,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OnState(s simulator.State) {
	m.running.Set(boolGauge(s.Running))
	m.editOpen.Set(boolGauge(s.Editing))
}

func (m *Metrics) OnUpdate(u simulator.Update) {
	// updates after user changes repeat the current tick number
	m.mu.Lock()
	if u.Tick > m.lastTick {
		m.ticks.Add(float64(u.Tick - m.lastTick))
		m.lastTick = u.Tick
	}
	m.mu.Unlock()

	f := u.Flows
	for _, c := range []model.Component{
		model.ComponentSolar,
		model.ComponentCar,
		model.ComponentHeatPump,
		model.ComponentHeating,
		model.ComponentFridge,
		model.ComponentAppliance,
		model.ComponentBattery,
		model.ComponentGrid,
		model.ComponentHome,
	} {
		v, err := f.Value(c)
		if err != nil {
			continue
		}
		m.power.WithLabelValues(string(c)).Set(v)
	}
	m.batteryPct.Set(float64(f.Battery.Percentage))
}

func (m *Metrics) OnSummary(s simulator.Summary) {
	m.temperature.Set(s.TemperatureC)
	m.homeAvg.Set(s.HomeAvg15MinKW)
}

func (m *Metrics) OnEdit(e simulator.EditState) {
	m.editOpen.Set(boolGauge(e.Active))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler records request count and latency under the given route label.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequests.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
