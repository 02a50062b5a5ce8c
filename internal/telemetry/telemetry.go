package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/3cpo-dev/rr/pkg/api"
)

// MetricType represents the type of metric
type MetricType string

const (
	Counter MetricType = "counter"
	Timer   MetricType = "timer"
)

// Metric names recorded by the runner.
const (
	StepDuration = "rr_step_duration"
	StepsRun     = "rr_steps"
)

// Metric represents a telemetry metric
type Metric struct {
	Name      string            `json:"name"`
	Type      MetricType        `json:"type"`
	Value     float64           `json:"value"`
	Labels    map[string]string `json:"labels"`
	Timestamp time.Time         `json:"timestamp"`
	Unit      string            `json:"unit,omitempty"`
}

// Collector keeps the metrics of one invocation in memory. Nothing is
// persisted; Flush writes them to the debug log.
type Collector struct {
	// RunID tags every metric of the invocation.
	RunID string

	mu      sync.Mutex
	metrics []Metric
	enabled bool
}

// NewCollector creates a new telemetry collector
func NewCollector(enabled bool) *Collector {
	return &Collector{RunID: uuid.New().String(), enabled: enabled}
}

// Counter increments a counter metric
func (c *Collector) Counter(name string, value float64, labels map[string]string) {
	c.addMetric(Metric{
		Name:      name,
		Type:      Counter,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	})
}

// Timer records a duration measurement
func (c *Collector) Timer(name string, duration time.Duration, labels map[string]string) {
	c.addMetric(Metric{
		Name:      name,
		Type:      Timer,
		Value:     float64(duration.Milliseconds()),
		Labels:    labels,
		Timestamp: time.Now(),
		Unit:      "ms",
	})
}

func (c *Collector) addMetric(metric Metric) {
	if c == nil || !c.enabled {
		return
	}
	labels := make(map[string]string, len(metric.Labels)+1)
	for k, v := range metric.Labels {
		labels[k] = v
	}
	labels["run"] = c.RunID
	metric.Labels = labels
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = append(c.metrics, metric)
}

// GetMetrics returns a copy of current metrics
func (c *Collector) GetMetrics() []Metric {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	result := make([]Metric, len(c.metrics))
	copy(result, c.metrics)
	return result
}

// Flush logs the collected metrics at debug level and clears them.
func (c *Collector) Flush() {
	if c == nil {
		return
	}
	c.mu.Lock()
	metrics := c.metrics
	c.metrics = nil
	c.mu.Unlock()

	var total float64
	for _, metric := range metrics {
		log.Debug().
			Str("name", metric.Name).
			Str("type", string(metric.Type)).
			Float64("value", metric.Value).
			Interface("labels", metric.Labels).
			Msg("telemetry_metric")
		if metric.Name == StepDuration {
			total += metric.Value
		}
	}
	if len(metrics) > 0 {
		log.Debug().Str("run", c.RunID).Int("metrics", len(metrics)).Float64("total_ms", total).Msg("Run summary")
	}
}

// StepScope times one step of a run.
type StepScope struct {
	startTime time.Time
	task      string
	collector *Collector
}

// StartStep begins timing a step of task.
func (c *Collector) StartStep(task string) *StepScope {
	return &StepScope{startTime: time.Now(), task: task, collector: c}
}

// End records the step's duration and outcome.
func (s *StepScope) End(status api.RunStatus) time.Duration {
	duration := time.Since(s.startTime)
	labels := map[string]string{"task": s.task, "status": string(status)}
	s.collector.Timer(StepDuration, duration, labels)
	s.collector.Counter(StepsRun, 1, labels)
	return duration
}
