package collector

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulse-backend-go/internal/core/alerting"
)

// SampleSink receives collected samples, normally the metric repository.
type SampleSink interface {
	Insert(ctx context.Context, sample alerting.MetricSample) error
}

// SystemCollector periodically samples host CPU and memory usage and feeds
// the samples into the sink so the built-in rules have data to evaluate.
type SystemCollector struct {
	sink        SampleSink
	logger      *logrus.Logger
	serviceName string
	interval    time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSystemCollector creates a collector writing samples tagged with serviceName.
func NewSystemCollector(sink SampleSink, logger *logrus.Logger, serviceName string, interval time.Duration) *SystemCollector {
	return &SystemCollector{
		sink:        sink,
		logger:      logger,
		serviceName: serviceName,
		interval:    interval,
	}
}

// Start launches the sampling loop.
func (c *SystemCollector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})

	go c.run(c.stopCh)
	c.logger.WithField("interval", c.interval).Info("System metric collector started")
}

// Stop halts the sampling loop.
func (c *SystemCollector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.running {
		return
	}
	c.running = false
	close(c.stopCh)
	c.logger.Info("System metric collector stopped")
}

func (c *SystemCollector) run(stop <-chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.collect(context.Background())
		}
	}
}

func (c *SystemCollector) collect(ctx context.Context) {
	now := time.Now().UTC()

	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		c.store(ctx, alerting.MetricSample{
			ServiceName: c.serviceName,
			MetricType:  "cpu_usage",
			Value:       percents[0],
			Unit:        "%",
			Timestamp:   now,
		})
	} else if err != nil {
		c.logger.WithError(err).Warn("Failed to sample CPU usage")
	}

	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		c.store(ctx, alerting.MetricSample{
			ServiceName: c.serviceName,
			MetricType:  "memory_usage",
			Value:       vm.UsedPercent,
			Unit:        "%",
			Timestamp:   now,
		})
	} else {
		c.logger.WithError(err).Warn("Failed to sample memory usage")
	}
}

func (c *SystemCollector) store(ctx context.Context, sample alerting.MetricSample) {
	if err := c.sink.Insert(ctx, sample); err != nil {
		c.logger.WithError(err).WithField("metric_type", sample.MetricType).Warn("Failed to store sample")
	}
}
