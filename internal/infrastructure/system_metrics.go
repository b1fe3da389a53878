package infrastructure

import (
	"context"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// SystemMetrics records a snapshot of Go runtime resource usage
type SystemMetrics struct {
	start time.Time

	goRoutines      metric.Int64Gauge
	memoryAllocated metric.Int64Gauge
	memorySystem    metric.Int64Gauge
	gcCount         metric.Int64Gauge
	cpuCount        metric.Int64Gauge
	processUptime   metric.Float64Gauge
}

// NewSystemMetrics creates the runtime gauges
func NewSystemMetrics(meter metric.Meter) (*SystemMetrics, error) {
	goRoutines, err := meter.Int64Gauge(
		"system_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return nil, err
	}

	memoryAllocated, err := meter.Int64Gauge(
		"system_memory_allocated_bytes",
		metric.WithDescription("Heap memory allocated by Go runtime in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	memorySystem, err := meter.Int64Gauge(
		"system_memory_system_bytes",
		metric.WithDescription("Memory obtained from the OS in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	gcCount, err := meter.Int64Gauge(
		"system_gc_count",
		metric.WithDescription("Completed garbage collection cycles"),
	)
	if err != nil {
		return nil, err
	}

	cpuCount, err := meter.Int64Gauge(
		"system_cpu_count",
		metric.WithDescription("Number of logical CPUs"),
	)
	if err != nil {
		return nil, err
	}

	processUptime, err := meter.Float64Gauge(
		"system_process_uptime",
		metric.WithDescription("Process uptime in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &SystemMetrics{
		start:           time.Now(),
		goRoutines:      goRoutines,
		memoryAllocated: memoryAllocated,
		memorySystem:    memorySystem,
		gcCount:         gcCount,
		cpuCount:        cpuCount,
		processUptime:   processUptime,
	}, nil
}

// Record samples the runtime once
func (s *SystemMetrics) Record(ctx context.Context) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	s.goRoutines.Record(ctx, int64(runtime.NumGoroutine()))
	s.memoryAllocated.Record(ctx, int64(mem.HeapAlloc))
	s.memorySystem.Record(ctx, int64(mem.Sys))
	s.gcCount.Record(ctx, int64(mem.NumGC))
	s.cpuCount.Record(ctx, int64(runtime.NumCPU()))
	s.processUptime.Record(ctx, time.Since(s.start).Seconds())
}
