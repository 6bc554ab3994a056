package infrastructure

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// RuntimeStats is a snapshot of process resources taken at the end of a run
type RuntimeStats struct {
	GoRoutines      int64
	MemoryUsage     int64
	MemoryAllocated int64
	MemorySystem    int64
	GCCount         uint32
	Elapsed         time.Duration
}

// CollectRuntimeStats reads the Go runtime counters
func CollectRuntimeStats(startTime time.Time) RuntimeStats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return RuntimeStats{
		GoRoutines:      int64(runtime.NumGoroutine()),
		MemoryUsage:     int64(memStats.Alloc),
		MemoryAllocated: int64(memStats.TotalAlloc),
		MemorySystem:    int64(memStats.Sys),
		GCCount:         memStats.NumGC,
		Elapsed:         time.Since(startTime),
	}
}

// LogValue groups the stats under one log attribute
func (s RuntimeStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("goroutines", s.GoRoutines),
		slog.Int64("memory_usage_mb", s.MemoryUsage/1024/1024),
		slog.Int64("memory_alloc_mb", s.MemoryAllocated/1024/1024),
		slog.Int64("memory_system_mb", s.MemorySystem/1024/1024),
		slog.Any("gc_count", s.GCCount),
		slog.Float64("elapsed_seconds", s.Elapsed.Seconds()),
	)
}

// RecordRuntimeStats publishes the snapshot as gauges on meter
func RecordRuntimeStats(ctx context.Context, meter metric.Meter, s RuntimeStats) error {
	memory, err := meter.Int64Gauge(
		"sdgwater_memory_allocated",
		metric.WithDescription("Bytes allocated by the Go runtime during the run"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	elapsed, err := meter.Float64Gauge(
		"sdgwater_run_duration",
		metric.WithDescription("Wall time of the run in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	memory.Record(ctx, s.MemoryAllocated)
	elapsed.Record(ctx, s.Elapsed.Seconds())
	return nil
}
