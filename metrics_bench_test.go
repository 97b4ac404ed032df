package goRecover

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricRecoveryRequest)
	}
}

func BenchmarkMetricsIncDisabledParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricRecoveryRequest)
		}
	})
}

func BenchmarkMetricsObserveRecoveryLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricRecoveryLatency, d)
		}
	})
}

type packedBenchmarkMetrics struct {
	counters [metricIDCount]uint64
}

func (m *packedBenchmarkMetrics) Inc(id MetricID) {
	atomic.AddUint64(&m.counters[id], 1)
}

// IDs a busy /forgot endpoint bumps together.
var recoveryHotMetricIDs = [...]MetricID{
	MetricRecoveryRequest,
	MetricRecoveryIssued,
	MetricRecoveryRejected,
	MetricRecoveryMailSent,
	MetricRecoveryRedeemSuccess,
	MetricSessionValidation,
	MetricSessionInvalidated,
	MetricLoginSuccess,
}

func benchmarkMixed(b *testing.B, inc func(MetricID)) {
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			inc(recoveryHotMetricIDs[idx])
			idx++
			if idx == len(recoveryHotMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkMetricsIncMixedParallelPadded(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	benchmarkMixed(b, m.Inc)
}

func BenchmarkMetricsIncMixedParallelPacked(b *testing.B) {
	m := &packedBenchmarkMetrics{}
	benchmarkMixed(b, m.Inc)
}

func BenchmarkRequestRecoveryRejected(b *testing.B) {
	_, rdb := newTestRedis(b)

	engine, err := New().WithConfig(testConfig()).WithRedis(rdb).WithUserRepository(newMockRepository()).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	req := RecoveryRequest{NameEmail: "doesnotexist@boom.com"}
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = engine.RequestRecovery(context.Background(), req)
	}
}
