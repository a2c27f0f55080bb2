package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestNewTimer(t *testing.T) {
	timer := NewTimer()

	if timer == nil {
		t.Fatal("NewTimer() returned nil")
	}
	if timer.start.IsZero() {
		t.Error("NewTimer() start time is zero")
	}
	if time.Since(timer.start) > time.Second {
		t.Error("NewTimer() start time is not recent")
	}
}

func TestTimerDuration(t *testing.T) {
	timer := NewTimer()

	sleep := 100 * time.Millisecond
	time.Sleep(sleep)

	duration := timer.Duration()
	if duration < sleep {
		t.Errorf("Timer.Duration() = %v, want >= %v", duration, sleep)
	}
}

func TestTimerDurationIncreases(t *testing.T) {
	timer := NewTimer()

	time.Sleep(20 * time.Millisecond)
	first := timer.Duration()

	time.Sleep(20 * time.Millisecond)
	second := timer.Duration()

	if second <= first {
		t.Errorf("Duration() should grow between calls: first=%v, second=%v", first, second)
	}
}

func TestTimerObserveDuration(t *testing.T) {
	histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "test_failover_duration_seconds",
		Help:    "Test duration histogram",
		Buckets: prometheus.DefBuckets,
	})

	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)
	timer.ObserveDuration(histogram)

	if timer.Duration() == 0 {
		t.Error("Timer.ObserveDuration() recorded zero duration")
	}
}

func TestTimerObserveDurationVec(t *testing.T) {
	histogramVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "test_step_duration_seconds",
			Help:    "Test duration histogram vec",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	timer := NewTimer()
	time.Sleep(20 * time.Millisecond)
	timer.ObserveDurationVec(histogramVec, "verify-backup")

	if timer.Duration() == 0 {
		t.Error("Timer.ObserveDurationVec() recorded zero duration")
	}
}

func TestMultipleTimersAreIndependent(t *testing.T) {
	timer1 := NewTimer()
	time.Sleep(30 * time.Millisecond)

	timer2 := NewTimer()
	time.Sleep(30 * time.Millisecond)

	d1 := timer1.Duration()
	d2 := timer2.Duration()

	if d1 <= d2 {
		t.Errorf("timer1 started first and should read longer: timer1=%v, timer2=%v", d1, d2)
	}
}
