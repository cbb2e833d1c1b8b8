package cron

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/angelmondragon/stockwatch-backend/pkg/logger"
	"github.com/angelmondragon/stockwatch-backend/pkg/metrics"
)

func newTestMetrics() (*metrics.CronJobMetrics, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return metrics.NewCronJobMetrics(reg), reg
}

// counterValue returns the value of the counter series matching labels, or 0.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if labelsMatch(m, labels) {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	matched := 0
	for _, pair := range m.GetLabel() {
		if want, ok := labels[pair.GetName()]; ok {
			if pair.GetValue() != want {
				return false
			}
			matched++
		}
	}
	return matched == len(labels)
}

func testLogger() *logger.Logger {
	return logger.Nop()
}

type fakeLock struct {
	mu       sync.Mutex
	acquired bool
	released int
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquired = false
	f.released++
	return nil
}

type fakeLocks struct {
	locks map[string]*fakeLock
}

func (f *fakeLocks) ForJob(name string) (Lock, error) {
	if f.locks == nil {
		f.locks = map[string]*fakeLock{}
	}
	lock, ok := f.locks[name]
	if !ok {
		lock = &fakeLock{}
		f.locks[name] = lock
	}
	return lock, nil
}

type funcJob struct {
	name string
	run  func(ctx context.Context) error

	mu   sync.Mutex
	runs int
}

func (j *funcJob) Name() string { return j.name }

func (j *funcJob) Run(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	if j.run == nil {
		return nil
	}
	return j.run(ctx)
}

func (j *funcJob) Runs() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}
