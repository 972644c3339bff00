package workerpool

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/simplely77/elasticpool"

	metricWorkersAlive   = "workerpool.workers.alive"
	metricWorkersBusy    = "workerpool.workers.busy"
	metricWorkersIdle    = "workerpool.workers.idle"
	metricQueueLength    = "workerpool.queue.length"
	metricTasksSubmitted = "workerpool.tasks.submitted"
	metricTasksCompleted = "workerpool.tasks.completed"
	metricTasksPanicked  = "workerpool.tasks.panicked"
	metricTasksDiscarded = "workerpool.tasks.discarded"
	metricWorkersSpawned = "workerpool.workers.spawned"
	metricWorkersRetired = "workerpool.workers.retired"
	metricTaskDuration   = "workerpool.task.duration"
)

type poolMetrics struct {
	submitted metric.Int64Counter
	completed metric.Int64Counter
	panicked  metric.Int64Counter
	discarded metric.Int64Counter
	spawned   metric.Int64Counter
	retired   metric.Int64Counter
	duration  metric.Float64Histogram

	registration metric.Registration
	attrs        metric.MeasurementOption
}

func newPoolMetrics(p *Pool, mp metric.MeterProvider) (*poolMetrics, error) {
	meter := mp.Meter(instrumentationName)
	m := &poolMetrics{
		attrs: metric.WithAttributes(attribute.String("pool", p.conf.name)),
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.submitted, metricTasksSubmitted, "tasks accepted by Submit"},
		{&m.completed, metricTasksCompleted, "tasks that returned normally"},
		{&m.panicked, metricTasksPanicked, "tasks that terminated their worker"},
		{&m.discarded, metricTasksDiscarded, "queued tasks dropped by a non-drain shutdown"},
		{&m.spawned, metricWorkersSpawned, "workers started"},
		{&m.retired, metricWorkersRetired, "workers stopped"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit("1"))
		if err != nil {
			return nil, errors.Wrapf(err, "create counter %s", c.name)
		}
		*c.dst = counter
	}

	duration, err := meter.Float64Histogram(
		metricTaskDuration,
		metric.WithDescription("task execution time"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "create histogram %s", metricTaskDuration)
	}
	m.duration = duration

	alive, err := meter.Int64ObservableGauge(metricWorkersAlive, metric.WithDescription("live workers"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	busy, err := meter.Int64ObservableGauge(metricWorkersBusy, metric.WithDescription("workers running a task"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	idle, err := meter.Int64ObservableGauge(metricWorkersIdle, metric.WithDescription("workers waiting for a task"))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	queueLen, err := meter.Int64ObservableGauge(metricQueueLength, metric.WithDescription("pending tasks"))
	if err != nil {
		return nil, errors.WithStack(err)
	}

	m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := p.Stats()
		o.ObserveInt64(alive, int64(s.Alive), m.attrs)
		o.ObserveInt64(busy, int64(s.Busy), m.attrs)
		o.ObserveInt64(idle, int64(s.Idle), m.attrs)
		o.ObserveInt64(queueLen, int64(s.QueueLength), m.attrs)
		return nil
	}, alive, busy, idle, queueLen)
	if err != nil {
		return nil, errors.Wrap(err, "register gauge callback")
	}
	return m, nil
}

func (m *poolMetrics) add(c metric.Int64Counter, n int) {
	if n <= 0 {
		return
	}
	c.Add(context.Background(), int64(n), m.attrs)
}

func (m *poolMetrics) observeDuration(d time.Duration) {
	m.duration.Record(context.Background(), d.Seconds(), m.attrs)
}

func (m *poolMetrics) close() error {
	if m.registration == nil {
		return nil
	}
	return errors.WithStack(m.registration.Unregister())
}
