package bridge

import "sync/atomic"

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Dispatched      int64
	Failed          int64
	ObserversLive   int64
	EventsDelivered int64
	LoopsRunning    int64
}

// Metrics counts bridge activity.
type Metrics struct {
	dispatched      atomic.Int64
	failed          atomic.Int64
	observersLive   atomic.Int64
	eventsDelivered atomic.Int64
	loopsRunning    atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) RecordDispatch(ok bool) {
	m.dispatched.Add(1)
	if !ok {
		m.failed.Add(1)
	}
}

func (m *Metrics) RecordObserver(delta int) {
	m.observersLive.Add(int64(delta))
}

func (m *Metrics) RecordDelivered(delta int) {
	m.eventsDelivered.Add(int64(delta))
}

func (m *Metrics) RecordLoop(delta int) {
	m.loopsRunning.Add(int64(delta))
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Dispatched:      m.dispatched.Load(),
		Failed:          m.failed.Load(),
		ObserversLive:   m.observersLive.Load(),
		EventsDelivered: m.eventsDelivered.Load(),
		LoopsRunning:    m.loopsRunning.Load(),
	}
}
