package utils

import "time"

// Metric carries samples from the hot paths to the prometheus collectors in
// the metric package. Sends never block: a sample is dropped when nobody is
// collecting.
type Metric struct {
	DatabaseRead       chan float64
	DatabaseWrite      chan float64
	DiscordSendMessage chan float64
	EventFired         chan struct{}
	EventDeleted       chan struct{}
}

func NewMetric() *Metric {
	return &Metric{
		DatabaseRead:       make(chan float64, 16),
		DatabaseWrite:      make(chan float64, 16),
		DiscordSendMessage: make(chan float64, 16),
		EventFired:         make(chan struct{}, 16),
		EventDeleted:       make(chan struct{}, 16),
	}
}

func observe(ch chan float64, since time.Time) {
	select {
	case ch <- float64(time.Since(since).Microseconds()):
	default:
	}
}

func tick(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// ObserveDatabaseRead records the latency of a read started at since.
func (m *Metric) ObserveDatabaseRead(since time.Time) {
	if m != nil {
		observe(m.DatabaseRead, since)
	}
}

func (m *Metric) ObserveDatabaseWrite(since time.Time) {
	if m != nil {
		observe(m.DatabaseWrite, since)
	}
}

func (m *Metric) ObserveDiscordSendMessage(since time.Time) {
	if m != nil {
		observe(m.DiscordSendMessage, since)
	}
}

func (m *Metric) IncEventFired() {
	if m != nil {
		tick(m.EventFired)
	}
}

func (m *Metric) IncEventDeleted() {
	if m != nil {
		tick(m.EventDeleted)
	}
}
