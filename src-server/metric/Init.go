package metric

import (
	"log/slog"
	"time"

	"rsvpbot/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
)

// register tolerates a collector that is already registered, so Init can run
// again after a reconnect.
func register(name string, c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			slog.Error("can't register metric", "metric", name, "error", err)
			return
		}
	}
	slog.Debug("metric registered", "metric", name)
}

func unregister(name string, c prometheus.Collector) {
	switch prometheus.Unregister(c) {
	case true:
		slog.Debug("metric unregistered", "metric", name)
	case false:
		slog.Warn("metric not registered", "metric", name)
	}
}

// sampledGauge holds the last latency received on ch, dropping back to 0 when
// nothing arrived for a while.
func sampledGauge(as *utils.AppState, name, help string, ch <-chan float64, clearTickerInterval time.Duration) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	register(name, gauge)
	gauge.Set(0)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		clearTicker := time.NewTicker(clearTickerInterval)
		defer clearTicker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case latency := <-ch:
				gauge.Set(latency)
				clearTicker.Reset(clearTickerInterval)
			case <-clearTicker.C:
				gauge.Set(0)
			}
		}
	}()
}

// polledGauge sets the gauge to sample() on every tick.
func polledGauge(as *utils.AppState, name, help string, sample func() (float64, error), tickerInterval time.Duration) {
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	register(name, gauge)
	gauge.Set(0)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		ticker := time.NewTicker(tickerInterval)
		defer ticker.Stop()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, gauge)
				return
			case <-ticker.C:
				value, err := sample()
				if err != nil {
					slog.Error("can't collect metric", "metric", name, "error", err)
					continue
				}
				gauge.Set(value)
			}
		}
	}()
}

func counter(as *utils.AppState, name, help string, ch <-chan struct{}) {
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	register(name, c)
	go func() {
		gracefulShutdownCh := as.CreateGracefulShutdownChan()
		for {
			select {
			case <-*gracefulShutdownCh:
				unregister(name, c)
				return
			case <-ch:
				c.Inc()
			}
		}
	}()
}

// Init starts the collectors. scheduled reports the number of armed timers.
func Init(as *utils.AppState, scheduled func() int) {
	tickerInterval := as.Config.GetMetricCollectionInterval()
	clearTickerInterval := as.Config.GetMetricCollectionInterval() * 2

	polledGauge(as, "rsvpbot_database_empty_read_microsec",
		"The latency of an empty database read in microseconds",
		func() (float64, error) {
			latency, err := database(as)
			return float64(latency.Microseconds()), err
		}, tickerInterval)
	sampledGauge(as, "rsvpbot_database_read_microsec",
		"The latency of a database read in microseconds",
		as.MetricChans.DatabaseRead, clearTickerInterval)
	sampledGauge(as, "rsvpbot_database_write_microsec",
		"The latency of a database write in microseconds",
		as.MetricChans.DatabaseWrite, clearTickerInterval)
	sampledGauge(as, "rsvpbot_discord_send_message_microsec",
		"The latency of a discord message send in microseconds",
		as.MetricChans.DiscordSendMessage, clearTickerInterval)
	polledGauge(as, "rsvpbot_discord_heartbeat_latency_microsec",
		"The latency of a discord heartbeat in microseconds",
		func() (float64, error) {
			return float64(as.DgSession.HeartbeatLatency().Microseconds()), nil
		}, tickerInterval)
	polledGauge(as, "rsvpbot_scheduled_events",
		"The number of armed event timers",
		func() (float64, error) {
			return float64(scheduled()), nil
		}, tickerInterval)
	counter(as, "rsvpbot_events_fired_total",
		"Reminders sent for due events",
		as.MetricChans.EventFired)
	counter(as, "rsvpbot_events_deleted_total",
		"Events deleted before they were due",
		as.MetricChans.EventDeleted)
}
