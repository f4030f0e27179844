/*
 * Copyright 2026 The Quotesync Authors. All rights reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package prometheus provides a Prometheus metrics exporter.
package prometheus

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cova-team/quotesync/internal/version"
)

const (
	namespace   = "quotesync"
	reasonLabel = "reason"
)

// Reasons a frame is dropped by the relay.
const (
	DropSlowConsumer = "slow_consumer"
	DropTooLarge     = "too_large"
	DropBus          = "bus"
)

// Metrics manages the metric information that the relay is trying to measure.
type Metrics struct {
	registry *prometheus.Registry

	serverVersion *prometheus.GaugeVec

	connections   prometheus.Gauge
	channels      prometheus.Gauge
	framesTotal   prometheus.Counter
	bytesTotal    prometheus.Counter
	droppedFrames *prometheus.CounterVec
	pacedFrames   prometheus.Counter
	busFrames     *prometheus.CounterVec
}

// NewMetrics creates a new instance of Metrics.
func NewMetrics() (*Metrics, error) {
	reg := prometheus.NewRegistry()

	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	metrics := &Metrics{
		registry: reg,
		serverVersion: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "server",
			Name:      "version",
			Help:      "Which version is running. 1 for 'server_version' label with current version.",
		}, []string{"server_version"}),
		connections: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "connections",
			Help:      "The number of open websocket connections.",
		}),
		channels: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "channels",
			Help:      "The number of channels with at least one subscriber.",
		}),
		framesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "frames_total",
			Help:      "The total count of frames received from subscribers and relayed.",
		}),
		bytesTotal: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "frame_bytes_total",
			Help:      "The total bytes of frames received from subscribers and relayed.",
		}),
		droppedFrames: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "dropped_frames_total",
			Help:      "The total count of frames that were not delivered.",
		}, []string{reasonLabel}),
		pacedFrames: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "paced_frames_total",
			Help:      "The total count of frames held back because a subscriber went over its rate.",
		}),
		busFrames: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "frames_total",
			Help:      "The total count of frames exchanged with other relay instances.",
		}, []string{"direction"}),
	}

	metrics.serverVersion.With(prometheus.Labels{
		"server_version": version.Version,
	}).Set(1)

	return metrics, nil
}

// AddConnection counts an opened connection.
func (m *Metrics) AddConnection() {
	m.connections.Inc()
}

// RemoveConnection counts a closed connection.
func (m *Metrics) RemoveConnection() {
	m.connections.Dec()
}

// SetChannels sets the number of live channels.
func (m *Metrics) SetChannels(n int) {
	m.channels.Set(float64(n))
}

// AddRelayedFrame counts a frame of the given size received for relaying.
func (m *Metrics) AddRelayedFrame(size int) {
	m.framesTotal.Inc()
	m.bytesTotal.Add(float64(size))
}

// AddDroppedFrame counts a frame dropped for the given reason.
func (m *Metrics) AddDroppedFrame(reason string) {
	m.droppedFrames.With(prometheus.Labels{reasonLabel: reason}).Inc()
}

// AddPacedFrame counts a frame held back by the rate limit of its sender.
func (m *Metrics) AddPacedFrame() {
	m.pacedFrames.Inc()
}

// AddBusFrame counts a frame published to ("out") or received from ("in")
// the bus.
func (m *Metrics) AddBusFrame(direction string) {
	m.busFrames.With(prometheus.Labels{"direction": direction}).Inc()
}

// Registry returns the registry of this metrics.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
