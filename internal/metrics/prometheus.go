// SPDX-License-Identifier: AGPL-3.0-or-later
// termchat - a real-time multi-party audiovisual chat fabric
// Copyright (C) 2023-2024 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the Prometheus instruments for every component on the
// data-plane hot path (§8 testable properties lean on these for regression
// detection as much as operators do).
type Metrics struct {
	// Session state machine (component D)
	SessionsActive         prometheus.Gauge
	SessionStateTransitions *prometheus.CounterVec
	SessionsRejectedTotal   *prometheus.CounterVec

	// Packet codec (component B)
	PacketsDecodedTotal *prometheus.CounterVec
	PacketsEncodedTotal *prometheus.CounterVec
	PacketDecodeErrors  *prometheus.CounterVec

	// Crypto pipeline (component C)
	HandshakesTotal     *prometheus.CounterVec
	HandshakeDuration   prometheus.Histogram

	// Audio mixer (component E)
	MixerActiveSources prometheus.Gauge
	MixerClipEvents    prometheus.Counter
	MixerBatchDuration prometheus.Histogram

	// ASCII renderer (component F)
	RenderBatchDuration  *prometheus.HistogramVec
	RenderBytesEmitted   prometheus.Counter
	PaletteCacheReloads  prometheus.Counter

	// Ring buffers (component A)
	RingBufferDrops *prometheus.CounterVec

	// KV store
	KVOperationsTotal   *prometheus.CounterVec
	KVOperationDuration *prometheus.HistogramVec
	KVKeysTotal         prometheus.Gauge
	KVExpiredKeysTotal  prometheus.Counter
	KVCleanupDuration   prometheus.Histogram
}

func NewMetrics() *Metrics {
	metrics := &Metrics{
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termchat_sessions_active",
			Help: "The current number of sessions in the Streaming state",
		}),
		SessionStateTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_session_state_transitions_total",
			Help: "The total number of session state machine transitions",
		}, []string{"from", "to"}),
		SessionsRejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_sessions_rejected_total",
			Help: "The total number of connections rejected before reaching Streaming",
		}, []string{"reason"}),

		PacketsDecodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_packets_decoded_total",
			Help: "The total number of inbound packets decoded",
		}, []string{"type"}),
		PacketsEncodedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_packets_encoded_total",
			Help: "The total number of outbound packets encoded",
		}, []string{"type"}),
		PacketDecodeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_packet_decode_errors_total",
			Help: "The total number of packet decode failures",
		}, []string{"reason"}),

		HandshakesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_handshakes_total",
			Help: "The total number of crypto handshakes attempted",
		}, []string{"outcome"}),
		HandshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "termchat_handshake_duration_seconds",
			Help:    "Duration of the 5-step crypto handshake",
			Buckets: prometheus.DefBuckets,
		}),

		MixerActiveSources: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termchat_mixer_active_sources",
			Help: "The current number of audio sources feeding the mixer",
		}),
		MixerClipEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termchat_mixer_clip_events_total",
			Help: "The total number of samples the soft-clip stage limited",
		}),
		MixerBatchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "termchat_mixer_batch_duration_seconds",
			Help:    "Duration of one N-to-1 mixer batch",
			Buckets: prometheus.DefBuckets,
		}),

		RenderBatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termchat_render_batch_duration_seconds",
			Help:    "Duration of one ASCII render batch, by code path",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		RenderBytesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termchat_render_bytes_emitted_total",
			Help: "The total number of ANSI-encoded bytes emitted by the renderer",
		}),
		PaletteCacheReloads: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termchat_palette_cache_reloads_total",
			Help: "The total number of palette cache atomic swaps",
		}),

		RingBufferDrops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_ring_buffer_drops_total",
			Help: "The total number of frames dropped under the drop-oldest policy",
		}, []string{"buffer"}),

		KVOperationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "termchat_kv_operations_total",
			Help: "The total number of KV operations performed",
		}, []string{"operation", "status"}),
		KVOperationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "termchat_kv_operation_duration_seconds",
			Help:    "Duration of KV operations",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		KVKeysTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "termchat_kv_keys_total",
			Help: "The current number of keys in the KV store",
		}),
		KVExpiredKeysTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "termchat_kv_expired_keys_total",
			Help: "The total number of expired keys cleaned up",
		}),
		KVCleanupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "termchat_kv_cleanup_duration_seconds",
			Help:    "Duration of KV cleanup operations",
			Buckets: prometheus.DefBuckets,
		}),
	}
	metrics.register()
	return metrics
}

func (m *Metrics) register() {
	prometheus.MustRegister(
		m.SessionsActive,
		m.SessionStateTransitions,
		m.SessionsRejectedTotal,
		m.PacketsDecodedTotal,
		m.PacketsEncodedTotal,
		m.PacketDecodeErrors,
		m.HandshakesTotal,
		m.HandshakeDuration,
		m.MixerActiveSources,
		m.MixerClipEvents,
		m.MixerBatchDuration,
		m.RenderBatchDuration,
		m.RenderBytesEmitted,
		m.PaletteCacheReloads,
		m.RingBufferDrops,
		m.KVOperationsTotal,
		m.KVOperationDuration,
		m.KVKeysTotal,
		m.KVExpiredKeysTotal,
		m.KVCleanupDuration,
	)
}

// RecordKVOperation records one KV backend call's outcome and latency.
func (m *Metrics) RecordKVOperation(operation, status string, duration float64) {
	m.KVOperationsTotal.WithLabelValues(operation, status).Inc()
	m.KVOperationDuration.WithLabelValues(operation).Observe(duration)
}

func (m *Metrics) SetKVKeysTotal(count float64) {
	m.KVKeysTotal.Set(count)
}

func (m *Metrics) IncrementKVExpiredKeys(count float64) {
	m.KVExpiredKeysTotal.Add(count)
}

func (m *Metrics) RecordKVCleanup(duration float64) {
	m.KVCleanupDuration.Observe(duration)
}

// RecordSessionTransition records a session state machine edge (§4.4).
func (m *Metrics) RecordSessionTransition(from, to string) {
	m.SessionStateTransitions.WithLabelValues(from, to).Inc()
}

// RecordSessionRejected records a connection that never reached Streaming.
func (m *Metrics) RecordSessionRejected(reason string) {
	m.SessionsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordHandshake records a completed handshake attempt's outcome and latency.
func (m *Metrics) RecordHandshake(outcome string, seconds float64) {
	m.HandshakesTotal.WithLabelValues(outcome).Inc()
	m.HandshakeDuration.Observe(seconds)
}

// RecordRingBufferDrop records a drop-oldest eviction for a named buffer.
func (m *Metrics) RecordRingBufferDrop(buffer string) {
	m.RingBufferDrops.WithLabelValues(buffer).Inc()
}
