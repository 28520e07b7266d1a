// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package obsmetrics registers the node's Prometheus collectors.
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the collectors a running node updates from its
// event loop and exposes over HTTP for scraping.
type Metrics struct {
	Registry prometheus.Registerer

	PeersConnected      prometheus.Gauge
	ManifestationsTotal prometheus.Counter
	BytesInTotal        prometheus.Counter
	BytesOutTotal       prometheus.Counter
	DedupHitsTotal      prometheus.Counter
}

// New creates and registers every collector against reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Registry: reg,
		PeersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "manifestation",
			Name:      "peer_count",
			Help:      "Number of libp2p peers currently connected.",
		}),
		ManifestationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "manifestation",
			Name:      "total",
			Help:      "Total valid manifestation records folded into the statistics window.",
		}),
		BytesInTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "manifestation",
			Name:      "bandwidth_in_bytes",
			Help:      "Total gossipsub message bytes received, counted before validation.",
		}),
		BytesOutTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "manifestation",
			Name:      "bandwidth_out_bytes",
			Help:      "Total envelope bytes handed to gossipsub for publish, counted before the publish outcome is known.",
		}),
		DedupHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "manifestation",
			Name:      "dedup_hits_total",
			Help:      "Total gossipsub messages dropped as already-seen duplicates.",
		}),
	}

	for _, c := range []prometheus.Collector{
		m.PeersConnected,
		m.ManifestationsTotal,
		m.BytesInTotal,
		m.BytesOutTotal,
		m.DedupHitsTotal,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler returns the HTTP handler a node's metrics server mounts at
// /metrics. gatherer must be the prometheus.Gatherer half of the same
// registry passed to New.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
