// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package stats implements the bounded sliding-window statistics engine:
// a global FIFO of recently-received scores plus one FIFO per category,
// each capped at Capacity, with mean/p90 snapshots and JSON persistence.
package stats

// CategoryStats is the mean and 90th percentile of one category's window.
type CategoryStats struct {
	Avg float64 `json:"avg"`
	P90 float64 `json:"p90"`
}

// Update is an immutable snapshot of the window plus connection and
// bandwidth state, emitted to the Host on every mutating event.
type Update struct {
	PeerCount           int                      `json:"peer_count"`
	ConnectedPeers      []string                 `json:"connected_peers"`
	TotalManifestations int                      `json:"total_manifestations"`
	AvgScore            *float64                 `json:"avg_score"`
	Percentile90        *float64                 `json:"percentile_90"`
	CategoryStats       map[string]CategoryStats `json:"category_stats"`
	BandwidthIn         uint64                   `json:"bandwidth_in"`
	BandwidthOut        uint64                   `json:"bandwidth_out"`
}

// cacheFile is the on-disk shape of a persisted window.
type cacheFile struct {
	Scores         []float64            `json:"scores"`
	CategoryScores map[string][]float64 `json:"category_scores"`
}
