// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package stats

import (
	"encoding/json"
	"os"

	"github.com/tdespenza/manifestation-node/manifest"
	"go.uber.org/zap"
)

// Capacity is the maximum number of scores retained per FIFO (global or
// per category).
const Capacity = 10_000

// Window is a bounded FIFO of recently-received scores, globally and per
// category. It is intended to be owned by exactly one goroutine (the
// node's event loop) and is not safe for concurrent use.
type Window struct {
	log *zap.SugaredLogger

	scores   []float64
	category map[string][]float64

	totalManifestations int
}

// NewWindow creates an empty window.
func NewWindow(log *zap.SugaredLogger) *Window {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Window{
		log:      log,
		category: make(map[string][]float64),
	}
}

func pushBounded(fifo []float64, v float64) []float64 {
	if len(fifo) >= Capacity {
		fifo = fifo[1:]
	}
	return append(fifo, v)
}

// Insert folds r into the window: its overall score into the global
// FIFO, and each category score into that category's FIFO, evicting the
// oldest element of any FIFO that is already at Capacity.
func (w *Window) Insert(r manifest.Result) {
	w.scores = pushBounded(w.scores, r.Score)
	for category, score := range r.CategoryScores {
		w.category[category] = pushBounded(w.category[category], score)
	}
	w.totalManifestations++
}

// TotalManifestations is the monotonically non-decreasing count of
// records folded into this window since construction (including any
// persisted count restored via Load).
func (w *Window) TotalManifestations() int {
	return w.totalManifestations
}

// Snapshot computes the current mean/p90 aggregates. An empty global
// window yields nil AvgScore/Percentile90; empty per-category FIFOs are
// omitted from the map entirely.
func (w *Window) Snapshot() Update {
	update := Update{
		TotalManifestations: w.totalManifestations,
		CategoryStats:       make(map[string]CategoryStats),
	}

	if len(w.scores) > 0 {
		avg := mean(w.scores)
		p90, ok := percentile(w.scores, 0.9)
		update.AvgScore = &avg
		if ok {
			update.Percentile90 = &p90
		}
	}

	for category, scores := range w.category {
		if len(scores) == 0 {
			continue
		}
		p90, _ := percentile(scores, 0.9)
		update.CategoryStats[category] = CategoryStats{Avg: mean(scores), P90: p90}
	}

	return update
}

// Load restores a persisted window from path, seeding
// TotalManifestations from the number of restored global scores. A
// missing file leaves the window empty without logging; any other read
// error or a decode error is logged and the window is left empty.
func (w *Window) Load(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			w.log.Warnw("failed to read network cache", "path", path, "error", err)
		}
		return
	}

	var cache cacheFile
	if err := json.Unmarshal(data, &cache); err != nil {
		w.log.Warnw("failed to decode network cache", "path", path, "error", err)
		return
	}

	w.scores = cache.Scores
	w.category = make(map[string][]float64, len(cache.CategoryScores))
	for k, v := range cache.CategoryScores {
		w.category[k] = v
	}
	w.totalManifestations = len(w.scores)
}

// Save persists the window to path as JSON and returns any encode or
// write error without logging it; the node's shutdown path logs such an
// error and carries on, treating persistence as best-effort.
func (w *Window) Save(path string) error {
	cache := cacheFile{
		Scores:         w.scores,
		CategoryScores: w.category,
	}
	data, err := json.Marshal(cache)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
