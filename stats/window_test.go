// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package stats

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdespenza/manifestation-node/manifest"
)

func TestPercentileOrdered(t *testing.T) {
	scores := []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100}
	p, ok := percentile(scores, 0.9)
	require.True(t, ok)
	require.Equal(t, 100.0, p)

	scores2 := []float64{1, 2, 3, 4, 5}
	p2, ok := percentile(scores2, 0.9)
	require.True(t, ok)
	require.Equal(t, 5.0, p2)

	scores3 := []float64{1, 3, 5}
	p3, ok := percentile(scores3, 0.5)
	require.True(t, ok)
	require.Equal(t, 3.0, p3)
}

func TestPercentileEmpty(t *testing.T) {
	_, ok := percentile(nil, 0.9)
	require.False(t, ok)
}

func TestPercentileSingleElement(t *testing.T) {
	p, ok := percentile([]float64{42.0}, 0.9)
	require.True(t, ok)
	require.Equal(t, 42.0, p)
}

func TestPercentileOrderInvariance(t *testing.T) {
	ordered := []float64{10, 20, 30, 40, 50}
	reversed := []float64{50, 40, 30, 20, 10}
	shuffled := []float64{30, 10, 50, 40, 20}

	pOrd, _ := percentile(ordered, 0.5)
	pRev, _ := percentile(reversed, 0.5)
	pShu, _ := percentile(shuffled, 0.5)

	require.Equal(t, pOrd, pRev)
	require.Equal(t, pOrd, pShu)

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		perm := append([]float64(nil), ordered...)
		rng.Shuffle(len(perm), func(a, b int) { perm[a], perm[b] = perm[b], perm[a] })
		p, _ := percentile(perm, 0.5)
		require.Equal(t, pOrd, p)
	}
}

func TestWindowEviction(t *testing.T) {
	w := NewWindow(nil)
	for i := 1; i <= 10_001; i++ {
		w.Insert(manifest.Result{Score: float64(i)})
	}

	snap := w.Snapshot()
	require.Equal(t, Capacity, len(w.scores))
	require.Equal(t, 2.0, w.scores[0])
	require.Equal(t, 10_001.0, w.scores[len(w.scores)-1])
	require.NotNil(t, snap.AvgScore)
	require.InDelta(t, 5_001.5, *snap.AvgScore, 1e-9)
	require.Equal(t, 10_001, snap.TotalManifestations)
}

func TestWindowEmptySnapshot(t *testing.T) {
	w := NewWindow(nil)
	snap := w.Snapshot()
	require.Nil(t, snap.AvgScore)
	require.Nil(t, snap.Percentile90)
	require.Empty(t, snap.CategoryStats)
}

func TestWindowCategoryTracking(t *testing.T) {
	w := NewWindow(nil)
	w.Insert(manifest.Result{Score: 1, CategoryScores: map[string]float64{"focus": 8}})
	w.Insert(manifest.Result{Score: 2, CategoryScores: map[string]float64{"focus": 4}})

	snap := w.Snapshot()
	cat, ok := snap.CategoryStats["focus"]
	require.True(t, ok)
	require.InDelta(t, 6.0, cat.Avg, 1e-9)
}

func TestWindowPersistenceRoundTrip(t *testing.T) {
	w := NewWindow(nil)
	w.Insert(manifest.Result{Score: 1, CategoryScores: map[string]float64{"focus": 8}})
	w.Insert(manifest.Result{Score: 2, CategoryScores: map[string]float64{"focus": 4, "calm": 9}})

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, w.Save(path))

	w2 := NewWindow(nil)
	w2.Load(path)

	require.ElementsMatch(t, w.scores, w2.scores)
	for k, v := range w.category {
		require.ElementsMatch(t, v, w2.category[k])
	}
	require.Equal(t, len(w.scores), w2.TotalManifestations())
}

func TestWindowLoadToleratesMissingFile(t *testing.T) {
	w := NewWindow(nil)
	w.Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.Equal(t, 0, w.TotalManifestations())
}

func TestWindowLoadToleratesMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	w := NewWindow(nil)
	w.Load(path)
	require.Equal(t, 0, w.TotalManifestations())
}
