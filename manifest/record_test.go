// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func makeResult(score float64, categories map[string]float64) Result {
	return Result{
		Score:          score,
		Timestamp:      uint64(time.Now().Unix()),
		CategoryScores: categories,
	}
}

func TestValidateAcceptsValidResult(t *testing.T) {
	r := makeResult(7500.0, map[string]float64{"focus": 8.0, "gratitude": 6.0})
	require.NoError(t, r.Validate(time.Now()))
}

func TestValidateRejectsScoreAboveRange(t *testing.T) {
	r := makeResult(10_001.0, nil)
	require.Error(t, r.Validate(time.Now()))
}

func TestValidateRejectsNegativeScore(t *testing.T) {
	r := makeResult(-1.0, nil)
	require.Error(t, r.Validate(time.Now()))
}

func TestValidateRejectsCategoryScoreAbove10(t *testing.T) {
	r := makeResult(5000.0, map[string]float64{"focus": 11.0})
	require.Error(t, r.Validate(time.Now()))
}

func TestValidateRejectsEmailInCategoryKey(t *testing.T) {
	r := makeResult(50.0, map[string]float64{"user@example.com": 7.5})
	err := r.Validate(time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "PII")
}

func TestValidateRejectsURLInCategoryKey(t *testing.T) {
	r := makeResult(50.0, map[string]float64{"http://profile.example.com": 7.5})
	err := r.Validate(time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "PII")
}

func TestValidateRejectsHTTPSInCategoryKey(t *testing.T) {
	r := makeResult(50.0, map[string]float64{"https://user-profile.net": 6.0})
	err := r.Validate(time.Now())
	require.Error(t, err)
	require.Contains(t, err.Error(), "PII")
}

func TestValidateAcceptsNormalCategoryKeys(t *testing.T) {
	r := makeResult(5000.0, map[string]float64{
		"meditation":         8.0,
		"gratitude_practice": 7.0,
		"focus-level":        9.0,
	})
	require.NoError(t, r.Validate(time.Now()))
}

func TestValidateRejectsFutureTimestampBeyondSkew(t *testing.T) {
	r := Result{Score: 1, Timestamp: uint64(time.Now().Add(10 * time.Minute).Unix())}
	require.Error(t, r.Validate(time.Now()))
}

func TestValidateAcceptsTimestampWithinSkew(t *testing.T) {
	r := Result{Score: 1, Timestamp: uint64(time.Now().Add(4 * time.Minute).Unix())}
	require.NoError(t, r.Validate(time.Now()))
}

func TestValidateAcceptsArbitraryPastTimestamp(t *testing.T) {
	r := Result{Score: 1, Timestamp: 0}
	require.NoError(t, r.Validate(time.Now()))
}

func TestCIDGenerationIsDeterministic(t *testing.T) {
	r := makeResult(7500.0, map[string]float64{"focus": 8.0})
	cid1, err := r.CID()
	require.NoError(t, err)
	cid2, err := r.CID()
	require.NoError(t, err)
	require.Equal(t, cid1, cid2)
}

func TestCIDChangesWhenPayloadChanges(t *testing.T) {
	r1 := makeResult(7500.0, map[string]float64{"focus": 8.0})
	r2 := makeResult(7600.0, map[string]float64{"focus": 8.0})
	c1, err := r1.CID()
	require.NoError(t, err)
	c2, err := r2.CID()
	require.NoError(t, err)
	require.NotEqual(t, c1, c2)
}
