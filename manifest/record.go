// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package manifest defines the payload (Result), its signed envelope
// (Signed), and its content address (CID). Canonical serialization —
// the byte sequence both the signature and the CID are computed over —
// is Go's standard encoding/json on the struct's field order, which
// deterministically sorts map keys. That determinism is load-bearing:
// pick one serializer and use it everywhere a Result turns into bytes.
package manifest

import (
	"fmt"
	"strings"
	"time"
)

const (
	// MaxScore is the upper bound of Result.Score.
	MaxScore = 10_000.0
	// MaxCategoryScore is the upper bound of each category score.
	MaxCategoryScore = 10.0
	// ForwardSkewTolerance bounds how far into the future a timestamp
	// may legitimately be, to absorb clock drift between peers.
	ForwardSkewTolerance = 5 * time.Minute
)

// Result is a single manifestation measurement: an overall score plus
// a map of named category scores.
type Result struct {
	Score          float64            `json:"score"`
	Timestamp      uint64             `json:"timestamp"`
	CategoryScores map[string]float64 `json:"category_scores"`
}

// Validate checks Result against the domain rules. The PII heuristic on
// category keys intentionally runs before the category score range
// check, and applies only to keys — never to values.
func (r Result) Validate(now time.Time) error {
	if r.Score < 0.0 || r.Score > MaxScore {
		return fmt.Errorf("score %v is out of range (0.0 - %v)", r.Score, MaxScore)
	}

	maxTimestamp := uint64(now.Add(ForwardSkewTolerance).Unix())
	if r.Timestamp > maxTimestamp {
		return fmt.Errorf("timestamp %d is in the future", r.Timestamp)
	}

	for category, score := range r.CategoryScores {
		if strings.Contains(category, "@") || strings.Contains(category, "http") {
			return fmt.Errorf("category %q contains potential PII or invalid characters", category)
		}
		if score < 0.0 || score > MaxCategoryScore {
			return fmt.Errorf("category %q score %v is out of range (0.0 - %v)", category, score, MaxCategoryScore)
		}
	}
	return nil
}
