// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdespenza/manifestation-node/identity"
)

func TestSignedManifestationVerifiesCorrectly(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	payload := makeResult(6000.0, map[string]float64{"clarity": 5.5})

	signed, err := NewSigned(payload, id)
	require.NoError(t, err)
	require.True(t, signed.Verify())
}

func TestSignedManifestationRejectsTamperedPayload(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	payload := makeResult(6000.0, map[string]float64{"clarity": 5.5})

	signed, err := NewSigned(payload, id)
	require.NoError(t, err)

	signed.Payload.Score = 9999.9
	require.False(t, signed.Verify())
}

func TestSignedManifestationPublicKeyFormat(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	signed, err := NewSigned(makeResult(50.0, nil), id)
	require.NoError(t, err)

	require.NotContains(t, signed.PublicKey, "@")
	require.NotContains(t, signed.PublicKey, "http")
	require.NotContains(t, signed.PublicKey, " ")
	require.Len(t, signed.PublicKey, 44)
}

func TestScenarioS1SignVerifyTamperDetection(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)

	payload := Result{
		Score:          75.0,
		Timestamp:      1_700_000_000,
		CategoryScores: map[string]float64{"focus": 8.0},
	}
	signed, err := NewSigned(payload, id)
	require.NoError(t, err)
	require.True(t, signed.Verify())

	signed.Payload.Score = 76.0
	require.False(t, signed.Verify())
}

func TestWireRoundTrip(t *testing.T) {
	id, err := identity.Generate()
	require.NoError(t, err)
	signed, err := NewSigned(makeResult(42.0, map[string]float64{"a": 1}), id)
	require.NoError(t, err)

	data, err := signed.MarshalForWire()
	require.NoError(t, err)

	back, err := UnmarshalSigned(data)
	require.NoError(t, err)
	require.True(t, back.Verify())
	require.Equal(t, signed.Payload.Score, back.Payload.Score)
}

func TestUnmarshalSignedRejectsGarbage(t *testing.T) {
	_, err := UnmarshalSigned([]byte("not json"))
	require.Error(t, err)
}
