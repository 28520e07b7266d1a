// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package identity

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)

	msg := []byte("hello world")
	sig := id.Sign(msg)
	sigB64 := base64.StdEncoding.EncodeToString(sig)
	pkB64 := id.PublicKeyB64()

	require.True(t, Verify(msg, sigB64, pkB64))
	require.False(t, Verify([]byte("tampered"), sigB64, pkB64))
}

func TestVerifyRejectsMalformedBase64Signature(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	msg := []byte("test message")
	pk := id.PublicKeyB64()

	require.False(t, Verify(msg, "!!!not-base64!!!", pk))
	require.False(t, Verify(msg, "", pk))
}

func TestVerifyRejectsMalformedBase64PublicKey(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	msg := []byte("test message")
	sig := base64.StdEncoding.EncodeToString(id.Sign(msg))

	require.False(t, Verify(msg, sig, "!!!invalid-pubkey!!!"))
	require.False(t, Verify(msg, sig, ""))
}

func TestVerifyRejectsWrongLengthPublicKey(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	msg := []byte("test")
	sig := base64.StdEncoding.EncodeToString(id.Sign(msg))

	shortKey := base64.StdEncoding.EncodeToString(make([]byte, 31))
	longKey := base64.StdEncoding.EncodeToString(make([]byte, 33))
	require.False(t, Verify(msg, sig, shortKey))
	require.False(t, Verify(msg, sig, longKey))
}

func TestVerifyRejectsSignatureFromDifferentKey(t *testing.T) {
	idA, err := Generate()
	require.NoError(t, err)
	idB, err := Generate()
	require.NoError(t, err)

	msg := []byte("cross-signing test")
	sigA := base64.StdEncoding.EncodeToString(idA.Sign(msg))

	require.False(t, Verify(msg, sigA, idB.PublicKeyB64()))
}

func TestGenerateProducesUniqueKeys(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 10; i++ {
		id, err := Generate()
		require.NoError(t, err)
		seen[id.PublicKeyB64()] = struct{}{}
	}
	require.Len(t, seen, 10)
}

func TestPublicKeyIs44CharsBase64(t *testing.T) {
	id, err := Generate()
	require.NoError(t, err)
	require.Len(t, id.PublicKeyB64(), 44)
}

func TestPublicKeyContainsNoPIIPatterns(t *testing.T) {
	for i := 0; i < 20; i++ {
		id, err := Generate()
		require.NoError(t, err)
		pk := id.PublicKeyB64()
		require.NotContains(t, pk, "@")
		require.NotContains(t, pk, "http")
		require.NotContains(t, pk, " ")
	}
}

func TestLoadOrCreatePersistsIdentity(t *testing.T) {
	path := filepath.Join(t.TempDir(), fmt.Sprintf("identity_%d.json", os.Getpid()))

	id1, err := LoadOrCreate(path)
	require.NoError(t, err)
	pk1 := id1.PublicKeyB64()

	id2, err := LoadOrCreate(path)
	require.NoError(t, err)
	pk2 := id2.PublicKeyB64()

	require.Equal(t, pk1, pk2, "identity must be stable across calls on the same file")

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadOrCreateCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "identity.json")
	id, err := LoadOrCreate(path)
	require.NoError(t, err)
	require.NotEmpty(t, id.PublicKeyB64())
}
