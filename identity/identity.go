// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package identity owns the long-lived Ed25519 application identity used
// to sign and verify manifestation records. This identity is deliberately
// separate from the transport-layer (libp2p) peer identity: attribution
// of a gossiped record lives entirely in the application envelope, never
// in the pub/sub transport key.
package identity

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// Identity holds 32 bytes of Ed25519 secret material.
type Identity struct {
	secret ed25519.PrivateKey
}

type onDisk struct {
	SecretBytes string `json:"secret_bytes"`
}

// Generate creates a fresh random Ed25519 identity.
func Generate() (*Identity, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, err
	}
	return &Identity{secret: priv}, nil
}

// LoadOrCreate reads an identity from path if present, otherwise
// generates a fresh one and persists it with owner-only (0600)
// permissions, creating the parent directory if needed.
func LoadOrCreate(path string) (*Identity, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		var rec onDisk
		if jsonErr := json.Unmarshal(data, &rec); jsonErr != nil {
			return nil, &os.PathError{Op: "decode", Path: path, Err: jsonErr}
		}
		seed, b64Err := base64.StdEncoding.DecodeString(rec.SecretBytes)
		if b64Err != nil {
			return nil, &os.PathError{Op: "decode", Path: path, Err: b64Err}
		}
		if len(seed) != ed25519.SeedSize {
			return nil, &os.PathError{Op: "decode", Path: path, Err: errors.New("identity: secret must be 32 bytes")}
		}
		return &Identity{secret: ed25519.NewKeyFromSeed(seed)}, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	id, genErr := Generate()
	if genErr != nil {
		return nil, genErr
	}
	if parent := filepath.Dir(path); parent != "." {
		if mkErr := os.MkdirAll(parent, 0o700); mkErr != nil {
			return nil, mkErr
		}
	}
	if saveErr := id.save(path); saveErr != nil {
		return nil, saveErr
	}
	return id, nil
}

func (id *Identity) save(path string) error {
	seed := id.secret.Seed()
	rec := onDisk{SecretBytes: base64.StdEncoding.EncodeToString(seed)}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	// Write then chmod rather than relying on OpenFile's mode, since
	// the mode passed to OpenFile is not guaranteed on every platform
	// for an already-existing file.
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// Sign returns a detached signature over msg.
func (id *Identity) Sign(msg []byte) []byte {
	return ed25519.Sign(id.secret, msg)
}

// PublicKeyB64 returns the standard-base64 (44-char) encoding of the
// public key derived from this identity.
func (id *Identity) PublicKeyB64() string {
	pub := id.secret.Public().(ed25519.PublicKey)
	return base64.StdEncoding.EncodeToString(pub)
}

// Verify checks a (message, signature, public key) tuple. It never
// panics: malformed base64, wrong-length keys or signatures, and keys
// rejected by the curve all simply yield false.
func Verify(msg []byte, sigB64, pubB64 string) bool {
	pubBytes, err := base64.StdEncoding.DecodeString(pubB64)
	if err != nil || len(pubBytes) != ed25519.PublicKeySize {
		return false
	}
	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	if err != nil || len(sigBytes) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pubBytes), msg, sigBytes)
}
