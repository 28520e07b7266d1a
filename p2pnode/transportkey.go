// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package p2pnode

import (
	"crypto/rand"
	"os"
	"path/filepath"

	"github.com/libp2p/go-libp2p/core/crypto"
)

// LoadOrGenerateTransportKey loads a protobuf-encoded libp2p keypair
// from path, or generates and persists a fresh Ed25519 keypair if
// absent. This key authenticates the noise transport handshake only;
// it is intentionally distinct from the application identity in
// package identity, which is what authors manifestation records. The
// separation is the anonymity property of the whole design: the
// transport identity is never bound to a gossiped message.
func LoadOrGenerateTransportKey(path string) (crypto.PrivKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return crypto.UnmarshalPrivateKey(data)
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	priv, _, genErr := crypto.GenerateEd25519Key(rand.Reader)
	if genErr != nil {
		return nil, genErr
	}
	encoded, encErr := crypto.MarshalPrivateKey(priv)
	if encErr != nil {
		return nil, encErr
	}
	if parent := filepath.Dir(path); parent != "." {
		if mkErr := os.MkdirAll(parent, 0o700); mkErr != nil {
			return nil, mkErr
		}
	}
	if writeErr := os.WriteFile(path, encoded, 0o600); writeErr != nil {
		return nil, writeErr
	}
	return priv, nil
}
