// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bridge is the opt-in gate a host application (CLI, desktop
// shell, or any other embedder) sits behind to reach a running
// p2pnode.Node. Every manifestation leaves the process only after the
// embedder has explicitly turned sharing on; the gate defaults closed.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tdespenza/manifestation-node/identity"
	"github.com/tdespenza/manifestation-node/manifest"
	"github.com/tdespenza/manifestation-node/p2pnode"
)

// ErrNotAuthorized is returned by Publish when sharing has not been
// explicitly enabled via SetSharing.
var ErrNotAuthorized = errors.New("bridge: sharing is disabled")

// Bridge wraps a node's command channel behind an opt-in sharing flag.
// SetSharing/GetSharing may be called concurrently with Publish from
// any goroutine; the flag is the only state here guarded by a mutex,
// matching the node's own rule that only its run loop ever touches
// unsynchronized state.
type Bridge struct {
	log      *zap.SugaredLogger
	commands chan<- p2pnode.Command

	mu      sync.RWMutex
	sharing bool
}

// New wraps commands, the channel a running p2pnode.Node reads its
// Command values from.
func New(log *zap.SugaredLogger, commands chan<- p2pnode.Command) *Bridge {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Bridge{log: log, commands: commands}
}

// SetSharing toggles the opt-in gate.
func (b *Bridge) SetSharing(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sharing = enabled
}

// GetSharing reports the current opt-in state.
func (b *Bridge) GetSharing() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sharing
}

// Publish validates payload, signs it with id, wraps it in an
// envelope, and asks the node to publish it — but only if sharing is
// enabled. When sharing is disabled this returns ErrNotAuthorized
// without validating, signing, encoding, or sending anything, so a
// gated publish never touches the node's bandwidth counters. A payload
// that fails validation is likewise never signed or handed to the
// node. On success it returns the published record's CID, mirroring
// the receipt a caller uses to confirm what went out.
func (b *Bridge) Publish(ctx context.Context, payload manifest.Result, id *identity.Identity) (string, error) {
	if !b.GetSharing() {
		return "", ErrNotAuthorized
	}

	if err := payload.Validate(time.Now()); err != nil {
		return "", err
	}

	cid, err := payload.CID()
	if err != nil {
		return "", err
	}

	signed, err := manifest.NewSigned(payload, id)
	if err != nil {
		return "", err
	}
	data, err := signed.MarshalForWire()
	if err != nil {
		return "", err
	}

	reply := make(chan error, 1)
	cmd := p2pnode.Command{Publish: &p2pnode.Publish{
		Topic: p2pnode.GlobalTopic,
		Bytes: data,
		Reply: reply,
	}}

	select {
	case b.commands <- cmd:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case err := <-reply:
		if err != nil {
			return "", err
		}
		return cid, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GetPeers asks the node for its currently connected peers.
func (b *Bridge) GetPeers(ctx context.Context) ([]string, error) {
	reply := make(chan []string, 1)
	cmd := p2pnode.Command{GetPeers: &p2pnode.GetPeers{Reply: reply}}

	select {
	case b.commands <- cmd:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case peers := <-reply:
		return peers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown asks the node to stop.
func (b *Bridge) Shutdown(ctx context.Context) error {
	select {
	case b.commands <- (p2pnode.Command{Shutdown: &p2pnode.Shutdown{}}):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
