// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tdespenza/manifestation-node/identity"
	"github.com/tdespenza/manifestation-node/manifest"
	"github.com/tdespenza/manifestation-node/p2pnode"
)

func TestPublishRejectedWhenSharingDisabled(t *testing.T) {
	commands := make(chan p2pnode.Command, 1)
	b := New(nil, commands)

	id, err := identity.Generate()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	cid, err := b.Publish(ctx, manifest.Result{Score: 1.0, Timestamp: 1_700_000_000}, id)

	require.ErrorIs(t, err, ErrNotAuthorized)
	require.Empty(t, cid)
	require.Len(t, commands, 0, "a gated publish must never reach the node's command channel")
}

func TestPublishSendsCommandWhenSharingEnabled(t *testing.T) {
	commands := make(chan p2pnode.Command, 1)
	b := New(nil, commands)
	b.SetSharing(true)

	id, err := identity.Generate()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	type result struct {
		cid string
		err error
	}
	done := make(chan result, 1)
	go func() {
		cid, err := b.Publish(ctx, manifest.Result{Score: 1.0, Timestamp: 1_700_000_000}, id)
		done <- result{cid, err}
	}()

	select {
	case cmd := <-commands:
		require.NotNil(t, cmd.Publish)
		require.Equal(t, p2pnode.GlobalTopic, cmd.Publish.Topic)
		cmd.Publish.Reply <- nil
	case <-time.After(time.Second):
		t.Fatal("node never received the publish command")
	}

	r := <-done
	require.NoError(t, r.err)
	require.NotEmpty(t, r.cid)
}

func TestSetSharingToggle(t *testing.T) {
	b := New(nil, make(chan p2pnode.Command, 1))
	require.False(t, b.GetSharing())
	b.SetSharing(true)
	require.True(t, b.GetSharing())
	b.SetSharing(false)
	require.False(t, b.GetSharing())
}
