// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package p2pnode

import (
	"context"
	"sync"
	"time"

	"github.com/libp2p/go-libp2p/core/event"
	"github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"go.uber.org/zap"
)

// eventKind tags the union carried on the node's single swarm-event
// channel. go-libp2p has no unified SwarmEvent stream the way rust
// libp2p does; this tagged union is the idiomatic Go substitute that
// still lets the node's single goroutine process every networking
// event the same way the spec's cooperative select loop does.
type eventKind int

const (
	evtNewListenAddr eventKind = iota
	evtPeerDiscovered
	evtPeerExpired
	evtPubsubMessage
	evtConnEstablished
	evtConnClosed
)

type swarmEvent struct {
	kind eventKind

	addr string // evtNewListenAddr
	peer peer.AddrInfo
	pubsub *pubsub.Message
}

// mdnsExpiryWindow bounds how long a LAN peer may go un-rediscovered
// before it is treated as expired. go-libp2p's mdns service (unlike
// rust-libp2p's) emits no explicit expiry notification, so expiry is
// approximated here by tracking last-seen time and sweeping
// periodically — the closest Go-native rendering of "on expiry the
// reverse is applied" (spec.md §4.6).
const mdnsExpiryWindow = 2 * time.Minute

// mdnsNotifee implements mdns.Notifee, forwarding discoveries onto a
// channel so all node state mutation happens on the node's single
// goroutine. Its own lastSeen map is written from mdns callbacks and the
// expiry sweeper, so it is guarded by mu.
type mdnsNotifee struct {
	log    *zap.SugaredLogger
	events chan<- swarmEvent

	mu       sync.Mutex
	lastSeen map[peer.ID]time.Time
}

func newMdnsNotifee(log *zap.SugaredLogger, events chan<- swarmEvent) *mdnsNotifee {
	return &mdnsNotifee{log: log, events: events, lastSeen: make(map[peer.ID]time.Time)}
}

// HandlePeerFound implements mdns.Notifee.
func (n *mdnsNotifee) HandlePeerFound(pi peer.AddrInfo) {
	n.mu.Lock()
	n.lastSeen[pi.ID] = time.Now()
	n.mu.Unlock()
	select {
	case n.events <- swarmEvent{kind: evtPeerDiscovered, peer: pi}:
	default:
		n.log.Warnw("dropping mdns discovery event, channel full", "peer", pi.ID)
	}
}

// sweepExpired runs on a ticker in its own goroutine and emits expiry
// events for peers not rediscovered within mdnsExpiryWindow.
func (n *mdnsNotifee) sweepExpired(ctx context.Context) {
	ticker := time.NewTicker(mdnsExpiryWindow / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			n.mu.Lock()
			for id, seen := range n.lastSeen {
				if now.Sub(seen) > mdnsExpiryWindow {
					delete(n.lastSeen, id)
					select {
					case n.events <- swarmEvent{kind: evtPeerExpired, peer: peer.AddrInfo{ID: id}}:
					default:
						n.log.Warnw("dropping mdns expiry event, channel full", "peer", id)
					}
				}
			}
			n.mu.Unlock()
		}
	}
}

var _ mdns.Notifee = (*mdnsNotifee)(nil)

// forwardPubsub runs in its own goroutine, reading from sub and
// forwarding every message onto events until ctx is cancelled or the
// subscription is closed.
func forwardPubsub(ctx context.Context, log *zap.SugaredLogger, sub *pubsub.Subscription, events chan<- swarmEvent) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warnw("pubsub subscription ended", "error", err)
			}
			return
		}
		select {
		case events <- swarmEvent{kind: evtPubsubMessage, pubsub: msg}:
		case <-ctx.Done():
			return
		}
	}
}

// forwardConnectedness subscribes to the host event bus and forwards
// connection established/closed notifications.
func forwardConnectedness(ctx context.Context, log *zap.SugaredLogger, bus event.Bus, events chan<- swarmEvent) {
	sub, err := bus.Subscribe(new(event.EvtPeerConnectednessChanged))
	if err != nil {
		log.Warnw("failed to subscribe to connectedness events", "error", err)
		return
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.Out():
			if !ok {
				return
			}
			evt, ok := e.(event.EvtPeerConnectednessChanged)
			if !ok {
				continue
			}
			kind := evtConnClosed
			if evt.Connectedness == network.Connected {
				kind = evtConnEstablished
			}
			select {
			case events <- swarmEvent{kind: kind, peer: peer.AddrInfo{ID: evt.Peer}}:
			case <-ctx.Done():
				return
			}
		}
	}
}
