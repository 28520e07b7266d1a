// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package p2pnode wires the five libp2p sub-behaviors (gossipsub, a
// Kademlia DHT, mDNS LAN discovery, identify, and ping) onto one
// encrypted, multiplexed TCP transport, and runs the single-goroutine
// event loop that multiplexes swarm activity with host commands.
package p2pnode

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/libp2p/go-libp2p"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pubsub_pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	netconnmgr "github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/protocol/ping"
	"go.uber.org/zap"
)

const (
	// IdentifyProtocolVersion is advertised to peers via the identify
	// protocol, and used as the mDNS LAN discovery service tag.
	IdentifyProtocolVersion = "manifestation/1.0.0"
	// GlobalTopic is the fixed gossipsub topic every node subscribes
	// to at construction.
	GlobalTopic = "manifestation-global"
	// DefaultListenAddr is used when the operator configures none.
	DefaultListenAddr = "/ip4/0.0.0.0/tcp/0"
	// IdleConnectionTimeout bounds how long an otherwise-idle
	// connection is kept open before the connection manager may prune it.
	IdleConnectionTimeout = 60 * time.Second

	heartbeatInterval    = 10 * time.Second
	duplicateCacheWindow = 60 * time.Second
	pingInterval         = 30 * time.Second
)

// behaviorStack bundles the host and its five sub-behaviors.
type behaviorStack struct {
	host   host.Host
	pubsub *pubsub.PubSub
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	dht    *dht.IpfsDHT
	mdns   mdns.Service
	ping   *ping.PingService

	mdnsNotifee *mdnsNotifee
}

// messageIDFn computes the lowercase hex SHA-256 of a message's raw
// bytes. It is used both as gossipsub's own message-id function and,
// independently, by the node to recompute the same id for dedup —
// the two computations are defined to agree by construction.
func messageIDFn(pmsg *pubsub_pb.Message) string {
	return HashMessageID(pmsg.GetData())
}

// HashMessageID is the message-id algorithm specified in spec.md §4.6:
// lowercase hex of SHA-256 over the raw message bytes.
func HashMessageID(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func newBehaviorStack(ctx context.Context, log *zap.SugaredLogger, transportKey crypto.PrivKey, listenAddr string, events chan<- swarmEvent) (*behaviorStack, error) {
	cm, err := netconnmgr.NewConnManager(32, 256, netconnmgr.WithGracePeriod(IdleConnectionTimeout))
	if err != nil {
		return nil, err
	}

	h, err := libp2p.New(
		libp2p.Identity(transportKey),
		libp2p.ListenAddrStrings(listenAddr),
		libp2p.ProtocolVersion(IdentifyProtocolVersion),
		libp2p.ConnectionManager(cm),
	)
	if err != nil {
		return nil, err
	}

	params := pubsub.DefaultGossipSubParams()
	params.HeartbeatInterval = heartbeatInterval

	// MessageSignaturePolicy StrictNoSign is the Go equivalent of rust
	// libp2p's MessageAuthenticity::Anonymous: the transport layer
	// never signs a message with the node's own key, so attribution
	// comes solely from the application envelope (manifest.Signed).
	ps, err := pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSignaturePolicy(pubsub.StrictNoSign),
		pubsub.WithMessageIdFn(messageIDFn),
		pubsub.WithGossipSubParams(params),
		pubsub.WithSeenMessagesTTL(duplicateCacheWindow),
	)
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	topic, err := ps.Join(GlobalTopic)
	if err != nil {
		_ = h.Close()
		return nil, err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	// In-memory-only DHT used purely for peer-discovery routing-table
	// population; this system never stores or queries DHT values.
	kadDHT, err := dht.New(ctx, h, dht.Mode(dht.ModeServer))
	if err != nil {
		_ = h.Close()
		return nil, err
	}

	pingService := ping.NewPingService(h)
	notifee := newMdnsNotifee(log, events)
	mdnsService := mdns.NewMdnsService(h, IdentifyProtocolVersion, notifee)

	return &behaviorStack{
		host:        h,
		pubsub:      ps,
		topic:       topic,
		sub:         sub,
		dht:         kadDHT,
		mdns:        mdnsService,
		ping:        pingService,
		mdnsNotifee: notifee,
	}, nil
}

func (b *behaviorStack) start(ctx context.Context, log *zap.SugaredLogger) error {
	if err := b.mdns.Start(); err != nil {
		return err
	}
	go b.mdnsNotifee.sweepExpired(ctx)
	go pingLoop(ctx, log, b.host, b.ping)
	return nil
}

func (b *behaviorStack) close() {
	_ = b.mdns.Close()
	_ = b.dht.Close()
	_ = b.host.Close()
}

// pingLoop actively pings every connected peer every pingInterval,
// logging failures without ever treating them as fatal — liveness
// information only, per spec.md §4.6.
func pingLoop(ctx context.Context, log *zap.SugaredLogger, h host.Host, svc *ping.PingService) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range h.Network().Peers() {
				pingCtx, cancel := context.WithTimeout(ctx, pingInterval)
				res := <-ping.Ping(pingCtx, h, p)
				cancel()
				if res.Error != nil {
					log.Debugw("ping failed", "peer", p, "error", res.Error)
				}
			}
		}
	}
}
