// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package p2pnode

import (
	"context"
	"sync/atomic"
	"time"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
	"go.uber.org/zap"

	"github.com/tdespenza/manifestation-node/dedup"
	"github.com/tdespenza/manifestation-node/internal/obsmetrics"
	"github.com/tdespenza/manifestation-node/manifest"
	"github.com/tdespenza/manifestation-node/stats"
)

// Node is the single-goroutine runtime that owns the swarm, the
// statistics window, the dedup cache, and the bandwidth counters. Only
// the goroutine running Run ever touches the window or the dedup
// cache — there is no lock around that state because there is no
// second writer. The bandwidth counters are atomics purely so callers
// on other goroutines (e.g. a metrics scraper) can read them safely.
type Node struct {
	log *zap.SugaredLogger

	behavior *behaviorStack
	window   *stats.Window
	seen     *dedup.Cache
	metrics  *obsmetrics.Metrics

	bytesIn  atomic.Uint64
	bytesOut atomic.Uint64

	events   chan swarmEvent
	commands <-chan Command

	cachePath      string
	bootstrapPeers []ma.Multiaddr

	state State
}

// New constructs a Node. transportKey authenticates the noise
// handshake; it must never be the same key as the application identity
// used to sign manifestation records. cachePath, if non-empty, is
// where the statistics window is persisted across restarts.
func New(
	ctx context.Context,
	log *zap.SugaredLogger,
	transportKey crypto.PrivKey,
	commands <-chan Command,
	cachePath string,
	bootstrapPeers []ma.Multiaddr,
	metrics *obsmetrics.Metrics,
) (*Node, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	events := make(chan swarmEvent, 256)
	behavior, err := newBehaviorStack(ctx, log, transportKey, DefaultListenAddr, events)
	if err != nil {
		return nil, err
	}

	window := stats.NewWindow(log)
	if cachePath != "" {
		window.Load(cachePath)
	}

	go forwardPubsub(ctx, log, behavior.sub, events)
	go forwardConnectedness(ctx, log, behavior.host.EventBus(), events)

	return &Node{
		log:            log,
		behavior:       behavior,
		window:         window,
		seen:           dedup.NewCache(dedup.Capacity),
		metrics:        metrics,
		events:         events,
		commands:       commands,
		cachePath:      cachePath,
		bootstrapPeers: bootstrapPeers,
		state:          StateInitialized,
	}, nil
}

// Run dials any configured (or default) bootstrap peers, starts the
// background behaviors, and blocks in the single-goroutine event loop
// until a Shutdown command arrives or the command channel is closed.
// Every stats.Update emitted by a state-changing event is sent on
// updates; callers that don't care may pass a nil channel.
func (n *Node) Run(ctx context.Context, updates chan<- stats.Update) {
	if err := n.behavior.start(ctx, n.log); err != nil {
		n.log.Errorw("failed to start behavior stack", "error", err)
		return
	}
	n.state = StateListening
	n.dialBootstrapPeers(ctx)
	n.state = StateRunning

	for {
		select {
		case <-ctx.Done():
			n.shutdown()
			n.state = StateStopped
			return

		case evt := <-n.events:
			n.handleSwarmEvent(evt, updates)

		case cmd, ok := <-n.commands:
			if !ok {
				n.shutdown()
				n.state = StateStopped
				return
			}
			if !n.handleCommand(ctx, cmd) {
				n.state = StateStopped
				return
			}
		}
	}
}

func (n *Node) dialBootstrapPeers(ctx context.Context) {
	peers := n.bootstrapPeers
	if len(peers) == 0 {
		peers = DefaultBootstrapPeers()
	}
	for _, addr := range peers {
		info, ok := AddrInfoFromMultiaddr(addr)
		if !ok {
			continue
		}
		if err := n.behavior.host.Connect(ctx, info); err != nil {
			n.log.Infow("bootstrap dial skipped", "addr", addr.String(), "error", err)
			continue
		}
		n.log.Infow("dialing bootstrap peer", "addr", addr.String())
	}
}

// State returns the node's current lifecycle state.
func (n *Node) State() State {
	return n.state
}

// BytesIn and BytesOut report cumulative bandwidth counters.
func (n *Node) BytesIn() uint64  { return n.bytesIn.Load() }
func (n *Node) BytesOut() uint64 { return n.bytesOut.Load() }

func (n *Node) handleSwarmEvent(evt swarmEvent, updates chan<- stats.Update) {
	switch evt.kind {
	case evtNewListenAddr:
		n.log.Infow("new listen address", "addr", evt.addr)

	case evtPeerDiscovered:
		n.handlePeerDiscovered(evt.peer)
		n.emit(updates)

	case evtPeerExpired:
		n.handlePeerExpired(evt.peer)
		n.emit(updates)

	case evtPubsubMessage:
		if n.handleInbound(evt.pubsub) {
			n.emit(updates)
		}

	case evtConnEstablished, evtConnClosed:
		n.reportPeerCount()
		n.emit(updates)
	}
}

func (n *Node) reportPeerCount() {
	if n.metrics == nil {
		return
	}
	n.metrics.PeersConnected.Set(float64(len(n.behavior.host.Network().Peers())))
}

func (n *Node) handlePeerDiscovered(pi peer.AddrInfo) {
	n.behavior.host.Peerstore().AddAddrs(pi.ID, pi.Addrs, peer.TempAddrTTL)
	if err := n.behavior.host.Connect(context.Background(), pi); err != nil {
		n.log.Debugw("mdns peer dial failed", "peer", pi.ID, "error", err)
		return
	}
	n.log.Infow("mdns peer discovered", "peer", pi.ID)
}

func (n *Node) handlePeerExpired(pi peer.AddrInfo) {
	n.behavior.host.Peerstore().ClearAddrs(pi.ID)
	n.behavior.dht.RoutingTable().RemovePeer(pi.ID)
	n.log.Infow("mdns peer expired", "peer", pi.ID)
}

// handleInbound is the Inbound Pipeline: dedup check, byte accounting,
// deserialization, signature verification, payload validation, and
// finally window insertion — in that exact order, because an
// unsigned or invalid record must never affect the statistics window
// even if its bytes were already counted. It reports whether the
// message made it all the way through to a window insertion; callers
// use that to decide whether a stat snapshot should be emitted at all
// — a dropped duplicate, malformed envelope, bad signature, or invalid
// payload produces no snapshot.
func (n *Node) handleInbound(msg *pubsub.Message) bool {
	id := HashMessageID(msg.Data)
	if n.seen.SeenOrAdd(id) {
		if n.metrics != nil {
			n.metrics.DedupHitsTotal.Inc()
		}
		return false
	}

	n.bytesIn.Add(uint64(len(msg.Data)))
	if n.metrics != nil {
		n.metrics.BytesInTotal.Add(float64(len(msg.Data)))
	}

	envelope, err := manifest.UnmarshalSigned(msg.Data)
	if err != nil {
		n.log.Warnw("dropping malformed envelope", "error", err)
		return false
	}

	if !envelope.Verify() {
		n.log.Warnw("SECURITY: Invalid signature", "public_key", envelope.PublicKey)
		return false
	}

	if err := envelope.Payload.Validate(time.Now()); err != nil {
		n.log.Warnw("dropping invalid manifestation", "error", err)
		return false
	}

	n.window.Insert(envelope.Payload)
	if n.metrics != nil {
		n.metrics.ManifestationsTotal.Inc()
	}
	return true
}

func (n *Node) emit(updates chan<- stats.Update) {
	if updates == nil {
		return
	}

	update := n.window.Snapshot()
	peers := n.behavior.host.Network().Peers()
	update.PeerCount = len(peers)
	update.ConnectedPeers = make([]string, len(peers))
	for i, p := range peers {
		update.ConnectedPeers[i] = p.String()
	}
	update.BandwidthIn = n.bytesIn.Load()
	update.BandwidthOut = n.bytesOut.Load()

	select {
	case updates <- update:
	default:
		n.log.Debugw("dropping stats update, channel full")
	}
}

// handleCommand dispatches one Command and reports whether the run
// loop should keep going (false only for Shutdown).
func (n *Node) handleCommand(ctx context.Context, cmd Command) bool {
	switch {
	case cmd.StartListening != nil:
		c := cmd.StartListening
		addr, err := ma.NewMultiaddr(c.Addr)
		var listenErr error
		if err != nil {
			listenErr = err
		} else {
			listenErr = n.behavior.host.Network().Listen(addr)
		}
		if c.Reply != nil {
			c.Reply <- listenErr
		}
		return true

	case cmd.Publish != nil:
		c := cmd.Publish
		// The node never signs, validates, or otherwise inspects an
		// outbound payload: the caller (the host bridge) already
		// produced a complete, signed envelope. The outbound counters
		// advance before the publish attempt, win or lose, mirroring
		// the bytes-out accounting on the wire side.
		n.bytesOut.Add(uint64(len(c.Bytes)))
		if n.metrics != nil {
			n.metrics.BytesOutTotal.Add(float64(len(c.Bytes)))
		}
		err := n.behavior.topic.Publish(ctx, c.Bytes)
		if c.Reply != nil {
			c.Reply <- err
		}
		return true

	case cmd.GetPeers != nil:
		c := cmd.GetPeers
		peers := n.behavior.host.Network().Peers()
		ids := make([]string, 0, len(peers))
		for _, p := range peers {
			ids = append(ids, p.String())
		}
		if c.Reply != nil {
			c.Reply <- ids
		}
		return true

	case cmd.Shutdown != nil:
		n.shutdown()
		return false

	default:
		return true
	}
}

func (n *Node) shutdown() {
	if n.cachePath != "" {
		if err := n.window.Save(n.cachePath); err != nil {
			n.log.Warnw("failed to persist network cache on shutdown", "path", n.cachePath, "error", err)
		}
	}
	n.behavior.close()
}
