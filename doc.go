// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package manifestationnode is a privacy-preserving, peer-to-peer gossip
// node for anonymous numeric manifestation results.
//
// Records are signed with a long-lived application identity, flooded over
// a gossipsub overlay discovered via mDNS and a Kademlia DHT, deduplicated
// and validated on receipt, and folded into a bounded statistics window
// that a host application can subscribe to.
package manifestationnode
