// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package p2pnode

import (
	"github.com/libp2p/go-libp2p/core/peer"
	ma "github.com/multiformats/go-multiaddr"
)

// DefaultBootstrapPeers returns a small, well-known set of bootstrap
// addresses used when the operator configures none. These addresses
// may go stale over time (see SPEC_FULL.md open questions) — operators
// are expected to override them via configuration; dial failures
// against any of them are logged and ignored, never fatal.
func DefaultBootstrapPeers() []ma.Multiaddr {
	raw := []string{
		"/ip4/104.131.131.82/tcp/4001/p2p/QmaCpDMGvV2BGHeYERUEnRQAwe3N8SzbUtfsmvsqQLuvuJ",
		"/ip4/104.236.179.241/tcp/4001/p2p/QmSoLPppuBtQSGwKDZT2M73ULpjvfd3aZ6ha4oFGL1KrGM",
		"/ip4/128.199.219.111/tcp/4001/p2p/QmSoLSafTMBsPKadTEgaXctDQVcqN88CNLHXMkTNwMKPnu",
	}
	addrs := make([]ma.Multiaddr, 0, len(raw))
	for _, s := range raw {
		addr, err := ma.NewMultiaddr(s)
		if err != nil {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}

// AddrInfoFromMultiaddr splits a /p2p/<id>-suffixed multiaddr into its
// peer.AddrInfo, ignoring addresses that cannot be parsed.
func AddrInfoFromMultiaddr(addr ma.Multiaddr) (peer.AddrInfo, bool) {
	info, err := peer.AddrInfoFromP2pAddr(addr)
	if err != nil {
		return peer.AddrInfo{}, false
	}
	return *info, true
}
