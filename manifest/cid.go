// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

import (
	"crypto/sha256"
	"encoding/json"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

// dagJSONCodec is the DAG-JSON multicodec (0x0129).
const dagJSONCodec = 0x0129

// sha256Code is the SHA-256 multihash function code.
const sha256Code = 0x12

// canonicalBytes returns the canonical byte serialization of r, the same
// bytes a signature and a CID are computed over.
func canonicalBytes(r Result) ([]byte, error) {
	return json.Marshal(r)
}

// CID returns the CIDv1 content address of r: DAG-JSON codec over a
// SHA-256 multihash of the canonical payload bytes. It is deterministic
// for a given payload and sensitive to any field change.
func (r Result) CID() (string, error) {
	data, err := canonicalBytes(r)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(data)
	hash, err := mh.Encode(digest[:], sha256Code)
	if err != nil {
		return "", err
	}
	id := cid.NewCidV1(dagJSONCodec, hash)
	return id.String(), nil
}
