// Copyright (C) 2020-2026, the manifestation-node authors. All rights reserved.
// See the file LICENSE for licensing terms.

package manifest

import (
	"encoding/base64"
	"encoding/json"

	"github.com/tdespenza/manifestation-node/identity"
)

// Signed is a Result signed with its author's Ed25519 application
// identity. The signature covers only the canonical bytes of Payload —
// never PublicKey or Signature themselves — so verification must
// re-canonicalize Payload and delegate to identity.Verify.
type Signed struct {
	Payload   Result `json:"payload"`
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// NewSigned signs payload with id and wraps it in an envelope.
func NewSigned(payload Result, id *identity.Identity) (Signed, error) {
	data, err := canonicalBytes(payload)
	if err != nil {
		return Signed{}, err
	}
	sig := id.Sign(data)
	return Signed{
		Payload:   payload,
		PublicKey: id.PublicKeyB64(),
		Signature: base64.StdEncoding.EncodeToString(sig),
	}, nil
}

// Verify re-canonicalizes Payload and checks Signature against
// PublicKey. It never panics on a malformed envelope.
func (s Signed) Verify() bool {
	data, err := canonicalBytes(s.Payload)
	if err != nil {
		return false
	}
	return identity.Verify(data, s.Signature, s.PublicKey)
}

// MarshalForWire serializes the envelope with the stable field order
// payload, public_key, signature, matching the wire contract consumed
// by every peer on the overlay.
func (s Signed) MarshalForWire() ([]byte, error) {
	return json.Marshal(s)
}

// UnmarshalSigned parses an envelope from wire bytes.
func UnmarshalSigned(data []byte) (Signed, error) {
	var s Signed
	err := json.Unmarshal(data, &s)
	return s, err
}
