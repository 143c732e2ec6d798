// Copyright 2026 The Taskrelay Authors
// SPDX-License-Identifier: Apache-2.0

package wire

import "github.com/taskrelay/taskrelay/lib/codec"

// EncodeRequest marshals a HubToUnit envelope to CBOR.
func EncodeRequest(req *HubToUnit) ([]byte, error) {
	return codec.Marshal(req)
}

// DecodeRequest unmarshals a CBOR-encoded HubToUnit envelope.
func DecodeRequest(data []byte) (*HubToUnit, error) {
	var req HubToUnit
	if err := codec.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// EncodeReply marshals a UnitToHub envelope to CBOR.
func EncodeReply(reply *UnitToHub) ([]byte, error) {
	return codec.Marshal(reply)
}

// DecodeReply unmarshals a CBOR-encoded UnitToHub envelope.
func DecodeReply(data []byte) (*UnitToHub, error) {
	var reply UnitToHub
	if err := codec.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}
