// SPDX-License-Identifier: AGPL-3.0-or-later
// termchat - a real-time multi-party audiovisual chat fabric
// Copyright (C) 2023-2026 Jacob McSwain
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//

package protocol

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// Magic is the constant that opens every packet header (§6).
const Magic uint32 = 0xDEADBEEF

// MaxPayloadLen is the hard cap on a single packet's payload, in bytes (§6).
const MaxPayloadLen uint32 = 5 * 1024 * 1024

// HeaderLen is the fixed, packed, no-padding size of a header in bytes.
const HeaderLen = 4 + 2 + 4 + 4 + 4

// Header is the fixed-size preamble that precedes every packet's payload.
// All multi-byte integers are big-endian on the wire (§6).
type Header struct {
	Magic    uint32
	Type     Type
	Length   uint32
	CRC32    uint32
	ClientID uint32
}

// Packet is a fully decoded frame: header plus its payload bytes.
type Packet struct {
	Type     Type
	ClientID uint32
	Payload  []byte
}

// Encode writes a complete packet — header followed by payload — to w.
// The CRC32 is computed over payload only (§4.2).
func Encode(w io.Writer, typ Type, clientID uint32, payload []byte) error {
	if uint32(len(payload)) > MaxPayloadLen {
		return &Error{Kind: ErrKindProtocol, Reason: "payload exceeds maximum length"}
	}
	var buf [HeaderLen]byte
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], uint16(typ))
	binary.BigEndian.PutUint32(buf[6:10], uint32(len(payload)))
	binary.BigEndian.PutUint32(buf[10:14], crc32.ChecksumIEEE(payload))
	binary.BigEndian.PutUint32(buf[14:18], clientID)
	if _, err := w.Write(buf[:]); err != nil {
		return err
	}
	if len(payload) == 0 {
		return nil
	}
	_, err := w.Write(payload)
	return err
}

// Decode reads exactly one header and its payload from r, retrying partial
// reads until the full frame arrives or the peer closes (§4.2). It validates
// magic, length bound and CRC before returning the packet.
func Decode(r io.Reader) (Packet, error) {
	var hbuf [HeaderLen]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return Packet{}, err
	}

	magic := binary.BigEndian.Uint32(hbuf[0:4])
	if magic != Magic {
		return Packet{}, &Error{Kind: ErrKindProtocol, Reason: "bad magic"}
	}
	typ := Type(binary.BigEndian.Uint16(hbuf[4:6]))
	length := binary.BigEndian.Uint32(hbuf[6:10])
	wantCRC := binary.BigEndian.Uint32(hbuf[10:14])
	clientID := binary.BigEndian.Uint32(hbuf[14:18])

	if length > MaxPayloadLen {
		return Packet{}, &Error{Kind: ErrKindProtocol, Reason: "length exceeds maximum"}
	}
	if length == 0 && !typ.AllowsEmptyPayload() {
		return Packet{}, &Error{Kind: ErrKindProtocol, Reason: "empty payload on non-control type"}
	}

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Packet{}, err
		}
	}

	if gotCRC := crc32.ChecksumIEEE(payload); gotCRC != wantCRC {
		return Packet{}, &Error{Kind: ErrKindProtocol, Reason: "CRC mismatch"}
	}

	return Packet{Type: typ, ClientID: clientID, Payload: payload}, nil
}
