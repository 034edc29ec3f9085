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

package crypto

import (
	"encoding/binary"
	"errors"
	"sync/atomic"
)

// ErrNonceReuse is fatal to the connection per §4.3: "Nonce reuse is a
// fatal error".
var ErrNonceReuse = errors.New("crypto: nonce reuse detected")

// SendHalf generates strictly monotonic nonces for one direction of a
// session's sealed traffic (§4.3, §5's "outbound nonce counter (atomic
// monotonic increment)"). The zero value is ready to use and starts at
// counter 1, so a nonce of all-zero bytes is never emitted.
type SendHalf struct {
	counter atomic.Uint64
}

// Next returns the next nonce to use for a Seal call. Safe for concurrent
// use, though a session has exactly one outbound task per direction.
func (s *SendHalf) Next() [NonceSize]byte {
	c := s.counter.Add(1)
	var nonce [NonceSize]byte
	binary.BigEndian.PutUint64(nonce[:8], c)
	return nonce
}

// RecvHalf enforces that nonces observed from the peer strictly increase,
// refusing to open a packet whose nonce repeats or goes backwards — the
// counter-nonce half of §4.3's reuse rule.
type RecvHalf struct {
	highest atomic.Uint64
}

// Check validates nonce against the counter encoded in its first 8 bytes,
// accepting only a value strictly greater than every nonce seen so far on
// this direction. It does not seal or open anything itself.
func (r *RecvHalf) Check(nonce [NonceSize]byte) error {
	c := binary.BigEndian.Uint64(nonce[:8])
	for {
		prev := r.highest.Load()
		if c <= prev {
			return ErrNonceReuse
		}
		if r.highest.CompareAndSwap(prev, c) {
			return nil
		}
	}
}
