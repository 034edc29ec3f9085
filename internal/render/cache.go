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

package render

import (
	"strconv"
	"sync/atomic"

	"github.com/mitchellh/hashstructure/v2"
)

// GrayThreshold is the max(R,G,B)-min(R,G,B) cutoff below which a pixel is
// quantized into the 24-step gray ramp instead of the 6×6×6 color cube
// (§4.6 "256-color quantization").
const GrayThreshold = 10

// Cache is the immutable, precomputed lookup table set a Render call reads
// from: a 256-entry glyph table (one per luminance value), a 256-entry
// decimal string table for REP counts, built once per distinct
// palette (§9's redesign of `g_ascii_cache` into something rebuilt and
// swapped atomically instead of mutated in place).
type Cache struct {
	Palette Palette

	// GlyphTable[y] is the glyph for luminance y, computed once via the
	// floor(Y·palette_len/255) selection formula (§4.6 "Glyph selection").
	GlyphTable [256]rune

	// DecimalTable[n] is strconv.Itoa(n), precomputed so REP counts up to
	// 255 are emitted without strconv. SGR color parameters are formatted
	// with strconv.Itoa and do not read this table.
	DecimalTable [256]string

	hash uint64
}

// BuildCache precomputes a Cache for palette.
func BuildCache(palette Palette) *Cache {
	c := &Cache{Palette: palette}
	n := len(palette.Glyphs)
	for y := 0; y < 256; y++ {
		c.GlyphTable[y] = palette.Glyphs[glyphIndex(y, n)]
	}
	for i := 0; i < 256; i++ {
		c.DecimalTable[i] = strconv.Itoa(i)
	}
	h, err := hashstructure.Hash(palette, hashstructure.FormatV2, nil)
	if err != nil {
		// hashstructure only fails on unsupported field kinds; Palette has
		// none, so this path is unreachable in practice. Fall back to a
		// sentinel that never matches a previously cached hash, forcing a
		// rebuild on the next Manager.Rebuild call rather than silently
		// reusing a stale cache.
		h = 0
	}
	c.hash = h
	return c
}

// glyphIndex implements §4.6's "idx = floor(Y · palette_len / 255)" using
// the spec's own fixed-point identity to avoid a float divide per pixel:
// (x·palette_len + 1 + (x·palette_len)/256) >> 8 approximates division by
// 255 with a division by 256 plus a correction term.
func glyphIndex(y, paletteLen int) int {
	t := y * paletteLen
	idx := (t + 1 + t/256) >> 8
	if idx >= paletteLen {
		idx = paletteLen - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// Manager holds the currently active Cache behind an atomic pointer so a
// palette change never blocks an in-flight Render call on a lock (§9's
// "atomically swapped" redesign goal).
type Manager struct {
	current atomic.Pointer[Cache]
}

// NewManager builds a Manager already holding a Cache for the given palette.
func NewManager(palette Palette) *Manager {
	m := &Manager{}
	m.current.Store(BuildCache(palette))
	return m
}

// Current returns the active Cache. Safe to call concurrently with Rebuild.
func (m *Manager) Current() *Cache {
	return m.current.Load()
}

// Rebuild swaps in a new Cache for palette if it differs (by hashstructure
// hash) from the currently active one, returning true if a swap happened.
// A no-op when the palette is unchanged, so repeated calls from a config-
// reload janitor don't thrash the cache for a no-op reload.
func (m *Manager) Rebuild(palette Palette) bool {
	next := BuildCache(palette)
	current := m.current.Load()
	if current != nil && current.hash == next.hash {
		return false
	}
	m.current.Store(next)
	return true
}
