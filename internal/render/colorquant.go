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

// luminance implements §4.6's "Y = (77·R + 150·G + 29·B) >> 8".
func luminance(r, g, b uint8) uint8 {
	return uint8((77*int(r) + 150*int(g) + 29*int(b)) >> 8)
}

// quant6 implements one 6×6×6 color-cube channel: floor((c·5 + 128) / 256).
func quant6(c uint8) int {
	return (int(c)*5 + 128) / 256
}

// ansi256Index implements §4.6's "256-color quantization": gray ramp when
// the channel spread is below GrayThreshold, else the 6×6×6 cube.
func ansi256Index(r, g, b, y uint8) int {
	maxC, minC := r, r
	if g > maxC {
		maxC = g
	}
	if g < minC {
		minC = g
	}
	if b > maxC {
		maxC = b
	}
	if b < minC {
		minC = b
	}
	if int(maxC)-int(minC) < GrayThreshold {
		return 232 + (int(y)*23+128)/256
	}
	r6, g6, b6 := quant6(r), quant6(g), quant6(b)
	return 16 + 36*r6 + 6*g6 + b6
}

// ansi16Index maps an RGB pixel onto the 16 standard ANSI colors by
// thresholding, not by nearest-color match: each channel at or above 128
// sets its red/green/blue bit, and the bright bit is added when any channel
// exceeds 192 and the base color is not black.
func ansi16Index(r, g, b uint8) int {
	const mid = 128
	idx := 0
	if r >= mid {
		idx |= 1
	}
	if g >= mid {
		idx |= 2
	}
	if b >= mid {
		idx |= 4
	}
	bright := int(r) > 192 || int(g) > 192 || int(b) > 192
	if bright && idx != 0 {
		idx |= 8
	}
	return idx
}

// bgTextColorIsBlack reports whether background render mode uses black (30)
// rather than white (97) foreground text, per §4.6: "FG picked as black or white by luminance
// threshold (Y ≥ 128 ⇒ black text on bright background)".
func bgTextColorIsBlack(y uint8) bool {
	return y >= 128
}
