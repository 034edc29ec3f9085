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

// Package render turns an RGB image into an ANSI/ASCII terminal frame:
// luminance → glyph → 256-color quantization → run-length compressed SGR
// emission, in foreground, background and half-block modes (§4.6).
package render

import (
	"strconv"
	"unicode/utf8"

	"github.com/termchat/termchat/internal/protocol"
)

// halfBlockGlyph is U+2580 "▀", used to fold two pixel rows into one cell
// (§4.6 "Half-block").
const halfBlockGlyph = '▀'

// safetyMargin is the minimum remaining buffer space required before
// writing any SGR, REP or color sequence (§4.6 "Buffer safety").
const safetyMargin = 32

// minVectorLane is the batch size the "vectorized" row path processes per
// iteration, standing in for a 16-byte/16-pixel SIMD lane (§4.6 "SIMD").
const minVectorLane = 16

type colorKind uint8

const (
	colorNone colorKind = iota
	colorAnsi16
	colorAnsi256
	colorTruecolor
)

// colorCode is a fully resolved, comparable terminal color — comparable so
// two cells can be grouped into one run with plain `==` (§4.6's RLE
// grouping by "(glyph, foreground_color, background_color)").
type colorCode struct {
	kind    colorKind
	idx     int
	r, g, b uint8
}

// cell is one rendered terminal cell: a glyph plus resolved fg/bg colors.
type cell struct {
	glyph rune
	fg    colorCode
	hasBG bool
	bg    colorCode
}

func resolveColor(level protocol.ColorLevel, r, g, b, y uint8) colorCode {
	switch level {
	case protocol.ColorLevelNone:
		return colorCode{kind: colorNone}
	case protocol.ColorLevel16:
		return colorCode{kind: colorAnsi16, idx: ansi16Index(r, g, b)}
	case protocol.ColorLevelTruecolor:
		return colorCode{kind: colorTruecolor, r: r, g: g, b: b}
	default: // ColorLevel256 and any unresolved "auto" fall back to 256-color
		return colorCode{kind: colorAnsi256, idx: ansi256Index(r, g, b, y)}
	}
}

func blackOrWhite(level protocol.ColorLevel, black bool) colorCode {
	switch level {
	case protocol.ColorLevelNone:
		return colorCode{kind: colorNone}
	case protocol.ColorLevel16:
		if black {
			return colorCode{kind: colorAnsi16, idx: 0}
		}
		return colorCode{kind: colorAnsi16, idx: 15}
	case protocol.ColorLevelTruecolor:
		if black {
			return colorCode{kind: colorTruecolor, r: 0, g: 0, b: 0}
		}
		return colorCode{kind: colorTruecolor, r: 255, g: 255, b: 255}
	default:
		if black {
			return colorCode{kind: colorAnsi256, idx: 16}
		}
		return colorCode{kind: colorAnsi256, idx: 231}
	}
}

// computeCell resolves one pixel into a cell for foreground or background
// mode (§4.6's first two render modes).
func computeCell(cache *Cache, level protocol.ColorLevel, mode protocol.RenderMode, r, g, b uint8) cell {
	y := luminance(r, g, b)
	glyph := cache.GlyphTable[y]
	switch mode {
	case protocol.RenderModeBackground:
		return cell{
			glyph: glyph,
			fg:    blackOrWhite(level, bgTextColorIsBlack(y)),
			hasBG: true,
			bg:    resolveColor(level, r, g, b, y),
		}
	default: // RenderModeForeground
		return cell{
			glyph: glyph,
			fg:    resolveColor(level, r, g, b, y),
		}
	}
}

// computeHalfBlockCell folds a top and bottom pixel into one cell using
// U+2580 (§4.6 "Half-block": "FG is the top pixel's color and BG is the
// bottom pixel's color").
func computeHalfBlockCell(level protocol.ColorLevel, topR, topG, topB, botR, botG, botB uint8) cell {
	topY := luminance(topR, topG, topB)
	botY := luminance(botR, botG, botB)
	return cell{
		glyph: halfBlockGlyph,
		fg:    resolveColor(level, topR, topG, topB, topY),
		hasBG: true,
		bg:    resolveColor(level, botR, botG, botB, botY),
	}
}

// renderRowScalar computes one cell per pixel in a plain loop — the
// mandatory pure-scalar fallback (§4.6 "A pure scalar fallback must exist
// and must produce byte-identical output").
func renderRowScalar(cache *Cache, level protocol.ColorLevel, mode protocol.RenderMode, row []byte, bpp int, width int) []cell {
	cells := make([]cell, width)
	for x := 0; x < width; x++ {
		off := x * bpp
		r, g, b := pixelRGB(row[off:off+bpp], bpp)
		cells[x] = computeCell(cache, level, mode, r, g, b)
	}
	return cells
}

// renderRowVector processes pixels minVectorLane at a time, a manually
// unrolled stand-in for "process a full vector lane of pixels per
// iteration" (§4.6 "SIMD") — true CPU intrinsics aren't reachable from
// portable Go, so each lane just calls the identical per-pixel computation
// minVectorLane times in a row before falling through to renderRowScalar
// for the tail. Because it shares computeCell with the scalar path, output
// is byte-identical by construction rather than by coincidence.
func renderRowVector(cache *Cache, level protocol.ColorLevel, mode protocol.RenderMode, row []byte, bpp int, width int) []cell {
	cells := make([]cell, width)
	x := 0
	for ; x+minVectorLane <= width; x += minVectorLane {
		for lane := 0; lane < minVectorLane; lane++ {
			off := (x + lane) * bpp
			r, g, b := pixelRGB(row[off:off+bpp], bpp)
			cells[x+lane] = computeCell(cache, level, mode, r, g, b)
		}
	}
	for ; x < width; x++ {
		off := x * bpp
		r, g, b := pixelRGB(row[off:off+bpp], bpp)
		cells[x] = computeCell(cache, level, mode, r, g, b)
	}
	return cells
}

// pixelRGB reads one pixel's channels; rowBytes has already swapped
// BGR/BGRA rows into RGB order before this is called.
func pixelRGB(px []byte, bpp int) (r, g, b uint8) {
	switch bpp {
	case 3:
		return px[0], px[1], px[2]
	case 4:
		return px[0], px[1], px[2]
	default:
		return 0, 0, 0
	}
}

// rowBytes returns the row slice, swapping B/R in place into a scratch
// buffer when the source format is BGR/BGRA, so downstream code always
// sees RGB order.
func rowBytes(pixels []byte, width, bpp, y int, format protocol.PixelFormat, scratch []byte) []byte {
	stride := width * bpp
	row := pixels[y*stride : (y+1)*stride]
	switch format {
	case protocol.PixelFormatBGR, protocol.PixelFormatBGRA:
		copy(scratch, row)
		for x := 0; x < width; x++ {
			off := x * bpp
			scratch[off], scratch[off+2] = scratch[off+2], scratch[off]
		}
		return scratch
	default:
		return row
	}
}

// SampleRGB reads the pixel at (x, y) out of a width×height buffer in the
// given format and returns it in RGB order, regardless of source channel
// order. Used by the tiled-canvas compositor to resample a source frame
// into a listener's grid without duplicating the format-decoding rules
// Render itself uses per row.
func SampleRGB(pixels []byte, width int, format protocol.PixelFormat, x, y int) (r, g, b uint8) {
	bpp := format.BytesPerPixel()
	if bpp == 0 {
		return 0, 0, 0
	}
	off := (y*width + x) * bpp
	if off+bpp > len(pixels) {
		return 0, 0, 0
	}
	px := pixels[off : off+bpp]
	switch format {
	case protocol.PixelFormatBGR, protocol.PixelFormatBGRA:
		return px[2], px[1], px[0]
	default:
		return pixelRGB(px, bpp)
	}
}

// Render writes one full ANSI-encoded frame for pixels (width×height,
// stride width*format.BytesPerPixel(), row-major) into out, returning the
// number of bytes written. It never writes past len(out) or reads past
// pixels (§4.6 "Buffer safety"); if out runs low mid-frame it returns the
// partial length written so far.
func Render(pixels []byte, width, height int, format protocol.PixelFormat, mode protocol.RenderMode, level protocol.ColorLevel, cache *Cache, out []byte) int {
	bpp := format.BytesPerPixel()
	if bpp == 0 || width <= 0 || height <= 0 {
		return 0
	}
	scratch := make([]byte, width*bpp)
	botScratch := make([]byte, width*bpp)

	n := 0
	if mode == protocol.RenderModeHalfBlock {
		for y := 0; y < height; y += 2 {
			topRow := rowBytes(pixels, width, bpp, y, format, scratch)
			var botRow []byte
			if y+1 < height {
				botRow = rowBytes(pixels, width, bpp, y+1, format, botScratch)
			}
			cells := make([]cell, width)
			for x := 0; x < width; x++ {
				off := x * bpp
				tr, tg, tb := pixelRGB(topRow[off:off+bpp], bpp)
				var br, bg, bb uint8
				if botRow != nil {
					br, bg, bb = pixelRGB(botRow[off:off+bpp], bpp)
				}
				cells[x] = computeHalfBlockCell(level, tr, tg, tb, br, bg, bb)
			}
			written, complete := emitRow(out, n, cells, level, cache)
			n = written
			if !complete {
				return n
			}
		}
		return n
	}

	for y := 0; y < height; y++ {
		row := rowBytes(pixels, width, bpp, y, format, scratch)
		var cells []cell
		if width >= minVectorLane {
			cells = renderRowVector(cache, level, mode, row, bpp, width)
		} else {
			cells = renderRowScalar(cache, level, mode, row, bpp, width)
		}
		written, complete := emitRow(out, n, cells, level, cache)
		n = written
		if !complete {
			return n
		}
	}
	return n
}

// emitRow run-length-compresses cells and writes REP/SGR sequences into
// out starting at n, returning the new offset and whether the entire row
// was written (§4.6 "Run-length compression").
func emitRow(out []byte, n int, cells []cell, level protocol.ColorLevel, cache *Cache) (int, bool) {
	if len(cells) == 0 {
		return n, true
	}

	i := 0
	curFG, curBG, curHasBG := cells[0].fg, cells[0].bg, cells[0].hasBG
	var ok bool
	n, ok = writeSGR(out, n, curFG, curHasBG, curBG, level)
	if !ok {
		return n, false
	}

	for i < len(cells) {
		start := i
		fg, bg, hasBG := cells[i].fg, cells[i].bg, cells[i].hasBG
		glyph := cells[i].glyph
		for i < len(cells) && cells[i].glyph == glyph && cells[i].fg == fg && cells[i].hasBG == hasBG && cells[i].bg == bg {
			i++
		}
		runLen := i - start

		if fg != curFG || bg != curBG || hasBG != curHasBG {
			n, ok = writeSGR(out, n, fg, hasBG, bg, level)
			if !ok {
				return n, false
			}
			curFG, curBG, curHasBG = fg, bg, hasBG
		}

		n, ok = writeRun(out, n, cache, glyph, runLen)
		if !ok {
			return n, false
		}
	}

	reset := "\n"
	if level != protocol.ColorLevelNone {
		reset = "\x1b[0m\n"
	}
	n, ok = writeString(out, n, reset)
	if !ok {
		return n, false
	}
	return n, true
}

// writeRun writes the first cell's glyph, then an ECMA-48 REP sequence for
// the remaining runLen-1 repeats (§4.6: "print the first cell, then emit
// ESC [ (n-1) b for n ≥ 2"). REP never crosses a newline because it is
// always emitted before the row's own trailing newline.
func writeRun(out []byte, n int, cache *Cache, glyph rune, runLen int) (int, bool) {
	var ok bool
	n, ok = writeRune(out, n, glyph)
	if !ok {
		return n, false
	}
	if runLen < 2 {
		return n, true
	}
	if len(out)-n < safetyMargin {
		return n, false
	}
	n, ok = writeString(out, n, "\x1b[")
	if !ok {
		return n, false
	}
	var digits string
	if runLen-1 < len(cache.DecimalTable) {
		digits = cache.DecimalTable[clampDecimalIndex(runLen-1)]
	} else {
		digits = strconv.Itoa(runLen - 1)
	}
	n, ok = writeString(out, n, digits)
	if !ok {
		return n, false
	}
	return writeString(out, n, "b")
}

func clampDecimalIndex(v int) int {
	if v > 255 {
		return 255
	}
	if v < 0 {
		return 0
	}
	return v
}

// writeSGR emits the foreground/background SGR escape for one color pair,
// or nothing under mono (§4.6 "Color modes").
func writeSGR(out []byte, n int, fg colorCode, hasBG bool, bg colorCode, level protocol.ColorLevel) (int, bool) {
	if level == protocol.ColorLevelNone {
		return n, true
	}
	if len(out)-n < safetyMargin {
		return n, false
	}
	var ok bool
	n, ok = writeString(out, n, "\x1b[")
	if !ok {
		return n, false
	}
	n, ok = writeColorParams(out, n, fg, true)
	if !ok {
		return n, false
	}
	if hasBG {
		n, ok = writeString(out, n, ";")
		if !ok {
			return n, false
		}
		n, ok = writeColorParams(out, n, bg, false)
		if !ok {
			return n, false
		}
	}
	return writeString(out, n, "m")
}

func writeColorParams(out []byte, n int, c colorCode, foreground bool) (int, bool) {
	switch c.kind {
	case colorNone:
		return n, true
	case colorAnsi16:
		base := 30
		if !foreground {
			base = 40
		}
		if c.idx >= 8 {
			base += 60
		}
		return writeString(out, n, strconv.Itoa(base+c.idx%8))
	case colorAnsi256:
		prefix := "38;5;"
		if !foreground {
			prefix = "48;5;"
		}
		n, ok := writeString(out, n, prefix)
		if !ok {
			return n, false
		}
		return writeString(out, n, strconv.Itoa(c.idx))
	case colorTruecolor:
		prefix := "38;2;"
		if !foreground {
			prefix = "48;2;"
		}
		n, ok := writeString(out, n, prefix)
		if !ok {
			return n, false
		}
		n, ok = writeString(out, n, strconv.Itoa(int(c.r)))
		if !ok {
			return n, false
		}
		n, ok = writeString(out, n, ";")
		if !ok {
			return n, false
		}
		n, ok = writeString(out, n, strconv.Itoa(int(c.g)))
		if !ok {
			return n, false
		}
		n, ok = writeString(out, n, ";")
		if !ok {
			return n, false
		}
		return writeString(out, n, strconv.Itoa(int(c.b)))
	default:
		return n, true
	}
}

func writeString(out []byte, n int, s string) (int, bool) {
	if len(out)-n < len(s) {
		return n, false
	}
	n += copy(out[n:], s)
	return n, true
}

func writeRune(out []byte, n int, r rune) (int, bool) {
	var buf [utf8.UTFMax]byte
	l := utf8.EncodeRune(buf[:], r)
	if len(out)-n < l {
		return n, false
	}
	n += copy(out[n:], buf[:l])
	return n, true
}
