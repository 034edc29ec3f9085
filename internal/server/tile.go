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

package server

import (
	"math"

	"github.com/termchat/termchat/internal/protocol"
	"github.com/termchat/termchat/internal/render"
)

// defaultCellWidth and defaultCellHeight size a listener's canvas before its
// first CLIENT_CAPABILITIES arrives (§4.4 dispatch runs before that packet
// for a brand-new session).
const (
	defaultCellWidth  = 80
	defaultCellHeight = 24
)

// canvasSize returns the pixel dimensions a tiled broadcast canvas must have
// to fill caps' negotiated cell grid once rendered. Half-block mode folds
// two pixel rows into one output row (§4.6 "Half-block"), so the canvas
// needs twice the pixel rows; foreground and background modes are 1:1.
func canvasSize(caps protocol.ClientCapabilities) (width, height int) {
	width = int(caps.CellWidth)
	height = int(caps.CellHeight)
	if width == 0 {
		width = defaultCellWidth
	}
	if height == 0 {
		height = defaultCellHeight
	}
	if caps.RenderMode == protocol.RenderModeHalfBlock {
		height *= 2
	}
	return width, height
}

// tileGrid lays n sources out on the roughly-square grid closest to n,
// favoring more columns than rows when n isn't a perfect square.
func tileGrid(n int) (cols, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Ceil(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// composeTiledCanvas lays every entry in sources out on a canvasW×canvasH
// RGB grid, nearest-neighbor scaling each source's raw pixels to fill its
// tile (§2, §3, §4.4 broadcast steps 2-3). With one source, its tile is the
// whole canvas.
func composeTiledCanvas(sources []protocol.ImageFrame, canvasW, canvasH int) []byte {
	canvas := make([]byte, canvasW*canvasH*3)
	if len(sources) == 0 || canvasW <= 0 || canvasH <= 0 {
		return canvas
	}

	cols, rows := tileGrid(len(sources))
	tileW := canvasW / cols
	tileH := canvasH / rows

	for i, src := range sources {
		col := i % cols
		row := i / cols
		x0 := col * tileW
		y0 := row * tileH
		w, h := tileW, tileH
		if col == cols-1 {
			w = canvasW - x0
		}
		if row == rows-1 {
			h = canvasH - y0
		}
		drawTile(canvas, canvasW, src, x0, y0, w, h)
	}
	return canvas
}

// drawTile nearest-neighbor-samples src into the w×h region of dst starting
// at (x0, y0). dst is a canvasW-wide RGB buffer.
func drawTile(dst []byte, canvasW int, src protocol.ImageFrame, x0, y0, w, h int) {
	if w <= 0 || h <= 0 || src.Width == 0 || src.Height == 0 {
		return
	}
	srcW, srcH := int(src.Width), int(src.Height)
	for ty := 0; ty < h; ty++ {
		sy := ty * srcH / h
		for tx := 0; tx < w; tx++ {
			sx := tx * srcW / w
			r, g, b := render.SampleRGB(src.Data, srcW, src.PixelFormat, sx, sy)
			off := ((y0+ty)*canvasW + (x0 + tx)) * 3
			dst[off], dst[off+1], dst[off+2] = r, g, b
		}
	}
}
