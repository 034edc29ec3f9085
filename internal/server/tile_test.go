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
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/termchat/termchat/internal/protocol"
)

func TestTileGrid(t *testing.T) {
	t.Parallel()
	cases := []struct {
		n          int
		cols, rows int
	}{
		{0, 0, 0},
		{1, 1, 1},
		{2, 2, 1},
		{3, 2, 2},
		{4, 2, 2},
		{5, 3, 2},
		{9, 3, 3},
	}
	for _, c := range cases {
		cols, rows := tileGrid(c.n)
		require.Equal(t, c.cols, cols, "n=%d cols", c.n)
		require.Equal(t, c.rows, rows, "n=%d rows", c.n)
		require.GreaterOrEqual(t, cols*rows, c.n, "n=%d grid must fit every source", c.n)
	}
}

func TestCanvasSizeUsesListenerGrid(t *testing.T) {
	t.Parallel()

	w, h := canvasSize(protocol.ClientCapabilities{CellWidth: 40, CellHeight: 12, RenderMode: protocol.RenderModeForeground})
	require.Equal(t, 40, w)
	require.Equal(t, 12, h)

	w, h = canvasSize(protocol.ClientCapabilities{CellWidth: 40, CellHeight: 12, RenderMode: protocol.RenderModeHalfBlock})
	require.Equal(t, 40, w)
	require.Equal(t, 24, h, "half-block doubles pixel rows since Render folds two rows per cell")

	w, h = canvasSize(protocol.ClientCapabilities{})
	require.Equal(t, defaultCellWidth, w)
	require.Equal(t, defaultCellHeight, h)
}

func solidFrame(w, h uint32, r, g, b byte) protocol.ImageFrame {
	pixels := make([]byte, int(w)*int(h)*3)
	for i := 0; i < len(pixels); i += 3 {
		pixels[i], pixels[i+1], pixels[i+2] = r, g, b
	}
	return protocol.ImageFrame{Width: w, Height: h, PixelFormat: protocol.PixelFormatRGB, Data: pixels}
}

func TestComposeTiledCanvasSingleSourceFillsWholeCanvas(t *testing.T) {
	t.Parallel()
	red := solidFrame(4, 4, 255, 0, 0)

	canvas := composeTiledCanvas([]protocol.ImageFrame{red}, 8, 6)
	require.Len(t, canvas, 8*6*3)
	for px := 0; px < 8*6; px++ {
		off := px * 3
		require.Equal(t, []byte{255, 0, 0}, canvas[off:off+3])
	}
}

func TestComposeTiledCanvasTwoSourcesSideBySide(t *testing.T) {
	t.Parallel()
	red := solidFrame(2, 2, 255, 0, 0)
	blue := solidFrame(2, 2, 0, 0, 255)

	const canvasW, canvasH = 4, 2
	canvas := composeTiledCanvas([]protocol.ImageFrame{red, blue}, canvasW, canvasH)

	pixelAt := func(x, y int) []byte {
		off := (y*canvasW + x) * 3
		return canvas[off : off+3]
	}
	// two sources tile 2x1: left half is the first source, right half the second.
	require.Equal(t, []byte{255, 0, 0}, pixelAt(0, 0))
	require.Equal(t, []byte{0, 0, 255}, pixelAt(3, 0))
}

func TestComposeTiledCanvasEmptySourcesReturnsBlack(t *testing.T) {
	t.Parallel()
	canvas := composeTiledCanvas(nil, 4, 4)
	require.Len(t, canvas, 4*4*3)
	for _, b := range canvas {
		require.Equal(t, byte(0), b)
	}
}
