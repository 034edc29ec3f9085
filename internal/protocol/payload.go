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
	"math"
)

// ASCIIFrame flags bitmap (§6).
const (
	FlagHasColor       uint32 = 0x01
	FlagIsCompressed   uint32 = 0x02
	FlagRLECompressed  uint32 = 0x04
	FlagIsStretched    uint32 = 0x04 // shares the bit with RLE per §6; both report run-oriented output.
)

// PixelFormat enumerates the raw layouts IMAGE_FRAME may carry (§4.4).
type PixelFormat uint32

const (
	PixelFormatRGB PixelFormat = iota
	PixelFormatRGBA
	PixelFormatBGR
	PixelFormatBGRA
)

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGB:
		return "RGB"
	case PixelFormatRGBA:
		return "RGBA"
	case PixelFormatBGR:
		return "BGR"
	case PixelFormatBGRA:
		return "BGRA"
	default:
		return "unknown"
	}
}

// BytesPerPixel returns the stride of one pixel under f.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB, PixelFormatBGR:
		return 3
	case PixelFormatRGBA, PixelFormatBGRA:
		return 4
	default:
		return 0
	}
}

// ASCIIFrame is the decoded payload of an ASCII_FRAME packet (§6).
type ASCIIFrame struct {
	Width          uint32
	Height         uint32
	OriginalSize   uint32
	CompressedSize uint32
	Checksum       uint32
	Flags          uint32
	Data           []byte // raw (OriginalSize bytes) or deflate (CompressedSize bytes), per Flags
}

const asciiFrameHeaderLen = 6 * 4

// EncodeASCIIFrame marshals f into an ASCII_FRAME payload.
func EncodeASCIIFrame(f ASCIIFrame) []byte {
	buf := make([]byte, asciiFrameHeaderLen+len(f.Data))
	binary.BigEndian.PutUint32(buf[0:4], f.Width)
	binary.BigEndian.PutUint32(buf[4:8], f.Height)
	binary.BigEndian.PutUint32(buf[8:12], f.OriginalSize)
	binary.BigEndian.PutUint32(buf[12:16], f.CompressedSize)
	binary.BigEndian.PutUint32(buf[16:20], f.Checksum)
	binary.BigEndian.PutUint32(buf[20:24], f.Flags)
	copy(buf[asciiFrameHeaderLen:], f.Data)
	return buf
}

// DecodeASCIIFrame parses an ASCII_FRAME payload.
func DecodeASCIIFrame(payload []byte) (ASCIIFrame, error) {
	if len(payload) < asciiFrameHeaderLen {
		return ASCIIFrame{}, &Error{Kind: ErrKindProtocol, Reason: "short ASCII_FRAME payload"}
	}
	f := ASCIIFrame{
		Width:          binary.BigEndian.Uint32(payload[0:4]),
		Height:         binary.BigEndian.Uint32(payload[4:8]),
		OriginalSize:   binary.BigEndian.Uint32(payload[8:12]),
		CompressedSize: binary.BigEndian.Uint32(payload[12:16]),
		Checksum:       binary.BigEndian.Uint32(payload[16:20]),
		Flags:          binary.BigEndian.Uint32(payload[20:24]),
	}
	f.Data = payload[asciiFrameHeaderLen:]
	want := f.OriginalSize
	if f.Flags&FlagIsCompressed != 0 {
		want = f.CompressedSize
	}
	if uint32(len(f.Data)) != want {
		return ASCIIFrame{}, &Error{Kind: ErrKindProtocol, Reason: "ASCII_FRAME data length mismatch"}
	}
	return f, nil
}

// ImageFrame is the decoded payload of an IMAGE_FRAME packet (§6).
type ImageFrame struct {
	Width          uint32
	Height         uint32
	PixelFormat    PixelFormat
	CompressedSize uint32
	Checksum       uint32
	Timestamp      uint32
	Data           []byte // raw pixels, or deflate(pixels) when CompressedSize > 0
}

const imageFrameHeaderLen = 6 * 4

// EncodeImageFrame marshals f into an IMAGE_FRAME payload.
func EncodeImageFrame(f ImageFrame) []byte {
	buf := make([]byte, imageFrameHeaderLen+len(f.Data))
	binary.BigEndian.PutUint32(buf[0:4], f.Width)
	binary.BigEndian.PutUint32(buf[4:8], f.Height)
	binary.BigEndian.PutUint32(buf[8:12], uint32(f.PixelFormat))
	binary.BigEndian.PutUint32(buf[12:16], f.CompressedSize)
	binary.BigEndian.PutUint32(buf[16:20], f.Checksum)
	binary.BigEndian.PutUint32(buf[20:24], f.Timestamp)
	copy(buf[imageFrameHeaderLen:], f.Data)
	return buf
}

// DecodeImageFrame parses an IMAGE_FRAME payload. If CompressedSize is 0
// the payload is raw and its CRC32 must match Checksum (§4.4); compressed
// payloads are verified by the caller after inflate.
func DecodeImageFrame(payload []byte) (ImageFrame, error) {
	if len(payload) < imageFrameHeaderLen {
		return ImageFrame{}, &Error{Kind: ErrKindProtocol, Reason: "short IMAGE_FRAME payload"}
	}
	f := ImageFrame{
		Width:          binary.BigEndian.Uint32(payload[0:4]),
		Height:         binary.BigEndian.Uint32(payload[4:8]),
		PixelFormat:    PixelFormat(binary.BigEndian.Uint32(payload[8:12])),
		CompressedSize: binary.BigEndian.Uint32(payload[12:16]),
		Checksum:       binary.BigEndian.Uint32(payload[16:20]),
		Timestamp:      binary.BigEndian.Uint32(payload[20:24]),
	}
	f.Data = payload[imageFrameHeaderLen:]
	if f.Width == 0 || f.Height == 0 || f.Width > 4096 || f.Height > 4096 {
		return ImageFrame{}, &Error{Kind: ErrKindProtocol, Reason: "image dimensions out of bounds"}
	}
	if f.CompressedSize == 0 {
		if crc32.ChecksumIEEE(f.Data) != f.Checksum {
			return ImageFrame{}, &Error{Kind: ErrKindProtocol, Reason: "IMAGE_FRAME checksum mismatch"}
		}
	}
	return f, nil
}

// AudioSamplesPerPacket is the fixed chunk size AUDIO_BATCH groups samples
// into; batch_count counts how many such chunks the payload carries (§4.4).
const AudioSamplesPerPacket = 960 // 20ms @ 48kHz mono, the mixer's native frame size (§4.5)

// AudioBatch is the decoded payload of an AUDIO_BATCH packet (§6).
type AudioBatch struct {
	BatchCount   uint32
	TotalSamples uint32
	SampleRate   uint32
	Channels     uint32
	Samples      []float32 // little-endian on the wire, per §6
}

const audioBatchHeaderLen = 4 * 4

// EncodeAudioBatch marshals b into an AUDIO_BATCH payload.
func EncodeAudioBatch(b AudioBatch) []byte {
	buf := make([]byte, audioBatchHeaderLen+4*len(b.Samples))
	binary.BigEndian.PutUint32(buf[0:4], b.BatchCount)
	binary.BigEndian.PutUint32(buf[4:8], b.TotalSamples)
	binary.BigEndian.PutUint32(buf[8:12], b.SampleRate)
	binary.BigEndian.PutUint32(buf[12:16], b.Channels)
	off := audioBatchHeaderLen
	for _, s := range b.Samples {
		binary.LittleEndian.PutUint32(buf[off:off+4], math.Float32bits(s))
		off += 4
	}
	return buf
}

// DecodeAudioBatch parses an AUDIO_BATCH payload.
func DecodeAudioBatch(payload []byte) (AudioBatch, error) {
	if len(payload) < audioBatchHeaderLen {
		return AudioBatch{}, &Error{Kind: ErrKindProtocol, Reason: "short AUDIO_BATCH payload"}
	}
	b := AudioBatch{
		BatchCount:   binary.BigEndian.Uint32(payload[0:4]),
		TotalSamples: binary.BigEndian.Uint32(payload[4:8]),
		SampleRate:   binary.BigEndian.Uint32(payload[8:12]),
		Channels:     binary.BigEndian.Uint32(payload[12:16]),
	}
	rest := payload[audioBatchHeaderLen:]
	wantSamples := b.TotalSamples * b.Channels
	if uint32(len(rest)) != wantSamples*4 {
		return AudioBatch{}, &Error{Kind: ErrKindProtocol, Reason: "AUDIO_BATCH sample count mismatch"}
	}
	b.Samples = make([]float32, wantSamples)
	for i := range b.Samples {
		b.Samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(rest[i*4 : i*4+4]))
	}
	return b, nil
}

// ServerState is the decoded payload of a SERVER_STATE packet (§6).
type ServerState struct {
	ConnectedCount uint32
	ActiveCount    uint32
}

const serverStateLen = 4 + 4 + 6*4

// EncodeServerState marshals s into a SERVER_STATE payload.
func EncodeServerState(s ServerState) []byte {
	buf := make([]byte, serverStateLen)
	binary.BigEndian.PutUint32(buf[0:4], s.ConnectedCount)
	binary.BigEndian.PutUint32(buf[4:8], s.ActiveCount)
	return buf
}

// DecodeServerState parses a SERVER_STATE payload.
func DecodeServerState(payload []byte) (ServerState, error) {
	if len(payload) < 8 {
		return ServerState{}, &Error{Kind: ErrKindProtocol, Reason: "short SERVER_STATE payload"}
	}
	return ServerState{
		ConnectedCount: binary.BigEndian.Uint32(payload[0:4]),
		ActiveCount:    binary.BigEndian.Uint32(payload[4:8]),
	}, nil
}

// ColorLevel is the terminal capability record's advertised color depth (§3).
type ColorLevel uint8

const (
	ColorLevelNone ColorLevel = iota
	ColorLevel16
	ColorLevel256
	ColorLevelTruecolor
)

// RenderMode is the terminal capability record's advertised glyph layout (§3, §4.6).
type RenderMode uint8

const (
	RenderModeForeground RenderMode = iota
	RenderModeBackground
	RenderModeHalfBlock
)

// Session capability bitmask bits (§3 "advertised capabilities bitmask").
// These describe what the client's local hardware can do, independent of
// the terminal capability record's rendering preferences.
const (
	SessionCapVideo   uint32 = 0x01
	SessionCapAudio   uint32 = 0x02
	SessionCapColor   uint32 = 0x04
	SessionCapStretch uint32 = 0x08
)

// DisplayNameLen is the fixed, NUL-padded width of a session's display name
// on the wire (§3).
const DisplayNameLen = 32

// ClientCapabilities is the decoded payload of a CLIENT_CAPABILITIES packet,
// carrying the session's display name and capability bitmask (§3 "Session")
// alongside the negotiated terminal capability record (§3 "Terminal
// capability record").
type ClientCapabilities struct {
	DisplayName        string // ≤ 32 bytes UTF-8; NUL-padded on the wire
	CapabilitiesBitmask uint32

	ColorLevel   ColorLevel
	RenderMode   RenderMode
	CellWidth    uint16
	CellHeight   uint16
	UTF8         bool
	DesiredFPS   uint8
	Palette      string // standard/blocks/digital/minimal/cool/custom
	CustomPalette string // ≤ 64 bytes, meaningful only when Palette == "custom"
}

// EncodeClientCapabilities marshals c into a CLIENT_CAPABILITIES payload.
// Palette and CustomPalette are each length-prefixed with one byte.
func EncodeClientCapabilities(c ClientCapabilities) []byte {
	buf := make([]byte, 0, DisplayNameLen+4+9+1+len(c.Palette)+1+len(c.CustomPalette))

	var name [DisplayNameLen]byte
	copy(name[:], c.DisplayName)
	buf = append(buf, name[:]...)

	var bitmask [4]byte
	binary.BigEndian.PutUint32(bitmask[:], c.CapabilitiesBitmask)
	buf = append(buf, bitmask[:]...)

	buf = append(buf, byte(c.ColorLevel), byte(c.RenderMode))
	var cw, ch [2]byte
	binary.BigEndian.PutUint16(cw[:], c.CellWidth)
	binary.BigEndian.PutUint16(ch[:], c.CellHeight)
	buf = append(buf, cw[:]...)
	buf = append(buf, ch[:]...)
	if c.UTF8 {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, c.DesiredFPS)
	buf = append(buf, byte(len(c.Palette)))
	buf = append(buf, c.Palette...)
	buf = append(buf, byte(len(c.CustomPalette)))
	buf = append(buf, c.CustomPalette...)
	return buf
}

// DecodeClientCapabilities parses a CLIENT_CAPABILITIES payload.
func DecodeClientCapabilities(payload []byte) (ClientCapabilities, error) {
	const fixedLen = DisplayNameLen + 4 + 8
	if len(payload) < fixedLen+1 {
		return ClientCapabilities{}, &Error{Kind: ErrKindProtocol, Reason: "short CLIENT_CAPABILITIES payload"}
	}
	nameEnd := 0
	for nameEnd < DisplayNameLen && payload[nameEnd] != 0 {
		nameEnd++
	}
	c := ClientCapabilities{
		DisplayName:         string(payload[:nameEnd]),
		CapabilitiesBitmask: binary.BigEndian.Uint32(payload[DisplayNameLen : DisplayNameLen+4]),
	}
	payload = payload[DisplayNameLen+4:]
	c.ColorLevel = ColorLevel(payload[0])
	c.RenderMode = RenderMode(payload[1])
	c.CellWidth = binary.BigEndian.Uint16(payload[2:4])
	c.CellHeight = binary.BigEndian.Uint16(payload[4:6])
	c.UTF8 = payload[6] != 0
	c.DesiredFPS = payload[7]

	rest := payload[8:]
	if len(rest) < 1 {
		return ClientCapabilities{}, &Error{Kind: ErrKindProtocol, Reason: "missing palette selector"}
	}
	pl := int(rest[0])
	rest = rest[1:]
	if len(rest) < pl+1 {
		return ClientCapabilities{}, &Error{Kind: ErrKindProtocol, Reason: "truncated palette selector"}
	}
	c.Palette = string(rest[:pl])
	rest = rest[pl:]
	cpl := int(rest[0])
	rest = rest[1:]
	if len(rest) < cpl || cpl > 64 {
		return ClientCapabilities{}, &Error{Kind: ErrKindProtocol, Reason: "custom palette exceeds 64 bytes"}
	}
	c.CustomPalette = string(rest[:cpl])
	if c.DesiredFPS == 0 || c.DesiredFPS > 144 {
		return ClientCapabilities{}, &Error{Kind: ErrKindProtocol, Reason: "desired FPS out of range"}
	}
	return c, nil
}
