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
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed palettes.yaml
var bundledPalettesYAML []byte

// Palette is an ordered glyph ramp, light to dark (§4.6: "an ordered string
// light→dark; byte length typically 16-24").
type Palette struct {
	Name   string
	Glyphs []rune
}

type paletteFile struct {
	Palettes map[string]struct {
		Glyphs string `yaml:"glyphs"`
	} `yaml:"palettes"`
}

// BuiltinPalettes parses the bundled palettes.yaml into name → Palette.
// Mirrors the teacher's embed-then-unmarshal pattern for built-in reference
// data (internal/userdb.UserDB loads users.json.xz the same way: an
// //go:embed'd file decoded once at package init).
func BuiltinPalettes() (map[string]Palette, error) {
	var f paletteFile
	if err := yaml.Unmarshal(bundledPalettesYAML, &f); err != nil {
		return nil, fmt.Errorf("render: parse bundled palettes: %w", err)
	}
	out := make(map[string]Palette, len(f.Palettes))
	for name, entry := range f.Palettes {
		out[name] = Palette{Name: name, Glyphs: []rune(entry.Glyphs)}
	}
	return out, nil
}
