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

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/termchat/termchat/internal/cmd"
	"github.com/termchat/termchat/internal/config"
	"github.com/USA-RedDragon/configulator"
)

// version and commit are overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	c := configulator.New[config.Config]()
	rootCmd := cmd.NewCommand(version, commit)

	if err := c.BindPFlags(rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, "failed to bind configuration flags:", err)
		os.Exit(1)
	}
	rootCmd.SetContext(c.ToContext(context.Background()))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
