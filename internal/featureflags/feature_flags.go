// SPDX-License-Identifier: AGPL-3.0-or-later
// termchat - a real-time multi-party audiovisual chat fabric
// Copyright (C) 2023 Jacob McSwain
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

package featureflags

import (
	"log/slog"

	"github.com/termchat/termchat/internal/config"
)

type FeatureFlag string

const (
	// FeatureHalfBlockRender names the half-block render mode (§4.6). No
	// code path checks it: half-block rendering is selected by the client's
	// CLIENT_CAPABILITIES render mode whether or not this flag is set.
	FeatureHalfBlockRender FeatureFlag = "half-block-render"
	// FeatureClientAuth names client identity challenges. No code path
	// checks it: the server issues AUTH_CHALLENGE only when
	// Encryption.RequireClientAuth is set.
	FeatureClientAuth FeatureFlag = "client-auth"
)

var featureFlagManager *FeatureFlags

type FeatureFlags struct {
	config *config.Config
}

func Init(cfg *config.Config) *FeatureFlags {
	ff := &FeatureFlags{config: cfg}
	featureFlagManager = ff
	return ff
}

func IsEnabled(flag FeatureFlag) bool {
	if featureFlagManager == nil {
		slog.Error("feature flag manager not initialized")
		return false
	}
	for _, v := range featureFlagManager.config.FeatureFlags {
		if v == string(flag) {
			return true
		}
	}
	return false
}
