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

package db

import (
	"log/slog"

	"github.com/termchat/termchat/internal/db/models"
	"gorm.io/gorm"
)

// AuditSink adapts a *gorm.DB to internal/session.AuditSink. A write
// failure is logged, never propagated — the audit trail must never block
// the session state machine it's observing.
type AuditSink struct {
	DB *gorm.DB
}

func (a AuditSink) RecordConnection(clientID uint32, remoteAddr, state, reason string) {
	if err := models.RecordConnectionEvent(a.DB, models.ConnectionEvent{
		ClientID: clientID,
		RemoteIP: remoteAddr,
		State:    state,
		Reason:   reason,
	}); err != nil {
		slog.Error("failed to record connection event", "clientId", clientID, "error", err)
	}
}

func (a AuditSink) RecordAuth(clientID uint32, remoteAddr string, success bool, failReason string) {
	if err := models.RecordAuthEvent(a.DB, models.AuthEvent{
		ClientID:   clientID,
		RemoteIP:   remoteAddr,
		Success:    success,
		FailReason: failReason,
	}); err != nil {
		slog.Error("failed to record auth event", "clientId", clientID, "error", err)
	}
}
