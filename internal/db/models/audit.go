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

package models

import (
	"time"

	"gorm.io/gorm"
)

// ConnectionEvent records a session's lifecycle for the audit trail
// described in spec §7's propagation policy: one row when the session is
// registered after its handshake and one when it is removed, whether it
// left gracefully or abruptly. Intermediate state changes are not recorded.
type ConnectionEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ClientID  uint32    `gorm:"index" json:"client_id"`
	RemoteIP  string    `json:"remote_ip"`
	State     string    `gorm:"index" json:"state"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// AuthEvent records the outcome of a crypto-pipeline handshake attempt (§4.3).
type AuthEvent struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ClientID   uint32    `gorm:"index" json:"client_id"`
	RemoteIP   string    `json:"remote_ip"`
	Success    bool      `gorm:"index" json:"success"`
	FailReason string    `json:"fail_reason"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecordConnectionEvent appends a connection lifecycle row. Failures are the
// caller's to log; the audit trail must never block the session state machine.
func RecordConnectionEvent(db *gorm.DB, event ConnectionEvent) error {
	return db.Create(&event).Error //nolint:wrapcheck
}

// RecordAuthEvent appends a handshake-outcome row.
func RecordAuthEvent(db *gorm.DB, event AuthEvent) error {
	return db.Create(&event).Error //nolint:wrapcheck
}
