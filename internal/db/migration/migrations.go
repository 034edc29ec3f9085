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

//nolint:golint,wrapcheck
package migration

import (
	"github.com/termchat/termchat/internal/db/models"
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"
)

// Migrate brings the audit database up to the current schema.
func Migrate(db *gorm.DB) error {
	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202601010000",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(&models.Ratelimit{}, &models.ConnectionEvent{}, &models.AuthEvent{})
			},
			Rollback: func(tx *gorm.DB) error {
				if err := tx.Migrator().DropTable(&models.AuthEvent{}); err != nil {
					return err
				}
				if err := tx.Migrator().DropTable(&models.ConnectionEvent{}); err != nil {
					return err
				}
				return tx.Migrator().DropTable(&models.Ratelimit{})
			},
		},
		{
			// Index on created_at for time-range queries over the audit
			// trail. The stale-session janitor reads the in-memory
			// registry, not this table.
			ID: "202601020000",
			Migrate: func(tx *gorm.DB) error {
				if !tx.Migrator().HasIndex(&models.ConnectionEvent{}, "idx_connection_events_created_at") {
					return tx.Migrator().CreateIndex(&models.ConnectionEvent{}, "CreatedAt")
				}
				return nil
			},
			Rollback: func(tx *gorm.DB) error {
				if tx.Migrator().HasIndex(&models.ConnectionEvent{}, "idx_connection_events_created_at") {
					return tx.Migrator().DropIndex(&models.ConnectionEvent{}, "CreatedAt")
				}
				return nil
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return err
	}

	return nil
}
