package database

import (
	"context"
	"database/sql"
)

// schema holds the DDL for the occupancy tables.  Statuses are plain
// VARCHARs rather than ENUMs so adding a state never requires an ALTER
// on a hot table.  version backs the per-row conditional updates and
// the per-entity delta ordering.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS seats (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		venue_id     BIGINT UNSIGNED NOT NULL,
		label        VARCHAR(64)     NOT NULL,
		pos_x        INT             NOT NULL DEFAULT 0,
		pos_y        INT             NOT NULL DEFAULT 0,
		status       VARCHAR(16)     NOT NULL DEFAULT 'FREE',
		occupant_ref VARCHAR(191)    NULL,
		category     VARCHAR(32)     NOT NULL DEFAULT 'STANDARD',
		version      BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at   DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_seats_venue (venue_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tickets (
		id          CHAR(36)        NOT NULL,
		venue_id    BIGINT UNSIGNED NOT NULL,
		holder_name VARCHAR(191)    NOT NULL,
		admit_count INT UNSIGNED    NOT NULL DEFAULT 1,
		date        VARCHAR(10)     NOT NULL,
		status      VARCHAR(16)     NOT NULL DEFAULT 'ISSUED',
		version     BIGINT UNSIGNED NOT NULL DEFAULT 0,
		created_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME        NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_tickets_venue (venue_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// EnsureSchema creates the occupancy tables when they do not exist.
// Called once at startup; safe to call repeatedly.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
