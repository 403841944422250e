package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied in order; every statement is idempotent.  Dates are
// stored as DATE so the overlap test compares whole calendar days.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            CHAR(36)     NOT NULL PRIMARY KEY,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		first_name    VARCHAR(100) NOT NULL DEFAULT '',
		last_name     VARCHAR(100) NOT NULL DEFAULT '',
		role          ENUM('USER','EDITOR','ADMIN') NOT NULL DEFAULT 'USER',
		is_verified   BOOLEAN      NOT NULL DEFAULT FALSE,
		last_login    DATETIME     NULL,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    CHAR(36)  NOT NULL,
		token_hash CHAR(64)  NOT NULL,
		expires_at DATETIME  NOT NULL,
		created_at DATETIME  NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_token_hash (token_hash),
		KEY idx_refresh_expires (expires_at),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS cars (
		id               VARCHAR(64)  NOT NULL PRIMARY KEY,
		make             VARCHAR(100) NOT NULL,
		model            VARCHAR(100) NOT NULL,
		year             SMALLINT     NOT NULL,
		type             VARCHAR(50)  NOT NULL,
		price_per_day    BIGINT       NOT NULL,
		description      TEXT         NULL,
		features         JSON         NOT NULL,
		availability     BOOLEAN      NOT NULL DEFAULT TRUE,
		created_by       CHAR(36)     NOT NULL,
		last_modified_by CHAR(36)     NOT NULL,
		created_at       DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS car_specifications (
		car_id       VARCHAR(64) NOT NULL PRIMARY KEY,
		transmission VARCHAR(50) NULL,
		fuel_type    VARCHAR(50) NULL,
		seats        SMALLINT    NULL,
		luggage      INT         NULL,
		mileage      VARCHAR(50) NULL,
		CONSTRAINT fk_specs_car FOREIGN KEY (car_id) REFERENCES cars(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id          CHAR(36)    NOT NULL PRIMARY KEY,
		car_id      VARCHAR(64) NOT NULL,
		user_id     CHAR(36)    NOT NULL,
		start_date  DATE        NOT NULL,
		end_date    DATE        NOT NULL,
		status      ENUM('PENDING','CONFIRMED','IN_PROGRESS','COMPLETED','CANCELLED') NOT NULL DEFAULT 'PENDING',
		total_price BIGINT      NOT NULL,
		created_at  DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME    NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		KEY idx_bookings_car_dates (car_id, status, start_date, end_date),
		KEY idx_bookings_user (user_id, created_at),
		CONSTRAINT fk_bookings_car FOREIGN KEY (car_id) REFERENCES cars(id) ON DELETE RESTRICT,
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT chk_bookings_range CHECK (start_date <= end_date)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS booking_extras (
		booking_id        CHAR(36) NOT NULL PRIMARY KEY,
		insurance         BOOLEAN  NOT NULL DEFAULT FALSE,
		gps               BOOLEAN  NOT NULL DEFAULT FALSE,
		child_seat        BOOLEAN  NOT NULL DEFAULT FALSE,
		additional_driver BOOLEAN  NOT NULL DEFAULT FALSE,
		CONSTRAINT fk_extras_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
