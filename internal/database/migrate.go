package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the tables used by the service.  Statements are
// idempotent so Migrate can run on every start when DB_MIGRATE is set.
// payments.booking_id is UNIQUE: one payment per booking is enforced by
// the repository's conditional insert and backed by this index.
// payment_events keeps gateway answers that arrived after a payment
// settled; payments.raw_response is never rewritten once it has.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		first_name    VARCHAR(100) NOT NULL DEFAULT '',
		last_name     VARCHAR(100) NOT NULL DEFAULT '',
		phone_number  VARCHAR(32)  NOT NULL DEFAULT '',
		role          VARCHAR(16)  NOT NULL DEFAULT 'GUEST',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at    DATETIME(6)  NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS listings (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title           VARCHAR(200)  NOT NULL,
		description     TEXT          NOT NULL,
		price_per_night DECIMAL(10,2) NOT NULL,
		location        VARCHAR(200)  NOT NULL,
		bedrooms        INT           NOT NULL,
		bathrooms       INT           NOT NULL,
		max_guests      INT           NOT NULL,
		amenities       TEXT          NOT NULL,
		is_available    TINYINT(1)    NOT NULL DEFAULT 1,
		created_at      DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at      DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		CONSTRAINT chk_listings_price CHECK (price_per_night >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id          BIGINT UNSIGNED NOT NULL,
		listing_id       BIGINT UNSIGNED NOT NULL,
		check_in         DATE          NOT NULL,
		check_out        DATE          NOT NULL,
		number_of_guests INT           NOT NULL,
		total_price      DECIMAL(10,2) NOT NULL,
		status           VARCHAR(20)   NOT NULL DEFAULT 'pending',
		special_requests TEXT          NOT NULL,
		created_at       DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at       DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		KEY idx_bookings_user (user_id),
		KEY idx_bookings_status_checkout (status, check_out),
		CONSTRAINT fk_bookings_user FOREIGN KEY (user_id) REFERENCES users(id) ON DELETE CASCADE,
		CONSTRAINT fk_bookings_listing FOREIGN KEY (listing_id) REFERENCES listings(id) ON DELETE CASCADE,
		CONSTRAINT chk_bookings_dates CHECK (check_out > check_in),
		CONSTRAINT chk_bookings_price CHECK (total_price >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payments (
		id                     BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		booking_id             BIGINT UNSIGNED NOT NULL,
		transaction_id         VARCHAR(100)  NOT NULL,
		gateway_transaction_id VARCHAR(100)  NULL,
		amount                 DECIMAL(10,2) NOT NULL,
		currency               CHAR(3)       NOT NULL DEFAULT 'ETB',
		status                 VARCHAR(20)   NOT NULL DEFAULT 'pending',
		payment_method         VARCHAR(50)   NOT NULL DEFAULT '',
		payment_date           DATETIME(6)   NULL,
		raw_response           JSON          NULL,
		created_at             DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		updated_at             DATETIME(6)   NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
		UNIQUE KEY ux_payments_booking (booking_id),
		UNIQUE KEY ux_payments_txn (transaction_id),
		UNIQUE KEY ux_payments_gateway_txn (gateway_transaction_id),
		KEY idx_payments_status_created (status, created_at),
		CONSTRAINT fk_payments_booking FOREIGN KEY (booking_id) REFERENCES bookings(id) ON DELETE CASCADE,
		CONSTRAINT chk_payments_amount CHECK (amount >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		id           BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		payment_id   BIGINT UNSIGNED NOT NULL,
		source       VARCHAR(20) NOT NULL,
		raw_response JSON        NULL,
		created_at   DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		KEY idx_payment_events_payment (payment_id),
		CONSTRAINT fk_payment_events_payment FOREIGN KEY (payment_id) REFERENCES payments(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  It stops at the first failing statement.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
