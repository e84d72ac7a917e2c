package database

import (
	"context"
	"database/sql"
	"fmt"
)

// Schema statements executed at startup. Every statement is
// idempotent so the service can boot against a fresh or an existing
// database.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		full_name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role ENUM('engineer','inspector','admin') NOT NULL,
		region ENUM('Caldas','Risaralda','Quindío') NOT NULL,
		transport ENUM('motorcycle','car') NOT NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		last_login DATETIME NULL,
		last_activity DATETIME NULL,
		reset_token VARCHAR(64) NULL,
		reset_token_expires DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	// Movements deliberately carry no foreign key to users: deleting a
	// user soft-invalidates their movements but keeps the rows for
	// aggregate history, so user_id must be free to outlive its owner.
	`CREATE TABLE IF NOT EXISTS movements (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		user_id BIGINT UNSIGNED NOT NULL,
		kind ENUM('safety_patrol','routine_inspection','emergency','maintenance') NOT NULL DEFAULT 'safety_patrol',
		state ENUM('started','in_progress','paused','completed','cancelled') NOT NULL DEFAULT 'started',
		start_lat DOUBLE NOT NULL,
		start_lon DOUBLE NOT NULL,
		start_time DATETIME NOT NULL,
		start_address VARCHAR(255) NULL,
		end_lat DOUBLE NULL,
		end_lon DOUBLE NULL,
		end_time DATETIME NULL,
		end_address VARCHAR(255) NULL,
		route JSON NULL,
		distance_km DOUBLE NOT NULL DEFAULT 0,
		avg_speed_kmh DOUBLE NOT NULL DEFAULT 0,
		max_speed_kmh DOUBLE NOT NULL DEFAULT 0,
		duration_min DOUBLE NOT NULL DEFAULT 0,
		date DATE NOT NULL,
		ended_at DATETIME NULL,
		region ENUM('Caldas','Risaralda','Quindío') NOT NULL,
		transport ENUM('motorcycle','car') NOT NULL,
		observations VARCHAR(500) NULL,
		incidents JSON NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_movements_user_date (user_id, date),
		KEY idx_movements_state (state),
		KEY idx_movements_region (region),
		KEY idx_movements_active (is_active)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS messages (
		id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
		sender_id BIGINT UNSIGNED NOT NULL,
		recipient_id BIGINT UNSIGNED NOT NULL,
		kind ENUM('notification','alert','general','report') NOT NULL DEFAULT 'general',
		subject VARCHAR(255) NOT NULL DEFAULT 'No subject',
		body VARCHAR(1000) NOT NULL,
		is_read TINYINT(1) NOT NULL DEFAULT 0,
		read_at DATETIME NULL,
		is_active TINYINT(1) NOT NULL DEFAULT 1,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (id),
		KEY idx_messages_recipient (recipient_id, is_read),
		CONSTRAINT fk_messages_sender FOREIGN KEY (sender_id) REFERENCES users (id),
		CONSTRAINT fk_messages_recipient FOREIGN KEY (recipient_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS admin_configs (
		admin_id BIGINT UNSIGNED NOT NULL,
		push_notifications TINYINT(1) NOT NULL DEFAULT 1,
		auto_reports TINYINT(1) NOT NULL DEFAULT 1,
		auto_backups TINYINT(1) NOT NULL DEFAULT 0,
		security_alerts TINYINT(1) NOT NULL DEFAULT 1,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		PRIMARY KEY (admin_id),
		CONSTRAINT fk_admin_configs_user FOREIGN KEY (admin_id) REFERENCES users (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema. Statements run in order inside a single
// connection so foreign keys resolve.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate statement %d: %w", i+1, err)
		}
	}
	return nil
}
