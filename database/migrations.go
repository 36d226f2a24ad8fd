package database

import (
	"database/sql"
	"fmt"
)

func RunMigrations(db *sql.DB) error {
	usersSQL := `
	CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	if _, err := db.Exec(usersSQL); err != nil {
		return fmt.Errorf("failed to run users migration: %w", err)
	}

	// Ensure user named 'admin' is actually an admin
	if _, err := db.Exec("UPDATE users SET is_admin = TRUE WHERE username = 'admin'"); err != nil {
		return fmt.Errorf("failed to ensure admin user has admin flag: %w", err)
	}

	requestsSQL := `
	CREATE TABLE IF NOT EXISTS requests (
		id SERIAL PRIMARY KEY,
		user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
		title VARCHAR(255) NOT NULL,
		author VARCHAR(255) NOT NULL,
		cover VARCHAR(500),
		isbn VARCHAR(50),
		book_id VARCHAR(100),
		source VARCHAR(20),
		status VARCHAR(20) DEFAULT 'pending',
		acquisition_status VARCHAR(20) DEFAULT 'pending',
		acquisition_id BIGINT DEFAULT 0,
		acquisition_message TEXT,
		tags TEXT, -- Comma-separated list of tag labels
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_requests_user_book ON requests (user_id, book_id);
	CREATE INDEX IF NOT EXISTS idx_requests_status ON requests (status, acquisition_status);

	-- Migration for existing requests table
	DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name='requests' AND column_name='acquisition_message') THEN
			ALTER TABLE requests ADD COLUMN acquisition_message TEXT;
		END IF;
		IF NOT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name='requests' AND column_name='tags') THEN
			ALTER TABLE requests ADD COLUMN tags TEXT;
		END IF;
	END $$;
	`
	if _, err := db.Exec(requestsSQL); err != nil {
		return fmt.Errorf("failed to run requests migration: %w", err)
	}

	return nil
}
