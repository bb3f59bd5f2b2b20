package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upInitTables, downInitTables)
}

func upInitTables(ctx context.Context, tx *sql.Tx) error {
	// Create users table
	_, err := tx.ExecContext(ctx, `
		CREATE TABLE users (
			id UUID PRIMARY KEY,
			username VARCHAR(150) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			password_hash VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return err
	}

	// Create profiles table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE profiles (
			user_id UUID PRIMARY KEY,
			iban VARCHAR(34) NOT NULL DEFAULT '',
			bank_name VARCHAR(255) NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_profiles_user
				FOREIGN KEY(user_id)
				REFERENCES users(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create trips table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trips (
			id UUID PRIMARY KEY,
			title VARCHAR(100) NOT NULL,
			code VARCHAR(10) NOT NULL UNIQUE,
			date DATE NOT NULL,
			leader_id UUID NOT NULL,
			has_ended BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_trips_leader
				FOREIGN KEY(leader_id)
				REFERENCES users(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	// Create trip_members table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE trip_members (
			trip_id UUID NOT NULL,
			user_id UUID NOT NULL,
			payment_confirmed BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (trip_id, user_id),
			CONSTRAINT fk_trip_members_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE,
			CONSTRAINT fk_trip_members_user
				FOREIGN KEY(user_id)
				REFERENCES users(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_trip_members_user_id ON trip_members(user_id);`)
	if err != nil {
		return err
	}

	// Create items table
	_, err = tx.ExecContext(ctx, `
		CREATE TABLE items (
			id UUID PRIMARY KEY,
			trip_id UUID NOT NULL,
			name VARCHAR(255) NOT NULL,
			quantity INTEGER NOT NULL DEFAULT 1,
			payer_id UUID,
			amount_paid NUMERIC(10,2) NOT NULL DEFAULT 0,
			is_paid BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT fk_items_trip
				FOREIGN KEY(trip_id)
				REFERENCES trips(id)
				ON UPDATE CASCADE
				ON DELETE CASCADE,
			CONSTRAINT fk_items_payer
				FOREIGN KEY(payer_id)
				REFERENCES users(id)
				ON UPDATE CASCADE
				ON DELETE SET NULL
		);
	`)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `CREATE INDEX idx_items_trip_id ON items(trip_id);`)
	if err != nil {
		return err
	}

	return nil
}

func downInitTables(ctx context.Context, tx *sql.Tx) error {
	for _, stmt := range []string{
		`DROP TABLE IF EXISTS items;`,
		`DROP TABLE IF EXISTS trip_members;`,
		`DROP TABLE IF EXISTS trips;`,
		`DROP TABLE IF EXISTS profiles;`,
		`DROP TABLE IF EXISTS users;`,
	} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
