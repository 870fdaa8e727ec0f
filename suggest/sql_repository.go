// Copyright 2025 The Ubica Authors
// SPDX-License-Identifier: Apache-2.0

package suggest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLRepository stores one JSON payload per owner in the suggestions table.
type SQLRepository struct {
	db *sql.DB
}

// NewSQLRepository returns a repository backed by db. Call CreateSchema once
// before using it.
func NewSQLRepository(db *sql.DB) *SQLRepository {
	return &SQLRepository{db: db}
}

// CreateSchema creates the suggestions table.
func (r *SQLRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS suggestions (
			owner VARCHAR PRIMARY KEY,
			seq BIGINT NOT NULL,
			payload VARCHAR NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)

	return err
}

// Load implements Repository.
func (r *SQLRepository) Load(ctx context.Context, owner string) (*Snapshot, error) {
	var payload string

	err := r.db.QueryRowContext(ctx, "SELECT payload FROM suggestions WHERE owner = ?", owner).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("loading suggestions for %q: %w", owner, err)
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decoding suggestions for %q: %w", owner, err)
	}

	return &snap, nil
}

// Save implements Repository. The seq check and the write share a
// transaction.
func (r *SQLRepository) Save(ctx context.Context, owner string, snap Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding suggestions for %q: %w", owner, err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := saveTx(ctx, tx, owner, snap.Seq, payload); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}

		return err
	}

	return tx.Commit()
}

func saveTx(ctx context.Context, tx *sql.Tx, owner string, seq uint64, payload []byte) error {
	var current int64

	err := tx.QueryRowContext(ctx, "SELECT seq FROM suggestions WHERE owner = ?", owner).Scan(&current)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = tx.ExecContext(ctx,
			"INSERT INTO suggestions (owner, seq, payload) VALUES (?, ?, ?)",
			owner, int64(seq), string(payload)) // #nosec G115 -- seq counts mutations

		return err
	case err != nil:
		return err
	case int64(seq) <= current: // #nosec G115
		return fmt.Errorf("%w: have %d, got %d", ErrStaleSnapshot, current, seq)
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE suggestions SET seq = ?, payload = ?, updated_at = CURRENT_TIMESTAMP WHERE owner = ?",
		int64(seq), string(payload), owner) // #nosec G115

	return err
}
