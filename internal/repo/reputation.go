package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ReputationRepo keeps the per-user reputation score. The users table belongs
// to the account system; this repo only creates a row on first contribution
// and adjusts its score.
type ReputationRepo interface {
	// Increment adds delta to the user's score, creating the row if needed,
	// and returns the new score. A non-empty email refreshes the stored one.
	Increment(ctx context.Context, userID, email string, delta int) (int, error)

	// Get returns the user's score, or 0 for a user with no row.
	Get(ctx context.Context, userID string) (int, error)
}

type pgReputationRepo struct {
	db db
}

// NewReputationRepo constructs a ReputationRepo backed by the provided db connection.
func NewReputationRepo(db db) ReputationRepo {
	return &pgReputationRepo{db: db}
}

func (r *pgReputationRepo) Increment(ctx context.Context, userID, email string, delta int) (int, error) {
	const q = `
		INSERT INTO users (user_id, email, reputation_score)
		VALUES (@user_id, @email, @delta)
		ON CONFLICT (user_id) DO UPDATE
		SET reputation_score = users.reputation_score + EXCLUDED.reputation_score,
		    email            = CASE WHEN EXCLUDED.email <> '' THEN EXCLUDED.email ELSE users.email END,
		    updated_at       = now()
		RETURNING reputation_score`

	var score int
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID, "email": email, "delta": delta}).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("repo.ReputationRepo.Increment: %w", err)
	}
	return score, nil
}

func (r *pgReputationRepo) Get(ctx context.Context, userID string) (int, error) {
	const q = `SELECT reputation_score FROM users WHERE user_id = @user_id`

	var score int
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"user_id": userID}).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("repo.ReputationRepo.Get: %w", err)
	}
	return score, nil
}
