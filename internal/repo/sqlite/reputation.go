package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type reputationRepo struct {
	db  conn
	now func() time.Time
}

func (r *reputationRepo) Increment(ctx context.Context, userID, email string, delta int) (int, error) {
	const q = `
		INSERT INTO users (user_id, email, reputation_score, created_at, updated_at)
		VALUES (@user_id, @email, @delta, @now, @now)
		ON CONFLICT (user_id) DO UPDATE
		SET reputation_score = users.reputation_score + excluded.reputation_score,
		    email            = CASE WHEN excluded.email <> '' THEN excluded.email ELSE users.email END,
		    updated_at       = excluded.updated_at
		RETURNING reputation_score`

	var score int
	err := r.db.QueryRowContext(ctx, q,
		sql.Named("user_id", userID),
		sql.Named("email", email),
		sql.Named("delta", delta),
		sql.Named("now", formatTime(r.now())),
	).Scan(&score)
	if err != nil {
		return 0, fmt.Errorf("sqlite.ReputationRepo.Increment: %w", err)
	}
	return score, nil
}

func (r *reputationRepo) Get(ctx context.Context, userID string) (int, error) {
	var score int
	err := r.db.QueryRowContext(ctx, `SELECT reputation_score FROM users WHERE user_id = @user_id`,
		sql.Named("user_id", userID)).Scan(&score)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite.ReputationRepo.Get: %w", err)
	}
	return score, nil
}
