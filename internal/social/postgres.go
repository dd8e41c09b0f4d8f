package social

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// PostgresFollowRepository implements FollowRepository using PostgreSQL.
// The (follower_id, followed_id) pair is the primary key, so Follow is
// naturally idempotent via ON CONFLICT DO NOTHING.
type PostgresFollowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresFollowRepository creates a new PostgresFollowRepository.
func NewPostgresFollowRepository(db *sql.DB, logger *slog.Logger) *PostgresFollowRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresFollowRepository{db: db, logger: logger}
}

// Follow creates the (follower, followed) edge.
func (r *PostgresFollowRepository) Follow(ctx context.Context, followerID, followedID string) (bool, error) {
	if followerID == followedID {
		return false, ErrSelfFollow
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followed_id)
		 VALUES ($1, $2)
		 ON CONFLICT (follower_id, followed_id) DO NOTHING`,
		followerID, followedID)
	if err != nil {
		return false, fmt.Errorf("failed to insert follow edge: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// Unfollow removes the edge.
func (r *PostgresFollowRepository) Unfollow(ctx context.Context, followerID, followedID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followed_id = $2`,
		followerID, followedID)
	if err != nil {
		return fmt.Errorf("failed to delete follow edge: %w", err)
	}
	return nil
}

// FollowSet returns the set of user IDs the given user follows.
func (r *PostgresFollowRepository) FollowSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	return querySet(ctx, r.db,
		`SELECT followed_id FROM follows WHERE follower_id = $1`, userID)
}

// PostgresBlockRepository implements BlockRepository using PostgreSQL.
type PostgresBlockRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresBlockRepository creates a new PostgresBlockRepository.
func NewPostgresBlockRepository(db *sql.DB, logger *slog.Logger) *PostgresBlockRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresBlockRepository{db: db, logger: logger}
}

// Block creates the (blocker, blocked) edge.
func (r *PostgresBlockRepository) Block(ctx context.Context, blockerID, blockedID string) error {
	if blockerID == blockedID {
		return ErrSelfBlock
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO blocks (blocker_id, blocked_id)
		 VALUES ($1, $2)
		 ON CONFLICT (blocker_id, blocked_id) DO NOTHING`,
		blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to insert block edge: %w", err)
	}
	return nil
}

// Unblock removes the edge.
func (r *PostgresBlockRepository) Unblock(ctx context.Context, blockerID, blockedID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM blocks WHERE blocker_id = $1 AND blocked_id = $2`,
		blockerID, blockedID)
	if err != nil {
		return fmt.Errorf("failed to delete block edge: %w", err)
	}
	return nil
}

// BlockSet returns the set of user IDs the given user has blocked.
func (r *PostgresBlockRepository) BlockSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	return querySet(ctx, r.db,
		`SELECT blocked_id FROM blocks WHERE blocker_id = $1`, userID)
}

// querySet runs a single-column query and collects the results as a set.
func querySet(ctx context.Context, db *sql.DB, query, arg string) (map[string]struct{}, error) {
	rows, err := db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query edges: %w", err)
	}
	defer rows.Close()

	result := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan edge: %w", err)
		}
		result[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edges: %w", err)
	}
	return result, nil
}
