package post

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// PostgresRepository implements Repository using PostgreSQL.
// The schema lives in migrations/; counters are adjusted atomically
// with single UPDATE statements so concurrent handlers never lose
// increments.
type PostgresRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db *sql.DB, logger *slog.Logger) *PostgresRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresRepository{
		db:     db,
		logger: logger,
	}
}

const postColumns = "id, author_id, body, is_flagged, reaction_count, comment_count, report_count, created_at, deleted_at"

func scanPost(row interface{ Scan(...any) error }) (*Post, error) {
	var p Post
	var deletedAt sql.NullTime
	err := row.Scan(&p.ID, &p.AuthorID, &p.Body, &p.IsFlagged,
		&p.ReactionCount, &p.CommentCount, &p.ReportCount, &p.CreatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	if deletedAt.Valid {
		p.DeletedAt = &deletedAt.Time
	}
	return &p, nil
}

// Create inserts a new post with a generated UUID.
func (r *PostgresRepository) Create(ctx context.Context, p *Post) error {
	p.ID = uuid.New().String()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (id, author_id, body, is_flagged, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		p.ID, p.AuthorID, p.Body, p.IsFlagged, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// GetByID retrieves a post by its UUID, excluding soft-deleted posts.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = $1 AND deleted_at IS NULL`, id)

	p, err := scanPost(row)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

// Delete soft-deletes a post by setting the deleted_at timestamp.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET deleted_at = now() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}

// Report increments the post's report count, flagging at threshold.
// The flag transition happens inside a single UPDATE so two concurrent
// reports cannot both observe the pre-threshold count.
func (r *PostgresRepository) Report(ctx context.Context, id string, threshold int) (bool, error) {
	row := r.db.QueryRowContext(ctx,
		`UPDATE posts
		 SET report_count = report_count + 1,
		     is_flagged = is_flagged OR (report_count + 1 >= $2 AND $2 > 0)
		 WHERE id = $1 AND deleted_at IS NULL
		 RETURNING is_flagged, report_count`,
		id, threshold)

	var flagged bool
	var count int
	if err := row.Scan(&flagged, &count); err != nil {
		if err == sql.ErrNoRows {
			return false, ErrPostNotFound
		}
		return false, fmt.Errorf("failed to report post: %w", err)
	}

	// Newly flagged iff the threshold was crossed by exactly this report.
	return flagged && count == threshold, nil
}

// FetchEligible returns eligible posts ordered by created_at DESC.
func (r *PostgresRepository) FetchEligible(ctx context.Context, before *time.Time, excludingAuthors map[string]struct{}, limit int) ([]*Post, error) {
	authors := make([]string, 0, len(excludingAuthors))
	for id := range excludingAuthors {
		authors = append(authors, id)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE is_flagged = FALSE
		   AND deleted_at IS NULL
		   AND ($1::timestamptz IS NULL OR created_at < $1)
		   AND (author_id <> ALL($2))
		 ORDER BY created_at DESC, id ASC
		 LIMIT $3`,
		nullableTime(before), pq.Array(authors), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligible posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// FetchTrending returns recent eligible posts ordered by reaction_count DESC.
func (r *PostgresRepository) FetchTrending(ctx context.Context, since time.Time, before *time.Time, limit int) ([]*Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE is_flagged = FALSE
		   AND deleted_at IS NULL
		   AND created_at > $1
		   AND ($2::timestamptz IS NULL OR created_at < $2)
		 ORDER BY reaction_count DESC, created_at DESC, id ASC
		 LIMIT $3`,
		since, nullableTime(before), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trending posts: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// RecentByAuthor returns the author's most recent eligible posts.
func (r *PostgresRepository) RecentByAuthor(ctx context.Context, authorID string, limit int) ([]*Post, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts
		 WHERE author_id = $1 AND is_flagged = FALSE AND deleted_at IS NULL
		 ORDER BY created_at DESC, id ASC
		 LIMIT $2`,
		authorID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch posts by author: %w", err)
	}
	defer rows.Close()

	return collectPosts(rows)
}

// AdjustReactionCount adds delta to the post's reaction counter.
func (r *PostgresRepository) AdjustReactionCount(ctx context.Context, id string, delta int64) error {
	return r.adjustCounter(ctx, id, "reaction_count", delta)
}

// AdjustCommentCount adds delta to the post's comment counter.
func (r *PostgresRepository) AdjustCommentCount(ctx context.Context, id string, delta int64) error {
	return r.adjustCounter(ctx, id, "comment_count", delta)
}

func (r *PostgresRepository) adjustCounter(ctx context.Context, id, column string, delta int64) error {
	// column is one of two compile-time constants, never user input.
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET `+column+` = GREATEST(`+column+` + $2, 0)
		 WHERE id = $1 AND deleted_at IS NULL`,
		id, delta)
	if err != nil {
		return fmt.Errorf("failed to adjust %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrPostNotFound
	}
	return nil
}

func collectPosts(rows *sql.Rows) ([]*Post, error) {
	posts := []*Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
