package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cliphub/backend/internal/db"
	"github.com/cliphub/backend/internal/models"
)

// PostgresCommentRepository provides PostgreSQL-backed persistence for comments.
type PostgresCommentRepository struct {
	pool db.Pool
}

// NewPostgresCommentRepository constructs a comment repository backed by PostgreSQL.
func NewPostgresCommentRepository(pool db.Pool) *PostgresCommentRepository {
	return &PostgresCommentRepository{pool: pool}
}

// Create persists a new comment on a video.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment models.Comment) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO comments (id, video_id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, comment.ID, comment.VideoID, comment.OwnerID, comment.Content, comment.CreatedAt, comment.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert comment: %w", err)
	}

	return nil
}

// PageForVideo returns one page of a video's comments, newest first, each row
// joined with the author's username and avatar, together with the total count.
// A page past the end yields an empty slice; the count is always explicit,
// zero included.
func (r *PostgresCommentRepository) PageForVideo(ctx context.Context, videoID string, page PageParams) (models.CommentPage, error) {
	_, limit, offset := page.Normalize()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT c.id, c.content, o.username, o.avatar_url, c.created_at,
               COUNT(*) OVER() AS total_count
        FROM comments c
        JOIN users o ON o.id = c.owner_id
        WHERE c.video_id = $1
        ORDER BY c.created_at DESC
        LIMIT $2 OFFSET $3
    `, videoID, limit, offset)
	if err != nil {
		return models.CommentPage{}, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	result := models.CommentPage{Comments: []models.CommentView{}}
	for rows.Next() {
		var comment models.CommentView
		if err := rows.Scan(&comment.ID, &comment.Content, &comment.Username, &comment.AvatarURL,
			&comment.CreatedAt, &result.TotalCount); err != nil {
			return models.CommentPage{}, fmt.Errorf("scan comment: %w", err)
		}
		result.Comments = append(result.Comments, comment)
	}

	if err := rows.Err(); err != nil {
		return models.CommentPage{}, fmt.Errorf("iterate comments: %w", err)
	}

	// The window count is absent when the page slice is empty; report the real
	// total so out-of-range pages still carry it.
	if len(result.Comments) == 0 {
		row := conn.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE video_id = $1`, videoID)
		if err := row.Scan(&result.TotalCount); err != nil {
			return models.CommentPage{}, fmt.Errorf("count comments: %w", err)
		}
	}

	return result, nil
}

// UpdateOwned replaces the content of a comment owned by ownerID.
func (r *PostgresCommentRepository) UpdateOwned(ctx context.Context, id, ownerID, content string) error {
	return execOwned(ctx, r.pool, "update comment", `
        UPDATE comments
        SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID, content, time.Now().UTC())
}

// DeleteOwned removes a comment owned by ownerID.
func (r *PostgresCommentRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	return execOwned(ctx, r.pool, "delete comment", `
        DELETE FROM comments
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
}
