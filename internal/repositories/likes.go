package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cliphub/backend/internal/db"
	"github.com/cliphub/backend/internal/models"
)

// PostgresLikeRepository provides PostgreSQL-backed persistence for likes.
type PostgresLikeRepository struct {
	pool db.Pool
}

// NewPostgresLikeRepository constructs a like repository backed by PostgreSQL.
func NewPostgresLikeRepository(pool db.Pool) *PostgresLikeRepository {
	return &PostgresLikeRepository{pool: pool}
}

// ToggleVideo flips the like state for (video, user) and reports whether the
// like now exists.
func (r *PostgresLikeRepository) ToggleVideo(ctx context.Context, videoID, userID string) (bool, error) {
	return r.toggle(ctx, "video_id", videoID, userID)
}

// ToggleComment flips the like state for (comment, user).
func (r *PostgresLikeRepository) ToggleComment(ctx context.Context, commentID, userID string) (bool, error) {
	return r.toggle(ctx, "comment_id", commentID, userID)
}

// ToggleTweet flips the like state for (tweet, user).
func (r *PostgresLikeRepository) ToggleTweet(ctx context.Context, tweetID, userID string) (bool, error) {
	return r.toggle(ctx, "tweet_id", tweetID, userID)
}

// toggle deletes the existing like first; only when nothing was deleted does
// it insert. The partial unique indexes make the insert a no-op when a
// concurrent call wins the race, so the pair can never hold two likes.
func (r *PostgresLikeRepository) toggle(ctx context.Context, subjectColumn, subjectID, userID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	tag, err := conn.Exec(ctx, `
        DELETE FROM likes
        WHERE `+subjectColumn+` = $1 AND liked_by = $2
    `, subjectID, userID)
	if err != nil {
		return false, fmt.Errorf("delete like: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return false, nil
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO likes (id, liked_by, `+subjectColumn+`, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT DO NOTHING
    `, uuid.NewString(), userID, subjectID, time.Now().UTC())
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return false, mapped
		}
		return false, fmt.Errorf("insert like: %w", err)
	}

	return true, nil
}

// LikedVideos returns every video the user has liked, each with its owner's
// public summary nested inline.
func (r *PostgresLikeRepository) LikedVideos(ctx context.Context, userID string) ([]models.VideoSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM likes l
        JOIN videos v ON v.id = l.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE l.liked_by = $1 AND l.video_id IS NOT NULL
        ORDER BY l.created_at DESC
    `, userID)
	if err != nil {
		return nil, fmt.Errorf("query liked videos: %w", err)
	}
	defer rows.Close()

	var videos []models.VideoSummary
	for rows.Next() {
		var video models.VideoSummary
		if err := scanVideoSummary(rows, &video); err != nil {
			return nil, fmt.Errorf("scan liked video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate liked videos: %w", err)
	}

	return videos, nil
}

// CountForVideo reports how many likes a video currently holds.
func (r *PostgresLikeRepository) CountForVideo(ctx context.Context, videoID string) (int64, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT COUNT(*) FROM likes WHERE video_id = $1`, videoID)

	var count int64
	if err := row.Scan(&count); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("count likes: %w", err)
	}

	return count, nil
}
