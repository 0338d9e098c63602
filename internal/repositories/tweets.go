package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/cliphub/backend/internal/db"
	"github.com/cliphub/backend/internal/models"
)

// PostgresTweetRepository provides PostgreSQL-backed persistence for tweets.
type PostgresTweetRepository struct {
	pool db.Pool
}

// NewPostgresTweetRepository constructs a tweet repository backed by PostgreSQL.
func NewPostgresTweetRepository(pool db.Pool) *PostgresTweetRepository {
	return &PostgresTweetRepository{pool: pool}
}

// Create persists a new tweet.
func (r *PostgresTweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO tweets (id, owner_id, content, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
    `, tweet.ID, tweet.OwnerID, tweet.Content, tweet.CreatedAt, tweet.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert tweet: %w", err)
	}

	return nil
}

// PageForUser returns one page of a user's tweets, newest first, with the
// author's public fields joined in and the total count alongside.
func (r *PostgresTweetRepository) PageForUser(ctx context.Context, userID string, page PageParams) (models.TweetPage, error) {
	_, limit, offset := page.Normalize()

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.TweetPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT t.id, t.content, o.username, o.avatar_url, t.created_at,
               COUNT(*) OVER() AS total_count
        FROM tweets t
        JOIN users o ON o.id = t.owner_id
        WHERE t.owner_id = $1
        ORDER BY t.created_at DESC
        LIMIT $2 OFFSET $3
    `, userID, limit, offset)
	if err != nil {
		return models.TweetPage{}, fmt.Errorf("query tweets: %w", err)
	}
	defer rows.Close()

	result := models.TweetPage{Tweets: []models.TweetView{}}
	for rows.Next() {
		var tweet models.TweetView
		if err := rows.Scan(&tweet.ID, &tweet.Content, &tweet.Username, &tweet.AvatarURL,
			&tweet.CreatedAt, &result.TotalCount); err != nil {
			return models.TweetPage{}, fmt.Errorf("scan tweet: %w", err)
		}
		result.Tweets = append(result.Tweets, tweet)
	}

	if err := rows.Err(); err != nil {
		return models.TweetPage{}, fmt.Errorf("iterate tweets: %w", err)
	}

	// The window count is absent when the page slice is empty; report the real
	// total so out-of-range pages still carry it.
	if len(result.Tweets) == 0 {
		row := conn.QueryRow(ctx, `SELECT COUNT(*) FROM tweets WHERE owner_id = $1`, userID)
		if err := row.Scan(&result.TotalCount); err != nil {
			return models.TweetPage{}, fmt.Errorf("count tweets: %w", err)
		}
	}

	return result, nil
}

// UpdateOwned replaces the content of a tweet owned by ownerID.
func (r *PostgresTweetRepository) UpdateOwned(ctx context.Context, id, ownerID, content string) error {
	return execOwned(ctx, r.pool, "update tweet", `
        UPDATE tweets
        SET content = $3, updated_at = $4
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID, content, time.Now().UTC())
}

// DeleteOwned removes a tweet owned by ownerID.
func (r *PostgresTweetRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	return execOwned(ctx, r.pool, "delete tweet", `
        DELETE FROM tweets
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
}
