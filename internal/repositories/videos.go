package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cliphub/backend/internal/db"
	"github.com/cliphub/backend/internal/models"
)

// videoSummaryColumns is the shared owner-joined projection every listing uses.
// The column order must match scanVideoSummary.
const videoSummaryColumns = `
        v.id, v.title, v.description, v.thumbnail_url, v.media_url, v.duration, v.views,
        v.is_published, v.created_at,
        o.username, o.full_name, o.avatar_url`

// scanVideoSummary scans one owner-joined video row. Additional destinations
// for trailing columns may be appended by the caller.
func scanVideoSummary(rows pgx.Rows, v *models.VideoSummary, extra ...any) error {
	dest := []any{
		&v.ID, &v.Title, &v.Description, &v.ThumbnailURL, &v.MediaURL, &v.Duration, &v.Views,
		&v.IsPublished, &v.CreatedAt,
		&v.Owner.Username, &v.Owner.FullName, &v.Owner.AvatarURL,
	}
	dest = append(dest, extra...)
	return rows.Scan(dest...)
}

// ListParams filter and order the public video listing.
type ListParams struct {
	Query    string
	OwnerID  string
	SortBy   string
	SortDesc bool
	Page     PageParams
}

var videoSortColumns = map[string]string{
	"createdAt": "v.created_at",
	"views":     "v.views",
	"duration":  "v.duration",
	"title":     "v.title",
}

// PostgresVideoRepository provides PostgreSQL-backed persistence for videos.
type PostgresVideoRepository struct {
	pool db.Pool
}

// NewPostgresVideoRepository constructs a video repository backed by PostgreSQL.
func NewPostgresVideoRepository(pool db.Pool) *PostgresVideoRepository {
	return &PostgresVideoRepository{pool: pool}
}

// Create stores a new video record.
func (r *PostgresVideoRepository) Create(ctx context.Context, video models.Video) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	status := video.MediaStatus
	if status == "" {
		status = models.MediaStatusPending
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO videos (id, owner_id, title, description, media_url, media_status, thumbnail_url, duration, views, is_published, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, video.ID, video.OwnerID, video.Title, video.Description, video.MediaURL, status,
		video.ThumbnailURL, video.Duration, video.Views, video.IsPublished, video.CreatedAt, video.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert video: %w", err)
	}

	return nil
}

// FindByID fetches a single video row.
func (r *PostgresVideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.Video{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        SELECT id, owner_id, title, description, media_url, media_status, thumbnail_url, duration, views, is_published, created_at, updated_at
        FROM videos
        WHERE id = $1
    `, id)

	var video models.Video
	if err := row.Scan(&video.ID, &video.OwnerID, &video.Title, &video.Description, &video.MediaURL,
		&video.MediaStatus, &video.ThumbnailURL, &video.Duration, &video.Views, &video.IsPublished,
		&video.CreatedAt, &video.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Video{}, ErrNotFound
		}
		return models.Video{}, fmt.Errorf("select video: %w", err)
	}

	return video, nil
}

// List returns a page of published videos with owner summaries and the total
// match count.
func (r *PostgresVideoRepository) List(ctx context.Context, params ListParams) (models.VideoPage, error) {
	page, limit, offset := params.Page.Normalize()

	sortColumn, ok := videoSortColumns[params.SortBy]
	if !ok {
		sortColumn = "v.created_at"
		params.SortDesc = true
	}
	direction := "ASC"
	if params.SortDesc {
		direction = "DESC"
	}

	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`,
               COUNT(*) OVER() AS total_count
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE v.is_published
          AND ($1 = '' OR v.title ILIKE '%' || $1 || '%' OR v.description ILIKE '%' || $1 || '%')
          AND ($2 = '' OR v.owner_id::TEXT = $2)
        ORDER BY `+sortColumn+` `+direction+`
        LIMIT $3 OFFSET $4
    `, params.Query, params.OwnerID, limit, offset)
	if err != nil {
		return models.VideoPage{}, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	result := models.VideoPage{Videos: []models.VideoSummary{}, Page: page, Limit: limit}
	for rows.Next() {
		var video models.VideoSummary
		if err := scanVideoSummary(rows, &video, &result.TotalCount); err != nil {
			return models.VideoPage{}, fmt.Errorf("scan video: %w", err)
		}
		result.Videos = append(result.Videos, video)
	}

	if err := rows.Err(); err != nil {
		return models.VideoPage{}, fmt.Errorf("iterate videos: %w", err)
	}

	// The window count is absent when the page slice is empty; report the real
	// total so out-of-range pages still carry it.
	if len(result.Videos) == 0 {
		row := conn.QueryRow(ctx, `
            SELECT COUNT(*)
            FROM videos v
            WHERE v.is_published
              AND ($1 = '' OR v.title ILIKE '%' || $1 || '%' OR v.description ILIKE '%' || $1 || '%')
              AND ($2 = '' OR v.owner_id::TEXT = $2)
        `, params.Query, params.OwnerID)
		if err := row.Scan(&result.TotalCount); err != nil {
			return models.VideoPage{}, fmt.Errorf("count videos: %w", err)
		}
	}

	return result, nil
}

// ListForChannel returns every video owned by the channel, including
// unpublished ones. Used by the owner's dashboard.
func (r *PostgresVideoRepository) ListForChannel(ctx context.Context, ownerID string) ([]models.VideoSummary, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM videos v
        JOIN users o ON o.id = v.owner_id
        WHERE v.owner_id = $1
        ORDER BY v.created_at DESC
    `, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query channel videos: %w", err)
	}
	defer rows.Close()

	var videos []models.VideoSummary
	for rows.Next() {
		var video models.VideoSummary
		if err := scanVideoSummary(rows, &video); err != nil {
			return nil, fmt.Errorf("scan channel video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channel videos: %w", err)
	}

	return videos, nil
}

// UpdateOwned modifies title and description of a video owned by ownerID.
func (r *PostgresVideoRepository) UpdateOwned(ctx context.Context, id, ownerID, title, description string) error {
	return execOwned(ctx, r.pool, "update video", `
        UPDATE videos
        SET title = $3, description = $4, updated_at = $5
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID, title, description, time.Now().UTC())
}

// DeleteOwned removes a video owned by ownerID.
func (r *PostgresVideoRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	return execOwned(ctx, r.pool, "delete video", `
        DELETE FROM videos
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
}

// TogglePublish flips the published flag of a video owned by ownerID and
// returns the new state.
func (r *PostgresVideoRepository) TogglePublish(ctx context.Context, id, ownerID string) (bool, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return false, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `
        UPDATE videos
        SET is_published = NOT is_published, updated_at = $3
        WHERE id = $1 AND owner_id = $2
        RETURNING is_published
    `, id, ownerID, time.Now().UTC())

	var published bool
	if err := row.Scan(&published); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("toggle publish: %w", err)
	}

	return published, nil
}

// IncrementViews bumps the view counter for a video.
func (r *PostgresVideoRepository) IncrementViews(ctx context.Context, id string) error {
	return execOwned(ctx, r.pool, "increment views", `
        UPDATE videos
        SET views = views + 1
        WHERE id = $1
    `, id)
}

// MarkMediaReady records the uploaded media location after successful ingestion.
func (r *PostgresVideoRepository) MarkMediaReady(ctx context.Context, id, mediaURL, thumbnailURL string, duration float64) error {
	return execOwned(ctx, r.pool, "mark media ready", `
        UPDATE videos
        SET media_status = $2, media_url = $3, thumbnail_url = $4, duration = $5, updated_at = $6
        WHERE id = $1
    `, id, models.MediaStatusReady, mediaURL, thumbnailURL, duration, time.Now().UTC())
}

// MarkMediaFailed records a failed ingestion attempt.
func (r *PostgresVideoRepository) MarkMediaFailed(ctx context.Context, id string) error {
	return execOwned(ctx, r.pool, "mark media failed", `
        UPDATE videos
        SET media_status = $2, media_url = '', updated_at = $3
        WHERE id = $1
    `, id, models.MediaStatusFailed, time.Now().UTC())
}
