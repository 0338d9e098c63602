package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cliphub/backend/internal/db"
	"github.com/cliphub/backend/internal/models"
)

// PostgresPlaylistRepository provides PostgreSQL-backed persistence for playlists.
type PostgresPlaylistRepository struct {
	pool db.Pool
}

// NewPostgresPlaylistRepository constructs a playlist repository backed by PostgreSQL.
func NewPostgresPlaylistRepository(pool db.Pool) *PostgresPlaylistRepository {
	return &PostgresPlaylistRepository{pool: pool}
}

// Create persists a new playlist.
func (r *PostgresPlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, `
        INSERT INTO playlists (id, owner_id, name, description, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `, playlist.ID, playlist.OwnerID, playlist.Name, playlist.Description, playlist.CreatedAt, playlist.UpdatedAt)
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert playlist: %w", err)
	}

	return nil
}

// ListForUser resolves every playlist owned by the user, videos included.
func (r *PostgresPlaylistRepository) ListForUser(ctx context.Context, userID string) ([]models.PlaylistView, error) {
	return r.queryViews(ctx, `WHERE p.owner_id = $1`, userID)
}

// FindByID resolves one playlist with its videos.
func (r *PostgresPlaylistRepository) FindByID(ctx context.Context, id string) (models.PlaylistView, error) {
	views, err := r.queryViews(ctx, `WHERE p.id = $1`, id)
	if err != nil {
		return models.PlaylistView{}, err
	}
	if len(views) == 0 {
		return models.PlaylistView{}, ErrNotFound
	}
	return views[0], nil
}

// queryViews loads playlist rows and resolves their videos through the shared
// owner-summary projection, mirroring the single read-model shape playlists,
// feeds, and history all use.
func (r *PostgresPlaylistRepository) queryViews(ctx context.Context, where string, arg any) ([]models.PlaylistView, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `
        SELECT p.id, p.name, p.description, po.username, p.created_at
        FROM playlists p
        JOIN users po ON po.id = p.owner_id
        `+where+`
        ORDER BY p.created_at DESC
    `, arg)
	if err != nil {
		return nil, fmt.Errorf("query playlists: %w", err)
	}

	var views []models.PlaylistView
	for rows.Next() {
		var view models.PlaylistView
		if err := rows.Scan(&view.ID, &view.Name, &view.Description, &view.Owner, &view.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan playlist: %w", err)
		}
		view.Videos = []models.VideoSummary{}
		views = append(views, view)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlists: %w", err)
	}

	for i := range views {
		videos, err := r.playlistVideos(ctx, conn, views[i].ID)
		if err != nil {
			return nil, err
		}
		views[i].Videos = videos
	}

	return views, nil
}

func (r *PostgresPlaylistRepository) playlistVideos(ctx context.Context, conn *pgxpool.Conn, playlistID string) ([]models.VideoSummary, error) {
	rows, err := conn.Query(ctx, `
        SELECT `+videoSummaryColumns+`
        FROM playlist_videos pv
        JOIN videos v ON v.id = pv.video_id
        JOIN users o ON o.id = v.owner_id
        WHERE pv.playlist_id = $1
        ORDER BY pv.position ASC
    `, playlistID)
	if err != nil {
		return nil, fmt.Errorf("query playlist videos: %w", err)
	}
	defer rows.Close()

	videos := []models.VideoSummary{}
	for rows.Next() {
		var video models.VideoSummary
		if err := scanVideoSummary(rows, &video); err != nil {
			return nil, fmt.Errorf("scan playlist video: %w", err)
		}
		videos = append(videos, video)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate playlist videos: %w", err)
	}

	return videos, nil
}

// UpdateOwned modifies name and description of a playlist owned by ownerID.
func (r *PostgresPlaylistRepository) UpdateOwned(ctx context.Context, id, ownerID, name, description string) error {
	return execOwned(ctx, r.pool, "update playlist", `
        UPDATE playlists
        SET name = $3, description = $4, updated_at = $5
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID, name, description, time.Now().UTC())
}

// DeleteOwned removes a playlist owned by ownerID.
func (r *PostgresPlaylistRepository) DeleteOwned(ctx context.Context, id, ownerID string) error {
	return execOwned(ctx, r.pool, "delete playlist", `
        DELETE FROM playlists
        WHERE id = $1 AND owner_id = $2
    `, id, ownerID)
}

// AddVideo inserts a video into a playlist owned by ownerID with set
// semantics: adding a video twice leaves a single membership row.
func (r *PostgresPlaylistRepository) AddVideo(ctx context.Context, playlistID, ownerID, videoID string) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	row := conn.QueryRow(ctx, `SELECT 1 FROM playlists WHERE id = $1 AND owner_id = $2`, playlistID, ownerID)
	var one int
	if err := row.Scan(&one); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("select playlist: %w", err)
	}

	_, err = conn.Exec(ctx, `
        INSERT INTO playlist_videos (playlist_id, video_id, position, added_at)
        VALUES ($1, $2,
                COALESCE((SELECT MAX(position) + 1 FROM playlist_videos WHERE playlist_id = $1), 0),
                $3)
        ON CONFLICT (playlist_id, video_id) DO NOTHING
    `, playlistID, videoID, time.Now().UTC())
	if err != nil {
		if mapped := mapPgError(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert playlist video: %w", err)
	}

	return nil
}

// RemoveVideo removes a video from a playlist owned by ownerID. A missing
// membership, missing playlist, or foreign playlist all report ErrNotFound.
func (r *PostgresPlaylistRepository) RemoveVideo(ctx context.Context, playlistID, ownerID, videoID string) error {
	return execOwned(ctx, r.pool, "delete playlist video", `
        DELETE FROM playlist_videos pv
        USING playlists p
        WHERE pv.playlist_id = p.id
          AND pv.playlist_id = $1
          AND p.owner_id = $2
          AND pv.video_id = $3
    `, playlistID, ownerID, videoID)
}
